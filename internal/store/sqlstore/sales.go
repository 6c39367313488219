package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"appstock/backend/internal/domain"
	"appstock/backend/internal/store"
)

const saleColumns = `id, date, total, paid, {change}, status, cancelled_at, cancellation_reason`

func (s *Store) CreateSale(ctx context.Context, sale domain.Sale, adjustments []domain.StockAdjustment) (*domain.Sale, error) {
	if len(sale.Details) == 0 {
		return nil, fmt.Errorf("%w: sale has no lines", store.ErrInvalidInput)
	}
	if sale.Date.IsZero() {
		sale.Date = time.Now().UTC()
	}
	sale.Date = sale.Date.UTC()
	if sale.Status == "" {
		sale.Status = domain.SaleStatusActive
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	saleID, err := s.insert(ctx, tx, `
		INSERT INTO sales (date, total, paid, {change}, status)
		VALUES (?, ?, ?, ?, ?)
	`, sale.Date, sale.Total.Round(2), sale.Paid.Round(2), sale.Change.Round(2), sale.Status)
	if err != nil {
		return nil, fmt.Errorf("insert sale: %w", err)
	}
	sale.ID = saleID

	details := make([]domain.SaleDetail, 0, len(sale.Details))
	for _, d := range sale.Details {
		if d.Quantity < 1 {
			return nil, fmt.Errorf("%w: quantity must be positive", store.ErrInvalidInput)
		}
		var productID any
		if d.ProductID != nil {
			productID = *d.ProductID
		}
		d.UnitPrice = d.UnitPrice.Round(2)
		detailID, err := s.insert(ctx, tx, `
			INSERT INTO sale_details (sale_id, product_id, description, quantity, unit_price)
			VALUES (?, ?, ?, ?, ?)
		`, saleID, productID, d.Description, d.Quantity, d.UnitPrice)
		if err != nil {
			return nil, fmt.Errorf("insert sale detail: %w", err)
		}
		d.ID = detailID
		d.SaleID = saleID
		d.Subtotal = d.LineTotal()
		details = append(details, d)
	}
	sale.Details = details

	for _, adj := range adjustments {
		if adj.Qty < 0 {
			return nil, fmt.Errorf("%w: negative stock adjustment", store.ErrInvalidInput)
		}
		res, err := tx.ExecContext(ctx, s.dialect.bind(`
			UPDATE products
			SET stock = stock - ?
			WHERE id = ? AND stock >= ?
		`), adj.Qty, adj.ProductID, adj.Qty)
		if err != nil {
			return nil, fmt.Errorf("deduct stock: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if affected == 0 {
			p, err := s.getProduct(ctx, tx, "id = ?", adj.ProductID)
			if err != nil {
				return nil, fmt.Errorf("product %d: %w", adj.ProductID, err)
			}
			return nil, fmt.Errorf("%s: %w", p.Name, store.ErrInsufficientStock)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &sale, nil
}

func (s *Store) GetSale(ctx context.Context, id int64) (*domain.Sale, error) {
	row := s.db.QueryRowContext(ctx, s.dialect.bind(`SELECT `+saleColumns+` FROM sales WHERE id = ?`), id)
	sale, err := scanSale(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	details, err := s.listDetails(ctx, id)
	if err != nil {
		return nil, err
	}
	sale.Details = details
	return sale, nil
}

func (s *Store) ListSales(ctx context.Context, limit int) ([]domain.Sale, error) {
	query := `SELECT ` + saleColumns + ` FROM sales ORDER BY date DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, s.dialect.bind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sales := make([]domain.Sale, 0, 32)
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		sales = append(sales, *sale)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sales, nil
}

func (s *Store) ListSaleDetails(ctx context.Context, saleID int64) ([]domain.SaleDetail, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, s.dialect.bind(`SELECT COUNT(*) FROM sales WHERE id = ?`), saleID).Scan(&exists)
	if err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, store.ErrNotFound
	}
	return s.listDetails(ctx, saleID)
}

func (s *Store) listDetails(ctx context.Context, saleID int64) ([]domain.SaleDetail, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.bind(`
		SELECT sd.id, sd.sale_id, sd.product_id,
			COALESCE(NULLIF(sd.description, ''), p.name, ''),
			sd.quantity, sd.unit_price
		FROM sale_details sd
		LEFT JOIN products p ON p.id = sd.product_id
		WHERE sd.sale_id = ?
		ORDER BY sd.id
	`), saleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	details := make([]domain.SaleDetail, 0, 8)
	for rows.Next() {
		var (
			d         domain.SaleDetail
			productID sql.NullInt64
		)
		if err := rows.Scan(&d.ID, &d.SaleID, &productID, &d.Description, &d.Quantity, &d.UnitPrice); err != nil {
			return nil, err
		}
		if productID.Valid {
			id := productID.Int64
			d.ProductID = &id
		}
		d.UnitPrice = d.UnitPrice.Round(2)
		d.Subtotal = d.LineTotal()
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return details, nil
}

func (s *Store) CancelSale(ctx context.Context, id int64, reason string, at time.Time) (*domain.Sale, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = domain.DefaultCancellationReason
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var status string
	err = tx.QueryRowContext(ctx, s.dialect.bind(`
		SELECT status FROM sales WHERE id = ?`+s.dialect.forUpdate()), id).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if status == domain.SaleStatusCancelled {
		return nil, store.ErrSaleCancelled
	}

	rows, err := tx.QueryContext(ctx, s.dialect.bind(`
		SELECT sd.product_id, sd.quantity, p.barcode
		FROM sale_details sd
		JOIN products p ON p.id = sd.product_id
		WHERE sd.sale_id = ?
	`), id)
	if err != nil {
		return nil, err
	}
	restock := make([]domain.StockAdjustment, 0, 8)
	for rows.Next() {
		var adj domain.StockAdjustment
		if err := rows.Scan(&adj.ProductID, &adj.Qty, &adj.Barcode); err != nil {
			_ = rows.Close()
			return nil, err
		}
		if domain.IsMiscBarcode(adj.Barcode) {
			continue
		}
		restock = append(restock, adj)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	for _, adj := range restock {
		_, err := tx.ExecContext(ctx, s.dialect.bind(`
			UPDATE products SET stock = stock + ? WHERE id = ?
		`), adj.Qty, adj.ProductID)
		if err != nil {
			return nil, fmt.Errorf("restock product %d: %w", adj.ProductID, err)
		}
	}

	res, err := tx.ExecContext(ctx, s.dialect.bind(`
		UPDATE sales
		SET status = ?, cancelled_at = ?, cancellation_reason = ?
		WHERE id = ? AND status = ?
	`), domain.SaleStatusCancelled, at.UTC(), reason, id, domain.SaleStatusActive)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrSaleCancelled
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return s.GetSale(ctx, id)
}

func (s *Store) SalesSummary(ctx context.Context) (domain.SalesSummary, error) {
	summary := domain.SalesSummary{}
	err := s.db.QueryRowContext(ctx, s.dialect.bind(`
		SELECT
			COALESCE(SUM(CASE WHEN status = ? THEN total ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0)
		FROM sales
	`), domain.SaleStatusActive, domain.SaleStatusActive, domain.SaleStatusCancelled).
		Scan(&summary.TotalSales, &summary.ActiveCount, &summary.CancelledCount)
	if err != nil {
		return domain.SalesSummary{}, err
	}
	summary.TotalSales = summary.TotalSales.Round(2)

	err = s.db.QueryRowContext(ctx, s.dialect.bind(`
		SELECT total FROM sales
		WHERE status = ?
		ORDER BY date DESC, id DESC
		LIMIT 1
	`), domain.SaleStatusActive).Scan(&summary.LastSaleTotal)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		summary.LastSaleTotal = decimal.Zero
	case err != nil:
		return domain.SalesSummary{}, err
	}
	summary.LastSaleTotal = summary.LastSaleTotal.Round(2)
	return summary, nil
}

func (s *Store) TopSellers(ctx context.Context, limit int) ([]domain.TopSeller, error) {
	if limit < 1 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, s.dialect.bind(`
		SELECT COALESCE(p.name, NULLIF(sd.description, ''), '') AS item_name,
			SUM(sd.quantity) AS qty,
			SUM(sd.quantity * sd.unit_price) AS amount
		FROM sale_details sd
		JOIN sales s ON s.id = sd.sale_id
		LEFT JOIN products p ON p.id = sd.product_id
		WHERE s.status = ?
		GROUP BY COALESCE(p.name, NULLIF(sd.description, ''), '')
		ORDER BY qty DESC, item_name ASC
		LIMIT ?
	`), domain.SaleStatusActive, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]domain.TopSeller, 0, limit)
	for rows.Next() {
		var t domain.TopSeller
		if err := rows.Scan(&t.Name, &t.Quantity, &t.Amount); err != nil {
			return nil, err
		}
		t.Amount = t.Amount.Round(2)
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSale(row rowScanner) (*domain.Sale, error) {
	var (
		sale        domain.Sale
		cancelledAt sql.NullTime
		reason      sql.NullString
	)
	if err := row.Scan(&sale.ID, &sale.Date, &sale.Total, &sale.Paid, &sale.Change, &sale.Status, &cancelledAt, &reason); err != nil {
		return nil, err
	}
	sale.Date = sale.Date.UTC()
	sale.Total = sale.Total.Round(2)
	sale.Paid = sale.Paid.Round(2)
	sale.Change = sale.Change.Round(2)
	if cancelledAt.Valid {
		at := cancelledAt.Time.UTC()
		sale.CancelledAt = &at
	}
	sale.CancellationReason = reason.String
	return &sale, nil
}
