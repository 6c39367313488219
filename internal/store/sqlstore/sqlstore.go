package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"appstock/backend/internal/domain"
	"appstock/backend/internal/store"
)

// Store is a store.Repository over database/sql. The same queries serve
// SQLite, PostgreSQL and MySQL; dialect differences live in dialect.go.
type Store struct {
	db      *sql.DB
	dialect dialect
}

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func Open(ctx context.Context, driver string, dsn string) (*Store, error) {
	d, err := lookupDialect(driver)
	if err != nil {
		return nil, err
	}
	dsn, err = d.prepareDSN(dsn)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(d.driverName, dsn)
	if err != nil {
		return nil, err
	}
	d.configurePool(db)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{db: db, dialect: d}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	for _, stmt := range s.dialect.setup {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%s setup: %w", s.dialect.name, err)
		}
	}
	for _, stmt := range s.dialect.schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%s schema: %w", s.dialect.name, err)
		}
	}
	return nil
}

func (s *Store) Driver() string {
	return s.dialect.name
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) insert(ctx context.Context, q queryer, query string, args ...any) (int64, error) {
	if s.dialect.returning {
		var id int64
		err := q.QueryRowContext(ctx, s.dialect.bind(query+" RETURNING id"), args...).Scan(&id)
		return id, err
	}
	res, err := q.ExecContext(ctx, s.dialect.bind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.bind(`
		SELECT id, barcode, name, price, stock
		FROM products
		ORDER BY id
	`))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 64)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Barcode, &p.Name, &p.Price, &p.Stock); err != nil {
			return nil, err
		}
		p.Price = p.Price.Round(2)
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) GetProductByID(ctx context.Context, id int64) (*domain.Product, error) {
	return s.getProduct(ctx, s.db, "id = ?", id)
}

func (s *Store) GetProductByBarcode(ctx context.Context, barcode string) (*domain.Product, error) {
	return s.getProduct(ctx, s.db, "barcode = ?", barcode)
}

func (s *Store) getProduct(ctx context.Context, q queryer, where string, arg any) (*domain.Product, error) {
	var p domain.Product
	err := q.QueryRowContext(ctx, s.dialect.bind(`
		SELECT id, barcode, name, price, stock
		FROM products
		WHERE `+where), arg).Scan(&p.ID, &p.Barcode, &p.Name, &p.Price, &p.Stock)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	p.Price = p.Price.Round(2)
	return &p, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if err := checkProduct(product); err != nil {
		return nil, err
	}
	product.Price = product.Price.Round(2)

	id, err := s.insert(ctx, s.db, `
		INSERT INTO products (barcode, name, price, stock)
		VALUES (?, ?, ?, ?)
	`, product.Barcode, product.Name, product.Price, product.Stock)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicateBarcode
		}
		return nil, err
	}

	product.ID = id
	return &product, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if err := checkProduct(product); err != nil {
		return nil, err
	}
	product.Price = product.Price.Round(2)

	res, err := s.db.ExecContext(ctx, s.dialect.bind(`
		UPDATE products
		SET barcode = ?, name = ?, price = ?, stock = ?
		WHERE id = ?
	`), product.Barcode, product.Name, product.Price, product.Stock, product.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicateBarcode
		}
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	// MySQL reports zero affected rows when nothing changed, so confirm the
	// row is really missing before failing.
	if affected == 0 {
		if _, err := s.GetProductByID(ctx, product.ID); err != nil {
			return nil, err
		}
	}
	return &product, nil
}

func (s *Store) DeleteProduct(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := s.getProduct(ctx, tx, "id = ?"+s.dialect.forUpdate(), id); err != nil {
		return err
	}

	var refs int
	err = tx.QueryRowContext(ctx, s.dialect.bind(`
		SELECT COUNT(*) FROM sale_details WHERE product_id = ?
	`), id).Scan(&refs)
	if err != nil {
		return err
	}
	if refs > 0 {
		return store.ErrProductInUse
	}

	if _, err := tx.ExecContext(ctx, s.dialect.bind(`DELETE FROM products WHERE id = ?`), id); err != nil {
		return err
	}
	return tx.Commit()
}

func checkProduct(p domain.Product) error {
	if p.Barcode == "" || p.Name == "" {
		return fmt.Errorf("%w: barcode and name are required", store.ErrInvalidInput)
	}
	if p.Stock < 0 || p.Price.IsNegative() {
		return fmt.Errorf("%w: price and stock must not be negative", store.ErrInvalidInput)
	}
	return nil
}
