package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"appstock/backend/internal/domain"
	"appstock/backend/internal/store"
)

type Store struct {
	mu            sync.RWMutex
	products      map[int64]domain.Product
	barcodeIndex  map[string]int64
	sales         map[int64]*domain.Sale
	nextProductID int64
	nextSaleID    int64
	nextDetailID  int64
}

func New() *Store {
	return &Store{
		products:     make(map[int64]domain.Product),
		barcodeIndex: make(map[string]int64),
		sales:        make(map[int64]*domain.Sale),
	}
}

func NewSeeded() *Store {
	s := New()
	for _, p := range domain.SampleProducts() {
		if _, err := s.CreateProduct(context.Background(), p); err != nil {
			panic(fmt.Sprintf("memory store seed: %v", err))
		}
	}
	return s
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		result = append(result, p)
	}
	slices.SortFunc(result, func(a, b domain.Product) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return result, nil
}

func (s *Store) GetProductByID(_ context.Context, id int64) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (s *Store) GetProductByBarcode(_ context.Context, barcode string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.barcodeIndex[barcode]
	if !ok {
		return nil, store.ErrNotFound
	}
	p := s.products[id]
	return &p, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	if err := checkProduct(product); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.barcodeIndex[product.Barcode]; exists {
		return nil, store.ErrDuplicateBarcode
	}
	s.nextProductID++
	product.ID = s.nextProductID
	product.Price = product.Price.Round(2)
	s.products[product.ID] = product
	s.barcodeIndex[product.Barcode] = product.ID

	created := product
	return &created, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	if err := checkProduct(product); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.products[product.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if owner, exists := s.barcodeIndex[product.Barcode]; exists && owner != product.ID {
		return nil, store.ErrDuplicateBarcode
	}
	delete(s.barcodeIndex, current.Barcode)
	product.Price = product.Price.Round(2)
	s.products[product.ID] = product
	s.barcodeIndex[product.Barcode] = product.ID

	updated := product
	return &updated, nil
}

func (s *Store) DeleteProduct(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return store.ErrNotFound
	}
	for _, sale := range s.sales {
		for _, d := range sale.Details {
			if d.ProductID != nil && *d.ProductID == id {
				return store.ErrProductInUse
			}
		}
	}
	delete(s.products, id)
	delete(s.barcodeIndex, p.Barcode)
	return nil
}

func (s *Store) CreateSale(_ context.Context, sale domain.Sale, adjustments []domain.StockAdjustment) (*domain.Sale, error) {
	if len(sale.Details) == 0 {
		return nil, fmt.Errorf("%w: sale has no lines", store.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Check everything before touching state so a failure leaves no trace.
	for _, d := range sale.Details {
		if d.Quantity < 1 {
			return nil, fmt.Errorf("%w: quantity must be positive", store.ErrInvalidInput)
		}
		if d.ProductID != nil {
			if _, ok := s.products[*d.ProductID]; !ok {
				return nil, fmt.Errorf("product %d: %w", *d.ProductID, store.ErrNotFound)
			}
		}
	}
	for _, adj := range adjustments {
		p, ok := s.products[adj.ProductID]
		if !ok {
			return nil, fmt.Errorf("product %d: %w", adj.ProductID, store.ErrNotFound)
		}
		if adj.Qty < 0 || p.Stock < adj.Qty {
			return nil, fmt.Errorf("%s: %w", p.Name, store.ErrInsufficientStock)
		}
	}

	for _, adj := range adjustments {
		p := s.products[adj.ProductID]
		p.Stock -= adj.Qty
		s.products[adj.ProductID] = p
	}

	s.nextSaleID++
	sale.ID = s.nextSaleID
	if sale.Date.IsZero() {
		sale.Date = time.Now().UTC()
	}
	if sale.Status == "" {
		sale.Status = domain.SaleStatusActive
	}
	details := make([]domain.SaleDetail, len(sale.Details))
	for i, d := range sale.Details {
		s.nextDetailID++
		d.ID = s.nextDetailID
		d.SaleID = sale.ID
		d.Subtotal = d.LineTotal()
		details[i] = d
	}
	sale.Details = details

	saved := cloneSale(&sale)
	s.sales[sale.ID] = saved
	return cloneSale(saved), nil
}

func (s *Store) GetSale(_ context.Context, id int64) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sale, ok := s.sales[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneSale(sale), nil
}

func (s *Store) ListSales(_ context.Context, limit int) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Sale, 0, len(s.sales))
	for _, sale := range s.sales {
		header := *sale
		header.Details = nil
		result = append(result, header)
	}
	slices.SortFunc(result, compareSaleNewestFirst)
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) ListSaleDetails(_ context.Context, saleID int64) ([]domain.SaleDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sale, ok := s.sales[saleID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneSale(sale).Details, nil
}

func (s *Store) CancelSale(_ context.Context, id int64, reason string, at time.Time) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sale, ok := s.sales[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if sale.Cancelled() {
		return nil, store.ErrSaleCancelled
	}

	for _, d := range sale.Details {
		if d.ProductID == nil {
			continue
		}
		p, ok := s.products[*d.ProductID]
		if !ok || domain.IsMiscBarcode(p.Barcode) {
			continue
		}
		p.Stock += d.Quantity
		s.products[p.ID] = p
	}

	if strings.TrimSpace(reason) == "" {
		reason = domain.DefaultCancellationReason
	}
	at = at.UTC()
	sale.Status = domain.SaleStatusCancelled
	sale.CancelledAt = &at
	sale.CancellationReason = reason
	return cloneSale(sale), nil
}

func (s *Store) SalesSummary(_ context.Context) (domain.SalesSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary := domain.SalesSummary{TotalSales: decimal.Zero, LastSaleTotal: decimal.Zero}
	var last *domain.Sale
	for _, sale := range s.sales {
		if sale.Cancelled() {
			summary.CancelledCount++
			continue
		}
		summary.ActiveCount++
		summary.TotalSales = summary.TotalSales.Add(sale.Total)
		if last == nil || compareSaleNewestFirst(*sale, *last) < 0 {
			last = sale
		}
	}
	if last != nil {
		summary.LastSaleTotal = last.Total
	}
	return summary, nil
}

func (s *Store) TopSellers(_ context.Context, limit int) ([]domain.TopSeller, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byName := make(map[string]*domain.TopSeller)
	for _, sale := range s.sales {
		if sale.Cancelled() {
			continue
		}
		for _, d := range sale.Details {
			name := d.Description
			if d.ProductID != nil {
				if p, ok := s.products[*d.ProductID]; ok {
					name = p.Name
				}
			}
			entry, ok := byName[name]
			if !ok {
				entry = &domain.TopSeller{Name: name, Amount: decimal.Zero}
				byName[name] = entry
			}
			entry.Quantity += d.Quantity
			entry.Amount = entry.Amount.Add(d.LineTotal())
		}
	}

	result := make([]domain.TopSeller, 0, len(byName))
	for _, entry := range byName {
		result = append(result, *entry)
	}
	slices.SortFunc(result, func(a, b domain.TopSeller) int {
		if a.Quantity != b.Quantity {
			return cmp.Compare(b.Quantity, a.Quantity)
		}
		return cmp.Compare(a.Name, b.Name)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func checkProduct(p domain.Product) error {
	if strings.TrimSpace(p.Barcode) == "" || strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: barcode and name are required", store.ErrInvalidInput)
	}
	if p.Stock < 0 || p.Price.IsNegative() {
		return fmt.Errorf("%w: price and stock must not be negative", store.ErrInvalidInput)
	}
	return nil
}

func compareSaleNewestFirst(a, b domain.Sale) int {
	if !a.Date.Equal(b.Date) {
		if a.Date.After(b.Date) {
			return -1
		}
		return 1
	}
	return cmp.Compare(b.ID, a.ID)
}

func cloneSale(src *domain.Sale) *domain.Sale {
	dup := *src
	if src.CancelledAt != nil {
		at := *src.CancelledAt
		dup.CancelledAt = &at
	}
	dup.Details = make([]domain.SaleDetail, len(src.Details))
	for i, d := range src.Details {
		if d.ProductID != nil {
			id := *d.ProductID
			d.ProductID = &id
		}
		dup.Details[i] = d
	}
	return &dup
}
