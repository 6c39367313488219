package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"appstock/backend/internal/cache"
	"appstock/backend/internal/cart"
	"appstock/backend/internal/domain"
	"appstock/backend/internal/export"
	"appstock/backend/internal/store"
)

const (
	maxBarcodeLength = 64
	maxNameLength    = 255
)

// DECIMAL(10,2) upper bound.
var maxPrice = decimal.RequireFromString("99999999.99")

var ErrExportsDisabled = errors.New("exports are not configured")

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

// Service coordinates the catalog, the sale in progress, reporting and
// document export. There is one cart per process.
type Service struct {
	repo     store.Repository
	reports  cache.ReportCache
	cacheTTL time.Duration
	exporter *export.Exporter
	now      func() time.Time

	mu   sync.Mutex
	cart *cart.Cart
}

func New(repo store.Repository, reports cache.ReportCache, cacheTTL time.Duration, exporter *export.Exporter) *Service {
	if reports == nil {
		reports = cache.NoopReportCache{}
	}
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Second
	}
	return &Service{
		repo:     repo,
		reports:  reports,
		cacheTTL: cacheTTL,
		exporter: exporter,
		now:      time.Now,
		cart:     cart.New(),
	}
}

func (s *Service) ListProducts(ctx context.Context, query string) ([]domain.Product, error) {
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return products, nil
	}
	filtered := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if strings.Contains(strings.ToLower(p.Name), query) || strings.Contains(strings.ToLower(p.Barcode), query) {
			filtered = append(filtered, p)
		}
	}
	return filtered, nil
}

func (s *Service) GetProductByBarcode(ctx context.Context, barcode string) (domain.Product, error) {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return domain.Product{}, fmt.Errorf("%w: barcode is required", store.ErrInvalidInput)
	}
	p, err := s.repo.GetProductByBarcode(ctx, barcode)
	if err != nil {
		return domain.Product{}, fmt.Errorf("product %s: %w", barcode, err)
	}
	return *p, nil
}

func (s *Service) CreateProduct(ctx context.Context, form domain.ProductForm) (domain.Product, error) {
	product, err := parseProductForm(form)
	if err != nil {
		return domain.Product{}, err
	}
	if _, err := s.repo.GetProductByBarcode(ctx, product.Barcode); err == nil {
		return domain.Product{}, fmt.Errorf("%w: %s", store.ErrDuplicateBarcode, product.Barcode)
	} else if !errors.Is(err, store.ErrNotFound) {
		return domain.Product{}, err
	}

	created, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		return domain.Product{}, err
	}
	s.logAudit(ctx, "create_product", "product", created.ID, created.Barcode)
	s.invalidateReports(ctx)
	return *created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id int64, form domain.ProductForm) (domain.Product, error) {
	product, err := parseProductForm(form)
	if err != nil {
		return domain.Product{}, err
	}
	if _, err := s.repo.GetProductByID(ctx, id); err != nil {
		return domain.Product{}, fmt.Errorf("product %d: %w", id, err)
	}
	if existing, err := s.repo.GetProductByBarcode(ctx, product.Barcode); err == nil && existing.ID != id {
		return domain.Product{}, fmt.Errorf("%w: %s", store.ErrDuplicateBarcode, product.Barcode)
	} else if err != nil && !errors.Is(err, store.ErrNotFound) {
		return domain.Product{}, err
	}

	product.ID = id
	updated, err := s.repo.UpdateProduct(ctx, product)
	if err != nil {
		return domain.Product{}, err
	}
	s.logAudit(ctx, "update_product", "product", updated.ID, updated.Barcode)
	s.invalidateReports(ctx)
	return *updated, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		return fmt.Errorf("product %d: %w", id, err)
	}
	s.logAudit(ctx, "delete_product", "product", id, "")
	s.invalidateReports(ctx)
	return nil
}

// SeedSampleProducts adds the demo catalog entries that are not present yet
// and reports how many were created.
func (s *Service) SeedSampleProducts(ctx context.Context) (int, error) {
	created := 0
	for _, p := range domain.SampleProducts() {
		_, err := s.repo.GetProductByBarcode(ctx, p.Barcode)
		if err == nil {
			continue
		}
		if !errors.Is(err, store.ErrNotFound) {
			return created, err
		}
		if _, err := s.repo.CreateProduct(ctx, p); err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}

func parseProductForm(form domain.ProductForm) (domain.Product, error) {
	barcode := strings.TrimSpace(form.Barcode)
	name := strings.TrimSpace(form.Name)
	priceText := strings.TrimSpace(form.Price)
	stockText := strings.TrimSpace(form.Stock)

	if barcode == "" || name == "" || priceText == "" || stockText == "" {
		return domain.Product{}, fmt.Errorf("%w: all fields are required", store.ErrInvalidInput)
	}
	if len(barcode) > maxBarcodeLength || strings.ContainsAny(barcode, " \t\r\n") {
		return domain.Product{}, fmt.Errorf("%w: barcode must be at most %d characters without spaces", store.ErrInvalidInput, maxBarcodeLength)
	}
	if domain.IsMiscBarcode(barcode) {
		return domain.Product{}, fmt.Errorf("%w: barcodes starting with VAR are reserved", store.ErrInvalidInput)
	}
	if len([]rune(name)) > maxNameLength {
		return domain.Product{}, fmt.Errorf("%w: name must be at most %d characters", store.ErrInvalidInput, maxNameLength)
	}

	price, err := parsePrice(priceText)
	if err != nil {
		return domain.Product{}, err
	}
	stock, err := strconv.Atoi(stockText)
	if err != nil {
		return domain.Product{}, fmt.Errorf("%w: stock must be a whole number", store.ErrInvalidInput)
	}
	if stock < 0 {
		return domain.Product{}, fmt.Errorf("%w: stock cannot be negative", store.ErrInvalidInput)
	}

	return domain.Product{Barcode: barcode, Name: name, Price: price, Stock: stock}, nil
}

func parsePrice(text string) (decimal.Decimal, error) {
	price, err := decimal.NewFromString(strings.TrimSpace(text))
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: price must be a number", store.ErrInvalidInput)
	}
	if !price.IsPositive() {
		return decimal.Decimal{}, fmt.Errorf("%w: price must be greater than zero", store.ErrInvalidInput)
	}
	if price.GreaterThan(maxPrice) {
		return decimal.Decimal{}, fmt.Errorf("%w: price is too large", store.ErrInvalidInput)
	}
	return price.Round(2), nil
}

func (s *Service) invalidateReports(ctx context.Context) {
	if err := s.reports.Invalidate(ctx, cache.ReportSummaryKey); err != nil {
		zap.L().Warn("report cache invalidation failed", zap.Error(err))
	}
}

func (s *Service) logAudit(ctx context.Context, action string, entityType string, entityID int64, detail string) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system", Role: "system"}
	}
	zap.L().Info("audit",
		zap.String("action", action),
		zap.String("entity_type", entityType),
		zap.Int64("entity_id", entityID),
		zap.String("actor", actor.Username),
		zap.String("role", actor.Role),
		zap.String("detail", detail),
	)
}
