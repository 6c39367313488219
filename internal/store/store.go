package store

import (
	"context"
	"errors"
	"time"

	"appstock/backend/internal/domain"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrDuplicateBarcode  = errors.New("barcode already exists")
	ErrProductInUse      = errors.New("product is referenced by sales")
	ErrSaleCancelled     = errors.New("sale already cancelled")
)

type Repository interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProductByID(ctx context.Context, id int64) (*domain.Product, error)
	GetProductByBarcode(ctx context.Context, barcode string) (*domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id int64) error

	// CreateSale stores the header and its details and takes the adjustments
	// out of stock in a single unit of work.
	CreateSale(ctx context.Context, sale domain.Sale, adjustments []domain.StockAdjustment) (*domain.Sale, error)
	GetSale(ctx context.Context, id int64) (*domain.Sale, error)
	ListSales(ctx context.Context, limit int) ([]domain.Sale, error)
	ListSaleDetails(ctx context.Context, saleID int64) ([]domain.SaleDetail, error)
	CancelSale(ctx context.Context, id int64, reason string, at time.Time) (*domain.Sale, error)

	SalesSummary(ctx context.Context) (domain.SalesSummary, error)
	TopSellers(ctx context.Context, limit int) ([]domain.TopSeller, error)
}
