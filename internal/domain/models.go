package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	SaleStatusActive    = "active"
	SaleStatusCancelled = "cancelled"

	// MiscDisplayBarcode is shown on cart lines for goods outside the catalog.
	MiscDisplayBarcode = "VARIOS"
	// legacyMiscPrefix marks placeholder products created for ad-hoc lines
	// before sale details could carry a null product reference.
	legacyMiscPrefix = "VAR"

	DefaultCancellationReason = "unspecified"
	LowStockThreshold         = 10
)

type Product struct {
	ID      int64           `json:"id"`
	Barcode string          `json:"barcode"`
	Name    string          `json:"name"`
	Price   decimal.Decimal `json:"price"`
	Stock   int             `json:"stock"`
}

// IsMiscBarcode reports whether a product barcode belongs to an ad-hoc
// placeholder rather than a real catalog item.
func IsMiscBarcode(barcode string) bool {
	return strings.HasPrefix(strings.ToUpper(strings.TrimSpace(barcode)), legacyMiscPrefix)
}

// ProductForm carries the raw operator input; numbers arrive as typed text.
type ProductForm struct {
	Barcode string `json:"barcode"`
	Name    string `json:"name"`
	Price   string `json:"price"`
	Stock   string `json:"stock"`
}

type Sale struct {
	ID                 int64           `json:"id"`
	Date               time.Time       `json:"date"`
	Total              decimal.Decimal `json:"total"`
	Paid               decimal.Decimal `json:"paid"`
	Change             decimal.Decimal `json:"change"`
	Status             string          `json:"status"`
	CancelledAt        *time.Time      `json:"cancelled_at,omitempty"`
	CancellationReason string          `json:"cancellation_reason,omitempty"`
	Details            []SaleDetail    `json:"details,omitempty"`
}

func (s Sale) Cancelled() bool {
	return s.Status == SaleStatusCancelled
}

type SaleDetail struct {
	ID          int64           `json:"id"`
	SaleID      int64           `json:"sale_id"`
	ProductID   *int64          `json:"product_id,omitempty"`
	Description string          `json:"description"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

func (d SaleDetail) LineTotal() decimal.Decimal {
	return d.UnitPrice.Mul(decimal.NewFromInt(int64(d.Quantity)))
}

// StockAdjustment is a per-product quantity moved in or out of stock.
type StockAdjustment struct {
	ProductID int64  `json:"product_id"`
	Barcode   string `json:"barcode"`
	Qty       int    `json:"qty"`
}

type CartLine struct {
	ID        string          `json:"id"`
	ProductID int64           `json:"product_id,omitempty"`
	Barcode   string          `json:"barcode"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Misc      bool            `json:"misc"`
}

type CartView struct {
	Lines     []CartLine      `json:"lines"`
	ItemCount int             `json:"item_count"`
	Total     decimal.Decimal `json:"total"`
}

type AddItemRequest struct {
	Barcode string `json:"barcode"`
	Qty     int    `json:"qty"`
}

type AddMiscItemRequest struct {
	Name  string `json:"name"`
	Price string `json:"price"`
	Qty   int    `json:"qty"`
}

type UpdateItemRequest struct {
	Qty int `json:"qty"`
}

type ConfirmSaleRequest struct {
	Paid decimal.Decimal `json:"paid"`
}

type CancelSaleRequest struct {
	Reason string `json:"reason"`
}

type TicketRequest struct {
	Print bool `json:"print"`
}

type SalesSummary struct {
	TotalSales     decimal.Decimal `json:"total_sales"`
	LastSaleTotal  decimal.Decimal `json:"last_sale_total"`
	ActiveCount    int             `json:"active_count"`
	CancelledCount int             `json:"cancelled_count"`
}

type TopSeller struct {
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Amount   decimal.Decimal `json:"amount"`
}

type ReportSummary struct {
	Summary     SalesSummary `json:"summary"`
	RecentSales []Sale       `json:"recent_sales"`
	TopSellers  []TopSeller  `json:"top_sellers"`
	GeneratedAt time.Time    `json:"generated_at"`
}

type ExportResult struct {
	Path    string `json:"path"`
	Printed bool   `json:"printed,omitempty"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

// SampleProducts is the demo catalog loaded on request into an empty store.
func SampleProducts() []Product {
	return []Product{
		{Barcode: "7750001000011", Name: "Caldo", Price: decimal.RequireFromString("1.50"), Stock: 40},
		{Barcode: "7750001000028", Name: "Pan", Price: decimal.RequireFromString("2.00"), Stock: 25},
		{Barcode: "7750001000035", Name: "Jugo", Price: decimal.RequireFromString("1.00"), Stock: 50},
		{Barcode: "7750001000042", Name: "Galletas", Price: decimal.RequireFromString("3.00"), Stock: 30},
	}
}
