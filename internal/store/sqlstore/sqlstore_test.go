package sqlstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"appstock/backend/internal/domain"
	"appstock/backend/internal/store"
)

func newSQLiteStore(t *testing.T) *Store {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "appstock.db")
	s, err := Open(context.Background(), DriverSQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// storesUnderTest returns the SQLite store plus any networked database whose
// DSN is provided through the environment.
func storesUnderTest(t *testing.T) map[string]*Store {
	t.Helper()
	stores := map[string]*Store{DriverSQLite: newSQLiteStore(t)}
	for driver, env := range map[string]string{
		DriverPostgres: "APPSTOCK_TEST_POSTGRES_URL",
		DriverMySQL:    "APPSTOCK_TEST_MYSQL_URL",
	} {
		dsn := os.Getenv(env)
		if dsn == "" {
			continue
		}
		s, err := Open(context.Background(), driver, dsn)
		require.NoError(t, err, driver)
		t.Cleanup(func() { _ = s.Close() })
		stores[driver] = s
	}
	return stores
}

func uniqueBarcode(prefix string) string {
	return prefix + time.Now().UTC().Format("150405.000000000")
}

func mustCreate(t *testing.T, s *Store, barcode string, name string, price string, stock int) *domain.Product {
	t.Helper()
	p, err := s.CreateProduct(context.Background(), domain.Product{
		Barcode: barcode,
		Name:    name,
		Price:   decimal.RequireFromString(price),
		Stock:   stock,
	})
	require.NoError(t, err)
	return p
}

func TestProductRoundTripByBarcode(t *testing.T) {
	for driver, s := range storesUnderTest(t) {
		t.Run(driver, func(t *testing.T) {
			ctx := context.Background()
			barcode := uniqueBarcode("775")
			created := mustCreate(t, s, barcode, "Caldo", "1.50", 40)
			require.NotZero(t, created.ID)

			got, err := s.GetProductByBarcode(ctx, barcode)
			require.NoError(t, err)
			assert.Equal(t, barcode, got.Barcode)
			assert.Equal(t, "Caldo", got.Name)
			assert.True(t, got.Price.Equal(decimal.RequireFromString("1.50")), "price %s", got.Price)
			assert.Equal(t, 40, got.Stock)

			_, err = s.GetProductByBarcode(ctx, barcode+"x")
			assert.ErrorIs(t, err, store.ErrNotFound)
		})
	}
}

func TestCreateProductRejectsDuplicateBarcode(t *testing.T) {
	s := newSQLiteStore(t)
	mustCreate(t, s, "1000", "Pan", "2.00", 5)

	_, err := s.CreateProduct(context.Background(), domain.Product{
		Barcode: "1000",
		Name:    "Pan integral",
		Price:   decimal.RequireFromString("2.50"),
	})
	assert.ErrorIs(t, err, store.ErrDuplicateBarcode)
}

func TestUpdateProduct(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()
	a := mustCreate(t, s, "2000", "Jugo", "1.00", 10)
	mustCreate(t, s, "2001", "Galletas", "3.00", 10)

	a.Name = "Jugo de naranja"
	a.Price = decimal.RequireFromString("1.25")
	_, err := s.UpdateProduct(ctx, *a)
	require.NoError(t, err)

	got, err := s.GetProductByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jugo de naranja", got.Name)
	assert.True(t, got.Price.Equal(decimal.RequireFromString("1.25")))

	a.Barcode = "2001"
	_, err = s.UpdateProduct(ctx, *a)
	assert.ErrorIs(t, err, store.ErrDuplicateBarcode)

	_, err = s.UpdateProduct(ctx, domain.Product{ID: 9999, Barcode: "x", Name: "x"})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCreateSalePersistsHeaderDetailsAndStock(t *testing.T) {
	for driver, s := range storesUnderTest(t) {
		t.Run(driver, func(t *testing.T) {
			ctx := context.Background()
			p := mustCreate(t, s, uniqueBarcode("30"), "Leche", "10.00", 5)

			sale, err := s.CreateSale(ctx, domain.Sale{
				Total:  decimal.RequireFromString("20.00"),
				Paid:   decimal.RequireFromString("50.00"),
				Change: decimal.RequireFromString("30.00"),
				Details: []domain.SaleDetail{
					{ProductID: &p.ID, Description: p.Name, Quantity: 2, UnitPrice: p.Price},
				},
			}, []domain.StockAdjustment{{ProductID: p.ID, Barcode: p.Barcode, Qty: 2}})
			require.NoError(t, err)
			require.NotZero(t, sale.ID)

			got, err := s.GetSale(ctx, sale.ID)
			require.NoError(t, err)
			assert.True(t, got.Total.Equal(decimal.RequireFromString("20.00")), "total %s", got.Total)
			assert.Equal(t, domain.SaleStatusActive, got.Status)
			require.Len(t, got.Details, 1)
			assert.Equal(t, 2, got.Details[0].Quantity)
			assert.True(t, got.Details[0].UnitPrice.Equal(decimal.RequireFromString("10.00")))
			assert.True(t, got.Details[0].Subtotal.Equal(decimal.RequireFromString("20.00")))

			after, err := s.GetProductByID(ctx, p.ID)
			require.NoError(t, err)
			assert.Equal(t, 3, after.Stock)
		})
	}
}

func TestCreateSaleRollsBackOnInsufficientStock(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()
	p := mustCreate(t, s, "4000", "Arroz", "4.00", 1)

	_, err := s.CreateSale(ctx, domain.Sale{
		Total: decimal.RequireFromString("8.00"),
		Paid:  decimal.RequireFromString("8.00"),
		Details: []domain.SaleDetail{
			{ProductID: &p.ID, Description: p.Name, Quantity: 2, UnitPrice: p.Price},
		},
	}, []domain.StockAdjustment{{ProductID: p.ID, Qty: 2}})
	require.ErrorIs(t, err, store.ErrInsufficientStock)

	sales, err := s.ListSales(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, sales)

	after, err := s.GetProductByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, after.Stock)
}

func TestCancelSaleRestocksCatalogLinesOnly(t *testing.T) {
	for driver, s := range storesUnderTest(t) {
		t.Run(driver, func(t *testing.T) {
			ctx := context.Background()
			a := mustCreate(t, s, uniqueBarcode("50"), "Producto A", "5.00", 10)
			legacy := mustCreate(t, s, uniqueBarcode("VAR-"), "Bolsa", "0.50", 0)

			sale, err := s.CreateSale(ctx, domain.Sale{
				Total: decimal.RequireFromString("12.50"),
				Paid:  decimal.RequireFromString("20.00"),
				Details: []domain.SaleDetail{
					{ProductID: &a.ID, Description: a.Name, Quantity: 2, UnitPrice: a.Price},
					{Description: "Servicio", Quantity: 1, UnitPrice: decimal.RequireFromString("2.00")},
					{ProductID: &legacy.ID, Description: legacy.Name, Quantity: 1, UnitPrice: legacy.Price},
				},
			}, []domain.StockAdjustment{{ProductID: a.ID, Qty: 2}})
			require.NoError(t, err)

			cancelled, err := s.CancelSale(ctx, sale.ID, "", time.Now())
			require.NoError(t, err)
			assert.Equal(t, domain.SaleStatusCancelled, cancelled.Status)
			assert.Equal(t, domain.DefaultCancellationReason, cancelled.CancellationReason)
			require.NotNil(t, cancelled.CancelledAt)

			gotA, err := s.GetProductByID(ctx, a.ID)
			require.NoError(t, err)
			assert.Equal(t, 10, gotA.Stock)
			gotLegacy, err := s.GetProductByID(ctx, legacy.ID)
			require.NoError(t, err)
			assert.Equal(t, 0, gotLegacy.Stock)

			_, err = s.CancelSale(ctx, sale.ID, "again", time.Now())
			assert.ErrorIs(t, err, store.ErrSaleCancelled)
			gotA, err = s.GetProductByID(ctx, a.ID)
			require.NoError(t, err)
			assert.Equal(t, 10, gotA.Stock)

			_, err = s.CancelSale(ctx, sale.ID+100000, "missing", time.Now())
			assert.ErrorIs(t, err, store.ErrNotFound)
		})
	}
}

func TestDeleteProductReferencedBySale(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()
	sold := mustCreate(t, s, "6000", "Vendido", "1.00", 5)
	unsold := mustCreate(t, s, "6001", "Nuevo", "1.00", 5)

	_, err := s.CreateSale(ctx, domain.Sale{
		Total: decimal.RequireFromString("1.00"),
		Paid:  decimal.RequireFromString("1.00"),
		Details: []domain.SaleDetail{
			{ProductID: &sold.ID, Description: sold.Name, Quantity: 1, UnitPrice: sold.Price},
		},
	}, []domain.StockAdjustment{{ProductID: sold.ID, Qty: 1}})
	require.NoError(t, err)

	assert.ErrorIs(t, s.DeleteProduct(ctx, sold.ID), store.ErrProductInUse)
	require.NoError(t, s.DeleteProduct(ctx, unsold.ID))
	_, err = s.GetProductByID(ctx, unsold.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, s.DeleteProduct(ctx, unsold.ID), store.ErrNotFound)
}

func TestSalesSummaryAndTopSellers(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()
	pan := mustCreate(t, s, "7000", "Pan", "2.00", 100)
	jugo := mustCreate(t, s, "7001", "Jugo", "1.00", 100)

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	record := func(at time.Time, total string, details ...domain.SaleDetail) int64 {
		sale, err := s.CreateSale(ctx, domain.Sale{
			Date:    at,
			Total:   decimal.RequireFromString(total),
			Paid:    decimal.RequireFromString(total),
			Details: details,
		}, nil)
		require.NoError(t, err)
		return sale.ID
	}
	record(base, "6.00", domain.SaleDetail{ProductID: &pan.ID, Quantity: 3, UnitPrice: pan.Price})
	record(base.Add(time.Minute), "5.00", domain.SaleDetail{ProductID: &jugo.ID, Quantity: 5, UnitPrice: jugo.Price})
	cancelled := record(base.Add(2*time.Minute), "20.00", domain.SaleDetail{ProductID: &pan.ID, Quantity: 10, UnitPrice: pan.Price})
	_, err := s.CancelSale(ctx, cancelled, "error de cobro", base.Add(3*time.Minute))
	require.NoError(t, err)

	summary, err := s.SalesSummary(ctx)
	require.NoError(t, err)
	assert.True(t, summary.TotalSales.Equal(decimal.RequireFromString("11.00")), "total %s", summary.TotalSales)
	assert.True(t, summary.LastSaleTotal.Equal(decimal.RequireFromString("5.00")), "last %s", summary.LastSaleTotal)
	assert.Equal(t, 2, summary.ActiveCount)
	assert.Equal(t, 1, summary.CancelledCount)

	top, err := s.TopSellers(ctx, 10)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "Jugo", top[0].Name)
	assert.Equal(t, 5, top[0].Quantity)
	assert.Equal(t, "Pan", top[1].Name)
	assert.True(t, top[1].Amount.Equal(decimal.RequireFromString("6.00")))

	sales, err := s.ListSales(ctx, 2)
	require.NoError(t, err)
	require.Len(t, sales, 2)
	assert.Equal(t, cancelled, sales[0].ID)
}

func TestBindRewritesPlaceholdersAndQuotesChange(t *testing.T) {
	query := `UPDATE sales SET {change} = ? WHERE id = ?`
	assert.Equal(t, `UPDATE sales SET "change" = $1 WHERE id = $2`, postgresDialect.bind(query))
	assert.Equal(t, "UPDATE sales SET `change` = ? WHERE id = ?", mysqlDialect.bind(query))
	assert.Equal(t, `UPDATE sales SET "change" = ? WHERE id = ?`, sqliteDialect.bind(query))
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "oracle", "x")
	assert.Error(t, err)
}
