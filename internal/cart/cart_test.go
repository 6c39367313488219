package cart

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"appstock/backend/internal/domain"
	"appstock/backend/internal/store"
)

func product(id int64, barcode string, price string, stock int) domain.Product {
	return domain.Product{
		ID:      id,
		Barcode: barcode,
		Name:    "item-" + barcode,
		Price:   decimal.RequireFromString(price),
		Stock:   stock,
	}
}

func TestAddRejectsMoreThanAvailableAndLeavesCartUnchanged(t *testing.T) {
	c := New()
	p := product(1, "111", "10.00", 5)

	_, err := c.Add(p, 3)
	require.NoError(t, err)
	before := c.Lines()

	_, err = c.Add(p, 3)
	require.ErrorIs(t, err, store.ErrInsufficientStock)
	assert.Equal(t, before, c.Lines())
	assert.Equal(t, 3, c.Reserved("111"))

	_, err = c.Add(product(2, "222", "1.00", 0), 1)
	require.ErrorIs(t, err, store.ErrInsufficientStock)
	assert.Len(t, c.Lines(), 1)
}

func TestAddMergesSameBarcodeAndDefaultsToOneUnit(t *testing.T) {
	c := New()
	p := product(1, "111", "2.50", 10)

	first, err := c.Add(p, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Quantity)

	merged, err := c.Add(p, 2)
	require.NoError(t, err)
	assert.Equal(t, first.ID, merged.ID)
	assert.Equal(t, 3, merged.Quantity)
	assert.True(t, merged.Subtotal.Equal(decimal.RequireFromString("7.50")))
	assert.Len(t, c.Lines(), 1)
	assert.Equal(t, 3, c.Reserved("111"))

	_, err = c.Add(p, -1)
	assert.ErrorIs(t, err, store.ErrInvalidInput)
}

func TestSetQuantityReleasesOldReservationFirst(t *testing.T) {
	c := New()
	p := product(1, "111", "10.00", 5)

	line, err := c.Add(p, 2)
	require.NoError(t, err)

	updated, err := c.SetQuantity(line.ID, 5, &p)
	require.NoError(t, err)
	assert.Equal(t, 5, updated.Quantity)
	assert.True(t, updated.Subtotal.Equal(decimal.RequireFromString("50.00")))
	assert.Equal(t, 5, c.Reserved("111"))

	_, err = c.SetQuantity(line.ID, 6, &p)
	require.ErrorIs(t, err, store.ErrInsufficientStock)
	got, ok := c.Line(line.ID)
	require.True(t, ok)
	assert.Equal(t, 5, got.Quantity)
	assert.Equal(t, 5, c.Reserved("111"))

	_, err = c.SetQuantity(line.ID, 0, &p)
	assert.ErrorIs(t, err, store.ErrInvalidInput)
	_, err = c.SetQuantity("missing", 1, &p)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRemoveReleasesReservation(t *testing.T) {
	c := New()
	p := product(1, "111", "1.00", 4)
	line, err := c.Add(p, 4)
	require.NoError(t, err)

	require.NoError(t, c.Remove(line.ID))
	assert.Zero(t, c.Reserved("111"))
	assert.True(t, c.IsEmpty())

	_, err = c.Add(p, 4)
	assert.NoError(t, err)
	assert.ErrorIs(t, c.Remove("missing"), store.ErrNotFound)
}

func TestMiscLinesReserveNothingAndCarryNoProduct(t *testing.T) {
	c := New()
	p := product(7, "777", "10.00", 10)
	_, err := c.Add(p, 2)
	require.NoError(t, err)

	misc, err := c.AddMisc("Bolsa reciclable", decimal.RequireFromString("0.50"), 3)
	require.NoError(t, err)
	assert.True(t, misc.Misc)
	assert.Equal(t, domain.MiscDisplayBarcode, misc.Barcode)

	second, err := c.AddMisc("Servicio", decimal.RequireFromString("2.00"), 0)
	require.NoError(t, err)
	assert.NotEqual(t, misc.ID, second.ID)

	updated, err := c.SetQuantity(misc.ID, 4, nil)
	require.NoError(t, err)
	assert.True(t, updated.Subtotal.Equal(decimal.RequireFromString("2.00")))

	assert.True(t, c.Total().Equal(decimal.RequireFromString("24.00")), "total %s", c.Total())

	adjustments := c.Adjustments()
	require.Len(t, adjustments, 1)
	assert.Equal(t, domain.StockAdjustment{ProductID: 7, Barcode: "777", Qty: 2}, adjustments[0])

	details := c.Details()
	require.Len(t, details, 3)
	require.NotNil(t, details[0].ProductID)
	assert.Equal(t, int64(7), *details[0].ProductID)
	assert.Nil(t, details[1].ProductID)
	assert.Equal(t, "Bolsa reciclable", details[1].Description)

	_, err = c.AddMisc("", decimal.RequireFromString("1.00"), 1)
	assert.ErrorIs(t, err, store.ErrInvalidInput)
	_, err = c.AddMisc("Gratis", decimal.Zero, 1)
	assert.ErrorIs(t, err, store.ErrInvalidInput)
}

func TestViewAndClear(t *testing.T) {
	c := New()
	view := c.View()
	assert.NotNil(t, view.Lines)
	assert.True(t, view.Total.IsZero())

	_, err := c.Add(product(1, "111", "1.50", 10), 2)
	require.NoError(t, err)
	_, err = c.Add(product(2, "222", "3.00", 10), 1)
	require.NoError(t, err)

	view = c.View()
	assert.Equal(t, 3, view.ItemCount)
	assert.True(t, view.Total.Equal(decimal.RequireFromString("6.00")))

	c.Clear()
	assert.True(t, c.IsEmpty())
	assert.Zero(t, c.Reserved("111"))
	assert.Empty(t, c.Adjustments())
}
