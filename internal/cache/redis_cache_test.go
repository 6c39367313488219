package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"appstock/backend/internal/domain"
)

func TestNoopReportCacheNeverHits(t *testing.T) {
	var c ReportCache = NoopReportCache{}
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, ReportSummaryKey, &domain.ReportSummary{}, time.Minute))
	got, ok, err := c.Get(ctx, ReportSummaryKey)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)
	assert.NoError(t, c.Invalidate(ctx, ReportSummaryKey))
}

func TestRedisReportCacheRoundTrip(t *testing.T) {
	addr := os.Getenv("APPSTOCK_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("APPSTOCK_TEST_REDIS_ADDR is not set")
	}
	ctx := context.Background()
	c := NewRedisReportCache(addr, "", 0)
	t.Cleanup(func() { _ = c.Close() })
	require.NoError(t, c.Ping(ctx))

	key := ReportSummaryKey + ":test"
	want := &domain.ReportSummary{
		Summary: domain.SalesSummary{
			TotalSales:    decimal.RequireFromString("42.50"),
			LastSaleTotal: decimal.RequireFromString("2.00"),
			ActiveCount:   3,
		},
		TopSellers: []domain.TopSeller{{Name: "Pan", Quantity: 7, Amount: decimal.RequireFromString("14.00")}},
	}
	require.NoError(t, c.Set(ctx, key, want, time.Minute))

	got, ok, err := c.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.Summary.TotalSales.Equal(want.Summary.TotalSales))
	assert.Equal(t, 3, got.Summary.ActiveCount)
	require.Len(t, got.TopSellers, 1)
	assert.Equal(t, "Pan", got.TopSellers[0].Name)

	require.NoError(t, c.Invalidate(ctx, key))
	_, ok, err = c.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
}
