package export

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"appstock/backend/internal/domain"
)

func newTestExporter(t *testing.T, printer Printer) *Exporter {
	t.Helper()
	e, err := NewExporter(filepath.Join(t.TempDir(), "reports"), "Bodega Central", printer)
	require.NoError(t, err)
	e.now = func() time.Time { return time.Date(2026, 5, 4, 13, 30, 15, 0, time.UTC) }
	return e
}

func sampleSale() domain.Sale {
	productID := int64(3)
	return domain.Sale{
		ID:     12,
		Date:   time.Date(2026, 5, 4, 13, 0, 0, 0, time.UTC),
		Total:  decimal.RequireFromString("21.50"),
		Paid:   decimal.RequireFromString("50.00"),
		Change: decimal.RequireFromString("28.50"),
		Status: domain.SaleStatusActive,
		Details: []domain.SaleDetail{
			{ProductID: &productID, Description: "Leche entera", Quantity: 2, UnitPrice: decimal.RequireFromString("10.00")},
			{Description: "Bolsa", Quantity: 3, UnitPrice: decimal.RequireFromString("0.50")},
		},
	}
}

func TestSalesWorkbookWritesBothSheets(t *testing.T) {
	e := newTestExporter(t, nil)
	sale := sampleSale()
	path, err := e.SalesWorkbook([]domain.Sale{sale}, []domain.TopSeller{
		{Name: "Leche entera", Quantity: 2, Amount: decimal.RequireFromString("20.00")},
	})
	require.NoError(t, err)
	assert.Equal(t, "sales_20260504_133015.xlsx", filepath.Base(path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{SheetSalesHistory, SheetTopProducts}, f.GetSheetList())

	id, err := f.GetCellValue(SheetSalesHistory, "A2")
	require.NoError(t, err)
	assert.Equal(t, "12", id)
	status, err := f.GetCellValue(SheetSalesHistory, "F2")
	require.NoError(t, err)
	assert.Equal(t, domain.SaleStatusActive, status)

	name, err := f.GetCellValue(SheetTopProducts, "A2")
	require.NoError(t, err)
	assert.Equal(t, "Leche entera", name)
	qty, err := f.GetCellValue(SheetTopProducts, "B2")
	require.NoError(t, err)
	assert.Equal(t, "2", qty)
}

func TestInventoryWorkbookListsProducts(t *testing.T) {
	e := newTestExporter(t, nil)
	path, err := e.InventoryWorkbook([]domain.Product{
		{ID: 1, Barcode: "111", Name: "Caldo", Price: decimal.RequireFromString("1.50"), Stock: 40},
		{ID: 2, Barcode: "222", Name: "Pan", Price: decimal.RequireFromString("2.00"), Stock: 3},
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(filepath.Base(path), "inventory_"))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(SheetInventory)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Barcode", rows[0][1])
	assert.Equal(t, "Pan", rows[2][2])
	assert.Equal(t, "3", rows[2][4])
}

func TestPDFDocuments(t *testing.T) {
	e := newTestExporter(t, nil)
	sale := sampleSale()

	ticket, err := e.SaleTicketPDF(sale)
	require.NoError(t, err)
	assert.Equal(t, "ticket_sale_12_20260504_133015.pdf", filepath.Base(ticket))
	assertPDF(t, ticket)

	report, err := e.SalesReportPDF(domain.ReportSummary{
		Summary: domain.SalesSummary{
			TotalSales:    decimal.RequireFromString("1234.50"),
			LastSaleTotal: decimal.RequireFromString("21.50"),
			ActiveCount:   1,
		},
		RecentSales: []domain.Sale{sale},
		TopSellers: []domain.TopSeller{
			{Name: "Leche entera", Quantity: 2, Amount: decimal.RequireFromString("20.00")},
			{Name: "Bolsa", Quantity: 3, Amount: decimal.RequireFromString("1.50")},
		},
	})
	require.NoError(t, err)
	assertPDF(t, report)

	empty, err := e.SalesReportPDF(domain.ReportSummary{})
	require.NoError(t, err)
	assertPDF(t, empty)
}

func assertPDF(t *testing.T, path string) {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")), "%s is not a PDF", path)
}

func TestFormatMoneyGroupsThousands(t *testing.T) {
	assert.Equal(t, "$1,234.50", formatMoney(decimal.RequireFromString("1234.5")))
	assert.Equal(t, "$0.00", formatMoney(decimal.Zero))
}

type recordingPrinter struct {
	paths []string
}

func (p *recordingPrinter) Print(_ context.Context, path string) error {
	p.paths = append(p.paths, path)
	return nil
}

func TestExporterPrint(t *testing.T) {
	err := newTestExporter(t, nil).Print(context.Background(), "x.pdf")
	assert.ErrorIs(t, err, ErrPrintingDisabled)

	printer := &recordingPrinter{}
	require.NoError(t, newTestExporter(t, printer).Print(context.Background(), "ticket.pdf"))
	assert.Equal(t, []string{"ticket.pdf"}, printer.paths)
}

func TestSpoolPrinterCommands(t *testing.T) {
	var gotName string
	var gotArgs []string
	record := func(_ context.Context, name string, args ...string) error {
		gotName, gotArgs = name, args
		return nil
	}

	cases := []struct {
		goos    string
		command string
		name    string
		args    []string
	}{
		{goos: "linux", name: "lp", args: []string{"/tmp/t.pdf"}},
		{goos: "darwin", name: "lpr", args: []string{"/tmp/t.pdf"}},
		{goos: "windows", name: "powershell", args: []string{"-NoProfile", "-Command", "Start-Process -FilePath '/tmp/t.pdf' -Verb Print"}},
		{goos: "linux", command: "lp -d receipts", name: "lp", args: []string{"-d", "receipts", "/tmp/t.pdf"}},
	}
	for _, tc := range cases {
		p := NewSpoolPrinter(tc.command)
		p.goos = tc.goos
		p.run = record
		require.NoError(t, p.Print(context.Background(), "/tmp/t.pdf"))
		assert.Equal(t, tc.name, gotName, tc.goos)
		assert.Equal(t, tc.args, gotArgs, tc.goos)
	}

	failing := NewSpoolPrinter("")
	failing.run = func(context.Context, string, ...string) error { return errors.New("no printer") }
	assert.ErrorContains(t, failing.Print(context.Background(), "a.pdf"), "no printer")
}
