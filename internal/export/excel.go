package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"appstock/backend/internal/domain"
)

const (
	SheetSalesHistory = "Sales History"
	SheetTopProducts  = "Top Products"
	SheetInventory    = "Inventory"

	moneyFormat = "#,##0.00"
)

type workbookStyles struct {
	header   int
	money    int
	lowStock int
}

func newWorkbookStyles(f *excelize.File) (workbookStyles, error) {
	var (
		styles workbookStyles
		err    error
	)
	styles.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"366092"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return styles, err
	}
	numFmt := moneyFormat
	styles.money, err = f.NewStyle(&excelize.Style{CustomNumFmt: &numFmt})
	if err != nil {
		return styles, err
	}
	styles.lowStock, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Color: "9C0006"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"FFC7CE"}, Pattern: 1},
	})
	return styles, err
}

// SalesWorkbook writes the sales history and the top products ranking into a
// two-sheet workbook and returns its path.
func (e *Exporter) SalesWorkbook(sales []domain.Sale, top []domain.TopSeller) (string, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	styles, err := newWorkbookStyles(f)
	if err != nil {
		return "", err
	}
	if err := f.SetSheetName("Sheet1", SheetSalesHistory); err != nil {
		return "", err
	}

	headers := []any{"ID", "Date", "Total", "Paid", "Change", "Status", "Cancelled At", "Reason"}
	if err := writeHeader(f, SheetSalesHistory, headers, styles.header); err != nil {
		return "", err
	}
	for i, sale := range sales {
		cancelledAt := ""
		if sale.CancelledAt != nil {
			cancelledAt = formatTime(*sale.CancelledAt)
		}
		row := []any{
			sale.ID,
			formatTime(sale.Date),
			sale.Total.InexactFloat64(),
			sale.Paid.InexactFloat64(),
			sale.Change.InexactFloat64(),
			sale.Status,
			cancelledAt,
			sale.CancellationReason,
		}
		if err := writeRow(f, SheetSalesHistory, i+2, row); err != nil {
			return "", err
		}
	}
	if len(sales) > 0 {
		if err := styleRange(f, SheetSalesHistory, 3, 2, 5, len(sales)+1, styles.money); err != nil {
			return "", err
		}
	}
	if err := f.SetColWidth(SheetSalesHistory, "A", "H", 18); err != nil {
		return "", err
	}

	if _, err := f.NewSheet(SheetTopProducts); err != nil {
		return "", err
	}
	if err := writeHeader(f, SheetTopProducts, []any{"Product", "Quantity", "Amount"}, styles.header); err != nil {
		return "", err
	}
	for i, t := range top {
		if err := writeRow(f, SheetTopProducts, i+2, []any{t.Name, t.Quantity, t.Amount.InexactFloat64()}); err != nil {
			return "", err
		}
	}
	if len(top) > 0 {
		if err := styleRange(f, SheetTopProducts, 3, 2, 3, len(top)+1, styles.money); err != nil {
			return "", err
		}
	}
	if err := f.SetColWidth(SheetTopProducts, "A", "A", 32); err != nil {
		return "", err
	}
	f.SetActiveSheet(0)

	path := e.filePath("sales", "xlsx")
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("save sales workbook: %w", err)
	}
	return path, nil
}

// InventoryWorkbook writes the catalog with stock value; rows under the low
// stock threshold are highlighted.
func (e *Exporter) InventoryWorkbook(products []domain.Product) (string, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	styles, err := newWorkbookStyles(f)
	if err != nil {
		return "", err
	}
	if err := f.SetSheetName("Sheet1", SheetInventory); err != nil {
		return "", err
	}

	headers := []any{"ID", "Barcode", "Name", "Price", "Stock", "Stock Value"}
	if err := writeHeader(f, SheetInventory, headers, styles.header); err != nil {
		return "", err
	}
	for i, p := range products {
		rowNum := i + 2
		value := p.Price.Mul(decimalFromInt(p.Stock))
		row := []any{p.ID, p.Barcode, p.Name, p.Price.InexactFloat64(), p.Stock, value.InexactFloat64()}
		if err := writeRow(f, SheetInventory, rowNum, row); err != nil {
			return "", err
		}
		if err := styleRange(f, SheetInventory, 4, rowNum, 4, rowNum, styles.money); err != nil {
			return "", err
		}
		if err := styleRange(f, SheetInventory, 6, rowNum, 6, rowNum, styles.money); err != nil {
			return "", err
		}
		if p.Stock < domain.LowStockThreshold {
			if err := styleRange(f, SheetInventory, 5, rowNum, 5, rowNum, styles.lowStock); err != nil {
				return "", err
			}
		}
	}
	if err := f.SetColWidth(SheetInventory, "A", "F", 16); err != nil {
		return "", err
	}
	if err := f.SetColWidth(SheetInventory, "C", "C", 32); err != nil {
		return "", err
	}

	path := e.filePath("inventory", "xlsx")
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("save inventory workbook: %w", err)
	}
	return path, nil
}

func writeHeader(f *excelize.File, sheet string, headers []any, style int) error {
	if err := writeRow(f, sheet, 1, headers); err != nil {
		return err
	}
	return styleRange(f, sheet, 1, 1, len(headers), 1, style)
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func styleRange(f *excelize.File, sheet string, fromCol, fromRow, toCol, toRow, style int) error {
	from, err := excelize.CoordinatesToCellName(fromCol, fromRow)
	if err != nil {
		return err
	}
	to, err := excelize.CoordinatesToCellName(toCol, toRow)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, from, to, style)
}
