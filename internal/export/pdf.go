package export

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-pdf/fpdf"

	"appstock/backend/internal/domain"
)

const (
	reportChartItems = 5
	reportTopItems   = 10
	reportSaleRows   = 20
	ticketWidthMM    = 80.0
)

// SalesReportPDF renders the summary figures, a bar chart of the best sellers
// and the most recent sales.
func (e *Exporter) SalesReportPDF(report domain.ReportSummary) (string, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(tr(e.storeName+" sales report"), false)
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, tr(e.storeName+" - Sales Report"), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(0, 6, "Generated "+formatTime(e.now()), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	sectionTitle(pdf, tr("Summary"))
	pdf.SetFont("Helvetica", "", 11)
	summaryRows := [][2]string{
		{"Total sales", formatMoney(report.Summary.TotalSales)},
		{"Last sale", formatMoney(report.Summary.LastSaleTotal)},
		{"Active sales", strconv.Itoa(report.Summary.ActiveCount)},
		{"Cancelled sales", strconv.Itoa(report.Summary.CancelledCount)},
	}
	for _, row := range summaryRows {
		pdf.CellFormat(60, 7, tr(row[0]), "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 7, tr(row[1]), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	if len(report.TopSellers) > 0 {
		sectionTitle(pdf, tr("Top products"))
		drawBarChart(pdf, tr, report.TopSellers[:min(reportChartItems, len(report.TopSellers))])

		top := report.TopSellers[:min(reportTopItems, len(report.TopSellers))]
		widths := []float64{100, 35, 45}
		tableHeader(pdf, tr, widths, []string{"Product", "Quantity", "Amount"})
		pdf.SetFont("Helvetica", "", 10)
		for _, t := range top {
			pdf.CellFormat(widths[0], 7, tr(t.Name), "1", 0, "L", false, 0, "")
			pdf.CellFormat(widths[1], 7, strconv.Itoa(t.Quantity), "1", 0, "C", false, 0, "")
			pdf.CellFormat(widths[2], 7, tr(formatMoney(t.Amount)), "1", 1, "R", false, 0, "")
		}
		pdf.Ln(6)
	}

	sectionTitle(pdf, tr("Recent sales"))
	recent := report.RecentSales[:min(reportSaleRows, len(report.RecentSales))]
	if len(recent) == 0 {
		pdf.SetFont("Helvetica", "I", 10)
		pdf.CellFormat(0, 7, tr("No sales recorded."), "", 1, "L", false, 0, "")
	} else {
		widths := []float64{20, 50, 35, 35, 40}
		tableHeader(pdf, tr, widths, []string{"ID", "Date", "Total", "Paid", "Status"})
		pdf.SetFont("Helvetica", "", 10)
		for _, sale := range recent {
			pdf.CellFormat(widths[0], 7, strconv.FormatInt(sale.ID, 10), "1", 0, "C", false, 0, "")
			pdf.CellFormat(widths[1], 7, formatTime(sale.Date), "1", 0, "C", false, 0, "")
			pdf.CellFormat(widths[2], 7, tr(formatMoney(sale.Total)), "1", 0, "R", false, 0, "")
			pdf.CellFormat(widths[3], 7, tr(formatMoney(sale.Paid)), "1", 0, "R", false, 0, "")
			pdf.CellFormat(widths[4], 7, tr(sale.Status), "1", 1, "C", false, 0, "")
		}
	}

	path := e.filePath("sales_report", "pdf")
	if err := pdf.OutputFileAndClose(path); err != nil {
		return "", fmt.Errorf("write sales report: %w", err)
	}
	return path, nil
}

// SaleTicketPDF renders a narrow receipt for one sale.
func (e *Exporter) SaleTicketPDF(sale domain.Sale) (string, error) {
	height := 110 + 10*float64(len(sale.Details))
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: ticketWidthMM, Ht: height},
	})
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(5, 5, 5)
	pdf.SetAutoPageBreak(false, 5)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(0, 7, tr(e.storeName), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(0, 5, fmt.Sprintf("Sale #%d", sale.ID), "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 5, formatTime(sale.Date), "", 1, "C", false, 0, "")
	if sale.Cancelled() {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(0, 6, "CANCELLED", "", 1, "C", false, 0, "")
		pdf.SetFont("Helvetica", "", 9)
	}
	dashedRule(pdf)

	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(10, 5, "Qty", "", 0, "L", false, 0, "")
	pdf.CellFormat(36, 5, "Item", "", 0, "L", false, 0, "")
	pdf.CellFormat(0, 5, "Amount", "", 1, "R", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	for _, d := range sale.Details {
		pdf.CellFormat(10, 5, strconv.Itoa(d.Quantity), "", 0, "L", false, 0, "")
		pdf.CellFormat(36, 5, tr(truncate(d.Description, 22)), "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 5, tr(formatMoney(d.LineTotal())), "", 1, "R", false, 0, "")
		pdf.SetFont("Helvetica", "", 7)
		pdf.CellFormat(0, 4, tr("  @ "+formatMoney(d.UnitPrice)), "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 9)
	}
	dashedRule(pdf)

	pdf.SetFont("Helvetica", "B", 11)
	ticketTotal(pdf, tr, "TOTAL", formatMoney(sale.Total))
	pdf.SetFont("Helvetica", "", 9)
	ticketTotal(pdf, tr, "Paid", formatMoney(sale.Paid))
	ticketTotal(pdf, tr, "Change", formatMoney(sale.Change))
	pdf.Ln(4)
	pdf.CellFormat(0, 5, tr("Thank you for your purchase"), "", 1, "C", false, 0, "")

	path := e.filePath(fmt.Sprintf("ticket_sale_%d", sale.ID), "pdf")
	if err := pdf.OutputFileAndClose(path); err != nil {
		return "", fmt.Errorf("write ticket: %w", err)
	}
	return path, nil
}

func drawBarChart(pdf *fpdf.Fpdf, tr func(string) string, top []domain.TopSeller) {
	const (
		chartHeight = 55.0
		labelHeight = 10.0
	)
	left, _, right, _ := pdf.GetMargins()
	pageWidth, _ := pdf.GetPageSize()
	chartWidth := pageWidth - left - right
	originY := pdf.GetY() + 4

	maxQty := 1
	for _, t := range top {
		maxQty = max(maxQty, t.Quantity)
	}

	slot := chartWidth / float64(len(top))
	barWidth := slot * 0.6
	pdf.SetDrawColor(120, 120, 120)
	pdf.Line(left, originY+chartHeight, left+chartWidth, originY+chartHeight)
	pdf.SetFillColor(54, 96, 146)
	pdf.SetFont("Helvetica", "", 8)
	for i, t := range top {
		barHeight := chartHeight * float64(t.Quantity) / float64(maxQty)
		x := left + float64(i)*slot + (slot-barWidth)/2
		pdf.Rect(x, originY+chartHeight-barHeight, barWidth, barHeight, "F")

		pdf.SetXY(left+float64(i)*slot, originY+chartHeight-barHeight-5)
		pdf.CellFormat(slot, 5, strconv.Itoa(t.Quantity), "", 0, "C", false, 0, "")
		pdf.SetXY(left+float64(i)*slot, originY+chartHeight+1)
		pdf.CellFormat(slot, 5, tr(truncate(t.Name, 18)), "", 0, "C", false, 0, "")
	}
	pdf.SetXY(left, originY+chartHeight+labelHeight)
}

func sectionTitle(pdf *fpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(0, 8, title, "B", 1, "L", false, 0, "")
	pdf.Ln(2)
}

func tableHeader(pdf *fpdf.Fpdf, tr func(string) string, widths []float64, labels []string) {
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(54, 96, 146)
	pdf.SetTextColor(255, 255, 255)
	for i, label := range labels {
		ln := 0
		if i == len(labels)-1 {
			ln = 1
		}
		pdf.CellFormat(widths[i], 8, tr(label), "1", ln, "C", true, 0, "")
	}
	pdf.SetTextColor(0, 0, 0)
}

func ticketTotal(pdf *fpdf.Fpdf, tr func(string) string, label string, amount string) {
	pdf.CellFormat(35, 6, tr(label), "", 0, "L", false, 0, "")
	pdf.CellFormat(0, 6, tr(amount), "", 1, "R", false, 0, "")
}

func dashedRule(pdf *fpdf.Fpdf) {
	pdf.CellFormat(0, 4, strings.Repeat("-", 48), "", 1, "C", false, 0, "")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "."
}
