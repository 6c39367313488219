// Package export renders sales and inventory data into spreadsheet and PDF
// documents under a local output directory, and hands documents to the OS
// print spooler.
package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const fileTimestamp = "20060102_150405"

var ErrPrintingDisabled = errors.New("printing is not configured")

type Exporter struct {
	dir       string
	storeName string
	printer   Printer
	now       func() time.Time
}

func NewExporter(dir string, storeName string, printer Printer) (*Exporter, error) {
	if dir == "" {
		dir = "reports"
	}
	if storeName == "" {
		storeName = "AppStock"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}
	return &Exporter{
		dir:       dir,
		storeName: storeName,
		printer:   printer,
		now:       time.Now,
	}, nil
}

func (e *Exporter) Dir() string {
	return e.dir
}

func (e *Exporter) Print(ctx context.Context, path string) error {
	if e.printer == nil {
		return ErrPrintingDisabled
	}
	return e.printer.Print(ctx, path)
}

func (e *Exporter) filePath(prefix string, ext string) string {
	return filepath.Join(e.dir, fmt.Sprintf("%s_%s.%s", prefix, e.now().Format(fileTimestamp), ext))
}

func formatMoney(d decimal.Decimal) string {
	p := message.NewPrinter(language.English)
	return p.Sprintf("$%.2f", d.Round(2).InexactFloat64())
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func decimalFromInt(n int) decimal.Decimal {
	return decimal.NewFromInt(int64(n))
}
