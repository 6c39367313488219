package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"appstock/backend/internal/cache"
	"appstock/backend/internal/domain"
)

const (
	reportRecentSales = 20
	reportTopSellers  = 10
	maxSalesPage      = 500
)

// ReportSummary gathers totals, recent sales and best sellers. Results are
// cached until the next write or until the cache TTL expires.
func (s *Service) ReportSummary(ctx context.Context) (domain.ReportSummary, error) {
	if cached, ok, err := s.reports.Get(ctx, cache.ReportSummaryKey); err != nil {
		zap.L().Warn("report cache read failed", zap.Error(err))
	} else if ok {
		return *cached, nil
	}

	report, err := s.buildReport(ctx)
	if err != nil {
		return domain.ReportSummary{}, err
	}
	if err := s.reports.Set(ctx, cache.ReportSummaryKey, &report, s.cacheTTL); err != nil {
		zap.L().Warn("report cache write failed", zap.Error(err))
	}
	return report, nil
}

func (s *Service) buildReport(ctx context.Context) (domain.ReportSummary, error) {
	var report domain.ReportSummary
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		summary, err := s.repo.SalesSummary(gctx)
		if err != nil {
			return fmt.Errorf("sales summary: %w", err)
		}
		report.Summary = summary
		return nil
	})
	g.Go(func() error {
		sales, err := s.repo.ListSales(gctx, reportRecentSales)
		if err != nil {
			return fmt.Errorf("recent sales: %w", err)
		}
		report.RecentSales = sales
		return nil
	})
	g.Go(func() error {
		top, err := s.repo.TopSellers(gctx, reportTopSellers)
		if err != nil {
			return fmt.Errorf("top sellers: %w", err)
		}
		report.TopSellers = top
		return nil
	})
	if err := g.Wait(); err != nil {
		return domain.ReportSummary{}, err
	}
	report.GeneratedAt = s.now().UTC()
	return report, nil
}

func (s *Service) ListSales(ctx context.Context, limit int) ([]domain.Sale, error) {
	if limit <= 0 || limit > maxSalesPage {
		limit = maxSalesPage
	}
	return s.repo.ListSales(ctx, limit)
}

func (s *Service) GetSale(ctx context.Context, id int64) (domain.Sale, error) {
	sale, err := s.repo.GetSale(ctx, id)
	if err != nil {
		return domain.Sale{}, fmt.Errorf("sale %d: %w", id, err)
	}
	return *sale, nil
}

func (s *Service) ExportSalesWorkbook(ctx context.Context) (domain.ExportResult, error) {
	if s.exporter == nil {
		return domain.ExportResult{}, ErrExportsDisabled
	}
	sales, err := s.repo.ListSales(ctx, 0)
	if err != nil {
		return domain.ExportResult{}, err
	}
	top, err := s.repo.TopSellers(ctx, reportTopSellers)
	if err != nil {
		return domain.ExportResult{}, err
	}
	path, err := s.exporter.SalesWorkbook(sales, top)
	if err != nil {
		return domain.ExportResult{}, err
	}
	zap.L().Info("sales workbook exported", zap.String("path", path), zap.Int("sales", len(sales)))
	return domain.ExportResult{Path: path}, nil
}

func (s *Service) ExportInventoryWorkbook(ctx context.Context) (domain.ExportResult, error) {
	if s.exporter == nil {
		return domain.ExportResult{}, ErrExportsDisabled
	}
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return domain.ExportResult{}, err
	}
	path, err := s.exporter.InventoryWorkbook(products)
	if err != nil {
		return domain.ExportResult{}, err
	}
	zap.L().Info("inventory workbook exported", zap.String("path", path), zap.Int("products", len(products)))
	return domain.ExportResult{Path: path}, nil
}

func (s *Service) ExportSalesReport(ctx context.Context) (domain.ExportResult, error) {
	if s.exporter == nil {
		return domain.ExportResult{}, ErrExportsDisabled
	}
	report, err := s.ReportSummary(ctx)
	if err != nil {
		return domain.ExportResult{}, err
	}
	path, err := s.exporter.SalesReportPDF(report)
	if err != nil {
		return domain.ExportResult{}, err
	}
	zap.L().Info("sales report exported", zap.String("path", path))
	return domain.ExportResult{Path: path}, nil
}

// SaleTicket renders the receipt of a stored sale and optionally sends it to
// the printer. A failed print keeps the generated file.
func (s *Service) SaleTicket(ctx context.Context, id int64, req domain.TicketRequest) (domain.ExportResult, error) {
	if s.exporter == nil {
		return domain.ExportResult{}, ErrExportsDisabled
	}
	sale, err := s.GetSale(ctx, id)
	if err != nil {
		return domain.ExportResult{}, err
	}
	path, err := s.exporter.SaleTicketPDF(sale)
	if err != nil {
		return domain.ExportResult{}, err
	}
	result := domain.ExportResult{Path: path}
	if !req.Print {
		return result, nil
	}
	if err := s.exporter.Print(ctx, path); err != nil {
		zap.L().Warn("ticket print failed", zap.Int64("sale_id", id), zap.String("path", path), zap.Error(err))
		return result, fmt.Errorf("print ticket: %w", err)
	}
	result.Printed = true
	return result, nil
}
