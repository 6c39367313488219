package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"appstock/backend/internal/cart"
	"appstock/backend/internal/domain"
	"appstock/backend/internal/store"
)

func (s *Service) Cart() domain.CartView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.View()
}

func (s *Service) AddToCart(ctx context.Context, req domain.AddItemRequest) (domain.CartView, error) {
	product, err := s.GetProductByBarcode(ctx, req.Barcode)
	if err != nil {
		return domain.CartView{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.cart.Add(product, req.Qty); err != nil {
		return domain.CartView{}, err
	}
	return s.cart.View(), nil
}

func (s *Service) AddMiscItem(_ context.Context, req domain.AddMiscItemRequest) (domain.CartView, error) {
	price, err := parsePrice(req.Price)
	if err != nil {
		return domain.CartView{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.cart.AddMisc(req.Name, price, req.Qty); err != nil {
		return domain.CartView{}, err
	}
	return s.cart.View(), nil
}

func (s *Service) UpdateCartItem(ctx context.Context, lineID string, req domain.UpdateItemRequest) (domain.CartView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	line, ok := s.cart.Line(lineID)
	if !ok {
		return domain.CartView{}, fmt.Errorf("cart line %s: %w", lineID, store.ErrNotFound)
	}
	var product *domain.Product
	if !line.Misc {
		p, err := s.repo.GetProductByBarcode(ctx, line.Barcode)
		if err != nil {
			return domain.CartView{}, fmt.Errorf("product %s: %w", line.Barcode, err)
		}
		product = p
	}
	if _, err := s.cart.SetQuantity(lineID, req.Qty, product); err != nil {
		return domain.CartView{}, err
	}
	return s.cart.View(), nil
}

func (s *Service) RemoveCartItem(_ context.Context, lineID string) (domain.CartView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.cart.Remove(lineID); err != nil {
		return domain.CartView{}, err
	}
	return s.cart.View(), nil
}

func (s *Service) ClearCart(_ context.Context) domain.CartView {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart.Clear()
	return s.cart.View()
}

// ConfirmSale stores the cart as a sale and takes the reserved quantities
// out of stock. The cart is cleared only when the sale was stored.
func (s *Service) ConfirmSale(ctx context.Context, req domain.ConfirmSaleRequest) (domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cart.IsEmpty() {
		return domain.Sale{}, cart.ErrEmpty
	}
	total := s.cart.Total()
	paid := req.Paid.Round(2)
	if paid.LessThan(total) {
		return domain.Sale{}, fmt.Errorf("%w: amount paid %s is less than the total %s", store.ErrInvalidInput, paid.StringFixed(2), total.StringFixed(2))
	}

	sale := domain.Sale{
		Date:    s.now().UTC(),
		Total:   total,
		Paid:    paid,
		Change:  paid.Sub(total),
		Status:  domain.SaleStatusActive,
		Details: s.cart.Details(),
	}
	saved, err := s.repo.CreateSale(ctx, sale, s.cart.Adjustments())
	if err != nil {
		return domain.Sale{}, fmt.Errorf("confirm sale: %w", err)
	}
	s.cart.Clear()

	s.logAudit(ctx, "confirm_sale", "sale", saved.ID, saved.Total.StringFixed(2))
	s.invalidateReports(ctx)
	return *saved, nil
}

func (s *Service) CancelSale(ctx context.Context, id int64, req domain.CancelSaleRequest) (domain.Sale, error) {
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		reason = domain.DefaultCancellationReason
	}

	sale, err := s.repo.CancelSale(ctx, id, reason, s.now().UTC())
	if err != nil {
		zap.L().Warn("sale cancellation refused", zap.Int64("sale_id", id), zap.Error(err))
		return domain.Sale{}, fmt.Errorf("cancel sale %d: %w", id, err)
	}

	s.logAudit(ctx, "cancel_sale", "sale", sale.ID, reason)
	s.invalidateReports(ctx)
	return *sale, nil
}
