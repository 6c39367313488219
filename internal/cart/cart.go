// Package cart holds the sale being entered at the till. Catalog lines
// reserve stock per barcode so the same units cannot be sold twice before the
// sale is confirmed. A Cart is not safe for concurrent use.
package cart

import (
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"appstock/backend/internal/domain"
	"appstock/backend/internal/store"
)

var (
	ErrEmpty        = fmt.Errorf("%w: cart is empty", store.ErrInvalidInput)
	ErrLineNotFound = fmt.Errorf("cart line %w", store.ErrNotFound)
)

type Cart struct {
	lines    []domain.CartLine
	reserved map[string]int
	newID    func() string
}

func New() *Cart {
	return &Cart{
		reserved: make(map[string]int),
		newID:    uuid.NewString,
	}
}

// Add puts qty units of a catalog product in the cart, merging with an
// existing line for the same barcode. A zero qty counts as one unit.
func (c *Cart) Add(p domain.Product, qty int) (domain.CartLine, error) {
	if qty == 0 {
		qty = 1
	}
	if qty < 0 {
		return domain.CartLine{}, fmt.Errorf("%w: quantity must be greater than zero", store.ErrInvalidInput)
	}

	available := p.Stock - c.reserved[p.Barcode]
	if qty > available {
		return domain.CartLine{}, insufficient(p.Name, available)
	}

	if idx := c.indexByBarcode(p.Barcode); idx >= 0 {
		line := &c.lines[idx]
		line.Quantity += qty
		line.Subtotal = subtotal(line.UnitPrice, line.Quantity)
		c.reserved[p.Barcode] += qty
		return *line, nil
	}

	line := domain.CartLine{
		ID:        c.newID(),
		ProductID: p.ID,
		Barcode:   p.Barcode,
		Name:      p.Name,
		Quantity:  qty,
		UnitPrice: p.Price,
		Subtotal:  subtotal(p.Price, qty),
	}
	c.lines = append(c.lines, line)
	c.reserved[p.Barcode] += qty
	return line, nil
}

// AddMisc adds an ad-hoc line for goods outside the catalog. It reserves
// nothing.
func (c *Cart) AddMisc(name string, price decimal.Decimal, qty int) (domain.CartLine, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.CartLine{}, fmt.Errorf("%w: item name is required", store.ErrInvalidInput)
	}
	if !price.IsPositive() {
		return domain.CartLine{}, fmt.Errorf("%w: price must be greater than zero", store.ErrInvalidInput)
	}
	if qty == 0 {
		qty = 1
	}
	if qty < 0 {
		return domain.CartLine{}, fmt.Errorf("%w: quantity must be greater than zero", store.ErrInvalidInput)
	}

	line := domain.CartLine{
		ID:        c.newID(),
		Barcode:   domain.MiscDisplayBarcode,
		Name:      name,
		Quantity:  qty,
		UnitPrice: price.Round(2),
		Subtotal:  subtotal(price.Round(2), qty),
		Misc:      true,
	}
	c.lines = append(c.lines, line)
	return line, nil
}

// SetQuantity changes a line's quantity. The line's own reservation is
// released before the new quantity is checked against p's stock; on failure
// the cart is left as it was. p is ignored for misc lines.
func (c *Cart) SetQuantity(lineID string, qty int, p *domain.Product) (domain.CartLine, error) {
	if qty < 1 {
		return domain.CartLine{}, fmt.Errorf("%w: quantity must be greater than zero", store.ErrInvalidInput)
	}
	idx := c.indexByID(lineID)
	if idx < 0 {
		return domain.CartLine{}, ErrLineNotFound
	}
	line := &c.lines[idx]

	if !line.Misc {
		if p == nil || p.Barcode != line.Barcode {
			return domain.CartLine{}, fmt.Errorf("product %s: %w", line.Barcode, store.ErrNotFound)
		}
		c.release(line.Barcode, line.Quantity)
		available := p.Stock - c.reserved[line.Barcode]
		if qty > available {
			c.reserved[line.Barcode] += line.Quantity
			return domain.CartLine{}, insufficient(p.Name, available)
		}
		c.reserved[line.Barcode] += qty
	}

	line.Quantity = qty
	line.Subtotal = subtotal(line.UnitPrice, qty)
	return *line, nil
}

func (c *Cart) Remove(lineID string) error {
	idx := c.indexByID(lineID)
	if idx < 0 {
		return ErrLineNotFound
	}
	line := c.lines[idx]
	if !line.Misc {
		c.release(line.Barcode, line.Quantity)
	}
	c.lines = slices.Delete(c.lines, idx, idx+1)
	return nil
}

func (c *Cart) Clear() {
	c.lines = nil
	clear(c.reserved)
}

func (c *Cart) Line(lineID string) (domain.CartLine, bool) {
	idx := c.indexByID(lineID)
	if idx < 0 {
		return domain.CartLine{}, false
	}
	return c.lines[idx], true
}

func (c *Cart) Lines() []domain.CartLine {
	return slices.Clone(c.lines)
}

func (c *Cart) IsEmpty() bool {
	return len(c.lines) == 0
}

func (c *Cart) Reserved(barcode string) int {
	return c.reserved[barcode]
}

func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, line := range c.lines {
		total = total.Add(line.Subtotal)
	}
	return total
}

func (c *Cart) View() domain.CartView {
	view := domain.CartView{Lines: c.Lines(), Total: c.Total()}
	if view.Lines == nil {
		view.Lines = []domain.CartLine{}
	}
	for _, line := range c.lines {
		view.ItemCount += line.Quantity
	}
	return view
}

// Adjustments lists the reserved quantity per catalog product, which is what
// confirming the sale takes out of stock.
func (c *Cart) Adjustments() []domain.StockAdjustment {
	adjustments := make([]domain.StockAdjustment, 0, len(c.reserved))
	for _, line := range c.lines {
		if line.Misc {
			continue
		}
		qty := c.reserved[line.Barcode]
		if qty < 1 {
			continue
		}
		adjustments = append(adjustments, domain.StockAdjustment{
			ProductID: line.ProductID,
			Barcode:   line.Barcode,
			Qty:       qty,
		})
	}
	return adjustments
}

// Details turns the lines into sale detail rows. Misc lines carry no product
// reference.
func (c *Cart) Details() []domain.SaleDetail {
	details := make([]domain.SaleDetail, 0, len(c.lines))
	for _, line := range c.lines {
		d := domain.SaleDetail{
			Description: line.Name,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			Subtotal:    line.Subtotal,
		}
		if !line.Misc {
			id := line.ProductID
			d.ProductID = &id
		}
		details = append(details, d)
	}
	return details
}

func (c *Cart) release(barcode string, qty int) {
	left := c.reserved[barcode] - qty
	if left <= 0 {
		delete(c.reserved, barcode)
		return
	}
	c.reserved[barcode] = left
}

func (c *Cart) indexByID(id string) int {
	return slices.IndexFunc(c.lines, func(l domain.CartLine) bool { return l.ID == id })
}

func (c *Cart) indexByBarcode(barcode string) int {
	return slices.IndexFunc(c.lines, func(l domain.CartLine) bool { return !l.Misc && l.Barcode == barcode })
}

func subtotal(price decimal.Decimal, qty int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(qty)))
}

func insufficient(name string, available int) error {
	if available < 0 {
		available = 0
	}
	return fmt.Errorf("%w: only %d units of %s available", store.ErrInsufficientStock, available, name)
}
