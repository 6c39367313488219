package httpapi

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"appstock/backend/internal/domain"
	"appstock/backend/internal/export"
	"appstock/backend/internal/service"
	"appstock/backend/internal/store"
)

// writeServiceError maps domain failures onto HTTP status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, store.ErrInsufficientStock),
		errors.Is(err, store.ErrDuplicateBarcode),
		errors.Is(err, store.ErrProductInUse),
		errors.Is(err, store.ErrSaleCancelled):
		status = http.StatusConflict
	case errors.Is(err, service.ErrExportsDisabled), errors.Is(err, export.ErrPrintingDisabled):
		status = http.StatusServiceUnavailable
		writeJSON(w, status, map[string]any{"error": err.Error()})
		return
	}
	writeError(w, status, err)
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !a.loginLimiter.Allow(clientKey(r)) {
		writeError(w, http.StatusTooManyRequests, errors.New("too many login attempts"))
		return
	}

	var req domain.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	resp, err := a.auth.Login(req)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := a.service.ListProducts(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": products})
}

func (a *API) handleProductByBarcode(w http.ResponseWriter, r *http.Request) {
	product, err := a.service.GetProductByBarcode(r.Context(), chi.URLParam(r, "barcode"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"product": product})
}

func (a *API) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var form domain.ProductForm
	if err := decodeJSON(r, &form); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	product, err := a.service.CreateProduct(r.Context(), form)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"product": product})
}

func (a *API) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var form domain.ProductForm
	if err := decodeJSON(r, &form); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	product, err := a.service.UpdateProduct(r.Context(), id, form)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"product": product})
}

func (a *API) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := a.service.DeleteProduct(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleGetCart(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"cart": a.service.Cart()})
}

func (a *API) handleClearCart(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"cart": a.service.ClearCart(r.Context())})
}

func (a *API) handleAddCartItem(w http.ResponseWriter, r *http.Request) {
	var req domain.AddItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	view, err := a.service.AddToCart(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cart": view})
}

func (a *API) handleAddMiscItem(w http.ResponseWriter, r *http.Request) {
	var req domain.AddMiscItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	view, err := a.service.AddMiscItem(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cart": view})
}

func (a *API) handleUpdateCartItem(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	view, err := a.service.UpdateCartItem(r.Context(), chi.URLParam(r, "lineID"), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cart": view})
}

func (a *API) handleRemoveCartItem(w http.ResponseWriter, r *http.Request) {
	view, err := a.service.RemoveCartItem(r.Context(), chi.URLParam(r, "lineID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cart": view})
}

func (a *API) handleConfirmSale(w http.ResponseWriter, r *http.Request) {
	var req domain.ConfirmSaleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sale, err := a.service.ConfirmSale(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"sale": sale})
}

func (a *API) handleReportSummary(w http.ResponseWriter, r *http.Request) {
	report, err := a.service.ReportSummary(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (a *API) handleListSales(w http.ResponseWriter, r *http.Request) {
	limit := parsePositiveLimit(r.URL.Query().Get("limit"), 50, 500)
	sales, err := a.service.ListSales(r.Context(), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sales": sales})
}

func (a *API) handleGetSale(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sale, err := a.service.GetSale(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sale": sale})
}

func (a *API) handleCancelSale(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var req domain.CancelSaleRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sale, err := a.service.CancelSale(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sale": sale})
}

// handleSaleTicket answers 200 with the file path even when printing fails,
// since the document itself was written.
func (a *API) handleSaleTicket(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var req domain.TicketRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	result, err := a.service.SaleTicket(r.Context(), id, req)
	if err != nil {
		if result.Path == "" {
			writeServiceError(w, err)
			return
		}
		zap.L().Warn("ticket written but not printed", zap.Int64("sale_id", id), zap.Error(err))
		writeJSON(w, http.StatusOK, map[string]any{"ticket": result, "print_error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ticket": result})
}

func (a *API) handleExportSales(w http.ResponseWriter, r *http.Request) {
	result, err := a.service.ExportSalesWorkbook(r.Context())
	a.writeExport(w, result, err)
}

func (a *API) handleExportInventory(w http.ResponseWriter, r *http.Request) {
	result, err := a.service.ExportInventoryWorkbook(r.Context())
	a.writeExport(w, result, err)
}

func (a *API) handleExportReport(w http.ResponseWriter, r *http.Request) {
	result, err := a.service.ExportSalesReport(r.Context())
	a.writeExport(w, result, err)
}

func (a *API) writeExport(w http.ResponseWriter, result domain.ExportResult, err error) {
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"export": result})
}
