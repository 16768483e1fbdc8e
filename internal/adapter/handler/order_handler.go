package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/srgjo27/floor_ledger/internal/core/domain"
	"github.com/srgjo27/floor_ledger/internal/core/services"
)

type OrderHandler struct {
	orders   *services.OrderService
	workflow *services.WorkflowService
}

func NewOrderHandler(orders *services.OrderService, workflow *services.WorkflowService) *OrderHandler {
	return &OrderHandler{orders: orders, workflow: workflow}
}

func (h *OrderHandler) Orders(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.orders.Orders())
	case http.MethodPost:
		var req services.CreateOrderRequest
		if !decode(w, r, &req) {
			return
		}
		order, err := h.orders.CreateOrder(r.Context(), req)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, order)
	default:
		methodNotAllowed(w)
	}
}

func (h *OrderHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req struct {
		OrderID uuid.UUID `json:"order_id"`
		Version int       `json:"version"`
		services.AddItemRequest
	}
	if !decode(w, r, &req) {
		return
	}

	order, err := h.orders.AddItem(r.Context(), req.OrderID, req.Version, req.AddItemRequest)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *OrderHandler) UpdateItemQuantity(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req struct {
		OrderID uuid.UUID `json:"order_id"`
		Version int       `json:"version"`
		ItemID  uuid.UUID `json:"item_id"`
		Delta   int       `json:"delta"`
	}
	if !decode(w, r, &req) {
		return
	}

	order, err := h.orders.UpdateItemQuantity(r.Context(), req.OrderID, req.Version, req.ItemID, req.Delta)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *OrderHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req struct {
		OrderID uuid.UUID `json:"order_id"`
		Version int       `json:"version"`
		ItemID  uuid.UUID `json:"item_id"`
	}
	if !decode(w, r, &req) {
		return
	}

	order, err := h.orders.RemoveItem(r.Context(), req.OrderID, req.Version, req.ItemID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *OrderHandler) UpdateItemStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req struct {
		OrderID uuid.UUID         `json:"order_id"`
		Version int               `json:"version"`
		ItemID  uuid.UUID         `json:"item_id"`
		Status  domain.ItemStatus `json:"status"`
	}
	if !decode(w, r, &req) {
		return
	}

	order, err := h.orders.UpdateItemStatus(r.Context(), req.OrderID, req.Version, req.ItemID, req.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// Adjust sets the caller-supplied discount and tip percentages.
func (h *OrderHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req struct {
		OrderID         uuid.UUID        `json:"order_id"`
		Version         int              `json:"version"`
		DiscountPercent *decimal.Decimal `json:"discount_percent,omitempty"`
		TipPercent      *decimal.Decimal `json:"tip_percent,omitempty"`
	}
	if !decode(w, r, &req) {
		return
	}
	order, err := h.orders.Adjust(r.Context(), req.OrderID, req.Version, req.DiscountPercent, req.TipPercent)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *OrderHandler) Transition(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req struct {
		OrderID uuid.UUID          `json:"order_id"`
		Version int                `json:"version"`
		Status  domain.OrderStatus `json:"status"`
	}
	if !decode(w, r, &req) {
		return
	}

	order, err := h.orders.Transition(r.Context(), req.OrderID, req.Version, req.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *OrderHandler) Attach(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req struct {
		OrderID      uuid.UUID  `json:"order_id"`
		OrderVersion int        `json:"order_version"`
		TableID      uuid.UUID  `json:"table_id"`
		TableVersion int        `json:"table_version"`
		ChairID      *uuid.UUID `json:"chair_id,omitempty"`
	}
	if !decode(w, r, &req) {
		return
	}

	order, table, err := h.workflow.Attach(r.Context(), req.OrderID, req.OrderVersion, req.TableID, req.TableVersion, req.ChairID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"order": order, "table": table})
}

func (h *OrderHandler) Hold(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req struct {
		OrderID uuid.UUID `json:"order_id"`
		Version int       `json:"version"`
	}
	if !decode(w, r, &req) {
		return
	}

	order, err := h.workflow.Hold(r.Context(), req.OrderID, req.Version)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *OrderHandler) Resume(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req struct {
		OrderID      uuid.UUID  `json:"order_id"`
		OrderVersion int        `json:"order_version"`
		TableID      uuid.UUID  `json:"table_id"`
		TableVersion int        `json:"table_version"`
		ChairID      *uuid.UUID `json:"chair_id,omitempty"`
	}
	if !decode(w, r, &req) {
		return
	}

	order, err := h.workflow.Resume(r.Context(), req.OrderID, req.OrderVersion, req.TableID, req.TableVersion, req.ChairID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *OrderHandler) Split(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req struct {
		OrderID    uuid.UUID                 `json:"order_id"`
		Version    int                       `json:"version"`
		Assignment map[uuid.UUID][]uuid.UUID `json:"assignment"`
	}
	if !decode(w, r, &req) {
		return
	}

	orders, err := h.workflow.Split(r.Context(), req.OrderID, req.Version, req.Assignment)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, orders)
}

func (h *OrderHandler) Merge(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req struct {
		Orders []services.OrderRef `json:"orders"`
	}
	if !decode(w, r, &req) {
		return
	}

	order, err := h.workflow.Merge(r.Context(), req.Orders)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

func (h *OrderHandler) Archive(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req struct {
		OrderID uuid.UUID `json:"order_id"`
	}
	if !decode(w, r, &req) {
		return
	}

	order, err := h.orders.ArchiveOrder(r.Context(), req.OrderID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}
