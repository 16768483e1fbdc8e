package handler

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/srgjo27/floor_ledger/internal/core/domain"
	"github.com/srgjo27/floor_ledger/internal/core/services"
)

type FloorHandler struct {
	svc *services.FloorService
}

func NewFloorHandler(svc *services.FloorService) *FloorHandler {
	return &FloorHandler{svc: svc}
}

func (h *FloorHandler) Tables(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		tables, err := h.svc.Tables(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, tables)
	case http.MethodPost:
		var req services.CreateTableRequest
		if !decode(w, r, &req) {
			return
		}
		table, err := h.svc.CreateTable(r.Context(), req)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, table)
	default:
		methodNotAllowed(w)
	}
}

func (h *FloorHandler) ResizeTable(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req struct {
		TableID  uuid.UUID `json:"table_id"`
		Version  int       `json:"version"`
		Capacity int       `json:"capacity"`
	}
	if !decode(w, r, &req) {
		return
	}

	table, err := h.svc.ResizeTable(r.Context(), req.TableID, req.Version, req.Capacity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, table)
}

func (h *FloorHandler) SetChairStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req struct {
		TableID uuid.UUID          `json:"table_id"`
		Version int                `json:"version"`
		ChairID uuid.UUID          `json:"chair_id"`
		Status  domain.ChairStatus `json:"status"`
	}
	if !decode(w, r, &req) {
		return
	}

	table, err := h.svc.SetChairStatus(r.Context(), req.TableID, req.Version, req.ChairID, req.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, table)
}

// TableOverride sets a reserved/cleaning override, or clears it when status
// is empty.
func (h *FloorHandler) TableOverride(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req struct {
		TableID uuid.UUID          `json:"table_id"`
		Version int                `json:"version"`
		Status  domain.TableStatus `json:"status,omitempty"`
	}
	if !decode(w, r, &req) {
		return
	}

	var (
		table domain.Table
		err   error
	)
	if req.Status == "" {
		table, err = h.svc.ClearTableOverride(r.Context(), req.TableID, req.Version)
	} else {
		table, err = h.svc.SetTableOverride(r.Context(), req.TableID, req.Version, req.Status)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, table)
}
