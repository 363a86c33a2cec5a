package handlers

import (
	"net/http"

	"github.com/aj9599/rent-ledger/backend/models"
	"github.com/aj9599/rent-ledger/backend/services"
	"github.com/gorilla/mux"
)

type TenantHandler struct {
	ledger *services.Ledger
}

func NewTenantHandler(ledger *services.Ledger) *TenantHandler {
	return &TenantHandler{ledger: ledger}
}

func (h *TenantHandler) List(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.ledger.Tenants.List())
}

func (h *TenantHandler) Get(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["tenant"]
	t, ok := h.ledger.Tenants.Get(key)
	if !ok {
		respondError(w, http.StatusNotFound, "Unknown tenant "+key)
		return
	}
	respondJSON(w, http.StatusOK, t)
}

func (h *TenantHandler) Update(w http.ResponseWriter, r *http.Request) {
	var upd models.TenantConfigUpdate
	if !decodeBody(w, r, &upd) {
		return
	}
	t, err := h.ledger.UpdateTenantConfig(mux.Vars(r)["tenant"], upd, actor(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, t)
}
