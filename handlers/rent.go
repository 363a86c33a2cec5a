package handlers

import (
	"bytes"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/aj9599/rent-ledger/backend/models"
	"github.com/aj9599/rent-ledger/backend/services"
	"github.com/gorilla/mux"
)

type RentHandler struct {
	ledger   *services.Ledger
	receipts *services.PDFGenerator
}

func NewRentHandler(ledger *services.Ledger, receipts *services.PDFGenerator) *RentHandler {
	return &RentHandler{ledger: ledger, receipts: receipts}
}

func (h *RentHandler) Get(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	rec, err := h.ledger.Record(vars["tenant"], vars["month"])
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

// ListMonth handles GET /api/rent/{month}.
func (h *RentHandler) ListMonth(w http.ResponseWriter, r *http.Request) {
	month := mux.Vars(r)["month"]
	if !h.ledger.Months.Contains(month) {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("month %q is outside the catalog", month))
		return
	}
	records := h.ledger.RecordsForMonth(month)
	if records == nil {
		records = []models.RentRecord{}
	}
	respondJSON(w, http.StatusOK, records)
}

func (h *RentHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var adj models.RentAdjustment
	if !decodeBody(w, r, &adj) {
		return
	}
	rec, err := h.ledger.Adjust(vars["tenant"], vars["month"], adj, actor(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

func (h *RentHandler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	rec, err := h.ledger.MarkPaid(vars["tenant"], vars["month"], actor(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

// Generate handles POST /api/rent/{month}/generate.
func (h *RentHandler) Generate(w http.ResponseWriter, r *http.Request) {
	month := mux.Vars(r)["month"]
	if err := h.ledger.GenerateMonth(month, actor(r)); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.ledger.RecordsForMonth(month))
}

func (h *RentHandler) Receipt(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	rec, err := h.ledger.Record(vars["tenant"], vars["month"])
	if err != nil {
		respondServiceError(w, err)
		return
	}
	tenant, _ := h.ledger.Tenants.Get(rec.TenantKey)

	var buf bytes.Buffer
	if err := h.receipts.WriteReceipt(&buf, rec, tenant); err != nil {
		log.Printf("[RECEIPT] Failed to render %s %s: %v", rec.TenantKey, rec.Month, err)
		respondError(w, http.StatusInternalServerError, "Failed to generate receipt")
		return
	}

	filename := strings.ReplaceAll(fmt.Sprintf("receipt-%s-%s.pdf", rec.TenantKey, rec.Month), " ", "_")
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%s", filename))
	w.Write(buf.Bytes())
}
