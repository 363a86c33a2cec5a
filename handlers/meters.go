package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/aj9599/rent-ledger/backend/models"
	"github.com/aj9599/rent-ledger/backend/services"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
)

type MeterHandler struct {
	ledger *services.Ledger
}

func NewMeterHandler(ledger *services.Ledger) *MeterHandler {
	return &MeterHandler{ledger: ledger}
}

type meterUpdateRequest struct {
	Month      string           `json:"month"`
	Readings   json.RawMessage  `json:"readings"`
	GasBill    *decimal.Decimal `json:"gas_bill"`
	IsNewEntry bool             `json:"is_new_entry"`
}

func seriesOf(r *http.Request) string {
	return strings.ToLower(mux.Vars(r)["series"])
}

// Update handles POST /api/meters/{series}.
func (h *MeterHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req meterUpdateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Month == "" {
		respondError(w, http.StatusBadRequest, "month is required")
		return
	}
	if len(req.Readings) == 0 {
		req.Readings = json.RawMessage("{}")
	}

	switch seriesOf(r) {
	case "a":
		if req.GasBill != nil {
			respondError(w, http.StatusBadRequest, "gas_bill only applies to meter series b")
			return
		}
		var readings models.MeterReadingsA
		if err := json.Unmarshal(req.Readings, &readings); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid readings")
			return
		}
		rec, err := h.ledger.UpdateMeterA(req.Month, readings, req.IsNewEntry, actor(r))
		if err != nil {
			respondServiceError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, rec)
	case "b":
		var readings models.MeterReadingsB
		if err := json.Unmarshal(req.Readings, &readings); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid readings")
			return
		}
		rec, err := h.ledger.UpdateMeterB(req.Month, readings, req.GasBill, req.IsNewEntry, actor(r))
		if err != nil {
			respondServiceError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, rec)
	default:
		respondError(w, http.StatusNotFound, "Unknown meter series")
	}
}

func (h *MeterHandler) List(w http.ResponseWriter, r *http.Request) {
	switch seriesOf(r) {
	case "a":
		respondJSON(w, http.StatusOK, h.ledger.MetersA.ReadAll())
	case "b":
		respondJSON(w, http.StatusOK, h.ledger.MetersB.ReadAll())
	default:
		respondError(w, http.StatusNotFound, "Unknown meter series")
	}
}

func (h *MeterHandler) Get(w http.ResponseWriter, r *http.Request) {
	month := mux.Vars(r)["month"]
	var (
		rec   any
		found bool
	)
	switch seriesOf(r) {
	case "a":
		rec, found = h.ledger.MetersA.Find(month)
	case "b":
		rec, found = h.ledger.MetersB.Find(month)
	default:
		respondError(w, http.StatusNotFound, "Unknown meter series")
		return
	}
	if !found {
		respondError(w, http.StatusNotFound, "No meter readings for "+month)
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

func (h *MeterHandler) NextMonth(w http.ResponseWriter, r *http.Request) {
	next, ok := h.ledger.NextMonth()
	resp := map[string]any{"month": nil, "catalog_exhausted": !ok}
	if ok {
		resp["month"] = next
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *MeterHandler) MonthExists(w http.ResponseWriter, r *http.Request) {
	month := mux.Vars(r)["month"]
	respondJSON(w, http.StatusOK, map[string]any{
		"month":  month,
		"exists": h.ledger.MonthExists(month),
	})
}

func (h *MeterHandler) Months(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"current_month": h.ledger.CurrentMonth(),
		"months":        h.ledger.MonthInfos(),
	})
}
