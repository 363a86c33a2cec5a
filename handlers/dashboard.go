package handlers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/aj9599/rent-ledger/backend/models"
	"github.com/aj9599/rent-ledger/backend/services"
)

// ActivityLister reads back the activity log.
type ActivityLister interface {
	List(limit int, month, tenant string) ([]models.ActivityLog, error)
}

type DashboardHandler struct {
	ledger *services.Ledger
	logs   ActivityLister
}

func NewDashboardHandler(ledger *services.Ledger, logs ActivityLister) *DashboardHandler {
	return &DashboardHandler{ledger: ledger, logs: logs}
}

// GetDashboard serves the dashboard for ?month=, defaulting to the current month.
func (h *DashboardHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	month := r.URL.Query().Get("month")
	if month == "" {
		month = h.ledger.CurrentMonth()
	}
	dash, err := h.ledger.Dashboard(month)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dash)
}

func (h *DashboardHandler) GetLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 100
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	logs, err := h.logs.List(limit, q.Get("month"), q.Get("tenant"))
	if err != nil {
		log.Printf("[ACTIVITY] Failed to list activity logs: %v", err)
		respondError(w, http.StatusInternalServerError, "Database error")
		return
	}
	respondJSON(w, http.StatusOK, logs)
}
