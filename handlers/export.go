package handlers

import (
	"encoding/csv"
	"fmt"
	"log"
	"net/http"

	"github.com/aj9599/rent-ledger/backend/services"
)

type ExportHandler struct {
	ledger *services.Ledger
}

func NewExportHandler(ledger *services.Ledger) *ExportHandler {
	return &ExportHandler{ledger: ledger}
}

// ExportData streams one ledger in its on-disk CSV layout.
func (h *ExportHandler) ExportData(w http.ResponseWriter, r *http.Request) {
	exportType := r.URL.Query().Get("type")

	var header []string
	var records [][]string
	switch exportType {
	case "rent":
		header, records = h.ledger.Rent.Records()
	case "meters_a":
		header, records = h.ledger.MetersA.Records()
	case "meters_b":
		header, records = h.ledger.MetersB.Records()
	default:
		respondError(w, http.StatusBadRequest, "type must be one of rent, meters_a, meters_b")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s-export.csv", exportType))

	writer := csv.NewWriter(w)
	if err := writer.Write(header); err != nil {
		log.Printf("Export error: %v", err)
		return
	}
	if err := writer.WriteAll(records); err != nil {
		log.Printf("Export error: %v", err)
	}
}
