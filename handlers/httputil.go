package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/aj9599/rent-ledger/backend/models"
)

// UserHeader names the acting user in the activity log.
const UserHeader = "X-User"

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

// respondServiceError maps ledger error kinds to HTTP statuses. Store
// failures are logged and reported without detail.
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrValidation):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrSequenceGap):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, models.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	default:
		log.Printf("[API] Internal error: %v", err)
		respondError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func actor(r *http.Request) string {
	if u := r.Header.Get(UserHeader); u != "" {
		return u
	}
	return "admin"
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}
