package services

import (
	"database/sql"
	"encoding/json"
	"log"
	"time"

	"github.com/aj9599/rent-ledger/backend/models"
	"github.com/google/uuid"
)

const (
	ActivityMeterAdded     = "meter_added"
	ActivityMeterUpdated   = "meter_updated"
	ActivityMeterRecompute = "meter_recomputed"
	ActivityRentGenerated  = "rent_generated"
	ActivityRentAdjusted   = "rent_adjusted"
	ActivityAdvancePayment = "advance_payment"
	ActivityRentPaid       = "rent_paid"
	ActivityTenantUpdated  = "tenant_updated"
)

// ActivityRecorder receives a change notification for every ledger mutation.
type ActivityRecorder interface {
	Record(entry models.ActivityLog)
}

type discardRecorder struct{}

func (discardRecorder) Record(models.ActivityLog) {}

// ActivityLogService appends change entries to the activity_logs table.
type ActivityLogService struct {
	db  *sql.DB
	now func() time.Time
}

func NewActivityLogService(db *sql.DB) *ActivityLogService {
	return &ActivityLogService{db: db, now: time.Now}
}

// Record writes entry. Failures are logged and never fail the mutation that
// produced the entry.
func (s *ActivityLogService) Record(entry models.ActivityLog) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = s.now()
	}
	if entry.User == "" {
		entry.User = "system"
	}

	_, err := s.db.Exec(`
		INSERT INTO activity_logs (id, timestamp, activity, month, tenant, details, old_value, new_value, user)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, entry.ID, entry.Timestamp.UTC(), entry.Activity, entry.Month, entry.Tenant,
		entry.Details, entry.OldValue, entry.NewValue, entry.User)
	if err != nil {
		log.Printf("[ACTIVITY] Failed to write activity log: %v", err)
	}
}

// List returns the newest entries first, optionally filtered by month and tenant.
func (s *ActivityLogService) List(limit int, month, tenant string) ([]models.ActivityLog, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	rows, err := s.db.Query(`
		SELECT id, timestamp, activity, month, tenant, details, old_value, new_value, user
		FROM activity_logs
		WHERE (? = '' OR month = ?) AND (? = '' OR tenant = ?)
		ORDER BY timestamp DESC
		LIMIT ?
	`, month, month, tenant, tenant, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := []models.ActivityLog{}
	for rows.Next() {
		var l models.ActivityLog
		var m, t, details, oldValue, newValue, user sql.NullString
		if err := rows.Scan(&l.ID, &l.Timestamp, &l.Activity, &m, &t, &details, &oldValue, &newValue, &user); err != nil {
			log.Printf("[ACTIVITY] Failed to scan activity row: %v", err)
			continue
		}
		l.Month, l.Tenant, l.Details = m.String, t.String, details.String
		l.OldValue, l.NewValue, l.User = oldValue.String, newValue.String, user.String
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// snapshot renders v for the old/new value columns of an activity entry.
func snapshot(v any) string {
	if v == nil {
		return ""
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
