package services

import (
	"fmt"
	"log"
	"strings"

	"github.com/aj9599/rent-ledger/backend/models"
	"github.com/shopspring/decimal"
)

// Record resolves the rent record of tenant for month.
func (l *Ledger) Record(tenant, month string) (models.RentRecord, error) {
	if err := l.checkMonth(month); err != nil {
		return models.RentRecord{}, err
	}
	row, ok := l.Rent.Find(month)
	if !ok {
		return models.RentRecord{}, fmt.Errorf("%w: no rent entries for %s", models.ErrNotFound, month)
	}
	line, ok := row.Lines[tenant]
	if !ok {
		return models.RentRecord{}, fmt.Errorf("%w: no rent entry for %s in %s", models.ErrNotFound, tenant, month)
	}
	return l.resolve(month, tenant, line, l.energy.Charges(month), l.gasShares(month)), nil
}

// RecordsForMonth resolves every rent line of month, ordered by tenant key.
// A month without a rent row yields no records.
func (l *Ledger) RecordsForMonth(month string) []models.RentRecord {
	row, ok := l.Rent.Find(month)
	if !ok {
		return nil
	}
	return l.resolveRow(row)
}

func (l *Ledger) resolveRow(row models.RentMonth) []models.RentRecord {
	charges := l.energy.Charges(row.Month)
	gas := l.gasShares(row.Month)
	records := make([]models.RentRecord, 0, len(row.Lines))
	for _, tenant := range row.TenantKeys() {
		records = append(records, l.resolve(row.Month, tenant, row.Lines[tenant], charges, gas))
	}
	return records
}

// resolve fills in derived charges. Stored energy and gas amounts win over
// derivation, and a pinned total is returned as stored.
func (l *Ledger) resolve(month, tenant string, line models.RentLine, charges, gas map[string]decimal.Decimal) models.RentRecord {
	rec := models.RentRecord{
		Month:       month,
		TenantKey:   tenant,
		BaseRent:    line.BaseRent,
		Maintenance: line.Maintenance,
		Misc:        line.Misc,
		Status:      line.Status,
		IsFuture:    l.IsFuture(month),
	}
	if cfg, ok := l.Tenants.Get(tenant); ok {
		rec.TenantName = cfg.Name
	}
	if rec.Status == "" {
		rec.Status = models.StatusNotPaid
	}

	if line.EnergyCharges != nil {
		rec.EnergyCharges = *line.EnergyCharges
	} else {
		rec.EnergyCharges = charges[tenant]
	}
	if line.GasBill != nil {
		rec.GasBill = *line.GasBill
	} else {
		rec.GasBill = gas[tenant]
	}

	if line.TotalPinned && line.TotalRent != nil {
		rec.TotalRent = *line.TotalRent
		rec.TotalPinned = true
	} else {
		rec.TotalRent = rec.BaseRent.Add(rec.Maintenance).Add(rec.Misc).Add(rec.EnergyCharges).Add(rec.GasBill)
	}
	return rec
}

// settle stores the line's resolved energy and gas charges on it. Stored
// values already on the line are kept.
func (l *Ledger) settle(month, tenant string, line models.RentLine, charges, gas map[string]decimal.Decimal) models.RentLine {
	rec := l.resolve(month, tenant, line, charges, gas)
	if line.EnergyCharges == nil {
		v := rec.EnergyCharges
		line.EnergyCharges = &v
	}
	if line.GasBill == nil {
		v := rec.GasBill
		line.GasBill = &v
	}
	return line
}

// gasShares splits property B's gas bill for month evenly across the
// tenants that pay gas.
func (l *Ledger) gasShares(month string) map[string]decimal.Decimal {
	shares := map[string]decimal.Decimal{}
	b, ok := l.MetersB.Find(month)
	if !ok || b.GasBill == nil || b.GasBill.IsZero() {
		return shares
	}
	var payers []string
	for _, t := range l.Tenants.List() {
		if t.PaysGas {
			payers = append(payers, t.Key)
		}
	}
	if len(payers) == 0 {
		return shares
	}
	share := b.GasBill.Div(decimal.NewFromInt(int64(len(payers)))).Round(2)
	for _, key := range payers {
		shares[key] = share
	}
	return shares
}

// MarkPaid sets an existing rent line to Paid and stores its energy and gas
// charges, so later meter edits cannot change a collected total.
func (l *Ledger) MarkPaid(tenant, month, user string) (models.RentRecord, error) {
	if err := l.checkMonth(month); err != nil {
		return models.RentRecord{}, err
	}

	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	charges, gas := l.energy.Charges(month), l.gasShares(month)
	var oldStatus models.RentStatus
	_, err := l.Rent.Upsert(month, func(existing models.RentMonth, found bool) (models.RentMonth, error) {
		line, ok := existing.Lines[tenant]
		if !found || !ok {
			return existing, fmt.Errorf("%w: no rent entry for %s in %s", models.ErrNotFound, tenant, month)
		}
		oldStatus = line.Status
		row := existing.Clone()
		line.Status = models.StatusPaid
		row.Lines[tenant] = l.settle(month, tenant, line, charges, gas)
		return row, nil
	})
	if err != nil {
		return models.RentRecord{}, err
	}

	log.Printf("[RENT] %s marked paid for %s", tenant, month)
	rec, err := l.Record(tenant, month)
	if err != nil {
		return models.RentRecord{}, err
	}
	l.activity.Record(models.ActivityLog{
		Activity: ActivityRentPaid,
		Month:    month,
		Tenant:   tenant,
		Details:  fmt.Sprintf("Rent of %s marked paid (total %s)", tenant, rec.TotalRent),
		OldValue: string(oldStatus),
		NewValue: string(models.StatusPaid),
		User:     user,
	})
	return rec, nil
}

// Adjust upserts any subset of a rent line's fields, creating the line when
// absent (this is how advance payments for future months are entered). An
// explicit total is stored verbatim and pinned; it is not checked against
// the component sum.
func (l *Ledger) Adjust(tenant, month string, adj models.RentAdjustment, user string) (models.RentRecord, error) {
	if err := l.checkMonth(month); err != nil {
		return models.RentRecord{}, err
	}
	if err := validateAdjustment(adj); err != nil {
		return models.RentRecord{}, err
	}
	cfg, ok := l.Tenants.Get(tenant)
	if !ok {
		return models.RentRecord{}, fmt.Errorf("%w: tenant %q", models.ErrNotFound, tenant)
	}

	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	charges, gas := l.energy.Charges(month), l.gasShares(month)
	var before *models.RentLine
	_, err := l.Rent.Upsert(month, func(existing models.RentMonth, found bool) (models.RentMonth, error) {
		row := existing.Clone()
		row.Month = month
		line, ok := row.Lines[tenant]
		if ok {
			prev := line
			before = &prev
		} else {
			line = lineFromConfig(cfg)
		}
		updated := applyAdjustment(line, adj)
		if updated.Status == models.StatusPaid && line.Status != models.StatusPaid {
			updated = l.settle(month, tenant, updated, charges, gas)
		}
		row.Lines[tenant] = updated
		return row, nil
	})
	if err != nil {
		return models.RentRecord{}, err
	}

	rec, err := l.Record(tenant, month)
	if err != nil {
		return models.RentRecord{}, err
	}

	activity := ActivityRentAdjusted
	if before == nil && rec.IsFuture {
		activity = ActivityAdvancePayment
	}
	log.Printf("[RENT] %s adjusted for %s: total %s (%s)", tenant, month, rec.TotalRent, rec.Status)
	entry := models.ActivityLog{
		Activity: activity,
		Month:    month,
		Tenant:   tenant,
		Details:  describeAdjustment(adj),
		NewValue: snapshot(rec),
		User:     user,
	}
	if before != nil {
		entry.OldValue = snapshot(before)
	}
	l.activity.Record(entry)
	return rec, nil
}

// GenerateMonth adds a rent line for every tenant whose rent has started by
// month and who has no line yet. Existing lines are left alone.
func (l *Ledger) GenerateMonth(month, user string) error {
	if err := l.checkMonth(month); err != nil {
		return err
	}
	l.writeMu.Lock()
	defer l.writeMu.Unlock()
	return l.generateMonth(month, user)
}

func (l *Ledger) generateMonth(month, user string) error {
	existing, _ := l.Rent.Find(month)
	var missing []models.TenantConfig
	for _, t := range l.Tenants.List() {
		if _, ok := existing.Lines[t.Key]; ok {
			continue
		}
		if t.RentStartMonth != "" && l.Months.Compare(t.RentStartMonth, month) > 0 {
			continue
		}
		missing = append(missing, t)
	}
	if len(missing) == 0 {
		return nil
	}

	_, err := l.Rent.Upsert(month, func(existing models.RentMonth, _ bool) (models.RentMonth, error) {
		row := existing.Clone()
		row.Month = month
		for _, t := range missing {
			row.Lines[t.Key] = lineFromConfig(t)
		}
		return row, nil
	})
	if err != nil {
		return err
	}

	keys := make([]string, len(missing))
	for i, t := range missing {
		keys[i] = t.Key
	}
	log.Printf("[RENT] Generated %d rent entries for %s", len(missing), month)
	l.activity.Record(models.ActivityLog{
		Activity: ActivityRentGenerated,
		Month:    month,
		Details:  "Rent entries created for " + strings.Join(keys, ", "),
		User:     user,
	})
	return nil
}

// lineFromConfig snapshots the tenant's fixed charges into a fresh, unpaid line.
func lineFromConfig(t models.TenantConfig) models.RentLine {
	line := models.RentLine{
		BaseRent: t.BaseRent,
		Misc:     t.Misc,
		Status:   models.StatusNotPaid,
	}
	if t.PaysMaintenance {
		line.Maintenance = t.Maintenance
	}
	return line
}

func validateAdjustment(adj models.RentAdjustment) error {
	for _, f := range []struct {
		name  string
		value *decimal.Decimal
	}{
		{"base_rent", adj.BaseRent},
		{"maintenance", adj.Maintenance},
		{"misc", adj.Misc},
		{"energy_charges", adj.EnergyCharges},
		{"gas_bill", adj.GasBill},
		{"total_rent", adj.TotalRent},
	} {
		if f.value != nil && f.value.IsNegative() {
			return fmt.Errorf("%w: %s cannot be negative", models.ErrValidation, f.name)
		}
	}
	if adj.Status != nil && !adj.Status.Valid() {
		return fmt.Errorf("%w: status must be %q or %q", models.ErrValidation, models.StatusPaid, models.StatusNotPaid)
	}
	if adj.TotalRent != nil && adj.UnpinTotal {
		return fmt.Errorf("%w: total_rent and unpin_total are mutually exclusive", models.ErrValidation)
	}
	return nil
}

func applyAdjustment(line models.RentLine, adj models.RentAdjustment) models.RentLine {
	if adj.BaseRent != nil {
		line.BaseRent = *adj.BaseRent
	}
	if adj.Maintenance != nil {
		line.Maintenance = *adj.Maintenance
	}
	if adj.Misc != nil {
		line.Misc = *adj.Misc
	}
	if adj.EnergyCharges != nil {
		v := *adj.EnergyCharges
		line.EnergyCharges = &v
	}
	if adj.GasBill != nil {
		v := *adj.GasBill
		line.GasBill = &v
	}
	if adj.Status != nil {
		line.Status = *adj.Status
	}
	switch {
	case adj.TotalRent != nil:
		v := *adj.TotalRent
		line.TotalRent = &v
		line.TotalPinned = true
	case adj.UnpinTotal:
		line.TotalRent = nil
		line.TotalPinned = false
	}
	return line
}

func describeAdjustment(adj models.RentAdjustment) string {
	var parts []string
	add := func(name string, v *decimal.Decimal) {
		if v != nil {
			parts = append(parts, name+"="+v.String())
		}
	}
	add("base_rent", adj.BaseRent)
	add("maintenance", adj.Maintenance)
	add("misc", adj.Misc)
	add("energy_charges", adj.EnergyCharges)
	add("gas_bill", adj.GasBill)
	add("total_rent", adj.TotalRent)
	if adj.Status != nil {
		parts = append(parts, "status="+string(*adj.Status))
	}
	if adj.UnpinTotal {
		parts = append(parts, "unpin_total")
	}
	if len(parts) == 0 {
		return "no fields changed"
	}
	return strings.Join(parts, ", ")
}
