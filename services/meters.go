package services

import (
	"fmt"
	"log"

	"github.com/aj9599/rent-ledger/backend/models"
	"github.com/shopspring/decimal"
)

// UpdateMeterA stores readings for property A. isNewEntry must match whether
// the month already has a row. Consumption is recomputed for the month and
// for the next recorded month, whose baseline this month is.
func (l *Ledger) UpdateMeterA(month string, readings models.MeterReadingsA, isNewEntry bool, user string) (models.MeterRecordA, error) {
	if err := l.checkMonth(month); err != nil {
		return models.MeterRecordA{}, err
	}

	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	existing, found := l.MetersA.Find(month)
	if err := checkEntryMode("A", month, isNewEntry, found); err != nil {
		return models.MeterRecordA{}, err
	}
	if !found {
		if err := l.requireBaseline(month); err != nil {
			return models.MeterRecordA{}, err
		}
	}

	merged := mergeReadingsA(existing.MeterReadingsA, readings)
	var prev *models.MeterReadingsA
	if p, ok := previousRow(l.Months, l.MetersA, month); ok {
		prev = &p.MeterReadingsA
	}
	consumption, err := l.consumption.ComputeA(merged, prev)
	if err != nil {
		return models.MeterRecordA{}, err
	}
	record := models.MeterRecordA{Month: month, MeterReadingsA: merged, ConsumptionA: consumption}

	// validate the follower before anything is written
	follower, hasFollower := nextRow(l.Months, l.MetersA, month)
	if hasFollower {
		if follower.ConsumptionA, err = l.consumption.ComputeA(follower.MeterReadingsA, &merged); err != nil {
			return models.MeterRecordA{}, fmt.Errorf("%s would break %s: %w", month, follower.Month, err)
		}
	}

	if _, err := l.MetersA.Upsert(month, func(models.MeterRecordA, bool) (models.MeterRecordA, error) {
		return record, nil
	}); err != nil {
		return models.MeterRecordA{}, err
	}
	log.Printf("[METER] A %s saved: total %.2f, ground %.2f, 1st %.2f, 2nd %.2f",
		month, consumption.TotalConsumed, consumption.GroundFloorConsumed,
		consumption.FirstFloorConsumed, consumption.SecondFloorConsumed)
	l.recordMeterActivity("A", month, isNewEntry, existing, found, record, user)

	if hasFollower {
		if _, err := l.MetersA.Upsert(follower.Month, func(models.MeterRecordA, bool) (models.MeterRecordA, error) {
			return follower, nil
		}); err != nil {
			return record, err
		}
		l.activity.Record(models.ActivityLog{
			Activity: ActivityMeterRecompute,
			Month:    follower.Month,
			Details:  fmt.Sprintf("Property A consumption recomputed after %s changed", month),
			NewValue: snapshot(follower),
			User:     user,
		})
	}

	if isNewEntry {
		if err := l.generateMonth(month, user); err != nil {
			return record, err
		}
	}
	return record, nil
}

// UpdateMeterB stores readings and the gas bill for property B.
func (l *Ledger) UpdateMeterB(month string, readings models.MeterReadingsB, gasBill *decimal.Decimal, isNewEntry bool, user string) (models.MeterRecordB, error) {
	if err := l.checkMonth(month); err != nil {
		return models.MeterRecordB{}, err
	}
	if gasBill != nil && gasBill.IsNegative() {
		return models.MeterRecordB{}, fmt.Errorf("%w: gas_bill cannot be negative", models.ErrValidation)
	}

	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	existing, found := l.MetersB.Find(month)
	if err := checkEntryMode("B", month, isNewEntry, found); err != nil {
		return models.MeterRecordB{}, err
	}
	if !found {
		if err := l.requireBaseline(month); err != nil {
			return models.MeterRecordB{}, err
		}
	}

	merged := mergeReadingsB(existing.MeterReadingsB, readings)
	var prev *models.MeterReadingsB
	if p, ok := previousRow(l.Months, l.MetersB, month); ok {
		prev = &p.MeterReadingsB
	}
	consumption, err := l.consumption.ComputeB(merged, prev)
	if err != nil {
		return models.MeterRecordB{}, err
	}
	record := models.MeterRecordB{Month: month, MeterReadingsB: merged, ConsumptionB: consumption, GasBill: existing.GasBill}
	if gasBill != nil {
		g := *gasBill
		record.GasBill = &g
	}

	follower, hasFollower := nextRow(l.Months, l.MetersB, month)
	if hasFollower {
		if follower.ConsumptionB, err = l.consumption.ComputeB(follower.MeterReadingsB, &merged); err != nil {
			return models.MeterRecordB{}, fmt.Errorf("%s would break %s: %w", month, follower.Month, err)
		}
	}

	if _, err := l.MetersB.Upsert(month, func(models.MeterRecordB, bool) (models.MeterRecordB, error) {
		return record, nil
	}); err != nil {
		return models.MeterRecordB{}, err
	}
	log.Printf("[METER] B %s saved: total %.2f, final 2nd %.2f, self %.2f",
		month, consumption.TotalConsumed, consumption.FinalSecondFloor, consumption.Self)
	l.recordMeterActivity("B", month, isNewEntry, existing, found, record, user)

	if hasFollower {
		if _, err := l.MetersB.Upsert(follower.Month, func(models.MeterRecordB, bool) (models.MeterRecordB, error) {
			return follower, nil
		}); err != nil {
			return record, err
		}
		l.activity.Record(models.ActivityLog{
			Activity: ActivityMeterRecompute,
			Month:    follower.Month,
			Details:  fmt.Sprintf("Property B consumption recomputed after %s changed", month),
			NewValue: snapshot(follower),
			User:     user,
		})
	}

	if isNewEntry {
		if err := l.generateMonth(month, user); err != nil {
			return record, err
		}
	}
	return record, nil
}

// NextMonth is the catalog month after the latest month holding meter
// readings, or the first catalog month when nothing is recorded yet.
func (l *Ledger) NextMonth() (string, bool) {
	latest := -1
	for _, months := range [][]string{l.MetersA.Months(), l.MetersB.Months()} {
		for _, m := range months {
			if i, ok := l.Months.Index(m); ok && i > latest {
				latest = i
			}
		}
	}
	if latest < 0 {
		return l.Months.First(), true
	}
	return l.Months.Next(l.Months.Months()[latest])
}

// MonthExists reports whether either meter ledger has a row for month.
func (l *Ledger) MonthExists(month string) bool {
	if _, ok := l.MetersA.Find(month); ok {
		return true
	}
	_, ok := l.MetersB.Find(month)
	return ok
}

// MonthInfos lists the catalog with per-month presence flags.
func (l *Ledger) MonthInfos() []models.MonthInfo {
	current := l.CurrentMonth()
	months := l.Months.Months()
	out := make([]models.MonthInfo, len(months))
	for i, m := range months {
		_, hasA := l.MetersA.Find(m)
		_, hasB := l.MetersB.Find(m)
		_, hasRent := l.Rent.Find(m)
		out[i] = models.MonthInfo{
			Month:     m,
			HasMeterA: hasA,
			HasMeterB: hasB,
			HasRent:   hasRent,
			IsFuture:  l.Months.IsFuture(m, current),
		}
	}
	return out
}

// requireBaseline rejects a new meter month whose catalog predecessor has no
// meter row in either ledger. The first catalog month is exempt.
func (l *Ledger) requireBaseline(month string) error {
	prev, ok := l.Months.Prev(month)
	if !ok {
		return nil
	}
	if l.MonthExists(prev) {
		return nil
	}
	return fmt.Errorf("%w: add meter readings for %s before %s", models.ErrSequenceGap, prev, month)
}

func checkEntryMode(series, month string, isNewEntry, found bool) error {
	if isNewEntry && found {
		return fmt.Errorf("%w: meter ledger %s already has %s", models.ErrValidation, series, month)
	}
	if !isNewEntry && !found {
		return fmt.Errorf("%w: meter ledger %s has no entry for %s", models.ErrNotFound, series, month)
	}
	return nil
}

func (l *Ledger) recordMeterActivity(series, month string, isNewEntry bool, old any, found bool, record any, user string) {
	activity := ActivityMeterUpdated
	if isNewEntry {
		activity = ActivityMeterAdded
	}
	entry := models.ActivityLog{
		Activity: activity,
		Month:    month,
		Details:  fmt.Sprintf("Property %s meter readings saved for %s", series, month),
		NewValue: snapshot(record),
		User:     user,
	}
	if found {
		entry.OldValue = snapshot(old)
	}
	l.activity.Record(entry)
}

func mergeReadingsA(base, upd models.MeterReadingsA) models.MeterReadingsA {
	base.MainMeter = pick(base.MainMeter, upd.MainMeter)
	base.FirstFloorMeter = pick(base.FirstFloorMeter, upd.FirstFloorMeter)
	base.SecondFloorMeter = pick(base.SecondFloorMeter, upd.SecondFloorMeter)
	base.WaterMeter = pick(base.WaterMeter, upd.WaterMeter)
	return base
}

func mergeReadingsB(base, upd models.MeterReadingsB) models.MeterReadingsB {
	base.MainMeter = pick(base.MainMeter, upd.MainMeter)
	base.SecondFloorMeter = pick(base.SecondFloorMeter, upd.SecondFloorMeter)
	return base
}

func pick(old, upd *float64) *float64 {
	if upd == nil {
		return old
	}
	v := *upd
	return &v
}
