package services

import (
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/aj9599/rent-ledger/backend/models"
	"github.com/aj9599/rent-ledger/backend/storage"
	"github.com/shopspring/decimal"
)

const (
	RentFile    = "rent.csv"
	MetersAFile = "meters_a.csv"
	MetersBFile = "meters_b.csv"
	TenantsFile = "tenants.csv"
)

type Options struct {
	DataDir           string
	FirstMonth        string
	LastMonth         string
	// EnergyRate is the price per consumed unit; nil means DefaultEnergyRate.
	EnergyRate        *decimal.Decimal
	SecondFloorOffset float64
	DefaultTenants    []models.TenantConfig
	Activity          ActivityRecorder
	Observer          storage.WriteObserver
	Now               func() time.Time
}

// Ledger owns the tenant store, the three month-keyed ledgers and the derived
// caches. It is built once at startup and handed to every handler.
type Ledger struct {
	// writeMu serializes every mutation, including the file rewrite and
	// cache invalidation it triggers.
	writeMu sync.Mutex

	Months  *MonthSequence
	Tenants *TenantStore
	MetersA *storage.RowStore[models.MeterRecordA]
	MetersB *storage.RowStore[models.MeterRecordB]
	Rent    *storage.RowStore[models.RentMonth]

	consumption *ConsumptionCalculator
	energy      *EnergyChargeCalculator
	dashboards  *DashboardAggregator
	activity    ActivityRecorder
	now         func() time.Time
}

func NewLedger(opts Options) (*Ledger, error) {
	if opts.FirstMonth == "" {
		opts.FirstMonth = DefaultFirstMonth
	}
	if opts.LastMonth == "" {
		opts.LastMonth = DefaultLastMonth
	}
	if opts.SecondFloorOffset == 0 {
		opts.SecondFloorOffset = DefaultSecondFloorOffset
	}
	rate := decimal.NewFromInt(DefaultEnergyRate)
	if opts.EnergyRate != nil {
		rate = *opts.EnergyRate
	}
	if opts.DefaultTenants == nil {
		opts.DefaultTenants = DefaultTenants()
	}
	if opts.Activity == nil {
		opts.Activity = discardRecorder{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	months, err := NewMonthSequence(opts.FirstMonth, opts.LastMonth)
	if err != nil {
		return nil, err
	}

	tenants, err := OpenTenantStore(filepath.Join(opts.DataDir, TenantsFile), opts.DefaultTenants)
	if err != nil {
		return nil, fmt.Errorf("load tenants: %w", err)
	}
	metersA, err := storage.Open[models.MeterRecordA]("meters_a", filepath.Join(opts.DataDir, MetersAFile), storage.MeterACodec{}, months)
	if err != nil {
		return nil, fmt.Errorf("load meter ledger A: %w", err)
	}
	metersB, err := storage.Open[models.MeterRecordB]("meters_b", filepath.Join(opts.DataDir, MetersBFile), storage.MeterBCodec{}, months)
	if err != nil {
		return nil, fmt.Errorf("load meter ledger B: %w", err)
	}
	rent, err := storage.Open[models.RentMonth]("rent", filepath.Join(opts.DataDir, RentFile), storage.RentCodec{}, months)
	if err != nil {
		return nil, fmt.Errorf("load rent ledger: %w", err)
	}

	l := &Ledger{
		Months:      months,
		Tenants:     tenants,
		MetersA:     metersA,
		MetersB:     metersB,
		Rent:        rent,
		consumption: NewConsumptionCalculator(opts.SecondFloorOffset),
		activity:    opts.Activity,
		now:         opts.Now,
	}
	l.energy = NewEnergyChargeCalculator(rate, tenants, metersA, metersB)
	l.dashboards = NewDashboardAggregator(l)

	if opts.Observer != nil {
		metersA.SetObserver(opts.Observer)
		metersB.SetObserver(opts.Observer)
		rent.SetObserver(opts.Observer)
	}

	metersA.SetInsertGuard(l.requireBaseline)
	metersB.SetInsertGuard(l.requireBaseline)

	// Any write clears every dashboard; a meter write also clears that
	// month's energy charges.
	metersA.OnChange(func(month string) {
		l.energy.Invalidate(month)
		l.dashboards.Reset()
	})
	metersB.OnChange(func(month string) {
		l.energy.Invalidate(month)
		l.dashboards.Reset()
	})
	rent.OnChange(func(string) { l.dashboards.Reset() })
	tenants.OnChange(func(string) {
		l.energy.Reset()
		l.dashboards.Reset()
	})

	log.Printf("[LEDGER] Ready: %d catalog months (%s to %s), %d tenants, energy rate %s/unit",
		months.Len(), months.First(), months.Last(), len(tenants.List()), rate)
	return l, nil
}

func (l *Ledger) EnergyRate() decimal.Decimal { return l.energy.Rate() }

// EnergyCharges exposes the memoized per-tenant energy charges of month.
func (l *Ledger) EnergyCharges(month string) map[string]decimal.Decimal {
	return l.energy.Charges(month)
}

// CurrentMonth is the catalog token for the ledger clock's month.
func (l *Ledger) CurrentMonth() string {
	return CurrentMonth(l.now())
}

func (l *Ledger) IsFuture(month string) bool {
	return l.Months.IsFuture(month, l.CurrentMonth())
}

func (l *Ledger) checkMonth(month string) error {
	if _, err := ParseMonth(month); err != nil {
		return err
	}
	if !l.Months.Contains(month) {
		return fmt.Errorf("%w: month %q is outside the catalog (%s to %s)",
			models.ErrValidation, month, l.Months.First(), l.Months.Last())
	}
	return nil
}

// UpdateTenantConfig applies a partial tenant update.
func (l *Ledger) UpdateTenantConfig(key string, upd models.TenantConfigUpdate, user string) (models.TenantConfig, error) {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	old, updated, err := l.Tenants.Update(key, upd, l.Months.Contains)
	if err != nil {
		return models.TenantConfig{}, err
	}

	log.Printf("[TENANTS] Updated tenant %q", key)
	l.activity.Record(models.ActivityLog{
		Activity: ActivityTenantUpdated,
		Tenant:   key,
		Details:  fmt.Sprintf("Tenant %s configuration updated", key),
		OldValue: snapshot(old),
		NewValue: snapshot(updated),
		User:     user,
	})
	return updated, nil
}

// previousRow finds the nearest earlier catalog month with a row in store.
func previousRow[T any](months *MonthSequence, store *storage.RowStore[T], month string) (T, bool) {
	for m, ok := months.Prev(month); ok; m, ok = months.Prev(m) {
		if row, found := store.Find(m); found {
			return row, true
		}
	}
	var zero T
	return zero, false
}

// nextRow finds the nearest later catalog month with a row in store.
func nextRow[T any](months *MonthSequence, store *storage.RowStore[T], month string) (T, bool) {
	for m, ok := months.Next(month); ok; m, ok = months.Next(m) {
		if row, found := store.Find(m); found {
			return row, true
		}
	}
	var zero T
	return zero, false
}
