package services

import (
	"sort"
	"sync"

	"github.com/aj9599/rent-ledger/backend/models"
	"github.com/shopspring/decimal"
)

// TrendWindow is how many rent-ledger entries the monthly trend covers.
const TrendWindow = 12

// DashboardAggregator folds the rent ledger into per-month summaries. Results
// are cached per month and clock month, and the whole cache is dropped on any
// ledger write.
type DashboardAggregator struct {
	ledger *Ledger

	mu    sync.Mutex
	gen   uint64
	cache map[dashboardKey]models.Dashboard
}

// dashboardKey includes the clock month because records carry is_future.
type dashboardKey struct {
	month   string
	current string
}

func NewDashboardAggregator(l *Ledger) *DashboardAggregator {
	return &DashboardAggregator{ledger: l, cache: map[dashboardKey]models.Dashboard{}}
}

func (d *DashboardAggregator) Reset() {
	d.mu.Lock()
	d.gen++
	d.cache = map[dashboardKey]models.Dashboard{}
	d.mu.Unlock()
}

// Get returns the dashboard for month. The result is shared with the cache
// and must be treated as read-only.
func (d *DashboardAggregator) Get(month string) models.Dashboard {
	key := dashboardKey{month: month, current: d.ledger.CurrentMonth()}
	d.mu.Lock()
	cached, ok := d.cache[key]
	gen := d.gen
	d.mu.Unlock()
	if ok {
		return cached
	}

	dash := d.build(month)
	d.mu.Lock()
	if d.gen == gen {
		d.cache[key] = dash
	}
	d.mu.Unlock()
	return dash
}

func (d *DashboardAggregator) build(month string) models.Dashboard {
	l := d.ledger
	records := l.RecordsForMonth(month)

	dash := models.Dashboard{
		Month:        month,
		Tenants:      records,
		PendingDues:  []models.PendingDue{},
		MonthlyTrend: []models.TrendPoint{},
	}
	if dash.Tenants == nil {
		dash.Tenants = []models.RentRecord{}
	}
	dash.Summary = summarize(records)
	for _, r := range records {
		if r.Status != models.StatusPaid {
			dash.PendingDues = append(dash.PendingDues, models.PendingDue{
				TenantKey: r.TenantKey,
				Name:      r.TenantName,
				Amount:    r.TotalRent,
			})
		}
	}

	for _, row := range d.trendRows(month) {
		s := summarize(l.resolveRow(row))
		dash.MonthlyTrend = append(dash.MonthlyTrend, models.TrendPoint{
			Month:     row.Month,
			Expected:  s.Expected,
			Collected: s.Collected,
			Pending:   s.Pending,
		})
	}
	return dash
}

// trendRows picks the last TrendWindow rent-ledger entries at or before
// month, in catalog order. Months without an entry are skipped, so the
// window spans entries, not calendar months.
func (d *DashboardAggregator) trendRows(month string) []models.RentMonth {
	months := d.ledger.Months
	target, ok := months.Index(month)
	if !ok {
		return nil
	}

	var rows []models.RentMonth
	for _, row := range d.ledger.Rent.ReadAll() {
		if i, ok := months.Index(row.Month); ok && i <= target {
			rows = append(rows, row)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return months.Compare(rows[i].Month, rows[j].Month) < 0
	})
	if len(rows) > TrendWindow {
		rows = rows[len(rows)-TrendWindow:]
	}
	return rows
}

func summarize(records []models.RentRecord) models.DashboardSummary {
	s := models.DashboardSummary{
		Expected:     decimal.Zero,
		Collected:    decimal.Zero,
		TotalTenants: len(records),
	}
	for _, r := range records {
		s.Expected = s.Expected.Add(r.TotalRent)
		if r.Status == models.StatusPaid {
			s.Collected = s.Collected.Add(r.TotalRent)
		}
	}
	s.Pending = s.Expected.Sub(s.Collected)
	return s
}

// Dashboard is the dashboard view of month.
func (l *Ledger) Dashboard(month string) (models.Dashboard, error) {
	if err := l.checkMonth(month); err != nil {
		return models.Dashboard{}, err
	}
	return l.dashboards.Get(month), nil
}
