package services

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/aj9599/rent-ledger/backend/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// june25 is the ledger clock used by these tests: January 26 is in the future.
var june25 = time.Date(2025, time.June, 15, 9, 30, 0, 0, time.UTC)

type memoryRecorder struct {
	mu      sync.Mutex
	entries []models.ActivityLog
}

func (r *memoryRecorder) Record(entry models.ActivityLog) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
}

func (r *memoryRecorder) activities() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.Activity
	}
	return out
}

func newTestLedger(t *testing.T, dir string) (*Ledger, *memoryRecorder) {
	t.Helper()
	rec := &memoryRecorder{}
	l, err := NewLedger(Options{
		DataDir:  dir,
		Activity: rec,
		Now:      func() time.Time { return june25 },
	})
	require.NoError(t, err)
	return l, rec
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func dp(s string) *decimal.Decimal {
	v := d(s)
	return &v
}

func assertMoney(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.Truef(t, d(want).Equal(got), "want %s, got %s %v", want, got, msgAndArgs)
}

func addAugustAndSeptemberA(t *testing.T, l *Ledger) {
	t.Helper()
	_, err := l.UpdateMeterA("August 24", models.MeterReadingsA{
		MainMeter: f(1000), FirstFloorMeter: f(100), SecondFloorMeter: f(50),
	}, true, "tester")
	require.NoError(t, err)
	_, err = l.UpdateMeterA("September 24", models.MeterReadingsA{
		MainMeter: f(1300), FirstFloorMeter: f(150), SecondFloorMeter: f(90),
	}, true, "tester")
	require.NoError(t, err)
}

func TestSeptemberEnergyCharge(t *testing.T) {
	l, _ := newTestLedger(t, t.TempDir())
	addAugustAndSeptemberA(t, l)

	sep, ok := l.MetersA.Find("September 24")
	require.True(t, ok)
	assert.Equal(t, 300.0, sep.TotalConsumed)
	assert.Equal(t, 50.0, sep.FirstFloorConsumed)
	assert.Equal(t, 40.0, sep.SecondFloorConsumed)
	assert.Equal(t, 210.0, sep.GroundFloorConsumed)

	rec, err := l.Record("A-88 1st", "September 24")
	require.NoError(t, err)
	assertMoney(t, "400", rec.EnergyCharges)
	assertMoney(t, "16400", rec.TotalRent)
	assert.Equal(t, models.StatusNotPaid, rec.Status)
	assert.False(t, rec.IsFuture)

	charges := l.EnergyCharges("September 24")
	assertMoney(t, "1680", charges["A-88 Ground"])
	assertMoney(t, "320", charges["A-88 2nd"])
	_, billed := charges["A-81 1st"]
	assert.False(t, billed)
}

func TestZeroEnergyRate(t *testing.T) {
	zero := decimal.Zero
	l, err := NewLedger(Options{
		DataDir:    t.TempDir(),
		EnergyRate: &zero,
		Now:        func() time.Time { return june25 },
	})
	require.NoError(t, err)
	assert.True(t, l.EnergyRate().IsZero())

	addAugustAndSeptemberA(t, l)
	rec, err := l.Record("A-88 1st", "September 24")
	require.NoError(t, err)
	assert.True(t, rec.EnergyCharges.IsZero())
	assertMoney(t, "16000", rec.TotalRent)
}

func TestMeterGapIsRejected(t *testing.T) {
	dir := t.TempDir()
	l, _ := newTestLedger(t, dir)
	_, err := l.UpdateMeterA("August 24", models.MeterReadingsA{MainMeter: f(1000)}, true, "tester")
	require.NoError(t, err)

	_, err = l.UpdateMeterA("October 24", models.MeterReadingsA{MainMeter: f(1200)}, true, "tester")
	assert.ErrorIs(t, err, models.ErrSequenceGap)
	_, err = l.UpdateMeterB("October 24", models.MeterReadingsB{MainMeter: f(10)}, nil, true, "tester")
	assert.ErrorIs(t, err, models.ErrSequenceGap)

	assert.False(t, l.MonthExists("October 24"))
	_, hasRent := l.Rent.Find("October 24")
	assert.False(t, hasRent)
}

func TestMeterGapOnEmptyLedger(t *testing.T) {
	l, _ := newTestLedger(t, t.TempDir())

	_, err := l.UpdateMeterA("October 24", models.MeterReadingsA{MainMeter: f(1200)}, true, "tester")
	assert.ErrorIs(t, err, models.ErrSequenceGap)

	next, ok := l.NextMonth()
	require.True(t, ok)
	assert.Equal(t, "August 24", next)
}

func TestMeterBaselineFromOtherProperty(t *testing.T) {
	l, _ := newTestLedger(t, t.TempDir())
	_, err := l.UpdateMeterB("August 24", models.MeterReadingsB{MainMeter: f(5000), SecondFloorMeter: f(1000)}, nil, true, "tester")
	require.NoError(t, err)

	// September A has no A predecessor, but August exists in B
	rec, err := l.UpdateMeterA("September 24", models.MeterReadingsA{MainMeter: f(700)}, true, "tester")
	require.NoError(t, err)
	assert.Equal(t, 0.0, rec.TotalConsumed)
}

func TestMeterEntryMode(t *testing.T) {
	l, _ := newTestLedger(t, t.TempDir())
	addAugustAndSeptemberA(t, l)

	_, err := l.UpdateMeterA("August 24", models.MeterReadingsA{MainMeter: f(1000)}, true, "tester")
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = l.UpdateMeterA("October 24", models.MeterReadingsA{MainMeter: f(1400)}, false, "tester")
	assert.ErrorIs(t, err, models.ErrNotFound)

	for _, month := range []string{"Agust 24", "July 24", "January 28"} {
		_, err = l.UpdateMeterA(month, models.MeterReadingsA{MainMeter: f(1)}, true, "tester")
		assert.ErrorIs(t, err, models.ErrValidation, month)
	}
}

func TestMeterPartialUpdateKeepsReadings(t *testing.T) {
	l, rec := newTestLedger(t, t.TempDir())
	addAugustAndSeptemberA(t, l)

	got, err := l.UpdateMeterA("September 24", models.MeterReadingsA{WaterMeter: f(30)}, false, "tester")
	require.NoError(t, err)
	require.NotNil(t, got.MainMeter)
	assert.Equal(t, 1300.0, *got.MainMeter)
	assert.Equal(t, 30.0, *got.WaterMeter)
	// August has no water reading, so there is no baseline
	assert.Equal(t, 0.0, got.WaterConsumed)
	assert.Equal(t, 210.0, got.GroundFloorConsumed)

	assert.Equal(t, ActivityMeterUpdated, rec.activities()[len(rec.activities())-1])
}

func TestEditingEarlierMonthRecomputesFollower(t *testing.T) {
	l, rec := newTestLedger(t, t.TempDir())
	addAugustAndSeptemberA(t, l)

	before, err := l.Record("A-88 Ground", "September 24")
	require.NoError(t, err)
	assertMoney(t, "1680", before.EnergyCharges)

	_, err = l.UpdateMeterA("August 24", models.MeterReadingsA{MainMeter: f(1100)}, false, "tester")
	require.NoError(t, err)

	sep, _ := l.MetersA.Find("September 24")
	assert.Equal(t, 200.0, sep.TotalConsumed)
	assert.Equal(t, 110.0, sep.GroundFloorConsumed)
	assert.Contains(t, rec.activities(), ActivityMeterRecompute)

	after, err := l.Record("A-88 Ground", "September 24")
	require.NoError(t, err)
	assertMoney(t, "880", after.EnergyCharges)
}

func TestEditingEarlierMonthCannotBreakFollower(t *testing.T) {
	l, _ := newTestLedger(t, t.TempDir())
	addAugustAndSeptemberA(t, l)

	// September has no water reading to measure against a new August one
	_, err := l.UpdateMeterA("August 24", models.MeterReadingsA{WaterMeter: f(20)}, false, "tester")
	assert.ErrorIs(t, err, models.ErrValidation)

	aug, _ := l.MetersA.Find("August 24")
	assert.Nil(t, aug.WaterMeter)
	sep, _ := l.MetersA.Find("September 24")
	assert.Equal(t, 300.0, sep.TotalConsumed)
}

func TestMainMeterResetIsRecorded(t *testing.T) {
	l, _ := newTestLedger(t, t.TempDir())
	_, err := l.UpdateMeterA("August 24", models.MeterReadingsA{
		MainMeter: f(1000), FirstFloorMeter: f(100), SecondFloorMeter: f(50),
	}, true, "tester")
	require.NoError(t, err)

	sep, err := l.UpdateMeterA("September 24", models.MeterReadingsA{
		MainMeter: f(10), FirstFloorMeter: f(150), SecondFloorMeter: f(90),
	}, true, "tester")
	require.NoError(t, err)
	assert.Equal(t, 0.0, sep.TotalConsumed)
	assert.Equal(t, 0.0, sep.GroundFloorConsumed)
	assert.Equal(t, 50.0, sep.FirstFloorConsumed)

	_, ok := l.MetersA.Find("September 24")
	assert.True(t, ok)

	ground, err := l.Record("A-88 Ground", "September 24")
	require.NoError(t, err)
	assertMoney(t, "0", ground.EnergyCharges)
	first, err := l.Record("A-88 1st", "September 24")
	require.NoError(t, err)
	assertMoney(t, "400", first.EnergyCharges)

	// an earlier edit that resets the follower's main delta is accepted too
	_, err = l.UpdateMeterA("August 24", models.MeterReadingsA{MainMeter: f(5)}, false, "tester")
	require.NoError(t, err)
	got, _ := l.MetersA.Find("September 24")
	assert.Equal(t, 5.0, got.TotalConsumed)
	assert.Equal(t, 0.0, got.GroundFloorConsumed)
}

func TestPropertyBEnergyAndGas(t *testing.T) {
	l, _ := newTestLedger(t, t.TempDir())
	_, err := l.UpdateMeterB("August 24", models.MeterReadingsB{MainMeter: f(5000), SecondFloorMeter: f(1000)}, nil, true, "tester")
	require.NoError(t, err)
	b, err := l.UpdateMeterB("September 24", models.MeterReadingsB{MainMeter: f(5600), SecondFloorMeter: f(1150)}, dp("900"), true, "tester")
	require.NoError(t, err)
	assert.Equal(t, 350.0, b.FinalSecondFloor)
	assert.Equal(t, 250.0, b.Self)

	rec, err := l.Record("A-81 2nd", "September 24")
	require.NoError(t, err)
	assertMoney(t, "2800", rec.EnergyCharges)
	assertMoney(t, "900", rec.GasBill)
	assertMoney(t, "25700", rec.TotalRent)

	_, err = l.UpdateMeterB("September 24", models.MeterReadingsB{}, dp("-1"), false, "tester")
	assert.ErrorIs(t, err, models.ErrValidation)

	// gas bill survives a readings-only edit
	b, err = l.UpdateMeterB("September 24", models.MeterReadingsB{SecondFloorMeter: f(1100)}, nil, false, "tester")
	require.NoError(t, err)
	require.NotNil(t, b.GasBill)
	assertMoney(t, "900", *b.GasBill)
	rec, err = l.Record("A-81 2nd", "September 24")
	require.NoError(t, err)
	assertMoney(t, "2400", rec.EnergyCharges)
}

func TestNewMeterMonthGeneratesRent(t *testing.T) {
	l, rec := newTestLedger(t, t.TempDir())
	startLater := "October 24"
	_, err := l.UpdateTenantConfig("A-81 2nd", models.TenantConfigUpdate{RentStartMonth: &startLater}, "tester")
	require.NoError(t, err)

	_, err = l.UpdateMeterA("August 24", models.MeterReadingsA{MainMeter: f(1000)}, true, "tester")
	require.NoError(t, err)

	row, ok := l.Rent.Find("August 24")
	require.True(t, ok)
	assert.Equal(t, []string{"A-81 1st", "A-88 1st", "A-88 2nd", "A-88 Ground"}, row.TenantKeys())
	assertMoney(t, "2000", row.Lines["A-81 1st"].Maintenance)
	assert.Equal(t, models.StatusNotPaid, row.Lines["A-88 1st"].Status)
	assert.Contains(t, rec.activities(), ActivityRentGenerated)
}

func TestGenerateMonthKeepsExistingLines(t *testing.T) {
	l, _ := newTestLedger(t, t.TempDir())
	_, err := l.Adjust("A-88 1st", "March 25", models.RentAdjustment{BaseRent: dp("15500")}, "tester")
	require.NoError(t, err)

	require.NoError(t, l.GenerateMonth("March 25", "tester"))

	records := l.RecordsForMonth("March 25")
	assert.Len(t, records, 5)
	rec, err := l.Record("A-88 1st", "March 25")
	require.NoError(t, err)
	assertMoney(t, "15500", rec.BaseRent)

	version := l.Rent.Version()
	require.NoError(t, l.GenerateMonth("March 25", "tester"))
	assert.Equal(t, version, l.Rent.Version())
}

func TestAdvancePayment(t *testing.T) {
	l, rec := newTestLedger(t, t.TempDir())
	status := models.StatusNotPaid

	got, err := l.Adjust("A-81 1st", "January 26", models.RentAdjustment{TotalRent: dp("29000"), Status: &status}, "tester")
	require.NoError(t, err)
	assertMoney(t, "29000", got.TotalRent)
	assertMoney(t, "25000", got.BaseRent)
	assertMoney(t, "2000", got.Maintenance)
	assert.True(t, got.TotalPinned)
	assert.True(t, got.IsFuture)
	assert.Equal(t, []string{ActivityAdvancePayment}, rec.activities())

	dash, err := l.Dashboard("January 26")
	require.NoError(t, err)
	require.Len(t, dash.PendingDues, 1)
	assert.Equal(t, "A-81 1st", dash.PendingDues[0].TenantKey)
	assertMoney(t, "29000", dash.PendingDues[0].Amount)
	assertMoney(t, "29000", dash.Summary.Pending)
}

func TestPinnedTotal(t *testing.T) {
	dir := t.TempDir()
	l, _ := newTestLedger(t, dir)
	_, err := l.Adjust("A-81 1st", "January 26", models.RentAdjustment{TotalRent: dp("29000")}, "tester")
	require.NoError(t, err)

	reopened, _ := newTestLedger(t, dir)
	rec, err := reopened.Record("A-81 1st", "January 26")
	require.NoError(t, err)
	assertMoney(t, "29000", rec.TotalRent)
	assert.True(t, rec.TotalPinned)

	// components change, the total does not
	rec, err = reopened.Adjust("A-81 1st", "January 26", models.RentAdjustment{Maintenance: dp("3000")}, "tester")
	require.NoError(t, err)
	assertMoney(t, "3000", rec.Maintenance)
	assertMoney(t, "29000", rec.TotalRent)

	rec, err = reopened.Adjust("A-81 1st", "January 26", models.RentAdjustment{UnpinTotal: true}, "tester")
	require.NoError(t, err)
	assert.False(t, rec.TotalPinned)
	assertMoney(t, "28000", rec.TotalRent)
}

func TestAdjustRejects(t *testing.T) {
	l, _ := newTestLedger(t, t.TempDir())
	bogus := models.RentStatus("Partially Paid")

	tests := []struct {
		name   string
		tenant string
		month  string
		adj    models.RentAdjustment
		kind   error
	}{
		{"negative amount", "A-88 1st", "March 25", models.RentAdjustment{Misc: dp("-5")}, models.ErrValidation},
		{"unknown status", "A-88 1st", "March 25", models.RentAdjustment{Status: &bogus}, models.ErrValidation},
		{"pin and unpin", "A-88 1st", "March 25", models.RentAdjustment{TotalRent: dp("1"), UnpinTotal: true}, models.ErrValidation},
		{"outside catalog", "A-88 1st", "March 30", models.RentAdjustment{}, models.ErrValidation},
		{"unknown tenant", "Nobody", "March 25", models.RentAdjustment{}, models.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.Adjust(tt.tenant, tt.month, tt.adj, "tester")
			assert.ErrorIs(t, err, tt.kind)
		})
	}
	assert.Equal(t, 0, l.Rent.Len())
}

func TestStoredEnergyOverridesDerived(t *testing.T) {
	l, _ := newTestLedger(t, t.TempDir())
	addAugustAndSeptemberA(t, l)

	rec, err := l.Adjust("A-88 1st", "September 24", models.RentAdjustment{EnergyCharges: dp("350")}, "tester")
	require.NoError(t, err)
	assertMoney(t, "350", rec.EnergyCharges)
	assertMoney(t, "16350", rec.TotalRent)
}

func TestMarkPaid(t *testing.T) {
	l, rec := newTestLedger(t, t.TempDir())
	addAugustAndSeptemberA(t, l)

	got, err := l.MarkPaid("A-88 1st", "September 24", "tester")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaid, got.Status)
	assertMoney(t, "16400", got.TotalRent)
	assert.Equal(t, ActivityRentPaid, rec.activities()[len(rec.activities())-1])
}

func TestPaidTotalSurvivesMeterEdits(t *testing.T) {
	dir := t.TempDir()
	l, _ := newTestLedger(t, dir)
	addAugustAndSeptemberA(t, l)

	_, err := l.MarkPaid("A-88 1st", "September 24", "tester")
	require.NoError(t, err)

	_, err = l.UpdateMeterA("August 24", models.MeterReadingsA{FirstFloorMeter: f(120)}, false, "tester")
	require.NoError(t, err)

	paid, err := l.Record("A-88 1st", "September 24")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaid, paid.Status)
	assertMoney(t, "400", paid.EnergyCharges)
	assertMoney(t, "16400", paid.TotalRent)

	// unpaid lines still follow the meters
	ground, err := l.Record("A-88 Ground", "September 24")
	require.NoError(t, err)
	assertMoney(t, "1840", ground.EnergyCharges)

	reopened, _ := newTestLedger(t, dir)
	paid, err = reopened.Record("A-88 1st", "September 24")
	require.NoError(t, err)
	assertMoney(t, "16400", paid.TotalRent)
}

func TestAdjustToPaidStoresCharges(t *testing.T) {
	l, _ := newTestLedger(t, t.TempDir())
	addAugustAndSeptemberA(t, l)

	status := models.StatusPaid
	_, err := l.Adjust("A-88 2nd", "September 24", models.RentAdjustment{Status: &status}, "tester")
	require.NoError(t, err)

	_, err = l.UpdateMeterA("August 24", models.MeterReadingsA{SecondFloorMeter: f(60)}, false, "tester")
	require.NoError(t, err)

	rec, err := l.Record("A-88 2nd", "September 24")
	require.NoError(t, err)
	assertMoney(t, "320", rec.EnergyCharges)
}

func TestMarkPaidMissingRecord(t *testing.T) {
	dir := t.TempDir()
	l, _ := newTestLedger(t, dir)
	addAugustAndSeptemberA(t, l)

	path := filepath.Join(dir, RentFile)
	before, err := os.ReadFile(path)
	require.NoError(t, err)
	version := l.Rent.Version()

	_, err = l.MarkPaid("A-88 1st", "March 25", "tester")
	assert.ErrorIs(t, err, models.ErrNotFound)
	_, err = l.MarkPaid("Nobody", "September 24", "tester")
	assert.ErrorIs(t, err, models.ErrNotFound)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, version, l.Rent.Version())
	_, ok := l.Rent.Find("March 25")
	assert.False(t, ok)
}

func TestTenantUpdateInvalidatesCharges(t *testing.T) {
	l, rec := newTestLedger(t, t.TempDir())
	addAugustAndSeptemberA(t, l)

	got, err := l.Record("A-88 1st", "September 24")
	require.NoError(t, err)
	assertMoney(t, "400", got.EnergyCharges)

	off := false
	name := "Priya"
	_, err = l.UpdateTenantConfig("A-88 1st", models.TenantConfigUpdate{BillsEnergy: &off, Name: &name}, "tester")
	require.NoError(t, err)

	got, err = l.Record("A-88 1st", "September 24")
	require.NoError(t, err)
	assert.True(t, got.EnergyCharges.IsZero())
	assert.Equal(t, "Priya", got.TenantName)
	assert.Equal(t, ActivityTenantUpdated, rec.activities()[len(rec.activities())-1])

	_, err = l.UpdateTenantConfig("Nobody", models.TenantConfigUpdate{Name: &name}, "tester")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestNextMonthAndMonthInfos(t *testing.T) {
	l, err := NewLedger(Options{
		DataDir:    t.TempDir(),
		FirstMonth: "August 24",
		LastMonth:  "September 24",
		Now:        func() time.Time { return time.Date(2024, time.August, 3, 0, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)

	addAugustAndSeptemberA(t, l)
	_, ok := l.NextMonth()
	assert.False(t, ok)

	infos := l.MonthInfos()
	require.Len(t, infos, 2)
	assert.Equal(t, models.MonthInfo{Month: "August 24", HasMeterA: true, HasRent: true}, infos[0])
	assert.True(t, infos[1].IsFuture)
	assert.True(t, l.MonthExists("September 24"))
}

func TestNextMonthAfterLatestReading(t *testing.T) {
	l, _ := newTestLedger(t, t.TempDir())
	addAugustAndSeptemberA(t, l)

	next, ok := l.NextMonth()
	require.True(t, ok)
	assert.Equal(t, "October 24", next)
}
