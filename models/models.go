package models

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

type RentStatus string

const (
	StatusPaid    RentStatus = "Paid"
	StatusNotPaid RentStatus = "Not Paid"
)

// Valid reports whether s is one of the two ledger statuses.
func (s RentStatus) Valid() bool {
	return s == StatusPaid || s == StatusNotPaid
}

const (
	PropertyA = "A"
	PropertyB = "B"

	FloorGround = "ground"
	FloorFirst  = "1st"
	FloorSecond = "2nd"
)

type TenantConfig struct {
	Key             string          `json:"key"`
	Name            string          `json:"name"`
	Phone           string          `json:"phone"`
	Address         string          `json:"address"`
	Property        string          `json:"property"`
	Floor           string          `json:"floor"`
	BaseRent        decimal.Decimal `json:"base_rent"`
	Maintenance     decimal.Decimal `json:"maintenance"`
	Misc            decimal.Decimal `json:"misc"`
	RentStartMonth  string          `json:"rent_start_month"`
	PaysMaintenance bool            `json:"pays_maintenance"`
	BillsEnergy     bool            `json:"bills_energy"`
	PaysGas         bool            `json:"pays_gas"`
	Notes           string          `json:"notes"`
}

// TenantConfigUpdate carries a partial tenant update; nil fields are left untouched.
type TenantConfigUpdate struct {
	Name            *string          `json:"name"`
	Phone           *string          `json:"phone"`
	Address         *string          `json:"address"`
	Property        *string          `json:"property"`
	Floor           *string          `json:"floor"`
	BaseRent        *decimal.Decimal `json:"base_rent"`
	Maintenance     *decimal.Decimal `json:"maintenance"`
	Misc            *decimal.Decimal `json:"misc"`
	RentStartMonth  *string          `json:"rent_start_month"`
	PaysMaintenance *bool            `json:"pays_maintenance"`
	BillsEnergy     *bool            `json:"bills_energy"`
	PaysGas         *bool            `json:"pays_gas"`
	Notes           *string          `json:"notes"`
}

// MeterReadingsA are the cumulative counters of property A. A nil reading was not taken.
type MeterReadingsA struct {
	MainMeter        *float64 `json:"main_meter,omitempty"`
	FirstFloorMeter  *float64 `json:"first_floor_meter,omitempty"`
	SecondFloorMeter *float64 `json:"second_floor_meter,omitempty"`
	WaterMeter       *float64 `json:"water_meter,omitempty"`
}

type ConsumptionA struct {
	TotalConsumed       float64 `json:"total_consumed"`
	FirstFloorConsumed  float64 `json:"first_floor_consumed"`
	SecondFloorConsumed float64 `json:"second_floor_consumed"`
	GroundFloorConsumed float64 `json:"ground_floor_consumed"`
	WaterConsumed       float64 `json:"water_consumed"`
}

type MeterRecordA struct {
	Month string `json:"month"`
	MeterReadingsA
	ConsumptionA
}

type MeterReadingsB struct {
	MainMeter        *float64 `json:"main_meter,omitempty"`
	SecondFloorMeter *float64 `json:"second_floor_meter,omitempty"`
}

type ConsumptionB struct {
	TotalConsumed       float64 `json:"total_consumed"`
	SecondFloorConsumed float64 `json:"second_floor_consumed"`
	FinalSecondFloor    float64 `json:"final_second_floor"`
	Self                float64 `json:"self"`
}

type MeterRecordB struct {
	Month string `json:"month"`
	MeterReadingsB
	ConsumptionB
	GasBill *decimal.Decimal `json:"gas_bill,omitempty"`
}

// RentLine is one tenant's stored rent entry for a month. Nil charges are
// derived on read; a pinned TotalRent is returned verbatim.
type RentLine struct {
	BaseRent      decimal.Decimal  `json:"base_rent"`
	Maintenance   decimal.Decimal  `json:"maintenance"`
	Misc          decimal.Decimal  `json:"misc"`
	EnergyCharges *decimal.Decimal `json:"energy_charges,omitempty"`
	GasBill       *decimal.Decimal `json:"gas_bill,omitempty"`
	TotalRent     *decimal.Decimal `json:"total_rent,omitempty"`
	TotalPinned   bool             `json:"total_pinned"`
	Status        RentStatus       `json:"status"`
}

// RentMonth is one row of the rent ledger: every tenant line for a month.
type RentMonth struct {
	Month string              `json:"month"`
	Lines map[string]RentLine `json:"lines"`
}

func (m RentMonth) Clone() RentMonth {
	lines := make(map[string]RentLine, len(m.Lines))
	for k, v := range m.Lines {
		lines[k] = v
	}
	return RentMonth{Month: m.Month, Lines: lines}
}

func (m RentMonth) TenantKeys() []string {
	keys := make([]string, 0, len(m.Lines))
	for k := range m.Lines {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// RentRecord is a fully resolved rent line as served to callers.
type RentRecord struct {
	Month         string          `json:"month"`
	TenantKey     string          `json:"tenant"`
	TenantName    string          `json:"name"`
	BaseRent      decimal.Decimal `json:"base_rent"`
	Maintenance   decimal.Decimal `json:"maintenance"`
	Misc          decimal.Decimal `json:"misc"`
	EnergyCharges decimal.Decimal `json:"energy_charges"`
	GasBill       decimal.Decimal `json:"gas_bill"`
	TotalRent     decimal.Decimal `json:"total_rent"`
	TotalPinned   bool            `json:"total_pinned"`
	Status        RentStatus      `json:"status"`
	IsFuture      bool            `json:"is_future"`
}

// RentAdjustment is a partial rent update. TotalRent pins the total; UnpinTotal releases it.
type RentAdjustment struct {
	BaseRent      *decimal.Decimal `json:"base_rent"`
	Maintenance   *decimal.Decimal `json:"maintenance"`
	Misc          *decimal.Decimal `json:"misc"`
	EnergyCharges *decimal.Decimal `json:"energy_charges"`
	GasBill       *decimal.Decimal `json:"gas_bill"`
	TotalRent     *decimal.Decimal `json:"total_rent"`
	UnpinTotal    bool             `json:"unpin_total"`
	Status        *RentStatus      `json:"status"`
}

type DashboardSummary struct {
	Expected     decimal.Decimal `json:"expected"`
	Collected    decimal.Decimal `json:"collected"`
	Pending      decimal.Decimal `json:"pending"`
	TotalTenants int             `json:"total_tenants"`
}

type PendingDue struct {
	TenantKey string          `json:"tenant"`
	Name      string          `json:"name"`
	Amount    decimal.Decimal `json:"amount"`
}

type TrendPoint struct {
	Month     string          `json:"month"`
	Expected  decimal.Decimal `json:"expected"`
	Collected decimal.Decimal `json:"collected"`
	Pending   decimal.Decimal `json:"pending"`
}

type Dashboard struct {
	Month        string           `json:"month"`
	Tenants      []RentRecord     `json:"tenants"`
	Summary      DashboardSummary `json:"summary"`
	PendingDues  []PendingDue     `json:"pending_dues"`
	MonthlyTrend []TrendPoint     `json:"monthly_trend"`
}

type MonthInfo struct {
	Month     string `json:"month"`
	HasMeterA bool   `json:"has_meter_a"`
	HasMeterB bool   `json:"has_meter_b"`
	HasRent   bool   `json:"has_rent"`
	IsFuture  bool   `json:"is_future"`
}

// ActivityLog is one append-only audit entry.
type ActivityLog struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Activity  string    `json:"activity"`
	Month     string    `json:"month"`
	Tenant    string    `json:"tenant"`
	Details   string    `json:"details"`
	OldValue  string    `json:"old_value"`
	NewValue  string    `json:"new_value"`
	User      string    `json:"user"`
}
