package services

import (
	"sync"

	"github.com/aj9599/rent-ledger/backend/models"
	"github.com/aj9599/rent-ledger/backend/storage"
	"github.com/shopspring/decimal"
)

// DefaultEnergyRate is the currency charged per consumed unit.
const DefaultEnergyRate = 8

// EnergyChargeCalculator prices each energy-billed tenant's consumption for a
// month. Results are memoized per month until that month's meter row changes.
type EnergyChargeCalculator struct {
	rate    decimal.Decimal
	tenants *TenantStore
	metersA *storage.RowStore[models.MeterRecordA]
	metersB *storage.RowStore[models.MeterRecordB]

	mu    sync.Mutex
	gen   uint64
	cache map[string]map[string]decimal.Decimal
}

func NewEnergyChargeCalculator(rate decimal.Decimal, tenants *TenantStore,
	metersA *storage.RowStore[models.MeterRecordA], metersB *storage.RowStore[models.MeterRecordB]) *EnergyChargeCalculator {
	return &EnergyChargeCalculator{
		rate:    rate,
		tenants: tenants,
		metersA: metersA,
		metersB: metersB,
		cache:   map[string]map[string]decimal.Decimal{},
	}
}

func (e *EnergyChargeCalculator) Rate() decimal.Decimal { return e.rate }

// Charges maps tenant key to energy charge for month. Tenants that are not
// energy-billed, or whose floor has no consumption field, are absent.
func (e *EnergyChargeCalculator) Charges(month string) map[string]decimal.Decimal {
	e.mu.Lock()
	cached, ok := e.cache[month]
	gen := e.gen
	e.mu.Unlock()
	if !ok {
		cached = e.compute(month)
		e.mu.Lock()
		// an invalidation while computing means the result may be stale
		if e.gen == gen {
			e.cache[month] = cached
		}
		e.mu.Unlock()
	}

	out := make(map[string]decimal.Decimal, len(cached))
	for k, v := range cached {
		out[k] = v
	}
	return out
}

// Invalidate drops the memoized charges of one month.
func (e *EnergyChargeCalculator) Invalidate(month string) {
	e.mu.Lock()
	e.gen++
	delete(e.cache, month)
	e.mu.Unlock()
}

// Reset drops every memoized month.
func (e *EnergyChargeCalculator) Reset() {
	e.mu.Lock()
	e.gen++
	e.cache = map[string]map[string]decimal.Decimal{}
	e.mu.Unlock()
}

func (e *EnergyChargeCalculator) compute(month string) map[string]decimal.Decimal {
	charges := map[string]decimal.Decimal{}
	a, hasA := e.metersA.Find(month)
	b, hasB := e.metersB.Find(month)
	if !hasA && !hasB {
		return charges
	}

	for _, t := range e.tenants.List() {
		if !t.BillsEnergy {
			continue
		}
		var units float64
		var mapped bool
		switch t.Property {
		case models.PropertyA:
			if hasA {
				units, mapped = consumptionA(a.ConsumptionA, t.Floor)
			}
		case models.PropertyB:
			if hasB {
				units, mapped = consumptionB(b.ConsumptionB, t.Floor)
			}
		}
		if mapped {
			charges[t.Key] = EnergyCharge(e.rate, units)
		}
	}
	return charges
}

// EnergyCharge prices units at rate, rounded to two decimals.
func EnergyCharge(rate decimal.Decimal, units float64) decimal.Decimal {
	return rate.Mul(decimal.NewFromFloat(units)).Round(2)
}

func consumptionA(c models.ConsumptionA, floor string) (float64, bool) {
	switch floor {
	case models.FloorGround:
		return c.GroundFloorConsumed, true
	case models.FloorFirst:
		return c.FirstFloorConsumed, true
	case models.FloorSecond:
		return c.SecondFloorConsumed, true
	}
	return 0, false
}

func consumptionB(c models.ConsumptionB, floor string) (float64, bool) {
	if floor == models.FloorSecond {
		return c.FinalSecondFloor, true
	}
	return 0, false
}
