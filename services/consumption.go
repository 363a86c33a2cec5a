package services

import (
	"fmt"
	"math"

	"github.com/aj9599/rent-ledger/backend/models"
)

// DefaultSecondFloorOffset is the fixed allowance added to property B's
// second-floor consumption before the owner's share is derived.
const DefaultSecondFloorOffset = 200.0

// ConsumptionCalculator turns cumulative meter readings into per-month deltas.
type ConsumptionCalculator struct {
	SecondFloorOffset float64
}

func NewConsumptionCalculator(offset float64) *ConsumptionCalculator {
	return &ConsumptionCalculator{SecondFloorOffset: offset}
}

// ComputeA derives property A consumption. previous is the nearest earlier
// record of the series; without one the month is a baseline and every delta is 0.
func (c *ConsumptionCalculator) ComputeA(current models.MeterReadingsA, previous *models.MeterReadingsA) (models.ConsumptionA, error) {
	if err := checkReadings(
		named{"main_meter", current.MainMeter},
		named{"first_floor_meter", current.FirstFloorMeter},
		named{"second_floor_meter", current.SecondFloorMeter},
		named{"water_meter", current.WaterMeter},
	); err != nil {
		return models.ConsumptionA{}, err
	}
	if previous == nil {
		return models.ConsumptionA{}, nil
	}

	var out models.ConsumptionA
	var err error
	if out.TotalConsumed, err = delta("main_meter", current.MainMeter, previous.MainMeter); err != nil {
		return models.ConsumptionA{}, err
	}
	if out.FirstFloorConsumed, err = delta("first_floor_meter", current.FirstFloorMeter, previous.FirstFloorMeter); err != nil {
		return models.ConsumptionA{}, err
	}
	if out.SecondFloorConsumed, err = delta("second_floor_meter", current.SecondFloorMeter, previous.SecondFloorMeter); err != nil {
		return models.ConsumptionA{}, err
	}
	if out.WaterConsumed, err = delta("water_meter", current.WaterMeter, previous.WaterMeter); err != nil {
		return models.ConsumptionA{}, err
	}

	// a main meter reset can leave the floors above the main delta
	out.GroundFloorConsumed = math.Max(0, out.TotalConsumed-out.FirstFloorConsumed-out.SecondFloorConsumed)
	return out, nil
}

// ComputeB derives property B consumption: the second floor is billed its own
// delta plus the fixed offset, and the remainder of the main meter is "self".
func (c *ConsumptionCalculator) ComputeB(current models.MeterReadingsB, previous *models.MeterReadingsB) (models.ConsumptionB, error) {
	if err := checkReadings(
		named{"main_meter", current.MainMeter},
		named{"second_floor_meter", current.SecondFloorMeter},
	); err != nil {
		return models.ConsumptionB{}, err
	}
	if previous == nil {
		return models.ConsumptionB{}, nil
	}

	var out models.ConsumptionB
	var err error
	if out.TotalConsumed, err = delta("main_meter", current.MainMeter, previous.MainMeter); err != nil {
		return models.ConsumptionB{}, err
	}
	if out.SecondFloorConsumed, err = delta("second_floor_meter", current.SecondFloorMeter, previous.SecondFloorMeter); err != nil {
		return models.ConsumptionB{}, err
	}
	out.FinalSecondFloor = out.SecondFloorConsumed + c.SecondFloorOffset
	out.Self = math.Max(0, out.TotalConsumed-out.FinalSecondFloor)
	return out, nil
}

type named struct {
	name  string
	value *float64
}

func checkReadings(readings ...named) error {
	for _, r := range readings {
		if r.value == nil {
			continue
		}
		v := *r.value
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("%w: %s must be a non-negative number", models.ErrValidation, r.name)
		}
	}
	return nil
}

// delta is max(0, cur-prev). A field never read before has no baseline and
// yields 0; a field read before but missing now cannot be computed.
func delta(name string, cur, prev *float64) (float64, error) {
	if prev == nil {
		return 0, nil
	}
	if cur == nil {
		return 0, fmt.Errorf("%w: %s reading is required (previous reading %.2f)", models.ErrValidation, name, *prev)
	}
	return math.Max(0, *cur-*prev), nil
}
