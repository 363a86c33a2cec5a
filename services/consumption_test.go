package services

import (
	"math"
	"testing"

	"github.com/aj9599/rent-ledger/backend/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f(v float64) *float64 { return &v }

func TestComputeA(t *testing.T) {
	calc := NewConsumptionCalculator(DefaultSecondFloorOffset)
	prev := models.MeterReadingsA{MainMeter: f(1000), FirstFloorMeter: f(100), SecondFloorMeter: f(50)}
	cur := models.MeterReadingsA{MainMeter: f(1300), FirstFloorMeter: f(150), SecondFloorMeter: f(90)}

	got, err := calc.ComputeA(cur, &prev)
	require.NoError(t, err)
	assert.Equal(t, models.ConsumptionA{
		TotalConsumed:       300,
		FirstFloorConsumed:  50,
		SecondFloorConsumed: 40,
		GroundFloorConsumed: 210,
	}, got)
	assert.Equal(t, got.TotalConsumed, got.GroundFloorConsumed+got.FirstFloorConsumed+got.SecondFloorConsumed)
}

func TestComputeABaselineIsZero(t *testing.T) {
	calc := NewConsumptionCalculator(DefaultSecondFloorOffset)
	got, err := calc.ComputeA(models.MeterReadingsA{MainMeter: f(1000), WaterMeter: f(12)}, nil)
	require.NoError(t, err)
	assert.Equal(t, models.ConsumptionA{}, got)
}

func TestComputeAClampsRollback(t *testing.T) {
	calc := NewConsumptionCalculator(DefaultSecondFloorOffset)
	prev := models.MeterReadingsA{MainMeter: f(1000), FirstFloorMeter: f(100), WaterMeter: f(40)}
	cur := models.MeterReadingsA{MainMeter: f(1200), FirstFloorMeter: f(90), WaterMeter: f(55)}

	got, err := calc.ComputeA(cur, &prev)
	require.NoError(t, err)
	assert.Equal(t, 200.0, got.TotalConsumed)
	assert.Equal(t, 0.0, got.FirstFloorConsumed)
	assert.Equal(t, 200.0, got.GroundFloorConsumed)
	assert.Equal(t, 15.0, got.WaterConsumed)
}

func TestComputeAMainMeterReset(t *testing.T) {
	calc := NewConsumptionCalculator(DefaultSecondFloorOffset)
	prev := models.MeterReadingsA{MainMeter: f(1000), FirstFloorMeter: f(100), SecondFloorMeter: f(50)}
	cur := models.MeterReadingsA{MainMeter: f(10), FirstFloorMeter: f(150), SecondFloorMeter: f(90)}

	got, err := calc.ComputeA(cur, &prev)
	require.NoError(t, err)
	assert.Equal(t, models.ConsumptionA{
		FirstFloorConsumed:  50,
		SecondFloorConsumed: 40,
	}, got)
}

func TestComputeAFloorsAboveMain(t *testing.T) {
	calc := NewConsumptionCalculator(DefaultSecondFloorOffset)
	prev := models.MeterReadingsA{MainMeter: f(1000), FirstFloorMeter: f(100), SecondFloorMeter: f(50)}
	cur := models.MeterReadingsA{MainMeter: f(1050), FirstFloorMeter: f(150), SecondFloorMeter: f(90)}

	got, err := calc.ComputeA(cur, &prev)
	require.NoError(t, err)
	assert.Equal(t, 50.0, got.TotalConsumed)
	assert.Equal(t, 0.0, got.GroundFloorConsumed)
}

func TestComputeAFieldWithoutBaseline(t *testing.T) {
	calc := NewConsumptionCalculator(DefaultSecondFloorOffset)
	prev := models.MeterReadingsA{MainMeter: f(1000)}
	cur := models.MeterReadingsA{MainMeter: f(1100), FirstFloorMeter: f(500)}

	got, err := calc.ComputeA(cur, &prev)
	require.NoError(t, err)
	assert.Equal(t, 0.0, got.FirstFloorConsumed)
	assert.Equal(t, 100.0, got.GroundFloorConsumed)
}

func TestComputeARejects(t *testing.T) {
	calc := NewConsumptionCalculator(DefaultSecondFloorOffset)
	prev := models.MeterReadingsA{MainMeter: f(1000), FirstFloorMeter: f(100), SecondFloorMeter: f(50)}

	tests := []struct {
		name string
		cur  models.MeterReadingsA
	}{
		{"negative reading", models.MeterReadingsA{MainMeter: f(-1), FirstFloorMeter: f(150), SecondFloorMeter: f(90)}},
		{"not a number", models.MeterReadingsA{MainMeter: f(math.NaN()), FirstFloorMeter: f(150), SecondFloorMeter: f(90)}},
		{"missing reading with baseline", models.MeterReadingsA{MainMeter: f(1300), SecondFloorMeter: f(90)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := calc.ComputeA(tt.cur, &prev)
			assert.ErrorIs(t, err, models.ErrValidation)
		})
	}
}

func TestComputeB(t *testing.T) {
	calc := NewConsumptionCalculator(DefaultSecondFloorOffset)
	prev := models.MeterReadingsB{MainMeter: f(5000), SecondFloorMeter: f(1000)}

	got, err := calc.ComputeB(models.MeterReadingsB{MainMeter: f(5600), SecondFloorMeter: f(1150)}, &prev)
	require.NoError(t, err)
	assert.Equal(t, models.ConsumptionB{
		TotalConsumed:       600,
		SecondFloorConsumed: 150,
		FinalSecondFloor:    350,
		Self:                250,
	}, got)

	// the offset can push the second floor past the main meter; self stays at zero
	got, err = calc.ComputeB(models.MeterReadingsB{MainMeter: f(5100), SecondFloorMeter: f(1050)}, &prev)
	require.NoError(t, err)
	assert.Equal(t, 250.0, got.FinalSecondFloor)
	assert.Equal(t, 0.0, got.Self)
}

func TestComputeBCustomOffset(t *testing.T) {
	calc := NewConsumptionCalculator(50)
	prev := models.MeterReadingsB{MainMeter: f(0), SecondFloorMeter: f(0)}

	got, err := calc.ComputeB(models.MeterReadingsB{MainMeter: f(400), SecondFloorMeter: f(100)}, &prev)
	require.NoError(t, err)
	assert.Equal(t, 150.0, got.FinalSecondFloor)
	assert.Equal(t, 250.0, got.Self)
}
