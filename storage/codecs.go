package storage

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/aj9599/rent-ledger/backend/models"
	"github.com/shopspring/decimal"
)

var meterAHeader = []string{
	"Month",
	"MainMeter", "FirstFloorMeter", "SecondFloorMeter", "WaterMeter",
	"TotalConsumed", "FirstFloorConsumed", "SecondFloorConsumed", "GroundFloorConsumed", "WaterConsumed",
}

var meterBHeader = []string{
	"Month",
	"MainMeter", "SecondFloorMeter",
	"TotalConsumed", "SecondFloorConsumed", "FinalSecondFloor", "Self",
	"GasBill",
}

// Rent ledger columns are "<tenant>_<field>", one group per tenant present.
var rentFields = []string{
	"BaseRent", "Maintenance", "Misc", "EnergyCharges", "GasBill", "TotalRent", "Status", "TotalPinned",
}

type MeterACodec struct{}

func (MeterACodec) Key(r models.MeterRecordA) string { return r.Month }

func (MeterACodec) Header([]models.MeterRecordA) []string { return meterAHeader }

func (MeterACodec) Encode(_ []string, r models.MeterRecordA) []string {
	return []string{
		r.Month,
		formatReading(r.MainMeter), formatReading(r.FirstFloorMeter),
		formatReading(r.SecondFloorMeter), formatReading(r.WaterMeter),
		formatUnits(r.TotalConsumed), formatUnits(r.FirstFloorConsumed),
		formatUnits(r.SecondFloorConsumed), formatUnits(r.GroundFloorConsumed),
		formatUnits(r.WaterConsumed),
	}
}

func (MeterACodec) Decode(header, record []string) (models.MeterRecordA, error) {
	idx := columnIndex(header)
	p := parser{record: record, idx: idx}
	r := models.MeterRecordA{Month: field(record, idx, "Month")}
	r.MainMeter = p.reading("MainMeter")
	r.FirstFloorMeter = p.reading("FirstFloorMeter")
	r.SecondFloorMeter = p.reading("SecondFloorMeter")
	r.WaterMeter = p.reading("WaterMeter")
	r.TotalConsumed = p.units("TotalConsumed")
	r.FirstFloorConsumed = p.units("FirstFloorConsumed")
	r.SecondFloorConsumed = p.units("SecondFloorConsumed")
	r.GroundFloorConsumed = p.units("GroundFloorConsumed")
	r.WaterConsumed = p.units("WaterConsumed")
	if r.Month == "" {
		return r, fmt.Errorf("missing Month")
	}
	return r, p.err
}

type MeterBCodec struct{}

func (MeterBCodec) Key(r models.MeterRecordB) string { return r.Month }

func (MeterBCodec) Header([]models.MeterRecordB) []string { return meterBHeader }

func (MeterBCodec) Encode(_ []string, r models.MeterRecordB) []string {
	return []string{
		r.Month,
		formatReading(r.MainMeter), formatReading(r.SecondFloorMeter),
		formatUnits(r.TotalConsumed), formatUnits(r.SecondFloorConsumed),
		formatUnits(r.FinalSecondFloor), formatUnits(r.Self),
		formatMoney(r.GasBill),
	}
}

func (MeterBCodec) Decode(header, record []string) (models.MeterRecordB, error) {
	idx := columnIndex(header)
	p := parser{record: record, idx: idx}
	r := models.MeterRecordB{Month: field(record, idx, "Month")}
	r.MainMeter = p.reading("MainMeter")
	r.SecondFloorMeter = p.reading("SecondFloorMeter")
	r.TotalConsumed = p.units("TotalConsumed")
	r.SecondFloorConsumed = p.units("SecondFloorConsumed")
	r.FinalSecondFloor = p.units("FinalSecondFloor")
	r.Self = p.units("Self")
	r.GasBill = p.money("GasBill")
	if r.Month == "" {
		return r, fmt.Errorf("missing Month")
	}
	return r, p.err
}

type RentCodec struct{}

func (RentCodec) Key(r models.RentMonth) string { return r.Month }

// Header lists every tenant seen in any row so the table stays rectangular.
func (RentCodec) Header(rows []models.RentMonth) []string {
	tenants := map[string]bool{}
	for _, row := range rows {
		for key := range row.Lines {
			tenants[key] = true
		}
	}
	keys := make([]string, 0, len(tenants))
	for key := range tenants {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	header := []string{"Month"}
	for _, key := range keys {
		for _, f := range rentFields {
			header = append(header, key+"_"+f)
		}
	}
	return header
}

func (RentCodec) Encode(header []string, r models.RentMonth) []string {
	record := make([]string, len(header))
	record[0] = r.Month
	for i := 1; i < len(header); i++ {
		tenant, f, ok := splitRentColumn(header[i])
		if !ok {
			continue
		}
		line, present := r.Lines[tenant]
		if !present {
			continue
		}
		record[i] = encodeRentField(line, f)
	}
	return record
}

func (RentCodec) Decode(header, record []string) (models.RentMonth, error) {
	idx := columnIndex(header)
	r := models.RentMonth{Month: field(record, idx, "Month"), Lines: map[string]models.RentLine{}}
	if r.Month == "" {
		return r, fmt.Errorf("missing Month")
	}

	for i, name := range header {
		if i >= len(record) || strings.TrimSpace(record[i]) == "" {
			continue
		}
		tenant, f, ok := splitRentColumn(name)
		if !ok {
			continue
		}
		line := r.Lines[tenant]
		if err := decodeRentField(&line, f, strings.TrimSpace(record[i])); err != nil {
			return r, fmt.Errorf("column %s: %v", name, err)
		}
		r.Lines[tenant] = line
	}

	for tenant, line := range r.Lines {
		if line.Status == "" {
			line.Status = models.StatusNotPaid
			r.Lines[tenant] = line
		}
	}
	return r, nil
}

func splitRentColumn(name string) (tenant, f string, ok bool) {
	i := strings.LastIndex(name, "_")
	if i <= 0 || i == len(name)-1 {
		return "", "", false
	}
	return name[:i], name[i+1:], true
}

func encodeRentField(line models.RentLine, f string) string {
	switch f {
	case "BaseRent":
		return line.BaseRent.String()
	case "Maintenance":
		return line.Maintenance.String()
	case "Misc":
		return line.Misc.String()
	case "EnergyCharges":
		return formatMoney(line.EnergyCharges)
	case "GasBill":
		return formatMoney(line.GasBill)
	case "TotalRent":
		return formatMoney(line.TotalRent)
	case "Status":
		return string(line.Status)
	case "TotalPinned":
		if line.TotalPinned {
			return "true"
		}
		return ""
	}
	return ""
}

func decodeRentField(line *models.RentLine, f, value string) error {
	switch f {
	case "BaseRent", "Maintenance", "Misc", "EnergyCharges", "GasBill", "TotalRent":
		d, err := decimal.NewFromString(value)
		if err != nil {
			return err
		}
		switch f {
		case "BaseRent":
			line.BaseRent = d
		case "Maintenance":
			line.Maintenance = d
		case "Misc":
			line.Misc = d
		case "EnergyCharges":
			line.EnergyCharges = &d
		case "GasBill":
			line.GasBill = &d
		case "TotalRent":
			line.TotalRent = &d
		}
	case "Status":
		status := models.RentStatus(value)
		if !status.Valid() {
			return fmt.Errorf("unknown status %q", value)
		}
		line.Status = status
	case "TotalPinned":
		pinned, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		line.TotalPinned = pinned
	}
	return nil
}

// parser collects the first conversion error while decoding a record.
type parser struct {
	record []string
	idx    map[string]int
	err    error
}

func (p *parser) raw(name string) string {
	return strings.TrimSpace(field(p.record, p.idx, name))
}

func (p *parser) reading(name string) *float64 {
	v := p.raw(name)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.fail(name, err)
		return nil
	}
	return &f
}

func (p *parser) units(name string) float64 {
	if r := p.reading(name); r != nil {
		return *r
	}
	return 0
}

func (p *parser) money(name string) *decimal.Decimal {
	v := p.raw(name)
	if v == "" {
		return nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		p.fail(name, err)
		return nil
	}
	return &d
}

func (p *parser) fail(name string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("column %s: %v", name, err)
	}
}

func formatReading(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func formatUnits(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatMoney(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	return d.String()
}
