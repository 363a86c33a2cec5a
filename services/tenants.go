package services

import (
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/aj9599/rent-ledger/backend/models"
	"github.com/aj9599/rent-ledger/backend/storage"
	"github.com/shopspring/decimal"
)

var tenantHeader = []string{
	"Key", "Name", "Phone", "Address", "Property", "Floor",
	"BaseRent", "Maintenance", "Misc", "RentStartMonth",
	"PaysMaintenance", "BillsEnergy", "PaysGas", "Notes",
}

// DefaultTenants seeds the tenant file on first boot.
func DefaultTenants() []models.TenantConfig {
	d := decimal.RequireFromString
	return []models.TenantConfig{
		{Key: "A-88 Ground", Name: "Ground Floor Tenant", Property: models.PropertyA, Floor: models.FloorGround,
			BaseRent: d("12000"), Maintenance: d("1000"), RentStartMonth: DefaultFirstMonth,
			PaysMaintenance: true, BillsEnergy: true},
		{Key: "A-88 1st", Name: "First Floor Tenant", Property: models.PropertyA, Floor: models.FloorFirst,
			BaseRent: d("15000"), Maintenance: d("1000"), RentStartMonth: DefaultFirstMonth,
			PaysMaintenance: true, BillsEnergy: true},
		{Key: "A-88 2nd", Name: "Second Floor Tenant", Property: models.PropertyA, Floor: models.FloorSecond,
			BaseRent: d("14000"), Maintenance: d("1000"), RentStartMonth: DefaultFirstMonth,
			PaysMaintenance: true, BillsEnergy: true},
		{Key: "A-81 1st", Name: "A-81 First Floor Tenant", Property: models.PropertyB, Floor: models.FloorFirst,
			BaseRent: d("25000"), Maintenance: d("2000"), RentStartMonth: DefaultFirstMonth,
			PaysMaintenance: true},
		{Key: "A-81 2nd", Name: "A-81 Second Floor Tenant", Property: models.PropertyB, Floor: models.FloorSecond,
			BaseRent: d("22000"), RentStartMonth: DefaultFirstMonth,
			BillsEnergy: true, PaysGas: true},
	}
}

// TenantStore is the in-memory tenant configuration, flushed to its CSV
// file after every change.
type TenantStore struct {
	path string

	mu        sync.RWMutex
	tenants   map[string]models.TenantConfig
	listeners []func(key string)
}

// OpenTenantStore loads path, writing defaults there first if it does not exist.
func OpenTenantStore(path string, defaults []models.TenantConfig) (*TenantStore, error) {
	header, records, err := storage.ReadCSV(path)
	if err != nil {
		return nil, err
	}

	s := &TenantStore{path: path, tenants: map[string]models.TenantConfig{}}
	if header == nil {
		for _, t := range defaults {
			s.tenants[t.Key] = t
		}
		if err := s.flush(s.tenants); err != nil {
			return nil, err
		}
		log.Printf("[TENANTS] Seeded %d default tenants into %s", len(defaults), path)
		return s, nil
	}

	idx := map[string]int{}
	for i, name := range header {
		idx[name] = i
	}
	for n, record := range records {
		t, err := decodeTenant(idx, record)
		if err != nil {
			return nil, fmt.Errorf("%w: %s row %d: %v", models.ErrStoreIO, path, n+2, err)
		}
		if _, dup := s.tenants[t.Key]; dup {
			log.Printf("[TENANTS] Ignoring duplicate tenant %q in %s", t.Key, path)
			continue
		}
		s.tenants[t.Key] = t
	}
	log.Printf("[TENANTS] Loaded %d tenants from %s", len(s.tenants), path)
	return s, nil
}

func (s *TenantStore) Get(key string) (models.TenantConfig, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tenants[key]
	return t, ok
}

// List returns all tenants ordered by key.
func (s *TenantStore) List() []models.TenantConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.TenantConfig, 0, len(s.tenants))
	for _, t := range s.tenants {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func (s *TenantStore) OnChange(fn func(key string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Update applies a partial update and persists it. It returns the old and new config.
func (s *TenantStore) Update(key string, upd models.TenantConfigUpdate, validMonth func(string) bool) (models.TenantConfig, models.TenantConfig, error) {
	s.mu.Lock()
	old, ok := s.tenants[key]
	if !ok {
		s.mu.Unlock()
		return models.TenantConfig{}, models.TenantConfig{}, fmt.Errorf("%w: tenant %q", models.ErrNotFound, key)
	}

	updated, err := applyTenantUpdate(old, upd, validMonth)
	if err != nil {
		s.mu.Unlock()
		return models.TenantConfig{}, models.TenantConfig{}, err
	}

	next := make(map[string]models.TenantConfig, len(s.tenants))
	for k, v := range s.tenants {
		next[k] = v
	}
	next[key] = updated
	if err := s.flush(next); err != nil {
		s.mu.Unlock()
		log.Printf("[TENANTS] Failed to persist tenant %q: %v", key, err)
		return models.TenantConfig{}, models.TenantConfig{}, err
	}
	s.tenants = next
	listeners := append([]func(string){}, s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(key)
	}
	return old, updated, nil
}

func applyTenantUpdate(t models.TenantConfig, upd models.TenantConfigUpdate, validMonth func(string) bool) (models.TenantConfig, error) {
	if upd.Name != nil {
		t.Name = strings.TrimSpace(*upd.Name)
	}
	if upd.Phone != nil {
		t.Phone = strings.TrimSpace(*upd.Phone)
	}
	if upd.Address != nil {
		t.Address = strings.TrimSpace(*upd.Address)
	}
	if upd.Property != nil {
		if *upd.Property != models.PropertyA && *upd.Property != models.PropertyB {
			return t, fmt.Errorf("%w: unknown property %q", models.ErrValidation, *upd.Property)
		}
		t.Property = *upd.Property
	}
	if upd.Floor != nil {
		t.Floor = strings.TrimSpace(*upd.Floor)
	}
	for _, m := range []struct {
		name string
		src  *decimal.Decimal
		dst  *decimal.Decimal
	}{
		{"base_rent", upd.BaseRent, &t.BaseRent},
		{"maintenance", upd.Maintenance, &t.Maintenance},
		{"misc", upd.Misc, &t.Misc},
	} {
		if m.src == nil {
			continue
		}
		if m.src.IsNegative() {
			return t, fmt.Errorf("%w: %s cannot be negative", models.ErrValidation, m.name)
		}
		*m.dst = *m.src
	}
	if upd.RentStartMonth != nil {
		if validMonth != nil && !validMonth(*upd.RentStartMonth) {
			return t, fmt.Errorf("%w: unknown month %q", models.ErrValidation, *upd.RentStartMonth)
		}
		t.RentStartMonth = *upd.RentStartMonth
	}
	if upd.PaysMaintenance != nil {
		t.PaysMaintenance = *upd.PaysMaintenance
	}
	if upd.BillsEnergy != nil {
		t.BillsEnergy = *upd.BillsEnergy
	}
	if upd.PaysGas != nil {
		t.PaysGas = *upd.PaysGas
	}
	if upd.Notes != nil {
		t.Notes = *upd.Notes
	}
	return t, nil
}

func (s *TenantStore) flush(tenants map[string]models.TenantConfig) error {
	keys := make([]string, 0, len(tenants))
	for k := range tenants {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	records := make([][]string, 0, len(keys))
	for _, k := range keys {
		t := tenants[k]
		records = append(records, []string{
			t.Key, t.Name, t.Phone, t.Address, t.Property, t.Floor,
			t.BaseRent.String(), t.Maintenance.String(), t.Misc.String(), t.RentStartMonth,
			strconv.FormatBool(t.PaysMaintenance), strconv.FormatBool(t.BillsEnergy),
			strconv.FormatBool(t.PaysGas), t.Notes,
		})
	}
	return storage.WriteCSVAtomic(s.path, tenantHeader, records)
}

func decodeTenant(idx map[string]int, record []string) (models.TenantConfig, error) {
	get := func(name string) string {
		i, ok := idx[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}
	money := func(name string) (decimal.Decimal, error) {
		v := get(name)
		if v == "" {
			return decimal.Zero, nil
		}
		return decimal.NewFromString(v)
	}
	flag := func(name string) bool {
		b, _ := strconv.ParseBool(get(name))
		return b
	}

	t := models.TenantConfig{
		Key:             get("Key"),
		Name:            get("Name"),
		Phone:           get("Phone"),
		Address:         get("Address"),
		Property:        get("Property"),
		Floor:           get("Floor"),
		RentStartMonth:  get("RentStartMonth"),
		PaysMaintenance: flag("PaysMaintenance"),
		BillsEnergy:     flag("BillsEnergy"),
		PaysGas:         flag("PaysGas"),
		Notes:           get("Notes"),
	}
	if t.Key == "" {
		return t, fmt.Errorf("missing Key")
	}
	var err error
	if t.BaseRent, err = money("BaseRent"); err != nil {
		return t, fmt.Errorf("BaseRent: %v", err)
	}
	if t.Maintenance, err = money("Maintenance"); err != nil {
		return t, fmt.Errorf("Maintenance: %v", err)
	}
	if t.Misc, err = money("Misc"); err != nil {
		return t, fmt.Errorf("Misc: %v", err)
	}
	return t, nil
}
