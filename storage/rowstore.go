// Package storage keeps the month-keyed CSV ledgers.
package storage

import (
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/aj9599/rent-ledger/backend/models"
)

// Ordering positions month tokens in the billing catalog.
type Ordering interface {
	Index(month string) (int, bool)
}

// Codec maps rows of one ledger to and from CSV records.
type Codec[T any] interface {
	Key(row T) string
	Header(rows []T) []string
	Encode(header []string, row T) []string
	Decode(header, record []string) (T, error)
}

// WriteObserver is told about every file rewrite.
type WriteObserver interface {
	ObserveWrite(store string, took time.Duration, err error)
}

// MergeFunc builds the row to store from the current one. found is false
// when the month has no row yet. Returning an error aborts the upsert.
type MergeFunc[T any] func(existing T, found bool) (T, error)

// RowStore is a CSV-backed table with exactly one row per month.
// Reads are concurrent; writers must be serialized by the caller.
type RowStore[T any] struct {
	name  string
	path  string
	codec Codec[T]
	order Ordering

	mu        sync.RWMutex
	rows      []T
	version   uint64
	guard     func(month string) error
	listeners []func(month string)
	observer  WriteObserver
}

// Open loads the store from path. A missing file yields an empty store.
func Open[T any](name, path string, codec Codec[T], order Ordering) (*RowStore[T], error) {
	header, records, err := ReadCSV(path)
	if err != nil {
		return nil, err
	}

	rows := make([]T, 0, len(records))
	for i, record := range records {
		row, err := codec.Decode(header, record)
		if err != nil {
			return nil, fmt.Errorf("%w: %s row %d: %v", models.ErrStoreIO, path, i+2, err)
		}
		rows = append(rows, row)
	}

	log.Printf("[STORE] %s: loaded %d rows from %s", name, len(rows), path)
	return &RowStore[T]{
		name:  name,
		path:  path,
		codec: codec,
		order: order,
		rows:  rows,
	}, nil
}

func (s *RowStore[T]) Name() string { return s.name }

// SetInsertGuard installs a check run before a brand-new month is inserted.
func (s *RowStore[T]) SetInsertGuard(guard func(month string) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.guard = guard
}

func (s *RowStore[T]) SetObserver(o WriteObserver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observer = o
}

// OnChange registers fn to run synchronously after each successful upsert.
func (s *RowStore[T]) OnChange(fn func(month string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// ReadAll returns the rows in store order.
func (s *RowStore[T]) ReadAll() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]T, len(s.rows))
	copy(out, s.rows)
	return out
}

func (s *RowStore[T]) Find(month string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(month); i >= 0 {
		return s.rows[i], true
	}
	var zero T
	return zero, false
}

func (s *RowStore[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

// Months lists the row keys in store order.
func (s *RowStore[T]) Months() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	months := make([]string, len(s.rows))
	for i, row := range s.rows {
		months[i] = s.codec.Key(row)
	}
	return months
}

// Version increases with every successful write.
func (s *RowStore[T]) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Records encodes the current rows as they would be written to disk.
func (s *RowStore[T]) Records() ([]string, [][]string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.encode(s.rows)
}

// Upsert merges a row for month, de-duplicates, re-sorts by catalog order and
// rewrites the file. Nothing changes in memory unless the rewrite lands.
func (s *RowStore[T]) Upsert(month string, merge MergeFunc[T]) (T, error) {
	var zero T
	if _, ok := s.order.Index(month); !ok {
		return zero, fmt.Errorf("%w: unknown month %q", models.ErrValidation, month)
	}

	if _, found := s.Find(month); !found {
		s.mu.RLock()
		guard := s.guard
		s.mu.RUnlock()
		if guard != nil {
			if err := guard(month); err != nil {
				return zero, err
			}
		}
	}

	s.mu.Lock()
	idx := s.indexOf(month)
	var existing T
	if idx >= 0 {
		existing = s.rows[idx]
	}
	merged, err := merge(existing, idx >= 0)
	if err != nil {
		s.mu.Unlock()
		return zero, err
	}
	if key := s.codec.Key(merged); key != month {
		s.mu.Unlock()
		return zero, fmt.Errorf("%w: row key %q does not match month %q", models.ErrValidation, key, month)
	}

	next := make([]T, len(s.rows), len(s.rows)+1)
	copy(next, s.rows)
	if idx >= 0 {
		next[idx] = merged
	} else {
		next = append(next, merged)
	}
	next = s.normalize(next)

	if err := s.flush(next); err != nil {
		s.mu.Unlock()
		log.Printf("[STORE] %s: failed to write %s: %v", s.name, month, err)
		return zero, err
	}
	s.rows = next
	s.version++
	listeners := append([]func(string){}, s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(month)
	}
	return merged, nil
}

// normalize keeps the first row per month and orders rows by catalog
// position; unknown months go last in their original order.
func (s *RowStore[T]) normalize(rows []T) []T {
	seen := make(map[string]bool, len(rows))
	out := rows[:0]
	for _, row := range rows {
		key := s.codec.Key(row)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, row)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return s.less(s.codec.Key(out[i]), s.codec.Key(out[j]))
	})
	return out
}

func (s *RowStore[T]) less(a, b string) bool {
	ia, okA := s.order.Index(a)
	ib, okB := s.order.Index(b)
	switch {
	case okA && okB:
		return ia < ib
	case okA:
		return true
	default:
		return false
	}
}

func (s *RowStore[T]) flush(rows []T) error {
	start := time.Now()
	header, records := s.encode(rows)
	err := WriteCSVAtomic(s.path, header, records)
	if s.observer != nil {
		s.observer.ObserveWrite(s.name, time.Since(start), err)
	}
	return err
}

func (s *RowStore[T]) encode(rows []T) ([]string, [][]string) {
	header := s.codec.Header(rows)
	records := make([][]string, len(rows))
	for i, row := range rows {
		records[i] = s.codec.Encode(header, row)
	}
	return header, records
}

func (s *RowStore[T]) indexOf(month string) int {
	for i, row := range s.rows {
		if s.codec.Key(row) == month {
			return i
		}
	}
	return -1
}
