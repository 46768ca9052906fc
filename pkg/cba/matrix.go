package cba

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Key types for the time matrices. Every category keeps its own schema;
// keys are small comparable structs so matrices stay strictly typed.

// SectionVehicle keys traffic, velocity and travel time matrices.
type SectionVehicle struct {
	Section string
	Vehicle string
}

// VehicleFuel keys fleet composition and operating cost matrices.
type VehicleFuel struct {
	Vehicle string
	Fuel    string
}

// SectionVehicleFuel keys fuel consumption matrices.
type SectionVehicleFuel struct {
	Section string
	Vehicle string
	Fuel    string
}

// VehicleFuelGas keys greenhouse gas unit costs.
type VehicleFuelGas struct {
	Vehicle string
	Fuel    string
	Gas     string
}

// GHGKey keys the greenhouse gas cash-flow matrices.
type GHGKey struct {
	Section string
	Vehicle string
	Fuel    string
	Gas     string
}

// EmissionKey keys the air pollutant cash-flow matrices.
type EmissionKey struct {
	Section   string
	Vehicle   string
	Fuel      string
	Substance string
}

// SubstanceEnvironment keys emission unit costs.
type SubstanceEnvironment struct {
	Substance   string
	Environment string
}

// VehicleEnvironment keys noise unit costs.
type VehicleEnvironment struct {
	Vehicle     string
	Environment string
}

// AccidentKey keys the accident cash-flow matrices.
type AccidentKey struct {
	Section string
	Vehicle string
	Type    string
}

// MaintenanceKey keys road maintenance unit costs and area groups.
type MaintenanceKey struct {
	SectionType string
	Surface     string
	Condition   string
	LowerUsage  bool
}

// VehicleTollType keys toll revenue unit costs.
type VehicleTollType struct {
	Vehicle  string
	TollType string
}

// TollFlow keys tolled traffic matrices.
type TollFlow struct {
	TollSection string
	TollType    string
	Vehicle     string
}

// Matrix is a time-indexed table: each key owns one value per evaluation
// year. Years are fixed at construction; rows are never resized.
type Matrix[K comparable] struct {
	years []int
	index map[int]int
	rows  map[K][]float64
}

// NewMatrix creates an empty matrix over the given year range.
func NewMatrix[K comparable](years []int) *Matrix[K] {
	index := make(map[int]int, len(years))
	for i, y := range years {
		index[y] = i
	}
	return &Matrix[K]{
		years: years,
		index: index,
		rows:  make(map[K][]float64),
	}
}

// Years returns the evaluation years the matrix is aligned to.
func (m *Matrix[K]) Years() []int {
	return m.years
}

// Len returns the number of rows.
func (m *Matrix[K]) Len() int {
	return len(m.rows)
}

// SetRow copies vals into the row for k. The slice length must match the
// year range; a mismatch is a programming error.
func (m *Matrix[K]) SetRow(k K, vals []float64) {
	if len(vals) != len(m.years) {
		panic(fmt.Sprintf("cba: row length %d does not match %d years", len(vals), len(m.years)))
	}
	row := make([]float64, len(vals))
	copy(row, vals)
	m.rows[k] = row
}

// Broadcast sets the row for k to a constant value across all years.
func (m *Matrix[K]) Broadcast(k K, v float64) {
	row := make([]float64, len(m.years))
	for i := range row {
		row[i] = v
	}
	m.rows[k] = row
}

// Row returns the row for k. The returned slice is the backing storage;
// callers must not modify it unless they own the matrix.
func (m *Matrix[K]) Row(k K) ([]float64, bool) {
	row, ok := m.rows[k]
	return row, ok
}

// At returns the value for key k in the given year, or 0 when absent.
func (m *Matrix[K]) At(k K, year int) float64 {
	row, ok := m.rows[k]
	if !ok {
		return 0
	}
	i, ok := m.index[year]
	if !ok {
		return 0
	}
	return row[i]
}

// Set assigns a single cell, creating a zero row if the key is new.
func (m *Matrix[K]) Set(k K, year int, v float64) {
	i, ok := m.index[year]
	if !ok {
		return
	}
	row, ok := m.rows[k]
	if !ok {
		row = make([]float64, len(m.years))
		m.rows[k] = row
	}
	row[i] = v
}

// Each calls f for every row.
func (m *Matrix[K]) Each(f func(k K, row []float64)) {
	for k, row := range m.rows {
		f(k, row)
	}
}

// Keys returns the row keys in map order.
func (m *Matrix[K]) Keys() []K {
	keys := make([]K, 0, len(m.rows))
	for k := range m.rows {
		keys = append(keys, k)
	}
	return keys
}

// ColumnSums returns the per-year totals over all rows.
func (m *Matrix[K]) ColumnSums() []float64 {
	sums := make([]float64, len(m.years))
	for _, row := range m.rows {
		floats.Add(sums, row)
	}
	return sums
}

// Scale multiplies every cell in place.
func (m *Matrix[K]) Scale(f float64) {
	for _, row := range m.rows {
		floats.Scale(f, row)
	}
}

// Clone returns a deep copy.
func (m *Matrix[K]) Clone() *Matrix[K] {
	c := NewMatrix[K](m.years)
	for k, row := range m.rows {
		c.SetRow(k, row)
	}
	return c
}

// NetSeries returns the per-year differential of the column sums of a and
// b: sum(a) - sum(b). The sign convention is chosen per category by the
// caller; see the category computations.
func NetSeries[K comparable](a, b *Matrix[K]) []float64 {
	sums := a.ColumnSums()
	floats.Sub(sums, b.ColumnSums())
	return sums
}
