package cba

import (
	"fmt"
	"math"
)

// computeLengthMatrices broadcasts section lengths across the evaluation
// years, one matrix per variant.
func (a *Analysis) computeLengthMatrices() {
	a.log.Debug("creating length matrices")

	a.l0 = NewMatrix[string](a.years)
	a.l1 = NewMatrix[string](a.years)
	for _, r := range a.roads {
		if r.Variant == 0 {
			a.l0.Broadcast(r.ID, r.Length)
		} else {
			a.l1.Broadcast(r.ID, r.Length)
		}
	}
}

// computeTravelTimeMatrices derives travel time as length over velocity
// for every section and vehicle. A zero velocity means no travel, not an
// error: the travel time is set to 0. Rows without a matching length and
// rows with an undefined 0/0 cell are dropped.
func (a *Analysis) computeTravelTimeMatrices() error {
	if a.l0 == nil || a.l1 == nil {
		return fmt.Errorf("%w: compute length matrices first", ErrNotComputed)
	}

	a.log.Debug("creating travel time matrices")

	a.t0 = travelTime(a.l0, a.v0)
	a.t1 = travelTime(a.l1, a.v1)
	return nil
}

func travelTime(length *Matrix[string], velocity *Matrix[SectionVehicle]) *Matrix[SectionVehicle] {
	t := NewMatrix[SectionVehicle](velocity.Years())
	velocity.Each(func(k SectionVehicle, vrow []float64) {
		lrow, ok := length.Row(k.Section)
		if !ok {
			return
		}
		row := make([]float64, len(vrow))
		for i := range vrow {
			v := lrow[i] / vrow[i]
			if math.IsNaN(v) {
				// 0/0: the section carries no traffic of this class
				return
			}
			if math.IsInf(v, 0) {
				v = 0
			}
			row[i] = v
		}
		t.SetRow(k, row)
	})
	return t
}

// computeFuelRatioMatrix broadcasts the fleet fuel composition across the
// evaluation years. Ratios are constant per vehicle and shared across
// sections.
func (a *Analysis) computeFuelRatioMatrix() {
	a.log.Debug("creating fuel ratio matrix")

	a.rf = NewMatrix[VehicleFuel](a.years)
	for k, ratio := range a.clean.fuelRatio {
		a.rf.Broadcast(k, ratio)
	}
}
