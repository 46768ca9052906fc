package cba

import (
	"fmt"
)

// polyval evaluates the consumption-velocity cubic at velocity v using
// Horner's scheme. Coefficients are in kg/km after the density
// conversion.
func polyval(c [4]float64, v float64) float64 {
	return c[0] + v*(c[1]+v*(c[2]+v*c[3]))
}

// computeFuelConsumption computes the fuel burnt per vehicle in kg by
// section, vehicle and fuel type for both variants. The total is the sum
// of a velocity-dependent term (consumption curve evaluated at the
// section velocity, times section length) and an acceleration-dependent
// term (per-event increments weighted by the section's junction-type
// shares, summed over all six junction categories).
func (a *Analysis) computeFuelConsumption() error {
	if a.l0 == nil || a.l1 == nil {
		return fmt.Errorf("%w: compute length matrices first", ErrNotComputed)
	}
	if a.rf == nil {
		return fmt.Errorf("%w: compute fleet composition first", ErrNotComputed)
	}

	a.log.Debug("computing fuel consumption")

	a.qf0 = a.fuelConsumptionVariant(0, a.l0, a.v0)
	a.qf1 = a.fuelConsumptionVariant(1, a.l1, a.v1)
	return nil
}

func (a *Analysis) fuelConsumptionVariant(variant int, length *Matrix[string], velocity *Matrix[SectionVehicle]) *Matrix[SectionVehicleFuel] {
	qf := NewMatrix[SectionVehicleFuel](a.years)

	// acceleration shares per section for this variant
	shares := make(map[string]map[string]float64)
	for _, r := range a.roads {
		if r.Variant == variant {
			shares[r.ID] = r.Acceleration
		}
	}

	for vf, coeffs := range a.clean.fuelCoeffs {
		// vehicles with different fuels move at the same speed; the
		// velocity row is shared across the fuel split
		velocity.Each(func(sv SectionVehicle, vrow []float64) {
			if sv.Vehicle != vf.Vehicle {
				return
			}
			lrow, ok := length.Row(sv.Section)
			if !ok {
				return
			}

			// per-event fuel mass, summed over junction categories
			var accTerm float64
			for _, junction := range accelerationColumns {
				accTerm += shares[sv.Section][junction] * a.clean.fuelAcc[vf][junction]
			}

			row := make([]float64, len(vrow))
			for i := range vrow {
				row[i] = polyval(coeffs, vrow[i])*lrow[i] + accTerm
			}
			qf.SetRow(SectionVehicleFuel{sv.Section, vf.Vehicle, vf.Fuel}, row)
		})
	}
	return qf
}
