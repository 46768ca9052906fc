package cba

import (
	"fmt"
)

// Benefit categories follow the sign convention Net = Variant0 - Variant1:
// a reduction under the project variant is a gain. Costs and incomes are
// computed the other way around; see costs.go and toll.go.

// computeVTTS values travel time savings: unit cost per vehicle-hour
// times travel time times daily intensity, annualized.
func (a *Analysis) computeVTTS() error {
	if a.t0 == nil || a.t1 == nil {
		return fmt.Errorf("%w: compute travel time first", ErrNotComputed)
	}

	a.log.Debug("computing VTTS")

	b0 := a.timeSavingsVariant(a.uc.vtts, a.t0, a.i0)
	b1 := a.timeSavingsVariant(a.uc.vtts, a.t1, a.i1)
	a.netBenefits["vtts"] = NetSeries(b0, b1)
	return nil
}

// timeSavingsVariant builds unit_cost * travel_time * intensity * 365 for
// one variant. Shared by VTTS and VFTS, which differ only in the unit
// cost table (VFTS carries only the freight vehicle classes).
func (a *Analysis) timeSavingsVariant(uc *Matrix[string], t, intensity *Matrix[SectionVehicle]) *Matrix[SectionVehicle] {
	b := NewMatrix[SectionVehicle](a.years)
	t.Each(func(sv SectionVehicle, trow []float64) {
		ucRow, ok := uc.Row(sv.Vehicle)
		if !ok {
			return
		}
		irow, ok := intensity.Row(sv)
		if !ok {
			return
		}
		row := make([]float64, len(trow))
		for i := range trow {
			row[i] = ucRow[i] * trow[i] * irow[i] * DaysYear
		}
		b.SetRow(sv, row)
	})
	return b
}

// computeVOC values vehicle operating costs, split into a
// length-dependent and a time-dependent part, each weighted by the fleet
// fuel composition.
func (a *Analysis) computeVOC() error {
	if a.l0 == nil || a.l1 == nil {
		return fmt.Errorf("%w: compute length matrices first", ErrNotComputed)
	}
	if a.t0 == nil || a.t1 == nil {
		return fmt.Errorf("%w: compute travel time first", ErrNotComputed)
	}
	if a.rf == nil {
		return fmt.Errorf("%w: compute fleet composition first", ErrNotComputed)
	}

	a.log.Debug("computing VOC")

	// length-dependent part
	b0 := a.vocVariant(a.uc.vocL, func(sv SectionVehicle) ([]float64, bool) { return a.l0.Row(sv.Section) }, a.i0)
	b1 := a.vocVariant(a.uc.vocL, func(sv SectionVehicle) ([]float64, bool) { return a.l1.Row(sv.Section) }, a.i1)
	a.netBenefits["voc_l"] = NetSeries(b0, b1)

	// time-dependent part
	b0 = a.vocVariant(a.uc.vocT, func(sv SectionVehicle) ([]float64, bool) { return a.t0.Row(sv) }, a.i0)
	b1 = a.vocVariant(a.uc.vocT, func(sv SectionVehicle) ([]float64, bool) { return a.t1.Row(sv) }, a.i1)
	a.netBenefits["voc_t"] = NetSeries(b0, b1)
	return nil
}

func (a *Analysis) vocVariant(uc *Matrix[VehicleFuel], quantity func(SectionVehicle) ([]float64, bool), intensity *Matrix[SectionVehicle]) *Matrix[SectionVehicleFuel] {
	b := NewMatrix[SectionVehicleFuel](a.years)
	intensity.Each(func(sv SectionVehicle, irow []float64) {
		qrow, ok := quantity(sv)
		if !ok {
			return
		}
		a.rf.Each(func(vf VehicleFuel, rfRow []float64) {
			if vf.Vehicle != sv.Vehicle {
				return
			}
			ucRow, ok := uc.Row(vf)
			if !ok {
				return
			}
			row := make([]float64, len(irow))
			for i := range irow {
				row[i] = ucRow[i] * rfRow[i] * qrow[i] * irow[i] * DaysYear
			}
			b.SetRow(SectionVehicleFuel{sv.Section, vf.Vehicle, vf.Fuel}, row)
		})
	})
	return b
}

// computeVFTS values freight time savings. Excluded from the appraisal
// entirely unless enabled in the configuration.
func (a *Analysis) computeVFTS() error {
	if !a.cfg.IncludeFreightTime {
		return nil
	}
	if a.t0 == nil || a.t1 == nil {
		return fmt.Errorf("%w: compute travel time first", ErrNotComputed)
	}

	a.log.Debug("computing VFTS")

	b0 := a.timeSavingsVariant(a.uc.vfts, a.t0, a.i0)
	b1 := a.timeSavingsVariant(a.uc.vfts, a.t1, a.i1)
	a.netBenefits["vfts"] = NetSeries(b0, b1)
	return nil
}

// computeFuelCost values the fuel burnt: unit cost per kg times fuel
// consumption times intensity, weighted by fleet composition.
func (a *Analysis) computeFuelCost() error {
	if a.qf0 == nil || a.qf1 == nil {
		return fmt.Errorf("%w: compute fuel consumption first", ErrNotComputed)
	}

	a.log.Debug("computing fuel cost")

	b0 := a.fuelCostVariant(a.qf0, a.i0)
	b1 := a.fuelCostVariant(a.qf1, a.i1)
	a.netBenefits["fuel"] = NetSeries(b0, b1)
	return nil
}

func (a *Analysis) fuelCostVariant(qf *Matrix[SectionVehicleFuel], intensity *Matrix[SectionVehicle]) *Matrix[SectionVehicleFuel] {
	b := NewMatrix[SectionVehicleFuel](a.years)
	qf.Each(func(svf SectionVehicleFuel, qrow []float64) {
		vf := VehicleFuel{svf.Vehicle, svf.Fuel}
		rfRow, ok := a.rf.Row(vf)
		if !ok {
			return
		}
		ucRow, ok := a.uc.fuel.Row(svf.Fuel)
		if !ok {
			return
		}
		irow, ok := intensity.Row(SectionVehicle{svf.Section, svf.Vehicle})
		if !ok {
			return
		}
		row := make([]float64, len(qrow))
		for i := range qrow {
			row[i] = rfRow[i] * ucRow[i] * qrow[i] * irow[i] * DaysYear
		}
		b.SetRow(svf, row)
	})
	return b
}

// computeGreenhouse values greenhouse gas production: the per-gas unit
// cost series (emission rate times carbon price) applied to the fuel
// burnt.
func (a *Analysis) computeGreenhouse() error {
	if a.rf == nil {
		return fmt.Errorf("%w: compute fleet composition first", ErrNotComputed)
	}
	if a.qf0 == nil || a.qf1 == nil {
		return fmt.Errorf("%w: compute fuel consumption first", ErrNotComputed)
	}

	a.log.Debug("computing greenhouse gases")

	b0 := a.greenhouseVariant(a.qf0, a.i0)
	b1 := a.greenhouseVariant(a.qf1, a.i1)
	a.netBenefits["ghg"] = NetSeries(b0, b1)
	return nil
}

func (a *Analysis) greenhouseVariant(qf *Matrix[SectionVehicleFuel], intensity *Matrix[SectionVehicle]) *Matrix[GHGKey] {
	b := NewMatrix[GHGKey](a.years)
	qf.Each(func(svf SectionVehicleFuel, qrow []float64) {
		vf := VehicleFuel{svf.Vehicle, svf.Fuel}
		rfRow, ok := a.rf.Row(vf)
		if !ok {
			return
		}
		irow, ok := intensity.Row(SectionVehicle{svf.Section, svf.Vehicle})
		if !ok {
			return
		}
		a.uc.ghg.Each(func(vfg VehicleFuelGas, ucRow []float64) {
			if vfg.Vehicle != svf.Vehicle || vfg.Fuel != svf.Fuel {
				return
			}
			row := make([]float64, len(qrow))
			for i := range qrow {
				row[i] = ucRow[i] * rfRow[i] * qrow[i] * irow[i] * DaysYear
			}
			b.SetRow(GHGKey{svf.Section, svf.Vehicle, svf.Fuel, vfg.Gas}, row)
		})
	})
	return b
}

// computeEmissions values air pollutant damage. The unit cost depends on
// the substance and the environment zone of the road section; each
// section carries exactly one environment category.
func (a *Analysis) computeEmissions() error {
	if a.rf == nil {
		return fmt.Errorf("%w: compute fleet composition first", ErrNotComputed)
	}
	if a.qf0 == nil || a.qf1 == nil {
		return fmt.Errorf("%w: compute fuel consumption first", ErrNotComputed)
	}

	a.log.Debug("computing emissions")

	b0 := a.emissionsVariant(0, a.qf0, a.i0)
	b1 := a.emissionsVariant(1, a.qf1, a.i1)
	a.netBenefits["em"] = NetSeries(b0, b1)
	return nil
}

func (a *Analysis) emissionsVariant(variant int, qf *Matrix[SectionVehicleFuel], intensity *Matrix[SectionVehicle]) *Matrix[EmissionKey] {
	b := NewMatrix[EmissionKey](a.years)
	qf.Each(func(svf SectionVehicleFuel, qrow []float64) {
		vf := VehicleFuel{svf.Vehicle, svf.Fuel}
		rfRow, ok := a.rf.Row(vf)
		if !ok {
			return
		}
		irow, ok := intensity.Row(SectionVehicle{svf.Section, svf.Vehicle})
		if !ok {
			return
		}
		env := a.environment(svf.Section, variant)

		for vfs, rate := range a.clean.emissionRate {
			if vfs.Vehicle != svf.Vehicle || vfs.Fuel != svf.Fuel {
				continue
			}
			ucRow, ok := a.uc.emissions.Row(SubstanceEnvironment{vfs.Substance, env})
			if !ok {
				continue
			}
			row := make([]float64, len(qrow))
			for i := range qrow {
				row[i] = irow[i] * rfRow[i] * qrow[i] * rate * ucRow[i] * DaysYear
			}
			b.SetRow(EmissionKey{svf.Section, svf.Vehicle, svf.Fuel, vfs.Substance}, row)
		}
	})
	return b
}

// computeNoise values noise damage: intensity times section length times
// the environment-dependent unit cost.
func (a *Analysis) computeNoise() error {
	if a.l0 == nil || a.l1 == nil {
		return fmt.Errorf("%w: compute length matrices first", ErrNotComputed)
	}

	a.log.Debug("computing noise")

	b0 := a.noiseVariant(0, a.l0, a.i0)
	b1 := a.noiseVariant(1, a.l1, a.i1)
	a.netBenefits["noise"] = NetSeries(b0, b1)
	return nil
}

func (a *Analysis) noiseVariant(variant int, length *Matrix[string], intensity *Matrix[SectionVehicle]) *Matrix[SectionVehicle] {
	b := NewMatrix[SectionVehicle](a.years)
	intensity.Each(func(sv SectionVehicle, irow []float64) {
		lrow, ok := length.Row(sv.Section)
		if !ok {
			return
		}
		env := a.environment(sv.Section, variant)
		ucRow, ok := a.uc.noise.Row(VehicleEnvironment{sv.Vehicle, env})
		if !ok {
			return
		}
		row := make([]float64, len(irow))
		for i := range irow {
			row[i] = irow[i] * lrow[i] * ucRow[i] * DaysYear
		}
		b.SetRow(sv, row)
	})
	return b
}

// computeAccidents values accident costs. Sections resolve to the default
// accident rate by road type and layout, or to a named custom rate;
// severity classes are valued separately and summed.
func (a *Analysis) computeAccidents() error {
	if a.l0 == nil || a.l1 == nil {
		return fmt.Errorf("%w: compute length matrices first", ErrNotComputed)
	}

	a.log.Debug("computing accidents")

	b0, err := a.accidentsVariant(0, a.l0, a.i0)
	if err != nil {
		return err
	}
	b1, err := a.accidentsVariant(1, a.l1, a.i1)
	if err != nil {
		return err
	}
	a.netBenefits["c_acc"] = NetSeries(b0, b1)
	return nil
}

// accidentRates resolves the severity-class accident rates of a section:
// a named custom rate when one is set, the default rate for the road type
// and layout otherwise.
func (a *Analysis) accidentRates(name, roadType, roadLayout string) ([3]float64, error) {
	if name != "" && name != "default" {
		rates, ok := a.clean.accidentCustom[name]
		if !ok {
			return rates, fmt.Errorf("%w: unknown custom accident rate %q", ErrConfig, name)
		}
		return rates, nil
	}
	rates, ok := a.clean.accidentDefault[roadTypeLayout{roadType, roadLayout}]
	if !ok {
		return rates, fmt.Errorf("%w: no default accident rate for road type %q layout %q",
			ErrConfig, roadType, roadLayout)
	}
	return rates, nil
}

func (a *Analysis) accidentsVariant(variant int, length *Matrix[string], intensity *Matrix[SectionVehicle]) (*Matrix[AccidentKey], error) {
	b := NewMatrix[AccidentKey](a.years)

	rates := make(map[string][3]float64)
	for _, r := range a.roadsByVariant(variant) {
		rr, err := a.accidentRates(r.AccidentRateName, r.RoadType, r.RoadLayout)
		if err != nil {
			return nil, err
		}
		rates[r.ID] = rr
	}

	var iterErr error
	intensity.Each(func(sv SectionVehicle, irow []float64) {
		lrow, ok := length.Row(sv.Section)
		if !ok {
			return
		}
		sectionRates, ok := rates[sv.Section]
		if !ok {
			return
		}
		for si, severity := range accidentSeverities {
			ucRow, ok := a.uc.accidents.Row(severity)
			if !ok {
				iterErr = fmt.Errorf("%w: c_acc: no accident cost for severity %q", ErrConfig, severity)
				return
			}
			row := make([]float64, len(irow))
			for i := range irow {
				row[i] = irow[i] * lrow[i] * sectionRates[si] * ucRow[i] * DaysYear
			}
			b.SetRow(AccidentKey{sv.Section, sv.Vehicle, severity}, row)
		}
	})
	return b, iterErr
}
