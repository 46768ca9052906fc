package cba

import (
	"fmt"
)

// computeToll prices the toll system: operating costs driven by the
// number of toll transactions and the income collected per tolled
// vehicle-kilometre. On extravilan toll sections (motorways and their
// parallel or nonparallel alternatives) a vehicle is tolled only when it
// crosses the entire section, so the transaction count is the minimum
// intensity over the section's constituent parts. On intravilan sections
// a partial crossing is enough, so the maximum applies.
func (a *Analysis) computeToll() error {
	if !a.tollLoaded {
		return fmt.Errorf("%w: load toll section parameters first", ErrNotComputed)
	}
	if !a.uc.built {
		return fmt.Errorf("%w: unit costs not computed", ErrNotComputed)
	}

	a.log.Debug("computing toll operating costs and income")

	ext0, intra0 := a.tolledIntensity(0, a.i0)
	ext1, intra1 := a.tolledIntensity(1, a.i1)

	ucTransaction, ok := a.uc.tollOp.Row("toll_transaction_cost")
	if !ok {
		return fmt.Errorf("%w: toll transaction cost missing", ErrConfig)
	}

	opexFin0 := a.tollOpexVariant(ucTransaction, ext0, intra0)
	opexFin1 := a.tollOpexVariant(ucTransaction, ext1, intra1)

	opexEco0 := opexFin0.Clone()
	opexEco0.Scale(a.clean.aggregateCF)
	opexEco1 := opexFin1.Clone()
	opexEco1.Scale(a.clean.aggregateCF)
	a.netCosts["opex_toll"] = NetSeries(opexEco1, opexEco0)

	// income accrues on extravilan sections only, as no toll is paid for
	// a partial crossing of intravilan sections
	incomeFin0, err := a.tollIncomeVariant(0, ext0)
	if err != nil {
		return err
	}
	incomeFin1, err := a.tollIncomeVariant(1, ext1)
	if err != nil {
		return err
	}
	a.netIncomes["income_toll"] = NetSeries(incomeFin1, incomeFin0)
	return nil
}

// tolledIntensity aggregates the traffic intensity of one variant into
// daily toll transaction counts per toll section, section type and
// vehicle, split into extravilan and intravilan flows.
func (a *Analysis) tolledIntensity(variant int, intensity *Matrix[SectionVehicle]) (ext, intra *Matrix[TollFlow]) {
	ext = NewMatrix[TollFlow](a.years)
	intra = NewMatrix[TollFlow](a.years)

	for _, r := range a.roadsByVariant(variant) {
		if r.TollSection == "" {
			continue
		}
		tollType := a.tollSections[r.TollSection][variant]
		if tollType == "" {
			continue
		}

		extravilan := contains(tollTypesExtravilan, tollType)
		if !extravilan && !contains(tollTypesIntravilan, tollType) {
			continue
		}

		for _, vehicle := range tolledVehicles {
			row, ok := intensity.Row(SectionVehicle{r.ID, vehicle})
			if !ok {
				continue
			}
			key := TollFlow{r.TollSection, tollType, vehicle}
			if extravilan {
				aggregateRow(ext, key, row, func(acc, v float64) float64 {
					if v < acc {
						return v
					}
					return acc
				})
			} else {
				aggregateRow(intra, key, row, func(acc, v float64) float64 {
					if v > acc {
						return v
					}
					return acc
				})
			}
		}
	}
	return ext, intra
}

// aggregateRow folds a section's intensity row into the toll flow matrix
// under the given combining function, seeding the row on first sight.
func aggregateRow(m *Matrix[TollFlow], key TollFlow, row []float64, combine func(acc, v float64) float64) {
	acc, ok := m.Row(key)
	if !ok {
		cp := make([]float64, len(row))
		copy(cp, row)
		m.SetRow(key, cp)
		return
	}
	for i := range acc {
		acc[i] = combine(acc[i], row[i])
	}
}

// tollOpexVariant prices the toll transactions of one variant. Both
// extravilan and intravilan flows generate transactions.
func (a *Analysis) tollOpexVariant(ucTransaction []float64, ext, intra *Matrix[TollFlow]) *Matrix[TollFlow] {
	fin := NewMatrix[TollFlow](a.years)
	price := func(key TollFlow, row []float64) {
		out := make([]float64, len(row))
		for i := range row {
			out[i] = row[i] * ucTransaction[i] * DaysYear
		}
		fin.SetRow(key, out)
	}
	ext.Each(price)
	intra.Each(price)
	return fin
}

// tollIncomeVariant prices the extravilan toll flows of one variant:
// tolled intensity times the toll section length times the per-kilometre
// toll rate of the vehicle and section type.
func (a *Analysis) tollIncomeVariant(variant int, ext *Matrix[TollFlow]) (*Matrix[TollFlow], error) {
	lengths := make(map[string]float64)
	for _, r := range a.roadsByVariant(variant) {
		if r.TollSection != "" {
			lengths[r.TollSection] += r.Length
		}
	}

	fin := NewMatrix[TollFlow](a.years)
	var iterErr error
	ext.Each(func(key TollFlow, row []float64) {
		ucRow, ok := a.uc.tollRev.Row(VehicleTollType{key.Vehicle, key.TollType})
		if !ok {
			iterErr = fmt.Errorf("%w: no toll rate for vehicle %q on %q sections",
				ErrConfig, key.Vehicle, key.TollType)
			return
		}
		length := lengths[key.TollSection]
		out := make([]float64, len(row))
		for i := range row {
			out[i] = row[i] * length * ucRow[i] * DaysYear
		}
		fin.SetRow(key, out)
	})
	if iterErr != nil {
		return nil, iterErr
	}
	return fin, nil
}
