package cba

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Cost categories follow the sign convention Net = Variant1 - Variant0:
// an increase under the project variant is a cost.

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ComputeCapex applies the conversion factors to the financial capital
// expenditure, producing the economic capex matrix over the whole
// evaluation period. Items without a specific conversion factor fall back
// to the aggregate factor.
func (a *Analysis) ComputeCapex() error {
	if !a.inputsRead {
		return fmt.Errorf("%w: read project inputs first", ErrNotComputed)
	}

	a.log.Debug("computing CAPEX")

	a.cFinTot = make(map[string]float64, a.cFin.Len())
	a.cEco = NewMatrix[string](a.years)
	a.cEcoTot = make(map[string]float64, a.cFin.Len())

	a.cFin.Each(func(item string, row []float64) {
		a.cFinTot[item] = floats.Sum(row)

		factor, ok := a.clean.capexConvFac[item]
		if !ok {
			factor = a.clean.aggregateCF
		}
		eco := make([]float64, len(row))
		for i := range row {
			eco[i] = row[i] * factor
		}
		a.cEco.SetRow(item, eco)
		a.cEcoTot[item] = floats.Sum(eco)
	})

	a.netCosts["capex"] = a.cEco.ColumnSums()
	return nil
}

// computeDeterioration builds the replacement necessity and remaining
// value table for every included capex item. An item is replaced within
// the horizon when its lifetime does not exceed the operation period.
// Items with infinite lifetime (land) keep the full remaining ratio 1.
func (a *Analysis) computeDeterioration() {
	a.log.Debug("computing deterioration")

	opPeriod := float64(a.nYrOp)
	a.deterioration = a.deterioration[:0]
	for _, rv := range a.clean.residual {
		if !rv.Included {
			continue
		}
		item := deteriorationItem{
			Item:                 rv.Item,
			Lifetime:             rv.Lifetime,
			ReplacementCostRatio: rv.ReplacementCostRatio,
		}
		switch {
		case math.IsInf(rv.Lifetime, 1):
			item.RemainingRatio = 1.0
		case rv.Lifetime <= opPeriod:
			// replacement happens in the last year of lifetime
			item.Replace = true
			item.RemainingRatio = round2((2*rv.Lifetime - opPeriod) / rv.Lifetime)
		default:
			item.RemainingRatio = round2((rv.Lifetime - opPeriod) / rv.Lifetime)
		}
		a.deterioration = append(a.deterioration, item)
	}
}

// ComputeResidualValue books the remaining value of every included capex
// item into the final evaluation year: as income in financial terms, as a
// benefit in economic terms.
func (a *Analysis) ComputeResidualValue() error {
	if a.cFinTot == nil {
		return fmt.Errorf("%w: compute capex first", ErrNotComputed)
	}

	a.log.Debug("computing residual value")

	if a.deterioration == nil {
		a.computeDeterioration()
	}

	finalYear := a.years[len(a.years)-1]
	resFin := NewMatrix[string](a.years)
	resEco := NewMatrix[string](a.years)

	for _, d := range a.deterioration {
		finValue := a.cFinTot[d.Item] * d.RemainingRatio
		ecoValue := a.cEcoTot[d.Item] * d.RemainingRatio
		if d.Replace {
			finValue *= d.ReplacementCostRatio
			ecoValue *= d.ReplacementCostRatio
		}
		resFin.Set(d.Item, finalYear, finValue)
		resEco.Set(d.Item, finalYear, ecoValue)
	}

	a.netIncomes["res_val"] = resFin.ColumnSums()
	a.netBenefits["res_val"] = resEco.ColumnSums()
	return nil
}

// ComputeReplacements books the replacement cost of every item whose
// lifetime ends within the operation period, in the single year the
// lifetime runs out.
func (a *Analysis) ComputeReplacements() error {
	if a.cFinTot == nil {
		return fmt.Errorf("%w: compute capex first", ErrNotComputed)
	}

	a.log.Debug("computing replacement costs")

	if a.deterioration == nil {
		a.computeDeterioration()
	}

	replEco := NewMatrix[string](a.years)
	for _, d := range a.deterioration {
		if !d.Replace {
			continue
		}
		yrRepl := a.yrOp - 1 + int(d.Lifetime)
		replEco.Set(d.Item, yrRepl, a.cEcoTot[d.Item]*d.ReplacementCostRatio)
	}

	a.netCosts["replacements"] = replEco.ColumnSums()
	return nil
}

// ComputeOpex prices road maintenance: road areas grouped by section
// type, surface, condition and usage class, multiplied by the matching
// maintenance unit cost. During construction years the project variant's
// maintenance is forced to equal the do-nothing variant's, as the project
// brings no maintenance benefit before opening.
func (a *Analysis) ComputeOpex() error {
	if !a.uc.built {
		return fmt.Errorf("%w: unit costs not computed", ErrNotComputed)
	}
	if !a.inputsRead {
		return fmt.Errorf("%w: read project inputs first", ErrNotComputed)
	}

	a.log.Debug("computing OPEX")

	fin0 := a.maintenanceVariant(0)
	fin1 := a.maintenanceVariant(1)

	// no maintenance benefit before project opening: construction years
	// of variant 1 take variant 0 values, over the union of groups
	merged := NewMatrix[MaintenanceKey](a.years)
	keys := make(map[MaintenanceKey]bool)
	for _, k := range fin0.Keys() {
		keys[k] = true
	}
	for _, k := range fin1.Keys() {
		keys[k] = true
	}
	for k := range keys {
		row := make([]float64, len(a.years))
		row0, ok0 := fin0.Row(k)
		row1, ok1 := fin1.Row(k)
		for i := range a.years {
			if i < a.nYrBld {
				if ok0 {
					row[i] = row0[i]
				}
			} else if ok1 {
				row[i] = row1[i]
			}
		}
		merged.SetRow(k, row)
	}
	fin1 = merged

	a.opexFin0 = fin0
	a.opexFin1 = fin1

	eco0 := fin0.Clone()
	eco0.Scale(a.clean.aggregateCF)
	eco1 := fin1.Clone()
	eco1.Scale(a.clean.aggregateCF)

	a.netCosts["opex_maintenance"] = NetSeries(eco1, eco0)
	return nil
}

// maintenanceVariant builds the financial maintenance cost matrix of one
// variant: grouped road areas times the maintenance unit cost series.
// Groups without a matching unit cost are dropped.
func (a *Analysis) maintenanceVariant(variant int) *Matrix[MaintenanceKey] {
	areas := make(map[MaintenanceKey]float64)
	for _, r := range a.roadsByVariant(variant) {
		area := r.Area
		if area == 0 {
			// length is in km, width in m
			area = r.Width * r.Length * 1e3
		}
		key := MaintenanceKey{r.SectionType, r.Surface, r.Condition, r.LowerUsage}
		areas[key] += area
	}

	fin := NewMatrix[MaintenanceKey](a.years)
	for key, area := range areas {
		ucRow, ok := a.uc.opex.Row(key)
		if !ok {
			continue
		}
		row := make([]float64, len(a.years))
		for i := range row {
			row[i] = area * ucRow[i]
		}
		fin.SetRow(key, row)
	}
	return fin
}
