package cba

import (
	"fmt"
	"sort"

	"github.com/jkollar/roadcba/pkg/params"
)

// ReadProjectInputs stores the six project input tables and aligns them
// to the evaluation period: traffic tables are reindexed to the
// evaluation years with missing years zero-filled, capital expenditure
// recorded before the evaluation period is squeezed into the first year,
// and the period split into construction and operation years is derived
// from the capex columns.
func (a *Analysis) ReadProjectInputs(pi *params.ProjectInputs) error {
	if !a.prepared {
		return fmt.Errorf("%w: prepare parameters first", ErrNotComputed)
	}

	a.log.Debug("reading project inputs")

	a.roads = append([]params.RoadSection(nil), pi.Roads...)
	for i := range a.roads {
		if a.roads[i].Acceleration == nil {
			a.log.Warnf("road section %s variant %d: no acceleration shares given, using 0",
				a.roads[i].ID, a.roads[i].Variant)
			a.roads[i].Acceleration = make(map[string]float64)
		}
	}

	a.i0 = a.wrangleTraffic(pi.Intensity0, "I0")
	a.i1 = a.wrangleTraffic(pi.Intensity1, "I1")
	a.v0 = a.wrangleTraffic(pi.Velocity0, "V0")
	a.v1 = a.wrangleTraffic(pi.Velocity1, "V1")

	if err := a.wrangleCapex(pi.Capex); err != nil {
		return err
	}

	if len(pi.CustomAccidentRates) > 0 {
		a.ReadCustomAccidentRates(pi.CustomAccidentRates)
		a.clean.accidentCustom = a.customAcc
	}
	if len(pi.TollSections) > 0 {
		a.ReadTollSectionTypes(pi.TollSections)
	}

	a.inputsRead = true
	return nil
}

// wrangleTraffic reindexes an intensity or velocity table to the
// evaluation years. Years beyond the supplied forecast horizon are filled
// with zeros and reported as a data-quality warning.
func (a *Analysis) wrangleTraffic(rows []params.TrafficRow, name string) *Matrix[SectionVehicle] {
	m := NewMatrix[SectionVehicle](a.years)

	horizon := 0
	for _, r := range rows {
		row := make([]float64, len(a.years))
		for i, y := range a.years {
			row[i] = r.Years[y]
		}
		for y := range r.Years {
			if y > horizon {
				horizon = y
			}
		}
		m.SetRow(SectionVehicle{r.Section, r.Vehicle}, row)
	}

	if len(rows) > 0 && horizon < a.years[len(a.years)-1] {
		a.log.Warnf("%s not forecast until the end of the evaluation period, filling with zeros", name)
	}
	return m
}

// wrangleCapex collects the financial capex table. Investments before the
// start of the evaluation period are summed and assigned to the first
// year (Guidebook 3.3.1); the construction period is derived from the
// remaining capex years.
func (a *Analysis) wrangleCapex(rows []params.CapexRow) error {
	if len(rows) == 0 {
		return fmt.Errorf("%w: capex: no items given", ErrConfig)
	}

	initYear := a.cfg.InitYear
	lastCapexYear := initYear

	byItem := make(map[string]map[int]float64, len(rows))
	items := make([]string, 0, len(rows))
	squeezed := false
	for _, r := range rows {
		if _, ok := byItem[r.Item]; !ok {
			byItem[r.Item] = make(map[int]float64)
			items = append(items, r.Item)
		}
		for y, v := range r.Years {
			if y < initYear {
				// pre-period spend moves to the first evaluation year
				byItem[r.Item][initYear] += v
				squeezed = true
				continue
			}
			byItem[r.Item][y] += v
			if y > lastCapexYear {
				lastCapexYear = y
			}
		}
	}
	if squeezed {
		a.log.Warn("squeezing pre-period CAPEX into the evaluation period")
	}
	sort.Strings(items)

	a.cFin = NewMatrix[string](a.years)
	for _, item := range items {
		row := make([]float64, len(a.years))
		for i, y := range a.years {
			row[i] = byItem[item][y]
		}
		a.cFin.SetRow(item, row)
	}

	// period split: operation starts the year after the last capex year
	a.yrOp = lastCapexYear + 1
	a.nYrBld = a.yrOp - initYear
	a.nYrOp = a.cfg.EvaluationPeriod - a.nYrBld
	if a.nYrOp <= 0 {
		return fmt.Errorf("%w: capex: construction years cover the whole evaluation period", ErrConfig)
	}
	a.yrsOp = a.years[a.nYrBld:]

	return nil
}

// roadsByVariant returns the road section records of one variant.
func (a *Analysis) roadsByVariant(variant int) []params.RoadSection {
	var out []params.RoadSection
	for _, r := range a.roads {
		if r.Variant == variant {
			out = append(out, r)
		}
	}
	return out
}

// environment returns the environment zone of a section in a variant.
func (a *Analysis) environment(section string, variant int) string {
	for _, r := range a.roads {
		if r.ID == section && r.Variant == variant {
			return r.Environment
		}
	}
	return ""
}
