package cba

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// CategoryNPV is one row of the appraisal breakdown: the discounted value
// of a single cost or benefit category.
type CategoryNPV struct {
	Type     string // "cost" or "benefit"
	Category string
	Value    float64
}

// Indicators holds the headline results of the economic analysis.
type Indicators struct {
	ENPV float64
	ERR  float64
	EBCR float64

	Breakdown []CategoryNPV
}

// String formats the indicators the way appraisal reports quote them.
func (ind Indicators) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "ENPV: %.2f\n", ind.ENPV)
	fmt.Fprintf(&b, "ERR:  %.2f%%\n", ind.ERR*100)
	fmt.Fprintf(&b, "EBCR: %.2f\n", ind.EBCR)
	for _, row := range ind.Breakdown {
		fmt.Fprintf(&b, "  %-8s %-18s %14.2f\n", row.Type, row.Category, row.Value)
	}
	return b.String()
}

// ComputeBenefits runs every appraisal benefit category: travel time,
// vehicle operating costs, fuel, greenhouse gases, air pollution, noise
// and accidents. Freight time savings are included only when configured.
func (a *Analysis) ComputeBenefits() error {
	if !a.inputsRead {
		return fmt.Errorf("%w: read project inputs first", ErrNotComputed)
	}

	a.log.Info("computing economic benefits")

	a.computeLengthMatrices()
	if err := a.computeTravelTimeMatrices(); err != nil {
		return err
	}
	a.computeFuelRatioMatrix()
	if err := a.computeFuelConsumption(); err != nil {
		return err
	}

	stages := []func() error{
		a.computeVTTS,
		a.computeVOC,
		a.computeVFTS,
		a.computeFuelCost,
		a.computeGreenhouse,
		a.computeEmissions,
		a.computeNoise,
		a.computeAccidents,
	}
	for _, stage := range stages {
		if err := stage(); err != nil {
			return err
		}
	}
	return nil
}

// PerformEconomicAnalysis runs the complete appraisal pipeline on the
// loaded parameters and project inputs and returns the economic
// indicators. Tolling is included only when toll section parameters have
// been loaded.
func (a *Analysis) PerformEconomicAnalysis() (Indicators, error) {
	if !a.prepared {
		return Indicators{}, fmt.Errorf("%w: prepare parameters first", ErrNotComputed)
	}
	if !a.inputsRead {
		return Indicators{}, fmt.Errorf("%w: read project inputs first", ErrNotComputed)
	}

	steps := []func() error{
		a.ComputeCapex,
		a.ComputeResidualValue,
		a.ComputeReplacements,
		a.ComputeOpex,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return Indicators{}, err
		}
	}
	if a.tollLoaded {
		if err := a.computeToll(); err != nil {
			return Indicators{}, err
		}
	}
	if err := a.ComputeBenefits(); err != nil {
		return Indicators{}, err
	}
	return a.ComputeEconomicIndicators()
}

// ComputeEconomicIndicators builds the economic ledger from the net cost
// and net benefit series and derives ENPV, ERR and EBCR. Costs enter the
// ledger negated; all ledger values are rounded to cents first.
func (a *Analysis) ComputeEconomicIndicators() (Indicators, error) {
	if len(a.netBenefits) == 0 {
		return Indicators{}, fmt.Errorf("%w: compute economic benefits first", ErrNotComputed)
	}

	a.log.Info("computing ENPV, ERR and EBCR")

	type ledgerRow struct {
		typ, category string
		values        []float64
	}
	var ledger []ledgerRow
	for _, cat := range sortedKeys(a.netCosts) {
		row := make([]float64, len(a.years))
		for i, v := range a.netCosts[cat] {
			row[i] = round2(-v)
		}
		ledger = append(ledger, ledgerRow{"cost", cat, row})
	}
	for _, cat := range sortedKeys(a.netBenefits) {
		row := make([]float64, len(a.years))
		for i, v := range a.netBenefits[cat] {
			row[i] = round2(v)
		}
		ledger = append(ledger, ledgerRow{"benefit", cat, row})
	}

	total := make([]float64, len(a.years))
	var ind Indicators
	var benefitNPV, costNPV float64
	for _, row := range ledger {
		floats.Add(total, row.values)
		value := round2(npv(a.cfg.EcoDiscountRate, row.values))
		ind.Breakdown = append(ind.Breakdown, CategoryNPV{row.typ, row.category, value})
		if row.typ == "benefit" {
			benefitNPV += value
		} else {
			costNPV += value
		}
	}

	ind.ENPV = npv(a.cfg.EcoDiscountRate, total)
	ind.ERR = irr(total)
	ind.EBCR = benefitNPV / -costNPV
	return ind, nil
}

// PerformFinancialAnalysis is not part of the current methodology release.
func (a *Analysis) PerformFinancialAnalysis() error {
	return fmt.Errorf("%w: financial analysis", ErrNotImplemented)
}

// PrintFinancialIndicators is not part of the current methodology release.
func (a *Analysis) PrintFinancialIndicators() error {
	return fmt.Errorf("%w: financial indicators", ErrNotImplemented)
}

func sortedKeys(m map[string][]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// npv discounts a cash flow series. The first element is not discounted.
func npv(rate float64, cf []float64) float64 {
	var v float64
	d := 1.0
	for _, c := range cf {
		v += c / d
		d *= 1 + rate
	}
	return v
}

// irr finds the internal rate of return of a cash flow series by
// bracketing a sign change of the NPV and bisecting. Returns NaN when no
// root exists in (-1, 10).
func irr(cf []float64) float64 {
	f := func(r float64) float64 { return npv(r, cf) }

	// scan for a sign change
	const step = 0.01
	lo := -0.99
	flo := f(lo)
	var hi float64
	found := false
	for r := lo + step; r <= 10.0; r += step {
		fr := f(r)
		if flo == 0 {
			return lo
		}
		if (flo < 0) != (fr < 0) {
			hi = r
			found = true
			break
		}
		lo, flo = r, fr
	}
	if !found {
		return math.NaN()
	}

	for i := 0; i < 200; i++ {
		mid := (lo + hi) / 2
		fm := f(mid)
		if fm == 0 || hi-lo < 1e-12 {
			return mid
		}
		if (flo < 0) != (fm < 0) {
			hi = mid
		} else {
			lo, flo = mid, fm
		}
	}
	return (lo + hi) / 2
}
