package cba

import "fmt"

// Unit-cost time series construction. Each category's base value is
// compounded with GDP growth times the category's elasticity, first from
// the base year up to the start of the evaluation period and then through
// every evaluation year. Growth does not saturate at the evaluation start;
// the methodology extrapolates through the whole operation period.

// growth returns the GDP growth for a year, 0 when the forecast is silent.
func (a *Analysis) growth(year int) float64 {
	return a.gdp[year]
}

// buildSeries extrapolates one unit-cost category over the evaluation
// years. Categories without an elasticity stay flat at the base value.
func buildSeries[K comparable](a *Analysis, p unitCostParam[K]) *Matrix[K] {
	m := NewMatrix[K](a.years)
	if len(p.values) == 0 {
		return m
	}

	initYear := a.years[0]
	for k, base := range p.values {
		e := p.elasticity[k]

		// compound from the base year to the evaluation start
		v := base
		for y := p.baseYear + 1; y <= initYear; y++ {
			v *= 1.0 + a.growth(y-1)*e
		}

		row := make([]float64, len(a.years))
		row[0] = v
		for i := 1; i < len(a.years); i++ {
			v *= 1.0 + a.growth(a.years[i]-1)*e
			row[i] = v
		}
		m.SetRow(k, row)
	}
	return m
}

// buildUnitCosts creates the time series for every benefit's unit cost.
func (a *Analysis) buildUnitCosts() error {
	a.log.Debug("creating time series for benefits' unit costs")

	c := &a.clean

	a.uc.opex = buildSeries(a, c.opex)
	a.uc.vtts = buildSeries(a, c.vtts)
	a.uc.vocL = buildSeries(a, c.vocL)
	a.uc.vocT = buildSeries(a, c.vocT)
	a.uc.vfts = buildSeries(a, c.vfts)
	a.uc.fuel = buildSeries(a, c.fuelCost)
	a.uc.emissions = buildSeries(a, c.emissionCost)
	a.uc.noise = buildSeries(a, c.noiseCost)
	a.uc.accidents = buildSeries(a, c.accidentCost)
	a.uc.tollOp = buildSeries(a, c.tollOp)
	a.uc.tollRev = buildSeries(a, c.tollRev)

	// Greenhouse gases have a fixed time evolution given by the carbon
	// price forecast; no GDP extrapolation applies.
	a.uc.ghg = NewMatrix[VehicleFuelGas](a.years)
	if len(c.ghgRate) > 0 {
		for _, y := range a.years {
			if _, ok := c.carbonPrice[y]; !ok {
				return fmt.Errorf("%w: co2_cost: no carbon price for year %d", ErrConfig, y)
			}
		}
	}
	for k, rate := range c.ghgRate {
		row := make([]float64, len(a.years))
		for i, y := range a.years {
			row[i] = rate * c.carbonPrice[y]
		}
		a.uc.ghg.SetRow(k, row)
	}

	a.uc.built = true
	return nil
}
