package cba

import (
	"fmt"

	"github.com/jkollar/roadcba/pkg/params"
)

// Default CPI assumed for years where the forecast carries no value.
const defaultInflation = 0.02

// CPI index window. The cumulative index is built over this range so any
// reasonable price level or base year can be rescaled.
const (
	cpiYearMin = 2000
	cpiYearMax = 2100
)

// PrepareParameters normalizes the raw parameter tables: selects the CPI
// and GDP data sources, builds the cumulative inflation index, applies
// scales and price-level adjustments, wrangles category keys and builds
// the extrapolated unit-cost time series.
func (a *Analysis) PrepareParameters() error {
	if a.raw == nil {
		return fmt.Errorf("%w: read parameters first", ErrNotComputed)
	}

	a.log.Debug("preparing CBA parameters")

	cpi, err := a.raw.CPI.Select(a.cfg.CPISource)
	if err != nil {
		return fmt.Errorf("%w: CPI: %v", ErrConfig, err)
	}
	gdp, err := a.raw.GDPGrowth.Select(a.cfg.GDPSource)
	if err != nil {
		return fmt.Errorf("%w: GDP growth: %v", ErrConfig, err)
	}
	a.cpi = cpi
	a.gdp = gdp

	a.wrangleCPI()

	if err := a.cleanParameters(); err != nil {
		return err
	}
	if err := a.buildUnitCosts(); err != nil {
		return err
	}

	a.prepared = true
	return nil
}

// wrangleCPI computes the cumulative inflation index over the CPI window,
// anchored at 1.0 in the price-level year. Going backward the index grows
// by each year's inflation; going forward it shrinks.
func (a *Analysis) wrangleCPI() {
	a.log.Debug("wrangling CPI")

	rate := func(year int) float64 {
		if v, ok := a.cpi[year]; ok {
			return v
		}
		return defaultInflation
	}

	idx := make(map[int]float64, cpiYearMax-cpiYearMin+1)
	idx[a.cfg.PriceLevel] = 1.0

	for y := a.cfg.PriceLevel - 1; y >= cpiYearMin; y-- {
		idx[y] = idx[y+1] * (1.0 + rate(y))
	}
	for y := a.cfg.PriceLevel + 1; y <= cpiYearMax; y++ {
		idx[y] = idx[y-1] / (1.0 + rate(y-1))
	}

	a.cpiIndex = idx
}

// cpiFactor returns the cumulative index for a price-level year; prices
// without a price-level tag are left untouched.
func (a *Analysis) cpiFactor(priceLevel int) float64 {
	if priceLevel == 0 {
		return 1.0
	}
	if f, ok := a.cpiIndex[priceLevel]; ok {
		return f
	}
	return 1.0
}

// scaled applies the scale column to a raw value.
func scaled(value, scale float64) float64 {
	if scale != 0 {
		return value * scale
	}
	return value
}

// addUnitCost stores one normalized unit-cost row and enforces the
// single-base-year precondition of the category.
func addUnitCost[K comparable](p *unitCostParam[K], category string, initYear int, k K, value float64, c params.Cost) error {
	if p.values == nil {
		p.values = make(map[K]float64)
	}

	base := c.PriceLevel
	if base == 0 {
		base = initYear
	}
	if !p.hasBase {
		p.baseYear = base
		p.hasBase = true
	} else if p.baseYear != base {
		return fmt.Errorf("%w: %s: mixed base years %d and %d", ErrConfig, category, p.baseYear, base)
	}

	p.values[k] = value
	if c.GDPGrowthAdjustment != nil {
		if p.elasticity == nil {
			p.elasticity = make(map[K]float64)
		}
		p.elasticity[k] = *c.GDPGrowthAdjustment
	}
	return nil
}

// cleanParameters turns the raw tables into the normalized keyed state:
// scales applied, prices unified to the configured price level, category
// keys set, and the derived parameter joins (VTTS collapse, fuel density
// conversions, conversion-factor lookup) performed.
func (a *Analysis) cleanParameters() error {
	a.log.Debug("cleaning parameters")

	c := &a.clean
	initYear := a.cfg.InitYear

	// conversion factors
	c.convFac = make(map[string]float64, len(a.raw.ConversionFactors))
	for _, cf := range a.raw.ConversionFactors {
		c.convFac[cf.Item] = cf.Value
	}
	agg, ok := c.convFac["aggregate"]
	if !ok {
		return fmt.Errorf("%w: conversion_factors: missing the aggregate factor", ErrConfig)
	}
	c.aggregateCF = agg

	// residual value items and the capex conversion-factor join
	c.residual = append([]params.ResidualValue(nil), a.raw.ResidualValue...)
	c.capexConvFac = make(map[string]float64, len(c.residual))
	for _, rv := range c.residual {
		if f, ok := c.convFac[rv.DefaultConversionFactor]; ok {
			c.capexConvFac[rv.Item] = f
		}
	}

	// maintenance unit costs
	for _, oc := range a.raw.OperationCost {
		key := MaintenanceKey{oc.SectionType, oc.Surface, oc.Condition, oc.LowerUsage}
		v := scaled(oc.Value, oc.Scale) * a.cpiFactor(oc.PriceLevel)
		if err := addUnitCost(&c.opex, "c_op", initYear, key, v, oc.Cost); err != nil {
			return err
		}
	}

	if err := a.wrangleVTTS(); err != nil {
		return err
	}

	for _, v := range a.raw.VOCDistance {
		val := scaled(v.Value, v.Scale) * a.cpiFactor(v.PriceLevel)
		if err := addUnitCost(&c.vocL, "voc_l", initYear, VehicleFuel{v.Vehicle, v.Fuel}, val, v.Cost); err != nil {
			return err
		}
	}
	for _, v := range a.raw.VOCTime {
		val := scaled(v.Value, v.Scale) * a.cpiFactor(v.PriceLevel)
		if err := addUnitCost(&c.vocT, "voc_t", initYear, VehicleFuel{v.Vehicle, v.Fuel}, val, v.Cost); err != nil {
			return err
		}
	}

	// freight time savings: one unit value applied to both freight
	// vehicle classes
	for _, v := range a.raw.VFTS {
		val := scaled(v.Value, v.Scale) * a.cpiFactor(v.PriceLevel)
		for _, vehicle := range []string{"mgv", "hgv"} {
			if err := addUnitCost(&c.vfts, "vfts", initYear, vehicle, val, v.Cost); err != nil {
				return err
			}
		}
	}

	if err := a.wrangleFuel(); err != nil {
		return err
	}

	// greenhouse gas production rates in gCO2e per kg of fuel
	c.ghgRate = make(map[VehicleFuelGas]float64, len(a.raw.GreenhouseRate))
	for _, gr := range a.raw.GreenhouseRate {
		c.ghgRate[VehicleFuelGas{gr.Vehicle, gr.Fuel, gr.Gas}] = scaled(gr.Value, gr.Scale) * gr.CO2eFactor
	}
	c.carbonPrice = make(map[int]float64, len(a.raw.CarbonCost))
	for _, cc := range a.raw.CarbonCost {
		c.carbonPrice[cc.Year] = scaled(cc.Value, cc.Scale) * a.cpiFactor(cc.PriceLevel)
	}

	// air pollutant rates and damage costs
	c.emissionRate = make(map[VehicleFuelSubstance]float64, len(a.raw.EmissionRate))
	for _, er := range a.raw.EmissionRate {
		c.emissionRate[VehicleFuelSubstance{er.Vehicle, er.Fuel, er.Substance}] = scaled(er.Value, er.Scale)
	}
	for _, ec := range a.raw.EmissionCost {
		val := scaled(ec.Value, ec.Scale) * a.cpiFactor(ec.PriceLevel)
		if err := addUnitCost(&c.emissionCost, "c_em", initYear, SubstanceEnvironment{ec.Substance, ec.Environment}, val, ec.Cost); err != nil {
			return err
		}
	}

	for _, nc := range a.raw.NoiseCost {
		val := scaled(nc.Value, nc.Scale) * a.cpiFactor(nc.PriceLevel)
		if err := addUnitCost(&c.noiseCost, "c_noise", initYear, VehicleEnvironment{nc.Vehicle, nc.Environment}, val, nc.Cost); err != nil {
			return err
		}
	}

	// accidents: default rates by road type and layout, costs by severity
	c.accidentDefault = make(map[roadTypeLayout][3]float64, len(a.raw.AccidentRate))
	for _, ar := range a.raw.AccidentRate {
		scale := ar.Scale
		if scale == 0 {
			scale = 1
		}
		c.accidentDefault[roadTypeLayout{ar.RoadType, ar.RoadLayout}] =
			[3]float64{ar.Fatal * scale, ar.SevereInjury * scale, ar.LightInjury * scale}
	}
	c.accidentCustom = a.customAcc
	for _, ac := range a.raw.AccidentCost {
		val := scaled(ac.Value, ac.Scale) * a.cpiFactor(ac.PriceLevel)
		if err := addUnitCost(&c.accidentCost, "c_acc", initYear, ac.AccidentType, val, ac.Cost); err != nil {
			return err
		}
	}

	// tolling
	for _, to := range a.raw.TollOperation {
		if err := addUnitCost(&c.tollOp, "c_toll", initYear, to.Item, scaled(to.Value, to.Scale), to.Cost); err != nil {
			return err
		}
	}
	for _, tr := range a.raw.TollRevenue {
		rates := map[string]float64{
			"motorway":         tr.Motorway,
			"parallel":         tr.Parallel,
			"nonparallel":      tr.Nonparallel,
			"other/intravilan": tr.OtherIntravilan,
		}
		for tollType, rate := range rates {
			key := VehicleTollType{tr.Vehicle, tollType}
			cost := params.Cost{Value: rate, PriceLevel: tr.PriceLevel}
			if err := addUnitCost(&c.tollRev, "i_toll", initYear, key, rate, cost); err != nil {
				return err
			}
		}
	}

	return nil
}

// wrangleVTTS collapses the value of travel time savings to one value per
// vehicle type: the per-purpose unit values weighted by trip purpose
// shares and passenger occupancy. Rail and transit purposes do not apply
// to road appraisal and are skipped.
func (a *Analysis) wrangleVTTS() error {
	c := &a.clean

	unit := make(map[string]float64, len(a.raw.VTTS))
	var attrs params.Cost
	for i, v := range a.raw.VTTS {
		unit[v.Purpose] = scaled(v.Value, v.Scale) * a.cpiFactor(v.PriceLevel)
		if i == 0 {
			attrs = v.Cost
		}
	}

	occ := make(map[string]float64, len(a.raw.PassengerOccupancy))
	for _, o := range a.raw.PassengerOccupancy {
		occ[o.Vehicle] = o.Value
	}

	collapsed := make(map[string]float64)
	for _, tp := range a.raw.TripPurpose {
		if tp.Vehicle == "transit" || tp.Vehicle == "train" {
			continue
		}
		collapsed[tp.Vehicle] += tp.Ratio * occ[tp.Vehicle] * unit[tp.Purpose]
	}

	for vehicle, value := range collapsed {
		if err := addUnitCost(&c.vtts, "vtts", a.cfg.InitYear, vehicle, value, attrs); err != nil {
			return err
		}
	}
	return nil
}

// wrangleFuel converts all fuel parameters from liters to kilograms using
// the fuel densities: cost per liter becomes cost per kg, consumption
// curve coefficients become kg/km, acceleration increments become kg per
// event.
func (a *Analysis) wrangleFuel() error {
	c := &a.clean

	c.fuelDensity = make(map[string]float64, len(a.raw.FuelDensity))
	for _, fd := range a.raw.FuelDensity {
		c.fuelDensity[fd.Fuel] = fd.Value
	}

	density := func(fuel string) (float64, error) {
		d, ok := c.fuelDensity[fuel]
		if !ok || d == 0 {
			return 0, fmt.Errorf("%w: fuel_density: no density for fuel %q", ErrConfig, fuel)
		}
		return d, nil
	}

	c.fuelRatio = make(map[VehicleFuel]float64, len(a.raw.FuelRatio))
	for _, fr := range a.raw.FuelRatio {
		c.fuelRatio[VehicleFuel{fr.Vehicle, fr.Fuel}] = fr.Ratio
	}

	for _, fc := range a.raw.FuelCost {
		d, err := density(fc.Fuel)
		if err != nil {
			return err
		}
		val := scaled(fc.Value, fc.Scale) / d
		if err := addUnitCost(&c.fuelCost, "c_fuel", a.cfg.InitYear, fc.Fuel, val, fc.Cost); err != nil {
			return err
		}
	}

	c.fuelCoeffs = make(map[VehicleFuel][4]float64, len(a.raw.FuelConsumption))
	for _, fcc := range a.raw.FuelConsumption {
		d, err := density(fcc.Fuel)
		if err != nil {
			return err
		}
		c.fuelCoeffs[VehicleFuel{fcc.Vehicle, fcc.Fuel}] =
			[4]float64{fcc.A0 * d, fcc.A1 * d, fcc.A2 * d, fcc.A3 * d}
	}

	c.fuelAcc = make(map[VehicleFuel]map[string]float64, len(a.raw.FuelAcceleration))
	for _, fa := range a.raw.FuelAcceleration {
		d, err := density(fa.Fuel)
		if err != nil {
			return err
		}
		inc := make(map[string]float64, len(fa.Increments))
		for junction, v := range fa.Increments {
			inc[junction] = v * d
		}
		c.fuelAcc[VehicleFuel{fa.Vehicle, fa.Fuel}] = inc
	}

	return nil
}
