// Package params defines the parameter tables consumed by the CBA engine
// and the providers that load them from YAML files or a SQLite database.
//
// Every unit-cost category has its own row schema. Rows carry the raw
// values straight from the source workbook; normalization (scale removal,
// price-level adjustment, key wrangling) happens in the engine, not here.
package params

import (
	"fmt"
	"math"
	"sort"
)

var inf = math.Inf(1)

// Cost holds the bookkeeping columns shared by unit-cost rows.
// Scale of 0 means no scale column was present. GDPGrowthAdjustment is nil
// for categories without a GDP elasticity.
type Cost struct {
	Value               float64  `yaml:"value"`
	Scale               float64  `yaml:"scale,omitempty"`
	Unit                string   `yaml:"unit,omitempty"`
	PriceLevel          int      `yaml:"price_level,omitempty"`
	GDPGrowthAdjustment *float64 `yaml:"gdp_growth_adjustment,omitempty"`
}

// Series is a year-indexed economic data table (CPI, GDP growth) with
// several named columns and a source-key lookup selecting one of them.
type Series struct {
	// Sources maps a source key ("newest", "2021", ...) to a column name.
	Sources map[string]string `yaml:"sources"`
	// Columns maps a column name to year-indexed values.
	Columns map[string]map[int]float64 `yaml:"columns"`
}

// Select resolves a source key to its column of year-indexed values.
// Unknown keys are a configuration error naming the valid choices.
func (s *Series) Select(source string) (map[int]float64, error) {
	column, ok := s.Sources[source]
	if !ok {
		keys := make([]string, 0, len(s.Sources))
		for k := range s.Sources {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("%q not available as a data source, use one of %v", source, keys)
	}
	values, ok := s.Columns[column]
	if !ok {
		return nil, fmt.Errorf("data source %q points at missing column %q", source, column)
	}
	return values, nil
}

// ResidualValue describes one capex item's useful life.
// Lifetime may be +Inf (".inf" in YAML) for items that never wear out,
// such as land.
type ResidualValue struct {
	Item                    string  `yaml:"item"`
	Included                bool    `yaml:"included"`
	Lifetime                float64 `yaml:"lifetime"`
	ReplacementCostRatio    float64 `yaml:"replacement_cost_ratio"`
	DefaultConversionFactor string  `yaml:"default_conversion_factor"`
}

// ConversionFactor maps a capex item class to its economic conversion factor.
type ConversionFactor struct {
	Item  string  `yaml:"item"`
	Value float64 `yaml:"value"`
}

// OperationCost is the road maintenance unit cost per square meter.
type OperationCost struct {
	SectionType string `yaml:"section_type"`
	Surface     string `yaml:"surface"`
	Condition   string `yaml:"condition"`
	LowerUsage  bool   `yaml:"lower_usage"`
	Cost        `yaml:",inline"`
}

// TollOperation is a toll-system operating cost item.
type TollOperation struct {
	Item string `yaml:"item"`
	Cost `yaml:",inline"`
}

// TollRevenue holds per-vehicle toll rates by toll section type.
type TollRevenue struct {
	Vehicle         string  `yaml:"vehicle"`
	Motorway        float64 `yaml:"motorway"`
	Parallel        float64 `yaml:"parallel"`
	Nonparallel     float64 `yaml:"nonparallel"`
	OtherIntravilan float64 `yaml:"other_intravilan"`
	PriceLevel      int     `yaml:"price_level"`
}

// TripPurpose is the share of trips made for a given purpose by a vehicle
// type.
type TripPurpose struct {
	Vehicle string  `yaml:"vehicle"`
	Purpose string  `yaml:"purpose"`
	Ratio   float64 `yaml:"ratio"`
}

// PassengerOccupancy is the average number of passengers per vehicle.
type PassengerOccupancy struct {
	Vehicle string  `yaml:"vehicle"`
	Value   float64 `yaml:"value"`
}

// VTTS is the unit value of travel time savings per trip purpose.
type VTTS struct {
	Purpose string `yaml:"purpose"`
	Cost    `yaml:",inline"`
}

// VOC is a vehicle operating cost entry, either distance- or time-dependent
// depending on which table it came from.
type VOC struct {
	Vehicle string `yaml:"vehicle"`
	Fuel    string `yaml:"fuel"`
	Cost    `yaml:",inline"`
}

// VFTS is the unit value of freight time savings.
type VFTS struct {
	Substance string `yaml:"substance"`
	Cost      `yaml:",inline"`
}

// FuelRatio is the share of a fuel type within a vehicle class fleet.
type FuelRatio struct {
	Vehicle string  `yaml:"vehicle"`
	Fuel    string  `yaml:"fuel"`
	Ratio   float64 `yaml:"ratio"`
}

// FuelConsumptionCurve holds cubic polynomial coefficients giving fuel
// consumption in liters per km as a function of velocity in km/h.
type FuelConsumptionCurve struct {
	Vehicle string  `yaml:"vehicle"`
	Fuel    string  `yaml:"fuel"`
	A0      float64 `yaml:"a0"`
	A1      float64 `yaml:"a1"`
	A2      float64 `yaml:"a2"`
	A3      float64 `yaml:"a3"`
}

// FuelAcceleration holds the additional fuel burnt per acceleration event,
// in liters, keyed by junction category.
type FuelAcceleration struct {
	Vehicle    string             `yaml:"vehicle"`
	Fuel       string             `yaml:"fuel"`
	Increments map[string]float64 `yaml:"increments"`
}

// FuelDensity is the density of a fuel in kg per liter.
type FuelDensity struct {
	Fuel  string  `yaml:"fuel"`
	Value float64 `yaml:"value"`
}

// FuelCost is the unit cost of fuel in eur per liter.
type FuelCost struct {
	Fuel string `yaml:"fuel"`
	Cost `yaml:",inline"`
}

// GreenhouseRate is the production of a greenhouse gas in grams per kg of
// fuel burnt, together with its CO2-equivalence factor.
type GreenhouseRate struct {
	Vehicle    string  `yaml:"vehicle"`
	Fuel       string  `yaml:"fuel"`
	Gas        string  `yaml:"gas"`
	Value      float64 `yaml:"value"`
	CO2eFactor float64 `yaml:"co2e_factor"`
	Scale      float64 `yaml:"scale,omitempty"`
	PriceLevel int     `yaml:"price_level,omitempty"`
}

// CarbonCost is the year-indexed price of a tonne of CO2 equivalent.
type CarbonCost struct {
	Year       int     `yaml:"year"`
	Value      float64 `yaml:"value"`
	Scale      float64 `yaml:"scale,omitempty"`
	PriceLevel int     `yaml:"price_level,omitempty"`
}

// EmissionRate is the production of an air pollutant in grams per kg of
// fuel burnt.
type EmissionRate struct {
	Vehicle   string  `yaml:"vehicle"`
	Fuel      string  `yaml:"fuel"`
	Substance string  `yaml:"substance"`
	Value     float64 `yaml:"value"`
	Scale     float64 `yaml:"scale,omitempty"`
}

// EmissionCost is the damage cost of an air pollutant by environment zone.
type EmissionCost struct {
	Substance   string `yaml:"substance"`
	Environment string `yaml:"environment"`
	Cost        `yaml:",inline"`
}

// NoiseCost is the noise damage cost per vehicle-km by environment zone.
type NoiseCost struct {
	Vehicle     string `yaml:"vehicle"`
	Environment string `yaml:"environment"`
	Cost        `yaml:",inline"`
}

// AccidentRate holds default accident rates per million vehicle-km by road
// type and layout, split by severity.
type AccidentRate struct {
	RoadType     string  `yaml:"road_type"`
	RoadLayout   string  `yaml:"road_layout"`
	Fatal        float64 `yaml:"fatal"`
	SevereInjury float64 `yaml:"severe_injury"`
	LightInjury  float64 `yaml:"light_injury"`
	Scale        float64 `yaml:"scale,omitempty"`
}

// CustomAccidentRate is a named accident rate supplied by the analyst for
// sections where the default rates do not apply.
type CustomAccidentRate struct {
	Name         string  `yaml:"name"`
	Fatal        float64 `yaml:"fatal"`
	SevereInjury float64 `yaml:"severe_injury"`
	LightInjury  float64 `yaml:"light_injury"`
	Scale        float64 `yaml:"scale,omitempty"`
}

// AccidentCost is the economic cost of one accident casualty by severity.
type AccidentCost struct {
	AccidentType string `yaml:"accident_type"`
	Cost         `yaml:",inline"`
}

// Set is the complete collection of parameter tables for one methodology
// release.
type Set struct {
	CPI       Series `yaml:"cpi"`
	GDPGrowth Series `yaml:"gdp_growth"`

	ResidualValue      []ResidualValue        `yaml:"residual_value"`
	ConversionFactors  []ConversionFactor     `yaml:"conversion_factors"`
	OperationCost      []OperationCost        `yaml:"operation_cost"`
	TollOperation      []TollOperation        `yaml:"toll_operation"`
	TollRevenue        []TollRevenue          `yaml:"toll_revenue"`
	TripPurpose        []TripPurpose          `yaml:"trip_purpose"`
	PassengerOccupancy []PassengerOccupancy   `yaml:"passenger_occupancy"`
	VTTS               []VTTS                 `yaml:"vtts"`
	VOCDistance        []VOC                  `yaml:"voc_l"`
	VOCTime            []VOC                  `yaml:"voc_t"`
	VFTS               []VFTS                 `yaml:"vfts"`
	FuelRatio          []FuelRatio            `yaml:"fuel_ratio"`
	FuelConsumption    []FuelConsumptionCurve `yaml:"fuel_consumption"`
	FuelAcceleration   []FuelAcceleration     `yaml:"fuel_consumption_acceleration"`
	FuelDensity        []FuelDensity          `yaml:"fuel_density"`
	FuelCost           []FuelCost             `yaml:"fuel_cost"`
	GreenhouseRate     []GreenhouseRate       `yaml:"greenhouse_rate"`
	CarbonCost         []CarbonCost           `yaml:"co2_cost"`
	EmissionRate       []EmissionRate         `yaml:"emission_rate"`
	EmissionCost       []EmissionCost         `yaml:"emission_cost"`
	NoiseCost          []NoiseCost            `yaml:"noise_cost"`
	AccidentRate       []AccidentRate         `yaml:"accident_rate"`
	AccidentCost       []AccidentCost         `yaml:"accident_cost"`
}

// Provider defines the interface for parameter data sources
type Provider interface {
	// LoadParameters loads the complete parameter set
	LoadParameters() (*Set, error)

	// IsReadOnly reports whether the provider can be written to
	IsReadOnly() bool
	Close() error
}
