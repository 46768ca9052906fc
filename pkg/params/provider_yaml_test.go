package params

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

const testParameterYAML = `
cpi:
  sources:
    newest: "2023"
  columns:
    "2023":
      2024: 0.05
      2025: 0.03
gdp_growth:
  sources:
    newest: forecast
  columns:
    forecast:
      2025: 0.02
      2026: 0.021
conversion_factors:
  - item: aggregate
    value: 0.85
  - item: land
    value: 0.9
residual_value:
  - item: land
    included: true
    lifetime: .inf
    replacement_cost_ratio: 1.0
    default_conversion_factor: land
  - item: construction
    included: true
    lifetime: 30
    replacement_cost_ratio: 1.0
operation_cost:
  - section_type: road
    surface: asphalt
    condition: good
    lower_usage: false
    value: 0.53
    unit: eur/m2
    price_level: 2021
    gdp_growth_adjustment: 0.0
vtts:
  - purpose: work
    value: 12.4
    price_level: 2021
    gdp_growth_adjustment: 0.7
trip_purpose:
  - vehicle: car
    purpose: work
    ratio: 0.3
passenger_occupancy:
  - vehicle: car
    value: 1.9
fuel_consumption_acceleration:
  - vehicle: car
    fuel: petrol
    increments:
      roundabout_extravilan: 0.012
      intersection_intravilan: 0.008
fuel_density:
  - fuel: petrol
    value: 0.75
co2_cost:
  - year: 2025
    value: 100
    scale: 0.001
    price_level: 2021
accident_rate:
  - road_type: motorway
    road_layout: standard
    fatal: 0.001
    severe_injury: 0.012
    light_injury: 0.1
    scale: 1.0e-6
`

func writeTestFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "params.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing test file: %v", err)
	}
	return path
}

func TestYAMLProviderLoadParameters(t *testing.T) {
	p := NewYAMLProvider(writeTestFile(t, testParameterYAML))
	defer p.Close()

	if !p.IsReadOnly() {
		t.Error("YAML provider must be read-only")
	}

	set, err := p.LoadParameters()
	if err != nil {
		t.Fatalf("LoadParameters: %v", err)
	}

	cpi, err := set.CPI.Select("newest")
	if err != nil {
		t.Fatalf("CPI Select: %v", err)
	}
	if got := cpi[2024]; got != 0.05 {
		t.Errorf("cpi[2024] = %v, want 0.05", got)
	}

	if len(set.ConversionFactors) != 2 || set.ConversionFactors[0].Item != "aggregate" {
		t.Errorf("conversion factors = %+v", set.ConversionFactors)
	}

	// ".inf" lifetime parses to +Inf
	if !math.IsInf(set.ResidualValue[0].Lifetime, 1) {
		t.Errorf("land lifetime = %v, want +Inf", set.ResidualValue[0].Lifetime)
	}
	if set.ResidualValue[1].Lifetime != 30 {
		t.Errorf("construction lifetime = %v, want 30", set.ResidualValue[1].Lifetime)
	}

	oc := set.OperationCost[0]
	if oc.Value != 0.53 || oc.PriceLevel != 2021 || oc.Unit != "eur/m2" {
		t.Errorf("operation cost = %+v", oc)
	}
	if oc.GDPGrowthAdjustment == nil || *oc.GDPGrowthAdjustment != 0.0 {
		t.Errorf("operation cost GDP adjustment = %v, want explicit 0", oc.GDPGrowthAdjustment)
	}

	vtts := set.VTTS[0]
	if vtts.GDPGrowthAdjustment == nil || *vtts.GDPGrowthAdjustment != 0.7 {
		t.Errorf("vtts GDP adjustment = %v, want 0.7", vtts.GDPGrowthAdjustment)
	}

	acc := set.FuelAcceleration[0]
	if acc.Increments["roundabout_extravilan"] != 0.012 {
		t.Errorf("acceleration increments = %+v", acc.Increments)
	}

	if set.CarbonCost[0].Scale != 0.001 {
		t.Errorf("carbon cost scale = %v, want 0.001", set.CarbonCost[0].Scale)
	}
	if set.AccidentRate[0].Scale != 1.0e-6 {
		t.Errorf("accident rate scale = %v, want 1e-6", set.AccidentRate[0].Scale)
	}
}

func TestYAMLProviderMissingFile(t *testing.T) {
	p := NewYAMLProvider("/nonexistent/params.yaml")
	if _, err := p.LoadParameters(); err == nil {
		t.Error("LoadParameters on a missing file succeeded")
	}
}

func TestYAMLProviderMalformed(t *testing.T) {
	p := NewYAMLProvider(writeTestFile(t, "cpi: [unbalanced"))
	if _, err := p.LoadParameters(); err == nil {
		t.Error("LoadParameters on malformed YAML succeeded")
	}
}

func TestSeriesSelect(t *testing.T) {
	s := Series{
		Sources: map[string]string{"newest": "2023", "older": "2019"},
		Columns: map[string]map[int]float64{
			"2023": {2025: 0.03},
		},
	}

	if _, err := s.Select("newest"); err != nil {
		t.Errorf("Select(newest): %v", err)
	}

	if _, err := s.Select("bogus"); err == nil {
		t.Error("Select(bogus) succeeded")
	}

	// a source pointing at a column that was never loaded is an error too
	if _, err := s.Select("older"); err == nil {
		t.Error("Select with a missing column succeeded")
	}
}

func TestLoadProjectInputs(t *testing.T) {
	const projectYAML = `
road_parameters:
  - id_road_section: s0
    variant: 0
    length: 10.5
    width: 11.5
    section_type: road
    surface: asphalt
    condition: good
    environment: extravilan
    road_type: motorway
    road_layout: standard
    toll_section: T1
    acceleration:
      roundabout_extravilan: 2
capex:
  - item: construction
    years:
      2025: 100
      2026: 50
intensities_0:
  - id_road_section: s0
    vehicle: car
    years:
      2025: 10000
toll_sections:
  - toll_section_id: T1
    toll_section_type_0: motorway
    toll_section_type_1: motorway
`
	path := filepath.Join(t.TempDir(), "project.yaml")
	if err := os.WriteFile(path, []byte(projectYAML), 0o644); err != nil {
		t.Fatalf("writing project file: %v", err)
	}

	pi, err := LoadProjectInputs(path)
	if err != nil {
		t.Fatalf("LoadProjectInputs: %v", err)
	}

	if len(pi.Roads) != 1 {
		t.Fatalf("roads = %+v", pi.Roads)
	}
	r := pi.Roads[0]
	if r.ID != "s0" || r.Length != 10.5 || r.TollSection != "T1" {
		t.Errorf("road section = %+v", r)
	}
	if r.Acceleration["roundabout_extravilan"] != 2 {
		t.Errorf("acceleration = %+v", r.Acceleration)
	}
	if pi.Capex[0].Years[2026] != 50 {
		t.Errorf("capex = %+v", pi.Capex)
	}
	if pi.Intensity0[0].Years[2025] != 10000 {
		t.Errorf("intensity = %+v", pi.Intensity0)
	}
	if pi.TollSections[0].Type0 != "motorway" {
		t.Errorf("toll sections = %+v", pi.TollSections)
	}
}
