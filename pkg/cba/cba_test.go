package cba

import (
	"errors"
	"math"
	"testing"

	"github.com/jkollar/roadcba/pkg/params"
)

func gdpAdj(v float64) *float64 { return &v }

// testConfig covers a short 5-year appraisal with one construction year.
func testConfig() Config {
	return Config{
		InitYear:           2025,
		EvaluationPeriod:   5,
		PriceLevel:         2025,
		FinDiscountRate:    0.04,
		EcoDiscountRate:    0.05,
		Currency:           "eur",
		IncludeFreightTime: true,
		CPISource:          "test",
		GDPSource:          "test",
	}
}

// testSet builds a complete parameter set with round numbers so the
// category results can be verified by hand. Inflation and GDP growth are
// zero, which keeps every unit-cost series flat.
func testSet() *params.Set {
	zeroSeries := func() params.Series {
		col := make(map[int]float64)
		for y := 2000; y <= 2100; y++ {
			col[y] = 0.0
		}
		return params.Series{
			Sources: map[string]string{"test": "zero"},
			Columns: map[string]map[int]float64{"zero": col},
		}
	}

	set := &params.Set{
		CPI:       zeroSeries(),
		GDPGrowth: zeroSeries(),

		ConversionFactors: []params.ConversionFactor{
			{Item: "aggregate", Value: 0.85},
			{Item: "land", Value: 0.90},
			{Item: "construction", Value: 0.80},
		},
		ResidualValue: []params.ResidualValue{
			{Item: "land", Included: true, Lifetime: math.Inf(1), ReplacementCostRatio: 1.0, DefaultConversionFactor: "land"},
			{Item: "construction", Included: true, Lifetime: 30, ReplacementCostRatio: 1.0, DefaultConversionFactor: "construction"},
			{Item: "equipment", Included: true, Lifetime: 3, ReplacementCostRatio: 1.0},
		},
		OperationCost: []params.OperationCost{
			{SectionType: "road", Surface: "asphalt", Condition: "good",
				Cost: params.Cost{Value: 1.0, PriceLevel: 2025, GDPGrowthAdjustment: gdpAdj(0)}},
		},
		TollOperation: []params.TollOperation{
			{Item: "toll_transaction_cost", Cost: params.Cost{Value: 0.05, PriceLevel: 2025}},
		},
		TollRevenue: []params.TollRevenue{
			{Vehicle: "hgv", Motorway: 0.2, Parallel: 0.1, Nonparallel: 0.15, OtherIntravilan: 0.05, PriceLevel: 2025},
		},
		TripPurpose: []params.TripPurpose{
			{Vehicle: "car", Purpose: "work", Ratio: 0.3},
			{Vehicle: "car", Purpose: "other", Ratio: 0.7},
		},
		PassengerOccupancy: []params.PassengerOccupancy{
			{Vehicle: "car", Value: 2.0},
		},
		VTTS: []params.VTTS{
			{Purpose: "work", Cost: params.Cost{Value: 10.0, PriceLevel: 2025, GDPGrowthAdjustment: gdpAdj(0.7)}},
			{Purpose: "other", Cost: params.Cost{Value: 5.0, PriceLevel: 2025, GDPGrowthAdjustment: gdpAdj(0.7)}},
		},
		VOCDistance: []params.VOC{
			{Vehicle: "car", Fuel: "petrol", Cost: params.Cost{Value: 0.1, PriceLevel: 2025}},
			{Vehicle: "hgv", Fuel: "diesel", Cost: params.Cost{Value: 0.3, PriceLevel: 2025}},
		},
		VOCTime: []params.VOC{
			{Vehicle: "car", Fuel: "petrol", Cost: params.Cost{Value: 1.0, PriceLevel: 2025}},
			{Vehicle: "hgv", Fuel: "diesel", Cost: params.Cost{Value: 2.0, PriceLevel: 2025}},
		},
		VFTS: []params.VFTS{
			{Substance: "freight", Cost: params.Cost{Value: 3.0, PriceLevel: 2025}},
		},
		FuelRatio: []params.FuelRatio{
			{Vehicle: "car", Fuel: "petrol", Ratio: 1.0},
			{Vehicle: "hgv", Fuel: "diesel", Ratio: 1.0},
		},
		FuelConsumption: []params.FuelConsumptionCurve{
			{Vehicle: "car", Fuel: "petrol", A0: 0.05},
			{Vehicle: "hgv", Fuel: "diesel", A0: 0.2},
		},
		FuelAcceleration: []params.FuelAcceleration{
			{Vehicle: "car", Fuel: "petrol", Increments: map[string]float64{"intersection_extravilan": 0.02}},
			{Vehicle: "hgv", Fuel: "diesel", Increments: map[string]float64{"intersection_extravilan": 0.08}},
		},
		FuelDensity: []params.FuelDensity{
			{Fuel: "petrol", Value: 0.75},
			{Fuel: "diesel", Value: 0.84},
		},
		FuelCost: []params.FuelCost{
			{Fuel: "petrol", Cost: params.Cost{Value: 1.5, PriceLevel: 2025}},
			{Fuel: "diesel", Cost: params.Cost{Value: 1.4, PriceLevel: 2025}},
		},
		GreenhouseRate: []params.GreenhouseRate{
			{Vehicle: "car", Fuel: "petrol", Gas: "co2", Value: 3.1, CO2eFactor: 1.0},
		},
		CarbonCost: []params.CarbonCost{
			{Year: 2025, Value: 0.1}, {Year: 2026, Value: 0.1}, {Year: 2027, Value: 0.1},
			{Year: 2028, Value: 0.1}, {Year: 2029, Value: 0.1},
		},
		EmissionRate: []params.EmissionRate{
			{Vehicle: "car", Fuel: "petrol", Substance: "nox", Value: 0.01},
		},
		EmissionCost: []params.EmissionCost{
			{Substance: "nox", Environment: "extravilan", Cost: params.Cost{Value: 5.0, PriceLevel: 2025}},
			{Substance: "nox", Environment: "intravilan", Cost: params.Cost{Value: 8.0, PriceLevel: 2025}},
		},
		NoiseCost: []params.NoiseCost{
			{Vehicle: "car", Environment: "extravilan", Cost: params.Cost{Value: 0.001, PriceLevel: 2025}},
			{Vehicle: "hgv", Environment: "extravilan", Cost: params.Cost{Value: 0.002, PriceLevel: 2025}},
		},
		AccidentRate: []params.AccidentRate{
			{RoadType: "motorway", RoadLayout: "standard", Fatal: 0.001, SevereInjury: 0.01, LightInjury: 0.1, Scale: 1e-6},
		},
		AccidentCost: []params.AccidentCost{
			{AccidentType: "fatal", Cost: params.Cost{Value: 1000, PriceLevel: 2025}},
			{AccidentType: "severe_injury", Cost: params.Cost{Value: 100, PriceLevel: 2025}},
			{AccidentType: "light_injury", Cost: params.Cost{Value: 10, PriceLevel: 2025}},
		},
	}
	return set
}

func constantYears(v float64) map[int]float64 {
	out := make(map[int]float64)
	for y := 2025; y <= 2029; y++ {
		out[y] = v
	}
	return out
}

// testInputs describes a 10 km motorway section replaced by a shorter and
// faster 8 km alignment, built in a single year.
func testInputs() *params.ProjectInputs {
	section := func(id string, variant int, length float64) params.RoadSection {
		return params.RoadSection{
			ID:          id,
			Variant:     variant,
			Length:      length,
			Width:       10,
			SectionType: "road",
			Surface:     "asphalt",
			Condition:   "good",
			Environment: "extravilan",
			RoadType:    "motorway",
			RoadLayout:  "standard",
			TollSection: "T1",
		}
	}
	return &params.ProjectInputs{
		Roads: []params.RoadSection{
			section("s0", 0, 10),
			section("s1", 1, 8),
		},
		Capex: []params.CapexRow{
			{Item: "land", Years: map[int]float64{2025: 100}},
			{Item: "construction", Years: map[int]float64{2024: 50, 2025: 150}},
			{Item: "equipment", Years: map[int]float64{2025: 50}},
		},
		Intensity0: []params.TrafficRow{
			{Section: "s0", Vehicle: "car", Years: constantYears(10000)},
			{Section: "s0", Vehicle: "hgv", Years: constantYears(1000)},
		},
		Intensity1: []params.TrafficRow{
			{Section: "s1", Vehicle: "car", Years: constantYears(10000)},
			{Section: "s1", Vehicle: "hgv", Years: constantYears(1000)},
		},
		Velocity0: []params.TrafficRow{
			{Section: "s0", Vehicle: "car", Years: constantYears(60)},
			{Section: "s0", Vehicle: "hgv", Years: constantYears(60)},
		},
		Velocity1: []params.TrafficRow{
			{Section: "s1", Vehicle: "car", Years: constantYears(100)},
			{Section: "s1", Vehicle: "hgv", Years: constantYears(80)},
		},
		TollSections: []params.TollSection{
			{ID: "T1", Type0: "motorway", Type1: "motorway"},
		},
	}
}

// testAnalysis returns an analysis with parameters prepared and project
// inputs read.
func testAnalysis(t *testing.T) *Analysis {
	t.Helper()
	a := New(testConfig(), nil)
	a.ReadParameters(testSet())
	if err := a.PrepareParameters(); err != nil {
		t.Fatalf("PrepareParameters: %v", err)
	}
	if err := a.ReadProjectInputs(testInputs()); err != nil {
		t.Fatalf("ReadProjectInputs: %v", err)
	}
	return a
}

func approx(t *testing.T, name string, got, want, epsilon float64) {
	t.Helper()
	if math.Abs(got-want) > epsilon {
		t.Errorf("%s = %v, want %v (epsilon %v)", name, got, want, epsilon)
	}
}

func TestPeriodSplit(t *testing.T) {
	a := testAnalysis(t)

	if a.yrOp != 2026 {
		t.Errorf("yrOp = %d, want 2026", a.yrOp)
	}
	if a.nYrBld != 1 || a.nYrOp != 4 {
		t.Errorf("period split = (%d, %d), want (1, 4)", a.nYrBld, a.nYrOp)
	}
	if got := a.OperationYears(); len(got) != 4 || got[0] != 2026 {
		t.Errorf("OperationYears() = %v", got)
	}

	// pre-period construction spend lands in the first year
	if got := a.cFin.At("construction", 2025); got != 200 {
		t.Errorf("construction capex 2025 = %v, want 200 after squeezing", got)
	}
}

func TestPerformEconomicAnalysis(t *testing.T) {
	a := testAnalysis(t)

	ind, err := a.PerformEconomicAnalysis()
	if err != nil {
		t.Fatalf("PerformEconomicAnalysis: %v", err)
	}

	nb := a.NetBenefits()
	nc := a.NetCosts()
	ni := a.NetIncomes()

	for _, cat := range []string{"vtts", "voc_l", "voc_t", "vfts", "fuel", "ghg", "em", "noise", "c_acc", "res_val"} {
		if _, ok := nb[cat]; !ok {
			t.Errorf("net benefits missing category %q", cat)
		}
	}
	for _, cat := range []string{"capex", "replacements", "opex_maintenance", "opex_toll"} {
		if _, ok := nc[cat]; !ok {
			t.Errorf("net costs missing category %q", cat)
		}
	}
	for _, cat := range []string{"res_val", "income_toll"} {
		if _, ok := ni[cat]; !ok {
			t.Errorf("net incomes missing category %q", cat)
		}
	}

	// economic capex: land 100*0.90 + construction 200*0.80 + equipment
	// 50*0.85 (aggregate fallback), all in the construction year
	approx(t, "capex 2025", nc["capex"][0], 292.5, 1e-9)
	approx(t, "capex 2026", nc["capex"][1], 0, 1e-9)

	// equipment (lifetime 3) is replaced in 2028 at its economic value
	approx(t, "replacements 2028", nc["replacements"][3], 42.5, 1e-9)
	for i, y := range a.Years() {
		if y != 2028 && nc["replacements"][i] != 0 {
			t.Errorf("replacement booked in %d", y)
		}
	}

	// residual value in the final year: land 100*1.0, construction
	// 200*(30-4)/30 -> ratio 0.87, equipment replaced -> (2*3-4)/3 -> 0.67
	approx(t, "residual income 2029", ni["res_val"][4], 100*1.0+200*0.87+50*0.67, 1e-9)
	approx(t, "residual benefit 2029", nb["res_val"][4], 90*1.0+160*0.87+42.5*0.67, 1e-9)

	// maintenance: 8 km replaces 10 km of 10 m wide road at 1 eur/m2;
	// no saving during construction
	approx(t, "opex 2025", nc["opex_maintenance"][0], 0, 1e-9)
	approx(t, "opex 2026", nc["opex_maintenance"][1], (80000-100000)*0.85, 1e-6)

	// travel time: 13 eur/veh-h collapsed unit value, 10000 cars:
	// (10/60 - 8/100) h * 13 * 10000 * 365
	approx(t, "vtts 2026", nb["vtts"][1], (10.0/60-8.0/100)*13*10000*365, 1.0)

	// fuel: car 0.05 l/km petrol, hgv 0.2 l/km diesel over 2 km saved
	approx(t, "fuel 2026", nb["fuel"][1], 547500+204400, 1.0)

	// toll income falls with the shorter tolled length:
	// 1000 hgv * (8-10) km * 0.2 eur/km * 365
	approx(t, "toll income 2026", ni["income_toll"][1], float64(1000*-2)*0.2*365, 1e-6)
	approx(t, "toll opex 2026", nc["opex_toll"][1], 0, 1e-9)

	if math.IsNaN(ind.ENPV) || math.IsInf(ind.ENPV, 0) {
		t.Errorf("ENPV = %v", ind.ENPV)
	}
	if len(ind.Breakdown) != len(nb)+len(nc) {
		t.Errorf("breakdown has %d rows, want %d", len(ind.Breakdown), len(nb)+len(nc))
	}
}

func TestFreightTimeToggle(t *testing.T) {
	cfg := testConfig()
	cfg.IncludeFreightTime = false

	a := New(cfg, nil)
	a.ReadParameters(testSet())
	if err := a.PrepareParameters(); err != nil {
		t.Fatalf("PrepareParameters: %v", err)
	}
	if err := a.ReadProjectInputs(testInputs()); err != nil {
		t.Fatalf("ReadProjectInputs: %v", err)
	}
	if err := a.ComputeBenefits(); err != nil {
		t.Fatalf("ComputeBenefits: %v", err)
	}
	if _, ok := a.NetBenefits()["vfts"]; ok {
		t.Error("freight time savings computed despite being disabled")
	}
}

func TestShortTrafficForecastZeroFilled(t *testing.T) {
	short := func(v float64) map[int]float64 {
		out := make(map[int]float64)
		for y := 2025; y <= 2027; y++ {
			out[y] = v
		}
		return out
	}

	// project variant forecasts stop two years before the end of the
	// evaluation period
	pi := testInputs()
	pi.Intensity1 = []params.TrafficRow{
		{Section: "s1", Vehicle: "car", Years: short(10000)},
		{Section: "s1", Vehicle: "hgv", Years: short(1000)},
	}
	pi.Velocity1 = []params.TrafficRow{
		{Section: "s1", Vehicle: "car", Years: short(100)},
		{Section: "s1", Vehicle: "hgv", Years: short(80)},
	}

	a := New(testConfig(), nil)
	a.ReadParameters(testSet())
	if err := a.PrepareParameters(); err != nil {
		t.Fatalf("PrepareParameters: %v", err)
	}
	if err := a.ReadProjectInputs(pi); err != nil {
		t.Fatalf("ReadProjectInputs: %v", err)
	}

	for _, y := range []int{2028, 2029} {
		if got := a.i1.At(SectionVehicle{"s1", "car"}, y); got != 0 {
			t.Errorf("I1 car intensity %d = %v, want 0", y, got)
		}
		if got := a.v1.At(SectionVehicle{"s1", "hgv"}, y); got != 0 {
			t.Errorf("V1 hgv velocity %d = %v, want 0", y, got)
		}
	}
	if got := a.i1.At(SectionVehicle{"s1", "car"}, 2027); got != 10000 {
		t.Errorf("I1 car intensity 2027 = %v, want 10000", got)
	}

	ind, err := a.PerformEconomicAnalysis()
	if err != nil {
		t.Fatalf("PerformEconomicAnalysis: %v", err)
	}

	// the zero-filled tail must not poison any series
	for cat, series := range a.NetBenefits() {
		for i, v := range series {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				t.Errorf("net benefit %s in %d = %v", cat, a.Years()[i], v)
			}
		}
	}
	if math.IsNaN(ind.ENPV) || math.IsInf(ind.ENPV, 0) {
		t.Errorf("ENPV = %v", ind.ENPV)
	}
}

func TestStageOrderEnforced(t *testing.T) {
	a := New(testConfig(), nil)

	if err := a.PrepareParameters(); !errors.Is(err, ErrNotComputed) {
		t.Errorf("PrepareParameters without parameters: %v", err)
	}

	a.ReadParameters(testSet())
	if err := a.PrepareParameters(); err != nil {
		t.Fatalf("PrepareParameters: %v", err)
	}

	if err := a.ComputeCapex(); !errors.Is(err, ErrNotComputed) {
		t.Errorf("ComputeCapex without inputs: %v", err)
	}
	if err := a.ComputeResidualValue(); !errors.Is(err, ErrNotComputed) {
		t.Errorf("ComputeResidualValue without capex: %v", err)
	}
	if _, err := a.ComputeEconomicIndicators(); !errors.Is(err, ErrNotComputed) {
		t.Errorf("ComputeEconomicIndicators without benefits: %v", err)
	}
}

func TestUnknownDataSource(t *testing.T) {
	cfg := testConfig()
	cfg.CPISource = "nonsense"

	a := New(cfg, nil)
	a.ReadParameters(testSet())
	if err := a.PrepareParameters(); !errors.Is(err, ErrConfig) {
		t.Errorf("PrepareParameters with unknown CPI source: %v", err)
	}
}

func TestFinancialAnalysisNotImplemented(t *testing.T) {
	a := New(testConfig(), nil)
	if err := a.PerformFinancialAnalysis(); !errors.Is(err, ErrNotImplemented) {
		t.Errorf("PerformFinancialAnalysis: %v", err)
	}
	if err := a.PrintFinancialIndicators(); !errors.Is(err, ErrNotImplemented) {
		t.Errorf("PrintFinancialIndicators: %v", err)
	}
}
