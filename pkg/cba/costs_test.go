package cba

import (
	"math"
	"testing"

	"github.com/jkollar/roadcba/pkg/params"
)

func TestDeteriorationRatios(t *testing.T) {
	tests := []struct {
		name     string
		lifetime float64
		opPeriod int
		replace  bool
		expected float64
	}{
		{name: "outlives the horizon", lifetime: 30, opPeriod: 4, replace: false, expected: 0.87},
		{name: "replaced once", lifetime: 3, opPeriod: 4, replace: true, expected: 0.67},
		{name: "replaced at the end", lifetime: 4, opPeriod: 4, replace: true, expected: 1.0},
		{name: "worn out exactly twice", lifetime: 2, opPeriod: 4, replace: true, expected: 0.0},
		{name: "land never wears out", lifetime: math.Inf(1), opPeriod: 4, replace: false, expected: 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := New(testConfig(), nil)
			a.nYrOp = tt.opPeriod
			a.clean.residual = []params.ResidualValue{
				{Item: "x", Included: true, Lifetime: tt.lifetime, ReplacementCostRatio: 1.0},
			}
			a.computeDeterioration()

			if len(a.deterioration) != 1 {
				t.Fatalf("deterioration has %d items, want 1", len(a.deterioration))
			}
			d := a.deterioration[0]
			if d.Replace != tt.replace {
				t.Errorf("Replace = %v, want %v", d.Replace, tt.replace)
			}
			approx(t, "remaining ratio", d.RemainingRatio, tt.expected, 1e-12)
			if d.RemainingRatio < 0 || d.RemainingRatio > 2 {
				t.Errorf("remaining ratio %v out of [0, 2]", d.RemainingRatio)
			}
		})
	}
}

func TestDeteriorationSkipsExcludedItems(t *testing.T) {
	a := New(testConfig(), nil)
	a.nYrOp = 4
	a.clean.residual = []params.ResidualValue{
		{Item: "fees", Included: false, Lifetime: 10, ReplacementCostRatio: 1.0},
		{Item: "construction", Included: true, Lifetime: 30, ReplacementCostRatio: 1.0},
	}
	a.computeDeterioration()

	if len(a.deterioration) != 1 || a.deterioration[0].Item != "construction" {
		t.Errorf("deterioration = %+v, want construction only", a.deterioration)
	}
}

func TestReplacementBookedOnce(t *testing.T) {
	a := testAnalysis(t)
	if err := a.ComputeCapex(); err != nil {
		t.Fatalf("ComputeCapex: %v", err)
	}
	if err := a.ComputeReplacements(); err != nil {
		t.Fatalf("ComputeReplacements: %v", err)
	}

	repl := a.NetCosts()["replacements"]
	var booked int
	for i, v := range repl {
		if v != 0 {
			booked++
			if a.Years()[i] != 2028 {
				t.Errorf("replacement booked in %d, want 2028", a.Years()[i])
			}
			// equipment economic value times its replacement cost ratio
			approx(t, "replacement cost", v, 42.5, 1e-9)
		}
	}
	if booked != 1 {
		t.Errorf("replacement booked %d times, want once", booked)
	}
}

func TestCapexConversionFallback(t *testing.T) {
	a := testAnalysis(t)
	if err := a.ComputeCapex(); err != nil {
		t.Fatalf("ComputeCapex: %v", err)
	}

	// equipment has no default conversion factor; the aggregate applies
	approx(t, "equipment economic total", a.cEcoTot["equipment"], 50*0.85, 1e-12)
	approx(t, "land economic total", a.cEcoTot["land"], 100*0.90, 1e-12)
}

func TestOpexIdempotent(t *testing.T) {
	a := testAnalysis(t)
	if err := a.ComputeOpex(); err != nil {
		t.Fatalf("ComputeOpex: %v", err)
	}
	first := append([]float64(nil), a.NetCosts()["opex_maintenance"]...)

	if err := a.ComputeOpex(); err != nil {
		t.Fatalf("ComputeOpex again: %v", err)
	}
	second := a.NetCosts()["opex_maintenance"]

	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("opex changed on recomputation: %v vs %v", first, second)
		}
	}
}

func TestOpexUsesGivenArea(t *testing.T) {
	inputs := testInputs()
	inputs.Roads[0].Area = 50000 // override the width*length derivation

	a := New(testConfig(), nil)
	a.ReadParameters(testSet())
	if err := a.PrepareParameters(); err != nil {
		t.Fatalf("PrepareParameters: %v", err)
	}
	if err := a.ReadProjectInputs(inputs); err != nil {
		t.Fatalf("ReadProjectInputs: %v", err)
	}
	if err := a.ComputeOpex(); err != nil {
		t.Fatalf("ComputeOpex: %v", err)
	}

	// maintenance saving now relative to the smaller given area
	approx(t, "opex 2026", a.NetCosts()["opex_maintenance"][1], (80000-50000)*0.85, 1e-6)
}
