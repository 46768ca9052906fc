package cba

import (
	"testing"
)

func TestPolyval(t *testing.T) {
	tests := []struct {
		name     string
		coeffs   [4]float64
		v        float64
		expected float64
	}{
		{name: "constant", coeffs: [4]float64{2, 0, 0, 0}, v: 80, expected: 2},
		{name: "linear", coeffs: [4]float64{1, 0.5, 0, 0}, v: 10, expected: 6},
		{name: "cubic", coeffs: [4]float64{1, 1, 1, 1}, v: 2, expected: 15},
		{name: "zero velocity", coeffs: [4]float64{0.05, 0.01, 0.001, 0.0001}, v: 0, expected: 0.05},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			approx(t, "polyval", polyval(tt.coeffs, tt.v), tt.expected, 1e-12)
		})
	}
}

// Without junction accelerations the fuel burnt must equal the
// consumption curve evaluated at the section velocity times the length.
func TestFuelConsumptionPolynomialOnly(t *testing.T) {
	a := testAnalysis(t)
	a.computeLengthMatrices()
	a.computeFuelRatioMatrix()
	if err := a.computeFuelConsumption(); err != nil {
		t.Fatalf("computeFuelConsumption: %v", err)
	}

	// car on the 10 km do-nothing section: 0.05 l/km at 0.75 kg/l
	row, ok := a.qf0.Row(SectionVehicleFuel{"s0", "car", "petrol"})
	if !ok {
		t.Fatal("no fuel consumption for s0/car/petrol")
	}
	for i := range row {
		approx(t, "fuel burnt", row[i], 0.05*0.75*10, 1e-12)
	}

	// hgv on the 8 km project section
	row, ok = a.qf1.Row(SectionVehicleFuel{"s1", "hgv", "diesel"})
	if !ok {
		t.Fatal("no fuel consumption for s1/hgv/diesel")
	}
	approx(t, "hgv fuel burnt", row[0], 0.2*0.84*8, 1e-12)
}

// Junction accelerations add a per-event fuel mass weighted by the
// section's junction shares, independent of velocity.
func TestFuelConsumptionAccelerationTerm(t *testing.T) {
	inputs := testInputs()
	inputs.Roads[0].Acceleration = map[string]float64{"intersection_extravilan": 2.0}

	a := New(testConfig(), nil)
	a.ReadParameters(testSet())
	if err := a.PrepareParameters(); err != nil {
		t.Fatalf("PrepareParameters: %v", err)
	}
	if err := a.ReadProjectInputs(inputs); err != nil {
		t.Fatalf("ReadProjectInputs: %v", err)
	}
	a.computeLengthMatrices()
	a.computeFuelRatioMatrix()
	if err := a.computeFuelConsumption(); err != nil {
		t.Fatalf("computeFuelConsumption: %v", err)
	}

	row, ok := a.qf0.Row(SectionVehicleFuel{"s0", "car", "petrol"})
	if !ok {
		t.Fatal("no fuel consumption for s0/car/petrol")
	}
	// two events per crossing at 0.02 l each, converted to kg
	approx(t, "fuel with accelerations", row[0], 0.05*0.75*10+2.0*0.02*0.75, 1e-12)
}
