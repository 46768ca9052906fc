package params

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// RoadSection describes one road section in one variant (0 = do-nothing,
// 1 = project). Area of 0 means not supplied; the engine derives it from
// width and length. Acceleration holds per-junction-type shares and may be
// sparse; missing junction types default to 0.
type RoadSection struct {
	ID               string             `yaml:"id_road_section"`
	Variant          int                `yaml:"variant"`
	Length           float64            `yaml:"length"`
	Width            float64            `yaml:"width"`
	Area             float64            `yaml:"area,omitempty"`
	SectionType      string             `yaml:"section_type"`
	Surface          string             `yaml:"surface"`
	Condition        string             `yaml:"condition"`
	LowerUsage       bool               `yaml:"lower_usage"`
	Environment      string             `yaml:"environment"`
	RoadType         string             `yaml:"road_type"`
	RoadLayout       string             `yaml:"road_layout"`
	TollSection      string             `yaml:"toll_section,omitempty"`
	AccidentRateName string             `yaml:"accident_rate_name"`
	Acceleration     map[string]float64 `yaml:"acceleration,omitempty"`
}

// TrafficRow is one row of an intensity or velocity forecast: daily values
// (AADT) or speeds (km/h) per year for one section and vehicle class.
type TrafficRow struct {
	Section string          `yaml:"id_road_section"`
	Vehicle string          `yaml:"vehicle"`
	Years   map[int]float64 `yaml:"years"`
}

// CapexRow is the financial capital expenditure of one item per year.
type CapexRow struct {
	Item  string          `yaml:"item"`
	Years map[int]float64 `yaml:"years"`
}

// TollSection assigns a toll section its type per variant. An empty type
// means the section is not tolled in that variant.
type TollSection struct {
	ID    string `yaml:"toll_section_id"`
	Type0 string `yaml:"toll_section_type_0"`
	Type1 string `yaml:"toll_section_type_1"`
}

// ProjectInputs bundles the six project input tables of one analysis.
type ProjectInputs struct {
	Roads      []RoadSection `yaml:"road_parameters"`
	Capex      []CapexRow    `yaml:"capex"`
	Intensity0 []TrafficRow  `yaml:"intensities_0"`
	Intensity1 []TrafficRow  `yaml:"intensities_1"`
	Velocity0  []TrafficRow  `yaml:"velocities_0"`
	Velocity1  []TrafficRow  `yaml:"velocities_1"`

	CustomAccidentRates []CustomAccidentRate `yaml:"custom_accident_rates,omitempty"`
	TollSections        []TollSection        `yaml:"toll_sections,omitempty"`
}

// LoadProjectInputs reads project inputs from a YAML file.
func LoadProjectInputs(filename string) (*ProjectInputs, error) {
	raw, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read project inputs: %w", err)
	}

	var pi ProjectInputs
	if err := yaml.Unmarshal(raw, &pi); err != nil {
		return nil, fmt.Errorf("failed to parse project inputs: %w", err)
	}
	return &pi, nil
}
