// Package cba implements economic cost-benefit analysis of road
// infrastructure projects following the Slovak guidelines for CBA
// appraisal of transport projects v3.0 (OPII).
//
// An Analysis compares a do-nothing variant (0) against a project
// variant (1) over an evaluation period: unit-cost parameter tables are
// normalized and extrapolated, per-section traffic and fuel matrices are
// built for both variants, and each appraisal category (travel time,
// vehicle operation, fuel, greenhouse gases, emissions, noise, accidents,
// tolling, residual value, replacements, capex, opex) is reduced to a net
// year-indexed differential. The net ledger is then discounted into ENPV,
// ERR and EBCR.
//
// The pipeline is synchronous and single-threaded; one Analysis instance
// owns all derived state for one run and must not be shared between
// concurrent runs.
package cba

import (
	"errors"

	"github.com/jkollar/roadcba/pkg/params"
	"go.uber.org/zap"
)

// DaysYear converts daily traffic intensities (AADT) to annual flows.
const DaysYear = 365.0

// accelerationColumns are the junction categories contributing to the
// acceleration-dependent fuel consumption term.
var accelerationColumns = []string{
	"exit_intravilan",
	"roundabout_intravilan",
	"roundabout_extravilan",
	"intersection_intravilan",
	"intersection_extravilan",
	"interchange",
}

// Extravilan toll section types: vehicles are tolled when they cross the
// entire toll section.
var tollTypesExtravilan = []string{"nonparallel", "parallel", "motorway"}

// Intravilan toll section types: vehicles are tolled when they cross a
// part of the toll section.
var tollTypesIntravilan = []string{"other/intravilan"}

var tolledVehicles = []string{"mgv", "hgv", "bus"}

// accidentSeverities is the fixed order of accident severity classes.
var accidentSeverities = []string{"fatal", "severe_injury", "light_injury"}

var (
	// ErrNotComputed signals that a stage was invoked before its
	// upstream computation ran.
	ErrNotComputed = errors.New("required computation missing")

	// ErrConfig signals an invalid parameter configuration, such as an
	// unknown data source key or mixed base years within one category.
	ErrConfig = errors.New("invalid configuration")

	// ErrNotImplemented marks methodology branches that are deliberately
	// absent, such as the financial analysis.
	ErrNotImplemented = errors.New("not implemented")
)

// Config holds the global settings of one analysis run.
type Config struct {
	// InitYear is the first year of the evaluation period.
	InitYear int
	// EvaluationPeriod is the duration of the evaluation in years.
	EvaluationPeriod int
	// PriceLevel is the year all prices are unified to.
	PriceLevel int
	// FinDiscountRate is the discount rate of the financial analysis.
	FinDiscountRate float64
	// EcoDiscountRate is the discount rate of the economic analysis.
	EcoDiscountRate float64
	// Currency is the currency code of all monetary values.
	Currency string
	// IncludeFreightTime controls whether freight time savings enter the
	// appraisal.
	IncludeFreightTime bool
	// CPISource and GDPSource select the inflation and GDP growth
	// forecast columns of the parameter set.
	CPISource string
	GDPSource string
}

type roadTypeLayout struct {
	RoadType   string
	RoadLayout string
}

// VehicleFuelSubstance keys air pollutant production rates.
type VehicleFuelSubstance struct {
	Vehicle   string
	Fuel      string
	Substance string
}

// unitCostParam is a normalized unit-cost category: one value per key,
// all rows anchored at a single base year, optionally with a per-row GDP
// growth elasticity.
type unitCostParam[K comparable] struct {
	values     map[K]float64
	elasticity map[K]float64
	baseYear   int
	hasBase    bool
}

// cleanParams holds the normalized parameter state shared by all
// computation stages. Populated once by PrepareParameters; read-only
// afterwards.
type cleanParams struct {
	convFac      map[string]float64
	aggregateCF  float64
	capexConvFac map[string]float64

	residual []params.ResidualValue

	opex         unitCostParam[MaintenanceKey]
	vtts         unitCostParam[string]
	vocL         unitCostParam[VehicleFuel]
	vocT         unitCostParam[VehicleFuel]
	vfts         unitCostParam[string]
	fuelCost     unitCostParam[string]
	emissionCost unitCostParam[SubstanceEnvironment]
	noiseCost    unitCostParam[VehicleEnvironment]
	accidentCost unitCostParam[string]
	tollOp       unitCostParam[string]
	tollRev      unitCostParam[VehicleTollType]

	fuelRatio   map[VehicleFuel]float64
	fuelCoeffs  map[VehicleFuel][4]float64
	fuelAcc     map[VehicleFuel]map[string]float64
	fuelDensity map[string]float64

	ghgRate      map[VehicleFuelGas]float64
	carbonPrice  map[int]float64
	emissionRate map[VehicleFuelSubstance]float64

	accidentDefault map[roadTypeLayout][3]float64
	accidentCustom  map[string][3]float64
}

// unitCosts holds the extrapolated unit-cost time series, one matrix per
// appraisal category.
type unitCosts struct {
	opex         *Matrix[MaintenanceKey]
	vtts         *Matrix[string]
	vocL         *Matrix[VehicleFuel]
	vocT         *Matrix[VehicleFuel]
	vfts         *Matrix[string]
	fuel         *Matrix[string]
	ghg          *Matrix[VehicleFuelGas]
	emissions    *Matrix[SubstanceEnvironment]
	noise        *Matrix[VehicleEnvironment]
	accidents    *Matrix[string]
	tollOp       *Matrix[string]
	tollRev      *Matrix[VehicleTollType]
	built        bool
}

// Analysis performs one economic evaluation of a road project. All
// derived matrices live on the instance; stages must run in dependency
// order and fail with ErrNotComputed otherwise.
type Analysis struct {
	cfg Config
	log *zap.SugaredLogger

	years []int

	// derived period split, assigned when project inputs are read
	yrOp   int
	yrsOp  []int
	nYrBld int
	nYrOp  int

	raw *params.Set

	cpi      map[int]float64
	cpiIndex map[int]float64
	gdp      map[int]float64

	clean cleanParams
	uc    unitCosts

	roads        []params.RoadSection
	tollSections map[string][2]string
	customAcc    map[string][3]float64
	accLoaded    bool
	tollLoaded   bool

	// traffic and geometry matrices per variant
	i0, i1, v0, v1, t0, t1 *Matrix[SectionVehicle]
	l0, l1                 *Matrix[string]
	rf                     *Matrix[VehicleFuel]
	qf0, qf1               *Matrix[SectionVehicleFuel]

	// capex state
	cFin    *Matrix[string]
	cEco    *Matrix[string]
	cFinTot map[string]float64
	cEcoTot map[string]float64

	// deterioration table, shared by residual value and replacements
	deterioration []deteriorationItem

	// opex matrices kept for idempotence and inspection
	opexFin0, opexFin1 *Matrix[MaintenanceKey]

	// net ledgers: year-indexed series per category
	netBenefits map[string][]float64
	netCosts    map[string][]float64
	netIncomes  map[string][]float64

	prepared   bool
	inputsRead bool
}

type deteriorationItem struct {
	Item                 string
	Lifetime             float64
	ReplacementCostRatio float64
	Replace              bool
	RemainingRatio       float64
}

// New creates an Analysis for the given configuration. The logger may be
// nil, in which case a no-op logger is used.
func New(cfg Config, logger *zap.SugaredLogger) *Analysis {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	years := make([]int, cfg.EvaluationPeriod)
	for i := range years {
		years[i] = cfg.InitYear + i
	}

	return &Analysis{
		cfg:          cfg,
		log:          logger,
		years:        years,
		tollSections: make(map[string][2]string),
		customAcc:    make(map[string][3]float64),
		netBenefits:  make(map[string][]float64),
		netCosts:     make(map[string][]float64),
		netIncomes:   make(map[string][]float64),
	}
}

// Years returns the evaluation years.
func (a *Analysis) Years() []int {
	return a.years
}

// OperationYears returns the operation part of the evaluation period.
// Empty until project inputs are read.
func (a *Analysis) OperationYears() []int {
	return a.yrsOp
}

// NetBenefits returns the per-category net benefit series. The map is
// owned by the analysis; callers must treat it as read-only.
func (a *Analysis) NetBenefits() map[string][]float64 {
	return a.netBenefits
}

// NetCosts returns the per-category net cost series.
func (a *Analysis) NetCosts() map[string][]float64 {
	return a.netCosts
}

// NetIncomes returns the per-category net income series.
func (a *Analysis) NetIncomes() map[string][]float64 {
	return a.netIncomes
}

// ReadParameters stores the raw parameter set for later preparation.
func (a *Analysis) ReadParameters(set *params.Set) {
	a.raw = set
}

// ReadCustomAccidentRates loads named accident rates used by sections
// whose accident_rate_name is not "default". Scale columns are applied
// here so the rates are directly usable.
func (a *Analysis) ReadCustomAccidentRates(rates []params.CustomAccidentRate) {
	for _, r := range rates {
		scale := r.Scale
		if scale == 0 {
			scale = 1
		}
		a.customAcc[r.Name] = [3]float64{r.Fatal * scale, r.SevereInjury * scale, r.LightInjury * scale}
	}
	a.accLoaded = len(a.customAcc) > 0
}

// ReadTollSectionTypes loads toll section metadata. The tolling sub-model
// stays inert until this is called.
func (a *Analysis) ReadTollSectionTypes(sections []params.TollSection) {
	for _, ts := range sections {
		a.tollSections[ts.ID] = [2]string{ts.Type0, ts.Type1}
	}
	a.tollLoaded = len(a.tollSections) > 0
}

// RunCBA is the convenience entry point: it prepares parameters from the
// given provider. Project inputs and the computation stages still have to
// be invoked afterwards.
func (a *Analysis) RunCBA(provider params.Provider) error {
	set, err := provider.LoadParameters()
	if err != nil {
		return err
	}
	a.ReadParameters(set)
	return a.PrepareParameters()
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
