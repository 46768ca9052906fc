package params

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteProvider implements Provider for SQLite parameter databases.
// The database schema mirrors the sheets of the methodology workbook:
// one table per parameter category plus cpi/gdp_growth series tables in
// long form (year, column, value) with a *_meta table mapping source keys
// to column names.
type SQLiteProvider struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteProvider creates a new SQLite parameter provider
func NewSQLiteProvider(dbPath string) (*SQLiteProvider, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	return &SQLiteProvider{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// LoadParameters loads the complete parameter set from the SQLite database
func (s *SQLiteProvider) LoadParameters() (*Set, error) {
	set := &Set{}
	var err error

	if set.CPI, err = s.getSeries("cpi"); err != nil {
		return nil, err
	}
	if set.GDPGrowth, err = s.getSeries("gdp_growth"); err != nil {
		return nil, err
	}
	if set.ResidualValue, err = s.getResidualValue(); err != nil {
		return nil, err
	}
	if set.ConversionFactors, err = s.getConversionFactors(); err != nil {
		return nil, err
	}
	if set.OperationCost, err = s.getOperationCost(); err != nil {
		return nil, err
	}
	if set.TollOperation, err = s.getTollOperation(); err != nil {
		return nil, err
	}
	if set.TollRevenue, err = s.getTollRevenue(); err != nil {
		return nil, err
	}
	if set.TripPurpose, err = s.getTripPurpose(); err != nil {
		return nil, err
	}
	if set.PassengerOccupancy, err = s.getPassengerOccupancy(); err != nil {
		return nil, err
	}
	if set.VTTS, err = s.getVTTS(); err != nil {
		return nil, err
	}
	if set.VOCDistance, err = s.getVOC("voc_l"); err != nil {
		return nil, err
	}
	if set.VOCTime, err = s.getVOC("voc_t"); err != nil {
		return nil, err
	}
	if set.VFTS, err = s.getVFTS(); err != nil {
		return nil, err
	}
	if set.FuelRatio, err = s.getFuelRatio(); err != nil {
		return nil, err
	}
	if set.FuelConsumption, err = s.getFuelConsumption(); err != nil {
		return nil, err
	}
	if set.FuelAcceleration, err = s.getFuelAcceleration(); err != nil {
		return nil, err
	}
	if set.FuelDensity, err = s.getFuelDensity(); err != nil {
		return nil, err
	}
	if set.FuelCost, err = s.getFuelCost(); err != nil {
		return nil, err
	}
	if set.GreenhouseRate, err = s.getGreenhouseRate(); err != nil {
		return nil, err
	}
	if set.CarbonCost, err = s.getCarbonCost(); err != nil {
		return nil, err
	}
	if set.EmissionRate, err = s.getEmissionRate(); err != nil {
		return nil, err
	}
	if set.EmissionCost, err = s.getEmissionCost(); err != nil {
		return nil, err
	}
	if set.NoiseCost, err = s.getNoiseCost(); err != nil {
		return nil, err
	}
	if set.AccidentRate, err = s.getAccidentRate(); err != nil {
		return nil, err
	}
	if set.AccidentCost, err = s.getAccidentCost(); err != nil {
		return nil, err
	}

	return set, nil
}

// IsReadOnly always returns true; providers do not write parameters back
func (s *SQLiteProvider) IsReadOnly() bool {
	return true
}

// Close closes the database connection
func (s *SQLiteProvider) Close() error {
	return s.db.Close()
}

// scanCost reads the shared cost bookkeeping columns. The query must select
// value, scale, unit, price_level and gdp_growth_adjustment in this order
// after the category key columns.
func scanCost(scale, gga sql.NullFloat64, unit sql.NullString, priceLevel sql.NullInt64, value float64) Cost {
	c := Cost{Value: value}
	if scale.Valid {
		c.Scale = scale.Float64
	}
	if unit.Valid {
		c.Unit = unit.String
	}
	if priceLevel.Valid {
		c.PriceLevel = int(priceLevel.Int64)
	}
	if gga.Valid {
		v := gga.Float64
		c.GDPGrowthAdjustment = &v
	}
	return c
}

func (s *SQLiteProvider) getSeries(table string) (Series, error) {
	series := Series{
		Sources: make(map[string]string),
		Columns: make(map[string]map[int]float64),
	}

	rows, err := s.db.Query(fmt.Sprintf("SELECT key, column_name FROM %s_meta", table))
	if err != nil {
		return series, fmt.Errorf("failed to query %s_meta: %w", table, err)
	}
	defer rows.Close()
	for rows.Next() {
		var key, column string
		if err := rows.Scan(&key, &column); err != nil {
			return series, fmt.Errorf("failed to scan %s_meta row: %w", table, err)
		}
		series.Sources[key] = column
	}
	if err := rows.Err(); err != nil {
		return series, err
	}

	vrows, err := s.db.Query(fmt.Sprintf("SELECT year, column_name, value FROM %s", table))
	if err != nil {
		return series, fmt.Errorf("failed to query %s: %w", table, err)
	}
	defer vrows.Close()
	for vrows.Next() {
		var year int
		var column string
		var value float64
		if err := vrows.Scan(&year, &column, &value); err != nil {
			return series, fmt.Errorf("failed to scan %s row: %w", table, err)
		}
		if series.Columns[column] == nil {
			series.Columns[column] = make(map[int]float64)
		}
		series.Columns[column][year] = value
	}
	return series, vrows.Err()
}

func (s *SQLiteProvider) getResidualValue() ([]ResidualValue, error) {
	rows, err := s.db.Query(`
		SELECT item, included, lifetime, replacement_cost_ratio, default_conversion_factor
		FROM residual_value ORDER BY item
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query residual_value: %w", err)
	}
	defer rows.Close()

	var out []ResidualValue
	for rows.Next() {
		var rv ResidualValue
		var lifetime sql.NullFloat64
		if err := rows.Scan(&rv.Item, &rv.Included, &lifetime, &rv.ReplacementCostRatio, &rv.DefaultConversionFactor); err != nil {
			return nil, fmt.Errorf("failed to scan residual_value row: %w", err)
		}
		if lifetime.Valid {
			rv.Lifetime = lifetime.Float64
		} else {
			// NULL lifetime means the item never wears out (land)
			rv.Lifetime = inf
		}
		out = append(out, rv)
	}
	return out, rows.Err()
}

func (s *SQLiteProvider) getConversionFactors() ([]ConversionFactor, error) {
	rows, err := s.db.Query("SELECT item, value FROM conversion_factors ORDER BY item")
	if err != nil {
		return nil, fmt.Errorf("failed to query conversion_factors: %w", err)
	}
	defer rows.Close()

	var out []ConversionFactor
	for rows.Next() {
		var cf ConversionFactor
		if err := rows.Scan(&cf.Item, &cf.Value); err != nil {
			return nil, fmt.Errorf("failed to scan conversion_factors row: %w", err)
		}
		out = append(out, cf)
	}
	return out, rows.Err()
}

func (s *SQLiteProvider) getOperationCost() ([]OperationCost, error) {
	rows, err := s.db.Query(`
		SELECT section_type, surface, condition, lower_usage,
		       value, scale, unit, price_level, gdp_growth_adjustment
		FROM operation_cost
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query operation_cost: %w", err)
	}
	defer rows.Close()

	var out []OperationCost
	for rows.Next() {
		var oc OperationCost
		var value float64
		var scale, gga sql.NullFloat64
		var unit sql.NullString
		var priceLevel sql.NullInt64
		if err := rows.Scan(&oc.SectionType, &oc.Surface, &oc.Condition, &oc.LowerUsage,
			&value, &scale, &unit, &priceLevel, &gga); err != nil {
			return nil, fmt.Errorf("failed to scan operation_cost row: %w", err)
		}
		oc.Cost = scanCost(scale, gga, unit, priceLevel, value)
		out = append(out, oc)
	}
	return out, rows.Err()
}

func (s *SQLiteProvider) getTollOperation() ([]TollOperation, error) {
	rows, err := s.db.Query(`
		SELECT item, value, scale, unit, price_level, gdp_growth_adjustment
		FROM toll_operation
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query toll_operation: %w", err)
	}
	defer rows.Close()

	var out []TollOperation
	for rows.Next() {
		var to TollOperation
		var value float64
		var scale, gga sql.NullFloat64
		var unit sql.NullString
		var priceLevel sql.NullInt64
		if err := rows.Scan(&to.Item, &value, &scale, &unit, &priceLevel, &gga); err != nil {
			return nil, fmt.Errorf("failed to scan toll_operation row: %w", err)
		}
		to.Cost = scanCost(scale, gga, unit, priceLevel, value)
		out = append(out, to)
	}
	return out, rows.Err()
}

func (s *SQLiteProvider) getTollRevenue() ([]TollRevenue, error) {
	rows, err := s.db.Query(`
		SELECT vehicle, motorway, parallel, nonparallel, other_intravilan, price_level
		FROM toll_revenue
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query toll_revenue: %w", err)
	}
	defer rows.Close()

	var out []TollRevenue
	for rows.Next() {
		var tr TollRevenue
		if err := rows.Scan(&tr.Vehicle, &tr.Motorway, &tr.Parallel, &tr.Nonparallel,
			&tr.OtherIntravilan, &tr.PriceLevel); err != nil {
			return nil, fmt.Errorf("failed to scan toll_revenue row: %w", err)
		}
		out = append(out, tr)
	}
	return out, rows.Err()
}

func (s *SQLiteProvider) getTripPurpose() ([]TripPurpose, error) {
	rows, err := s.db.Query("SELECT vehicle, purpose, ratio FROM trip_purpose")
	if err != nil {
		return nil, fmt.Errorf("failed to query trip_purpose: %w", err)
	}
	defer rows.Close()

	var out []TripPurpose
	for rows.Next() {
		var tp TripPurpose
		if err := rows.Scan(&tp.Vehicle, &tp.Purpose, &tp.Ratio); err != nil {
			return nil, fmt.Errorf("failed to scan trip_purpose row: %w", err)
		}
		out = append(out, tp)
	}
	return out, rows.Err()
}

func (s *SQLiteProvider) getPassengerOccupancy() ([]PassengerOccupancy, error) {
	rows, err := s.db.Query("SELECT vehicle, value FROM passenger_occupancy")
	if err != nil {
		return nil, fmt.Errorf("failed to query passenger_occupancy: %w", err)
	}
	defer rows.Close()

	var out []PassengerOccupancy
	for rows.Next() {
		var po PassengerOccupancy
		if err := rows.Scan(&po.Vehicle, &po.Value); err != nil {
			return nil, fmt.Errorf("failed to scan passenger_occupancy row: %w", err)
		}
		out = append(out, po)
	}
	return out, rows.Err()
}

func (s *SQLiteProvider) getVTTS() ([]VTTS, error) {
	rows, err := s.db.Query(`
		SELECT purpose, value, scale, unit, price_level, gdp_growth_adjustment
		FROM vtts
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query vtts: %w", err)
	}
	defer rows.Close()

	var out []VTTS
	for rows.Next() {
		var v VTTS
		var value float64
		var scale, gga sql.NullFloat64
		var unit sql.NullString
		var priceLevel sql.NullInt64
		if err := rows.Scan(&v.Purpose, &value, &scale, &unit, &priceLevel, &gga); err != nil {
			return nil, fmt.Errorf("failed to scan vtts row: %w", err)
		}
		v.Cost = scanCost(scale, gga, unit, priceLevel, value)
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *SQLiteProvider) getVOC(table string) ([]VOC, error) {
	rows, err := s.db.Query(fmt.Sprintf(`
		SELECT vehicle, fuel, value, scale, unit, price_level, gdp_growth_adjustment
		FROM %s
	`, table))
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", table, err)
	}
	defer rows.Close()

	var out []VOC
	for rows.Next() {
		var v VOC
		var value float64
		var scale, gga sql.NullFloat64
		var unit sql.NullString
		var priceLevel sql.NullInt64
		if err := rows.Scan(&v.Vehicle, &v.Fuel, &value, &scale, &unit, &priceLevel, &gga); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", table, err)
		}
		v.Cost = scanCost(scale, gga, unit, priceLevel, value)
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *SQLiteProvider) getVFTS() ([]VFTS, error) {
	rows, err := s.db.Query(`
		SELECT substance, value, scale, unit, price_level, gdp_growth_adjustment
		FROM vfts
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query vfts: %w", err)
	}
	defer rows.Close()

	var out []VFTS
	for rows.Next() {
		var v VFTS
		var value float64
		var scale, gga sql.NullFloat64
		var unit sql.NullString
		var priceLevel sql.NullInt64
		if err := rows.Scan(&v.Substance, &value, &scale, &unit, &priceLevel, &gga); err != nil {
			return nil, fmt.Errorf("failed to scan vfts row: %w", err)
		}
		v.Cost = scanCost(scale, gga, unit, priceLevel, value)
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *SQLiteProvider) getFuelRatio() ([]FuelRatio, error) {
	rows, err := s.db.Query("SELECT vehicle, fuel, ratio FROM fuel_ratio")
	if err != nil {
		return nil, fmt.Errorf("failed to query fuel_ratio: %w", err)
	}
	defer rows.Close()

	var out []FuelRatio
	for rows.Next() {
		var fr FuelRatio
		if err := rows.Scan(&fr.Vehicle, &fr.Fuel, &fr.Ratio); err != nil {
			return nil, fmt.Errorf("failed to scan fuel_ratio row: %w", err)
		}
		out = append(out, fr)
	}
	return out, rows.Err()
}

func (s *SQLiteProvider) getFuelConsumption() ([]FuelConsumptionCurve, error) {
	rows, err := s.db.Query("SELECT vehicle, fuel, a0, a1, a2, a3 FROM fuel_consumption")
	if err != nil {
		return nil, fmt.Errorf("failed to query fuel_consumption: %w", err)
	}
	defer rows.Close()

	var out []FuelConsumptionCurve
	for rows.Next() {
		var fc FuelConsumptionCurve
		if err := rows.Scan(&fc.Vehicle, &fc.Fuel, &fc.A0, &fc.A1, &fc.A2, &fc.A3); err != nil {
			return nil, fmt.Errorf("failed to scan fuel_consumption row: %w", err)
		}
		out = append(out, fc)
	}
	return out, rows.Err()
}

func (s *SQLiteProvider) getFuelAcceleration() ([]FuelAcceleration, error) {
	rows, err := s.db.Query(`
		SELECT vehicle, fuel, junction, value
		FROM fuel_consumption_acceleration
		ORDER BY vehicle, fuel
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query fuel_consumption_acceleration: %w", err)
	}
	defer rows.Close()

	byKey := make(map[[2]string]map[string]float64)
	var order [][2]string
	for rows.Next() {
		var vehicle, fuel, junction string
		var value float64
		if err := rows.Scan(&vehicle, &fuel, &junction, &value); err != nil {
			return nil, fmt.Errorf("failed to scan fuel_consumption_acceleration row: %w", err)
		}
		k := [2]string{vehicle, fuel}
		if byKey[k] == nil {
			byKey[k] = make(map[string]float64)
			order = append(order, k)
		}
		byKey[k][junction] = value
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]FuelAcceleration, 0, len(order))
	for _, k := range order {
		out = append(out, FuelAcceleration{Vehicle: k[0], Fuel: k[1], Increments: byKey[k]})
	}
	return out, nil
}

func (s *SQLiteProvider) getFuelDensity() ([]FuelDensity, error) {
	rows, err := s.db.Query("SELECT fuel, value FROM fuel_density")
	if err != nil {
		return nil, fmt.Errorf("failed to query fuel_density: %w", err)
	}
	defer rows.Close()

	var out []FuelDensity
	for rows.Next() {
		var fd FuelDensity
		if err := rows.Scan(&fd.Fuel, &fd.Value); err != nil {
			return nil, fmt.Errorf("failed to scan fuel_density row: %w", err)
		}
		out = append(out, fd)
	}
	return out, rows.Err()
}

func (s *SQLiteProvider) getFuelCost() ([]FuelCost, error) {
	rows, err := s.db.Query(`
		SELECT fuel, value, scale, unit, price_level, gdp_growth_adjustment
		FROM fuel_cost
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query fuel_cost: %w", err)
	}
	defer rows.Close()

	var out []FuelCost
	for rows.Next() {
		var fc FuelCost
		var value float64
		var scale, gga sql.NullFloat64
		var unit sql.NullString
		var priceLevel sql.NullInt64
		if err := rows.Scan(&fc.Fuel, &value, &scale, &unit, &priceLevel, &gga); err != nil {
			return nil, fmt.Errorf("failed to scan fuel_cost row: %w", err)
		}
		fc.Cost = scanCost(scale, gga, unit, priceLevel, value)
		out = append(out, fc)
	}
	return out, rows.Err()
}

func (s *SQLiteProvider) getGreenhouseRate() ([]GreenhouseRate, error) {
	rows, err := s.db.Query(`
		SELECT vehicle, fuel, gas, value, co2e_factor, scale
		FROM greenhouse_rate
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query greenhouse_rate: %w", err)
	}
	defer rows.Close()

	var out []GreenhouseRate
	for rows.Next() {
		var gr GreenhouseRate
		var scale sql.NullFloat64
		if err := rows.Scan(&gr.Vehicle, &gr.Fuel, &gr.Gas, &gr.Value, &gr.CO2eFactor, &scale); err != nil {
			return nil, fmt.Errorf("failed to scan greenhouse_rate row: %w", err)
		}
		if scale.Valid {
			gr.Scale = scale.Float64
		}
		out = append(out, gr)
	}
	return out, rows.Err()
}

func (s *SQLiteProvider) getCarbonCost() ([]CarbonCost, error) {
	rows, err := s.db.Query("SELECT year, value, scale FROM co2_cost ORDER BY year")
	if err != nil {
		return nil, fmt.Errorf("failed to query co2_cost: %w", err)
	}
	defer rows.Close()

	var out []CarbonCost
	for rows.Next() {
		var cc CarbonCost
		var scale sql.NullFloat64
		if err := rows.Scan(&cc.Year, &cc.Value, &scale); err != nil {
			return nil, fmt.Errorf("failed to scan co2_cost row: %w", err)
		}
		if scale.Valid {
			cc.Scale = scale.Float64
		}
		out = append(out, cc)
	}
	return out, rows.Err()
}

func (s *SQLiteProvider) getEmissionRate() ([]EmissionRate, error) {
	rows, err := s.db.Query("SELECT vehicle, fuel, substance, value, scale FROM emission_rate")
	if err != nil {
		return nil, fmt.Errorf("failed to query emission_rate: %w", err)
	}
	defer rows.Close()

	var out []EmissionRate
	for rows.Next() {
		var er EmissionRate
		var scale sql.NullFloat64
		if err := rows.Scan(&er.Vehicle, &er.Fuel, &er.Substance, &er.Value, &scale); err != nil {
			return nil, fmt.Errorf("failed to scan emission_rate row: %w", err)
		}
		if scale.Valid {
			er.Scale = scale.Float64
		}
		out = append(out, er)
	}
	return out, rows.Err()
}

func (s *SQLiteProvider) getEmissionCost() ([]EmissionCost, error) {
	rows, err := s.db.Query(`
		SELECT substance, environment, value, scale, unit, price_level, gdp_growth_adjustment
		FROM emission_cost
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query emission_cost: %w", err)
	}
	defer rows.Close()

	var out []EmissionCost
	for rows.Next() {
		var ec EmissionCost
		var value float64
		var scale, gga sql.NullFloat64
		var unit sql.NullString
		var priceLevel sql.NullInt64
		if err := rows.Scan(&ec.Substance, &ec.Environment, &value, &scale, &unit, &priceLevel, &gga); err != nil {
			return nil, fmt.Errorf("failed to scan emission_cost row: %w", err)
		}
		ec.Cost = scanCost(scale, gga, unit, priceLevel, value)
		out = append(out, ec)
	}
	return out, rows.Err()
}

func (s *SQLiteProvider) getNoiseCost() ([]NoiseCost, error) {
	rows, err := s.db.Query(`
		SELECT vehicle, environment, value, scale, unit, price_level, gdp_growth_adjustment
		FROM noise_cost
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query noise_cost: %w", err)
	}
	defer rows.Close()

	var out []NoiseCost
	for rows.Next() {
		var nc NoiseCost
		var value float64
		var scale, gga sql.NullFloat64
		var unit sql.NullString
		var priceLevel sql.NullInt64
		if err := rows.Scan(&nc.Vehicle, &nc.Environment, &value, &scale, &unit, &priceLevel, &gga); err != nil {
			return nil, fmt.Errorf("failed to scan noise_cost row: %w", err)
		}
		nc.Cost = scanCost(scale, gga, unit, priceLevel, value)
		out = append(out, nc)
	}
	return out, rows.Err()
}

func (s *SQLiteProvider) getAccidentRate() ([]AccidentRate, error) {
	rows, err := s.db.Query(`
		SELECT road_type, road_layout, fatal, severe_injury, light_injury, scale
		FROM accident_rate
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query accident_rate: %w", err)
	}
	defer rows.Close()

	var out []AccidentRate
	for rows.Next() {
		var ar AccidentRate
		var scale sql.NullFloat64
		if err := rows.Scan(&ar.RoadType, &ar.RoadLayout, &ar.Fatal, &ar.SevereInjury,
			&ar.LightInjury, &scale); err != nil {
			return nil, fmt.Errorf("failed to scan accident_rate row: %w", err)
		}
		if scale.Valid {
			ar.Scale = scale.Float64
		}
		out = append(out, ar)
	}
	return out, rows.Err()
}

func (s *SQLiteProvider) getAccidentCost() ([]AccidentCost, error) {
	rows, err := s.db.Query(`
		SELECT accident_type, value, scale, unit, price_level, gdp_growth_adjustment
		FROM accident_cost
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query accident_cost: %w", err)
	}
	defer rows.Close()

	var out []AccidentCost
	for rows.Next() {
		var ac AccidentCost
		var value float64
		var scale, gga sql.NullFloat64
		var unit sql.NullString
		var priceLevel sql.NullInt64
		if err := rows.Scan(&ac.AccidentType, &value, &scale, &unit, &priceLevel, &gga); err != nil {
			return nil, fmt.Errorf("failed to scan accident_cost row: %w", err)
		}
		ac.Cost = scanCost(scale, gga, unit, priceLevel, value)
		out = append(out, ac)
	}
	return out, rows.Err()
}
