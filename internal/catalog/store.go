package catalog

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Load reads every reference table into a Reference snapshot. The engine never
// touches the database after this; callers load once at startup (or per test)
// and pass the snapshot around read-only.
func Load(db *sql.DB) (*Reference, error) {
	ref := &Reference{
		models:        make(map[string]ModelSpec),
		materials:     make(map[string]MaterialSpec),
		lengthRules:   make(map[lengthKey]LengthRule),
		stepSchedules: make(map[float64][]float64),
		insulators:    make(map[string]InsulatorSpec),
		options:       make(map[string]OptionSpec),
		modelVoltages: make(map[string][]string),
		connections:   make(map[connKey]ConnectionSpec),
		spares:        make(map[string]SparePart),
	}

	if err := loadModels(db, ref); err != nil {
		return nil, err
	}
	if err := loadMaterials(db, ref); err != nil {
		return nil, err
	}
	if err := loadLengthRules(db, ref); err != nil {
		return nil, err
	}
	if err := loadStepSchedules(db, ref); err != nil {
		return nil, err
	}
	if err := loadInsulators(db, ref); err != nil {
		return nil, err
	}
	if err := loadOptions(db, ref); err != nil {
		return nil, err
	}
	if err := loadVoltages(db, ref); err != nil {
		return nil, err
	}
	if err := loadConnections(db, ref); err != nil {
		return nil, err
	}
	if err := loadSpareParts(db, ref); err != nil {
		return nil, err
	}

	return ref, nil
}

func loadModels(db *sql.DB, ref *Reference) error {
	rows, err := db.Query(`
		SELECT code, description, base_price, base_length_in,
		       default_voltage, default_material, default_insulator,
		       default_conn_type, default_conn_size, default_conn_material, default_conn_rating,
		       max_temp_f, max_pressure_psi, notes
		FROM product_models
	`)
	if err != nil {
		return fmt.Errorf("query product models: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m ModelSpec
		var basePrice float64
		if err := rows.Scan(
			&m.Code, &m.Description, &basePrice, &m.BaseLengthIn,
			&m.DefaultVoltage, &m.DefaultMaterial, &m.DefaultInsulator,
			&m.DefaultConnection.Type, &m.DefaultConnection.Size, &m.DefaultConnection.Material, &m.DefaultConnection.Rating,
			&m.MaxTempF, &m.MaxPressurePSI, &m.Notes,
		); err != nil {
			return fmt.Errorf("scan product model: %w", err)
		}
		m.BasePrice = decimal.NewFromFloat(basePrice)
		ref.models[m.Code] = m
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate product models: %w", err)
	}
	return nil
}

func loadMaterials(db *sql.DB, ref *Reference) error {
	rows, err := db.Query(`
		SELECT code, name, base_price_adder, max_length_in, max_length_note, compatible_models
		FROM materials
	`)
	if err != nil {
		return fmt.Errorf("query materials: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m MaterialSpec
		var adder float64
		var compat string
		if err := rows.Scan(&m.Code, &m.Name, &adder, &m.MaxLengthIn, &m.MaxLengthNote, &compat); err != nil {
			return fmt.Errorf("scan material: %w", err)
		}
		m.BaseAdder = decimal.NewFromFloat(adder)
		if m.CompatibleModels, err = stringList(compat); err != nil {
			return fmt.Errorf("decode material %s compatible_models: %w", m.Code, err)
		}
		ref.materials[m.Code] = m
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate materials: %w", err)
	}
	return nil
}

func loadLengthRules(db *sql.DB, ref *Reference) error {
	rows, err := db.Query(`
		SELECT material_code, model_family, base_length_in, adder_per_foot, adder_per_inch,
		       pricing_mode, nonstandard_surcharge, nonstandard_threshold_in,
		       standard_lengths, standard_length_surcharge
		FROM length_pricing
	`)
	if err != nil {
		return fmt.Errorf("query length pricing: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r LengthRule
		var perFoot, perInch, surcharge, stdSurcharge float64
		var stdLengths string
		if err := rows.Scan(
			&r.MaterialCode, &r.ModelFamily, &r.BaseLengthIn, &perFoot, &perInch,
			&r.Mode, &surcharge, &r.NonstandardThresholdIn, &stdLengths, &stdSurcharge,
		); err != nil {
			return fmt.Errorf("scan length pricing rule: %w", err)
		}
		r.AdderPerFoot = decimal.NewFromFloat(perFoot)
		r.AdderPerInch = decimal.NewFromFloat(perInch)
		r.NonstandardSurcharge = decimal.NewFromFloat(surcharge)
		r.StandardLengthSurcharge = decimal.NewFromFloat(stdSurcharge)
		if r.StandardLengths, err = floatList(stdLengths); err != nil {
			return fmt.Errorf("decode length rule %s/%s standard_lengths: %w", r.MaterialCode, r.ModelFamily, err)
		}
		ref.lengthRules[lengthKey{material: r.MaterialCode, family: r.ModelFamily}] = r
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate length pricing: %w", err)
	}
	return nil
}

func loadStepSchedules(db *sql.DB, ref *Reference) error {
	rows, err := db.Query(`SELECT base_length_in, thresholds FROM step_schedules`)
	if err != nil {
		return fmt.Errorf("query step schedules: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var baseLength float64
		var thresholds string
		if err := rows.Scan(&baseLength, &thresholds); err != nil {
			return fmt.Errorf("scan step schedule: %w", err)
		}
		schedule, err := floatList(thresholds)
		if err != nil {
			return fmt.Errorf("decode step schedule for base %v: %w", baseLength, err)
		}
		ref.stepSchedules[baseLength] = schedule
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate step schedules: %w", err)
	}
	return nil
}

func loadInsulators(db *sql.DB, ref *Reference) error {
	rows, err := db.Query(`
		SELECT code, name, price_adder, max_temp_f, standard_length_in, compatible_models
		FROM insulators
	`)
	if err != nil {
		return fmt.Errorf("query insulators: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ins InsulatorSpec
		var adder float64
		var compat string
		if err := rows.Scan(&ins.Code, &ins.Name, &adder, &ins.MaxTempF, &ins.StandardLengthIn, &compat); err != nil {
			return fmt.Errorf("scan insulator: %w", err)
		}
		ins.PriceAdder = decimal.NewFromFloat(adder)
		if ins.CompatibleModels, err = stringList(compat); err != nil {
			return fmt.Errorf("decode insulator %s compatible_models: %w", ins.Code, err)
		}
		ref.insulators[ins.Code] = ins
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate insulators: %w", err)
	}
	return nil
}

func loadOptions(db *sql.DB, ref *Reference) error {
	rows, err := db.Query(`
		SELECT code, name, price, price_type, per_foot_price, category, applies_to, excludes
		FROM options
	`)
	if err != nil {
		return fmt.Errorf("query options: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var o OptionSpec
		var price, perFoot float64
		var appliesTo, excludes string
		if err := rows.Scan(&o.Code, &o.Name, &price, &o.PriceType, &perFoot, &o.Category, &appliesTo, &excludes); err != nil {
			return fmt.Errorf("scan option: %w", err)
		}
		o.Price = decimal.NewFromFloat(price)
		o.PerFootPrice = decimal.NewFromFloat(perFoot)
		if o.AppliesTo, err = stringList(appliesTo); err != nil {
			return fmt.Errorf("decode option %s applies_to: %w", o.Code, err)
		}
		if o.Excludes, err = stringList(excludes); err != nil {
			return fmt.Errorf("decode option %s excludes: %w", o.Code, err)
		}
		ref.options[o.Code] = o
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate options: %w", err)
	}
	return nil
}

func loadVoltages(db *sql.DB, ref *Reference) error {
	rows, err := db.Query(`
		SELECT model_family, voltage
		FROM voltages
		ORDER BY model_family, is_default DESC, voltage
	`)
	if err != nil {
		return fmt.Errorf("query voltages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var family, voltage string
		if err := rows.Scan(&family, &voltage); err != nil {
			return fmt.Errorf("scan voltage: %w", err)
		}
		ref.modelVoltages[family] = append(ref.modelVoltages[family], voltage)
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate voltages: %w", err)
	}
	return nil
}

func loadConnections(db *sql.DB, ref *Reference) error {
	rows, err := db.Query(`
		SELECT type, size, material, rating, price
		FROM process_connections
	`)
	if err != nil {
		return fmt.Errorf("query process connections: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c ConnectionSpec
		var price float64
		if err := rows.Scan(&c.Type, &c.Size, &c.Material, &c.Rating, &price); err != nil {
			return fmt.Errorf("scan process connection: %w", err)
		}
		c.Price = decimal.NewFromFloat(price)
		ref.connections[connKey{typ: c.Type, size: c.Size, material: c.Material, rating: c.Rating}] = c
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate process connections: %w", err)
	}
	return nil
}

func loadSpareParts(db *sql.DB, ref *Reference) error {
	rows, err := db.Query(`
		SELECT part_number, name, description, price, category, compatible_models
		FROM spare_parts
	`)
	if err != nil {
		return fmt.Errorf("query spare parts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p SparePart
		var price float64
		var compat string
		if err := rows.Scan(&p.PartNumber, &p.Name, &p.Description, &price, &p.Category, &compat); err != nil {
			return fmt.Errorf("scan spare part: %w", err)
		}
		p.Price = decimal.NewFromFloat(price)
		if p.CompatibleModels, err = stringList(compat); err != nil {
			return fmt.Errorf("decode spare part %s compatible_models: %w", p.PartNumber, err)
		}
		ref.spares[p.PartNumber] = p
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate spare parts: %w", err)
	}
	return nil
}

func stringList(raw string) ([]string, error) {
	if raw == "" {
		return nil, nil
	}
	var list []string
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil, err
	}
	return list, nil
}

func floatList(raw string) ([]float64, error) {
	if raw == "" {
		return nil, nil
	}
	var list []float64
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil, err
	}
	return list, nil
}
