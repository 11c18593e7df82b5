// Package seed installs the embedded reference catalog at startup. Inserts
// are idempotent: rows already present are left untouched, so price
// corrections applied by later migrations survive restarts.
package seed

import (
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

// Stats contains seed operation counters.
type Stats struct {
	Inserts int
	Updates int
}

// Run executes the startup seed in an idempotent way.
func Run(db *sql.DB) (Stats, error) {
	var cat catalogFile
	if err := yaml.Unmarshal(catalogYAML, &cat); err != nil {
		return Stats{}, fmt.Errorf("decode embedded catalog: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return Stats{}, fmt.Errorf("begin seed transaction: %w", err)
	}

	stats := Stats{}

	if err := ensureModels(tx, cat.Models, &stats); err != nil {
		_ = tx.Rollback()
		return Stats{}, err
	}
	if err := ensureMaterials(tx, cat.Materials, &stats); err != nil {
		_ = tx.Rollback()
		return Stats{}, err
	}
	if err := ensureLengthRules(tx, cat.LengthPricing, &stats); err != nil {
		_ = tx.Rollback()
		return Stats{}, err
	}
	if err := ensureStepSchedules(tx, cat.StepSchedules, &stats); err != nil {
		_ = tx.Rollback()
		return Stats{}, err
	}
	if err := ensureInsulators(tx, cat.Insulators, &stats); err != nil {
		_ = tx.Rollback()
		return Stats{}, err
	}
	if err := ensureOptions(tx, cat.Options, &stats); err != nil {
		_ = tx.Rollback()
		return Stats{}, err
	}
	if err := ensureVoltages(tx, cat.Voltages, &stats); err != nil {
		_ = tx.Rollback()
		return Stats{}, err
	}
	if err := ensureConnections(tx, cat.ProcessConnections, &stats); err != nil {
		_ = tx.Rollback()
		return Stats{}, err
	}
	if err := ensureSpareParts(tx, cat.SpareParts, &stats); err != nil {
		_ = tx.Rollback()
		return Stats{}, err
	}

	if err := tx.Commit(); err != nil {
		return Stats{}, fmt.Errorf("commit seed transaction: %w", err)
	}

	return stats, nil
}

// catalogFile mirrors catalog.yaml.
type catalogFile struct {
	Models             []modelRow      `yaml:"models"`
	Materials          []materialRow   `yaml:"materials"`
	LengthPricing      []lengthRow     `yaml:"length_pricing"`
	StepSchedules      []scheduleRow   `yaml:"step_schedules"`
	Insulators         []insulatorRow  `yaml:"insulators"`
	Options            []optionRow     `yaml:"options"`
	Voltages           []voltageRow    `yaml:"voltages"`
	ProcessConnections []connectionRow `yaml:"process_connections"`
	SpareParts         []spareRow      `yaml:"spare_parts"`
}

type connectionRef struct {
	Type     string `yaml:"type"`
	Size     string `yaml:"size"`
	Material string `yaml:"material"`
	Rating   string `yaml:"rating"`
}

type modelRow struct {
	Code              string        `yaml:"code"`
	Description       string        `yaml:"description"`
	BasePrice         float64       `yaml:"base_price"`
	BaseLengthIn      float64       `yaml:"base_length_in"`
	DefaultVoltage    string        `yaml:"default_voltage"`
	DefaultMaterial   string        `yaml:"default_material"`
	DefaultInsulator  string        `yaml:"default_insulator"`
	DefaultConnection connectionRef `yaml:"default_connection"`
	MaxTempF          int           `yaml:"max_temp_f"`
	MaxPressurePSI    int           `yaml:"max_pressure_psi"`
	Notes             string        `yaml:"notes"`
}

type materialRow struct {
	Code             string   `yaml:"code"`
	Name             string   `yaml:"name"`
	BasePriceAdder   float64  `yaml:"base_price_adder"`
	MaxLengthIn      float64  `yaml:"max_length_in"`
	MaxLengthNote    string   `yaml:"max_length_note"`
	CompatibleModels []string `yaml:"compatible_models"`
}

type lengthRow struct {
	Material                string    `yaml:"material"`
	ModelFamily             string    `yaml:"model_family"`
	BaseLengthIn            float64   `yaml:"base_length_in"`
	AdderPerFoot            float64   `yaml:"adder_per_foot"`
	AdderPerInch            float64   `yaml:"adder_per_inch"`
	PricingMode             string    `yaml:"pricing_mode"`
	NonstandardSurcharge    float64   `yaml:"nonstandard_surcharge"`
	NonstandardThresholdIn  float64   `yaml:"nonstandard_threshold_in"`
	StandardLengths         []float64 `yaml:"standard_lengths"`
	StandardLengthSurcharge float64   `yaml:"standard_length_surcharge"`
}

type scheduleRow struct {
	BaseLengthIn float64   `yaml:"base_length_in"`
	Thresholds   []float64 `yaml:"thresholds"`
}

type insulatorRow struct {
	Code             string   `yaml:"code"`
	Name             string   `yaml:"name"`
	PriceAdder       float64  `yaml:"price_adder"`
	MaxTempF         int      `yaml:"max_temp_f"`
	StandardLengthIn float64  `yaml:"standard_length_in"`
	CompatibleModels []string `yaml:"compatible_models"`
}

type optionRow struct {
	Code         string   `yaml:"code"`
	Name         string   `yaml:"name"`
	Price        float64  `yaml:"price"`
	PriceType    string   `yaml:"price_type"`
	PerFootPrice float64  `yaml:"per_foot_price"`
	Category     string   `yaml:"category"`
	AppliesTo    []string `yaml:"applies_to"`
	Excludes     []string `yaml:"excludes"`
}

type voltageRow struct {
	Model     string `yaml:"model"`
	Voltage   string `yaml:"voltage"`
	IsDefault bool   `yaml:"default"`
}

type connectionRow struct {
	Type     string  `yaml:"type"`
	Size     string  `yaml:"size"`
	Material string  `yaml:"material"`
	Rating   string  `yaml:"rating"`
	Price    float64 `yaml:"price"`
}

type spareRow struct {
	PartNumber       string   `yaml:"part_number"`
	Name             string   `yaml:"name"`
	Description      string   `yaml:"description"`
	Price            float64  `yaml:"price"`
	Category         string   `yaml:"category"`
	CompatibleModels []string `yaml:"compatible_models"`
}

// insertIgnore runs an INSERT ... ON CONFLICT DO NOTHING statement and counts
// the rows actually written.
func insertIgnore(tx *sql.Tx, stats *Stats, what, query string, args ...any) error {
	res, err := tx.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("insert %s: %w", what, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("count %s insert: %w", what, err)
	}
	stats.Inserts += int(n)
	return nil
}

func ensureModels(tx *sql.Tx, rows []modelRow, stats *Stats) error {
	for _, m := range rows {
		err := insertIgnore(tx, stats, "product model "+m.Code, `
			INSERT INTO product_models (
				code, description, base_price, base_length_in,
				default_voltage, default_material, default_insulator,
				default_conn_type, default_conn_size, default_conn_material, default_conn_rating,
				max_temp_f, max_pressure_psi, notes
			)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (code) DO NOTHING
		`, m.Code, m.Description, m.BasePrice, m.BaseLengthIn,
			m.DefaultVoltage, m.DefaultMaterial, m.DefaultInsulator,
			m.DefaultConnection.Type, m.DefaultConnection.Size, m.DefaultConnection.Material, m.DefaultConnection.Rating,
			m.MaxTempF, m.MaxPressurePSI, m.Notes)
		if err != nil {
			return err
		}
	}
	return nil
}

func ensureMaterials(tx *sql.Tx, rows []materialRow, stats *Stats) error {
	for _, m := range rows {
		err := insertIgnore(tx, stats, "material "+m.Code, `
			INSERT INTO materials (code, name, base_price_adder, max_length_in, max_length_note, compatible_models)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (code) DO NOTHING
		`, m.Code, m.Name, m.BasePriceAdder, m.MaxLengthIn, m.MaxLengthNote, jsonStrings(m.CompatibleModels, "[]"))
		if err != nil {
			return err
		}
	}
	return nil
}

func ensureLengthRules(tx *sql.Tx, rows []lengthRow, stats *Stats) error {
	for _, r := range rows {
		family := r.ModelFamily
		if family == "" {
			family = "ALL"
		}
		// Zero-valued YAML fields fall back to the schema defaults.
		threshold := r.NonstandardThresholdIn
		if threshold == 0 {
			threshold = 96
		}
		err := insertIgnore(tx, stats, fmt.Sprintf("length rule %s/%s", r.Material, family), `
			INSERT INTO length_pricing (
				material_code, model_family, base_length_in, adder_per_foot, adder_per_inch,
				pricing_mode, nonstandard_surcharge, nonstandard_threshold_in,
				standard_lengths, standard_length_surcharge
			)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (material_code, model_family) DO NOTHING
		`, r.Material, family, r.BaseLengthIn, r.AdderPerFoot, r.AdderPerInch,
			r.PricingMode, r.NonstandardSurcharge, threshold,
			jsonFloats(r.StandardLengths), r.StandardLengthSurcharge)
		if err != nil {
			return err
		}
	}
	return nil
}

func ensureStepSchedules(tx *sql.Tx, rows []scheduleRow, stats *Stats) error {
	for _, s := range rows {
		err := insertIgnore(tx, stats, fmt.Sprintf("step schedule for base %v", s.BaseLengthIn), `
			INSERT INTO step_schedules (base_length_in, thresholds)
			VALUES (?, ?)
			ON CONFLICT (base_length_in) DO NOTHING
		`, s.BaseLengthIn, jsonFloats(s.Thresholds))
		if err != nil {
			return err
		}
	}
	return nil
}

func ensureInsulators(tx *sql.Tx, rows []insulatorRow, stats *Stats) error {
	for _, ins := range rows {
		stdLength := ins.StandardLengthIn
		if stdLength == 0 {
			stdLength = 4
		}
		err := insertIgnore(tx, stats, "insulator "+ins.Code, `
			INSERT INTO insulators (code, name, price_adder, max_temp_f, standard_length_in, compatible_models)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (code) DO NOTHING
		`, ins.Code, ins.Name, ins.PriceAdder, ins.MaxTempF, stdLength, jsonStrings(ins.CompatibleModels, `["ALL"]`))
		if err != nil {
			return err
		}
	}
	return nil
}

func ensureOptions(tx *sql.Tx, rows []optionRow, stats *Stats) error {
	for _, o := range rows {
		priceType := o.PriceType
		if priceType == "" {
			priceType = "fixed"
		}
		err := insertIgnore(tx, stats, "option "+o.Code, `
			INSERT INTO options (code, name, price, price_type, per_foot_price, category, applies_to, excludes)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (code) DO NOTHING
		`, o.Code, o.Name, o.Price, priceType, o.PerFootPrice, o.Category,
			jsonStrings(o.AppliesTo, `["ALL"]`), jsonStrings(o.Excludes, "[]"))
		if err != nil {
			return err
		}
	}
	return nil
}

func ensureVoltages(tx *sql.Tx, rows []voltageRow, stats *Stats) error {
	for _, v := range rows {
		err := insertIgnore(tx, stats, fmt.Sprintf("voltage %s/%s", v.Model, v.Voltage), `
			INSERT INTO voltages (model_family, voltage, is_default)
			VALUES (?, ?, ?)
			ON CONFLICT (model_family, voltage) DO NOTHING
		`, v.Model, v.Voltage, v.IsDefault)
		if err != nil {
			return err
		}
	}
	return nil
}

func ensureConnections(tx *sql.Tx, rows []connectionRow, stats *Stats) error {
	for _, c := range rows {
		err := insertIgnore(tx, stats, fmt.Sprintf("process connection %s %s", c.Size, c.Type), `
			INSERT INTO process_connections (type, size, material, rating, price)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (type, size, material, rating) DO NOTHING
		`, c.Type, c.Size, c.Material, c.Rating, c.Price)
		if err != nil {
			return err
		}
	}
	return nil
}

func ensureSpareParts(tx *sql.Tx, rows []spareRow, stats *Stats) error {
	for _, p := range rows {
		err := insertIgnore(tx, stats, "spare part "+p.PartNumber, `
			INSERT INTO spare_parts (part_number, name, description, price, category, compatible_models)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (part_number) DO NOTHING
		`, p.PartNumber, p.Name, p.Description, p.Price, p.Category, jsonStrings(p.CompatibleModels, "[]"))
		if err != nil {
			return err
		}
	}
	return nil
}

// jsonStrings renders a string list as the JSON stored in TEXT columns,
// falling back to the given literal when the list is empty.
func jsonStrings(vals []string, empty string) string {
	if len(vals) == 0 {
		return empty
	}
	b, _ := json.Marshal(vals)
	return string(b)
}

func jsonFloats(vals []float64) string {
	if len(vals) == 0 {
		return "[]"
	}
	b, _ := json.Marshal(vals)
	return string(b)
}
