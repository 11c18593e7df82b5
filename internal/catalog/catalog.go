package catalog

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Process connection types as stored in the process_connections table.
const (
	ConnNPT      = "NPT"
	ConnFlange   = "Flange"
	ConnTriClamp = "Tri-Clamp"
)

// ModelFamilyAll is the wildcard model family for length pricing rules.
const ModelFamilyAll = "ALL"

// Connection identifies a process connection. Rating is empty except for flanges.
type Connection struct {
	Type     string
	Size     string
	Material string
	Rating   string
}

// Display renders a connection the way quote documents historically show it,
// e.g. `3/4"NPT (SS)` or `2"150# RF Flange (SS)`.
func (c Connection) Display() string {
	switch c.Type {
	case ConnNPT:
		return c.Size + "NPT (" + c.Material + ")"
	case ConnFlange:
		rating := ""
		if c.Rating != "" {
			rating = c.Rating + " "
		}
		return c.Size + rating + "RF Flange (" + c.Material + ")"
	case ConnTriClamp:
		return c.Size + " Tri-Clamp (" + c.Material + ")"
	default:
		return c.Size + " " + c.Type + " (" + c.Material + ")"
	}
}

// ModelSpec describes one product model and its configuration defaults.
type ModelSpec struct {
	Code              string
	Description       string
	BasePrice         decimal.Decimal
	BaseLengthIn      float64
	DefaultVoltage    string
	DefaultMaterial   string
	DefaultInsulator  string
	DefaultConnection Connection
	MaxTempF          int
	MaxPressurePSI    int
	Notes             string
}

// MaterialSpec describes a probe material. MaxLengthIn of zero means the
// material has no recommended length limit.
type MaterialSpec struct {
	Code             string
	Name             string
	BaseAdder        decimal.Decimal
	MaxLengthIn      float64
	MaxLengthNote    string
	CompatibleModels []string
}

// CompatibleWith reports whether the material is offered on the given model.
// An empty compatibility list means no restriction.
func (m MaterialSpec) CompatibleWith(model string) bool {
	if len(m.CompatibleModels) == 0 {
		return true
	}
	for _, c := range m.CompatibleModels {
		if c == ModelFamilyAll || c == model {
			return true
		}
	}
	return false
}

// LengthRule holds the length-pricing parameters for a (material, model family)
// pair. A non-empty StandardLengths set switches the surcharge to the
// enumerated-standard-lengths rule; otherwise NonstandardThresholdIn applies.
type LengthRule struct {
	MaterialCode            string
	ModelFamily             string
	BaseLengthIn            float64
	AdderPerFoot            decimal.Decimal
	AdderPerInch            decimal.Decimal
	Mode                    string
	NonstandardSurcharge    decimal.Decimal
	NonstandardThresholdIn  float64
	StandardLengths         []float64
	StandardLengthSurcharge decimal.Decimal
}

// Length pricing modes.
const (
	ModePerFoot = "per_foot"
	ModePerInch = "per_inch"
)

// IsStandardLength reports whether the given probe length is in the rule's
// enumerated standard-length set.
func (r LengthRule) IsStandardLength(lengthIn float64) bool {
	for _, std := range r.StandardLengths {
		if std == lengthIn {
			return true
		}
	}
	return false
}

// InsulatorSpec describes an insulator material.
type InsulatorSpec struct {
	Code             string
	Name             string
	PriceAdder       decimal.Decimal
	MaxTempF         int
	StandardLengthIn float64
	CompatibleModels []string
}

// Option price types.
const (
	PriceFixed           = "fixed"
	PriceBasePlusPerFoot = "base_plus_per_foot"
)

// OptionSpec describes an orderable option code. AppliesTo is either the
// wildcard ["ALL"] or an explicit model list; Excludes names option codes that
// cannot be combined with this one.
type OptionSpec struct {
	Code         string
	Name         string
	Price        decimal.Decimal
	PriceType    string
	PerFootPrice decimal.Decimal
	Category     string
	AppliesTo    []string
	Excludes     []string
}

// AppliesToModel reports whether the option may be quoted on the given model.
func (o OptionSpec) AppliesToModel(model string) bool {
	for _, m := range o.AppliesTo {
		if m == ModelFamilyAll || m == model {
			return true
		}
	}
	return false
}

// ConnectionSpec is a priced process-connection catalog row.
type ConnectionSpec struct {
	Connection
	Price decimal.Decimal
}

// SparePart is a replacement-component catalog row. Probe-assembly rows are
// priced at the model base length; the resolver adds its per-foot adder on top.
type SparePart struct {
	PartNumber       string
	Name             string
	Description      string
	Price            decimal.Decimal
	Category         string
	CompatibleModels []string
}

type lengthKey struct {
	material string
	family   string
}

type connKey struct {
	typ      string
	size     string
	material string
	rating   string
}

// Reference is an immutable snapshot of all reference tables, loaded once and
// shared read-only by the parser, validator, pricing engine and spare resolver.
type Reference struct {
	models        map[string]ModelSpec
	materials     map[string]MaterialSpec
	lengthRules   map[lengthKey]LengthRule
	stepSchedules map[float64][]float64
	insulators    map[string]InsulatorSpec
	options       map[string]OptionSpec
	modelVoltages map[string][]string
	connections   map[connKey]ConnectionSpec
	spares        map[string]SparePart
}

// Model looks up a product model by code.
func (r *Reference) Model(code string) (ModelSpec, bool) {
	m, ok := r.models[code]
	return m, ok
}

// Material looks up a probe material by code.
func (r *Reference) Material(code string) (MaterialSpec, bool) {
	m, ok := r.materials[code]
	return m, ok
}

// HasMaterial reports whether code is a known material.
func (r *Reference) HasMaterial(code string) bool {
	_, ok := r.materials[code]
	return ok
}

// LengthRule resolves the length-pricing rule for a material on a model,
// preferring a model-specific row over the material's ALL row.
func (r *Reference) LengthRule(material, model string) (LengthRule, bool) {
	if rule, ok := r.lengthRules[lengthKey{material: material, family: model}]; ok {
		return rule, true
	}
	rule, ok := r.lengthRules[lengthKey{material: material, family: ModelFamilyAll}]
	return rule, ok
}

// StepSchedule returns the stepped-pricing threshold boundaries for a model
// base length.
func (r *Reference) StepSchedule(baseLengthIn float64) ([]float64, bool) {
	s, ok := r.stepSchedules[baseLengthIn]
	return s, ok
}

// Insulator looks up an insulator by code.
func (r *Reference) Insulator(code string) (InsulatorSpec, bool) {
	i, ok := r.insulators[code]
	return i, ok
}

// Option looks up an option by code.
func (r *Reference) Option(code string) (OptionSpec, bool) {
	o, ok := r.options[code]
	return o, ok
}

// HasOption reports whether code is a known option.
func (r *Reference) HasOption(code string) bool {
	_, ok := r.options[code]
	return ok
}

// VoltagesFor returns the voltages valid for a model, default first.
func (r *Reference) VoltagesFor(model string) []string {
	return r.modelVoltages[model]
}

// VoltageValidFor reports whether voltage is in the model's voltage set.
// Models with no voltage rows accept any voltage.
func (r *Reference) VoltageValidFor(model, voltage string) bool {
	voltages, ok := r.modelVoltages[model]
	if !ok {
		return true
	}
	for _, v := range voltages {
		if v == voltage {
			return true
		}
	}
	return false
}

// VoltageKnown reports whether any model lists the given voltage.
func (r *Reference) VoltageKnown(voltage string) bool {
	for _, voltages := range r.modelVoltages {
		for _, v := range voltages {
			if v == voltage {
				return true
			}
		}
	}
	return false
}

// ConnectionPrice looks up a priced connection row.
func (r *Reference) ConnectionPrice(c Connection) (ConnectionSpec, bool) {
	spec, ok := r.connections[connKey{typ: c.Type, size: c.Size, material: c.Material, rating: c.Rating}]
	return spec, ok
}

// Spare looks up a spare part by canonical part number.
func (r *Reference) Spare(partNumber string) (SparePart, bool) {
	s, ok := r.spares[partNumber]
	return s, ok
}

// ModelCodes returns all model codes, sorted.
func (r *Reference) ModelCodes() []string {
	codes := make([]string, 0, len(r.models))
	for code := range r.models {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// MaterialCodes returns all material codes, sorted.
func (r *Reference) MaterialCodes() []string {
	codes := make([]string, 0, len(r.materials))
	for code := range r.materials {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// SpareCatalog returns every spare part row, sorted by part number.
func (r *Reference) SpareCatalog() []SparePart {
	parts := make([]SparePart, 0, len(r.spares))
	for _, p := range r.spares {
		parts = append(parts, p)
	}
	sort.Slice(parts, func(i, j int) bool { return parts[i].PartNumber < parts[j].PartNumber })
	return parts
}
