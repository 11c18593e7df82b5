// Package pricing turns a parsed part into an itemized price. Rules are
// table-driven from the reference catalog; the engine fails closed on any
// missing reference row instead of guessing a price.
package pricing

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/babbittintl/quotecore/internal/catalog"
	"github.com/babbittintl/quotecore/internal/partnumber"
)

// CompatibilityError reports a configuration whose validation errors block
// pricing, such as mutually exclusive options.
type CompatibilityError struct {
	Problems []string
}

func (e *CompatibilityError) Error() string {
	return "incompatible configuration: " + strings.Join(e.Problems, "; ")
}

// DataError reports a resolved code with no matching reference row. It marks
// a catalog gap, not bad user input, and no price is produced.
type DataError struct {
	Kind string
	Code string
}

func (e *DataError) Error() string {
	return fmt.Sprintf("no %s reference row for %q", e.Kind, e.Code)
}

// OptionCharge is one priced option line.
type OptionCharge struct {
	Code   string
	Name   string
	Amount decimal.Decimal
}

// Surcharge is a named flat amount added on top of the component adders.
type Surcharge struct {
	Name   string
	Amount decimal.Decimal
}

// Result is an itemized price. Total always equals the sum of the component
// adders, option amounts and surcharges; Breakdown carries one display line
// per contributing (or explicitly zeroed) term in computation order.
type Result struct {
	BasePrice       decimal.Decimal
	MaterialAdder   decimal.Decimal
	LengthAdder     decimal.Decimal
	InsulatorAdder  decimal.Decimal
	ConnectionAdder decimal.Decimal
	Options         []OptionCharge
	Surcharges      []Surcharge
	Total           decimal.Decimal
	Breakdown       []string
	Notes           []string
}

func (r *Result) line(format string, args ...any) {
	r.Breakdown = append(r.Breakdown, fmt.Sprintf(format, args...))
}

// insulatorExemption zeroes the base insulator adder when its predicate
// matches. Exemptions are evaluated in order and the first match wins; each
// still emits an explicit $0.00 breakdown line carrying its note.
type insulatorExemption struct {
	note    string
	applies func(part partnumber.Part, model catalog.ModelSpec) bool
}

var insulatorExemptions = []insulatorExemption{
	{
		note: "Not applied - Material H",
		applies: func(p partnumber.Part, _ catalog.ModelSpec) bool {
			return p.MaterialCode == "H" && p.InsulatorCode == "TEF"
		},
	},
	{
		note: "Not applied - Base insulator is Teflon",
		applies: func(p partnumber.Part, m catalog.ModelSpec) bool {
			return p.InsulatorCode == "TEF" && m.DefaultInsulator == "TEF"
		},
	},
}

// Calculate prices a parsed part against the reference catalog. Parts carrying
// validation errors are refused with a CompatibilityError; any resolved code
// without a reference row yields a DataError.
func Calculate(part partnumber.Part, ref *catalog.Reference) (Result, error) {
	if len(part.Errors) > 0 {
		return Result{}, &CompatibilityError{Problems: append([]string(nil), part.Errors...)}
	}

	model, ok := ref.Model(part.Model)
	if !ok {
		return Result{}, &DataError{Kind: "model", Code: part.Model}
	}
	material, ok := ref.Material(part.MaterialCode)
	if !ok {
		return Result{}, &DataError{Kind: "material", Code: part.MaterialCode}
	}

	var res Result

	// Fractional lengths are priced at the next whole inch.
	length := part.LengthIn
	if ceiled := math.Ceil(length); ceiled != length {
		res.Notes = append(res.Notes, fmt.Sprintf(`Length rounded up from %g" to %g" for pricing`, length, ceiled))
		length = ceiled
	}

	res.BasePrice = model.BasePrice
	res.line("Base Model (%s): %s", model.Code, money(model.BasePrice))

	if material.BaseAdder.IsPositive() {
		res.MaterialAdder = material.BaseAdder
		res.line("Material Adder (%s): %s", material.Code, money(material.BaseAdder))
	}

	rule, ok := ref.LengthRule(material.Code, model.Code)
	if !ok {
		return Result{}, &DataError{Kind: "length pricing rule", Code: material.Code}
	}
	if err := priceLength(&res, rule, model, length, ref); err != nil {
		return Result{}, err
	}
	priceLengthSurcharge(&res, rule, length)

	if part.InsulatorExplicit {
		if err := priceInsulator(&res, part, model, ref); err != nil {
			return Result{}, err
		}
	}

	if part.Connection != nil && *part.Connection != model.DefaultConnection {
		spec, ok := ref.ConnectionPrice(*part.Connection)
		if !ok {
			return Result{}, &DataError{Kind: "process connection", Code: part.Connection.Display()}
		}
		res.ConnectionAdder = spec.Price
		if spec.Price.IsPositive() {
			res.line("Process Connection (%s): %s", spec.Display(), money(spec.Price))
		}
	}

	if err := priceOptions(&res, part, model, ref, length); err != nil {
		return Result{}, err
	}

	res.Total = res.BasePrice.
		Add(res.MaterialAdder).
		Add(res.LengthAdder).
		Add(res.InsulatorAdder).
		Add(res.ConnectionAdder)
	for _, opt := range res.Options {
		res.Total = res.Total.Add(opt.Amount)
	}
	for _, s := range res.Surcharges {
		res.Total = res.Total.Add(s.Amount)
	}
	res.line("TOTAL: %s", money(res.Total))

	return res, nil
}

// priceLength applies the length rule for the part's material. Per-foot
// materials accrue one adder per crossed threshold from the model's step
// schedule; per-inch materials accrue continuously past the rule's base
// length.
func priceLength(res *Result, rule catalog.LengthRule, model catalog.ModelSpec, length float64, ref *catalog.Reference) error {
	switch rule.Mode {
	case catalog.ModePerFoot:
		if length <= model.BaseLengthIn {
			return nil
		}
		schedule, ok := ref.StepSchedule(model.BaseLengthIn)
		if !ok {
			return &DataError{Kind: "step schedule", Code: fmt.Sprintf(`%g" base`, model.BaseLengthIn)}
		}
		units := stepUnits(schedule, length)
		if units == 0 {
			return nil
		}
		res.LengthAdder = rule.AdderPerFoot.Mul(decimal.NewFromInt(int64(units)))
		res.line("Length Cost (%d foot adders @ $%s/ft): %s", units, rule.AdderPerFoot.StringFixed(0), money(res.LengthAdder))

	case catalog.ModePerInch:
		extra := length - rule.BaseLengthIn
		if extra <= 0 {
			return nil
		}
		res.LengthAdder = rule.AdderPerInch.Mul(decimal.NewFromFloat(extra))
		res.line(`Length Cost (%.1f" extra @ $%s/in): %s`, extra, rule.AdderPerInch.StringFixed(2), money(res.LengthAdder))

	default:
		return &DataError{Kind: "length pricing mode", Code: rule.Mode}
	}
	return nil
}

// priceLengthSurcharge applies the nonstandard-length surcharge. A rule with
// an enumerated standard-length set charges whenever the length is off-list;
// otherwise the generic over-threshold rule applies.
func priceLengthSurcharge(res *Result, rule catalog.LengthRule, length float64) {
	switch {
	case len(rule.StandardLengths) > 0:
		if rule.StandardLengthSurcharge.IsPositive() && !rule.IsStandardLength(length) {
			res.Surcharges = append(res.Surcharges, Surcharge{Name: "Nonstandard Length Surcharge", Amount: rule.StandardLengthSurcharge})
			res.line(`Nonstandard Length Surcharge (%g" not a standard length): %s`, length, money(rule.StandardLengthSurcharge))
		}
	case rule.NonstandardSurcharge.IsPositive() && length > rule.NonstandardThresholdIn:
		res.Surcharges = append(res.Surcharges, Surcharge{Name: "Nonstandard Length Surcharge", Amount: rule.NonstandardSurcharge})
		res.line(`Nonstandard Length Surcharge (>%g"): %s`, rule.NonstandardThresholdIn, money(rule.NonstandardSurcharge))
	}
}

// priceInsulator charges an explicitly requested insulator. The exemption
// chain can zero the catalog adder; an explicit insulator length past the
// free 4" adds the bracket adder regardless of exemptions.
func priceInsulator(res *Result, part partnumber.Part, model catalog.ModelSpec, ref *catalog.Reference) error {
	ins, ok := ref.Insulator(part.InsulatorCode)
	if !ok {
		return &DataError{Kind: "insulator", Code: part.InsulatorCode}
	}

	base := ins.PriceAdder
	note := ""
	for _, ex := range insulatorExemptions {
		if ex.applies(part, model) {
			base = decimal.Zero
			note = ex.note
			break
		}
	}

	switch {
	case note != "":
		res.line("Insulator (%s): $0.00 (%s)", ins.Name, note)
	case base.IsPositive():
		res.line("Insulator (%s): %s", ins.Name, money(base))
	}

	ladder := insulatorLengthAdder(part.InsulatorLengthIn)
	if ladder.IsPositive() {
		res.line(`Insulator Length Adder (%g"): %s`, part.InsulatorLengthIn, money(ladder))
	}

	res.InsulatorAdder = base.Add(ladder)
	return nil
}

// priceOptions charges every option on the part in order. Fixed options
// contribute their flat price; base-plus-per-foot options add one per-foot
// amount for each started foot past the model base length.
func priceOptions(res *Result, part partnumber.Part, model catalog.ModelSpec, ref *catalog.Reference, length float64) error {
	for _, code := range part.Options {
		opt, ok := ref.Option(code)
		if !ok {
			return &DataError{Kind: "option", Code: code}
		}

		var amount decimal.Decimal
		switch opt.PriceType {
		case catalog.PriceBasePlusPerFoot:
			units := startedFeet(model.BaseLengthIn, length)
			amount = opt.Price.Add(opt.PerFootPrice.Mul(decimal.NewFromInt(int64(units))))
		default:
			amount = opt.Price
		}

		name := opt.Name
		if code == "BENT" && part.BendAngleDeg != nil {
			name = fmt.Sprintf("Bent Probe (%d°)", *part.BendAngleDeg)
		}

		res.Options = append(res.Options, OptionCharge{Code: code, Name: name, Amount: amount})
		if amount.IsPositive() {
			res.line("Option %s (%s): %s", code, name, money(amount))
		}
	}
	return nil
}

// stepUnits counts the schedule thresholds the probe length has reached.
// Schedules are sorted ascending, so the count stops at the first miss.
func stepUnits(schedule []float64, length float64) int {
	units := 0
	for _, threshold := range schedule {
		if length < threshold {
			break
		}
		units++
	}
	return units
}

// startedFeet counts whole-or-partial feet past the base length.
func startedFeet(baseLengthIn, lengthIn float64) int {
	if lengthIn <= baseLengthIn {
		return 0
	}
	return int(math.Ceil((lengthIn - baseLengthIn) / 12.0))
}

const (
	insulatorFreeLengthIn = 4
	insulatorAdderFloor   = 150
	insulatorAdderStep    = 50
	insulatorAdderCap     = 500
)

// insulatorLengthAdder prices an explicit insulator length. Brackets are 2"
// wide starting at 5"; each bracket adds $50 to the $150 floor, capped at
// $500. Lengths at or under the free 4" carry no adder.
func insulatorLengthAdder(lengthIn float64) decimal.Decimal {
	if lengthIn <= insulatorFreeLengthIn {
		return decimal.Zero
	}
	bracket := int((lengthIn-5)/2) + 1
	adder := insulatorAdderFloor + (bracket-1)*insulatorAdderStep
	if adder > insulatorAdderCap {
		adder = insulatorAdderCap
	}
	return decimal.NewFromInt(int64(adder))
}

func money(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}
