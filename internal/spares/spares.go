// Package spares resolves replacement-part codes. Spare codes follow their
// own grammar, independent of full part numbers: a model prefix, a variable
// middle, and a category suffix tag. Each category maps to a canonical
// catalog part number; probe assemblies and fuses carry dynamic pricing on
// top of the catalog row.
package spares

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/babbittintl/quotecore/internal/catalog"
)

// Resolution is the outcome of resolving one spare-part code. Part and Price
// are set when the code maps to a catalog row (or a synthesized fuse row);
// Errors explain why it did not.
type Resolution struct {
	Raw          string
	Category     string
	Model        string
	Voltage      string
	MaterialCode string
	LengthIn     float64
	Specs        string // transmitter size/sensitivity middle, kept verbatim
	Canonical    string
	Part         *catalog.SparePart
	Price        decimal.Decimal
	Suggestions  []string
	Warnings     []string
	Errors       []string
	Resolved     bool
}

// matcher ties one category's suffix grammar to its canonical part number.
// Matchers are tried in order; the first hit wins.
type matcher struct {
	category string
	pattern  *regexp.Regexp
	bind     func(groups []string, res *Resolution)
}

var matchers = []matcher{
	{
		category: "electronics",
		pattern:  regexp.MustCompile(`^([A-Z0-9/]+)-(\d+V(?:AC|DC))-E$`),
		bind: func(g []string, res *Resolution) {
			res.Model, res.Voltage = g[1], g[2]
			res.Canonical = g[1] + "-ELECTRONICS"
		},
	},
	{
		category: "probe_assembly",
		pattern:  regexp.MustCompile(`^([A-Z0-9/]+)-([A-Z]+)-(\d+(?:\.\d+)?)"?$`),
		bind: func(g []string, res *Resolution) {
			res.Model, res.MaterialCode = g[1], g[2]
			res.LengthIn, _ = strconv.ParseFloat(g[3], 64)
			res.Canonical = g[1] + "-" + g[2] + "-PROBE-ASSEMBLY"
		},
	},
	{
		category: "power_supply",
		pattern:  regexp.MustCompile(`^([A-Z0-9/]+)-(\d+V(?:AC|DC))-PS$`),
		bind: func(g []string, res *Resolution) {
			res.Model, res.Voltage = g[1], g[2]
			res.Canonical = g[1] + "-PS-POWER-SUPPLY"
		},
	},
	{
		category: "receiver_card",
		pattern:  regexp.MustCompile(`^([A-Z0-9/]+)-(\d+V(?:AC|DC))-R$`),
		bind: func(g []string, res *Resolution) {
			res.Model, res.Voltage = g[1], g[2]
			res.Canonical = g[1] + "-R-RECEIVER-CARD"
		},
	},
	{
		category: "transmitter",
		pattern:  regexp.MustCompile(`^([A-Z0-9/]+)-(.+)-T$`),
		bind: func(g []string, res *Resolution) {
			res.Model, res.Specs = g[1], g[2]
			res.Canonical = g[1] + "-T-TRANSMITTER"
		},
	},
	{
		category: "sensing_card",
		pattern:  regexp.MustCompile(`^([A-Z0-9/]+)-SC$`),
		bind: func(g []string, res *Resolution) {
			res.Model = g[1]
			res.Canonical = g[1] + "-SC-SENSING-CARD"
		},
	},
	{
		category: "dual_point_card",
		pattern:  regexp.MustCompile(`^([A-Z0-9/]+)-DP$`),
		bind: func(g []string, res *Resolution) {
			res.Model = g[1]
			res.Canonical = g[1] + "-DP-DUAL-POINT-CARD"
		},
	},
	{
		category: "plugin_card",
		pattern:  regexp.MustCompile(`^([A-Z0-9/]+)-MA$`),
		bind: func(g []string, res *Resolution) {
			res.Model = g[1]
			res.Canonical = g[1] + "-MA-PLUGIN-CARD"
		},
	},
	{
		category: "bb_power_supply",
		pattern:  regexp.MustCompile(`^([A-Z0-9/]+)-(\d+V(?:AC|DC))-BB$`),
		bind: func(g []string, res *Resolution) {
			res.Model, res.Voltage = g[1], g[2]
			res.Canonical = g[1] + "-BB-POWER-SUPPLY"
		},
	},
	{
		category: "fuse",
		pattern:  regexp.MustCompile(`^([A-Z0-9/]+)-FUSE$`),
		bind: func(g []string, res *Resolution) {
			res.Model = g[1]
			res.Canonical = "FUSE-1/2-AMP"
		},
	},
	{
		category: "housing",
		pattern:  regexp.MustCompile(`^([A-Z0-9/]+)-HOUSING$`),
		bind: func(g []string, res *Resolution) {
			res.Model = g[1]
			res.Canonical = g[1] + "-HOUSING"
		},
	},
}

// Resolve decodes a spare-part code, validates its variables against the
// reference catalog, maps it to a canonical catalog part and prices it.
// Resolution never fails outright; problems are recorded on the result and
// Resolved reports whether a priced part came out the other end.
func Resolve(code string, ref *catalog.Reference) Resolution {
	res := Resolution{Raw: strings.ToUpper(strings.TrimSpace(code))}

	matched := false
	for _, m := range matchers {
		groups := m.pattern.FindStringSubmatch(res.Raw)
		if groups == nil {
			continue
		}
		res.Category = m.category
		m.bind(groups, &res)
		matched = true
		break
	}
	if !matched {
		res.Errors = append(res.Errors, "Unable to parse spare part number: "+res.Raw)
		return res
	}

	validate(&res, ref)
	lookup(&res, ref)
	if res.Part != nil {
		price(&res, ref)
	}
	res.Resolved = res.Part != nil && len(res.Errors) == 0
	return res
}

func validate(res *Resolution, ref *catalog.Reference) {
	if res.Voltage != "" && !ref.VoltageKnown(res.Voltage) {
		res.Errors = append(res.Errors, "Invalid voltage: "+res.Voltage)
	}
	if res.MaterialCode != "" && !ref.HasMaterial(res.MaterialCode) {
		res.Warnings = append(res.Warnings, "Unusual material code: "+res.MaterialCode)
	}
	if res.Category == "probe_assembly" && (res.LengthIn <= 0 || res.LengthIn > 999) {
		res.Warnings = append(res.Warnings, fmt.Sprintf("Unusual length: %g", res.LengthIn))
	}
}

// lookup finds the catalog row for the canonical part number. Fuses never
// hit the catalog: their price depends on the model, so the row is
// synthesized here.
func lookup(res *Resolution, ref *catalog.Reference) {
	if res.Category == "fuse" {
		price := decimal.NewFromInt(10)
		if res.Model == "LT9000" {
			price = decimal.NewFromInt(20)
		}
		res.Part = &catalog.SparePart{
			PartNumber:       res.Model + "-FUSE",
			Name:             res.Model + " Fuse",
			Description:      "Replacement fuse for " + res.Model,
			Price:            price,
			Category:         "fuse",
			CompatibleModels: []string{res.Model},
		}
		return
	}

	part, ok := ref.Spare(res.Canonical)
	if !ok {
		res.Errors = append(res.Errors, "Part not found in database: "+res.Canonical)
		res.Suggestions = Suggest(res.Model, ref)
		return
	}
	res.Part = &part
}

// price starts from the catalog price. Probe assemblies add the material's
// per-foot rate for every inch past the rule's base length, prorated.
func price(res *Resolution, ref *catalog.Reference) {
	res.Price = res.Part.Price
	if res.Category != "probe_assembly" {
		return
	}

	rule, ok := ref.LengthRule(res.MaterialCode, res.Model)
	if !ok || rule.Mode != catalog.ModePerFoot {
		return
	}
	extra := res.LengthIn - rule.BaseLengthIn
	if extra <= 0 {
		return
	}
	adder := rule.AdderPerFoot.
		Mul(decimal.NewFromFloat(extra)).
		Div(decimal.NewFromInt(12)).
		Round(2)
	res.Price = res.Price.Add(adder)
}

// Suggest proposes canonical spare-code formats when the given partial code
// starts with a known model prefix.
func Suggest(partial string, ref *catalog.Reference) []string {
	partial = strings.ToUpper(strings.TrimSpace(partial))
	for _, model := range ref.ModelCodes() {
		if strings.HasPrefix(partial, model) {
			return []string{
				partial + "-115VAC-E (or 24VDC, 230VAC, 12VDC)",
				partial + `-S-10" (Model-Material-Length)`,
			}
		}
	}
	return nil
}
