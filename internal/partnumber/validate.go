package partnumber

import (
	"fmt"
	"strings"

	"github.com/babbittintl/quotecore/internal/catalog"
)

// Validate checks a parsed part against the reference catalog and records
// anything off on the part itself. Warnings describe unusual but quotable
// configurations; Errors are physically impossible combinations that block
// pricing. Rules run in a fixed order so repeated runs produce identical
// output for the same part.
func Validate(part *Part, ref *catalog.Reference) {
	model, ok := ref.Model(part.Model)
	if !ok {
		return
	}

	if mat, ok := ref.Material(part.MaterialCode); ok && !mat.CompatibleWith(model.Code) {
		part.warnf("material %s (%s) is not offered on %s", mat.Code, mat.Name, model.Code)
	}

	if part.Voltage != "" && !ref.VoltageValidFor(model.Code, part.Voltage) {
		part.warnf("voltage %s is not valid for %s (valid: %s)",
			part.Voltage, model.Code, strings.Join(ref.VoltagesFor(model.Code), ", "))
	}

	if mat, ok := ref.Material(part.MaterialCode); ok && mat.MaxLengthIn > 0 && part.LengthIn > mat.MaxLengthIn {
		msg := fmt.Sprintf(`probe length %g" exceeds the recommended maximum %g" for material %s`,
			part.LengthIn, mat.MaxLengthIn, mat.Code)
		if mat.MaxLengthNote != "" {
			msg += ": " + mat.MaxLengthNote
		}
		part.Warnings = append(part.Warnings, msg)
	}

	checkExclusions(part, ref)

	if ins, ok := ref.Insulator(part.InsulatorCode); ok && ins.MaxTempF < model.MaxTempF {
		part.warnf("insulator %s is rated to %d°F, below the %s maximum of %d°F",
			ins.Name, ins.MaxTempF, model.Code, model.MaxTempF)
	}

	for _, code := range part.Options {
		if opt, ok := ref.Option(code); ok && !opt.AppliesToModel(model.Code) {
			part.warnf("option %s (%s) is not offered on %s", opt.Code, opt.Name, model.Code)
		}
	}

	if model.Code == "LS2000" && !part.HasOption("XSP") {
		part.warnf("LS2000 has limited static protection - consider XSP option for plastic pellets/resins")
	}
}

// checkExclusions records an error for every mutually exclusive option pair on
// the part. Exclusion is symmetric even when the catalog only declares one
// direction, and each pair is reported once.
func checkExclusions(part *Part, ref *catalog.Reference) {
	for i, a := range part.Options {
		for _, b := range part.Options[i+1:] {
			if excludes(ref, a, b) || excludes(ref, b, a) {
				part.errorf("options %s and %s are mutually exclusive", a, b)
			}
		}
	}
}

func excludes(ref *catalog.Reference, a, b string) bool {
	opt, ok := ref.Option(a)
	if !ok {
		return false
	}
	for _, ex := range opt.Excludes {
		if ex == b {
			return true
		}
	}
	return false
}
