// Package partnumber decodes structured part-number strings into part
// configurations, applying model defaults for omitted fields and annotating
// anything unusual. Parsing is pure: the reference snapshot is read-only and
// no state survives between calls.
package partnumber

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/babbittintl/quotecore/internal/catalog"
)

// maxRawLength rejects garbage input before tokenization.
const maxRawLength = 100

// Probe length sanity bounds, inches.
const (
	minProbeLengthIn = 1.0
	maxProbeLengthIn = 120.0
)

// Bent probes are formed between straight and a full U.
const (
	minBendDeg = 0
	maxBendDeg = 180
)

// FatalError means the input has no usable part-number structure. Nothing
// downstream (validation, pricing) can run after one.
type FatalError struct {
	Raw    string
	Reason string
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("parse %q: %s", e.Raw, e.Reason)
}

// Part is one decoded part number. Warnings flag unusual but quotable
// configurations; Errors (filled in by Validate) block pricing.
type Part struct {
	Raw   string
	Model string

	Voltage      string
	MaterialCode string
	LengthIn     float64

	InsulatorCode     string
	InsulatorLengthIn float64 // explicit override; 0 means catalog standard
	InsulatorExplicit bool

	Connection *catalog.Connection // nil means model default

	Options      []string
	BendAngleDeg *int
	DiameterOD   string // e.g. `3/4"`; empty means standard diameter

	Warnings []string
	Errors   []string
}

func (p *Part) warnf(format string, args ...any) {
	p.Warnings = append(p.Warnings, fmt.Sprintf(format, args...))
}

func (p *Part) errorf(format string, args ...any) {
	p.Errors = append(p.Errors, fmt.Sprintf(format, args...))
}

// HasOption reports whether the part carries the given option code.
func (p *Part) HasOption(code string) bool {
	for _, opt := range p.Options {
		if opt == code {
			return true
		}
	}
	return false
}

// Parse decodes a raw part number against the reference snapshot. It returns
// a FatalError when the input has no usable structure (unknown model, missing
// probe length, too few segments); every other problem is recorded on the
// returned Part as a warning.
func Parse(raw string, ref *catalog.Reference) (Part, error) {
	normalized := strings.ToUpper(strings.TrimSpace(raw))
	part := Part{Raw: normalized}

	if normalized == "" {
		return part, &FatalError{Raw: raw, Reason: "empty part number"}
	}
	if len(normalized) > maxRawLength {
		return part, &FatalError{Raw: raw, Reason: fmt.Sprintf("part number exceeds %d characters", maxRawLength)}
	}

	tokens := Tokenize(normalized, ref)
	if len(tokens) < 2 {
		return part, &FatalError{Raw: raw, Reason: "expected at least a model and a probe length"}
	}

	model, ok := ref.Model(tokens[0].Text)
	if !ok {
		return part, &FatalError{Raw: raw, Reason: fmt.Sprintf("unknown model %q", tokens[0].Text)}
	}
	part.Model = model.Code

	haveLength := false
	for _, tok := range tokens[1:] {
		switch tok.Kind {
		case KindVoltage:
			if part.Voltage != "" {
				part.warnf("voltage specified more than once, keeping %s", tok.Text)
			}
			part.Voltage = tok.Text

		case KindMaterial:
			if part.MaterialCode != "" {
				part.warnf("material specified more than once, keeping %s", tok.Text)
			}
			part.MaterialCode = tok.Text

		case KindLength:
			if haveLength {
				part.warnf("probe length specified more than once, keeping %s", tok.Text)
			}
			length, err := strconv.ParseFloat(strings.TrimSuffix(tok.Text, `"`), 64)
			if err != nil {
				part.warnf("unrecognized segment %q ignored", tok.Text)
				continue
			}
			part.LengthIn = length
			haveLength = true

		case KindInsulator:
			if part.InsulatorExplicit {
				part.warnf("insulator specified more than once, keeping %s", tok.Text)
			}
			m := insulatorPattern.FindStringSubmatch(tok.Text)
			part.InsulatorCode = m[2]
			part.InsulatorLengthIn = 0
			if m[1] != "" {
				part.InsulatorLengthIn, _ = strconv.ParseFloat(m[1], 64)
			}
			part.InsulatorExplicit = true

		case KindConnection:
			if part.Connection != nil {
				part.warnf("process connection specified more than once, keeping %s", tok.Text)
			}
			conn, ok := parseConnection(tok.Text)
			if !ok {
				part.warnf("unrecognized segment %q ignored", tok.Text)
				continue
			}
			part.Connection = &conn

		case KindBent:
			m := bentPattern.FindStringSubmatch(tok.Text)
			angle, _ := strconv.Atoi(m[1])
			if angle < minBendDeg || angle > maxBendDeg {
				part.warnf("invalid bent probe angle %d° (supported range %d-%d°)", angle, minBendDeg, maxBendDeg)
				continue
			}
			if part.BendAngleDeg != nil {
				part.warnf("bent probe angle specified more than once, keeping %d°", angle)
			}
			part.BendAngleDeg = &angle
			part.addOption("BENT")

		case KindDiameter:
			m := diameterPattern.FindStringSubmatch(tok.Text)
			if part.DiameterOD != "" {
				part.warnf("probe diameter specified more than once, keeping %s", tok.Text)
			}
			part.DiameterOD = m[1] + `"`
			part.addOption(tok.Text)

		case KindOption:
			code := tok.Text
			if alias, ok := optionAliases[code]; ok {
				code = alias
			}
			if part.HasOption(code) {
				part.warnf("option %s specified more than once", code)
				continue
			}
			part.Options = append(part.Options, code)

		default:
			if tok.Text == "" {
				continue
			}
			part.warnf("unknown option or modifier: %s", tok.Text)
		}
	}

	if !haveLength {
		return part, &FatalError{Raw: raw, Reason: "missing probe length"}
	}

	applyDefaults(&part, model)

	if part.LengthIn < minProbeLengthIn || part.LengthIn > maxProbeLengthIn {
		part.warnf(`probe length %g" outside supported range %g-%g"`, part.LengthIn, minProbeLengthIn, maxProbeLengthIn)
	}

	return part, nil
}

func (p *Part) addOption(code string) {
	if !p.HasOption(code) {
		p.Options = append(p.Options, code)
	}
}

// applyDefaults back-fills every field the part number omitted from the
// resolved model. Halar-coated probes take a Teflon insulator when none was
// requested explicitly; the coating is bonded to Teflon at the tip.
func applyDefaults(part *Part, model catalog.ModelSpec) {
	if part.Voltage == "" {
		part.Voltage = model.DefaultVoltage
	}
	if part.MaterialCode == "" {
		part.MaterialCode = model.DefaultMaterial
	}
	if !part.InsulatorExplicit {
		if part.MaterialCode == "H" && model.DefaultInsulator != "TEF" {
			part.InsulatorCode = "TEF"
			part.warnf("Halar coating: Insulator automatically changed to Teflon")
		} else {
			part.InsulatorCode = model.DefaultInsulator
		}
	}
}
