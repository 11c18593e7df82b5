package partnumber

import (
	"regexp"
	"strings"

	"github.com/babbittintl/quotecore/internal/catalog"
)

// Kind classifies one segment of a part number.
type Kind int

const (
	KindUnknown Kind = iota
	KindModel
	KindVoltage
	KindMaterial
	KindLength
	KindInsulator
	KindConnection
	KindBent
	KindDiameter
	KindOption
)

// Token is a part-number segment with its detected kind.
type Token struct {
	Text string
	Kind Kind
}

var (
	voltagePattern   = regexp.MustCompile(`^\d+V(AC|DC)$`)
	lengthPattern    = regexp.MustCompile(`^\d+(\.\d+)?"?$`)
	insulatorPattern = regexp.MustCompile(`^(?:(\d+(?:\.\d+)?)")?([A-Z]+)INS$`)
	nptPattern       = regexp.MustCompile(`^(\d+(?:/\d+)?)"NPT$`)
	flangePattern    = regexp.MustCompile(`^(\d+(?:/\d+)?)"(\d+)#RF$`)
	triClampPattern  = regexp.MustCompile(`^(\d+(?:/\d+)?)"(?:TC|TRICLAMP)$`)
	bentPattern      = regexp.MustCompile(`^(\d+)DEG$`)
	diameterPattern  = regexp.MustCompile(`^(\d+(?:/\d+)?)"OD$`)
)

// optionAliases maps shorthand segments to catalog option codes.
var optionAliases = map[string]string{
	"SS": "SSHSE",
}

// Tokenize splits a normalized part number on hyphens and classifies each
// segment. The first segment is always the model candidate; the rest are
// classified best-effort in a fixed priority order. Classification never
// fails: anything unrecognized comes back as KindUnknown for the parser to
// report.
func Tokenize(raw string, ref *catalog.Reference) []Token {
	segments := strings.Split(raw, "-")
	tokens := make([]Token, 0, len(segments))
	for i, seg := range segments {
		if i == 0 {
			tokens = append(tokens, Token{Text: seg, Kind: KindModel})
			continue
		}
		tokens = append(tokens, Token{Text: seg, Kind: classify(seg, ref)})
	}
	return tokens
}

func classify(seg string, ref *catalog.Reference) Kind {
	switch {
	case voltagePattern.MatchString(seg):
		return KindVoltage
	case ref.HasMaterial(seg):
		return KindMaterial
	case lengthPattern.MatchString(seg):
		return KindLength
	case insulatorPattern.MatchString(seg):
		return KindInsulator
	case nptPattern.MatchString(seg) || flangePattern.MatchString(seg) || triClampPattern.MatchString(seg):
		return KindConnection
	case bentPattern.MatchString(seg):
		return KindBent
	case diameterPattern.MatchString(seg):
		return KindDiameter
	case ref.HasOption(seg):
		return KindOption
	case optionAliases[seg] != "":
		return KindOption
	default:
		return KindUnknown
	}
}

// parseConnection decodes a connection override segment. Connection material
// is always stainless on these product lines.
func parseConnection(seg string) (catalog.Connection, bool) {
	if m := nptPattern.FindStringSubmatch(seg); m != nil {
		return catalog.Connection{Type: catalog.ConnNPT, Size: m[1] + `"`, Material: "SS"}, true
	}
	if m := flangePattern.FindStringSubmatch(seg); m != nil {
		return catalog.Connection{Type: catalog.ConnFlange, Size: m[1] + `"`, Material: "SS", Rating: m[2] + "#"}, true
	}
	if m := triClampPattern.FindStringSubmatch(seg); m != nil {
		return catalog.Connection{Type: catalog.ConnTriClamp, Size: m[1] + `"`, Material: "SS"}, true
	}
	return catalog.Connection{}, false
}
