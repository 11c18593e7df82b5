package pricing

import (
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/babbittintl/quotecore/internal/catalog"
	"github.com/babbittintl/quotecore/internal/db"
	"github.com/babbittintl/quotecore/internal/migrations"
	"github.com/babbittintl/quotecore/internal/partnumber"
	"github.com/babbittintl/quotecore/internal/seed"
)

func newTestReference(t *testing.T) *catalog.Reference {
	t.Helper()

	database, err := db.Open(filepath.Join(t.TempDir(), "pricing_test.db"))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	if err := migrations.Up(database, "../../migrations"); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	if _, err := seed.Run(database); err != nil {
		t.Fatalf("seed catalog: %v", err)
	}

	ref, err := catalog.Load(database)
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	return ref
}

func mustPrice(t *testing.T, raw string, ref *catalog.Reference) Result {
	t.Helper()
	part, err := partnumber.Parse(raw, ref)
	if err != nil {
		t.Fatalf("Parse(%q): %v", raw, err)
	}
	partnumber.Validate(&part, ref)
	res, err := Calculate(part, ref)
	if err != nil {
		t.Fatalf("Calculate(%q): %v", raw, err)
	}
	return res
}

func assertMoney(t *testing.T, name string, got decimal.Decimal, want string) {
	t.Helper()
	if got.StringFixed(2) != want {
		t.Fatalf("%s = %s, want %s", name, got.StringFixed(2), want)
	}
}

func assertAdditive(t *testing.T, raw string, res Result) {
	t.Helper()
	sum := res.BasePrice.
		Add(res.MaterialAdder).
		Add(res.LengthAdder).
		Add(res.InsulatorAdder).
		Add(res.ConnectionAdder)
	for _, opt := range res.Options {
		sum = sum.Add(opt.Amount)
	}
	for _, s := range res.Surcharges {
		sum = sum.Add(s.Amount)
	}
	if !sum.Equal(res.Total) {
		t.Fatalf("%s: component sum %s != total %s", raw, sum.StringFixed(2), res.Total.StringFixed(2))
	}
}

func hasLine(res Result, substr string) bool {
	for _, l := range res.Breakdown {
		if strings.Contains(l, substr) {
			return true
		}
	}
	return false
}

func optionAmount(t *testing.T, res Result, code string) decimal.Decimal {
	t.Helper()
	for _, opt := range res.Options {
		if opt.Code == code {
			return opt.Amount
		}
	}
	t.Fatalf("option %s not present in result: %+v", code, res.Options)
	return decimal.Zero
}

func TestCalculate_BaseModelOnly(t *testing.T) {
	ref := newTestReference(t)

	res := mustPrice(t, "LS2000-115VAC-S-10", ref)
	assertMoney(t, "Total", res.Total, "425.00")
	assertMoney(t, "MaterialAdder", res.MaterialAdder, "0.00")
	assertMoney(t, "LengthAdder", res.LengthAdder, "0.00")
	assertMoney(t, "InsulatorAdder", res.InsulatorAdder, "0.00")
	if len(res.Breakdown) != 2 {
		t.Fatalf("Breakdown = %v, want base and total lines only", res.Breakdown)
	}
	if res.Breakdown[0] != "Base Model (LS2000): $425.00" {
		t.Errorf("first line = %q", res.Breakdown[0])
	}
	if res.Breakdown[1] != "TOTAL: $425.00" {
		t.Errorf("last line = %q", res.Breakdown[1])
	}
	assertAdditive(t, "LS2000-115VAC-S-10", res)
}

func TestCalculate_HalarCoatedProbe(t *testing.T) {
	ref := newTestReference(t)

	res := mustPrice(t, "LS2000-115VAC-H-25", ref)
	assertMoney(t, "MaterialAdder", res.MaterialAdder, "110.00")
	assertMoney(t, "LengthAdder", res.LengthAdder, "220.00")
	if len(res.Surcharges) != 1 {
		t.Fatalf("Surcharges = %+v, want one", res.Surcharges)
	}
	assertMoney(t, "Surcharge", res.Surcharges[0].Amount, "300.00")
	assertMoney(t, "Total", res.Total, "1055.00")

	if !hasLine(res, "Material Adder (H): $110.00") {
		t.Errorf("missing material line: %v", res.Breakdown)
	}
	if !hasLine(res, "Length Cost (2 foot adders @ $110/ft): $220.00") {
		t.Errorf("missing length line: %v", res.Breakdown)
	}
	if !hasLine(res, `Nonstandard Length Surcharge (25" not a standard length): $300.00`) {
		t.Errorf("missing surcharge line: %v", res.Breakdown)
	}
	assertAdditive(t, "LS2000-115VAC-H-25", res)
}

func TestCalculate_SteppedLengthThresholds(t *testing.T) {
	ref := newTestReference(t)

	cases := []struct {
		lengthIn int
		units    int
	}{
		{10, 0},
		{11, 1},
		{24, 1},
		{25, 2},
		{36, 2},
		{37, 3},
		{97, 8},
	}

	for _, tc := range cases {
		raw := fmt.Sprintf("LS2000-115VAC-S-%d", tc.lengthIn)
		res := mustPrice(t, raw, ref)
		want := decimal.NewFromInt(int64(tc.units * 45)).StringFixed(2)
		assertMoney(t, raw+" LengthAdder", res.LengthAdder, want)
		assertAdditive(t, raw, res)
	}
}

func TestCalculate_HalarStandardLengthSet(t *testing.T) {
	ref := newTestReference(t)

	for _, lengthIn := range []int{10, 12, 18, 24, 36, 48, 60, 72, 84, 96} {
		raw := fmt.Sprintf("LS7000-115VAC-H-%d", lengthIn)
		res := mustPrice(t, raw, ref)
		if len(res.Surcharges) != 0 {
			t.Errorf("%s: unexpected surcharge %+v", raw, res.Surcharges)
		}
	}

	for _, lengthIn := range []int{11, 25, 30, 100} {
		raw := fmt.Sprintf("LS7000-115VAC-H-%d", lengthIn)
		res := mustPrice(t, raw, ref)
		if len(res.Surcharges) != 1 {
			t.Fatalf("%s: Surcharges = %+v, want exactly one", raw, res.Surcharges)
		}
		assertMoney(t, raw+" surcharge", res.Surcharges[0].Amount, "300.00")
		assertAdditive(t, raw, res)
	}
}

func TestCalculate_GenericNonstandardSurcharge(t *testing.T) {
	ref := newTestReference(t)

	res := mustPrice(t, "LS7000-115VAC-TS-100", ref)
	assertMoney(t, "LengthAdder", res.LengthAdder, "880.00")
	if len(res.Surcharges) != 1 {
		t.Fatalf("Surcharges = %+v, want one", res.Surcharges)
	}
	if !hasLine(res, `Nonstandard Length Surcharge (>96"): $300.00`) {
		t.Errorf("missing surcharge line: %v", res.Breakdown)
	}
	assertAdditive(t, "LS7000-115VAC-TS-100", res)

	res = mustPrice(t, "LS7000-115VAC-TS-96", ref)
	if len(res.Surcharges) != 0 {
		t.Errorf("surcharge at the threshold: %+v", res.Surcharges)
	}
}

func TestCalculate_PerInchMaterial(t *testing.T) {
	ref := newTestReference(t)

	res := mustPrice(t, "LS6000-115VAC-CPVC-10", ref)
	assertMoney(t, "LengthAdder", res.LengthAdder, "15.00")
	assertMoney(t, "Total", res.Total, "615.00")
	if !hasLine(res, `Length Cost (6.0" extra @ $2.50/in): $15.00`) {
		t.Errorf("missing per-inch length line: %v", res.Breakdown)
	}
	assertAdditive(t, "LS6000-115VAC-CPVC-10", res)
}

func TestCalculate_FractionalLengthRoundsUp(t *testing.T) {
	ref := newTestReference(t)

	res := mustPrice(t, "LS2000-115VAC-S-12.5", ref)
	assertMoney(t, "LengthAdder", res.LengthAdder, "45.00")
	assertMoney(t, "Total", res.Total, "470.00")

	found := false
	for _, n := range res.Notes {
		if n == `Length rounded up from 12.5" to 13" for pricing` {
			found = true
		}
	}
	if !found {
		t.Errorf("Notes = %v, want rounding note", res.Notes)
	}
}

func TestCalculate_TeflonInsulatorExemptions(t *testing.T) {
	ref := newTestReference(t)

	// Halar-coated probes include Teflon insulation in the coating.
	res := mustPrice(t, "LS2000-115VAC-H-12-TEFINS", ref)
	assertMoney(t, "InsulatorAdder", res.InsulatorAdder, "0.00")
	if !hasLine(res, "Insulator (Teflon): $0.00 (Not applied - Material H)") {
		t.Errorf("missing exemption line: %v", res.Breakdown)
	}
	assertAdditive(t, "LS2000-115VAC-H-12-TEFINS", res)

	// Requesting the model's own default Teflon insulator costs nothing.
	res = mustPrice(t, "LS7000-115VAC-S-10-TEFINS", ref)
	assertMoney(t, "InsulatorAdder", res.InsulatorAdder, "0.00")
	assertMoney(t, "Total", res.Total, "680.00")
	if !hasLine(res, "Insulator (Teflon): $0.00 (Not applied - Base insulator is Teflon)") {
		t.Errorf("missing exemption line: %v", res.Breakdown)
	}

	// A non-default Teflon insulator on an uncoated probe is charged.
	res = mustPrice(t, "LS6000-115VAC-S-10-TEFINS", ref)
	assertMoney(t, "InsulatorAdder", res.InsulatorAdder, "40.00")
	assertMoney(t, "Total", res.Total, "590.00")
	if !hasLine(res, "Insulator (Teflon): $40.00") {
		t.Errorf("missing insulator line: %v", res.Breakdown)
	}
}

func TestCalculate_DefaultInsulatorNotCharged(t *testing.T) {
	ref := newTestReference(t)

	// A back-filled default insulator is part of the base price.
	res := mustPrice(t, "LS6000-115VAC-S-10", ref)
	assertMoney(t, "InsulatorAdder", res.InsulatorAdder, "0.00")
	assertMoney(t, "Total", res.Total, "550.00")
	if hasLine(res, "Insulator") {
		t.Errorf("unexpected insulator line: %v", res.Breakdown)
	}
}

func TestCalculate_InsulatorLengthAdder(t *testing.T) {
	ref := newTestReference(t)

	res := mustPrice(t, `LS6000-115VAC-S-10-8"TEFINS`, ref)
	assertMoney(t, "InsulatorAdder", res.InsulatorAdder, "240.00")
	if !hasLine(res, `Insulator Length Adder (8"): $200.00`) {
		t.Errorf("missing length adder line: %v", res.Breakdown)
	}
	assertAdditive(t, `LS6000-115VAC-S-10-8"TEFINS`, res)

	// The length adder applies even when an exemption zeroes the base adder.
	res = mustPrice(t, `LS7000-115VAC-S-10-8"TEFINS`, ref)
	assertMoney(t, "InsulatorAdder", res.InsulatorAdder, "200.00")
	if !hasLine(res, "Not applied - Base insulator is Teflon") {
		t.Errorf("missing exemption line: %v", res.Breakdown)
	}
}

func TestInsulatorLengthAdderBrackets(t *testing.T) {
	cases := []struct {
		lengthIn float64
		want     string
	}{
		{0, "0.00"},
		{4, "0.00"},
		{5, "150.00"},
		{6, "150.00"},
		{7, "200.00"},
		{8, "200.00"},
		{12, "300.00"},
		{19, "500.00"},
		{20, "500.00"},
		{36, "500.00"},
	}

	for _, tc := range cases {
		got := insulatorLengthAdder(tc.lengthIn)
		if got.StringFixed(2) != tc.want {
			t.Errorf(`insulatorLengthAdder(%g") = %s, want %s`, tc.lengthIn, got.StringFixed(2), tc.want)
		}
	}
}

func TestCalculate_OversizedDiameterOption(t *testing.T) {
	ref := newTestReference(t)

	cases := []struct {
		lengthIn int
		want     string
	}{
		{10, "175.00"},
		{11, "350.00"},
		{22, "350.00"},
		{24, "525.00"},
		{34, "525.00"},
		{36, "700.00"},
	}

	for _, tc := range cases {
		raw := fmt.Sprintf(`LS2000-115VAC-S-%d-3/4"OD`, tc.lengthIn)
		res := mustPrice(t, raw, ref)
		assertMoney(t, raw+" option", optionAmount(t, res, `3/4"OD`), tc.want)
		assertAdditive(t, raw, res)
	}

	res := mustPrice(t, `LS2000-115VAC-S-10-3/4"OD`, ref)
	if !hasLine(res, `Option 3/4"OD (3/4" Diameter Probe): $175.00`) {
		t.Errorf("missing option line: %v", res.Breakdown)
	}
}

func TestCalculate_BentProbe(t *testing.T) {
	ref := newTestReference(t)

	res := mustPrice(t, "LS2000-115VAC-S-24-90DEG", ref)
	assertMoney(t, "bent option", optionAmount(t, res, "BENT"), "50.00")
	assertMoney(t, "Total", res.Total, "520.00")
	if !hasLine(res, "Option BENT (Bent Probe (90°)): $50.00") {
		t.Errorf("missing bent probe line: %v", res.Breakdown)
	}
	assertAdditive(t, "LS2000-115VAC-S-24-90DEG", res)
}

func TestCalculate_ConnectionOverride(t *testing.T) {
	ref := newTestReference(t)

	res := mustPrice(t, `LS2000-115VAC-S-10-1/2"NPT`, ref)
	assertMoney(t, "ConnectionAdder", res.ConnectionAdder, "70.00")
	assertMoney(t, "Total", res.Total, "495.00")
	if !hasLine(res, `Process Connection (1/2"NPT (SS)): $70.00`) {
		t.Errorf("missing connection line: %v", res.Breakdown)
	}

	res = mustPrice(t, `LS2000-115VAC-S-10-3/4"TC`, ref)
	assertMoney(t, "ConnectionAdder", res.ConnectionAdder, "145.00")
	if !hasLine(res, `Process Connection (3/4" Tri-Clamp (SS)): $145.00`) {
		t.Errorf("missing connection line: %v", res.Breakdown)
	}

	// Restating the model default costs nothing.
	res = mustPrice(t, `LS2000-115VAC-S-10-3/4"NPT`, ref)
	assertMoney(t, "ConnectionAdder", res.ConnectionAdder, "0.00")
	assertMoney(t, "Total", res.Total, "425.00")

	// Included connections price at zero without a line.
	res = mustPrice(t, `LS2000-115VAC-S-10-1"NPT`, ref)
	assertMoney(t, "ConnectionAdder", res.ConnectionAdder, "0.00")
	if hasLine(res, "Process Connection") {
		t.Errorf("unexpected connection line: %v", res.Breakdown)
	}
}

func TestCalculate_UnknownConnectionFailsClosed(t *testing.T) {
	ref := newTestReference(t)

	part, err := partnumber.Parse(`LS2000-115VAC-S-10-5"NPT`, ref)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	_, err = Calculate(part, ref)
	var dataErr *DataError
	if !errors.As(err, &dataErr) {
		t.Fatalf("Calculate error = %v, want *DataError", err)
	}
	if dataErr.Kind != "process connection" {
		t.Errorf("DataError.Kind = %q, want process connection", dataErr.Kind)
	}
}

func TestCalculate_UnknownOptionFailsClosed(t *testing.T) {
	ref := newTestReference(t)

	part, err := partnumber.Parse(`LS2000-115VAC-S-10-1"OD`, ref)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	_, err = Calculate(part, ref)
	var dataErr *DataError
	if !errors.As(err, &dataErr) {
		t.Fatalf("Calculate error = %v, want *DataError", err)
	}
	if dataErr.Kind != "option" || dataErr.Code != `1"OD` {
		t.Errorf("DataError = %+v, want option 1\"OD", dataErr)
	}
}

func TestCalculate_RefusesIncompatibleOptions(t *testing.T) {
	ref := newTestReference(t)

	part, err := partnumber.Parse("LS7000-115VAC-S-24-CP-90DEG", ref)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	partnumber.Validate(&part, ref)

	_, err = Calculate(part, ref)
	var compatErr *CompatibilityError
	if !errors.As(err, &compatErr) {
		t.Fatalf("Calculate error = %v, want *CompatibilityError", err)
	}
	if len(compatErr.Problems) == 0 || !strings.Contains(compatErr.Problems[0], "mutually exclusive") {
		t.Errorf("Problems = %v", compatErr.Problems)
	}
}

func TestCalculate_Idempotent(t *testing.T) {
	ref := newTestReference(t)

	raw := `LS7000-115VAC-H-25-8"TEFINS-SSTAG-1"TC`
	first := mustPrice(t, raw, ref)
	second := mustPrice(t, raw, ref)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("results differ:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestCalculate_AdditivityAcrossConfigurations(t *testing.T) {
	ref := newTestReference(t)

	raws := []string{
		"LS2000-115VAC-S-10",
		"LS2000-115VAC-H-25",
		"LS2100-24VDC-S-36",
		"LS6000-115VAC-CPVC-18",
		`LS7000-115VAC-H-48-8"TEFINS-SSTAG`,
		`LS8000-115VAC-S-60-3/4"OD`,
		"LT9000-115VAC-H-24",
		"FS10000-115VAC-S-7",
		`LS7500-115VAC-S-10-3"300#RF`,
		"LS2000-115VAC-S-24-90DEG-XSP",
	}

	for _, raw := range raws {
		res := mustPrice(t, raw, ref)
		assertAdditive(t, raw, res)
	}
}
