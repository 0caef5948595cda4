package cef

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/mhtools/mhparse/internal/coerce"
)

// A document with one compound, two spectra, one candidate molecule.
// Matches the shape MassHunter Qualitative exports.
const demoCEF = `<?xml version="1.0" encoding="utf-8" standalone="yes"?>
<CEF version="1.0.0.0">
<CompoundList instrumentConfiguration="LCQTOF">
<Compound algo="FindByFormula">
	<Location m="169.0893" rt="13.649" a="29388223" y="3377289" />
	<CompoundScores>
		<CpdScore algo="fbf" score="99.79" />
	</CompoundScores>
	<Results>
		<Molecule name="Diphenylamine" formula="C12 H11 N">
			<MatchScores>
				<Match algo="overall" score="99.79" />
				<Match algo="tgt" score="99.79" />
			</MatchScores>
		</Molecule>
	</Results>
	<Spectrum type="FbF" cpdAlgo="FindByFormula">
		<MSDetails scanType="Scan" is="Esi" p="+" />
		<Device type="QuadrupoleTimeOfFlight" num="1" />
		<MSPeaks>
			<p x="170.0965" rx="170.0964" y="890559.25" z="1" s="M+H" />
			<p x="171.0998" rx="171.0996" y="114286.09" z="1" s="M+H+1" />
		</MSPeaks>
	</Spectrum>
	<Spectrum type="TOF-MS1" satLimit="16742400" scans="12" cpdAlgo="FindByFormula">
		<MSDetails scanType="Scan" is="Esi" p="+" fv="380.0V" />
		<RTRanges>
			<RTRange min="13.561" max="13.808" />
		</RTRanges>
		<Device type="QuadrupoleTimeOfFlight" num="1" />
		<MSPeaks>
			<p x="170.0965" rx="170.0964" y="890559.25" z="1" s="M+H" />
		</MSPeaks>
	</Spectrum>
</Compound>
</CompoundList>
</CEF>
`

func mustDuration(t *testing.T, raw string) time.Duration {
	t.Helper()
	d, err := coerce.Duration(raw)
	if err != nil {
		t.Fatalf("Duration(%q): %v", raw, err)
	}
	return d
}

func TestParse(t *testing.T) {
	list, err := Parse(strings.NewReader(demoCEF))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if list.Instrument() != "LCQTOF" {
		t.Errorf("Instrument: %q, want %q", list.Instrument(), "LCQTOF")
	}
	if list.Len() != 1 {
		t.Fatalf("Len: %d, want 1", list.Len())
	}

	window := RTRange{Low: mustDuration(t, "13.561"), High: mustDuration(t, "13.808")}
	device := Device{Type: "QuadrupoleTimeOfFlight", Number: 1}
	want := Compound{
		Algorithm: "FindByFormula",
		Location:  Location{"m": 169.0893, "rt": 13.649, "a": 29388223, "y": 3377289},
		RTRange:   &window,
		Scores:    map[string]Score{"fbf": {Value: 99.79}},
		Molecules: []Molecule{{
			Name:    "Diphenylamine",
			Formula: "C12 H11 N",
			Matches: map[string]Score{"overall": {Value: 99.79}, "tgt": {Value: 99.79}},
		}},
		Spectra: []Spectrum{
			{
				Type: "FbF", Algorithm: "FindByFormula",
				ScanType: "Scan", Ionization: "Esi", Polarity: 1,
				Device: device,
				Peaks: []Peak{
					{Mz: 170.0965, RefMz: 170.0964, Abundance: 890559.25, Charge: 1, Label: "M+H"},
					{Mz: 171.0998, RefMz: 171.0996, Abundance: 114286.09, Charge: 1, Label: "M+H+1"},
				},
			},
			{
				Type: "TOF-MS1", Algorithm: "FindByFormula",
				SaturationLimit: 16742400, Scans: 12,
				ScanType: "Scan", Ionization: "Esi", Polarity: 1, Voltage: 380.0,
				Device:   device,
				RTRanges: []RTRange{window},
				Peaks: []Peak{
					{Mz: 170.0965, RefMz: 170.0964, Abundance: 890559.25, Charge: 1, Label: "M+H"},
				},
			},
		},
	}

	got, err := list.At(0)
	if err != nil {
		t.Fatalf("At(0): %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("compound mismatch (-want +got):\n%s", diff)
	}
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "demo.cef")
	if err := os.WriteFile(path, []byte(demoCEF), 0o644); err != nil {
		t.Fatal(err)
	}
	list, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if list.Len() != 1 {
		t.Errorf("Len: %d, want 1", list.Len())
	}
	if _, err := ParseFile(filepath.Join(t.TempDir(), "missing.cef")); err == nil {
		t.Error("ParseFile on a missing file: nil error")
	}
}

func TestParseEmptyDocument(t *testing.T) {
	doc := `<CEF version="1.0.0.0"><CompoundList instrumentConfiguration="LCQTOF"></CompoundList></CEF>`
	list, err := Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if list.Len() != 0 {
		t.Errorf("Len: %d, want 0", list.Len())
	}
}

func TestParseWrongRoot(t *testing.T) {
	for _, doc := range []string{
		`<Worklist></Worklist>`,
		`not xml at all`,
		``,
	} {
		_, err := Parse(strings.NewReader(doc))
		if !errors.Is(err, ErrUnrecognizedFormat) {
			t.Errorf("Parse(%q): error %v, want ErrUnrecognizedFormat", doc, err)
		}
	}
}

func compoundDoc(body string) string {
	return fmt.Sprintf(`<CEF version="1.0.0.0"><CompoundList instrumentConfiguration="X">%s</CompoundList></CEF>`, body)
}

func TestDuplicateScoreLastWins(t *testing.T) {
	doc := compoundDoc(`<Compound algo="FindByFormula">
		<Location rt="1.0" />
		<CompoundScores>
			<CpdScore algo="A" score="0.5" />
			<CpdScore algo="A" score="0.9" />
		</CompoundScores>
	</Compound>`)

	var warnings []string
	list, err := Parse(strings.NewReader(doc), WithWarn(func(format string, args ...any) {
		warnings = append(warnings, fmt.Sprintf(format, args...))
	}))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	c, _ := list.At(0)
	if c.Scores["A"].Value != 0.9 {
		t.Errorf("Scores[A]: %v, want 0.9", c.Scores["A"].Value)
	}
	if len(warnings) != 1 || !strings.Contains(warnings[0], `"A"`) {
		t.Errorf("warnings: %q, want one duplicate report for A", warnings)
	}
}

func TestUnknownFlagSeverityRejected(t *testing.T) {
	doc := compoundDoc(`<Compound algo="fbf">
		<Location rt="1.0" />
		<CompoundScores>
			<CpdScore algo="fbf" score="50.0" tgtFlagsString="low score" tgtFlagsSeverity="9" />
		</CompoundScores>
	</Compound>`)

	_, err := Parse(strings.NewReader(doc))
	if !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("Parse: error %v, want ErrInvalidValue", err)
	}
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("Parse: error %T, want *ParseError", err)
	}
	if perr.Compound != 0 || perr.Element != "CompoundScores" {
		t.Errorf("ParseError: compound %d element %q, want 0 CompoundScores", perr.Compound, perr.Element)
	}
}

func TestCompoundFlag(t *testing.T) {
	doc := compoundDoc(`<Compound algo="fbf">
		<Location rt="1.0" />
		<CompoundScores>
			<CpdScore algo="fbf" score="56.24" tgtFlagsString="low score; No H adduct" tgtFlagsSeverity="2" />
		</CompoundScores>
	</Compound>`)

	list, err := Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	c, _ := list.At(0)
	if c.Flag == nil {
		t.Fatal("Flag: nil, want a warning flag")
	}
	if c.Flag.Severity != SeverityWarning || c.Flag.Text != "low score; No H adduct" {
		t.Errorf("Flag: %+v, want Warning/low score; No H adduct", c.Flag)
	}
}

func TestRetentionTimeInsideWindow(t *testing.T) {
	template := `<Compound algo="fbf">
		<Location rt="%s" />
		<Spectrum type="TOF-MS1" cpdAlgo="fbf">
			<MSDetails scanType="Scan" is="Esi" p="+" />
			<RTRanges><RTRange min="2.0" max="5.0" /></RTRanges>
			<MSPeaks><p x="100.0" y="1.0" /></MSPeaks>
		</Spectrum>
	</Compound>`

	if _, err := Parse(strings.NewReader(compoundDoc(fmt.Sprintf(template, "3.0")))); err != nil {
		t.Errorf("rt=3.0 inside [2,5]: %v", err)
	}
	_, err := Parse(strings.NewReader(compoundDoc(fmt.Sprintf(template, "9.0"))))
	if !errors.Is(err, ErrInvalidRange) {
		t.Errorf("rt=9.0 outside [2,5]: error %v, want ErrInvalidRange", err)
	}
}

func TestInvertedRTRange(t *testing.T) {
	doc := compoundDoc(`<Compound algo="fbf">
		<Location rt="3.0" />
		<Spectrum type="TOF-MS1" cpdAlgo="fbf">
			<MSDetails scanType="Scan" is="Esi" p="+" />
			<RTRanges><RTRange min="5.0" max="2.0" /></RTRanges>
			<MSPeaks></MSPeaks>
		</Spectrum>
	</Compound>`)

	_, err := Parse(strings.NewReader(doc))
	if !errors.Is(err, ErrInvalidRange) {
		t.Errorf("inverted range: error %v, want ErrInvalidRange", err)
	}
}

func TestStructureMismatch(t *testing.T) {
	doc := compoundDoc(`<Compound algo="fbf">
		<Location rt="1.0" />
		<Results>
			<Molecule name="A" formula="C6 H6">
				<MatchScores><Match algo="overall" score="90.0" /></MatchScores>
			</Molecule>
			<Molecule name="B" formula="C7 H8" />
		</Results>
	</Compound>`)

	_, err := Parse(strings.NewReader(doc))
	if !errors.Is(err, ErrStructureMismatch) {
		t.Errorf("mixed match scores: error %v, want ErrStructureMismatch", err)
	}
}

func TestParseErrorIdentifiesCompound(t *testing.T) {
	doc := compoundDoc(`<Compound algo="fbf"><Location rt="1.0" /></Compound>
		<Compound algo="fbf"><Location m="not-a-number" /></Compound>`)

	_, err := Parse(strings.NewReader(doc))
	if !errors.Is(err, ErrMalformedValue) {
		t.Fatalf("Parse: error %v, want ErrMalformedValue", err)
	}
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("Parse: error %T, want *ParseError", err)
	}
	if perr.Compound != 1 {
		t.Errorf("ParseError.Compound: %d, want 1", perr.Compound)
	}
	if perr.Element != "Location" {
		t.Errorf("ParseError.Element: %q, want Location", perr.Element)
	}
}

func TestNonPositiveMzRejected(t *testing.T) {
	doc := compoundDoc(`<Compound algo="fbf">
		<Location rt="1.0" />
		<Spectrum type="FbF" cpdAlgo="fbf">
			<MSDetails scanType="Scan" is="Esi" p="+" />
			<MSPeaks><p x="0" y="10.0" /></MSPeaks>
		</Spectrum>
	</Compound>`)

	_, err := Parse(strings.NewReader(doc))
	if !errors.Is(err, ErrInvalidValue) {
		t.Errorf("zero m/z: error %v, want ErrInvalidValue", err)
	}
}

func TestIdempotence(t *testing.T) {
	first, err := Parse(strings.NewReader(demoCEF))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	second, err := Parse(strings.NewReader(demoCEF))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if diff := cmp.Diff(first.Compounds(), second.Compounds()); diff != "" {
		t.Fatalf("parses differ (-first +second):\n%s", diff)
	}

	// The two graphs are independent: scribbling on one never shows up
	// in the other.
	c1, _ := first.At(0)
	c1.Spectra[0].Peaks[0].Mz = -1
	c1.Scores["fbf"] = Score{Value: 0}
	c2, _ := second.At(0)
	if c2.Spectra[0].Peaks[0].Mz != 170.0965 {
		t.Error("mutating the first parse leaked into the second")
	}
	if c2.Scores["fbf"].Value != 99.79 {
		t.Error("mutating the first parse's scores leaked into the second")
	}
}
