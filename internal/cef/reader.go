package cef

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"golang.org/x/net/html/charset"

	"github.com/mhtools/mhparse/internal/coerce"
)

// The raw document shape. Attribute values stay strings here so that all
// coercion goes through one code path with typed errors.
type cefXML struct {
	Version      string          `xml:"version,attr"`
	CompoundList compoundListXML `xml:"CompoundList"`
}

type compoundListXML struct {
	Instrument string        `xml:"instrumentConfiguration,attr"`
	Compounds  []compoundXML `xml:"Compound"`
}

type compoundXML struct {
	Algo     string             `xml:"algo,attr"`
	Location locationXML        `xml:"Location"`
	Scores   *compoundScoresXML `xml:"CompoundScores"`
	Results  *resultsXML        `xml:"Results"`
	Spectra  []spectrumXML      `xml:"Spectrum"`
}

type locationXML struct {
	M  string `xml:"m,attr"`
	RT string `xml:"rt,attr"`
	A  string `xml:"a,attr"`
	Y  string `xml:"y,attr"`
}

type compoundScoresXML struct {
	Scores []scoreXML `xml:"CpdScore"`
}

type resultsXML struct {
	Molecules []moleculeXML `xml:"Molecule"`
}

type moleculeXML struct {
	Name        string           `xml:"name,attr"`
	Formula     string           `xml:"formula,attr"`
	MatchScores []matchScoresXML `xml:"MatchScores"`
}

type matchScoresXML struct {
	Matches []scoreXML `xml:"Match"`
}

// CpdScore and Match carry the same attributes.
type scoreXML struct {
	Algo          string `xml:"algo,attr"`
	Score         string `xml:"score,attr"`
	FlagsString   string `xml:"tgtFlagsString,attr"`
	FlagsSeverity string `xml:"tgtFlagsSeverity,attr"`
}

type spectrumXML struct {
	Type            string        `xml:"type,attr"`
	SaturationLimit string        `xml:"satLimit,attr"`
	Scans           string        `xml:"scans,attr"`
	Algo            string        `xml:"cpdAlgo,attr"`
	MSDetails       msDetailsXML  `xml:"MSDetails"`
	RTRanges        *rtRangesXML  `xml:"RTRanges"`
	Device          *deviceXML    `xml:"Device"`
	MSPeaks         msPeaksXML    `xml:"MSPeaks"`
}

type msDetailsXML struct {
	ScanType   string `xml:"scanType,attr"`
	Ionization string `xml:"is,attr"`
	Polarity   string `xml:"p,attr"`
	Voltage    string `xml:"fv,attr"`
}

type rtRangesXML struct {
	Ranges []rtRangeXML `xml:"RTRange"`
}

type rtRangeXML struct {
	Min string `xml:"min,attr"`
	Max string `xml:"max,attr"`
}

type deviceXML struct {
	Type   string `xml:"type,attr"`
	Number string `xml:"num,attr"`
}

type msPeaksXML struct {
	Peaks []peakXML `xml:"p"`
}

type peakXML struct {
	X string `xml:"x,attr"`
	RX string `xml:"rx,attr"`
	Y string `xml:"y,attr"`
	Z string `xml:"z,attr"`
	S string `xml:"s,attr"`
}

// Option configures a parse call.
type Option func(*decoder)

// WithWarn installs a hook for non-fatal findings, currently duplicate
// score labels. The default discards them.
func WithWarn(fn func(format string, args ...any)) Option {
	return func(d *decoder) { d.warnf = fn }
}

type decoder struct {
	warnf func(format string, args ...any)
}

// ParseFile opens and parses the named CEF document.
func ParseFile(path string, opts ...Option) (*CompoundList, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f, opts...)
}

// Parse reads one complete CEF document and returns its CompoundList.
// The first parse failure aborts the whole call; a partially populated
// list is never returned.
func Parse(r io.Reader, opts ...Option) (*CompoundList, error) {
	d := decoder{warnf: func(string, ...any) {}}
	for _, opt := range opts {
		opt(&d)
	}

	dec := xml.NewDecoder(r)
	dec.CharsetReader = charset.NewReaderLabel

	var doc cefXML
	found := false
	for !found {
		t, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &ParseError{Compound: -1, Element: "document", Err: fmt.Errorf("%w: %v", ErrUnrecognizedFormat, err)}
		}
		if start, ok := t.(xml.StartElement); ok {
			if start.Name.Local != "CEF" {
				return nil, &ParseError{Compound: -1, Element: start.Name.Local,
					Err: fmt.Errorf("%w: root element is %q, want \"CEF\"", ErrUnrecognizedFormat, start.Name.Local)}
			}
			if err := dec.DecodeElement(&doc, &start); err != nil {
				return nil, &ParseError{Compound: -1, Element: "CEF", Err: fmt.Errorf("%w: %v", ErrUnrecognizedFormat, err)}
			}
			found = true
		}
	}
	if !found {
		return nil, &ParseError{Compound: -1, Element: "document",
			Err: fmt.Errorf("%w: no CEF root element", ErrUnrecognizedFormat)}
	}

	list := CompoundList{
		instrument: doc.CompoundList.Instrument,
		compounds:  make([]Compound, 0, len(doc.CompoundList.Compounds)),
	}
	for i, cx := range doc.CompoundList.Compounds {
		c, err := d.buildCompound(i, cx)
		if err != nil {
			return nil, err
		}
		list.compounds = append(list.compounds, c)
	}
	return &list, nil
}

func (d *decoder) buildCompound(idx int, cx compoundXML) (Compound, error) {
	fail := func(element string, err error) (Compound, error) {
		return Compound{}, &ParseError{Compound: idx, Element: element, Err: err}
	}

	loc, err := parseLocation(cx.Location)
	if err != nil {
		return fail("Location", err)
	}

	scores, flag, err := d.parseCompoundScores(idx, cx.Scores)
	if err != nil {
		return fail("CompoundScores", err)
	}

	molecules, err := parseMolecules(cx.Results)
	if err != nil {
		return fail("Results", err)
	}

	spectra := make([]Spectrum, 0, len(cx.Spectra))
	var window *RTRange
	for _, sx := range cx.Spectra {
		spec, err := parseSpectrum(sx)
		if err != nil {
			return fail("Spectrum", err)
		}
		if window == nil && len(spec.RTRanges) > 0 {
			r := spec.RTRanges[0]
			window = &r
		}
		spectra = append(spectra, spec)
	}

	// The compound's retention time must fall inside its own integration
	// window when both are known.
	if rt, ok := loc.RT(); ok && window != nil && !window.Contains(rt) {
		return fail("Location", fmt.Errorf("%w: retention time %v min outside RT range [%v, %v]",
			ErrInvalidRange, rt, window.Low.Minutes(), window.High.Minutes()))
	}

	return Compound{
		Algorithm: cx.Algo,
		Location:  loc,
		RTRange:   window,
		Scores:    scores,
		Flag:      flag,
		Molecules: molecules,
		Spectra:   spectra,
	}, nil
}

func parseLocation(lx locationXML) (Location, error) {
	loc := Location{}
	for _, f := range []struct{ key, raw string }{
		{"m", lx.M}, {"rt", lx.RT}, {"a", lx.A}, {"y", lx.Y},
	} {
		if f.raw == "" {
			continue
		}
		v, err := coerce.Float(f.raw)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", f.key, err)
		}
		loc[f.key] = v
	}
	return loc, nil
}

// parseCompoundScores maps each scoring algorithm to its score. The
// format allows a label to repeat; the document's own semantics are
// last-value-wins, so later entries overwrite earlier ones and the
// duplicate is reported through the warn hook instead of being lost
// silently. The returned flag is the most severe one attached to any
// score, first in document order on ties.
func (d *decoder) parseCompoundScores(idx int, sx *compoundScoresXML) (map[string]Score, *Flag, error) {
	scores := map[string]Score{}
	var flag *Flag
	if sx == nil {
		return scores, nil, nil
	}
	for _, raw := range sx.Scores {
		score, err := parseScore(raw)
		if err != nil {
			return nil, nil, fmt.Errorf("CpdScore %q: %w", raw.Algo, err)
		}
		if _, dup := scores[raw.Algo]; dup {
			d.warnf("compound %d: duplicate CpdScore algo %q, keeping the last", idx, raw.Algo)
		}
		scores[raw.Algo] = score
		if score.Flag != nil && (flag == nil || score.Flag.Severity > flag.Severity) {
			flag = score.Flag
		}
	}
	return scores, flag, nil
}

// parseMolecules reads the candidate identities. Each molecule may carry
// at most one MatchScores block, and within one compound either every
// molecule has match scores or none does; anything else is a structural
// defect in the document.
func parseMolecules(rx *resultsXML) ([]Molecule, error) {
	if rx == nil {
		return nil, nil
	}
	molecules := make([]Molecule, 0, len(rx.Molecules))
	withScores := 0
	for _, mx := range rx.Molecules {
		if len(mx.MatchScores) > 1 {
			return nil, fmt.Errorf("%w: molecule %q has %d MatchScores blocks",
				ErrStructureMismatch, mx.Name, len(mx.MatchScores))
		}
		if mx.Formula != "" && strings.TrimSpace(mx.Formula) == "" {
			return nil, fmt.Errorf("%w: molecule %q has a blank formula", ErrInvalidValue, mx.Name)
		}
		matches := map[string]Score{}
		if len(mx.MatchScores) == 1 {
			withScores++
			for _, raw := range mx.MatchScores[0].Matches {
				score, err := parseScore(raw)
				if err != nil {
					return nil, fmt.Errorf("molecule %q match %q: %w", mx.Name, raw.Algo, err)
				}
				matches[raw.Algo] = score
			}
		}
		molecules = append(molecules, Molecule{
			Name:    mx.Name,
			Formula: strings.TrimSpace(mx.Formula),
			Matches: matches,
		})
	}
	if withScores != 0 && withScores != len(molecules) {
		return nil, fmt.Errorf("%w: %d of %d molecules carry match scores",
			ErrStructureMismatch, withScores, len(molecules))
	}
	return molecules, nil
}

func parseScore(raw scoreXML) (Score, error) {
	value, err := coerce.Float(raw.Score)
	if err != nil {
		return Score{}, err
	}
	var flag *Flag
	if raw.FlagsString != "" || raw.FlagsSeverity != "" {
		code := 0
		if raw.FlagsSeverity != "" {
			code, err = coerce.Int(raw.FlagsSeverity)
			if err != nil {
				return Score{}, err
			}
		}
		sev, err := ParseFlagSeverity(code)
		if err != nil {
			return Score{}, err
		}
		flag = &Flag{Text: raw.FlagsString, Severity: sev}
	}
	return NewScore(value, flag)
}

func parseSpectrum(sx spectrumXML) (Spectrum, error) {
	spec := Spectrum{
		Type:       sx.Type,
		Algorithm:  sx.Algo,
		ScanType:   sx.MSDetails.ScanType,
		Ionization: sx.MSDetails.Ionization,
	}
	var err error

	if sx.SaturationLimit != "" {
		if spec.SaturationLimit, err = coerce.Int(sx.SaturationLimit); err != nil {
			return Spectrum{}, fmt.Errorf("attribute \"satLimit\": %w", err)
		}
	}
	if sx.Scans != "" {
		if spec.Scans, err = coerce.Int(sx.Scans); err != nil {
			return Spectrum{}, fmt.Errorf("attribute \"scans\": %w", err)
		}
	}
	if spec.Polarity, err = parsePolarity(sx.MSDetails.Polarity); err != nil {
		return Spectrum{}, fmt.Errorf("MSDetails attribute \"p\": %w", err)
	}
	if spec.Voltage, err = parseVoltage(sx.MSDetails.Voltage); err != nil {
		return Spectrum{}, fmt.Errorf("MSDetails attribute \"fv\": %w", err)
	}

	if sx.Device != nil {
		spec.Device.Type = sx.Device.Type
		if sx.Device.Number != "" {
			if spec.Device.Number, err = coerce.Int(sx.Device.Number); err != nil {
				return Spectrum{}, fmt.Errorf("Device attribute \"num\": %w", err)
			}
		}
	}

	if sx.RTRanges != nil {
		for _, rx := range sx.RTRanges.Ranges {
			r, err := parseRTRange(rx)
			if err != nil {
				return Spectrum{}, err
			}
			spec.RTRanges = append(spec.RTRanges, r)
		}
	}

	for i, px := range sx.MSPeaks.Peaks {
		p, err := parsePeak(px)
		if err != nil {
			return Spectrum{}, fmt.Errorf("peak %d: %w", i, err)
		}
		spec.Peaks = append(spec.Peaks, p)
	}
	return spec, nil
}

func parseRTRange(rx rtRangeXML) (RTRange, error) {
	low, err := coerce.Duration(rx.Min)
	if err != nil {
		return RTRange{}, fmt.Errorf("RTRange attribute \"min\": %w", err)
	}
	high, err := coerce.Duration(rx.Max)
	if err != nil {
		return RTRange{}, fmt.Errorf("RTRange attribute \"max\": %w", err)
	}
	return NewRTRange(low, high)
}

func parsePeak(px peakXML) (Peak, error) {
	x, err := coerce.Float(px.X)
	if err != nil {
		return Peak{}, fmt.Errorf("attribute \"x\": %w", err)
	}
	rx := 0.0
	if px.RX != "" {
		if rx, err = coerce.Float(px.RX); err != nil {
			return Peak{}, fmt.Errorf("attribute \"rx\": %w", err)
		}
	}
	y, err := coerce.Float(px.Y)
	if err != nil {
		return Peak{}, fmt.Errorf("attribute \"y\": %w", err)
	}
	z := 0
	if px.Z != "" {
		if z, err = coerce.Int(px.Z); err != nil {
			return Peak{}, fmt.Errorf("attribute \"z\": %w", err)
		}
	}
	return NewPeak(x, rx, y, z, px.S)
}

func parsePolarity(raw string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "0":
		return 0, nil
	case "+", "1", "positive":
		return 1, nil
	case "-", "-1", "negative":
		return -1, nil
	}
	return 0, fmt.Errorf("%w: %q is not a polarity", coerce.ErrMalformedValue, raw)
}

// Fragmentor voltages are written with a trailing unit, e.g. "380.0V".
var voltageRE = regexp.MustCompile(`^([0-9]+(?:\.[0-9]+)?)\s*V?$`)

func parseVoltage(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	m := voltageRE.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("%w: %q is not a voltage", coerce.ErrMalformedValue, raw)
	}
	return coerce.Float(m[1])
}
