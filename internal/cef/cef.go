// Package cef decodes Agilent MassHunter Compound Exchange Format (.cef)
// files into a typed compound graph.
//
// A CEF file describes the compounds a qualitative analysis run identified
// in LC-MS data. The document is a CompoundList of Compound elements; each
// Compound carries its location in the chromatogram, per-algorithm quality
// scores, candidate Molecule identities with match scores, and the mass
// spectra that support the identification.
//
// The decoder reads the whole document in one call and returns a fresh,
// read-only CompoundList. Nothing is shared between calls, so independent
// goroutines may parse concurrently.
package cef

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/mhtools/mhparse/internal/coerce"
)

var (
	// ErrUnrecognizedFormat means the document is not a CEF file.
	ErrUnrecognizedFormat = errors.New("cef: not a compound exchange format document")
	// ErrStructureMismatch means repeated elements that must correspond
	// one-to-one do not.
	ErrStructureMismatch = errors.New("cef: element counts do not correspond")
	// ErrIndexOutOfRange means a CompoundList was indexed outside [0, Len).
	ErrIndexOutOfRange = errors.New("cef: compound index out of range")

	// Value-level failures share the coerce sentinels so callers need a
	// single errors.Is check per category.
	ErrMalformedValue = coerce.ErrMalformedValue
	ErrUnknownUnit    = coerce.ErrUnknownUnit
	ErrInvalidRange   = coerce.ErrInvalidRange
	ErrInvalidValue   = coerce.ErrInvalidValue
)

// ParseError reports which compound and element a parse failure occurred
// in. Compound is -1 for document-level failures.
type ParseError struct {
	Compound int
	Element  string
	Err      error
}

func (e *ParseError) Error() string {
	if e.Compound < 0 {
		return fmt.Sprintf("cef: %s: %v", e.Element, e.Err)
	}
	return fmt.Sprintf("cef: compound %d: %s: %v", e.Compound, e.Element, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Device identifies the instrument component that acquired a spectrum.
// All fields are optional; a zero Device means no device metadata was
// present.
type Device struct {
	Type   string
	Number int
}

// RTRange is the retention time window over which a spectrum was
// integrated. Bounds are stored as durations from the start of the run.
type RTRange struct {
	Low  time.Duration
	High time.Duration
}

// NewRTRange validates that low <= high.
func NewRTRange(low, high time.Duration) (RTRange, error) {
	if low > high {
		return RTRange{}, fmt.Errorf("%w: RT range %v > %v", ErrInvalidRange, low, high)
	}
	return RTRange{Low: low, High: high}, nil
}

// Contains reports whether a retention time in minutes falls inside the
// window, bounds inclusive.
func (r RTRange) Contains(rtMinutes float64) bool {
	return rtMinutes >= r.Low.Minutes() && rtMinutes <= r.High.Minutes()
}

// FlagSeverity classifies quality flags. The set is closed: values outside
// it are rejected at parse time rather than carried through.
type FlagSeverity int

const (
	SeverityNone        FlagSeverity = 0
	SeverityInformation FlagSeverity = 1
	SeverityWarning     FlagSeverity = 2
	SeverityError       FlagSeverity = 3
)

var severityNames = map[FlagSeverity]string{
	SeverityNone:        "None",
	SeverityInformation: "Information",
	SeverityWarning:     "Warning",
	SeverityError:       "Error",
}

func (s FlagSeverity) String() string {
	if name, ok := severityNames[s]; ok {
		return name
	}
	return fmt.Sprintf("FlagSeverity(%d)", int(s))
}

// ParseFlagSeverity maps the numeric severity code used in CEF attributes
// onto the closed severity set.
func ParseFlagSeverity(code int) (FlagSeverity, error) {
	s := FlagSeverity(code)
	if _, ok := severityNames[s]; !ok {
		return 0, fmt.Errorf("%w: unrecognized flag severity %d", ErrInvalidValue, code)
	}
	return s, nil
}

// Flag warns that the identification of a compound is poor, e.g.
// "low score" or "No H adduct".
type Flag struct {
	Text     string
	Severity FlagSeverity
}

// Score is a match-quality score reported by an identification algorithm.
type Score struct {
	Value float64
	Flag  *Flag
}

// NewScore rejects non-finite score values.
func NewScore(value float64, flag *Flag) (Score, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return Score{}, fmt.Errorf("%w: score %v is not finite", ErrInvalidValue, value)
	}
	return Score{Value: value, Flag: flag}, nil
}

// Peak is a single observation in a mass spectrum.
type Peak struct {
	Mz        float64 // observed m/z
	RefMz     float64 // reference (calculated) m/z
	Abundance float64
	Charge    int
	Label     string // ion species, e.g. "M+H"
}

// NewPeak validates that m/z is strictly positive and abundance is not
// negative.
func NewPeak(mz, refMz, abundance float64, charge int, label string) (Peak, error) {
	if mz <= 0 {
		return Peak{}, fmt.Errorf("%w: m/z %v must be positive", ErrInvalidValue, mz)
	}
	if abundance < 0 {
		return Peak{}, fmt.Errorf("%w: abundance %v must not be negative", ErrInvalidValue, abundance)
	}
	return Peak{Mz: mz, RefMz: refMz, Abundance: abundance, Charge: charge, Label: label}, nil
}

// Spectrum is one acquired (or deconvoluted) mass spectrum. Peaks keep
// the order they appear in the document; the decoder never sorts them.
type Spectrum struct {
	Type            string // e.g. "FbF", "TOF-MS1"
	Algorithm       string
	SaturationLimit int
	Scans           int
	ScanType        string
	Ionization      string
	Polarity        int // +1, -1 or 0 when unknown
	Voltage         float64
	Device          Device
	Peaks           []Peak
	RTRanges        []RTRange
}

// Molecule is one candidate chemical identity proposed for a compound.
type Molecule struct {
	Name    string
	Formula string
	Matches map[string]Score // algorithm label -> score
}

// MoleculeScore pairs a candidate molecule with its best match score.
type MoleculeScore struct {
	Molecule Molecule
	Score    Score
}

// Location places a compound within the chromatographic data. It is a
// keyed coordinate bag: the format emits any subset of the keys, and an
// absent coordinate is distinct from a zero one.
type Location map[string]float64

func (l Location) lookup(key string) (float64, bool) {
	v, ok := l[key]
	return v, ok
}

// Mass is the accurate mass determined from the observed spectrum.
func (l Location) Mass() (float64, bool) { return l.lookup("m") }

// RT is the retention time, in minutes, at which the compound eluted.
func (l Location) RT() (float64, bool) { return l.lookup("rt") }

// Area is the integrated peak area in the EIC.
func (l Location) Area() (float64, bool) { return l.lookup("a") }

// Height is the peak height in the EIC.
func (l Location) Height() (float64, bool) { return l.lookup("y") }

// Compound is one feature the qualitative analysis identified in the
// LC-MS data, together with its supporting evidence.
type Compound struct {
	Algorithm string
	Location  Location
	RTRange   *RTRange         // integration window, nil when the document has none
	Scores    map[string]Score // algorithm label -> compound score
	Flag      *Flag            // most severe quality flag, nil when unflagged
	Molecules []Molecule
	Spectra   []Spectrum
}

// RT returns the compound's retention time in minutes.
func (c Compound) RT() (float64, bool) { return c.Location.RT() }

// MatchScores pairs each candidate molecule with its best match score, in
// document order. The best score is the one labelled "overall" when
// present, otherwise the highest value (ties broken by the lexicographic
// order of the algorithm label).
func (c Compound) MatchScores() []MoleculeScore {
	pairs := make([]MoleculeScore, 0, len(c.Molecules))
	for _, mol := range c.Molecules {
		pairs = append(pairs, MoleculeScore{Molecule: mol, Score: bestScore(mol.Matches)})
	}
	return pairs
}

func bestScore(matches map[string]Score) Score {
	if s, ok := matches["overall"]; ok {
		return s
	}
	var best Score
	var bestAlgo string
	first := true
	for algo, s := range matches {
		if first || s.Value > best.Value || (s.Value == best.Value && algo < bestAlgo) {
			best, bestAlgo, first = s, algo, false
		}
	}
	return best
}
