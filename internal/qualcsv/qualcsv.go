// Package qualcsv parses CSV result exports from the MassHunter
// Qualitative Analysis companion tool. One export holds the identified
// compounds of one or more samples, one compound per row; rows are
// grouped back into samples by the sample identity columns.
package qualcsv

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/mhtools/mhparse/internal/coerce"
)

var (
	// ErrUnrecognizedFormat means the file is not a qualitative-analysis
	// CSV export.
	ErrUnrecognizedFormat = errors.New("qualcsv: not a qualitative analysis export")

	ErrMalformedValue = coerce.ErrMalformedValue
)

// Result is one identified compound in a sample.
type Result struct {
	Index            int // the Cpd number, assigned in identification order
	CAS              string
	Name             string
	Hits             string
	Formula          string
	Score            float64
	Abundance        int
	Height           int
	Area             int
	DiffMDa          float64
	DiffPpm          float64
	RT               float64
	Start            float64
	End              float64
	Width            float64
	TargetRT         float64
	RTDiff           float64
	Mz               float64
	ProductMz        float64
	BasePeak         float64
	Mass             float64
	AverageMass      float64
	TargetMass       float64
	MiningAlgorithm  string
	ZCount           int
	MaxZ             int
	MinZ             int
	Ions             int
	Polarity         string
	Label            string
	Flags            string
	FlagSeverity     string
	FlagSeverityCode int
}

func (r Result) String() string {
	return fmt.Sprintf("Result(%s; %s; %g; %g)", r.Name, r.Formula, r.RT, r.Score)
}

// Sample groups the results acquired from one injection.
type Sample struct {
	Name           string
	Type           string
	InstrumentName string
	Position       string
	User           string
	AcqMethod      string
	DAMethod       string
	IRMCalStatus   string
	Filename       string

	results map[int]Result
}

// sameIdentity reports whether two rows belong to the same sample.
// Exports repeat the sample columns on every row.
func (s *Sample) sameIdentity(o *Sample) bool {
	return s.Name == o.Name && s.Type == o.Type &&
		s.Filename == o.Filename && s.AcqMethod == o.AcqMethod
}

// AddResult records a result, replacing any earlier result with the
// same Cpd number.
func (s *Sample) AddResult(r Result) {
	if s.results == nil {
		s.results = map[int]Result{}
	}
	s.results[r.Index] = r
}

// Results returns the sample's results sorted by Cpd number, the order
// in which the compounds were identified.
func (s *Sample) Results() []Result {
	keys := make([]int, 0, len(s.results))
	for k := range s.results {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	out := make([]Result, len(keys))
	for i, k := range keys {
		out[i] = s.results[k]
	}
	return out
}

// Lookup returns the sample's result for the named compound. Names are
// compared case-insensitively.
func (s *Sample) Lookup(compound string) (Result, bool) {
	for _, r := range s.Results() {
		if strings.EqualFold(r.Name, compound) {
			return r, true
		}
	}
	return Result{}, false
}

// SampleList is an ordered collection of samples, usually all the
// samples of one export.
type SampleList []*Sample

// Names returns the sample names in list order.
func (l SampleList) Names() []string {
	names := make([]string, len(l))
	for i, s := range l {
		names[i] = s.Name
	}
	return names
}

// Compounds returns the names of all compounds identified in any
// sample, sorted alphabetically.
func (l SampleList) Compounds() []string {
	seen := map[string]bool{}
	for _, s := range l {
		for _, r := range s.Results() {
			seen[r.Name] = true
		}
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// RetentionTimes returns sample name to retention time for the named
// compound. Samples without the compound are omitted.
func (l SampleList) RetentionTimes(compound string) map[string]float64 {
	out := map[string]float64{}
	for _, s := range l {
		if r, ok := s.Lookup(compound); ok {
			out[s.Name] = r.RT
		}
	}
	return out
}

// PeakAreas returns sample name to peak area for the named compound.
func (l SampleList) PeakAreas(compound string) map[string]int {
	out := map[string]int{}
	for _, s := range l {
		if r, ok := s.Lookup(compound); ok {
			out[s.Name] = r.Area
		}
	}
	return out
}

// Scores returns sample name to identification score for the named
// compound.
func (l SampleList) Scores(compound string) map[string]float64 {
	out := map[string]float64{}
	for _, s := range l {
		if r, ok := s.Lookup(compound); ok {
			out[s.Name] = r.Score
		}
	}
	return out
}

// Filter returns the samples whose name is in names, keeping list
// order. With exclude set the selection is inverted.
func (l SampleList) Filter(names []string, exclude bool) SampleList {
	want := map[string]bool{}
	for _, n := range names {
		want[n] = true
	}
	var out SampleList
	for _, s := range l {
		if want[s.Name] != exclude {
			out = append(out, s)
		}
	}
	return out
}

// findOrAdd returns the list's sample matching the identity of s,
// appending s if it is new.
func (l *SampleList) findOrAdd(s *Sample) *Sample {
	for _, have := range *l {
		if have.sameIdentity(s) {
			return have
		}
	}
	*l = append(*l, s)
	return s
}
