package qualcsv

import (
	"gonum.org/v1/gonum/stat"
)

// Stats summarizes one compound's values across a set of samples.
type Stats struct {
	N      int     `json:"n" yaml:"n"`
	Mean   float64 `json:"mean" yaml:"mean"`
	StdDev float64 `json:"stdDev" yaml:"stdDev"`
	Min    float64 `json:"min" yaml:"min"`
	Max    float64 `json:"max" yaml:"max"`
}

func summarize(values []float64) Stats {
	if len(values) == 0 {
		return Stats{}
	}
	s := Stats{
		N:    len(values),
		Mean: stat.Mean(values, nil),
		Min:  values[0],
		Max:  values[0],
	}
	if len(values) > 1 {
		s.StdDev = stat.StdDev(values, nil)
	}
	for _, v := range values[1:] {
		if v < s.Min {
			s.Min = v
		}
		if v > s.Max {
			s.Max = v
		}
	}
	return s
}

// AreaStats summarizes the named compound's peak areas across all
// samples where it was identified.
func (l SampleList) AreaStats(compound string) Stats {
	var values []float64
	for _, s := range l {
		if r, ok := s.Lookup(compound); ok {
			values = append(values, float64(r.Area))
		}
	}
	return summarize(values)
}

// ScoreStats summarizes the named compound's identification scores
// across all samples where it was identified.
func (l SampleList) ScoreStats(compound string) Stats {
	var values []float64
	for _, s := range l {
		if r, ok := s.Lookup(compound); ok {
			values = append(values, r.Score)
		}
	}
	return summarize(values)
}
