package cef

import "iter"

// CompoundList holds the compounds of one parsed document, in document
// order. It is a read-only snapshot: there is no insertion or removal,
// and re-parsing the same file yields an independent list.
type CompoundList struct {
	instrument string
	compounds  []Compound
}

// Instrument is the instrument configuration that acquired the data,
// e.g. "LCQTOF".
func (l *CompoundList) Instrument() string { return l.instrument }

// Len returns the number of compounds in the document.
func (l *CompoundList) Len() int { return len(l.compounds) }

// At returns the i-th compound in document order.
func (l *CompoundList) At(i int) (Compound, error) {
	if i < 0 || i >= len(l.compounds) {
		return Compound{}, ErrIndexOutOfRange
	}
	return l.compounds[i], nil
}

// Compounds returns a copy of the compound sequence in document order.
func (l *CompoundList) Compounds() []Compound {
	out := make([]Compound, len(l.compounds))
	copy(out, l.compounds)
	return out
}

// All iterates the compounds in document order. The sequence is
// restartable: ranging over it again starts from the beginning.
func (l *CompoundList) All() iter.Seq2[int, Compound] {
	return func(yield func(int, Compound) bool) {
		for i, c := range l.compounds {
			if !yield(i, c) {
				return
			}
		}
	}
}

// Filter returns a lazy view of the compounds for which keep returns
// true. The view reads through to the list; it copies nothing.
func (l *CompoundList) Filter(keep func(Compound) bool) Filtered {
	return Filtered{list: l, keep: keep}
}

// WithSeverity returns a lazy view of the compounds flagged at the given
// severity.
func (l *CompoundList) WithSeverity(sev FlagSeverity) Filtered {
	return l.Filter(func(c Compound) bool {
		return c.Flag != nil && c.Flag.Severity == sev
	})
}

// Flagged returns a lazy view of all compounds carrying a quality flag.
func (l *CompoundList) Flagged() Filtered {
	return l.Filter(func(c Compound) bool { return c.Flag != nil })
}

// Filtered is a read-only filtered view over a CompoundList.
type Filtered struct {
	list *CompoundList
	keep func(Compound) bool
}

// All iterates the matching compounds in document order. Restartable.
func (f Filtered) All() iter.Seq[Compound] {
	return func(yield func(Compound) bool) {
		for _, c := range f.list.compounds {
			if f.keep(c) && !yield(c) {
				return
			}
		}
	}
}

// Count returns the number of matching compounds.
func (f Filtered) Count() int {
	n := 0
	for range f.All() {
		n++
	}
	return n
}

// Compounds materializes the view into a fresh slice.
func (f Filtered) Compounds() []Compound {
	var out []Compound
	for c := range f.All() {
		out = append(out, c)
	}
	return out
}
