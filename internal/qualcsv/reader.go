package qualcsv

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/mhtools/mhparse/internal/coerce"
)

// Columns every export carries; their presence is how an export is
// recognized. Everything else is optional and defaults per field.
var requiredColumns = []string{"Sample Name", "Cpd", "Name"}

// record is one data row with access to the header.
type record struct {
	header map[string]int
	fields []string
}

func (r record) get(name string) string {
	i, ok := r.header[name]
	if !ok || i >= len(r.fields) {
		return ""
	}
	return r.fields[i]
}

func (r record) getFloat(name string) (float64, error) {
	s := r.get(name)
	if s == "" {
		return 0, nil
	}
	v, err := coerce.Float(s)
	if err != nil {
		return 0, fmt.Errorf("column %q: %w", name, err)
	}
	return v, nil
}

func (r record) getInt(name string) (int, error) {
	s := r.get(name)
	if s == "" {
		return 0, nil
	}
	v, err := coerce.Int(s)
	if err != nil {
		return 0, fmt.Errorf("column %q: %w", name, err)
	}
	return v, nil
}

// Read parses one CSV export. The first line is the export title and is
// skipped; the column layout is taken from the header row, so exports
// with reordered or extra columns parse the same way.
func Read(r io.Reader) (SampleList, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := readHeader(cr)
	if err != nil {
		return nil, err
	}

	var samples SampleList
	for line := 2; ; line++ {
		fields, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("qualcsv: line %d: %w", line, err)
		}
		rec := record{header: header, fields: fields}

		sample := samples.findOrAdd(&Sample{
			Name:           rec.get("Sample Name"),
			Type:           rec.get("Sample Type"),
			InstrumentName: rec.get("Instrument Name"),
			Position:       rec.get("Position"),
			User:           rec.get("User Name"),
			AcqMethod:      rec.get("Acq Method"),
			DAMethod:       rec.get("DA Method"),
			IRMCalStatus:   rec.get("IRM Calibration status"),
			Filename:       rec.get("File"),
		})

		result, err := parseResult(rec)
		if err != nil {
			return nil, fmt.Errorf("qualcsv: line %d: %w", line, err)
		}
		sample.AddResult(result)
	}
	return samples, nil
}

// readHeader skips leading non-header lines (the export title) and
// returns the column index of the first row that carries the required
// columns.
func readHeader(cr *csv.Reader) (map[string]int, error) {
	for tries := 0; tries < 3; tries++ {
		fields, err := cr.Read()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnrecognizedFormat, err)
		}
		header := make(map[string]int, len(fields))
		for i, name := range fields {
			header[name] = i
		}
		ok := true
		for _, name := range requiredColumns {
			if _, present := header[name]; !present {
				ok = false
				break
			}
		}
		if ok {
			return header, nil
		}
	}
	return nil, fmt.Errorf("%w: no header row with columns %v", ErrUnrecognizedFormat, requiredColumns)
}

func parseResult(rec record) (Result, error) {
	r := Result{
		CAS:             rec.get("CAS"),
		Name:            rec.get("Name"),
		Hits:            rec.get("Hits"),
		Formula:         rec.get("Formula"),
		MiningAlgorithm: rec.get("Mining Algorithm"),
		Polarity:        rec.get("Polarity"),
		Label:           rec.get("Label"),
		Flags:           rec.get("Flags (Tgt)"),
		FlagSeverity:    rec.get("Flag Severity (Tgt)"),
	}
	var err error
	if r.Index, err = rec.getInt("Cpd"); err != nil {
		return Result{}, err
	}
	for _, f := range []struct {
		col string
		dst *float64
	}{
		{"Score", &r.Score},
		{"Diff (Tgt, mDa)", &r.DiffMDa},
		{"Diff (Tgt, ppm)", &r.DiffPpm},
		{"RT", &r.RT},
		{"Start", &r.Start},
		{"End", &r.End},
		{"Width", &r.Width},
		{"RT (Tgt)", &r.TargetRT},
		{"RT Diff (Tgt)", &r.RTDiff},
		{"m/z", &r.Mz},
		{"m/z (prod.)", &r.ProductMz},
		{"Base Peak", &r.BasePeak},
		{"Mass", &r.Mass},
		{"Avg Mass", &r.AverageMass},
		{"Mass (Tgt)", &r.TargetMass},
	} {
		if *f.dst, err = rec.getFloat(f.col); err != nil {
			return Result{}, err
		}
	}
	for _, f := range []struct {
		col string
		dst *int
	}{
		{"Abund", &r.Abundance},
		{"Height", &r.Height},
		{"Area", &r.Area},
		{"Z Count", &r.ZCount},
		{"Max Z", &r.MaxZ},
		{"Min Z", &r.MinZ},
		{"Ions", &r.Ions},
		{"Flag Severity Code (Tgt)", &r.FlagSeverityCode},
	} {
		if *f.dst, err = rec.getInt(f.col); err != nil {
			return Result{}, err
		}
	}
	return r, nil
}
