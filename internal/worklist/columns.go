package worklist

import (
	"fmt"
	"strings"

	"github.com/mhtools/mhparse/internal/coerce"
)

// AttributeType classifies worklist columns.
type AttributeType int

const (
	SystemDefined AttributeType = 0
	SystemUsed    AttributeType = 1
	UserAdded     AttributeType = 2
)

// ParseAttributeType validates the numeric attribute type code.
func ParseAttributeType(code int) (AttributeType, error) {
	switch t := AttributeType(code); t {
	case SystemDefined, SystemUsed, UserAdded:
		return t, nil
	}
	return 0, fmt.Errorf("%w: unrecognized attribute type %d", ErrInvalidValue, code)
}

// Kind is the value type a column's cells are coerced to.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindFloat
	KindPath
	// KindInjectionVolume is an int column where -1 means "As Method".
	KindInjectionVolume
	// KindAny keeps the raw string; used for user columns whose data
	// type the file does not declare.
	KindAny
)

// Column describes how one worklist column's cells are typed.
type Column struct {
	Name        string
	AttributeID int
	Type        AttributeType
	Kind        Kind
	Default     any
	FieldType   int
	ReorderID   int
}

// Cast coerces a raw cell value to the column's kind. Empty cells take
// the column default.
func (c Column) Cast(raw string) (any, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return c.Default, nil
	}
	switch c.Kind {
	case KindInt:
		return coerce.Int(s)
	case KindFloat:
		return coerce.Float(s)
	case KindPath:
		// Paths are Windows paths written by the acquisition PC; they
		// are carried verbatim.
		return s, nil
	case KindInjectionVolume:
		if s == "-1" {
			return "As Method", nil
		}
		return coerce.Int(s)
	default:
		return s, nil
	}
}

// ColumnForAttribute builds a column for a user-added or system-used
// attribute. Data type 8 is a string, 5 a float; everything else is
// carried raw.
func ColumnForAttribute(a Attribute) Column {
	kind := KindAny
	switch a.DataType {
	case 8:
		kind = KindString
	case 5:
		kind = KindFloat
	}
	return Column{
		Name:        a.HeaderName,
		AttributeID: a.ID,
		Type:        a.Type,
		Kind:        kind,
		Default:     a.DefaultValue,
		FieldType:   a.FieldType,
		ReorderID:   a.ReorderID,
	}
}

// sampleInfoTags maps SampleInfo child element names to the column
// labels MassHunter shows in the worklist table.
var sampleInfoTags = map[string]string{
	"Identifier":          "Sample ID",
	"Name":                "Sample Name",
	"RackCode":            "Rack Code",
	"RackPosition":        "Rack Position",
	"PlateCode":           "Plate Code",
	"PlatePosition":       "Plate Position",
	"SamplePosition":      "Sample Position",
	"AcqMethod":           "Method",
	"DAMethod":            "Override DA Method",
	"DataFileName":        "Data File",
	"SampleType":          "Sample Type",
	"MethodExecutionType": "Method Type",
	"BalanceType":         "Balance Override",
	"InjectionVolume":     "Inj Vol (µl)",
	"EquilibrationTime":   "Equilib Time (min)",
	"DilutionFactor":      "Dilution",
	"WeightPerVolume":     "Wt/Vol",
	"Description":         "Comment",
	"Barcode":             "Barcode",
	"Reserved1":           "Reserved1",
	"Reserved2":           "Reserved2",
	"Reserved3":           "Reserved3",
	"Reserved4":           "Reserved4",
	"Reserved5":           "Reserved5",
	"Reserved6":           "Reserved6",
	"CalibLevelName":      "Level Name",
	"SampleGroup":         "Sample Group",
	"SampleInformation":   "Info.",
}

// SystemColumns is the fixed table of system-defined worklist columns.
var SystemColumns = func() map[string]Column {
	cols := []Column{
		{Name: "Sample ID", AttributeID: 0, Kind: KindString, Default: ""},
		{Name: "Sample Name", AttributeID: 1, Kind: KindString, Default: ""},
		{Name: "Rack Code", AttributeID: 2, Kind: KindString, Default: ""},
		{Name: "Rack Position", AttributeID: 3, Kind: KindString, Default: ""},
		{Name: "Plate Code", AttributeID: 4, Kind: KindString, Default: ""},
		{Name: "Plate Position", AttributeID: 5, Kind: KindString, Default: ""},
		{Name: "Sample Position", AttributeID: 6, Kind: KindString, Default: ""},
		{Name: "Method", AttributeID: 7, Kind: KindPath, Default: nil},
		{Name: "Override DA Method", AttributeID: 8, Kind: KindPath, Default: nil},
		{Name: "Data File", AttributeID: 9, Kind: KindPath, Default: nil},
		{Name: "Sample Type", AttributeID: 10, Kind: KindString, Default: "Unknown"},
		{Name: "Method Type", AttributeID: 11, Kind: KindString, Default: "Method No Override", ReorderID: 12},
		{Name: "Balance Override", AttributeID: 12, Kind: KindString, Default: "No Override", ReorderID: 13},
		{Name: "Inj Vol (µl)", AttributeID: 13, Kind: KindInjectionVolume, Default: 5, ReorderID: 14},
		{Name: "Equilib Time (min)", AttributeID: 14, Kind: KindInt, Default: 0, ReorderID: 15},
		{Name: "Dilution", AttributeID: 15, Kind: KindInt, Default: 1, ReorderID: 16},
		{Name: "Wt/Vol", AttributeID: 16, Kind: KindFloat, Default: 0.0, ReorderID: 17},
		{Name: "Comment", AttributeID: 17, Kind: KindString, Default: "", ReorderID: 18},
		{Name: "Barcode", AttributeID: 18, Kind: KindString, Default: "", ReorderID: 19},
		{Name: "Reserved1", AttributeID: 19, Kind: KindString, Default: "", ReorderID: -1},
		{Name: "Reserved2", AttributeID: 20, Kind: KindString, Default: "", ReorderID: -1},
		{Name: "Reserved3", AttributeID: 21, Kind: KindString, Default: "", ReorderID: -1},
		{Name: "Reserved4", AttributeID: 22, Kind: KindFloat, Default: 0.0, ReorderID: -1},
		{Name: "Reserved5", AttributeID: 23, Kind: KindFloat, Default: 0.0, ReorderID: -1},
		{Name: "Reserved6", AttributeID: 24, Kind: KindFloat, Default: 0.0, ReorderID: -1},
		{Name: "Level Name", AttributeID: 25, Kind: KindString, Default: "", ReorderID: 11},
		{Name: "Sample Group", AttributeID: 26, Kind: KindString, Default: "", ReorderID: 20},
		{Name: "Info.", AttributeID: 27, Kind: KindString, Default: "", ReorderID: 21},
	}
	m := make(map[string]Column, len(cols))
	for _, c := range cols {
		c.Type = SystemDefined
		if c.ReorderID == 0 {
			c.ReorderID = c.AttributeID
		}
		c.FieldType = c.AttributeID
		m[c.Name] = c
	}
	return m
}()
