// Package worklist parses Agilent MassHunter worklist (.wkl) files, which
// describe the sequencing of sample runs: which samples were injected, in
// what order, with which acquisition methods and execution parameters.
package worklist

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/mhtools/mhparse/internal/coerce"
)

var (
	// ErrUnrecognizedFormat means the document is not a worklist.
	ErrUnrecognizedFormat = errors.New("worklist: not a worklist document")

	ErrMalformedValue = coerce.ErrMalformedValue
	ErrInvalidValue   = coerce.ErrInvalidValue
)

// Worklist is one parsed worklist file.
type Worklist struct {
	Version       float64
	LockedRunMode bool
	Instrument    string
	Params        Params
	UserColumns   map[string]Column
	Jobs          []JobData
	Checksum      Checksum
}

// JobData is one entry in the worklist: a single queued or completed
// sample run.
type JobData struct {
	ID         uuid.UUID
	JobType    int
	RunStatus  int
	SampleInfo map[string]any
}

// AcquiredTime returns the job's acquisition timestamp. Jobs that have
// not run carry the Unix epoch.
func (j JobData) AcquiredTime() (time.Time, bool) {
	t, ok := j.SampleInfo["Acquired Time"].(time.Time)
	return t, ok
}

// Checksum is the integrity record at the end of a worklist. The hash
// algorithm itself is proprietary; the value is carried verbatim.
type Checksum struct {
	SchemaVersion int
	AlgoVersion   int
	Hashcode      string
}

// Macro is a pre/post execution hook configured in the worklist.
type Macro struct {
	ProjectName     string
	ProcedureName   string
	InputParameter  string
	OutputDataType  int
	OutputParameter string
	DisplayString   string
}

// Undefined reports whether the macro slot is empty.
func (m Macro) Undefined() bool {
	return m == Macro{}
}

// Params are the worklist execution parameters.
type Params struct {
	OperatorName             string
	RunType                  int
	MethodExecutionType      string
	AcqMethodPath            string
	DAMethodPath             string
	ExportOutputPath         string
	CombineExportOutput      bool
	CombinedExportOutputFile string
	CombineOutputByPlate     bool
	SynchronousExecution     bool
	StopWorklistOnDAError    bool
	OverlappedInjections     bool
	UseBarcode               bool
	InjectOnBarcodeMismatch  bool
	ThresholdDiskSpace       int
	ReadyTimeOut             int
	ClearRunCheckbox         bool
	UsePreWorklistMacro      bool
	PreWorklistMacro         Macro
	UsePostWorklistMacro     bool
	PostWorklistMacro        Macro
	RunAcqCleanMacroOnError  bool
	AcqCleanMacro            Macro
	UsePostAnalysisMacro     bool
	PostAnalysisMacro        Macro
	Description              string
	PlateBarCodes            string
}

// Attribute describes one column of the worklist table, system-defined
// or user-added.
type Attribute struct {
	ID             int
	Type           AttributeType
	FieldType      int
	SystemName     string
	HeaderName     string
	DataType       int
	DefaultValue   string
	ReorderID      int
	ShowHideStatus bool
	ColumnWidth    int
}
