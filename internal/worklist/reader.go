package worklist

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/net/html/charset"

	"github.com/mhtools/mhparse/internal/coerce"
)

type worklistXML struct {
	Version  string           `xml:"Version"`
	Checksum checksumXML      `xml:"Checksum"`
	Info     *worklistInfoXML `xml:"WorklistInfo"`
}

type checksumXML struct {
	SchemaVersion string `xml:"SchemaVersion,attr"`
	AlgoVersion   string `xml:"ALGO_VERSION,attr"`
	Main          struct {
		Hashcode string `xml:"HASHCODE,attr"`
	} `xml:"MAIN"`
}

type worklistInfoXML struct {
	LockedRunMode string    `xml:"LockedRunMode"`
	Instrument    string    `xml:"Instrument"`
	Params        paramsXML `xml:"Params"`
	Attributes    struct {
		Attributes []attributeXML `xml:"Attributes"`
	} `xml:"AttributeInformation"`
	JobDataList struct {
		Jobs []jobDataXML `xml:"JobData"`
	} `xml:"JobDataList"`
}

type paramsXML struct {
	OperatorName             string   `xml:"OperatorName"`
	RunType                  string   `xml:"RunType"`
	MethodExecutionType      string   `xml:"MethodExecutionType"`
	AcqMethodPath            string   `xml:"AcqMethodPath"`
	DAMethodPath             string   `xml:"DAMethodPath"`
	ExportOutputPath         string   `xml:"ExportOutputPath"`
	CombineExportOutput      string   `xml:"CombineExportOutput"`
	CombinedExportOutputFile string   `xml:"CombinedExportOutputFile"`
	CombineOutputByPlate     string   `xml:"CombineOutputByPlate"`
	SynchronousExecution     string   `xml:"SynchronousExecution"`
	StopWorklistOnDAError    string   `xml:"StopWorklistOnDAError"`
	OverlappedInjections     string   `xml:"OverlappedInjections"`
	UseBarcode               string   `xml:"UseBarcode"`
	InjectOnBarcodeMismatch  string   `xml:"InjectOnBarcodeMismatch"`
	ThresholdDiskSpace       string   `xml:"ThresholdDiskSpace"`
	ReadyTimeOut             string   `xml:"ReadyTimeOut"`
	ClearRunCheckBox         string   `xml:"ClearRunCheckBox"`
	UsePreWorklistMacro      string   `xml:"UsePreWorklistMacro"`
	PreWorklistMacro         macroXML `xml:"PreWorklistMacro"`
	UsePostWorklistMacro     string   `xml:"UsePostWorklistMacro"`
	PostWorklistMacro        macroXML `xml:"PostWorklistMacro"`
	RunAcqCleanMacroOnError  string   `xml:"RunAcqCleanMacroOnError"`
	AcqCleanMacro            macroXML `xml:"AcqCleanMacro"`
	UsePostAnalysisMacro     string   `xml:"UsePostAnalysisMacro"`
	PostAnalysisMacro        macroXML `xml:"PostAnalysisMacro"`
	Description              string   `xml:"Description"`
	PlateBarCodes            string   `xml:"PlateBarCodes"`
}

type macroXML struct {
	ProjectName     string `xml:"ProjectName"`
	ProcedureName   string `xml:"ProcedureName"`
	InputParameter  string `xml:"InputParameter"`
	OutputDataType  string `xml:"OutputDataType"`
	OutputParameter string `xml:"OutputParameter"`
	DisplayString   string `xml:"DisplayString"`
}

type attributeXML struct {
	AttributeID      string `xml:"AttributeID"`
	AttributeType    string `xml:"AttributeType"`
	FieldType        string `xml:"FieldType"`
	SystemName       string `xml:"SystemName"`
	HeaderName       string `xml:"HeaderName"`
	DataType         string `xml:"DataType"`
	DefaultDataValue string `xml:"DefaultDataValue"`
	ReorderID        string `xml:"ReorderID"`
	ShowHideStatus   string `xml:"ShowHideStatus"`
	ColumnWidth      string `xml:"ColumnWidth"`
}

type jobDataXML struct {
	ID         string        `xml:"ID"`
	JobType    string        `xml:"JobType"`
	RunStatus  string        `xml:"RunStatus"`
	SampleInfo sampleInfoXML `xml:"SampleInfo"`
}

type sampleInfoXML struct {
	AcqTime             string               `xml:"AcqTime"`
	SampleLockedRunMode string               `xml:"SampleLockedRunMode"`
	RunCompletedFlag    string               `xml:"RunCompletedFlag"`
	Label               string               `xml:"Label"`
	DataArrays          []sampleDataArrayXML `xml:"SampleDataArray"`
	Fields              []sampleFieldXML     `xml:",any"`
}

// SampleDataArray rows carry the values of system-used and user-added
// columns, keyed by attribute ID.
type sampleDataArrayXML struct {
	AttributeID string `xml:"AttributeID"`
	DataValue   string `xml:"DataValue"`
}

type sampleFieldXML struct {
	XMLName xml.Name
	Value   string `xml:",chardata"`
}

// Read parses one complete worklist document.
func Read(r io.Reader) (*Worklist, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charset.NewReaderLabel

	var doc worklistXML
	found := false
	for !found {
		t, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnrecognizedFormat, err)
		}
		if start, ok := t.(xml.StartElement); ok {
			if start.Name.Local != "WorkListManager" {
				return nil, fmt.Errorf("%w: root element is %q, want \"WorkListManager\"",
					ErrUnrecognizedFormat, start.Name.Local)
			}
			if err := dec.DecodeElement(&doc, &start); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrUnrecognizedFormat, err)
			}
			found = true
		}
	}
	if !found || doc.Info == nil {
		return nil, fmt.Errorf("%w: no WorklistInfo element", ErrUnrecognizedFormat)
	}
	return buildWorklist(doc)
}

func buildWorklist(doc worklistXML) (*Worklist, error) {
	wl := Worklist{UserColumns: map[string]Column{}}
	var err error

	if wl.Version, err = coerce.Float(doc.Version); err != nil {
		return nil, fmt.Errorf("worklist: Version: %w", err)
	}
	if wl.Checksum, err = parseChecksum(doc.Checksum); err != nil {
		return nil, fmt.Errorf("worklist: Checksum: %w", err)
	}

	info := doc.Info
	switch strings.TrimSpace(info.LockedRunMode) {
	case "-1":
		wl.LockedRunMode = true
	case "0":
		wl.LockedRunMode = false
	default:
		return nil, fmt.Errorf("worklist: %w: LockedRunMode %q", ErrInvalidValue, info.LockedRunMode)
	}
	wl.Instrument = strings.TrimSpace(info.Instrument)

	if wl.Params, err = parseParams(info.Params); err != nil {
		return nil, fmt.Errorf("worklist: Params: %w", err)
	}

	for _, ax := range info.Attributes.Attributes {
		attr, err := parseAttribute(ax)
		if err != nil {
			return nil, fmt.Errorf("worklist: Attributes: %w", err)
		}
		if attr.Type != SystemDefined {
			col := ColumnForAttribute(attr)
			wl.UserColumns[col.Name] = col
		}
	}

	for i, jx := range info.JobDataList.Jobs {
		job, err := parseJobData(jx, wl.UserColumns)
		if err != nil {
			return nil, fmt.Errorf("worklist: JobData %d: %w", i, err)
		}
		wl.Jobs = append(wl.Jobs, job)
	}
	return &wl, nil
}

func parseChecksum(cx checksumXML) (Checksum, error) {
	schema, err := coerce.Int(cx.SchemaVersion)
	if err != nil {
		return Checksum{}, err
	}
	algo, err := coerce.Int(cx.AlgoVersion)
	if err != nil {
		return Checksum{}, err
	}
	return Checksum{SchemaVersion: schema, AlgoVersion: algo, Hashcode: cx.Main.Hashcode}, nil
}

func parseParams(px paramsXML) (Params, error) {
	p := Params{
		OperatorName:             strings.TrimSpace(px.OperatorName),
		MethodExecutionType:      strings.TrimSpace(px.MethodExecutionType),
		AcqMethodPath:            strings.TrimSpace(px.AcqMethodPath),
		DAMethodPath:             strings.TrimSpace(px.DAMethodPath),
		ExportOutputPath:         strings.TrimSpace(px.ExportOutputPath),
		CombinedExportOutputFile: strings.TrimSpace(px.CombinedExportOutputFile),
		Description:              strings.TrimSpace(px.Description),
		PlateBarCodes:            strings.TrimSpace(px.PlateBarCodes),
	}
	var err error
	if p.RunType, err = coerce.Int(px.RunType); err != nil {
		return Params{}, fmt.Errorf("RunType: %w", err)
	}
	for _, f := range []struct {
		name string
		raw  string
		dst  *bool
	}{
		{"CombineExportOutput", px.CombineExportOutput, &p.CombineExportOutput},
		{"CombineOutputByPlate", px.CombineOutputByPlate, &p.CombineOutputByPlate},
		{"SynchronousExecution", px.SynchronousExecution, &p.SynchronousExecution},
		{"StopWorklistOnDAError", px.StopWorklistOnDAError, &p.StopWorklistOnDAError},
		{"OverlappedInjections", px.OverlappedInjections, &p.OverlappedInjections},
		{"UseBarcode", px.UseBarcode, &p.UseBarcode},
		{"InjectOnBarcodeMismatch", px.InjectOnBarcodeMismatch, &p.InjectOnBarcodeMismatch},
		{"ClearRunCheckBox", px.ClearRunCheckBox, &p.ClearRunCheckbox},
		{"UsePreWorklistMacro", px.UsePreWorklistMacro, &p.UsePreWorklistMacro},
		{"UsePostWorklistMacro", px.UsePostWorklistMacro, &p.UsePostWorklistMacro},
		{"RunAcqCleanMacroOnError", px.RunAcqCleanMacroOnError, &p.RunAcqCleanMacroOnError},
		{"UsePostAnalysisMacro", px.UsePostAnalysisMacro, &p.UsePostAnalysisMacro},
	} {
		if *f.dst, err = coerce.Bool(f.raw); err != nil {
			return Params{}, fmt.Errorf("%s: %w", f.name, err)
		}
	}
	if p.ThresholdDiskSpace, err = coerce.Int(px.ThresholdDiskSpace); err != nil {
		return Params{}, fmt.Errorf("ThresholdDiskSpace: %w", err)
	}
	if p.ReadyTimeOut, err = coerce.Int(px.ReadyTimeOut); err != nil {
		return Params{}, fmt.Errorf("ReadyTimeOut: %w", err)
	}
	for _, m := range []struct {
		name string
		raw  macroXML
		dst  *Macro
	}{
		{"PreWorklistMacro", px.PreWorklistMacro, &p.PreWorklistMacro},
		{"PostWorklistMacro", px.PostWorklistMacro, &p.PostWorklistMacro},
		{"AcqCleanMacro", px.AcqCleanMacro, &p.AcqCleanMacro},
		{"PostAnalysisMacro", px.PostAnalysisMacro, &p.PostAnalysisMacro},
	} {
		if *m.dst, err = parseMacro(m.raw); err != nil {
			return Params{}, fmt.Errorf("%s: %w", m.name, err)
		}
	}
	return p, nil
}

func parseMacro(mx macroXML) (Macro, error) {
	m := Macro{
		ProjectName:     strings.TrimSpace(mx.ProjectName),
		ProcedureName:   strings.TrimSpace(mx.ProcedureName),
		InputParameter:  strings.TrimSpace(mx.InputParameter),
		OutputParameter: strings.TrimSpace(mx.OutputParameter),
		DisplayString:   strings.TrimSpace(mx.DisplayString),
	}
	if s := strings.TrimSpace(mx.OutputDataType); s != "" {
		var err error
		if m.OutputDataType, err = coerce.Int(s); err != nil {
			return Macro{}, fmt.Errorf("OutputDataType: %w", err)
		}
	}
	return m, nil
}

func parseAttribute(ax attributeXML) (Attribute, error) {
	var a Attribute
	var err error
	if a.ID, err = coerce.Int(ax.AttributeID); err != nil {
		return Attribute{}, fmt.Errorf("AttributeID: %w", err)
	}
	code, err := coerce.Int(ax.AttributeType)
	if err != nil {
		return Attribute{}, fmt.Errorf("AttributeType: %w", err)
	}
	if a.Type, err = ParseAttributeType(code); err != nil {
		return Attribute{}, err
	}
	if a.FieldType, err = coerce.Int(ax.FieldType); err != nil {
		return Attribute{}, fmt.Errorf("FieldType: %w", err)
	}
	a.SystemName = strings.TrimSpace(ax.SystemName)
	a.HeaderName = strings.TrimSpace(ax.HeaderName)
	if a.DataType, err = coerce.Int(ax.DataType); err != nil {
		return Attribute{}, fmt.Errorf("DataType: %w", err)
	}
	a.DefaultValue = strings.TrimSpace(ax.DefaultDataValue)
	if a.ReorderID, err = coerce.Int(ax.ReorderID); err != nil {
		return Attribute{}, fmt.Errorf("ReorderID: %w", err)
	}
	if a.ShowHideStatus, err = coerce.Bool(ax.ShowHideStatus); err != nil {
		return Attribute{}, fmt.Errorf("ShowHideStatus: %w", err)
	}
	if a.ColumnWidth, err = coerce.Int(ax.ColumnWidth); err != nil {
		return Attribute{}, fmt.Errorf("ColumnWidth: %w", err)
	}
	return a, nil
}

func parseJobData(jx jobDataXML, userColumns map[string]Column) (JobData, error) {
	job := JobData{}
	id, err := uuid.Parse(strings.TrimSpace(jx.ID))
	if err != nil {
		return JobData{}, fmt.Errorf("%w: ID %q: %v", ErrMalformedValue, jx.ID, err)
	}
	job.ID = id
	if job.JobType, err = coerce.Int(jx.JobType); err != nil {
		return JobData{}, fmt.Errorf("JobType: %w", err)
	}
	if job.RunStatus, err = coerce.Int(jx.RunStatus); err != nil {
		return JobData{}, fmt.Errorf("RunStatus: %w", err)
	}
	if job.SampleInfo, err = parseSampleInfo(jx.SampleInfo, userColumns); err != nil {
		return JobData{}, fmt.Errorf("SampleInfo: %w", err)
	}
	return job, nil
}

func parseSampleInfo(sx sampleInfoXML, userColumns map[string]Column) (map[string]any, error) {
	info := make(map[string]any, len(sx.Fields)+4)

	acquired, err := coerce.Timestamp(sx.AcqTime)
	if err != nil {
		return nil, fmt.Errorf("AcqTime: %w", err)
	}
	info["Acquired Time"] = acquired

	locked, err := coerce.Bool(sx.SampleLockedRunMode)
	if err != nil {
		return nil, fmt.Errorf("SampleLockedRunMode: %w", err)
	}
	info["Sample Locked Run Mode"] = locked

	completed, err := coerce.Bool(sx.RunCompletedFlag)
	if err != nil {
		return nil, fmt.Errorf("RunCompletedFlag: %w", err)
	}
	info["Run Completed"] = completed

	info["Label"] = strings.TrimSpace(sx.Label)

	// System-defined columns, typed per the fixed column table. Tags we
	// do not recognize are carried nowhere; they belong to newer schema
	// versions and have no column to land in.
	for _, f := range sx.Fields {
		label, ok := sampleInfoTags[f.XMLName.Local]
		if !ok {
			continue
		}
		v, err := SystemColumns[label].Cast(f.Value)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.XMLName.Local, err)
		}
		info[label] = v
	}

	// System-used and user-added columns, matched by attribute ID.
	for _, da := range sx.DataArrays {
		id, err := coerce.Int(da.AttributeID)
		if err != nil {
			return nil, fmt.Errorf("SampleDataArray AttributeID: %w", err)
		}
		for label, col := range userColumns {
			if col.AttributeID != id {
				continue
			}
			v, err := col.Cast(da.DataValue)
			if err != nil {
				return nil, fmt.Errorf("SampleDataArray %q: %w", label, err)
			}
			info[label] = v
		}
	}
	return info, nil
}
