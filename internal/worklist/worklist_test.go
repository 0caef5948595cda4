package worklist

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const demoWorklist = `<?xml version="1.0" encoding="utf-8"?>
<WorkListManager xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance">
  <Version>6</Version>
  <WorklistInfo>
    <LockedRunMode>-1</LockedRunMode>
    <Instrument>QTOF</Instrument>
    <Params>
      <OperatorName>LCMS</OperatorName>
      <RunType>0</RunType>
      <MethodExecutionType>Both</MethodExecutionType>
      <AcqMethodPath>D:\MassHunter\Methods\Default.m</AcqMethodPath>
      <DAMethodPath></DAMethodPath>
      <ExportOutputPath></ExportOutputPath>
      <CombineExportOutput>0</CombineExportOutput>
      <CombinedExportOutputFile></CombinedExportOutputFile>
      <CombineOutputByPlate>0</CombineOutputByPlate>
      <SynchronousExecution>0</SynchronousExecution>
      <StopWorklistOnDAError>0</StopWorklistOnDAError>
      <OverlappedInjections>0</OverlappedInjections>
      <UseBarcode>0</UseBarcode>
      <InjectOnBarcodeMismatch>0</InjectOnBarcodeMismatch>
      <ThresholdDiskSpace>100</ThresholdDiskSpace>
      <ReadyTimeOut>30</ReadyTimeOut>
      <ClearRunCheckBox>0</ClearRunCheckBox>
      <UsePreWorklistMacro>0</UsePreWorklistMacro>
      <PreWorklistMacro>
        <ProjectName></ProjectName>
        <ProcedureName></ProcedureName>
        <InputParameter></InputParameter>
        <OutputDataType>0</OutputDataType>
        <OutputParameter></OutputParameter>
        <DisplayString></DisplayString>
      </PreWorklistMacro>
      <UsePostWorklistMacro>0</UsePostWorklistMacro>
      <PostWorklistMacro>
        <ProjectName></ProjectName>
        <ProcedureName></ProcedureName>
        <InputParameter></InputParameter>
        <OutputDataType>0</OutputDataType>
        <OutputParameter></OutputParameter>
        <DisplayString></DisplayString>
      </PostWorklistMacro>
      <RunAcqCleanMacroOnError>0</RunAcqCleanMacroOnError>
      <AcqCleanMacro>
        <ProjectName></ProjectName>
        <ProcedureName></ProcedureName>
        <InputParameter></InputParameter>
        <OutputDataType>0</OutputDataType>
        <OutputParameter></OutputParameter>
        <DisplayString></DisplayString>
      </AcqCleanMacro>
      <UsePostAnalysisMacro>0</UsePostAnalysisMacro>
      <PostAnalysisMacro>
        <ProjectName></ProjectName>
        <ProcedureName></ProcedureName>
        <InputParameter></InputParameter>
        <OutputDataType>0</OutputDataType>
        <OutputParameter></OutputParameter>
        <DisplayString></DisplayString>
      </PostAnalysisMacro>
      <Description></Description>
      <PlateBarCodes></PlateBarCodes>
    </Params>
    <AttributeInformation>
      <Attributes>
        <AttributeID>28</AttributeID>
        <AttributeType>2</AttributeType>
        <FieldType>28</FieldType>
        <SystemName>Column28</SystemName>
        <HeaderName>Treatment</HeaderName>
        <DataType>8</DataType>
        <DefaultDataValue></DefaultDataValue>
        <ReorderID>22</ReorderID>
        <ShowHideStatus>1</ShowHideStatus>
        <ColumnWidth>100</ColumnWidth>
      </Attributes>
      <Attributes>
        <AttributeID>29</AttributeID>
        <AttributeType>2</AttributeType>
        <FieldType>29</FieldType>
        <SystemName>Column29</SystemName>
        <HeaderName>Concentration</HeaderName>
        <DataType>5</DataType>
        <DefaultDataValue>0</DefaultDataValue>
        <ReorderID>23</ReorderID>
        <ShowHideStatus>1</ShowHideStatus>
        <ColumnWidth>100</ColumnWidth>
      </Attributes>
    </AttributeInformation>
    <JobDataList>
      <JobData>
        <ID>{67a43774-f0b6-4473-8a2f-b65cdbe9b750}</ID>
        <JobType>1</JobType>
        <RunStatus>2</RunStatus>
        <SampleInfo>
          <Identifier></Identifier>
          <Name>Propranolol 10ug/mL</Name>
          <RackCode></RackCode>
          <RackPosition></RackPosition>
          <PlateCode>PlateOrVial</PlateCode>
          <PlatePosition>P1-A1</PlatePosition>
          <SamplePosition>P1-A1</SamplePosition>
          <AcqTime>2020-02-19T09:32:16+00:00</AcqTime>
          <SampleLockedRunMode>0</SampleLockedRunMode>
          <RunCompletedFlag>-1</RunCompletedFlag>
          <AcqMethod>D:\MassHunter\Methods\Default.m</AcqMethod>
          <DAMethod></DAMethod>
          <DataFileName>D:\MassHunter\Data\Propranolol.d</DataFileName>
          <SampleType>Sample</SampleType>
          <MethodExecutionType></MethodExecutionType>
          <BalanceType></BalanceType>
          <InjectionVolume>-1</InjectionVolume>
          <EquilibrationTime>0</EquilibrationTime>
          <DilutionFactor>1</DilutionFactor>
          <WeightPerVolume>0</WeightPerVolume>
          <Description></Description>
          <Barcode></Barcode>
          <Label></Label>
          <SampleDataArray>
            <AttributeID>28</AttributeID>
            <DataValue>Control</DataValue>
          </SampleDataArray>
          <SampleDataArray>
            <AttributeID>29</AttributeID>
            <DataValue>10.0</DataValue>
          </SampleDataArray>
        </SampleInfo>
      </JobData>
      <JobData>
        <ID>6b707a88-cddf-48a4-9c37-40a1512670e0</ID>
        <JobType>1</JobType>
        <RunStatus>0</RunStatus>
        <SampleInfo>
          <Identifier></Identifier>
          <Name>Blank</Name>
          <AcqTime></AcqTime>
          <SampleLockedRunMode>0</SampleLockedRunMode>
          <RunCompletedFlag>0</RunCompletedFlag>
          <SampleType></SampleType>
          <InjectionVolume>2</InjectionVolume>
          <Label></Label>
        </SampleInfo>
      </JobData>
    </JobDataList>
  </WorklistInfo>
  <Checksum SchemaVersion="1" ALGO_VERSION="2">
    <MAIN HASHCODE="ef0e32c847272f10da9d1e04ed8f08ae"/>
  </Checksum>
</WorkListManager>`

func TestRead(t *testing.T) {
	wl, err := Read(strings.NewReader(demoWorklist))
	require.NoError(t, err)

	assert.Equal(t, 6.0, wl.Version)
	assert.True(t, wl.LockedRunMode)
	assert.Equal(t, "QTOF", wl.Instrument)
	assert.Equal(t, Checksum{SchemaVersion: 1, AlgoVersion: 2, Hashcode: "ef0e32c847272f10da9d1e04ed8f08ae"}, wl.Checksum)

	assert.Equal(t, "LCMS", wl.Params.OperatorName)
	assert.Equal(t, 100, wl.Params.ThresholdDiskSpace)
	assert.Equal(t, 30, wl.Params.ReadyTimeOut)
	assert.False(t, wl.Params.UseBarcode)
	assert.True(t, wl.Params.PreWorklistMacro.Undefined())

	require.Len(t, wl.Jobs, 2)
}

func TestReadSampleInfo(t *testing.T) {
	wl, err := Read(strings.NewReader(demoWorklist))
	require.NoError(t, err)
	job := wl.Jobs[0]

	assert.Equal(t, uuid.MustParse("67a43774-f0b6-4473-8a2f-b65cdbe9b750"), job.ID)
	assert.Equal(t, 1, job.JobType)
	assert.Equal(t, 2, job.RunStatus)

	info := job.SampleInfo
	assert.Equal(t, "Propranolol 10ug/mL", info["Sample Name"])
	assert.Equal(t, "P1-A1", info["Sample Position"])
	assert.Equal(t, "Sample", info["Sample Type"])
	assert.Equal(t, `D:\MassHunter\Data\Propranolol.d`, info["Data File"])
	assert.Equal(t, true, info["Run Completed"])
	assert.Equal(t, false, info["Sample Locked Run Mode"])

	// -1 injection volume means the method's own value is used.
	assert.Equal(t, "As Method", info["Inj Vol (µl)"])

	want := time.Date(2020, 2, 19, 9, 32, 16, 0, time.UTC)
	got, ok := job.AcquiredTime()
	require.True(t, ok)
	assert.True(t, got.Equal(want), "AcquiredTime = %v, want %v", got, want)
}

func TestReadUserColumns(t *testing.T) {
	wl, err := Read(strings.NewReader(demoWorklist))
	require.NoError(t, err)

	require.Contains(t, wl.UserColumns, "Treatment")
	require.Contains(t, wl.UserColumns, "Concentration")
	assert.Equal(t, KindString, wl.UserColumns["Treatment"].Kind)
	assert.Equal(t, KindFloat, wl.UserColumns["Concentration"].Kind)

	info := wl.Jobs[0].SampleInfo
	assert.Equal(t, "Control", info["Treatment"])
	assert.Equal(t, 10.0, info["Concentration"])
}

func TestReadDefaultsAndEpoch(t *testing.T) {
	wl, err := Read(strings.NewReader(demoWorklist))
	require.NoError(t, err)
	info := wl.Jobs[1].SampleInfo

	// Empty cells take the column default.
	assert.Equal(t, "Unknown", info["Sample Type"])
	assert.Equal(t, 2, info["Inj Vol (µl)"])

	// A job that never ran carries the epoch.
	got, ok := wl.Jobs[1].AcquiredTime()
	require.True(t, ok)
	assert.True(t, got.Equal(time.Unix(0, 0)), "AcquiredTime = %v, want epoch", got)
}

func TestReadRejectsWrongRoot(t *testing.T) {
	_, err := Read(strings.NewReader(`<?xml version="1.0"?><CEF version="1.0.0.0"/>`))
	assert.ErrorIs(t, err, ErrUnrecognizedFormat)
}

func TestReadRejectsBadLockedRunMode(t *testing.T) {
	doc := strings.Replace(demoWorklist, "<LockedRunMode>-1</LockedRunMode>",
		"<LockedRunMode>7</LockedRunMode>", 1)
	_, err := Read(strings.NewReader(doc))
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestReadRejectsBadJobID(t *testing.T) {
	doc := strings.Replace(demoWorklist, "{67a43774-f0b6-4473-8a2f-b65cdbe9b750}",
		"not-a-uuid", 1)
	_, err := Read(strings.NewReader(doc))
	assert.ErrorIs(t, err, ErrMalformedValue)
}
