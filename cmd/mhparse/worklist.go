package main

import (
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mhtools/mhparse/internal/worklist"
)

type worklistJobReport struct {
	ID           string `json:"id" yaml:"id"`
	SampleName   string `json:"sampleName" yaml:"sampleName"`
	SampleType   string `json:"sampleType,omitempty" yaml:"sampleType,omitempty"`
	Position     string `json:"position,omitempty" yaml:"position,omitempty"`
	Method       string `json:"method,omitempty" yaml:"method,omitempty"`
	DataFile     string `json:"dataFile,omitempty" yaml:"dataFile,omitempty"`
	AcquiredTime string `json:"acquiredTime,omitempty" yaml:"acquiredTime,omitempty"`
	RunCompleted bool   `json:"runCompleted" yaml:"runCompleted"`
}

type worklistReport struct {
	File          string              `json:"file" yaml:"file"`
	Version       float64             `json:"version" yaml:"version"`
	Instrument    string              `json:"instrument" yaml:"instrument"`
	LockedRunMode bool                `json:"lockedRunMode" yaml:"lockedRunMode"`
	Operator      string              `json:"operator,omitempty" yaml:"operator,omitempty"`
	UserColumns   []string            `json:"userColumns,omitempty" yaml:"userColumns,omitempty"`
	Jobs          []worklistJobReport `json:"jobs" yaml:"jobs"`
}

var worklistCmd = &cobra.Command{
	Use:   "worklist <file>",
	Short: "Parse an acquisition worklist",
	Long: `Worklist parses an acquisition worklist and prints one record per
queued sample run: sample identity, vial position, method, data file,
and whether the run completed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		wl, err := worklist.Read(f)
		if err != nil {
			return err
		}
		log.Info("parsed worklist",
			zap.String("file", args[0]),
			zap.String("instrument", wl.Instrument),
			zap.Int("jobs", len(wl.Jobs)))

		report := worklistReport{
			File:          args[0],
			Version:       wl.Version,
			Instrument:    wl.Instrument,
			LockedRunMode: wl.LockedRunMode,
			Operator:      wl.Params.OperatorName,
		}
		for name := range wl.UserColumns {
			report.UserColumns = append(report.UserColumns, name)
		}
		sort.Strings(report.UserColumns)
		for _, job := range wl.Jobs {
			report.Jobs = append(report.Jobs, describeJob(job))
		}
		return emit(report)
	},
}

func describeJob(job worklist.JobData) worklistJobReport {
	r := worklistJobReport{ID: job.ID.String()}
	info := job.SampleInfo
	r.SampleName, _ = info["Sample Name"].(string)
	r.SampleType, _ = info["Sample Type"].(string)
	r.Position, _ = info["Sample Position"].(string)
	r.Method, _ = info["Method"].(string)
	r.DataFile, _ = info["Data File"].(string)
	r.RunCompleted, _ = info["Run Completed"].(bool)
	if t, ok := job.AcquiredTime(); ok && !t.Equal(time.Unix(0, 0)) {
		r.AcquiredTime = t.Format(time.RFC3339)
	}
	return r
}

func init() {
	rootCmd.AddCommand(worklistCmd)
}
