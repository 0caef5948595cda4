package main

import (
	"os"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mhtools/mhparse/internal/qualcsv"
)

type csvSampleReport struct {
	Name      string   `json:"name" yaml:"name"`
	Type      string   `json:"type,omitempty" yaml:"type,omitempty"`
	File      string   `json:"file,omitempty" yaml:"file,omitempty"`
	Compounds []string `json:"compounds" yaml:"compounds"`
}

type csvCompoundReport struct {
	Name   string             `json:"name" yaml:"name"`
	Areas  qualcsv.Stats      `json:"areas" yaml:"areas"`
	Scores qualcsv.Stats      `json:"scores" yaml:"scores"`
	RTs    map[string]float64 `json:"retentionTimes" yaml:"retentionTimes"`
}

type csvReport struct {
	File     string             `json:"file" yaml:"file"`
	Samples  []csvSampleReport  `json:"samples" yaml:"samples"`
	Compound *csvCompoundReport `json:"compound,omitempty" yaml:"compound,omitempty"`
}

var csvCmd = &cobra.Command{
	Use:   "csv <file>",
	Short: "Parse a qualitative analysis CSV export",
	Long: `Csv parses a qualitative analysis CSV export and prints the samples it
contains with the compounds identified in each. With --compound, it also
summarizes that compound's peak areas and scores across all samples.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		compound, _ := cmd.Flags().GetString("compound")

		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		samples, err := qualcsv.Read(f)
		if err != nil {
			return err
		}
		log.Info("parsed qualitative analysis export",
			zap.String("file", args[0]),
			zap.Int("samples", len(samples)),
			zap.Int("compounds", len(samples.Compounds())))

		report := csvReport{File: args[0]}
		for _, s := range samples {
			names := make([]string, 0, len(s.Results()))
			for _, r := range s.Results() {
				names = append(names, r.Name)
			}
			sort.Strings(names)
			report.Samples = append(report.Samples, csvSampleReport{
				Name:      s.Name,
				Type:      s.Type,
				File:      s.Filename,
				Compounds: names,
			})
		}
		if compound != "" {
			report.Compound = &csvCompoundReport{
				Name:   compound,
				Areas:  samples.AreaStats(compound),
				Scores: samples.ScoreStats(compound),
				RTs:    samples.RetentionTimes(compound),
			}
		}
		return emit(report)
	},
}

func init() {
	csvCmd.Flags().String("compound", "", "summarize this compound across all samples")

	rootCmd.AddCommand(csvCmd)
}
