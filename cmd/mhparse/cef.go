package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mhtools/mhparse/internal/cef"
)

type cefCompoundReport struct {
	Index     int      `json:"index" yaml:"index"`
	Algorithm string   `json:"algorithm" yaml:"algorithm"`
	RT        *float64 `json:"rt,omitempty" yaml:"rt,omitempty"`
	Name      string   `json:"name,omitempty" yaml:"name,omitempty"`
	Formula   string   `json:"formula,omitempty" yaml:"formula,omitempty"`
	Score     *float64 `json:"score,omitempty" yaml:"score,omitempty"`
	Flag      string   `json:"flag,omitempty" yaml:"flag,omitempty"`
	Severity  string   `json:"severity,omitempty" yaml:"severity,omitempty"`
	Spectra   int      `json:"spectra" yaml:"spectra"`
}

type cefReport struct {
	File       string              `json:"file" yaml:"file"`
	Instrument string              `json:"instrument" yaml:"instrument"`
	Compounds  []cefCompoundReport `json:"compounds" yaml:"compounds"`
}

var cefCmd = &cobra.Command{
	Use:   "cef <file>",
	Short: "Parse a compound exchange (CEF) document",
	Long: `Cef parses a compound exchange document and prints one record per
detected compound: retention time, best candidate identity with its
score, and any quality flag.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		flaggedOnly, _ := cmd.Flags().GetBool("flagged")

		warn := log.Sugar().Warnf
		list, err := cef.ParseFile(args[0], cef.WithWarn(warn))
		if err != nil {
			return err
		}
		log.Info("parsed compound exchange document",
			zap.String("file", args[0]),
			zap.String("instrument", list.Instrument()),
			zap.Int("compounds", list.Len()))

		report := cefReport{File: args[0], Instrument: list.Instrument()}
		for i, c := range list.All() {
			if flaggedOnly && c.Flag == nil {
				continue
			}
			report.Compounds = append(report.Compounds, describeCompound(i, c))
		}
		return emit(report)
	},
}

func describeCompound(i int, c cef.Compound) cefCompoundReport {
	r := cefCompoundReport{
		Index:     i,
		Algorithm: c.Algorithm,
		Spectra:   len(c.Spectra),
	}
	if rt, ok := c.RT(); ok {
		r.RT = &rt
	}
	if scores := c.MatchScores(); len(scores) > 0 {
		best := scores[0]
		for _, pair := range scores[1:] {
			if pair.Score.Value > best.Score.Value {
				best = pair
			}
		}
		r.Name = best.Molecule.Name
		r.Formula = best.Molecule.Formula
		v := best.Score.Value
		r.Score = &v
	}
	if c.Flag != nil {
		r.Flag = c.Flag.Text
		r.Severity = c.Flag.Severity.String()
	}
	return r
}

func init() {
	cefCmd.Flags().Bool("flagged", false, "only print compounds carrying a quality flag")

	rootCmd.AddCommand(cefCmd)
}
