// Package main is the entry point for the mhparse CLI, which inspects
// Agilent MassHunter data files: CEF compound exchange documents,
// worklists, and qualitative analysis CSV exports.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/mhtools/mhparse/pkg/logger"
)

// version is set at build time via ldflags.
var version = "dev"

// log is the process-wide logger, built in PersistentPreRunE.
var log *zap.Logger

var rootCmd = &cobra.Command{
	Use:   "mhparse",
	Short: "Inspect MassHunter instrument data files",
	Long: `mhparse parses the file formats written by Agilent MassHunter and prints
their contents as JSON or YAML.

Each file family is a subcommand: cef for compound exchange documents,
worklist for acquisition worklists, and csv for qualitative analysis
exports.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := logger.Default()
		if v := viper.GetString("log-level"); v != "" {
			cfg.Level = v
		}
		cfg.Filename = viper.GetString("log-file")

		l, err := logger.New(cfg)
		if err != nil {
			return err
		}
		log = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./mhparse.yaml or ~/.config/mhparse/config.yaml)")
	rootCmd.PersistentFlags().String("format", "json", "output format: json or yaml")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, or error")
	rootCmd.PersistentFlags().String("log-file", "", "also write log entries to this file")

	_ = viper.BindPFlag("format", rootCmd.PersistentFlags().Lookup("format"))
	_ = viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log-file", rootCmd.PersistentFlags().Lookup("log-file"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("mhparse")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "mhparse"))
		}
	}

	viper.SetEnvPrefix("MHPARSE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// emit writes v to stdout in the configured output format.
func emit(v any) error {
	switch format := viper.GetString("format"); format {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(os.Stdout)
		defer enc.Close()
		return enc.Encode(v)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
