package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of mhparse",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("mhparse %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
