package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "referee",
	Short: "DroneOps competition referee",
	Long:  "referee scores a maritime robotics run: target reports, boundary violations, time penalties and the run clock.",
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(journalCmd)
	rootCmd.AddCommand(dashboardCmd)
}
