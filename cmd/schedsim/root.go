package main

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "schedsim",
	Short: "Simulate CPU scheduling policies on a virtual clock.",
	Long: `Schedsim simulates one CPU multiplexed across processes under ` +
		`Round-Robin or preemptive-priority scheduling. Runs are ` +
		`deterministic: the engine advances a virtual clock, so the same ` +
		`workload always produces the same timeline and metrics.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		atexit.Exit(1)
	}
	atexit.Exit(0)
}

// heading styles a section title when stdout is a terminal.
func heading(s string) string {
	if isatty.IsTerminal(os.Stdout.Fd()) {
		return "\x1b[1;32m" + s + "\x1b[0m"
	}

	return s
}

func dieOnErr(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		atexit.Exit(1)
	}
}
