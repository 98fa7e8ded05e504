package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "canopy",
	Short: "Canopy runs behavior trees over many entities",
	Long: `Canopy compiles a YAML or JSON behavior tree definition and ticks a
population of blackboard entities through it, keeping each entity's node
state in its own store.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().Bool("debug", false, "Log node lifecycle events to stderr")
	rootCmd.PersistentFlags().String("log-level", "", "Log level on stderr (debug, info, warn, error); silent when empty")
}
