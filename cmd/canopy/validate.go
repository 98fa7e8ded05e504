package main

import (
	"fmt"

	"github.com/aretw0/canopy"
	"github.com/aretw0/canopy/internal/cli"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <definition>",
	Short: "Check the definition for consistency",
	Long:  `Compiles the definition against the builtin actions and reports the tree's node count and per-entity memory.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := canopy.New(args[0], canopy.WithRegistry(cli.Builtins(cmd.OutOrStdout())))
		if err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		tree := engine.Tree()
		fmt.Fprintf(cmd.OutOrStdout(), "Tree %q is valid: %d nodes, %d bytes of nodes, snapshot of %d bytes per entity\n",
			engine.Name, tree.NumNodes(), tree.TreeSize(), tree.NumNodes()*(1+tree.MaxBlobSize()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
