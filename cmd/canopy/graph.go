package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/canopy"
	"github.com/aretw0/canopy/internal/cli"
	"github.com/aretw0/canopy/internal/presentation/graph"
	"github.com/spf13/cobra"
)

var graphCmd = &cobra.Command{
	Use:   "graph <definition>",
	Short: "Export the tree visualization",
	Long:  `Compiles the definition and outputs a Mermaid diagram (graph TD), or an indented outline with --format text.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")

		engine, err := canopy.New(args[0], canopy.WithRegistry(cli.Builtins(cmd.OutOrStdout())))
		if err != nil {
			return err
		}
		nodes := engine.Structure()

		switch format {
		case "mermaid":
			fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(nodes, nil))
		case "text":
			fmt.Fprintln(cmd.OutOrStdout(), strings.Join(graph.Render(nodes, 0), "\n"))
		default:
			return fmt.Errorf("unknown format %q (want mermaid or text)", format)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().StringP("format", "f", "mermaid", "Output format: mermaid or text")
}
