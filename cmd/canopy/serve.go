package main

import (
	"github.com/aretw0/canopy/internal/cli"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve <definition>",
	Short: "Run entities behind the HTTP inspection API",
	Long: `Ticks entities like run while serving /entities, /graph, /metrics and
per-entity event streams over HTTP.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		port, _ := cmd.Flags().GetString("port")
		return cli.Serve(runOptions(cmd, args[0]), ":"+port)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	addRunFlags(serveCmd, 0)
	serveCmd.Flags().StringP("port", "p", "8080", "Port to listen on")
}
