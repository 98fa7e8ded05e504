package main

import (
	"os"

	"github.com/aretw0/canopy/internal/cli"
	"github.com/aretw0/canopy/pkg/runner"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <definition>",
	Short: "Tick entities through a tree and print their state",
	Long: `Loads the definition, spawns --entities blackboard entities and ticks
them every --interval, printing each entity's tree after every pass.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cli.Execute(runOptions(cmd, args[0]))
	},
}

func runOptions(cmd *cobra.Command, path string) cli.RunOptions {
	flags := cmd.Flags()
	opts := cli.RunOptions{Path: path, Output: cmd.OutOrStdout()}
	opts.Entities, _ = flags.GetInt("entities")
	opts.Passes, _ = flags.GetInt("passes")
	opts.Interval, _ = flags.GetDuration("interval")
	opts.Headless, _ = flags.GetBool("headless")
	opts.Data, _ = flags.GetString("data")
	opts.RedisAddr, _ = flags.GetString("redis")
	opts.RedisPrefix, _ = flags.GetString("redis-prefix")
	opts.RedisTTL, _ = flags.GetDuration("redis-ttl")
	opts.Resume, _ = flags.GetBool("resume")
	opts.Release, _ = flags.GetBool("release")
	opts.EncryptionKey, _ = flags.GetString("encryption-key")
	opts.FallbackKeys, _ = flags.GetStringSlice("fallback-key")
	opts.Mask, _ = flags.GetStringSlice("mask")
	opts.Debug, _ = flags.GetBool("debug")
	opts.LogLevel, _ = flags.GetString("log-level")
	return opts
}

func addRunFlags(cmd *cobra.Command, passes int) {
	cmd.Flags().IntP("entities", "n", 1, "Number of entities to spawn")
	cmd.Flags().Int("passes", passes, "Stop after this many passes (0 runs until interrupted)")
	cmd.Flags().Duration("interval", runner.DefaultInterval, "Time between passes")
	cmd.Flags().String("data", "", "JSON object copied into every new blackboard")
	cmd.Flags().String("redis", "", "Redis address for snapshot exchange")
	cmd.Flags().String("redis-prefix", "", "Key prefix for snapshots in redis")
	cmd.Flags().Duration("redis-ttl", 0, "Expiration of stored snapshots (0 never expires)")
	cmd.Flags().Bool("resume", false, "Import every stored entity before spawning")
	cmd.Flags().Bool("release", false, "Export every entity to the store on exit")
	cmd.Flags().String("encryption-key", os.Getenv("CANOPY_ENCRYPTION_KEY"), "Base64 AES-256 key sealing stored snapshots")
	cmd.Flags().StringSlice("fallback-key", nil, "Base64 keys of rotated snapshots (repeatable)")
	cmd.Flags().StringSlice("mask", nil, "Regular expressions of data keys masked before storing")
}

func init() {
	rootCmd.AddCommand(runCmd)
	addRunFlags(runCmd, 10)
	runCmd.Flags().Bool("headless", false, "Print one status line per entity and pass")
}
