// Package cmd builds the command line interface. Every subcommand maps to one
// or more application commands; long-running ones stream events as JSON lines.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/jaja2302/Palm-counting-AI/cmd/aipack"
	"github.com/jaja2302/Palm-counting-AI/cmd/config"
	"github.com/jaja2302/Palm-counting-AI/cmd/models"
	"github.com/jaja2302/Palm-counting-AI/cmd/process"
	"github.com/jaja2302/Palm-counting-AI/cmd/queue"
	"github.com/jaja2302/Palm-counting-AI/cmd/specs"
	"github.com/jaja2302/Palm-counting-AI/cmd/version"
	"github.com/jaja2302/Palm-counting-AI/internal/conf"
	"github.com/jaja2302/Palm-counting-AI/internal/session"
)

// RootCommand creates and returns the root command
func RootCommand(env *session.Env) *cobra.Command {
	v := conf.NewViper()
	var configFile string

	rootCmd := &cobra.Command{
		Use:           "palm-counting-ai",
		Short:         "Palm counting AI pack manager and processing runner",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to config.yaml (default: working directory, then app data directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug output")
	rootCmd.PersistentFlags().String("datadir", "", "Override the application data directory")
	_ = v.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = v.BindPFlag("paths.datadir", rootCmd.PersistentFlags().Lookup("datadir"))

	versionCmd := version.Command(env)

	rootCmd.AddCommand(
		specs.Command(env),
		config.Command(env),
		models.Command(env),
		queue.Command(env),
		aipack.Command(env),
		process.Command(env),
		versionCmd,
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// version needs no configuration
		if cmd == versionCmd {
			return nil
		}
		settings, err := conf.Load(v, configFile)
		if err != nil {
			return err
		}
		*env.Settings = *settings
		return nil
	}

	return rootCmd
}
