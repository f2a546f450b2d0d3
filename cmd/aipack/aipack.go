// Package aipack implements the aipack command: download, status and path
// of the inference runtime pack.
package aipack

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jaja2302/Palm-counting-AI/internal/session"
)

// Command creates the aipack command and its subcommands.
func Command(env *session.Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "aipack",
		Short: "Install and inspect the AI pack",
	}
	cmd.AddCommand(downloadCommand(env), statusCommand(env), pathCommand(env))
	return cmd
}

func downloadCommand(env *session.Env) *cobra.Command {
	var baseURL string

	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download and install the AI pack",
		Long: `Download the AI pack from the pack server, resuming a previous partial
download when possible. Progress is streamed as JSON lines. Ctrl+C pauses the
download; running the command again resumes it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			outcome := &session.Outcome{}
			sess, err := env.Open(cmd.Context(), true, outcome)
			if err != nil {
				return err
			}
			defer func() { _ = sess.Close() }()

			stop := session.OnInterrupt(sess.App.PauseDownloadAIPack)
			defer stop()

			if err := sess.App.StartDownloadAIPack(baseURL); err != nil {
				return err
			}
			sess.App.Wait()

			if outcome.PackPaused() {
				fmt.Fprintln(env.Stderr, "download paused; run again to resume")
			}
			return outcome.PackErr()
		},
	}

	cmd.Flags().StringVar(&baseURL, "base-url", "", "Pack server base URL (default from settings)")
	return cmd
}

type status struct {
	Installed bool   `json:"installed"`
	Path      string `json:"path"`
}

func statusCommand(env *session.Env) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report whether a usable pack is installed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := env.Open(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer func() { _ = sess.Close() }()

			dir, _ := sess.App.GetAIPackPath()
			return env.PrintJSON(status{Installed: sess.App.CheckAIPackInstalled(), Path: dir})
		},
	}
}

func pathCommand(env *session.Env) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the pack binaries directory",
		Long:  "Print the binaries directory. Exits with an error if it does not exist yet.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := env.Open(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer func() { _ = sess.Close() }()

			dir, ok := sess.App.GetAIPackPath()
			if _, err := fmt.Fprintln(env.Stdout, dir); err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("AI pack directory does not exist: %s", dir)
			}
			return nil
		},
	}
}
