// Package queue implements the queue command for pending TIFF files.
package queue

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jaja2302/Palm-counting-AI/internal/session"
)

// Command creates the queue command and its subcommands.
func Command(env *session.Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Manage the TIFF work queue",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List queued files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := env.Open(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer func() { _ = sess.Close() }()

			list, err := sess.App.ListTiffPaths(cmd.Context())
			if err != nil {
				return err
			}
			return env.PrintJSON(list)
		},
	}, &cobra.Command{
		Use:   "add <path>...",
		Short: "Queue files; already queued paths are skipped",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := env.Open(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer func() { _ = sess.Close() }()

			n, err := sess.App.AddTiffPaths(cmd.Context(), args)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(env.Stdout, "queued %d of %d\n", n, len(args))
			return err
		},
	}, &cobra.Command{
		Use:   "remove <path>",
		Short: "Remove a file from the queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := env.Open(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer func() { _ = sess.Close() }()

			return sess.App.RemoveTiffPath(cmd.Context(), args[0])
		},
	})

	return cmd
}
