// Package process implements the process command that runs detection over
// TIFF files through the inference sidecar.
package process

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jaja2302/Palm-counting-AI/internal/session"
)

// Command creates the process command.
func Command(env *session.Env) *cobra.Command {
	var (
		fromQueue bool
		modelName string
	)

	cmd := &cobra.Command{
		Use:   "process [file...]",
		Short: "Count palms in TIFF files",
		Long: `Run the active model over the given files, or over the work queue with
--queue. Progress is streamed as JSON lines. Ctrl+C cancels the run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			outcome := &session.Outcome{}
			sess, err := env.Open(cmd.Context(), true, outcome)
			if err != nil {
				return err
			}
			defer func() { _ = sess.Close() }()

			files := args
			if fromQueue {
				queued, err := sess.App.ListTiffPaths(cmd.Context())
				if err != nil {
					return err
				}
				files = append(files, queued...)
			}

			stop := session.OnInterrupt(sess.App.CancelProcessing)
			defer stop()

			if err := sess.App.RunProcessing(cmd.Context(), files, modelName); err != nil {
				return err
			}
			sess.App.Wait()

			done := outcome.Done()
			if done == nil {
				return fmt.Errorf("processing ended without a result")
			}
			if done.Total > 0 && done.Successful == 0 {
				return fmt.Errorf("no file processed successfully (%d failed)", done.Failed)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&fromQueue, "queue", false, "Also process every file in the work queue")
	cmd.Flags().StringVar(&modelName, "model-name", "", "Name used for output folders (default: active model name)")
	return cmd
}
