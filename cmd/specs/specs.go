package specs

import (
	"github.com/spf13/cobra"

	"github.com/jaja2302/Palm-counting-AI/internal/session"
)

// Command prints the hardware summary or a load sample.
func Command(env *session.Env) *cobra.Command {
	var realtime bool

	cmd := &cobra.Command{
		Use:   "specs",
		Short: "Show system hardware",
		Long:  "Print CPU, RAM and GPU details as JSON. With --realtime, print one CPU/GPU load sample instead.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := env.Open(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer func() { _ = sess.Close() }()

			if realtime {
				usage, err := sess.App.GetRealtimeUsage(cmd.Context())
				if err != nil {
					return err
				}
				return env.PrintJSON(usage)
			}
			s, err := sess.App.GetSpecs(cmd.Context())
			if err != nil {
				return err
			}
			return env.PrintJSON(s)
		},
	}

	cmd.Flags().BoolVar(&realtime, "realtime", false, "Sample current CPU/GPU load")
	return cmd
}
