package version

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/jaja2302/Palm-counting-AI/internal/session"
)

// Command prints build metadata.
func Command(env *session.Env) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(env.Stdout, "palm-counting-ai %s (built %s, %s, %s/%s)\n",
				env.Build.GetVersion(), env.Build.GetBuildDate(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
			return err
		},
	}
}
