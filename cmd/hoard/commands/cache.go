package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/hoard/internal/app"
)

func (c *CLI) newAcquireCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "acquire <key>...",
		Short: "Load and lease artifacts, then print the cache state",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.app.Acquire(cmd.Context(), args)
		},
	}
}

func (c *CLI) newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Preload the configured artifacts and print the cache state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.app.Status(cmd.Context())
		},
	}
}

func (c *CLI) newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve cache introspection and metrics over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			listen, _ := cmd.Flags().GetString("listen")
			noWatch, _ := cmd.Flags().GetBool("no-watch")
			return c.app.Serve(cmd.Context(), app.ServeOptions{
				Listen:  listen,
				NoWatch: noWatch,
			})
		},
	}
	cmd.Flags().StringP("listen", "l", "", "Address to listen on, overrides the settings file")
	cmd.Flags().Bool("no-watch", false, "Do not watch the models directory for changes")
	return cmd
}
