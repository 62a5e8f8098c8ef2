package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	tasks "google.golang.org/api/tasks/v1"

	"github.com/harrisonrobin/taskbridge/pkg/auth"
)

// NewAuthCommand creates the auth command group.
func NewAuthCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage Google authorization",
	}
	cmd.AddCommand(newAuthLoginCommand())
	cmd.AddCommand(newAuthLogoutCommand())
	return cmd
}

func newAuthLoginCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authorize taskbridge against your Google account",
		Long: `Authorize taskbridge against your Google account.

Opens a browser for the OAuth consent flow and caches the resulting token
in the config directory. Requires credentials.json from the Google Cloud
console next to it. With --force the cached token is discarded first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if force {
				if err := auth.RemoveToken(); err != nil {
					return err
				}
			}
			_, err := auth.GetClient(cmd.Context(), []string{tasks.TasksScope})
			if err != nil {
				return err
			}
			fmt.Println("Authorization successful.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "discard the cached token and re-authorize")
	return cmd
}

func newAuthLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the cached Google token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := auth.RemoveToken(); err != nil {
				return err
			}
			fmt.Println("Token removed.")
			return nil
		},
	}
}
