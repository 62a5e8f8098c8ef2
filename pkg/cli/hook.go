package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harrisonrobin/taskbridge/pkg/hook"
)

// NewHookCommand creates the hook command group for managing the
// Taskwarrior on-modify hook.
func NewHookCommand(rootOpts *RootOptions) *cobra.Command {
	var hooksDir string

	cmd := &cobra.Command{
		Use:   "hook",
		Short: "Manage the Taskwarrior hook that triggers sync on edits",
	}
	cmd.PersistentFlags().StringVar(&hooksDir, "hooks-dir", "", "Taskwarrior hooks directory (default ~/.task/hooks)")

	install := &cobra.Command{
		Use:   "install",
		Short: "Install the on-modify hook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			force, _ := cmd.Flags().GetBool("force")
			m, err := hook.NewManager(hooksDir)
			if err != nil {
				return err
			}
			if err := m.Install(force); err != nil {
				return err
			}
			fmt.Printf("Hook installed at %s\n", m.Path())
			return nil
		},
	}
	install.Flags().Bool("force", false, "overwrite an existing hook")

	remove := &cobra.Command{
		Use:   "remove",
		Short: "Remove the on-modify hook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := hook.NewManager(hooksDir)
			if err != nil {
				return err
			}
			if err := m.Remove(); err != nil {
				return err
			}
			fmt.Println("Hook removed.")
			return nil
		},
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show whether the hook is installed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := hook.NewManager(hooksDir)
			if err != nil {
				return err
			}
			if m.Installed() {
				fmt.Printf("Hook installed at %s\n", m.Path())
			} else {
				fmt.Printf("Hook not installed (expected at %s)\n", m.Path())
			}
			return nil
		},
	}

	cmd.AddCommand(install, remove, status)
	return cmd
}
