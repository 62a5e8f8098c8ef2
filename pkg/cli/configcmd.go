package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/harrisonrobin/taskbridge/pkg/config"
	"github.com/harrisonrobin/taskbridge/pkg/mapper"
)

// NewConfigCommand creates the config command group.
func NewConfigCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage taskbridge configuration",
	}
	cmd.AddCommand(newConfigInitCommand())
	cmd.AddCommand(newConfigPathCommand())
	return cmd
}

func newConfigInitCommand() *cobra.Command {
	var withMapping bool
	var template string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		Long: `Write a default configuration file to the config directory.

With --with-mapping, the built-in field mapping table is also exported as
mapping.yaml next to it and referenced from the config, ready for editing.
--template selects which built-in table to export.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.Path()
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("config already exists at %s", path)
			}

			cfg := config.Default()
			if withMapping {
				table, err := mapper.NamedTable(template)
				if err != nil {
					return err
				}
				dir, err := config.Dir()
				if err != nil {
					return err
				}
				mappingPath := filepath.Join(dir, "mapping.yaml")
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return err
				}
				if err := mapper.SaveTable(mappingPath, table); err != nil {
					return err
				}
				cfg.MappingFile = mappingPath
				fmt.Printf("Mapping table written to %s\n", mappingPath)
			}

			if err := config.Save(cfg); err != nil {
				return err
			}
			fmt.Printf("Config written to %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&withMapping, "with-mapping", false, "also export the mapping table as mapping.yaml")
	cmd.Flags().StringVar(&template, "template", "default", "mapping template to export (default or simple)")
	return cmd
}

func newConfigPathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.Path()
			if err != nil {
				return err
			}
			fmt.Println(path)
			return nil
		},
	}
}
