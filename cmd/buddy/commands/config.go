package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jholhewres/buddy/pkg/buddy/config"
)

// newConfigCmd creates the `buddy config` command group.
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}

	cmd.AddCommand(
		newConfigInitCmd(),
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration (secrets masked)",
			RunE:  runConfigShow,
		},
		&cobra.Command{
			Use:   "path",
			Short: "Print the config file in use",
			RunE:  runConfigPath,
		},
	)
	return cmd
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	data, err := cfg.Redacted().YAML()
	if err != nil {
		return fmt.Errorf("rendering config: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

func runConfigPath(cmd *cobra.Command, _ []string) error {
	_, path, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if path == "" {
		fmt.Fprintln(cmd.OutOrStdout(), "(none, using defaults)")
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}

func newConfigInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration to a file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			output, _ := cmd.Flags().GetString("output")
			force, _ := cmd.Flags().GetBool("force")

			if _, err := os.Stat(output); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", output)
			}
			data, err := config.DefaultConfig().YAML()
			if err != nil {
				return fmt.Errorf("rendering config: %w", err)
			}
			if err := os.WriteFile(output, data, 0o600); err != nil {
				return fmt.Errorf("writing config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Config written to %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringP("output", "o", "config.yaml", "file to write")
	cmd.Flags().Bool("force", false, "overwrite an existing file")
	return cmd
}
