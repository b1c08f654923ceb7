package main

import (
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/vango-dev/loom/internal/config"
	"github.com/vango-dev/loom/internal/errors"
)

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage loom configuration",
	}
	cmd.AddCommand(configInitCmd())
	return cmd
}

func configInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Write a default loom.toml",
		Long: `Write a loom.toml holding every default value.

Examples:
  loom config init
  loom config init ./deploy --force`,
		Args: cobra.MaximumNArgs(1),
		// The file being written is not loaded first.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			path, err := writeDefaultConfig(dir, force)
			if err != nil {
				return err
			}
			success("Wrote %s", path)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")

	return cmd
}

func writeDefaultConfig(dir string, force bool) (string, error) {
	path := filepath.Join(dir, config.ConfigFileName)
	if !force && config.Exists(dir) {
		return "", errors.New("E060").
			WithDetail("A loom configuration already exists in " + dir).
			WithSuggestion("Pass --force to overwrite it")
	}
	if err := config.New().SaveTo(path); err != nil {
		return "", err
	}
	return path, nil
}
