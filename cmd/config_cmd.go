package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"cadence/internal/config"
	"cadence/internal/core/model"
	"cadence/internal/storage"
)

func newConfigCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration files",
	}
	cmd.AddCommand(newConfigInitCmd(c))
	return cmd
}

func newConfigInitCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "init [path]",
		Short: "Write default config and phase settings files",
		Long: `Write a default config file (default $HOME/.cadence.yaml) and, when it
does not exist yet, a default phase settings file.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configInitPath(args)
			if err != nil {
				return err
			}
			if err := config.WriteDefault(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)

			settingsPath, err := c.settingsPath()
			if err != nil {
				return err
			}
			if _, err := os.Stat(settingsPath); err == nil {
				return nil
			} else if !errors.Is(err, os.ErrNotExist) {
				return err
			}
			if err := storage.SaveSettings(settingsPath, model.DefaultSettings()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", settingsPath)
			return nil
		},
	}
}

func configInitPath(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".cadence.yaml"), nil
}
