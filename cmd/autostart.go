package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"cadence/internal/platform"
)

func newAutostartCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "autostart",
		Short: "Launch the timer when you log in",
	}

	var args []string
	enable := &cobra.Command{
		Use:   "enable",
		Short: "Install a login item that runs the timer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			execPath, err := os.Executable()
			if err != nil {
				return fmt.Errorf("resolve executable: %w", err)
			}
			item := platform.LoginItem{Name: appName, Exec: execPath, Args: args}
			if err := platform.EnableLoginItem(item); err != nil {
				return err
			}
			c.logger.Info().Str("exec", execPath).Strs("args", args).Msg("login item enabled")
			fmt.Fprintln(cmd.OutOrStdout(), "autostart enabled")
			return nil
		},
	}
	enable.Flags().StringSliceVar(&args, "args", []string{"run"}, "arguments passed at login")

	disable := &cobra.Command{
		Use:   "disable",
		Short: "Remove the login item",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := platform.DisableLoginItem(appName); err != nil {
				return err
			}
			c.logger.Info().Msg("login item disabled")
			fmt.Fprintln(cmd.OutOrStdout(), "autostart disabled")
			return nil
		},
	}

	cmd.AddCommand(enable, disable)
	return cmd
}
