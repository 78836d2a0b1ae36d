package main

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"cadence/internal/core/model"
	"cadence/internal/core/phase"
	"cadence/internal/storage"
)

func newPhasesCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "phases",
		Short: "List the configured phases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := c.settingsPath()
			if err != nil {
				return err
			}
			settings, err := storage.LoadSettings(path)
			if err != nil {
				return err
			}
			return renderPhases(cmd.OutOrStdout(), settings)
		},
	}
}

func renderPhases(w io.Writer, settings model.Settings) error {
	table := tablewriter.NewTable(w)
	table.Header("#", "Type", "Allocated", "Can overrun")

	for i, cfg := range settings.Phases {
		overrun := "no"
		if cfg.CanOverrun {
			overrun = "yes"
		}
		if err := table.Append(fmt.Sprint(i), cfg.Type.Label(), phase.FormatClock(cfg.Allocated), overrun); err != nil {
			return err
		}
	}

	if err := table.Render(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "tick: %s\n", settings.TickDuration)
	return err
}
