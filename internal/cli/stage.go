package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nhle/calsync/internal/ics"
)

func stageCmd(g *globals) *cobra.Command {
	var (
		connectionID string
		calendarID   string
		file         string
		horizonDays  int
	)

	cmd := &cobra.Command{
		Use:   "stage",
		Short: "Stage events from an .ics file for a connection",
		Long: `Reads an iCalendar file and writes its events into the staging table.
Recurring events are expanded from now until the horizon. Cancelled events
are staged as deleted so the next reconcile removes their tasks.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.NewStager().StageFile(cmd.Context(), file, ics.Options{
				ConnectionID:    connectionID,
				CalendarID:      calendarID,
				DefaultTimeZone: a.Config.Sync.DefaultTimeZone,
				Horizon:         time.Duration(horizonDays) * 24 * time.Hour,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "staged %d, cancelled %d, skipped %d\n",
				res.Staged, res.Cancelled, len(res.Skipped))
			return nil
		},
	}

	cmd.Flags().StringVar(&connectionID, "connection", "", "Connection id")
	cmd.Flags().StringVar(&calendarID, "calendar", "primary", "Calendar id to stage under")
	cmd.Flags().StringVar(&file, "file", "", "Path to the .ics file")
	cmd.Flags().IntVar(&horizonDays, "horizon-days", int(ics.DefaultHorizon/(24*time.Hour)), "Days of recurring events to expand")
	_ = cmd.MarkFlagRequired("connection")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}
