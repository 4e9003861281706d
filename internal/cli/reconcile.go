package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nhle/calsync/internal/model"
	appsync "github.com/nhle/calsync/internal/sync"
)

func reconcileCmd(g *globals) *cobra.Command {
	var (
		connectionID string
		userID       string
		calendars    []string
		deleted      []string
		asJSON       bool
	)

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Reconcile staged events for a connection into tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			conn, err := a.Store.GetConnection(cmd.Context(), connectionID)
			if err != nil {
				return err
			}
			provider, err := model.ParseProvider(conn.Provider)
			if err != nil {
				return err
			}

			res, err := a.Engine.Reconcile(cmd.Context(), appsync.Request{
				ConnectionID:       connectionID,
				UserID:             userID,
				Provider:           provider,
				CalendarIDs:        calendars,
				DeletedExternalIDs: deleted,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(res); err != nil {
					return err
				}
			} else {
				fmt.Fprintln(out, res.Summary())
			}

			if res.HasErrors() {
				return fmt.Errorf("reconcile finished with %d error(s)", len(res.Errors))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&connectionID, "connection", "", "Connection id")
	cmd.Flags().StringVar(&userID, "user", "", "Requesting user id")
	cmd.Flags().StringSliceVar(&calendars, "calendar", nil, "Only reconcile these calendars")
	cmd.Flags().StringSliceVar(&deleted, "deleted", nil, "External ids deleted upstream")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	_ = cmd.MarkFlagRequired("connection")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
