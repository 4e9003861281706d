package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func watchCmd(g *globals) *cobra.Command {
	var schedule string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Reconcile configured connections on a schedule",
		Long: `Registers the connections from the config file, reconciles them once, then
keeps reconciling on the cron schedule until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if schedule == "" {
				schedule = a.Config.Sync.Schedule
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if _, err := a.RegisterConnections(ctx); err != nil {
				return err
			}

			runner := a.NewRunner()
			runner.RunAll(ctx)
			if err := runner.Start(schedule); err != nil {
				return err
			}

			<-ctx.Done()
			runner.Stop()

			out := cmd.OutOrStdout()
			for _, s := range runner.GetStatuses() {
				fmt.Fprintf(out, "%s: %s (%s)\n", s.ConnectionID, s.State, s.LastResult.Summary())
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&schedule, "schedule", "", "Cron expression (defaults to sync.schedule)")

	return cmd
}
