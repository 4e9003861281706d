package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func detachCmd(g *globals) *cobra.Command {
	var (
		taskID string
		undo   bool
	)

	cmd := &cobra.Command{
		Use:   "detach",
		Short: "Stop calendar sync from touching a task",
		Long: `A detached task keeps its name and schedule no matter what happens to the
calendar event it came from, including deletion. Use --undo to reattach it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Store.SetTaskDetached(cmd.Context(), taskID, !undo); err != nil {
				return err
			}

			state := "detached"
			if undo {
				state = "attached"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "task %s %s\n", taskID, state)
			return nil
		},
	}

	cmd.Flags().StringVar(&taskID, "task", "", "Task id")
	cmd.Flags().BoolVar(&undo, "undo", false, "Reattach the task")
	_ = cmd.MarkFlagRequired("task")

	return cmd
}
