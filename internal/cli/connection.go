package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nhle/calsync/internal/model"
)

func connectionCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "connection",
		Short: "Manage calendar connections",
	}
	cmd.AddCommand(connectionAddCmd(g))
	return cmd
}

func connectionAddCmd(g *globals) *cobra.Command {
	var id, user, provider string

	providers := make([]string, 0, len(model.Providers))
	for _, p := range model.Providers {
		providers = append(providers, p.String())
	}

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a calendar connection for a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			conn, err := a.Store.CreateConnection(cmd.Context(), model.Connection{
				ID:       id,
				UserID:   user,
				Provider: provider,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), conn.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "Connection id (generated when empty)")
	cmd.Flags().StringVar(&user, "user", "", "Owning user id")
	cmd.Flags().StringVar(&provider, "provider", "", "Calendar provider: "+strings.Join(providers, ", "))
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("provider")

	return cmd
}
