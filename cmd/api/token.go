package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"inkwell/api/internal/app"
	"inkwell/api/internal/store"
)

var tokenCmd = &cobra.Command{
	Use:   "token <name>",
	Short: "Issue a bearer token for a user name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc := app.New(cfg, app.Deps{Store: store.NewMemoryStore(), Logger: logger})
		defer svc.Close(cmd.Context())

		identity, token, err := svc.Login(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "user\t%s\ntoken\t%s\n", identity.UserID, token)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)
}
