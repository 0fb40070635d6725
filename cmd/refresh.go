package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Clear cached board data so the next query fetches fresh data",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, closeFn, err := newAgent(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()
		msg, err := a.Refresh(cmd.Context())
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), msg)
		return err
	},
}

func init() {
	rootCmd.AddCommand(refreshCmd)
}
