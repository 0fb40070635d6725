package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/boardsight/internal/utils"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check Monday.com connectivity and show the active configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, closeFn, err := newAgent(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()
		b, err := utils.PrettyJSON(a.Health(cmd.Context()))
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(b))
		return err
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
