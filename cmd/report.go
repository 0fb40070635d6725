package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/boardsight/internal/utils"
)

var (
	reportOutput string
	reportJSON   bool
	reportPlain  bool
)

type reportDoc struct {
	GeneratedAt     time.Time `json:"generated_at"`
	WorkOrdersBoard string    `json:"work_orders_board"`
	DealsBoard      string    `json:"deals_board"`
	Markdown        string    `json:"markdown"`
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate the leadership update report",
	Example: `  boardsight report
  boardsight report --output reports/weekly.md
  boardsight report --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, closeFn, err := newAgent(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()

		md := a.Report(cmd.Context())
		out := []byte(md)
		if reportJSON {
			work, deals := a.BoardIDs()
			b, err := utils.PrettyJSON(reportDoc{GeneratedAt: time.Now(), WorkOrdersBoard: work, DealsBoard: deals, Markdown: md})
			if err != nil {
				return err
			}
			out = b
		}
		if reportOutput != "" {
			if err := utils.SafeWriteFile(reportOutput, out); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "✓ Report written to %s\n", reportOutput)
			return nil
		}
		if reportJSON {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return err
		}
		return renderMarkdown(cmd.OutOrStdout(), md, reportPlain)
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().StringVarP(&reportOutput, "output", "o", "", "write the report to a file instead of stdout")
	reportCmd.Flags().BoolVar(&reportJSON, "json", false, "emit the report wrapped in JSON")
	reportCmd.Flags().BoolVar(&reportPlain, "plain", false, "print raw markdown instead of terminal styling")
}
