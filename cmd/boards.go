package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var (
	boardsFind    string
	boardsColumns string
)

var boardsCmd = &cobra.Command{
	Use:   "boards",
	Short: "List Monday.com boards visible to the API key",
	Example: `  boardsight boards
  boardsight boards --find "work order"
  boardsight boards --columns 1234567890`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		mc := newMondayClient(c, logger)
		w := cmd.OutOrStdout()
		if boardsColumns != "" {
			cols, err := mc.BoardColumns(cmd.Context(), boardsColumns)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTITLE\tTYPE")
			for _, c := range cols {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", c.ID, c.Title, c.Type)
			}
			return tw.Flush()
		}
		if boardsFind != "" {
			b, err := mc.FindBoardByName(cmd.Context(), boardsFind)
			if err != nil {
				return err
			}
			if b == nil {
				return fmt.Errorf("no board name contains %q", boardsFind)
			}
			_, err = fmt.Fprintf(w, "%s\t%s\n", b.ID, b.Name)
			return err
		}
		boards, err := mc.Boards(cmd.Context())
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tKIND\tCOLUMNS")
		for _, b := range boards {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", b.ID, b.Name, b.Kind, len(b.Columns))
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(boardsCmd)
	boardsCmd.Flags().StringVar(&boardsColumns, "columns", "", "list the columns of the board with this id")
	boardsCmd.Flags().StringVar(&boardsFind, "find", "", "print the first board whose name contains this text")
}
