package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/boardsight/internal/agent"
	"github.com/KaramelBytes/boardsight/internal/utils"
)

var (
	chatDryRun bool
	chatPlain  bool
)

var chatCmd = &cobra.Command{
	Use:   "chat [question]",
	Short: "Ask a question about the boards, or start an interactive session",
	Example: `  boardsight chat "Which sector has the largest pipeline?"
  boardsight chat --dry-run "How many work orders are active?"
  boardsight chat`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, closeFn, err := newAgent(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		question := strings.TrimSpace(strings.Join(args, " "))
		if question != "" {
			return answer(ctx, a, cmd.OutOrStdout(), question)
		}
		return repl(ctx, a, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func answer(ctx context.Context, a *agent.Agent, w io.Writer, question string) error {
	if chatDryRun {
		p := a.Prompt(ctx, question)
		fmt.Fprint(os.Stderr, tokenReport(question, p))
		_, err := fmt.Fprintln(w, p)
		return err
	}
	return renderMarkdown(w, a.Chat(ctx, question), chatPlain)
}

// tokenReport estimates the tokens of each part of a dry-run prompt.
func tokenReport(question, prompt string) string {
	sections := map[string]string{
		"system":   agent.SystemPrompt,
		"question": question,
		"context":  strings.Replace(prompt, question, "", 1),
	}
	counts := utils.TokenBreakdown(sections)
	total := counts["system"] + counts["question"] + counts["context"]
	var b strings.Builder
	fmt.Fprintf(&b, "Estimated prompt tokens: %d\n", total)
	for _, k := range []string{"system", "context", "question"} {
		fmt.Fprintf(&b, "  %-8s %d\n", k, counts[k])
	}
	return b.String()
}

// repl reads one question per line until EOF or "exit". "/refresh" clears the
// cache and "/report" prints the leadership report.
func repl(ctx context.Context, a *agent.Agent, in io.Reader, w io.Writer) error {
	fmt.Fprintln(w, "Ask a question about Work Orders or Deals. Type /report, /refresh or exit.")
	sc := bufio.NewScanner(in)
	for {
		fmt.Fprint(w, "> ")
		if !sc.Scan() {
			fmt.Fprintln(w)
			return sc.Err()
		}
		line := strings.TrimSpace(sc.Text())
		switch line {
		case "":
			continue
		case "exit", "quit", "/exit", "/quit":
			return nil
		case "/refresh":
			msg, err := a.Refresh(ctx)
			if err != nil {
				fmt.Fprintln(w, "✗", err)
				continue
			}
			fmt.Fprintln(w, msg)
			continue
		case "/report":
			if err := renderMarkdown(w, a.Report(ctx), chatPlain); err != nil {
				return err
			}
			continue
		}
		if err := answer(ctx, a, w, line); err != nil {
			return err
		}
	}
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().BoolVar(&chatDryRun, "dry-run", false, "print the prompt that would be sent without calling the model")
	chatCmd.Flags().BoolVar(&chatPlain, "plain", false, "print raw markdown instead of terminal styling")
}
