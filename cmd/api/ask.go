package main

import (
	"encoding/json"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bryanwahyu/roundtable/internal/application/roundtable"
)

var (
	askFiles []string
	askJSON  bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Run one turn from the command line",
	Long: `Creates a throwaway in-memory session, loads the given documents and runs
one question through the router, the analysis pipeline or the expert panel.

Example:
  roundtable ask -f sales.csv "Which region had the highest revenue?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringSliceVarP(&askFiles, "file", "f", nil, "document to load (repeatable)")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "print the full turn result as JSON")
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := build(ctx, true)
	if err != nil {
		return err
	}
	defer a.close()

	const tenant = "cli"
	st, err := a.service.CreateSession(ctx, tenant)
	if err != nil {
		return err
	}
	for _, f := range askFiles {
		data, err := os.ReadFile(f)
		if err != nil {
			return err
		}
		name := filepath.Base(f)
		if _, err := a.service.AddDocument(ctx, tenant, st.ID, name, mime.TypeByExtension(filepath.Ext(name)), data); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}

	res, err := a.service.Ask(ctx, roundtable.Question{
		TenantID:  tenant,
		SessionID: st.ID,
		Text:      strings.Join(args, " "),
	})
	if err != nil {
		return err
	}
	return printResult(cmd, res)
}

func printResult(cmd *cobra.Command, res *roundtable.TurnResult) error {
	out := cmd.OutOrStdout()
	if askJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	for _, e := range res.Experts {
		if e.Unavailable {
			fmt.Fprintf(out, "## %s (unavailable: %s)\n\n", e.Title, e.Failure)
			continue
		}
		fmt.Fprintf(out, "## %s\n%s\n\n", e.Title, e.Summary)
	}
	fmt.Fprintf(out, "%s\n", res.Answer)
	for _, w := range res.Warnings {
		fmt.Fprintf(out, "\nwarning: %s", w)
	}
	if len(res.FollowUps) > 0 {
		fmt.Fprintln(out, "\nFollow-up questions:")
		for i, f := range res.FollowUps {
			fmt.Fprintf(out, "  %d. %s\n", i+1, f.Text)
		}
	}
	return nil
}
