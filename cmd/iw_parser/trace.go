package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"iw_parser/internal/registry"
)

func (a *app) traceCmd() *cobra.Command {
	var (
		parserID string
		asJSON   bool
		verbose  bool
	)
	cmd := &cobra.Command{
		Use:   "trace [file]",
		Short: "Show why parsers do or do not match a screen",
		Long: `Trace runs the quick-match, the marker strip and every structural
format of a parser against one screen and reports each step.

Without --parser the parsers whose quick-match accepts the screen are
traced, or every parser when none does.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			docs, err := readDocuments(args, cmd.InOrStdin(), false)
			if err != nil {
				return err
			}
			if len(docs) == 0 {
				return fmt.Errorf("no screen to trace")
			}
			text := docs[0].Text

			var targets []registry.Parser
			if parserID != "" {
				p, ok := a.reg.Lookup(parserID)
				if !ok {
					return fmt.Errorf("unknown parser %q (have %v)", parserID, a.reg.IDs())
				}
				targets = []registry.Parser{p}
			} else {
				if targets, err = a.reg.ClassifyAll(text); err != nil {
					return err
				}
				if len(targets) == 0 {
					for _, id := range a.reg.IDs() {
						p, _ := a.reg.Lookup(id)
						targets = append(targets, p)
					}
				}
			}

			out := cmd.OutOrStdout()
			for _, p := range targets {
				tr := registry.Trace(p, text)
				if asJSON {
					if err := json.NewEncoder(out).Encode(tr); err != nil {
						return err
					}
					continue
				}
				printTrace(out, tr, verbose)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&parserID, "parser", "", "Trace only this parser")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print one JSON trace per parser")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Include expanded patterns")
	return cmd
}

func printTrace(w io.Writer, tr *registry.TraceResult, verbose bool) {
	fmt.Fprintf(w, "=== %s\n", tr.ParserID)
	fmt.Fprintf(w, "  quick-match: %s\n", yesNo(tr.Matches))
	if tr.Err != "" {
		fmt.Fprintf(w, "  error: %s\n", tr.Err)
		return
	}
	for _, ft := range tr.Formats {
		status := "no match"
		switch {
		case ft.Err != "":
			status = "error: " + ft.Err
		case ft.Matched:
			status = fmt.Sprintf("matched (%d captures)", len(ft.Captures))
		}
		fmt.Fprintf(w, "  format %s: %s\n", ft.Name, status)
		if verbose {
			fmt.Fprintf(w, "    pattern: %s\n", ft.Pattern)
		}
	}
	fmt.Fprintf(w, "  structural match: %s\n", yesNo(tr.Matched))
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
