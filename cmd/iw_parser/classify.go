package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// classification is one line of classify output.
type classification struct {
	Source  string   `json:"source"`
	Parsers []string `json:"parsers"`
	Chosen  string   `json:"chosen,omitempty"`
}

func (a *app) classifyCmd() *cobra.Command {
	var (
		jsonl   bool
		asJSON  bool
		listAll bool
	)
	cmd := &cobra.Command{
		Use:   "classify [file...]",
		Short: "List the parsers whose layout matches each screen",
		Long: `List the parsers whose quick-match accepts each screen, in dispatch
order. The first one is the parser "parse" would use.

With --list the registered parsers are printed instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if listAll {
				for _, id := range a.reg.IDs() {
					fmt.Fprintln(out, id)
				}
				return nil
			}
			docs, err := readDocuments(args, cmd.InOrStdin(), jsonl)
			if err != nil {
				return err
			}
			for _, doc := range docs {
				matched, err := a.reg.ClassifyAll(doc.Text)
				if err != nil {
					return fmt.Errorf("%s: %w", doc.Source, err)
				}
				c := classification{Source: doc.Source, Parsers: []string{}}
				for _, p := range matched {
					c.Parsers = append(c.Parsers, p.Descriptor().ID)
				}
				if len(c.Parsers) > 0 {
					c.Chosen = c.Parsers[0]
				}
				if err := writeClassification(out, c, asJSON); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonl, "jsonl", false, "Read one screen per input line")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON lines")
	cmd.Flags().BoolVar(&listAll, "list", false, "List registered parsers in dispatch order")
	return cmd
}

func writeClassification(w io.Writer, c classification, asJSON bool) error {
	if asJSON {
		return json.NewEncoder(w).Encode(c)
	}
	if c.Chosen == "" {
		_, err := fmt.Fprintf(w, "%s: no parser\n", c.Source)
		return err
	}
	_, err := fmt.Fprintf(w, "%s: %s", c.Source, c.Chosen)
	if err != nil {
		return err
	}
	for _, id := range c.Parsers[1:] {
		fmt.Fprintf(w, " (also %s)", id)
	}
	_, err = fmt.Fprintln(w)
	return err
}
