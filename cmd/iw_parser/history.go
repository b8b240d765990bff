package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"iw_parser/internal/storage"
)

func (a *app) historyCmd() *cobra.Command {
	var (
		params    storage.QueryParams
		failed    bool
		succeeded bool
		since     time.Duration
		id        string
		stats     bool
		oldest    bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Query stored outcomes",
		Long: `History reads outcomes persisted by "parse --store" or "serve" and
prints them as JSON lines, newest first.

Example:
  iw_parser history --parser de_info_schiff --failed --limit 10
  iw_parser history --q Gebäudebau --since 24h
  iw_parser history --stats`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if failed && succeeded {
				return errors.New("--failed and --succeeded are mutually exclusive")
			}

			scfg := a.cfg.Storage
			if scfg.Driver == "" {
				scfg.Driver = "sqlite"
			}
			store, err := storage.Open(cmd.Context(), scfg, a.log)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			enc := json.NewEncoder(cmd.OutOrStdout())
			switch {
			case stats:
				st, err := store.Stats(cmd.Context())
				if err != nil {
					return err
				}
				enc.SetIndent("", "  ")
				return enc.Encode(st)
			case id != "":
				rec, err := store.Get(cmd.Context(), id)
				if err != nil {
					return fmt.Errorf("outcome %s: %w", id, err)
				}
				return enc.Encode(rec)
			}

			if failed || succeeded {
				ok := succeeded
				params.Success = &ok
			}
			if since > 0 {
				params.Since = time.Now().Add(-since)
			}
			params.OrderDesc = !oldest

			recs, err := store.Query(cmd.Context(), params)
			if err != nil {
				return err
			}
			for i := range recs {
				if err := enc.Encode(&recs[i]); err != nil {
					return err
				}
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&params.ParserID, "parser", "", "Only outcomes of this parser")
	f.BoolVar(&failed, "failed", false, "Only failed outcomes")
	f.BoolVar(&succeeded, "succeeded", false, "Only successful outcomes")
	f.StringVar(&params.FullText, "q", "", "Full text search in the raw screen")
	f.DurationVar(&since, "since", 0, "Only outcomes received within this duration")
	f.IntVar(&params.Limit, "limit", 20, "Maximum number of outcomes")
	f.IntVar(&params.Offset, "offset", 0, "Skip this many outcomes")
	f.BoolVar(&oldest, "oldest-first", false, "Order oldest first")
	f.StringVar(&id, "id", "", "Print one outcome by id")
	f.BoolVar(&stats, "stats", false, "Print aggregate statistics")
	return cmd
}
