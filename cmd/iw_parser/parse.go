package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"runtime"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"iw_parser/internal/ingest"
	"iw_parser/internal/registry"
	"iw_parser/internal/storage"
)

type parseOptions struct {
	jsonl      bool
	pretty     bool
	store      bool
	stats      bool
	parserID   string
	workers    int
	onlyParsed bool
}

func (a *app) parseCmd() *cobra.Command {
	opts := &parseOptions{}
	cmd := &cobra.Command{
		Use:   "parse [file...]",
		Short: "Parse screens and print one JSON outcome per screen",
		Long: `Parse screens and print one JSON outcome per line, in input order.

Each file holds one screen, either as raw text or as a JSON document
{"id": ..., "source": ..., "text": ...}. With --jsonl every line is a
screen. Without files, or with "-", stdin is read.

Example:
  iw_parser parse queue.txt shipinfo.txt
  iw_parser parse --jsonl --store --stats < screens.jsonl`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runParse(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr(), args, opts)
		},
	}
	f := cmd.Flags()
	f.BoolVar(&opts.jsonl, "jsonl", false, "Read one screen per input line")
	f.BoolVar(&opts.pretty, "pretty", false, "Pretty-print JSON output")
	f.BoolVar(&opts.store, "store", false, "Persist outcomes to the configured store (sqlite when none is set)")
	f.BoolVar(&opts.stats, "stats", false, "Print counters to stderr")
	f.StringVar(&opts.parserID, "parser", "", "Parse with this parser id instead of classifying")
	f.IntVar(&opts.workers, "workers", runtime.GOMAXPROCS(0), "Screens parsed in parallel")
	f.BoolVar(&opts.onlyParsed, "only-parsed", false, "Omit screens no parser could handle")
	return cmd
}

// parseStats are the counters printed by --stats.
type parseStats struct {
	Screens      int
	Succeeded    int
	Failed       int
	Unclassified int
	Warnings     int
	Stored       int
	ByParser     map[string]int
}

func (a *app) runParse(ctx context.Context, stdin io.Reader, stdout, stderr io.Writer, paths []string, opts *parseOptions) error {
	docs, err := readDocuments(paths, stdin, opts.jsonl)
	if err != nil {
		return err
	}

	proc := &ingest.Processor{Registry: a.reg, Log: a.log}
	if opts.store {
		scfg := a.cfg.Storage
		if scfg.Driver == "" {
			scfg.Driver = "sqlite"
		}
		store, err := storage.Open(ctx, scfg, a.log)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()
		proc.Store = store
	}

	responses := make([]*ingest.Response, len(docs))
	g, gctx := errgroup.WithContext(ctx)
	if opts.workers > 0 {
		g.SetLimit(opts.workers)
	}
	for i, doc := range docs {
		g.Go(func() error {
			var (
				resp *ingest.Response
				err  error
			)
			if opts.parserID != "" {
				resp, err = proc.ProcessWith(gctx, doc, opts.parserID)
			} else {
				resp, err = proc.Process(gctx, doc)
			}
			if errors.Is(err, ingest.ErrUnknownParser) {
				return err
			}
			if err != nil {
				a.log.Warn("outcome not stored", zap.String("source", doc.Source), zap.Error(err))
			}
			responses[i] = resp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	st := &parseStats{Screens: len(docs), ByParser: make(map[string]int)}
	for _, resp := range responses {
		st.add(resp)
		if opts.onlyParsed && errors.Is(resp.Outcome.Err, registry.ErrLayoutMismatch) {
			continue
		}
		if err := writeResponse(stdout, resp, opts.pretty); err != nil {
			return err
		}
	}

	if opts.stats {
		st.print(stderr)
	}
	return nil
}

func writeResponse(w io.Writer, resp *ingest.Response, pretty bool) error {
	var (
		data []byte
		err  error
	)
	if pretty {
		data, err = json.MarshalIndent(resp, "", "  ")
	} else {
		data, err = json.Marshal(resp)
	}
	if err != nil {
		return fmt.Errorf("JSON encode error: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

func (st *parseStats) add(resp *ingest.Response) {
	out := resp.Outcome
	switch {
	case out.Success:
		st.Succeeded++
		st.Warnings += len(out.Warnings)
	case errors.Is(out.Err, registry.ErrLayoutMismatch):
		st.Unclassified++
	default:
		st.Failed++
	}
	if out.Identifier != "" {
		st.ByParser[out.Identifier]++
	}
	if resp.ID != "" {
		st.Stored++
	}
}

func (st *parseStats) print(w io.Writer) {
	fmt.Fprintf(w, "stats: screens=%d succeeded=%d failed=%d unclassified=%d warnings=%d stored=%d\n",
		st.Screens, st.Succeeded, st.Failed, st.Unclassified, st.Warnings, st.Stored)
	ids := make([]string, 0, len(st.ByParser))
	for id := range st.ByParser {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		fmt.Fprintf(w, "  %s=%d\n", id, st.ByParser[id])
	}
}
