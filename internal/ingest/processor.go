// Package ingest runs screens through the parser registry and the
// outcome store, and serves that pipeline over NATS.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"iw_parser/internal/registry"
	"iw_parser/internal/screen"
	"iw_parser/internal/storage"
)

// ErrUnknownParser is returned by ProcessWith for an id no parser has.
var ErrUnknownParser = errors.New("unknown parser")

// Response is what callers receive for one document.
type Response struct {
	ID         string          `json:"id,omitempty"` // stored outcome id, empty when not stored
	DocumentID string          `json:"document_id,omitempty"`
	Outcome    *screen.Outcome `json:"outcome"`
}

// Processor classifies, parses and optionally stores documents. It is
// safe for concurrent use.
type Processor struct {
	Registry *registry.Registry
	Store    storage.Store // optional
	Metrics  *Metrics      // optional
	Log      *zap.Logger
}

// Process classifies and parses doc. Parse failures are reported in the outcome; the
// error is only set when the outcome could not be stored.
func (p *Processor) Process(ctx context.Context, doc screen.Document) (*Response, error) {
	return p.run(ctx, doc, p.Registry.Dispatch)
}

// ProcessWith parses doc with the named parser, skipping classification.
func (p *Processor) ProcessWith(ctx context.Context, doc screen.Document, parserID string) (*Response, error) {
	parser, ok := p.Registry.Lookup(parserID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownParser, parserID)
	}
	return p.run(ctx, doc, parser.Parse)
}

func (p *Processor) run(ctx context.Context, doc screen.Document, parse func(string) *screen.Outcome) (*Response, error) {
	start := time.Now()
	out := parse(doc.Text)
	took := time.Since(start)

	result := "success"
	switch {
	case errors.Is(out.Err, registry.ErrLayoutMismatch):
		result = "unclassified"
	case !out.Success:
		result = "failure"
	}
	p.Metrics.observe(out.Identifier, result, len(out.Warnings), took)

	log := p.logger().With(
		zap.String("document_id", string(doc.ID)),
		zap.String("parser", out.Identifier),
		zap.Duration("took", took),
	)
	if out.Success {
		log.Debug("screen parsed", zap.Int("warnings", len(out.Warnings)))
	} else {
		log.Info("screen not parsed", zap.String("result", result), zap.Error(out.Err))
	}

	resp := &Response{DocumentID: string(doc.ID), Outcome: out}
	if p.Store == nil {
		return resp, nil
	}

	rec, err := storage.NewRecord(doc, out)
	if err == nil {
		err = p.Store.Save(ctx, rec)
	}
	if err != nil {
		p.Metrics.storeFailed()
		log.Error("store outcome", zap.Error(err))
		return resp, err
	}
	resp.ID = rec.ID
	return resp, nil
}

func (p *Processor) logger() *zap.Logger {
	if p.Log == nil {
		return zap.NewNop()
	}
	return p.Log
}
