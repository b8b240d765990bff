package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"iw_parser/internal/config"
	"iw_parser/internal/screen"
)

// Service consumes screens from a NATS queue group. Each message body is
// a JSON screen.Document or raw screen text. When the message carries a
// reply subject the Response is sent back; every Response is also
// published on the result subject.
type Service struct {
	nc   *nats.Conn
	proc *Processor
	cfg  config.NATSConfig
	log  *zap.Logger

	sub *nats.Subscription
}

// NewService wires proc to nc.
func NewService(nc *nats.Conn, proc *Processor, cfg config.NATSConfig, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{nc: nc, proc: proc, cfg: cfg, log: log.Named("ingest")}
}

// Start subscribes to the parse subject.
func (s *Service) Start() error {
	if s.sub != nil {
		return errors.New("ingest already started")
	}
	sub, err := s.nc.QueueSubscribe(s.cfg.Subject, s.cfg.Queue, s.handle)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", s.cfg.Subject, err)
	}
	s.sub = sub
	s.log.Info("listening", zap.String("subject", s.cfg.Subject), zap.String("queue", s.cfg.Queue))
	return nil
}

// Run starts the service and blocks until ctx is done, then drains the
// subscription so in-flight messages finish.
func (s *Service) Run(ctx context.Context) error {
	if err := s.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	return s.Stop()
}

// Stop drains the subscription.
func (s *Service) Stop() error {
	if s.sub == nil {
		return nil
	}
	sub := s.sub
	s.sub = nil
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("drain: %w", err)
	}
	// Drain is asynchronous; wait until the subscription is closed.
	deadline := time.Now().Add(5 * time.Second)
	for sub.IsValid() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	return nil
}

func (s *Service) handle(msg *nats.Msg) {
	doc := screen.DecodeDocument(msg.Data)
	if doc.Source == "" {
		doc.Source = "nats:" + msg.Subject
	}

	resp, err := s.proc.Process(context.Background(), doc)
	if err != nil {
		// Store failures are logged by the processor; the parse result is still delivered.
		s.log.Warn("outcome not stored", zap.Error(err))
	}

	data, err := json.Marshal(resp)
	if err != nil {
		s.log.Error("marshal response", zap.Error(err))
		return
	}

	if msg.Reply != "" {
		if err := msg.Respond(data); err != nil {
			s.log.Error("respond", zap.Error(err))
		}
	}
	if s.cfg.ResultSubject != "" {
		if err := s.nc.Publish(s.cfg.ResultSubject, data); err != nil {
			s.log.Error("publish result", zap.String("subject", s.cfg.ResultSubject), zap.Error(err))
		}
	}
}
