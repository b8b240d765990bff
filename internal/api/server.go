// Package api provides the REST API for parsing screens and reading
// stored outcomes.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"iw_parser/internal/config"
	"iw_parser/internal/ingest"
	"iw_parser/internal/screen"
	"iw_parser/internal/storage"
)

// maxBodySize bounds one posted screen.
const maxBodySize = 4 << 20

// Server serves the parse pipeline over HTTP.
type Server struct {
	proc     *ingest.Processor
	store    storage.Store // optional; outcome routes answer 503 without it
	gatherer prometheus.Gatherer
	cfg      config.APIConfig
	log      *zap.Logger
}

// NewServer creates a new API server. A nil gatherer uses the default
// Prometheus registry.
func NewServer(proc *ingest.Processor, store storage.Store, gatherer prometheus.Gatherer, cfg config.APIConfig, log *zap.Logger) *Server {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{proc: proc, store: store, gatherer: gatherer, cfg: cfg, log: log.Named("api")}
}

// Router returns the configured chi router.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	// Standard middleware.
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	// CORS for browser access.
	r.Use(corsMiddleware)

	// Health check and metrics (no auth required).
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		// Optional authentication.
		if s.cfg.APIKey != "" {
			r.Use(s.authMiddleware)
		}

		r.Post("/parse", s.handleParse)
		r.Post("/classify", s.handleClassify)
		r.Get("/parsers", s.handleParsers)
		r.Get("/outcomes", s.handleQuery)
		r.Get("/outcomes/{id}", s.handleGet)
		r.Get("/stats", s.handleStats)
	})

	return r
}

// Run serves until ctx is done and then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info("http api listening", zap.String("addr", s.cfg.Addr), zap.Bool("auth", s.cfg.APIKey != ""))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("took", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

// corsMiddleware adds CORS headers for browser access.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-API-Key")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// authMiddleware validates API key authentication.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Check X-API-Key header first.
		apiKey := r.Header.Get("X-API-Key")

		// Fall back to Authorization: Bearer <key>.
		if apiKey == "" {
			auth := r.Header.Get("Authorization")
			if strings.HasPrefix(auth, "Bearer ") {
				apiKey = strings.TrimPrefix(auth, "Bearer ")
			}
		}

		if apiKey == "" {
			writeError(w, http.StatusUnauthorized, "API key required")
			return
		}
		if apiKey != s.cfg.APIKey {
			writeError(w, http.StatusForbidden, "Invalid API key")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"parsers": s.proc.Registry.ParserCount(),
		"storage": s.store != nil,
	})
}

// readDocument accepts a JSON screen.Document or the raw screen text.
func readDocument(w http.ResponseWriter, r *http.Request) (screen.Document, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "Body too large or unreadable: "+err.Error())
		return screen.Document{}, false
	}
	doc := screen.DecodeDocument(body)
	if strings.TrimSpace(doc.Text) == "" {
		writeError(w, http.StatusBadRequest, "No screen text given")
		return screen.Document{}, false
	}
	if doc.Source == "" {
		doc.Source = "http"
	}
	return doc, true
}

// handleParse parses the posted screen. ?parser=ID skips classification.
// Parse failures are still 200; the outcome says what went wrong.
func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	doc, ok := readDocument(w, r)
	if !ok {
		return
	}

	var (
		resp *ingest.Response
		err  error
	)
	if id := r.URL.Query().Get("parser"); id != "" {
		resp, err = s.proc.ProcessWith(r.Context(), doc, id)
	} else {
		resp, err = s.proc.Process(r.Context(), doc)
	}
	if errors.Is(err, ingest.ErrUnknownParser) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil && resp == nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	// A failed store still returns the parse result.
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	doc, ok := readDocument(w, r)
	if !ok {
		return
	}
	parsers, err := s.proc.Registry.ClassifyAll(doc.Text)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	ids := make([]string, 0, len(parsers))
	for _, p := range parsers {
		ids = append(ids, p.Descriptor().ID)
	}
	writeJSON(w, http.StatusOK, map[string][]string{"parsers": ids})
}

func (s *Server) handleParsers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"parsers": s.proc.Registry.IDs()})
}

func (s *Server) requireStore(w http.ResponseWriter) bool {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "No outcome store configured")
		return false
	}
	return true
}

// handleQuery lists stored outcomes. Query parameters: parser, success,
// q (full text), since (RFC 3339), limit, offset, order=desc.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}

	q := r.URL.Query()
	p := storage.QueryParams{
		ParserID:  q.Get("parser"),
		FullText:  q.Get("q"),
		OrderDesc: q.Get("order") == "desc",
	}
	if v := q.Get("success"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid success flag")
			return
		}
		p.Success = &b
	}
	if v := q.Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid since (use RFC 3339)")
			return
		}
		p.Since = t
	}
	for name, dst := range map[string]*int{"limit": &p.Limit, "offset": &p.Offset} {
		if v := q.Get(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				writeError(w, http.StatusBadRequest, "Invalid "+name)
				return
			}
			*dst = n
		}
	}
	if p.Limit > 1000 {
		p.Limit = 1000
	}

	records, err := s.store.Query(r.Context(), p)
	if err != nil {
		s.log.Error("query outcomes", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if records == nil {
		records = []storage.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"outcomes": records, "count": len(records)})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	rec, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Outcome not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Helper functions.

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
