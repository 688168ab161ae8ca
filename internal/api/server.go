// Package api provides REST API endpoints for decoding NOTAM bulletins and
// looking up stored records.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jonboulle/clockwork"

	"notam_parser/internal/cache"
	"notam_parser/internal/enrichment"
	"notam_parser/internal/geometry"
	"notam_parser/internal/notam"
	"notam_parser/internal/state"
	"notam_parser/internal/storage"
)

// maxBulletinBytes bounds the size of a decode request body.
const maxBulletinBytes = 8 << 20

// Config holds configuration for the API server.
type Config struct {
	AuthEnabled bool
	APIKeys     []string // List of valid API keys.

	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
	Logger  *slog.Logger
	Clock   clockwork.Clock
}

// Server provides REST API access to the decoder and the record store.
type Server struct {
	decoder     *cache.Decoder
	store       storage.RecordStore
	enricher    *enrichment.Enricher
	clock       clockwork.Clock
	metrics     http.Handler
	logger      *slog.Logger
	authEnabled bool
	apiKeys     map[string]bool // Simple API key auth (when enabled).
}

// NewServer creates an API server. store may be nil, in which case the
// lookup endpoints answer 503.
func NewServer(decoder *cache.Decoder, store storage.RecordStore, cfg Config) *Server {
	keys := make(map[string]bool)
	for _, k := range cfg.APIKeys {
		if k != "" {
			keys[k] = true
		}
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Server{
		decoder:     decoder,
		store:       store,
		enricher:    enrichment.New(cfg.Clock),
		clock:       cfg.Clock,
		metrics:     cfg.Metrics,
		logger:      cfg.Logger,
		authEnabled: cfg.AuthEnabled,
		apiKeys:     keys,
	}
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

	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Health check (no auth required).
		r.Get("/health", s.handleHealth)

		r.Group(func(r chi.Router) {
			// Optional authentication.
			if s.authEnabled {
				r.Use(s.authMiddleware)
			}

			r.Post("/decode", s.handleDecode)
			r.Post("/decode/geojson", s.handleDecodeGeoJSON)
			r.Get("/notams", s.handleActive)
			r.Get("/notams/*", s.handleGetNotice)
			r.Get("/history", s.handleHistoryStats)
			r.Get("/history/*", s.handleHistory)
		})
	})

	return r
}

// logRequests writes one structured line per request.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
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

		// Fall back to query parameter (for simple testing).
		if apiKey == "" {
			apiKey = r.URL.Query().Get("api_key")
		}

		if apiKey == "" {
			writeError(w, http.StatusUnauthorized, "API key required")
			return
		}

		if !s.apiKeys[apiKey] {
			writeError(w, http.StatusForbidden, "Invalid API key")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// DecodeRequest is the JSON form of a decode request body. A body of any
// other content type is taken as the bulletin text itself.
type DecodeRequest struct {
	Text string `json:"text"`
}

// DecodeResponse is the JSON response for a decode.
type DecodeResponse struct {
	Notices   int                  `json:"notices"`
	Polygons  int                  `json:"polygons"`
	Records   []notam.Record       `json:"records"`
	Dropped   []string             `json:"dropped,omitempty"`
	Summaries []enrichment.Summary `json:"summaries,omitempty"`
	Render    *state.RenderState   `json:"render,omitempty"`
}

// NoticeResponse is the JSON response for a stored notice.
type NoticeResponse struct {
	ID        string               `json:"id"`
	Records   []notam.Record       `json:"records"`
	Summaries []enrichment.Summary `json:"summaries"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"time":   s.clock.Now().UTC().Format(time.RFC3339),
		"store":  s.store != nil,
	})
}

func (s *Server) handleDecode(w http.ResponseWriter, r *http.Request) {
	text, ok := readBulletin(w, r)
	if !ok {
		return
	}

	res := s.decoder.Decode(r.Context(), text)
	resp := DecodeResponse{
		Notices:  res.Notices,
		Polygons: res.Polygons(),
		Records:  res.Records,
		Dropped:  res.Dropped,
	}
	if resp.Records == nil {
		resp.Records = []notam.Record{}
	}

	q := r.URL.Query()
	if boolParam(q, "summary") {
		resp.Summaries = s.summarize(res.Records)
	}
	if boolParam(q, "render") {
		resp.Render = state.Build(res.Records)
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDecodeGeoJSON(w http.ResponseWriter, r *http.Request) {
	text, ok := readBulletin(w, r)
	if !ok {
		return
	}

	var opts geometry.GeoJSONOptions
	if v := r.URL.Query().Get("simplify"); v != "" {
		tol, err := strconv.ParseFloat(v, 64)
		if err != nil || tol < 0 {
			writeError(w, http.StatusBadRequest, "Invalid simplify tolerance")
			return
		}
		opts.SimplifyTolerance = tol
	}

	res := s.decoder.Decode(r.Context(), text)
	fc := geometry.FeatureCollection(res.Records, opts)

	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(fc)
}

func (s *Server) handleActive(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "No record store configured")
		return
	}

	q := r.URL.Query()
	at := s.clock.Now().UTC()
	if v := q.Get("active_at"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid active_at (use RFC3339)")
			return
		}
		at = t.UTC()
	}

	limit := 0
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 1000 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 1000")
			return
		}
		limit = n
	}

	records, err := s.store.ActiveAt(r.Context(), at, limit)
	if err != nil {
		s.logger.Error("active query failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if records == nil {
		records = []notam.Record{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"active_at": at.Format(time.RFC3339),
		"records":   records,
	})
}

func (s *Server) handleGetNotice(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "No record store configured")
		return
	}

	id, ok := noticeID(w, r)
	if !ok {
		return
	}

	records, err := s.store.RecordsByID(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "No records found for notice")
		return
	}
	if err != nil {
		s.logger.Error("notice lookup failed", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, NoticeResponse{
		ID:        id,
		Records:   records,
		Summaries: s.summarize(records),
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	hs, ok := s.store.(storage.HistoryStore)
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "No decode history configured")
		return
	}

	id, ok := noticeID(w, r)
	if !ok {
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 1000 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 1000")
			return
		}
		limit = n
	}

	entries, err := hs.History(r.Context(), id, limit)
	if err != nil {
		s.logger.Error("history lookup failed", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if entries == nil {
		entries = []storage.HistoryEntry{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":      id,
		"history": entries,
	})
}

func (s *Server) handleHistoryStats(w http.ResponseWriter, r *http.Request) {
	hs, ok := s.store.(storage.HistoryStore)
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "No decode history configured")
		return
	}

	stats, err := hs.HistoryStats(r.Context())
	if err != nil {
		s.logger.Error("history stats failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// noticeID reads the notice id from the wildcard. Notice ids contain a
// slash, so the id is the rest of the path.
func noticeID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, err := url.PathUnescape(chi.URLParam(r, "*"))
	if err != nil || id == "" {
		writeError(w, http.StatusBadRequest, "Notice id is required")
		return "", false
	}
	return strings.ToUpper(id), true
}

func (s *Server) summarize(records []notam.Record) []enrichment.Summary {
	out := make([]enrichment.Summary, len(records))
	for i, rec := range records {
		out[i] = s.enricher.Summarize(rec)
	}
	return out
}

// Helper functions.

// readBulletin extracts the bulletin text from the request body, writing an
// error response and returning false when there is none.
func readBulletin(w http.ResponseWriter, r *http.Request) (string, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBulletinBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Bulletin too large")
		} else {
			writeError(w, http.StatusBadRequest, "Failed to read body")
		}
		return "", false
	}

	text := string(body)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var req DecodeRequest
		if err := json.Unmarshal(body, &req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON: "+err.Error())
			return "", false
		}
		text = req.Text
	}

	if strings.TrimSpace(text) == "" {
		writeError(w, http.StatusBadRequest, "No bulletin text")
		return "", false
	}
	return text, true
}

func boolParam(q url.Values, key string) bool {
	v, _ := strconv.ParseBool(q.Get(key))
	return v
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
