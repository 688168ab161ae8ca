package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"notam_parser/internal/cache"
	"notam_parser/internal/enrichment"
	"notam_parser/internal/extractor"
	"notam_parser/internal/observability"
	"notam_parser/internal/storage"
)

const bulletin = `A1234/25 NOTAMN
Q) LFFF/QOBCE/IV/M/A/000/003/4902N00222E001
A) LFPG B) 2501010800 C) 2501311800
E) TEMPO OBST CRANE PSN 490204N 0022140E HGT 300FT

A1235/25 NOTAMN
Q) LFFF/QRDCA/IV/BO/W/000/050/4845N00320E010
A) LFFF LFPG B) 2502010000 C) PERM
E) DANGER AREA WI COORD 484024N 0030441E - 484500N 0031000E - 485000N 0031500E -
485500N 0032000E - 485000N 0033000E - 484500N 0033500E - 484000N 0033000E -
483800N 0032000E - (484024N 0030441E).
F) SFC G) FL050

A1236/25 NOTAMN
Q) LFFF/QMRLC/IV/NBO/A/000/999/
A) LFPG B) 2501010800 C) 2501311800 EST
E) RWY 09/27 CLSD

A1237/25 NOTAMN
Q) LFFF/QWELW/IV/BO/W/000/050/4840N00305E005
A) LFFF
E) GLIDER ACTIVITY
`

var now = time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)

func newTestDecoder() *cache.Decoder {
	return cache.NewDecoder(extractor.New(extractor.Options{}), cache.NewMemory(16, time.Hour), nil, nil)
}

func newTestServer(t *testing.T, store storage.RecordStore, cfg Config) http.Handler {
	t.Helper()
	cfg.Clock = clockwork.NewFakeClockAt(now)
	return NewServer(newTestDecoder(), store, cfg).Router()
}

// newTestStore returns an in-memory store holding the decoded fixture bulletin.
func newTestStore(t *testing.T) *storage.SQLiteDB {
	t.Helper()
	db, err := storage.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if _, err := db.SaveRecords(context.Background(), extractor.ParseBulletin(bulletin)); err != nil {
		t.Fatalf("save records: %v", err)
	}
	return db
}

func do(h http.Handler, method, target, contentType, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	// Health stays open when auth is enabled.
	router := newTestServer(t, nil, Config{AuthEnabled: true, APIKeys: []string{"k"}})

	rec := do(router, http.MethodGet, "/api/v1/health", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("expected status 'ok', got %v", resp["status"])
	}
	if resp["time"] != "2025-01-15T12:00:00Z" {
		t.Errorf("time = %v", resp["time"])
	}
	if resp["store"] != false {
		t.Errorf("store = %v, want false", resp["store"])
	}
}

func TestAuthMiddleware(t *testing.T) {
	router := newTestServer(t, nil, Config{
		AuthEnabled: true,
		APIKeys:     []string{"test-key-123", "another-key"},
	})

	tests := []struct {
		name       string
		apiKey     string
		keyHeader  string
		wantStatus int
	}{
		{
			name:       "no key",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "invalid key",
			apiKey:     "wrong-key",
			keyHeader:  "X-API-Key",
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "valid key via X-API-Key",
			apiKey:     "test-key-123",
			keyHeader:  "X-API-Key",
			wantStatus: http.StatusOK,
		},
		{
			name:       "valid key via Bearer",
			apiKey:     "another-key",
			keyHeader:  "Authorization",
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/decode", strings.NewReader(bulletin))
			if tt.apiKey != "" {
				if tt.keyHeader == "Authorization" {
					req.Header.Set("Authorization", "Bearer "+tt.apiKey)
				} else {
					req.Header.Set(tt.keyHeader, tt.apiKey)
				}
			}

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
		})
	}
}

func TestAuthMiddleware_QueryParam(t *testing.T) {
	router := newTestServer(t, nil, Config{AuthEnabled: true, APIKeys: []string{"test-key-123"}})

	rec := do(router, http.MethodPost, "/api/v1/decode?api_key=test-key-123", "text/plain", bulletin)
	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
}

func TestDecodeEndpoint(t *testing.T) {
	router := newTestServer(t, nil, Config{})

	rec := do(router, http.MethodPost, "/api/v1/decode", "text/plain", bulletin)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp DecodeResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Notices != 4 {
		t.Errorf("Notices = %d, want 4", resp.Notices)
	}
	if len(resp.Records) != 3 {
		t.Fatalf("got %d records, want 3", len(resp.Records))
	}
	if resp.Polygons != 1 {
		t.Errorf("Polygons = %d, want 1", resp.Polygons)
	}
	if len(resp.Dropped) != 1 || resp.Dropped[0] != "A1236/25" {
		t.Errorf("Dropped = %v", resp.Dropped)
	}
	if resp.Summaries != nil || resp.Render != nil {
		t.Error("summaries or render state returned without being asked for")
	}
}

func TestDecodeEndpoint_JSONWithExtras(t *testing.T) {
	router := newTestServer(t, nil, Config{})

	body, _ := json.Marshal(DecodeRequest{Text: bulletin})
	rec := do(router, http.MethodPost, "/api/v1/decode?summary=true&render=true", "application/json", string(body))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp DecodeResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Summaries) != 3 {
		t.Fatalf("got %d summaries, want 3", len(resp.Summaries))
	}

	want := []enrichment.Status{enrichment.StatusActive, enrichment.StatusUpcoming, enrichment.StatusUnknown}
	for i, s := range resp.Summaries {
		if s.Status != want[i] {
			t.Errorf("summary %d (%s) status = %s, want %s", i, s.ID, s.Status, want[i])
		}
	}

	if resp.Render == nil || len(resp.Render.Markers) == 0 || len(resp.Render.Polygons) != 1 {
		t.Errorf("render = %+v", resp.Render)
	}
}

func TestDecodeEndpoint_BadRequests(t *testing.T) {
	router := newTestServer(t, nil, Config{})

	tests := []struct {
		name        string
		contentType string
		body        string
	}{
		{"empty body", "text/plain", ""},
		{"whitespace", "text/plain", "  \n\n "},
		{"invalid JSON", "application/json", "{text:"},
		{"empty JSON text", "application/json", `{"text": ""}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(router, http.MethodPost, "/api/v1/decode", tt.contentType, tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected status 400, got %d", rec.Code)
			}
		})
	}
}

func TestDecodeEndpoint_TooLarge(t *testing.T) {
	router := newTestServer(t, nil, Config{})

	body := bytes.Repeat([]byte("X"), maxBulletinBytes+1)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/decode", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected status 413, got %d", rec.Code)
	}
}

func TestDecodeGeoJSONEndpoint(t *testing.T) {
	router := newTestServer(t, nil, Config{})

	rec := do(router, http.MethodPost, "/api/v1/decode/geojson?simplify=0.001", "text/plain", bulletin)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/geo+json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			Geometry struct {
				Type string `json:"type"`
			} `json:"geometry"`
		} `json:"features"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&fc); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if fc.Type != "FeatureCollection" {
		t.Errorf("type = %q", fc.Type)
	}
	if len(fc.Features) != 3 {
		t.Fatalf("got %d features, want 3", len(fc.Features))
	}
	if fc.Features[1].Geometry.Type != "Polygon" {
		t.Errorf("second feature geometry = %s, want Polygon", fc.Features[1].Geometry.Type)
	}

	rec = do(router, http.MethodPost, "/api/v1/decode/geojson?simplify=abc", "text/plain", bulletin)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid simplify: expected status 400, got %d", rec.Code)
	}
}

func TestNoticeEndpoints_NoStore(t *testing.T) {
	router := newTestServer(t, nil, Config{})

	for _, target := range []string{"/api/v1/notams", "/api/v1/notams/A1234/25"} {
		rec := do(router, http.MethodGet, target, "", "")
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("%s: expected status 503, got %d", target, rec.Code)
		}
	}
}

func TestActiveEndpoint(t *testing.T) {
	router := newTestServer(t, newTestStore(t), Config{})

	tests := []struct {
		name       string
		target     string
		wantStatus int
		wantIDs    []string
	}{
		{"default is now", "/api/v1/notams", http.StatusOK, []string{"A1234/25"}},
		{"after permanent start", "/api/v1/notams?active_at=2025-03-01T00:00:00Z", http.StatusOK, []string{"A1235/25"}},
		{"limit", "/api/v1/notams?active_at=2025-03-01T00:00:00Z&limit=1", http.StatusOK, []string{"A1235/25"}},
		{"bad instant", "/api/v1/notams?active_at=yesterday", http.StatusBadRequest, nil},
		{"bad limit", "/api/v1/notams?limit=0", http.StatusBadRequest, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(router, http.MethodGet, tt.target, "", "")
			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}

			var resp struct {
				Records []struct {
					ID string `json:"id"`
				} `json:"records"`
			}
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if len(resp.Records) != len(tt.wantIDs) {
				t.Fatalf("got %d records, want %d", len(resp.Records), len(tt.wantIDs))
			}
			for i, r := range resp.Records {
				if r.ID != tt.wantIDs[i] {
					t.Errorf("record %d = %s, want %s", i, r.ID, tt.wantIDs[i])
				}
			}
		})
	}
}

func TestGetNoticeEndpoint(t *testing.T) {
	router := newTestServer(t, newTestStore(t), Config{})

	tests := []struct {
		name       string
		target     string
		wantStatus int
		wantCount  int
	}{
		{"plain path", "/api/v1/notams/A1234/25", http.StatusOK, 1},
		{"escaped lower case", "/api/v1/notams/a1235%2F25", http.StatusOK, 1},
		{"unknown", "/api/v1/notams/Z9999/25", http.StatusNotFound, 0},
		{"dropped notice", "/api/v1/notams/A1236/25", http.StatusNotFound, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(router, http.MethodGet, tt.target, "", "")
			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
			if tt.wantStatus != http.StatusOK {
				return
			}

			var resp NoticeResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if len(resp.Records) != tt.wantCount || len(resp.Summaries) != tt.wantCount {
				t.Errorf("got %d records and %d summaries, want %d", len(resp.Records), len(resp.Summaries), tt.wantCount)
			}
		})
	}
}

// historyStore adds a canned decode history to the SQLite store.
type historyStore struct {
	*storage.SQLiteDB
	entries []storage.HistoryEntry
	gotID   string
	gotN    int
}

func (h *historyStore) History(_ context.Context, id string, limit int) ([]storage.HistoryEntry, error) {
	h.gotID, h.gotN = id, limit
	return h.entries, nil
}

func (h *historyStore) HistoryStats(context.Context) (*storage.CHStats, error) {
	return &storage.CHStats{TotalRows: 4, DistinctIDs: 2, Batches: 2, PolygonRows: 2,
		ByLocation: map[string]uint64{"LFFF": 2, "LFPG": 4}}, nil
}

func TestHistoryEndpoint(t *testing.T) {
	hs := &historyStore{
		SQLiteDB: newTestStore(t),
		entries: []storage.HistoryEntry{
			{BatchID: "b2", DecodedAt: now, Records: 1, Polygons: 1},
			{BatchID: "b1", DecodedAt: now.Add(-time.Hour), Records: 1, Polygons: 1},
		},
	}
	router := newTestServer(t, hs, Config{})

	rec := do(router, http.MethodGet, "/api/v1/history/a1235/25?limit=5", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if hs.gotID != "A1235/25" || hs.gotN != 5 {
		t.Errorf("History called with (%q, %d)", hs.gotID, hs.gotN)
	}

	var resp struct {
		ID      string                 `json:"id"`
		History []storage.HistoryEntry `json:"history"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.ID != "A1235/25" || len(resp.History) != 2 || resp.History[0].BatchID != "b2" {
		t.Errorf("response = %+v", resp)
	}

	if rec := do(router, http.MethodGet, "/api/v1/history/A1235/25?limit=0", "", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("limit=0: expected status 400, got %d", rec.Code)
	}

	rec = do(router, http.MethodGet, "/api/v1/history", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("stats: expected status 200, got %d", rec.Code)
	}
	var stats storage.CHStats
	if err := json.NewDecoder(rec.Body).Decode(&stats); err != nil {
		t.Fatalf("failed to decode stats: %v", err)
	}
	if stats.Batches != 2 || stats.ByLocation["LFPG"] != 4 {
		t.Errorf("stats = %+v", stats)
	}

	// A plain SQLite store keeps no history.
	plain := newTestServer(t, newTestStore(t), Config{})
	if rec := do(plain, http.MethodGet, "/api/v1/history/A1235/25", "", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503 without history, got %d", rec.Code)
	}
}

func TestCORS(t *testing.T) {
	router := newTestServer(t, nil, Config{AuthEnabled: true, APIKeys: []string{"k"}})

	rec := do(router, http.MethodOptions, "/api/v1/decode", "", "")
	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := observability.NewMetricsWithRegistry(reg)
	decoder := cache.NewDecoder(extractor.New(extractor.Options{}), nil, m, nil)

	router := NewServer(decoder, nil, Config{
		Metrics: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	}).Router()

	do(router, http.MethodPost, "/api/v1/decode", "text/plain", bulletin)

	rec := do(router, http.MethodGet, "/metrics", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "notam_parser_bulletins_decoded_total 1") {
		t.Errorf("metrics output missing decode counter:\n%s", rec.Body.String())
	}
}
