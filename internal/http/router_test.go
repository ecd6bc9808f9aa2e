package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-growth-backend/internal/config"
	"github.com/tbourn/go-growth-backend/internal/domain"
	"github.com/tbourn/go-growth-backend/internal/repo"
)

func init() { gin.SetMode(gin.TestMode) }

// noSources satisfies every generation source with empty reads.
type noSources struct{}

func (noSources) ListTasks(context.Context, string) ([]domain.Task, error) { return nil, nil }
func (noSources) ListSchedules(context.Context, string) ([]domain.MeetingSchedule, error) {
	return nil, nil
}
func (noSources) ListPeople(context.Context, string) ([]domain.Person, error) { return nil, nil }
func (noSources) DisplayNames(context.Context, string, []string) (map[string]string, error) {
	return map[string]string{}, nil
}
func (noSources) ListActivePlans(context.Context, string) ([]domain.ChangePlan, error) {
	return nil, nil
}
func (noSources) ListActiveProjects(context.Context, string) ([]domain.Project, error) {
	return nil, nil
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "router_test.db")
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	cfg := config.Config{
		APIBasePath:         "/api/v1",
		MorningTime:         "08:00",
		DefaultTimezone:     "UTC",
		CleanupArchiveAfter: 30 * 24 * time.Hour,
		RateRPS:             1000,
		RateBurst:           1000,
		IdempotencyTTL:      time.Hour,
		OTEL:                config.OTELConfig{ServiceName: "router-test"},
	}

	r := gin.New()
	src := Sources{
		Tasks:    noSources{},
		Meetings: noSources{},
		People:   noSources{},
		Plans:    noSources{},
		Projects: noSources{},
	}
	RegisterRoutes(r, db, src, cfg)
	return r
}

func get(r *gin.Engine, path string, hdr map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", path, nil)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func post(r *gin.Engine, path string, body any, hdr map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest("POST", path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	r := newTestRouter(t)
	w := get(r, "/health", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"ok"`) {
		t.Fatalf("body = %s", w.Body.String())
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatalf("missing correlation id")
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("default CORS posture must allow all")
	}
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("security headers missing")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	r := newTestRouter(t)
	if w := get(r, "/metrics", nil); w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestNoRouteEnvelope(t *testing.T) {
	r := newTestRouter(t)
	w := get(r, "/nope", nil)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "not_found") || !strings.Contains(body, "request_id") {
		t.Fatalf("body = %s", body)
	}
}

func TestNoMethodEnvelope(t *testing.T) {
	r := newTestRouter(t)
	req := httptest.NewRequest("DELETE", "/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "method_not_allowed") {
		t.Fatalf("body = %s", w.Body.String())
	}
}

func TestCreateListAndETag(t *testing.T) {
	r := newTestRouter(t)
	hdr := map[string]string{"X-User-ID": "u1"}

	w := post(r, "/api/v1/reminders", map[string]any{"title": "Water the plants"}, hdr)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d body=%s", w.Code, w.Body.String())
	}

	w = get(r, "/api/v1/reminders/pending", hdr)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	etag := w.Header().Get("ETag")
	if etag == "" || !strings.HasPrefix(etag, `W/"reminders:u1:`) {
		t.Fatalf("etag = %q", etag)
	}
	if !strings.Contains(w.Body.String(), "Water the plants") {
		t.Fatalf("body = %s", w.Body.String())
	}

	hdr2 := map[string]string{"X-User-ID": "u1", "If-None-Match": etag}
	if w = get(r, "/api/v1/reminders/pending", hdr2); w.Code != http.StatusNotModified {
		t.Fatalf("conditional status = %d", w.Code)
	}

	// Another user sees nothing.
	w = get(r, "/api/v1/reminders/pending", map[string]string{"X-User-ID": "u2"})
	if !strings.Contains(w.Body.String(), `"count":0`) {
		t.Fatalf("cross-user leak: %s", w.Body.String())
	}
}

func TestGenerateIdempotencyEndToEnd(t *testing.T) {
	r := newTestRouter(t)
	hdr := map[string]string{"X-User-ID": "u1", "Idempotency-Key": "run-1"}

	w := post(r, "/api/v1/reminders/generate", nil, hdr)
	if w.Code != http.StatusOK {
		t.Fatalf("first run status = %d body=%s", w.Code, w.Body.String())
	}
	if w.Header().Get("Idempotency-Replayed") != "" {
		t.Fatalf("first run must not be a replay")
	}

	w = post(r, "/api/v1/reminders/generate", nil, hdr)
	if w.Code != http.StatusOK {
		t.Fatalf("second run status = %d", w.Code)
	}
	if w.Header().Get("Idempotency-Replayed") != "true" {
		t.Fatalf("second run with the same key must replay")
	}
}

func TestTransitionRoutes(t *testing.T) {
	r := newTestRouter(t)
	hdr := map[string]string{"X-User-ID": "u1"}

	w := post(r, "/api/v1/reminders", map[string]any{"title": "Call the bank"}, hdr)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d", w.Code)
	}
	var created domain.Reminder
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if w = post(r, "/api/v1/reminders/"+created.ID+"/dismiss", nil, hdr); w.Code != http.StatusNoContent {
		t.Fatalf("dismiss status = %d body=%s", w.Code, w.Body.String())
	}

	// Terminal state: a second transition conflicts.
	if w = post(r, "/api/v1/reminders/"+created.ID+"/act", nil, hdr); w.Code != http.StatusConflict {
		t.Fatalf("act on dismissed status = %d", w.Code)
	}
}
