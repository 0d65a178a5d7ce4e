package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/consolerelay/console-relay/internal/biz/domain"
	"github.com/consolerelay/console-relay/internal/biz/usecase"
)

// MockMessageRepo implements repo.MessageRepo for testing
type MockMessageRepo struct {
	stored []*domain.Message
	err    error
}

func (m *MockMessageRepo) ReplaceBatch(ctx context.Context, msgs []*domain.Message) error {
	if m.err != nil {
		return m.err
	}
	for _, msg := range msgs {
		msg.BatchID = "batch-1"
	}
	m.stored = msgs
	return nil
}

func (m *MockMessageRepo) ListLatest(ctx context.Context) ([]*domain.Message, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([]*domain.Message, 0, len(m.stored))
	for i := len(m.stored) - 1; i >= 0; i-- {
		out = append(out, m.stored[i])
	}
	return out, nil
}

// MockOriginRepo implements repo.OriginRepo for testing
type MockOriginRepo struct {
	origins map[string]*domain.Origin
}

func (m *MockOriginRepo) Upsert(ctx context.Context, sightings []domain.OriginSighting) error {
	for _, s := range sightings {
		if _, ok := m.origins[s.AppName]; !ok {
			m.origins[s.AppName] = &domain.Origin{ID: int64(len(m.origins) + 1), AppName: s.AppName}
		}
		m.origins[s.AppName].Color = s.Color
	}
	return nil
}

func (m *MockOriginRepo) Get(ctx context.Context, appName string) (*domain.Origin, error) {
	return m.origins[appName], nil
}

func (m *MockOriginRepo) List(ctx context.Context) ([]*domain.Origin, error) {
	var out []*domain.Origin
	for _, o := range m.origins {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AppName < out[j].AppName })
	return out, nil
}

func (m *MockOriginRepo) RecordCheck(ctx context.Context, appName, loginURL string, checkedAt time.Time) error {
	return nil
}

// MockUpstreamRepo implements repo.UpstreamRepo for testing
type MockUpstreamRepo struct {
	raws []domain.RawMessage
	err  error
}

func (m *MockUpstreamRepo) Login(ctx context.Context, email, password string) (json.RawMessage, error) {
	if m.err != nil {
		return nil, m.err
	}
	return json.RawMessage(`{"data":{"session":"abc"}}`), nil
}

func (m *MockUpstreamRepo) RefreshToken(ctx context.Context) (string, bool, error) {
	if m.err != nil {
		return "", false, m.err
	}
	return "tok", true, nil
}

func (m *MockUpstreamRepo) FetchConsole(ctx context.Context) ([]domain.RawMessage, error) {
	return m.raws, m.err
}

type recordingScheduler struct {
	queued []string
}

func (s *recordingScheduler) Enqueue(appName string) bool {
	s.queued = append(s.queued, appName)
	return true
}

type testEnv struct {
	messages  *MockMessageRepo
	origins   *MockOriginRepo
	upstream  *MockUpstreamRepo
	scheduler *recordingScheduler
	handler   http.Handler
}

func newTestEnv(t *testing.T, pullMode bool, staticDir string) *testEnv {
	t.Helper()
	env := &testEnv{
		messages:  &MockMessageRepo{},
		origins:   &MockOriginRepo{origins: make(map[string]*domain.Origin)},
		upstream:  &MockUpstreamRepo{},
		scheduler: &recordingScheduler{},
	}

	console := usecase.NewConsoleUsecase(domain.NewNormalizer(nil), env.messages, env.origins, env.scheduler, nil, nil)
	origins := usecase.NewOriginUsecase(env.origins, env.scheduler, nil)
	var pull *usecase.PullUsecase
	if pullMode {
		pull = usecase.NewPullUsecase(env.upstream, console)
	}
	if staticDir == "" {
		staticDir = t.TempDir()
	}

	server := NewServer(console, origins, pull, staticDir, ":0", nil)
	server.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	env.handler = server.Handler()
	return env
}

func (e *testEnv) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

type consoleResponse struct {
	Meta struct {
		Status    string `json:"status"`
		Timestamp string `json:"timestamp"`
		BatchID   string `json:"batch_id"`
	} `json:"meta"`
	Data struct {
		Messages []MessageItem `json:"messages"`
	} `json:"data"`
}

const sampleBatch = `{"meta":{},"data":{"messages":[
	{"sms":"Google: your code is 1","time":"1m"},
	{"sms":"Facebook: your code is 2","time":"2m"}
]}}`

func TestPostThenGetConsoleData(t *testing.T) {
	env := newTestEnv(t, false, "")

	w := env.do(http.MethodPost, "/api/console-data", sampleBatch)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	var posted map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &posted)
	if posted["status"] != "success" || posted["count"] != float64(2) {
		t.Errorf("Unexpected POST response: %v", posted)
	}

	w = env.do(http.MethodGet, "/api/console-data", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var resp consoleResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}

	if resp.Meta.Status != "success" || resp.Meta.Timestamp != "2026-01-02T03:04:05.000000" || resp.Meta.BatchID != "batch-1" {
		t.Errorf("Unexpected meta: %+v", resp.Meta)
	}
	msgs := resp.Data.Messages
	if len(msgs) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].AppName != "Facebook" || msgs[1].AppName != "Google" {
		t.Errorf("Expected [Facebook Google], got [%s %s]", msgs[0].AppName, msgs[1].AppName)
	}
	if msgs[0].SMS != "your code is 2" || msgs[0].Time != "2m" {
		t.Errorf("Unexpected first message: %+v", msgs[0])
	}
	for _, m := range msgs {
		if m.Color == "" {
			t.Errorf("Expected color for %s", m.AppName)
		}
	}
	if len(env.scheduler.queued) != 2 {
		t.Errorf("Expected crawls for new origins, got %v", env.scheduler.queued)
	}
}

func TestPostConsoleData_EmptyBatch(t *testing.T) {
	env := newTestEnv(t, false, "")
	env.messages.stored = []*domain.Message{{AppName: "Old"}}

	w := env.do(http.MethodPost, "/api/console-data", `{"meta":{},"data":{}}`)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"count":0`) {
		t.Errorf("Expected count 0, got %s", w.Body.String())
	}
	if len(env.messages.stored) != 1 {
		t.Error("Expected previous batch to remain")
	}
}

func TestPostConsoleData_InvalidJSON(t *testing.T) {
	env := newTestEnv(t, false, "")

	w := env.do(http.MethodPost, "/api/console-data", `{"data":`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d", w.Code)
	}
	var body map[string]string
	json.Unmarshal(w.Body.Bytes(), &body)
	if body["detail"] == "" {
		t.Error("Expected detail in error body")
	}
}

func TestConsoleData_PersistenceError(t *testing.T) {
	env := newTestEnv(t, false, "")
	env.messages.err = domain.PersistenceError("replace batch", errors.New("database is locked"))

	for _, method := range []string{http.MethodPost, http.MethodGet} {
		w := env.do(method, "/api/console-data", sampleBatch)
		if w.Code != http.StatusInternalServerError {
			t.Errorf("%s: expected status 500, got %d", method, w.Code)
		}
		if !strings.Contains(w.Body.String(), "database is locked") {
			t.Errorf("%s: expected detail, got %s", method, w.Body.String())
		}
	}
}

func TestListOrigins(t *testing.T) {
	env := newTestEnv(t, false, "")
	checked := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	env.origins.origins["Google"] = &domain.Origin{ID: 1, AppName: "Google", Color: "c1", LoginURL: "https://accounts.google.com", URLCheckedAt: &checked}
	env.origins.origins["Facebook"] = &domain.Origin{ID: 2, AppName: "Facebook", Color: "c2"}

	w := env.do(http.MethodGet, "/api/origins", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var resp struct {
		Status  string       `json:"status"`
		Origins []OriginItem `json:"origins"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp.Status != "success" || len(resp.Origins) != 2 {
		t.Fatalf("Unexpected response: %s", w.Body.String())
	}

	fb, google := resp.Origins[0], resp.Origins[1]
	if fb.AppName != "Facebook" || fb.LoginURL != nil || fb.URLChecked {
		t.Errorf("Unexpected unchecked origin: %+v", fb)
	}
	if google.LoginURL == nil || *google.LoginURL != "https://accounts.google.com" || !google.URLChecked {
		t.Errorf("Unexpected checked origin: %+v", google)
	}
	if google.URLCheckedAt == nil || *google.URLCheckedAt != "2026-01-01T00:00:00Z" {
		t.Errorf("Unexpected checked time: %v", google.URLCheckedAt)
	}
}

func TestCheckAllOrigins(t *testing.T) {
	env := newTestEnv(t, false, "")
	env.origins.origins["Google"] = &domain.Origin{AppName: "Google"}
	env.origins.origins["Facebook"] = &domain.Origin{AppName: "Facebook"}

	w := env.do(http.MethodPost, "/api/origins/check-all", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"count":2`) {
		t.Errorf("Expected count 2, got %s", w.Body.String())
	}

	w = env.do(http.MethodGet, "/api/origins/check-all", "")
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected status 405, got %d", w.Code)
	}
}

func TestPullEndpointsDisabledInPushMode(t *testing.T) {
	env := newTestEnv(t, false, "")

	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/api/login"},
		{http.MethodGet, "/api/refresh-token"},
	} {
		w := env.do(tc.method, tc.path, `{"email":"a","password":"b"}`)
		if w.Code != http.StatusNotFound {
			t.Errorf("%s %s: expected status 404, got %d", tc.method, tc.path, w.Code)
		}
	}
}

func TestPullMode_GetConsoleDataSyncsFirst(t *testing.T) {
	env := newTestEnv(t, true, "")
	env.upstream.raws = []domain.RawMessage{
		{SMS: "Facebook: newest"},
		{SMS: "Google: older"},
	}

	w := env.do(http.MethodGet, "/api/console-data", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp consoleResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Data.Messages) != 2 || resp.Data.Messages[0].AppName != "Facebook" {
		t.Errorf("Expected upstream order, got %+v", resp.Data.Messages)
	}
}

func TestPullMode_EmptyUpstreamClearsStore(t *testing.T) {
	env := newTestEnv(t, true, "")
	env.messages.stored = []*domain.Message{{AppName: "Old", BatchID: "batch-0"}}

	w := env.do(http.MethodGet, "/api/console-data", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp consoleResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Data.Messages) != 0 {
		t.Errorf("Expected no messages, got %+v", resp.Data.Messages)
	}
	if resp.Meta.BatchID != "" {
		t.Errorf("Expected no batch id for an empty store, got %q", resp.Meta.BatchID)
	}
}

func TestPullMode_AuthFailureIs500(t *testing.T) {
	env := newTestEnv(t, true, "")
	env.upstream.err = domain.AuthError("fetch console", errors.New("dashboard: token exchange failed"))

	w := env.do(http.MethodGet, "/api/console-data", "")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("Expected status 500, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "token exchange failed") {
		t.Errorf("Expected auth detail, got %s", w.Body.String())
	}
}

func TestPullMode_LoginAndRefreshToken(t *testing.T) {
	env := newTestEnv(t, true, "")

	w := env.do(http.MethodPost, "/api/login", `{"email":"a@b.c","password":"pw"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if strings.TrimSpace(w.Body.String()) != `{"data":{"session":"abc"}}` {
		t.Errorf("Expected upstream passthrough, got %s", w.Body.String())
	}

	w = env.do(http.MethodPost, "/api/login", `{"email":"a@b.c"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for missing password, got %d", w.Code)
	}

	w = env.do(http.MethodGet, "/api/refresh-token", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var tok struct {
		Token     string `json:"token"`
		FromCache bool   `json:"from_cache"`
	}
	json.Unmarshal(w.Body.Bytes(), &tok)
	if tok.Token != "tok" || !tok.FromCache {
		t.Errorf("Unexpected token response: %s", w.Body.String())
	}
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t, false, "")

	req := httptest.NewRequest(http.MethodOptions, "/api/console-data", nil)
	req.Header.Set("Origin", "https://dashboard.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "content-type")
	w := httptest.NewRecorder()
	env.handler.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("Expected wildcard origin")
	}
	if w.Header().Get("Access-Control-Allow-Headers") != "content-type" {
		t.Errorf("Expected requested headers to be allowed, got %q", w.Header().Get("Access-Control-Allow-Headers"))
	}

	w = env.do(http.MethodGet, "/api/console-data", "")
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("Expected CORS header on normal responses")
	}
}

func TestRoot_FallbackAndIndex(t *testing.T) {
	env := newTestEnv(t, false, "")
	w := env.do(http.MethodGet, "/", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"status":"running"`) {
		t.Errorf("Expected JSON landing, got %d %s", w.Code, w.Body.String())
	}

	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>relay</h1>"), 0644)
	os.WriteFile(filepath.Join(dir, "app.js"), []byte("console.log(1)"), 0644)
	env = newTestEnv(t, false, dir)

	w = env.do(http.MethodGet, "/", "")
	if !strings.Contains(w.Body.String(), "<h1>relay</h1>") {
		t.Errorf("Expected index.html, got %s", w.Body.String())
	}
	w = env.do(http.MethodGet, "/static/app.js", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "console.log") {
		t.Errorf("Expected static file, got %d", w.Code)
	}
	w = env.do(http.MethodGet, "/nope", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
	w = env.do(http.MethodGet, "/health", "")
	if w.Body.String() != "ok" {
		t.Errorf("Expected ok, got %s", w.Body.String())
	}
}
