package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/giygas/medcodes-scraper/codesparser/entities"
	"github.com/giygas/medcodes-scraper/config"
	"github.com/giygas/medcodes-scraper/data"
	"github.com/giygas/medcodes-scraper/health"
	"github.com/giygas/medcodes-scraper/scheduler"
)

// mockRunner implements interfaces.Runner for testing
type mockRunner struct {
	result *entities.RunResult
	err    error
}

func (m *mockRunner) Run(ctx context.Context) (*entities.RunResult, error) {
	return m.result, m.err
}

func testConfig() *config.Config {
	return &config.Config{
		Port:    "8080",
		Address: "127.0.0.1",
		Env:     config.EnvTest,
	}
}

func newTestServer(runner *mockRunner) (*Server, *data.RunContainer) {
	store := data.NewRunContainer()
	store.SetServerStartTime(time.Now())
	sched := scheduler.NewScheduler(store, runner, scheduler.Options{})
	return NewServer(testConfig(), store, sched, health.NewHealthChecker(store)), store
}

func serve(s *Server, method, path, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if remoteAddr != "" {
		req.RemoteAddr = remoteAddr
	}
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)
	return rr
}

func TestNewServer(t *testing.T) {
	s, _ := newTestServer(&mockRunner{})

	if s.server.Addr != "127.0.0.1:8080" {
		t.Errorf("Expected address 127.0.0.1:8080, got %s", s.server.Addr)
	}
	if s.server.WriteTimeout <= scheduler.RunTimeout {
		t.Errorf("Write timeout %v should outlast a run", s.server.WriteTimeout)
	}
	if s.router == nil || s.handler == nil {
		t.Fatal("router and handler should be set")
	}
}

func TestRunEndpoint(t *testing.T) {
	result := &entities.RunResult{RunID: "run-1", CMSCount: 1, NUCCCount: 1, TotalCount: 2}
	s, store := newTestServer(&mockRunner{result: result})

	rr := serve(s, http.MethodPost, "/run", "10.0.0.1:1234")
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if body["status"] != "success" {
		t.Errorf("Expected success status, got %v", body["status"])
	}
	if store.GetLastResult() != result {
		t.Error("run result should be recorded")
	}

	rr = serve(s, http.MethodGet, "/runs/latest", "10.0.0.1:1234")
	if rr.Code != http.StatusOK {
		t.Errorf("Expected 200 for latest run, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"run_id":"run-1"`) {
		t.Errorf("Expected latest run in body, got %s", rr.Body.String())
	}
}

func TestRunEndpointFailure(t *testing.T) {
	s, _ := newTestServer(&mockRunner{err: errors.New("scraping failed")})

	rr := serve(s, http.MethodPost, "/run", "10.0.0.2:1234")
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("Expected 500, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"status":"error"`) {
		t.Errorf("Expected error status in body, got %s", rr.Body.String())
	}
}

func TestRoutes(t *testing.T) {
	s, _ := newTestServer(&mockRunner{})

	tests := []struct {
		name           string
		method         string
		path           string
		expectedStatus int
	}{
		{"latest run before any run", http.MethodGet, "/runs/latest", http.StatusNotFound},
		{"health", http.MethodGet, "/health", http.StatusOK},
		{"metrics", http.MethodGet, "/metrics", http.StatusOK},
		{"run requires POST", http.MethodGet, "/run", http.StatusMethodNotAllowed},
		{"unknown route", http.MethodGet, "/unknown", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serve(s, tt.method, tt.path, "10.0.0.3:1234")
			if rr.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, rr.Code)
			}
		})
	}
}

func TestSpoofedForwardedForIsIgnoredWithoutTrustProxy(t *testing.T) {
	s, _ := newTestServer(&mockRunner{result: &entities.RunResult{RunID: "run-1"}})

	accepted := 0
	for i := 0; i < 20; i++ {
		req := httptest.NewRequest(http.MethodPost, "/run", nil)
		req.RemoteAddr = fmt.Sprintf("10.0.0.9:%d", 50000+i)
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("198.51.100.%d", i+1))
		rr := httptest.NewRecorder()
		s.Router().ServeHTTP(rr, req)
		if rr.Code == http.StatusOK {
			accepted++
		}
	}
	if accepted != 2 {
		t.Errorf("Expected 2 runs accepted for one client, got %d", accepted)
	}
}

func TestForwardedForHonoredWithTrustProxy(t *testing.T) {
	cfg := testConfig()
	cfg.TrustProxy = true
	store := data.NewRunContainer()
	sched := scheduler.NewScheduler(store, &mockRunner{result: &entities.RunResult{RunID: "run-1"}}, scheduler.Options{})
	s := NewServer(cfg, store, sched, health.NewHealthChecker(store))

	// Two clients behind the same proxy get their own buckets
	for _, client := range []string{"198.51.100.1", "198.51.100.1", "198.51.100.2"} {
		req := httptest.NewRequest(http.MethodPost, "/run", nil)
		req.RemoteAddr = "10.0.0.10:1234"
		req.Header.Set("X-Forwarded-For", client)
		rr := httptest.NewRecorder()
		s.Router().ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Errorf("Expected 200 for %s, got %d", client, rr.Code)
		}
	}
}

func TestMetricsEndpointExposesScraperMetrics(t *testing.T) {
	s, _ := newTestServer(&mockRunner{})
	serve(s, http.MethodGet, "/health", "10.0.0.4:1234")

	rr := serve(s, http.MethodGet, "/metrics", "10.0.0.4:1234")
	if !strings.Contains(rr.Body.String(), "http_request_total") {
		t.Error("Expected HTTP metrics in /metrics output")
	}
}

func TestServerLifecycle(t *testing.T) {
	cfg := testConfig()
	cfg.Port = "18089"
	store := data.NewRunContainer()
	sched := scheduler.NewScheduler(store, &mockRunner{}, scheduler.Options{})
	s := NewServer(cfg, store, sched, health.NewHealthChecker(store))

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Start()
	}()

	// Wait for the listener
	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, err := http.Get("http://127.0.0.1:18089/health")
		if err == nil {
			_ = resp.Body.Close()
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server did not start: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}

	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		t.Errorf("Expected ErrServerClosed, got %v", err)
	}
}
