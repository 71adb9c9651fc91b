package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

type fakeStatus struct {
	mdd, opc, perf interface{}
	candidates     map[string]interface{}
}

func (f *fakeStatus) MDDStatus() interface{}      { return f.mdd }
func (f *fakeStatus) OPCStatus() interface{}       { return f.opc }
func (f *fakeStatus) USCPPerformance() interface{} { return f.perf }
func (f *fakeStatus) USCPCandidates(symbol string) interface{} {
	return f.candidates[symbol]
}

func newTestServer(t *testing.T, status *fakeStatus) *Server {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Port = 0 // let the OS pick a free port so parallel tests don't collide
	s, err := NewServer(cfg, status)
	if err != nil {
		t.Fatalf("unexpected error constructing server: %v", err)
	}
	return s
}

func TestHandleHealth_ReturnsOK(t *testing.T) {
	s := newTestServer(t, &fakeStatus{})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("expected valid JSON body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %+v", body)
	}
}

func TestHandleMDDStatus_ReturnsProviderValue(t *testing.T) {
	status := &fakeStatus{mdd: map[string]int{"tickCount": 42}}
	s := newTestServer(t, status)
	req := httptest.NewRequest(http.MethodGet, "/status/mdd", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var body map[string]int
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("expected valid JSON body: %v", err)
	}
	if body["tickCount"] != 42 {
		t.Errorf("expected tickCount 42 from the status provider, got %+v", body)
	}
}

func TestHandleUSCPCandidates_ExtractsSymbolFromPath(t *testing.T) {
	status := &fakeStatus{candidates: map[string]interface{}{
		"BTC-USD": []string{"candidate-1"},
	}}
	s := newTestServer(t, status)
	req := httptest.NewRequest(http.MethodGet, "/uscp/candidates/BTC-USD", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var body []string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("expected valid JSON body: %v", err)
	}
	if len(body) != 1 || body[0] != "candidate-1" {
		t.Errorf("expected the BTC-USD candidate list, got %+v", body)
	}
}

func TestNotFoundHandler_ReturnsJSONError(t *testing.T) {
	s := newTestServer(t, &fakeStatus{})
	req := httptest.NewRequest(http.MethodGet, "/nonexistent", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("expected valid JSON body: %v", err)
	}
	if body["error"] != "not found" {
		t.Errorf("expected a not found error body, got %+v", body)
	}
}

func TestMiddleware_SetsRequestIDAndContentType(t *testing.T) {
	s := newTestServer(t, &fakeStatus{})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected a non-empty X-Request-ID header")
	}
	if rec.Header().Get("Content-Type") != "application/json" {
		t.Errorf("expected application/json content type, got %s", rec.Header().Get("Content-Type"))
	}
}
