package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/iwvelando/rocket-calculator/internal/cache"
	"github.com/iwvelando/rocket-calculator/internal/config"
	"github.com/iwvelando/rocket-calculator/internal/sizing"
	"github.com/iwvelando/rocket-calculator/pkg/testutil"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const feasibleBody = `{"payloadMassKg":1000,"specificImpulseS":450,"launchLatitudeDeg":28.5,"orbitAltitudeM":200000,"structuralFraction":0.1,"deltaVBudgetMps":10000}`

func newTestHandler(t *testing.T, conf config.ServerConfig) *Handler {
	t.Helper()
	opts, err := NewOptions(conf, "test")
	if err != nil {
		t.Fatalf("NewOptions() error = %v", err)
	}
	h := NewHandler(zap.NewNop(), opts, cache.NewMemoryCache(time.Minute), testutil.FeasibleInputs())
	t.Cleanup(h.Close)
	return h
}

func postCalculate(h http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/calculate", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHandleCalculateSuccess(t *testing.T) {
	h := newTestHandler(t, config.ServerConfig{})

	rr := postCalculate(h, feasibleBody)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if rr.Header().Get(RequestIDHeader) == "" {
		t.Fatal("expected request ID header")
	}

	var resp calculateResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if resp.Result.Adjusted {
		t.Fatal("expected unadjusted result")
	}
	if got := resp.Result.Masses.TotalMass; got < 262963.20 || got > 262963.21 {
		t.Fatalf("expected total mass 262963.20, got %f", got)
	}
	if !strings.Contains(resp.Report, "=== Summary ===") {
		t.Fatalf("expected pretty report in response, got %q", resp.Report)
	}
	if !strings.HasPrefix(resp.CSV, "payloadMassKg,") {
		t.Fatalf("expected CSV data in response, got %q", resp.CSV)
	}
	if resp.Cached {
		t.Fatal("first request should not be served from cache")
	}
	if resp.Duration == "" {
		t.Fatal("expected duration in response")
	}

	rr = postCalculate(h, feasibleBody)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var second calculateResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &second); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !second.Cached {
		t.Fatal("expected repeated request to be served from cache")
	}
	if second.Result != resp.Result {
		t.Fatalf("cached result differs: %+v vs %+v", second.Result, resp.Result)
	}
}

func TestHandleCalculateUsesDefaultsForMissingFields(t *testing.T) {
	h := newTestHandler(t, config.ServerConfig{})

	tests := []struct {
		name string
		body string
		want sizing.RocketInputs
	}{
		{"empty body", "", testutil.FeasibleInputs()},
		{"empty object", "{}", testutil.FeasibleInputs()},
		{"partial", `{"payloadMassKg":5}`, func() sizing.RocketInputs {
			in := testutil.FeasibleInputs()
			in.PayloadMass = 5
			return in
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := postCalculate(h, tt.body)
			if rr.Code != http.StatusOK {
				t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
			}
			var resp calculateResponse
			if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp.Result.Inputs != tt.want {
				t.Fatalf("expected inputs %+v, got %+v", tt.want, resp.Result.Inputs)
			}
		})
	}
}

func TestHandleCalculateRejectsInvalidInputs(t *testing.T) {
	h := newTestHandler(t, config.ServerConfig{})

	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{"delta-v below window", `{"deltaVBudgetMps":5000}`, "delta-v budget"},
		{"negative payload", `{"payloadMassKg":-1}`, "payload mass"},
		{"fraction of one", `{"structuralFraction":1}`, "structural fraction"},
		{"unknown field", `{"fuel":1}`, "unknown field"},
		{"malformed", `{"payloadMassKg":`, "failed to decode request"},
		{"wrong type", `{"payloadMassKg":"heavy"}`, "failed to decode request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := postCalculate(h, tt.body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected status 400, got %d: %s", rr.Code, rr.Body.String())
			}
			var resp errorResponse
			if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if !strings.Contains(resp.Error, tt.wantMsg) {
				t.Fatalf("expected error containing %q, got %q", tt.wantMsg, resp.Error)
			}
		})
	}
}

func TestHandleCalculateFatal(t *testing.T) {
	h := newTestHandler(t, config.ServerConfig{})

	rr := postCalculate(h, `{"specificImpulseS":390,"deltaVBudgetMps":9650,"structuralFraction":0.1}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp fatalResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.OriginalStructuralFraction != 0.1 {
		t.Fatalf("expected original fraction 0.1, got %v", resp.OriginalStructuralFraction)
	}
	if resp.AdjustedStructuralFraction < 0.0802 || resp.AdjustedStructuralFraction > 0.0804 {
		t.Fatalf("expected adjusted fraction near 0.0803, got %v", resp.AdjustedStructuralFraction)
	}
	if !strings.Contains(resp.Error, sizing.FatalReason) {
		t.Fatalf("expected fatal reason in error, got %q", resp.Error)
	}
	if !strings.Contains(resp.Report, "Error: Even after adjustment") {
		t.Fatalf("expected fatal report, got %q", resp.Report)
	}
}

func TestHandleCalculateBodyTooLarge(t *testing.T) {
	h := newTestHandler(t, config.ServerConfig{MaxBodySize: "16"})

	rr := postCalculate(h, feasibleBody)
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected status 413, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestHandleCalculateMethodNotAllowed(t *testing.T) {
	h := newTestHandler(t, config.ServerConfig{})

	req := httptest.NewRequest(http.MethodGet, "/api/calculate", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected status 405, got %d", rr.Code)
	}
}

func TestRateLimit(t *testing.T) {
	h := newTestHandler(t, config.ServerConfig{RateLimit: 2, RateWindow: time.Hour})

	for i := 0; i < 2; i++ {
		if rr := postCalculate(h, feasibleBody); rr.Code != http.StatusOK {
			t.Fatalf("request %d: expected status 200, got %d", i, rr.Code)
		}
	}

	rr := postCalculate(h, feasibleBody)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected status 429, got %d", rr.Code)
	}
	if rr.Header().Get(RequestIDHeader) == "" {
		t.Fatal("expected request ID header on rate limited response")
	}
}

func TestRequestIDPropagation(t *testing.T) {
	h := newTestHandler(t, config.ServerConfig{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if got := rr.Header().Get(RequestIDHeader); got != "abc-123" {
		t.Fatalf("expected request ID abc-123, got %q", got)
	}

	other := httptest.NewRecorder()
	h.ServeHTTP(other, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	first := other.Header().Get(RequestIDHeader)

	another := httptest.NewRecorder()
	h.ServeHTTP(another, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if first == "" || first == another.Header().Get(RequestIDHeader) {
		t.Fatalf("expected distinct generated request IDs, got %q and %q", first, another.Header().Get(RequestIDHeader))
	}
}

func TestHandleDefaults(t *testing.T) {
	h := newTestHandler(t, config.ServerConfig{})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/defaults", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var got sizing.RocketInputs
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got != testutil.FeasibleInputs() {
		t.Fatalf("expected %+v, got %+v", testutil.FeasibleInputs(), got)
	}

	updated := testutil.FeasibleInputs()
	updated.PayloadMass = 42
	h.SetDefaults(updated)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/defaults?format=yaml", nil))
	if ct := rr.Header().Get("Content-Type"); ct != "application/yaml" {
		t.Fatalf("expected application/yaml, got %q", ct)
	}
	var fromYAML sizing.RocketInputs
	if err := yaml.Unmarshal(rr.Body.Bytes(), &fromYAML); err != nil {
		t.Fatalf("failed to decode YAML response: %v", err)
	}
	if fromYAML != updated {
		t.Fatalf("expected %+v, got %+v", updated, fromYAML)
	}
}

func TestHandleVersionAndHealth(t *testing.T) {
	h := newTestHandler(t, config.ServerConfig{})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/version", nil))
	var version map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &version); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if version["version"] != "test" {
		t.Fatalf("expected version test, got %q", version["version"])
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "ok") {
		t.Fatalf("unexpected health response %d: %s", rr.Code, rr.Body.String())
	}
}

func TestServeShutsDownOnCancel(t *testing.T) {
	h := newTestHandler(t, config.ServerConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Serve(ctx, zap.NewNop(), h, "127.0.0.1:0")
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancellation")
	}
}

func TestServeInvalidAddress(t *testing.T) {
	err := Serve(context.Background(), nil, http.NotFoundHandler(), "not-a-valid-address")
	if err == nil {
		t.Fatal("expected error for invalid address")
	}
}
