// Package server exposes the rocket sizing calculator as an HTTP JSON API.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/iwvelando/rocket-calculator/internal/cache"
	"github.com/iwvelando/rocket-calculator/internal/sizing"
	"github.com/iwvelando/rocket-calculator/pkg/constants"
	"github.com/iwvelando/rocket-calculator/pkg/output"
	"github.com/iwvelando/rocket-calculator/pkg/validation"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gopkg.in/yaml.v3"
)

// RequestIDHeader carries the request identifier on every response.
const RequestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// Handler serves the calculator API. Call Close when done with it.
type Handler struct {
	logger   *zap.Logger
	opts     Options
	cache    cache.Cache
	limiter  *RateLimiter
	group    singleflight.Group
	defaults atomic.Pointer[sizing.RocketInputs]
	routes   http.Handler
}

// NewHandler constructs the HTTP handler for the calculator API. A nil cache
// selects an in-memory cache without expiry.
func NewHandler(logger *zap.Logger, opts Options, resultCache cache.Cache, defaults sizing.RocketInputs) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if resultCache == nil {
		resultCache = cache.NewMemoryCache(0)
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = constants.DefaultMaxBodySizeBytes
	}

	h := &Handler{
		logger:  logger,
		opts:    opts,
		cache:   resultCache,
		limiter: NewRateLimiter(opts.RateLimit, opts.RateWindow),
	}
	h.SetDefaults(defaults)

	mux := http.NewServeMux()

	// Calculation endpoint
	mux.HandleFunc("/api/calculate", h.handleCalculate)

	// Inputs used for fields a request leaves out
	mux.HandleFunc("/api/defaults", h.handleDefaults)

	mux.HandleFunc("/api/version", h.handleVersion)
	mux.HandleFunc("/healthz", h.handleHealth)

	h.routes = h.withRequestID(h.rateLimit(mux))
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.routes.ServeHTTP(w, r)
}

// SetDefaults replaces the inputs used for omitted request fields.
func (h *Handler) SetDefaults(inputs sizing.RocketInputs) {
	h.defaults.Store(&inputs)
}

// Defaults returns the inputs used for omitted request fields.
func (h *Handler) Defaults() sizing.RocketInputs {
	return *h.defaults.Load()
}

// Close stops background work owned by the handler.
func (h *Handler) Close() {
	h.limiter.Stop()
}

type calculateRequest struct {
	PayloadMass        *float64 `json:"payloadMassKg"`
	SpecificImpulse    *float64 `json:"specificImpulseS"`
	LaunchLatitude     *float64 `json:"launchLatitudeDeg"`
	OrbitAltitude      *float64 `json:"orbitAltitudeM"`
	StructuralFraction *float64 `json:"structuralFraction"`
	DeltaVBudget       *float64 `json:"deltaVBudgetMps"`
}

func (req calculateRequest) apply(inputs sizing.RocketInputs) sizing.RocketInputs {
	for _, field := range []struct {
		value  *float64
		target *float64
	}{
		{req.PayloadMass, &inputs.PayloadMass},
		{req.SpecificImpulse, &inputs.SpecificImpulse},
		{req.LaunchLatitude, &inputs.LaunchLatitude},
		{req.OrbitAltitude, &inputs.OrbitAltitude},
		{req.StructuralFraction, &inputs.StructuralFraction},
		{req.DeltaVBudget, &inputs.DeltaVBudget},
	} {
		if field.value != nil {
			*field.target = *field.value
		}
	}
	return inputs
}

type calculateResponse struct {
	Result   sizing.CalculationResult `json:"result"`
	Report   string                   `json:"report"`
	CSV      string                   `json:"csv"`
	Warnings []string                 `json:"warnings,omitempty"`
	Cached   bool                     `json:"cached"`
	Duration string                   `json:"duration"`
}

type fatalResponse struct {
	Error                      string              `json:"error"`
	OriginalStructuralFraction float64             `json:"originalStructuralFraction"`
	AdjustedStructuralFraction float64             `json:"adjustedStructuralFraction"`
	Performance                sizing.Performance  `json:"performance"`
	Inputs                     sizing.RocketInputs `json:"inputs"`
	Report                     string              `json:"report"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) handleCalculate(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleCalculate"
	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	start := time.Now()
	r.Body = http.MaxBytesReader(w, r.Body, h.opts.MaxBodyBytes)

	var req calculateRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.respondError(w, r, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("request body exceeds limit of %d bytes", h.opts.MaxBodyBytes), op)
			return
		}
		h.respondError(w, r, http.StatusBadRequest, fmt.Sprintf("failed to decode request: %v", err), op)
		return
	}

	inputs := req.apply(h.Defaults())
	if err := validation.ValidateInputs(inputs); err != nil {
		h.respondError(w, r, http.StatusBadRequest, err.Error(), op)
		return
	}

	result, cached, err := h.calculate(r.Context(), inputs)
	if err != nil {
		var fatal *sizing.FatalError
		if errors.As(err, &fatal) {
			h.respondFatal(w, r, inputs, fatal)
			return
		}
		h.respondError(w, r, http.StatusInternalServerError, fmt.Sprintf("failed to calculate: %v", err), op)
		return
	}

	var report bytes.Buffer
	if err := output.PrettyFormat(&report, result); err != nil {
		h.respondError(w, r, http.StatusInternalServerError, fmt.Sprintf("failed to render report: %v", err), op)
		return
	}

	h.writeJSON(w, http.StatusOK, calculateResponse{
		Result:   result,
		Report:   report.String(),
		CSV:      output.CsvString(result),
		Warnings: validation.InputWarnings(inputs),
		Cached:   cached,
		Duration: time.Since(start).String(),
	})
}

// calculate returns the cached result for the inputs, computing and storing
// it on a miss. Concurrent identical requests share one computation.
func (h *Handler) calculate(ctx context.Context, inputs sizing.RocketInputs) (sizing.CalculationResult, bool, error) {
	key := cache.Key(inputs)

	if encoded, ok := h.cache.Get(ctx, key); ok {
		var result sizing.CalculationResult
		if err := json.Unmarshal([]byte(encoded), &result); err == nil {
			return result, true, nil
		}
		h.logger.Warn("discarding undecodable cache entry",
			zap.String("op", "server.calculate"),
			zap.String("key", key),
		)
	}

	value, err, _ := h.group.Do(key, func() (interface{}, error) {
		result, err := sizing.Calculate(h.logger, inputs)
		if err != nil {
			return nil, err
		}

		encoded, err := json.Marshal(result)
		if err == nil {
			err = h.cache.Set(context.WithoutCancel(ctx), key, string(encoded))
		}
		if err != nil {
			h.logger.Warn("failed to cache result",
				zap.String("op", "server.calculate"),
				zap.String("key", key),
				zap.Error(err),
			)
		}
		return result, nil
	})
	if err != nil {
		return sizing.CalculationResult{}, false, err
	}
	return value.(sizing.CalculationResult), false, nil
}

func (h *Handler) respondFatal(w http.ResponseWriter, r *http.Request, inputs sizing.RocketInputs, fatal *sizing.FatalError) {
	var report bytes.Buffer
	_ = output.FatalFormat(&report, inputs, fatal)

	h.logger.Warn("calculation infeasible",
		zap.String("op", "server.handleCalculate"),
		zap.String("requestID", requestID(r)),
		zap.Float64("originalFraction", fatal.OriginalFraction),
		zap.Float64("adjustedFraction", fatal.AdjustedFraction),
	)

	h.writeJSON(w, http.StatusUnprocessableEntity, fatalResponse{
		Error:                      fatal.Error(),
		OriginalStructuralFraction: fatal.OriginalFraction,
		AdjustedStructuralFraction: fatal.AdjustedFraction,
		Performance:                fatal.Performance,
		Inputs:                     inputs,
		Report:                     report.String(),
	})
}

func (h *Handler) handleDefaults(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	defaults := h.Defaults()
	if !strings.EqualFold(r.URL.Query().Get("format"), "yaml") {
		h.writeJSON(w, http.StatusOK, defaults)
		return
	}

	data, err := yaml.Marshal(defaults)
	if err != nil {
		h.respondError(w, r, http.StatusInternalServerError, fmt.Sprintf("failed to encode defaults: %v", err), "server.handleDefaults")
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *Handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"version": h.opts.Version,
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// withRequestID tags every request with an identifier, reusing one supplied
// by the client, and logs the completed request.
func (h *Handler) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(RequestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))

		h.logger.Debug("request completed",
			zap.String("op", "server.ServeHTTP"),
			zap.String("requestID", id),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", recorder.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func requestID(r *http.Request) string {
	id, _ := r.Context().Value(requestIDKey{}).(string)
	return id
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, status int, msg string, op string) {
	h.logger.Error("calculation request failed",
		zap.String("op", op),
		zap.String("requestID", requestID(r)),
		zap.Int("status", status),
		zap.String("error", msg),
	)

	h.writeJSON(w, status, errorResponse{Error: msg})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", zap.Error(err))
	}
}

// Serve runs the API on the configured address until ctx is cancelled, then
// shuts down gracefully.
func Serve(ctx context.Context, logger *zap.Logger, handler http.Handler, address string) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	srv := &http.Server{
		Addr:              address,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting calculator API",
			zap.String("op", "server.Serve"),
			zap.String("address", address),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	logger.Info("shutting down calculator API", zap.String("op", "server.Serve"))
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	<-errCh
	return nil
}
