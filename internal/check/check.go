package check

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"Storey/internal/auth"
	"Storey/internal/calc/records"
	"Storey/internal/engine"
	"Storey/internal/engine/snapshot"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MaxRequestSize bounds check request bodies, inline snapshots included.
const MaxRequestSize = 32 << 20

// Request names the result source for a check. An inline snapshot takes
// precedence over the model held by the configured engine.
type Request struct {
	Model    string             `json:"model"`
	Limit    *float64           `json:"limit,omitempty"`
	Snapshot *snapshot.Snapshot `json:"snapshot,omitempty"`
}

type Runner struct {
	Sessions *engine.Manager
	Log      *zap.Logger
}

func NewRunner(sessions *engine.Manager, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{Sessions: sessions, Log: log}
}

// Use runs fn against the source named by req and returns the run id used
// in the logs.
func (r *Runner) Use(ctx context.Context, req Request, fn func(*engine.Handle) error) (string, error) {
	runID := uuid.NewString()
	log := r.Log.With(zap.String("run_id", runID))
	if op := auth.Login(ctx); op != "" {
		log = log.With(zap.String("operator", op))
	}

	if req.Snapshot != nil {
		if err := req.Snapshot.Validate(); err != nil {
			return runID, fmt.Errorf("%w: %v", ErrBadRequest, err)
		}
		log.Debug("using inline snapshot", zap.String("model", req.Snapshot.Model),
			zap.Int("combinations", len(req.Snapshot.Combinations)))
		h := engine.NewHandle(snapshot.New(req.Snapshot))
		defer h.Close()
		return runID, fn(h)
	}

	if r.Sessions == nil {
		return runID, fmt.Errorf("%w: no result source configured", engine.ErrUnavailable)
	}
	log.Debug("using engine session", zap.String("model", req.Model))
	return runID, r.Sessions.Use(ctx, req.Model, fn)
}

// LogFailures reports combinations whose results could not be fetched.
func (r *Runner) LogFailures(runID string, failures []engine.FetchFailure) {
	for _, f := range failures {
		r.Log.Warn("combination skipped",
			zap.String("run_id", runID),
			zap.String("combo", f.Combo),
			zap.String("error", f.Err))
	}
}

var ErrBadRequest = errors.New("bad request")

// DecodeRequest reads a JSON check request from the body.
func DecodeRequest(w http.ResponseWriter, r *http.Request) (Request, error) {
	var req Request
	err := Decode(w, r, &req)
	return req, err
}

// Decode reads a JSON body into v. An empty body leaves v untouched.
func Decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestSize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return nil
}

// Status maps a check error to the HTTP status answered to the client.
func Status(err error) int {
	switch {
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrUnknownCombo):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrUnavailable), errors.Is(err, engine.ErrClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, records.ErrShapeMismatch):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// WriteError answers err with its status, logging server-side failures.
func (r *Runner) WriteError(w http.ResponseWriter, runID string, err error) {
	status := Status(err)
	if status >= http.StatusInternalServerError {
		r.Log.Error("check failed", zap.String("run_id", runID), zap.Error(err))
	}
	if runID != "" {
		w.Header().Set("X-Run-ID", runID)
	}
	http.Error(w, err.Error(), status)
}

// WriteJSON answers v as JSON tagged with the run id. A value that cannot
// be encoded is logged and answered with 500.
func (r *Runner) WriteJSON(w http.ResponseWriter, runID string, v any) {
	if runID != "" {
		w.Header().Set("X-Run-ID", runID)
	}
	b, err := json.Marshal(v)
	if err != nil {
		r.Log.Error("encode response", zap.String("run_id", runID), zap.Error(err))
		http.Error(w, "Response encoding error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(append(b, '\n'))
}
