// Package service exposes the state container as a JSON HTTP API.
package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kotlinhustle/power-split/internal/models"
	"github.com/kotlinhustle/power-split/internal/report"
	"github.com/kotlinhustle/power-split/internal/state"
)

// maxBodyBytes bounds request bodies. A full snapshot is a few kilobytes.
const maxBodyBytes = 1 << 20

var (
	errPreconditionFailed = errors.New("state changed since it was read")
	errEmptyGroup         = errors.New("group has no valid rooms")
)

// Service serves the HTTP API on top of a state container.
type Service struct {
	state  *state.Container
	report report.Options
}

// New creates a Service. opts controls the labels of GET /api/report.
func New(c *state.Container, opts report.Options) *Service {
	return &Service{state: c, report: opts}
}

// Handler returns a mux with every route registered.
func (s *Service) Handler() *http.ServeMux {
	mux := http.NewServeMux()
	s.Register(mux)
	return mux
}

// Register adds the API routes to mux.
func (s *Service) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/state", s.GetState)
	mux.HandleFunc("PUT /api/state", s.PutState)
	mux.HandleFunc("POST /api/reset", s.Reset)

	mux.HandleFunc("PUT /api/tariff", s.SetTariff)
	mux.HandleFunc("PUT /api/policy", s.SetPolicy)
	mux.HandleFunc("PUT /api/aggregate/{rate}", s.SetAggregateReading)
	mux.HandleFunc("PUT /api/occupancy", s.SetOccupancy)

	mux.HandleFunc("POST /api/meters", s.AddMeter)
	mux.HandleFunc("PATCH /api/meters/{id}", s.UpdateMeter)
	mux.HandleFunc("DELETE /api/meters/{id}", s.RemoveMeter)

	mux.HandleFunc("POST /api/groups", s.AddGroup)
	mux.HandleFunc("PATCH /api/groups/{id}", s.UpdateGroup)
	mux.HandleFunc("DELETE /api/groups/{id}", s.RemoveGroup)

	mux.HandleFunc("GET /api/result", s.GetResult)
	mux.HandleFunc("GET /api/report", s.GetReport)

	mux.HandleFunc("GET /api/sync", s.GetSync)
	mux.HandleFunc("POST /api/sync/retry", s.RetrySync)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", promhttp.Handler())
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON encodes v before sending the status, so an encoding failure
// becomes a 500 instead of a truncated 200.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("Response encoding failed", "error", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"failed to encode response"}` + "\n"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(data, '\n'))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeEditError maps an edit failure onto a status code.
func writeEditError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrSubMeterNotFound), errors.Is(err, models.ErrGroupNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, errPreconditionFailed):
		writeError(w, http.StatusPreconditionFailed, err.Error())
	default:
		writeError(w, http.StatusBadRequest, err.Error())
	}
}

// decodeBody reads a JSON request body into v.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

func etag(fingerprint string) string {
	return `"` + fingerprint + `"`
}
