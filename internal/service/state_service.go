package service

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/kotlinhustle/power-split/internal/models"
	"github.com/kotlinhustle/power-split/internal/state"
)

// GetState returns the current snapshot in its stored blob form. The ETag is
// the snapshot fingerprint.
func (s *Service) GetState(w http.ResponseWriter, r *http.Request) {
	snap := s.state.Snapshot()
	tag := etag(models.Fingerprint(snap))
	w.Header().Set("ETag", tag)
	if r.Header.Get("If-None-Match") == tag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	s.writeSnapshot(w, http.StatusOK, snap)
}

// PutState replaces the whole snapshot. The body is decoded as leniently as
// a stored blob, but must at least be a JSON object. With If-Match the
// replacement only happens if the state is unchanged.
func (s *Service) PutState(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(bytes.TrimSpace(body), &fields); err != nil || fields == nil {
		writeError(w, http.StatusBadRequest, "state must be a JSON object")
		return
	}

	slog.Info("PutState request received", "bytes", len(body))
	want := r.Header.Get("If-Match")
	next := models.Decode(body)
	snap, err := s.state.Apply(r.Context(), func(cur models.Snapshot) (models.Snapshot, error) {
		if want != "" && want != "*" && want != etag(models.Fingerprint(cur)) {
			return cur, errPreconditionFailed
		}
		return next, nil
	})
	if err != nil {
		slog.Warn("PutState failed", "error", err)
		writeEditError(w, err)
		return
	}
	s.writeSnapshot(w, http.StatusOK, snap)
}

// Reset discards the stored state and returns the defaults.
func (s *Service) Reset(w http.ResponseWriter, r *http.Request) {
	slog.Info("Reset request received")
	snap, err := s.state.Reset(r.Context())
	if err != nil {
		slog.Error("Reset failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeSnapshot(w, http.StatusOK, snap)
}

type tariffRequest struct {
	Day   *float64 `json:"day"`
	Night *float64 `json:"night"`
	Flat  *float64 `json:"flat"`
}

// SetTariff changes the rates present in the body.
func (s *Service) SetTariff(w http.ResponseWriter, r *http.Request) {
	var req tariffRequest
	if !decodeBody(w, r, &req) {
		return
	}
	s.apply(w, r, "SetTariff", func(cur models.Snapshot) (models.Snapshot, error) {
		t := cur.Tariff
		if req.Day != nil {
			t.Day = *req.Day
		}
		if req.Night != nil {
			t.Night = *req.Night
		}
		if req.Flat != nil {
			t.Flat = *req.Flat
		}
		return cur.WithTariff(t), nil
	})
}

type policyRequest struct {
	Policy string `json:"policy"`
}

// SetPolicy switches the allocation policy.
func (s *Service) SetPolicy(w http.ResponseWriter, r *http.Request) {
	var req policyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	p, err := models.ParsePolicy(req.Policy)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.apply(w, r, "SetPolicy", func(cur models.Snapshot) (models.Snapshot, error) {
		return cur.WithPolicy(p), nil
	})
}

type readingRequest struct {
	Previous *string `json:"prev"`
	Current  *string `json:"curr"`
}

func (req readingRequest) applyTo(r models.Reading) models.Reading {
	if req.Previous != nil {
		r.Previous = *req.Previous
	}
	if req.Current != nil {
		r.Current = *req.Current
	}
	return r
}

// SetAggregateReading sets the day or night register of the aggregate meter.
func (s *Service) SetAggregateReading(w http.ResponseWriter, r *http.Request) {
	rate := models.Rate(r.PathValue("rate"))
	var req readingRequest
	if !decodeBody(w, r, &req) {
		return
	}
	s.apply(w, r, "SetAggregateReading", func(cur models.Snapshot) (models.Snapshot, error) {
		reading := cur.Aggregate.Day
		if rate == models.RateNight {
			reading = cur.Aggregate.Night
		}
		return cur.WithAggregateReading(rate, req.applyTo(reading))
	})
}

type occupancyRequest struct {
	Occupancy []int `json:"occupancy"`
}

// SetOccupancy replaces the per-room head count.
func (s *Service) SetOccupancy(w http.ResponseWriter, r *http.Request) {
	var req occupancyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	s.apply(w, r, "SetOccupancy", func(cur models.Snapshot) (models.Snapshot, error) {
		return cur.WithOccupancy(req.Occupancy), nil
	})
}

// apply runs edit and answers with the new snapshot.
func (s *Service) apply(w http.ResponseWriter, r *http.Request, op string, edit state.Edit) {
	slog.Info(op+" request received")
	snap, err := s.state.Apply(r.Context(), edit)
	if err != nil {
		slog.Warn(op+" failed", "error", err)
		writeEditError(w, err)
		return
	}
	s.writeSnapshot(w, http.StatusOK, snap)
}

func (s *Service) writeSnapshot(w http.ResponseWriter, status int, snap models.Snapshot) {
	data, err := models.Encode(snap)
	if err != nil {
		slog.Error("Snapshot encoding failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("ETag", etag(models.Fingerprint(snap)))
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
