package service

import (
	"log/slog"
	"net/http"

	"github.com/kotlinhustle/power-split/internal/models"
)

type meterView struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Prev  string `json:"prev"`
	Curr  string `json:"curr"`
	Rooms []int  `json:"rooms"`
}

func toMeterView(m models.SubMeter) meterView {
	return meterView{
		ID:    m.ID,
		Name:  m.Name,
		Prev:  m.Reading.Previous,
		Curr:  m.Reading.Current,
		Rooms: m.Rooms,
	}
}

type addMeterRequest struct {
	Name  string `json:"name"`
	Prev  string `json:"prev"`
	Curr  string `json:"curr"`
	Rooms []int  `json:"rooms"`
}

// AddMeter appends a sub-meter with a fresh ID.
func (s *Service) AddMeter(w http.ResponseWriter, r *http.Request) {
	var req addMeterRequest
	if !decodeBody(w, r, &req) {
		return
	}
	slog.Info("AddMeter request received", "name", req.Name, "rooms", req.Rooms)

	id := s.state.NewID()
	snap, err := s.state.Apply(r.Context(), func(cur models.Snapshot) (models.Snapshot, error) {
		return cur.WithSubMeter(models.SubMeter{
			ID:      id,
			Name:    req.Name,
			Reading: models.Reading{Previous: req.Prev, Current: req.Curr},
			Rooms:   req.Rooms,
		}), nil
	})
	if err != nil {
		slog.Error("AddMeter failed", "error", err)
		writeEditError(w, err)
		return
	}

	m, _ := snap.SubMeter(id)
	slog.Info("Meter added", "meter_id", id)
	writeJSON(w, http.StatusCreated, toMeterView(m))
}

// UpdateMeter renames a sub-meter, changes its reading or its rooms.
func (s *Service) UpdateMeter(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var patch models.SubMeterPatch
	if !decodeBody(w, r, &patch) {
		return
	}
	slog.Info("UpdateMeter request received", "meter_id", id)

	snap, err := s.state.Apply(r.Context(), func(cur models.Snapshot) (models.Snapshot, error) {
		return cur.UpdateSubMeter(id, patch)
	})
	if err != nil {
		slog.Warn("UpdateMeter failed", "meter_id", id, "error", err)
		writeEditError(w, err)
		return
	}

	m, _ := snap.SubMeter(id)
	writeJSON(w, http.StatusOK, toMeterView(m))
}

// RemoveMeter deletes a sub-meter.
func (s *Service) RemoveMeter(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	slog.Info("RemoveMeter request received", "meter_id", id)

	_, err := s.state.Apply(r.Context(), func(cur models.Snapshot) (models.Snapshot, error) {
		return cur.RemoveSubMeter(id)
	})
	if err != nil {
		slog.Warn("RemoveMeter failed", "meter_id", id, "error", err)
		writeEditError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
