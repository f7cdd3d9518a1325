package service

import (
	"log/slog"
	"net/http"

	"github.com/kotlinhustle/power-split/internal/models"
)

type addGroupRequest struct {
	Name        string `json:"name"`
	RoomIndexes []int  `json:"roomIndexes"`
}

// AddGroup creates a named set of rooms. A group that would have no valid
// rooms is rejected.
func (s *Service) AddGroup(w http.ResponseWriter, r *http.Request) {
	var req addGroupRequest
	if !decodeBody(w, r, &req) {
		return
	}
	slog.Info("AddGroup request received",
		"name", req.Name,
		"rooms_count", len(req.RoomIndexes),
	)

	id := s.state.NewID()
	snap, err := s.state.Apply(r.Context(), func(cur models.Snapshot) (models.Snapshot, error) {
		next := cur.WithGroup(models.Group{ID: id, Name: req.Name, RoomIndexes: req.RoomIndexes})
		if _, ok := next.Group(id); !ok {
			return cur, errEmptyGroup
		}
		return next, nil
	})
	if err != nil {
		slog.Warn("AddGroup failed", "error", err)
		writeEditError(w, err)
		return
	}

	g, _ := snap.Group(id)
	slog.Info("Group created", "group_id", id)
	writeJSON(w, http.StatusCreated, g)
}

// UpdateGroup renames a group or changes its rooms.
func (s *Service) UpdateGroup(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var patch models.GroupPatch
	if !decodeBody(w, r, &patch) {
		return
	}
	slog.Info("UpdateGroup request received", "group_id", id)

	snap, err := s.state.Apply(r.Context(), func(cur models.Snapshot) (models.Snapshot, error) {
		next, err := cur.UpdateGroup(id, patch)
		if err != nil {
			return cur, err
		}
		if _, ok := next.Group(id); !ok {
			return cur, errEmptyGroup
		}
		return next, nil
	})
	if err != nil {
		slog.Warn("UpdateGroup failed", "group_id", id, "error", err)
		writeEditError(w, err)
		return
	}

	g, _ := snap.Group(id)
	writeJSON(w, http.StatusOK, g)
}

// RemoveGroup deletes a group.
func (s *Service) RemoveGroup(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	slog.Info("RemoveGroup request received", "group_id", id)

	_, err := s.state.Apply(r.Context(), func(cur models.Snapshot) (models.Snapshot, error) {
		return cur.RemoveGroup(id)
	})
	if err != nil {
		slog.Warn("RemoveGroup failed", "group_id", id, "error", err)
		writeEditError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
