package service

import (
	"errors"
	"net/http"

	"github.com/kotlinhustle/power-split/internal/models"
	"github.com/kotlinhustle/power-split/internal/report"
	"github.com/kotlinhustle/power-split/internal/state"
	"github.com/kotlinhustle/power-split/internal/syncer"
)

// GetResult returns the computed breakdown for the current snapshot.
func (s *Service) GetResult(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("ETag", etag(s.state.Fingerprint()))
	writeJSON(w, http.StatusOK, s.state.Result())
}

// GetReport returns the plain-text report.
func (s *Service) GetReport(w http.ResponseWriter, r *http.Request) {
	snap := s.state.Snapshot()
	text := report.Format(snap, s.state.Result(), s.report)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("ETag", etag(models.Fingerprint(snap)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(text))
}

type syncResponse struct {
	Enabled bool `json:"enabled"`
	*syncer.State
}

// GetSync reports the remote sync status.
func (s *Service) GetSync(w http.ResponseWriter, r *http.Request) {
	st, err := s.state.SyncState()
	if errors.Is(err, state.ErrSyncDisabled) {
		writeJSON(w, http.StatusOK, syncResponse{})
		return
	}
	writeJSON(w, http.StatusOK, syncResponse{Enabled: true, State: &st})
}

type retryResponse struct {
	Retried bool `json:"retried"`
}

// RetrySync resends the last blob that failed to reach the remote store.
func (s *Service) RetrySync(w http.ResponseWriter, r *http.Request) {
	retried, err := s.state.RetrySync()
	if err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, retryResponse{Retried: retried})
}
