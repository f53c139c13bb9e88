package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// streamJobProgress upgrades to a WebSocket connection and pushes every
// progress frame the status monitor buffers for job_id, starting from
// the beginning, until the job reaches a terminal state, at which point
// the connection is closed. Grounded on the terminal-server Upgrader
// pattern used elsewhere in the pack for server-side websocket pushes.
func (s *Server) streamJobProgress(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	if err := validateID("job_id", jobID); err != nil {
		writeError(w, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("ws: upgrade failed", "job_id", jobID, "err", err)
		return
	}
	defer conn.Close()

	s.activeWebsockets.Add(1)
	defer s.activeWebsockets.Add(-1)

	startSeq := 0
	for {
		events, notify, done, found := s.mon.Subscribe(jobID, startSeq)
		if !found {
			job, err := s.jobMgr.GetJob(r.Context(), jobID)
			if err != nil {
				_ = conn.WriteJSON(map[string]string{"error": "job not found"})
				return
			}
			_ = conn.WriteJSON(job)
			return
		}

		for _, ev := range events {
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		}
		startSeq += len(events)

		if done {
			return
		}

		select {
		case <-notify:
			// loop around and re-subscribe for the next batch
		case <-r.Context().Done():
			return
		}
	}
}
