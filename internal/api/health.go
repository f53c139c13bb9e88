package api

import "net/http"

type healthResponse struct {
	Status          string `json:"status"`
	ModelPreloaded  bool   `json:"model_preloaded"`
	QueueSize       int    `json:"queue_size"`
	ActiveWebsockets int   `json:"active_websockets"`
	JobsInMemory    int    `json:"jobs_in_memory"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	preloaded := s.backendConn.CheckHealth(r.Context())
	if !preloaded {
		status = "degraded"
	}

	jobsInMemory := 0
	if stats, ok := s.jobMgr.Statistics(); ok {
		jobsInMemory = stats.Total
	}

	writeJSON(w, http.StatusOK, healthResponse{
		Status:           status,
		ModelPreloaded:   preloaded,
		QueueSize:        s.pool.QueueDepth(),
		ActiveWebsockets: int(s.activeWebsockets.Load()),
		JobsInMemory:     jobsInMemory,
	})
}
