package api

import "net/http"

// NewRouter sets up the HTTP routes of the backtest service.
func NewRouter(s *Server) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/v1/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	mux.HandleFunc("/api/backtest", s.HandleBacktest)
	mux.HandleFunc("/api/runs", s.HandleRuns)

	if s.Hub != nil {
		mux.HandleFunc("/ws", s.Hub.HandleWS)
	}

	return mux
}
