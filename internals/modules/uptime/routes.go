package uptime

import (
	"github.com/go-chi/chi/v5"
)

func MonitorRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Route("/{monitorID}", func(r chi.Router) {
		r.Post("/resume", h.ResumeMonitor)
		r.Post("/stop", h.StopMonitor)
		r.Delete("/", h.DeleteMonitor)
		r.Get("/heartbeats", h.GetHeartbeats)
		r.Get("/status", h.GetStatus)
	})

	return r
}

func SSLRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Post("/{monitorID}/resume", h.ResumeSSLMonitor)
	r.Post("/{monitorID}/stop", h.StopSSLMonitor)

	return r
}

func UserRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Get("/{userID}/monitors", h.GetUserMonitors)
	r.Post("/{userID}/refresh", h.SetAutoRefresh)

	return r
}
