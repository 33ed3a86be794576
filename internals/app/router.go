package app

import (
	"context"
	"net/http"
	"time"

	middle "uptimer/internals/middleware"
	"uptimer/internals/modules/uptime"
	"uptimer/pkg/apperror"
	"uptimer/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func RegisterRoutes(c *Container) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middle.Logger(c.Logger))
	r.Use(middleware.Timeout(5 * time.Second))

	r.Route("/api/v1", func(v1 chi.Router) {
		v1.Get("/healthz", healthz(c))

		v1.Mount("/monitors", uptime.MonitorRoutes(c.uptimeHandler))
		v1.Mount("/ssl", uptime.SSLRoutes(c.uptimeHandler))
		v1.Mount("/users", uptime.UserRoutes(c.uptimeHandler))
	})

	return r
}

func healthz(c *Container) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reqID := middleware.GetReqID(r.Context())

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		checks := map[string]string{"store": "ok"}
		if err := c.Store.Ping(ctx); err != nil {
			c.Logger.Error().Err(err).Msg("store health check failed")
			utils.WriteError(w, http.StatusServiceUnavailable, reqID, apperror.Unavailable, "store unreachable")
			return
		}
		if c.RedisClient != nil {
			checks["redis"] = "ok"
			if err := c.RedisClient.Ping(ctx); err != nil {
				// cache is optional, report but stay healthy
				checks["redis"] = "down"
			}
		}

		utils.WriteJSON(w, http.StatusOK, reqID, "healthy", checks)
	}
}
