package uptime

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"uptimer/internals/modules/monitor"
	"uptimer/pkg/apperror"
	"uptimer/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
)

type Handler struct {
	service   *Service
	validator *validator.Validate
}

func NewHandler(service *Service, validator *validator.Validate) *Handler {
	return &Handler{
		service:   service,
		validator: validator,
	}
}

func pathID(r *http.Request, key string) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, key))
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// POST /monitors/{monitorID}/resume
func (h *Handler) ResumeMonitor(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)

	id, ok := pathID(r, "monitorID")
	if !ok {
		utils.WriteError(w, http.StatusBadRequest, reqID, apperror.InvalidInput, "invalid monitor id")
		return
	}
	if err := h.service.ResumeMonitor(ctx, id); err != nil {
		utils.FromAppError(w, reqID, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, reqID, "monitor resumed", map[string]int{"id": id})
}

// POST /monitors/{monitorID}/stop
// {
// 	name: "optional, looked up by id when empty"
// }
func (h *Handler) StopMonitor(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)

	id, ok := pathID(r, "monitorID")
	if !ok {
		utils.WriteError(w, http.StatusBadRequest, reqID, apperror.InvalidInput, "invalid monitor id")
		return
	}

	var req StopMonitorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		utils.WriteError(w, http.StatusBadRequest, reqID, apperror.InvalidInput, "invalid request body")
		return
	}

	if err := h.service.StopMonitor(ctx, req.Name, id); err != nil {
		utils.FromAppError(w, reqID, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, reqID, "monitor stopped", map[string]int{"id": id})
}

// DELETE /monitors/{monitorID}
func (h *Handler) DeleteMonitor(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)

	id, ok := pathID(r, "monitorID")
	if !ok {
		utils.WriteError(w, http.StatusBadRequest, reqID, apperror.InvalidInput, "invalid monitor id")
		return
	}
	if err := h.service.DeleteMonitor(ctx, id); err != nil {
		utils.FromAppError(w, reqID, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, reqID, "monitor deleted", map[string]int{"id": id})
}

// GET /monitors/{monitorID}/heartbeats?type=http&hours=24
func (h *Handler) GetHeartbeats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)

	id, ok := pathID(r, "monitorID")
	if !ok {
		utils.WriteError(w, http.StatusBadRequest, reqID, apperror.InvalidInput, "invalid monitor id")
		return
	}

	t, err := monitor.ParseType(r.URL.Query().Get("type"))
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, reqID, apperror.InvalidInput, err.Error())
		return
	}

	hours := defaultHours
	if raw := r.URL.Query().Get("hours"); raw != "" {
		hours, err = strconv.Atoi(raw)
		if err != nil || hours <= 0 {
			utils.WriteError(w, http.StatusBadRequest, reqID, apperror.InvalidInput, "hours must be a positive integer")
			return
		}
	}

	beats, err := h.service.GetHeartbeats(ctx, t, id, hours)
	if err != nil {
		utils.FromAppError(w, reqID, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, reqID, "", HeartbeatsResponse{
		MonitorID:  id,
		Type:       t,
		Hours:      hours,
		Uptime:     h.service.UptimePercentage(beats),
		Heartbeats: beats,
	})
}

// GET /monitors/{monitorID}/status
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)

	id, ok := pathID(r, "monitorID")
	if !ok {
		utils.WriteError(w, http.StatusBadRequest, reqID, apperror.InvalidInput, "invalid monitor id")
		return
	}
	st, err := h.service.LatestStatus(ctx, id)
	if err != nil {
		utils.FromAppError(w, reqID, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, reqID, "", st)
}

// POST /ssl/{monitorID}/resume
func (h *Handler) ResumeSSLMonitor(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)

	id, ok := pathID(r, "monitorID")
	if !ok {
		utils.WriteError(w, http.StatusBadRequest, reqID, apperror.InvalidInput, "invalid monitor id")
		return
	}
	if err := h.service.ResumeSSLMonitor(ctx, id); err != nil {
		utils.FromAppError(w, reqID, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, reqID, "ssl monitor resumed", map[string]int{"id": id})
}

// POST /ssl/{monitorID}/stop
func (h *Handler) StopSSLMonitor(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)

	id, ok := pathID(r, "monitorID")
	if !ok {
		utils.WriteError(w, http.StatusBadRequest, reqID, apperror.InvalidInput, "invalid monitor id")
		return
	}

	var req StopMonitorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		utils.WriteError(w, http.StatusBadRequest, reqID, apperror.InvalidInput, "invalid request body")
		return
	}

	if err := h.service.StopSSLMonitor(ctx, req.Name, id); err != nil {
		utils.FromAppError(w, reqID, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, reqID, "ssl monitor stopped", map[string]int{"id": id})
}

// GET /users/{userID}/monitors
func (h *Handler) GetUserMonitors(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)

	userID, ok := pathID(r, "userID")
	if !ok {
		utils.WriteError(w, http.StatusBadRequest, reqID, apperror.InvalidInput, "invalid user id")
		return
	}
	monitors, err := h.service.UserActiveMonitors(ctx, userID)
	if err != nil {
		utils.FromAppError(w, reqID, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, reqID, "", monitors)
}

// POST /users/{userID}/refresh
// {
// 	username: "jane",
// 	enable: true
// }
func (h *Handler) SetAutoRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)

	userID, ok := pathID(r, "userID")
	if !ok {
		utils.WriteError(w, http.StatusBadRequest, reqID, apperror.InvalidInput, "invalid user id")
		return
	}

	// decode request body
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, reqID, apperror.InvalidInput, "invalid request body")
		return
	}

	// validate request body
	if err := h.validator.Struct(req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, reqID, apperror.InvalidInput, "")
		return
	}

	resp := RefreshResponse{Username: req.Username, Enabled: *req.Enable}
	if *req.Enable {
		started, err := h.service.EnableAutoRefresh(userID, req.Username)
		if err != nil {
			utils.FromAppError(w, reqID, err)
			return
		}
		resp.Started = started
	} else {
		h.service.DisableAutoRefresh(req.Username)
	}
	utils.WriteJSON(w, http.StatusOK, reqID, "auto refresh updated", resp)
}
