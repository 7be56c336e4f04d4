package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	mw "github.com/edvin/gamehost/internal/api/middleware"
	"github.com/edvin/gamehost/internal/api/request"
	"github.com/edvin/gamehost/internal/api/response"
	"github.com/edvin/gamehost/internal/core"
	"github.com/edvin/gamehost/internal/model"
)

type Schedule struct {
	registry core.Registry
	now      func() time.Time
}

func NewSchedule(registry core.Registry) *Schedule {
	return &Schedule{registry: registry, now: time.Now}
}

func (h *Schedule) Get(w http.ResponseWriter, r *http.Request) {
	serverID, err := request.RequireID(chi.URLParam(r, "serverID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	schedule, err := h.registry.GetSchedule(r.Context(), serverID, mw.TenantID(r.Context()))
	if err != nil {
		writeCoreError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, schedule)
}

// Set replaces the server's schedule wholesale. The next run is
// computed from now; any previous run history is discarded.
func (h *Schedule) Set(w http.ResponseWriter, r *http.Request) {
	serverID, err := request.RequireID(chi.URLParam(r, "serverID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req request.SetSchedule
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	schedule := &model.Schedule{
		ServerID:       serverID,
		TenantID:       mw.TenantID(r.Context()),
		Enabled:        req.Enabled,
		IntervalHours:  req.IntervalHours,
		RetentionCount: req.RetentionCount,
	}
	if req.Enabled {
		next := h.now().Add(time.Duration(req.IntervalHours) * time.Hour)
		schedule.NextRunAt = &next
	}

	if err := h.registry.SetSchedule(r.Context(), schedule); err != nil {
		writeCoreError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, schedule)
}
