package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	mw "github.com/edvin/gamehost/internal/api/middleware"
	"github.com/edvin/gamehost/internal/api/request"
	"github.com/edvin/gamehost/internal/api/response"
	"github.com/edvin/gamehost/internal/core"
)

type Backup struct {
	orch     *core.Orchestrator
	registry core.Registry
}

func NewBackup(orch *core.Orchestrator, registry core.Registry) *Backup {
	return &Backup{orch: orch, registry: registry}
}

// Create accepts a backup request and returns the pending record
// immediately; completion is observed by polling Get or subscribing to
// the event stream.
func (h *Backup) Create(w http.ResponseWriter, r *http.Request) {
	serverID, err := request.RequireID(chi.URLParam(r, "serverID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req request.CreateBackup
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	backup, err := h.orch.Create(r.Context(), core.CreateParams{
		ServerID:    serverID,
		TenantID:    mw.TenantID(r.Context()),
		Name:        req.Name,
		Description: req.Description,
		Tags:        req.Tags,
	})
	if err != nil {
		writeCoreError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusCreated, backup)
}

func (h *Backup) ListByServer(w http.ResponseWriter, r *http.Request) {
	serverID, err := request.RequireID(chi.URLParam(r, "serverID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	backups, err := h.registry.List(r.Context(), core.ListFilter{
		ServerID: serverID,
		TenantID: mw.TenantID(r.Context()),
	})
	if err != nil {
		writeCoreError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, backups)
}

func (h *Backup) Get(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	backup, err := h.registry.Get(r.Context(), id, mw.TenantID(r.Context()))
	if err != nil {
		writeCoreError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, backup)
}

func (h *Backup) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.orch.Delete(r.Context(), id, mw.TenantID(r.Context())); err != nil {
		writeCoreError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// Restore runs synchronously within the request: the caller can abandon
// the request to cancel a restore that has not started extracting yet.
func (h *Backup) Restore(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.orch.Restore(r.Context(), id, mw.TenantID(r.Context())); err != nil {
		writeCoreError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}
