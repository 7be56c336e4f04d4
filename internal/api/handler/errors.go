package handler

import (
	"errors"
	"net/http"

	"github.com/edvin/gamehost/internal/api/response"
	"github.com/edvin/gamehost/internal/core"
)

// writeCoreError maps the core error taxonomy onto HTTP statuses:
// validation 400, single-flight conflict 409, tenant-scoped not-found 404,
// everything else 500.
func writeCoreError(w http.ResponseWriter, err error) {
	var (
		validationErr *core.ValidationError
		conflictErr   *core.ConflictError
		notFoundErr   *core.NotFoundError
	)
	switch {
	case errors.As(err, &validationErr):
		response.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &conflictErr):
		response.WriteError(w, http.StatusConflict, err.Error())
	case errors.As(err, &notFoundErr):
		response.WriteError(w, http.StatusNotFound, err.Error())
	default:
		response.WriteError(w, http.StatusInternalServerError, err.Error())
	}
}
