package service

import (
	"errors"
	"net/http"

	"github.com/dandantas/disloc/internal/model"
)

// StatusCode maps a Run outcome onto the HTTP status a front end returns
func StatusCode(manifest *model.ResultManifest, err error) int {
	switch {
	case errors.Is(err, model.ErrInputMissing), errors.Is(err, model.ErrInvalidParameter),
		errors.Is(err, model.ErrInvalidFaultModel):
		return http.StatusBadRequest
	case err != nil:
		return http.StatusInternalServerError
	case manifest == nil || !manifest.Succeeded():
		return http.StatusInternalServerError
	default:
		return http.StatusOK
	}
}
