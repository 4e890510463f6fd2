package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"wikiflow/internal/domain"
	"wikiflow/internal/domain/models"
	"wikiflow/internal/httputil"
)

// handleError converts domain errors to HTTP responses
func handleError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var conflictErr *domain.ConflictError
	var refErr *domain.ReferenceError

	switch {
	case errors.Is(err, domain.ErrValidation):
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		httputil.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		httputil.RespondError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		httputil.RespondError(w, http.StatusForbidden, err.Error())
	case errors.As(err, &conflictErr):
		httputil.RespondErrorWithExtras(w, http.StatusConflict, conflictErr.Error(), map[string]interface{}{
			"resource_type": conflictErr.ResourceType,
			"resource_id":   conflictErr.ResourceID,
		})
	case errors.As(err, &refErr):
		httputil.RespondErrorWithExtras(w, http.StatusUnprocessableEntity, refErr.Error(), map[string]interface{}{
			"ref":      refErr.Ref,
			"sequence": refErr.Sequence,
		})
	default:
		logger.Error("request failed", "error", err)
		httputil.RespondError(w, http.StatusInternalServerError, "internal server error")
	}
}

// PathParam extracts a required path parameter, writing 400 when it is missing
func PathParam(w http.ResponseWriter, r *http.Request, name, label string) (string, bool) {
	value := r.PathValue(name)
	if value == "" {
		httputil.RespondError(w, http.StatusBadRequest, label+" is required")
		return "", false
	}
	return value, true
}

// principal returns the authenticated caller, writing 401 when there is none
func principal(w http.ResponseWriter, r *http.Request) (models.Principal, bool) {
	p, ok := httputil.GetPrincipal(r)
	if !ok || p.UserID == "" {
		httputil.RespondError(w, http.StatusUnauthorized, "authentication required")
		return models.Principal{}, false
	}
	return p, true
}
