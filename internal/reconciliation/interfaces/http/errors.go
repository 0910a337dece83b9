package reconciliationhttp

import (
	"errors"
	"net/http"

	"cashup/internal/auth"
	"cashup/internal/observability/logging"
	"cashup/internal/reconciliation/application"
	reconciliation "cashup/internal/reconciliation/domain"
	siteconfig "cashup/internal/siteconfig/domain"
)

func (h *Handler) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, auth.ErrTenantMismatch):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, reconciliation.ErrRecordNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, reconciliation.ErrNotBalanced),
		errors.Is(err, reconciliation.ErrNotSynced),
		errors.Is(err, reconciliation.ErrAlreadyReviewed),
		errors.Is(err, application.ErrConfigReadOnly):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, reconciliation.ErrReasonRequired),
		errors.Is(err, reconciliation.ErrInvalidStatus),
		errors.Is(err, reconciliation.ErrUnknownDenomination),
		errors.Is(err, siteconfig.ErrInvalidConfig):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		logging.LogError(h.logger, "http", r.Method+" "+r.URL.Path, nil, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
