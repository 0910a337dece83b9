package reconciliationhttp

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"cashup/internal/audit"
	"cashup/internal/auth"
	"cashup/internal/notify"
	"cashup/internal/observability/metrics"
	"cashup/internal/reconciliation/application"
	reconciliation "cashup/internal/reconciliation/domain"
	"cashup/internal/reconciliation/interfaces/export"
	siteconfig "cashup/internal/siteconfig/domain"
)

const (
	reconciliationsPath = "/api/v1/reconciliations"
	siteConfigPath      = "/api/v1/config/site"
	maxBodyBytes        = 1 << 20
)

// Deps are the services behind the handler. Sync, Drafts, Notifier and Audit
// are optional.
type Deps struct {
	Config    *application.SiteConfigService
	Review    *application.ReviewService
	Submitter application.RecordSubmitter
	Sync      *application.SyncService
	Drafts    application.Autosave
	Notifier  notify.Notifier
	Audit     audit.Logger
	Clock     application.Clock
	Logger    logrus.FieldLogger
}

// Handler serves the reconciliation and site config APIs.
type Handler struct {
	config    *application.SiteConfigService
	review    *application.ReviewService
	submitter application.RecordSubmitter
	sync      *application.SyncService
	drafts    application.Autosave
	notifier  notify.Notifier
	audit     audit.Logger
	clock     application.Clock
	logger    logrus.FieldLogger
	validate  *validator.Validate
}

// NewHandler constructs a handler.
func NewHandler(deps Deps) (*Handler, error) {
	if deps.Config == nil {
		return nil, errors.New("reconciliation handler: nil config service")
	}
	if deps.Review == nil {
		return nil, errors.New("reconciliation handler: nil review service")
	}
	if deps.Submitter == nil {
		return nil, errors.New("reconciliation handler: nil submitter")
	}
	if deps.Clock == nil {
		deps.Clock = application.SystemClock{}
	}
	if deps.Logger == nil {
		deps.Logger = logrus.StandardLogger()
	}
	return &Handler{
		config:    deps.Config,
		review:    deps.Review,
		submitter: deps.Submitter,
		sync:      deps.Sync,
		drafts:    deps.Drafts,
		notifier:  deps.Notifier,
		audit:     deps.Audit,
		clock:     deps.Clock,
		logger:    deps.Logger,
		validate:  validator.New(),
	}, nil
}

// Register mounts the handler's routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.Handle(siteConfigPath, h)
	mux.Handle(reconciliationsPath, h)
	mux.Handle(reconciliationsPath+"/", h)
}

// ServeHTTP routes requests under /api/v1/reconciliations and
// /api/v1/config/site.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimRight(r.URL.Path, "/")
	switch {
	case path == siteConfigPath && r.Method == http.MethodGet:
		h.handleGetConfig(w, r)
	case path == siteConfigPath && r.Method == http.MethodPut:
		h.handleUpdateConfig(w, r)
	case path == siteConfigPath && r.Method == http.MethodPatch:
		h.handleEditConfig(w, r)
	case path == reconciliationsPath && r.Method == http.MethodGet:
		h.handleList(w, r)
	case path == reconciliationsPath && r.Method == http.MethodPost:
		h.handleSubmit(w, r)
	case path == reconciliationsPath+"/preview" && r.Method == http.MethodPost:
		h.handlePreview(w, r)
	case path == reconciliationsPath+"/sync" && r.Method == http.MethodPost:
		h.handleSync(w, r)
	case path == reconciliationsPath+"/draft":
		h.handleDraft(w, r)
	case path == reconciliationsPath+"/export.xlsx" && r.Method == http.MethodGet:
		h.handleListExport(w, r)
	case strings.HasPrefix(path, reconciliationsPath+"/"):
		h.handleByID(w, r, strings.TrimPrefix(path, reconciliationsPath+"/"))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleByID(w http.ResponseWriter, r *http.Request, rest string) {
	parts := strings.Split(rest, "/")
	id := parts[0]
	if id == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if len(parts) == 1 && r.Method == http.MethodGet {
		h.handleGet(w, r, id)
		return
	}
	if len(parts) == 2 {
		switch parts[1] {
		case "approve":
			if r.Method == http.MethodPost {
				h.handleApprove(w, r, id)
				return
			}
		case "reject":
			if r.Method == http.MethodPost {
				h.handleReject(w, r, id)
				return
			}
		case "edit":
			if r.Method == http.MethodPost {
				h.handleEdit(w, r, id)
				return
			}
		case "export.pdf":
			if r.Method == http.MethodGet {
				h.handleExport(w, r, id, "pdf")
				return
			}
		case "export.xlsx":
			if r.Method == http.MethodGet {
				h.handleExport(w, r, id, "xlsx")
				return
			}
		case "audit":
			if r.Method == http.MethodGet {
				h.handleTrail(w, r, id)
				return
			}
		}
	}
	w.WriteHeader(http.StatusNotFound)
}

func (h *Handler) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.config.Current(r.Context())
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, configResponse{Config: cfg, Steps: application.Steps(cfg)})
}

func (h *Handler) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	var raw siteconfig.Raw
	if !h.decode(w, r, &raw) {
		return
	}
	cfg, err := h.config.Update(r.Context(), raw)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, configResponse{Config: cfg, Steps: application.Steps(cfg)})
	h.logAudit(r, audit.ResourceSiteConfig, cfg.Tenant.ID, "", "site_config.update", map[string]any{
		"registers": cfg.Registers.Count,
		"terminals": cfg.POSTerminals.Count,
	})
}

func (h *Handler) handleEditConfig(w http.ResponseWriter, r *http.Request) {
	var req configEditRequest
	if !h.decode(w, r, &req) {
		return
	}
	cfg, err := h.config.Edit(r.Context(), req.edits())
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, configResponse{Config: cfg, Steps: application.Steps(cfg)})
	h.logAudit(r, audit.ResourceSiteConfig, cfg.Tenant.ID, "", "site_config.edit", map[string]any{
		"edits":     len(req.Edits),
		"registers": cfg.Registers.Count,
		"terminals": cfg.POSTerminals.Count,
	})
}

func (h *Handler) buildFromRequest(w http.ResponseWriter, r *http.Request) (reconciliation.Record, bool) {
	var req draftRequest
	if !h.decode(w, r, &req) {
		return reconciliation.Record{}, false
	}
	employee := auth.SubjectFromContext(r.Context())
	if employee == "" {
		employee = strings.TrimSpace(req.Employee)
	}
	if employee == "" {
		http.Error(w, "employee is required", http.StatusBadRequest)
		return reconciliation.Record{}, false
	}
	draft := req.draft()
	if draft.ID == "" {
		draft.ID = uuid.NewString()
	}
	rec, err := h.config.Preview(r.Context(), draft, employee, h.clock)
	if err != nil {
		h.respondServiceError(w, r, err)
		return reconciliation.Record{}, false
	}
	return rec, true
}

func (h *Handler) handlePreview(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.buildFromRequest(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.buildFromRequest(w, r)
	if !ok {
		return
	}
	_, err := h.submitter.SubmitRecord(r.Context(), rec)
	var subErr *application.SubmissionError
	queued := errors.As(err, &subErr) && subErr.Queued
	if err != nil && !queued {
		h.respondServiceError(w, r, err)
		return
	}
	status := http.StatusCreated
	if queued {
		rec.Status = reconciliation.StatusPendingSync
		status = http.StatusAccepted
	}
	writeJSON(w, status, submitResponse{Record: rec, Queued: queued})
	h.logAudit(r, audit.ResourceReconciliation, rec.ID, rec.Date, "reconciliation.submit", map[string]any{
		"variance":       rec.Summary.Variance.StringFixed(2),
		"classification": rec.Calculations.Classification,
		"queued":         queued,
	})
	h.alertVariance(r, rec)
}

func (h *Handler) alertVariance(r *http.Request, rec reconciliation.Record) {
	if h.notifier == nil || rec.Calculations.Classification != reconciliation.ClassificationSignificant {
		return
	}
	alert := notify.Alert{
		Kind:         notify.KindSignificantVariance,
		TenantID:     auth.TenantIDFromContext(r.Context()),
		BusinessDate: rec.Date,
		RecordID:     rec.ID,
		Employee:     rec.Employee,
		Variance:     rec.Summary.Variance.StringFixed(2),
	}
	if err := h.notifier.Notify(r.Context(), alert); err != nil {
		h.logger.WithError(err).WithField("record_id", rec.ID).Warn("variance alert failed")
	}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	filter, err := parseListFilter(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	records, err := h.review.List(r.Context(), filter)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	if records == nil {
		records = []reconciliation.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request, id string) {
	rec, err := h.review.Get(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request, id string) {
	rec, err := h.review.Approve(r.Context(), id, reviewer(r))
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
	h.logAudit(r, audit.ResourceReconciliation, rec.ID, rec.Date, "reconciliation.approve", map[string]any{
		"status": rec.Status,
	})
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request, id string) {
	var req rejectRequest
	if !h.decode(w, r, &req) {
		return
	}
	rec, err := h.review.Reject(r.Context(), id, reviewer(r), req.Reason)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
	h.logAudit(r, audit.ResourceReconciliation, rec.ID, rec.Date, "reconciliation.reject", map[string]any{
		"reason": req.Reason,
	})
}

func (h *Handler) handleEdit(w http.ResponseWriter, r *http.Request, id string) {
	var req editRequest
	if !h.decode(w, r, &req) {
		return
	}
	rec, err := h.review.Edit(r.Context(), id, reviewer(r), req.edit())
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
	h.logAudit(r, audit.ResourceReconciliation, rec.ID, rec.Date, "reconciliation.edit", map[string]any{
		"status":   rec.Status,
		"variance": rec.Summary.Variance.StringFixed(2),
	})
}

func (h *Handler) handleSync(w http.ResponseWriter, r *http.Request) {
	if h.sync == nil {
		writeJSON(w, http.StatusOK, application.SyncResult{})
		return
	}
	res, err := h.sync.SyncPending(r.Context())
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleDraft keeps one in-progress draft per employee.
func (h *Handler) handleDraft(w http.ResponseWriter, r *http.Request) {
	if h.drafts == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	employee := auth.SubjectFromContext(r.Context())
	if employee == "" {
		http.Error(w, "employee identity required", http.StatusUnauthorized)
		return
	}
	key := auth.TenantIDFromContext(r.Context()) + ":" + employee
	switch r.Method {
	case http.MethodGet:
		draft, err := h.drafts.Get(r.Context(), key)
		if err != nil {
			h.respondServiceError(w, r, err)
			return
		}
		if draft == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusOK, draft)
	case http.MethodPut:
		var req draftRequest
		if !h.decode(w, r, &req) {
			return
		}
		draft := req.draft()
		if draft.ID == "" {
			draft.ID = uuid.NewString()
		}
		if err := h.drafts.Set(r.Context(), key, draft); err != nil {
			h.respondServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, draft)
	case http.MethodDelete:
		if err := h.drafts.Clear(r.Context(), key); err != nil {
			h.respondServiceError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request, id, format string) {
	start := time.Now()
	result := metrics.ResultSuccess
	defer func() {
		metrics.ObserveExport(format, result, time.Since(start))
	}()

	rec, err := h.review.Get(r.Context(), id)
	if err != nil {
		result = metrics.ResultError
		h.respondServiceError(w, r, err)
		return
	}
	var (
		data        []byte
		contentType string
	)
	switch format {
	case "pdf":
		data, err = export.BuildRecordPDF(*rec)
		contentType = export.ContentTypePDF
	default:
		data, err = export.BuildRecordXLSX(*rec)
		contentType = export.ContentTypeXLSX
	}
	if err != nil {
		result = metrics.ResultError
		http.Error(w, "export "+format+" error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="reconciliation-`+rec.Date+`.`+format+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
	h.logAudit(r, audit.ResourceReconciliation, rec.ID, rec.Date, "reconciliation.export", map[string]any{"format": format})
}

func (h *Handler) handleListExport(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	result := metrics.ResultSuccess
	defer func() {
		metrics.ObserveExport("xlsx_list", result, time.Since(start))
	}()

	filter, err := parseListFilter(r)
	if err != nil {
		result = metrics.ResultError
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	records, err := h.review.List(r.Context(), filter)
	if err != nil {
		result = metrics.ResultError
		h.respondServiceError(w, r, err)
		return
	}
	data, err := export.BuildListXLSX(records)
	if err != nil {
		result = metrics.ResultError
		http.Error(w, "export xlsx error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", export.ContentTypeXLSX)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func parseListFilter(r *http.Request) (application.ListFilter, error) {
	q := r.URL.Query()
	var filter application.ListFilter
	for _, v := range q["status"] {
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				filter.Statuses = append(filter.Statuses, reconciliation.Status(s))
			}
		}
	}
	switch sort := reconciliation.SortKey(q.Get("sort")); sort {
	case "", reconciliation.SortByDate, reconciliation.SortByVariance:
		filter.Sort = sort
	default:
		return filter, errors.New("sort must be date or variance")
	}
	for _, bound := range []struct {
		name string
		dst  *string
	}{{"from", &filter.From}, {"to", &filter.To}} {
		v := q.Get(bound.name)
		if v == "" {
			continue
		}
		if _, err := time.Parse(reconciliation.DateLayout, v); err != nil {
			return filter, errors.New(bound.name + " must be YYYY-MM-DD")
		}
		*bound.dst = v
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return filter, errors.New("limit must be a non-negative integer")
		}
		filter.Limit = n
	}
	return filter, nil
}

func reviewer(r *http.Request) string {
	if subject := auth.SubjectFromContext(r.Context()); subject != "" {
		return subject
	}
	return "manager"
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		var invalid *validator.InvalidValidationError
		if errors.As(err, &invalid) {
			return true
		}
		http.Error(w, validationMessage(err), http.StatusBadRequest)
		return false
	}
	return true
}

func validationMessage(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err.Error()
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fe.Field()+" failed "+fe.Tag())
	}
	return strings.Join(msgs, "; ")
}

func (h *Handler) logAudit(r *http.Request, resourceType, resourceID, businessDate, action string, meta map[string]any) {
	if h.audit == nil {
		return
	}
	entry := audit.FromRequest(r, action, resourceType, resourceID, businessDate, meta)
	if err := h.audit.Log(r.Context(), entry); err != nil {
		h.logger.WithError(err).WithField("action", action).Warn("audit log failed")
	}
}

// handleTrail lists the audited actions on one record.
func (h *Handler) handleTrail(w http.ResponseWriter, r *http.Request, id string) {
	trail, ok := h.audit.(audit.Trail)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if _, err := h.review.Get(r.Context(), id); err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	entries, err := trail.Trail(r.Context(), auth.TenantIDFromContext(r.Context()), audit.ResourceReconciliation, id)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	if entries == nil {
		entries = []audit.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
