package reconciliationhttp_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cashup/internal/audit"
	"cashup/internal/auth"
	"cashup/internal/notify"
	"cashup/internal/reconciliation/application"
	reconciliation "cashup/internal/reconciliation/domain"
	"cashup/internal/reconciliation/infrastructure/memory"
	reconciliationhttp "cashup/internal/reconciliation/interfaces/http"
	siteconfig "cashup/internal/siteconfig/domain"
	siteconfigmemory "cashup/internal/siteconfig/infrastructure/memory"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type fixture struct {
	mux    *http.ServeMux
	repo   *memory.RecordRepository
	outbox *memory.Outbox
	audit  *audit.MemoryLogger
	alerts *notify.Recorder
}

type downSink struct{}

func (downSink) Submit(context.Context, reconciliation.Record) (string, error) {
	return "", errors.New("gateway unreachable")
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithSink(t, nil)
}

// newFixtureWithSink routes submissions to sink instead of the repository
// when sink is non-nil.
func newFixtureWithSink(t *testing.T, sink application.RecordSink) *fixture {
	t.Helper()
	provider := siteconfigmemory.NewProvider(siteconfig.Raw{
		Registers: siteconfig.RawRegisters{
			Count:         siteconfig.IntPtr(1),
			ReserveAmount: decimal.NewFromInt(400),
		},
		POSTerminals: siteconfig.RawTerminals{
			Count:   siteconfig.IntPtr(2),
			Enabled: []bool{true, false},
		},
		Tenant: siteconfig.Tenant{ID: "tenant-a", Timezone: "UTC"},
	})
	clock := fixedClock{now: time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC)}
	repo := memory.NewRecordRepository()
	outbox := memory.NewOutbox()

	configSvc, err := application.NewSiteConfigService(provider)
	require.NoError(t, err)
	review, err := application.NewReviewService(repo, clock, nil)
	require.NoError(t, err)
	var target application.RecordSink = repo
	if sink != nil {
		target = sink
	}
	submitter, err := application.NewSubmitter(target, outbox, clock, nil)
	require.NoError(t, err)
	syncSvc, err := application.NewSyncService(outbox, repo, clock, nil, 0)
	require.NoError(t, err)

	auditLog := &audit.MemoryLogger{}
	alerts := &notify.Recorder{}
	handler, err := reconciliationhttp.NewHandler(reconciliationhttp.Deps{
		Config:    configSvc,
		Review:    review,
		Submitter: submitter,
		Sync:      syncSvc,
		Drafts:    memory.NewAutosave(),
		Notifier:  alerts,
		Audit:     auditLog,
		Clock:     clock,
	})
	require.NoError(t, err)
	mux := http.NewServeMux()
	handler.Register(mux)
	return &fixture{mux: mux, repo: repo, outbox: outbox, audit: auditLog, alerts: alerts}
}

func (f *fixture) do(t *testing.T, method, path string, role auth.Role, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	subject := "sam"
	if role != auth.RoleEmployee {
		subject = "morgan"
	}
	req = req.WithContext(auth.WithIdentity(context.Background(), "tenant-a", role, subject))
	resp := httptest.NewRecorder()
	f.mux.ServeHTTP(resp, req)
	return resp
}

const balancedDraft = `{
	"id": "rec-1",
	"date": "2024-03-02",
	"totalSales": "700",
	"terminalAmounts": ["100", "50"],
	"registers": [{"notes": {"hundreds": 10}}],
	"bagNumber": "B-1"
}`

const shortDraft = `{
	"id": "rec-2",
	"date": "2024-03-01",
	"totalSales": "712.50",
	"terminalAmounts": ["100"],
	"registers": [{"notes": {"hundreds": 10}}]
}`

func TestHandler_GetConfig(t *testing.T) {
	f := newFixture(t)
	resp := f.do(t, http.MethodGet, "/api/v1/config/site", auth.RoleEmployee, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var body struct {
		Config siteconfig.Config            `json:"config"`
		Steps  []application.StepDescriptor `json:"steps"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 1, body.Config.Registers.Count)
	assert.Equal(t, []string{"Register 1"}, body.Config.Registers.Names)
	require.Len(t, body.Steps, 3)
	assert.Equal(t, "banking_review", body.Steps[2].Kind)
}

func TestHandler_SubmitRecomputesAndStores(t *testing.T) {
	f := newFixture(t)
	resp := f.do(t, http.MethodPost, "/api/v1/reconciliations", auth.RoleEmployee, balancedDraft)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}

	stored, err := f.repo.Get(context.Background(), "rec-1")
	require.NoError(t, err)
	assert.Equal(t, "sam", stored.Employee)
	assert.Equal(t, reconciliation.StatusPendingReview, stored.Status)
	assert.True(t, stored.Summary.TotalEftpos.Equal(decimal.NewFromInt(100)), "disabled terminal is ignored")
	assert.True(t, stored.Summary.ActualBanking.Equal(decimal.NewFromInt(600)))
	assert.True(t, stored.Calculations.IsBalanced)
	assert.Zero(t, f.outbox.Len())

	entries := f.audit.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "reconciliation.submit", entries[0].Action)
	assert.Equal(t, "2024-03-02", entries[0].BusinessDate)
}

func TestHandler_PreviewDoesNotStore(t *testing.T) {
	f := newFixture(t)
	resp := f.do(t, http.MethodPost, "/api/v1/reconciliations/preview", auth.RoleEmployee, shortDraft)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var rec reconciliation.Record
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rec))
	assert.True(t, rec.Summary.Variance.Equal(decimal.RequireFromString("-12.50")))
	assert.Equal(t, reconciliation.ClassificationSignificant, rec.Calculations.Classification)

	_, err := f.repo.Get(context.Background(), "rec-2")
	assert.ErrorIs(t, err, reconciliation.ErrRecordNotFound)
}

func TestHandler_SubmitValidation(t *testing.T) {
	f := newFixture(t)
	resp := f.do(t, http.MethodPost, "/api/v1/reconciliations", auth.RoleEmployee, `{"date":"02/03/2024"}`)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	resp = f.do(t, http.MethodPost, "/api/v1/reconciliations", auth.RoleEmployee, `{`)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad json, got %d", resp.Code)
	}
}

func TestHandler_ReviewFlow(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/api/v1/reconciliations", auth.RoleEmployee, balancedDraft).Code)
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/api/v1/reconciliations", auth.RoleEmployee, shortDraft).Code)

	resp := f.do(t, http.MethodPost, "/api/v1/reconciliations/rec-2/approve", auth.RoleManager, "")
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 for unbalanced approve, got %d", resp.Code)
	}

	resp = f.do(t, http.MethodPost, "/api/v1/reconciliations/rec-2/reject", auth.RoleManager, `{"reason":""}`)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty reason, got %d", resp.Code)
	}

	resp = f.do(t, http.MethodPost, "/api/v1/reconciliations/rec-2/edit", auth.RoleManager, `{"totalSales":"700"}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for edit, got %d", resp.Code)
	}
	var edited reconciliation.Record
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&edited))
	assert.Equal(t, reconciliation.StatusApproved, edited.Status)
	assert.Equal(t, "morgan", edited.ReviewedBy)

	resp = f.do(t, http.MethodPost, "/api/v1/reconciliations/rec-1/approve", auth.RoleManager, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for approve, got %d", resp.Code)
	}

	resp = f.do(t, http.MethodPost, "/api/v1/reconciliations/missing/approve", auth.RoleManager, "")
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}

	var actions []string
	for _, e := range f.audit.Entries() {
		actions = append(actions, e.Action)
	}
	assert.Equal(t, []string{"reconciliation.submit", "reconciliation.submit", "reconciliation.edit", "reconciliation.approve"}, actions)
}

func TestHandler_List(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/api/v1/reconciliations", auth.RoleEmployee, balancedDraft)
	f.do(t, http.MethodPost, "/api/v1/reconciliations", auth.RoleEmployee, shortDraft)

	resp := f.do(t, http.MethodGet, "/api/v1/reconciliations?sort=variance", auth.RoleManager, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var records []reconciliation.Record
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&records))
	require.Len(t, records, 2)
	assert.Equal(t, "rec-2", records[0].ID)

	resp = f.do(t, http.MethodGet, "/api/v1/reconciliations?from=2024-03-02", auth.RoleManager, "")
	records = nil
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&records))
	require.Len(t, records, 1)
	assert.Equal(t, "rec-1", records[0].ID)

	resp = f.do(t, http.MethodGet, "/api/v1/reconciliations?sort=amount", auth.RoleManager, "")
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad sort, got %d", resp.Code)
	}
	resp = f.do(t, http.MethodGet, "/api/v1/reconciliations?status=archived", auth.RoleManager, "")
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad status, got %d", resp.Code)
	}
}

func TestHandler_Export(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/api/v1/reconciliations", auth.RoleEmployee, balancedDraft)

	resp := f.do(t, http.MethodGet, "/api/v1/reconciliations/rec-1/export.pdf", auth.RoleManager, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("pdf status %d", resp.Code)
	}
	if resp.Header().Get("Content-Type") != "application/pdf" {
		t.Fatalf("pdf content-type mismatch")
	}

	resp = f.do(t, http.MethodGet, "/api/v1/reconciliations/rec-1/export.xlsx", auth.RoleManager, "")
	if resp.Code != http.StatusOK || resp.Body.Len() == 0 {
		t.Fatalf("xlsx status %d", resp.Code)
	}

	resp = f.do(t, http.MethodGet, "/api/v1/reconciliations/export.xlsx", auth.RoleManager, "")
	if resp.Code != http.StatusOK || resp.Body.Len() == 0 {
		t.Fatalf("list xlsx status %d", resp.Code)
	}
}

func TestHandler_SyncAndConfigUpdate(t *testing.T) {
	f := newFixture(t)
	resp := f.do(t, http.MethodPost, "/api/v1/reconciliations/sync", auth.RoleEmployee, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	assert.JSONEq(t, `{"synced_count":0,"total_count":0}`, resp.Body.String())

	resp = f.do(t, http.MethodPut, "/api/v1/config/site", auth.RoleOwner, `{"registers":{"count":3,"reserveAmount":"300"},"posTerminals":{"count":1}}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	resp = f.do(t, http.MethodGet, "/api/v1/config/site", auth.RoleEmployee, "")
	var body struct {
		Config siteconfig.Config `json:"config"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 3, body.Config.Registers.Count)
	assert.Equal(t, []string{"Register 1", "Register 2", "Register 3"}, body.Config.Registers.Names)
}

func TestHandler_EditConfig(t *testing.T) {
	f := newFixture(t)
	resp := f.do(t, http.MethodPatch, "/api/v1/config/site", auth.RoleOwner,
		`{"edits":[{"op":"add_register"},{"op":"rename_register","index":1,"name":"Bar"},{"op":"toggle_terminal","index":1}]}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	resp = f.do(t, http.MethodGet, "/api/v1/config/site", auth.RoleEmployee, "")
	var body struct {
		Config siteconfig.Config `json:"config"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, []string{"Register 1", "Bar"}, body.Config.Registers.Names)
	assert.Equal(t, []bool{true, true}, body.Config.POSTerminals.Enabled)

	entries := f.audit.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "site_config.edit", entries[0].Action)

	resp = f.do(t, http.MethodPatch, "/api/v1/config/site", auth.RoleOwner, `{"edits":[{"op":"explode"}]}`)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestHandler_DraftAutosave(t *testing.T) {
	f := newFixture(t)
	resp := f.do(t, http.MethodGet, "/api/v1/reconciliations/draft", auth.RoleEmployee, "")
	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}

	resp = f.do(t, http.MethodPut, "/api/v1/reconciliations/draft", auth.RoleEmployee, shortDraft)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	resp = f.do(t, http.MethodGet, "/api/v1/reconciliations/draft", auth.RoleEmployee, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var draft application.Draft
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&draft))
	assert.Equal(t, "rec-2", draft.ID)
	assert.True(t, draft.TotalSales.Equal(decimal.RequireFromString("712.50")))

	resp = f.do(t, http.MethodGet, "/api/v1/reconciliations/draft", auth.RoleManager, "")
	if resp.Code != http.StatusNoContent {
		t.Fatalf("drafts are per employee, got %d", resp.Code)
	}

	resp = f.do(t, http.MethodDelete, "/api/v1/reconciliations/draft", auth.RoleEmployee, "")
	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}
	resp = f.do(t, http.MethodGet, "/api/v1/reconciliations/draft", auth.RoleEmployee, "")
	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204 after delete, got %d", resp.Code)
	}
}

func TestHandler_SubmitAlertsOnSignificantVariance(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/api/v1/reconciliations", auth.RoleEmployee, balancedDraft).Code)
	assert.Empty(t, f.alerts.Alerts())

	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/api/v1/reconciliations", auth.RoleEmployee, shortDraft).Code)
	alerts := f.alerts.Alerts()
	require.Len(t, alerts, 1)
	assert.Equal(t, notify.KindSignificantVariance, alerts[0].Kind)
	assert.Equal(t, "rec-2", alerts[0].RecordID)
	assert.Equal(t, "tenant-a", alerts[0].TenantID)
	assert.Equal(t, "-12.50", alerts[0].Variance)
}

func TestHandler_AuditTrail(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/api/v1/reconciliations", auth.RoleEmployee, shortDraft).Code)
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/v1/reconciliations/rec-2/reject", auth.RoleManager, `{"reason":"recount"}`).Code)

	resp := f.do(t, http.MethodGet, "/api/v1/reconciliations/rec-2/audit", auth.RoleManager, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var entries []audit.Entry
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "reconciliation.submit", entries[0].Action)
	assert.Equal(t, "sam", entries[0].Actor)
	assert.Equal(t, "reconciliation.reject", entries[1].Action)
	assert.Equal(t, "morgan", entries[1].Actor)
	assert.Equal(t, "2024-03-01", entries[1].BusinessDate)

	resp = f.do(t, http.MethodGet, "/api/v1/reconciliations/missing/audit", auth.RoleManager, "")
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestHandler_ResubmitReplacesPendingRecord(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/api/v1/reconciliations", auth.RoleEmployee, shortDraft).Code)

	corrected := strings.Replace(shortDraft, `"712.50"`, `"700"`, 1)
	resp := f.do(t, http.MethodPost, "/api/v1/reconciliations", auth.RoleEmployee, corrected)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 for resubmit, got %d", resp.Code)
	}
	stored, err := f.repo.Get(context.Background(), "rec-2")
	require.NoError(t, err)
	assert.True(t, stored.Summary.TotalSales.Equal(decimal.NewFromInt(700)))
	assert.True(t, stored.Calculations.IsBalanced)
}

func TestHandler_ResubmitAfterReviewConflicts(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/api/v1/reconciliations", auth.RoleEmployee, balancedDraft).Code)
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/v1/reconciliations/rec-1/approve", auth.RoleManager, "").Code)

	changed := strings.Replace(balancedDraft, `"700"`, `"650"`, 1)
	resp := f.do(t, http.MethodPost, "/api/v1/reconciliations", auth.RoleEmployee, changed)
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 for reviewed record, got %d", resp.Code)
	}
	stored, err := f.repo.Get(context.Background(), "rec-1")
	require.NoError(t, err)
	assert.True(t, stored.Summary.TotalSales.Equal(decimal.NewFromInt(700)))
	assert.Equal(t, reconciliation.StatusApproved, stored.Status)
	assert.Equal(t, 0, f.outbox.Len())
}

func TestHandler_SubmitCollidingIDFromOtherEmployee(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/api/v1/reconciliations", auth.RoleEmployee, balancedDraft).Code)

	// managers post as "morgan"
	resp := f.do(t, http.MethodPost, "/api/v1/reconciliations", auth.RoleManager, strings.Replace(balancedDraft, `"700"`, `"1"`, 1))
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.Code)
	}
	stored, err := f.repo.Get(context.Background(), "rec-1")
	require.NoError(t, err)
	assert.Equal(t, "sam", stored.Employee)
	assert.True(t, stored.Summary.TotalSales.Equal(decimal.NewFromInt(700)))
}

func TestHandler_QueuedSubmissionIsAuditedAndAlerted(t *testing.T) {
	f := newFixtureWithSink(t, downSink{})
	resp := f.do(t, http.MethodPost, "/api/v1/reconciliations", auth.RoleEmployee, shortDraft)
	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.Code)
	}
	assert.Equal(t, 1, f.outbox.Len())

	entries := f.audit.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "reconciliation.submit", entries[0].Action)
	assert.Contains(t, string(entries[0].Metadata), `"queued":true`)

	alerts := f.alerts.Alerts()
	require.Len(t, alerts, 1)
	assert.Equal(t, notify.KindSignificantVariance, alerts[0].Kind)
	assert.Equal(t, "rec-2", alerts[0].RecordID)
}
