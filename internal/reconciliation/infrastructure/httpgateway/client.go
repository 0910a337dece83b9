package httpgateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"cashup/internal/reconciliation/application"
	reconciliation "cashup/internal/reconciliation/domain"
	siteconfig "cashup/internal/siteconfig/domain"
)

// ErrRejected is returned for 4xx responses other than 404. The request will
// not succeed on retry.
var ErrRejected = errors.New("httpgateway: request rejected")

// Client talks to the cashup HTTP API. It satisfies application.RecordSink
// and application.ConfigProvider.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.client = hc
		}
	}
}

// NewClient constructs a client. token is sent as a bearer token when set.
func NewClient(baseURL, token string, opts ...ClientOption) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("httpgateway: empty base url")
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type submitResponse struct {
	Record reconciliation.Record `json:"record"`
	Queued bool                  `json:"queued"`
}

// Submit sends the entered values of rec. The server recomputes every figure;
// when a token is configured the employee is taken from it.
func (c *Client) Submit(ctx context.Context, rec reconciliation.Record) (string, error) {
	var resp submitResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/reconciliations", draftBody(rec), &resp); err != nil {
		return "", err
	}
	if resp.Queued {
		return "", errors.New("httpgateway: server queued the record")
	}
	return resp.Record.ID, nil
}

// Get fetches one record.
func (c *Client) Get(ctx context.Context, id string) (*reconciliation.Record, error) {
	var rec reconciliation.Record
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/reconciliations/"+url.PathEscape(id), nil, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// List fetches records matching filter.
func (c *Client) List(ctx context.Context, filter application.ListFilter) ([]reconciliation.Record, error) {
	q := url.Values{}
	for _, s := range filter.Statuses {
		q.Add("status", string(s))
	}
	if filter.Sort != "" {
		q.Set("sort", string(filter.Sort))
	}
	if filter.From != "" {
		q.Set("from", filter.From)
	}
	if filter.To != "" {
		q.Set("to", filter.To)
	}
	if filter.Limit > 0 {
		q.Set("limit", strconv.Itoa(filter.Limit))
	}
	path := "/api/v1/reconciliations"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var records []reconciliation.Record
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// Approve approves a record.
func (c *Client) Approve(ctx context.Context, id string) (*reconciliation.Record, error) {
	return c.review(ctx, id, "approve", nil)
}

// Reject sends a record back with reason.
func (c *Client) Reject(ctx context.Context, id, reason string) (*reconciliation.Record, error) {
	return c.review(ctx, id, "reject", map[string]string{"reason": reason})
}

// Edit corrects a record's financials.
func (c *Client) Edit(ctx context.Context, id string, edit reconciliation.EditedFinancials) (*reconciliation.Record, error) {
	return c.review(ctx, id, "edit", edit)
}

func (c *Client) review(ctx context.Context, id, action string, body any) (*reconciliation.Record, error) {
	var rec reconciliation.Record
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/reconciliations/"+url.PathEscape(id)+"/"+action, body, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// SyncPending asks the server to drain its outbox.
func (c *Client) SyncPending(ctx context.Context) (application.SyncResult, error) {
	var res application.SyncResult
	err := c.doJSON(ctx, http.MethodPost, "/api/v1/reconciliations/sync", nil, &res)
	return res, err
}

type configResponse struct {
	Config siteconfig.Config `json:"config"`
}

// GetConfig implements application.ConfigProvider.
func (c *Client) GetConfig(ctx context.Context) (siteconfig.Raw, error) {
	var resp configResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/config/site", nil, &resp); err != nil {
		return siteconfig.Raw{}, err
	}
	return resp.Config.Raw(), nil
}

type draftPayload struct {
	ID              string                             `json:"id"`
	Date            string                             `json:"date"`
	Employee        string                             `json:"employee,omitempty"`
	TotalSales      decimal.Decimal                    `json:"totalSales"`
	TerminalAmounts []decimal.Decimal                  `json:"terminalAmounts"`
	Payouts         decimal.Decimal                    `json:"payouts"`
	Registers       []reconciliation.DenominationCount `json:"registers"`
	BagNumber       string                             `json:"bagNumber,omitempty"`
	Comments        string                             `json:"comments,omitempty"`
}

func draftBody(rec reconciliation.Record) draftPayload {
	d := application.DraftFromRecord(rec)
	return draftPayload{
		ID:              d.ID,
		Date:            d.Date,
		Employee:        rec.Employee,
		TotalSales:      d.TotalSales,
		TerminalAmounts: d.TerminalAmounts,
		Payouts:         d.Payouts,
		Registers:       d.Registers,
		BagNumber:       d.BagNumber,
		Comments:        d.Comments,
	}
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any, out any) error {
	var reqBody *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(payload)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return reconciliation.ErrRecordNotFound
	}
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		text := strings.TrimSpace(string(msg))
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return fmt.Errorf("%w: http %d: %s", ErrRejected, resp.StatusCode, text)
		}
		return fmt.Errorf("httpgateway: http %d: %s", resp.StatusCode, text)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
