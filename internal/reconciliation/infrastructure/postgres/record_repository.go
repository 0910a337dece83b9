package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"cashup/internal/reconciliation/application"
	reconciliation "cashup/internal/reconciliation/domain"
)

const defaultRecordsTable = "reconciliation_records"

const recordColumns = `id, business_date, employee, registers, pos_terminals,
	total_sales, total_eftpos, payouts, expected_banking, actual_banking, variance,
	is_balanced, classification, status, comments, manager_comments, bag_number,
	submitted_at, reviewed_at, reviewed_by`

// RecordRepository persists reconciliation records. It is scoped to one
// tenant.
type RecordRepository struct {
	db       *sql.DB
	table    string
	tenantID string
}

// RepositoryOption configures the repository.
type RepositoryOption func(*RecordRepository)

// WithTable overrides the default table name.
func WithTable(table string) RepositoryOption {
	return func(r *RecordRepository) {
		if table != "" {
			r.table = table
		}
	}
}

// NewRecordRepository constructs a repository.
func NewRecordRepository(db *sql.DB, tenantID string, opts ...RepositoryOption) (*RecordRepository, error) {
	if db == nil {
		return nil, errors.New("record repo: nil db")
	}
	if tenantID == "" {
		return nil, errors.New("record repo: tenant id required")
	}
	repo := &RecordRepository{db: db, table: defaultRecordsTable, tenantID: tenantID}
	for _, opt := range opts {
		opt(repo)
	}
	return repo, nil
}

// Submit inserts rec. Resubmitting an existing id replaces the stored content
// while the record is still pending review by the same employee; otherwise it
// returns ErrAlreadyReviewed.
func (r *RecordRepository) Submit(ctx context.Context, rec reconciliation.Record) (string, error) {
	if rec.ID == "" {
		return "", errors.New("record repo: empty id")
	}
	registers, err := json.Marshal(rec.Registers)
	if err != nil {
		return "", err
	}
	terminals, err := json.Marshal(rec.POSTerminals)
	if err != nil {
		return "", err
	}
	s := rec.Summary
	res, err := r.db.ExecContext(ctx, fmt.Sprintf(`
INSERT INTO %[1]s (
	tenant_id, %[2]s
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21
)
ON CONFLICT (id) DO UPDATE SET
	business_date = EXCLUDED.business_date,
	registers = EXCLUDED.registers,
	pos_terminals = EXCLUDED.pos_terminals,
	total_sales = EXCLUDED.total_sales,
	total_eftpos = EXCLUDED.total_eftpos,
	payouts = EXCLUDED.payouts,
	expected_banking = EXCLUDED.expected_banking,
	actual_banking = EXCLUDED.actual_banking,
	variance = EXCLUDED.variance,
	is_balanced = EXCLUDED.is_balanced,
	classification = EXCLUDED.classification,
	comments = EXCLUDED.comments,
	bag_number = EXCLUDED.bag_number,
	submitted_at = EXCLUDED.submitted_at
WHERE %[1]s.status = 'pending_review'
	AND %[1]s.tenant_id = EXCLUDED.tenant_id
	AND %[1]s.employee = EXCLUDED.employee`, r.table, recordColumns),
		r.tenantID, rec.ID, rec.Date, rec.Employee, registers, terminals,
		s.TotalSales.String(), s.TotalEftpos.String(), s.Payouts.String(),
		s.ExpectedBanking.String(), s.ActualBanking.String(), s.Variance.String(),
		rec.Calculations.IsBalanced, string(rec.Calculations.Classification), string(rec.Status),
		rec.Comments, rec.ManagerComments, rec.BagNumber,
		rec.SubmittedAt.UTC(), nullTime(rec.ReviewedAt), rec.ReviewedBy,
	)
	if err != nil {
		return "", err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return "", reconciliation.ErrAlreadyReviewed
	}
	return rec.ID, nil
}

// Update writes the review-owned fields.
func (r *RecordRepository) Update(ctx context.Context, id string, u reconciliation.ReviewUpdate) error {
	s := u.Summary
	res, err := r.db.ExecContext(ctx, fmt.Sprintf(`
UPDATE %s
SET status = $1, total_sales = $2, total_eftpos = $3, payouts = $4,
	expected_banking = $5, actual_banking = $6, variance = $7,
	is_balanced = $8, classification = $9, comments = $10, manager_comments = $11,
	reviewed_at = $12, reviewed_by = $13
WHERE tenant_id = $14 AND id = $15`, r.table),
		string(u.Status), s.TotalSales.String(), s.TotalEftpos.String(), s.Payouts.String(),
		s.ExpectedBanking.String(), s.ActualBanking.String(), s.Variance.String(),
		u.Calculations.IsBalanced, string(u.Calculations.Classification), u.Comments, u.ManagerComments,
		nullTime(u.ReviewedAt), u.ReviewedBy, r.tenantID, id,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return reconciliation.ErrRecordNotFound
	}
	return nil
}

// List returns records matching the filter, newest first, or largest absolute
// variance first when the filter sorts by variance. Limit applies after
// ordering.
func (r *RecordRepository) List(ctx context.Context, filter application.ListFilter) ([]reconciliation.Record, error) {
	where := []string{"tenant_id = $1"}
	args := []any{r.tenantID}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, 0, len(filter.Statuses))
		for _, st := range filter.Statuses {
			args = append(args, string(st))
			placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))
		}
		where = append(where, "status IN ("+strings.Join(placeholders, ",")+")")
	}
	if filter.From != "" {
		args = append(args, filter.From)
		where = append(where, fmt.Sprintf("business_date >= $%d", len(args)))
	}
	if filter.To != "" {
		args = append(args, filter.To)
		where = append(where, fmt.Sprintf("business_date <= $%d", len(args)))
	}
	order := "business_date DESC, submitted_at ASC"
	if filter.Sort == reconciliation.SortByVariance {
		order = "ABS(variance) DESC, business_date DESC, submitted_at ASC"
	}
	query := fmt.Sprintf(`
SELECT %s
FROM %s
WHERE %s
ORDER BY %s`, recordColumns, r.table, strings.Join(where, " AND "), order)
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf("\nLIMIT $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []reconciliation.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Get fetches one record.
func (r *RecordRepository) Get(ctx context.Context, id string) (*reconciliation.Record, error) {
	row := r.db.QueryRowContext(ctx, fmt.Sprintf(`
SELECT %s
FROM %s
WHERE tenant_id = $1 AND id = $2
LIMIT 1`, recordColumns, r.table), r.tenantID, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, reconciliation.ErrRecordNotFound
	}
	return rec, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*reconciliation.Record, error) {
	var (
		rec            reconciliation.Record
		businessDate   time.Time
		registers      []byte
		terminals      []byte
		totalSales     string
		totalEftpos    string
		payouts        string
		expected       string
		actual         string
		variance       string
		classification string
		status         string
		reviewedAt     sql.NullTime
	)
	if err := row.Scan(
		&rec.ID, &businessDate, &rec.Employee, &registers, &terminals,
		&totalSales, &totalEftpos, &payouts, &expected, &actual, &variance,
		&rec.Calculations.IsBalanced, &classification, &status,
		&rec.Comments, &rec.ManagerComments, &rec.BagNumber,
		&rec.SubmittedAt, &reviewedAt, &rec.ReviewedBy,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(registers, &rec.Registers); err != nil {
		return nil, fmt.Errorf("record repo: decode registers: %w", err)
	}
	if err := json.Unmarshal(terminals, &rec.POSTerminals); err != nil {
		return nil, fmt.Errorf("record repo: decode terminals: %w", err)
	}

	var err error
	if rec.Summary, err = parseSummary(totalSales, totalEftpos, payouts, expected, actual, variance); err != nil {
		return nil, err
	}
	rec.Date = businessDate.Format(reconciliation.DateLayout)
	rec.Calculations.Classification = reconciliation.Classification(classification)
	rec.Status = reconciliation.Status(status)
	rec.SubmittedAt = rec.SubmittedAt.UTC()
	if reviewedAt.Valid {
		at := reviewedAt.Time.UTC()
		rec.ReviewedAt = &at
	}
	return &rec, nil
}

func parseSummary(values ...string) (reconciliation.Summary, error) {
	parsed := make([]decimal.Decimal, len(values))
	for i, v := range values {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return reconciliation.Summary{}, fmt.Errorf("record repo: decode amount %q: %w", v, err)
		}
		parsed[i] = d
	}
	return reconciliation.Summary{
		TotalSales:      parsed[0],
		TotalEftpos:     parsed[1],
		Payouts:         parsed[2],
		ExpectedBanking: parsed[3],
		ActualBanking:   parsed[4],
		Variance:        parsed[5],
	}, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
