package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Riya-Avasthi/GatePass-For-Faculty/internal/models"
)

const requestColumns = "id, faculty_id, faculty_email, date, time_out, time_in, purpose, reason, status, allowed, allowed_by, allowed_at, created_at, updated_at"

// RequestRepository provides database access for gate pass requests.
type RequestRepository struct {
	db *sqlx.DB
}

// NewRequestRepository creates a new instance of RequestRepository.
func NewRequestRepository(db *sqlx.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

// Create inserts a new gate pass request.
func (r *RequestRepository) Create(ctx context.Context, req *models.GatePassRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if req.CreatedAt.IsZero() {
		req.CreatedAt = now
	}
	req.UpdatedAt = now

	const query = `INSERT INTO gate_pass_requests (id, faculty_id, faculty_email, date, time_out, time_in, purpose, reason, status, allowed, allowed_by, allowed_at, created_at, updated_at)
		VALUES (:id, :faculty_id, :faculty_email, :date, :time_out, :time_in, :purpose, :reason, :status, :allowed, :allowed_by, :allowed_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, req); err != nil {
		return fmt.Errorf("create gate pass request: %w", err)
	}
	return nil
}

// FindByID returns a request by identifier.
func (r *RequestRepository) FindByID(ctx context.Context, id string) (*models.GatePassRequest, error) {
	query := fmt.Sprintf("SELECT %s FROM gate_pass_requests WHERE id = $1 LIMIT 1", requestColumns)
	var req models.GatePassRequest
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find request by id: %w", err)
	}
	return &req, nil
}

// List returns requests matching the filter, ordered by the scope's
// decision-relevant timestamp.
func (r *RequestRepository) List(ctx context.Context, filter models.RequestFilter) ([]models.GatePassRequest, error) {
	conditions, args := buildConditions(filter, true)

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var order string
	switch filter.Scope {
	case models.ScopePendingOnly:
		// The approval queue serves the longest-waiting request first.
		order = "date ASC, created_at ASC"
	case models.ScopeDecidedOnly:
		order = "created_at DESC"
	case models.ScopeAllowedOnly:
		order = "allowed_at DESC"
	default:
		order = "date DESC, created_at DESC"
	}

	query := fmt.Sprintf("SELECT %s FROM gate_pass_requests%s ORDER BY %s", requestColumns, where, order)

	requests := []models.GatePassRequest{}
	if err := r.db.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	return requests, nil
}

// CountByStatus aggregates counts per status over the set matching the
// non-status criteria, so totals stay stable whichever status tab is active.
func (r *RequestRepository) CountByStatus(ctx context.Context, filter models.RequestFilter) (models.StatusCounts, error) {
	conditions, args := buildConditions(filter, false)

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf("SELECT status, COUNT(*) AS count FROM gate_pass_requests%s GROUP BY status", where)

	rows := []struct {
		Status models.RequestStatus `db:"status"`
		Count  int                  `db:"count"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return models.StatusCounts{}, fmt.Errorf("count requests by status: %w", err)
	}

	var counts models.StatusCounts
	for _, row := range rows {
		switch row.Status {
		case models.StatusPending:
			counts.Pending = row.Count
		case models.StatusApproved:
			counts.Approved = row.Count
		case models.StatusRejected:
			counts.Rejected = row.Count
		}
		counts.Total += row.Count
	}
	return counts, nil
}

// Decide transitions a pending request to the given status. The status
// predicate doubles as an optimistic guard: a raced or already-decided
// request updates zero rows and the caller reports a conflict.
func (r *RequestRepository) Decide(ctx context.Context, id string, status models.RequestStatus, ts time.Time) (bool, error) {
	const query = `UPDATE gate_pass_requests SET status = $2, updated_at = $3 WHERE id = $1 AND status = 'pending'`
	res, err := r.db.ExecContext(ctx, query, id, status, ts)
	if err != nil {
		return false, fmt.Errorf("decide request: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("decide request rows affected: %w", err)
	}
	return affected > 0, nil
}

// Reopen moves a decided request back to pending and clears its allow
// stamp, so a pending request can never read as already let through.
func (r *RequestRepository) Reopen(ctx context.Context, id string, ts time.Time) (bool, error) {
	const query = `UPDATE gate_pass_requests SET status = 'pending', allowed = FALSE, allowed_by = NULL, allowed_at = NULL, updated_at = $2 WHERE id = $1 AND status <> 'pending'`
	res, err := r.db.ExecContext(ctx, query, id, ts)
	if err != nil {
		return false, fmt.Errorf("reopen request: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reopen request rows affected: %w", err)
	}
	return affected > 0, nil
}

// MarkAllowed latches the allowed flag for a decided request. The predicate
// keeps the operation off pending requests and preserves the first allow
// stamp on repeat calls.
func (r *RequestRepository) MarkAllowed(ctx context.Context, id, viewerID string, ts time.Time) (bool, error) {
	const query = `UPDATE gate_pass_requests SET allowed = TRUE, allowed_by = $2, allowed_at = $3, updated_at = $3 WHERE id = $1 AND status <> 'pending' AND allowed = FALSE`
	res, err := r.db.ExecContext(ctx, query, id, viewerID, ts)
	if err != nil {
		return false, fmt.Errorf("mark request allowed: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark allowed rows affected: %w", err)
	}
	return affected > 0, nil
}

// buildConditions renders WHERE fragments for the filter. Status-derived
// criteria (the status filter and the scope) only apply when withStatus is
// set; the aggregate counts use the remaining criteria alone.
func buildConditions(filter models.RequestFilter, withStatus bool) ([]string, []interface{}) {
	var conditions []string
	var args []interface{}

	if filter.FacultyID != "" {
		conditions = append(conditions, fmt.Sprintf("faculty_id = $%d", len(args)+1))
		args = append(args, filter.FacultyID)
	}
	if filter.FacultyEmail != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(faculty_email) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.FacultyEmail)+"%")
	}
	if filter.Date != "" {
		conditions = append(conditions, fmt.Sprintf("date = $%d", len(args)+1))
		args = append(args, filter.Date)
	}

	if !withStatus {
		return conditions, args
	}

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}

	switch filter.Scope {
	case models.ScopePendingOnly:
		conditions = append(conditions, "status = 'pending'")
	case models.ScopeDecidedOnly:
		conditions = append(conditions, "status IN ('approved', 'rejected')")
	case models.ScopeAllowedOnly:
		conditions = append(conditions, "allowed = TRUE")
	}

	return conditions, args
}
