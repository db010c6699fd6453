package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/Riya-Avasthi/GatePass-For-Faculty/internal/models"
	appErrors "github.com/Riya-Avasthi/GatePass-For-Faculty/pkg/errors"
	"github.com/Riya-Avasthi/GatePass-For-Faculty/pkg/export"
)

// RequestMeta carries client metadata into audit records.
type RequestMeta struct {
	IP        string
	UserAgent string
}

type requestRepository interface {
	Create(ctx context.Context, req *models.GatePassRequest) error
	FindByID(ctx context.Context, id string) (*models.GatePassRequest, error)
	List(ctx context.Context, filter models.RequestFilter) ([]models.GatePassRequest, error)
	CountByStatus(ctx context.Context, filter models.RequestFilter) (models.StatusCounts, error)
	Decide(ctx context.Context, id string, status models.RequestStatus, ts time.Time) (bool, error)
	Reopen(ctx context.Context, id string, ts time.Time) (bool, error)
	MarkAllowed(ctx context.Context, id, viewerID string, ts time.Time) (bool, error)
}

type requestAccountRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type decisionNotifier interface {
	NotifyDecision(ctx context.Context, req *models.GatePassRequest, decidedBy string) error
}

type summaryCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// RequestService owns the gate pass lifecycle: submission, admin decisions,
// explicit re-opens, the viewer allow latch, and the role-scoped
// query/filter layer.
type RequestService struct {
	requests  requestRepository
	accounts  requestAccountRepository
	notifier  decisionNotifier
	cache     summaryCache
	validator *validator.Validate
	logger    *zap.Logger
	cacheTTL  time.Duration
}

// NewRequestService constructs a RequestService.
func NewRequestService(requests requestRepository, accounts requestAccountRepository, notifier decisionNotifier, cache summaryCache, validate *validator.Validate, logger *zap.Logger, cacheTTL time.Duration) *RequestService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &RequestService{
		requests:  requests,
		accounts:  accounts,
		notifier:  notifier,
		cache:     cache,
		validator: validate,
		logger:    logger,
		cacheTTL:  cacheTTL,
	}
}

// Submit creates a new pending request. The submitter must match the
// caller's identity claim; admins may submit on behalf of another faculty
// member. The calendar date is normalized to the canonical layout before
// anything is written.
func (s *RequestService) Submit(ctx context.Context, req models.SubmitRequest, claims *models.JWTClaims, meta RequestMeta) (*models.GatePassRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid leave request payload")
	}

	if !models.ValidPurpose(req.Purpose) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "purpose must be 'Personal' or 'Official'")
	}

	if claims.UserID != req.FacultyID && claims.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "submitter does not match authenticated user")
	}

	date, err := models.NormalizeDate(req.Date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unrecognised date format")
	}

	account, err := s.accounts.FindByID(ctx, req.FacultyID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "faculty account not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve faculty account")
	}

	request := &models.GatePassRequest{
		FacultyID:    account.ID,
		FacultyEmail: account.Email,
		Date:         date,
		TimeOut:      req.TimeOut,
		TimeIn:       req.TimeIn,
		Purpose:      req.Purpose,
		Reason:       req.Reason,
		Status:       models.StatusPending,
		Allowed:      false,
	}
	if err := s.requests.Create(ctx, request); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create leave request")
	}

	s.invalidateSummaries(ctx)
	s.audit(ctx, claims, models.AuditActionSubmit, request.ID, meta, map[string]interface{}{
		"date": request.Date, "purpose": request.Purpose,
	})

	return request, nil
}

// Decide applies an admin decision to a pending request and triggers the
// notification side effect. The returned bool reports whether the
// notification was delivered; a failed send is a warning, never a rollback.
func (s *RequestService) Decide(ctx context.Context, req models.DecisionRequest, claims *models.JWTClaims, meta RequestMeta) (*models.GatePassRequest, bool, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid decision payload")
	}

	if !req.Status.Valid() {
		return nil, false, appErrors.Clone(appErrors.ErrInvalidStatus, "status must be 'approved', 'rejected' or 'pending'")
	}
	if req.Status == models.StatusPending {
		return nil, false, appErrors.Clone(appErrors.ErrInvalidTransition, "use the re-open operation to return a request to pending")
	}

	request, err := s.requests.FindByID(ctx, req.RequestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, appErrors.Clone(appErrors.ErrNotFound, "request not found")
		}
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}

	now := time.Now().UTC()
	ok, err := s.requests.Decide(ctx, request.ID, req.Status, now)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update request status")
	}
	if !ok {
		// The status predicate rejected the write: somebody decided first.
		return nil, false, appErrors.Clone(appErrors.ErrConflict, "request has already been decided")
	}

	request.Status = req.Status
	request.UpdatedAt = now

	decidedBy := claims.Name
	if admin, err := s.accounts.FindByID(ctx, claims.UserID); err == nil {
		decidedBy = admin.Name
	} else {
		s.logger.Warn("failed to resolve deciding admin", zap.Error(err), zap.String("admin_id", claims.UserID))
	}

	notified := true
	if err := s.notifier.NotifyDecision(ctx, request, decidedBy); err != nil {
		notified = false
		s.logger.Warn("decision notification failed",
			zap.Error(err),
			zap.String("request_id", request.ID),
			zap.String("to", request.FacultyEmail),
		)
	}

	s.invalidateSummaries(ctx)
	s.audit(ctx, claims, models.AuditActionDecision, request.ID, meta, map[string]interface{}{
		"status": request.Status, "notified": notified,
	})

	return request, notified, nil
}

// Reopen moves a decided request back to pending. This is deliberately a
// separate operation from Decide so that correcting a decision is always an
// explicit act.
func (s *RequestService) Reopen(ctx context.Context, req models.ReopenRequest, claims *models.JWTClaims, meta RequestMeta) (*models.GatePassRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid reopen payload")
	}

	request, err := s.requests.FindByID(ctx, req.RequestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}

	now := time.Now().UTC()
	ok, err := s.requests.Reopen(ctx, request.ID, now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reopen request")
	}
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "request is already pending")
	}

	request.Status = models.StatusPending
	request.Allowed = false
	request.AllowedBy = nil
	request.AllowedAt = nil
	request.UpdatedAt = now

	s.invalidateSummaries(ctx)
	s.audit(ctx, claims, models.AuditActionReopen, request.ID, meta, nil)

	return request, nil
}

// MarkAllowed latches the allowed flag for a decided request. Marking a
// pending request is a hard error; repeat calls on an already-allowed
// request are no-ops so the original allow stamp survives as an audit fact.
func (s *RequestService) MarkAllowed(ctx context.Context, requestID string, claims *models.JWTClaims, meta RequestMeta) (*models.GatePassRequest, error) {
	request, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}

	if request.Status == models.StatusPending {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition,
			"cannot mark a pending request as allowed; request must be approved or rejected first")
	}

	if request.Allowed {
		return request, nil
	}

	now := time.Now().UTC()
	ok, err := s.requests.MarkAllowed(ctx, request.ID, claims.UserID, now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark request allowed")
	}
	if !ok {
		// Raced with another viewer or a concurrent reopen: re-read to
		// report whatever state won.
		fresh, err := s.requests.FindByID(ctx, request.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload request")
		}
		if fresh.Allowed {
			return fresh, nil
		}
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "request can no longer be marked allowed")
	}

	viewerID := claims.UserID
	request.Allowed = true
	request.AllowedBy = &viewerID
	request.AllowedAt = &now
	request.UpdatedAt = now

	s.invalidateSummaries(ctx)
	s.audit(ctx, claims, models.AuditActionAllow, request.ID, meta, nil)

	return request, nil
}

// List resolves the role-scoped query. Faculty are pinned to their own
// submissions; viewers may only reach decided or allowed requests; admins
// query freely.
func (s *RequestService) List(ctx context.Context, filter models.RequestFilter, claims *models.JWTClaims) (*models.RequestList, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrInvalidStatus, "status filter must be 'pending', 'approved' or 'rejected'")
	}

	if filter.Date != "" {
		date, err := models.NormalizeDate(filter.Date)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unrecognised date filter")
		}
		filter.Date = date
	}

	switch claims.Role {
	case models.RoleFaculty:
		filter.FacultyID = claims.UserID
	case models.RoleViewer:
		if filter.Scope != models.ScopeDecidedOnly && filter.Scope != models.ScopeAllowedOnly {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "viewers may only list decided or allowed requests")
		}
	case models.RoleAdmin:
		// No restriction. Department-based scoping is intentionally not
		// enforced.
	default:
		return nil, appErrors.Clone(appErrors.ErrForbidden, "unknown role")
	}

	items, err := s.requests.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list requests")
	}

	counts, err := s.requests.CountByStatus(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count requests")
	}

	return &models.RequestList{Items: items, Counts: counts}, nil
}

// Summary serves the cached role-scoped dashboard aggregate.
func (s *RequestService) Summary(ctx context.Context, claims *models.JWTClaims) (*models.DashboardSummary, error) {
	key := "dashboard:summary:global"
	filter := models.RequestFilter{}
	if claims.Role == models.RoleFaculty {
		key = "dashboard:summary:faculty:" + claims.UserID
		filter.FacultyID = claims.UserID
	}

	var cached models.DashboardSummary
	if s.cache != nil {
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("dashboard cache read failed", zap.Error(err), zap.String("key", key))
		}
	}

	counts, err := s.requests.CountByStatus(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate request counts")
	}

	summary := &models.DashboardSummary{
		Role:        claims.Role,
		Counts:      counts,
		GeneratedAt: time.Now().UTC(),
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, summary, s.cacheTTL); err != nil {
			s.logger.Warn("dashboard cache write failed", zap.Error(err), zap.String("key", key))
		}
	}

	return summary, nil
}

// ExportDataset renders the filtered request log as a tabular dataset for
// the CSV/PDF exporters.
func (s *RequestService) ExportDataset(ctx context.Context, filter models.RequestFilter, claims *models.JWTClaims) (export.Dataset, error) {
	list, err := s.List(ctx, filter, claims)
	if err != nil {
		return export.Dataset{}, err
	}

	headers := []string{"Date", "Faculty Email", "Time Out", "Time In", "Purpose", "Reason", "Status", "Allowed"}
	rows := make([]map[string]string, 0, len(list.Items))
	for _, item := range list.Items {
		allowed := "no"
		if item.Allowed {
			allowed = "yes"
		}
		rows = append(rows, map[string]string{
			"Date":          item.Date,
			"Faculty Email": item.FacultyEmail,
			"Time Out":      item.TimeOut,
			"Time In":       item.TimeIn,
			"Purpose":       item.Purpose,
			"Reason":        item.Reason,
			"Status":        string(item.Status),
			"Allowed":       allowed,
		})
	}

	return export.Dataset{Headers: headers, Rows: rows}, nil
}

func (s *RequestService) invalidateSummaries(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "dashboard:summary:*"); err != nil {
		s.logger.Warn("failed to invalidate dashboard summaries", zap.Error(err))
	}
}

func (s *RequestService) audit(ctx context.Context, claims *models.JWTClaims, action, resourceID string, meta RequestMeta, values map[string]interface{}) {
	var payload []byte
	if values != nil {
		payload, _ = json.Marshal(values)
	}
	userID := claims.UserID
	if err := s.accounts.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &userID,
		Action:     action,
		Resource:   "gate_pass_request",
		ResourceID: &resourceID,
		NewValues:  payload,
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	}); err != nil {
		s.logger.Warn("failed to record audit log", zap.Error(err), zap.String("action", action))
	}
}
