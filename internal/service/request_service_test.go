package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Riya-Avasthi/GatePass-For-Faculty/internal/models"
	appErrors "github.com/Riya-Avasthi/GatePass-For-Faculty/pkg/errors"
)

type mockRequestRepo struct {
	byID       map[string]*models.GatePassRequest
	created    []*models.GatePassRequest
	lastFilter models.RequestFilter
	listResult []models.GatePassRequest
	counts     models.StatusCounts
	countCalls int
	decideOK   bool
	reopenOK   bool
	markOK     bool
	markCalls  int
}

func newMockRequestRepo() *mockRequestRepo {
	return &mockRequestRepo{byID: map[string]*models.GatePassRequest{}}
}

func (m *mockRequestRepo) Create(ctx context.Context, req *models.GatePassRequest) error {
	req.ID = "generated-id"
	m.created = append(m.created, req)
	m.byID[req.ID] = req
	return nil
}

func (m *mockRequestRepo) FindByID(ctx context.Context, id string) (*models.GatePassRequest, error) {
	if req, ok := m.byID[id]; ok {
		copied := *req
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockRequestRepo) List(ctx context.Context, filter models.RequestFilter) ([]models.GatePassRequest, error) {
	m.lastFilter = filter
	return m.listResult, nil
}

func (m *mockRequestRepo) CountByStatus(ctx context.Context, filter models.RequestFilter) (models.StatusCounts, error) {
	m.countCalls++
	return m.counts, nil
}

func (m *mockRequestRepo) Decide(ctx context.Context, id string, status models.RequestStatus, ts time.Time) (bool, error) {
	if m.decideOK {
		if req, ok := m.byID[id]; ok {
			req.Status = status
		}
	}
	return m.decideOK, nil
}

func (m *mockRequestRepo) Reopen(ctx context.Context, id string, ts time.Time) (bool, error) {
	if m.reopenOK {
		if req, ok := m.byID[id]; ok {
			req.Status = models.StatusPending
			req.Allowed = false
			req.AllowedBy = nil
			req.AllowedAt = nil
		}
	}
	return m.reopenOK, nil
}

func (m *mockRequestRepo) MarkAllowed(ctx context.Context, id, viewerID string, ts time.Time) (bool, error) {
	m.markCalls++
	if m.markOK {
		if req, ok := m.byID[id]; ok {
			req.Allowed = true
			req.AllowedBy = &viewerID
			req.AllowedAt = &ts
		}
	}
	return m.markOK, nil
}

type mockAccountRepo struct {
	users     map[string]*models.User
	auditLogs []*models.AuditLog
}

func newMockAccountRepo(users ...*models.User) *mockAccountRepo {
	m := &mockAccountRepo{users: map[string]*models.User{}}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *mockAccountRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if user, ok := m.users[id]; ok {
		return user, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAccountRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.auditLogs = append(m.auditLogs, log)
	return nil
}

type mockNotifier struct {
	err       error
	delivered []*models.GatePassRequest
	decidedBy []string
}

func (m *mockNotifier) NotifyDecision(ctx context.Context, req *models.GatePassRequest, decidedBy string) error {
	if m.err != nil {
		return m.err
	}
	m.delivered = append(m.delivered, req)
	m.decidedBy = append(m.decidedBy, decidedBy)
	return nil
}

type mockSummaryCache struct {
	store           map[string][]byte
	deletedPatterns []string
}

func newMockSummaryCache() *mockSummaryCache {
	return &mockSummaryCache{store: map[string][]byte{}}
}

func (m *mockSummaryCache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *mockSummaryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.store[key] = raw
	return nil
}

func (m *mockSummaryCache) DeleteByPattern(ctx context.Context, pattern string) error {
	m.deletedPatterns = append(m.deletedPatterns, pattern)
	m.store = map[string][]byte{}
	return nil
}

func facultyClaims(id string) *models.JWTClaims {
	return &models.JWTClaims{UserID: id, Role: models.RoleFaculty, Name: "Faculty Member"}
}

func adminClaims(id string) *models.JWTClaims {
	return &models.JWTClaims{UserID: id, Role: models.RoleAdmin, Name: "Admin"}
}

func viewerClaims(id string) *models.JWTClaims {
	return &models.JWTClaims{UserID: id, Role: models.RoleViewer, Name: "Gate Viewer"}
}

func testRequestService(repo *mockRequestRepo, accounts *mockAccountRepo, notifier *mockNotifier, cache *mockSummaryCache) *RequestService {
	return NewRequestService(repo, accounts, notifier, cache, validator.New(), zap.NewNop(), time.Minute)
}

func TestSubmitNormalizesDateAndSnapshotsEmail(t *testing.T) {
	repo := newMockRequestRepo()
	accounts := newMockAccountRepo(&models.User{ID: "u1", Email: "sharma.amit@kbtcoe.org"})
	svc := testRequestService(repo, accounts, &mockNotifier{}, newMockSummaryCache())

	request, err := svc.Submit(context.Background(), models.SubmitRequest{
		FacultyID: "u1",
		Date:      "02/01/2026",
		TimeOut:   "10:00",
		TimeIn:    "12:00",
		Purpose:   models.PurposePersonal,
		Reason:    "bank work",
	}, facultyClaims("u1"), RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, "2026-01-02", request.Date)
	assert.Equal(t, "sharma.amit@kbtcoe.org", request.FacultyEmail)
	assert.Equal(t, models.StatusPending, request.Status)
	assert.False(t, request.Allowed)
	require.Len(t, accounts.auditLogs, 1)
	assert.Equal(t, models.AuditActionSubmit, accounts.auditLogs[0].Action)
}

func TestSubmitForbiddenMismatchLeavesStoreUntouched(t *testing.T) {
	repo := newMockRequestRepo()
	accounts := newMockAccountRepo(&models.User{ID: "u2", Email: "patil.neha@kbtcoe.org"})
	svc := testRequestService(repo, accounts, &mockNotifier{}, newMockSummaryCache())

	_, err := svc.Submit(context.Background(), models.SubmitRequest{
		FacultyID: "u2",
		Date:      "2026-01-02",
		TimeOut:   "10:00",
		TimeIn:    "12:00",
		Purpose:   models.PurposeOfficial,
		Reason:    "seminar",
	}, facultyClaims("u1"), RequestMeta{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.created)
	assert.Empty(t, accounts.auditLogs)
}

func TestSubmitAdminOnBehalf(t *testing.T) {
	repo := newMockRequestRepo()
	accounts := newMockAccountRepo(&models.User{ID: "u2", Email: "patil.neha@kbtcoe.org"})
	svc := testRequestService(repo, accounts, &mockNotifier{}, newMockSummaryCache())

	request, err := svc.Submit(context.Background(), models.SubmitRequest{
		FacultyID: "u2",
		Date:      "2026-01-02",
		TimeOut:   "10:00",
		TimeIn:    "12:00",
		Purpose:   models.PurposeOfficial,
		Reason:    "seminar",
	}, adminClaims("admin-1"), RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, "u2", request.FacultyID)
	assert.Equal(t, "patil.neha@kbtcoe.org", request.FacultyEmail)
}

func TestSubmitRejectsUnknownPurpose(t *testing.T) {
	repo := newMockRequestRepo()
	accounts := newMockAccountRepo()
	svc := testRequestService(repo, accounts, &mockNotifier{}, newMockSummaryCache())

	_, err := svc.Submit(context.Background(), models.SubmitRequest{
		FacultyID: "u1",
		Date:      "2026-01-02",
		TimeOut:   "10:00",
		TimeIn:    "12:00",
		Purpose:   "Vacation",
		Reason:    "trip",
	}, facultyClaims("u1"), RequestMeta{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func pendingRequest(id string) *models.GatePassRequest {
	return &models.GatePassRequest{
		ID:           id,
		FacultyID:    "u1",
		FacultyEmail: "sharma.amit@kbtcoe.org",
		Date:         "2026-01-02",
		TimeOut:      "10:00",
		TimeIn:       "12:00",
		Purpose:      models.PurposePersonal,
		Reason:       "bank work",
		Status:       models.StatusPending,
	}
}

func TestDecideApprovesAndNotifies(t *testing.T) {
	repo := newMockRequestRepo()
	repo.byID["r1"] = pendingRequest("r1")
	repo.decideOK = true
	accounts := newMockAccountRepo(&models.User{ID: "admin-1", Name: "Dr. Kulkarni"})
	notifier := &mockNotifier{}
	cache := newMockSummaryCache()
	svc := testRequestService(repo, accounts, notifier, cache)

	request, notified, err := svc.Decide(context.Background(), models.DecisionRequest{
		RequestID: "r1",
		Status:    models.StatusApproved,
	}, adminClaims("admin-1"), RequestMeta{})
	require.NoError(t, err)
	assert.True(t, notified)
	assert.Equal(t, models.StatusApproved, request.Status)
	require.Len(t, notifier.delivered, 1)
	assert.Equal(t, "Dr. Kulkarni", notifier.decidedBy[0])
	assert.Contains(t, cache.deletedPatterns, "dashboard:summary:*")
}

func TestDecideNotificationFailureIsWarningOnly(t *testing.T) {
	repo := newMockRequestRepo()
	repo.byID["r1"] = pendingRequest("r1")
	repo.decideOK = true
	accounts := newMockAccountRepo(&models.User{ID: "admin-1", Name: "Dr. Kulkarni"})
	svc := testRequestService(repo, accounts, &mockNotifier{err: errors.New("smtp down")}, newMockSummaryCache())

	request, notified, err := svc.Decide(context.Background(), models.DecisionRequest{
		RequestID: "r1",
		Status:    models.StatusRejected,
	}, adminClaims("admin-1"), RequestMeta{})
	require.NoError(t, err)
	assert.False(t, notified)
	assert.Equal(t, models.StatusRejected, request.Status)
}

func TestDecideToPendingRequiresReopen(t *testing.T) {
	repo := newMockRequestRepo()
	repo.byID["r1"] = pendingRequest("r1")
	svc := testRequestService(repo, newMockAccountRepo(), &mockNotifier{}, newMockSummaryCache())

	_, _, err := svc.Decide(context.Background(), models.DecisionRequest{
		RequestID: "r1",
		Status:    models.StatusPending,
	}, adminClaims("admin-1"), RequestMeta{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
}

func TestDecideConflictWhenAlreadyDecided(t *testing.T) {
	repo := newMockRequestRepo()
	repo.byID["r1"] = pendingRequest("r1")
	repo.decideOK = false
	svc := testRequestService(repo, newMockAccountRepo(), &mockNotifier{}, newMockSummaryCache())

	_, _, err := svc.Decide(context.Background(), models.DecisionRequest{
		RequestID: "r1",
		Status:    models.StatusApproved,
	}, adminClaims("admin-1"), RequestMeta{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestDecideUnknownRequest(t *testing.T) {
	svc := testRequestService(newMockRequestRepo(), newMockAccountRepo(), &mockNotifier{}, newMockSummaryCache())

	_, _, err := svc.Decide(context.Background(), models.DecisionRequest{
		RequestID: "missing",
		Status:    models.StatusApproved,
	}, adminClaims("admin-1"), RequestMeta{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestReopenClearsAllowLatch(t *testing.T) {
	repo := newMockRequestRepo()
	viewerID := "viewer-1"
	now := time.Now()
	decided := pendingRequest("r1")
	decided.Status = models.StatusApproved
	decided.Allowed = true
	decided.AllowedBy = &viewerID
	decided.AllowedAt = &now
	repo.byID["r1"] = decided
	repo.reopenOK = true
	svc := testRequestService(repo, newMockAccountRepo(), &mockNotifier{}, newMockSummaryCache())

	request, err := svc.Reopen(context.Background(), models.ReopenRequest{RequestID: "r1"}, adminClaims("admin-1"), RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, request.Status)
	assert.False(t, request.Allowed)
	assert.Nil(t, request.AllowedBy)
	assert.Nil(t, request.AllowedAt)
}

func TestReopenAlreadyPending(t *testing.T) {
	repo := newMockRequestRepo()
	repo.byID["r1"] = pendingRequest("r1")
	repo.reopenOK = false
	svc := testRequestService(repo, newMockAccountRepo(), &mockNotifier{}, newMockSummaryCache())

	_, err := svc.Reopen(context.Background(), models.ReopenRequest{RequestID: "r1"}, adminClaims("admin-1"), RequestMeta{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
}

func TestMarkAllowedOnPendingFails(t *testing.T) {
	repo := newMockRequestRepo()
	repo.byID["r1"] = pendingRequest("r1")
	svc := testRequestService(repo, newMockAccountRepo(), &mockNotifier{}, newMockSummaryCache())

	_, err := svc.MarkAllowed(context.Background(), "r1", viewerClaims("viewer-1"), RequestMeta{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
	assert.Zero(t, repo.markCalls)
}

func TestMarkAllowedLatchesOnce(t *testing.T) {
	repo := newMockRequestRepo()
	approved := pendingRequest("r1")
	approved.Status = models.StatusApproved
	repo.byID["r1"] = approved
	repo.markOK = true
	svc := testRequestService(repo, newMockAccountRepo(), &mockNotifier{}, newMockSummaryCache())

	request, err := svc.MarkAllowed(context.Background(), "r1", viewerClaims("viewer-1"), RequestMeta{})
	require.NoError(t, err)
	assert.True(t, request.Allowed)
	require.NotNil(t, request.AllowedBy)
	assert.Equal(t, "viewer-1", *request.AllowedBy)
	assert.NotNil(t, request.AllowedAt)
}

func TestMarkAllowedRepeatIsNoOp(t *testing.T) {
	repo := newMockRequestRepo()
	viewerID := "viewer-1"
	stamp := time.Now().Add(-time.Hour)
	allowed := pendingRequest("r1")
	allowed.Status = models.StatusApproved
	allowed.Allowed = true
	allowed.AllowedBy = &viewerID
	allowed.AllowedAt = &stamp
	repo.byID["r1"] = allowed
	svc := testRequestService(repo, newMockAccountRepo(), &mockNotifier{}, newMockSummaryCache())

	request, err := svc.MarkAllowed(context.Background(), "r1", viewerClaims("viewer-2"), RequestMeta{})
	require.NoError(t, err)
	assert.Zero(t, repo.markCalls)
	require.NotNil(t, request.AllowedBy)
	assert.Equal(t, "viewer-1", *request.AllowedBy)
	assert.Equal(t, stamp.Unix(), request.AllowedAt.Unix())
}

func TestListFacultyPinnedToOwnRequests(t *testing.T) {
	repo := newMockRequestRepo()
	svc := testRequestService(repo, newMockAccountRepo(), &mockNotifier{}, newMockSummaryCache())

	_, err := svc.List(context.Background(), models.RequestFilter{FacultyID: "someone-else"}, facultyClaims("u1"))
	require.NoError(t, err)
	assert.Equal(t, "u1", repo.lastFilter.FacultyID)
}

func TestListViewerRestrictedToDecidedScopes(t *testing.T) {
	repo := newMockRequestRepo()
	svc := testRequestService(repo, newMockAccountRepo(), &mockNotifier{}, newMockSummaryCache())

	_, err := svc.List(context.Background(), models.RequestFilter{Scope: models.ScopeAll}, viewerClaims("viewer-1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, err = svc.List(context.Background(), models.RequestFilter{Scope: models.ScopeDecidedOnly}, viewerClaims("viewer-1"))
	require.NoError(t, err)
	_, err = svc.List(context.Background(), models.RequestFilter{Scope: models.ScopeAllowedOnly}, viewerClaims("viewer-1"))
	require.NoError(t, err)
}

func TestListRejectsInvalidStatusFilter(t *testing.T) {
	repo := newMockRequestRepo()
	svc := testRequestService(repo, newMockAccountRepo(), &mockNotifier{}, newMockSummaryCache())

	bogus := models.RequestStatus("archived")
	_, err := svc.List(context.Background(), models.RequestFilter{Status: &bogus}, adminClaims("admin-1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidStatus.Code, appErrors.FromError(err).Code)
}

func TestListNormalizesDateFilter(t *testing.T) {
	repo := newMockRequestRepo()
	svc := testRequestService(repo, newMockAccountRepo(), &mockNotifier{}, newMockSummaryCache())

	_, err := svc.List(context.Background(), models.RequestFilter{Date: "02/01/2026"}, adminClaims("admin-1"))
	require.NoError(t, err)
	assert.Equal(t, "2026-01-02", repo.lastFilter.Date)
}

func TestSummaryServedFromCacheOnSecondCall(t *testing.T) {
	repo := newMockRequestRepo()
	repo.counts = models.StatusCounts{Total: 6, Pending: 2, Approved: 3, Rejected: 1}
	cache := newMockSummaryCache()
	svc := testRequestService(repo, newMockAccountRepo(), &mockNotifier{}, cache)

	first, err := svc.Summary(context.Background(), adminClaims("admin-1"))
	require.NoError(t, err)
	assert.Equal(t, 6, first.Counts.Total)
	assert.Equal(t, 1, repo.countCalls)

	second, err := svc.Summary(context.Background(), adminClaims("admin-1"))
	require.NoError(t, err)
	assert.Equal(t, first.Counts, second.Counts)
	assert.Equal(t, 1, repo.countCalls)
}

func TestSummaryFacultyScopedKey(t *testing.T) {
	repo := newMockRequestRepo()
	cache := newMockSummaryCache()
	svc := testRequestService(repo, newMockAccountRepo(), &mockNotifier{}, cache)

	_, err := svc.Summary(context.Background(), facultyClaims("u1"))
	require.NoError(t, err)
	assert.Contains(t, cache.store, "dashboard:summary:faculty:u1")
}

func TestExportDatasetShape(t *testing.T) {
	repo := newMockRequestRepo()
	repo.listResult = []models.GatePassRequest{
		{
			Date:         "2026-01-02",
			FacultyEmail: "sharma.amit@kbtcoe.org",
			TimeOut:      "10:00",
			TimeIn:       "12:00",
			Purpose:      models.PurposePersonal,
			Reason:       "bank work",
			Status:       models.StatusApproved,
			Allowed:      true,
		},
	}
	svc := testRequestService(repo, newMockAccountRepo(), &mockNotifier{}, newMockSummaryCache())

	dataset, err := svc.ExportDataset(context.Background(), models.RequestFilter{}, adminClaims("admin-1"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Date", "Faculty Email", "Time Out", "Time In", "Purpose", "Reason", "Status", "Allowed"}, dataset.Headers)
	require.Len(t, dataset.Rows, 1)
	assert.Equal(t, "approved", dataset.Rows[0]["Status"])
	assert.Equal(t, "yes", dataset.Rows[0]["Allowed"])
}
