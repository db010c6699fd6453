package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/Riya-Avasthi/GatePass-For-Faculty/internal/models"
	appErrors "github.com/Riya-Avasthi/GatePass-For-Faculty/pkg/errors"
)

type authUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmployeeID(ctx context.Context, employeeID string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	TokenSecret string
	TokenExpiry time.Duration
	Issuer      string
	EmailDomain string
}

// AuthService provides registration and authentication use cases. It is the
// boundary to the identity provider: it stores credentials and issues signed
// role claims.
type AuthService struct {
	repo       authUserRepository
	validator  *validator.Validate
	logger     *zap.Logger
	config     AuthConfig
	emailShape *regexp.Regexp
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(repo authUserRepository, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.EmailDomain == "" {
		config.EmailDomain = "kbtcoe.org"
	}
	// Institutional addresses are lastname.firstname@<domain>.
	shape := regexp.MustCompile(`(?i)^[a-z]+\.[a-z]+@` + regexp.QuoteMeta(config.EmailDomain) + `$`)
	return &AuthService{repo: repo, validator: validate, logger: logger, config: config, emailShape: shape}
}

// Register creates a new account. Faculty and admin roles require employee
// details; viewer accounts get placeholder values.
func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest, meta RequestMeta) (*models.UserInfo, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}

	if !req.Role.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid role, must be 'faculty', 'admin' or 'viewer'")
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if !s.emailShape.MatchString(email) {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("email must be in format: lastname.firstname@%s", s.config.EmailDomain))
	}

	if req.Role != models.RoleViewer && (req.EmployeeID == "" || req.Designation == "" || req.Department == "") {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			"employee id, designation and department are required for faculty and admin registration")
	}

	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "user already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing email")
	}

	if req.Role != models.RoleViewer {
		if _, err := s.repo.FindByEmployeeID(ctx, req.EmployeeID); err == nil {
			return nil, appErrors.Clone(appErrors.ErrConflict, "employee id already exists")
		} else if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing employee id")
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{
		Name:         req.Name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         req.Role,
		EmployeeID:   req.EmployeeID,
		Designation:  req.Designation,
		Department:   req.Department,
	}
	if req.Role == models.RoleViewer {
		user.EmployeeID = models.ViewerEmployeeID
		user.Designation = models.ViewerDesignation
		user.Department = models.ViewerDepartment
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}

	if err := s.repo.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &user.ID,
		Action:     models.AuditActionRegister,
		Resource:   "auth",
		ResourceID: &user.ID,
		NewValues:  []byte(fmt.Sprintf(`{"role":%q}`, user.Role)),
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	}); err != nil {
		s.logger.Warn("failed to record registration audit log", zap.Error(err))
	}

	info := user.Info()
	return &info, nil
}

// Login verifies a credential and issues a signed 24h token carrying the
// identity and role claim.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if !s.emailShape.MatchString(email) {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("email must be in format: lastname.firstname@%s", s.config.EmailDomain))
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid credentials")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid credentials")
	}

	token, err := s.generateAccessToken(user)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}

	if err := s.repo.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &user.ID,
		Action:     models.AuditActionLogin,
		Resource:   "auth",
		ResourceID: &user.ID,
		NewValues:  []byte(`{"status":"success"}`),
		IPAddress:  req.IP,
		UserAgent:  req.UserAgent,
	}); err != nil {
		s.logger.Warn("failed to record login audit log", zap.Error(err))
	}

	return &models.LoginResponse{
		Token:       token,
		ExpiresIn:   int64(s.config.TokenExpiry.Seconds()),
		User:        user.Info(),
		RedirectURL: redirectURLFor(user.Role),
		IssuedAt:    time.Now().UTC(),
	}, nil
}

// Me returns the current account for the given identity.
func (s *AuthService) Me(ctx context.Context, userID string) (*models.UserInfo, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	info := user.Info()
	return &info, nil
}

// ValidateToken parses and validates an access token returning the claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.TokenSecret), nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}

	return claims, nil
}

func (s *AuthService) generateAccessToken(user *models.User) (string, error) {
	issuedAt := time.Now().UTC()
	claims := &models.JWTClaims{
		UserID: user.ID,
		Role:   user.Role,
		Email:  user.Email,
		Name:   user.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.config.TokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.TokenSecret))
}

func redirectURLFor(role models.UserRole) string {
	switch role {
	case models.RoleAdmin:
		return "/admin-dashboard"
	case models.RoleFaculty:
		return "/faculty-dashboard"
	case models.RoleViewer:
		return "/viewer-dashboard"
	}
	return "/dashboard"
}
