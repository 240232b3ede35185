package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/saiakshat556/farm-data-bridge/internal/auth"
	"github.com/saiakshat556/farm-data-bridge/internal/models"
	"github.com/saiakshat556/farm-data-bridge/pkg/crypto"
	apperrors "github.com/saiakshat556/farm-data-bridge/pkg/errors"
	"github.com/saiakshat556/farm-data-bridge/pkg/logger"
	"github.com/saiakshat556/farm-data-bridge/pkg/metrics"
	appValidator "github.com/saiakshat556/farm-data-bridge/pkg/validator"
)

// ErrUserNotFound indicates the requested identity does not exist.
var ErrUserNotFound = apperrors.ErrNotFound.WithMessage("User not found")

// RegisterInput describes a self-service registration.
type RegisterInput struct {
	Name     string      `json:"name" validate:"notblank,max=255"`
	Email    string      `json:"email" validate:"required,email,max=255"`
	Password string      `json:"password" validate:"required,min=6,max=72"`
	Role     models.Role `json:"role" validate:"required,oneof=farmer officer admin"`
}

// LoginInput carries credentials for Authenticate.
type LoginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// AuthResult is returned by every operation that opens a session.
type AuthResult struct {
	User   *models.User   `json:"user"`
	Tokens auth.TokenPair `json:"tokens"`
}

// Principal is an authenticated identity bound to the session it presented.
type Principal struct {
	User      *models.User
	SessionID string
}

// ListUsersInput filters the user directory.
type ListUsersInput struct {
	Role models.Role
}

// UserStats summarises the identity store.
type UserStats struct {
	TotalUsers  int64 `json:"totalUsers"`
	Farmers     int64 `json:"farmers"`
	Officers    int64 `json:"officers"`
	Admins      int64 `json:"admins"`
	NewUsers    int64 `json:"newUsers"`
	ActiveUsers int64 `json:"activeUsers"`
}

// IdentityConfig tunes the IdentityService.
type IdentityConfig struct {
	PasswordCost int
	// NewUserWindow bounds UserStats.NewUsers. Defaults to 30 days.
	NewUserWindow time.Duration
}

// IdentityService registers and authenticates identities and resolves
// access tokens back to them.
type IdentityService struct {
	db           *gorm.DB
	jwt          *auth.JWTService
	sessions     *auth.SessionService
	passwordCost int
	newWindow    time.Duration
	now          func() time.Time
	log          *zap.Logger
}

// NewIdentityService constructs an IdentityService.
func NewIdentityService(db *gorm.DB, jwt *auth.JWTService, sessions *auth.SessionService, cfg IdentityConfig) (*IdentityService, error) {
	if db == nil {
		return nil, errors.New("identity service: db is required")
	}
	if jwt == nil || sessions == nil {
		return nil, errors.New("identity service: jwt and session services are required")
	}

	cost := cfg.PasswordCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	window := cfg.NewUserWindow
	if window <= 0 {
		window = 30 * 24 * time.Hour
	}

	return &IdentityService{
		db:           db,
		jwt:          jwt,
		sessions:     sessions,
		passwordCost: cost,
		newWindow:    window,
		now:          time.Now,
		log:          logger.WithModule("identity"),
	}, nil
}

// Register creates an identity and opens its first session. Emails are
// matched exactly; a duplicate leaves the store untouched.
func (s *IdentityService) Register(ctx context.Context, input RegisterInput, meta auth.SessionMetadata) (*AuthResult, error) {
	ctx = ensureContext(ctx)

	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.TrimSpace(input.Email)
	if err := appValidator.ValidateStruct(input); err != nil {
		return nil, apperrors.NewBadRequest(appValidator.Describe(err))
	}

	hash, err := crypto.HashPasswordWithCost(input.Password, s.passwordCost)
	if err != nil {
		return nil, fmt.Errorf("identity service: hash password: %w", err)
	}

	now := s.now().UTC()
	user := &models.User{
		BaseModel: models.BaseModel{CreatedAt: now, UpdatedAt: now},
		Name:      input.Name,
		Email:     input.Email,
		Password:  hash,
		Role:      input.Role,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&models.User{}).Where("email = ?", user.Email).Count(&existing).Error; err != nil {
			return fmt.Errorf("identity service: check email: %w", err)
		}
		if existing > 0 {
			return apperrors.ErrDuplicateEmail
		}
		if err := tx.Create(user).Error; err != nil {
			if isUniqueConstraintError(err) {
				return apperrors.ErrDuplicateEmail
			}
			return fmt.Errorf("identity service: create user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.Registrations.WithLabelValues(string(user.Role)).Inc()
	s.log.Info("identity registered", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))

	tokens, _, err := s.sessions.CreateSession(ctx, user, meta)
	if err != nil {
		return nil, fmt.Errorf("identity service: open session: %w", err)
	}
	return &AuthResult{User: user, Tokens: tokens}, nil
}

// Authenticate verifies credentials and opens a session. Unknown emails and
// wrong passwords are indistinguishable to the caller.
func (s *IdentityService) Authenticate(ctx context.Context, input LoginInput, meta auth.SessionMetadata) (*AuthResult, error) {
	ctx = ensureContext(ctx)

	email := strings.TrimSpace(input.Email)
	if email == "" || input.Password == "" {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		return nil, apperrors.ErrInvalidCredentials
	}

	var user models.User
	err := s.db.WithContext(ctx).Take(&user, "email = ?", email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		return nil, apperrors.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("identity service: load user: %w", err)
	}
	if !crypto.VerifyPassword(user.Password, input.Password) {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		return nil, apperrors.ErrInvalidCredentials
	}
	metrics.AuthAttempts.WithLabelValues("success").Inc()

	now := s.now().UTC()
	if err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", user.ID).
		Update("last_login_at", now).Error; err != nil {
		return nil, fmt.Errorf("identity service: record login: %w", err)
	}
	user.LastLoginAt = &now

	tokens, _, err := s.sessions.CreateSession(ctx, &user, meta)
	if err != nil {
		return nil, fmt.Errorf("identity service: open session: %w", err)
	}
	return &AuthResult{User: &user, Tokens: tokens}, nil
}

// Identify resolves an access token to its identity. Any failure (bad
// signature, expiry, logout, deleted user) yields apperrors.ErrUnauthorized.
func (s *IdentityService) Identify(ctx context.Context, accessToken string) (*Principal, error) {
	ctx = ensureContext(ctx)

	claims, err := s.jwt.ValidateAccessToken(strings.TrimSpace(accessToken))
	if err != nil {
		return nil, apperrors.ErrUnauthorized.WithInternal(err)
	}

	session, err := s.sessions.Validate(ctx, claims.SessionID)
	if err != nil {
		if isSessionError(err) {
			return nil, apperrors.ErrUnauthorized.WithInternal(err)
		}
		return nil, err
	}
	if session.UserID != claims.UserID {
		return nil, apperrors.ErrUnauthorized
	}

	var user models.User
	if err := s.db.WithContext(ctx).Take(&user, "id = ?", claims.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUnauthorized.WithInternal(err)
		}
		return nil, fmt.Errorf("identity service: load user: %w", err)
	}
	return &Principal{User: &user, SessionID: session.ID}, nil
}

// CurrentIdentity returns the identity behind accessToken, or nil when the
// token does not resolve to a live session.
func (s *IdentityService) CurrentIdentity(ctx context.Context, accessToken string) (*models.User, error) {
	principal, err := s.Identify(ctx, accessToken)
	if errors.Is(err, apperrors.ErrUnauthorized) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return principal.User, nil
}

// Logout ends a session. Logging out an already ended session is a no-op.
func (s *IdentityService) Logout(ctx context.Context, sessionID string) error {
	err := s.sessions.RevokeSession(ensureContext(ctx), sessionID)
	if err == nil || errors.Is(err, auth.ErrSessionNotFound) {
		return nil
	}
	if errors.Is(err, auth.ErrSessionInvalidToken) {
		return apperrors.ErrUnauthorized
	}
	return err
}

// Refresh rotates a refresh token into a new token pair.
func (s *IdentityService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	tokens, session, err := s.sessions.RefreshSession(ensureContext(ctx), refreshToken)
	if err != nil {
		if isSessionError(err) {
			return nil, apperrors.ErrUnauthorized.WithInternal(err)
		}
		return nil, err
	}
	return &AuthResult{User: session.User, Tokens: tokens}, nil
}

// Get loads one identity.
func (s *IdentityService) Get(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ensureContext(ctx)).Take(&user, "id = ?", strings.TrimSpace(id)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("identity service: get user: %w", err)
	}
	return &user, nil
}

// List returns the user directory, newest first.
func (s *IdentityService) List(ctx context.Context, input ListUsersInput) ([]models.User, error) {
	query := s.db.WithContext(ensureContext(ctx)).Order("created_at DESC").Order("email")
	if input.Role != "" {
		query = query.Where("role = ?", input.Role)
	}

	var users []models.User
	if err := query.Find(&users).Error; err != nil {
		return nil, fmt.Errorf("identity service: list users: %w", err)
	}
	return users, nil
}

// Stats reports role totals, recently created identities and identities
// holding a live session.
func (s *IdentityService) Stats(ctx context.Context) (UserStats, error) {
	ctx = ensureContext(ctx)

	var rows []struct {
		Role  models.Role
		Total int64
	}
	if err := s.db.WithContext(ctx).
		Model(&models.User{}).
		Select("role, COUNT(*) AS total").
		Group("role").
		Scan(&rows).Error; err != nil {
		return UserStats{}, fmt.Errorf("identity service: count roles: %w", err)
	}

	var stats UserStats
	for _, row := range rows {
		stats.TotalUsers += row.Total
		switch row.Role {
		case models.RoleFarmer:
			stats.Farmers = row.Total
		case models.RoleOfficer:
			stats.Officers = row.Total
		case models.RoleAdmin:
			stats.Admins = row.Total
		}
	}

	since := s.now().UTC().Add(-s.newWindow)
	if err := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("created_at >= ?", since).
		Count(&stats.NewUsers).Error; err != nil {
		return UserStats{}, fmt.Errorf("identity service: count new users: %w", err)
	}

	active, err := s.sessions.CountActiveUsers(ctx)
	if err != nil {
		return UserStats{}, fmt.Errorf("identity service: %w", err)
	}
	stats.ActiveUsers = active
	return stats, nil
}

func isSessionError(err error) bool {
	return errors.Is(err, auth.ErrSessionNotFound) ||
		errors.Is(err, auth.ErrSessionRevoked) ||
		errors.Is(err, auth.ErrSessionExpired) ||
		errors.Is(err, auth.ErrSessionInvalidToken)
}
