package api

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/saiakshat556/farm-data-bridge/internal/app"
	iauth "github.com/saiakshat556/farm-data-bridge/internal/auth"
	"github.com/saiakshat556/farm-data-bridge/internal/permissions"
	"github.com/saiakshat556/farm-data-bridge/internal/realtime"
	"github.com/saiakshat556/farm-data-bridge/internal/services"
)

// Services bundles the long-lived components the HTTP layer depends on.
type Services struct {
	JWT           *iauth.JWTService
	Sessions      *iauth.SessionService
	Gate          *permissions.Gate
	Identity      *services.IdentityService
	Notifications *services.NotificationService
	Submissions   *services.SubmissionService
	Hub           *realtime.Hub
}

// NewServices builds every service from configuration. hub may be nil, in
// which case realtime delivery and the stream endpoint are disabled.
func NewServices(db *gorm.DB, cfg *app.Config, hub *realtime.Hub) (*Services, error) {
	if db == nil {
		return nil, errors.New("database handle must be provided")
	}
	if cfg == nil {
		return nil, errors.New("config must be provided")
	}

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("jwt service: %w", err)
	}

	sessions, err := iauth.NewSessionService(db, jwtSvc, cfg.Auth.SessionServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("session service: %w", err)
	}

	gate, err := permissions.NewGate(cfg.Auth.GateConfig())
	if err != nil {
		return nil, fmt.Errorf("authorization gate: %w", err)
	}

	identity, err := services.NewIdentityService(db, jwtSvc, sessions, cfg.Auth.IdentityServiceConfig())
	if err != nil {
		return nil, err
	}

	var broadcaster services.Broadcaster
	if hub != nil {
		broadcaster = hub
	}

	notifications, err := services.NewNotificationService(db, broadcaster)
	if err != nil {
		return nil, err
	}

	submissions, err := services.NewSubmissionService(db, notifications, broadcaster)
	if err != nil {
		return nil, err
	}

	return &Services{
		JWT:           jwtSvc,
		Sessions:      sessions,
		Gate:          gate,
		Identity:      identity,
		Notifications: notifications,
		Submissions:   submissions,
		Hub:           hub,
	}, nil
}
