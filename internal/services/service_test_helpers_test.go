package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/saiakshat556/farm-data-bridge/internal/auth"
	"github.com/saiakshat556/farm-data-bridge/internal/database/testutil"
	"github.com/saiakshat556/farm-data-bridge/internal/models"
	"github.com/saiakshat556/farm-data-bridge/internal/realtime"
)

type recordedMessage struct {
	stream  string
	userID  string
	message realtime.Message
}

// recordingHub captures broadcasts instead of writing to sockets.
type recordingHub struct {
	mu       sync.Mutex
	messages []recordedMessage
}

func (h *recordingHub) BroadcastToUser(stream, userID string, message realtime.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, recordedMessage{stream: stream, userID: userID, message: message})
}

func (h *recordingHub) events(userID string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []string
	for _, msg := range h.messages {
		if msg.userID == userID {
			out = append(out, msg.message.Event)
		}
	}
	return out
}

func (h *recordingHub) reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = nil
}

// stepClock advances by step on every reading so rows created back to back
// get distinct timestamps.
type stepClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func newStepClock() *stepClock {
	return &stepClock{
		now:  time.Date(2024, time.March, 15, 9, 0, 0, 0, time.UTC),
		step: time.Millisecond,
	}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	current := c.now
	c.now = c.now.Add(c.step)
	return current
}

func (c *stepClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type serviceEnv struct {
	db            *gorm.DB
	hub           *recordingHub
	clock         *stepClock
	identity      *IdentityService
	submissions   *SubmissionService
	notifications *NotificationService
}

func newServiceEnv(t *testing.T) *serviceEnv {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	clock := newStepClock()
	hub := &recordingHub{}

	jwtSvc, err := auth.NewJWTService(auth.JWTConfig{
		Secret: "service-test-secret",
		Issuer: "farm-data-bridge",
		Clock:  clock.Now,
	})
	require.NoError(t, err)
	sessions, err := auth.NewSessionService(db, jwtSvc, auth.SessionConfig{Clock: clock.Now})
	require.NoError(t, err)

	identity, err := NewIdentityService(db, jwtSvc, sessions, IdentityConfig{PasswordCost: bcrypt.MinCost})
	require.NoError(t, err)
	identity.now = clock.Now

	notifications, err := NewNotificationService(db, hub)
	require.NoError(t, err)
	notifications.now = clock.Now

	submissions, err := NewSubmissionService(db, notifications, hub)
	require.NoError(t, err)
	submissions.now = clock.Now

	return &serviceEnv{
		db:            db,
		hub:           hub,
		clock:         clock,
		identity:      identity,
		submissions:   submissions,
		notifications: notifications,
	}
}

func (e *serviceEnv) register(t *testing.T, name, email string, role models.Role) *AuthResult {
	t.Helper()
	result, err := e.identity.Register(context.Background(), RegisterInput{
		Name:     name,
		Email:    email,
		Password: "password123",
		Role:     role,
	}, auth.SessionMetadata{IPAddress: "127.0.0.1", UserAgent: "go-test"})
	require.NoError(t, err)
	return result
}

func wheatInput() SubmitInput {
	return SubmitInput{
		CropType:     "Wheat",
		Quantity:     500,
		Unit:         "kg",
		GrowthStage:  "Mature",
		PlantingDate: NewDate(time.Date(2023, time.March, 15, 0, 0, 0, 0, time.UTC)),
	}
}

func countRows(t *testing.T, db *gorm.DB, model any, query string, args ...any) int64 {
	t.Helper()
	var count int64
	q := db.Model(model)
	if query != "" {
		q = q.Where(query, args...)
	}
	require.NoError(t, q.Count(&count).Error)
	return count
}
