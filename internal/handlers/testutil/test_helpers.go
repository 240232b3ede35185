package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/saiakshat556/farm-data-bridge/internal/api"
	"github.com/saiakshat556/farm-data-bridge/internal/app"
	sharedtestutil "github.com/saiakshat556/farm-data-bridge/internal/database/testutil"
	"github.com/saiakshat556/farm-data-bridge/internal/realtime"
	"github.com/saiakshat556/farm-data-bridge/pkg/response"
)

// DefaultPassword is used by Register when no password is supplied.
const DefaultPassword = "password123"

// Env encapsulates a fully-wired API instance backed by an in-memory database for handler tests.
type Env struct {
	T        *testing.T
	DB       *gorm.DB
	Router   *gin.Engine
	Config   *app.Config
	Services *api.Services
	Hub      *realtime.Hub
}

// EnvOption customises the configuration used by NewEnv.
type EnvOption func(*app.Config)

// WithAdminReview toggles whether administrators may review submissions.
func WithAdminReview(enabled bool) EnvOption {
	return func(cfg *app.Config) {
		cfg.Auth.AdminCanReview = enabled
	}
}

// WithRateLimit enables the per-route limiter.
func WithRateLimit(requests int, window time.Duration) EnvOption {
	return func(cfg *app.Config) {
		cfg.Server.RateLimit = app.RateLimitConfig{Requests: requests, Window: window}
	}
}

// NewEnv provisions a fresh handler test environment with migrations applied.
func NewEnv(t *testing.T, opts ...EnvOption) *Env {
	t.Helper()

	gin.SetMode(gin.TestMode)

	db := sharedtestutil.MustOpenTestDB(t, sharedtestutil.WithAutoMigrate())

	cfg := &app.Config{
		Auth: app.AuthConfig{
			JWT: app.JWTSettings{
				Secret: "test-suite-super-secret-key-32-bytes!!",
				Issuer: "test-suite",
				TTL:    time.Hour,
			},
			Session: app.SessionSettings{
				RefreshTTL:    24 * time.Hour,
				RefreshLength: 48,
			},
			PasswordCost:   bcrypt.MinCost,
			AdminCanReview: true,
		},
		Monitoring: app.MonitoringConfig{
			Prometheus: app.PrometheusConfig{Enabled: true, Endpoint: "/metrics"},
		},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	hub := realtime.NewHub()
	t.Cleanup(hub.Close)

	svc, err := api.NewServices(db, cfg, hub)
	require.NoError(t, err)

	router, err := api.NewRouter(db, cfg, svc)
	require.NoError(t, err)

	return &Env{
		T:        t,
		DB:       db,
		Router:   router,
		Config:   cfg,
		Services: svc,
		Hub:      hub,
	}
}

// TokenPair mirrors the token block of auth responses.
type TokenPair struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// UserPayload captures the user fields returned from the API.
type UserPayload struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	Role        string     `json:"role"`
	CreatedAt   time.Time  `json:"createdAt"`
	LastLoginAt *time.Time `json:"lastLoginAt"`
}

// AuthPayload bundles the JSON response from register, login and refresh.
type AuthPayload struct {
	User        UserPayload `json:"user"`
	Tokens      TokenPair   `json:"tokens"`
	Permissions []string    `json:"permissions"`
}

// SubmissionPayload mirrors a submission record.
type SubmissionPayload struct {
	ID           string     `json:"id"`
	OwnerID      string     `json:"ownerId"`
	CropType     string     `json:"cropType"`
	Quantity     float64    `json:"quantity"`
	Unit         string     `json:"unit"`
	GrowthStage  string     `json:"growthStage"`
	PlantingDate time.Time  `json:"plantingDate"`
	HarvestDate  *time.Time `json:"harvestDate"`
	Location     string     `json:"location"`
	Status       string     `json:"status"`
	Feedback     string     `json:"feedback"`
	ReviewerID   *string    `json:"reviewerId"`
	ReviewedAt   *time.Time `json:"reviewedAt"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// NotificationPayload mirrors a notification.
type NotificationPayload struct {
	ID          string         `json:"id"`
	RecipientID string         `json:"recipientId"`
	Title       string         `json:"title"`
	Message     string         `json:"message"`
	Kind        string         `json:"kind"`
	Metadata    map[string]any `json:"metadata"`
	Read        bool           `json:"read"`
	Timestamp   time.Time      `json:"timestamp"`
	ReadAt      *time.Time     `json:"readAt"`
}

// StatsPayload mirrors the submission counters.
type StatsPayload struct {
	Total    int64 `json:"total"`
	Approved int64 `json:"approved"`
	Rejected int64 `json:"rejected"`
	Pending  int64 `json:"pending"`
}

// Register creates an identity through the API using DefaultPassword.
func (e *Env) Register(name, email, role string) AuthPayload {
	e.T.Helper()

	w := e.Request(http.MethodPost, "/api/auth/register", map[string]string{
		"name":     name,
		"email":    email,
		"password": DefaultPassword,
		"role":     role,
	}, "")
	require.Equal(e.T, http.StatusCreated, w.Code, w.Body.String())

	var result AuthPayload
	DecodeInto(e.T, DecodeResponse(e.T, w).Data, &result)
	require.NotEmpty(e.T, result.User.ID)
	require.NotEmpty(e.T, result.Tokens.AccessToken)
	return result
}

// Login authenticates with email and password and returns the issued tokens.
func (e *Env) Login(email, password string) AuthPayload {
	e.T.Helper()

	w := e.Request(http.MethodPost, "/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, "")
	require.Equal(e.T, http.StatusOK, w.Code, w.Body.String())

	resp := DecodeResponse(e.T, w)
	require.True(e.T, resp.Success, w.Body.String())

	var result AuthPayload
	DecodeInto(e.T, resp.Data, &result)
	require.NotEmpty(e.T, result.Tokens.AccessToken)
	require.NotEmpty(e.T, result.Tokens.RefreshToken)
	require.Equal(e.T, email, result.User.Email)
	return result
}

// Submit files a submission for the token holder and returns it.
func (e *Env) Submit(token string, body map[string]any) SubmissionPayload {
	e.T.Helper()

	w := e.Request(http.MethodPost, "/api/submissions", body, token)
	require.Equal(e.T, http.StatusCreated, w.Code, w.Body.String())

	var submission SubmissionPayload
	DecodeInto(e.T, DecodeResponse(e.T, w).Data, &submission)
	return submission
}

// WheatSubmission returns a valid submission body.
func WheatSubmission() map[string]any {
	return map[string]any{
		"cropType":     "Wheat",
		"quantity":     500,
		"unit":         "kg",
		"growthStage":  "Mature",
		"plantingDate": "2023-03-15",
	}
}

// APIResponse represents the canonical API envelope returned by handlers.
type APIResponse struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Error   *response.ErrorInfo `json:"error"`
	Meta    *response.Meta      `json:"meta"`
}

// DecodeResponse parses the standard API response object from a recorder.
func DecodeResponse(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// DecodeInto unmarshals the data payload into the provided destination.
func DecodeInto[T any](t *testing.T, raw json.RawMessage, dest *T) {
	t.Helper()
	if dest == nil {
		t.Fatal("destination must not be nil")
	}
	require.NoError(t, json.Unmarshal(raw, dest))
}

// RequireError asserts that w carries an error envelope with the given status and code.
func RequireError(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	require.Equal(t, status, w.Code, w.Body.String())
	resp := DecodeResponse(t, w)
	require.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	require.Equal(t, code, resp.Error.Code)
}

// Request executes an HTTP request against the test router, applying JSON encoding and auth headers automatically.
func (e *Env) Request(method, path string, body any, token string) *httptest.ResponseRecorder {
	e.T.Helper()

	var buf *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.T, err)
		buf = bytes.NewBuffer(data)
	} else {
		buf = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, path, buf)
	require.NoError(e.T, err)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}
