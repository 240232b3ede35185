package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/saiakshat556/farm-data-bridge/internal/models"
	"github.com/saiakshat556/farm-data-bridge/internal/realtime"
	apperrors "github.com/saiakshat556/farm-data-bridge/pkg/errors"
	"github.com/saiakshat556/farm-data-bridge/pkg/logger"
	"github.com/saiakshat556/farm-data-bridge/pkg/metrics"
)

// Broadcaster pushes realtime events to a user's open connections.
type Broadcaster interface {
	BroadcastToUser(stream, userID string, message realtime.Message)
}

// NotificationDTO represents the API-friendly notification payload.
type NotificationDTO struct {
	ID          string         `json:"id"`
	RecipientID string         `json:"recipientId"`
	Title       string         `json:"title"`
	Message     string         `json:"message"`
	Kind        string         `json:"kind"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Read        bool           `json:"read"`
	Timestamp   time.Time      `json:"timestamp"`
	ReadAt      *time.Time     `json:"readAt,omitempty"`
}

// NotifyInput defines attributes required to persist a notification.
type NotifyInput struct {
	RecipientID string
	Title       string
	Message     string
	Kind        models.NotificationKind
	Metadata    map[string]any
}

// ListNotificationsInput filters a recipient's notifications. A zero Limit
// returns every notification.
type ListNotificationsInput struct {
	RecipientID string
	Limit       int
	UnreadOnly  bool
}

// NotificationEventPayload represents data sent to realtime consumers.
type NotificationEventPayload struct {
	Notification   *NotificationDTO `json:"notification,omitempty"`
	NotificationID string           `json:"notificationId,omitempty"`
	Updated        int64            `json:"updated,omitempty"`
}

const maxNotificationPage = 200

// NotificationService persists in-app notifications and pushes them to
// connected clients once committed.
type NotificationService struct {
	db  *gorm.DB
	hub Broadcaster
	now func() time.Time
	log *zap.Logger
}

// NewNotificationService constructs a NotificationService. hub may be nil
// when realtime delivery is disabled.
func NewNotificationService(db *gorm.DB, hub Broadcaster) (*NotificationService, error) {
	if db == nil {
		return nil, errors.New("notification service: db is required")
	}
	return &NotificationService{
		db:  db,
		hub: hub,
		now: time.Now,
		log: logger.WithModule("notifications"),
	}, nil
}

// Notify creates an unread notification for an existing recipient.
func (s *NotificationService) Notify(ctx context.Context, input NotifyInput) (*NotificationDTO, error) {
	ctx = ensureContext(ctx)

	var created models.Notification
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("id = ?", strings.TrimSpace(input.RecipientID)).Count(&count).Error; err != nil {
			return fmt.Errorf("notification service: load recipient: %w", err)
		}
		if count == 0 {
			return apperrors.ErrUnknownRecipient
		}

		row, err := s.createTx(tx, input, s.now().UTC())
		if err != nil {
			return err
		}
		created = row
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishCreated([]models.Notification{created})
	dto := mapNotification(created)
	return &dto, nil
}

// FanOutOnSubmissionCreated tells every recipient that submission awaits review.
func (s *NotificationService) FanOutOnSubmissionCreated(ctx context.Context, submission *models.Submission, recipientIDs []string) ([]NotificationDTO, error) {
	if submission == nil {
		return nil, errors.New("notification service: submission is required")
	}

	var created []models.Notification
	err := s.db.WithContext(ensureContext(ctx)).Transaction(func(tx *gorm.DB) error {
		rows, err := s.fanOutCreatedTx(tx, submission, recipientIDs, s.now().UTC())
		created = rows
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publishCreated(created)
	return mapNotificationRows(created), nil
}

// FanOutOnReview tells the owner of a reviewed submission about the decision.
func (s *NotificationService) FanOutOnReview(ctx context.Context, submission *models.Submission) (*NotificationDTO, error) {
	if submission == nil {
		return nil, errors.New("notification service: submission is required")
	}

	var created models.Notification
	err := s.db.WithContext(ensureContext(ctx)).Transaction(func(tx *gorm.DB) error {
		row, err := s.fanOutReviewTx(tx, submission, s.now().UTC())
		created = row
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publishCreated([]models.Notification{created})
	dto := mapNotification(created)
	return &dto, nil
}

// ListForRecipient returns a recipient's notifications, newest first.
func (s *NotificationService) ListForRecipient(ctx context.Context, input ListNotificationsInput) ([]NotificationDTO, error) {
	recipientID := strings.TrimSpace(input.RecipientID)
	if recipientID == "" {
		return nil, errors.New("notification service: recipient id is required")
	}

	query := s.db.WithContext(ensureContext(ctx)).
		Where("recipient_id = ?", recipientID).
		Order("created_at DESC").
		Order("id DESC")
	if input.UnreadOnly {
		query = query.Where("is_read = ?", false)
	}
	if limit := clampLimit(input.Limit, maxNotificationPage); limit > 0 {
		query = query.Limit(limit)
	}

	var rows []models.Notification
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("notification service: list notifications: %w", err)
	}
	return mapNotificationRows(rows), nil
}

// UnreadCount returns how many notifications the recipient has not read.
func (s *NotificationService) UnreadCount(ctx context.Context, recipientID string) (int64, error) {
	var count int64
	if err := s.db.WithContext(ensureContext(ctx)).
		Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("notification service: count unread: %w", err)
	}
	return count, nil
}

// MarkRead flags a notification as read. recipientID scopes the lookup when
// non-empty, so callers cannot touch other users' notifications. Marking an
// already read notification is a no-op.
func (s *NotificationService) MarkRead(ctx context.Context, recipientID, notificationID string) (*NotificationDTO, error) {
	ctx = ensureContext(ctx)

	var (
		notification models.Notification
		changed      bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query := tx.Where("id = ?", strings.TrimSpace(notificationID))
		if recipientID = strings.TrimSpace(recipientID); recipientID != "" {
			query = query.Where("recipient_id = ?", recipientID)
		}
		if err := query.Take(&notification).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrNotificationNotFound
			}
			return fmt.Errorf("notification service: load notification: %w", err)
		}
		if notification.IsRead {
			return nil
		}

		now := s.now().UTC()
		result := tx.Model(&models.Notification{}).
			Where("id = ? AND is_read = ?", notification.ID, false).
			Updates(map[string]any{
				"is_read":    true,
				"read_at":    now,
				"updated_at": now,
			})
		if result.Error != nil {
			return fmt.Errorf("notification service: mark read: %w", result.Error)
		}
		changed = result.RowsAffected > 0
		notification.IsRead = true
		notification.ReadAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	dto := mapNotification(notification)
	if changed {
		s.broadcast(notification.RecipientID, realtime.EventNotificationRead, &NotificationEventPayload{
			Notification:   &dto,
			NotificationID: notification.ID,
		})
	}
	return &dto, nil
}

// MarkAllRead marks every unread notification of the recipient as read and
// returns how many changed.
func (s *NotificationService) MarkAllRead(ctx context.Context, recipientID string) (int64, error) {
	recipientID = strings.TrimSpace(recipientID)
	if recipientID == "" {
		return 0, errors.New("notification service: recipient id is required")
	}

	now := s.now().UTC()
	result := s.db.WithContext(ensureContext(ctx)).
		Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Updates(map[string]any{
			"is_read":    true,
			"read_at":    now,
			"updated_at": now,
		})
	if result.Error != nil {
		return 0, fmt.Errorf("notification service: mark all read: %w", result.Error)
	}

	if result.RowsAffected > 0 {
		s.broadcast(recipientID, realtime.EventNotificationReadAll, &NotificationEventPayload{
			Updated: result.RowsAffected,
		})
	}
	return result.RowsAffected, nil
}

func (s *NotificationService) createTx(tx *gorm.DB, input NotifyInput, now time.Time) (models.Notification, error) {
	recipientID := strings.TrimSpace(input.RecipientID)
	if recipientID == "" {
		return models.Notification{}, errors.New("notification service: recipient id is required")
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return models.Notification{}, errors.New("notification service: title is required")
	}

	kind := input.Kind
	if kind == "" {
		kind = models.KindInfo
	}
	if !kind.Valid() {
		return models.Notification{}, fmt.Errorf("notification service: unknown kind %q", kind)
	}

	metadata, err := encodeJSON(input.Metadata)
	if err != nil {
		return models.Notification{}, fmt.Errorf("notification service: marshal metadata: %w", err)
	}

	notification := models.Notification{
		RecordModel: models.RecordModel{CreatedAt: now, UpdatedAt: now},
		RecipientID: recipientID,
		Title:       title,
		Message:     strings.TrimSpace(input.Message),
		Kind:        kind,
		Metadata:    metadata,
	}
	if err := tx.Create(&notification).Error; err != nil {
		return models.Notification{}, fmt.Errorf("notification service: create notification: %w", err)
	}
	return notification, nil
}

func (s *NotificationService) fanOutCreatedTx(tx *gorm.DB, submission *models.Submission, recipientIDs []string, now time.Time) ([]models.Notification, error) {
	recipients := normaliseIDs(recipientIDs)
	created := make([]models.Notification, 0, len(recipients))
	for _, recipientID := range recipients {
		row, err := s.createTx(tx, NotifyInput{
			RecipientID: recipientID,
			Title:       "New Crop Submission",
			Message:     fmt.Sprintf("A new %s crop has been submitted for review.", submission.CropType),
			Kind:        models.KindInfo,
			Metadata: map[string]any{
				"submissionId": submission.ID,
				"cropType":     submission.CropType,
				"ownerId":      submission.OwnerID,
			},
		}, now)
		if err != nil {
			return nil, err
		}
		created = append(created, row)
	}
	return created, nil
}

func (s *NotificationService) fanOutReviewTx(tx *gorm.DB, submission *models.Submission, now time.Time) (models.Notification, error) {
	var (
		title string
		kind  models.NotificationKind
		verb  string
	)
	switch submission.Status {
	case models.StatusApproved:
		title, kind, verb = "Crop Approved", models.KindSuccess, "approved"
	case models.StatusRejected:
		title, kind, verb = "Crop Rejected", models.KindError, "rejected"
	default:
		return models.Notification{}, fmt.Errorf("notification service: submission %s is not reviewed", submission.ID)
	}

	message := fmt.Sprintf("Your %s crop submission has been %s.", submission.CropType, verb)
	if feedback := strings.TrimSpace(submission.Feedback); feedback != "" {
		message += " " + feedback
	}

	return s.createTx(tx, NotifyInput{
		RecipientID: submission.OwnerID,
		Title:       title,
		Message:     message,
		Kind:        kind,
		Metadata: map[string]any{
			"submissionId": submission.ID,
			"cropType":     submission.CropType,
			"decision":     string(submission.Status),
		},
	}, now)
}

// publishCreated runs after commit; rolled back notifications are never pushed.
func (s *NotificationService) publishCreated(rows []models.Notification) {
	for _, row := range rows {
		metrics.NotificationsCreated.WithLabelValues(string(row.Kind)).Inc()
		dto := mapNotification(row)
		s.broadcast(row.RecipientID, realtime.EventNotificationCreated, &NotificationEventPayload{
			Notification: &dto,
		})
	}
	if len(rows) > 0 {
		s.log.Debug("notifications created", zap.Int("count", len(rows)))
	}
}

func (s *NotificationService) broadcast(recipientID, event string, payload *NotificationEventPayload) {
	if s.hub == nil {
		return
	}
	message := realtime.Message{
		Stream: realtime.StreamNotifications,
		Event:  event,
	}
	if payload != nil {
		message.Data = payload
	}
	s.hub.BroadcastToUser(realtime.StreamNotifications, recipientID, message)
}

func mapNotificationRows(rows []models.Notification) []NotificationDTO {
	items := make([]NotificationDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapNotification(row))
	}
	return items
}

func mapNotification(row models.Notification) NotificationDTO {
	return NotificationDTO{
		ID:          row.ID,
		RecipientID: row.RecipientID,
		Title:       row.Title,
		Message:     row.Message,
		Kind:        string(row.Kind),
		Metadata:    decodeJSON(row.Metadata),
		Read:        row.IsRead,
		Timestamp:   row.CreatedAt,
		ReadAt:      row.ReadAt,
	}
}
