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
	appValidator "github.com/saiakshat556/farm-data-bridge/pkg/validator"
)

// SubmitInput is the crop record a farmer files.
type SubmitInput struct {
	CropType     string  `json:"cropType" validate:"notblank,max=128"`
	Quantity     float64 `json:"quantity" validate:"gt=0"`
	Unit         string  `json:"unit" validate:"notblank,max=32"`
	GrowthStage  string  `json:"growthStage" validate:"notblank,max=64"`
	PlantingDate Date    `json:"plantingDate"`
	HarvestDate  *Date   `json:"harvestDate,omitempty"`
	Location     string  `json:"location,omitempty" validate:"max=255"`
}

// ReviewInput carries a reviewer's decision. Feedback is optional for both
// outcomes.
type ReviewInput struct {
	Decision models.SubmissionStatus `json:"decision" validate:"required"`
	Feedback string                  `json:"feedback,omitempty" validate:"max=2000"`
}

// SubmissionFilter narrows ListAll.
type SubmissionFilter struct {
	Status models.SubmissionStatus
}

// SubmissionStats aggregates submissions by status.
type SubmissionStats struct {
	Total    int64 `json:"total"`
	Approved int64 `json:"approved"`
	Rejected int64 `json:"rejected"`
	Pending  int64 `json:"pending"`
}

// SubmissionEventPayload is pushed on the submissions stream.
type SubmissionEventPayload struct {
	Submission *models.Submission `json:"submission"`
}

const (
	defaultRecentLimit = 3
	maxRecentLimit     = 50
)

// SubmissionService owns the submission lifecycle. Submitting and reviewing
// commit the record and its notifications in one transaction.
type SubmissionService struct {
	db       *gorm.DB
	notifier *NotificationService
	hub      Broadcaster
	now      func() time.Time
	log      *zap.Logger
}

// NewSubmissionService constructs a SubmissionService. hub may be nil.
func NewSubmissionService(db *gorm.DB, notifier *NotificationService, hub Broadcaster) (*SubmissionService, error) {
	if db == nil {
		return nil, errors.New("submission service: db is required")
	}
	if notifier == nil {
		return nil, errors.New("submission service: notification service is required")
	}
	return &SubmissionService{
		db:       db,
		notifier: notifier,
		hub:      hub,
		now:      time.Now,
		log:      logger.WithModule("submissions"),
	}, nil
}

// Submit records a pending submission for ownerID and notifies every officer
// registered at that moment.
func (s *SubmissionService) Submit(ctx context.Context, ownerID string, input SubmitInput) (*models.Submission, error) {
	ctx = ensureContext(ctx)

	input.CropType = strings.TrimSpace(input.CropType)
	input.Unit = strings.TrimSpace(input.Unit)
	input.GrowthStage = strings.TrimSpace(input.GrowthStage)
	input.Location = strings.TrimSpace(input.Location)
	if err := appValidator.ValidateStruct(input); err != nil {
		return nil, apperrors.NewBadRequest(appValidator.Describe(err))
	}
	if input.PlantingDate.IsZero() {
		return nil, apperrors.NewBadRequest("planting date is required")
	}
	if input.HarvestDate != nil && !input.HarvestDate.IsZero() && input.HarvestDate.Before(input.PlantingDate.Time) {
		return nil, apperrors.NewBadRequest("harvest date must not be before planting date")
	}

	now := s.now().UTC()
	submission := models.Submission{
		RecordModel:  models.RecordModel{CreatedAt: now, UpdatedAt: now},
		OwnerID:      strings.TrimSpace(ownerID),
		CropType:     input.CropType,
		Quantity:     input.Quantity,
		Unit:         input.Unit,
		GrowthStage:  input.GrowthStage,
		PlantingDate: input.PlantingDate.UTC(),
		HarvestDate:  harvestDate(input.HarvestDate),
		Location:     input.Location,
		Status:       models.StatusPending,
	}

	var (
		notifications []models.Notification
		officerIDs    []string
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var owners int64
		if err := tx.Model(&models.User{}).Where("id = ?", submission.OwnerID).Count(&owners).Error; err != nil {
			return fmt.Errorf("submission service: load owner: %w", err)
		}
		if owners == 0 {
			return apperrors.ErrUnknownOwner
		}

		if err := tx.Create(&submission).Error; err != nil {
			return fmt.Errorf("submission service: create submission: %w", err)
		}

		if err := tx.Model(&models.User{}).
			Where("role = ?", models.RoleOfficer).
			Order("id").
			Pluck("id", &officerIDs).Error; err != nil {
			return fmt.Errorf("submission service: list officers: %w", err)
		}

		rows, err := s.notifier.fanOutCreatedTx(tx, &submission, officerIDs, now)
		if err != nil {
			return err
		}
		notifications = rows
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.publishCreated(notifications)
	s.publish(realtime.EventSubmissionCreated, &submission, officerIDs)
	metrics.SubmissionEvents.WithLabelValues("submitted").Inc()
	s.log.Info("submission created",
		zap.String("submission_id", submission.ID),
		zap.String("owner_id", submission.OwnerID),
		zap.String("crop_type", submission.CropType),
		zap.Int("officers_notified", len(notifications)),
	)
	return &submission, nil
}

// Review moves a pending submission to approved or rejected and notifies its
// owner. reviewerID is recorded when non-empty.
func (s *SubmissionService) Review(ctx context.Context, reviewerID, submissionID string, input ReviewInput) (*models.Submission, error) {
	ctx = ensureContext(ctx)

	if !input.Decision.Terminal() {
		return nil, apperrors.ErrInvalidDecision
	}
	input.Feedback = strings.TrimSpace(input.Feedback)
	if err := appValidator.ValidateStruct(input); err != nil {
		return nil, apperrors.NewBadRequest(appValidator.Describe(err))
	}

	var (
		submission   models.Submission
		notification models.Notification
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Take(&submission, "id = ?", strings.TrimSpace(submissionID)).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrSubmissionNotFound
			}
			return fmt.Errorf("submission service: load submission: %w", err)
		}
		if submission.Status.Terminal() {
			return apperrors.ErrAlreadyReviewed
		}

		now := s.now().UTC()
		updates := map[string]any{
			"status":      input.Decision,
			"feedback":    input.Feedback,
			"reviewed_at": now,
			"updated_at":  now,
		}
		var reviewer *string
		if reviewerID = strings.TrimSpace(reviewerID); reviewerID != "" {
			reviewer = &reviewerID
			updates["reviewer_id"] = reviewerID
		}

		// The status guard makes concurrent reviews of one submission race on
		// this row; only the first writer sees RowsAffected == 1.
		result := tx.Model(&models.Submission{}).
			Where("id = ? AND status = ?", submission.ID, models.StatusPending).
			Updates(updates)
		if result.Error != nil {
			return fmt.Errorf("submission service: update submission: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return apperrors.ErrAlreadyReviewed
		}

		submission.Status = input.Decision
		submission.Feedback = input.Feedback
		submission.ReviewerID = reviewer
		submission.ReviewedAt = &now
		submission.UpdatedAt = now

		row, err := s.notifier.fanOutReviewTx(tx, &submission, now)
		if err != nil {
			return err
		}
		notification = row
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.publishCreated([]models.Notification{notification})
	s.publish(realtime.EventSubmissionReviewed, &submission, nil)
	metrics.SubmissionEvents.WithLabelValues(string(submission.Status)).Inc()
	s.log.Info("submission reviewed",
		zap.String("submission_id", submission.ID),
		zap.String("decision", string(submission.Status)),
		zap.String("reviewer_id", reviewerID),
	)
	return &submission, nil
}

// Get loads one submission.
func (s *SubmissionService) Get(ctx context.Context, id string) (*models.Submission, error) {
	var submission models.Submission
	err := s.db.WithContext(ensureContext(ctx)).Take(&submission, "id = ?", strings.TrimSpace(id)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrSubmissionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("submission service: get submission: %w", err)
	}
	return &submission, nil
}

// ListByOwner returns every submission filed by ownerID, newest first.
func (s *SubmissionService) ListByOwner(ctx context.Context, ownerID string) ([]models.Submission, error) {
	var rows []models.Submission
	if err := s.newest(s.db.WithContext(ensureContext(ctx))).
		Where("owner_id = ?", strings.TrimSpace(ownerID)).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("submission service: list by owner: %w", err)
	}
	return rows, nil
}

// ListAll returns every submission, newest first.
func (s *SubmissionService) ListAll(ctx context.Context, filter SubmissionFilter) ([]models.Submission, error) {
	query := s.newest(s.db.WithContext(ensureContext(ctx)))
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var rows []models.Submission
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("submission service: list submissions: %w", err)
	}
	return rows, nil
}

// Recent returns the newest submissions of ownerID, three by default.
func (s *SubmissionService) Recent(ctx context.Context, ownerID string, limit int) ([]models.Submission, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	limit = clampLimit(limit, maxRecentLimit)

	var rows []models.Submission
	if err := s.newest(s.db.WithContext(ensureContext(ctx))).
		Where("owner_id = ?", strings.TrimSpace(ownerID)).
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("submission service: recent submissions: %w", err)
	}
	return rows, nil
}

// Stats counts submissions by status. An empty ownerID covers every
// submission; an owner without submissions yields zeros.
func (s *SubmissionService) Stats(ctx context.Context, ownerID string) (SubmissionStats, error) {
	query := s.db.WithContext(ensureContext(ctx)).
		Model(&models.Submission{}).
		Select("status, COUNT(*) AS total").
		Group("status")
	if ownerID = strings.TrimSpace(ownerID); ownerID != "" {
		query = query.Where("owner_id = ?", ownerID)
	}

	var rows []struct {
		Status models.SubmissionStatus
		Total  int64
	}
	if err := query.Scan(&rows).Error; err != nil {
		return SubmissionStats{}, fmt.Errorf("submission service: stats: %w", err)
	}

	var stats SubmissionStats
	for _, row := range rows {
		stats.Total += row.Total
		switch row.Status {
		case models.StatusApproved:
			stats.Approved = row.Total
		case models.StatusRejected:
			stats.Rejected = row.Total
		case models.StatusPending:
			stats.Pending = row.Total
		}
	}
	return stats, nil
}

func (s *SubmissionService) newest(query *gorm.DB) *gorm.DB {
	return query.Order("created_at DESC").Order("id DESC")
}

// publish notifies the owner and the given reviewers on the submissions stream.
func (s *SubmissionService) publish(event string, submission *models.Submission, reviewerIDs []string) {
	if s.hub == nil {
		return
	}
	snapshot := *submission
	message := realtime.Message{
		Stream: realtime.StreamSubmissions,
		Event:  event,
		Data:   &SubmissionEventPayload{Submission: &snapshot},
	}
	for _, userID := range normaliseIDs(append([]string{submission.OwnerID}, reviewerIDs...)) {
		s.hub.BroadcastToUser(realtime.StreamSubmissions, userID, message)
	}
}

func harvestDate(d *Date) *time.Time {
	if d == nil || d.IsZero() {
		return nil
	}
	utc := d.UTC()
	return &utc
}
