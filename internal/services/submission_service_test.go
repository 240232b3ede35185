package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/saiakshat556/farm-data-bridge/internal/models"
	"github.com/saiakshat556/farm-data-bridge/internal/realtime"
	apperrors "github.com/saiakshat556/farm-data-bridge/pkg/errors"
)

func TestSubmissionServiceSubmitNotifiesEveryOfficer(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()
	farmer := env.register(t, "John Farmer", "farmer@example.com", models.RoleFarmer)
	first := env.register(t, "Jane Officer", "officer@example.com", models.RoleOfficer)
	second := env.register(t, "Omar Officer", "omar@example.com", models.RoleOfficer)
	env.register(t, "Admin User", "admin@example.com", models.RoleAdmin)

	submission, err := env.submissions.Submit(ctx, farmer.User.ID, wheatInput())
	require.NoError(t, err)
	require.Equal(t, models.StatusPending, submission.Status)
	require.Equal(t, farmer.User.ID, submission.OwnerID)
	require.Len(t, submission.ID, 26)
	require.Nil(t, submission.ReviewedAt)

	for _, officer := range []*AuthResult{first, second} {
		items, err := env.notifications.ListForRecipient(ctx, ListNotificationsInput{RecipientID: officer.User.ID})
		require.NoError(t, err)
		require.Len(t, items, 1)
		require.Equal(t, "New Crop Submission", items[0].Title)
		require.Equal(t, submission.ID, items[0].Metadata["submissionId"])
		require.Equal(t, []string{realtime.EventNotificationCreated, realtime.EventSubmissionCreated}, env.hub.events(officer.User.ID))
	}

	require.EqualValues(t, 2, countRows(t, env.db, &models.Notification{}, ""))
	require.Equal(t, []string{realtime.EventSubmissionCreated}, env.hub.events(farmer.User.ID))
}

func TestSubmissionServiceSubmitWithoutOfficers(t *testing.T) {
	env := newServiceEnv(t)
	farmer := env.register(t, "John Farmer", "farmer@example.com", models.RoleFarmer)

	submission, err := env.submissions.Submit(context.Background(), farmer.User.ID, wheatInput())
	require.NoError(t, err)
	require.Equal(t, models.StatusPending, submission.Status)
	require.Zero(t, countRows(t, env.db, &models.Notification{}, ""))
}

func TestSubmissionServiceSubmitUnknownOwner(t *testing.T) {
	env := newServiceEnv(t)
	env.register(t, "Jane Officer", "officer@example.com", models.RoleOfficer)

	_, err := env.submissions.Submit(context.Background(), "3f5d8f7e-0000-4000-8000-000000000000", wheatInput())
	require.ErrorIs(t, err, apperrors.ErrUnknownOwner)
	require.Zero(t, countRows(t, env.db, &models.Submission{}, ""))
	require.Zero(t, countRows(t, env.db, &models.Notification{}, ""))
	require.Empty(t, env.hub.messages)
}

func TestSubmissionServiceSubmitValidation(t *testing.T) {
	env := newServiceEnv(t)
	farmer := env.register(t, "John Farmer", "farmer@example.com", models.RoleFarmer)

	cases := map[string]func(*SubmitInput){
		"blank crop":        func(in *SubmitInput) { in.CropType = "   " },
		"zero quantity":     func(in *SubmitInput) { in.Quantity = 0 },
		"negative quantity": func(in *SubmitInput) { in.Quantity = -5 },
		"missing unit":      func(in *SubmitInput) { in.Unit = "" },
		"missing stage":     func(in *SubmitInput) { in.GrowthStage = "" },
		"missing planting":  func(in *SubmitInput) { in.PlantingDate = Date{} },
		"harvest before planting": func(in *SubmitInput) {
			harvest := NewDate(in.PlantingDate.AddDate(0, -1, 0))
			in.HarvestDate = &harvest
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			input := wheatInput()
			mutate(&input)

			_, err := env.submissions.Submit(context.Background(), farmer.User.ID, input)
			require.ErrorIs(t, err, apperrors.ErrBadRequest)
		})
	}
	require.Zero(t, countRows(t, env.db, &models.Submission{}, ""))
}

func TestSubmissionServiceReviewApproveAndReject(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()
	farmer := env.register(t, "John Farmer", "farmer@example.com", models.RoleFarmer)
	officer := env.register(t, "Jane Officer", "officer@example.com", models.RoleOfficer)

	approvedSub, err := env.submissions.Submit(ctx, farmer.User.ID, wheatInput())
	require.NoError(t, err)
	rejectedInput := wheatInput()
	rejectedInput.CropType = "Rice"
	rejectedSub, err := env.submissions.Submit(ctx, farmer.User.ID, rejectedInput)
	require.NoError(t, err)

	approved, err := env.submissions.Review(ctx, officer.User.ID, approvedSub.ID, ReviewInput{Decision: models.StatusApproved})
	require.NoError(t, err)
	require.Equal(t, models.StatusApproved, approved.Status)
	require.NotNil(t, approved.ReviewedAt)
	require.NotNil(t, approved.ReviewerID)
	require.Equal(t, officer.User.ID, *approved.ReviewerID)

	rejected, err := env.submissions.Review(ctx, officer.User.ID, rejectedSub.ID, ReviewInput{
		Decision: models.StatusRejected,
		Feedback: "  Samples were contaminated.  ",
	})
	require.NoError(t, err)
	require.Equal(t, models.StatusRejected, rejected.Status)
	require.Equal(t, "Samples were contaminated.", rejected.Feedback)

	items, err := env.notifications.ListForRecipient(ctx, ListNotificationsInput{RecipientID: farmer.User.ID})
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, "Crop Rejected", items[0].Title)
	require.Equal(t, "error", items[0].Kind)
	require.Equal(t, "Your Rice crop submission has been rejected. Samples were contaminated.", items[0].Message)
	require.Equal(t, "Crop Approved", items[1].Title)
	require.Equal(t, "success", items[1].Kind)
	require.Equal(t, "Your Wheat crop submission has been approved.", items[1].Message)

	stored, err := env.submissions.Get(ctx, approvedSub.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusApproved, stored.Status)
}

func TestSubmissionServiceReviewIsFinal(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()
	farmer := env.register(t, "John Farmer", "farmer@example.com", models.RoleFarmer)
	officer := env.register(t, "Jane Officer", "officer@example.com", models.RoleOfficer)

	submission, err := env.submissions.Submit(ctx, farmer.User.ID, wheatInput())
	require.NoError(t, err)

	_, err = env.submissions.Review(ctx, officer.User.ID, submission.ID, ReviewInput{Decision: models.StatusApproved})
	require.NoError(t, err)
	before := countRows(t, env.db, &models.Notification{}, "recipient_id = ?", farmer.User.ID)

	_, err = env.submissions.Review(ctx, officer.User.ID, submission.ID, ReviewInput{Decision: models.StatusRejected, Feedback: "changed my mind"})
	require.ErrorIs(t, err, apperrors.ErrAlreadyReviewed)

	stored, err := env.submissions.Get(ctx, submission.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusApproved, stored.Status)
	require.Empty(t, stored.Feedback)
	require.Equal(t, before, countRows(t, env.db, &models.Notification{}, "recipient_id = ?", farmer.User.ID))
}

func TestSubmissionServiceReviewErrors(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()
	farmer := env.register(t, "John Farmer", "farmer@example.com", models.RoleFarmer)
	officer := env.register(t, "Jane Officer", "officer@example.com", models.RoleOfficer)

	submission, err := env.submissions.Submit(ctx, farmer.User.ID, wheatInput())
	require.NoError(t, err)

	_, err = env.submissions.Review(ctx, officer.User.ID, "01HX0000000000000000000000", ReviewInput{Decision: models.StatusApproved})
	require.ErrorIs(t, err, apperrors.ErrSubmissionNotFound)

	for _, decision := range []models.SubmissionStatus{models.StatusPending, "", "maybe"} {
		_, err = env.submissions.Review(ctx, officer.User.ID, submission.ID, ReviewInput{Decision: decision})
		require.ErrorIs(t, err, apperrors.ErrInvalidDecision)
	}

	stored, err := env.submissions.Get(ctx, submission.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusPending, stored.Status)
}

func TestSubmissionServiceConcurrentReviewsHaveOneWinner(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()
	farmer := env.register(t, "John Farmer", "farmer@example.com", models.RoleFarmer)
	officer := env.register(t, "Jane Officer", "officer@example.com", models.RoleOfficer)
	admin := env.register(t, "Admin User", "admin@example.com", models.RoleAdmin)

	submission, err := env.submissions.Submit(ctx, farmer.User.ID, wheatInput())
	require.NoError(t, err)

	reviewers := map[string]models.SubmissionStatus{
		officer.User.ID: models.StatusApproved,
		admin.User.ID:   models.StatusRejected,
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for reviewerID, decision := range reviewers {
		wg.Add(1)
		go func(reviewerID string, decision models.SubmissionStatus) {
			defer wg.Done()
			_, err := env.submissions.Review(ctx, reviewerID, submission.ID, ReviewInput{Decision: decision})
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
		}(reviewerID, decision)
	}
	wg.Wait()

	var succeeded int
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		require.ErrorIs(t, err, apperrors.ErrAlreadyReviewed)
	}
	require.Equal(t, 1, succeeded)
	require.EqualValues(t, 1, countRows(t, env.db, &models.Notification{}, "recipient_id = ?", farmer.User.ID))
}

func TestSubmissionServiceListings(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()
	farmer := env.register(t, "John Farmer", "farmer@example.com", models.RoleFarmer)
	other := env.register(t, "Mary Farmer", "mary@example.com", models.RoleFarmer)
	officer := env.register(t, "Jane Officer", "officer@example.com", models.RoleOfficer)

	crops := []string{"Wheat", "Rice", "Maize", "Barley"}
	var created []*models.Submission
	for _, crop := range crops {
		input := wheatInput()
		input.CropType = crop
		submission, err := env.submissions.Submit(ctx, farmer.User.ID, input)
		require.NoError(t, err)
		created = append(created, submission)
	}
	_, err := env.submissions.Submit(ctx, other.User.ID, wheatInput())
	require.NoError(t, err)

	_, err = env.submissions.Review(ctx, officer.User.ID, created[0].ID, ReviewInput{Decision: models.StatusApproved})
	require.NoError(t, err)

	owned, err := env.submissions.ListByOwner(ctx, farmer.User.ID)
	require.NoError(t, err)
	require.Len(t, owned, 4)
	require.Equal(t, "Barley", owned[0].CropType)
	require.Equal(t, "Wheat", owned[3].CropType)

	recent, err := env.submissions.Recent(ctx, farmer.User.ID, 0)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	require.Equal(t, []string{"Barley", "Maize", "Rice"}, []string{recent[0].CropType, recent[1].CropType, recent[2].CropType})

	all, err := env.submissions.ListAll(ctx, SubmissionFilter{})
	require.NoError(t, err)
	require.Len(t, all, 5)

	pending, err := env.submissions.ListAll(ctx, SubmissionFilter{Status: models.StatusPending})
	require.NoError(t, err)
	require.Len(t, pending, 4)

	none, err := env.submissions.ListByOwner(ctx, officer.User.ID)
	require.NoError(t, err)
	require.Empty(t, none)

	_, err = env.submissions.Get(ctx, "01HX0000000000000000000000")
	require.ErrorIs(t, err, apperrors.ErrSubmissionNotFound)
}

func TestSubmissionServiceStats(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()
	farmer := env.register(t, "John Farmer", "farmer@example.com", models.RoleFarmer)
	other := env.register(t, "Mary Farmer", "mary@example.com", models.RoleFarmer)
	officer := env.register(t, "Jane Officer", "officer@example.com", models.RoleOfficer)

	empty, err := env.submissions.Stats(ctx, "")
	require.NoError(t, err)
	require.Equal(t, SubmissionStats{}, empty)

	var ids []string
	for i := 0; i < 4; i++ {
		submission, err := env.submissions.Submit(ctx, farmer.User.ID, wheatInput())
		require.NoError(t, err)
		ids = append(ids, submission.ID)
	}
	_, err = env.submissions.Submit(ctx, other.User.ID, wheatInput())
	require.NoError(t, err)

	_, err = env.submissions.Review(ctx, officer.User.ID, ids[0], ReviewInput{Decision: models.StatusApproved})
	require.NoError(t, err)
	_, err = env.submissions.Review(ctx, officer.User.ID, ids[1], ReviewInput{Decision: models.StatusApproved})
	require.NoError(t, err)
	_, err = env.submissions.Review(ctx, officer.User.ID, ids[2], ReviewInput{Decision: models.StatusRejected})
	require.NoError(t, err)

	all, err := env.submissions.Stats(ctx, "")
	require.NoError(t, err)
	require.Equal(t, SubmissionStats{Total: 5, Approved: 2, Rejected: 1, Pending: 2}, all)

	owned, err := env.submissions.Stats(ctx, farmer.User.ID)
	require.NoError(t, err)
	require.Equal(t, SubmissionStats{Total: 4, Approved: 2, Rejected: 1, Pending: 1}, owned)

	nobody, err := env.submissions.Stats(ctx, officer.User.ID)
	require.NoError(t, err)
	require.Equal(t, SubmissionStats{}, nobody)
}

func TestSubmissionServiceStatsWrapsDatabaseErrors(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	notifications, err := NewNotificationService(db, nil)
	require.NoError(t, err)
	svc, err := NewSubmissionService(db, notifications, nil)
	require.NoError(t, err)

	boom := errors.New("connection reset by peer")
	mock.ExpectQuery("SELECT status, COUNT\\(\\*\\) AS total FROM `submissions`").WillReturnError(boom)

	_, err = svc.Stats(context.Background(), "")
	require.ErrorIs(t, err, boom)
	require.ErrorContains(t, err, "submission service: stats")
	require.NoError(t, mock.ExpectationsWereMet())
}

// A farmer files wheat, an officer approves it, and both sides see the
// expected records.
func TestWheatSubmissionLifecycle(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()
	farmer := env.register(t, "John Farmer", "farmer@example.com", models.RoleFarmer)
	officer := env.register(t, "Jane Officer", "officer@example.com", models.RoleOfficer)

	var input SubmitInput
	require.NoError(t, input.PlantingDate.UnmarshalJSON([]byte(`"2023-03-15"`)))
	input.CropType = "Wheat"
	input.Quantity = 500
	input.Unit = "kg"
	input.GrowthStage = "Mature"

	submission, err := env.submissions.Submit(ctx, farmer.User.ID, input)
	require.NoError(t, err)
	require.Equal(t, models.StatusPending, submission.Status)
	require.True(t, submission.PlantingDate.Equal(time.Date(2023, time.March, 15, 0, 0, 0, 0, time.UTC)))

	officerInbox, err := env.notifications.ListForRecipient(ctx, ListNotificationsInput{RecipientID: officer.User.ID})
	require.NoError(t, err)
	require.Len(t, officerInbox, 1)
	require.Equal(t, "info", officerInbox[0].Kind)

	reviewed, err := env.submissions.Review(ctx, officer.User.ID, submission.ID, ReviewInput{Decision: models.StatusApproved})
	require.NoError(t, err)
	require.Equal(t, models.StatusApproved, reviewed.Status)

	farmerInbox, err := env.notifications.ListForRecipient(ctx, ListNotificationsInput{RecipientID: farmer.User.ID})
	require.NoError(t, err)
	require.Len(t, farmerInbox, 1)
	require.Equal(t, "success", farmerInbox[0].Kind)

	stats, err := env.submissions.Stats(ctx, farmer.User.ID)
	require.NoError(t, err)
	require.Equal(t, SubmissionStats{Total: 1, Approved: 1, Rejected: 0, Pending: 0}, stats)
}
