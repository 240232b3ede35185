package permissions

// Permission ids are "<resource>.<action>".
const (
	SubmissionSubmit   = "submission.submit"
	SubmissionView     = "submission.view"
	SubmissionReview   = "submission.review"
	NotificationView   = "notification.view"
	NotificationUpdate = "notification.update"
	StatsView          = "stats.view"
	IdentityView       = "identity.view"
)

func init() {
	perms := []*Permission{
		{
			ID:          SubmissionSubmit,
			Module:      "submissions",
			Description: "File new crop submissions",
		},
		{
			ID:          SubmissionView,
			Module:      "submissions",
			Description: "View crop submissions",
		},
		{
			ID:          SubmissionReview,
			Module:      "submissions",
			DependsOn:   []string{SubmissionView},
			Description: "Approve or reject pending submissions",
		},
		{
			ID:          NotificationView,
			Module:      "notifications",
			Description: "View notifications",
		},
		{
			ID:          NotificationUpdate,
			Module:      "notifications",
			DependsOn:   []string{NotificationView},
			Description: "Mark notifications as read",
		},
		{
			ID:          StatsView,
			Module:      "stats",
			Description: "View submission statistics",
		},
		{
			ID:          IdentityView,
			Module:      "identity",
			Description: "View registered identities",
		},
	}

	for _, perm := range perms {
		if err := Register(perm); err != nil {
			panic(err)
		}
	}
}
