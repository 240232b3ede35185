package realtime

// Named realtime streams.
const (
	// StreamNotifications carries notification.created / read / read_all events
	// to the notification's recipient.
	StreamNotifications = "notifications"
	// StreamSubmissions carries submission.created / reviewed events to the
	// submission owner and to reviewers.
	StreamSubmissions = "submissions"
)

// Event names published on the streams above.
const (
	EventNotificationCreated = "notification.created"
	EventNotificationRead    = "notification.read"
	EventNotificationReadAll = "notification.read_all"
	EventSubmissionCreated   = "submission.created"
	EventSubmissionReviewed  = "submission.reviewed"
)
