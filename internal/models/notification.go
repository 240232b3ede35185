package models

import (
	"time"

	"gorm.io/datatypes"
)

// NotificationKind drives how a notification is presented.
type NotificationKind string

const (
	KindInfo    NotificationKind = "info"
	KindSuccess NotificationKind = "success"
	KindWarning NotificationKind = "warning"
	KindError   NotificationKind = "error"
)

// Valid reports whether k is a known notification kind.
func (k NotificationKind) Valid() bool {
	switch k {
	case KindInfo, KindSuccess, KindWarning, KindError:
		return true
	}
	return false
}

// Notification is an in-app message for one recipient. CreatedAt is the
// notification timestamp.
type Notification struct {
	RecordModel

	RecipientID string           `gorm:"type:uuid;not null;index:idx_notifications_recipient_read" json:"recipientId"`
	Title       string           `gorm:"type:varchar(255);not null" json:"title"`
	Message     string           `gorm:"type:text" json:"message"`
	Kind        NotificationKind `gorm:"type:varchar(16);not null;default:'info'" json:"kind"`
	Metadata    datatypes.JSON   `json:"metadata,omitempty"`

	IsRead bool       `gorm:"default:false;index:idx_notifications_recipient_read" json:"read"`
	ReadAt *time.Time `json:"readAt,omitempty"`
}
