package models

import (
	"time"
)

// Session backs an issued token pair. A session is live while it is neither
// revoked nor past ExpiresAt.
type Session struct {
	BaseModel

	UserID       string     `gorm:"type:uuid;not null;index" json:"userId"`
	User         *User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	RefreshToken string     `gorm:"uniqueIndex;not null" json:"-"`
	IPAddress    string     `json:"ipAddress"`
	UserAgent    string     `json:"userAgent"`
	ExpiresAt    time.Time  `gorm:"index" json:"expiresAt"`
	LastUsedAt   time.Time  `json:"lastUsedAt"`
	RevokedAt    *time.Time `json:"revokedAt,omitempty"`
}

// Active reports whether the session can still authenticate requests at now.
func (s *Session) Active(now time.Time) bool {
	return s != nil && s.RevokedAt == nil && now.Before(s.ExpiresAt)
}
