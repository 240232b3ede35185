package models

import (
	"time"
)

// SubmissionStatus is the review state of a crop submission.
type SubmissionStatus string

const (
	StatusPending  SubmissionStatus = "pending"
	StatusApproved SubmissionStatus = "approved"
	StatusRejected SubmissionStatus = "rejected"
)

// Terminal reports whether no further transition is allowed from s.
func (s SubmissionStatus) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// Submission is a crop record filed by a farmer and decided by a reviewer.
type Submission struct {
	RecordModel

	OwnerID      string           `gorm:"type:uuid;not null;index" json:"ownerId"`
	Owner        *User            `gorm:"foreignKey:OwnerID" json:"-"`
	CropType     string           `gorm:"type:varchar(128);not null" json:"cropType"`
	Quantity     float64          `gorm:"not null" json:"quantity"`
	Unit         string           `gorm:"type:varchar(32);not null" json:"unit"`
	GrowthStage  string           `gorm:"type:varchar(64);not null" json:"growthStage"`
	PlantingDate time.Time        `gorm:"not null" json:"plantingDate"`
	HarvestDate  *time.Time       `json:"harvestDate,omitempty"`
	Location     string           `gorm:"type:varchar(255)" json:"location,omitempty"`
	Status       SubmissionStatus `gorm:"type:varchar(16);not null;default:'pending';index" json:"status"`
	Feedback     string           `gorm:"type:text" json:"feedback,omitempty"`
	ReviewerID   *string          `gorm:"type:uuid;index" json:"reviewerId,omitempty"`
	ReviewedAt   *time.Time       `json:"reviewedAt,omitempty"`
}
