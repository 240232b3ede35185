package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/saiakshat556/farm-data-bridge/pkg/ids"
)

// BaseModel provides shared fields for identity-scoped models keyed by UUID.
type BaseModel struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BeforeCreate ensures UUID identifiers are generated automatically.
func (m *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// RecordModel is the base for append-only records (submissions, notifications)
// whose ids must sort in creation order.
type RecordModel struct {
	ID        string    `gorm:"primaryKey;type:varchar(26)" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BeforeCreate assigns a ULID when the caller did not provide one.
func (m *RecordModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		if m.CreatedAt.IsZero() {
			m.ID = ids.New()
		} else {
			m.ID = ids.NewAt(m.CreatedAt)
		}
	}
	return nil
}
