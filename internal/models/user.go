package models

import (
	"time"
)

// Role identifies what an identity may do in the system.
type Role string

const (
	RoleFarmer  Role = "farmer"
	RoleOfficer Role = "officer"
	RoleAdmin   Role = "admin"
)

// Roles lists every known role in display order.
var Roles = []Role{RoleFarmer, RoleOfficer, RoleAdmin}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleFarmer, RoleOfficer, RoleAdmin:
		return true
	}
	return false
}

// User is a registered identity. Emails are unique and matched exactly.
type User struct {
	BaseModel

	Name     string `gorm:"type:varchar(255);not null" json:"name"`
	Email    string `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Password string `gorm:"not null" json:"-"`
	Role     Role   `gorm:"type:varchar(16);not null;index" json:"role"`

	Sessions []Session `gorm:"foreignKey:UserID" json:"-"`

	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
}
