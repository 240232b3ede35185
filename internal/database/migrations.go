package database

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/saiakshat556/farm-data-bridge/internal/models"
	"github.com/saiakshat556/farm-data-bridge/pkg/crypto"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Session{},
		&models.Submission{},
		&models.Notification{},
	)
}

// SeedOptions selects which fixtures SeedData installs.
type SeedOptions struct {
	DemoUsers    bool
	DemoPassword string
	PasswordCost int
}

// DemoUser describes one of the bundled demo identities.
type DemoUser struct {
	Name  string
	Email string
	Role  models.Role
}

// DemoUsers are the identities installed when demo seeding is enabled.
var DemoUsers = []DemoUser{
	{Name: "John Farmer", Email: "farmer@example.com", Role: models.RoleFarmer},
	{Name: "Jane Officer", Email: "officer@example.com", Role: models.RoleOfficer},
	{Name: "Admin User", Email: "admin@example.com", Role: models.RoleAdmin},
}

// DefaultDemoPassword is used for demo identities when no password is configured.
const DefaultDemoPassword = "password123"

// SeedData installs fixtures selected by opts. It is safe to run repeatedly.
func SeedData(db *gorm.DB, opts SeedOptions) error {
	if !opts.DemoUsers {
		return nil
	}

	password := opts.DemoPassword
	if password == "" {
		password = DefaultDemoPassword
	}
	hash, err := crypto.HashPasswordWithCost(password, opts.PasswordCost)
	if err != nil {
		return fmt.Errorf("hash demo password: %w", err)
	}

	now := time.Now().UTC()
	for _, demo := range DemoUsers {
		user := models.User{
			BaseModel: models.BaseModel{CreatedAt: now, UpdatedAt: now},
			Name:      demo.Name,
			Email:     demo.Email,
			Password:  hash,
			Role:      demo.Role,
		}
		if err := db.Where(models.User{Email: demo.Email}).Attrs(user).FirstOrCreate(&models.User{}).Error; err != nil {
			return fmt.Errorf("seed %s: %w", demo.Email, err)
		}
	}
	return nil
}
