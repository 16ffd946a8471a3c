package testutil

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/FitLifeApp/FitLife/app/models"
)

// SetupTestDB opens an in-memory SQLite database migrated with all models.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to connect test database: %v", err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.MembershipAccount{},
		&models.PaymentLedgerEntry{},
		&models.BillingWebhookEvent{},
	)
	if err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	return db
}

// CreateTestUser inserts a member with a hashed password and returns it.
func CreateTestUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	user, err := models.CreateUser("Test Member", email, "sup3r-secret")
	if err != nil {
		t.Fatalf("Failed to build test user: %v", err)
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to insert test user: %v", err)
	}

	return user
}

// CleanupTestDB closes the underlying connection.
func CleanupTestDB(t *testing.T, db *gorm.DB) {
	t.Helper()

	sqlDB, err := db.DB()
	if err != nil {
		t.Logf("Warning: Failed to get underlying DB: %v", err)
		return
	}
	if err := sqlDB.Close(); err != nil {
		t.Logf("Warning: Failed to close test database: %v", err)
	}
}
