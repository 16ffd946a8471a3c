package repository

import (
	"github.com/FitLifeApp/FitLife/app/models"
)

// UserRepository defines the interface for member-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByUUID(uuid string) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	Update(user *models.User) error
	Count() (int64, error)
}

// Repositories bundles all repository instances
type Repositories struct {
	User UserRepository
}
