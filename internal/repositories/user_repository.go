package repositories

import "bugboard/internal/models"

// UserRepository defines the interface for user data access.
// GetByID and GetByEmail return (nil, nil) when no row matches; callers
// decide whether that is an error.
type UserRepository interface {
	Create(user *models.User) error
	Update(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	ExistsByEmail(email string) (bool, error)
	GetAll() ([]models.User, error)
}
