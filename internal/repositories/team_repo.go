package repositories

import "bugboard/internal/models"

// TeamRepository defines the interface for team data access. GetByID returns
// (nil, nil) when no row matches and preloads the member set.
type TeamRepository interface {
	Create(team *models.Team) error
	Update(team *models.Team) error
	GetByID(id uint) (*models.Team, error)
	ExistsByName(name string) (bool, error)
	GetAll() ([]models.Team, error)
	Delete(id uint) error
	AddMember(teamID, userID uint) error
	RemoveMember(teamID, userID uint) error
	GetMembers(teamID uint) ([]models.User, error)
	GetByMemberID(userID uint) ([]models.Team, error)
}
