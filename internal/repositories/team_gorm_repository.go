package repositories

import (
	"errors"
	"fmt"

	"bugboard/internal/models"

	"gorm.io/gorm"
)

// GORMTeamRepository is a GORM implementation of TeamRepository.
type GORMTeamRepository struct {
	db *gorm.DB
}

// NewGORMTeamRepository creates a new instance of GORMTeamRepository.
func NewGORMTeamRepository(db *gorm.DB) *GORMTeamRepository {
	return &GORMTeamRepository{db: db}
}

// Create inserts a new team. The unique index on name is the authoritative
// uniqueness guard.
func (r *GORMTeamRepository) Create(team *models.Team) error {
	if err := r.db.Create(team).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("team with name %q already exists: %w", team.Name, ErrDuplicate)
		}
		return fmt.Errorf("failed to create team: %w", err)
	}
	return nil
}

// Update saves all scalar fields of an existing team.
func (r *GORMTeamRepository) Update(team *models.Team) error {
	res := r.db.Omit("Members", "Issues").Save(team)
	if res.Error != nil {
		return fmt.Errorf("failed to update team: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("team with ID %d not found for update", team.ID)
	}
	return nil
}

// GetByID retrieves a team with its members, or (nil, nil) if absent.
func (r *GORMTeamRepository) GetByID(id uint) (*models.Team, error) {
	var team models.Team
	if err := r.db.Preload("Members").First(&team, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get team by ID %d: %w", id, err)
	}
	return &team, nil
}

// ExistsByName reports whether a team with the given name exists.
func (r *GORMTeamRepository) ExistsByName(name string) (bool, error) {
	var count int64
	if err := r.db.Model(&models.Team{}).Where("name = ?", name).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check team name existence: %w", err)
	}
	return count > 0, nil
}

// GetAll retrieves all teams ordered by id.
func (r *GORMTeamRepository) GetAll() ([]models.Team, error) {
	var teams []models.Team
	if err := r.db.Order("id").Find(&teams).Error; err != nil {
		return nil, fmt.Errorf("failed to get all teams: %w", err)
	}
	return teams, nil
}

// Delete removes a team and its membership rows; owned issues keep existing
// with their team reference cleared.
func (r *GORMTeamRepository) Delete(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Issue{}).Where("team_id = ?", id).Update("team_id", nil).Error; err != nil {
			return fmt.Errorf("failed to detach issues from team %d: %w", id, err)
		}
		if err := tx.Exec("DELETE FROM team_members WHERE team_id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to delete memberships for team %d: %w", id, err)
		}
		res := tx.Delete(&models.Team{}, "id = ?", id)
		if res.Error != nil {
			return fmt.Errorf("failed to delete team %d: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("team with ID %d not found for deletion", id)
		}
		return nil
	})
}

// AddMember places a user in the team's member set; adding twice is a no-op
// upsert.
func (r *GORMTeamRepository) AddMember(teamID, userID uint) error {
	team := models.Team{ID: teamID}
	user := models.User{ID: userID}
	if err := r.db.Model(&team).Association("Members").Append(&user); err != nil {
		return fmt.Errorf("failed to add user %d to team %d: %w", userID, teamID, err)
	}
	return nil
}

// RemoveMember drops a user from the team's member set; removing a
// non-member is a no-op.
func (r *GORMTeamRepository) RemoveMember(teamID, userID uint) error {
	team := models.Team{ID: teamID}
	user := models.User{ID: userID}
	if err := r.db.Model(&team).Association("Members").Delete(&user); err != nil {
		return fmt.Errorf("failed to remove user %d from team %d: %w", userID, teamID, err)
	}
	return nil
}

// GetByMemberID returns the teams a user belongs to, ordered by id.
func (r *GORMTeamRepository) GetByMemberID(userID uint) ([]models.Team, error) {
	var teams []models.Team
	err := r.db.
		Joins("JOIN team_members ON team_members.team_id = teams.id").
		Where("team_members.user_id = ?", userID).
		Order("teams.id").
		Find(&teams).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get teams for user %d: %w", userID, err)
	}
	return teams, nil
}

// GetMembers returns the users belonging to a team.
func (r *GORMTeamRepository) GetMembers(teamID uint) ([]models.User, error) {
	team := models.Team{ID: teamID}
	var users []models.User
	if err := r.db.Model(&team).Association("Members").Find(&users); err != nil {
		return nil, fmt.Errorf("failed to get members of team %d: %w", teamID, err)
	}
	return users, nil
}
