package services

import (
	"errors"
	"strings"
	"time"

	"bugboard/internal/apperrors"
	"bugboard/internal/models"
	"bugboard/internal/repositories"
)

// TeamPatch is the partial-update structure for teams. Nil means no change.
type TeamPatch struct {
	Description *string `json:"description"`
	Active      *bool   `json:"active"`
}

// TeamService owns group membership and issue-to-team assignment. Same CRUD
// shape as the user directory, admin-gated throughout.
type TeamService struct {
	teamRepo  repositories.TeamRepository
	userRepo  repositories.UserRepository
	issueRepo repositories.IssueRepository
}

// NewTeamService creates a new TeamService.
func NewTeamService(teamRepo repositories.TeamRepository, userRepo repositories.UserRepository, issueRepo repositories.IssueRepository) *TeamService {
	return &TeamService{
		teamRepo:  teamRepo,
		userRepo:  userRepo,
		issueRepo: issueRepo,
	}
}

// Create registers a new team with a globally unique name. Admin only.
func (s *TeamService) Create(actor *models.User, name, description string) (*models.Team, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.Forbidden("only an administrator can create teams")
	}
	if strings.TrimSpace(name) == "" {
		return nil, apperrors.Validation("team name is required")
	}

	exists, err := s.teamRepo.ExistsByName(name)
	if err != nil {
		return nil, apperrors.Internal("failed to check team name uniqueness", err)
	}
	if exists {
		return nil, apperrors.Conflict("a team with this name already exists")
	}

	now := time.Now()
	team := &models.Team{
		Name:        name,
		Description: description,
		Active:      true,
		CreatorID:   actor.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.teamRepo.Create(team); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, apperrors.Conflict("a team with this name already exists")
		}
		return nil, apperrors.Internal("failed to create team", err)
	}
	return team, nil
}

// Get returns a single team with its members.
func (s *TeamService) Get(id uint) (*models.Team, error) {
	return s.getTeam(id)
}

// List returns all teams.
func (s *TeamService) List() ([]models.Team, error) {
	teams, err := s.teamRepo.GetAll()
	if err != nil {
		return nil, apperrors.Internal("failed to list teams", err)
	}
	return teams, nil
}

// Search returns teams whose name contains the query, case-insensitive. An
// empty query matches every team.
func (s *TeamService) Search(query string) ([]models.Team, error) {
	teams, err := s.teamRepo.GetAll()
	if err != nil {
		return nil, apperrors.Internal("failed to list teams", err)
	}
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return teams, nil
	}
	matched := make([]models.Team, 0, len(teams))
	for _, t := range teams {
		if strings.Contains(strings.ToLower(t.Name), needle) {
			matched = append(matched, t)
		}
	}
	return matched, nil
}

// TeamStats aggregates team counts.
type TeamStats struct {
	Total    int `json:"total"`
	Active   int `json:"active"`
	Inactive int `json:"inactive"`
}

// Stats counts teams by active flag.
func (s *TeamService) Stats() (*TeamStats, error) {
	teams, err := s.teamRepo.GetAll()
	if err != nil {
		return nil, apperrors.Internal("failed to list teams", err)
	}
	stats := &TeamStats{Total: len(teams)}
	for _, t := range teams {
		if t.Active {
			stats.Active++
		}
	}
	stats.Inactive = stats.Total - stats.Active
	return stats, nil
}

// TeamsForUser returns the teams a user is a member of.
func (s *TeamService) TeamsForUser(userID uint) ([]models.Team, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, apperrors.Internal("failed to look up user", err)
	}
	if user == nil {
		return nil, apperrors.NotFound("user with id %d not found", userID)
	}
	teams, err := s.teamRepo.GetByMemberID(userID)
	if err != nil {
		return nil, apperrors.Internal("failed to list teams for user", err)
	}
	return teams, nil
}

// Update applies a partial mutation. Admin only. The name is immutable.
func (s *TeamService) Update(actor *models.User, id uint, patch TeamPatch) (*models.Team, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.Forbidden("only an administrator can modify teams")
	}
	team, err := s.getTeam(id)
	if err != nil {
		return nil, err
	}

	mutated := false
	if patch.Description != nil && *patch.Description != team.Description {
		team.Description = *patch.Description
		mutated = true
	}
	if patch.Active != nil && *patch.Active != team.Active {
		team.Active = *patch.Active
		mutated = true
	}
	if mutated {
		team.UpdatedAt = time.Now()
		if err := s.teamRepo.Update(team); err != nil {
			return nil, apperrors.Internal("failed to update team", err)
		}
	}
	return team, nil
}

// Delete removes a team; its issues survive with the team reference cleared.
// Admin only.
func (s *TeamService) Delete(actor *models.User, id uint) error {
	if !actor.IsAdmin() {
		return apperrors.Forbidden("only an administrator can delete teams")
	}
	if _, err := s.getTeam(id); err != nil {
		return err
	}
	if err := s.teamRepo.Delete(id); err != nil {
		return apperrors.Internal("failed to delete team", err)
	}
	return nil
}

// AddMember places a user in the team. Admin only; adding an existing member
// is a no-op.
func (s *TeamService) AddMember(actor *models.User, teamID, userID uint) ([]models.User, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.Forbidden("only an administrator can manage team membership")
	}
	if _, err := s.getTeam(teamID); err != nil {
		return nil, err
	}
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, apperrors.Internal("failed to look up user", err)
	}
	if user == nil {
		return nil, apperrors.NotFound("user with id %d not found", userID)
	}

	if err := s.teamRepo.AddMember(teamID, userID); err != nil {
		return nil, apperrors.Internal("failed to add team member", err)
	}
	return s.Members(teamID)
}

// RemoveMember drops a user from the team. Admin only; removing a non-member
// is a no-op.
func (s *TeamService) RemoveMember(actor *models.User, teamID, userID uint) ([]models.User, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.Forbidden("only an administrator can manage team membership")
	}
	if _, err := s.getTeam(teamID); err != nil {
		return nil, err
	}
	if err := s.teamRepo.RemoveMember(teamID, userID); err != nil {
		return nil, apperrors.Internal("failed to remove team member", err)
	}
	return s.Members(teamID)
}

// Members returns the member set of a team.
func (s *TeamService) Members(teamID uint) ([]models.User, error) {
	users, err := s.teamRepo.GetMembers(teamID)
	if err != nil {
		return nil, apperrors.Internal("failed to list team members", err)
	}
	return users, nil
}

// AssignIssue binds an issue to the team. Admin only.
func (s *TeamService) AssignIssue(actor *models.User, teamID, issueID uint) (*models.Issue, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.Forbidden("only an administrator can assign issues to teams")
	}
	team, err := s.getTeam(teamID)
	if err != nil {
		return nil, err
	}
	issue, err := s.issueRepo.GetByID(issueID)
	if err != nil {
		return nil, apperrors.Internal("failed to look up issue", err)
	}
	if issue == nil {
		return nil, apperrors.NotFound("issue with id %d not found", issueID)
	}

	issue.TeamID = &team.ID
	issue.UpdatedAt = time.Now()
	if err := s.issueRepo.Update(issue); err != nil {
		return nil, apperrors.Internal("failed to assign issue to team", err)
	}
	return issue, nil
}

func (s *TeamService) getTeam(id uint) (*models.Team, error) {
	team, err := s.teamRepo.GetByID(id)
	if err != nil {
		return nil, apperrors.Internal("failed to look up team", err)
	}
	if team == nil {
		return nil, apperrors.NotFound("team with id %d not found", id)
	}
	return team, nil
}
