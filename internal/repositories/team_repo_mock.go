package repositories

import (
	"fmt"
	"sort"
	"sync"

	"bugboard/internal/models"
)

// MockTeamRepository is an in-memory implementation of TeamRepository.
type MockTeamRepository struct {
	teams   map[uint]models.Team
	members map[uint][]models.User
	nextID  uint
	mu      sync.RWMutex
}

// NewMockTeamRepository creates a new instance of MockTeamRepository.
func NewMockTeamRepository() *MockTeamRepository {
	return &MockTeamRepository{
		teams:   make(map[uint]models.Team),
		members: make(map[uint][]models.User),
		nextID:  1,
	}
}

// Create adds a new team, assigning an id if none is set.
func (r *MockTeamRepository) Create(team *models.Team) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, t := range r.teams {
		if t.Name == team.Name {
			return fmt.Errorf("team with name %q already exists: %w", team.Name, ErrDuplicate)
		}
	}
	if team.ID == 0 {
		team.ID = r.nextID
		r.nextID++
	}
	r.teams[team.ID] = *team
	return nil
}

// Update replaces an existing team's scalar fields.
func (r *MockTeamRepository) Update(team *models.Team) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.teams[team.ID]; !ok {
		return fmt.Errorf("team with ID %d not found for update", team.ID)
	}
	stored := *team
	stored.Members = nil
	r.teams[team.ID] = stored
	return nil
}

// GetByID returns a team with its member set, or (nil, nil) if absent.
func (r *MockTeamRepository) GetByID(id uint) (*models.Team, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	team, ok := r.teams[id]
	if !ok {
		return nil, nil
	}
	team.Members = append([]models.User(nil), r.members[id]...)
	return &team, nil
}

// ExistsByName reports whether any team has the given name.
func (r *MockTeamRepository) ExistsByName(name string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, t := range r.teams {
		if t.Name == name {
			return true, nil
		}
	}
	return false, nil
}

// GetAll returns all teams ordered by id.
func (r *MockTeamRepository) GetAll() ([]models.Team, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	teams := make([]models.Team, 0, len(r.teams))
	for _, t := range r.teams {
		teams = append(teams, t)
	}
	sort.Slice(teams, func(i, j int) bool { return teams[i].ID < teams[j].ID })
	return teams, nil
}

// Delete removes a team and its membership rows.
func (r *MockTeamRepository) Delete(id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.teams[id]; !ok {
		return fmt.Errorf("team with ID %d not found for deletion", id)
	}
	delete(r.teams, id)
	delete(r.members, id)
	return nil
}

// AddMember places a user in the member set; adding twice is a no-op.
func (r *MockTeamRepository) AddMember(teamID, userID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.teams[teamID]; !ok {
		return fmt.Errorf("team with ID %d not found", teamID)
	}
	for _, u := range r.members[teamID] {
		if u.ID == userID {
			return nil
		}
	}
	r.members[teamID] = append(r.members[teamID], models.User{ID: userID})
	return nil
}

// RemoveMember drops a user from the member set; removing a non-member is a
// no-op.
func (r *MockTeamRepository) RemoveMember(teamID, userID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.members[teamID][:0]
	for _, u := range r.members[teamID] {
		if u.ID != userID {
			kept = append(kept, u)
		}
	}
	r.members[teamID] = kept
	return nil
}

// GetByMemberID returns the teams a user belongs to, ordered by id.
func (r *MockTeamRepository) GetByMemberID(userID uint) ([]models.Team, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var teams []models.Team
	for id, members := range r.members {
		for _, u := range members {
			if u.ID == userID {
				teams = append(teams, r.teams[id])
				break
			}
		}
	}
	sort.Slice(teams, func(i, j int) bool { return teams[i].ID < teams[j].ID })
	return teams, nil
}

// GetMembers returns the member set of a team.
func (r *MockTeamRepository) GetMembers(teamID uint) ([]models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]models.User(nil), r.members[teamID]...), nil
}
