package repositories

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"bugboard/internal/models"
)

// MockIssueRepository is an in-memory implementation of IssueRepository.
type MockIssueRepository struct {
	issues    map[uint]models.Issue
	assignees map[uint][]models.User
	nextID    uint
	mu        sync.RWMutex
}

// NewMockIssueRepository creates a new instance of MockIssueRepository.
func NewMockIssueRepository() *MockIssueRepository {
	return &MockIssueRepository{
		issues:    make(map[uint]models.Issue),
		assignees: make(map[uint][]models.User),
		nextID:    1,
	}
}

// Create adds a new issue, assigning an id if none is set.
func (r *MockIssueRepository) Create(issue *models.Issue) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, i := range r.issues {
		if i.Title == issue.Title {
			return fmt.Errorf("issue with title %q already exists: %w", issue.Title, ErrDuplicate)
		}
	}
	if issue.ID == 0 {
		issue.ID = r.nextID
		r.nextID++
	} else if issue.ID >= r.nextID {
		r.nextID = issue.ID + 1
	}
	r.issues[issue.ID] = *issue
	return nil
}

// Update replaces an existing issue's scalar fields.
func (r *MockIssueRepository) Update(issue *models.Issue) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.issues[issue.ID]; !ok {
		return fmt.Errorf("issue with ID %d not found for update", issue.ID)
	}
	for _, i := range r.issues {
		if i.ID != issue.ID && i.Title == issue.Title {
			return fmt.Errorf("issue with title %q already exists: %w", issue.Title, ErrDuplicate)
		}
	}
	stored := *issue
	stored.Assignees = nil
	r.issues[issue.ID] = stored
	return nil
}

// GetByID returns an issue with its assignee set, or (nil, nil) if absent.
func (r *MockIssueRepository) GetByID(id uint) (*models.Issue, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	issue, ok := r.issues[id]
	if !ok {
		return nil, nil
	}
	issue.Assignees = append([]models.User(nil), r.assignees[id]...)
	return &issue, nil
}

// ExistsByTitle reports whether any issue has the given title.
func (r *MockIssueRepository) ExistsByTitle(title string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, i := range r.issues {
		if i.Title == title {
			return true, nil
		}
	}
	return false, nil
}

// List returns issues matching the filter, sorted per SortBy.
func (r *MockIssueRepository) List(filter IssueFilter) ([]models.Issue, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	issues := make([]models.Issue, 0, len(r.issues))
	for _, i := range r.issues {
		if filter.Archived != nil && i.Archived != *filter.Archived {
			continue
		}
		if filter.Status != nil && i.Status != *filter.Status {
			continue
		}
		if filter.Priority != nil && i.Priority != *filter.Priority {
			continue
		}
		if filter.Type != nil && i.Type != *filter.Type {
			continue
		}
		if filter.TitleSearch != "" &&
			!strings.Contains(strings.ToLower(i.Title), strings.ToLower(filter.TitleSearch)) {
			continue
		}
		issues = append(issues, i)
	}

	switch filter.SortBy {
	case SortOldest:
		sort.Slice(issues, func(a, b int) bool { return issues[a].CreatedAt.Before(issues[b].CreatedAt) })
	case SortTitleAZ:
		sort.Slice(issues, func(a, b int) bool {
			return strings.ToLower(issues[a].Title) < strings.ToLower(issues[b].Title)
		})
	case SortTitleZA:
		sort.Slice(issues, func(a, b int) bool {
			return strings.ToLower(issues[a].Title) > strings.ToLower(issues[b].Title)
		})
	case SortPriorityHigh:
		sort.Slice(issues, func(a, b int) bool { return issues[a].Priority.Rank() > issues[b].Priority.Rank() })
	case SortPriorityLow:
		sort.Slice(issues, func(a, b int) bool { return issues[a].Priority.Rank() < issues[b].Priority.Rank() })
	default:
		sort.Slice(issues, func(a, b int) bool { return issues[a].CreatedAt.After(issues[b].CreatedAt) })
	}
	return issues, nil
}

// Delete removes an issue and its assignment rows. Attachment metadata is
// owned by the attachment repository in the mock setup.
func (r *MockIssueRepository) Delete(id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.issues[id]; !ok {
		return fmt.Errorf("issue with ID %d not found for deletion", id)
	}
	delete(r.issues, id)
	delete(r.assignees, id)
	return nil
}

// AddAssignee places a user in the assignee set; adding twice is a no-op.
func (r *MockIssueRepository) AddAssignee(issueID, userID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.issues[issueID]; !ok {
		return fmt.Errorf("issue with ID %d not found", issueID)
	}
	for _, u := range r.assignees[issueID] {
		if u.ID == userID {
			return nil
		}
	}
	r.assignees[issueID] = append(r.assignees[issueID], models.User{ID: userID})
	return nil
}

// RemoveAssignee drops a user from the assignee set; removing a non-member
// is a no-op.
func (r *MockIssueRepository) RemoveAssignee(issueID, userID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.assignees[issueID][:0]
	for _, u := range r.assignees[issueID] {
		if u.ID != userID {
			kept = append(kept, u)
		}
	}
	r.assignees[issueID] = kept
	return nil
}

// GetAssignees returns the assignee set of an issue.
func (r *MockIssueRepository) GetAssignees(issueID uint) ([]models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]models.User(nil), r.assignees[issueID]...), nil
}

// Counts aggregates issue statistics over the in-memory set.
func (r *MockIssueRepository) Counts() (*IssueCounts, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := &IssueCounts{}
	for _, i := range r.issues {
		counts.Total++
		if i.Archived {
			counts.Archived++
		}
		switch i.Status {
		case models.StatusTodo:
			counts.Todo++
		case models.StatusInProgress:
			counts.InProgress++
		case models.StatusDone:
			counts.Done++
		}
		if i.ResolvedAt != nil {
			counts.Resolved++
		}
	}
	counts.Active = counts.Total - counts.Archived
	counts.Unresolved = counts.Total - counts.Resolved
	return counts, nil
}
