package repositories

import "bugboard/internal/models"

// Sort orders accepted by IssueFilter.SortBy. An empty SortBy falls back to
// SortNewest.
const (
	SortNewest       = "newest"
	SortOldest       = "oldest"
	SortTitleAZ      = "title_az"
	SortTitleZA      = "title_za"
	SortPriorityHigh = "priority_high"
	SortPriorityLow  = "priority_low"
)

// IssueFilter narrows List results. A nil/empty field means "no constraint".
type IssueFilter struct {
	Status      *models.Status
	Priority    *models.Priority
	Type        *models.IssueType
	Archived    *bool
	TitleSearch string
	SortBy      string
}

// IssueCounts aggregates issue statistics in a single shape.
type IssueCounts struct {
	Total      int64 `json:"total"`
	Active     int64 `json:"active"`
	Archived   int64 `json:"archived"`
	Todo       int64 `json:"todo"`
	InProgress int64 `json:"inProgress"`
	Done       int64 `json:"done"`
	Resolved   int64 `json:"resolved"`
	Unresolved int64 `json:"unresolved"`
}

// IssueRepository defines the interface for issue data access. GetByID
// preloads creator and assignees and returns (nil, nil) when no row matches.
// Delete removes the issue, its attachment rows and its assignment rows in a
// single transaction; blob cleanup is the caller's concern.
type IssueRepository interface {
	Create(issue *models.Issue) error
	Update(issue *models.Issue) error
	GetByID(id uint) (*models.Issue, error)
	ExistsByTitle(title string) (bool, error)
	List(filter IssueFilter) ([]models.Issue, error)
	Delete(id uint) error
	AddAssignee(issueID, userID uint) error
	RemoveAssignee(issueID, userID uint) error
	GetAssignees(issueID uint) ([]models.User, error)
	Counts() (*IssueCounts, error)
}
