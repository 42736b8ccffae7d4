package repositories

import (
	"errors"
	"fmt"
	"strings"

	"bugboard/internal/models"

	"gorm.io/gorm"
)

// Ranks priorities inside ORDER BY; string ordering would sort them
// alphabetically.
const priorityRankExpr = "CASE priority WHEN 'critical' THEN 4 WHEN 'high' THEN 3 WHEN 'medium' THEN 2 WHEN 'low' THEN 1 ELSE 0 END"

// GORMIssueRepository is a GORM implementation of IssueRepository.
type GORMIssueRepository struct {
	db *gorm.DB
}

// NewGORMIssueRepository creates a new instance of GORMIssueRepository.
func NewGORMIssueRepository(db *gorm.DB) *GORMIssueRepository {
	return &GORMIssueRepository{db: db}
}

// Create inserts a new issue. The unique index on title is the authoritative
// uniqueness guard.
func (r *GORMIssueRepository) Create(issue *models.Issue) error {
	if err := r.db.Create(issue).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("issue with title %q already exists: %w", issue.Title, ErrDuplicate)
		}
		return fmt.Errorf("failed to create issue: %w", err)
	}
	return nil
}

// Update saves all scalar fields of an existing issue. Associations are
// managed through AddAssignee/RemoveAssignee.
func (r *GORMIssueRepository) Update(issue *models.Issue) error {
	res := r.db.Omit("Assignees", "Attachments", "Creator").Save(issue)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("issue with title %q already exists: %w", issue.Title, ErrDuplicate)
		}
		return fmt.Errorf("failed to update issue: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("issue with ID %d not found for update", issue.ID)
	}
	return nil
}

// GetByID retrieves an issue with its creator and assignees, or (nil, nil)
// if absent.
func (r *GORMIssueRepository) GetByID(id uint) (*models.Issue, error) {
	var issue models.Issue
	err := r.db.Preload("Creator").Preload("Assignees").First(&issue, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get issue by ID %d: %w", id, err)
	}
	return &issue, nil
}

// ExistsByTitle reports whether an issue with the given title exists.
func (r *GORMIssueRepository) ExistsByTitle(title string) (bool, error) {
	var count int64
	if err := r.db.Model(&models.Issue{}).Where("title = ?", title).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check title existence: %w", err)
	}
	return count > 0, nil
}

// List retrieves issues matching the filter. Absent filter fields impose no
// constraint.
func (r *GORMIssueRepository) List(filter IssueFilter) ([]models.Issue, error) {
	q := r.db.Model(&models.Issue{}).Preload("Creator")

	if filter.Archived != nil {
		q = q.Where("archived = ?", *filter.Archived)
	}
	if filter.Status != nil {
		q = q.Where("status = ?", *filter.Status)
	}
	if filter.Priority != nil {
		q = q.Where("priority = ?", *filter.Priority)
	}
	if filter.Type != nil {
		q = q.Where("type = ?", *filter.Type)
	}
	if filter.TitleSearch != "" {
		q = q.Where("LOWER(title) LIKE ?", "%"+strings.ToLower(filter.TitleSearch)+"%")
	}

	switch filter.SortBy {
	case SortOldest:
		q = q.Order("created_at ASC")
	case SortTitleAZ:
		q = q.Order("LOWER(title) ASC")
	case SortTitleZA:
		q = q.Order("LOWER(title) DESC")
	case SortPriorityHigh:
		q = q.Order(priorityRankExpr + " DESC").Order("created_at DESC")
	case SortPriorityLow:
		q = q.Order(priorityRankExpr + " ASC").Order("created_at DESC")
	default:
		q = q.Order("created_at DESC")
	}

	var issues []models.Issue
	if err := q.Find(&issues).Error; err != nil {
		return nil, fmt.Errorf("failed to list issues: %w", err)
	}
	return issues, nil
}

// Delete removes an issue together with its attachment metadata and
// assignment rows, all in one transaction.
func (r *GORMIssueRepository) Delete(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("issue_id = ?", id).Delete(&models.Attachment{}).Error; err != nil {
			return fmt.Errorf("failed to delete attachments for issue %d: %w", id, err)
		}
		if err := tx.Exec("DELETE FROM issue_assignees WHERE issue_id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to delete assignments for issue %d: %w", id, err)
		}
		res := tx.Delete(&models.Issue{}, "id = ?", id)
		if res.Error != nil {
			return fmt.Errorf("failed to delete issue %d: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("issue with ID %d not found for deletion", id)
		}
		return nil
	})
}

// AddAssignee places a user in the issue's assignee set. Appending an
// existing member is a no-op upsert.
func (r *GORMIssueRepository) AddAssignee(issueID, userID uint) error {
	issue := models.Issue{ID: issueID}
	user := models.User{ID: userID}
	if err := r.db.Model(&issue).Association("Assignees").Append(&user); err != nil {
		return fmt.Errorf("failed to assign user %d to issue %d: %w", userID, issueID, err)
	}
	return nil
}

// RemoveAssignee drops a user from the issue's assignee set. Removing a
// non-member is a no-op.
func (r *GORMIssueRepository) RemoveAssignee(issueID, userID uint) error {
	issue := models.Issue{ID: issueID}
	user := models.User{ID: userID}
	if err := r.db.Model(&issue).Association("Assignees").Delete(&user); err != nil {
		return fmt.Errorf("failed to unassign user %d from issue %d: %w", userID, issueID, err)
	}
	return nil
}

// GetAssignees returns the users assigned to an issue.
func (r *GORMIssueRepository) GetAssignees(issueID uint) ([]models.User, error) {
	issue := models.Issue{ID: issueID}
	var users []models.User
	if err := r.db.Model(&issue).Association("Assignees").Find(&users); err != nil {
		return nil, fmt.Errorf("failed to get assignees for issue %d: %w", issueID, err)
	}
	return users, nil
}

// Counts aggregates the issue statistics in one pass per counter.
func (r *GORMIssueRepository) Counts() (*IssueCounts, error) {
	counts := &IssueCounts{}
	model := r.db.Model(&models.Issue{})

	if err := model.Session(&gorm.Session{}).Count(&counts.Total).Error; err != nil {
		return nil, fmt.Errorf("failed to count issues: %w", err)
	}
	if err := model.Session(&gorm.Session{}).Where("archived = ?", true).Count(&counts.Archived).Error; err != nil {
		return nil, fmt.Errorf("failed to count archived issues: %w", err)
	}
	counts.Active = counts.Total - counts.Archived

	statuses := map[models.Status]*int64{
		models.StatusTodo:       &counts.Todo,
		models.StatusInProgress: &counts.InProgress,
		models.StatusDone:       &counts.Done,
	}
	for status, dst := range statuses {
		if err := model.Session(&gorm.Session{}).Where("status = ?", status).Count(dst).Error; err != nil {
			return nil, fmt.Errorf("failed to count issues with status %s: %w", status, err)
		}
	}

	if err := model.Session(&gorm.Session{}).Where("resolved_at IS NOT NULL").Count(&counts.Resolved).Error; err != nil {
		return nil, fmt.Errorf("failed to count resolved issues: %w", err)
	}
	counts.Unresolved = counts.Total - counts.Resolved
	return counts, nil
}
