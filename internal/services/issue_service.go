package services

import (
	"errors"
	"log"
	"strings"
	"time"

	"bugboard/internal/apperrors"
	"bugboard/internal/models"
	"bugboard/internal/repositories"
	"bugboard/pkg/blobstore"
)

// IssuePatch is an explicit partial-update structure. An absent (nil) field
// means "no change". Status and enum fields carry the raw string literal and
// are parsed inside Update so unknown literals surface as validation errors.
type IssuePatch struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Priority    *string `json:"priority"`
	Status      *string `json:"status"`
	Type        *string `json:"type"`
}

// IssueListQuery carries the raw filter/sort parameters of a list request.
// Empty strings mean "no constraint".
type IssueListQuery struct {
	Status   string
	Priority string
	Type     string
	Archived *bool
	Search   string
	SortBy   string
}

// IssueService owns the issue lifecycle: creation, the status state machine,
// archival, assignment, deletion with attachment cascade, and the read-only
// projections.
type IssueService struct {
	issueRepo      repositories.IssueRepository
	userRepo       repositories.UserRepository
	attachmentRepo repositories.AttachmentRepository
	blobs          blobstore.Store
}

// NewIssueService creates a new IssueService.
func NewIssueService(
	issueRepo repositories.IssueRepository,
	userRepo repositories.UserRepository,
	attachmentRepo repositories.AttachmentRepository,
	blobs blobstore.Store,
) *IssueService {
	return &IssueService{
		issueRepo:      issueRepo,
		userRepo:       userRepo,
		attachmentRepo: attachmentRepo,
		blobs:          blobs,
	}
}

// Create validates and stores a new issue. The initial status is always
// Todo; any client-supplied status is ignored. A blank priority defaults to
// none. The actor becomes the creator.
func (s *IssueService) Create(actor *models.User, title, description, priorityStr, typeStr string) (*models.Issue, error) {
	if err := validateTitle(title); err != nil {
		return nil, err
	}
	if err := validateDescription(description); err != nil {
		return nil, err
	}
	priority, err := models.ParsePriority(priorityStr)
	if err != nil {
		return nil, err
	}
	issueType, err := models.ParseIssueType(typeStr)
	if err != nil {
		return nil, err
	}

	exists, err := s.issueRepo.ExistsByTitle(title)
	if err != nil {
		return nil, apperrors.Internal("failed to check title uniqueness", err)
	}
	if exists {
		return nil, apperrors.Conflict("an issue with this title already exists")
	}

	now := time.Now()
	issue := &models.Issue{
		Title:       title,
		Description: description,
		Priority:    priority,
		Status:      models.StatusTodo,
		Type:        issueType,
		CreatorID:   actor.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.issueRepo.Create(issue); err != nil {
		// The store's unique index is authoritative; the pre-check above only
		// narrows the race window.
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, apperrors.Conflict("an issue with this title already exists")
		}
		return nil, apperrors.Internal("failed to create issue", err)
	}
	return issue, nil
}

// Update applies a partial mutation under the authorization gates of the
// lifecycle: creator/assignee/admin ownership, the archived lock, the Done
// lock, the non-admin transition table, write-once type, and set-once
// resolution timestamp.
func (s *IssueService) Update(actor *models.User, id uint, patch IssuePatch) (*models.Issue, error) {
	issue, err := s.getIssue(id)
	if err != nil {
		return nil, err
	}

	if !actor.IsAdmin() {
		if issue.Archived {
			return nil, apperrors.Forbidden("archived issues can only be modified by an administrator")
		}
		if issue.Status == models.StatusDone {
			return nil, apperrors.Forbidden("issues in Done can only be modified by an administrator")
		}
	}
	if !CanMutateIssue(actor, issue) {
		return nil, apperrors.Forbidden("insufficient permissions to modify this issue")
	}

	mutated := false

	if patch.Title != nil {
		if err := validateTitle(*patch.Title); err != nil {
			return nil, err
		}
		if *patch.Title != issue.Title {
			exists, err := s.issueRepo.ExistsByTitle(*patch.Title)
			if err != nil {
				return nil, apperrors.Internal("failed to check title uniqueness", err)
			}
			if exists {
				return nil, apperrors.Conflict("an issue with this title already exists")
			}
			issue.Title = *patch.Title
			mutated = true
		}
	}

	if patch.Description != nil {
		if err := validateDescription(*patch.Description); err != nil {
			return nil, err
		}
		if *patch.Description != issue.Description {
			issue.Description = *patch.Description
			mutated = true
		}
	}

	if patch.Priority != nil {
		priority, err := models.ParsePriority(*patch.Priority)
		if err != nil {
			return nil, err
		}
		if priority != issue.Priority {
			issue.Priority = priority
			mutated = true
		}
	}

	if patch.Type != nil {
		issueType, err := models.ParseIssueType(*patch.Type)
		if err != nil {
			return nil, err
		}
		// Write-once, with no admin special case.
		if issueType != issue.Type {
			return nil, apperrors.Validation("issue type cannot be changed after creation")
		}
	}

	if patch.Status != nil {
		newStatus, err := models.ParseStatus(*patch.Status)
		if err != nil {
			return nil, err
		}
		if newStatus != issue.Status {
			if !actor.IsAdmin() {
				if err := validateTransition(issue.Status, newStatus); err != nil {
					return nil, err
				}
			}
			issue.Status = newStatus
			mutated = true
		}
		// Set-once: re-entering Done never resets the resolution time.
		if newStatus == models.StatusDone && issue.ResolvedAt == nil {
			now := time.Now()
			issue.ResolvedAt = &now
			mutated = true
		}
	}

	if mutated {
		issue.UpdatedAt = time.Now()
		if err := s.issueRepo.Update(issue); err != nil {
			if errors.Is(err, repositories.ErrDuplicate) {
				return nil, apperrors.Conflict("an issue with this title already exists")
			}
			return nil, apperrors.Internal("failed to update issue", err)
		}
	}
	return issue, nil
}

// validateTransition enforces the non-admin state machine:
// Todo→InProgress and InProgress→Done only. Same-to-same never reaches here.
func validateTransition(from, to models.Status) error {
	if from == models.StatusTodo && to == models.StatusInProgress {
		return nil
	}
	if from == models.StatusInProgress && to == models.StatusDone {
		return nil
	}
	return apperrors.Validation("invalid status transition from %s to %s", from, to)
}

// Archive flags an issue read-only. Admin only; archiving twice is a
// conflict. Records who archived it and when.
func (s *IssueService) Archive(actor *models.User, id uint) (*models.Issue, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.Forbidden("only an administrator can archive an issue")
	}
	issue, err := s.getIssue(id)
	if err != nil {
		return nil, err
	}
	if issue.Archived {
		return nil, apperrors.Conflict("issue is already archived")
	}

	now := time.Now()
	issue.Archived = true
	issue.ArchivedAt = &now
	issue.ArchivedByID = &actor.ID
	issue.UpdatedAt = now
	if err := s.issueRepo.Update(issue); err != nil {
		return nil, apperrors.Internal("failed to archive issue", err)
	}
	return issue, nil
}

// Unarchive reverses archival. Admin only; fails if not archived. Clears
// the archival timestamp and archiver reference.
func (s *IssueService) Unarchive(actor *models.User, id uint) (*models.Issue, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.Forbidden("only an administrator can unarchive an issue")
	}
	issue, err := s.getIssue(id)
	if err != nil {
		return nil, err
	}
	if !issue.Archived {
		return nil, apperrors.Validation("issue is not archived")
	}

	issue.Archived = false
	issue.ArchivedAt = nil
	issue.ArchivedByID = nil
	issue.UpdatedAt = time.Now()
	if err := s.issueRepo.Update(issue); err != nil {
		return nil, apperrors.Internal("failed to unarchive issue", err)
	}
	return issue, nil
}

// Delete removes an issue and cascades over its attachments: blobs first
// (best-effort, failures logged), then metadata and assignment rows. Allowed
// for the creator or an admin; archived issues only for an admin.
func (s *IssueService) Delete(actor *models.User, id uint) error {
	issue, err := s.getIssue(id)
	if err != nil {
		return err
	}
	if !CanDeleteIssue(actor, issue) {
		return apperrors.Forbidden("only the creator or an administrator can delete this issue")
	}

	attachments, err := s.attachmentRepo.GetByIssueID(id)
	if err != nil {
		return apperrors.Internal("failed to load attachments for deletion", err)
	}
	for _, a := range attachments {
		if err := s.blobs.Delete(a.StoragePath); err != nil {
			log.Printf("blob deletion failed for attachment %d (%s): %v", a.ID, a.StoragePath, err)
		}
	}
	if err := s.attachmentRepo.DeleteByIssueID(id); err != nil {
		return apperrors.Internal("failed to delete attachment metadata", err)
	}
	if err := s.issueRepo.Delete(id); err != nil {
		return apperrors.Internal("failed to delete issue", err)
	}
	return nil
}

// Assign adds a user to the issue's assignee set. Admin only; assigning an
// existing assignee is a no-op.
func (s *IssueService) Assign(actor *models.User, issueID, userID uint) ([]models.User, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.Forbidden("only an administrator can assign users to an issue")
	}
	if _, err := s.getIssue(issueID); err != nil {
		return nil, err
	}
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, apperrors.Internal("failed to look up user", err)
	}
	if user == nil {
		return nil, apperrors.NotFound("user with id %d not found", userID)
	}

	if err := s.issueRepo.AddAssignee(issueID, userID); err != nil {
		return nil, apperrors.Internal("failed to assign user", err)
	}
	return s.Assignees(issueID)
}

// Unassign removes a user from the assignee set. Admin only; removing a
// non-member is a no-op, not an error.
func (s *IssueService) Unassign(actor *models.User, issueID, userID uint) ([]models.User, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.Forbidden("only an administrator can unassign users from an issue")
	}
	if _, err := s.getIssue(issueID); err != nil {
		return nil, err
	}
	if err := s.issueRepo.RemoveAssignee(issueID, userID); err != nil {
		return nil, apperrors.Internal("failed to unassign user", err)
	}
	return s.Assignees(issueID)
}

// Assignees returns the users assigned to an issue.
func (s *IssueService) Assignees(issueID uint) ([]models.User, error) {
	users, err := s.issueRepo.GetAssignees(issueID)
	if err != nil {
		return nil, apperrors.Internal("failed to load assignees", err)
	}
	return users, nil
}

// Get returns a single issue.
func (s *IssueService) Get(id uint) (*models.Issue, error) {
	return s.getIssue(id)
}

// List returns issues matching the query. Absent parameters impose no
// constraint; unknown enum literals are validation errors.
func (s *IssueService) List(query IssueListQuery) ([]models.Issue, error) {
	filter := repositories.IssueFilter{
		Archived:    query.Archived,
		TitleSearch: strings.TrimSpace(query.Search),
		SortBy:      query.SortBy,
	}
	if query.Status != "" {
		status, err := models.ParseStatus(query.Status)
		if err != nil {
			return nil, err
		}
		filter.Status = &status
	}
	if query.Priority != "" {
		priority, err := models.ParsePriority(query.Priority)
		if err != nil {
			return nil, err
		}
		filter.Priority = &priority
	}
	if query.Type != "" {
		issueType, err := models.ParseIssueType(query.Type)
		if err != nil {
			return nil, err
		}
		filter.Type = &issueType
	}

	issues, err := s.issueRepo.List(filter)
	if err != nil {
		return nil, apperrors.Internal("failed to list issues", err)
	}
	return issues, nil
}

// Urgent returns non-archived issues with critical or high priority, most
// urgent first.
func (s *IssueService) Urgent() ([]models.Issue, error) {
	archived := false
	issues, err := s.issueRepo.List(repositories.IssueFilter{
		Archived: &archived,
		SortBy:   repositories.SortPriorityHigh,
	})
	if err != nil {
		return nil, apperrors.Internal("failed to list urgent issues", err)
	}
	urgent := make([]models.Issue, 0)
	for _, i := range issues {
		if i.Priority == models.PriorityCritical || i.Priority == models.PriorityHigh {
			urgent = append(urgent, i)
		}
	}
	return urgent, nil
}

// Stats returns the issue counters. Read-only.
func (s *IssueService) Stats() (*repositories.IssueCounts, error) {
	counts, err := s.issueRepo.Counts()
	if err != nil {
		return nil, apperrors.Internal("failed to compute issue statistics", err)
	}
	return counts, nil
}

func (s *IssueService) getIssue(id uint) (*models.Issue, error) {
	issue, err := s.issueRepo.GetByID(id)
	if err != nil {
		return nil, apperrors.Internal("failed to look up issue", err)
	}
	if issue == nil {
		return nil, apperrors.NotFound("issue with id %d not found", id)
	}
	return issue, nil
}

func validateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return apperrors.Validation("title is required")
	}
	if len(title) > models.MaxTitleLength {
		return apperrors.Validation("title too long (maximum %d characters)", models.MaxTitleLength)
	}
	return nil
}

func validateDescription(description string) error {
	if strings.TrimSpace(description) == "" {
		return apperrors.Validation("description is required")
	}
	if len(description) > models.MaxDescriptionLength {
		return apperrors.Validation("description too long (maximum %d characters)", models.MaxDescriptionLength)
	}
	return nil
}
