package repositories

import (
	"fmt"
	"sort"
	"sync"

	"bugboard/internal/models"
)

// MockAttachmentRepository is an in-memory implementation of AttachmentRepository.
type MockAttachmentRepository struct {
	attachments map[uint]models.Attachment
	nextID      uint
	mu          sync.RWMutex
}

// NewMockAttachmentRepository creates a new instance of MockAttachmentRepository.
func NewMockAttachmentRepository() *MockAttachmentRepository {
	return &MockAttachmentRepository{attachments: make(map[uint]models.Attachment), nextID: 1}
}

// Create adds attachment metadata, assigning an id if none is set.
func (r *MockAttachmentRepository) Create(attachment *models.Attachment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if attachment.ID == 0 {
		attachment.ID = r.nextID
		r.nextID++
	}
	r.attachments[attachment.ID] = *attachment
	return nil
}

// GetByID returns attachment metadata, or (nil, nil) if absent.
func (r *MockAttachmentRepository) GetByID(id uint) (*models.Attachment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	attachment, ok := r.attachments[id]
	if !ok {
		return nil, nil
	}
	return &attachment, nil
}

// GetByIssueID returns all attachments for an issue ordered by id.
func (r *MockAttachmentRepository) GetByIssueID(issueID uint) ([]models.Attachment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var attachments []models.Attachment
	for _, a := range r.attachments {
		if a.IssueID == issueID {
			attachments = append(attachments, a)
		}
	}
	sort.Slice(attachments, func(i, j int) bool { return attachments[i].ID < attachments[j].ID })
	return attachments, nil
}

// Delete removes a single attachment row.
func (r *MockAttachmentRepository) Delete(id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.attachments[id]; !ok {
		return fmt.Errorf("attachment with ID %d not found for deletion", id)
	}
	delete(r.attachments, id)
	return nil
}

// DeleteByIssueID removes all attachment rows of an issue.
func (r *MockAttachmentRepository) DeleteByIssueID(issueID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, a := range r.attachments {
		if a.IssueID == issueID {
			delete(r.attachments, id)
		}
	}
	return nil
}
