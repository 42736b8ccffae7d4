package repositories

import "bugboard/internal/models"

// AttachmentRepository defines the interface for attachment metadata access.
// GetByID returns (nil, nil) when no row matches.
type AttachmentRepository interface {
	Create(attachment *models.Attachment) error
	GetByID(id uint) (*models.Attachment, error)
	GetByIssueID(issueID uint) ([]models.Attachment, error)
	Delete(id uint) error
	DeleteByIssueID(issueID uint) error
}
