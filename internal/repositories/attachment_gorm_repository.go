package repositories

import (
	"errors"
	"fmt"

	"bugboard/internal/models"

	"gorm.io/gorm"
)

// GORMAttachmentRepository is a GORM implementation of AttachmentRepository.
type GORMAttachmentRepository struct {
	db *gorm.DB
}

// NewGORMAttachmentRepository creates a new instance of GORMAttachmentRepository.
func NewGORMAttachmentRepository(db *gorm.DB) *GORMAttachmentRepository {
	return &GORMAttachmentRepository{db: db}
}

// Create inserts attachment metadata.
func (r *GORMAttachmentRepository) Create(attachment *models.Attachment) error {
	if err := r.db.Create(attachment).Error; err != nil {
		return fmt.Errorf("failed to create attachment: %w", err)
	}
	return nil
}

// GetByID retrieves attachment metadata, or (nil, nil) if absent.
func (r *GORMAttachmentRepository) GetByID(id uint) (*models.Attachment, error) {
	var attachment models.Attachment
	if err := r.db.First(&attachment, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get attachment by ID %d: %w", id, err)
	}
	return &attachment, nil
}

// GetByIssueID retrieves all attachments belonging to an issue.
func (r *GORMAttachmentRepository) GetByIssueID(issueID uint) ([]models.Attachment, error) {
	var attachments []models.Attachment
	if err := r.db.Where("issue_id = ?", issueID).Order("id").Find(&attachments).Error; err != nil {
		return nil, fmt.Errorf("failed to get attachments for issue %d: %w", issueID, err)
	}
	return attachments, nil
}

// Delete removes a single attachment row.
func (r *GORMAttachmentRepository) Delete(id uint) error {
	res := r.db.Delete(&models.Attachment{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete attachment %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("attachment with ID %d not found for deletion", id)
	}
	return nil
}

// DeleteByIssueID removes all attachment rows of an issue.
func (r *GORMAttachmentRepository) DeleteByIssueID(issueID uint) error {
	if err := r.db.Where("issue_id = ?", issueID).Delete(&models.Attachment{}).Error; err != nil {
		return fmt.Errorf("failed to delete attachments for issue %d: %w", issueID, err)
	}
	return nil
}
