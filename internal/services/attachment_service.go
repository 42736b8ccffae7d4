package services

import (
	"log"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"bugboard/internal/apperrors"
	"bugboard/internal/models"
	"bugboard/internal/repositories"
	"bugboard/pkg/blobstore"
)

// MaxAttachmentBytes is the inclusive upload size limit (10MB).
const MaxAttachmentBytes = 10 * 1024 * 1024

// allowedContentTypes is the declared-MIME allow-list for uploads.
var allowedContentTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"image/gif":       true,
	"image/webp":      true,
	"application/pdf": true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
}

// AttachmentService binds validated binary blobs to issues. The blob store
// holds the bytes; the repository holds the metadata row with the locator.
type AttachmentService struct {
	attachmentRepo repositories.AttachmentRepository
	issueRepo      repositories.IssueRepository
	blobs          blobstore.Store
	maxBytes       int64
}

// NewAttachmentService creates a new AttachmentService. maxBytes <= 0 falls
// back to MaxAttachmentBytes.
func NewAttachmentService(
	attachmentRepo repositories.AttachmentRepository,
	issueRepo repositories.IssueRepository,
	blobs blobstore.Store,
	maxBytes int64,
) *AttachmentService {
	if maxBytes <= 0 {
		maxBytes = MaxAttachmentBytes
	}
	return &AttachmentService{
		attachmentRepo: attachmentRepo,
		issueRepo:      issueRepo,
		blobs:          blobs,
		maxBytes:       maxBytes,
	}
}

// Upload validates and stores a blob for an issue. The actor must be allowed
// to mutate the issue (same gate as field edits). The blob is written first;
// if the metadata insert fails the blob is cleaned up so no orphan survives.
func (s *AttachmentService) Upload(actor *models.User, issueID uint, data []byte, filename, contentType string) (*models.Attachment, error) {
	issue, err := s.issueRepo.GetByID(issueID)
	if err != nil {
		return nil, apperrors.Internal("failed to look up issue", err)
	}
	if issue == nil {
		return nil, apperrors.NotFound("issue with id %d not found", issueID)
	}
	if !CanMutateIssue(actor, issue) {
		return nil, apperrors.Forbidden("insufficient permissions to attach files to this issue")
	}

	if strings.TrimSpace(filename) == "" {
		return nil, apperrors.Validation("file name is required")
	}
	if len(data) == 0 {
		return nil, apperrors.Validation("file is empty")
	}
	if int64(len(data)) > s.maxBytes {
		return nil, apperrors.Validation("file too large (maximum %d bytes)", s.maxBytes)
	}
	if !allowedContentTypes[strings.ToLower(strings.TrimSpace(contentType))] {
		return nil, apperrors.Validation("unsupported content type: %q", contentType)
	}

	locator, err := s.blobs.Put(data, filepath.Ext(filename))
	if err != nil {
		return nil, apperrors.Internal("failed to store file", err)
	}

	attachment := &models.Attachment{
		IssueID:     issueID,
		FileName:    filename,
		ContentType: strings.ToLower(strings.TrimSpace(contentType)),
		Size:        int64(len(data)),
		StoragePath: locator,
		UploadedAt:  time.Now(),
	}
	if err := s.attachmentRepo.Create(attachment); err != nil {
		if cleanupErr := s.blobs.Delete(locator); cleanupErr != nil {
			log.Printf("orphan blob cleanup failed for %s: %v", locator, cleanupErr)
		}
		return nil, apperrors.Internal("failed to store attachment metadata", err)
	}
	return attachment, nil
}

// Get returns a single attachment's metadata without touching the blob store.
func (s *AttachmentService) Get(id uint) (*models.Attachment, error) {
	return s.getAttachment(id)
}

// Download returns the attachment metadata and its bytes.
func (s *AttachmentService) Download(id uint) (*models.Attachment, []byte, error) {
	attachment, err := s.getAttachment(id)
	if err != nil {
		return nil, nil, err
	}
	data, err := s.blobs.Get(attachment.StoragePath)
	if err != nil {
		return nil, nil, apperrors.Internal("failed to read file", err)
	}
	return attachment, data, nil
}

// Delete removes blob then metadata. Blob removal is fail-soft: a blob-store
// error is logged and the metadata row is removed anyway, consistent with
// the best-effort mail policy.
func (s *AttachmentService) Delete(actor *models.User, id uint) error {
	attachment, err := s.getAttachment(id)
	if err != nil {
		return err
	}
	issue, err := s.issueRepo.GetByID(attachment.IssueID)
	if err != nil {
		return apperrors.Internal("failed to look up issue", err)
	}
	if issue != nil && !CanMutateIssue(actor, issue) {
		return apperrors.Forbidden("insufficient permissions to delete attachments of this issue")
	}

	if err := s.blobs.Delete(attachment.StoragePath); err != nil {
		log.Printf("blob deletion failed for attachment %d (%s): %v", id, attachment.StoragePath, err)
	}
	if err := s.attachmentRepo.Delete(id); err != nil {
		return apperrors.Internal("failed to delete attachment metadata", err)
	}
	return nil
}

// ListByIssue returns the attachments of an issue.
func (s *AttachmentService) ListByIssue(issueID uint) ([]models.Attachment, error) {
	issue, err := s.issueRepo.GetByID(issueID)
	if err != nil {
		return nil, apperrors.Internal("failed to look up issue", err)
	}
	if issue == nil {
		return nil, apperrors.NotFound("issue with id %d not found", issueID)
	}
	attachments, err := s.attachmentRepo.GetByIssueID(issueID)
	if err != nil {
		return nil, apperrors.Internal("failed to list attachments", err)
	}
	return attachments, nil
}

// ListByIssueBySize returns the attachments of an issue, largest first.
func (s *AttachmentService) ListByIssueBySize(issueID uint) ([]models.Attachment, error) {
	attachments, err := s.ListByIssue(issueID)
	if err != nil {
		return nil, err
	}
	sort.Slice(attachments, func(i, j int) bool { return attachments[i].Size > attachments[j].Size })
	return attachments, nil
}

// IssueAttachmentStats summarizes the attachments bound to one issue.
type IssueAttachmentStats struct {
	Count      int   `json:"count"`
	TotalBytes int64 `json:"totalBytes"`
}

// StatsForIssue aggregates count and total byte size over an issue's
// attachments.
func (s *AttachmentService) StatsForIssue(issueID uint) (*IssueAttachmentStats, error) {
	attachments, err := s.ListByIssue(issueID)
	if err != nil {
		return nil, err
	}
	stats := &IssueAttachmentStats{Count: len(attachments)}
	for _, a := range attachments {
		stats.TotalBytes += a.Size
	}
	return stats, nil
}

func (s *AttachmentService) getAttachment(id uint) (*models.Attachment, error) {
	attachment, err := s.attachmentRepo.GetByID(id)
	if err != nil {
		return nil, apperrors.Internal("failed to look up attachment", err)
	}
	if attachment == nil {
		return nil, apperrors.NotFound("attachment with id %d not found", id)
	}
	return attachment, nil
}
