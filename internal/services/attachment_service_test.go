package services_test

import (
	"bytes"
	"fmt"
	"testing"

	"bugboard/internal/apperrors"
	"bugboard/internal/models"
	"bugboard/internal/repositories"
	"bugboard/internal/services"
	"bugboard/pkg/blobstore"

	"github.com/stretchr/testify/assert"
)

// brokenDeleteStore fails every Delete to exercise the fail-soft path.
type brokenDeleteStore struct {
	*blobstore.MemoryStore
}

func (s *brokenDeleteStore) Delete(locator string) error {
	return fmt.Errorf("disk on fire")
}

func newAttachmentFixture(t *testing.T) (*services.AttachmentService, *services.IssueService, *repositories.MockAttachmentRepository, *blobstore.MemoryStore, *models.Issue, *models.User) {
	t.Helper()
	issueRepo := repositories.NewMockIssueRepository()
	userRepo := repositories.NewMockUserRepository()
	attachmentRepo := repositories.NewMockAttachmentRepository()
	blobs := blobstore.NewMemoryStore()

	issueService := services.NewIssueService(issueRepo, userRepo, attachmentRepo, blobs)
	service := services.NewAttachmentService(attachmentRepo, issueRepo, blobs, 0)

	creator := regularUser(2)
	assert.NoError(t, userRepo.Create(creator))
	issue, err := issueService.Create(creator, "Needs a screenshot", "See attached", "low", "bug")
	assert.NoError(t, err)

	return service, issueService, attachmentRepo, blobs, issue, creator
}

func TestAttachmentService_UploadAndDownload(t *testing.T) {
	service, _, _, blobs, issue, creator := newAttachmentFixture(t)

	payload := []byte("not really a png but close enough")
	attachment, err := service.Upload(creator, issue.ID, payload, "screenshot.png", "image/png")
	assert.NoError(t, err)
	assert.Equal(t, issue.ID, attachment.IssueID)
	assert.Equal(t, "screenshot.png", attachment.FileName)
	assert.Equal(t, "image/png", attachment.ContentType)
	assert.EqualValues(t, len(payload), attachment.Size)
	assert.Equal(t, 1, blobs.Len())

	fetched, data, err := service.Download(attachment.ID)
	assert.NoError(t, err)
	assert.Equal(t, attachment.ID, fetched.ID)
	assert.True(t, bytes.Equal(payload, data))

	list, err := service.ListByIssue(issue.ID)
	assert.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestAttachmentService_UploadSizeLimit(t *testing.T) {
	service, _, _, _, issue, creator := newAttachmentFixture(t)

	// Exactly at the limit is accepted.
	atLimit := make([]byte, services.MaxAttachmentBytes)
	_, err := service.Upload(creator, issue.ID, atLimit, "big.pdf", "application/pdf")
	assert.NoError(t, err)

	// One byte over is rejected.
	overLimit := make([]byte, services.MaxAttachmentBytes+1)
	_, err = service.Upload(creator, issue.ID, overLimit, "too-big.pdf", "application/pdf")
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}

func TestAttachmentService_UploadRejections(t *testing.T) {
	service, _, _, blobs, issue, creator := newAttachmentFixture(t)

	_, err := service.Upload(creator, issue.ID, []byte("data"), "script.sh", "application/x-sh")
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))

	_, err = service.Upload(creator, issue.ID, []byte("data"), "   ", "image/png")
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))

	_, err = service.Upload(creator, issue.ID, nil, "empty.png", "image/png")
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))

	_, err = service.Upload(creator, 999, []byte("data"), "ok.png", "image/png")
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))

	// A stranger to the issue cannot attach.
	_, err = service.Upload(regularUser(3), issue.ID, []byte("data"), "ok.png", "image/png")
	assert.True(t, apperrors.IsKind(err, apperrors.KindForbidden))

	// Nothing leaked into the blob store.
	assert.Equal(t, 0, blobs.Len())
}

func TestAttachmentService_DeleteRemovesBlob(t *testing.T) {
	service, _, attachmentRepo, blobs, issue, creator := newAttachmentFixture(t)

	attachment, err := service.Upload(creator, issue.ID, []byte("data"), "note.pdf", "application/pdf")
	assert.NoError(t, err)
	assert.Equal(t, 1, blobs.Len())

	// A stranger cannot delete.
	err = service.Delete(regularUser(3), attachment.ID)
	assert.True(t, apperrors.IsKind(err, apperrors.KindForbidden))

	assert.NoError(t, service.Delete(creator, attachment.ID))
	assert.Equal(t, 0, blobs.Len())

	stored, err := attachmentRepo.GetByID(attachment.ID)
	assert.NoError(t, err)
	assert.Nil(t, stored)
}

func TestAttachmentService_DeleteSurvivesBlobFailure(t *testing.T) {
	issueRepo := repositories.NewMockIssueRepository()
	userRepo := repositories.NewMockUserRepository()
	attachmentRepo := repositories.NewMockAttachmentRepository()
	blobs := &brokenDeleteStore{MemoryStore: blobstore.NewMemoryStore()}

	issueService := services.NewIssueService(issueRepo, userRepo, attachmentRepo, blobs)
	service := services.NewAttachmentService(attachmentRepo, issueRepo, blobs, 0)

	creator := regularUser(2)
	assert.NoError(t, userRepo.Create(creator))
	issue, err := issueService.Create(creator, "Flaky disk", "Attachment cleanup test", "low", "bug")
	assert.NoError(t, err)

	attachment, err := service.Upload(creator, issue.ID, []byte("data"), "note.pdf", "application/pdf")
	assert.NoError(t, err)

	// The blob store is broken, but the metadata row still goes away.
	assert.NoError(t, service.Delete(creator, attachment.ID))
	stored, err := attachmentRepo.GetByID(attachment.ID)
	assert.NoError(t, err)
	assert.Nil(t, stored)
}

// brokenReadStore fails every Get, so a metadata lookup that touches the
// blob store becomes visible.
type brokenReadStore struct {
	*blobstore.MemoryStore
}

func (s *brokenReadStore) Get(locator string) ([]byte, error) {
	return nil, fmt.Errorf("disk detached")
}

func TestAttachmentService_GetIsMetadataOnly(t *testing.T) {
	issueRepo := repositories.NewMockIssueRepository()
	userRepo := repositories.NewMockUserRepository()
	attachmentRepo := repositories.NewMockAttachmentRepository()
	blobs := &brokenReadStore{MemoryStore: blobstore.NewMemoryStore()}

	issueService := services.NewIssueService(issueRepo, userRepo, attachmentRepo, blobs)
	service := services.NewAttachmentService(attachmentRepo, issueRepo, blobs, 0)

	creator := regularUser(2)
	assert.NoError(t, userRepo.Create(creator))
	issue, err := issueService.Create(creator, "Unreadable disk", "Metadata must still resolve", "low", "bug")
	assert.NoError(t, err)

	attachment, err := service.Upload(creator, issue.ID, []byte("data"), "note.pdf", "application/pdf")
	assert.NoError(t, err)

	// Metadata resolves even though blob reads fail.
	fetched, err := service.Get(attachment.ID)
	assert.NoError(t, err)
	assert.Equal(t, attachment.ID, fetched.ID)
	assert.Equal(t, "note.pdf", fetched.FileName)

	_, _, err = service.Download(attachment.ID)
	assert.Error(t, err)

	_, err = service.Get(999)
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}

func TestAttachmentService_SizeSortAndStats(t *testing.T) {
	service, _, _, _, issue, creator := newAttachmentFixture(t)

	_, err := service.Upload(creator, issue.ID, make([]byte, 10), "small.pdf", "application/pdf")
	assert.NoError(t, err)
	_, err = service.Upload(creator, issue.ID, make([]byte, 300), "large.pdf", "application/pdf")
	assert.NoError(t, err)
	_, err = service.Upload(creator, issue.ID, make([]byte, 40), "medium.pdf", "application/pdf")
	assert.NoError(t, err)

	bySize, err := service.ListByIssueBySize(issue.ID)
	assert.NoError(t, err)
	assert.Len(t, bySize, 3)
	assert.Equal(t, "large.pdf", bySize[0].FileName)
	assert.Equal(t, "medium.pdf", bySize[1].FileName)
	assert.Equal(t, "small.pdf", bySize[2].FileName)

	stats, err := service.StatsForIssue(issue.ID)
	assert.NoError(t, err)
	assert.Equal(t, 3, stats.Count)
	assert.EqualValues(t, 350, stats.TotalBytes)

	_, err = service.StatsForIssue(999)
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}
