package handlers

import (
	"fmt"
	"io"

	"bugboard/internal/models"
	"bugboard/internal/services"

	"github.com/gofiber/fiber/v2"
)

// AttachmentHandler handles HTTP requests for issue attachments.
type AttachmentHandler struct {
	service *services.AttachmentService
}

// NewAttachmentHandler creates a new AttachmentHandler.
func NewAttachmentHandler(service *services.AttachmentService) *AttachmentHandler {
	return &AttachmentHandler{
		service: service,
	}
}

// RegisterRoutes registers the attachment routes with the Fiber app.
func (h *AttachmentHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/issues/:id/attachments", h.HandleListAttachments)
	router.Get("/issues/:id/attachments/stats", h.HandleAttachmentStats)
	router.Post("/issues/:id/attachments", h.HandleUploadAttachment)

	attachmentRoutes := router.Group("/attachments")
	attachmentRoutes.Get("/:id", h.HandleGetAttachment)
	attachmentRoutes.Get("/:id/download", h.HandleDownloadAttachment)
	attachmentRoutes.Delete("/:id", h.HandleDeleteAttachment)
}

// HandleUploadAttachment accepts a multipart upload under the "file" field
// and binds it to the issue.
func (h *AttachmentHandler) HandleUploadAttachment(c *fiber.Ctx) error {
	issueID, err := parseIDParam(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "multipart field 'file' is required",
		})
	}

	file, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "could not read uploaded file",
		})
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "could not read uploaded file",
		})
	}

	attachment, err := h.service.Upload(currentUser(c), issueID, data, fileHeader.Filename, fileHeader.Header.Get("Content-Type"))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(attachment)
}

// HandleListAttachments returns the attachment metadata of an issue.
// ?sort=size orders largest first, default is insertion order.
func (h *AttachmentHandler) HandleListAttachments(c *fiber.Ctx) error {
	issueID, err := parseIDParam(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var attachments []models.Attachment
	if c.Query("sort") == "size" {
		attachments, err = h.service.ListByIssueBySize(issueID)
	} else {
		attachments, err = h.service.ListByIssue(issueID)
	}
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(attachments)
}

// HandleAttachmentStats returns count and total byte size of an issue's
// attachments.
func (h *AttachmentHandler) HandleAttachmentStats(c *fiber.Ctx) error {
	issueID, err := parseIDParam(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	stats, err := h.service.StatsForIssue(issueID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(stats)
}

// HandleGetAttachment returns a single attachment's metadata. The blob is
// only read on the download route.
func (h *AttachmentHandler) HandleGetAttachment(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	attachment, err := h.service.Get(id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(attachment)
}

// HandleDownloadAttachment streams the attachment bytes with the original
// file name and content type.
func (h *AttachmentHandler) HandleDownloadAttachment(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	attachment, data, err := h.service.Download(id)
	if err != nil {
		return respondError(c, err)
	}

	c.Set(fiber.HeaderContentType, attachment.ContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", attachment.FileName))
	return c.Send(data)
}

// HandleDeleteAttachment removes an attachment, blob included.
func (h *AttachmentHandler) HandleDeleteAttachment(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	if err := h.service.Delete(currentUser(c), id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Attachment deleted successfully",
	})
}
