package handlers

import (
	"strconv"

	"bugboard/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// IssueHandler handles HTTP requests for the issue lifecycle.
type IssueHandler struct {
	service  *services.IssueService
	validate *validator.Validate
}

// NewIssueHandler creates a new IssueHandler.
func NewIssueHandler(service *services.IssueService) *IssueHandler {
	return &IssueHandler{
		service:  service,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the issue routes with the Fiber app.
func (h *IssueHandler) RegisterRoutes(router fiber.Router) {
	issueRoutes := router.Group("/issues")
	issueRoutes.Get("/", h.HandleListIssues)
	issueRoutes.Post("/", h.HandleCreateIssue)
	issueRoutes.Get("/urgent", h.HandleUrgentIssues)
	issueRoutes.Get("/stats", h.HandleIssueStats)
	issueRoutes.Get("/:id", h.HandleGetIssue)
	issueRoutes.Patch("/:id", h.HandleUpdateIssue)
	issueRoutes.Delete("/:id", h.HandleDeleteIssue)
	issueRoutes.Post("/:id/archive", h.HandleArchiveIssue)
	issueRoutes.Post("/:id/unarchive", h.HandleUnarchiveIssue)
	issueRoutes.Get("/:id/assignees", h.HandleGetAssignees)
	issueRoutes.Post("/:id/assignees/:userId", h.HandleAssignUser)
	issueRoutes.Delete("/:id/assignees/:userId", h.HandleUnassignUser)
}

// CreateIssueRequest represents the request body for issue creation. A
// status field sent by the client is deliberately absent here: new issues
// always start in Todo.
type CreateIssueRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"required,max=5000"`
	Priority    string `json:"priority"`
	Type        string `json:"type" validate:"required"`
}

// HandleCreateIssue creates a new issue with the authenticated user as
// creator.
func (h *IssueHandler) HandleCreateIssue(c *fiber.Ctx) error {
	var req CreateIssueRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
		})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "title (max 200 chars), description (max 5000 chars) and type are required",
		})
	}

	issue, err := h.service.Create(currentUser(c), req.Title, req.Description, req.Priority, req.Type)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(issue)
}

// HandleListIssues returns issues filtered and sorted by query parameters:
// status, priority, type, archived, search, sort.
func (h *IssueHandler) HandleListIssues(c *fiber.Ctx) error {
	query := services.IssueListQuery{
		Status:   c.Query("status"),
		Priority: c.Query("priority"),
		Type:     c.Query("type"),
		Search:   c.Query("search"),
		SortBy:   c.Query("sort"),
	}
	if raw := c.Query("archived"); raw != "" {
		archived, err := strconv.ParseBool(raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"message": "archived must be true or false",
			})
		}
		query.Archived = &archived
	}

	issues, err := h.service.List(query)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(issues)
}

// HandleUrgentIssues returns non-archived critical and high priority issues.
func (h *IssueHandler) HandleUrgentIssues(c *fiber.Ctx) error {
	issues, err := h.service.Urgent()
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(issues)
}

// HandleIssueStats returns the issue counters.
func (h *IssueHandler) HandleIssueStats(c *fiber.Ctx) error {
	stats, err := h.service.Stats()
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(stats)
}

// HandleGetIssue returns a single issue.
func (h *IssueHandler) HandleGetIssue(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	issue, err := h.service.Get(id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(issue)
}

// HandleUpdateIssue applies a partial mutation to an issue.
func (h *IssueHandler) HandleUpdateIssue(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var patch services.IssuePatch
	if err := c.BodyParser(&patch); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
		})
	}

	issue, err := h.service.Update(currentUser(c), id, patch)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(issue)
}

// HandleDeleteIssue removes an issue and its attachments.
func (h *IssueHandler) HandleDeleteIssue(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	if err := h.service.Delete(currentUser(c), id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Issue deleted successfully",
	})
}

// HandleArchiveIssue flags an issue read-only.
func (h *IssueHandler) HandleArchiveIssue(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	issue, err := h.service.Archive(currentUser(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(issue)
}

// HandleUnarchiveIssue reverses archival.
func (h *IssueHandler) HandleUnarchiveIssue(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	issue, err := h.service.Unarchive(currentUser(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(issue)
}

// HandleGetAssignees returns the assignee set of an issue.
func (h *IssueHandler) HandleGetAssignees(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	if _, err := h.service.Get(id); err != nil {
		return respondError(c, err)
	}
	users, err := h.service.Assignees(id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(users)
}

// HandleAssignUser adds a user to the issue's assignee set.
func (h *IssueHandler) HandleAssignUser(c *fiber.Ctx) error {
	issueID, err := parseIDParam(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	userID, err := parseIDParam(c, "userId")
	if err != nil {
		return respondError(c, err)
	}
	users, err := h.service.Assign(currentUser(c), issueID, userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"message":   "User assigned successfully",
		"assignees": users,
	})
}

// HandleUnassignUser removes a user from the issue's assignee set.
func (h *IssueHandler) HandleUnassignUser(c *fiber.Ctx) error {
	issueID, err := parseIDParam(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	userID, err := parseIDParam(c, "userId")
	if err != nil {
		return respondError(c, err)
	}
	users, err := h.service.Unassign(currentUser(c), issueID, userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"message":   "User unassigned successfully",
		"assignees": users,
	})
}
