package handlers

import (
	"bugboard/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// TeamHandler handles HTTP requests for teams.
type TeamHandler struct {
	service  *services.TeamService
	validate *validator.Validate
}

// NewTeamHandler creates a new TeamHandler.
func NewTeamHandler(service *services.TeamService) *TeamHandler {
	return &TeamHandler{
		service:  service,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the team routes with the Fiber app.
func (h *TeamHandler) RegisterRoutes(router fiber.Router) {
	teamRoutes := router.Group("/teams")
	teamRoutes.Get("/", h.HandleListTeams)
	teamRoutes.Post("/", h.HandleCreateTeam)
	// Static paths must precede the :id wildcard.
	teamRoutes.Get("/search", h.HandleSearchTeams)
	teamRoutes.Get("/stats", h.HandleTeamStats)
	teamRoutes.Get("/:id", h.HandleGetTeam)
	teamRoutes.Patch("/:id", h.HandleUpdateTeam)
	teamRoutes.Delete("/:id", h.HandleDeleteTeam)
	teamRoutes.Get("/:id/members", h.HandleGetMembers)
	teamRoutes.Post("/:id/members/:userId", h.HandleAddMember)
	teamRoutes.Delete("/:id/members/:userId", h.HandleRemoveMember)
	teamRoutes.Post("/:id/issues/:issueId", h.HandleAssignIssue)

	router.Get("/users/:id/teams", h.HandleTeamsForUser)
}

// CreateTeamRequest represents the request body for team creation.
type CreateTeamRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

// HandleCreateTeam registers a new team. Admin only.
func (h *TeamHandler) HandleCreateTeam(c *fiber.Ctx) error {
	var req CreateTeamRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
		})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "name is required",
		})
	}

	team, err := h.service.Create(currentUser(c), req.Name, req.Description)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(team)
}

// HandleListTeams returns all teams.
func (h *TeamHandler) HandleListTeams(c *fiber.Ctx) error {
	teams, err := h.service.List()
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(teams)
}

// HandleSearchTeams returns teams whose name contains the "name" query,
// case-insensitive.
func (h *TeamHandler) HandleSearchTeams(c *fiber.Ctx) error {
	teams, err := h.service.Search(c.Query("name"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(teams)
}

// HandleTeamStats returns team counts by active flag.
func (h *TeamHandler) HandleTeamStats(c *fiber.Ctx) error {
	stats, err := h.service.Stats()
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(stats)
}

// HandleTeamsForUser returns the teams a user is a member of.
func (h *TeamHandler) HandleTeamsForUser(c *fiber.Ctx) error {
	userID, err := parseIDParam(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	teams, err := h.service.TeamsForUser(userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(teams)
}

// HandleGetTeam returns a single team with its members.
func (h *TeamHandler) HandleGetTeam(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	team, err := h.service.Get(id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(team)
}

// HandleUpdateTeam applies a partial mutation to a team. Admin only.
func (h *TeamHandler) HandleUpdateTeam(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var patch services.TeamPatch
	if err := c.BodyParser(&patch); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
		})
	}

	team, err := h.service.Update(currentUser(c), id, patch)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(team)
}

// HandleDeleteTeam removes a team. Its issues keep existing without a team.
func (h *TeamHandler) HandleDeleteTeam(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	if err := h.service.Delete(currentUser(c), id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Team deleted successfully",
	})
}

// HandleGetMembers returns the member set of a team.
func (h *TeamHandler) HandleGetMembers(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	if _, err := h.service.Get(id); err != nil {
		return respondError(c, err)
	}
	users, err := h.service.Members(id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(users)
}

// HandleAddMember places a user in the team. Admin only.
func (h *TeamHandler) HandleAddMember(c *fiber.Ctx) error {
	teamID, err := parseIDParam(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	userID, err := parseIDParam(c, "userId")
	if err != nil {
		return respondError(c, err)
	}
	users, err := h.service.AddMember(currentUser(c), teamID, userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Member added successfully",
		"members": users,
	})
}

// HandleRemoveMember drops a user from the team. Admin only.
func (h *TeamHandler) HandleRemoveMember(c *fiber.Ctx) error {
	teamID, err := parseIDParam(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	userID, err := parseIDParam(c, "userId")
	if err != nil {
		return respondError(c, err)
	}
	users, err := h.service.RemoveMember(currentUser(c), teamID, userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Member removed successfully",
		"members": users,
	})
}

// HandleAssignIssue binds an issue to the team. Admin only.
func (h *TeamHandler) HandleAssignIssue(c *fiber.Ctx) error {
	teamID, err := parseIDParam(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	issueID, err := parseIDParam(c, "issueId")
	if err != nil {
		return respondError(c, err)
	}
	issue, err := h.service.AssignIssue(currentUser(c), teamID, issueID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(issue)
}
