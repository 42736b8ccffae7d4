package handlers

import (
	"bugboard/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// UserHandler handles HTTP requests for the user directory.
type UserHandler struct {
	service  *services.UserService
	validate *validator.Validate
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(service *services.UserService) *UserHandler {
	return &UserHandler{
		service:  service,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the user routes with the Fiber app.
func (h *UserHandler) RegisterRoutes(router fiber.Router) {
	userRoutes := router.Group("/users")
	userRoutes.Get("/", h.HandleListUsers)
	userRoutes.Post("/", h.HandleCreateUser)
	userRoutes.Get("/me", h.HandleGetMe)
	userRoutes.Get("/:id", h.HandleGetUser)
	userRoutes.Patch("/:id/role", h.HandleUpdateRole)
	userRoutes.Patch("/:id/status", h.HandleSetStatus)
	userRoutes.Delete("/:id", h.HandleDeactivateUser)
}

// CreateUserRequest represents the request body for account creation.
type CreateUserRequest struct {
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=6"`
	Role      string `json:"role" validate:"required"`
}

// HandleCreateUser registers a new account. Admin only.
func (h *UserHandler) HandleCreateUser(c *fiber.Ctx) error {
	var req CreateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
		})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "first_name, last_name, email, password (min 6 chars) and role are required",
		})
	}

	user, err := h.service.Create(currentUser(c), req.FirstName, req.LastName, req.Email, req.Password, req.Role)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "User created successfully",
		"user":    user,
	})
}

// HandleListUsers returns every account. Admin only.
func (h *UserHandler) HandleListUsers(c *fiber.Ctx) error {
	users, err := h.service.List(currentUser(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(users)
}

// HandleGetMe returns the authenticated account.
func (h *UserHandler) HandleGetMe(c *fiber.Ctx) error {
	return c.JSON(currentUser(c))
}

// HandleGetUser returns a single account.
func (h *UserHandler) HandleGetUser(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	user, err := h.service.Get(id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// UpdateRoleRequest represents the request body for a role change.
type UpdateRoleRequest struct {
	Role string `json:"role" validate:"required"`
}

// HandleUpdateRole changes an account's role. Admin only.
func (h *UserHandler) HandleUpdateRole(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req UpdateRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
		})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "role is required",
		})
	}

	user, err := h.service.UpdateRole(currentUser(c), id, req.Role)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Role updated successfully",
		"user":    user,
	})
}

// SetStatusRequest represents the request body for an active-flag change.
type SetStatusRequest struct {
	Active *bool `json:"active" validate:"required"`
}

// HandleSetStatus toggles an account's active flag. Admin only.
func (h *UserHandler) HandleSetStatus(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req SetStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
		})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "active is required",
		})
	}

	user, err := h.service.SetActive(currentUser(c), id, *req.Active)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Account status updated successfully",
		"user":    user,
	})
}

// HandleDeactivateUser soft-deletes an account by clearing its active flag.
func (h *UserHandler) HandleDeactivateUser(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	if _, err := h.service.Deactivate(currentUser(c), id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Account deactivated successfully",
	})
}
