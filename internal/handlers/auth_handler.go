package handlers

import (
	"bugboard/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// AuthHandler handles HTTP requests for authentication.
type AuthHandler struct {
	authService *services.AuthService
	userService *services.UserService
	validate    *validator.Validate
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService, userService *services.UserService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		userService: userService,
		validate:    validator.New(),
	}
}

// RegisterRoutes registers the public authentication routes.
func (h *AuthHandler) RegisterRoutes(router fiber.Router) {
	authRoutes := router.Group("/auth")
	authRoutes.Post("/login", h.HandleLogin)
	authRoutes.Post("/reset-password", h.HandleResetPassword)
}

// RegisterProtectedRoutes registers the auth routes that require a session.
func (h *AuthHandler) RegisterProtectedRoutes(router fiber.Router) {
	authRoutes := router.Group("/auth")
	authRoutes.Put("/password", h.HandleChangePassword)
}

// LoginRequest represents the request body for login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// HandleLogin authenticates credentials and issues a JWT token.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
		})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "email and password are required",
		})
	}

	token, user, err := h.authService.Login(req.Email, req.Password)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Login successful",
		"token":   token,
		"user":    user.PublicProfile(),
	})
}

// ResetPasswordRequest represents the request body for a password reset.
type ResetPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// HandleResetPassword replaces the account password with a temporary one and
// mails it to the account address.
func (h *AuthHandler) HandleResetPassword(c *fiber.Ctx) error {
	var req ResetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
		})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "email is required",
		})
	}

	if err := h.authService.ResetPassword(req.Email); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "A temporary password has been sent to your email address",
	})
}

// ChangePasswordRequest represents the request body for a password change.
type ChangePasswordRequest struct {
	NewPassword string `json:"new_password" validate:"required"`
}

// HandleChangePassword lets the authenticated user replace their own password.
func (h *AuthHandler) HandleChangePassword(c *fiber.Ctx) error {
	var req ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
		})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "new_password is required",
		})
	}

	if err := h.userService.ChangePassword(currentUser(c), req.NewPassword); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Password updated successfully",
	})
}
