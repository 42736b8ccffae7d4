package handlers

import (
	"log"
	"strconv"

	"bugboard/internal/apperrors"
	"bugboard/internal/models"

	"github.com/gofiber/fiber/v2"
)

// currentUser extracts the authenticated account stored by the auth
// middleware. Handlers behind AuthRequired can rely on it being present.
func currentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals("currentUser").(*models.User)
	return user
}

// respondError maps a service error to its HTTP status. Internal errors are
// logged server-side and answered with a generic message so no driver or
// filesystem detail leaks to the client.
func respondError(c *fiber.Ctx, err error) error {
	switch apperrors.KindOf(err) {
	case apperrors.KindValidation:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": err.Error(),
		})
	case apperrors.KindUnauthorized:
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": err.Error(),
		})
	case apperrors.KindForbidden:
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"message": err.Error(),
		})
	case apperrors.KindNotFound:
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": err.Error(),
		})
	case apperrors.KindConflict:
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"message": err.Error(),
		})
	default:
		log.Printf("internal error on %s %s: %v", c.Method(), c.Path(), err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Internal server error",
		})
	}
}

// parseIDParam reads a numeric path parameter.
func parseIDParam(c *fiber.Ctx, name string) (uint, error) {
	raw := c.Params(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, apperrors.Validation("invalid %s: %q", name, raw)
	}
	return uint(id), nil
}
