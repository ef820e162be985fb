package controllers

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/Monsoft-Solutions/adfluens-app-sub003/internal/pkg/usercontext"
)

var validate = validator.New()

// requireOrg returns the caller's organization ID or writes a 401 and
// returns false when the session carries none.
func requireOrg(c *fiber.Ctx) (uint, bool) {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn || userCtx.OrganizationID == 0 {
		_ = c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing or invalid authentication"})
		return 0, false
	}
	return userCtx.OrganizationID, true
}
