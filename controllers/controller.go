// Package controller holds the HTTP handlers. Handlers parse input, call a
// service and render the result; authorization guards run as route
// middleware and failures are rendered by the app's error handler.
package controller

import (
	"boardroom/middleware"
	"boardroom/utils"

	"github.com/gofiber/fiber/v2"
)

func parseBody(c *fiber.Ctx, out interface{}) error {
	if err := c.BodyParser(out); err != nil {
		return utils.Validation("invalid request body")
	}
	return nil
}

func currentUserID(c *fiber.Ctx) string {
	return middleware.CurrentUserID(c)
}

func created(c *fiber.Ctx, data interface{}) error {
	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(data))
}

func ok(c *fiber.Ctx, data interface{}) error {
	return c.JSON(utils.SuccessResponse(data))
}
