package middleware

import (
	"errors"
	"time"

	"boardroom/utils"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandler renders every error as the standard envelope. Typed
// application errors keep their kind; fiber errors keep their status.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(utils.ErrorEnvelope{
			StatusCode: fe.Code,
			Message:    fe.Message,
			Error:      httpKind(fe.Code),
			Path:       c.Path(),
			Timestamp:  time.Now().UTC().Format(time.RFC3339),
		})
	}

	env := utils.NewErrorEnvelope(err, c.Path())
	if utils.KindOf(err) == utils.KindInternal {
		utils.LogError("http_request_failed", err, map[string]interface{}{
			"method":  c.Method(),
			"path":    c.Path(),
			"user_id": CurrentUserID(c),
		})
	}
	return c.Status(env.StatusCode).JSON(env)
}

func httpKind(status int) string {
	switch status {
	case fiber.StatusUnauthorized:
		return string(utils.KindAuthentication)
	case fiber.StatusForbidden:
		return string(utils.KindAuthorization)
	case fiber.StatusNotFound:
		return string(utils.KindNotFound)
	case fiber.StatusBadRequest, fiber.StatusUnprocessableEntity, fiber.StatusRequestEntityTooLarge:
		return string(utils.KindValidation)
	case fiber.StatusConflict:
		return string(utils.KindConflict)
	}
	if status >= 500 {
		return string(utils.KindInternal)
	}
	return "REQUEST_ERROR"
}
