package utils

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// Pointer returns a pointer to the given value
func Pointer[T any](v T) *T {
	return &v
}

// SuccessResponse creates a standardized success response
func SuccessResponse(data interface{}) fiber.Map {
	return fiber.Map{
		"success": true,
		"data":    data,
	}
}

// ErrorEnvelope is the body every failed HTTP request receives.
type ErrorEnvelope struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Error      string `json:"error"`
	Path       string `json:"path"`
	Timestamp  string `json:"timestamp"`
}

// NewErrorEnvelope builds the envelope for err on path.
func NewErrorEnvelope(err error, path string) ErrorEnvelope {
	kind := KindOf(err)
	return ErrorEnvelope{
		StatusCode: kind.HTTPStatus(),
		Message:    PublicMessage(err),
		Error:      string(kind),
		Path:       path,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}
}
