// Package http exposes the sync and forecast services over fiber.
package http

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/gpopzrawproduction-afk/MbarieIntelligenceConsole-sub001/pkg/apperr"
)

var ErrUnauthorized = errors.New("unauthorized")

// GetUserID extracts the authenticated user id placed by the auth
// middleware.
func GetUserID(c *fiber.Ctx) (uuid.UUID, error) {
	userIDVal := c.Locals("user_id")
	if userIDVal == nil {
		return uuid.Nil, ErrUnauthorized
	}
	userID, ok := userIDVal.(uuid.UUID)
	if !ok {
		return uuid.Nil, ErrUnauthorized
	}
	return userID, nil
}

// respondOK wraps a payload in the standard response envelope.
func respondOK(c *fiber.Ctx, data any) error {
	return c.JSON(fiber.Map{
		"success":   true,
		"data":      data,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// respondError maps an error to its HTTP status via the apperr taxonomy.
func respondError(c *fiber.Ctx, err error) error {
	status := apperr.HTTPStatus(err)
	code := apperr.CodeInternal
	message := "internal error"
	if appErr, ok := apperr.As(err); ok {
		code = appErr.Code
		message = appErr.Message
	}
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error": fiber.Map{
			"code":    code,
			"message": message,
		},
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
