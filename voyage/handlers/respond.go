package handlers

import (
	"log/slog"
	"math"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/voyagelabs/voyage-server/voyage/engine"
)

func sendSuccess(c *fiber.Ctx, data interface{}) error {
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"success": true,
		"data":    data,
	})
}

func sendError(c *fiber.Ctx, statusCode int, code, message string) error {
	return c.Status(statusCode).JSON(fiber.Map{
		"success": false,
		"error": fiber.Map{
			"code":    code,
			"message": message,
		},
	})
}

// sendDomainError maps the error taxonomy onto HTTP statuses.
// Contention responses carry retry guidance; anything unclassified is
// a 500 with no internals leaked.
func sendDomainError(c *fiber.Ctx, err error) error {
	de, ok := engine.AsDomain(err)
	if !ok {
		slog.Error("Unhandled error",
			slog.String("type", "error"),
			slog.String("path", c.Path()),
			slog.String("error", err.Error()))
		return sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "something went wrong")
	}

	switch de.Kind {
	case engine.KindValidation:
		return sendError(c, http.StatusBadRequest, "VALIDATION", de.Msg)
	case engine.KindConflict:
		return sendError(c, http.StatusConflict, "CONFLICT", de.Msg)
	case engine.KindContention:
		retryAfter := int64(math.Ceil(de.RetryAfter.Seconds()))
		if retryAfter < 1 {
			retryAfter = 1
		}
		return c.Status(http.StatusTooManyRequests).JSON(fiber.Map{
			"success": false,
			"error": fiber.Map{
				"code":                "CONTENTION",
				"message":             de.Msg,
				"retry_after_seconds": retryAfter,
			},
		})
	case engine.KindCollaborator:
		return sendError(c, http.StatusBadGateway, "COLLABORATOR", de.Msg)
	default:
		return sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", de.Msg)
	}
}
