package handlers

import (
	"smartbite/pkg/result"

	"github.com/gofiber/fiber/v2"
)

// failureStatus maps a failure kind to an HTTP status.
func failureStatus(kind result.Kind) int {
	switch kind {
	case result.KindInvalid:
		return fiber.StatusBadRequest
	case result.KindNotFound:
		return fiber.StatusNotFound
	case result.KindForbidden:
		return fiber.StatusForbidden
	case result.KindConflict:
		return fiber.StatusConflict
	default:
		return fiber.StatusBadGateway
	}
}

// respond writes res as JSON, using okStatus on success.
func respond[T any](c *fiber.Ctx, res result.Result[T], okStatus int) error {
	if !res.Success {
		return c.Status(failureStatus(res.Kind)).JSON(res)
	}
	return c.Status(okStatus).JSON(res)
}

func badRequest(c *fiber.Ctx, message string, err error) error {
	body := fiber.Map{"success": false, "message": message}
	if err != nil {
		body["error"] = err.Error()
	}
	return c.Status(fiber.StatusBadRequest).JSON(body)
}

func serverError(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"success": false,
		"message": message,
	})
}
