package handlers

import (
	"errors"

	"casedesk/internal/adapters/http/middleware"
	"casedesk/internal/core/domain"
	"casedesk/internal/core/services"
	"casedesk/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// writeError maps a service error onto the response envelope. action names
// the failed operation in 500 responses.
func writeError(c *fiber.Ctx, err error, action string) error {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   verr.Error(),
			"field":   verr.Field,
		})
	}

	var rej *domain.Rejection
	if errors.As(err, &rej) {
		return response.Rejected(c, rejectionStatus(rej.Reason), string(rej.Reason), rej.Error())
	}

	switch {
	case errors.Is(err, domain.ErrCaseNotFound):
		return response.NotFound(c, "Case not found")
	case errors.Is(err, domain.ErrUserNotFound):
		return response.NotFound(c, "User not found")
	case errors.Is(err, domain.ErrNotFound):
		return response.NotFound(c, "Resource not found")
	case errors.Is(err, services.ErrEmailAlreadyExists):
		return response.Conflict(c, "Email already exists")
	case errors.Is(err, domain.ErrDuplicateEntry):
		return response.Conflict(c, "Case number already exists")
	}

	return response.InternalServerError(c, "Failed to "+action)
}

func rejectionStatus(reason domain.RejectionReason) int {
	switch reason {
	case domain.ReasonUnauthorized, domain.ReasonCrossTenantDenied:
		return fiber.StatusForbidden
	default:
		return fiber.StatusConflict
	}
}

// actorOf returns the actor resolved by the auth middleware
func actorOf(c *fiber.Ctx) (domain.Actor, error) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return domain.Actor{}, fiber.NewError(fiber.StatusUnauthorized, "Unauthorized")
	}
	return actor, nil
}
