package handlers

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/gigmarket_be/internal/apperr"
	"github.com/Windi-Fikriyansyah/gigmarket_be/internal/middleware"
	"github.com/Windi-Fikriyansyah/gigmarket_be/internal/models"
)

var statusByKind = map[apperr.Kind]int{
	apperr.KindDuplicateRequest:  fiber.StatusConflict,
	apperr.KindInvalidTransition: fiber.StatusConflict,
	apperr.KindInvalidOperation:  fiber.StatusConflict,
	apperr.KindConflict:          fiber.StatusConflict,
	apperr.KindNotFound:          fiber.StatusNotFound,
	apperr.KindForbidden:         fiber.StatusForbidden,
	apperr.KindInvalidInput:      fiber.StatusBadRequest,
	apperr.KindNoEscrowFound:     fiber.StatusInternalServerError,
}

// StatusOf maps an error kind to its HTTP status.
func StatusOf(kind apperr.Kind) int {
	if s, ok := statusByKind[kind]; ok {
		return s
	}
	return fiber.StatusInternalServerError
}

func fail(c *fiber.Ctx, err error) error {
	kind := apperr.KindOf(err)
	status := StatusOf(kind)

	msg := "internal server error"
	var ae *apperr.Error
	if errors.As(err, &ae) && kind != apperr.KindInternal {
		msg = ae.Message
	}
	if status >= fiber.StatusInternalServerError {
		slog.Error("request failed", "method", c.Method(), "path", c.Path(), "kind", kind, "err", err)
	}

	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"message": msg,
		"code":    kind,
	})
}

func ok(c *fiber.Ctx, status int, data any) error {
	return c.Status(status).JSON(fiber.Map{
		"success": true,
		"data":    data,
	})
}

func paramUUID(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, apperr.Newf(apperr.KindInvalidInput, "invalid %s", name)
	}
	return id, nil
}

func isAdmin(c *fiber.Ctx) bool {
	return middleware.Role(c) == string(models.RoleAdmin)
}

// ErrorHandler renders errors that escape handlers and middleware, such as
// fiber.ErrUnauthorized, in the same envelope as handler errors.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{
			"success": false,
			"message": fe.Message,
		})
	}
	return fail(c, err)
}
