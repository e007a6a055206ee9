package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Windi-Fikriyansyah/gigmarket_be/internal/middleware"
	"github.com/Windi-Fikriyansyah/gigmarket_be/internal/services/escrow"
)

type PaymentHandler struct {
	Escrow *escrow.Service
}

func NewPaymentHandler(svc *escrow.Service) *PaymentHandler {
	return &PaymentHandler{Escrow: svc}
}

// ListMine returns payments the caller made or received.
func (h *PaymentHandler) ListMine(c *fiber.Ctx) error {
	pays, err := h.Escrow.ListPayments(c.UserContext(), middleware.ClientID(c))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, pays)
}
