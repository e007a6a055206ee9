package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Windi-Fikriyansyah/gigmarket_be/internal/apperr"
	"github.com/Windi-Fikriyansyah/gigmarket_be/internal/middleware"
	"github.com/Windi-Fikriyansyah/gigmarket_be/internal/services/listing"
)

type AdHandler struct {
	Listing *listing.Service
}

func NewAdHandler(svc *listing.Service) *AdHandler {
	return &AdHandler{Listing: svc}
}

// CreateAd ignores any total sent by the caller; totals are recomputed.
func (h *AdHandler) CreateAd(c *fiber.Ctx) error {
	var in listing.AdInput
	if err := c.BodyParser(&in); err != nil {
		return fail(c, apperr.New(apperr.KindInvalidInput, "invalid body"))
	}

	ad, err := h.Listing.CreateAd(c.UserContext(), middleware.ClientID(c), in)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusCreated, ad)
}

func (h *AdHandler) GetAd(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	ad, err := h.Listing.GetAd(c.UserContext(), id)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, ad)
}

func (h *AdHandler) UpdateAdJob(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	var in listing.JobInput
	if err := c.BodyParser(&in); err != nil {
		return fail(c, apperr.New(apperr.KindInvalidInput, "invalid body"))
	}

	job, err := h.Listing.UpdateAdJob(c.UserContext(), middleware.ClientID(c), id, in)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, job)
}
