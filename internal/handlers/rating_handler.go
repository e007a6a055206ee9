package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Windi-Fikriyansyah/gigmarket_be/internal/apperr"
	"github.com/Windi-Fikriyansyah/gigmarket_be/internal/middleware"
	"github.com/Windi-Fikriyansyah/gigmarket_be/internal/services/jobrequest"
	"github.com/Windi-Fikriyansyah/gigmarket_be/internal/services/rating"
)

type RatingHandler struct {
	Ratings  *rating.Service
	Requests *jobrequest.Service
}

func NewRatingHandler(ratings *rating.Service, requests *jobrequest.Service) *RatingHandler {
	return &RatingHandler{Ratings: ratings, Requests: requests}
}

type ratingBody struct {
	RatingTypeID     uint   `json:"rating_type_id"`
	RatingCategoryID uint   `json:"rating_category_id"`
	Rating           int    `json:"rating"`
	Description      string `json:"description"`
}

func (h *RatingHandler) Submit(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	var body ratingBody
	if err := c.BodyParser(&body); err != nil {
		return fail(c, apperr.New(apperr.KindInvalidInput, "invalid body"))
	}

	r, err := h.Ratings.Submit(c.UserContext(), middleware.ClientID(c), rating.SubmitInput{
		JobRequestID:     id,
		RatingTypeID:     body.RatingTypeID,
		RatingCategoryID: body.RatingCategoryID,
		Rating:           body.Rating,
		Description:      body.Description,
	})
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, r)
}

func (h *RatingHandler) List(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	req, err := h.Requests.Get(c.UserContext(), id)
	if err != nil {
		return fail(c, err)
	}
	if !isParty(c, req) {
		return fail(c, apperr.New(apperr.KindForbidden, "not a party to this job request"))
	}

	ratings, err := h.Ratings.ListRatings(c.UserContext(), id)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, ratings)
}

// RecomputeAvgRating rebuilds one client's cached average. Admin only.
func (h *RatingHandler) RecomputeAvgRating(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	avg, err := h.Ratings.RecomputeAvgRating(c.UserContext(), id)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, fiber.Map{"client_id": id, "avg_rating": avg})
}
