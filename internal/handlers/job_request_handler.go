package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/gigmarket_be/internal/apperr"
	"github.com/Windi-Fikriyansyah/gigmarket_be/internal/middleware"
	"github.com/Windi-Fikriyansyah/gigmarket_be/internal/models"
	"github.com/Windi-Fikriyansyah/gigmarket_be/internal/services/jobrequest"
)

type JobRequestHandler struct {
	Requests *jobrequest.Service
}

func NewJobRequestHandler(svc *jobrequest.Service) *JobRequestHandler {
	return &JobRequestHandler{Requests: svc}
}

type createRequestBody struct {
	AdJobID string `json:"ad_job_id"`
}

type transitionBody struct {
	RequestStateRefID uint `json:"request_state_ref_id"`
}

func (h *JobRequestHandler) Create(c *fiber.Ctx) error {
	var body createRequestBody
	if err := c.BodyParser(&body); err != nil {
		return fail(c, apperr.New(apperr.KindInvalidInput, "invalid body"))
	}
	jobID, err := uuid.Parse(body.AdJobID)
	if err != nil {
		return fail(c, apperr.New(apperr.KindInvalidInput, "invalid ad_job_id"))
	}

	req, err := h.Requests.Create(c.UserContext(), middleware.ClientID(c), jobID)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusCreated, req)
}

func (h *JobRequestHandler) ListMine(c *fiber.Ctx) error {
	reqs, err := h.Requests.ListByClient(c.UserContext(), middleware.ClientID(c))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, reqs)
}

// ListIncoming returns requests made on the caller's ads.
func (h *JobRequestHandler) ListIncoming(c *fiber.Ctx) error {
	reqs, err := h.Requests.ListByAdOwner(c.UserContext(), middleware.ClientID(c))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, reqs)
}

func (h *JobRequestHandler) Get(c *fiber.Ctx) error {
	req, err := h.loadForParty(c)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, req)
}

// Transition is reserved for the ad owner and admins.
func (h *JobRequestHandler) Transition(c *fiber.Ctx) error {
	req, err := h.loadForParty(c)
	if err != nil {
		return fail(c, err)
	}
	if !isAdmin(c) && !isAdOwner(c, req) {
		return fail(c, apperr.New(apperr.KindForbidden, "only the ad owner can change the state of a job request"))
	}
	var body transitionBody
	if err := c.BodyParser(&body); err != nil || body.RequestStateRefID == 0 {
		return fail(c, apperr.New(apperr.KindInvalidInput, "request_state_ref_id is required"))
	}

	st, err := h.Requests.Transition(c.UserContext(), req.ID, body.RequestStateRefID)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusCreated, st)
}

func (h *JobRequestHandler) Cancel(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	if err := h.Requests.Cancel(c.UserContext(), id, middleware.ClientID(c)); err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, fiber.Map{"id": id})
}

// loadForParty loads :id and checks the caller is its requester, the ad
// owner, or an admin.
func (h *JobRequestHandler) loadForParty(c *fiber.Ctx) (*models.JobRequest, error) {
	id, err := paramUUID(c, "id")
	if err != nil {
		return nil, err
	}
	req, err := h.Requests.Get(c.UserContext(), id)
	if err != nil {
		return nil, err
	}
	if !isParty(c, req) {
		return nil, apperr.New(apperr.KindForbidden, "not a party to this job request")
	}
	return req, nil
}

func isParty(c *fiber.Ctx, req *models.JobRequest) bool {
	if isAdmin(c) {
		return true
	}
	return req.ClientID == middleware.ClientID(c) || isAdOwner(c, req)
}

func isAdOwner(c *fiber.Ctx, req *models.JobRequest) bool {
	return req.AdJob != nil && req.AdJob.Ad != nil && req.AdJob.Ad.ClientID == middleware.ClientID(c)
}
