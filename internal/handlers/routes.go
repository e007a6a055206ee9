package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/gigmarket_be/internal/middleware"
	"github.com/Windi-Fikriyansyah/gigmarket_be/internal/models"
	"github.com/Windi-Fikriyansyah/gigmarket_be/internal/realtime"
	"github.com/Windi-Fikriyansyah/gigmarket_be/internal/services/escrow"
	"github.com/Windi-Fikriyansyah/gigmarket_be/internal/services/jobrequest"
	"github.com/Windi-Fikriyansyah/gigmarket_be/internal/services/listing"
	"github.com/Windi-Fikriyansyah/gigmarket_be/internal/services/rating"
)

type Deps struct {
	DB        *gorm.DB
	Listing   *listing.Service
	Requests  *jobrequest.Service
	Ratings   *rating.Service
	Escrow    *escrow.Service
	Hub       *realtime.Hub
	Log       *slog.Logger
	JWTSecret string
}

func Routes(app *fiber.App, d Deps) {
	adH := NewAdHandler(d.Listing)
	reqH := NewJobRequestHandler(d.Requests)
	rateH := NewRatingHandler(d.Ratings, d.Requests)
	payH := NewPaymentHandler(d.Escrow)
	wsH := NewRealtimeHandler(d.Hub, d.Log)

	api := app.Group("/api")

	// public
	api.Get("/health", func(c *fiber.Ctx) error {
		sqlDB, err := d.DB.DB()
		if err == nil {
			err = sqlDB.PingContext(c.UserContext())
		}
		if err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"success": false, "message": "database unavailable"})
		}
		return ok(c, fiber.StatusOK, fiber.Map{"status": "ok"})
	})

	// protected (JWT)
	protected := api.Group("/", middleware.JWTFromCookie(d.JWTSecret))

	protected.Post("/ads", adH.CreateAd)
	protected.Get("/ads/:id", adH.GetAd)
	protected.Put("/ad-jobs/:id", adH.UpdateAdJob)

	protected.Post("/job-requests", reqH.Create)
	protected.Get("/job-requests/mine", reqH.ListMine)
	protected.Get("/job-requests/incoming", reqH.ListIncoming)
	protected.Get("/job-requests/:id", reqH.Get)
	protected.Post("/job-requests/:id/states", reqH.Transition)
	protected.Delete("/job-requests/:id", reqH.Cancel)

	protected.Post("/job-requests/:id/ratings", rateH.Submit)
	protected.Get("/job-requests/:id/ratings", rateH.List)

	protected.Get("/payments/mine", payH.ListMine)

	// admin only
	protected.Post("/admin/clients/:id/avg-rating",
		middleware.RequireRoles(string(models.RoleAdmin)),
		rateH.RecomputeAvgRating,
	)

	// websocket, authenticated by the same cookie before the upgrade
	app.Get("/ws/requests",
		middleware.JWTFromCookie(d.JWTSecret),
		wsH.Upgrade,
		websocket.New(wsH.Stream),
	)
}
