package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/paraiso-astral/gate-service/internal/api/http/handlers"
	"github.com/paraiso-astral/gate-service/internal/auth"
	"github.com/paraiso-astral/gate-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration. Tickets and
// Operators are optional.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Tickets        *handlers.TicketsHandler
	Validation     *handlers.ValidationHandler
	Operators      *handlers.OperatorsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	if cfg.Operators != nil {
		app.Post("/auth/login", cfg.Operators.Login)
	}

	api := app.Group("/api/v1", cfg.AuthMiddleware.Handle)

	if cfg.Tickets != nil {
		tickets := api.Group("/tickets", auth.RequireRole(domain.OperatorRoleIssuer))
		tickets.Post("/", cfg.Tickets.IssueTicket)
		tickets.Get("/", cfg.Tickets.ListTickets)
		tickets.Get("/:id", cfg.Tickets.GetTicket)
		tickets.Get("/:id/export", cfg.Tickets.ExportTicket)
		tickets.Post("/:id/cancel", cfg.Tickets.CancelTicket)
	}

	gate := auth.RequireRole(domain.OperatorRoleGate)
	validations := api.Group("/validations")
	validations.Post("/", gate, cfg.Validation.Validate)
	validations.Get("/stats", gate, cfg.Validation.Stats)
	validations.Get("/:ticketId/history", gate, cfg.Validation.History)
	validations.Delete("/cache", auth.RequireRole(), cfg.Validation.ClearCache)

	api.Post("/admissions/:ticketId", gate, cfg.Validation.ConfirmAdmission)

	blacklist := api.Group("/blacklist", auth.RequireRole())
	blacklist.Get("/", cfg.Validation.ListBlacklist)
	blacklist.Post("/", cfg.Validation.Revoke)
	blacklist.Post("/reload", cfg.Validation.ReloadBlacklist)

	if cfg.Operators != nil {
		operators := api.Group("/operators", auth.RequireRole())
		operators.Post("/", cfg.Operators.CreateOperator)
		operators.Patch("/:id", cfg.Operators.SetActive)
	}
}
