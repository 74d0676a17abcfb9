package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/opsdesk/ticket-service/internal/api/http/handlers"
	"github.com/opsdesk/ticket-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Tickets        *handlers.TicketsHandler
	SLAs           *handlers.SLAHandler
	Categories     *handlers.CategoryHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api", cfg.AuthMiddleware.Handle)

	tickets := api.Group("/tickets")
	tickets.Post("/", auth.RequireRole(auth.RoleCustomer), cfg.Tickets.CreateTicket)
	tickets.Post("/on-behalf", auth.RequireRole(auth.RoleAgent, auth.RoleAdmin), cfg.Tickets.CreateTicketFor)
	tickets.Post("/triage/suggest", auth.RequireRole(auth.RoleAgent, auth.RoleAdmin), cfg.Tickets.TriageSuggest)

	tickets.Get("/mine", auth.RequireRole(auth.RoleCustomer), cfg.Tickets.ListMyTickets)
	tickets.Get("/assigned", auth.RequireRole(auth.RoleEngineer), cfg.Tickets.ListAssignedTickets)
	tickets.Get("/new", auth.RequireRole(auth.RoleAgent, auth.RoleAdmin), cfg.Tickets.ListNewTickets)

	tickets.Get("/:id", auth.RequireRole(), cfg.Tickets.GetTicket)
	tickets.Get("/:id/assignment-log", auth.RequireRole(auth.RoleAgent, auth.RoleEngineer, auth.RoleAdmin), cfg.Tickets.ListAssignmentLog)
	tickets.Get("/:id/action-log", auth.RequireRole(auth.RoleAgent, auth.RoleEngineer, auth.RoleAdmin), cfg.Tickets.ListActionLog)

	tickets.Post("/:id/triage", auth.RequireRole(auth.RoleAgent, auth.RoleAdmin), cfg.Tickets.TriageAssign)
	tickets.Post("/:id/assign", auth.RequireRole(auth.RoleAgent, auth.RoleAdmin), cfg.Tickets.AssignTicket)
	tickets.Post("/:id/reassign", auth.RequireRole(auth.RoleAgent, auth.RoleAdmin), cfg.Tickets.ReassignTicket)
	tickets.Post("/:id/open", auth.RequireRole(auth.RoleEngineer), cfg.Tickets.OpenTicket)
	tickets.Post("/:id/hold", auth.RequireRole(auth.RoleEngineer), cfg.Tickets.HoldTicket)
	tickets.Post("/:id/resolve", auth.RequireRole(auth.RoleEngineer), cfg.Tickets.ResolveTicket)
	tickets.Post("/:id/close", auth.RequireRole(auth.RoleCustomer, auth.RoleAdmin), cfg.Tickets.CloseTicket)
	tickets.Patch("/:id/status", auth.RequireRole(auth.RoleAdmin), cfg.Tickets.UpdateTicketStatus)

	// Reopen is a trusted callback from the feedback collaborator.
	tickets.Post("/internal/:id/reopen", auth.RequireRole(auth.RoleService), cfg.Tickets.ReopenTicket)

	slas := api.Group("/slas", auth.RequireRole(auth.RoleAdmin))
	slas.Post("/", cfg.SLAs.CreateSLA)
	slas.Get("/", cfg.SLAs.ListSLAs)
	slas.Get("/:id", cfg.SLAs.GetSLA)
	slas.Put("/:id", cfg.SLAs.UpdateSLA)
	slas.Delete("/:id", cfg.SLAs.DeleteSLA)

	categories := api.Group("/categories", auth.RequireRole(auth.RoleAdmin))
	categories.Post("/", cfg.Categories.CreateCategory)
	categories.Get("/", cfg.Categories.ListCategories)
	categories.Get("/:id", cfg.Categories.GetCategory)
	categories.Put("/:id", cfg.Categories.UpdateCategory)
	categories.Delete("/:id", cfg.Categories.DeleteCategory)
}
