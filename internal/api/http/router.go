package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/taskflow/internal/api/http/handlers"
	"github.com/spec-kit/taskflow/internal/auth"
	"github.com/spec-kit/taskflow/internal/domain"
	"github.com/spec-kit/taskflow/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health  *handlers.HealthHandler
	Auth    *handlers.AuthHandler
	Users   *handlers.UsersHandler
	Tasks   *handlers.TasksHandler
	Guard   *auth.Guard
	Metrics *observability.Metrics
}

// Route is one entry of the route table. Policy is enforced by the guard
// before Handler runs.
type Route struct {
	Method  string
	Path    string
	Policy  auth.RoutePolicy
	Handler fiber.Handler
}

// Routes returns the route table.
func Routes(cfg RouteConfig) []Route {
	return []Route{
		{fiber.MethodGet, "/health/live", auth.Public(), cfg.Health.Live},
		{fiber.MethodGet, "/health/ready", auth.Public(), cfg.Health.Ready},
		{fiber.MethodGet, "/metrics", auth.Public(), adaptor.HTTPHandler(cfg.Metrics.Handler())},

		{fiber.MethodPost, "/auth/register", auth.Public(), cfg.Auth.Register},
		{fiber.MethodPost, "/auth/login", auth.Public(), cfg.Auth.Login},
		{fiber.MethodPost, "/auth/logout", auth.Authenticated(), cfg.Auth.Logout},
		{fiber.MethodGet, "/auth/me", auth.Authenticated(), cfg.Auth.Me},

		{fiber.MethodGet, "/users", auth.RequireRole(domain.RoleAdmin), cfg.Users.List},
		{fiber.MethodGet, "/users/:id", auth.Authenticated(), cfg.Users.Get},
		{fiber.MethodPatch, "/users/:id/role", auth.RequireRole(domain.RoleAdmin), cfg.Users.UpdateRole},

		{fiber.MethodPost, "/tasks", auth.RequireRole(domain.RoleAdmin), cfg.Tasks.Create},
		{fiber.MethodGet, "/tasks", auth.Authenticated(), cfg.Tasks.List},
		{fiber.MethodGet, "/tasks/:id", auth.Authenticated(), cfg.Tasks.Get},
		{fiber.MethodPatch, "/tasks/:id", auth.Authenticated(), cfg.Tasks.Update},
		{fiber.MethodDelete, "/tasks/:id", auth.RequireRole(domain.RoleAdmin), cfg.Tasks.Delete},
		{fiber.MethodPatch, "/tasks/:id/assign", auth.RequireRole(domain.RoleAdmin), cfg.Tasks.Assign},
	}
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	for _, r := range Routes(cfg) {
		app.Add(r.Method, r.Path, cfg.Guard.Protect(r.Policy), r.Handler)
	}
}
