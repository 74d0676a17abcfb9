package auth

import (
	"github.com/gofiber/fiber/v2"

	apperrors "github.com/opsdesk/ticket-service/pkg/util"
)

// Role is the caller's role claim, issued by the external identity provider.
type Role string

const (
	// RoleCustomer raises and closes their own tickets.
	RoleCustomer Role = "CUSTOMER"
	// RoleAgent raises tickets on behalf of customers and performs triage.
	RoleAgent Role = "AGENT"
	// RoleEngineer works assigned tickets through the lifecycle.
	RoleEngineer Role = "ENGINEER"
	// RoleAdmin manages reference data and the status escape hatch.
	RoleAdmin Role = "ADMIN"
	// RoleService is for trusted service-to-service callbacks (feedback).
	RoleService Role = "SERVICE"
)

// RequireRole ensures the authenticated principal holds one of the allowed
// roles.
func RequireRole(allowed ...Role) fiber.Handler {
	allowedSet := make(map[Role]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		if _, exists := allowedSet[principal.Role]; !exists {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}
