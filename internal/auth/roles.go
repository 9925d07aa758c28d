package auth

import "github.com/spec-kit/taskflow/internal/domain"

// RoutePolicy is the per-route access configuration consumed by Guard.Protect.
type RoutePolicy struct {
	Public bool
	Roles  []domain.Role
}

// Public lets a route through without looking at credentials.
func Public() RoutePolicy {
	return RoutePolicy{Public: true}
}

// Authenticated requires a live credential of any role.
func Authenticated() RoutePolicy {
	return RoutePolicy{}
}

// RequireRole requires a live credential carrying one of roles.
func RequireRole(roles ...domain.Role) RoutePolicy {
	return RoutePolicy{Roles: roles}
}

// Permits reports whether identity satisfies the role requirement.
func (p RoutePolicy) Permits(identity *domain.Identity) bool {
	if p.Public {
		return true
	}
	if identity == nil {
		return false
	}
	if len(p.Roles) == 0 {
		return true
	}
	return identity.HasRole(p.Roles...)
}
