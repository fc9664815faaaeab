package access

import "github.com/lumiereluxe/site-backend/internal/core/domain"

// DefaultRules is the access policy of the site API.
func DefaultRules() []Rule {
	admin := Role(domain.RoleAdmin)
	return []Rule{
		{Pattern: "/api/auth", Match: Prefix, Requirement: Public},
		{Pattern: "/api/auth/change-password", Match: Exact, Requirement: admin},
		{Pattern: "/api/auth/me", Match: Exact, Requirement: Authenticated},

		{Pattern: "/api/blogs/public", Match: Prefix, Requirement: Public},
		{Pattern: "/api/bookings", Match: Exact, Requirement: Public},
		{Pattern: "/api/newsletter/subscribe", Match: Exact, Requirement: Public},
		{Pattern: "/api/contact", Match: Prefix, Requirement: Public},

		{Pattern: "/api/blogs/admin", Match: Prefix, Requirement: admin},
		{Pattern: "/api/bookings/admin", Match: Prefix, Requirement: admin},
		{Pattern: "/api/newsletter/admin", Match: Prefix, Requirement: admin},
		{Pattern: "/api/admin", Match: Prefix, Requirement: admin},

		{Pattern: "/health", Match: Prefix, Requirement: Public},
		{Pattern: "/swagger", Match: Prefix, Requirement: Public},
		{Pattern: "/metrics", Match: Exact, Method: "GET", Requirement: Public},
	}
}

// DefaultTable builds a Table from DefaultRules.
func DefaultTable() *Table {
	return NewTable(DefaultRules()...)
}
