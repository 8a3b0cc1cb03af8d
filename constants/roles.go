package constants

// Realm roles recognised by the API
const (
	RoleAdmin           = "admin"
	RoleAgent           = "agent"
	RoleActivityManager = "activity-manager"
)

// BuiltinRoles are seeded on startup
var BuiltinRoles = []string{
	RoleAdmin,
	RoleAgent,
	RoleActivityManager,
}

// Queue access levels, lowest first
const (
	AccessTier1   = "Tier 1"
	AccessTier2   = "Tier 2"
	AccessManager = "Manager"
)
