package auth

// Known OAuth scopes used by the challenge services.
const (
	ScopeActivitiesWrite   = "activities:write"
	ScopeActivitiesRead    = "activities:read"
	ScopeReportsRead       = "reports:read"
	ScopeParticipantsWrite = "participants:write"
	ScopeCategoriesWrite   = "categories:write"
	ScopeBonusesRead       = "bonuses:read"
	ScopeBonusesAward      = "bonuses:award"
)

// RoleAdmin is the role claim carried by challenge administrators.
const RoleAdmin = "admin"

// Allowed reports whether claims grant scope. Administrators hold every scope.
func Allowed(claims *Claims, scope string) bool {
	if claims == nil {
		return false
	}
	return claims.Role == RoleAdmin || claims.HasScope(scope)
}

// ActsFor reports whether claims may act on behalf of participantID.
func ActsFor(claims *Claims, participantID string) bool {
	if claims == nil {
		return false
	}
	return claims.Role == RoleAdmin || claims.Subject == participantID
}
