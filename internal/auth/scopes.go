package auth

// Known OAuth scopes used by the gamification endpoints.
const (
	ScopeGamificationWrite = "gamification:write"
	ScopeGamificationRead  = "gamification:read"
)
