package domain

import "time"

// Identity is the verified claim set attached to a request by the access guard.
// It lives for one request only.
type Identity struct {
	SubjectID    int64
	Email        string
	DisplayName  string
	Role         Role
	SessionNonce string
	IssuedAt     time.Time
	ExpiresAt    time.Time
}

// HasRole reports whether the identity carries one of the given roles.
func (i *Identity) HasRole(roles ...Role) bool {
	if i == nil {
		return false
	}
	for _, role := range roles {
		if i.Role == role {
			return true
		}
	}
	return false
}
