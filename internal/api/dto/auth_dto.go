package dto

import (
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	minPasswordLength = 6
	maxNameLength     = 100
)

// RegisterRequest payload for new accounts.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// Validate returns per-field problems, or nil.
func (r RegisterRequest) Validate() map[string]any {
	problems := map[string]any{}
	if !validEmail(r.Email) {
		problems["email"] = "must be a valid email address"
	}
	if utf8.RuneCountInString(r.Password) < minPasswordLength {
		problems["password"] = "must be at least 6 characters"
	}
	name := strings.TrimSpace(r.Name)
	if name == "" || utf8.RuneCountInString(name) > maxNameLength {
		problems["name"] = "must be between 1 and 100 characters"
	}
	if len(problems) == 0 {
		return nil
	}
	return problems
}

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate returns per-field problems, or nil.
func (r LoginRequest) Validate() map[string]any {
	problems := map[string]any{}
	if !validEmail(r.Email) {
		problems["email"] = "must be a valid email address"
	}
	if r.Password == "" {
		problems["password"] = "is required"
	}
	if len(problems) == 0 {
		return nil
	}
	return problems
}

// LoginResponse is returned by a successful login.
type LoginResponse struct {
	AccessToken string       `json:"access_token"`
	ExpiresAt   time.Time    `json:"expires_at"`
	User        UserResponse `json:"user"`
}

// MessageResponse carries a human readable outcome.
type MessageResponse struct {
	Message string `json:"message"`
}

// validEmail accepts a bare addr-spec only, not "Name <addr>".
func validEmail(value string) bool {
	value = strings.TrimSpace(value)
	if value == "" {
		return false
	}
	addr, err := mail.ParseAddress(value)
	if err != nil {
		return false
	}
	return addr.Address == value && addr.Name == ""
}
