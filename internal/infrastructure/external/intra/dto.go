package intra

import (
	"fmt"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// DATA TRANSFER OBJECTS
// Wire shapes of the 42 Intra API. Kept separate from domain types; the
// mapper converts between the two.
// ══════════════════════════════════════════════════════════════════════════════

// TokenDTO is the OAuth2 token response from /oauth/token.
type TokenDTO struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Scope       string `json:"scope"`
	CreatedAt   int64  `json:"created_at"`

	// ObtainedAt is set client-side when the token is received.
	ObtainedAt time.Time `json:"-"`
}

// IsExpired reports whether the token is past (or within 30s of) expiry.
func (t *TokenDTO) IsExpired() bool {
	if t == nil || t.AccessToken == "" {
		return true
	}
	expiry := t.ObtainedAt.Add(time.Duration(t.ExpiresIn) * time.Second)
	return time.Now().After(expiry.Add(-30 * time.Second))
}

// UserDTO is a 42 Intra user record from /v2/users/:login.
type UserDTO struct {
	ID          int      `json:"id"`
	Login       string   `json:"login"`
	Email       string   `json:"email"`
	DisplayName string   `json:"displayname"`
	Kind        string   `json:"kind"`
	Staff       bool     `json:"staff?"`
	Active      bool     `json:"active?"`
	Image       ImageDTO `json:"image"`
	CursusUsers []CursusUserDTO `json:"cursus_users"`
}

// ImageDTO holds the user's avatar links.
type ImageDTO struct {
	Link string `json:"link"`
}

// CursusUserDTO is the user's enrollment in one cursus.
type CursusUserDTO struct {
	Level  float64   `json:"level"`
	Grade  string    `json:"grade"`
	Cursus CursusDTO `json:"cursus"`
	BeginAt time.Time `json:"begin_at"`
}

// CursusDTO identifies a cursus.
type CursusDTO struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// APIErrorDTO is the error shape the Intra API returns on 4xx/5xx.
type APIErrorDTO struct {
	Status           int    `json:"status"`
	ErrorCode        string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Message          string `json:"message"`
}

// Error implements the error interface.
func (e *APIErrorDTO) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("intra api error %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("intra api error %d: %s %s", e.Status, e.ErrorCode, e.ErrorDescription)
}
