package intra

import (
	"strings"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAPPER
// Converts Intra wire shapes into the small identity summary the rest of the
// system consumes.
// ══════════════════════════════════════════════════════════════════════════════

// VerifiedIdentity is the platform-confirmed identity summary used when a
// profile is created.
type VerifiedIdentity struct {
	// Login is the canonical lowercase login.
	Login string

	// DisplayName is the platform display name.
	DisplayName string

	// Email is the platform email.
	Email string

	// AvatarURL is the profile image link.
	AvatarURL string

	// Active reports whether the account is active.
	Active bool

	// Staff reports whether the account is staff.
	Staff bool

	// CursusLevel is the level in the core curriculum, 0 when not enrolled.
	CursusLevel float64

	// VerifiedAt is when the verification happened.
	VerifiedAt time.Time
}

// Mapper converts DTOs to identity summaries.
type Mapper struct{}

// NewMapper creates a new Mapper.
func NewMapper() *Mapper {
	return &Mapper{}
}

// coreCursusSlug is the main curriculum all help topics belong to.
const coreCursusSlug = "42cursus"

// VerifiedIdentityFromDTO maps a user DTO to a VerifiedIdentity.
func (m *Mapper) VerifiedIdentityFromDTO(user *UserDTO) *VerifiedIdentity {
	if user == nil {
		return nil
	}

	identity := &VerifiedIdentity{
		Login:       strings.ToLower(user.Login),
		DisplayName: user.DisplayName,
		Email:       user.Email,
		AvatarURL:   user.Image.Link,
		Active:      user.Active,
		Staff:       user.Staff,
		VerifiedAt:  time.Now().UTC(),
	}

	for _, cu := range user.CursusUsers {
		if cu.Cursus.Slug == coreCursusSlug {
			identity.CursusLevel = cu.Level
			break
		}
	}

	return identity
}
