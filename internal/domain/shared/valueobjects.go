package shared

import (
	"strings"
	"time"
)

// ═══════════════════════════════════════════════════════════════════════════
// Identity
// ═══════════════════════════════════════════════════════════════════════════

const (
	// DefaultUserName is stored when the identity provider has no first name.
	DefaultUserName = "User"

	// DefaultUserImageSrc is stored when the identity provider has no avatar.
	DefaultUserImageSrc = "/mascot.png"
)

// UserID is the identity provider's stable subject identifier.
type UserID string

// IsValid reports whether the id is non-empty.
func (u UserID) IsValid() bool {
	return strings.TrimSpace(string(u)) != ""
}

func (u UserID) String() string {
	return string(u)
}

// Identity is the authenticated caller as resolved by the identity provider.
type Identity struct {
	UserID    UserID
	FirstName string
	ImageURL  string
}

// DisplayName returns the name to persist for this identity.
func (i Identity) DisplayName() string {
	if name := strings.TrimSpace(i.FirstName); name != "" {
		return name
	}
	return DefaultUserName
}

// ImageSrc returns the avatar to persist for this identity.
func (i Identity) ImageSrc() string {
	if src := strings.TrimSpace(i.ImageURL); src != "" {
		return src
	}
	return DefaultUserImageSrc
}

// ═══════════════════════════════════════════════════════════════════════════
// Time
// ═══════════════════════════════════════════════════════════════════════════

// Clock abstracts the current time so time-dependent rules can be tested.
type Clock interface {
	Now() time.Time
}

// SystemClock returns the real wall clock in UTC.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// FixedClock always returns the same instant.
type FixedClock time.Time

// Now returns the fixed instant.
func (c FixedClock) Now() time.Time {
	return time.Time(c)
}

