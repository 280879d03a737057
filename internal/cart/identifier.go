package cart

import (
	"github.com/google/uuid"
)

type ownerKind int

const (
	ownerUser ownerKind = iota
	ownerGuest
)

// Identifier names a cart owner. Authenticated owners get a durable
// snapshot fallback; guest owners are cache-only.
type Identifier struct {
	kind    ownerKind
	userID  uuid.UUID
	guestID string
}

// UserIdentifier builds the identifier for an authenticated buyer.
func UserIdentifier(userID uuid.UUID) Identifier {
	return Identifier{kind: ownerUser, userID: userID}
}

// GuestIdentifier builds the identifier for a client-held guest token.
func GuestIdentifier(token string) Identifier {
	return Identifier{kind: ownerGuest, guestID: token}
}

// IsGuest reports whether the owner is a guest token.
func (i Identifier) IsGuest() bool {
	return i.kind == ownerGuest
}

// UserID returns the authenticated owner id and whether one exists.
func (i Identifier) UserID() (uuid.UUID, bool) {
	if i.kind != ownerUser {
		return uuid.Nil, false
	}
	return i.userID, true
}

// Valid reports whether the identifier carries an owner at all.
func (i Identifier) Valid() bool {
	switch i.kind {
	case ownerUser:
		return i.userID != uuid.Nil
	case ownerGuest:
		return i.guestID != ""
	}
	return false
}
