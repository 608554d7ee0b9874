package auth

import (
	"github.com/google/uuid"

	"github.com/lensbook/lensbook-backend/pkg/enums"
)

// Actor is the identity on whose behalf a domain operation runs.
type Actor struct {
	UserID uuid.UUID
	Role   enums.Role
}

// SystemActor is used by background jobs and internal callbacks.
func SystemActor() Actor {
	return Actor{Role: enums.RoleSystem}
}

// IsStaff reports whether the actor bypasses party ownership checks.
func (a Actor) IsStaff() bool {
	return a.Role == enums.RoleAdmin || a.Role == enums.RoleSystem
}

// UserIDPtr returns the user id, or nil for the system actor.
func (a Actor) UserIDPtr() *uuid.UUID {
	if a.UserID == uuid.Nil {
		return nil
	}
	id := a.UserID
	return &id
}
