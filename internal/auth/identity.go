// Package auth carries the caller's identity into service operations. Services
// receive an Identity argument and decide themselves whether the role may act.
package auth

import (
	"context"
	"errors"
)

type Role string

const (
	RolePatient     Role = "patient"
	RoleClinicStaff Role = "clinic_staff"
)

var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("operation not permitted for this role")
)

func (r Role) Valid() bool {
	return r == RolePatient || r == RoleClinicStaff
}

// Identity is the authenticated caller.
type Identity struct {
	UserID int64
	Role   Role
}

func (i Identity) IsStaff() bool {
	return i.Role == RoleClinicStaff
}

// RequireStaff fails with ErrForbidden unless the caller is clinic staff.
func (i Identity) RequireStaff() error {
	if !i.Role.Valid() || i.UserID <= 0 {
		return ErrUnauthenticated
	}
	if !i.IsStaff() {
		return ErrForbidden
	}
	return nil
}

// CanActFor reports whether the caller may read or write data that belongs to patientID.
func (i Identity) CanActFor(patientID int64) bool {
	return i.IsStaff() || (i.Role == RolePatient && i.UserID == patientID)
}

type contextKey string

const identityKey contextKey = "identity"

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}
