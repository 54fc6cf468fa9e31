package domain

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// EntityType is the constant discriminator written alongside every record.
const EntityType = "User"

// Gender is the closed set of genders a user may declare.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

// Valid reports whether g is one of the known genders.
func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}

// Role grants capabilities to a user.
type Role string

const (
	RoleUser    Role = "user"
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleManager:
		return true
	}
	return false
}

// Roles is an ordered set of roles without duplicates.
type Roles []Role

// NewRoles collapses duplicates while keeping the first-seen order.
func NewRoles(rs ...Role) Roles {
	out := make(Roles, 0, len(rs))
	seen := make(map[Role]struct{}, len(rs))
	for _, r := range rs {
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}

// Has reports whether any of the given roles is held.
func (rs Roles) Has(want ...Role) bool {
	for _, r := range rs {
		for _, w := range want {
			if r == w {
				return true
			}
		}
	}
	return false
}

// Strings returns the roles as plain strings.
func (rs Roles) Strings() []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = string(r)
	}
	return out
}

// User is a directory entry. The zero value is not valid; build one with NewUser.
type User struct {
	ID          string
	FirstName   string
	LastName    string
	Gender      Gender
	Roles       Roles
	IsActivated bool
	ActivatedAt int64 // unix nanoseconds, fixed at creation
	UpdatedAt   int64 // unix nanoseconds, refreshed on every mutation
	ManagedBy   string
	InCharge    IDSet
}

// UserDB is the storage variant of User. HashedPassword and Version never
// leave the service layer.
type UserDB struct {
	User
	HashedPassword string
	// Version is the optimistic concurrency stamp. Zero means the record has
	// never been written.
	Version int64
}

// UserParams carries the raw fields used to construct a User.
type UserParams struct {
	ID          string
	FirstName   string
	LastName    string
	Gender      Gender
	Roles       []Role
	IsActivated *bool
	ManagedBy   string
	InCharge    []string
}

// NewUser builds a validated user stamped at now. A missing id is replaced
// with a fresh UUID.
func NewUser(p UserParams, now int64) (*User, error) {
	id := strings.TrimSpace(p.ID)
	if id == "" {
		id = NewID()
	}
	activated := true
	if p.IsActivated != nil {
		activated = *p.IsActivated
	}

	u := &User{
		ID:          id,
		FirstName:   strings.TrimSpace(p.FirstName),
		LastName:    strings.TrimSpace(p.LastName),
		Gender:      p.Gender,
		Roles:       NewRoles(p.Roles...),
		IsActivated: activated,
		ActivatedAt: now,
		UpdatedAt:   now,
		ManagedBy:   strings.TrimSpace(p.ManagedBy),
		InCharge:    NewIDSet(p.InCharge...),
	}
	if err := u.Validate(); err != nil {
		return nil, err
	}
	return u, nil
}

// NewID returns a fresh random user id.
func NewID() string {
	return uuid.NewString()
}

// ValidID reports whether id is a well-formed user id.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// CanSupervise reports whether the user may be referenced as somebody's
// manager: activated and holding either the manager or the admin role.
func (u *User) CanSupervise() bool {
	return u.IsActivated && u.Roles.Has(RoleManager, RoleAdmin)
}

// Validate checks shape first, then the supervision gate, then self reference.
func (u *User) Validate() error {
	if err := u.validateShape(); err != nil {
		return err
	}

	if u.InCharge.Len() > 0 {
		if !u.IsActivated {
			return NewValidationError("user %s is not activated and cannot have subordinates", u.ID)
		}
		if !u.Roles.Has(RoleManager, RoleAdmin) {
			return NewValidationError("user %s is not a manager and cannot have subordinates", u.ID)
		}
	}

	if u.InCharge.Has(u.ID) {
		return NewValidationError("user %s cannot be in charge of itself", u.ID)
	}
	if u.ManagedBy == u.ID {
		return NewValidationError("user %s cannot be managed by itself", u.ID)
	}
	if u.ManagedBy != "" && u.InCharge.Has(u.ManagedBy) {
		return NewValidationError("user %s cannot be both manager and subordinate of %s", u.ManagedBy, u.ID)
	}
	return nil
}

func (u *User) validateShape() error {
	if !ValidID(u.ID) {
		return NewValidationError("id %q is not a valid UUID", u.ID)
	}
	if u.FirstName == "" {
		return NewValidationError("first_name is required")
	}
	if !u.Gender.Valid() {
		return NewValidationError("gender %q must be one of: male female other", u.Gender)
	}
	if len(u.Roles) == 0 {
		return NewValidationError("at least one role is required")
	}
	for _, r := range u.Roles {
		if !r.Valid() {
			return NewValidationError("role %q must be one of: user admin manager", r)
		}
	}
	if u.ManagedBy != "" && !ValidID(u.ManagedBy) {
		return NewValidationError("managed_by %q is not a valid UUID", u.ManagedBy)
	}
	for id := range u.InCharge {
		if !ValidID(id) {
			return NewValidationError("in_charge entry %q is not a valid UUID", id)
		}
	}
	return nil
}

// Clone returns a deep copy, so callers can mutate the result freely.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.Roles = append(Roles(nil), u.Roles...)
	c.InCharge = u.InCharge.Clone()
	return &c
}

// Clone returns a deep copy of the storage record.
func (u *UserDB) Clone() *UserDB {
	if u == nil {
		return nil
	}
	return &UserDB{User: *u.User.Clone(), HashedPassword: u.HashedPassword, Version: u.Version}
}

func (u *User) String() string {
	return fmt.Sprintf("User(%s)", u.ID)
}
