package domain

import "strings"

// UserPatch holds one optional slot per mutable field. A nil slot keeps the
// current value. InCharge replaces the whole set; AddInCharge and
// RemoveInCharge are applied on top of it as deltas.
type UserPatch struct {
	FirstName   *string
	LastName    *string
	Gender      *Gender
	Roles       []Role
	IsActivated *bool
	Password    *string
	// ManagedBy set to "" clears the manager.
	ManagedBy *string
	// InCharge is only applied when ReplaceInCharge is set, so that an empty
	// replacement can be told apart from an absent one.
	InCharge        []string
	ReplaceInCharge bool
	AddInCharge     []string
	RemoveInCharge  []string
}

// IsEmpty reports whether applying the patch could not change anything.
func (p UserPatch) IsEmpty() bool {
	return p.FirstName == nil &&
		p.LastName == nil &&
		p.Gender == nil &&
		p.Roles == nil &&
		p.IsActivated == nil &&
		p.Password == nil &&
		p.ManagedBy == nil &&
		!p.ReplaceInCharge &&
		len(p.AddInCharge) == 0 &&
		len(p.RemoveInCharge) == 0
}

// Apply merges the patch over u and returns the result. u is left untouched.
// The password slot is ignored here; hashing belongs to the service.
func (p UserPatch) Apply(u User) User {
	next := *u.Clone()

	if p.FirstName != nil {
		next.FirstName = strings.TrimSpace(*p.FirstName)
	}
	if p.LastName != nil {
		next.LastName = strings.TrimSpace(*p.LastName)
	}
	if p.Gender != nil {
		next.Gender = *p.Gender
	}
	if p.Roles != nil {
		next.Roles = NewRoles(p.Roles...)
	}
	if p.IsActivated != nil {
		next.IsActivated = *p.IsActivated
	}
	if p.ManagedBy != nil {
		next.ManagedBy = strings.TrimSpace(*p.ManagedBy)
	}
	if p.ReplaceInCharge {
		next.InCharge = NewIDSet(p.InCharge...)
	}
	for _, id := range p.AddInCharge {
		if id != "" {
			next.InCharge.Add(id)
		}
	}
	for _, id := range p.RemoveInCharge {
		next.InCharge.Remove(id)
	}
	return next
}
