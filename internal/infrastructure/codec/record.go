package codec

import (
	"fmt"

	"github.com/99minutos/user-directory/internal/core/domain"
)

// Record is the storage shape of a user. Enums are plain strings and
// in_charge is a sorted list, so every encoding is deterministic.
type Record struct {
	ID             string   `json:"id" msgpack:"id" bson:"_id"`
	EntityType     string   `json:"entity_type" msgpack:"entity_type" bson:"entity_type"`
	FirstName      string   `json:"first_name" msgpack:"first_name" bson:"first_name"`
	LastName       string   `json:"last_name" msgpack:"last_name" bson:"last_name"`
	Gender         string   `json:"gender" msgpack:"gender" bson:"gender"`
	Roles          []string `json:"roles" msgpack:"roles" bson:"roles"`
	IsActivated    bool     `json:"is_activated" msgpack:"is_activated" bson:"is_activated"`
	ActivatedAt    int64    `json:"activated_at" msgpack:"activated_at" bson:"activated_at"`
	UpdatedAt      int64    `json:"updated_at" msgpack:"updated_at" bson:"updated_at"`
	ManagedBy      string   `json:"managed_by,omitempty" msgpack:"managed_by,omitempty" bson:"managed_by,omitempty"`
	InCharge       []string `json:"in_charge" msgpack:"in_charge" bson:"in_charge"`
	HashedPassword string   `json:"hashed_password" msgpack:"hashed_password" bson:"hashed_password"`
	Version        int64    `json:"version" msgpack:"version" bson:"version"`
}

// FromUser converts a domain record to its storage shape.
func FromUser(u *domain.UserDB) Record {
	return Record{
		ID:             u.ID,
		EntityType:     domain.EntityType,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		Gender:         string(u.Gender),
		Roles:          u.Roles.Strings(),
		IsActivated:    u.IsActivated,
		ActivatedAt:    u.ActivatedAt,
		UpdatedAt:      u.UpdatedAt,
		ManagedBy:      u.ManagedBy,
		InCharge:       u.InCharge.Sorted(),
		HashedPassword: u.HashedPassword,
		Version:        u.Version,
	}
}

// ToUser converts a stored record back to the domain. Records written for a
// different entity type are rejected.
func (r Record) ToUser() (*domain.UserDB, error) {
	if r.EntityType != "" && r.EntityType != domain.EntityType {
		return nil, fmt.Errorf("record %s has entity type %q", r.ID, r.EntityType)
	}
	roles := make([]domain.Role, len(r.Roles))
	for i, role := range r.Roles {
		roles[i] = domain.Role(role)
	}
	return &domain.UserDB{
		User: domain.User{
			ID:          r.ID,
			FirstName:   r.FirstName,
			LastName:    r.LastName,
			Gender:      domain.Gender(r.Gender),
			Roles:       domain.NewRoles(roles...),
			IsActivated: r.IsActivated,
			ActivatedAt: r.ActivatedAt,
			UpdatedAt:   r.UpdatedAt,
			ManagedBy:   r.ManagedBy,
			InCharge:    domain.NewIDSet(r.InCharge...),
		},
		HashedPassword: r.HashedPassword,
		Version:        r.Version,
	}, nil
}
