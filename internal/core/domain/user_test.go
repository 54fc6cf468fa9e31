package domain

import (
	"errors"
	"testing"
)

const (
	subID   = "f01797e9-4c6d-4e81-ac98-3db79bb29b32"
	otherID = "0b9b4a3c-5f7e-4c39-9d43-3c5e2f7d1a10"
)

func boolPtr(b bool) *bool { return &b }

func TestNewUser_Defaults(t *testing.T) {
	u, err := NewUser(UserParams{FirstName: "Test1", Gender: GenderMale, Roles: []Role{RoleUser}}, 42)
	if err != nil {
		t.Fatalf("NewUser returned error: %v", err)
	}
	if !ValidID(u.ID) {
		t.Fatalf("expected generated UUID, got %q", u.ID)
	}
	if !u.IsActivated {
		t.Fatalf("expected user to be activated by default")
	}
	if u.InCharge == nil || u.InCharge.Len() != 0 {
		t.Fatalf("expected empty non-nil in_charge, got %#v", u.InCharge)
	}
	if u.ActivatedAt != 42 || u.UpdatedAt != 42 {
		t.Fatalf("unexpected timestamps: %d %d", u.ActivatedAt, u.UpdatedAt)
	}
}

func TestNewUser_KeepsGivenID(t *testing.T) {
	u, err := NewUser(UserParams{ID: subID, FirstName: "Test1", Gender: GenderFemale, Roles: []Role{RoleUser}}, 1)
	if err != nil {
		t.Fatalf("NewUser returned error: %v", err)
	}
	if u.ID != subID {
		t.Fatalf("expected id %s, got %s", subID, u.ID)
	}
}

func TestNewUser_ManagerWithSubordinates(t *testing.T) {
	u, err := NewUser(UserParams{
		FirstName: "Boss",
		Gender:    GenderFemale,
		Roles:     []Role{RoleManager},
		InCharge:  []string{subID},
	}, 1)
	if err != nil {
		t.Fatalf("NewUser returned error: %v", err)
	}
	if !u.InCharge.Has(subID) {
		t.Fatalf("expected %s in charge", subID)
	}
}

func TestNewUser_Validation(t *testing.T) {
	cases := []struct {
		name string
		p    UserParams
	}{
		{"malformed id", UserParams{ID: "1", FirstName: "T", Gender: GenderMale, Roles: []Role{RoleUser}}},
		{"missing first name", UserParams{Gender: GenderMale, Roles: []Role{RoleUser}}},
		{"unknown gender", UserParams{FirstName: "T", Gender: "robot", Roles: []Role{RoleUser}}},
		{"no roles", UserParams{FirstName: "T", Gender: GenderMale}},
		{"unknown role", UserParams{FirstName: "T", Gender: GenderMale, Roles: []Role{"root"}}},
		{"plain user in charge", UserParams{FirstName: "T", Gender: GenderMale, Roles: []Role{RoleUser}, InCharge: []string{subID}}},
		{"deactivated manager in charge", UserParams{FirstName: "T", Gender: GenderMale, Roles: []Role{RoleManager}, IsActivated: boolPtr(false), InCharge: []string{subID}}},
		{"self in charge", UserParams{ID: subID, FirstName: "T", Gender: GenderMale, Roles: []Role{RoleManager}, InCharge: []string{subID}}},
		{"self managed", UserParams{ID: subID, FirstName: "T", Gender: GenderMale, Roles: []Role{RoleUser}, ManagedBy: subID}},
		{"manager also subordinate", UserParams{FirstName: "T", Gender: GenderMale, Roles: []Role{RoleManager}, ManagedBy: otherID, InCharge: []string{otherID}}},
		{"malformed subordinate", UserParams{FirstName: "T", Gender: GenderMale, Roles: []Role{RoleManager}, InCharge: []string{"nope"}}},
		{"malformed manager", UserParams{FirstName: "T", Gender: GenderMale, Roles: []Role{RoleUser}, ManagedBy: "nope"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewUser(tc.p, 1)
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
			var ve *ValidationError
			if !errors.As(err, &ve) || ve.Reason == "" {
				t.Fatalf("expected a ValidationError with a reason, got %#v", err)
			}
		})
	}
}

func TestNewRoles_Dedup(t *testing.T) {
	rs := NewRoles(RoleManager, RoleUser, RoleManager)
	if len(rs) != 2 || rs[0] != RoleManager || rs[1] != RoleUser {
		t.Fatalf("unexpected roles: %v", rs)
	}
	if !rs.Has(RoleAdmin, RoleUser) {
		t.Fatalf("expected Has to match any of the given roles")
	}
}

func TestCanSupervise(t *testing.T) {
	admin := &User{Roles: Roles{RoleAdmin}, IsActivated: true}
	manager := &User{Roles: Roles{RoleManager}, IsActivated: true}
	plain := &User{Roles: Roles{RoleUser}, IsActivated: true}
	inactive := &User{Roles: Roles{RoleManager}}

	if !admin.CanSupervise() || !manager.CanSupervise() {
		t.Fatalf("admin and manager should both be able to supervise")
	}
	if plain.CanSupervise() || inactive.CanSupervise() {
		t.Fatalf("plain or deactivated users must not supervise")
	}
}

func TestClone_IsDeep(t *testing.T) {
	u := &UserDB{User: User{ID: subID, Roles: Roles{RoleManager}, InCharge: NewIDSet(otherID)}, HashedPassword: "h", Version: 3}
	c := u.Clone()
	c.InCharge.Remove(otherID)
	c.Roles[0] = RoleUser

	if !u.InCharge.Has(otherID) || u.Roles[0] != RoleManager {
		t.Fatalf("clone shares state with original")
	}
	if c.Version != 3 || c.HashedPassword != "h" {
		t.Fatalf("clone lost storage fields: %+v", c)
	}
}

func TestErrorKinds(t *testing.T) {
	err := InvalidManagerError("manager %s is not activated", otherID)
	if !errors.Is(err, ErrValidation) || !errors.Is(err, ErrInvalidManager) {
		t.Fatalf("invalid manager error should match both kinds")
	}

	se := &StoreError{Op: "put", Key: subID, Err: errors.New("connection refused")}
	if !errors.Is(se, ErrStore) {
		t.Fatalf("StoreError should match ErrStore")
	}
	if errors.Is(se, ErrValidation) {
		t.Fatalf("StoreError must be distinguishable from validation errors")
	}
}
