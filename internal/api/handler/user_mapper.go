package handler

import (
	"github.com/99minutos/user-directory/internal/core/domain"
	"github.com/99minutos/user-directory/internal/core/ports"
)

// --- Request → Service input ---

func toRoles(in []string) []domain.Role {
	if in == nil {
		return nil
	}
	out := make([]domain.Role, len(in))
	for i, r := range in {
		out[i] = domain.Role(r)
	}
	return out
}

func toCreateInput(req createUserRequest, isActivated *bool) ports.CreateUserInput {
	return ports.CreateUserInput{
		ID:          req.ID,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Gender:      domain.Gender(req.Gender),
		Roles:       toRoles(req.Roles),
		Password:    req.Password,
		IsActivated: isActivated,
		ManagedBy:   req.ManagedBy,
		InCharge:    req.InCharge,
	}
}

func toUpdateInput(req updateUserRequest) ports.UpdateUserInput {
	return ports.UpdateUserInput{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Gender:      domain.Gender(req.Gender),
		Roles:       toRoles(req.Roles),
		Password:    req.Password,
		IsActivated: req.IsActivated,
		ManagedBy:   req.ManagedBy,
		InCharge:    req.InCharge,
	}
}

func toPatch(req patchUserRequest) domain.UserPatch {
	p := domain.UserPatch{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Roles:       toRoles(req.Roles),
		IsActivated: req.IsActivated,
		Password:    req.Password,
		ManagedBy:   req.ManagedBy,
	}
	if req.Gender != nil {
		g := domain.Gender(*req.Gender)
		p.Gender = &g
	}
	if req.InCharge != nil {
		p.InCharge = *req.InCharge
		p.ReplaceInCharge = true
	}
	return p
}

// --- Domain → HTTP response ---

func toUserResponse(u *domain.User) userResponse {
	resp := userResponse{
		ID:          u.ID,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Gender:      string(u.Gender),
		Roles:       u.Roles.Strings(),
		IsActivated: u.IsActivated,
		ActivatedAt: u.ActivatedAt,
		UpdatedAt:   u.UpdatedAt,
		InCharge:    u.InCharge.Sorted(),
		EntityType:  domain.EntityType,
	}
	if u.ManagedBy != "" {
		managedBy := u.ManagedBy
		resp.ManagedBy = &managedBy
	}
	return resp
}

func toUserResponses(users []*domain.User) []userResponse {
	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	return out
}
