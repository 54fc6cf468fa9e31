package handler

// Response is the envelope wrapped around every JSON body except the login
// token.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// --- Request types ---

type createUserRequest struct {
	ID        string   `json:"id"         validate:"omitempty,uuid"`
	FirstName string   `json:"first_name" validate:"required"`
	LastName  string   `json:"last_name"`
	Gender    string   `json:"gender"     validate:"required,oneof=male female other"`
	Roles     []string `json:"roles"      validate:"required,min=1,dive,oneof=user admin manager"`
	Password  string   `json:"password"   validate:"required"`
	ManagedBy string   `json:"managed_by" validate:"omitempty,uuid"`
	InCharge  []string `json:"in_charge"  validate:"omitempty,dive,uuid"`
}

// bulkCreateUserRequest is the full payload accepted by /users/bulk, which
// additionally lets the caller choose the activation state.
type bulkCreateUserRequest struct {
	createUserRequest
	IsActivated *bool `json:"is_activated"`
}

type updateUserRequest struct {
	FirstName   string   `json:"first_name"   validate:"required"`
	LastName    string   `json:"last_name"`
	Gender      string   `json:"gender"       validate:"required,oneof=male female other"`
	Roles       []string `json:"roles"        validate:"required,min=1,dive,oneof=user admin manager"`
	Password    string   `json:"password"`
	IsActivated *bool    `json:"is_activated"`
	ManagedBy   string   `json:"managed_by"   validate:"omitempty,uuid"`
	InCharge    []string `json:"in_charge"    validate:"omitempty,dive,uuid"`
}

// patchUserRequest leaves a field untouched when it is absent from the body.
// managed_by set to "" clears the manager; in_charge replaces the whole set.
type patchUserRequest struct {
	FirstName   *string   `json:"first_name"`
	LastName    *string   `json:"last_name"`
	Gender      *string   `json:"gender"       validate:"omitempty,oneof=male female other"`
	Roles       []string  `json:"roles"        validate:"omitempty,dive,oneof=user admin manager"`
	Password    *string   `json:"password"`
	IsActivated *bool     `json:"is_activated"`
	ManagedBy   *string   `json:"managed_by"`
	InCharge    *[]string `json:"in_charge"`
}

type loginRequest struct {
	Username string `json:"username" form:"username" validate:"required"`
	Password string `json:"password" form:"password" validate:"required"`
}

type changePasswordRequest struct {
	NewPassword     string `json:"new_password"     validate:"required"`
	ConfirmPassword string `json:"confirm_password" validate:"required"`
}

// --- Response types ---

// userResponse is the public view of a user. The password hash and the store
// version are never part of it.
type userResponse struct {
	ID          string   `json:"id"`
	FirstName   string   `json:"first_name"`
	LastName    string   `json:"last_name"`
	Gender      string   `json:"gender"`
	Roles       []string `json:"roles"`
	IsActivated bool     `json:"is_activated"`
	ActivatedAt int64    `json:"activated_at"`
	UpdatedAt   int64    `json:"updated_at"`
	ManagedBy   *string  `json:"managed_by"`
	InCharge    []string `json:"in_charge"`
	EntityType  string   `json:"entity_type"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}
