package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/user-directory/internal/core/ports"
)

type AuthHandler struct {
	authService ports.AuthService
}

func NewAuthHandler(authService ports.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Login exchanges a user id and password for a bearer token. The body may be
// an OAuth2 password form or JSON.
//
// @Summary      Login
// @Tags         auth
// @Accept       x-www-form-urlencoded
// @Accept       json
// @Produce      json
// @Param        username  formData  string  true  "User id"
// @Param        password  formData  string  true  "Password"
// @Success      200       {object}  tokenResponse
// @Failure      401       {object}  Response
// @Failure      403       {object}  Response
// @Failure      404       {object}  Response
// @Failure      422       {object}  Response
// @Router       /api/v1/oauth2/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	token, err := h.authService.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tokenResponse{AccessToken: token.AccessToken, TokenType: token.TokenType})
}

// MyUser returns the authenticated user.
//
// @Summary      Current user
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  Response{data=userResponse}
// @Failure      401  {object}  Response
// @Failure      403  {object}  Response
// @Router       /api/v1/users/my-user [get]
func (h *AuthHandler) MyUser(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "current user", toUserResponse(user))
}

// ChangePassword sets a new password for the user in the path. Only the owner
// or an admin may call it.
//
// @Summary      Change password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        user_id  path      string                 true  "User id (UUID)"
// @Param        body     body      changePasswordRequest  true  "New password, twice"
// @Success      200      {object}  Response
// @Failure      400      {object}  Response
// @Failure      401      {object}  Response
// @Failure      403      {object}  Response
// @Failure      404      {object}  Response
// @Failure      422      {object}  Response
// @Router       /api/v1/users/{user_id}/password [put]
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	caller, err := currentUser(c)
	if err != nil {
		return err
	}
	var req changePasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	err = h.authService.ChangePassword(c.Request().Context(), caller, c.Param("user_id"), req.NewPassword, req.ConfirmPassword)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "password updated", nil)
}
