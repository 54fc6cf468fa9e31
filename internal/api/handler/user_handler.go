package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/user-directory/internal/core/ports"
)

// UserHandler handles HTTP requests for directory operations. Every error is
// returned untouched; the router's HTTPErrorHandler maps it to a status code.
type UserHandler struct {
	service ports.DirectoryService
}

func NewUserHandler(service ports.DirectoryService) *UserHandler {
	return &UserHandler{service: service}
}

// Create handles POST /api/v1/users.
//
// @Summary      Create a user
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createUserRequest  true  "User details"
// @Success      201   {object}  Response{data=userResponse}
// @Failure      400   {object}  Response
// @Failure      401   {object}  Response
// @Failure      403   {object}  Response
// @Failure      404   {object}  Response
// @Failure      409   {object}  Response
// @Failure      422   {object}  Response
// @Failure      500   {object}  Response
// @Router       /api/v1/users [post]
func (h *UserHandler) Create(c echo.Context) error {
	var req createUserRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.service.Create(c.Request().Context(), toCreateInput(req, nil))
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, "user created", toUserResponse(user))
}

// Bulk handles POST /api/v1/users/bulk.
//
// @Summary      Create a user from a full payload
// @Description  Accepts the activation state and an in_charge list; listed subordinates are re-parented to the new user.
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      bulkCreateUserRequest  true  "Full user payload"
// @Success      201   {object}  Response{data=userResponse}
// @Failure      400   {object}  Response
// @Failure      409   {object}  Response
// @Failure      422   {object}  Response
// @Failure      500   {object}  Response
// @Router       /api/v1/users/bulk [post]
func (h *UserHandler) Bulk(c echo.Context) error {
	var req bulkCreateUserRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.service.Create(c.Request().Context(), toCreateInput(req.createUserRequest, req.IsActivated))
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, "user created", toUserResponse(user))
}

// List handles GET /api/v1/users.
//
// @Summary      List users
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        total_number  query     int  false  "Maximum number of users to return"
// @Success      200           {object}  Response{data=[]userResponse}
// @Failure      400           {object}  Response
// @Failure      500           {object}  Response
// @Router       /api/v1/users [get]
func (h *UserHandler) List(c echo.Context) error {
	var limit int
	if err := echo.QueryParamsBinder(c).Int("total_number", &limit).BindError(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "total_number must be an integer")
	}
	if limit < 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "total_number must not be negative")
	}

	users, err := h.service.List(c.Request().Context(), limit)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "users retrieved", toUserResponses(users))
}

// Get handles GET /api/v1/users/:user_id.
//
// @Summary      Get a user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        user_id  path      string  true  "User id (UUID)"
// @Success      200      {object}  Response{data=userResponse}
// @Failure      404      {object}  Response
// @Failure      500      {object}  Response
// @Router       /api/v1/users/{user_id} [get]
func (h *UserHandler) Get(c echo.Context) error {
	user, err := h.service.Get(c.Request().Context(), c.Param("user_id"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "user retrieved", toUserResponse(user))
}

// Update handles PUT /api/v1/users/:user_id.
//
// @Summary      Replace a user
// @Description  Omitted managed_by and in_charge mean none; password and is_activated keep their values when omitted.
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        user_id  path      string             true  "User id (UUID)"
// @Param        body     body      updateUserRequest  true  "Replacement fields"
// @Success      200      {object}  Response{data=userResponse}
// @Failure      400      {object}  Response
// @Failure      404      {object}  Response
// @Failure      409      {object}  Response
// @Failure      422      {object}  Response
// @Failure      500      {object}  Response
// @Router       /api/v1/users/{user_id} [put]
func (h *UserHandler) Update(c echo.Context) error {
	var req updateUserRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.service.Update(c.Request().Context(), c.Param("user_id"), toUpdateInput(req))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "user updated", toUserResponse(user))
}

// Patch handles PATCH /api/v1/users/:user_id.
//
// @Summary      Patch a user
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        user_id  path      string            true  "User id (UUID)"
// @Param        body     body      patchUserRequest  true  "Fields to change"
// @Success      200      {object}  Response{data=userResponse}
// @Failure      400      {object}  Response
// @Failure      404      {object}  Response
// @Failure      409      {object}  Response
// @Failure      422      {object}  Response
// @Failure      500      {object}  Response
// @Router       /api/v1/users/{user_id} [patch]
func (h *UserHandler) Patch(c echo.Context) error {
	var req patchUserRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.service.Patch(c.Request().Context(), c.Param("user_id"), toPatch(req))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "user patched", toUserResponse(user))
}

// Delete handles DELETE /api/v1/users/:user_id.
//
// @Summary      Delete a user
// @Description  The user is removed from its manager and its subordinates are left without a manager.
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        user_id  path      string  true  "User id (UUID)"
// @Success      200      {object}  Response{data=userResponse}
// @Failure      404      {object}  Response
// @Failure      409      {object}  Response
// @Failure      500      {object}  Response
// @Router       /api/v1/users/{user_id} [delete]
func (h *UserHandler) Delete(c echo.Context) error {
	user, err := h.service.Delete(c.Request().Context(), c.Param("user_id"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "user deleted", toUserResponse(user))
}

// DeleteAll handles DELETE /api/v1/users.
//
// @Summary      Delete every user
// @Tags         users
// @Security     BearerAuth
// @Success      204
// @Failure      500  {object}  Response
// @Router       /api/v1/users [delete]
func (h *UserHandler) DeleteAll(c echo.Context) error {
	if err := h.service.DeleteAll(c.Request().Context()); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// ListSubordinates handles GET /api/v1/users/:user_id/subordinates.
//
// @Summary      List direct reports
// @Tags         subordinates
// @Produce      json
// @Security     BearerAuth
// @Param        user_id  path      string  true  "Manager id (UUID)"
// @Success      200      {object}  Response{data=[]userResponse}
// @Failure      404      {object}  Response
// @Failure      500      {object}  Response
// @Router       /api/v1/users/{user_id}/subordinates [get]
func (h *UserHandler) ListSubordinates(c echo.Context) error {
	users, err := h.service.ListSubordinates(c.Request().Context(), c.Param("user_id"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "subordinates retrieved", toUserResponses(users))
}

// AddSubordinate handles POST /api/v1/users/:user_id/subordinates/:subordinate_id.
//
// @Summary      Add a subordinate
// @Description  The subordinate is detached from its previous manager first.
// @Tags         subordinates
// @Produce      json
// @Security     BearerAuth
// @Param        user_id         path      string  true  "Manager id (UUID)"
// @Param        subordinate_id  path      string  true  "Subordinate id (UUID)"
// @Success      200             {object}  Response{data=[]userResponse}
// @Failure      400             {object}  Response
// @Failure      403             {object}  Response
// @Failure      404             {object}  Response
// @Failure      409             {object}  Response
// @Failure      500             {object}  Response
// @Router       /api/v1/users/{user_id}/subordinates/{subordinate_id} [post]
func (h *UserHandler) AddSubordinate(c echo.Context) error {
	users, err := h.service.AddSubordinate(c.Request().Context(), c.Param("user_id"), c.Param("subordinate_id"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "subordinate added", toUserResponses(users))
}

// RemoveSubordinate handles DELETE /api/v1/users/:user_id/subordinates/:subordinate_id.
//
// @Summary      Remove a subordinate
// @Tags         subordinates
// @Produce      json
// @Security     BearerAuth
// @Param        user_id         path      string  true  "Manager id (UUID)"
// @Param        subordinate_id  path      string  true  "Subordinate id (UUID)"
// @Success      200             {object}  Response{data=[]userResponse}
// @Failure      400             {object}  Response
// @Failure      403             {object}  Response
// @Failure      404             {object}  Response
// @Failure      409             {object}  Response
// @Failure      500             {object}  Response
// @Router       /api/v1/users/{user_id}/subordinates/{subordinate_id} [delete]
func (h *UserHandler) RemoveSubordinate(c echo.Context) error {
	users, err := h.service.RemoveSubordinate(c.Request().Context(), c.Param("user_id"), c.Param("subordinate_id"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "subordinate removed", toUserResponses(users))
}
