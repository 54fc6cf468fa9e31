package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/user-directory/internal/core/domain"
	"github.com/99minutos/user-directory/internal/core/ports"
)

type stubAuthService struct {
	loginFn          func(ctx context.Context, username, password string) (*ports.Token, error)
	changePasswordFn func(ctx context.Context, caller *domain.User, userID, newPassword, confirm string) error
}

func (s *stubAuthService) Login(ctx context.Context, username, password string) (*ports.Token, error) {
	return s.loginFn(ctx, username, password)
}

func (s *stubAuthService) Authenticate(context.Context, string) (*domain.User, error) {
	return nil, domain.ErrUnauthenticated
}

func (s *stubAuthService) RequireActivated(u *domain.User) (*domain.User, error) { return u, nil }

func (s *stubAuthService) RequireRole(u *domain.User, _ ...domain.Role) (*domain.User, error) {
	return u, nil
}

func (s *stubAuthService) ChangePassword(ctx context.Context, caller *domain.User, userID, newPassword, confirm string) error {
	return s.changePasswordFn(ctx, caller, userID, newPassword, confirm)
}

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	return e
}

func httpCode(t *testing.T, err error) int {
	t.Helper()
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("expected *echo.HTTPError, got %T: %v", err, err)
	}
	return he.Code
}

func TestAuthHandler_Login_Form(t *testing.T) {
	e := newTestEcho()
	stub := &stubAuthService{
		loginFn: func(ctx context.Context, username, password string) (*ports.Token, error) {
			if username != "6f1c2d3e-0000-4000-8000-000000000011" || password != "secret" {
				t.Fatalf("unexpected args: %s %s", username, password)
			}
			return &ports.Token{AccessToken: "token123", TokenType: "bearer", ExpiresAt: time.Now()}, nil
		},
	}
	handler := NewAuthHandler(stub)

	form := url.Values{"username": {"6f1c2d3e-0000-4000-8000-000000000011"}, "password": {"secret"}}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/oauth2/login", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := handler.Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["access_token"] != "token123" || resp["token_type"] != "bearer" {
		t.Fatalf("unexpected token payload: %+v", resp)
	}
	if _, ok := resp["success"]; ok {
		t.Fatalf("login response must not be wrapped in the envelope")
	}
}

func TestAuthHandler_Login_JSON(t *testing.T) {
	e := newTestEcho()
	called := false
	stub := &stubAuthService{
		loginFn: func(ctx context.Context, username, password string) (*ports.Token, error) {
			called = true
			return &ports.Token{AccessToken: "t", TokenType: "bearer"}, nil
		},
	}
	handler := NewAuthHandler(stub)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/oauth2/login", strings.NewReader(`{"username":"u","password":"p"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := handler.Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !called {
		t.Fatalf("service not called")
	}
}

func TestAuthHandler_Login_IncorrectPassword(t *testing.T) {
	e := newTestEcho()
	stub := &stubAuthService{
		loginFn: func(ctx context.Context, username, password string) (*ports.Token, error) {
			return nil, domain.ErrIncorrectPassword
		},
	}
	handler := NewAuthHandler(stub)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/oauth2/login", strings.NewReader(`{"username":"u","password":"bad"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := handler.Login(c)
	if !errors.Is(err, domain.ErrIncorrectPassword) {
		t.Fatalf("expected ErrIncorrectPassword, got %v", err)
	}
	if rec.Body.Len() != 0 {
		t.Fatalf("no token may be written on failure")
	}
}

func TestAuthHandler_Login_MissingFields(t *testing.T) {
	e := newTestEcho()
	stub := &stubAuthService{
		loginFn: func(ctx context.Context, username, password string) (*ports.Token, error) {
			t.Fatalf("should not be called")
			return nil, nil
		},
	}
	handler := NewAuthHandler(stub)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/oauth2/login", strings.NewReader(`{"username":"u"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if code := httpCode(t, handler.Login(c)); code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", code)
	}
}

func TestAuthHandler_Login_InvalidPayload(t *testing.T) {
	e := newTestEcho()
	handler := NewAuthHandler(&stubAuthService{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/oauth2/login", strings.NewReader("{"))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if code := httpCode(t, handler.Login(c)); code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
}

func TestAuthHandler_MyUser(t *testing.T) {
	e := newTestEcho()
	handler := NewAuthHandler(&stubAuthService{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/my-user", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set(UserContextKey, &domain.User{
		ID:          "6f1c2d3e-0000-4000-8000-000000000011",
		FirstName:   "Ada",
		Gender:      domain.GenderFemale,
		Roles:       domain.NewRoles(domain.RoleUser),
		IsActivated: true,
		InCharge:    domain.NewIDSet(),
	})

	if err := handler.MyUser(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp struct {
		Success bool           `json:"success"`
		Data    map[string]any `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if !resp.Success || resp.Data["first_name"] != "Ada" {
		t.Fatalf("unexpected payload: %s", rec.Body.String())
	}
	if _, ok := resp.Data["hashed_password"]; ok {
		t.Fatalf("hashed_password must never be exposed")
	}
}

func TestAuthHandler_MyUser_NoUser(t *testing.T) {
	e := newTestEcho()
	handler := NewAuthHandler(&stubAuthService{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/my-user", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	if code := httpCode(t, handler.MyUser(c)); code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", code)
	}
}

func TestAuthHandler_ChangePassword(t *testing.T) {
	e := newTestEcho()
	caller := &domain.User{ID: "6f1c2d3e-0000-4000-8000-000000000011", IsActivated: true}
	stub := &stubAuthService{
		changePasswordFn: func(ctx context.Context, got *domain.User, userID, newPassword, confirm string) error {
			if got != caller || userID != caller.ID || newPassword != "n3w" || confirm != "n3w" {
				t.Fatalf("unexpected args: %v %s %s %s", got, userID, newPassword, confirm)
			}
			return nil
		},
	}
	handler := NewAuthHandler(stub)

	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"new_password":"n3w","confirm_password":"n3w"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("user_id")
	c.SetParamValues(caller.ID)
	c.Set(UserContextKey, caller)

	if err := handler.ChangePassword(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAuthHandler_ChangePassword_Forbidden(t *testing.T) {
	e := newTestEcho()
	stub := &stubAuthService{
		changePasswordFn: func(context.Context, *domain.User, string, string, string) error {
			return domain.ErrForbidden
		},
	}
	handler := NewAuthHandler(stub)

	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"new_password":"x","confirm_password":"x"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetParamNames("user_id")
	c.SetParamValues("6f1c2d3e-0000-4000-8000-000000000012")
	c.Set(UserContextKey, &domain.User{ID: "6f1c2d3e-0000-4000-8000-000000000011"})

	if err := handler.ChangePassword(c); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}
