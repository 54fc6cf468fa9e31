package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/user-directory/internal/api/handler"
	"github.com/99minutos/user-directory/internal/core/domain"
)

func contextFor(t *testing.T, f *fixture, id string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if id != "" {
		stored, err := f.store.Get(context.Background(), id)
		if err != nil {
			t.Fatalf("load %s: %v", id, err)
		}
		c.Set(handler.UserContextKey, &stored.User)
	}
	return c, rec
}

func okHandler(called *bool) echo.HandlerFunc {
	return func(c echo.Context) error {
		*called = true
		return c.NoContent(http.StatusOK)
	}
}

func TestRBAC_Allows(t *testing.T) {
	f := newFixture(t)
	c, rec := contextFor(t, f, adminID)

	called := false
	if err := RBAC(f.auth, domain.RoleAdmin)(okHandler(&called))(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !called {
		t.Fatalf("next handler not called")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestRBAC_Forbids(t *testing.T) {
	f := newFixture(t)
	c, _ := contextFor(t, f, userID)

	next := RBAC(f.auth, domain.RoleAdmin)(func(c echo.Context) error {
		t.Fatalf("should not reach next handler")
		return nil
	})
	if err := next(c); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestRequireActivated(t *testing.T) {
	f := newFixture(t)

	called := false
	c, _ := contextFor(t, f, userID)
	if err := RequireActivated(f.auth)(okHandler(&called))(c); err != nil || !called {
		t.Fatalf("activated user rejected: %v", err)
	}

	called = false
	c, _ = contextFor(t, f, inactiveID)
	if err := RequireActivated(f.auth)(okHandler(&called))(c); !errors.Is(err, domain.ErrForbidden) || called {
		t.Fatalf("expected ErrForbidden for a deactivated user, got %v", err)
	}

	c, _ = contextFor(t, f, "")
	if err := RequireActivated(f.auth)(okHandler(&called))(c); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated without a user, got %v", err)
	}
}

func TestSelfOrRBAC(t *testing.T) {
	f := newFixture(t)
	mw := SelfOrRBAC(f.auth, "user_id", domain.RoleAdmin)

	run := func(callerID, target string) (bool, error) {
		called := false
		c, _ := contextFor(t, f, callerID)
		c.SetParamNames("user_id")
		c.SetParamValues(target)
		err := mw(okHandler(&called))(c)
		return called, err
	}

	if called, err := run(userID, userID); err != nil || !called {
		t.Fatalf("caller acting on itself rejected: %v", err)
	}
	if called, err := run(adminID, userID); err != nil || !called {
		t.Fatalf("admin rejected: %v", err)
	}

	called, err := run(userID, adminID)
	var he *echo.HTTPError
	if called || !errors.As(err, &he) || he.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for another user, got %v", err)
	}

	if called, err := run(inactiveID, inactiveID); called || !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("a deactivated caller must be rejected even on itself, got %v", err)
	}
}
