package account

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/meddx/meddx/internal/platform/auth"
)

func newTestHandler(t *testing.T) (*Handler, *echo.Echo) {
	return NewHandler(newTestService(t, NewMemoryRepo())), echo.New()
}

func jsonRequest(e *echo.Echo, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func httpStatus(t *testing.T, err error) int {
	t.Helper()
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("expected *echo.HTTPError, got %v", err)
	}
	return he.Code
}

func TestHandler_Register(t *testing.T) {
	h, e := newTestHandler(t)

	c, rec := jsonRequest(e, `{"username":"alice","password":"password1","display_name":"Alice"}`)
	if err := h.Register(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Errorf("response leaks password material: %s", rec.Body.String())
	}

	c, _ = jsonRequest(e, `{"username":"alice","password":"password1"}`)
	if code := httpStatus(t, h.Register(c)); code != http.StatusConflict {
		t.Errorf("expected 409 for duplicate, got %d", code)
	}
}

func TestHandler_Register_BadInput(t *testing.T) {
	h, e := newTestHandler(t)
	for _, body := range []string{`{"username":"al","password":"password1"}`, `{"username":"alice","password":"x"}`, `not json`} {
		c, _ := jsonRequest(e, body)
		if code := httpStatus(t, h.Register(c)); code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", body, code)
		}
	}
}

func TestHandler_Login(t *testing.T) {
	h, e := newTestHandler(t)
	if _, err := h.svc.Register(context.Background(), "alice", "password1", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	c, rec := jsonRequest(e, `{"username":"alice","password":"password1"}`)
	if err := h.Login(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var res LoginResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	if res.Token == "" || res.Account == nil || res.Account.Username != "alice" {
		t.Errorf("unexpected login response: %+v", res)
	}

	c, _ = jsonRequest(e, `{"username":"alice","password":"wrong-password"}`)
	if code := httpStatus(t, h.Login(c)); code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", code)
	}

	c, _ = jsonRequest(e, `{"username":"alice"}`)
	if code := httpStatus(t, h.Login(c)); code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing password, got %d", code)
	}
}

func TestHandler_Me(t *testing.T) {
	h, e := newTestHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(auth.WithSession(req.Context(), &auth.Session{Username: "alice"}))
	rec := httptest.NewRecorder()

	if err := h.Me(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"username":"alice"`) {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestHandler_ListAccounts(t *testing.T) {
	h, e := newTestHandler(t)
	ctx := context.Background()
	h.svc.Register(ctx, "alice", "password1", "")
	h.svc.Register(ctx, "bob", "password1", "")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	if err := h.ListAccounts(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var body struct {
		Data []Account `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	if len(body.Data) != 2 || body.Data[0].Username != "alice" {
		t.Errorf("unexpected accounts: %+v", body.Data)
	}

	req = httptest.NewRequest(http.MethodGet, "/?limit=1&offset=1", nil)
	rec = httptest.NewRecorder()
	if err := h.ListAccounts(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var page struct {
		Data    []Account `json:"data"`
		Total   int       `json:"total"`
		HasMore bool      `json:"has_more"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	if page.Total != 2 || page.HasMore || len(page.Data) != 1 || page.Data[0].Username != "bob" {
		t.Errorf("unexpected page: %+v", page)
	}
}

func TestHandler_RoutesEnforceRoles(t *testing.T) {
	h, e := newTestHandler(t)
	h.RegisterRoutes(e.Group("/api/v1"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/accounts", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for anonymous, got %d", rec.Code)
	}
}
