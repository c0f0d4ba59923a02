package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/hirelane/portal/internal/core/domain"
	"github.com/hirelane/portal/internal/infrastructure/gateway"
)

func handle(err error, accept string) *httptest.ResponseRecorder {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	if accept != "" {
		req.Header.Set(echo.HeaderAccept, accept)
	}
	rec := httptest.NewRecorder()
	NewHTTPErrorHandler("/login", zerolog.Nop())(err, e.NewContext(req, rec))
	return rec
}

func TestErrorHandler_Mapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"network", gateway.NetworkFailure(errors.New("dial tcp: refused")), http.StatusBadGateway},
		{"validation", gateway.Normalize(422, "", []byte(`{"detail":[{"msg":"bad"}]}`)), http.StatusUnprocessableEntity},
		{"forbidden", gateway.Normalize(403, "", nil), http.StatusForbidden},
		{"expired json", gateway.Normalize(401, "", nil), http.StatusUnauthorized},
		{"throttled", domain.ErrTooManyResetRequests, http.StatusTooManyRequests},
		{"stale", domain.ErrStaleAttempt, http.StatusConflict},
		{"echo", echo.NewHTTPError(http.StatusBadRequest, "invalid payload"), http.StatusBadRequest},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rec := handle(tc.err, echo.MIMEApplicationJSON)
		if rec.Code != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.want, rec.Code)
		}
	}
}

func TestErrorHandler_ExpiredPageRedirectsToLogin(t *testing.T) {
	rec := handle(gateway.Normalize(401, "", nil), "text/html")
	if rec.Code != http.StatusSeeOther || rec.Header().Get(echo.HeaderLocation) != "/login" {
		t.Fatalf("expected 303 to /login, got %d", rec.Code)
	}
}

func TestErrorHandler_DetailCarriesBackendBody(t *testing.T) {
	rec := handle(gateway.Normalize(409, "", []byte(`{"detail":"Username taken"}`)), echo.MIMEApplicationJSON)
	if rec.Body.String() != `{"error":"Username taken","detail":{"detail":"Username taken"}}`+"\n" {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}
}
