package routes

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lafabrik/boutique-backend/pkg/config"
)

func testConfig() *config.Config {
	return &config.Config{
		App:   config.AppConfig{Env: "test", Port: "8080"},
		JWT:   config.JWTConfig{Secret: "test-secret", Issuer: "boutique", ExpirationMinutes: 60},
		Staff: config.StaffConfig{Email: "boutique@lafabrik.fr"},
	}
}

func TestRouterServesHealthLive(t *testing.T) {
	router := NewRouter(testConfig(), nil, nil, nil, nil, nil, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
}

func TestRouterServesPublicCatalogue(t *testing.T) {
	router := NewRouter(testConfig(), nil, nil, nil, nil, nil, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/catalogue", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
}

func TestRouterGuardsAdminSurface(t *testing.T) {
	router := NewRouter(testConfig(), nil, nil, nil, nil, nil, nil, nil, nil)

	for _, route := range []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/admin/v1/orders"},
		{http.MethodPost, "/api/admin/v1/pickup/redeem"},
	} {
		req := httptest.NewRequest(route.method, route.path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s: expected 401 got %d", route.method, route.path, rec.Code)
		}
	}
}

func TestRouterRejectsUnknownRoutes(t *testing.T) {
	router := NewRouter(testConfig(), nil, nil, nil, nil, nil, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/does-not-exist", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rec.Code)
	}
}
