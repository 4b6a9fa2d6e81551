package routes

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/longtq2501/Tutor-Pro-sub001/internal/config"
)

func TestRegisterDocsServesEndpointIndex(t *testing.T) {
	app := fiber.New()
	cfg := &config.Config{AppEnv: "development", EnableDocs: true}

	registerDocs(app, cfg)

	req := httptest.NewRequest(http.MethodGet, "/docs", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected docs status 200, got %d", resp.StatusCode)
	}

	var payload struct {
		Endpoints []docsEndpoint `json:"endpoints"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode docs payload: %v", err)
	}
	if len(payload.Endpoints) == 0 {
		t.Fatal("expected a non-empty endpoint index")
	}
	found := false
	for _, e := range payload.Endpoints {
		if e.Method == http.MethodPut && e.Path == "/api/v1/sessions/:id/status" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected the status update route in the index")
	}
}

func TestRegisterDocsSkipsOutsideDevelopment(t *testing.T) {
	app := fiber.New()
	cfg := &config.Config{AppEnv: "production", EnableDocs: true}

	registerDocs(app, cfg)

	req := httptest.NewRequest(http.MethodGet, "/docs", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 when docs are not in development, got %d", resp.StatusCode)
	}
}
