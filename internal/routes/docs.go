package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/longtq2501/Tutor-Pro-sub001/internal/config"
)

type docsEndpoint struct {
	Method string `json:"method"`
	Path   string `json:"path"`
	Notes  string `json:"notes,omitempty"`
}

var docsEndpoints = []docsEndpoint{
	{Method: "POST", Path: "/api/auth/register"},
	{Method: "POST", Path: "/api/auth/login"},
	{Method: "GET", Path: "/api/auth/me"},
	{Method: "POST", Path: "/api/v1/students"},
	{Method: "GET", Path: "/api/v1/students"},
	{Method: "GET", Path: "/api/v1/students/:id"},
	{Method: "POST", Path: "/api/v1/sessions"},
	{Method: "GET", Path: "/api/v1/sessions", Notes: "filters: month, student_id, unpaid, page, limit"},
	{Method: "GET", Path: "/api/v1/sessions/months"},
	{Method: "GET", Path: "/api/v1/sessions/student/:studentId/month/:month"},
	{Method: "GET", Path: "/api/v1/sessions/:id"},
	{Method: "PUT", Path: "/api/v1/sessions/:id", Notes: "body carries expected_version"},
	{Method: "DELETE", Path: "/api/v1/sessions/:id"},
	{Method: "PUT", Path: "/api/v1/sessions/:id/status", Notes: "validated status transition"},
	{Method: "POST", Path: "/api/v1/sessions/:id/toggle-payment", Notes: "query: version"},
	{Method: "POST", Path: "/api/v1/sessions/:id/duplicate"},
	{Method: "POST", Path: "/api/v1/sessions/:id/convert-online"},
	{Method: "POST", Path: "/api/v1/sessions/:id/revert-offline"},
	{Method: "GET", Path: "/api/v1/sessions/:id/room"},
	{Method: "POST", Path: "/api/v1/rooms/:roomId/join"},
	{Method: "POST", Path: "/api/v1/rooms/:roomId/end"},
	{Method: "POST", Path: "/api/v1/rooms/:roomId/heartbeat"},
	{Method: "GET", Path: "/api/v1/rooms/:roomId/stats"},
	{Method: "GET", Path: "/api/v1/rooms/stats/global", Notes: "admin only"},
	{Method: "GET", Path: "/api/v1/dashboard/stats"},
	{Method: "GET", Path: "/api/v1/dashboard/stats/:month"},
	{Method: "GET", Path: "/api/v1/dashboard/months"},
	{Method: "GET", Path: "/api/v1/ws", Notes: "websocket notifications, token via query or bearer header"},
}

// registerDocs exposes a machine-readable endpoint index. Development-only.
func registerDocs(app *fiber.App, cfg *config.Config) {
	if !cfg.DocsEnabled() {
		return
	}

	app.Get("/docs", func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderCacheControl, "no-store, max-age=0")
		c.Set("X-Robots-Tag", "noindex, nofollow")
		return c.JSON(fiber.Map{"endpoints": docsEndpoints})
	})
}
