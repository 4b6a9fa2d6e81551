package routes

import (
	"time"

	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/longtq2501/Tutor-Pro-sub001/internal/cache"
	"github.com/longtq2501/Tutor-Pro-sub001/internal/config"
	"github.com/longtq2501/Tutor-Pro-sub001/internal/handlers"
	"github.com/longtq2501/Tutor-Pro-sub001/internal/middleware"
	"github.com/longtq2501/Tutor-Pro-sub001/internal/repository"
	"github.com/longtq2501/Tutor-Pro-sub001/internal/services"
	notifyws "github.com/longtq2501/Tutor-Pro-sub001/internal/websocket"
)

func RegisterRoutes(app *fiber.App, cfg *config.Config, db *pgxpool.Pool) {
	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	sessionRecordRepo := repository.NewSessionRecordRepository(db)
	onlineSessionRepo := repository.NewOnlineSessionRepository(db)

	hub := notifyws.NewHub()
	go hub.Run()

	tagCache := cache.NewTagCache(time.Duration(cfg.CacheTTLMinutes) * time.Minute)
	presence := services.NewPresenceTracker(
		time.Duration(cfg.PresenceTimeoutSeconds)*time.Second,
		time.Duration(cfg.PresenceRetentionMinutes)*time.Minute,
		time.Duration(cfg.PresenceSweepMinutes)*time.Minute,
	)
	if err := presence.Start(); err != nil {
		panic(err)
	}

	sessionService := services.NewSessionRecordService(sessionRecordRepo, studentRepo, hub, tagCache)
	onlineService := services.NewOnlineSessionService(onlineSessionRepo, sessionRecordRepo, userRepo, presence, hub)
	dashboardService := services.NewDashboardService(sessionRecordRepo, tagCache)

	authHandler := handlers.NewAuthHandler(userRepo, studentRepo, cfg.JWTSecret)
	studentHandler := handlers.NewStudentHandler(studentRepo)
	sessionHandler := handlers.NewSessionHandler(sessionService)
	onlineHandler := handlers.NewOnlineSessionHandler(onlineService)
	dashboardHandler := handlers.NewDashboardHandler(dashboardService)
	notificationHandler := handlers.NewNotificationHandler(hub, cfg.JWTSecret)

	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Get("/me", middleware.AuthRequired(cfg.JWTSecret), authHandler.Me)

	authProtected := api.Group("/v1", middleware.AuthRequired(cfg.JWTSecret))

	students := authProtected.Group("/students")
	students.Post("", studentHandler.Create)
	students.Get("", studentHandler.List)
	students.Get("/:id", studentHandler.Get)

	sessions := authProtected.Group("/sessions")
	sessions.Post("", sessionHandler.Create)
	sessions.Get("", sessionHandler.List)
	sessions.Get("/months", sessionHandler.Months)
	sessions.Get("/student/:studentId/month/:month", sessionHandler.ByStudentAndMonth)
	sessions.Get("/:id", sessionHandler.Get)
	sessions.Put("/:id", sessionHandler.Update)
	sessions.Delete("/:id", sessionHandler.Delete)
	sessions.Put("/:id/status", sessionHandler.UpdateStatus)
	sessions.Post("/:id/toggle-payment", sessionHandler.TogglePayment)
	sessions.Post("/:id/duplicate", sessionHandler.Duplicate)
	sessions.Post("/:id/convert-online", onlineHandler.Convert)
	sessions.Post("/:id/revert-offline", onlineHandler.Revert)
	sessions.Get("/:id/room", onlineHandler.GetByRecord)

	rooms := authProtected.Group("/rooms")
	rooms.Post("/:roomId/join", onlineHandler.Join)
	rooms.Post("/:roomId/end", onlineHandler.End)
	rooms.Post("/:roomId/heartbeat", onlineHandler.Heartbeat)
	rooms.Get("/:roomId/stats", onlineHandler.RoomStats)
	rooms.Get("/stats/global", onlineHandler.GlobalStats)

	dashboard := authProtected.Group("/dashboard")
	dashboard.Get("/stats", dashboardHandler.Stats)
	dashboard.Get("/stats/:month", dashboardHandler.MonthlyStats)
	dashboard.Get("/months", dashboardHandler.Months)

	api.Use("/v1/ws", notificationHandler.WebSocketAuth)
	api.Get("/v1/ws", websocket.New(notificationHandler.HandleWebSocket))

	registerDocs(app, cfg)
}
