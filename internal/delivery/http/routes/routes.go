package routes

import (
	"autocv/internal/config"
	"autocv/internal/delivery/http/handler"
	"autocv/internal/delivery/http/middleware"
	"autocv/internal/pkg/jwt"
	"autocv/internal/service"
	"autocv/internal/ws"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"
)

// Register mounts the dashboard API. When a dashboard password is
// configured, everything under /api except login is token-guarded.
func Register(app *fiber.App, cfg config.Config, svc *service.Service, hub *ws.Hub, log *zap.Logger) {
	if app == nil {
		return
	}

	statusH := handler.NewStatusHandler(svc)
	profileH := handler.NewProfileHandler(svc)
	jobsH := handler.NewJobsHandler(svc)
	tasksH := handler.NewTasksHandler(svc)
	generatedH := handler.NewGeneratedHandler(svc)
	settingsH := handler.NewSettingsHandler(svc)
	wsH := ws.NewHandler(hub, log)

	app.Get("/health", statusH.HandleHealth)
	app.Get("/ws/tasks", wsH.HandleTasksWS)

	api := app.Group("/api")
	api.Get("/status", statusH.HandleStatus)

	if cfg.Web.PasswordHash != "" {
		jwtSvc := jwt.NewHMACService(cfg.Web.AuthSecret, 0)
		authH := handler.NewAuthHandler(jwtSvc, cfg.Web.PasswordHash)
		api.Post("/auth/login", authH.HandleLogin)

		authMw := middleware.NewAuthMiddleware(jwtSvc)
		api.Use(authMw.Middleware())
	}

	api.Get("/profile", profileH.HandleGetProfile)
	api.Post("/profile", profileH.HandleSaveProfile)

	api.Get("/jobs", jobsH.HandleListJobs)
	api.Get("/jobs/:id", jobsH.HandleGetJob)
	api.Delete("/jobs/:id", jobsH.HandleDeleteJob)

	api.Post("/search", tasksH.HandleStartSearch)
	api.Post("/generate", tasksH.HandleStartGenerate)
	api.Get("/task", statusH.HandleTask)

	api.Get("/generated", generatedH.HandleListGenerated)
	api.Get("/generated/:name", generatedH.HandleDownloadGenerated)
	api.Delete("/generated/:name", generatedH.HandleDeleteGenerated)

	api.Get("/settings", settingsH.HandleGetSettings)
	api.Post("/settings", settingsH.HandleUpdateSettings)
}
