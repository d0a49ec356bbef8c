package app

import (
	"fmt"
	"strings"

	"autocv/internal/config"
	"autocv/internal/delivery/http/middleware"
	"autocv/internal/delivery/http/routes"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"
)

type App struct {
	Fiber     *fiber.App
	Container *Container
}

func New(cfg config.Config, log *zap.Logger) (*App, error) {
	c, err := NewContainer(cfg, log)
	if err != nil {
		return nil, err
	}

	f := fiber.New(fiber.Config{})
	registerGlobalMiddleware(f, log)
	routes.Register(f, cfg, c.Service, c.Hub, log)

	return &App{Fiber: f, Container: c}, nil
}

func Bootstrap(cfg config.Config, log *zap.Logger) (*App, func() error, error) {
	app, err := New(cfg, log)
	if err != nil {
		return nil, nil, err
	}
	return app, app.Container.Close, nil
}

func registerGlobalMiddleware(app *fiber.App, log *zap.Logger) {
	if app == nil {
		return
	}

	errMw := middleware.NewErrorMiddleware(log)
	app.Use(errMw.Middleware())

	accessMw := middleware.NewAccessLogMiddleware(log)
	app.Use(accessMw.Middleware())
}

func ListenAddr(host, port string) (string, error) {
	p := strings.TrimSpace(port)
	if p == "" {
		return "", fmt.Errorf("empty HTTP port")
	}
	p = strings.TrimPrefix(p, ":")
	return strings.TrimSpace(host) + ":" + p, nil
}
