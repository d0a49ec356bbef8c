package app

import (
	"autocv/internal/config"
	"autocv/internal/service"
	"autocv/internal/task"
	"autocv/internal/ws"

	"go.uber.org/zap"
)

// Container holds the long-lived pieces shared by the CLI and the server.
type Container struct {
	Config  config.Config
	Service *service.Service
	Hub     *ws.Hub
	Log     *zap.Logger
}

func NewContainer(cfg config.Config, log *zap.Logger) (*Container, error) {
	svc, err := service.New(cfg, log)
	if err != nil {
		return nil, err
	}

	hub := ws.NewHub(log)
	go hub.Run()
	ws.SetDefaultHub(hub)
	svc.Tasks.SetNotifier(func(snap task.Snapshot) {
		ws.NotifyTask(snap)
	})

	return &Container{Config: cfg, Service: svc, Hub: hub, Log: log}, nil
}

func (c *Container) Close() error {
	if c == nil {
		return nil
	}
	if c.Log != nil {
		_ = c.Log.Sync()
	}
	return nil
}
