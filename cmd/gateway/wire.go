//go:build wireinject
// +build wireinject

package main

import (
	"context"

	"github.com/google/wire"
	"oceancare/internal/app"
	"oceancare/internal/config"
	"oceancare/internal/http"
	"oceancare/internal/http/controller"
	"oceancare/internal/hub"
	"oceancare/internal/logging"
	"oceancare/internal/metrics"
	"oceancare/internal/queue"
	"oceancare/internal/queue/rabbitmq"
	"oceancare/internal/service/relay"
	"oceancare/internal/telemetry"
)

func InitializeApp(ctx context.Context) (*app.App, error) {
	wire.Build(
		config.New,
		logging.New,
		telemetry.Init,
		metrics.New,
		hub.NewHub,
		wire.Bind(new(relay.Broadcaster), new(*hub.Hub)),
		relay.NewService,
		wire.Bind(new(queue.Relay), new(*relay.Service)),
		controller.NewHandler,
		http.NewRouter,
		rabbitmq.NewConsumer,
		rabbitmq.NewPublisher,
		app.NewApp,
	)
	return &app.App{}, nil
}
