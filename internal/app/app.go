package app

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"oceancare/internal/config"
	"oceancare/internal/hub"
	"oceancare/internal/queue"
	"oceancare/internal/telemetry"
)

// App is the realtime gateway: the room hub, the broker consumer and the
// HTTP server in front of them.
type App struct {
	cfg       *config.Config
	hub       *hub.Hub
	consumer  queue.Consumer
	server    *http.Server
	telemetry telemetry.Shutdown
	logger    *zap.Logger
	wg        sync.WaitGroup
}

func NewApp(cfg *config.Config, hub *hub.Hub, consumer queue.Consumer, router *gin.Engine, shutdown telemetry.Shutdown, logger *zap.Logger) *App {
	return &App{
		cfg:      cfg,
		hub:      hub,
		consumer: consumer,
		server: &http.Server{
			Addr:    cfg.HTTPAddr,
			Handler: router,
		},
		telemetry: shutdown,
		logger:    logger,
	}
}

// Run blocks serving HTTP until Shutdown is called or the listener fails.
func (a *App) Run(ctx context.Context) error {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.hub.Run(ctx)
	}()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.consumer.Start(ctx); err != nil && ctx.Err() == nil {
			a.logger.Error("consumer stopped", zap.Error(err))
		}
	}()

	a.logger.Info("gateway listening", zap.String("addr", a.cfg.HTTPAddr))
	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("graceful shutdown started")
	shutdownErr := a.server.Shutdown(ctx)

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		if shutdownErr != nil {
			return shutdownErr
		}
		return ctx.Err()
	}

	if a.telemetry != nil {
		if err := a.telemetry(ctx); err != nil {
			a.logger.Warn("telemetry shutdown failed", zap.Error(err))
		}
	}
	a.logger.Info("graceful shutdown completed")
	return shutdownErr
}

func (a *App) Logger() *zap.Logger {
	return a.logger
}
