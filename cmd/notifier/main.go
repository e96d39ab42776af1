package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"oceancare/internal/alert"
	"oceancare/internal/config"
	"oceancare/internal/domain"
	"oceancare/internal/logging"
	"oceancare/internal/model"
	"oceancare/internal/session"
	"oceancare/internal/socket"
)

// notifier logs in as SESSION_USER_ID / SESSION_ROLE, joins the matching
// room on the gateway and surfaces notifications until interrupted.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.New()
	logger, err := logging.New(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	role, ok := domain.ParseRole(cfg.SessionRole)
	if !ok {
		logger.Fatal("SESSION_ROLE must be PATIENT or DOCTOR", zap.String("role", cfg.SessionRole))
	}
	identity := model.Identity{ID: cfg.SessionUserID, Role: role}

	desktop := alert.NewDesktop(cfg.DesktopAlerts, logger)
	s, err := session.Open(ctx, identity, session.Deps{
		Endpoint: cfg.SocketURL,
		Dialer:   socket.WebsocketDialer{},
		Socket: socket.Options{
			ReconnectAttempts: cfg.ReconnectAttempts,
			ReconnectDelay:    cfg.ReconnectDelay,
			ReadTimeout:       cfg.ReadTimeout,
		},
		Alerter:        alert.Multi{alert.NewToast(logger), desktop},
		Desktop:        desktop,
		AlertQueueSize: cfg.AlertQueueSize,
		Logger:         logger,
	})
	if err != nil {
		logger.Fatal("open session", zap.Error(err))
	}
	defer s.Close()

	report := time.NewTicker(30 * time.Second)
	defer report.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info("notifier stopping", zap.Int("unread", s.UnreadCount()))
			return
		case <-report.C:
			logger.Info("session status",
				zap.String("indicator", s.Indicator()),
				zap.String("membership", s.Membership().String()),
				zap.Int("unread", s.UnreadCount()),
			)
		}
	}
}
