package alert

import (
	"context"

	"go.uber.org/zap"
	"oceancare/internal/domain"
)

type Alert struct {
	Kind               domain.EventKind
	Title              string
	Body               string
	Icon               string
	RequireInteraction bool
}

// Alerter shows a local alert. Implementations are best-effort and must not
// report failures to the caller.
type Alerter interface {
	Alert(ctx context.Context, a Alert)
}

// Toast writes the alert to the session log, the terminal stand-in for an
// in-app toast.
type Toast struct {
	log *zap.Logger
}

func NewToast(logger *zap.Logger) *Toast {
	return &Toast{log: logger}
}

func (t *Toast) Alert(_ context.Context, a Alert) {
	t.log.Info(a.Icon+" "+a.Title,
		zap.String("kind", a.Kind.String()),
		zap.String("message", a.Body),
	)
}

// Multi fans an alert out to every alerter in order.
type Multi []Alerter

func (m Multi) Alert(ctx context.Context, a Alert) {
	for _, alerter := range m {
		if alerter != nil {
			alerter.Alert(ctx, a)
		}
	}
}
