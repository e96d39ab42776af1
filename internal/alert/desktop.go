package alert

import (
	"context"
	"os/exec"
	"sync"

	"go.uber.org/zap"
)

type Permission int

const (
	PermissionDefault Permission = iota
	PermissionGranted
	PermissionDenied
)

func (p Permission) String() string {
	switch p {
	case PermissionGranted:
		return "granted"
	case PermissionDenied:
		return "denied"
	default:
		return "default"
	}
}

// Runner executes the desktop notification command.
type Runner func(ctx context.Context, name string, args ...string) error

func execRunner(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}

const notifyCommand = "notify-send"

// Desktop raises native desktop notifications once permission is granted.
// Permission is granted when desktop alerts are enabled and the notification
// command is available.
type Desktop struct {
	enabled  bool
	run      Runner
	lookPath func(string) (string, error)
	log      *zap.Logger

	mu         sync.Mutex
	permission Permission
}

func NewDesktop(enabled bool, logger *zap.Logger) *Desktop {
	return &Desktop{
		enabled:  enabled,
		run:      execRunner,
		lookPath: exec.LookPath,
		log:      logger,
	}
}

// NewDesktopWithRunner is NewDesktop with an injected command runner and
// lookup, for hosts with a different notifier and for tests.
func NewDesktopWithRunner(enabled bool, run Runner, lookPath func(string) (string, error), logger *zap.Logger) *Desktop {
	d := NewDesktop(enabled, logger)
	d.run = run
	d.lookPath = lookPath
	return d
}

func (d *Desktop) Permission() Permission {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.permission
}

// RequestPermission settles the permission the first time it is called and
// returns the settled value afterwards.
func (d *Desktop) RequestPermission(_ context.Context) Permission {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.permission != PermissionDefault {
		return d.permission
	}
	d.permission = PermissionDenied
	if d.enabled {
		if _, err := d.lookPath(notifyCommand); err == nil {
			d.permission = PermissionGranted
		} else {
			d.log.Debug("desktop notifications unavailable", zap.Error(err))
		}
	}
	d.log.Info("desktop notification permission", zap.String("permission", d.permission.String()))
	return d.permission
}

func (d *Desktop) Alert(ctx context.Context, a Alert) {
	if d.Permission() != PermissionGranted {
		return
	}
	args := []string{"--app-name=OceanCare"}
	if a.RequireInteraction {
		args = append(args, "--urgency=critical")
	}
	args = append(args, a.Title, a.Body)
	if err := d.run(ctx, notifyCommand, args...); err != nil {
		d.log.Warn("desktop notification failed", zap.String("title", a.Title), zap.Error(err))
	}
}
