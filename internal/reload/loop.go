// Package reload periodically reopens the database file and installs the
// result into the shared handle.
package reload

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/TomasB/ipcountry/internal/data"
	"github.com/TomasB/ipcountry/internal/metrics"
)

// Installer receives freshly opened databases.
type Installer interface {
	Replace(db data.Database) error
}

// Loop reloads the database every interval. Cycles never overlap: the
// timer and manual triggers are all served by the single Run goroutine.
type Loop struct {
	target   Installer
	open     data.Opener
	path     string
	interval time.Duration
	trigger  chan struct{}
}

// New creates a reload loop for the database at path.
func New(target Installer, open data.Opener, path string, interval time.Duration) *Loop {
	return &Loop{
		target:   target,
		open:     open,
		path:     path,
		interval: interval,
		trigger:  make(chan struct{}, 1),
	}
}

// Trigger requests an immediate reload. Requests made while one is already
// pending are coalesced.
func (l *Loop) Trigger() {
	select {
	case l.trigger <- struct{}{}:
	default:
	}
}

// Run sleeps for the interval, reloads, and repeats until ctx is done.
// Reload failures are logged and leave the installed database in place.
func (l *Loop) Run(ctx context.Context) {
	timer := time.NewTimer(l.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			slog.Info("reloading database", "path", l.path, "reason", "interval")
		case <-l.trigger:
			slog.Info("reloading database", "path", l.path, "reason", "trigger")
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
		}

		if err := l.Reload(); err != nil {
			slog.Error("database reload failed, keeping current database", "path", l.path, "error", err)
		}
		timer.Reset(l.interval)
	}
}

// Reload performs one load-and-install cycle.
func (l *Loop) Reload() error {
	start := time.Now()
	db, err := l.open(l.path)
	metrics.ReloadDurationSeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ReloadsTotal.WithLabelValues(metrics.ReloadResultOpenFailed).Inc()
		return fmt.Errorf("failed to open database: %w", err)
	}

	md := db.Metadata()
	if err := l.target.Replace(db); err != nil {
		metrics.ReloadsTotal.WithLabelValues(metrics.ReloadResultRejected).Inc()
		return fmt.Errorf("failed to install database: %w", err)
	}

	metrics.ReloadsTotal.WithLabelValues(metrics.ReloadResultSuccess).Inc()
	metrics.LastReloadTimestamp.SetToCurrentTime()
	if !md.BuildTime.IsZero() {
		metrics.DatabaseBuildTimestamp.Set(float64(md.BuildTime.Unix()))
	}
	slog.Info("database reloaded",
		"path", l.path,
		"database_type", md.DatabaseType,
		"build_time", md.BuildTime,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}
