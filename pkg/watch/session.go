package watch

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// RunFunc performs one mining pass over the package. changes is nil for
// the initial pass.
type RunFunc func(ctx context.Context, changes []ChangeEvent) error

// Session mines once, then again after every batch of changes.
type Session struct {
	dir      string
	debounce time.Duration
	filter   Filter
	run      RunFunc
	logger   *slog.Logger
}

// NewSession creates a session for the package in dir.
func NewSession(dir string, debounce time.Duration, filter Filter, run RunFunc, logger *slog.Logger) *Session {
	return &Session{dir: dir, debounce: debounce, filter: filter, run: run, logger: logger}
}

// Run blocks until ctx is cancelled. A failing pass is logged and the
// session keeps watching.
func (s *Session) Run(ctx context.Context) error {
	w, err := NewWatcher(s.dir, s.debounce, s.filter, s.logger)
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()

	s.pass(ctx, nil)

	batches := make(chan []ChangeEvent, 4)
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx, batches) }()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errCh:
			if err == nil || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		case batch := <-batches:
			s.logger.Info("package changed, mining again", "dir", s.dir, "files", len(batch))
			s.pass(ctx, batch)
		}
	}
}

func (s *Session) pass(ctx context.Context, changes []ChangeEvent) {
	start := time.Now()
	if err := s.run(ctx, changes); err != nil {
		s.logger.Warn("mining pass failed", "dir", s.dir, "err", err)
		return
	}
	s.logger.Debug("mining pass complete", "dir", s.dir, "elapsed", time.Since(start).Round(time.Millisecond))
}
