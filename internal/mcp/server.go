package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/mamaar/extractor/internal/app"
	"github.com/mamaar/extractor/pkg/report"
	"github.com/mamaar/extractor/pkg/watch"
)

const reportCacheSize = 64

// MCPServer holds the shared state for the MCP tool handlers: the loaded
// package directory, the miner, a cache of mined reports and a watcher
// that drops cached reports when the package changes.
type MCPServer struct {
	mu      sync.RWMutex
	miner   *app.Miner
	root    string
	reports *lru.Cache[string, *report.Report]
	watcher *watch.Watcher
	cancel  context.CancelFunc // stops watcher goroutine
	logger  *slog.Logger
}

// NewMCPServer creates a new MCPServer mining with miner.
func NewMCPServer(miner *app.Miner, logger *slog.Logger) (*MCPServer, error) {
	cache, err := lru.New[string, *report.Report](reportCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create report cache: %w", err)
	}
	return &MCPServer{miner: miner, reports: cache, logger: logger}, nil
}

// LoadWorkspace makes path the default package directory and starts a
// watcher on it. Cached reports are discarded.
func (s *MCPServer) LoadWorkspace(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("load workspace: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("load workspace: %s is not a directory", abs)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopWatcherLocked()
	s.root = abs
	s.reports.Purge()
	s.logger.Info("workspace loaded", "path", abs)

	filter, err := s.miner.Filter()
	if err != nil {
		return err
	}
	w, err := watch.NewWatcher(abs, s.miner.Config().Watch.Debounce, filter, s.logger)
	if err != nil {
		s.logger.Warn("watcher unavailable, cached reports will not be refreshed", "err", err)
		return nil
	}
	s.watcher = w

	watchCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	ch := make(chan []watch.ChangeEvent, 4)
	go func() {
		if err := w.Run(watchCtx, ch); err != nil && watchCtx.Err() == nil {
			s.logger.Error("watcher error", "err", err)
		}
	}()
	go func() {
		for {
			select {
			case <-watchCtx.Done():
				return
			case events := <-ch:
				s.logger.Debug("package changed, dropping cached reports", "files", len(events))
				s.reports.Purge()
			}
		}
	}()
	return nil
}

// dir resolves a tool's dir argument against the loaded workspace.
func (s *MCPServer) dir(arg string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch {
	case arg != "" && filepath.IsAbs(arg):
		return arg, nil
	case s.root == "":
		if arg == "" {
			return "", fmt.Errorf("no workspace loaded, call load_workspace first or pass dir")
		}
		return filepath.Abs(arg)
	default:
		return filepath.Join(s.root, arg), nil
	}
}

// Mine returns the report for target in dir. Reports of the loaded
// workspace directory are cached until its files change; any other
// directory is mined on every call since nothing watches it.
func (s *MCPServer) Mine(ctx context.Context, dir, target string) (*report.Report, error) {
	key := dir + "\x00" + target
	if s.watched(dir) {
		if r, ok := s.reports.Get(key); ok {
			s.logger.Debug("report cache hit", "dir", dir, "target", target)
			return r, nil
		}
	}

	run, err := s.miner.Mine(ctx, dir, target)
	if err != nil {
		return nil, err
	}
	r, err := s.miner.Report(run)
	if err != nil {
		return nil, err
	}
	if s.watched(dir) {
		s.reports.Add(key, r)
	}
	return r, nil
}

// watched reports whether dir is the directory the watcher observes.
func (s *MCPServer) watched(dir string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.watcher != nil && filepath.Clean(dir) == s.root
}

// Close stops the watcher and releases resources.
func (s *MCPServer) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopWatcherLocked()
}

func (s *MCPServer) stopWatcherLocked() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.watcher != nil {
		_ = s.watcher.Close()
		s.watcher = nil
	}
}
