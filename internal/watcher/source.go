package watcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/dshills/emitter/internal/event"
)

// Source watches the file system and emits every change on an emitter.
type Source struct {
	mu sync.RWMutex

	watcher *fsnotify.Watcher
	emitter *event.Emitter
	config  Config
	logger  *zap.Logger
	ignore  *IgnorePatterns

	// Tracked paths
	paths map[string]bool

	// Changes collected for the next fs.batch emission
	pending []FileEvent

	// Stats
	startTime   time.Time
	totalEvents atomic.Int64
	batches     atomic.Int64
	totalErrors atomic.Int64
	lastError   error

	closed bool
}

// New creates a source emitting on em.
func New(em *event.Emitter, opts ...Option) (*Source, error) {
	config := DefaultConfig()
	for _, opt := range opts {
		opt(&config)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}

	s := &Source{
		watcher:   fsw,
		emitter:   em,
		config:    config,
		logger:    config.Logger,
		ignore:    NewIgnorePatterns(),
		paths:     make(map[string]bool),
		startTime: time.Now(),
	}

	for _, pattern := range config.IgnorePatterns {
		if err := s.ignore.AddPattern(pattern); err != nil {
			fsw.Close()
			return nil, fmt.Errorf("ignore pattern %q: %w", pattern, err)
		}
	}

	return s, nil
}

// Watch starts watching a path.
func (s *Source) Watch(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrWatcherClosed
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	if _, err := os.Stat(absPath); err != nil {
		if os.IsNotExist(err) {
			return ErrPathNotExist
		}
		return err
	}

	if s.paths[absPath] {
		return ErrAlreadyWatching
	}

	if s.config.MaxWatches > 0 && len(s.paths) >= s.config.MaxWatches {
		return errors.New("maximum watch limit reached")
	}

	if err := s.watcher.Add(absPath); err != nil {
		return err
	}

	s.paths[absPath] = true
	return nil
}

// WatchRecursive watches a directory and all subdirectories.
func (s *Source) WatchRecursive(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	info, err := os.Stat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrPathNotExist
		}
		return err
	}
	if !info.IsDir() {
		return s.Watch(absPath)
	}

	return filepath.WalkDir(absPath, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // Skip errors, continue walking
		}
		if !d.IsDir() {
			return nil
		}
		if p != absPath && s.shouldIgnore(p, true) {
			return filepath.SkipDir
		}

		if watchErr := s.Watch(p); watchErr != nil && !errors.Is(watchErr, ErrAlreadyWatching) {
			s.recordError(watchErr)
		}
		return nil
	})
}

// Unwatch stops watching a path.
func (s *Source) Unwatch(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrWatcherClosed
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	if !s.paths[absPath] {
		return ErrNotWatching
	}

	if err := s.watcher.Remove(absPath); err != nil {
		return err
	}

	delete(s.paths, absPath)
	return nil
}

// IsWatching returns true if the path is being watched.
func (s *Source) IsWatching(path string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	return s.paths[absPath]
}

// WatchedPaths returns all watched paths, sorted.
func (s *Source) WatchedPaths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	paths := make([]string, 0, len(s.paths))
	for p := range s.paths {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Run emits file system changes until ctx is done or the source is closed.
// Pending batched changes are flushed before it returns.
func (s *Source) Run(ctx context.Context) error {
	var tick <-chan time.Time
	if s.config.BatchInterval > 0 {
		ticker := time.NewTicker(s.config.BatchInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	defer s.flush(context.WithoutCancel(ctx))

	for {
		select {
		case <-ctx.Done():
			return nil

		case fsEvent, ok := <-s.watcher.Events:
			if !ok {
				return nil
			}
			s.handleFSEvent(ctx, fsEvent)

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return nil
			}
			s.recordError(err)
			s.logger.Warn("watch error", zap.Error(err))

		case <-tick:
			s.flush(ctx)
		}
	}
}

// Close stops watching and releases resources. A running Run returns.
func (s *Source) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	return s.watcher.Close()
}

// Stats returns watcher statistics.
func (s *Source) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Stats{
		WatchedPaths: len(s.paths),
		TotalEvents:  s.totalEvents.Load(),
		Batches:      s.batches.Load(),
		Errors:       s.totalErrors.Load(),
		LastError:    s.lastError,
		StartTime:    s.startTime,
	}
}

// handleFSEvent emits one FileEvent per operation in the fsnotify event.
func (s *Source) handleFSEvent(ctx context.Context, fsEvent fsnotify.Event) {
	op := convertOp(fsEvent.Op)
	if op == 0 {
		return // Unknown operation
	}

	if s.shouldIgnore(fsEvent.Name, false) {
		return
	}

	now := time.Now()
	for _, single := range ops {
		if !op.Has(single) {
			continue
		}
		fe := FileEvent{Path: fsEvent.Name, Op: single, Timestamp: now}
		s.emit(ctx, fe)
	}

	// Auto-watch new directories
	if op.Has(OpCreate) {
		info, err := os.Stat(fsEvent.Name)
		if err == nil && info.IsDir() {
			_ = s.Watch(fsEvent.Name)
		}
	}
}

func (s *Source) emit(ctx context.Context, fe FileEvent) {
	key, _ := KeyFor(fe.Op)

	s.totalEvents.Add(1)
	if s.config.BatchInterval > 0 {
		s.mu.Lock()
		s.pending = append(s.pending, fe)
		s.mu.Unlock()
	}

	if err := event.Emit(ctx, s.emitter, key, fe); err != nil {
		s.recordError(err)
		s.logger.Warn("file event handler failed",
			zap.String("path", fe.Path),
			zap.Stringer("op", fe.Op),
			zap.Error(err),
		)
	}
}

// flush emits the collected changes on fs.batch.
func (s *Source) flush(ctx context.Context) {
	s.mu.Lock()
	batch := s.pending
	s.pending = nil
	s.mu.Unlock()

	if len(batch) == 0 {
		return
	}

	s.batches.Add(1)
	if err := event.EmitAsync(ctx, s.emitter, KeyBatch, batch); err != nil {
		s.recordError(err)
		s.logger.Warn("batch handler failed",
			zap.Int("changes", len(batch)),
			zap.Error(err),
		)
	}
}

// convertOp converts fsnotify.Op to watcher.Op.
func convertOp(fsOp fsnotify.Op) Op {
	var op Op
	if fsOp.Has(fsnotify.Create) {
		op |= OpCreate
	}
	if fsOp.Has(fsnotify.Write) {
		op |= OpWrite
	}
	if fsOp.Has(fsnotify.Remove) {
		op |= OpRemove
	}
	if fsOp.Has(fsnotify.Rename) {
		op |= OpRename
	}
	if fsOp.Has(fsnotify.Chmod) {
		op |= OpChmod
	}
	return op
}

// shouldIgnore checks if a path should be ignored.
func (s *Source) shouldIgnore(path string, isDir bool) bool {
	if s.config.IgnoreHidden {
		base := filepath.Base(path)
		if len(base) > 0 && base[0] == '.' {
			return true
		}
	}

	return s.ignore.Match(path, isDir)
}

// recordError records an error in stats.
func (s *Source) recordError(err error) {
	s.totalErrors.Add(1)
	s.mu.Lock()
	s.lastError = err
	s.mu.Unlock()
}
