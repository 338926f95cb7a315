package content

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Store owns the process-wide catalog. The catalog is loaded once at
// construction and swapped atomically when the files on disk change.
type Store struct {
	dir string
	cur atomic.Pointer[Catalog]
	log *zap.Logger

	mu        sync.Mutex
	listeners []func(*Catalog)
}

// NewStore loads the catalog from dir.
func NewStore(dir string, log *zap.Logger) (*Store, error) {
	cat, err := Load(dir)
	if err != nil {
		return nil, fmt.Errorf("load content %s: %w", dir, err)
	}
	s := &Store{dir: dir, log: log}
	s.cur.Store(cat)
	return s, nil
}

// StaticStore wraps an already built catalog. It never reloads.
func StaticStore(cat *Catalog, log *zap.Logger) *Store {
	s := &Store{log: log}
	s.cur.Store(cat)
	return s
}

// Current returns the catalog in effect. Callers keep the pointer for the
// duration of one operation so a reload never splits a tick.
func (s *Store) Current() *Catalog { return s.cur.Load() }

// OnChange registers fn to run after every successful reload.
func (s *Store) OnChange(fn func(*Catalog)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// Reload re-reads the tables if their hash differs from the current one.
// It reports whether a new catalog was installed.
func (s *Store) Reload() (bool, error) {
	if s.dir == "" {
		return false, nil
	}
	hash, err := HashDir(s.dir)
	if err != nil {
		return false, err
	}
	if old := s.cur.Load(); old != nil && old.Hash == hash {
		return false, nil
	}
	cat, err := Load(s.dir)
	if err != nil {
		return false, err
	}
	s.cur.Store(cat)
	s.log.Info("content reloaded", zap.String("hash", cat.Hash))

	s.mu.Lock()
	ls := append([]func(*Catalog){}, s.listeners...)
	s.mu.Unlock()
	for _, fn := range ls {
		fn(cat)
	}
	return true, nil
}

// Watch polls the content directory until ctx is done.
func (s *Store) Watch(ctx context.Context, every time.Duration) {
	if every <= 0 || s.dir == "" {
		return
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, err := s.Reload(); err != nil {
				s.log.Warn("content reload failed", zap.Error(err))
			}
		}
	}
}
