// Package store persists users, sessions, orders and reactions in a single
// JSON document.
//
// Every operation runs on one goroutine in submission order, and each one
// holds a cross-process lock marker (<path>.lock) while it reads the whole
// document, transforms it in memory and, for mutations, replaces the whole
// file atomically. Several processes may share the same file.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ariefcatur/go-food-court/internal/logger"
	"github.com/ariefcatur/go-food-court/internal/orders"
)

const (
	DefaultLockTimeout = 5 * time.Second
	DefaultSessionTTL  = 7 * 24 * time.Hour
	DefaultRecentLimit = 250

	lockBackoff    = 35 * time.Millisecond
	lockStaleAfter = 30 * time.Second
	queueSize      = 256
)

type document struct {
	Users     []User                 `json:"users"`
	Sessions  []Session              `json:"sessions"`
	Orders    []orders.Order         `json:"orders"`
	Reactions []orders.ReactionEvent `json:"reactions"`
}

func (d *document) normalize() {
	if d.Users == nil {
		d.Users = []User{}
	}
	if d.Sessions == nil {
		d.Sessions = []Session{}
	}
	if d.Orders == nil {
		d.Orders = []orders.Order{}
	}
	if d.Reactions == nil {
		d.Reactions = []orders.ReactionEvent{}
	}
}

type job struct {
	ctx   context.Context
	write bool
	fn    func(d *document) error
	done  chan error
}

type Store struct {
	path       string
	lock       *fileLock
	sessionTTL time.Duration
	now        func() time.Time
	log        *zap.Logger

	mu      sync.RWMutex
	closed  bool
	jobs    chan job
	stopped chan struct{}
}

type Option func(*Store)

func WithLockTimeout(d time.Duration) Option {
	return func(s *Store) { s.lock.timeout = d }
}

func WithSessionTTL(d time.Duration) Option {
	return func(s *Store) { s.sessionTTL = d }
}

// WithClock replaces time.Now for session expiry and timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.log = l }
}

// Open prepares the document at path, creating it and its directory if
// needed, and starts the execution queue.
func Open(path string, opts ...Option) (*Store, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve store path: %w", err)
	}
	s := &Store{
		path:       abs,
		sessionTTL: DefaultSessionTTL,
		now:        time.Now,
		lock: &fileLock{
			path:       abs + ".lock",
			timeout:    DefaultLockTimeout,
			backoff:    lockBackoff,
			staleAfter: lockStaleAfter,
		},
		jobs:    make(chan job, queueSize),
		stopped: make(chan struct{}),
	}
	for _, o := range opts {
		o(s)
	}
	s.log = logger.OrNop(s.log)
	s.lock.log = s.log

	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	if _, err := os.Stat(abs); errors.Is(err, fs.ErrNotExist) {
		empty := &document{}
		empty.normalize()
		if err := s.write(empty); err != nil {
			return nil, err
		}
	}

	go s.loop()
	return s, nil
}

func (s *Store) Path() string { return s.path }

// Close lets queued operations finish and stops the queue.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.jobs)
	s.mu.Unlock()
	<-s.stopped
	return nil
}

func (s *Store) loop() {
	defer close(s.stopped)
	for j := range s.jobs {
		j.done <- s.run(j)
	}
}

func (s *Store) run(j job) error {
	if err := j.ctx.Err(); err != nil {
		return err
	}
	release, err := s.lock.acquire(j.ctx)
	if err != nil {
		return err
	}
	defer release()

	d, err := s.read()
	if err != nil {
		return err
	}
	// a failing transformation leaves the file untouched
	if err := j.fn(d); err != nil {
		return err
	}
	if !j.write {
		return nil
	}
	return s.write(d)
}

func (s *Store) submit(ctx context.Context, write bool, fn func(d *document) error) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return ErrClosed
	}
	j := job{ctx: ctx, write: write, fn: fn, done: make(chan error, 1)}
	s.jobs <- j
	s.mu.RUnlock()
	return <-j.done
}

func mutate[T any](ctx context.Context, s *Store, fn func(d *document) (T, error)) (T, error) {
	var out T
	err := s.submit(ctx, true, func(d *document) error {
		v, err := fn(d)
		out = v
		return err
	})
	return out, err
}

func view[T any](ctx context.Context, s *Store, fn func(d *document) T) (T, error) {
	var out T
	err := s.submit(ctx, false, func(d *document) error {
		out = fn(d)
		return nil
	})
	return out, err
}

func (s *Store) read() (*document, error) {
	d := &document{}
	raw, err := os.ReadFile(s.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read store: %w", err)
	default:
		if err := json.Unmarshal(raw, d); err != nil {
			s.log.Error("store document is corrupt, starting empty", zap.String("path", s.path), zap.Error(err))
			d = &document{}
		}
	}
	d.normalize()
	return d, nil
}

// write replaces the document through a temp file and rename so readers
// never observe a partial write.
func (s *Store) write(d *document) error {
	b, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("encode store: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace store: %w", err)
	}
	return nil
}
