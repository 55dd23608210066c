// Package registry holds the authoritative in-memory set of short links.
//
// Every mutation is applied under an exclusive lock and the whole set is written to the
// configured Store before the lock is released, so the persisted snapshot never lags behind
// what a concurrent reader can observe. Persistence is best effort: a failed write is logged
// and counted, and the in-memory state stays authoritative until the next successful save.
// A write that outlasts the save timeout is abandoned and counted as failed.
package registry

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/vadimbarashkov/shortlink/internal/entity"
)

// Store loads and saves full registry snapshots.
// Save must not retain the map after it returns.
type Store interface {
	Load(ctx context.Context) (map[string]entity.URLEntry, error)
	Save(ctx context.Context, entries map[string]entity.URLEntry) error
}

// Recorder receives registry events for metrics.
type Recorder interface {
	ObserveSave(err error)
	ObserveVisit()
	SetEntries(n int)
}

type nopRecorder struct{}

func (nopRecorder) ObserveSave(error) {}
func (nopRecorder) ObserveVisit()     {}
func (nopRecorder) SetEntries(int)    {}

// DefaultSaveTimeout bounds a single snapshot write, and with it the time the write lock is held.
const DefaultSaveTimeout = 5 * time.Second

type Option func(*Registry)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

func WithRecorder(rec Recorder) Option {
	return func(r *Registry) {
		r.recorder = rec
	}
}

// WithSaveTimeout overrides DefaultSaveTimeout. Non-positive values are ignored.
func WithSaveTimeout(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.saveTimeout = d
		}
	}
}

// WithClock overrides the source of visit timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

type Registry struct {
	mu          sync.RWMutex
	entries     map[string]entity.URLEntry
	store       Store
	logger      *slog.Logger
	recorder    Recorder
	now         func() time.Time
	saveTimeout time.Duration
}

// New builds a Registry seeded from store. A store that cannot be read is logged and the
// registry starts empty; New never fails because of the store.
func New(ctx context.Context, store Store, opts ...Option) *Registry {
	r := &Registry{
		store:       store,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		recorder:    nopRecorder{},
		now:         time.Now,
		saveTimeout: DefaultSaveTimeout,
	}

	for _, opt := range opts {
		opt(r)
	}

	entries, err := store.Load(ctx)
	if err != nil {
		r.logger.Warn("failed to load registry, starting empty", slog.Any("err", err))
		entries = nil
	}
	if entries == nil {
		entries = make(map[string]entity.URLEntry)
	}

	r.entries = entries
	r.recorder.SetEntries(len(entries))
	r.logger.Info("registry loaded", slog.Int("entries", len(entries)))

	return r
}

// Get returns a copy of the entry stored under shortCode.
func (r *Registry) Get(shortCode string) (entity.URLEntry, error) {
	const op = "registry.Registry.Get"

	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[shortCode]
	if !ok {
		return entity.URLEntry{}, fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
	}

	return e.Clone(), nil
}

// List returns a snapshot of every entry in no particular order.
func (r *Registry) List() []entity.URLEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]entity.URLEntry, 0, len(r.entries))
	for _, e := range r.entries {
		list = append(list, e.Clone())
	}

	return list
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.entries)
}

// Insert adds e under e.ShortCode. The occupancy check and the insert happen in the same
// critical section; an occupied code yields entity.ErrShortCodeExists.
func (r *Registry) Insert(ctx context.Context, e entity.URLEntry) error {
	const op = "registry.Registry.Insert"

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[e.ShortCode]; ok {
		return fmt.Errorf("%s: %w", op, entity.ErrShortCodeExists)
	}

	r.entries[e.ShortCode] = e.Clone()
	r.persist(ctx)

	return nil
}

// Remove deletes the entry under shortCode. A missing code leaves the registry untouched.
func (r *Registry) Remove(ctx context.Context, shortCode string) error {
	const op = "registry.Registry.Remove"

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[shortCode]; !ok {
		return fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
	}

	delete(r.entries, shortCode)
	r.persist(ctx)

	return nil
}

// RecordVisit increments the visit counter of shortCode, stamps the visit time and returns
// the updated entry. Unknown codes are not created.
func (r *Registry) RecordVisit(ctx context.Context, shortCode string) (entity.URLEntry, error) {
	const op = "registry.Registry.RecordVisit"

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[shortCode]
	if !ok {
		return entity.URLEntry{}, fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
	}

	visited := r.now().UTC()
	e.VisitCount++
	e.LastVisit = &visited
	r.entries[shortCode] = e

	r.recorder.ObserveVisit()
	r.persist(ctx)

	return e.Clone(), nil
}

// persist writes the full map. Callers must hold the write lock.
// The save outlives request cancellation but not saveTimeout.
func (r *Registry) persist(ctx context.Context) {
	r.recorder.SetEntries(len(r.entries))

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.saveTimeout)
	defer cancel()

	err := r.store.Save(ctx, r.entries)
	r.recorder.ObserveSave(err)
	if err != nil {
		r.logger.Error("failed to persist registry",
			slog.Int("entries", len(r.entries)),
			slog.Any("err", err),
		)
	}
}
