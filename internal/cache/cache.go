// Package cache holds the last ranking result so the detail flow can read it
// without another ranking request.
//
// Policy: last write wins. Set replaces the whole list; lists are never merged.
package cache

import (
	"context"
	"errors"
	"sync"

	"github.com/Clark-Hu/boxoffice-viewer/internal/domain"
	"github.com/Clark-Hu/boxoffice-viewer/internal/repository"
)

// DefaultName is the entry the ranking flow writes and the detail flow reads.
const DefaultName = "movies"

// Store is the get/set/clear contract shared by the ranking and detail flows.
// Get reports false when nothing has been stored yet.
type Store interface {
	Get(ctx context.Context) ([]domain.Movie, bool, error)
	Set(ctx context.Context, movies []domain.Movie) error
	Clear(ctx context.Context) error
}

// Memory keeps the list in process memory.
type Memory struct {
	mu     sync.RWMutex
	movies []domain.Movie
	ok     bool
}

// NewMemory returns an empty in-memory cache.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Get(_ context.Context) ([]domain.Movie, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.ok {
		return nil, false, nil
	}
	return domain.CloneMovies(m.movies), true, nil
}

func (m *Memory) Set(_ context.Context, movies []domain.Movie) error {
	cloned := domain.CloneMovies(movies)
	if cloned == nil {
		cloned = []domain.Movie{}
	}
	m.mu.Lock()
	m.movies = cloned
	m.ok = true
	m.mu.Unlock()
	return nil
}

func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	m.movies = nil
	m.ok = false
	m.mu.Unlock()
	return nil
}

// Postgres keeps the list in the ranking_snapshots table so it survives restarts
// and is shared by every instance pointed at the same database.
type Postgres struct {
	snapshots *repository.SnapshotsRepository
	name      string
}

// NewPostgres stores the list under name (DefaultName when empty).
func NewPostgres(repo *repository.Repository, name string) *Postgres {
	if name == "" {
		name = DefaultName
	}
	return &Postgres{snapshots: repo.Snapshots, name: name}
}

func (p *Postgres) Get(ctx context.Context) ([]domain.Movie, bool, error) {
	snap, err := p.snapshots.Get(ctx, p.name)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return snap.Movies, true, nil
}

func (p *Postgres) Set(ctx context.Context, movies []domain.Movie) error {
	_, err := p.snapshots.Save(ctx, p.name, movies)
	return err
}

func (p *Postgres) Clear(ctx context.Context) error {
	return p.snapshots.Delete(ctx, p.name)
}
