package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/boxoffice-viewer/internal/domain"
)

// SnapshotsRepository stores named movie lists as whole JSON documents.
// Saving a name replaces the previous list; nothing is merged.
type SnapshotsRepository struct {
	pool *pgxpool.Pool
}

// Snapshot is one stored movie list.
type Snapshot struct {
	Name      string
	Movies    []domain.Movie
	UpdatedAt time.Time
}

// Save writes movies under name, replacing any previous list.
func (r *SnapshotsRepository) Save(ctx context.Context, name string, movies []domain.Movie) (Snapshot, error) {
	if movies == nil {
		movies = []domain.Movie{}
	}
	payload, err := json.Marshal(movies)
	if err != nil {
		return Snapshot{}, fmt.Errorf("encode snapshot: %w", err)
	}

	const query = `
        INSERT INTO ranking_snapshots (name, movies)
        VALUES ($1, $2)
        ON CONFLICT (name)
        DO UPDATE SET movies = EXCLUDED.movies, updated_at = now()
        RETURNING name, movies, updated_at
    `
	return scanSnapshot(r.pool.QueryRow(ctx, query, name, payload))
}

// Get loads the list stored under name.
func (r *SnapshotsRepository) Get(ctx context.Context, name string) (Snapshot, error) {
	const query = `
        SELECT name, movies, updated_at
        FROM ranking_snapshots
        WHERE name = $1
    `
	snap, err := scanSnapshot(r.pool.QueryRow(ctx, query, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Snapshot{}, ErrNotFound
		}
		return Snapshot{}, err
	}
	return snap, nil
}

// Delete removes the list stored under name. Deleting a missing name is not an error.
func (r *SnapshotsRepository) Delete(ctx context.Context, name string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM ranking_snapshots WHERE name = $1`, name); err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return nil
}

func scanSnapshot(row pgx.Row) (Snapshot, error) {
	var (
		snap    Snapshot
		payload []byte
	)
	if err := row.Scan(&snap.Name, &payload, &snap.UpdatedAt); err != nil {
		return Snapshot{}, err
	}
	if err := json.Unmarshal(payload, &snap.Movies); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	if snap.Movies == nil {
		snap.Movies = []domain.Movie{}
	}
	return snap, nil
}
