package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/udisondev/seaisle/internal/game/depthmap"
	"github.com/udisondev/seaisle/internal/game/island"
)

// DepthMapRepository implements island.DepthStore backed by PostgreSQL.
type DepthMapRepository struct {
	pool *pgxpool.Pool
}

// Compile-time check.
var _ island.DepthStore = (*DepthMapRepository)(nil)

// NewDepthMapRepository creates a new depth map repository.
func NewDepthMapRepository(pool *pgxpool.Pool) *DepthMapRepository {
	return &DepthMapRepository{pool: pool}
}

// SaveDepthMap inserts or replaces the compressed map of an island.
// The blob must decode as a depth map.
func (r *DepthMapRepository) SaveDepthMap(ctx context.Context, name string, blob, digest []byte) error {
	var m depthmap.Map
	if err := m.UnmarshalBinary(blob); err != nil {
		return fmt.Errorf("save depth map %s: %w", name, err)
	}

	if _, err := r.pool.Exec(ctx,
		`INSERT INTO island_depth_maps (island, blob, source_digest, size, pool_blocks, updated_at)
		 VALUES ($1, $2, $3, $4, $5, now())
		 ON CONFLICT (island) DO UPDATE SET
		     blob = EXCLUDED.blob,
		     source_digest = EXCLUDED.source_digest,
		     size = EXCLUDED.size,
		     pool_blocks = EXCLUDED.pool_blocks,
		     updated_at = EXCLUDED.updated_at`,
		name, blob, digest, m.Size(), m.PoolBlocks()); err != nil {
		return fmt.Errorf("save depth map %s: %w", name, err)
	}
	return nil
}

// LoadDepthMap fetches the compressed map of an island and the digest of
// the raw grid it was built from. Returns island.ErrNoDepthMap when the
// island has no row.
func (r *DepthMapRepository) LoadDepthMap(ctx context.Context, name string) ([]byte, []byte, error) {
	var blob, digest []byte
	err := r.pool.QueryRow(ctx,
		`SELECT blob, source_digest FROM island_depth_maps WHERE island = $1`, name,
	).Scan(&blob, &digest)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, fmt.Errorf("load depth map %s: %w", name, island.ErrNoDepthMap)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load depth map %s: %w", name, err)
	}
	return blob, digest, nil
}

// DeleteDepthMap removes the stored map of an island.
func (r *DepthMapRepository) DeleteDepthMap(ctx context.Context, name string) error {
	if _, err := r.pool.Exec(ctx,
		`DELETE FROM island_depth_maps WHERE island = $1`, name); err != nil {
		return fmt.Errorf("delete depth map %s: %w", name, err)
	}
	return nil
}

// DepthMapInfo summarizes one stored map.
type DepthMapInfo struct {
	Island     string
	Size       int
	PoolBlocks int
	Bytes      int
}

// ListDepthMaps returns a summary of every stored map ordered by island.
func (r *DepthMapRepository) ListDepthMaps(ctx context.Context) ([]DepthMapInfo, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT island, size, pool_blocks, octet_length(blob) FROM island_depth_maps ORDER BY island`)
	if err != nil {
		return nil, fmt.Errorf("query depth maps: %w", err)
	}
	defer rows.Close()

	var result []DepthMapInfo
	for rows.Next() {
		var info DepthMapInfo
		if err := rows.Scan(&info.Island, &info.Size, &info.PoolBlocks, &info.Bytes); err != nil {
			return nil, fmt.Errorf("scan depth map row: %w", err)
		}
		result = append(result, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate depth map rows: %w", err)
	}
	return result, nil
}
