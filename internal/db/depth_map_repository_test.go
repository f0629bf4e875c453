package db

import (
	"bytes"
	"context"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/seaisle/internal/game/depthmap"
	"github.com/udisondev/seaisle/internal/game/island"
)

func testBlob(t *testing.T, fill byte) ([]byte, []byte) {
	t.Helper()
	grid := bytes.Repeat([]byte{fill}, 32*32)
	grid[100] = fill + 1
	m, err := depthmap.Build(grid, 32)
	require.NoError(t, err)
	blob, err := m.MarshalBinary()
	require.NoError(t, err)
	return blob, island.Digest(grid)
}

func TestDepthMapRepositoryRoundTrip(t *testing.T) {
	repo := NewDepthMapRepository(setupTestDB(t))
	ctx := context.Background()

	blob, digest := testBlob(t, 40)
	require.NoError(t, repo.SaveDepthMap(ctx, "Bermudes", blob, digest))

	gotBlob, gotDigest, err := repo.LoadDepthMap(ctx, "Bermudes")
	require.NoError(t, err)
	assert.Equal(t, blob, gotBlob)
	assert.Equal(t, digest, gotDigest)

	infos, err := repo.ListDepthMaps(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, DepthMapInfo{Island: "Bermudes", Size: 32, PoolBlocks: 1, Bytes: len(blob)}, infos[0])
}

func TestDepthMapRepositoryUpsert(t *testing.T) {
	repo := NewDepthMapRepository(setupTestDB(t))
	ctx := context.Background()

	first, d1 := testBlob(t, 40)
	second, d2 := testBlob(t, 90)
	require.NoError(t, repo.SaveDepthMap(ctx, "Oxbay", first, d1))
	require.NoError(t, repo.SaveDepthMap(ctx, "Oxbay", second, d2))

	blob, digest, err := repo.LoadDepthMap(ctx, "Oxbay")
	require.NoError(t, err)
	assert.Equal(t, second, blob)
	assert.Equal(t, d2, digest)
}

func TestDepthMapRepositoryMissing(t *testing.T) {
	repo := NewDepthMapRepository(setupTestDB(t))

	_, _, err := repo.LoadDepthMap(context.Background(), "Atlantis")
	assert.ErrorIs(t, err, island.ErrNoDepthMap)
}

func TestDepthMapRepositoryDelete(t *testing.T) {
	repo := NewDepthMapRepository(setupTestDB(t))
	ctx := context.Background()

	blob, digest := testBlob(t, 7)
	require.NoError(t, repo.SaveDepthMap(ctx, "Redmond", blob, digest))
	require.NoError(t, repo.DeleteDepthMap(ctx, "Redmond"))

	_, _, err := repo.LoadDepthMap(ctx, "Redmond")
	assert.ErrorIs(t, err, island.ErrNoDepthMap)
}

func TestDepthMapRepositoryRejectsMalformedBlob(t *testing.T) {
	repo := NewDepthMapRepository(setupTestDB(t))

	err := repo.SaveDepthMap(context.Background(), "Bad", []byte("nope"), nil)
	assert.ErrorIs(t, err, depthmap.ErrMalformed)
}

func TestLoaderWithRepository(t *testing.T) {
	repo := NewDepthMapRepository(setupTestDB(t))
	ctx := context.Background()

	grid := bytes.Repeat([]byte{island.DepthSample(10)}, 64*64)
	m, err := depthmap.Build(grid, 64)
	require.NoError(t, err)
	blob, err := m.MarshalBinary()
	require.NoError(t, err)
	require.NoError(t, repo.SaveDepthMap(ctx, "Stored", blob, island.Digest(grid)))

	l := &island.Loader{Root: t.TempDir(), Store: repo}
	isl, err := l.Load(ctx, island.Spec{Name: "Stored", Dir: "Stored", Size: orb.Point{150, 150}})
	require.NoError(t, err)
	assert.Equal(t, 64, isl.DepthMap().Size())
}
