package island

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/ini.v1"

	"github.com/udisondev/seaisle/internal/game/depthmap"
	"github.com/udisondev/seaisle/internal/game/tga"
)

type storedMap struct {
	blob, digest []byte
}

type memStore struct {
	maps    map[string]storedMap
	loadErr error
	loads   int
	saves   int
}

func newMemStore() *memStore {
	return &memStore{maps: make(map[string]storedMap)}
}

func (s *memStore) LoadDepthMap(_ context.Context, island string) ([]byte, []byte, error) {
	s.loads++
	if s.loadErr != nil {
		return nil, nil, s.loadErr
	}
	m, ok := s.maps[island]
	if !ok {
		return nil, nil, ErrNoDepthMap
	}
	return m.blob, m.digest, nil
}

func (s *memStore) SaveDepthMap(_ context.Context, island string, blob, digest []byte) error {
	s.saves++
	s.maps[island] = storedMap{blob: blob, digest: digest}
	return nil
}

const graphINI = `[GraphPoints]
pnt0 = 900.0,-600.0,1,0,1
pnt1 = 1100.0,-600.0,1,1,2
pnt2 = 1100.0,-400.0
`

var testSpec = Spec{
	Name:   "Bermudes",
	Dir:    "Bermudes",
	Center: orb.Point{1000, -500},
	Size:   orb.Point{150, 150},
}

func testGrid() []byte {
	const size = 64
	grid := bytes.Repeat([]byte{DepthSample(10)}, size*size)
	for z := 24; z < 40; z++ {
		for x := 24; x < 40; x++ {
			grid[x+z*size] = ShoreSample
		}
	}
	return grid
}

// writeResources lays out an island directory with a raw grid and ini.
func writeResources(t *testing.T, root string, grid []byte, iniData string) string {
	t.Helper()
	dir := filepath.Join(root, testSpec.Dir)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	base := filepath.Join(dir, testSpec.Name)
	if grid != nil {
		require.NoError(t, tga.WriteFile(base+".tga", &tga.Image{Width: 64, Height: 64, Pix: grid}))
	}
	if iniData != "" {
		require.NoError(t, os.WriteFile(base+".ini", []byte(iniData), 0o644))
	}
	return base
}

func TestLoaderBuildsFromRawGrid(t *testing.T) {
	root := t.TempDir()
	base := writeResources(t, root, testGrid(), graphINI)
	store := newMemStore()

	l := &Loader{Root: root, Store: store}
	isl, err := l.Load(context.Background(), testSpec)
	require.NoError(t, err)

	assert.Equal(t, 64, isl.DepthMap().Size())
	d, ok := isl.Depth(1000, -500)
	assert.True(t, ok)
	assert.Zero(t, d)
	assert.Equal(t, 3, isl.Graph().NumPoints())
	assert.InDelta(t, 400.0, isl.Graph().PathDistance(0, 2), 1e-9)

	assert.FileExists(t, base+".tga.zap")
	require.Contains(t, store.maps, testSpec.Name)
	assert.Equal(t, Digest(testGrid()), store.maps[testSpec.Name].digest)
}

func TestLoaderPrefersZapCache(t *testing.T) {
	root := t.TempDir()
	base := writeResources(t, root, nil, graphINI)

	grid := testGrid()
	grid[0] = 200
	m, err := depthmap.Build(grid, 64)
	require.NoError(t, err)
	require.NoError(t, m.Save(base+".tga.zap"))

	isl, err := (&Loader{Root: root}).Load(context.Background(), testSpec)
	require.NoError(t, err)
	assert.Equal(t, byte(200), isl.DepthMap().Get(0, 0))
}

func TestLoaderRebuildsBrokenZap(t *testing.T) {
	root := t.TempDir()
	base := writeResources(t, root, testGrid(), graphINI)
	require.NoError(t, os.WriteFile(base+".tga.zap", []byte("garbage"), 0o644))

	isl, err := (&Loader{Root: root}).Load(context.Background(), testSpec)
	require.NoError(t, err)
	assert.Equal(t, testGrid(), isl.DepthMap().Samples())

	// The cache was rewritten.
	_, err = depthmap.Load(base + ".tga.zap")
	assert.NoError(t, err)
}

func TestLoaderUsesStore(t *testing.T) {
	root := t.TempDir()
	writeResources(t, root, nil, graphINI)

	grid := testGrid()
	grid[5] = 77
	m, err := depthmap.Build(grid, 64)
	require.NoError(t, err)
	blob, err := m.MarshalBinary()
	require.NoError(t, err)

	store := newMemStore()
	store.maps[testSpec.Name] = storedMap{blob: blob, digest: Digest(grid)}

	isl, err := (&Loader{Root: root, Store: store}).Load(context.Background(), testSpec)
	require.NoError(t, err)
	assert.Equal(t, byte(77), isl.DepthMap().Get(5, 0))
	assert.Zero(t, store.saves)
}

func TestLoaderSkipsStaleStoredMap(t *testing.T) {
	root := t.TempDir()
	writeResources(t, root, testGrid(), graphINI)

	old := testGrid()
	old[5] = 77
	m, err := depthmap.Build(old, 64)
	require.NoError(t, err)
	blob, err := m.MarshalBinary()
	require.NoError(t, err)

	store := newMemStore()
	store.maps[testSpec.Name] = storedMap{blob: blob, digest: Digest(old)}

	isl, err := (&Loader{Root: root, Store: store}).Load(context.Background(), testSpec)
	require.NoError(t, err)
	assert.Equal(t, testGrid()[5], isl.DepthMap().Get(5, 0))
	assert.Equal(t, Digest(testGrid()), store.maps[testSpec.Name].digest, "store refreshed from raw grid")
}

func TestLoaderRebuildsAfterRawGridEdit(t *testing.T) {
	root := t.TempDir()
	base := writeResources(t, root, testGrid(), graphINI)
	store := newMemStore()
	l := &Loader{Root: root, Store: store}

	_, err := l.Load(context.Background(), testSpec)
	require.NoError(t, err)
	require.FileExists(t, base+".tga.zap")

	edited := testGrid()
	edited[5] = 77
	require.NoError(t, tga.WriteFile(base+".tga", &tga.Image{Width: 64, Height: 64, Pix: edited}))

	isl, err := l.Load(context.Background(), testSpec)
	require.NoError(t, err)
	assert.Equal(t, byte(77), isl.DepthMap().Get(5, 0))
	assert.Equal(t, Digest(edited), store.maps[testSpec.Name].digest)

	cached, err := depthmap.Load(base + ".tga.zap")
	require.NoError(t, err)
	assert.Equal(t, byte(77), cached.Get(5, 0), "cache rewritten")

	// Without a store the cache alone is checked against the raw grid.
	edited[6] = 99
	require.NoError(t, tga.WriteFile(base+".tga", &tga.Image{Width: 64, Height: 64, Pix: edited}))
	isl, err = (&Loader{Root: root}).Load(context.Background(), testSpec)
	require.NoError(t, err)
	assert.Equal(t, byte(99), isl.DepthMap().Get(6, 0))
}

func TestLoaderSeedsStoreFromCache(t *testing.T) {
	root := t.TempDir()
	base := writeResources(t, root, nil, graphINI)
	m, err := depthmap.Build(testGrid(), 64)
	require.NoError(t, err)
	require.NoError(t, m.Save(base+".tga.zap"))

	store := newMemStore()
	_, err = (&Loader{Root: root, Store: store}).Load(context.Background(), testSpec)
	require.NoError(t, err)

	require.Contains(t, store.maps, testSpec.Name)
	assert.Equal(t, Digest(testGrid()), store.maps[testSpec.Name].digest)
}

func TestLoaderStoreFailureFallsBack(t *testing.T) {
	root := t.TempDir()
	writeResources(t, root, testGrid(), graphINI)
	store := newMemStore()
	store.loadErr = errors.New("connection refused")

	isl, err := (&Loader{Root: root, Store: store}).Load(context.Background(), testSpec)
	require.NoError(t, err)
	assert.Equal(t, 64, isl.DepthMap().Size())
	assert.Equal(t, 1, store.loads)
}

func TestLoaderGeneratesMissingGrid(t *testing.T) {
	root := t.TempDir()
	base := writeResources(t, root, nil, graphINI)

	flat := TracerFunc(func(a, b Vec3) float64 {
		if b.Y < a.Y {
			return 0.01 // floor 5 below the water plane
		}
		return Clear
	})
	l := &Loader{Root: root, Tracer: flat, GridSize: 16}
	isl, err := l.Load(context.Background(), testSpec)
	require.NoError(t, err)

	assert.Equal(t, 16, isl.DepthMap().Size())
	assert.Equal(t, DepthSample(5), isl.DepthMap().Get(3, 3))
	assert.FileExists(t, base+".tga")
	assert.FileExists(t, base+".tga.zap")

	f, err := ini.Load(base + ".ini")
	require.NoError(t, err)
	sec := f.Section("Main")
	assert.Equal(t, filepath.ToSlash(base+".tga"), sec.Key("DepthFile").String())
	assert.Equal(t, "1000.000000,0.000000,-500.000000", sec.Key("vBoxCenter").String())
	assert.Equal(t, "100.000000,0.000000,100.000000", sec.Key("vBoxSize").String())
	assert.True(t, f.Section("GraphPoints").HasKey("pnt2"), "graph section kept")
	assert.Equal(t, 3, isl.Graph().NumPoints())
}

func TestLoaderWithoutDepthData(t *testing.T) {
	isl, err := (&Loader{Root: t.TempDir()}).Load(context.Background(), testSpec)
	require.NoError(t, err)

	assert.True(t, isl.DepthMap().IsEmpty())
	assert.Zero(t, isl.Graph().NumPoints())
	assert.True(t, isl.Graph().Built())
	d, ok := isl.Depth(1000, -500)
	assert.True(t, ok)
	assert.Equal(t, DepthHeight(depthmap.Empty), d)
}

func TestLoaderMalformedGraphIsEmpty(t *testing.T) {
	root := t.TempDir()
	writeResources(t, root, testGrid(), "[GraphPoints]\npnt0 = 1,2,1,0,9\n")

	isl, err := (&Loader{Root: root}).Load(context.Background(), testSpec)
	require.NoError(t, err)
	assert.Zero(t, isl.Graph().NumPoints())
	assert.Equal(t, 64, isl.DepthMap().Size())
}

func TestLoaderGenerationCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	l := &Loader{Root: t.TempDir(), Tracer: TracerFunc(func(a, b Vec3) float64 { return Clear })}
	_, err := l.Load(ctx, testSpec)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseVec(t *testing.T) {
	v, ok := parseVec(" 1.5, 0 ,-3")
	assert.True(t, ok)
	assert.Equal(t, Vec3{1.5, 0, -3}, v)

	_, ok = parseVec("1,2")
	assert.False(t, ok)
	_, ok = parseVec("a,b,c")
	assert.False(t, ok)
}
