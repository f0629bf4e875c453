package island

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"golang.org/x/crypto/blake2b"
	"gopkg.in/ini.v1"

	"github.com/udisondev/seaisle/internal/game/depthmap"
	"github.com/udisondev/seaisle/internal/game/navgraph"
	"github.com/udisondev/seaisle/internal/game/tga"
)

// ErrNoDepthMap is returned by a DepthStore without a map for the island.
var ErrNoDepthMap = errors.New("no stored depth map")

// DepthStore persists compressed depth maps keyed by island name together
// with the digest of the raw grid they were built from.
type DepthStore interface {
	LoadDepthMap(ctx context.Context, island string) (blob, digest []byte, err error)
	SaveDepthMap(ctx context.Context, island string, blob, digest []byte) error
}

// Spec locates an island's resources and describes its geometry box.
type Spec struct {
	Name   string
	Dir    string    // directory under the loader root
	Center orb.Point // ground-plane center of the geometry box
	Size   orb.Point // full ground-plane extent of the geometry box
}

// Main section keys of the island ini.
const (
	mainSection  = "Main"
	keyDepthFile = "DepthFile"
	keyBoxCenter = "vBoxCenter"
	keyBoxSize   = "vBoxSize"

	// boxTolerance is the squared distance above which the stored box is
	// reported as stale.
	boxTolerance = 0.1
)

// DefaultGridSize is the edge of generated depth grids.
const DefaultGridSize = 1 << 11

// Loader reads islands from a resource tree laid out as
// <Root>/<Dir>/<Name>.{ini,tga,tga.zap}.
type Loader struct {
	Root string
	// Store, when set, is consulted before the zap cache and receives every
	// map built from a raw grid.
	Store DepthStore
	// Tracer, when set, is used to generate a depth grid for islands that
	// have no depth data at all.
	Tracer Tracer
	// GridSize of generated grids; DefaultGridSize when zero.
	GridSize int
}

// Load reads one island. Missing or broken depth data and graphs degrade
// to empty ones with a warning; only a failed write of a generated grid or
// a cancelled context is an error.
func (l *Loader) Load(ctx context.Context, spec Spec) (*Island, error) {
	base := filepath.Join(l.Root, spec.Dir, spec.Name)
	iniPath := base + ".ini"
	tgaPath := base + ".tga"
	zapPath := tgaPath + ".zap"

	depth, err := l.loadDepth(ctx, spec, tgaPath, zapPath, iniPath)
	if err != nil {
		return nil, err
	}

	iniData, err := os.ReadFile(iniPath)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("read island ini", "island", spec.Name, "error", err)
	}
	graph := loadGraph(spec.Name, iniData)
	isl := New(spec.Name, spec.Center, spec.Size, depth, graph)
	if iniData != nil {
		checkBox(isl, iniPath, iniData)
	}

	slog.Info("island loaded",
		"island", spec.Name,
		"depth_size", depth.Size(),
		"pool_blocks", depth.PoolBlocks(),
		"graph_points", graph.NumPoints(),
		"graph_edges", graph.NumEdges())
	return isl, nil
}

func (l *Loader) loadDepth(ctx context.Context, spec Spec, tgaPath, zapPath, iniPath string) (*depthmap.Map, error) {
	var raw *tga.Image
	img, err := tga.ReadFile(tgaPath)
	switch {
	case err == nil:
		raw = img
	case !errors.Is(err, os.ErrNotExist):
		slog.Warn("read raw depth grid", "island", spec.Name, "file", tgaPath, "error", err)
	}

	if m := l.fromStore(ctx, spec.Name, raw); m != nil {
		return m, nil
	}

	m, err := depthmap.Load(zapPath)
	switch {
	case err == nil && staleCache(m, raw):
		slog.Info("depth map cache is stale", "island", spec.Name, "file", zapPath)
	case err == nil:
		if l.Store != nil {
			// The cache decodes to the grid it was built from.
			l.saveToStore(ctx, spec.Name, m, m.Samples())
		}
		return m, nil
	case !errors.Is(err, os.ErrNotExist):
		slog.Warn("depth map cache unusable", "island", spec.Name, "file", zapPath, "error", err)
	}

	if raw != nil {
		m, err := l.fromRaw(ctx, spec.Name, raw.Pix, raw.Width, raw.Height, zapPath)
		if err == nil {
			return m, nil
		}
		slog.Warn("build depth map from raw grid", "island", spec.Name, "file", tgaPath, "error", err)
	}

	if l.Tracer != nil {
		return l.generate(ctx, spec, tgaPath, zapPath, iniPath)
	}

	slog.Warn("no depth data for island", "island", spec.Name)
	return &depthmap.Map{}, nil
}

// fromStore returns the stored map when it exists, decodes and matches the
// raw grid when one is present.
func (l *Loader) fromStore(ctx context.Context, name string, raw *tga.Image) *depthmap.Map {
	if l.Store == nil {
		return nil
	}
	blob, digest, err := l.Store.LoadDepthMap(ctx, name)
	switch {
	case errors.Is(err, ErrNoDepthMap):
		slog.Debug("depth map not in store", "island", name)
		return nil
	case err != nil:
		slog.Warn("load depth map from store", "island", name, "error", err)
		return nil
	}
	if raw != nil {
		if sum := Digest(raw.Pix); !bytes.Equal(sum, digest) {
			slog.Info("stored depth map is stale", "island", name)
			return nil
		}
	}
	m := &depthmap.Map{}
	if err := m.UnmarshalBinary(blob); err != nil {
		slog.Warn("stored depth map unusable", "island", name, "error", err)
		return nil
	}
	return m
}

// staleCache reports whether a cached map no longer matches the raw grid.
// A raw grid that cannot be built from is never preferred over the cache.
func staleCache(m *depthmap.Map, raw *tga.Image) bool {
	if raw == nil || raw.Width != raw.Height {
		return false
	}
	return m.Size() != raw.Width || !bytes.Equal(m.Samples(), raw.Pix)
}

func (l *Loader) fromRaw(ctx context.Context, name string, pix []byte, w, h int, zapPath string) (*depthmap.Map, error) {
	if w != h {
		return nil, fmt.Errorf("%w: %dx%d grid is not square", depthmap.ErrInvalidSize, w, h)
	}
	m, err := depthmap.Build(pix, w)
	if err != nil {
		return nil, err
	}
	if err := m.Save(zapPath); err != nil {
		slog.Warn("save depth map cache", "island", name, "error", err)
	}
	l.saveToStore(ctx, name, m, pix)
	return m, nil
}

func (l *Loader) saveToStore(ctx context.Context, name string, m *depthmap.Map, pix []byte) {
	if l.Store == nil {
		return
	}
	blob, err := m.MarshalBinary()
	if err == nil {
		err = l.Store.SaveDepthMap(ctx, name, blob, Digest(pix))
	}
	if err != nil {
		slog.Warn("save depth map to store", "island", name, "error", err)
	}
}

func (l *Loader) generate(ctx context.Context, spec Spec, tgaPath, zapPath, iniPath string) (*depthmap.Map, error) {
	size := l.GridSize
	if size == 0 {
		size = DefaultGridSize
	}
	slog.Warn("no depth data, generating from geometry", "island", spec.Name, "size", size)

	box := BoxSize(spec.Size)
	grid, err := GenerateGrid(ctx, l.Tracer, spec.Center, box, size)
	if err != nil {
		return nil, fmt.Errorf("generate depth grid for %s: %w", spec.Name, err)
	}
	if err := os.MkdirAll(filepath.Dir(tgaPath), 0o755); err != nil {
		return nil, fmt.Errorf("create island dir: %w", err)
	}
	if err := tga.WriteFile(tgaPath, &tga.Image{Width: size, Height: size, Pix: grid}); err != nil {
		return nil, fmt.Errorf("save depth grid for %s: %w", spec.Name, err)
	}
	m, err := l.fromRaw(ctx, spec.Name, grid, size, size, zapPath)
	if err != nil {
		return nil, fmt.Errorf("build depth map for %s: %w", spec.Name, err)
	}
	if err := writeMain(iniPath, tgaPath, spec.Center, box); err != nil {
		return nil, fmt.Errorf("update %s: %w", iniPath, err)
	}
	return m, nil
}

// Digest returns the blake2b-256 digest of a raw depth grid.
func Digest(grid []byte) []byte {
	sum := blake2b.Sum256(grid)
	return sum[:]
}

func loadGraph(name string, iniData []byte) *navgraph.Graph {
	if iniData == nil {
		slog.Warn("no graph source for island", "island", name)
		return navgraph.New()
	}
	src, err := navgraph.ReadINI(iniData)
	if err == nil {
		var g *navgraph.Graph
		if g, err = navgraph.Load(src); err == nil {
			g.BuildTable()
			return g
		}
	}
	slog.Warn("graph source unusable", "island", name, "error", err)
	return navgraph.New()
}

// writeMain records the depth file and box of a generated grid in the
// island ini, keeping any other sections.
func writeMain(iniPath, tgaPath string, center, box orb.Point) error {
	f, err := ini.LooseLoad(iniPath)
	if err != nil {
		return err
	}
	sec := f.Section(mainSection)
	sec.Key(keyDepthFile).SetValue(filepath.ToSlash(tgaPath))
	sec.Key(keyBoxCenter).SetValue(formatVec(center.X(), 0, center.Y()))
	sec.Key(keyBoxSize).SetValue(formatVec(box.X()/2, 0, box.Y()/2))
	return f.SaveTo(iniPath)
}

// checkBox warns when the box recorded in the ini differs from the box
// the island was loaded with.
func checkBox(isl *Island, iniPath string, data []byte) {
	f, err := ini.Load(data)
	if err != nil || !f.HasSection(mainSection) {
		return
	}
	sec := f.Section(mainSection)

	if c, ok := parseVec(sec.Key(keyBoxCenter).String()); ok {
		want := Vec3{X: isl.center.X(), Z: isl.center.Y()}
		if d := c.Sub(want); d.Dot(d) > boxTolerance {
			slog.Warn("island box center mismatch", "island", isl.name, "file", iniPath,
				"stored", c, "actual", want, "distance", d.Length())
		}
	}
	if s, ok := parseVec(sec.Key(keyBoxSize).String()); ok {
		want := Vec3{X: isl.boxHalf.X(), Z: isl.boxHalf.Y()}
		if d := s.Sub(want); d.Dot(d) > boxTolerance {
			slog.Warn("island box size mismatch", "island", isl.name, "file", iniPath,
				"stored", s, "actual", want)
		}
	}
}

func formatVec(x, y, z float64) string {
	return fmt.Sprintf("%f,%f,%f", x, y, z)
}

func parseVec(s string) (Vec3, bool) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return Vec3{}, false
	}
	var v [3]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return Vec3{}, false
		}
		v[i] = f
	}
	return Vec3{X: v[0], Y: v[1], Z: v[2]}, true
}
