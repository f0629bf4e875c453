package island

import (
	"context"
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/seaisle/internal/game/depthmap"
)

// coneTracer is a conical island: ground height 10 - r/10 around the
// origin, so the shore is at r = 100 and the floor is 20 deep at r = 300.
// Segments are marched in small steps.
type coneTracer struct{}

func coneHeight(x, z float64) float64 { return 10 - math.Hypot(x, z)/10 }

func (coneTracer) Trace(a, b Vec3) float64 {
	res, _ := coneTracer{}.TraceNormal(a, b)
	return res
}

func (coneTracer) TraceNormal(a, b Vec3) (float64, Vec3) {
	const steps = 2000
	d := b.Sub(a)
	for i := range steps + 1 {
		t := float64(i) / steps
		p := a.Add(d.Scale(t))
		if p.Y <= coneHeight(p.X, p.Z) {
			r := math.Max(math.Hypot(p.X, p.Z), 1e-9)
			return t, Vec3{X: p.X / r / 10, Y: 1, Z: p.Z / r / 10}
		}
	}
	return Clear, Vec3{}
}

func TestGenerateGridCone(t *testing.T) {
	const size = 64
	box := orb.Point{800, 800} // 12.5 units per cell
	grid, err := GenerateGrid(context.Background(), coneTracer{}, orb.Point{}, box, size)
	require.NoError(t, err)
	require.Len(t, grid, size*size)

	at := func(x, z float64) byte {
		gx := int(x/12.5) + size/2
		gz := int(z/12.5) + size/2
		return grid[gx+gz*size]
	}

	assert.Equal(t, byte(ShoreSample), at(0, 0), "summit")
	assert.Equal(t, byte(ShoreSample), at(50, 50), "slope above water")
	assert.Equal(t, byte(255), at(-375, 0), "beyond 20 deep")

	// r = 200 lies 10 below the water plane.
	s := at(200, 0)
	assert.InDelta(t, -10.0, DepthHeight(s), 0.5)

	// Floor deepens away from the shore.
	assert.Greater(t, at(250, 0), at(150, 0))
}

func TestGenerateGridOpenSea(t *testing.T) {
	grid, err := GenerateGrid(context.Background(), TracerFunc(func(a, b Vec3) float64 { return Clear }),
		orb.Point{}, orb.Point{100, 100}, 16)
	require.NoError(t, err)
	for _, s := range grid {
		assert.Equal(t, depthmap.Empty, s)
	}
}

// backfaceTracer hits everything and reports normals along the ray, as when
// the trace starts inside geometry.
type backfaceTracer struct{ facing float64 }

func (b backfaceTracer) Trace(a, c Vec3) float64 { return 0.2 }

func (b backfaceTracer) TraceNormal(a, c Vec3) (float64, Vec3) {
	return 0.2, c.Sub(a).Scale(b.facing)
}

func TestGenerateGridEnclosedCells(t *testing.T) {
	box := orb.Point{100, 100}

	grid, err := GenerateGrid(context.Background(), backfaceTracer{facing: 1}, orb.Point{}, box, 8)
	require.NoError(t, err)
	for _, s := range grid {
		assert.Equal(t, byte(ShoreSample), s)
	}

	// Front faces: the downward hit at 0.2 of 500 saturates the depth.
	grid, err = GenerateGrid(context.Background(), backfaceTracer{facing: -1}, orb.Point{}, box, 8)
	require.NoError(t, err)
	for _, s := range grid {
		assert.Equal(t, byte(255), s)
	}
}

func TestGenerateGridUpwardProbe(t *testing.T) {
	// Only upward probes hit: an overhang without a floor below.
	overhang := TracerFunc(func(a, b Vec3) float64 {
		if b.Y > a.Y {
			return 0.5
		}
		return Clear
	})
	grid, err := GenerateGrid(context.Background(), overhang, orb.Point{}, orb.Point{100, 100}, 8)
	require.NoError(t, err)
	assert.Equal(t, byte(ShoreSample), grid[0])
}

func TestGenerateGridCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := GenerateGrid(ctx, coneTracer{}, orb.Point{}, orb.Point{100, 100}, 8)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGenerateGridInvalidSize(t *testing.T) {
	_, err := GenerateGrid(context.Background(), coneTracer{}, orb.Point{}, orb.Point{100, 100}, 12)
	assert.ErrorIs(t, err, depthmap.ErrInvalidSize)
}
