package island

import (
	"math"

	"github.com/paulmach/orb"
)

// GridTracer traces segments across an island's depth map instead of its
// geometry. Heights are ignored: a segment is obstructed at the first grid
// cell whose sea floor is shallower than the draft.
type GridTracer struct {
	isl   *Island
	draft float64
}

// GridTracer returns a tracer for a hull of the given draft.
func (isl *Island) GridTracer(draft float64) *GridTracer {
	return &GridTracer{isl: isl, draft: draft}
}

// Trace walks the grid cells between a and b with a 2D Bresenham line and
// returns the segment fraction of the first shallow cell, or Clear.
func (t *GridTracer) Trace(a, b Vec3) float64 {
	isl := t.isl
	if isl.depth.IsEmpty() {
		return Clear
	}

	t0, t1, ok := clipSegment(a.Ground(), b.Ground(), isl.RealBounds())
	if !ok {
		return Clear
	}
	from := lerp(a.Ground(), b.Ground(), t0)
	to := lerp(a.Ground(), b.Ground(), t1)
	sx, sz := t.cellAt(from)
	ex, ez := t.cellAt(to)

	it := newLineIterator(sx, sz, ex, ez)
	steps := it.Steps()
	for k := 0; it.Next(); k++ {
		if DepthHeight(isl.depth.Get(it.X(), it.Y())) <= -t.draft {
			continue
		}
		if steps == 0 {
			return t0
		}
		return t0 + (t1-t0)*float64(k)/float64(steps)
	}
	return Clear
}

func (t *GridTracer) cellAt(p orb.Point) (int, int) {
	isl := t.isl
	gx, gz := isl.cell(p.X()-isl.center.X(), p.Y()-isl.center.Y())
	last := isl.depth.Size() - 1
	return min(max(gx, 0), last), min(max(gz, 0), last)
}

func lerp(a, b orb.Point, t float64) orb.Point {
	return orb.Point{a[0] + (b[0]-a[0])*t, a[1] + (b[1]-a[1])*t}
}

// clipSegment clips the segment a->b to bound (Liang-Barsky) and returns
// the parameters where it enters and leaves.
func clipSegment(a, b orb.Point, bound orb.Bound) (float64, float64, bool) {
	t0, t1 := 0.0, 1.0
	dx, dz := b[0]-a[0], b[1]-a[1]
	edges := [4][2]float64{
		{-dx, a[0] - bound.Min[0]},
		{dx, bound.Max[0] - a[0]},
		{-dz, a[1] - bound.Min[1]},
		{dz, bound.Max[1] - a[1]},
	}
	for _, e := range edges {
		p, q := e[0], e[1]
		if p == 0 {
			if q < 0 {
				return 0, 0, false
			}
			continue
		}
		r := q / p
		if p < 0 {
			t0 = math.Max(t0, r)
		} else {
			t1 = math.Min(t1, r)
		}
		if t0 > t1 {
			return 0, 0, false
		}
	}
	return t0, t1, true
}

// lineIterator steps through grid cells along a 2D Bresenham line from
// start to end, both inclusive.
type lineIterator struct {
	x, y         int
	tx, ty       int
	dx, dy       int
	stepX, stepY int
	err          int
	xMajor       bool
	started      bool
}

func newLineIterator(sx, sy, ex, ey int) *lineIterator {
	it := &lineIterator{
		x: sx, y: sy,
		tx: ex, ty: ey,
		dx: abs(ex - sx), dy: abs(ey - sy),
		stepX: 1, stepY: 1,
	}
	if ex < sx {
		it.stepX = -1
	}
	if ey < sy {
		it.stepY = -1
	}
	it.xMajor = it.dx >= it.dy
	if it.xMajor {
		it.err = it.dx / 2
	} else {
		it.err = it.dy / 2
	}
	return it
}

// Next advances to the next cell. The first call yields the start cell.
// Returns false once the end cell has been yielded.
func (it *lineIterator) Next() bool {
	if !it.started {
		it.started = true
		return true
	}
	if it.x == it.tx && it.y == it.ty {
		return false
	}

	if it.xMajor {
		it.x += it.stepX
		it.err += it.dy
		if it.err >= it.dx {
			it.y += it.stepY
			it.err -= it.dx
		}
	} else {
		it.y += it.stepY
		it.err += it.dx
		if it.err >= it.dy {
			it.x += it.stepX
			it.err -= it.dy
		}
	}
	return true
}

// Steps returns the number of cells after the start cell.
func (it *lineIterator) Steps() int { return max(it.dx, it.dy) }

func (it *lineIterator) X() int { return it.x }

func (it *lineIterator) Y() int { return it.y }

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
