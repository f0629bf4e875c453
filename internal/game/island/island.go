// Package island ties an island's navigation graph and depth map together:
// detour planning around the landmass, world-space depth queries, depth
// grid generation and the load pipeline for island resources.
package island

import (
	"math"

	"github.com/paulmach/orb"

	"github.com/udisondev/seaisle/internal/game/depthmap"
	"github.com/udisondev/seaisle/internal/game/navgraph"
)

// BoxMargin widens the geometry box on each axis to get the depth grid box.
const BoxMargin = 50.0

// Island is a loaded island. It is read-only after New and safe for
// concurrent queries.
type Island struct {
	name     string
	center   orb.Point // ground-plane center of the geometry box
	realHalf orb.Point // half extents of the geometry box
	boxHalf  orb.Point // half extents of the depth grid box
	depth    *depthmap.Map
	graph    *navgraph.Graph

	// World units per depth grid cell.
	stepX, stepZ float64
}

// New assembles an island. realSize is the full extent of the island
// geometry on the ground plane. A nil depth map or graph is replaced by an
// empty one; a graph whose table is not built gets it built here.
func New(name string, center, realSize orb.Point, depth *depthmap.Map, graph *navgraph.Graph) *Island {
	if depth == nil {
		depth = &depthmap.Map{}
	}
	if graph == nil {
		graph = navgraph.New()
	}
	if !graph.Built() {
		graph.BuildTable()
	}

	box := BoxSize(realSize)
	isl := &Island{
		name:     name,
		center:   center,
		realHalf: orb.Point{realSize.X() / 2, realSize.Y() / 2},
		boxHalf:  orb.Point{box.X() / 2, box.Y() / 2},
		depth:    depth,
		graph:    graph,
	}
	cells := float64(max(depth.Size(), 1))
	isl.stepX = box.X() / cells
	isl.stepZ = box.Y() / cells
	return isl
}

// BoxSize returns the depth grid extent for an island of the given
// geometry extent.
func BoxSize(realSize orb.Point) orb.Point {
	return orb.Point{realSize.X() + BoxMargin, realSize.Y() + BoxMargin}
}

func (isl *Island) Name() string { return isl.name }

func (isl *Island) Center() orb.Point { return isl.center }

// Bounds returns the depth grid box, the rectangle planners avoid.
func (isl *Island) Bounds() orb.Bound {
	return boundAround(isl.center, isl.boxHalf)
}

// RealBounds returns the geometry box, the area covered by depth queries.
func (isl *Island) RealBounds() orb.Bound {
	return boundAround(isl.center, isl.realHalf)
}

func (isl *Island) DepthMap() *depthmap.Map { return isl.depth }

func (isl *Island) Graph() *navgraph.Graph { return isl.graph }

// NewPlanner returns a detour planner over the island's graph and box.
func (isl *Island) NewPlanner(tracer Tracer, cfg PlannerConfig) *Planner {
	return NewPlanner(isl.graph, tracer, isl.Bounds(), cfg)
}

// Depth returns the sea floor height at world (x, z). Outside the
// geometry box it returns (OutsideDepth, false).
func (isl *Island) Depth(x, z float64) (float64, bool) {
	if !isl.covers(x, z) {
		return OutsideDepth, false
	}
	if isl.depth.IsEmpty() {
		return DepthHeight(depthmap.Empty), true
	}
	gx, gz := isl.cell(x-isl.center.X(), z-isl.center.Y())
	return DepthHeight(isl.depth.Get(gx, gz)), true
}

// Check2DBoxDepth reports whether any grid sample under a rectangle of
// the given ground-plane size, centered at pos and rotated by angY around
// the up axis, is shallower than minDepth.
func (isl *Island) Check2DBoxDepth(pos, size orb.Point, angY, minDepth float64) bool {
	cos, sin := math.Cos(angY), math.Sin(angY)
	for z := -size.Y() / 2; z < size.Y()/2; z += isl.stepZ {
		for x := -size.X() / 2; x < size.X()/2; x += isl.stepX {
			xx, zz := rotateY(x, z, cos, sin)
			if d, _ := isl.Depth(pos.X()+xx, pos.Y()+zz); d > minDepth {
				return true
			}
		}
	}
	return false
}

// covers reports whether (x, z) lies strictly inside the geometry box.
func (isl *Island) covers(x, z float64) bool {
	return math.Abs(x-isl.center.X()) < isl.realHalf.X() &&
		math.Abs(z-isl.center.Y()) < isl.realHalf.Y()
}

// cell maps an offset from the island center to grid coordinates.
func (isl *Island) cell(dx, dz float64) (int, int) {
	half := float64(isl.depth.Size() >> 1)
	return int(math.Floor(dx/isl.stepX + half)), int(math.Floor(dz/isl.stepZ + half))
}

func boundAround(c, half orb.Point) orb.Bound {
	return orb.Bound{
		Min: orb.Point{c.X() - half.X(), c.Y() - half.Y()},
		Max: orb.Point{c.X() + half.X(), c.Y() + half.Y()},
	}
}
