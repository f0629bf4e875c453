package island

import (
	"math"

	"github.com/paulmach/orb"

	"github.com/udisondev/seaisle/internal/game/navgraph"
)

// PlannerConfig tunes detour search.
type PlannerConfig struct {
	// Candidates is the number of nearest graph points examined on each side.
	Candidates int
	// MinWaypointDistance rejects src-side points closer than this.
	MinWaypointDistance float64
	// TraceHeight is the height above the water plane at which every
	// planner trace runs.
	TraceHeight float64
}

// DefaultPlannerConfig returns the stock detour settings.
func DefaultPlannerConfig() PlannerConfig {
	return PlannerConfig{
		Candidates:          8,
		MinWaypointDistance: 80,
		TraceHeight:         0.1,
	}
}

// Planner picks a single detour waypoint around one island.
// It keeps no state between calls and is safe for concurrent use when
// its tracer is.
type Planner struct {
	graph  *navgraph.Graph
	tracer Tracer
	bounds orb.Bound
	cfg    PlannerConfig
}

// NewPlanner creates a planner over graph, whose next-hop table must be
// built. bounds is the island's avoidance rectangle on the ground plane.
func NewPlanner(graph *navgraph.Graph, tracer Tracer, bounds orb.Bound, cfg PlannerConfig) *Planner {
	if !graph.Built() {
		panic("island: planner over graph without next-hop table")
	}
	if cfg.Candidates <= 0 {
		cfg.Candidates = DefaultPlannerConfig().Candidates
	}
	return &Planner{graph: graph, tracer: tracer, bounds: bounds, cfg: cfg}
}

// Bounds returns the avoidance rectangle.
func (p *Planner) Bounds() orb.Bound { return p.bounds }

// GetMovePoint returns the next point to steer to when moving from src to
// dst. It returns (false, dst) when the island cannot be in the way: both
// ends lie beyond the same edge of the rectangle, or the direct segment is
// clear. Otherwise it returns true with the src-side graph point that
// starts the shortest detour, or dst when no detour passes the traces.
func (p *Planner) GetMovePoint(src, dst Vec3) (bool, Vec3) {
	wp, res := p.plan(src, dst)
	return res != unobstructed, wp
}

// planResult is the outcome of one detour search.
type planResult int

const (
	unobstructed planResult = iota // early out, the island is not in the way
	noDetour                       // blocked, no candidate pair passed the traces
	detour                         // blocked, waypoint is a graph point
)

func (p *Planner) plan(src, dst Vec3) (Vec3, planResult) {
	if p.sameSide(src, dst) {
		return dst, unobstructed
	}

	h := p.cfg.TraceHeight
	from := Vec3{X: src.X, Y: h, Z: src.Z}
	to := Vec3{X: dst.X, Y: h, Z: dst.Z}
	if isClear(p.tracer.Trace(from, to)) {
		return dst, unobstructed
	}

	srcSide := p.nearest(src.Ground())
	dstSide := p.nearest(dst.Ground())

	// dst is fixed for the search, so each dst-side trace runs once.
	dstClear := make([]bool, len(dstSide))
	for j, c := range dstSide {
		dstClear[j] = isClear(p.tracer.Trace(to, At(p.graph.PointPos(c.ID), h)))
	}

	best := math.Inf(1)
	winner := navgraph.NoHop
	for _, ci := range srcSide {
		if ci.Distance < p.cfg.MinWaypointDistance {
			continue
		}
		if !isClear(p.tracer.Trace(from, At(p.graph.PointPos(ci.ID), h))) {
			continue
		}
		for j, cj := range dstSide {
			if !dstClear[j] {
				continue
			}
			total := p.graph.PathDistance(ci.ID, cj.ID) + ci.Distance + cj.Distance
			if total > 0 && total < best {
				best = total
				winner = ci.ID
			}
		}
	}

	if winner == navgraph.NoHop {
		return dst, noDetour
	}
	return At(p.graph.PointPos(winner), 0), detour
}

// sameSide reports whether src and dst both lie on or beyond one edge of
// the bounding rectangle.
func (p *Planner) sameSide(src, dst Vec3) bool {
	lo, hi := p.bounds.Min, p.bounds.Max
	return (src.X <= lo.X() && dst.X <= lo.X()) ||
		(src.X >= hi.X() && dst.X >= hi.X()) ||
		(src.Z <= lo.Y() && dst.Z <= lo.Y()) ||
		(src.Z >= hi.Y() && dst.Z >= hi.Y())
}

func (p *Planner) nearest(pos orb.Point) []navgraph.NearestPoint {
	points := p.graph.NearestPoints(pos)
	if len(points) > p.cfg.Candidates {
		points = points[:p.cfg.Candidates]
	}
	return points
}
