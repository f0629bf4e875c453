package island

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// queryMargin pads degenerate query rectangles; rtreego rejects zero
// lengths.
const queryMargin = 1e-6

// ArchipelagoConfig configures the planners of every island.
type ArchipelagoConfig struct {
	Planner PlannerConfig
	// Draft of the hull used by each island's grid tracer.
	Draft float64
}

// Archipelago indexes islands by their avoidance rectangles so a movement
// segment only consults islands it can touch.
type Archipelago struct {
	tree    *rtreego.Rtree
	entries []*islandEntry
	byName  map[string]*islandEntry
}

type islandEntry struct {
	isl     *Island
	planner *Planner
	rect    rtreego.Rect
}

// Bounds implements rtreego.Spatial.
func (e *islandEntry) Bounds() rtreego.Rect { return e.rect }

// NewArchipelago indexes islands. Island names must be unique.
func NewArchipelago(cfg ArchipelagoConfig, islands ...*Island) (*Archipelago, error) {
	a := &Archipelago{
		tree:   rtreego.NewTree(2, 25, 50),
		byName: make(map[string]*islandEntry, len(islands)),
	}
	for _, isl := range islands {
		if _, dup := a.byName[isl.Name()]; dup {
			return nil, fmt.Errorf("duplicate island %q", isl.Name())
		}
		rect, err := rectOf(isl.Bounds())
		if err != nil {
			return nil, fmt.Errorf("island %s bounds: %w", isl.Name(), err)
		}
		e := &islandEntry{
			isl:     isl,
			planner: isl.NewPlanner(isl.GridTracer(cfg.Draft), cfg.Planner),
			rect:    rect,
		}
		a.tree.Insert(e)
		a.entries = append(a.entries, e)
		a.byName[isl.Name()] = e
	}
	return a, nil
}

// Islands returns the indexed islands in insertion order.
func (a *Archipelago) Islands() []*Island {
	out := make([]*Island, len(a.entries))
	for i, e := range a.entries {
		out[i] = e.isl
	}
	return out
}

// Find returns the island with the given name.
func (a *Archipelago) Find(name string) (*Island, bool) {
	e, ok := a.byName[name]
	if !ok {
		return nil, false
	}
	return e.isl, true
}

// Query returns the islands whose avoidance rectangle intersects the
// bounding box of the segment src->dst, nearest center to src first.
func (a *Archipelago) Query(src, dst orb.Point) []*Island {
	entries := a.search(orb.MultiPoint{src, dst}.Bound())
	slices.SortFunc(entries, func(x, y *islandEntry) int {
		return cmp.Compare(planar.Distance(src, x.isl.Center()), planar.Distance(src, y.isl.Center()))
	})
	out := make([]*Island, len(entries))
	for i, e := range entries {
		out[i] = e.isl
	}
	return out
}

// IslandAt returns the island whose depth queries cover (x, z). The
// geometry box edge is outside, as in Island.Depth.
func (a *Archipelago) IslandAt(x, z float64) (*Island, bool) {
	p := orb.Point{x, z}
	for _, e := range a.search(p.Bound()) {
		if e.isl.covers(x, z) {
			return e.isl, true
		}
	}
	return nil, false
}

// Depth returns the sea floor height at (x, z) from the island covering
// it, or OutsideDepth.
func (a *Archipelago) Depth(x, z float64) (float64, bool) {
	isl, ok := a.IslandAt(x, z)
	if !ok {
		return OutsideDepth, false
	}
	return isl.Depth(x, z)
}

// GetMovePoint asks each island near the segment, nearest first, for a
// detour and returns the first waypoint found. An island that blocks the
// segment without offering a detour does not stop the search; if no island
// offers one, the result is (true, dst) when any island blocked and
// (false, dst) otherwise.
func (a *Archipelago) GetMovePoint(src, dst Vec3) (bool, Vec3) {
	blocked := false
	for _, isl := range a.Query(src.Ground(), dst.Ground()) {
		wp, res := a.byName[isl.Name()].planner.plan(src, dst)
		switch res {
		case detour:
			return true, wp
		case noDetour:
			blocked = true
		}
	}
	return blocked, dst
}

func (a *Archipelago) search(b orb.Bound) []*islandEntry {
	rect, err := rectOf(b.Pad(queryMargin))
	if err != nil {
		return nil
	}
	found := a.tree.SearchIntersect(rect)
	out := make([]*islandEntry, 0, len(found))
	for _, s := range found {
		out = append(out, s.(*islandEntry))
	}
	return out
}

func rectOf(b orb.Bound) (rtreego.Rect, error) {
	return rtreego.NewRect(
		rtreego.Point{b.Min.X(), b.Min.Y()},
		[]float64{b.Max.X() - b.Min.X(), b.Max.Y() - b.Min.Y()},
	)
}
