package navgraph

import (
	"cmp"
	"slices"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// NearestPoint is one entry of a NearestPoints result.
type NearestPoint struct {
	ID       int
	Distance float64
}

// NearestPoints returns every graph point sorted by ascending distance to
// pos. Ties are in no particular order. The slice is freshly allocated and
// owned by the caller.
func (g *Graph) NearestPoints(pos orb.Point) []NearestPoint {
	result := make([]NearestPoint, len(g.points))
	for i, p := range g.points {
		result[i] = NearestPoint{ID: i, Distance: planar.Distance(pos, p.Pos)}
	}
	slices.SortFunc(result, func(a, b NearestPoint) int {
		return cmp.Compare(a.Distance, b.Distance)
	})
	return result
}
