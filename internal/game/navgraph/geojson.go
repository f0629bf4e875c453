package navgraph

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Lines returns every edge as a two-point line string, in edge order.
func (g *Graph) Lines() orb.MultiLineString {
	lines := make(orb.MultiLineString, 0, len(g.edges))
	for _, e := range g.edges {
		lines = append(lines, orb.LineString{g.points[e.P1].Pos, g.points[e.P2].Pos})
	}
	return lines
}

// GeoJSON encodes the graph as a FeatureCollection: one Point feature per
// graph point followed by one LineString feature per edge.
func (g *Graph) GeoJSON() ([]byte, error) {
	fc := geojson.NewFeatureCollection()
	for i, p := range g.points {
		f := geojson.NewFeature(p.Pos)
		f.Properties["id"] = i
		f.Properties["edges"] = len(p.Edges)
		fc.Append(f)
	}
	for i, line := range g.Lines() {
		f := geojson.NewFeature(line)
		f.Properties["edge"] = i
		f.Properties["length"] = g.edges[i].Length
		fc.Append(f)
	}

	data, err := fc.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("encoding graph geojson: %w", err)
	}
	return data, nil
}
