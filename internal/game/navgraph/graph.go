// Package navgraph provides the island navigation graph used to route
// long-range movement around landmasses.
//
// A Graph is filled once at island load (AddPoint/AddEdge or Load), then
// BuildTable computes an all-pairs next-hop table. After BuildTable the
// graph is read-only and safe for concurrent queries.
package navgraph

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// NoHop marks a next-hop table entry without a known route.
const NoHop = -1

// Point is a graph vertex on the ground plane (X = world x, Y = world z).
type Point struct {
	Pos   orb.Point
	Edges []int // incident edge indices, in insertion order
}

// Edge is an unordered pair of point indices with its length at add time.
type Edge struct {
	P1, P2 int
	Length float64
}

// edgeKey is the pair-unordered identity of an edge.
type edgeKey struct {
	lo, hi int
}

func makeEdgeKey(a, b int) edgeKey {
	if a > b {
		a, b = b, a
	}
	return edgeKey{lo: a, hi: b}
}

// Graph is the island navigation graph.
// Point ids are stable indices assigned at AddPoint time.
type Graph struct {
	points    []Point
	edges     []Edge
	edgeIndex map[edgeKey]int

	// table[y*n+x] routes from point y to point x; nil until BuildTable.
	table []hop
	built bool
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{edgeIndex: make(map[edgeKey]int)}
}

// AddPoint appends a point and returns its id.
func (g *Graph) AddPoint(pos orb.Point) int {
	g.points = append(g.points, Point{Pos: pos})
	g.built = false
	return len(g.points) - 1
}

// AddEdge adds the edge (a, b) and returns its index. If the edge already
// exists in either direction the existing index is returned. Self-loops are
// rejected with -1. Incident lists are not touched, see Link.
func (g *Graph) AddEdge(a, b int) int {
	g.mustPoint(a)
	g.mustPoint(b)
	if a == b {
		return -1
	}

	key := makeEdgeKey(a, b)
	if idx, ok := g.edgeIndex[key]; ok {
		return idx
	}

	g.edges = append(g.edges, Edge{P1: a, P2: b, Length: g.Distance(a, b)})
	idx := len(g.edges) - 1
	g.edgeIndex[key] = idx
	g.built = false
	return idx
}

// Link adds the edge (a, b) and attaches it to both endpoints.
func (g *Graph) Link(a, b int) int {
	idx := g.AddEdge(a, b)
	if idx < 0 {
		return idx
	}
	g.attach(a, idx)
	g.attach(b, idx)
	return idx
}

// attach appends edge idx to the incident list of pnt unless already there.
func (g *Graph) attach(pnt, idx int) {
	p := &g.points[pnt]
	for _, e := range p.Edges {
		if e == idx {
			return
		}
	}
	p.Edges = append(p.Edges, idx)
	g.built = false
}

// NumPoints returns the number of points.
func (g *Graph) NumPoints() int { return len(g.points) }

// NumEdges returns the number of distinct edges.
func (g *Graph) NumEdges() int { return len(g.edges) }

// Point returns a copy of point id.
func (g *Graph) Point(id int) Point {
	g.mustPoint(id)
	p := g.points[id]
	p.Edges = append([]int(nil), p.Edges...)
	return p
}

// PointPos returns the ground-plane position of point id.
func (g *Graph) PointPos(id int) orb.Point {
	g.mustPoint(id)
	return g.points[id].Pos
}

// Edge returns edge idx.
func (g *Graph) Edge(idx int) Edge {
	if idx < 0 || idx >= len(g.edges) {
		panic(fmt.Sprintf("navgraph: edge %d out of range [0,%d)", idx, len(g.edges)))
	}
	return g.edges[idx]
}

// OtherEdgePoint returns the endpoint of edge idx that is not pnt.
// When pnt is not an endpoint, P1 is returned.
func (g *Graph) OtherEdgePoint(idx, pnt int) int {
	e := g.Edge(idx)
	if e.P1 == pnt {
		return e.P2
	}
	return e.P1
}

// Distance returns the straight-line distance between two points.
func (g *Graph) Distance(a, b int) float64 {
	return planar.Distance(g.PointPos(a), g.PointPos(b))
}

func (g *Graph) mustPoint(id int) {
	if id < 0 || id >= len(g.points) {
		panic(fmt.Sprintf("navgraph: point %d out of range [0,%d)", id, len(g.points)))
	}
}
