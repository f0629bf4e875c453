package navgraph

import (
	"fmt"
	"math"
)

// RelaxTolerance is the minimum improvement accepted by a relaxation step.
// Smaller gains are floating-point noise and would keep passes oscillating.
const RelaxTolerance = 0.01

// hop is one next-hop table entry.
type hop struct {
	next int
	dist float64
}

// BuildTable computes the next-hop table.
//
// Direct neighbors are seeded from the incident edge lists, then up to N
// relaxation passes route every ordered pair (y, x) through the neighbors
// of y, stopping early after a pass without progress. Entries for (y, x)
// and (x, y) are relaxed independently and may pick different chains.
func (g *Graph) BuildTable() {
	n := len(g.points)
	if n == 0 {
		g.table = nil
		g.built = true
		return
	}

	table := make([]hop, n*n)
	for i := range table {
		table[i] = hop{next: NoHop, dist: math.Inf(1)}
	}

	for y := range n {
		row := table[y*n : (y+1)*n]
		for _, idx := range g.points[y].Edges {
			nb := g.OtherEdgePoint(idx, y)
			if nb == y {
				continue
			}
			row[nb] = hop{next: nb, dist: g.edges[idx].Length}
		}
	}

	for range n {
		progress := false
		for y := range n {
			edges := g.points[y].Edges
			for x := range n {
				if x == y {
					continue
				}
				cur := &table[y*n+x]
				for _, idx := range edges {
					nb := g.OtherEdgePoint(idx, y)
					if nb == y {
						continue
					}
					d := table[y*n+nb].dist + table[nb*n+x].dist
					if d < cur.dist && math.Abs(d-cur.dist) > RelaxTolerance {
						cur.next = nb
						cur.dist = d
						progress = true
					}
				}
			}
		}
		if !progress {
			break
		}
	}

	g.table = table
	g.built = true
}

// Built reports whether the next-hop table matches the current graph.
func (g *Graph) Built() bool {
	return g.built
}

// NextHop returns the first point on the route from src to dst and the
// table's distance estimate. next is NoHop when the table has no route.
func (g *Graph) NextHop(src, dst int) (next int, dist float64) {
	g.mustTable(src, dst)
	h := g.table[src*len(g.points)+dst]
	return h.next, h.dist
}

// PathDistance returns the length of the route from src to dst, summing the
// live distance between consecutive chain points. It returns 0 for src ==
// dst. If the table never connected the pair the walk stops early and the
// partial sum is returned.
func (g *Graph) PathDistance(src, dst int) float64 {
	g.mustTable(src, dst)
	if src == dst {
		return 0
	}

	n := len(g.points)
	var total float64
	cur := src
	next := g.table[src*n+dst].next
	for steps := 0; next != NoHop && steps < n; steps++ {
		total += g.Distance(cur, next)
		cur = next
		next = g.table[next*n+dst].next
	}
	return total
}

func (g *Graph) mustTable(src, dst int) {
	g.mustPoint(src)
	g.mustPoint(dst)
	if !g.built {
		panic(fmt.Sprintf("navgraph: route query (%d,%d) before BuildTable", src, dst))
	}
}
