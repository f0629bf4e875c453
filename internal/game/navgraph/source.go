package navgraph

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"gopkg.in/ini.v1"
)

// SectionName is the INI section holding graph points.
const SectionName = "GraphPoints"

// ErrMalformedSource is returned for graph sources that cannot be parsed.
var ErrMalformedSource = errors.New("malformed graph source")

// EdgeRef is one (A, B) pair of an adjacency record.
type EdgeRef struct {
	A, B int
}

// Source is the persisted description of a graph: positions in id order
// and, per point, the edge pairs declared by that point's record.
type Source struct {
	Points    []orb.Point
	Adjacency [][]EdgeRef
}

// Load builds a graph from src. Points keep their input order as ids.
// An edge pair touching the declaring point is attached to that point only;
// a pair between two other points is attached to both of its endpoints.
// The next-hop table is not built.
func Load(src Source) (*Graph, error) {
	g := New()
	for _, p := range src.Points {
		g.AddPoint(p)
	}

	n := len(src.Points)
	for i, refs := range src.Adjacency {
		if i >= n {
			return nil, fmt.Errorf("%w: adjacency record %d without point", ErrMalformedSource, i)
		}
		for _, ref := range refs {
			if ref.A < 0 || ref.A >= n || ref.B < 0 || ref.B >= n {
				return nil, fmt.Errorf("%w: point %d edge (%d,%d) out of range [0,%d)",
					ErrMalformedSource, i, ref.A, ref.B, n)
			}
			idx := g.AddEdge(ref.A, ref.B)
			if idx < 0 {
				slog.Debug("navgraph: skip self-loop", "point", i, "edge", ref.A)
				continue
			}
			if ref.A == i || ref.B == i {
				g.attach(i, idx)
				continue
			}
			slog.Debug("navgraph: cross-referenced edge", "point", i, "a", ref.A, "b", ref.B)
			g.attach(ref.A, idx)
			g.attach(ref.B, idx)
		}
	}
	return g, nil
}

// ReadINI parses the GraphPoints section from an INI source: a file name,
// a []byte or an io.Reader. Keys pnt0, pnt1, ... are read until the first
// missing one. Each value is "x,z[,count,a1,b1,...]".
func ReadINI(source any) (Source, error) {
	f, err := ini.Load(source)
	if err != nil {
		return Source{}, fmt.Errorf("loading graph ini: %w", err)
	}
	sec, err := f.GetSection(SectionName)
	if err != nil {
		return Source{}, fmt.Errorf("%w: no [%s] section", ErrMalformedSource, SectionName)
	}

	var src Source
	for i := 0; ; i++ {
		key := pointKey(i)
		if !sec.HasKey(key) {
			break
		}
		value := strings.TrimSpace(sec.Key(key).String())
		if value == "" {
			break
		}
		pos, refs, err := parseRecord(value)
		if err != nil {
			return Source{}, fmt.Errorf("%w: %s: %v", ErrMalformedSource, key, err)
		}
		src.Points = append(src.Points, pos)
		src.Adjacency = append(src.Adjacency, refs)
	}
	return src, nil
}

func parseRecord(value string) (orb.Point, []EdgeRef, error) {
	fields := strings.Split(value, ",")
	var clean []string
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			clean = append(clean, f)
		}
	}
	if len(clean) < 2 {
		return orb.Point{}, nil, fmt.Errorf("want at least x,z, got %q", value)
	}

	x, err := strconv.ParseFloat(clean[0], 64)
	if err != nil {
		return orb.Point{}, nil, fmt.Errorf("x: %w", err)
	}
	z, err := strconv.ParseFloat(clean[1], 64)
	if err != nil {
		return orb.Point{}, nil, fmt.Errorf("z: %w", err)
	}
	pos := orb.Point{x, z}
	if len(clean) == 2 {
		return pos, nil, nil
	}

	count, err := strconv.Atoi(clean[2])
	if err != nil || count < 0 {
		return orb.Point{}, nil, fmt.Errorf("edge count %q", clean[2])
	}
	if len(clean) < 3+2*count {
		return orb.Point{}, nil, fmt.Errorf("want %d edge pairs, got %d values", count, len(clean)-3)
	}

	refs := make([]EdgeRef, 0, count)
	for j := range count {
		a, err := strconv.Atoi(clean[3+2*j])
		if err != nil {
			return orb.Point{}, nil, fmt.Errorf("edge %d: %w", j, err)
		}
		b, err := strconv.Atoi(clean[4+2*j])
		if err != nil {
			return orb.Point{}, nil, fmt.Errorf("edge %d: %w", j, err)
		}
		refs = append(refs, EdgeRef{A: a, B: b})
	}
	return pos, refs, nil
}

// WriteINI writes g as a GraphPoints section. Each point record lists the
// edges in its incident list.
func WriteINI(g *Graph, w io.Writer) error {
	f := ini.Empty()
	sec, err := f.NewSection(SectionName)
	if err != nil {
		return fmt.Errorf("creating [%s]: %w", SectionName, err)
	}

	for i, p := range g.points {
		var b strings.Builder
		b.WriteString(formatFloat(p.Pos.X()))
		b.WriteByte(',')
		b.WriteString(formatFloat(p.Pos.Y()))
		b.WriteByte(',')
		b.WriteString(strconv.Itoa(len(p.Edges)))
		for _, idx := range p.Edges {
			e := g.edges[idx]
			fmt.Fprintf(&b, ",%d,%d", e.P1, e.P2)
		}
		if _, err := sec.NewKey(pointKey(i), b.String()); err != nil {
			return fmt.Errorf("writing %s: %w", pointKey(i), err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("writing graph ini: %w", err)
	}
	return nil
}

func pointKey(i int) string {
	return "pnt" + strconv.Itoa(i)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
