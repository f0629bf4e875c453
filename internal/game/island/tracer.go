package island

// Tracer is the line-of-sight oracle against island geometry. Trace returns
// the fraction of the segment a->b at which the first obstruction lies; a
// result above 1 means the segment is clear.
type Tracer interface {
	Trace(a, b Vec3) float64
}

// TracerFunc adapts a function to Tracer.
type TracerFunc func(a, b Vec3) float64

func (f TracerFunc) Trace(a, b Vec3) float64 { return f(a, b) }

// NormalTracer additionally reports the surface normal at the hit point.
// GenerateGrid uses it to detect samples enclosed by geometry.
type NormalTracer interface {
	Tracer
	TraceNormal(a, b Vec3) (float64, Vec3)
}

// Clear is a trace result meaning no obstruction.
const Clear = 2.0

// isClear reports whether a trace result means the segment is unobstructed.
func isClear(res float64) bool { return res > 1 }
