package island

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/paulmach/orb"

	"github.com/udisondev/seaisle/internal/game/depthmap"
)

// Probe geometry used when sampling island geometry into a depth grid.
const (
	floorProbe   = 500.0  // downward probe length
	ceilingProbe = 1500.0 // upward probe length
	probeSkew    = 0.001  // z offset keeping probes off exact vertical

	petals      = 8
	petalRadius = 100.0
)

// GenerateGrid samples island geometry into a size x size depth grid
// covering box (full extent) around center. Each cell probes down from the
// water plane for the sea floor; cells without a floor probe up for
// overhanging geometry. Cells enclosed by geometry are detected with a ring
// of horizontal traces when tracer is a NormalTracer. Rows are checked for
// cancellation.
func GenerateGrid(ctx context.Context, tracer Tracer, center, box orb.Point, size int) ([]byte, error) {
	if size <= 0 || size%depthmap.BlockSize != 0 {
		return nil, fmt.Errorf("%w: got %d", depthmap.ErrInvalidSize, size)
	}

	nt, _ := tracer.(NormalTracer)
	stepX := box.X() / float64(size)
	stepZ := box.Y() / float64(size)
	half := float64(size) / 2

	grid := make([]byte, size*size)
	land := 0
	for z := range size {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if z&127 == 127 {
			slog.Debug("generating depth grid", "row", z, "size", size)
		}
		for x := range size {
			origin := Vec3{
				X: center.X() + (float64(x)-half)*stepX,
				Z: center.Y() + (float64(z)-half)*stepZ,
			}
			s := sampleCell(tracer, nt, origin)
			grid[x+z*size] = s
			if s == ShoreSample {
				land++
			}
		}
	}

	slog.Info("depth grid generated",
		"size", size,
		"land_percent", fmt.Sprintf("%.1f", 100*float64(land)/float64(size*size)))
	return grid, nil
}

func sampleCell(tracer Tracer, nt NormalTracer, origin Vec3) byte {
	down := origin.Add(Vec3{Y: -floorProbe, Z: probeSkew})
	if res := tracer.Trace(origin, down); !isClear(res) {
		if nt != nil && enclosed(nt, origin) {
			return ShoreSample
		}
		floor := down.Sub(origin).Scale(res).Length()
		return DepthSample(floor)
	}

	up := origin.Add(Vec3{Y: ceilingProbe, Z: probeSkew})
	if !isClear(tracer.Trace(origin, up)) || (nt != nil && enclosed(nt, origin)) {
		return ShoreSample
	}
	return depthmap.Empty
}

// enclosed casts petals horizontal traces around origin and reports
// whether more than one of them hits a surface from behind, which means
// origin is inside island geometry.
func enclosed(nt NormalTracer, origin Vec3) bool {
	inner := 0
	for i := range petals {
		ang := float64(i) / petals * 2 * math.Pi
		dir := Vec3{X: math.Cos(ang) * petalRadius, Z: math.Sin(ang) * petalRadius}
		res, normal := nt.TraceNormal(origin, origin.Add(dir))
		if isClear(res) {
			continue
		}
		if normal.Normalize().Dot(dir.Normalize()) > 0 {
			inner++
		}
		if inner > 1 {
			return true
		}
	}
	return false
}
