package island

// Depth quantization of grid samples.
const (
	// ShoreSample marks land and the shoreline.
	ShoreSample = 2
	// depthLevels is the number of samples from ShoreSample to 255.
	depthLevels = 255 - ShoreSample
	// MaxDepth is the deepest height a sample can encode.
	MaxDepth = -20.0
	// OutsideDepth is reported outside the island's box.
	OutsideDepth = -50.0
)

var depthHeights [256]float64

func init() {
	for i := range depthHeights {
		depthHeights[i] = MaxDepth / depthLevels * float64(i-ShoreSample)
	}
	depthHeights[0] = MaxDepth
}

// DepthHeight returns the water-plane height encoded by sample. Sample 0
// and depthmap.Empty both decode to MaxDepth.
func DepthHeight(sample byte) float64 {
	return depthHeights[sample]
}

// DepthSample quantizes the distance from the water plane down to the sea
// floor. Distances beyond -MaxDepth saturate at depthmap.Empty.
func DepthSample(floor float64) byte {
	if floor < 0 {
		floor = 0
	}
	if floor > -MaxDepth {
		floor = -MaxDepth
	}
	return byte(ShoreSample + depthLevels*floor/-MaxDepth)
}
