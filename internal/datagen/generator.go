package datagen

import (
	"fmt"
	"math"
	"math/rand"

	"GeoStream/internal/model"
)

// Bounds is the lat/lng box points are generated within.
type Bounds struct {
	LatMin, LatMax float64
	LngMin, LngMax float64
}

// Generator produces synthetic geospatial point grids, one value scenario
// per kind: "elevation", "temperature", "pressure", "noise" or "sine_wave".
type Generator struct {
	kind string
	rng  *rand.Rand
}

// New creates a generator for the given scenario. Unknown kinds fall back
// to elevation.
func New(kind string, seed int64) *Generator {
	return &Generator{kind: kind, rng: rand.New(rand.NewSource(seed))}
}

// Generate builds maxPoints records over a grid spanning the bounds. The
// grid resolution grows with the requested count so the box is always
// covered evenly.
func (g *Generator) Generate(bounds Bounds, maxPoints int) []model.RawPoint {
	if maxPoints <= 0 {
		return nil
	}
	resolution := int(math.Sqrt(float64(maxPoints))) + 1

	points := make([]model.RawPoint, 0, maxPoints)
	for i := 0; i < resolution && len(points) < maxPoints; i++ {
		for j := 0; j < resolution && len(points) < maxPoints; j++ {
			lat := lerp(bounds.LatMin, bounds.LatMax, float64(i)/float64(resolution-1))
			lng := lerp(bounds.LngMin, bounds.LngMax, float64(j)/float64(resolution-1))
			points = append(points, model.RawPoint{
				"id":        fmt.Sprintf("%s_%d_%d", g.kind, i, j),
				"latitude":  lat,
				"longitude": lng,
				"value":     g.value(lat, lng, bounds),
				"unit":      g.kind,
			})
		}
	}
	return points
}

// Chunks splits a generated dataset into chunks of the given size, with
// sequence numbers and a total-chunk hint filled in.
func (g *Generator) Chunks(bounds Bounds, maxPoints, chunkSize int) []*model.Chunk {
	if chunkSize <= 0 {
		chunkSize = 10000
	}
	points := g.Generate(bounds, maxPoints)

	total := uint64((len(points) + chunkSize - 1) / chunkSize)
	chunks := make([]*model.Chunk, 0, total)
	for seq := uint64(1); len(points) > 0; seq++ {
		n := chunkSize
		if n > len(points) {
			n = len(points)
		}
		chunks = append(chunks, &model.Chunk{Seq: seq, TotalChunks: total, Points: points[:n]})
		points = points[n:]
	}
	return chunks
}

func (g *Generator) value(lat, lng float64, b Bounds) float64 {
	// Normalized position inside the box.
	u := norm(lat, b.LatMin, b.LatMax)
	v := norm(lng, b.LngMin, b.LngMax)

	switch g.kind {
	case "temperature":
		// Warmer toward the equator side of the box, with small jitter.
		return 30 - 40*u + g.rng.Float64()*2
	case "pressure":
		return 1013 + 15*math.Sin(u*math.Pi) - 10*v + g.rng.Float64()
	case "noise":
		return g.rng.NormFloat64() * 100
	case "sine_wave":
		return 500 * math.Sin(u*4*math.Pi) * math.Cos(v*4*math.Pi)
	default: // elevation
		ridge := 800 * math.Sin(u*3*math.Pi) * math.Sin(v*2*math.Pi)
		return 200 + math.Abs(ridge) + g.rng.Float64()*20
	}
}

func lerp(lo, hi, t float64) float64 {
	return lo + (hi-lo)*t
}

func norm(x, lo, hi float64) float64 {
	if hi == lo {
		return 0
	}
	return (x - lo) / (hi - lo)
}
