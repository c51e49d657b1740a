package reservoir

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"GeoStream/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func offerSequence(s Sampler, n int) {
	for i := 0; i < n; i++ {
		s.Offer(model.SamplePoint{ID: fmt.Sprintf("p%d", i), Value: float64(i)}, uint64(i+1))
	}
}

func TestReservoirBound(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for _, n := range []int{0, 1, 99, 100, 101, 5000} {
		r := NewReservoir(100, rng)
		offerSequence(r, n)
		want := n
		if want > 100 {
			want = 100
		}
		assert.Equal(t, want, r.Len(), "n=%d", n)
		assert.Len(t, r.Finalize(), want, "n=%d", n)
	}
}

func TestReservoirUniformity(t *testing.T) {
	const (
		maxSample = 10
		n         = 100
		trials    = 3000
	)
	rng := rand.New(rand.NewSource(42))
	counts := make([]int, n)

	for trial := 0; trial < trials; trial++ {
		r := NewReservoir(maxSample, rng)
		for i := 0; i < n; i++ {
			r.Offer(model.SamplePoint{Value: float64(i)}, uint64(i+1))
		}
		for _, item := range r.Finalize() {
			counts[int(item.Value)]++
		}
	}

	// Every item should be selected with probability maxSample/n = 0.1.
	// With 3000 trials the per-item standard error is ~0.0055, so 0.04 is
	// a generous tolerance that still catches off-by-one bias.
	expected := float64(maxSample) / float64(n)
	for i, c := range counts {
		freq := float64(c) / float64(trials)
		if math.Abs(freq-expected) > 0.04 {
			t.Errorf("item %d selected with frequency %.4f, expected %.4f", i, freq, expected)
		}
	}
}

func TestShuffleSamplerTruncates(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	s := &ShuffleSampler{maxSample: 50, rng: rng}
	offerSequence(s, 200)

	require.Equal(t, 50, s.Len())
	sample := s.Finalize()
	require.Len(t, sample, 50)

	// No duplicates after the shuffle-and-truncate.
	seen := make(map[string]bool, len(sample))
	for _, item := range sample {
		assert.False(t, seen[item.ID], "duplicate item %s", item.ID)
		seen[item.ID] = true
	}
}

func TestShuffleSamplerUniformity(t *testing.T) {
	const (
		maxSample = 10
		n         = 100
		trials    = 3000
	)
	rng := rand.New(rand.NewSource(99))
	counts := make([]int, n)

	for trial := 0; trial < trials; trial++ {
		s := &ShuffleSampler{maxSample: maxSample, rng: rng}
		for i := 0; i < n; i++ {
			s.Offer(model.SamplePoint{Value: float64(i)}, uint64(i+1))
		}
		for _, item := range s.Finalize() {
			counts[int(item.Value)]++
		}
	}

	expected := float64(maxSample) / float64(n)
	for i, c := range counts {
		freq := float64(c) / float64(trials)
		if math.Abs(freq-expected) > 0.04 {
			t.Errorf("item %d selected with frequency %.4f, expected %.4f", i, freq, expected)
		}
	}
}

func TestNewSelectsStrategy(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	_, ok := New(StrategyReservoir, 100, rng).(*Reservoir)
	assert.True(t, ok, "explicit reservoir strategy")

	_, ok = New(StrategyShuffle, 100, rng).(*ShuffleSampler)
	assert.True(t, ok, "explicit shuffle strategy")

	_, ok = New(StrategyAuto, 100, rng).(*ShuffleSampler)
	assert.True(t, ok, "auto picks shuffle for small caps")

	_, ok = New(StrategyAuto, 50000, rng).(*Reservoir)
	assert.True(t, ok, "auto picks reservoir for large caps")
}
