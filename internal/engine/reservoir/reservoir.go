package reservoir

import (
	"math/rand"

	"GeoStream/internal/model"
)

// Sampler maintains a fixed-size uniform random sample over a stream of
// unknown length. Offer must be called with the true cumulative count of
// items seen so far, including the offered one.
type Sampler interface {
	Offer(item model.SamplePoint, totalSeenSoFar uint64)
	Len() int
	// Finalize returns the sample. The sampler must not be offered to again.
	Finalize() []model.SamplePoint
}

// Strategy selects a sampler implementation. The choice is a tuning knob:
// both strategies give every item the same MaxSample/N selection probability.
const (
	StrategyAuto      = "auto"
	StrategyReservoir = "reservoir"
	StrategyShuffle   = "shuffle"
)

// shuffleThreshold is the cap under which "auto" prefers collect-then-shuffle;
// above it the collected set would dwarf the sample it is truncated to.
const shuffleThreshold = 10000

// New returns a sampler for the given strategy and sample size.
func New(strategy string, maxSample int, rng *rand.Rand) Sampler {
	if strategy == StrategyShuffle || (strategy == StrategyAuto && maxSample < shuffleThreshold) {
		return &ShuffleSampler{maxSample: maxSample, rng: rng}
	}
	return NewReservoir(maxSample, rng)
}

// Reservoir implements Algorithm R.
type Reservoir struct {
	maxSample int
	items     []model.SamplePoint
	rng       *rand.Rand
}

// NewReservoir creates a reservoir sampler holding at most maxSample items.
func NewReservoir(maxSample int, rng *rand.Rand) *Reservoir {
	return &Reservoir{
		maxSample: maxSample,
		items:     make([]model.SamplePoint, 0, maxSample),
		rng:       rng,
	}
}

// Offer considers one item. While the reservoir is not full the item is
// appended; afterwards it replaces a random slot with probability
// maxSample/totalSeenSoFar, which keeps the sample uniform over all items
// offered so far regardless of arrival order.
func (r *Reservoir) Offer(item model.SamplePoint, totalSeenSoFar uint64) {
	if len(r.items) < r.maxSample {
		r.items = append(r.items, item)
		return
	}
	// j uniform in [0, totalSeenSoFar); the offered item is the
	// totalSeenSoFar-th, so it wins a slot with probability maxSample/N.
	j := r.rng.Int63n(int64(totalSeenSoFar))
	if j < int64(r.maxSample) {
		r.items[j] = item
	}
}

// Len returns the current number of sampled items.
func (r *Reservoir) Len() int {
	return len(r.items)
}

// Finalize returns the sample as-is; Algorithm R needs no post-processing.
func (r *Reservoir) Finalize() []model.SamplePoint {
	return r.items
}

// ShuffleSampler collects every offered item and draws the sample at
// finalization with a full Fisher-Yates shuffle followed by truncation.
// Memory grows with the stream, so it only suits small sample caps where
// the producer is known to send bounded datasets.
type ShuffleSampler struct {
	maxSample int
	items     []model.SamplePoint
	rng       *rand.Rand
}

// Offer collects the item unconditionally.
func (s *ShuffleSampler) Offer(item model.SamplePoint, totalSeenSoFar uint64) {
	s.items = append(s.items, item)
}

// Len returns the effective sample size so far.
func (s *ShuffleSampler) Len() int {
	if len(s.items) > s.maxSample {
		return s.maxSample
	}
	return len(s.items)
}

// Finalize shuffles the collected items and truncates to the sample cap.
func (s *ShuffleSampler) Finalize() []model.SamplePoint {
	s.rng.Shuffle(len(s.items), func(i, j int) {
		s.items[i], s.items[j] = s.items[j], s.items[i]
	})
	if len(s.items) > s.maxSample {
		s.items = s.items[:s.maxSample]
	}
	return s.items
}
