package aggregate

import (
	"math"
	"sort"
)

// Aggregator accumulates running statistics over a stream of values.
// It does no I/O and every observation is O(1); category membership is the
// only state that grows, bounded by the number of distinct categories.
type Aggregator struct {
	count      uint64
	sum        float64
	min        float64
	max        float64
	categories map[string]struct{}
}

// Summary is the finalized view of an Aggregator.
type Summary struct {
	Count      uint64
	Avg        float64
	Min        float64
	Max        float64
	Categories []string
}

// New creates an empty Aggregator.
func New() *Aggregator {
	return &Aggregator{
		min:        math.Inf(1),
		max:        math.Inf(-1),
		categories: make(map[string]struct{}),
	}
}

// Observe feeds one value into the running statistics. An empty category
// is treated as absent.
func (a *Aggregator) Observe(value float64, category string) {
	a.count++
	a.sum += value
	if value < a.min {
		a.min = value
	}
	if value > a.max {
		a.max = value
	}
	if category != "" {
		a.categories[category] = struct{}{}
	}
}

// Count returns the number of observed values.
func (a *Aggregator) Count() uint64 {
	return a.count
}

// Finalize computes the summary. With no observations avg, min and max
// are all zero.
func (a *Aggregator) Finalize() Summary {
	s := Summary{Count: a.count}
	if a.count > 0 {
		s.Avg = a.sum / float64(a.count)
		s.Min = a.min
		s.Max = a.max
	}
	s.Categories = make([]string, 0, len(a.categories))
	for c := range a.categories {
		s.Categories = append(s.Categories, c)
	}
	sort.Strings(s.Categories)
	return s
}
