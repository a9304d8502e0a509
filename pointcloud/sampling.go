package pointcloud

import (
	"container/heap"
	"math"
	"math/rand"
	"sort"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/AlexLike/OpenMaskXR/spatialmath"
)

// ErrDegenerateMesh is returned when a mesh has no surface to sample from.
var ErrDegenerateMesh = errors.New("mesh has no triangles or zero surface area")

const (
	// DefaultSampleCount is the number of uniform candidates drawn before resampling.
	DefaultSampleCount = 200000
	// DefaultPoissonRatio is the fraction of candidates kept by Poisson disk resampling.
	DefaultPoissonRatio = 0.75

	eliminationExponent = 8
)

// SampleOptions control surface sampling.
type SampleOptions struct {
	// NumPoints is the number of uniform candidates. Zero means DefaultSampleCount.
	NumPoints int
	// Ratio of candidates kept by Poisson disk elimination, in (0, 1]. Zero means
	// DefaultPoissonRatio.
	Ratio float64
	// Rand is the random source. Nil seeds a new source with Seed.
	Rand *rand.Rand
	Seed int64
}

func (opts SampleOptions) withDefaults() SampleOptions {
	if opts.NumPoints == 0 {
		opts.NumPoints = DefaultSampleCount
	}
	if opts.Ratio == 0 {
		opts.Ratio = DefaultPoissonRatio
	}
	if opts.Rand == nil {
		//nolint:gosec
		opts.Rand = rand.New(rand.NewSource(opts.Seed))
	}
	return opts
}

// NewFromMesh samples the surface of m into a black point cloud. Candidates are drawn uniformly
// by area, then thinned to round(NumPoints*Ratio) well spread points by weighted sample
// elimination.
func NewFromMesh(m *spatialmath.Mesh, opts SampleOptions) (*PointCloud, error) {
	opts = opts.withDefaults()
	if opts.NumPoints < 0 {
		return nil, errors.Errorf("sample count must be positive, got %d", opts.NumPoints)
	}
	if opts.Ratio < 0 || opts.Ratio > 1 {
		return nil, errors.Errorf("poisson ratio must be in (0, 1], got %v", opts.Ratio)
	}
	target := int(math.Round(float64(opts.NumPoints) * opts.Ratio))
	if target < 1 {
		return nil, errors.Errorf("%d samples at ratio %v keep no points", opts.NumPoints, opts.Ratio)
	}
	candidates, area, err := SampleUniform(m, opts.NumPoints, opts.Rand)
	if err != nil {
		return nil, err
	}
	return New(eliminateSamples(candidates, target, area), nil)
}

// SampleUniform draws n points uniformly over the surface of m and returns them with the total
// surface area.
func SampleUniform(m *spatialmath.Mesh, n int, rng *rand.Rand) ([]r3.Vector, float64, error) {
	if m.NumTriangles() == 0 {
		return nil, 0, ErrDegenerateMesh
	}
	triangles := m.Triangles()
	cumulative := make([]float64, len(triangles))
	area := 0.
	for i, tri := range triangles {
		area += tri.Area()
		cumulative[i] = area
	}
	if !(area > 0) || math.IsInf(area, 0) {
		return nil, 0, ErrDegenerateMesh
	}

	samples := make([]r3.Vector, n)
	for i := range samples {
		idx := sort.SearchFloat64s(cumulative, rng.Float64()*area)
		if idx >= len(triangles) {
			idx = len(triangles) - 1
		}
		u, v := rng.Float64(), rng.Float64()
		if u+v > 1 {
			u, v = 1-u, 1-v
		}
		samples[i] = triangles[idx].PointAt(u, v)
	}
	return samples, area, nil
}

// eliminateSamples keeps target of the candidates by repeatedly removing the sample with the
// largest crowding weight. Survivors keep their relative order.
func eliminateSamples(candidates []r3.Vector, target int, area float64) []r3.Vector {
	if target >= len(candidates) {
		return candidates
	}
	if target <= 0 {
		return []r3.Vector{}
	}

	rMax := math.Sqrt(area / (2 * math.Sqrt(3) * float64(target)))
	reach := 2 * rMax
	weightOf := func(d float64) float64 {
		return math.Pow(1-math.Min(d, reach)/reach, eliminationExponent)
	}

	tree := NewKDTree(candidates)
	neighbors := make([][]Neighbor, len(candidates))
	h := &weightHeap{
		weights: make([]float64, len(candidates)),
		order:   make([]int, len(candidates)),
		slot:    make([]int, len(candidates)),
	}
	for i, p := range candidates {
		for _, n := range tree.WithinRadius(p, reach) {
			if n.Index == i {
				continue
			}
			neighbors[i] = append(neighbors[i], n)
			h.weights[i] += weightOf(n.Distance)
		}
		h.order[i] = i
		h.slot[i] = i
	}
	heap.Init(h)

	removed := make([]bool, len(candidates))
	for remaining := len(candidates); remaining > target; remaining-- {
		i := heap.Pop(h).(int)
		removed[i] = true
		for _, n := range neighbors[i] {
			if removed[n.Index] {
				continue
			}
			h.weights[n.Index] -= weightOf(n.Distance)
			heap.Fix(h, h.slot[n.Index])
		}
	}

	kept := make([]r3.Vector, 0, target)
	for i, p := range candidates {
		if !removed[i] {
			kept = append(kept, p)
		}
	}
	return kept
}

// weightHeap is a max heap of sample indices keyed by weight that tracks each sample's slot so
// weights can be decreased in place.
type weightHeap struct {
	weights []float64
	order   []int
	slot    []int
}

func (h *weightHeap) Len() int { return len(h.order) }
func (h *weightHeap) Less(i, j int) bool {
	wi, wj := h.weights[h.order[i]], h.weights[h.order[j]]
	if wi != wj {
		return wi > wj
	}
	return h.order[i] < h.order[j]
}

func (h *weightHeap) Swap(i, j int) {
	h.order[i], h.order[j] = h.order[j], h.order[i]
	h.slot[h.order[i]] = i
	h.slot[h.order[j]] = j
}

func (h *weightHeap) Push(x interface{}) {
	i := x.(int)
	h.slot[i] = len(h.order)
	h.order = append(h.order, i)
}

func (h *weightHeap) Pop() interface{} {
	last := len(h.order) - 1
	i := h.order[last]
	h.order = h.order[:last]
	h.slot[i] = -1
	return i
}
