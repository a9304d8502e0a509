package segmentation

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/AlexLike/OpenMaskXR/pointcloud"
	"github.com/AlexLike/OpenMaskXR/spatialmath"
)

// DefaultNeighbors is how many reference points vote on each triangle.
const DefaultNeighbors = 10

// AssignedSet holds the triangles already claimed by an instance during one partitioning run.
type AssignedSet map[int]struct{}

// NewAssignedSet returns an empty set.
func NewAssignedSet() AssignedSet {
	return AssignedSet{}
}

// Contains reports whether triangle i is claimed.
func (s AssignedSet) Contains(i int) bool {
	_, ok := s[i]
	return ok
}

// Add claims the given triangles.
func (s AssignedSet) Add(ids ...int) {
	for _, i := range ids {
		s[i] = struct{}{}
	}
}

// Assignment maps an instance index to its triangle indices in ascending order.
type Assignment map[int][]int

// Instances returns the instance indices in ascending order.
func (a Assignment) Instances() []int {
	keys := make([]int, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// PartitionOptions tune the majority vote.
type PartitionOptions struct {
	// Neighbors is the number of nearest reference points consulted per triangle.
	Neighbors int
	// StrictMajority requires more than half of the neighbors to agree. By default exactly half
	// (rounded down) is enough.
	StrictMajority bool
}

func (opts PartitionOptions) withDefaults() PartitionOptions {
	if opts.Neighbors <= 0 {
		opts.Neighbors = DefaultNeighbors
	}
	return opts
}

// Partitioner assigns mesh triangles to instances by a nearest neighbor vote against a point
// level mask. The spatial index over the reference cloud is built once and shared by every query.
type Partitioner struct {
	mesh      *spatialmath.Mesh
	mask      *InstanceMask
	tree      *pointcloud.KDTree
	neighbors [][]int
	opts      PartitionOptions
}

// NewPartitioner validates that the mask has one row per reference point and indexes the cloud.
func NewPartitioner(
	mesh *spatialmath.Mesh,
	cloud *pointcloud.PointCloud,
	mask *InstanceMask,
	opts PartitionOptions,
) (*Partitioner, error) {
	if mesh == nil || cloud == nil || mask == nil {
		return nil, errors.New("partitioning needs a mesh, a point cloud and a mask")
	}
	if cloud.Size() != mask.Points() {
		return nil, errors.Wrapf(ErrMaskSizeMismatch, "cloud has %d points, mask has %d rows", cloud.Size(), mask.Points())
	}
	return &Partitioner{
		mesh: mesh,
		mask: mask,
		tree: pointcloud.NewKDTreeFromCloud(cloud),
		opts: opts.withDefaults(),
	}, nil
}

// neighborsOf returns the reference points nearest to the centroid of triangle i. Results are
// cached since every instance asks about the same triangles.
func (p *Partitioner) neighborsOf(i int) []int {
	if p.neighbors == nil {
		p.neighbors = make([][]int, p.mesh.NumTriangles())
	}
	if p.neighbors[i] == nil {
		found := p.tree.KNearest(p.mesh.Triangle(i).Centroid(), p.opts.Neighbors)
		ids := make([]int, len(found))
		for j, n := range found {
			ids[j] = n.Index
		}
		p.neighbors[i] = ids
	}
	return p.neighbors[i]
}

// accepts reports whether count votes out of the configured neighbors form a majority.
func (p *Partitioner) accepts(count int) bool {
	half := p.opts.Neighbors / 2
	if p.opts.StrictMajority {
		return count > half
	}
	return count >= half
}

// TriangleIDs returns, in ascending order, every triangle outside assigned whose nearest reference
// points mostly belong to instance k. assigned is not modified; the caller merges the result
// before asking about the next instance.
func (p *Partitioner) TriangleIDs(k int, assigned AssignedSet) ([]int, error) {
	if k < 0 || k >= p.mask.Instances() {
		return nil, errors.Wrapf(ErrInstanceOutOfRange, "instance %d of %d", k, p.mask.Instances())
	}
	ids := []int{}
	for i := 0; i < p.mesh.NumTriangles(); i++ {
		if assigned.Contains(i) {
			continue
		}
		count := 0
		for _, idx := range p.neighborsOf(i) {
			if p.mask.At(idx, k) {
				count++
			}
		}
		if p.accepts(count) {
			ids = append(ids, i)
		}
	}
	return ids, nil
}

// PartitionAll runs TriangleIDs for instances 0 through K-1 in order, claiming each result in
// assigned before the next instance, so lower instances win contested triangles.
func (p *Partitioner) PartitionAll(assigned AssignedSet) (Assignment, error) {
	if assigned == nil {
		assigned = NewAssignedSet()
	}
	out := make(Assignment, p.mask.Instances())
	for k := 0; k < p.mask.Instances(); k++ {
		ids, err := p.TriangleIDs(k, assigned)
		if err != nil {
			return nil, err
		}
		assigned.Add(ids...)
		out[k] = ids
	}
	return out, nil
}
