package pointcloud

import (
	"sync/atomic"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"

	"github.com/AlexLike/OpenMaskXR/utils"
)

const (
	// DefaultOutlierNeighbors is the neighborhood size used when repairing colors.
	DefaultOutlierNeighbors = 100
	// DefaultOutlierThreshold is the RGB distance above which a color counts as an outlier.
	DefaultOutlierThreshold = 0.3
)

// ErrNegativeThreshold is returned when an outlier threshold below zero is given.
var ErrNegativeThreshold = errors.New("outlier threshold must not be negative")

// FillOutlierColors replaces the color of every point that is farther than threshold (euclidean
// distance in normalized RGB) from the mean color of its k nearest neighbors with that mean.
// Means are computed from the colors as they were when the call began, so the result does not
// depend on visiting order. k is clamped to Size()-1. The number of replaced colors is returned.
func FillOutlierColors(cloud *PointCloud, k int, threshold float64) (int, error) {
	return FillOutlierColorsWithTree(cloud, NewKDTreeFromCloud(cloud), k, threshold)
}

// FillOutlierColorsWithTree is FillOutlierColors with a prebuilt index over the cloud's points.
func FillOutlierColorsWithTree(cloud *PointCloud, tree *KDTree, k int, threshold float64) (int, error) {
	if threshold < 0 {
		return 0, errors.Wrapf(ErrNegativeThreshold, "got %v", threshold)
	}
	size := cloud.Size()
	if size <= 1 || k <= 0 {
		return 0, nil
	}
	if k > size-1 {
		k = size - 1
	}

	snapshot := cloud.Colors()
	var replaced int64
	utils.ParallelForEachIndex(size, func(i int) {
		var sum colorful.Color
		count := 0
		for _, n := range tree.KNearest(cloud.points[i], k+1) {
			if n.Index == i {
				continue
			}
			if count == k {
				break
			}
			c := snapshot[n.Index]
			sum.R += c.R
			sum.G += c.G
			sum.B += c.B
			count++
		}
		if count == 0 {
			return
		}
		mean := colorful.Color{R: sum.R / float64(count), G: sum.G / float64(count), B: sum.B / float64(count)}
		if snapshot[i].DistanceRgb(mean) > threshold {
			cloud.colors[i] = mean
			atomic.AddInt64(&replaced, 1)
		}
	})
	return int(replaced), nil
}
