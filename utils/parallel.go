package utils

import (
	"image"
	"runtime"
	"sync"

	"go.viam.com/utils"
)

// ParallelFactor controls the max level of parallelization. This might be useful
// to set in tests where too much parallelism actually slows tests down in
// aggregate.
var ParallelFactor = runtime.GOMAXPROCS(0)

func init() {
	if ParallelFactor <= 0 {
		ParallelFactor = 1
	}
}

// ParallelForEachIndex calls f for every index in [0, size). The range is cut into at most
// ParallelFactor contiguous chunks and each chunk runs on its own goroutine. f must only write
// state owned by its index.
func ParallelForEachIndex(size int, f func(i int)) {
	if size <= 0 {
		return
	}
	workers := ParallelFactor
	if workers > size {
		workers = size
	}
	chunk := size / workers
	extra := size % workers

	var waitGroup sync.WaitGroup
	waitGroup.Add(workers)
	from := 0
	for w := 0; w < workers; w++ {
		to := from + chunk
		if w < extra {
			to++
		}
		start, end := from, to
		utils.PanicCapturingGo(func() {
			defer waitGroup.Done()
			for i := start; i < end; i++ {
				f(i)
			}
		})
		from = to
	}
	waitGroup.Wait()
}

// ParallelForEachPixel loops through the image and calls f functions for each [x, y] position.
// The image is divided into N * N blocks, where N is the number of available processor threads. For each block a
// parallel Goroutine is started.
func ParallelForEachPixel(size image.Point, f func(x, y int)) {
	procs := ParallelFactor
	var waitGroup sync.WaitGroup
	waitGroup.Add(procs * procs)
	for i := 0; i < procs; i++ {
		startX := i * (size.X / procs)
		endX := size.X
		if i < procs-1 {
			endX = (i + 1) * (size.X / procs)
		}
		for j := 0; j < procs; j++ {
			startY := j * (size.Y / procs)
			endY := size.Y
			if j < procs-1 {
				endY = (j + 1) * (size.Y / procs)
			}
			sX, eX, sY, eY := startX, endX, startY, endY
			utils.PanicCapturingGo(func() {
				defer waitGroup.Done()
				for x := sX; x < eX; x++ {
					for y := sY; y < eY; y++ {
						f(x, y)
					}
				}
			})
		}
	}
	waitGroup.Wait()
}
