package utils

import (
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

// ParallelForEachRow splits the rows [0, height) into at most ParallelFactor contiguous bands and
// calls f for every row of every band. It returns once all rows were visited. Each row is visited
// by exactly one goroutine so f may write to row-owned memory without locking.
func ParallelForEachRow(height int, f func(y int)) {
	ParallelForEachBand(height, func(from, to int) {
		for y := from; y < to; y++ {
			f(y)
		}
	})
}

// ParallelForEachBand splits [0, height) into at most ParallelFactor contiguous bands [from, to) and
// calls f once per band, each on its own goroutine.
func ParallelForEachBand(height int, f func(from, to int)) {
	if height <= 0 {
		return
	}
	numGroups := ParallelFactor
	if numGroups > height {
		numGroups = height
	}
	if numGroups <= 1 {
		f(0, height)
		return
	}
	groupSize := height / numGroups
	extra := height % numGroups

	var wait sync.WaitGroup
	wait.Add(numGroups)
	from := 0
	for groupNum := 0; groupNum < numGroups; groupNum++ {
		to := from + groupSize
		if groupNum < extra {
			to++
		}
		start, end := from, to
		utils.PanicCapturingGo(func() {
			defer wait.Done()
			f(start, end)
		})
		from = to
	}
	wait.Wait()
}
