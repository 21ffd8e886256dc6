package engine

import (
	"runtime"
)

// Workers per CPU used when no explicit worker count is given.
const workersPerCPU = 5

// Options is the per-request configuration snapshot. It travels by value
// through the pipeline; every CopyPair carries its own copy.
type Options struct {
	// Recursive copies directories, buckets and bucket subdirectories
	// recursively. Without it a container source is a hard error, never a
	// partial copy.
	Recursive bool

	// NoClobber skips pairs whose destination already exists. The existence
	// check happens immediately before writing and is best-effort: it is not
	// atomic against external concurrent writers.
	NoClobber bool

	// PreserveMetadata carries POSIX attributes (uid, gid, mode bits, atime,
	// mtime) between the local stat structure and the remote object's custom
	// metadata, in both directions.
	PreserveMetadata bool

	// Workers bounds the worker pool. 1 executes strictly sequentially in
	// submission order; values below 1 resolve to NumCPU x 5.
	Workers int
}

// DefaultWorkerCount is the pool size used when Options.Workers is left
// unset, computed once per call.
func DefaultWorkerCount() int {
	return runtime.NumCPU() * workersPerCPU
}

func (o Options) workerCount() int {
	if o.Workers >= 1 {
		return o.Workers
	}
	return DefaultWorkerCount()
}
