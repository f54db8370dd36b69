package database

// Memory-map growth for engines with fixed-size mappings. The policy is
// consulted before a write that wouldn't fit in the remaining mapped
// capacity, and again each time a write attempt fails with
// ErrResizeNeeded, up to ResizeRetries attempts per write.

// ResizeRetries is the number of times a single write attempt may grow
// the map before ErrResizeNeeded is surfaced to the caller. Retries exist
// because readers holding the old mapping can transiently block a remap.
const ResizeRetries = 3

// DefaultResizeIncrement is the amount GreedyIncrement adds to the map on
// every growth: 1 GiB plus one 4 KiB page.
const DefaultResizeIncrement = 1 << 30 + 4096

// resizePageSize is the granularity map sizes are rounded up to. Engines
// reject map sizes that aren't page-multiples.
const resizePageSize = 4096

// ResizeAlgorithm decides how a fixed-size memory map grows. Algorithms
// must be monotonic: Grow(n) > n for every n.
type ResizeAlgorithm interface {
	// Grow returns the new map size to grow a map of currentSize to.
	Grow(currentSize uint64) uint64
}

// GreedyIncrement grows the map by a fixed increment rather than
// doubling, which bounds overshoot on large maps. It is the default
// algorithm.
type GreedyIncrement struct {
	// Increment is the number of bytes added per growth. Zero means
	// DefaultResizeIncrement.
	Increment uint64
}

// Grow implements ResizeAlgorithm.
func (g GreedyIncrement) Grow(currentSize uint64) uint64 {
	increment := g.Increment
	if increment == 0 {
		increment = DefaultResizeIncrement
	}
	return pageAlign(currentSize + increment)
}

// Percent grows the map by a multiplier of its current size. It overshoots
// more than GreedyIncrement on large maps but needs fewer growths early on.
type Percent struct {
	// Multiplier is the growth factor. Values at or below 1 mean the
	// default of 1.1.
	Multiplier float64
}

// Grow implements ResizeAlgorithm.
func (p Percent) Grow(currentSize uint64) uint64 {
	multiplier := p.Multiplier
	if multiplier <= 1 {
		multiplier = 1.1
	}
	grown := uint64(float64(currentSize) * multiplier)
	if grown <= currentSize {
		grown = currentSize + resizePageSize
	}
	return pageAlign(grown)
}

func pageAlign(size uint64) uint64 {
	remainder := size % resizePageSize
	if remainder == 0 {
		return size
	}
	return size + resizePageSize - remainder
}
