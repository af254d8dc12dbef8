package fingerprint

import "time"

// Stats accumulates per-run counters for one workflow. The engine runs a
// workflow on a single worker, so no synchronization is needed.
type Stats struct {
	// FileCount is the number of files actually hashed.
	FileCount int
	// DirectBytes counts bytes read through plain sequential I/O.
	DirectBytes int64
	// MappedBytes counts bytes read through the memory-mapped path.
	MappedBytes int64

	start   time.Time
	elapsed time.Duration
}

// Reset zeroes the counters and starts the clock.
func (s *Stats) Reset() {
	s.FileCount = 0
	s.DirectBytes = 0
	s.MappedBytes = 0
	s.elapsed = 0
	s.start = time.Now()
}

// Stop freezes the elapsed time.
func (s *Stats) Stop() {
	s.elapsed = time.Since(s.start)
}

// Elapsed returns the wall time between Reset and Stop.
func (s *Stats) Elapsed() time.Duration {
	return s.elapsed
}

// TotalBytes is the sum of both I/O paths.
func (s *Stats) TotalBytes() int64 {
	return s.DirectBytes + s.MappedBytes
}
