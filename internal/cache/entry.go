package cache

import "time"

// Entry represents one measured size in a series
type Entry struct {
	// RunID identifies the benchmark run that produced the entry
	RunID string `msgpack:"run_id"`

	// Bytes is the measured .text size
	Bytes uint64 `msgpack:"bytes"`

	// InputHash is computed from: source file content + flags + toolchain prefix
	InputHash string `msgpack:"input_hash"`

	// Timestamp when this entry was recorded
	Timestamp time.Time `msgpack:"timestamp"`
}

// InputsChanged reports whether the entries were built from different
// inputs. Entries without a hash never count as changed.
func (e Entry) InputsChanged(other Entry) bool {
	if e.InputHash == "" || other.InputHash == "" {
		return false
	}

	return e.InputHash != other.InputHash
}
