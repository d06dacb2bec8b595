package engine

import (
	"strings"
	"time"

	"github.com/resonant-engine/backend/internal/hilbert"
)

// historyCapacity bounds each document's dense-snapshot history.
const historyCapacity = 5

// Document is an indexed entry in the corpus. Documents are created at
// ingestion and never deleted; the relationship-refresh pass and quantum
// jumps mutate reversibility, history and timestamp in place.
type Document struct {
	Title         string
	Path          string
	Text          string
	Vector        hilbert.PrimeVector
	Dual          hilbert.DualVector
	Entropy       float64
	Timestamp     time.Time
	Reversibility float64
	Buffering     float64

	history snapshotRing
}

// HistoryLen returns the number of dense snapshots currently retained.
func (d *Document) HistoryLen() int {
	return d.history.count
}

// snapshotRing is a fixed-capacity ring of dense vector snapshots with
// FIFO eviction.
type snapshotRing struct {
	snapshots [historyCapacity][]float64
	start     int
	count     int
}

func (r *snapshotRing) push(snapshot []float64) {
	if r.count < historyCapacity {
		r.snapshots[(r.start+r.count)%historyCapacity] = snapshot
		r.count++
		return
	}
	// Full: overwrite the oldest slot and advance the start cursor.
	r.snapshots[r.start] = snapshot
	r.start = (r.start + 1) % historyCapacity
}

// list returns the retained snapshots, oldest first.
func (r *snapshotRing) list() [][]float64 {
	out := make([][]float64, 0, r.count)
	for i := 0; i < r.count; i++ {
		out = append(out, r.snapshots[(r.start+i)%historyCapacity])
	}
	return out
}

// snippetLength is the number of leading characters shown per result.
const snippetLength = 200

// snippet returns the first characters of the text with whitespace
// collapsed, ellipsis-terminated only when truncated.
func snippet(text string) string {
	collapsed := strings.Join(strings.Fields(text), " ")
	runes := []rune(collapsed)
	if len(runes) <= snippetLength {
		return collapsed
	}
	return strings.TrimSpace(string(runes[:snippetLength])) + "..."
}
