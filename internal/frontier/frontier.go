// Package frontier manages the crawler's pending-URL work queue and the
// visited-URL set.
package frontier

import (
	"fmt"
	"net/url"
	"strings"
	"sync"
)

// Entry is one unit of crawl work.
type Entry struct {
	URL   string
	Depth int
}

// Frontier is a FIFO queue of (url, depth) pairs plus the visited set.
// The queue and the visited set are guarded by separate locks, each held
// only for its critical section. Dequeue order is FIFO per worker but not
// strictly breadth-first once several workers interleave.
type Frontier struct {
	queueMu sync.Mutex
	queue   []Entry

	visitedMu sync.Mutex
	visited   map[string]struct{}
}

// New creates an empty frontier.
func New() *Frontier {
	return &Frontier{
		visited: make(map[string]struct{}),
	}
}

// Push enqueues a URL at the given depth unless it was already visited.
// Duplicate queue entries are possible; they are resolved at visit time
// by MarkVisited's atomic claim.
func (f *Frontier) Push(rawURL string, depth int) {
	f.visitedMu.Lock()
	_, seen := f.visited[rawURL]
	f.visitedMu.Unlock()
	if seen {
		return
	}

	f.queueMu.Lock()
	f.queue = append(f.queue, Entry{URL: rawURL, Depth: depth})
	f.queueMu.Unlock()
}

// Pop dequeues the next entry, reporting false when the queue is empty.
func (f *Frontier) Pop() (Entry, bool) {
	f.queueMu.Lock()
	defer f.queueMu.Unlock()
	if len(f.queue) == 0 {
		return Entry{}, false
	}
	entry := f.queue[0]
	f.queue = f.queue[1:]
	return entry, true
}

// MarkVisited atomically claims a URL, returning false if another worker
// already claimed it. Claiming happens before fetching, which closes the
// race window between dequeue and a duplicate enqueue.
func (f *Frontier) MarkVisited(rawURL string) bool {
	f.visitedMu.Lock()
	defer f.visitedMu.Unlock()
	if _, seen := f.visited[rawURL]; seen {
		return false
	}
	f.visited[rawURL] = struct{}{}
	return true
}

// Visited reports whether a URL has been claimed.
func (f *Frontier) Visited(rawURL string) bool {
	f.visitedMu.Lock()
	defer f.visitedMu.Unlock()
	_, seen := f.visited[rawURL]
	return seen
}

// Len returns the number of queued entries.
func (f *Frontier) Len() int {
	f.queueMu.Lock()
	defer f.queueMu.Unlock()
	return len(f.queue)
}

// Normalize canonicalizes a URL for dedup and storage: lowercased scheme
// and host, fragment stripped, default port stripped, empty path replaced
// with "/".
func Normalize(rawURL string) (string, error) {
	if rawURL == "" {
		return "", fmt.Errorf("URL cannot be empty")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid URL format: %w", err)
	}
	if parsed.Scheme == "" {
		return "", fmt.Errorf("URL must have a scheme (http, https, etc.)")
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("URL must have a host")
	}

	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = strings.ToLower(parsed.Host)
	parsed.Fragment = ""

	if port := parsed.Port(); port != "" {
		if (parsed.Scheme == "http" && port == "80") || (parsed.Scheme == "https" && port == "443") {
			parsed.Host = parsed.Hostname()
		}
	}

	if parsed.Path == "" {
		parsed.Path = "/"
	}

	return parsed.String(), nil
}
