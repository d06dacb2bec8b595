// Package politeness enforces respectful crawling: cached robots.txt
// rules per host and a per-host rate limit with jittered spacing.
package politeness

import (
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/temoto/robotstxt"

	"github.com/resonant-engine/backend/internal/config"
)

// robotsEntry caches a host's parsed robots.txt. A nil rule set means
// allow-all (the fail-open result of a failed or non-200 fetch).
type robotsEntry struct {
	robots    *robotstxt.RobotsData
	fetchedAt time.Time
}

// Manager handles robots.txt caching and per-host request spacing.
type Manager struct {
	cfg    config.CrawlerConfig
	logger *logrus.Entry
	client *http.Client

	robotsMu    sync.Mutex
	robotsCache map[string]*robotsEntry

	limiterMu sync.Mutex
	limiters  map[string]*sync.Mutex
}

// NewManager creates a politeness manager with its own HTTP client for
// robots.txt fetches.
func NewManager(cfg config.CrawlerConfig, logger *logrus.Entry) *Manager {
	return &Manager{
		cfg:    cfg,
		logger: logger.WithField("component", "politeness"),
		client: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		robotsCache: make(map[string]*robotsEntry),
		limiters:    make(map[string]*sync.Mutex),
	}
}

// Allowed reports whether the configured user agent may fetch the URL
// according to the host's robots.txt. Fetch failures are fail-open so a
// dead robots endpoint never stalls the crawl.
func (m *Manager) Allowed(u *url.URL) bool {
	robots := m.robotsFor(u)
	if robots == nil {
		return true
	}
	group := robots.FindGroup(m.cfg.UserAgent)
	if group == nil {
		return true
	}
	return group.Test(u.Path)
}

// Wait serializes same-host requests: it acquires the host's dedicated
// lock and holds it through a jittered sleep of CrawlDelay x U[0.8,1.2],
// spacing out requests to the host regardless of which worker is acting.
func (m *Manager) Wait(host string) {
	limiter := m.limiterFor(host)
	limiter.Lock()
	defer limiter.Unlock()

	jitter := 0.8 + rand.Float64()*0.4
	time.Sleep(time.Duration(float64(m.cfg.CrawlDelay) * jitter))
}

// HostCount returns the number of per-host rate limiters created so far.
// The map grows with distinct hosts and is never evicted; acceptable for
// bounded crawl runs.
func (m *Manager) HostCount() int {
	m.limiterMu.Lock()
	defer m.limiterMu.Unlock()
	return len(m.limiters)
}

// robotsFor returns the cached rule set for the URL's host, fetching it
// when missing or older than the cache TTL.
func (m *Manager) robotsFor(u *url.URL) *robotstxt.RobotsData {
	host := u.Host

	m.robotsMu.Lock()
	entry, exists := m.robotsCache[host]
	m.robotsMu.Unlock()

	if exists && time.Since(entry.fetchedAt) < m.cfg.RobotsCacheTTL {
		return entry.robots
	}

	robots := m.fetchRobots(u.Scheme, host)

	m.robotsMu.Lock()
	m.robotsCache[host] = &robotsEntry{robots: robots, fetchedAt: time.Now()}
	m.robotsMu.Unlock()

	return robots
}

// fetchRobots downloads and parses robots.txt. Every failure path caches
// allow-all rather than blocking the host.
func (m *Manager) fetchRobots(scheme, host string) *robotstxt.RobotsData {
	robotsURL := fmt.Sprintf("%s://%s/robots.txt", scheme, host)

	req, err := http.NewRequest(http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", m.cfg.UserAgent)

	resp, err := m.client.Do(req)
	if err != nil {
		m.logger.WithError(err).WithField("host", host).Warn("Failed to fetch robots.txt, allowing all")
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil
	}

	robots, err := robotstxt.FromResponse(resp)
	if err != nil {
		m.logger.WithError(err).WithField("host", host).Warn("Failed to parse robots.txt, allowing all")
		return nil
	}
	return robots
}

// limiterFor lazily creates the host's rate-limit mutex.
func (m *Manager) limiterFor(host string) *sync.Mutex {
	m.limiterMu.Lock()
	defer m.limiterMu.Unlock()
	limiter, exists := m.limiters[host]
	if !exists {
		limiter = &sync.Mutex{}
		m.limiters[host] = limiter
	}
	return limiter
}
