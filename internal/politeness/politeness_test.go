package politeness_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resonant-engine/backend/internal/config"
	"github.com/resonant-engine/backend/internal/politeness"
)

func newTestManager(t *testing.T, mutate func(*config.CrawlerConfig)) *politeness.Manager {
	t.Helper()

	cfg := config.Load().Crawler
	cfg.CrawlDelay = 5 * time.Millisecond
	cfg.RequestTimeout = 2 * time.Second
	if mutate != nil {
		mutate(&cfg)
	}

	logger := logrus.NewEntry(logrus.New())
	logger.Logger.SetLevel(logrus.ErrorLevel)

	return politeness.NewManager(cfg, logger)
}

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestAllowedHonorsDisallow(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			_, _ = w.Write([]byte("User-agent: *\nDisallow: /private/\n"))
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	m := newTestManager(t, nil)

	assert.True(t, m.Allowed(mustParse(t, server.URL+"/public/page")))
	assert.False(t, m.Allowed(mustParse(t, server.URL+"/private/page")))
}

func TestAllowedDisallowAll(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			_, _ = w.Write([]byte("User-agent: *\nDisallow: /\n"))
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	m := newTestManager(t, nil)
	assert.False(t, m.Allowed(mustParse(t, server.URL+"/anything")))
}

func TestAllowedFailOpen(t *testing.T) {
	// 500 on robots.txt must not stall the crawl.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	m := newTestManager(t, nil)
	assert.True(t, m.Allowed(mustParse(t, server.URL+"/page")))

	// An unreachable host fails open too.
	assert.True(t, m.Allowed(mustParse(t, "http://127.0.0.1:1/page")))
}

func TestRobotsCaching(t *testing.T) {
	var fetches int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			atomic.AddInt64(&fetches, 1)
			_, _ = w.Write([]byte("User-agent: *\nDisallow: /private/\n"))
		}
	}))
	defer server.Close()

	m := newTestManager(t, nil)
	u := mustParse(t, server.URL+"/page")

	for i := 0; i < 5; i++ {
		m.Allowed(u)
	}
	assert.Equal(t, int64(1), atomic.LoadInt64(&fetches), "robots.txt is fetched once within the TTL")
}

func TestRobotsCacheExpiry(t *testing.T) {
	var fetches int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			atomic.AddInt64(&fetches, 1)
			_, _ = w.Write([]byte("User-agent: *\nAllow: /\n"))
		}
	}))
	defer server.Close()

	m := newTestManager(t, func(cfg *config.CrawlerConfig) {
		cfg.RobotsCacheTTL = 0 // Every lookup is expired.
	})
	u := mustParse(t, server.URL+"/page")

	m.Allowed(u)
	m.Allowed(u)
	assert.Equal(t, int64(2), atomic.LoadInt64(&fetches))
}

func TestWaitSerializesHost(t *testing.T) {
	m := newTestManager(t, func(cfg *config.CrawlerConfig) {
		cfg.CrawlDelay = 20 * time.Millisecond
	})

	start := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Wait("example.com")
		}()
	}
	wg.Wait()

	// Three waits on one host serialize: at least 3 x 0.8 x delay.
	elapsed := time.Since(start)
	assert.GreaterOrEqual(t, elapsed, 48*time.Millisecond)
	assert.Equal(t, 1, m.HostCount())
}

func TestWaitDistinctHostsIndependent(t *testing.T) {
	m := newTestManager(t, func(cfg *config.CrawlerConfig) {
		cfg.CrawlDelay = 30 * time.Millisecond
	})

	start := time.Now()
	var wg sync.WaitGroup
	for _, host := range []string{"a.example", "b.example", "c.example"} {
		wg.Add(1)
		go func(h string) {
			defer wg.Done()
			m.Wait(h)
		}(host)
	}
	wg.Wait()

	// Distinct hosts do not serialize against each other.
	assert.Less(t, time.Since(start), 90*time.Millisecond)
	assert.Equal(t, 3, m.HostCount())
}
