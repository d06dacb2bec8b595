// Package crawler drives the fetch pipeline: a worker pool consuming the
// frontier under a global concurrency bound, with per-host politeness,
// emitting parsed documents on a bounded channel.
package crawler

import (
	"context"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"github.com/resonant-engine/backend/internal/config"
	"github.com/resonant-engine/backend/internal/fetcher"
	"github.com/resonant-engine/backend/internal/frontier"
	"github.com/resonant-engine/backend/internal/metrics"
	"github.com/resonant-engine/backend/internal/politeness"
)

// idleGrace is the sleep between the two empty-frontier checks of the
// idle-stop heuristic. Best effort: a slow producer can still cause a
// false-idle signal under adversarial timing.
const idleGrace = 100 * time.Millisecond

// Crawler owns the frontier, politeness manager and fetcher, and runs the
// bounded worker pool over them.
type Crawler struct {
	cfg     config.CrawlerConfig
	logger  *logrus.Entry
	metrics *metrics.Metrics

	frontier   *frontier.Frontier
	politeness *politeness.Manager
	fetcher    *fetcher.Fetcher
	sem        *semaphore.Weighted
	pool       *ants.Pool

	allowedDomains map[string]struct{}

	docs    chan Document
	crawled atomic.Int64
	wg      sync.WaitGroup
}

// NewCrawler builds a crawler whose document channel has the given
// capacity; once it is full, workers block, which is the crawl's
// backpressure mechanism.
func NewCrawler(cfg config.CrawlerConfig, queueSize int, logger *logrus.Entry, m *metrics.Metrics) (*Crawler, error) {
	pool, err := ants.NewPool(cfg.NumWorkers)
	if err != nil {
		return nil, err
	}

	var allowed map[string]struct{}
	if len(cfg.AllowedDomains) > 0 {
		allowed = make(map[string]struct{}, len(cfg.AllowedDomains))
		for _, domain := range cfg.AllowedDomains {
			allowed[domain] = struct{}{}
		}
	}

	return &Crawler{
		cfg:            cfg,
		logger:         logger.WithField("component", "crawler"),
		metrics:        m,
		frontier:       frontier.New(),
		politeness:     politeness.NewManager(cfg, logger),
		fetcher:        fetcher.NewFetcher(cfg.RequestTimeout, cfg.UserAgent),
		sem:            semaphore.NewWeighted(int64(cfg.MaxConcurrentRequests)),
		pool:           pool,
		allowedDomains: allowed,
		docs:           make(chan Document, queueSize),
	}, nil
}

// Documents returns the bounded channel of crawled pages. It is closed by
// Wait after all workers have stopped.
func (c *Crawler) Documents() <-chan Document {
	return c.docs
}

// Crawled returns the number of pages emitted so far.
func (c *Crawler) Crawled() int64 {
	return c.crawled.Load()
}

// Start seeds the frontier and launches the worker pool. Invalid seeds
// are logged and ignored.
func (c *Crawler) Start(ctx context.Context, seeds []string) {
	for _, seed := range seeds {
		normalized, err := frontier.Normalize(seed)
		if err != nil {
			c.logger.WithError(err).WithField("url", seed).Warn("Skipping invalid seed URL")
			continue
		}
		c.frontier.Push(normalized, 0)
	}
	c.metrics.FrontierSize.Set(float64(c.frontier.Len()))

	for i := 0; i < c.cfg.NumWorkers; i++ {
		id := i
		c.wg.Add(1)
		if err := c.pool.Submit(func() {
			defer c.wg.Done()
			c.worker(ctx, id)
		}); err != nil {
			c.wg.Done()
			c.logger.WithError(err).Error("Failed to submit crawl worker")
		}
	}
}

// Wait blocks until every worker has stopped, then closes the document
// channel and releases the pool.
func (c *Crawler) Wait() {
	c.wg.Wait()
	close(c.docs)
	c.pool.Release()
	c.logger.WithField("pages", c.crawled.Load()).Info("Crawl finished")
}

// worker loops until the page budget is reached, the context is
// cancelled, or the frontier stays empty across the grace interval.
func (c *Crawler) worker(ctx context.Context, id int) {
	log := c.logger.WithField("worker", id)
	for {
		if ctx.Err() != nil {
			return
		}
		if c.crawled.Load() >= int64(c.cfg.MaxPages) {
			log.Debug("Worker stopping: reached max pages")
			return
		}

		entry, ok := c.frontier.Pop()
		if !ok {
			// Give producers a chance to refill before concluding idle.
			time.Sleep(idleGrace)
			if c.frontier.Len() == 0 {
				log.Debug("Worker stopping: frontier empty")
				return
			}
			continue
		}
		c.metrics.FrontierSize.Set(float64(c.frontier.Len()))

		c.process(ctx, log, entry)
	}
}

// process runs one URL through the Queued -> Fetched -> Parsed pipeline.
func (c *Crawler) process(ctx context.Context, log *logrus.Entry, entry frontier.Entry) {
	u, err := url.Parse(entry.URL)
	if err != nil {
		log.WithError(err).WithField("url", entry.URL).Debug("Dropping unparsable URL")
		return
	}

	if !c.domainAllowed(u.Hostname()) {
		c.metrics.PagesSkipped.WithLabelValues("domain").Inc()
		return
	}

	// Claim before fetching so a duplicate enqueue cannot race us.
	if !c.frontier.MarkVisited(entry.URL) {
		c.metrics.PagesSkipped.WithLabelValues("visited").Inc()
		return
	}

	if !c.politeness.Allowed(u) {
		c.metrics.PagesSkipped.WithLabelValues("robots").Inc()
		log.WithField("url", entry.URL).Debug("Blocked by robots.txt")
		return
	}

	c.politeness.Wait(u.Host)

	if err := c.sem.Acquire(ctx, 1); err != nil {
		return
	}
	result, err := c.fetcher.Fetch(ctx, entry.URL)
	c.sem.Release(1)

	if err != nil {
		c.metrics.CrawlErrors.Inc()
		log.WithError(err).WithField("url", entry.URL).Warn("Fetch failed, abandoning URL")
		return
	}

	switch {
	case !result.Success():
		c.metrics.PagesSkipped.WithLabelValues("status").Inc()
		return
	case !result.HTML():
		c.metrics.PagesSkipped.WithLabelValues("content_type").Inc()
		return
	case c.cfg.RespectNoindex && result.NoIndex:
		c.metrics.PagesSkipped.WithLabelValues("noindex").Inc()
		return
	}

	title := result.Title
	if title == "" {
		title = entry.URL
	}

	select {
	case c.docs <- Document{URL: entry.URL, Title: title, Text: result.Text}:
	case <-ctx.Done():
		return
	}
	c.crawled.Add(1)
	c.metrics.PagesCrawled.Inc()

	c.enqueueLinks(entry, result.Links)
}

// enqueueLinks pushes accepted outgoing edges at depth+1 while the
// current depth is below the maximum.
func (c *Crawler) enqueueLinks(entry frontier.Entry, links []fetcher.Link) {
	if entry.Depth >= c.cfg.MaxDepth {
		return
	}
	for _, link := range links {
		if c.cfg.RespectNofollow && link.NoFollow {
			continue
		}
		normalized, err := frontier.Normalize(link.URL)
		if err != nil {
			continue
		}
		c.frontier.Push(normalized, entry.Depth+1)
	}
	c.metrics.FrontierSize.Set(float64(c.frontier.Len()))
}

// domainAllowed applies the allowed-domain filter; an empty filter
// accepts every host.
func (c *Crawler) domainAllowed(host string) bool {
	if c.allowedDomains == nil {
		return true
	}
	_, ok := c.allowedDomains[host]
	return ok
}
