package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/resonant-engine/backend/internal/config"
	"github.com/resonant-engine/backend/internal/crawler"
	"github.com/resonant-engine/backend/internal/engine"
	"github.com/resonant-engine/backend/internal/metrics"
	"github.com/resonant-engine/backend/internal/storage"
)

const refreshInterval = time.Minute

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	metricsAddr := flag.String("metrics-addr", ":9090", "listen address for Prometheus metrics")
	flag.Parse()

	// 1. Config
	cfg := config.Load()
	if *configPath != "" {
		loaded, err := config.LoadFile(*configPath)
		if err != nil {
			logrus.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
	}

	// 2. Logging
	logger := logrus.New()
	if cfg.Logging.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	if level, err := logrus.ParseLevel(cfg.Logging.Level); err == nil {
		logger.SetLevel(level)
	}
	entry := logger.WithField("service", "resonant-engine")

	entry.Info("Starting Resonant Engine")

	// 3. Metrics
	m, registry := metrics.New()
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
			entry.WithError(err).Warn("Metrics server stopped")
		}
	}()

	// 4. Storage
	store, err := storage.NewStorage(cfg.Storage, entry)
	if err != nil {
		entry.Fatalf("Failed to initialize storage: %v", err)
	}
	defer store.Close()

	// 5. Engine, preloaded from previously crawled pages
	eng := engine.NewEngine(cfg.Engine, entry, m)
	if stored, err := store.LoadAll(); err != nil {
		entry.WithError(err).Warn("Failed to preload stored documents")
	} else if len(stored) > 0 {
		for _, doc := range stored {
			eng.IngestCrawled(*doc)
		}
		eng.RefreshRelationships()
		entry.Infof("Pre-loaded %d documents into the index", eng.Len())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	seeds := cfg.Crawler.SeedURLs
	if args := flag.Args(); len(args) > 0 {
		seeds = args
	}
	if len(seeds) == 0 {
		entry.Warn("No seed URLs configured, nothing to crawl")
		return
	}

	// 6. Crawler
	c, err := crawler.NewCrawler(cfg.Crawler, cfg.Engine.IngestQueueSize, entry, m)
	if err != nil {
		entry.Fatalf("Failed to initialize crawler: %v", err)
	}
	c.Start(ctx, seeds)

	// Persist each page before handing it to the engine so the index can
	// be rebuilt without re-crawling.
	engineDocs := make(chan crawler.Document, cfg.Engine.IngestQueueSize)
	go func() {
		defer close(engineDocs)
		for doc := range c.Documents() {
			if err := store.Save(&doc); err != nil {
				entry.WithError(err).WithField("url", doc.URL).Warn("Failed to persist document")
			}
			engineDocs <- doc
		}
	}()

	engineDone := make(chan struct{})
	go func() {
		defer close(engineDone)
		eng.Run(ctx, engineDocs)
	}()

	// Relationship snapshots stay current while the crawl runs.
	go func() {
		ticker := time.NewTicker(refreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				eng.RefreshRelationships()
			case <-ctx.Done():
				return
			}
		}
	}()

	c.Wait()
	<-engineDone

	eng.RefreshRelationships()
	entry.WithFields(logrus.Fields{
		"pages_crawled": c.Crawled(),
		"docs_indexed":  eng.Len(),
	}).Info("Crawl complete, index ready")

	// Keep serving metrics until interrupted.
	<-ctx.Done()
	entry.Info("Shutting down")
}
