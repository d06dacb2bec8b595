// Package storage persists crawled pages so the index can be rebuilt
// without re-crawling. Two backends are provided: flat JSON files and
// an embedded BadgerDB key-value store.
package storage

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/resonant-engine/backend/internal/config"
	"github.com/resonant-engine/backend/internal/crawler"
)

// ContentStorage defines the interface for saving crawled data
type ContentStorage interface {
	Save(doc *crawler.Document) error
	Get(url string) (*crawler.Document, error)
	LoadAll() ([]*crawler.Document, error)
	Close() error
}

// NewStorage opens the backend selected by the configuration.
func NewStorage(cfg config.StorageConfig, logger *logrus.Entry) (ContentStorage, error) {
	switch cfg.Backend {
	case "file":
		return NewFileStorage(cfg.Path)
	case "badger":
		return NewBadgerStorage(cfg.Path, logger)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
