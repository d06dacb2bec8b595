package storage

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/sirupsen/logrus"

	"github.com/resonant-engine/backend/internal/crawler"
)

const pageKeyPrefix = "page:"

// BadgerStorage implements ContentStorage on an embedded BadgerDB.
type BadgerStorage struct {
	db     *badger.DB
	logger *logrus.Entry
}

// badgerLoggerAdapter adapts a logrus entry to the badger.Logger interface.
type badgerLoggerAdapter struct {
	logger *logrus.Entry
}

var _ badger.Logger = (*badgerLoggerAdapter)(nil)

func (bl *badgerLoggerAdapter) Errorf(msg string, items ...any) {
	bl.logger.Errorf(msg, items...)
}

func (bl *badgerLoggerAdapter) Warningf(msg string, items ...any) {
	bl.logger.Warnf(msg, items...)
}

func (bl *badgerLoggerAdapter) Infof(msg string, items ...any) {
	bl.logger.Debugf(msg, items...)
}

func (bl *badgerLoggerAdapter) Debugf(msg string, items ...any) {
	bl.logger.Debugf(msg, items...)
}

// NewBadgerStorage opens a BadgerDB database at the given path, creating
// the directory if it does not exist.
func NewBadgerStorage(path string, logger *logrus.Entry) (*BadgerStorage, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	log := logger.WithField("component", "storage")
	opts := badger.DefaultOptions(path)
	opts.Logger = &badgerLoggerAdapter{logger: log}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}

	return &BadgerStorage{db: db, logger: log}, nil
}

func pageKey(url string) []byte {
	return []byte(pageKeyPrefix + url)
}

// Save stores the document under its URL key.
func (bs *BadgerStorage) Save(doc *crawler.Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}
	return bs.db.Update(func(txn *badger.Txn) error {
		return txn.Set(pageKey(doc.URL), data)
	})
}

// Get retrieves a document by URL.
func (bs *BadgerStorage) Get(url string) (*crawler.Document, error) {
	var doc crawler.Document
	err := bs.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(pageKey(url))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &doc)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load document %s: %w", url, err)
	}
	return &doc, nil
}

// LoadAll iterates the page keyspace and returns every stored document.
// Values that fail to parse are skipped.
func (bs *BadgerStorage) LoadAll() ([]*crawler.Document, error) {
	var docs []*crawler.Document
	err := bs.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(pageKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var doc crawler.Document
				if err := json.Unmarshal(val, &doc); err != nil {
					bs.logger.WithError(err).Warn("Skipping corrupt stored document")
					return nil
				}
				docs = append(docs, &doc)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan stored documents: %w", err)
	}
	return docs, nil
}

// Close closes the underlying database.
func (bs *BadgerStorage) Close() error {
	return bs.db.Close()
}
