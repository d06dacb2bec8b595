package storage_test

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resonant-engine/backend/internal/config"
	"github.com/resonant-engine/backend/internal/crawler"
	"github.com/resonant-engine/backend/internal/storage"
)

func testLogger() *logrus.Entry {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logrus.NewEntry(logger)
}

func openBackend(t *testing.T, backend string) storage.ContentStorage {
	t.Helper()
	store, err := storage.NewStorage(config.StorageConfig{
		Backend: backend,
		Path:    t.TempDir(),
	}, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStorageBackends(t *testing.T) {
	for _, backend := range []string{"file", "badger"} {
		t.Run(backend, func(t *testing.T) {
			store := openBackend(t, backend)

			docs := []*crawler.Document{
				{URL: "https://example.com/", Title: "Home", Text: "welcome home"},
				{URL: "https://example.com/about", Title: "About", Text: "about us"},
				{URL: "https://other.net/page?q=1", Title: "Other", Text: "other content"},
			}
			for _, doc := range docs {
				require.NoError(t, store.Save(doc))
			}

			got, err := store.Get("https://example.com/about")
			require.NoError(t, err)
			assert.Equal(t, "About", got.Title)
			assert.Equal(t, "about us", got.Text)

			all, err := store.LoadAll()
			require.NoError(t, err)
			require.Len(t, all, 3)

			byURL := make(map[string]*crawler.Document, len(all))
			for _, doc := range all {
				byURL[doc.URL] = doc
			}
			for _, want := range docs {
				loaded, ok := byURL[want.URL]
				require.True(t, ok, "missing %s", want.URL)
				assert.Equal(t, want.Title, loaded.Title)
				assert.Equal(t, want.Text, loaded.Text)
			}
		})
	}
}

func TestStorageSaveOverwrites(t *testing.T) {
	for _, backend := range []string{"file", "badger"} {
		t.Run(backend, func(t *testing.T) {
			store := openBackend(t, backend)

			doc := &crawler.Document{URL: "https://example.com/", Title: "V1", Text: "first"}
			require.NoError(t, store.Save(doc))
			doc.Title = "V2"
			doc.Text = "second"
			require.NoError(t, store.Save(doc))

			got, err := store.Get("https://example.com/")
			require.NoError(t, err)
			assert.Equal(t, "V2", got.Title)

			all, err := store.LoadAll()
			require.NoError(t, err)
			assert.Len(t, all, 1)
		})
	}
}

func TestStorageGetMissing(t *testing.T) {
	for _, backend := range []string{"file", "badger"} {
		t.Run(backend, func(t *testing.T) {
			store := openBackend(t, backend)
			_, err := store.Get("https://nowhere.example/")
			assert.Error(t, err)
		})
	}
}

func TestStorageLoadAllEmpty(t *testing.T) {
	for _, backend := range []string{"file", "badger"} {
		t.Run(backend, func(t *testing.T) {
			store := openBackend(t, backend)
			all, err := store.LoadAll()
			require.NoError(t, err)
			assert.Empty(t, all)
		})
	}
}

func TestNewStorageRejectsUnknownBackend(t *testing.T) {
	_, err := storage.NewStorage(config.StorageConfig{Backend: "redis", Path: t.TempDir()}, testLogger())
	assert.Error(t, err)
}
