package handlers

import (
	"io"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"go.etcd.io/bbolt"

	"github.com/kelgrand/iptv-deck/internal/data"
	"github.com/kelgrand/iptv-deck/internal/favorites"
	"github.com/kelgrand/iptv-deck/internal/proxy"
	"github.com/kelgrand/iptv-deck/pkg/m3u"
)

const testBaseURL = "http://deck.example:8080"

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testFavorites(t *testing.T) favorites.Store {
	t.Helper()

	db, err := bbolt.Open(filepath.Join(t.TempDir(), "favorites.db"), 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Failed to close database: %v", err)
		}
	})

	store, err := favorites.NewBoltStore(db, "default")
	if err != nil {
		t.Fatalf("Failed to create favorites store: %v", err)
	}
	return store
}

func sampleChannels() []m3u.Channel {
	return []m3u.Channel{
		{Title: "ESPN", URL: "http://upstream.example/espn.m3u8", Logo: "http://upstream.example/espn.png", Group: "Sports", TvgID: "espn.us"},
		{Title: "BBC One", URL: "http://upstream.example/bbc1.ts", Group: "News", TvgID: "bbc1.uk"},
		{Title: "BBC Two", URL: "http://upstream.example/bbc2.ts", Group: "News"},
		{Title: "Discovery", URL: "https://upstream.example/disc.m3u8", Group: "Uncategorized"},
	}
}

func seededStore() *data.Store {
	store := data.NewStore()
	store.Set(sampleChannels(),
		[]m3u.Skipped{{Line: 12, Reason: "no URL line follows EXTINF"}},
		[]data.SourceResult{{Source: "http://provider.example/playlist.m3u", Channels: 4, FetchedAt: time.Now()}})
	return store
}

// testRouter builds a router around a seeded store. Tests that need an
// empty store or a live refresher construct their own Deps instead.
func testRouter(t *testing.T) (*data.Store, favorites.Store, http.Handler) {
	t.Helper()

	store := seededStore()
	favStore := testFavorites(t)
	router := NewRouter(Deps{
		Store:     store,
		Favorites: favStore,
		Relay:     proxy.NewRelay(true, testLogger()),
		BaseURL:   testBaseURL,
		Logger:    testLogger(),
	})
	return store, favStore, router
}
