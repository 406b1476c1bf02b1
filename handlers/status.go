package handlers

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kelgrand/iptv-deck/internal/data"
	"github.com/kelgrand/iptv-deck/internal/favorites"
	"github.com/kelgrand/iptv-deck/pkg/m3u"
)

// skippedSample caps how many parse diagnostics the status endpoint
// returns. The full list can grow large on messy provider playlists.
const skippedSample = 25

// StatusHandler reports lineup counts, per-source fetch results and a
// sample of parse diagnostics.
type StatusHandler struct {
	store     *data.Store
	favorites favorites.Store
	logger    *logrus.Logger
}

// NewStatusHandler creates a new status handler.
func NewStatusHandler(store *data.Store, favStore favorites.Store, logger *logrus.Logger) *StatusHandler {
	return &StatusHandler{store: store, favorites: favStore, logger: logger}
}

type statusResponse struct {
	Ready        bool                `json:"ready"`
	Channels     int                 `json:"channels"`
	Groups       int                 `json:"groups"`
	Favorites    int                 `json:"favorites"`
	LastSync     time.Time           `json:"last_sync"`
	Sources      []data.SourceResult `json:"sources"`
	SkippedTotal int                 `json:"skipped_total"`
	Skipped      []m3u.Skipped       `json:"skipped,omitempty"`
}

// ServeHTTP reports service state. Unlike the channel endpoints it always
// answers 200 so it can be polled before the first refresh completes.
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	channels, ready := h.store.Channels()
	skipped := h.store.Skipped()

	favs, err := h.favorites.List(r.Context())
	if err != nil {
		h.logger.WithError(err).Warn("Failed to count favorites")
	}

	sources := h.store.Results()
	if sources == nil {
		sources = []data.SourceResult{}
	}

	sample := skipped
	if len(sample) > skippedSample {
		sample = sample[:skippedSample]
	}

	writeJSON(w, http.StatusOK, statusResponse{
		Ready:        ready,
		Channels:     len(channels),
		Groups:       len(h.store.Groups()),
		Favorites:    len(favs),
		LastSync:     h.store.LastSync(),
		Sources:      sources,
		SkippedTotal: len(skipped),
		Skipped:      sample,
	})
}
