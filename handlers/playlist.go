package handlers

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/kelgrand/iptv-deck/internal/data"
	"github.com/kelgrand/iptv-deck/internal/favorites"
	"github.com/kelgrand/iptv-deck/pkg/m3u"
)

// PlaylistHandler serves the merged lineup as an M3U playlist.
type PlaylistHandler struct {
	store     *data.Store
	favorites favorites.Store
	baseURL   string
	logger    *logrus.Logger
}

// NewPlaylistHandler creates a new playlist handler.
func NewPlaylistHandler(store *data.Store, favStore favorites.Store, baseURL string, logger *logrus.Logger) *PlaylistHandler {
	return &PlaylistHandler{
		store:     store,
		favorites: favStore,
		baseURL:   baseURL,
		logger:    logger,
	}
}

// ServeHTTP writes the playlist. Stream URLs point at the relay unless
// direct=1 is given, and the lineup honors the same group and favorites
// filters as the JSON API.
func (h *PlaylistHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.store.HasData() {
		http.Error(w, "Playlist data not available", http.StatusServiceUnavailable)
		return
	}

	query := r.URL.Query()

	var favs map[string]bool
	if query.Get("favorites") == "1" {
		set, err := favorites.Set(r.Context(), h.favorites)
		if err != nil {
			h.logger.WithError(err).Error("Failed to load favorites")
			http.Error(w, "Favorites unavailable", http.StatusInternalServerError)
			return
		}
		favs = set
	}

	channels := h.store.Filter(data.Query{
		Group:         query.Get("group"),
		FavoritesOnly: query.Get("favorites") == "1",
		Favorites:     favs,
	})

	w.Header().Set("Content-Type", "application/vnd.apple.mpegurl")

	if query.Get("direct") == "1" {
		if err := m3u.Write(w, channels); err != nil {
			h.logger.WithError(err).Error("Failed to write playlist")
		}
		return
	}

	if _, err := w.Write(m3u.Rewrite(channels, h.baseURL)); err != nil {
		h.logger.WithError(err).Error("Failed to write playlist")
	}
}
