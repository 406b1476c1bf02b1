package handlers

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/kelgrand/iptv-deck/internal/data"
	"github.com/kelgrand/iptv-deck/internal/favorites"
	"github.com/kelgrand/iptv-deck/pkg/m3u"
)

// ChannelsHandler serves the channel lineup as JSON.
type ChannelsHandler struct {
	store     *data.Store
	favorites favorites.Store
	baseURL   string
	logger    *logrus.Logger
}

// NewChannelsHandler creates a new channels handler.
func NewChannelsHandler(store *data.Store, favStore favorites.Store, baseURL string, logger *logrus.Logger) *ChannelsHandler {
	return &ChannelsHandler{
		store:     store,
		favorites: favStore,
		baseURL:   baseURL,
		logger:    logger,
	}
}

type channelResponse struct {
	Title    string `json:"title"`
	URL      string `json:"url"`
	Logo     string `json:"logo,omitempty"`
	Group    string `json:"group"`
	TvgID    string `json:"tvg_id,omitempty"`
	Favorite bool   `json:"favorite"`
}

// List returns the current lineup, optionally filtered by search text,
// group and favorite status.
func (h *ChannelsHandler) List(w http.ResponseWriter, r *http.Request) {
	if !h.store.HasData() {
		http.Error(w, "Channel data not available", http.StatusServiceUnavailable)
		return
	}

	favs, err := favorites.Set(r.Context(), h.favorites)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load favorites")
		http.Error(w, "Favorites unavailable", http.StatusInternalServerError)
		return
	}

	query := r.URL.Query()
	filtered := h.store.Filter(data.Query{
		Search:        query.Get("q"),
		Group:         query.Get("group"),
		FavoritesOnly: query.Get("favorites") == "1",
		Favorites:     favs,
	})

	out := make([]channelResponse, 0, len(filtered))
	for _, ch := range filtered {
		out = append(out, channelResponse{
			Title:    ch.Title,
			URL:      m3u.StreamPath(h.baseURL, ch.URL),
			Logo:     ch.Logo,
			Group:    ch.Group,
			TvgID:    ch.TvgID,
			Favorite: favs[ch.Title],
		})
	}

	writeJSON(w, http.StatusOK, out)
}

// Groups returns every group in the lineup with its channel count,
// in the order groups first appear in the merged playlist.
func (h *ChannelsHandler) Groups(w http.ResponseWriter, r *http.Request) {
	if !h.store.HasData() {
		http.Error(w, "Channel data not available", http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusOK, h.store.Groups())
}
