package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kelgrand/iptv-deck/internal/data"
)

// RefreshHandler forces an immediate playlist refresh.
type RefreshHandler struct {
	store     *data.Store
	refresher *data.Refresher
	logger    *logrus.Logger
}

// NewRefreshHandler creates a new refresh handler.
func NewRefreshHandler(store *data.Store, refresher *data.Refresher, logger *logrus.Logger) *RefreshHandler {
	return &RefreshHandler{store: store, refresher: refresher, logger: logger}
}

type refreshResponse struct {
	Channels int    `json:"channels"`
	LastSync string `json:"last_sync"`
}

// ServeHTTP triggers a refresh and waits for it to finish. Concurrent
// requests share a single upstream fetch.
func (h *RefreshHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := h.refresher.Refresh(r.Context()); err != nil {
		h.logger.WithError(err).Error("Requested refresh failed")

		if errors.Is(err, data.ErrAllSourcesFailed) {
			http.Error(w, "All playlist sources failed", http.StatusBadGateway)
			return
		}
		http.Error(w, "Refresh failed", http.StatusInternalServerError)
		return
	}

	channels, _ := h.store.Channels()
	writeJSON(w, http.StatusOK, refreshResponse{
		Channels: len(channels),
		LastSync: h.store.LastSync().Format(time.RFC3339),
	})
}
