// Package handlers wires the HTTP API: channel listing, favorites,
// playlist export, stream relay and service control endpoints.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/kelgrand/iptv-deck/internal/data"
	"github.com/kelgrand/iptv-deck/internal/favorites"
	"github.com/kelgrand/iptv-deck/internal/proxy"
)

// Deps bundles the services the HTTP layer depends on.
type Deps struct {
	Store     *data.Store
	Favorites favorites.Store
	Refresher *data.Refresher
	Relay     *proxy.Relay
	BaseURL   string
	RateLimit int
	Logger    *logrus.Logger
}

// NewRouter builds the routing table with the shared middleware stack.
func NewRouter(deps Deps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(RecovererMiddleware(deps.Logger))
	r.Use(LoggingMiddleware(deps.Logger))

	channels := NewChannelsHandler(deps.Store, deps.Favorites, deps.BaseURL, deps.Logger)
	favs := NewFavoritesHandler(deps.Favorites, deps.Logger)
	playlist := NewPlaylistHandler(deps.Store, deps.Favorites, deps.BaseURL, deps.Logger)
	stream := NewStreamHandler(deps.Store, deps.Relay, deps.Logger)
	status := NewStatusHandler(deps.Store, deps.Favorites, deps.Logger)
	refresh := NewRefreshHandler(deps.Store, deps.Refresher, deps.Logger)

	r.Get("/health", healthHandler)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Method(http.MethodGet, "/playlist.m3u", playlist)
	r.Method(http.MethodGet, "/stream/*", stream)

	r.Route("/api", func(api chi.Router) {
		api.Get("/channels", channels.List)
		api.Get("/groups", channels.Groups)
		api.Method(http.MethodGet, "/status", status)
		api.With(RefreshRateLimit(deps.RateLimit)).Method(http.MethodPost, "/refresh", refresh)

		api.Route("/favorites", func(fr chi.Router) {
			fr.Get("/", favs.List)
			fr.Post("/", favs.Add)
			fr.Delete("/", favs.Remove)
			fr.Post("/toggle", favs.Toggle)
		})
	})

	return r
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeJSON encodes v with the given status code. Encoding errors are
// ignored since the header is already on the wire.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
