package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/kelgrand/iptv-deck/internal/favorites"
)

// FavoritesHandler manages the favorite channel list. Favorites are keyed
// by exact channel title, so a renamed channel has to be marked again.
type FavoritesHandler struct {
	store  favorites.Store
	logger *logrus.Logger
}

// NewFavoritesHandler creates a new favorites handler.
func NewFavoritesHandler(store favorites.Store, logger *logrus.Logger) *FavoritesHandler {
	return &FavoritesHandler{store: store, logger: logger}
}

type favoriteRequest struct {
	Title string `json:"title"`
}

type favoriteResponse struct {
	Title    string `json:"title"`
	Favorite bool   `json:"favorite"`
}

// List returns every favorite title in sorted order.
func (h *FavoritesHandler) List(w http.ResponseWriter, r *http.Request) {
	titles, err := h.store.List(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to list favorites")
		http.Error(w, "Favorites unavailable", http.StatusInternalServerError)
		return
	}
	if titles == nil {
		titles = []string{}
	}

	writeJSON(w, http.StatusOK, titles)
}

// Add marks the channel title from the request body as a favorite.
func (h *FavoritesHandler) Add(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	if err := h.store.Add(r.Context(), req.Title); err != nil {
		h.fail(w, err, "Failed to add favorite")
		return
	}

	writeJSON(w, http.StatusCreated, favoriteResponse{Title: req.Title, Favorite: true})
}

// Remove clears the favorite flag for the title given in the query string.
func (h *FavoritesHandler) Remove(w http.ResponseWriter, r *http.Request) {
	title := r.URL.Query().Get("title")

	if err := h.store.Remove(r.Context(), title); err != nil {
		h.fail(w, err, "Failed to remove favorite")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Toggle flips the favorite flag for the title in the request body and
// returns the new state.
func (h *FavoritesHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	state, err := h.store.Toggle(r.Context(), req.Title)
	if err != nil {
		h.fail(w, err, "Failed to toggle favorite")
		return
	}

	writeJSON(w, http.StatusOK, favoriteResponse{Title: req.Title, Favorite: state})
}

func (h *FavoritesHandler) decode(w http.ResponseWriter, r *http.Request) (favoriteRequest, bool) {
	var req favoriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return favoriteRequest{}, false
	}
	return req, true
}

func (h *FavoritesHandler) fail(w http.ResponseWriter, err error, msg string) {
	if errors.Is(err, favorites.ErrEmptyTitle) {
		http.Error(w, "Channel title required", http.StatusBadRequest)
		return
	}

	h.logger.WithError(err).Error(msg)
	http.Error(w, "Favorites unavailable", http.StatusInternalServerError)
}
