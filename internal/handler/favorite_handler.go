package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"storagedrive/internal/service"
)

type FavoriteHandler struct {
	base
	favoriteService *service.FavoriteService
}

type favoriteStatus struct {
	ItemID    string `json:"item_id"`
	Favorited bool   `json:"favorited"`
}

func NewFavoriteHandler(verifier TokenVerifier, favoriteService *service.FavoriteService, log *zap.Logger) *FavoriteHandler {
	return &FavoriteHandler{
		base:            base{verifier: verifier, log: log.Named("favorite_handler")},
		favoriteService: favoriteService,
	}
}

func (h *FavoriteHandler) ListFavorites(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}

	p, err := parsePagination(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	page, err := h.favoriteService.ListFavorites(r.Context(), ownerID, p)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, page)
}

func (h *FavoriteHandler) AddFavorite(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}

	itemID := chi.URLParam(r, "itemId")
	if err := h.favoriteService.AddFavorite(r.Context(), ownerID, itemID); err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, favoriteStatus{ItemID: itemID, Favorited: true})
}

func (h *FavoriteHandler) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}

	if err := h.favoriteService.RemoveFavorite(r.Context(), ownerID, chi.URLParam(r, "itemId")); err != nil {
		h.fail(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *FavoriteHandler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}

	itemID := chi.URLParam(r, "itemId")
	favorited, err := h.favoriteService.ToggleFavorite(r.Context(), ownerID, itemID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, favoriteStatus{ItemID: itemID, Favorited: favorited})
}

func (h *FavoriteHandler) IsFavorited(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}

	itemID := chi.URLParam(r, "itemId")
	favorited, err := h.favoriteService.IsFavorited(r.Context(), ownerID, itemID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, favoriteStatus{ItemID: itemID, Favorited: favorited})
}
