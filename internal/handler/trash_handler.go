package handler

import (
	"net/http"

	"go.uber.org/zap"

	"storagedrive/internal/service"
)

type TrashHandler struct {
	base
	trashService *service.TrashService
}

func NewTrashHandler(verifier TokenVerifier, trashService *service.TrashService, log *zap.Logger) *TrashHandler {
	return &TrashHandler{
		base:         base{verifier: verifier, log: log.Named("trash_handler")},
		trashService: trashService,
	}
}

// GetTrashItems обрабатывает запрос на получение содержимого корзины
func (h *TrashHandler) GetTrashItems(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}

	items, err := h.trashService.GetTrashItems(r.Context(), ownerID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, items)
}
