package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"storagedrive/internal/domain"
	"storagedrive/internal/service"
)

type FolderHandler struct {
	base
	folderService *service.FolderService
	copyService   *service.CopyService
}

type createFolderRequest struct {
	Name     string            `json:"name"`
	Type     domain.FolderType `json:"type"`
	ParentID *string           `json:"parent_id,omitempty"`
}

type renameRequest struct {
	Name string `json:"name"`
}

type moveFolderRequest struct {
	ParentID *string `json:"parent_id"`
}

func NewFolderHandler(
	verifier TokenVerifier,
	folderService *service.FolderService,
	copyService *service.CopyService,
	log *zap.Logger,
) *FolderHandler {
	return &FolderHandler{
		base:          base{verifier: verifier, log: log.Named("folder_handler")},
		folderService: folderService,
		copyService:   copyService,
	}
}

func (h *FolderHandler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}

	var req createFolderRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	folder, err := h.folderService.CreateFolder(r.Context(), ownerID, req.Name, req.Type, req.ParentID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, folder)
}

func (h *FolderHandler) ListFolders(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}

	p, err := parsePagination(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	page, err := h.folderService.ListFolders(r.Context(), ownerID, p)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, page)
}

func (h *FolderHandler) ListFoldersByType(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}

	p, err := parsePagination(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	folderType := domain.FolderType(chi.URLParam(r, "type"))
	page, err := h.folderService.ListFoldersByType(r.Context(), ownerID, folderType, p)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, page)
}

func (h *FolderHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}

	stats, err := h.folderService.GetStats(r.Context(), ownerID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// GetFolderContent возвращает папку, ее элементы и вложенные папки
func (h *FolderHandler) GetFolderContent(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}

	content, err := h.folderService.GetFolderContent(r.Context(), ownerID, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, content)
}

func (h *FolderHandler) RenameFolder(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}

	var req renameRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	folder, err := h.folderService.RenameFolder(r.Context(), ownerID, chi.URLParam(r, "id"), req.Name)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, folder)
}

// MoveFolder переносит папку. parent_id: null переносит в корень.
func (h *FolderHandler) MoveFolder(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}

	var req moveFolderRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	folder, err := h.folderService.MoveFolder(r.Context(), ownerID, chi.URLParam(r, "id"), req.ParentID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, folder)
}

func (h *FolderHandler) DeleteFolder(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}

	if err := h.folderService.DeleteFolder(r.Context(), ownerID, chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *FolderHandler) RestoreFolder(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}

	folder, err := h.folderService.RestoreFolder(r.Context(), ownerID, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, folder)
}

// CopyFolder дублирует папку со всем содержимым в корень
func (h *FolderHandler) CopyFolder(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}

	folder, err := h.copyService.CopyFolder(r.Context(), ownerID, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, folder)
}
