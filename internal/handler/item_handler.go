package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"storagedrive/internal/domain"
	"storagedrive/internal/service"
)

const multipartMemory = 32 << 20

type ItemHandler struct {
	base
	itemService    *service.ItemService
	copyService    *service.CopyService
	maxUploadBytes int64
}

type moveItemRequest struct {
	FolderID string `json:"folder_id"`
}

type copyItemRequest struct {
	FolderID string `json:"folder_id"`
}

func NewItemHandler(
	verifier TokenVerifier,
	itemService *service.ItemService,
	copyService *service.CopyService,
	maxUploadBytes int64,
	log *zap.Logger,
) *ItemHandler {
	return &ItemHandler{
		base:           base{verifier: verifier, log: log.Named("item_handler")},
		itemService:    itemService,
		copyService:    copyService,
		maxUploadBytes: maxUploadBytes,
	}
}

// CreateItem принимает multipart-форму: name, type, folder_id, content и file
func (h *ItemHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}

	in, err := h.parseCreateForm(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	item, err := h.itemService.CreateItem(r.Context(), ownerID, *in)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, item)
}

func (h *ItemHandler) parseCreateForm(w http.ResponseWriter, r *http.Request) (*domain.CreateItemInput, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+multipartMemory)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, fmt.Errorf("%w: request exceeds %d bytes", domain.ErrValidation, h.maxUploadBytes)
		}
		return nil, fmt.Errorf("%w: invalid multipart form: %v", domain.ErrValidation, err)
	}

	in := &domain.CreateItemInput{
		FolderID: r.FormValue("folder_id"),
		Name:     r.FormValue("name"),
		Type:     domain.ItemType(r.FormValue("type")),
	}
	if content := r.FormValue("content"); content != "" {
		in.Content = &content
	}

	file, header, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		return in, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: invalid file: %v", domain.ErrValidation, err)
	}
	defer file.Close()

	if header.Size > h.maxUploadBytes {
		return nil, fmt.Errorf("%w: file exceeds %d bytes", domain.ErrValidation, h.maxUploadBytes)
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read file: %v", domain.ErrValidation, err)
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
	}

	in.File = &domain.FileUpload{
		Name:     header.Filename,
		MIMEType: mimeType,
		Size:     int64(len(data)),
		Data:     data,
	}
	if in.Name == "" {
		in.Name = header.Filename
	}
	return in, nil
}

func (h *ItemHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}

	item, err := h.itemService.GetItem(r.Context(), ownerID, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, item)
}

func (h *ItemHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}

	p, err := parsePagination(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	page, err := h.itemService.ListAll(r.Context(), ownerID, p)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, page)
}

func (h *ItemHandler) ListByType(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}

	p, err := parsePagination(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	itemType := domain.ItemType(chi.URLParam(r, "type"))
	page, err := h.itemService.ListByType(r.Context(), ownerID, itemType, p)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, page)
}

func (h *ItemHandler) ListByFolder(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}

	p, err := parsePagination(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	page, err := h.itemService.ListByFolder(r.Context(), ownerID, chi.URLParam(r, "id"), p)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, page)
}

// Search ищет элементы: q, type, folder_id, favorite, deleted, page, limit
func (h *ItemHandler) Search(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}

	filter, err := parseItemFilter(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	page, err := h.itemService.Search(r.Context(), ownerID, filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, page)
}

func parseItemFilter(r *http.Request) (domain.ItemFilter, error) {
	p, err := parsePagination(r)
	if err != nil {
		return domain.ItemFilter{}, err
	}

	q := r.URL.Query()
	filter := domain.ItemFilter{Name: q.Get("q"), Pagination: p}

	if v := q.Get("type"); v != "" {
		itemType := domain.ItemType(v)
		filter.Type = &itemType
	}
	if v := q.Get("folder_id"); v != "" {
		filter.FolderID = &v
	}
	if filter.IsFavorite, err = parseOptionalBool(q.Get("favorite")); err != nil {
		return filter, err
	}
	if filter.IsDeleted, err = parseOptionalBool(q.Get("deleted")); err != nil {
		return filter, err
	}
	return filter, nil
}

func parseOptionalBool(v string) (*bool, error) {
	if v == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid boolean %q", domain.ErrValidation, v)
	}
	return &b, nil
}

func (h *ItemHandler) RenameItem(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}

	var req renameRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	item, err := h.itemService.RenameItem(r.Context(), ownerID, chi.URLParam(r, "id"), req.Name)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, item)
}

func (h *ItemHandler) MoveItem(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}

	var req moveItemRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	item, err := h.itemService.MoveItem(r.Context(), ownerID, chi.URLParam(r, "id"), req.FolderID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, item)
}

func (h *ItemHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}

	if err := h.itemService.DeleteItem(r.Context(), ownerID, chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *ItemHandler) RestoreItem(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}

	item, err := h.itemService.RestoreItem(r.Context(), ownerID, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, item)
}

func (h *ItemHandler) CopyItem(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}

	var req copyItemRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	item, err := h.copyService.CopyItem(r.Context(), ownerID, chi.URLParam(r, "id"), req.FolderID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, item)
}
