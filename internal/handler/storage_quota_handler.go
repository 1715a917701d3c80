package handler

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"storagedrive/internal/domain"
	"storagedrive/internal/service"
)

type StorageQuotaHandler struct {
	base
	quotaService *service.StorageQuotaService
}

func NewStorageQuotaHandler(verifier TokenVerifier, quotaService *service.StorageQuotaService, log *zap.Logger) *StorageQuotaHandler {
	return &StorageQuotaHandler{
		base:         base{verifier: verifier, log: log.Named("quota_handler")},
		quotaService: quotaService,
	}
}

func (h *StorageQuotaHandler) GetQuotaInfo(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}

	quotaInfo, err := h.quotaService.GetQuotaInfo(r.Context(), ownerID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, quotaInfo)
}

// UpdateQuotaLimit меняет лимит указанного владельца. Только для администраторов.
func (h *StorageQuotaHandler) UpdateQuotaLimit(w http.ResponseWriter, r *http.Request) {
	adminID, ok := h.admin(w, r)
	if !ok {
		return
	}

	var req struct {
		OwnerID  string `json:"owner_id"`
		NewLimit int64  `json:"new_limit"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if req.OwnerID == "" {
		h.fail(w, r, fmt.Errorf("%w: owner_id is required", domain.ErrValidation))
		return
	}

	if err := h.quotaService.UpdateQuotaLimit(r.Context(), req.OwnerID, req.NewLimit); err != nil {
		h.fail(w, r, err)
		return
	}

	h.log.Info("quota limit changed by admin",
		zap.String("admin_id", adminID),
		zap.String("owner_id", req.OwnerID),
		zap.Int64("limit", req.NewLimit))

	quotaInfo, err := h.quotaService.GetQuotaInfo(r.Context(), req.OwnerID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, quotaInfo)
}

// Reconcile пересчитывает счетчики папок и занятое место
func (h *StorageQuotaHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}

	report, err := h.quotaService.Reconcile(r.Context(), ownerID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}
