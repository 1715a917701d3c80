package handler

import (
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"storagedrive/internal/domain"
	"storagedrive/internal/service"
)

const dateLayout = "2006-01-02"

type ActivityHandler struct {
	base
	activityService *service.ActivityService
}

func NewActivityHandler(verifier TokenVerifier, activityService *service.ActivityService, log *zap.Logger) *ActivityHandler {
	return &ActivityHandler{
		base:            base{verifier: verifier, log: log.Named("activity_handler")},
		activityService: activityService,
	}
}

// ListActivities отдает события за день (?date=YYYY-MM-DD) или постранично
func (h *ActivityHandler) ListActivities(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}

	if v := r.URL.Query().Get("date"); v != "" {
		date, err := time.Parse(dateLayout, v)
		if err != nil {
			h.fail(w, r, fmt.Errorf("%w: date must be YYYY-MM-DD", domain.ErrValidation))
			return
		}

		activities, err := h.activityService.ListByDate(r.Context(), ownerID, date)
		if err != nil {
			h.fail(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"date":       v,
			"activities": activities,
		})
		return
	}

	p, err := parsePagination(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	page, err := h.activityService.ListActivities(r.Context(), ownerID, p)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, page)
}
