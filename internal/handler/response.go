package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"storagedrive/internal/domain"
)

// TokenVerifier определяет владельца запроса
type TokenVerifier interface {
	VerifyToken(r *http.Request) (string, error)
	VerifyAdmin(r *http.Request) (string, error)
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Kind    domain.Kind `json:"kind"`
	Message string      `json:"message"`
}

var kindStatus = map[domain.Kind]int{
	domain.KindValidation:       http.StatusBadRequest,
	domain.KindMissingContent:   http.StatusBadRequest,
	domain.KindMissingFile:      http.StatusBadRequest,
	domain.KindInvalidType:      http.StatusBadRequest,
	domain.KindTypeMismatch:     http.StatusBadRequest,
	domain.KindSelfMove:         http.StatusBadRequest,
	domain.KindCyclicMove:       http.StatusBadRequest,
	domain.KindNotDeleted:       http.StatusBadRequest,
	domain.KindUnauthorized:     http.StatusUnauthorized,
	domain.KindForbidden:        http.StatusForbidden,
	domain.KindNotFound:         http.StatusNotFound,
	domain.KindFolderNotFound:   http.StatusNotFound,
	domain.KindDuplicateName:    http.StatusConflict,
	domain.KindAlreadyDeleted:   http.StatusConflict,
	domain.KindAlreadyFavorited: http.StatusConflict,
	domain.KindQuotaExceeded:    http.StatusRequestEntityTooLarge,
	domain.KindUploadFailure:    http.StatusBadGateway,
}

// StatusOf возвращает HTTP-статус для ошибки сервиса
func StatusOf(err error) int {
	if status, ok := kindStatus[domain.KindOf(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// writeError пишет ошибку в едином формате. Текст внутренних ошибок
// уходит только в лог.
func writeError(w http.ResponseWriter, log *zap.Logger, r *http.Request, err error) {
	kind := domain.KindOf(err)
	status := StatusOf(err)

	message := err.Error()
	if kind == domain.KindInternal {
		log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		message = "internal server error"
	}

	writeJSON(w, status, errorBody{Error: errorDetail{Kind: kind, Message: message}})
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body is empty", domain.ErrValidation)
		}
		return fmt.Errorf("%w: invalid request body: %v", domain.ErrValidation, err)
	}
	return nil
}

func parsePagination(r *http.Request) (domain.Pagination, error) {
	var p domain.Pagination
	var err error

	q := r.URL.Query()
	if v := q.Get("page"); v != "" {
		if p.Page, err = strconv.Atoi(v); err != nil {
			return p, fmt.Errorf("%w: invalid page %q", domain.ErrValidation, v)
		}
	}
	if v := q.Get("limit"); v != "" {
		if p.Limit, err = strconv.Atoi(v); err != nil {
			return p, fmt.Errorf("%w: invalid limit %q", domain.ErrValidation, v)
		}
	}
	return p, nil
}

// base хранит общее для всех обработчиков
type base struct {
	verifier TokenVerifier
	log      *zap.Logger
}

// owner проверяет токен и пишет 401, если он недействителен
func (b *base) owner(w http.ResponseWriter, r *http.Request) (string, bool) {
	ownerID, err := b.verifier.VerifyToken(r)
	if err != nil {
		b.log.Debug("authorization failed", zap.Error(err))
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: errorDetail{
			Kind:    domain.KindUnauthorized,
			Message: "unauthorized",
		}})
		return "", false
	}
	return ownerID, true
}

// admin пропускает только администраторов: 403 для обычного пользователя,
// 401 для недействительного токена
func (b *base) admin(w http.ResponseWriter, r *http.Request) (string, bool) {
	subject, err := b.verifier.VerifyAdmin(r)
	if err == nil {
		return subject, true
	}
	if errors.Is(err, domain.ErrForbidden) {
		b.log.Warn("admin route denied", zap.String("path", r.URL.Path), zap.Error(err))
		writeError(w, b.log, r, err)
		return "", false
	}

	b.log.Debug("authorization failed", zap.Error(err))
	writeJSON(w, http.StatusUnauthorized, errorBody{Error: errorDetail{
		Kind:    domain.KindUnauthorized,
		Message: "unauthorized",
	}})
	return "", false
}

func (b *base) fail(w http.ResponseWriter, r *http.Request, err error) {
	writeError(w, b.log, r, err)
}
