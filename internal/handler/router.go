package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"storagedrive/internal/metrics"
	"storagedrive/internal/service"
)

// Deps - все, что нужно роутеру
type Deps struct {
	Verifier   TokenVerifier
	Folders    *service.FolderService
	Items      *service.ItemService
	Copies     *service.CopyService
	Favorites  *service.FavoriteService
	Activities *service.ActivityService
	Trash      *service.TrashService
	Quotas     *service.StorageQuotaService

	MaxUploadBytes int64
	RequestTimeout time.Duration
	AllowedOrigins []string
	Log            *zap.Logger
}

func NewRouter(d Deps) http.Handler {
	if d.RequestTimeout <= 0 {
		d.RequestTimeout = time.Minute
	}
	if len(d.AllowedOrigins) == 0 {
		d.AllowedOrigins = []string{"*"}
	}

	folderHandler := NewFolderHandler(d.Verifier, d.Folders, d.Copies, d.Log)
	itemHandler := NewItemHandler(d.Verifier, d.Items, d.Copies, d.MaxUploadBytes, d.Log)
	favoriteHandler := NewFavoriteHandler(d.Verifier, d.Favorites, d.Log)
	activityHandler := NewActivityHandler(d.Verifier, d.Activities, d.Log)
	trashHandler := NewTrashHandler(d.Verifier, d.Trash, d.Log)
	quotaHandler := NewStorageQuotaHandler(d.Verifier, d.Quotas, d.Log)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog(d.Log.Named("http")))
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(d.RequestTimeout))

		r.Route("/folders", func(r chi.Router) {
			r.Post("/", folderHandler.CreateFolder)
			r.Get("/", folderHandler.ListFolders)
			r.Get("/stats", folderHandler.GetStats)
			r.Get("/type/{type}", folderHandler.ListFoldersByType)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", folderHandler.GetFolderContent)
				r.Delete("/", folderHandler.DeleteFolder)
				r.Put("/rename", folderHandler.RenameFolder)
				r.Put("/move", folderHandler.MoveFolder)
				r.Post("/restore", folderHandler.RestoreFolder)
				r.Post("/copy", folderHandler.CopyFolder)
				r.Get("/items", itemHandler.ListByFolder)
			})
		})

		r.Route("/items", func(r chi.Router) {
			r.Post("/", itemHandler.CreateItem)
			r.Get("/", itemHandler.ListItems)
			r.Get("/search", itemHandler.Search)
			r.Get("/type/{type}", itemHandler.ListByType)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", itemHandler.GetItem)
				r.Delete("/", itemHandler.DeleteItem)
				r.Put("/rename", itemHandler.RenameItem)
				r.Put("/move", itemHandler.MoveItem)
				r.Post("/restore", itemHandler.RestoreItem)
				r.Post("/copy", itemHandler.CopyItem)
			})
		})

		r.Route("/favorites", func(r chi.Router) {
			r.Get("/", favoriteHandler.ListFavorites)
			r.Get("/{itemId}", favoriteHandler.IsFavorited)
			r.Post("/{itemId}", favoriteHandler.AddFavorite)
			r.Delete("/{itemId}", favoriteHandler.RemoveFavorite)
			r.Post("/{itemId}/toggle", favoriteHandler.ToggleFavorite)
		})

		r.Get("/activities", activityHandler.ListActivities)
		r.Get("/trash", trashHandler.GetTrashItems)

		r.Route("/quota", func(r chi.Router) {
			r.Get("/", quotaHandler.GetQuotaInfo)
			r.Put("/limit", quotaHandler.UpdateQuotaLimit)
			r.Post("/reconcile", quotaHandler.Reconcile)
		})
	})

	return r
}

// accessLog пишет строку на каждый запрос через zap
func accessLog(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			log.Info("request",
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)))
		})
	}
}
