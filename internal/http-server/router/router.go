package router

import (
	"net/http"

	"image-analyzer/internal/http-server/handler/image"
	"image-analyzer/internal/http-server/middleware"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	ImageHandler *image.ImageHandler
}

func SetupRouter(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RecoveryMiddleware)
	r.Use(middleware.LoggingMiddleware)

	r.Route("/api", func(r chi.Router) {
		r.Route("/images", func(r chi.Router) {
			r.Post("/upload", h.ImageHandler.UploadImage)
			r.Post("/upload-url", h.ImageHandler.UploadImageURL)
			r.Get("/", h.ImageHandler.ListImages)
			r.Get("/{id}", h.ImageHandler.GetImage)
		})

		r.Get("/config", h.ImageHandler.GetConfig)

		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"status":"ok"}`))
		})
	})

	return r
}
