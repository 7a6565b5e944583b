package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"lanshare/internal/handler"
)

// escapedRoutePath makes chi match on the escaped path, so an {id} holding
// "%2F" or "%25" reaches the handler intact and is decoded exactly once.
func escapedRoutePath(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.URL.RawPath = r.URL.EscapedPath()
		next.ServeHTTP(w, r)
	})
}

// NewRouter wires every route of the service.
func NewRouter(h *handler.Handler, limiter *handler.RateLimiter) http.Handler {
	r := chi.NewRouter()
	r.Use(
		escapedRoutePath,
		handler.RequestID,
		handler.Logging,
		handler.Recover,
		handler.SecureHeaders,
		handler.Cors,
		limiter.Middleware,
	)

	r.Get("/", h.HandleIndex)
	r.Get("/health", handler.HandleHealth)
	r.Get("/info", h.HandleInfo)
	r.Get("/events", h.HandleEvents)

	// Phone to computer.
	r.Post("/upload", h.HandleUpload)
	r.Post("/upload_text", h.HandleUploadText)
	r.Get("/received_files", h.HandleListFiles(handler.DirReceived))
	r.Get("/download_received/{id}", h.HandleDownload(handler.DirReceived))
	r.Get("/preview_received/{id}", h.HandlePreview(handler.DirReceived))
	r.Post("/delete_received/{id}", h.HandleDelete(handler.DirReceived))

	// Computer to phone.
	r.Post("/upload_shared", h.HandleUploadShared)
	r.Get("/files", h.HandleListFiles(handler.DirShared))
	r.Get("/download/{id}", h.HandleDownload(handler.DirShared))
	r.Get("/preview/{id}", h.HandlePreview(handler.DirShared))
	r.Post("/delete_shared/{id}", h.HandleDelete(handler.DirShared))

	return r
}
