package handler

import (
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"lanshare/internal/sanitize"
	"lanshare/internal/store"
	"lanshare/internal/web"
)

// HandleIndex renders the home page.
func (h *Handler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	data := web.IndexData{Address: fmt.Sprintf("http://%s:%d", h.localIP(), h.port)}
	if err := web.RenderIndex(w, data); err != nil {
		slog.Error("Error rendering index", "error", err)
	}
}

// HandleUpload saves form uploads from the phone into the received
// directory and answers with an HTML fragment.
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	defer cleanupForm(r)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	if err := h.parseForm(w, r); err != nil {
		slog.Error("Upload parse error", "error", err)
		h.renderResult(w, web.ResultData{Error: err.Error()})
		return
	}

	result := saveParts(h.received, r)
	if result.Count() > 0 {
		h.filesChanged(DirReceived)
	}
	h.renderResult(w, web.ResultData{Success: true, Count: result.Count()})
}

func (h *Handler) renderResult(w http.ResponseWriter, data web.ResultData) {
	if err := web.RenderResult(w, data); err != nil {
		slog.Error("Error rendering upload result", "error", err)
	}
}

type uploadResponse struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	UploadedCount int    `json:"uploaded_count"`
}

// HandleUploadShared saves uploads from the computer into the shared directory.
func (h *Handler) HandleUploadShared(w http.ResponseWriter, r *http.Request) {
	defer cleanupForm(r)

	if err := h.parseForm(w, r); err != nil {
		slog.Error("Shared upload parse error", "error", err)
		writeFailure(w, err)
		return
	}

	result := saveParts(h.shared, r)
	if result.Count() > 0 {
		h.filesChanged(DirShared)
	}
	writeJSON(w, uploadResponse{
		Success:       true,
		Message:       fmt.Sprintf("Successfully uploaded %d shared files", result.Count()),
		UploadedCount: result.Count(),
	})
}

type textResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
}

// HandleUploadText stores pasted text as a .txt file in the received directory.
func (h *Handler) HandleUploadText(w http.ResponseWriter, r *http.Request) {
	defer cleanupForm(r)

	if err := h.parseForm(w, r); err != nil {
		writeFailure(w, err)
		return
	}

	text := r.FormValue("text")
	if text == "" {
		writeJSON(w, response{Success: false, Message: "Text content is empty"})
		return
	}

	name := sanitize.TextFilename(r.FormValue("filename"))
	saved, err := h.received.Save(name, strings.NewReader(text))
	if err != nil {
		slog.Error("Error saving text", "filename", name, "error", err)
		writeFailure(w, err)
		return
	}
	h.filesChanged(DirReceived)

	writeJSON(w, textResponse{
		Success:  true,
		Message:  "Text saved as " + saved.Name,
		Filename: saved.Name,
		Size:     saved.Size,
	})
}

type filesResponse struct {
	Success bool               `json:"success"`
	Files   []store.StoredFile `json:"files"`
}

// HandleListFiles lists a directory, newest first.
func (h *Handler) HandleListFiles(d Dir) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		files, err := h.store(d).List()
		if err != nil {
			slog.Error("Error listing files", "dir", d, "error", err)
			writeFailure(w, err)
			return
		}
		if files == nil {
			files = []store.StoredFile{}
		}
		writeJSON(w, filesResponse{Success: true, Files: files})
	}
}

// HandleDownload streams a stored file as an attachment.
func (h *Handler) HandleDownload(d Dir) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := fileID(r)
		f, info, err := h.store(d).Open(name)
		if err != nil {
			slog.Warn("Download failed", "dir", d, "name", name, "error", err)
			writeFailure(w, err)
			return
		}
		defer f.Close()

		slog.Info("File download", "dir", d, "name", name, "device", DetectType(r.UserAgent()))
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
		http.ServeContent(w, r, name, info.ModTime(), f)
	}
}

type previewResponse struct {
	Success bool   `json:"success"`
	Content string `json:"content"`
	Size    int64  `json:"size"`
}

// HandlePreview returns the text of a small stored file.
func (h *Handler) HandlePreview(d Dir) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := fileID(r)
		p, err := h.store(d).Preview(name)
		if err != nil {
			slog.Info("Preview failed", "dir", d, "name", name, "error", err)
			writeFailure(w, err)
			return
		}
		writeJSON(w, previewResponse{Success: true, Content: p.Content, Size: p.Size})
	}
}

// HandleDelete removes a stored file.
func (h *Handler) HandleDelete(d Dir) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := fileID(r)
		if err := h.store(d).Delete(name); err != nil {
			slog.Warn("Delete failed", "dir", d, "name", name, "error", err)
			writeFailure(w, err)
			return
		}
		h.filesChanged(d)
		writeJSON(w, response{Success: true, Message: "File deleted"})
	}
}

// HandleEvents opens an SSE stream of file change notifications.
func (h *Handler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	if err := rc.Flush(); err != nil {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}
	fmt.Fprint(w, ": connected\n\n")
	rc.Flush()

	q := h.broker.Subscribe()
	defer h.broker.Unsubscribe(q)
	slog.Info("SSE connected", "remote_addr", r.RemoteAddr)

	ticker := time.NewTicker(20 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg := <-q:
			w.Write(msg)
			rc.Flush()
		case <-ticker.C:
			fmt.Fprint(w, ": ping\n\n")
			rc.Flush()
		case <-r.Context().Done():
			slog.Info("SSE disconnected", "remote_addr", r.RemoteAddr)
			return
		case <-h.done:
			slog.Info("SSE closed for shutdown", "remote_addr", r.RemoteAddr)
			return
		}
	}
}

// HandleHealth returns a simple health check for container probes.
func HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// HandleInfo returns the server's LAN address.
func (h *Handler) HandleInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, struct {
		IP   string `json:"ip"`
		Port int    `json:"port"`
	}{
		IP:   h.localIP(),
		Port: h.port,
	})
}
