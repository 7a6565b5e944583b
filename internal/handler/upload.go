package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"

	"lanshare/internal/store"
)

// multipartMemory is held in RAM per request; larger parts spill to disk.
const multipartMemory = 32 << 20

// FileFailure records one part of a multi-file upload that was not saved.
type FileFailure struct {
	Original string
	Err      error
}

// UploadResult is the per-file outcome of a multi-file upload. Clients only
// see len(Saved).
type UploadResult struct {
	Saved  []store.SavedFile
	Failed []FileFailure
}

// Count is the number of files written.
func (u UploadResult) Count() int {
	return len(u.Saved)
}

// parseForm parses multipart or urlencoded bodies. A request that is not
// multipart carries zero files and is not an error.
func (h *Handler) parseForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	err := r.ParseMultipartForm(multipartMemory)
	if errors.Is(err, http.ErrNotMultipart) {
		err = r.ParseForm()
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("upload exceeds %d bytes", tooLarge.Limit)
		}
		return fmt.Errorf("parse upload: %w", err)
	}
	return nil
}

// saveParts writes every "file" part to st. A failing part is logged and
// skipped; the others are still saved.
func saveParts(st FileStore, r *http.Request) UploadResult {
	var result UploadResult
	if r.MultipartForm == nil {
		return result
	}

	for _, fh := range r.MultipartForm.File["file"] {
		saved, err := savePart(st, fh)
		if err != nil {
			slog.Error("Failed to save uploaded file", "filename", fh.Filename, "error", err)
			result.Failed = append(result.Failed, FileFailure{Original: fh.Filename, Err: err})
			continue
		}
		slog.Info("File received", "filename", fh.Filename, "saved_as", saved.Name,
			"size", saved.Size, "device", DetectType(r.UserAgent()))
		result.Saved = append(result.Saved, saved)
	}
	return result
}

func savePart(st FileStore, fh *multipart.FileHeader) (store.SavedFile, error) {
	f, err := fh.Open()
	if err != nil {
		return store.SavedFile{}, fmt.Errorf("open part: %w", err)
	}
	defer f.Close()
	return st.Save(fh.Filename, f)
}

func cleanupForm(r *http.Request) {
	if r.MultipartForm != nil {
		r.MultipartForm.RemoveAll()
	}
}
