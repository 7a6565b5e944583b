package handler

//go:generate mockgen -destination=mocks/mock_store.go -package=mocks lanshare/internal/handler FileStore

import (
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"sync"

	"github.com/go-chi/chi/v5"

	"lanshare/internal/config"
	"lanshare/internal/events"
	"lanshare/internal/network"
	"lanshare/internal/store"
)

// PreSharedKey is the key the server banner asks clients to share.
// TODO: compare it with an X-Pre-Shared-Key header on the upload and delete
// routes once the page sends one; no handler checks it today.
const PreSharedKey = "your_secure_pre_shared_key_here"

// Dir names one of the two store directories.
type Dir string

const (
	// DirReceived holds phone-to-computer uploads.
	DirReceived Dir = "received"
	// DirShared holds computer-to-phone downloads.
	DirShared Dir = "shared"
)

// FileStore is the storage the handlers need. *store.Store implements it.
type FileStore interface {
	Save(name string, r io.Reader) (store.SavedFile, error)
	List() ([]store.StoredFile, error)
	Open(name string) (store.File, fs.FileInfo, error)
	Preview(name string) (store.Preview, error)
	Delete(name string) error
}

// Options configures a Handler.
type Options struct {
	Received      FileStore
	Shared        FileStore
	Broker        *events.Broker
	Port          int
	MaxUploadSize int64
	// LocalIP reports the LAN address shown on the home page.
	LocalIP func() string
}

// Handler serves the file sharing API over two stores.
type Handler struct {
	received      FileStore
	shared        FileStore
	broker        *events.Broker
	port          int
	maxUploadSize int64
	localIP       func() string

	done     chan struct{}
	doneOnce sync.Once
}

// New builds a Handler from opts, filling in defaults for unset fields.
// LocalIP is called at most once.
func New(opts Options) *Handler {
	h := &Handler{
		received:      opts.Received,
		shared:        opts.Shared,
		broker:        opts.Broker,
		port:          opts.Port,
		maxUploadSize: opts.MaxUploadSize,
		done:          make(chan struct{}),
	}
	if h.broker == nil {
		h.broker = events.NewBroker()
	}
	if h.maxUploadSize <= 0 {
		h.maxUploadSize = config.DefaultMaxUploadSize
	}
	localIP := opts.LocalIP
	if localIP == nil {
		localIP = network.GetLocalIP
	}
	h.localIP = sync.OnceValue(localIP)
	return h
}

// Shutdown ends open event streams so the server can drain. It is safe to
// call more than once.
func (h *Handler) Shutdown() {
	h.doneOnce.Do(func() {
		close(h.done)
	})
}

// Broker returns the change feed used by the handler.
func (h *Handler) Broker() *events.Broker {
	return h.broker
}

func (h *Handler) store(d Dir) FileStore {
	if d == DirReceived {
		return h.received
	}
	return h.shared
}

func (h *Handler) filesChanged(d Dir) {
	h.broker.Publish(events.FilesChanged, map[string]string{"dir": string(d)})
}

type response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// errorMessage maps store and config errors to the message shown to users.
// Anything unrecognized is surfaced as is.
func errorMessage(err error) string {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return "File not found"
	case errors.Is(err, store.ErrTooLarge):
		return "File too large to preview (max 100KB)"
	case errors.Is(err, store.ErrUnsupportedEncoding):
		return "Unsupported file encoding"
	case errors.Is(err, store.ErrInvalidName):
		return "Invalid file name"
	default:
		return err.Error()
	}
}

// writeJSON always answers 200; failures are reported in the body.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

func writeFailure(w http.ResponseWriter, err error) {
	writeJSON(w, response{Success: false, Message: errorMessage(err)})
}

// fileID returns the decoded {id} route parameter. Routing runs on the
// escaped path so ids may contain encoded slashes or percent signs.
func fileID(r *http.Request) string {
	raw := chi.URLParam(r, "id")
	id, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return id
}
