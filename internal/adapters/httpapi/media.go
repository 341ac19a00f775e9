package httpapi

import (
	"communityconnect/internal/blob"
	"communityconnect/internal/core"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
)

const mediaURLExpiry = 15 * time.Minute

// ServeMedia redirects to a signed or public URL when the store offers one
// and streams the object otherwise.
func (h *Handler) ServeMedia(w http.ResponseWriter, r *http.Request) {
	store := h.Service.Media()
	if store == nil {
		writeError(w, http.StatusNotFound, "media store not configured")
		return
	}
	key := chi.URLParam(r, "*")
	if !core.IsMediaKey(key) {
		writeError(w, http.StatusNotFound, "media not found")
		return
	}
	if url, err := store.PresignURL(r.Context(), key, blob.SignedURLOptions{Method: http.MethodGet, Expiry: mediaURLExpiry}); err == nil {
		http.Redirect(w, r, url, http.StatusFound)
		return
	} else if !errors.Is(err, blob.ErrUnsupported) {
		h.Logger.Warn("presign media", "key", key, "error", err)
	}
	info, rc, err := store.Get(r.Context(), key)
	if errors.Is(err, blob.ErrNotFound) {
		writeError(w, http.StatusNotFound, "media not found")
		return
	}
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	defer func() { _ = rc.Close() }()
	if info.ContentType != "" {
		w.Header().Set("Content-Type", info.ContentType)
	}
	if info.ETag != "" {
		w.Header().Set("ETag", strconv.Quote(info.ETag))
	}
	w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, rc)
}
