package http

import (
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

// Upload proxies a report photo from the API so pages can link it on this origin.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" || name != path.Base(name) || strings.HasPrefix(name, ".") {
		http.NotFound(w, r)
		return
	}

	dl, err := h.api.Upload(r.Context(), name)
	if err != nil {
		status := statusFor(err)
		h.logger.Debug().Err(err).Str("file", name).Int("status", status).Msg("upload proxy failed")
		http.Error(w, http.StatusText(status), status)
		return
	}
	defer dl.Body.Close()

	if dl.ContentType != "" {
		w.Header().Set("Content-Type", dl.ContentType)
	}
	if dl.ContentLength > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(dl.ContentLength, 10))
	}
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, dl.Body)
}
