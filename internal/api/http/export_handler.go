package http

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"

	"membership-backend/internal/logger"
	"membership-backend/internal/storage"

	"github.com/gorilla/mux"
)

// DownloadExport streams a stored segment export
func (h *Handler) DownloadExport(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	if key == "" {
		writeErrorMessage(w, http.StatusBadRequest, "missing key")
		return
	}

	file, err := h.storage.Open(r.Context(), key)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			writeErrorMessage(w, http.StatusNotFound, "file not found")
			return
		case errors.Is(err, storage.ErrInvalidKey):
			writeErrorMessage(w, http.StatusBadRequest, "invalid key")
			return
		}
		writeError(w, r, err)
		return
	}
	defer file.Close()

	// Determine content type from file extension
	contentType := "application/octet-stream"
	if filepath.Ext(key) == ".csv" {
		contentType = "text/csv; charset=utf-8"
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+key+`"`)
	w.Header().Set("Cache-Control", "private, max-age=3600")

	if _, err := io.Copy(w, file); err != nil {
		logger.Warn("Failed to stream export", "key", key, "error", err)
	}
}
