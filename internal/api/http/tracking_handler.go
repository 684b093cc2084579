package http

import (
	"net/http"

	"membership-backend/internal/logger"

	"github.com/gorilla/mux"
)

// transparentGIF is a 1x1 transparent GIF.
var transparentGIF = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00, 0x80, 0x00, 0x00, 0x00, 0x00, 0x00,
	0xff, 0xff, 0xff, 0x21, 0xf9, 0x04, 0x01, 0x00, 0x00, 0x00, 0x00, 0x2c, 0x00, 0x00, 0x00, 0x00,
	0x01, 0x00, 0x01, 0x00, 0x00, 0x02, 0x02, 0x44, 0x01, 0x00, 0x3b,
}

const unsubscribedPage = `<!DOCTYPE html>
<html><body><p>You have been unsubscribed. You will no longer receive these messages on this channel.</p></body></html>`

// TrackOpen always answers with the pixel so mail clients never show a broken image
func (h *Handler) TrackOpen(w http.ResponseWriter, r *http.Request) {
	token := mux.Vars(r)["token"]
	if err := h.services.Campaigns.TrackOpen(r.Context(), token); err != nil {
		logger.Debug("Open not recorded", "token", token, "error", err)
	}
	w.Header().Set("Content-Type", "image/gif")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(transparentGIF)
}

func (h *Handler) TrackClick(w http.ResponseWriter, r *http.Request) {
	target, err := h.services.Campaigns.TrackClick(r.Context(), mux.Vars(r)["token"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func (h *Handler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	if err := h.services.Campaigns.Unsubscribe(r.Context(), mux.Vars(r)["token"]); err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(unsubscribedPage))
}
