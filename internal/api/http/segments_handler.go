package http

import (
	"net/http"

	"membership-backend/internal/domain"

	"github.com/gorilla/mux"
)

type previewResponse struct {
	Count   int             `json:"count"`
	Members []domain.Member `json:"members"`
}

func (h *Handler) CreateSegment(w http.ResponseWriter, r *http.Request) {
	var s domain.Segment
	if err := decodeJSON(w, r, &s); err != nil {
		writeError(w, r, err)
		return
	}
	s.ID = 0
	s.PresetKey = ""
	if err := h.services.Segments.CreateSegment(r.Context(), &s); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, s)
}

func (h *Handler) ListSegments(w http.ResponseWriter, r *http.Request) {
	segments, err := h.services.Segments.ListSegments(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if segments == nil {
		segments = []domain.Segment{}
	}
	writeJSON(w, http.StatusOK, segments)
}

func (h *Handler) GetSegment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	s, err := h.services.Segments.GetSegment(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *Handler) UpdateSegment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var s domain.Segment
	if err := decodeJSON(w, r, &s); err != nil {
		writeError(w, r, err)
		return
	}
	s.ID = id
	if err := h.services.Segments.UpdateSegment(r.Context(), &s); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *Handler) DeleteSegment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.services.Segments.DeleteSegment(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) SegmentMembers(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	members, err := h.services.Segments.SegmentMembers(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if members == nil {
		members = []domain.Member{}
	}
	writeJSON(w, http.StatusOK, previewResponse{Count: len(members), Members: members})
}

func (h *Handler) PreviewSegment(w http.ResponseWriter, r *http.Request) {
	var criteria domain.SegmentCriteria
	if err := decodeJSON(w, r, &criteria); err != nil {
		writeError(w, r, err)
		return
	}
	members, err := h.services.Segments.Preview(r.Context(), criteria)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, previewResponse{Count: len(members), Members: members})
}

func (h *Handler) ListPresets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.services.Segments.Presets())
}

func (h *Handler) EnsurePreset(w http.ResponseWriter, r *http.Request) {
	s, err := h.services.Segments.EnsurePreset(r.Context(), mux.Vars(r)["key"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *Handler) ExportSegment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	export, err := h.services.Exports.ExportSegment(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, export)
}
