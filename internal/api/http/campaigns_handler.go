package http

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"membership-backend/internal/domain"

	"github.com/gorilla/mux"
)

type scheduleRequest struct {
	ScheduledAt time.Time `json:"scheduled_at"`
}

type fromTypeRequest struct {
	Vars map[string]string `json:"vars"`
}

func callerID(r *http.Request) int32 {
	if c, ok := ClaimsFromContext(r.Context()); ok {
		return c.MemberID
	}
	return 0
}

func (h *Handler) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	var c domain.NotificationCampaign
	if err := decodeJSON(w, r, &c); err != nil {
		writeError(w, r, err)
		return
	}
	c.ID = 0
	c.CreatedBy = callerID(r)
	if err := h.services.Campaigns.CreateCampaign(r.Context(), &c); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *Handler) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	status := domain.CampaignStatus(strings.ToUpper(r.URL.Query().Get("status")))
	switch status {
	case "", domain.CampaignStatusDraft, domain.CampaignStatusScheduled, domain.CampaignStatusSending,
		domain.CampaignStatusSent, domain.CampaignStatusCancelled:
	default:
		writeError(w, r, fmt.Errorf("%w: unknown campaign status %q", domain.ErrValidation, status))
		return
	}
	campaigns, err := h.services.Campaigns.ListCampaigns(r.Context(), status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if campaigns == nil {
		campaigns = []domain.NotificationCampaign{}
	}
	writeJSON(w, http.StatusOK, campaigns)
}

func (h *Handler) GetCampaign(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.services.Campaigns.GetCampaign(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) UpdateCampaign(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var c domain.NotificationCampaign
	if err := decodeJSON(w, r, &c); err != nil {
		writeError(w, r, err)
		return
	}
	c.ID = id
	if err := h.services.Campaigns.UpdateCampaign(r.Context(), &c); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// campaignAction runs a status change on the campaign in the path and writes the result
func (h *Handler) campaignAction(w http.ResponseWriter, r *http.Request, action func(id int32) (*domain.NotificationCampaign, error)) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	c, err := action(id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) ScheduleCampaign(w http.ResponseWriter, r *http.Request) {
	var req scheduleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	h.campaignAction(w, r, func(id int32) (*domain.NotificationCampaign, error) {
		return h.services.Campaigns.ScheduleCampaign(r.Context(), id, req.ScheduledAt)
	})
}

func (h *Handler) UnscheduleCampaign(w http.ResponseWriter, r *http.Request) {
	h.campaignAction(w, r, func(id int32) (*domain.NotificationCampaign, error) {
		return h.services.Campaigns.UnscheduleCampaign(r.Context(), id)
	})
}

func (h *Handler) CancelCampaign(w http.ResponseWriter, r *http.Request) {
	h.campaignAction(w, r, func(id int32) (*domain.NotificationCampaign, error) {
		return h.services.Campaigns.CancelCampaign(r.Context(), id)
	})
}

func (h *Handler) SendCampaign(w http.ResponseWriter, r *http.Request) {
	h.campaignAction(w, r, func(id int32) (*domain.NotificationCampaign, error) {
		return h.services.Campaigns.SendCampaign(r.Context(), id)
	})
}

func (h *Handler) CampaignStats(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	stats, err := h.services.Campaigns.CampaignStats(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) ListNotificationTypes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.services.Campaigns.NotificationTypes())
}

func (h *Handler) CreateFromType(w http.ResponseWriter, r *http.Request) {
	var req fromTypeRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
	}
	c, err := h.services.Campaigns.CreateFromType(r.Context(), mux.Vars(r)["key"], callerID(r), req.Vars)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}
