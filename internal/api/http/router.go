// Package http exposes the services as a JSON API, together with the public
// tracking and export download endpoints.
package http

import (
	"net/http"

	"membership-backend/internal/security"
	"membership-backend/internal/service"
	"membership-backend/internal/storage"

	"github.com/gorilla/mux"
)

// Services holds all service dependencies needed by the handlers
type Services struct {
	Members       service.MemberService
	Segments      service.SegmentService
	Campaigns     service.CampaignService
	Activities    service.ActivityService
	Notifications service.NotificationService
	Exports       service.ExportService
}

type RouterOptions struct {
	TokenManager security.TokenManager
	Storage      storage.Storage
	// MetricsHandler is mounted on MetricsPath when set. It needs an admin token
	// unless MetricsPublic is set.
	MetricsHandler http.Handler
	MetricsPath    string
	MetricsPublic  bool
}

type Handler struct {
	services *Services
	storage  storage.Storage
}

// NewRouter registers every route on a new gorilla/mux router
func NewRouter(services *Services, opts RouterOptions) *mux.Router {
	h := &Handler{services: services, storage: opts.Storage}

	router := mux.NewRouter()
	router.Use(loggingMiddleware)
	var publicPaths []string
	if opts.MetricsHandler != nil && opts.MetricsPublic {
		publicPaths = append(publicPaths, opts.MetricsPath)
	}
	router.Use(NewAuthMiddleware(opts.TokenManager, publicPaths...))

	router.HandleFunc("/healthz", h.Health).Methods(http.MethodGet)
	if opts.MetricsHandler != nil {
		router.Handle(opts.MetricsPath, opts.MetricsHandler).Methods(http.MethodGet)
	}

	// Public tracking links and export downloads
	router.HandleFunc("/t/o/{token}", h.TrackOpen).Methods(http.MethodGet)
	router.HandleFunc("/t/c/{token}", h.TrackClick).Methods(http.MethodGet)
	router.HandleFunc("/t/u/{token}", h.Unsubscribe).Methods(http.MethodGet, http.MethodPost)
	router.HandleFunc("/exports/{key}", h.DownloadExport).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/members", h.RegisterMember).Methods(http.MethodPost)
	api.HandleFunc("/members", h.ListMembers).Methods(http.MethodGet)
	api.HandleFunc("/members/{id:[0-9]+}", h.GetMember).Methods(http.MethodGet)
	api.HandleFunc("/members/{id:[0-9]+}", h.UpdateMember).Methods(http.MethodPut)
	api.HandleFunc("/members/{id:[0-9]+}", h.DeleteMember).Methods(http.MethodDelete)
	api.HandleFunc("/members/{id:[0-9]+}/preferences", h.UpdatePreferences).Methods(http.MethodPut)
	api.HandleFunc("/members/{id:[0-9]+}/score", h.AdjustScore).Methods(http.MethodPost)

	api.HandleFunc("/segments", h.CreateSegment).Methods(http.MethodPost)
	api.HandleFunc("/segments", h.ListSegments).Methods(http.MethodGet)
	api.HandleFunc("/segments/preview", h.PreviewSegment).Methods(http.MethodPost)
	api.HandleFunc("/segments/presets", h.ListPresets).Methods(http.MethodGet)
	api.HandleFunc("/segments/presets/{key}", h.EnsurePreset).Methods(http.MethodPost)
	api.HandleFunc("/segments/{id:[0-9]+}", h.GetSegment).Methods(http.MethodGet)
	api.HandleFunc("/segments/{id:[0-9]+}", h.UpdateSegment).Methods(http.MethodPut)
	api.HandleFunc("/segments/{id:[0-9]+}", h.DeleteSegment).Methods(http.MethodDelete)
	api.HandleFunc("/segments/{id:[0-9]+}/members", h.SegmentMembers).Methods(http.MethodGet)
	api.HandleFunc("/segments/{id:[0-9]+}/export", h.ExportSegment).Methods(http.MethodPost)

	api.HandleFunc("/campaigns", h.CreateCampaign).Methods(http.MethodPost)
	api.HandleFunc("/campaigns", h.ListCampaigns).Methods(http.MethodGet)
	api.HandleFunc("/campaigns/{id:[0-9]+}", h.GetCampaign).Methods(http.MethodGet)
	api.HandleFunc("/campaigns/{id:[0-9]+}", h.UpdateCampaign).Methods(http.MethodPut)
	api.HandleFunc("/campaigns/{id:[0-9]+}/schedule", h.ScheduleCampaign).Methods(http.MethodPost)
	api.HandleFunc("/campaigns/{id:[0-9]+}/unschedule", h.UnscheduleCampaign).Methods(http.MethodPost)
	api.HandleFunc("/campaigns/{id:[0-9]+}/cancel", h.CancelCampaign).Methods(http.MethodPost)
	api.HandleFunc("/campaigns/{id:[0-9]+}/send", h.SendCampaign).Methods(http.MethodPost)
	api.HandleFunc("/campaigns/{id:[0-9]+}/stats", h.CampaignStats).Methods(http.MethodGet)
	api.HandleFunc("/notification-types", h.ListNotificationTypes).Methods(http.MethodGet)
	api.HandleFunc("/notification-types/{key}/campaign", h.CreateFromType).Methods(http.MethodPost)

	api.HandleFunc("/activities", h.CreateActivity).Methods(http.MethodPost)
	api.HandleFunc("/activities", h.ListActivities).Methods(http.MethodGet)
	api.HandleFunc("/activities/{id:[0-9]+}", h.GetActivity).Methods(http.MethodGet)
	api.HandleFunc("/activities/{id:[0-9]+}", h.UpdateActivity).Methods(http.MethodPut)
	api.HandleFunc("/activities/{id:[0-9]+}/participants", h.RegisterParticipant).Methods(http.MethodPost)
	api.HandleFunc("/activities/{id:[0-9]+}/participants", h.UnregisterParticipant).Methods(http.MethodDelete)

	api.HandleFunc("/me/notifications", h.MyNotifications).Methods(http.MethodGet)
	api.HandleFunc("/me/notifications/{id:[0-9]+}/read", h.MarkNotificationRead).Methods(http.MethodPost)

	return router
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
