package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/guibarbosadev/focus-badge/internal/domain"
	"github.com/guibarbosadev/focus-badge/internal/service"
	"github.com/guibarbosadev/focus-badge/pkg/httputil"
	"github.com/guibarbosadev/focus-badge/pkg/middleware"
	"github.com/guibarbosadev/focus-badge/pkg/validator"
)

// SessionHandler handles HTTP requests for focus sessions and badges.
type SessionHandler struct {
	service *service.SessionService
	logger  *slog.Logger
}

func NewSessionHandler(svc *service.SessionService, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{service: svc, logger: logger}
}

// --- Request DTOs ---

// DeviceRequest is the device block of a session registration.
type DeviceRequest struct {
	DeviceID string `json:"deviceId" validate:"required"`
	Label    string `json:"label"`
	OS       string `json:"os"`
	Browser  string `json:"browser"`
}

// CreateSessionRequest is the body of POST /sessions. Pointer fields tell an
// absent value apart from a zero one.
type CreateSessionRequest struct {
	ID            string         `json:"id" validate:"required"`
	BlockedSites  []string       `json:"blockedSites" validate:"required"`
	StartDate     string         `json:"startDate" validate:"required,isodate"`
	LastCheckedAt *string        `json:"lastCheckedAt" validate:"omitempty,isodate"`
	EndDate       *string        `json:"endDate" validate:"omitempty,isodate"`
	Status        string         `json:"status" validate:"required"`
	Device        *DeviceRequest `json:"device" validate:"required"`
	ExistsLocally *bool          `json:"existsLocally" validate:"required"`
}

func (CreateSessionRequest) FieldMessages() map[string]string {
	return map[string]string{
		"id":              "id is required (string)",
		"blockedSites":    "blockedSites must be an array",
		"startDate":       "startDate must be an ISO date string",
		"lastCheckedAt":   "lastCheckedAt must be an ISO date string",
		"endDate":         "endDate must be an ISO date string",
		"status":          "status is required",
		"device":          "device.deviceId is required",
		"device.deviceId": "device.deviceId is required",
		"existsLocally":   "existsLocally must be boolean",
	}
}

func (req *CreateSessionRequest) toInput() service.CreateSessionInput {
	// Dates were checked by the isodate rule.
	start, _ := validator.ParseISODate(req.StartDate)
	return service.CreateSessionInput{
		ID:            req.ID,
		BlockedSites:  req.BlockedSites,
		StartDate:     start,
		LastCheckedAt: optionalDate(req.LastCheckedAt),
		EndDate:       optionalDate(req.EndDate),
		Status:        domain.SessionStatus(req.Status),
		Device: domain.Device{
			DeviceID: req.Device.DeviceID,
			Label:    req.Device.Label,
			OS:       req.Device.OS,
			Browser:  req.Device.Browser,
		},
		ExistsLocally: *req.ExistsLocally,
	}
}

func optionalDate(s *string) *time.Time {
	if s == nil || *s == "" {
		return nil
	}
	t, err := validator.ParseISODate(*s)
	if err != nil {
		return nil
	}
	return &t
}

// UpdateStatusRequest is the body of PATCH /sessions/{id}/status.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// --- Response types ---

type sessionResponse struct {
	Session *domain.Session `json:"session"`
}

type badgeResponse struct {
	Badge *domain.Badge `json:"badge"`
}

// --- Handlers ---

// Create handles POST /sessions
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	session, err := h.service.Create(r.Context(), middleware.UserIDFromContext(r.Context()), req.toInput())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, sessionResponse{Session: session})
}

// Ping handles POST /sessions/{id}/ping
func (h *SessionHandler) Ping(w http.ResponseWriter, r *http.Request) {
	session, err := h.service.Ping(r.Context(), middleware.UserIDFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, sessionResponse{Session: session})
}

// UpdateStatus handles PATCH /sessions/{id}/status
func (h *SessionHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateStatusRequest
	if err := validator.DecodeJSON(r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	session, err := h.service.SetStatus(r.Context(), middleware.UserIDFromContext(r.Context()), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, sessionResponse{Session: session})
}

// CurrentBadge handles GET /sessions/current-badge
func (h *SessionHandler) CurrentBadge(w http.ResponseWriter, r *http.Request) {
	badge, err := h.service.CurrentBadge(r.Context(), middleware.UserIDFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, badgeResponse{Badge: badge})
}

// Badge handles GET /badge/{sessionId}. It needs no authentication.
func (h *SessionHandler) Badge(w http.ResponseWriter, r *http.Request) {
	badge, err := h.service.GetBadge(r.Context(), chi.URLParam(r, "sessionId"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, badgeResponse{Badge: badge})
}
