package webhook

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/airmeet-sync/internal/handler"
	"github.com/jwalitptl/airmeet-sync/internal/model"
	"github.com/jwalitptl/airmeet-sync/internal/service/sync"
	apperrors "github.com/jwalitptl/airmeet-sync/pkg/errors"
	"github.com/jwalitptl/airmeet-sync/pkg/metrics"
)

type Handler struct {
	service *sync.Service
	metrics *metrics.Metrics
}

func NewHandler(service *sync.Service, m *metrics.Metrics) *Handler {
	return &Handler{service: service, metrics: m}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	webhooks := r.Group("/webhooks")
	{
		webhooks.POST("/registration", h.HandleRegistration)
		webhooks.POST("/session", h.HandleSessionActivity)
		webhooks.POST("/booth", h.HandleBoothActivity)
	}
}

// registrationRequest accepts both historical webhook shapes: the current
// one carries attendeeId, the legacy one a bare id plus eventId.
type registrationRequest struct {
	AttendeeID string `json:"attendeeId"`
	ID         string `json:"id"`
	EventID    string `json:"eventId"`
}

func (r registrationRequest) attendeeID() string {
	if r.AttendeeID != "" {
		return r.AttendeeID
	}
	return r.ID
}

type sessionRequest struct {
	AttendeeID string `json:"attendeeId"`
	SessionID  string `json:"sessionId"`
	EventID    string `json:"eventId"`
	Email      string `json:"email"`
	JoinTime   string `json:"joinTime"`
	LeaveTime  string `json:"leaveTime"`
	TimeSpent  int    `json:"timeSpent"`
}

type boothRequest struct {
	AttendeeID      string                `json:"attendeeId"`
	BoothID         string                `json:"boothId"`
	EventID         string                `json:"eventId"`
	Email           string                `json:"email"`
	InteractionType string                `json:"interactionType"`
	Timestamp       string                `json:"timestamp"`
	LeadMagnetInfo  *model.LeadMagnetInfo `json:"leadMagnetInfo"`
}

func (h *Handler) HandleRegistration(c *gin.Context) {
	start := time.Now()

	var req registrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.reject(c, "registration", "Missing attendeeId in request body")
		return
	}
	if req.attendeeID() == "" {
		h.reject(c, "registration", "Missing attendeeId in request body")
		return
	}

	result, err := h.service.ProcessRegistration(c.Request.Context(), req.attendeeID(), req.EventID)
	if err != nil {
		h.fail(c, "registration", err)
		return
	}

	h.observe("registration", "ok", start)
	c.JSON(http.StatusOK, handler.NewSuccessResponse(result))
}

func (h *Handler) HandleSessionActivity(c *gin.Context) {
	start := time.Now()

	var req sessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.reject(c, "session", "Missing required fields in request body")
		return
	}
	if req.AttendeeID == "" || req.SessionID == "" || req.EventID == "" {
		h.reject(c, "session", "Missing required fields in request body")
		return
	}

	activity := model.SessionActivity{
		AttendeeID: req.AttendeeID,
		Email:      req.Email,
		SessionID:  req.SessionID,
		JoinTime:   req.JoinTime,
		LeaveTime:  req.LeaveTime,
		TimeSpent:  req.TimeSpent,
	}

	result, err := h.service.ProcessSessionActivity(c.Request.Context(), activity, req.EventID)
	if err != nil {
		h.fail(c, "session", err)
		return
	}

	h.observe("session", "ok", start)
	c.JSON(http.StatusOK, handler.NewSuccessResponse(result))
}

func (h *Handler) HandleBoothActivity(c *gin.Context) {
	start := time.Now()

	var req boothRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.reject(c, "booth", "Missing required fields in request body")
		return
	}
	if req.AttendeeID == "" || req.BoothID == "" || req.EventID == "" {
		h.reject(c, "booth", "Missing required fields in request body")
		return
	}

	activity := model.BoothActivity{
		AttendeeID:      req.AttendeeID,
		Email:           req.Email,
		BoothID:         req.BoothID,
		InteractionType: req.InteractionType,
		Timestamp:       req.Timestamp,
		LeadMagnetInfo:  req.LeadMagnetInfo,
	}

	result, err := h.service.ProcessBoothActivity(c.Request.Context(), activity, req.EventID)
	if err != nil {
		h.fail(c, "booth", err)
		return
	}

	h.observe("booth", "ok", start)
	c.JSON(http.StatusOK, handler.NewSuccessResponse(result))
}

// reject and fail leave rendering to the error middleware so every error
// response shares the same envelope.
func (h *Handler) reject(c *gin.Context, eventType, message string) {
	h.count(eventType, "rejected")
	_ = c.Error(apperrors.BadRequest(message))
	c.Abort()
}

func (h *Handler) fail(c *gin.Context, eventType string, err error) {
	h.count(eventType, "error")
	_ = c.Error(err)
	c.Abort()
}

func (h *Handler) observe(eventType, outcome string, start time.Time) {
	h.count(eventType, outcome)
	if h.metrics != nil {
		h.metrics.WebhookLatency.WithLabelValues(eventType).Observe(time.Since(start).Seconds())
	}
}

func (h *Handler) count(eventType, outcome string) {
	if h.metrics != nil {
		h.metrics.WebhooksReceived.WithLabelValues(eventType, outcome).Inc()
	}
}
