// Package notification decides, per webhook event, whether a notification
// fires for the account owner of the event, renders it and sends it. Sending
// means a structured log line, plus a broker publish and an email when those
// channels are configured.
package notification

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/airmeet-sync/internal/email"
	"github.com/jwalitptl/airmeet-sync/internal/model"
	"github.com/jwalitptl/airmeet-sync/pkg/buffer"
	"github.com/jwalitptl/airmeet-sync/pkg/messaging"
	"github.com/jwalitptl/airmeet-sync/pkg/metrics"
)

const (
	templateRegistration = "registration_notification"
	templateSessionJoin  = "session_join_notification"
	templateBoothVisit   = "booth_visit_notification"
	templateLeadMagnet   = "lead_magnet_notification"
)

type Service struct {
	config   model.NotificationConfig
	renderer *Renderer
	recent   *buffer.Ring[model.Notification]
	broker   messaging.Broker
	channel  string
	emailSvc email.Service
	logger   *zerolog.Logger
	metrics  *metrics.Metrics
}

// Options carries the optional send channels. A nil broker falls back to
// NopBroker; a nil email service disables the email channel.
type Options struct {
	Broker   messaging.Broker
	Channel  string
	EmailSvc email.Service
}

func NewService(config model.NotificationConfig, bufferSize int, opts Options, logger *zerolog.Logger, m *metrics.Metrics) *Service {
	if bufferSize <= 0 {
		bufferSize = 100
	}
	broker := opts.Broker
	if broker == nil {
		broker = messaging.NopBroker{}
	}
	channel := opts.Channel
	if channel == "" {
		channel = "notifications"
	}
	return &Service{
		config:   config,
		renderer: NewRenderer(config.Templates),
		recent:   buffer.NewRing[model.Notification](bufferSize),
		broker:   broker,
		channel:  channel,
		emailSvc: opts.EmailSvc,
		logger:   logger,
		metrics:  m,
	}
}

// Enabled reports the global notification switch, for the debug status
// endpoint.
func (s *Service) Enabled() bool {
	return s.config.Enabled
}

// Buffered reports how many notifications the recency buffer holds.
func (s *Service) Buffered() int {
	return s.recent.Len()
}

// LastNotifications returns up to count recent notifications, newest first.
func (s *Service) LastNotifications(count int) []model.Notification {
	if count <= 0 {
		count = 5
	}
	return s.recent.Last(count)
}

// HandleRegistration dispatches a registration notification. A missing
// trigger or account owner is a no-op, never an error.
func (s *Service) HandleRegistration(ctx context.Context, registration model.Registration, eventID string) error {
	if !s.config.Enabled {
		s.skip(model.EventRegistration, "disabled")
		return nil
	}
	if s.trigger(model.EventRegistration) == nil {
		s.skip(model.EventRegistration, "no_trigger")
		return nil
	}

	ownerID, ok := s.accountOwner(eventID, model.EventRegistration)
	if !ok {
		return nil
	}

	return s.dispatch(ctx, templateRegistration, ownerID,
		map[string]string{
			"attendeeName":     registration.FirstName + " " + registration.LastName,
			"attendeeEmail":    registration.Email,
			"eventId":          eventID,
			"registrationTime": registration.RegistrationTime,
		},
		model.NotificationMetadata{
			EventType: model.EventRegistration,
			ContactID: registration.AttendeeID,
			EventID:   eventID,
		},
		model.PriorityHigh,
	)
}

// HandleSessionActivity dispatches a session-join notification when a
// session_join trigger is configured and its time threshold is met.
func (s *Service) HandleSessionActivity(ctx context.Context, activity model.SessionActivity, eventID string) error {
	if !s.config.Enabled {
		s.skip(model.EventSessionJoin, "disabled")
		return nil
	}

	trigger := s.trigger(model.EventSessionJoin)
	if trigger == nil {
		s.skip(model.EventSessionJoin, "no_trigger")
		return nil
	}
	if cond := trigger.Conditions; cond != nil && cond.TimeThresholdMinutes > 0 && activity.TimeSpent < cond.TimeThresholdMinutes {
		s.skip(model.EventSessionJoin, "no_trigger")
		return nil
	}

	ownerID, ok := s.accountOwner(eventID, model.EventSessionJoin)
	if !ok {
		return nil
	}

	return s.dispatch(ctx, templateSessionJoin, ownerID,
		map[string]string{
			"attendeeId": activity.AttendeeID,
			"sessionId":  activity.SessionID,
			"joinTime":   activity.JoinTime,
			"timeSpent":  strconv.Itoa(activity.TimeSpent),
		},
		model.NotificationMetadata{
			EventType: model.EventSessionJoin,
			ContactID: activity.AttendeeID,
			EventID:   eventID,
			SessionID: activity.SessionID,
		},
		model.PriorityMedium,
	)
}

// HandleBoothActivity dispatches up to two independent notifications: the
// booth visit itself and, when lead magnet info is present with a matching
// trigger, the lead magnet download.
func (s *Service) HandleBoothActivity(ctx context.Context, activity model.BoothActivity, eventID string) error {
	if !s.config.Enabled {
		s.skip(model.EventBoothVisit, "disabled")
		return nil
	}

	boothTrigger := s.trigger(model.EventBoothVisit)
	if boothTrigger != nil && !allowed(boothTypes(boothTrigger.Conditions), activity.InteractionType) {
		boothTrigger = nil
	}

	var leadTrigger *model.NotificationTrigger
	if activity.LeadMagnetInfo != nil {
		leadTrigger = s.trigger(model.EventLeadMagnetDownload)
		if leadTrigger != nil && !allowed(leadMagnetTypes(leadTrigger.Conditions), activity.LeadMagnetInfo.Type) {
			leadTrigger = nil
		}
	}

	if boothTrigger == nil && leadTrigger == nil {
		s.skip(model.EventBoothVisit, "no_trigger")
		return nil
	}

	ownerID, ok := s.accountOwner(eventID, model.EventBoothVisit)
	if !ok {
		return nil
	}

	if boothTrigger != nil {
		err := s.dispatch(ctx, templateBoothVisit, ownerID,
			map[string]string{
				"attendeeId":      activity.AttendeeID,
				"boothId":         activity.BoothID,
				"interactionType": activity.InteractionType,
				"timestamp":       activity.Timestamp,
			},
			model.NotificationMetadata{
				EventType: model.EventBoothVisit,
				ContactID: activity.AttendeeID,
				EventID:   eventID,
				BoothID:   activity.BoothID,
			},
			model.PriorityMedium,
		)
		if err != nil {
			return err
		}
	}

	if leadTrigger != nil {
		downloadTime := activity.LeadMagnetInfo.DownloadTime
		if downloadTime == "" {
			downloadTime = activity.Timestamp
		}
		err := s.dispatch(ctx, templateLeadMagnet, ownerID,
			map[string]string{
				"attendeeId":     activity.AttendeeID,
				"boothId":        activity.BoothID,
				"leadMagnetType": activity.LeadMagnetInfo.Type,
				"leadMagnetName": activity.LeadMagnetInfo.Name,
				"downloadTime":   downloadTime,
			},
			model.NotificationMetadata{
				EventType: model.EventLeadMagnetDownload,
				ContactID: activity.AttendeeID,
				EventID:   eventID,
				BoothID:   activity.BoothID,
			},
			model.PriorityHigh,
		)
		if err != nil {
			return err
		}
	}

	return nil
}

func (s *Service) trigger(eventType model.EventType) *model.NotificationTrigger {
	for i := range s.config.Triggers {
		if s.config.Triggers[i].EventType == eventType {
			return &s.config.Triggers[i]
		}
	}
	return nil
}

// accountOwner resolves the recipient for an event id. A missing mapping is
// logged as a warning and skips the notification; one is never sent without
// a resolvable recipient.
func (s *Service) accountOwner(eventID string, eventType model.EventType) (string, bool) {
	ownerID, ok := s.config.AccountOwnerMapping[eventID]
	if !ok || ownerID == "" {
		s.logger.Warn().
			Str("event_id", eventID).
			Str("event_type", string(eventType)).
			Msg("no account owner found for event")
		s.skip(eventType, "no_owner")
		return "", false
	}
	return ownerID, true
}

// dispatch builds the notification, renders it and sends it. Any failure
// marks the notification failed and propagates; either way the notification
// lands in the recency buffer.
func (s *Service) dispatch(ctx context.Context, templateID, recipientID string, variables map[string]string, metadata model.NotificationMetadata, defaultPriority model.NotificationPriority) error {
	n := model.Notification{
		ID:          newNotificationID(),
		RecipientID: recipientID,
		TemplateID:  templateID,
		Variables:   variables,
		Status:      model.NotificationStatusPending,
		Priority:    s.priority(templateID, defaultPriority),
		Metadata:    metadata,
		CreatedAt:   time.Now(),
	}

	if err := s.send(ctx, &n); err != nil {
		n.Status = model.NotificationStatusFailed
		s.store(n)
		s.count(metadata.EventType, model.NotificationStatusFailed)
		return fmt.Errorf("failed to send notification %s: %w", n.ID, err)
	}

	s.store(n)
	s.count(metadata.EventType, model.NotificationStatusSent)
	return nil
}

func (s *Service) send(ctx context.Context, n *model.Notification) error {
	tmpl, err := s.renderer.Template(n.TemplateID)
	if err != nil {
		return err
	}

	rendered, err := s.renderer.Render(n.TemplateID, n.Variables)
	if err != nil {
		return err
	}
	n.Rendered = rendered

	s.logger.Info().
		Str("notification_id", n.ID).
		Str("recipient", n.RecipientID).
		Str("title", tmpl.Title).
		Str("priority", string(n.Priority)).
		Str("message", rendered).
		Msg("notification sent")

	if err := s.broker.Publish(ctx, s.channel, n); err != nil {
		return err
	}

	if s.emailSvc != nil && n.Priority == model.PriorityHigh {
		if to, ok := s.config.OwnerEmails[n.RecipientID]; ok && to != "" {
			if err := s.emailSvc.SendCustom(ctx, to, tmpl.Title, rendered); err != nil {
				return err
			}
		}
	}

	now := time.Now()
	n.Status = model.NotificationStatusSent
	n.SentAt = &now
	return nil
}

// priority resolves the notification priority: a priority declared on the
// template wins over the event-derived default.
func (s *Service) priority(templateID string, fallback model.NotificationPriority) model.NotificationPriority {
	if tmpl, ok := s.config.Templates[templateID]; ok && tmpl.Priority != "" {
		return tmpl.Priority
	}
	return fallback
}

func (s *Service) store(n model.Notification) {
	s.recent.Append(n)
}

func (s *Service) skip(eventType model.EventType, reason string) {
	if s.metrics != nil {
		s.metrics.NotificationsSkipped.WithLabelValues(string(eventType), reason).Inc()
	}
}

func (s *Service) count(eventType model.EventType, status model.NotificationStatus) {
	if s.metrics != nil {
		s.metrics.NotificationsDispatched.WithLabelValues(string(eventType), string(status)).Inc()
	}
}

// newNotificationID generates a unique id. Uniqueness is the only hard
// requirement; no global ordering is implied.
func newNotificationID() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("notif_%d_%s", time.Now().UnixMilli(), suffix)
}

func boothTypes(c *model.TriggerConditions) []string {
	if c == nil {
		return nil
	}
	return c.BoothTypes
}

func leadMagnetTypes(c *model.TriggerConditions) []string {
	if c == nil {
		return nil
	}
	return c.LeadMagnetTypes
}

func allowed(allowlist []string, value string) bool {
	if len(allowlist) == 0 {
		return true
	}
	for _, v := range allowlist {
		if v == value {
			return true
		}
	}
	return false
}
