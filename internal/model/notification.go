package model

import "time"

type NotificationStatus string

const (
	NotificationStatusPending NotificationStatus = "pending"
	NotificationStatusSent    NotificationStatus = "sent"
	NotificationStatusFailed  NotificationStatus = "failed"
)

type NotificationPriority string

const (
	PriorityLow    NotificationPriority = "low"
	PriorityMedium NotificationPriority = "medium"
	PriorityHigh   NotificationPriority = "high"
)

// EventType names the webhook event categories that can trigger a
// notification. Lead magnet downloads are a distinguished sub-event of booth
// activity.
type EventType string

const (
	EventRegistration       EventType = "registration"
	EventSessionJoin        EventType = "session_join"
	EventBoothVisit         EventType = "booth_visit"
	EventLeadMagnetDownload EventType = "lead_magnet_download"
)

// TriggerConditions narrows a trigger beyond its event type. Empty lists
// match everything.
type TriggerConditions struct {
	TimeThresholdMinutes int      `json:"timeThreshold,omitempty" mapstructure:"time_threshold"`
	BoothTypes           []string `json:"boothTypes,omitempty" mapstructure:"booth_types"`
	SessionTypes         []string `json:"sessionTypes,omitempty" mapstructure:"session_types"`
	LeadMagnetTypes      []string `json:"leadMagnetTypes,omitempty" mapstructure:"lead_magnet_types"`
}

// NotificationTrigger gates whether an event type causes a notification.
type NotificationTrigger struct {
	EventType  EventType          `json:"eventType" mapstructure:"event_type"`
	Conditions *TriggerConditions `json:"conditions,omitempty" mapstructure:"conditions"`
}

type NotificationTemplate struct {
	ID        string               `json:"id" mapstructure:"id"`
	Title     string               `json:"title" mapstructure:"title"`
	Body      string               `json:"body" mapstructure:"body"`
	Priority  NotificationPriority `json:"priority" mapstructure:"priority"`
	Variables []string             `json:"variables" mapstructure:"variables"`
}

// NotificationConfig is constructed once at startup and read-only thereafter.
type NotificationConfig struct {
	Triggers            []NotificationTrigger           `mapstructure:"triggers"`
	Templates           map[string]NotificationTemplate `mapstructure:"templates"`
	AccountOwnerMapping map[string]string               `mapstructure:"account_owner_mapping"`
	OwnerEmails         map[string]string               `mapstructure:"owner_emails"`
	Enabled             bool                            `mapstructure:"enabled"`
}

// NotificationMetadata carries the correlation ids of the source event.
type NotificationMetadata struct {
	EventType EventType `json:"eventType"`
	ContactID string    `json:"contactId,omitempty"`
	EventID   string    `json:"eventId,omitempty"`
	SessionID string    `json:"sessionId,omitempty"`
	BoothID   string    `json:"boothId,omitempty"`
}

// Notification is owned by the dispatcher and kept only in a bounded recency
// buffer for debugging. Lifecycle: pending -> sent|failed, terminal either
// way.
type Notification struct {
	ID          string               `json:"id"`
	RecipientID string               `json:"recipientId"`
	TemplateID  string               `json:"templateId"`
	Variables   map[string]string    `json:"variables"`
	Status      NotificationStatus   `json:"status"`
	Priority    NotificationPriority `json:"priority"`
	Metadata    NotificationMetadata `json:"metadata"`
	Rendered    string               `json:"renderedMessage,omitempty"`
	CreatedAt   time.Time            `json:"createdAt"`
	SentAt      *time.Time           `json:"sentAt,omitempty"`
}
