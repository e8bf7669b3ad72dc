package model

import "time"

// Contact is the normalized CRM record. Email is the identity key: create vs
// update is decided by a prior lookup-by-email.
type Contact struct {
	ID           string                 `json:"id,omitempty"`
	DisplayName  string                 `json:"display_name"`
	Email        string                 `json:"email"`
	Phone        string                 `json:"phone,omitempty"`
	Company      string                 `json:"company,omitempty"`
	Title        string                 `json:"title,omitempty"`
	CustomFields map[string]interface{} `json:"custom_fields,omitempty"`
}

type ActivityType string

const (
	ActivityRegistration      ActivityType = "registration"
	ActivitySessionAttendance ActivityType = "session_attendance"
	ActivityBoothVisit        ActivityType = "booth_visit"
)

// Activity is a write-once event appended to a contact's history in DevRev.
type Activity struct {
	ContactID string                 `json:"contact_id"`
	Type      ActivityType           `json:"activity_type"`
	Metadata  map[string]interface{} `json:"metadata"`
	Timestamp time.Time              `json:"timestamp"`
}

// Tags derived from observed activity types.
const (
	TagRegistered           = "registered"
	TagSessionAttendee      = "session-attendee"
	TagBoothVisitor         = "booth-visitor"
	TagLeadMagnetDownloaded = "lead-magnet-downloaded"
)

// ContactFilter selects contacts by custom field values.
type ContactFilter struct {
	CustomFields map[string]interface{} `json:"custom_fields,omitempty"`
}
