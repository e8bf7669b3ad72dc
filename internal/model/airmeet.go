package model

import (
	"encoding/json"
	"fmt"
)

// UTMParameters is the attribution triple attached to a registration.
// Absent fields stay empty and are omitted on the wire.
type UTMParameters struct {
	Source   string `json:"source,omitempty"`
	Medium   string `json:"medium,omitempty"`
	Campaign string `json:"campaign,omitempty"`
}

// Registration is the canonical attendee registration shape. Historical
// payload variants are normalized into this via DecodeRegistration.
type Registration struct {
	AttendeeID       string         `json:"attendeeId"`
	EventID          string         `json:"eventId,omitempty"`
	FirstName        string         `json:"firstName"`
	LastName         string         `json:"lastName"`
	Email            string         `json:"email"`
	Phone            string         `json:"phone,omitempty"`
	Organization     string         `json:"organization,omitempty"`
	JobTitle         string         `json:"job_title,omitempty"`
	RegistrationTime string         `json:"registrationTime"`
	Status           string         `json:"status,omitempty"`
	UTMParameters    *UTMParameters `json:"utmParameters,omitempty"`
}

// SessionActivity is an attendee joining (and possibly leaving) a session.
type SessionActivity struct {
	AttendeeID string `json:"attendeeId"`
	Email      string `json:"email,omitempty"`
	SessionID  string `json:"sessionId"`
	JoinTime   string `json:"joinTime"`
	LeaveTime  string `json:"leaveTime,omitempty"`
	TimeSpent  int    `json:"timeSpent"`
}

// LeadMagnetInfo describes a downloadable asset offered at a booth.
type LeadMagnetInfo struct {
	Type         string `json:"type"`
	Name         string `json:"name"`
	DownloadTime string `json:"downloadTime,omitempty"`
}

// BoothActivity is an attendee interaction at a booth. LeadMagnetInfo is set
// only when the interaction includes an asset download.
type BoothActivity struct {
	AttendeeID      string          `json:"attendeeId"`
	Email           string          `json:"email,omitempty"`
	BoothID         string          `json:"boothId"`
	InteractionType string          `json:"interactionType"`
	Timestamp       string          `json:"timestamp"`
	LeadMagnetInfo  *LeadMagnetInfo `json:"leadMagnetInfo,omitempty"`
}

// registrationV1 is the legacy flat registration shape: snake_case field
// names, id instead of attendeeId and unnested UTM fields.
type registrationV1 struct {
	ID               string `json:"id"`
	EventID          string `json:"event_id"`
	FirstName        string `json:"first_name"`
	LastName         string `json:"last_name"`
	Email            string `json:"email"`
	Phone            string `json:"phone"`
	Organization     string `json:"organization"`
	JobTitle         string `json:"job_title"`
	RegistrationDate string `json:"registration_date"`
	Status           string `json:"status"`
	UTMSource        string `json:"utm_source"`
	UTMMedium        string `json:"utm_medium"`
	UTMCampaign      string `json:"utm_campaign"`
}

func (r registrationV1) normalize() Registration {
	reg := Registration{
		AttendeeID:       r.ID,
		EventID:          r.EventID,
		FirstName:        r.FirstName,
		LastName:         r.LastName,
		Email:            r.Email,
		Phone:            r.Phone,
		Organization:     r.Organization,
		JobTitle:         r.JobTitle,
		RegistrationTime: r.RegistrationDate,
		Status:           r.Status,
	}
	if r.UTMSource != "" || r.UTMMedium != "" || r.UTMCampaign != "" {
		reg.UTMParameters = &UTMParameters{
			Source:   r.UTMSource,
			Medium:   r.UTMMedium,
			Campaign: r.UTMCampaign,
		}
	}
	return reg
}

// DecodeRegistration decodes either registration payload variant into the
// canonical shape. Variant detection is keyed on the identifier field:
// current payloads carry attendeeId, legacy ones a bare id.
func DecodeRegistration(raw []byte) (Registration, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return Registration{}, fmt.Errorf("invalid registration payload: %w", err)
	}

	if _, ok := probe["attendeeId"]; ok {
		var reg Registration
		if err := json.Unmarshal(raw, &reg); err != nil {
			return Registration{}, fmt.Errorf("invalid registration payload: %w", err)
		}
		return reg, nil
	}

	if _, ok := probe["id"]; ok {
		var legacy registrationV1
		if err := json.Unmarshal(raw, &legacy); err != nil {
			return Registration{}, fmt.Errorf("invalid registration payload: %w", err)
		}
		return legacy.normalize(), nil
	}

	return Registration{}, fmt.Errorf("registration payload has no attendee identifier")
}
