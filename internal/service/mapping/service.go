// Package mapping converts Airmeet event payloads into DevRev contact and
// activity records. Every function here is a pure transformation; validation
// of required fields is the orchestrator's job.
package mapping

import (
	"time"

	"github.com/jwalitptl/airmeet-sync/internal/model"
	"github.com/jwalitptl/airmeet-sync/pkg/buffer"
)

// Recorder is an optional hook that observes every mapped record, used to
// feed the debug mapped-items buffer.
type Recorder interface {
	Record(item model.MappedItem)
}

// BufferRecorder adapts a recency buffer to the Recorder interface.
type BufferRecorder struct {
	ring *buffer.Ring[model.MappedItem]
}

func NewBufferRecorder(ring *buffer.Ring[model.MappedItem]) *BufferRecorder {
	return &BufferRecorder{ring: ring}
}

func (r *BufferRecorder) Record(item model.MappedItem) {
	r.ring.Append(item)
}

type Service struct {
	recorder Recorder
}

// NewService creates a mapping service. recorder may be nil.
func NewService(recorder Recorder) *Service {
	return &Service{recorder: recorder}
}

func (s *Service) record(kind string, source, mapped interface{}) {
	if s.recorder == nil {
		return
	}
	s.recorder.Record(model.MappedItem{
		Kind:     kind,
		Source:   source,
		Mapped:   mapped,
		MappedAt: time.Now(),
	})
}

// RegistrationToContact maps a registration to a CRM contact. The contact id
// is left empty; DevRev assigns it on create. UTM fields are captured only
// when present, never defaulted to empty strings.
func (s *Service) RegistrationToContact(registration model.Registration) model.Contact {
	customFields := map[string]interface{}{
		"airmeet_registration_id": registration.AttendeeID,
		"registration_time":       registration.RegistrationTime,
	}
	if registration.Status != "" {
		customFields["registration_status"] = registration.Status
	}
	if utm := registration.UTMParameters; utm != nil {
		if utm.Source != "" {
			customFields["utm_source"] = utm.Source
		}
		if utm.Medium != "" {
			customFields["utm_medium"] = utm.Medium
		}
		if utm.Campaign != "" {
			customFields["utm_campaign"] = utm.Campaign
		}
	}

	contact := model.Contact{
		DisplayName:  registration.FirstName + " " + registration.LastName,
		Email:        registration.Email,
		Phone:        registration.Phone,
		Company:      registration.Organization,
		Title:        registration.JobTitle,
		CustomFields: customFields,
	}

	s.record(model.MappedKindContact, registration, contact)
	return contact
}

// RegistrationActivity maps a registration event to an activity record. The
// activity timestamp is the mapping time, not the registration time; the UTM
// triple is carried nested even when individual fields are absent.
func (s *Service) RegistrationActivity(registration model.Registration, contactID string) model.Activity {
	activity := model.Activity{
		ContactID: contactID,
		Type:      model.ActivityRegistration,
		Metadata: map[string]interface{}{
			"registration_id":   registration.AttendeeID,
			"registration_time": registration.RegistrationTime,
			"utm_parameters":    registration.UTMParameters,
		},
		Timestamp: time.Now(),
	}

	s.record(model.MappedKindActivity, registration, activity)
	return activity
}

// SessionAttendance maps a session activity to an activity record.
func (s *Service) SessionAttendance(activity model.SessionActivity, contactID string) model.Activity {
	mapped := model.Activity{
		ContactID: contactID,
		Type:      model.ActivitySessionAttendance,
		Metadata: map[string]interface{}{
			"session_id": activity.SessionID,
			"join_time":  activity.JoinTime,
			"leave_time": activity.LeaveTime,
			"time_spent": activity.TimeSpent,
		},
		Timestamp: time.Now(),
	}

	s.record(model.MappedKindActivity, activity, mapped)
	return mapped
}

// BoothVisit maps a booth activity to an activity record. Lead magnet info
// rides along in the metadata when present.
func (s *Service) BoothVisit(activity model.BoothActivity, contactID string) model.Activity {
	metadata := map[string]interface{}{
		"booth_id":         activity.BoothID,
		"interaction_type": activity.InteractionType,
		"timestamp":        activity.Timestamp,
	}
	if activity.LeadMagnetInfo != nil {
		metadata["lead_magnet_info"] = activity.LeadMagnetInfo
	}

	mapped := model.Activity{
		ContactID: contactID,
		Type:      model.ActivityBoothVisit,
		Metadata:  metadata,
		Timestamp: time.Now(),
	}

	s.record(model.MappedKindActivity, activity, mapped)
	return mapped
}

// ActivityTags derives the tag set for a contact from its observed
// activities. The result is a pure function of the activity set: order of
// the input never matters, and recomputing yields the same set.
func (s *Service) ActivityTags(activities []model.Activity) []string {
	set := make(map[string]struct{})
	for _, activity := range activities {
		switch activity.Type {
		case model.ActivityRegistration:
			set[model.TagRegistered] = struct{}{}
		case model.ActivitySessionAttendance:
			set[model.TagSessionAttendee] = struct{}{}
		case model.ActivityBoothVisit:
			set[model.TagBoothVisitor] = struct{}{}
			if info, ok := activity.Metadata["lead_magnet_info"]; ok && info != nil {
				set[model.TagLeadMagnetDownloaded] = struct{}{}
			}
		}
	}

	tags := make([]string, 0, len(set))
	for tag := range set {
		tags = append(tags, tag)
	}
	return tags
}
