// Package sync orchestrates one inbound webhook event end to end: resolve or
// create the contact, record the activity, tag the contact and dispatch the
// notification. Redelivered session and booth events are not deduplicated;
// each delivery produces a fresh activity.
package sync

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/jwalitptl/airmeet-sync/internal/model"
	"github.com/jwalitptl/airmeet-sync/internal/repository"
	"github.com/jwalitptl/airmeet-sync/internal/service/mapping"
	apperrors "github.com/jwalitptl/airmeet-sync/pkg/errors"
)

// ErrContactNotFound surfaces as a 404: activities are never created for
// unknown contacts.
var errContactNotFound = apperrors.NotFound("Contact not found in DevRev")

// AirmeetClient is the slice of the event-platform API the orchestrator
// needs.
type AirmeetClient interface {
	GetRegistration(ctx context.Context, attendeeID string) (model.Registration, error)
}

// Dispatcher is the notification side of the pipeline.
type Dispatcher interface {
	HandleRegistration(ctx context.Context, registration model.Registration, eventID string) error
	HandleSessionActivity(ctx context.Context, activity model.SessionActivity, eventID string) error
	HandleBoothActivity(ctx context.Context, activity model.BoothActivity, eventID string) error
}

type Service struct {
	airmeet    AirmeetClient
	contacts   repository.ContactRepository
	activities repository.ActivityRepository
	tags       repository.TagRepository
	mapper     *mapping.Service
	notifier   Dispatcher
	logger     *zerolog.Logger
}

func NewService(
	airmeet AirmeetClient,
	contacts repository.ContactRepository,
	activities repository.ActivityRepository,
	tags repository.TagRepository,
	mapper *mapping.Service,
	notifier Dispatcher,
	logger *zerolog.Logger,
) *Service {
	return &Service{
		airmeet:    airmeet,
		contacts:   contacts,
		activities: activities,
		tags:       tags,
		mapper:     mapper,
		notifier:   notifier,
		logger:     logger,
	}
}

// RegistrationResult is the response body of a registration webhook.
type RegistrationResult struct {
	Contact  *model.Contact `json:"contact"`
	Activity model.Activity `json:"activity"`
	Tags     []string       `json:"tags"`
	Created  bool           `json:"created"`
}

// ActivityResult is the response body of a session or booth webhook.
type ActivityResult struct {
	Contact  *model.Contact `json:"contact"`
	Activity model.Activity `json:"activity"`
	Tags     []string       `json:"tags"`
}

// ProcessRegistration fetches the full registration record, creates or
// updates the contact by email, records the registration activity, tags the
// contact and dispatches the notification. Redelivery is safe: the same
// email always lands on the update path.
func (s *Service) ProcessRegistration(ctx context.Context, attendeeID, eventID string) (*RegistrationResult, error) {
	registration, err := s.airmeet.GetRegistration(ctx, attendeeID)
	if err != nil {
		return nil, err
	}
	if registration.Email == "" {
		return nil, apperrors.BadRequest("registration has no email")
	}
	if eventID == "" {
		eventID = registration.EventID
	}

	contact := s.mapper.RegistrationToContact(registration)

	existing, err := s.contacts.FindByEmail(ctx, contact.Email)
	if err != nil {
		return nil, err
	}

	var saved *model.Contact
	created := false
	if existing != nil {
		contact.ID = existing.ID
		saved, err = s.contacts.Update(ctx, &contact)
	} else {
		saved, err = s.contacts.Create(ctx, &contact)
		created = true
	}
	if err != nil {
		return nil, err
	}

	activity := s.mapper.RegistrationActivity(registration, saved.ID)
	if err := s.activities.CreateActivity(ctx, &activity); err != nil {
		return nil, err
	}

	tags := s.mapper.ActivityTags([]model.Activity{activity})
	if err := s.tags.AddTags(ctx, saved.ID, tags); err != nil {
		return nil, err
	}

	if err := s.notifier.HandleRegistration(ctx, registration, eventID); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("attendee_id", attendeeID).
		Str("event_id", eventID).
		Str("contact_id", saved.ID).
		Bool("created", created).
		Msg("registration synced")

	return &RegistrationResult{
		Contact:  saved,
		Activity: activity,
		Tags:     tags,
		Created:  created,
	}, nil
}

// ProcessSessionActivity records a session attendance for an existing
// contact. Unknown contacts fail with a not-found error.
func (s *Service) ProcessSessionActivity(ctx context.Context, activity model.SessionActivity, eventID string) (*ActivityResult, error) {
	contact, err := s.resolveContact(ctx, activity.Email, activity.AttendeeID)
	if err != nil {
		return nil, err
	}

	mapped := s.mapper.SessionAttendance(activity, contact.ID)
	if err := s.activities.CreateActivity(ctx, &mapped); err != nil {
		return nil, err
	}

	tags := s.mapper.ActivityTags([]model.Activity{mapped})
	if err := s.tags.AddTags(ctx, contact.ID, tags); err != nil {
		return nil, err
	}

	if err := s.notifier.HandleSessionActivity(ctx, activity, eventID); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("attendee_id", activity.AttendeeID).
		Str("session_id", activity.SessionID).
		Str("contact_id", contact.ID).
		Msg("session activity synced")

	return &ActivityResult{Contact: contact, Activity: mapped, Tags: tags}, nil
}

// ProcessBoothActivity records a booth visit for an existing contact.
// Unknown contacts fail with a not-found error.
func (s *Service) ProcessBoothActivity(ctx context.Context, activity model.BoothActivity, eventID string) (*ActivityResult, error) {
	contact, err := s.resolveContact(ctx, activity.Email, activity.AttendeeID)
	if err != nil {
		return nil, err
	}

	mapped := s.mapper.BoothVisit(activity, contact.ID)
	if err := s.activities.CreateActivity(ctx, &mapped); err != nil {
		return nil, err
	}

	tags := s.mapper.ActivityTags([]model.Activity{mapped})
	if err := s.tags.AddTags(ctx, contact.ID, tags); err != nil {
		return nil, err
	}

	if err := s.notifier.HandleBoothActivity(ctx, activity, eventID); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("attendee_id", activity.AttendeeID).
		Str("booth_id", activity.BoothID).
		Str("contact_id", contact.ID).
		Msg("booth activity synced")

	return &ActivityResult{Contact: contact, Activity: mapped, Tags: tags}, nil
}

// resolveContact finds an existing contact by email when the payload carries
// one, otherwise by the attendee id recorded on the contact at registration
// time.
func (s *Service) resolveContact(ctx context.Context, email, attendeeID string) (*model.Contact, error) {
	if email != "" {
		contact, err := s.contacts.FindByEmail(ctx, email)
		if err != nil {
			return nil, err
		}
		if contact == nil {
			return nil, errContactNotFound
		}
		return contact, nil
	}

	contacts, err := s.contacts.Filter(ctx, model.ContactFilter{
		CustomFields: map[string]interface{}{
			"airmeet_registration_id": attendeeID,
		},
	})
	if err != nil {
		return nil, err
	}
	if len(contacts) == 0 {
		return nil, errContactNotFound
	}
	if len(contacts) > 1 {
		s.logger.Warn().
			Str("attendee_id", attendeeID).
			Int("matches", len(contacts)).
			Msg("multiple contacts matched attendee id, using the first")
	}
	return contacts[0], nil
}
