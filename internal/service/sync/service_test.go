package sync

import (
	"context"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/airmeet-sync/internal/model"
	"github.com/jwalitptl/airmeet-sync/internal/service/mapping"
	apperrors "github.com/jwalitptl/airmeet-sync/pkg/errors"
)

type fakeAirmeet struct {
	registrations map[string]model.Registration
	err           error
}

func (f *fakeAirmeet) GetRegistration(_ context.Context, attendeeID string) (model.Registration, error) {
	if f.err != nil {
		return model.Registration{}, f.err
	}
	reg, ok := f.registrations[attendeeID]
	if !ok {
		return model.Registration{}, apperrors.NotFound("registration not found")
	}
	return reg, nil
}

type fakeContacts struct {
	byEmail  map[string]*model.Contact
	filtered []*model.Contact
	created  []*model.Contact
	updated  []*model.Contact
	nextID   int
}

func (f *fakeContacts) FindByEmail(_ context.Context, email string) (*model.Contact, error) {
	return f.byEmail[email], nil
}

func (f *fakeContacts) Filter(_ context.Context, _ model.ContactFilter) ([]*model.Contact, error) {
	return f.filtered, nil
}

func (f *fakeContacts) Create(_ context.Context, contact *model.Contact) (*model.Contact, error) {
	f.nextID++
	saved := *contact
	saved.ID = fmt.Sprintf("don:contact:%d", f.nextID)
	f.created = append(f.created, &saved)
	return &saved, nil
}

func (f *fakeContacts) Update(_ context.Context, contact *model.Contact) (*model.Contact, error) {
	saved := *contact
	f.updated = append(f.updated, &saved)
	return &saved, nil
}

type fakeActivities struct {
	activities []model.Activity
	err        error
}

func (f *fakeActivities) CreateActivity(_ context.Context, activity *model.Activity) error {
	if f.err != nil {
		return f.err
	}
	f.activities = append(f.activities, *activity)
	return nil
}

type fakeTags struct {
	byContact map[string][]string
}

func (f *fakeTags) AddTags(_ context.Context, contactID string, tags []string) error {
	if f.byContact == nil {
		f.byContact = map[string][]string{}
	}
	f.byContact[contactID] = append(f.byContact[contactID], tags...)
	return nil
}

type fakeDispatcher struct {
	registrations []string
	sessions      []string
	booths        []string
	err           error
}

func (f *fakeDispatcher) HandleRegistration(_ context.Context, _ model.Registration, eventID string) error {
	if f.err != nil {
		return f.err
	}
	f.registrations = append(f.registrations, eventID)
	return nil
}

func (f *fakeDispatcher) HandleSessionActivity(_ context.Context, _ model.SessionActivity, eventID string) error {
	if f.err != nil {
		return f.err
	}
	f.sessions = append(f.sessions, eventID)
	return nil
}

func (f *fakeDispatcher) HandleBoothActivity(_ context.Context, _ model.BoothActivity, eventID string) error {
	if f.err != nil {
		return f.err
	}
	f.booths = append(f.booths, eventID)
	return nil
}

type fixture struct {
	airmeet    *fakeAirmeet
	contacts   *fakeContacts
	activities *fakeActivities
	tags       *fakeTags
	notifier   *fakeDispatcher
	service    *Service
}

func newFixture() *fixture {
	f := &fixture{
		airmeet:    &fakeAirmeet{registrations: map[string]model.Registration{}},
		contacts:   &fakeContacts{byEmail: map[string]*model.Contact{}},
		activities: &fakeActivities{},
		tags:       &fakeTags{},
		notifier:   &fakeDispatcher{},
	}
	logger := zerolog.Nop()
	f.service = NewService(f.airmeet, f.contacts, f.activities, f.tags, mapping.NewService(nil), f.notifier, &logger)
	return f
}

func sampleRegistration() model.Registration {
	return model.Registration{
		AttendeeID:       "att-1",
		EventID:          "event-from-reg",
		FirstName:        "Jane",
		LastName:         "Doe",
		Email:            "jane@example.com",
		RegistrationTime: "2024-01-01T10:00:00Z",
	}
}

func TestProcessRegistrationCreatesNewContact(t *testing.T) {
	f := newFixture()
	f.airmeet.registrations["att-1"] = sampleRegistration()

	result, err := f.service.ProcessRegistration(context.Background(), "att-1", "event-1")
	require.NoError(t, err)

	assert.True(t, result.Created)
	require.Len(t, f.contacts.created, 1)
	assert.Empty(t, f.contacts.updated)
	assert.Equal(t, "Jane Doe", result.Contact.DisplayName)
	assert.Equal(t, "att-1", result.Contact.CustomFields["airmeet_registration_id"])

	require.Len(t, f.activities.activities, 1)
	assert.Equal(t, model.ActivityRegistration, f.activities.activities[0].Type)
	assert.Equal(t, result.Contact.ID, f.activities.activities[0].ContactID)

	assert.Equal(t, []string{model.TagRegistered}, result.Tags)
	assert.Equal(t, []string{model.TagRegistered}, f.tags.byContact[result.Contact.ID])

	// the webhook eventId wins over the one on the registration record
	assert.Equal(t, []string{"event-1"}, f.notifier.registrations)
}

func TestProcessRegistrationUpdatesExistingContact(t *testing.T) {
	f := newFixture()
	f.airmeet.registrations["att-1"] = sampleRegistration()
	f.contacts.byEmail["jane@example.com"] = &model.Contact{ID: "don:contact:42", Email: "jane@example.com"}

	result, err := f.service.ProcessRegistration(context.Background(), "att-1", "event-1")
	require.NoError(t, err)

	assert.False(t, result.Created)
	assert.Empty(t, f.contacts.created)
	require.Len(t, f.contacts.updated, 1)
	assert.Equal(t, "don:contact:42", result.Contact.ID)
}

func TestProcessRegistrationEventIDFallsBackToRegistration(t *testing.T) {
	f := newFixture()
	f.airmeet.registrations["att-1"] = sampleRegistration()

	_, err := f.service.ProcessRegistration(context.Background(), "att-1", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"event-from-reg"}, f.notifier.registrations)
}

func TestProcessRegistrationNoEmail(t *testing.T) {
	f := newFixture()
	reg := sampleRegistration()
	reg.Email = ""
	f.airmeet.registrations["att-1"] = reg

	_, err := f.service.ProcessRegistration(context.Background(), "att-1", "event-1")
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 400, appErr.StatusCode())
	assert.Empty(t, f.contacts.created)
}

func TestProcessRegistrationUpstreamFailure(t *testing.T) {
	f := newFixture()
	f.airmeet.err = apperrors.Upstream("airmeet api request failed", fmt.Errorf("status 503"))

	_, err := f.service.ProcessRegistration(context.Background(), "att-1", "event-1")
	require.Error(t, err)
	assert.Empty(t, f.activities.activities)
	assert.Empty(t, f.notifier.registrations)
}

func TestProcessSessionActivityByEmail(t *testing.T) {
	f := newFixture()
	f.contacts.byEmail["jane@example.com"] = &model.Contact{ID: "don:contact:7", Email: "jane@example.com"}

	activity := model.SessionActivity{
		AttendeeID: "att-1",
		Email:      "jane@example.com",
		SessionID:  "sess-1",
		JoinTime:   "2024-01-01T11:00:00Z",
		TimeSpent:  20,
	}
	result, err := f.service.ProcessSessionActivity(context.Background(), activity, "event-1")
	require.NoError(t, err)

	assert.Equal(t, "don:contact:7", result.Contact.ID)
	require.Len(t, f.activities.activities, 1)
	assert.Equal(t, model.ActivitySessionAttendance, f.activities.activities[0].Type)
	assert.Equal(t, []string{model.TagSessionAttendee}, result.Tags)
	assert.Equal(t, []string{"event-1"}, f.notifier.sessions)
}

func TestProcessSessionActivityByAttendeeID(t *testing.T) {
	f := newFixture()
	f.contacts.filtered = []*model.Contact{{ID: "don:contact:9"}}

	activity := model.SessionActivity{AttendeeID: "att-1", SessionID: "sess-1"}
	result, err := f.service.ProcessSessionActivity(context.Background(), activity, "event-1")
	require.NoError(t, err)
	assert.Equal(t, "don:contact:9", result.Contact.ID)
}

func TestProcessSessionActivityUnknownContact(t *testing.T) {
	f := newFixture()

	activity := model.SessionActivity{AttendeeID: "att-unknown", SessionID: "sess-1"}
	_, err := f.service.ProcessSessionActivity(context.Background(), activity, "event-1")
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 404, appErr.StatusCode())
	assert.Equal(t, "Contact not found in DevRev", appErr.Message)
	assert.Empty(t, f.activities.activities)
}

func TestProcessSessionActivityMultipleMatchesUsesFirst(t *testing.T) {
	f := newFixture()
	f.contacts.filtered = []*model.Contact{{ID: "don:contact:1"}, {ID: "don:contact:2"}}

	activity := model.SessionActivity{AttendeeID: "att-1", SessionID: "sess-1"}
	result, err := f.service.ProcessSessionActivity(context.Background(), activity, "event-1")
	require.NoError(t, err)
	assert.Equal(t, "don:contact:1", result.Contact.ID)
}

func TestProcessBoothActivity(t *testing.T) {
	f := newFixture()
	f.contacts.byEmail["jane@example.com"] = &model.Contact{ID: "don:contact:7", Email: "jane@example.com"}

	activity := model.BoothActivity{
		AttendeeID:      "att-1",
		Email:           "jane@example.com",
		BoothID:         "booth-1",
		InteractionType: "visit",
		Timestamp:       "2024-01-01T12:00:00Z",
		LeadMagnetInfo:  &model.LeadMagnetInfo{Type: "whitepaper", Name: "Guide"},
	}
	result, err := f.service.ProcessBoothActivity(context.Background(), activity, "event-1")
	require.NoError(t, err)

	require.Len(t, f.activities.activities, 1)
	assert.Equal(t, model.ActivityBoothVisit, f.activities.activities[0].Type)
	assert.ElementsMatch(t, []string{model.TagBoothVisitor, model.TagLeadMagnetDownloaded}, result.Tags)
	assert.Equal(t, []string{"event-1"}, f.notifier.booths)
}

func TestProcessBoothActivityUnknownContact(t *testing.T) {
	f := newFixture()

	activity := model.BoothActivity{AttendeeID: "att-unknown", BoothID: "booth-1"}
	_, err := f.service.ProcessBoothActivity(context.Background(), activity, "event-1")
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 404, appErr.StatusCode())
}

func TestProcessBoothActivityStorageFailure(t *testing.T) {
	f := newFixture()
	f.contacts.byEmail["jane@example.com"] = &model.Contact{ID: "don:contact:7", Email: "jane@example.com"}
	f.activities.err = fmt.Errorf("devrev unavailable")

	activity := model.BoothActivity{AttendeeID: "att-1", Email: "jane@example.com", BoothID: "booth-1"}
	_, err := f.service.ProcessBoothActivity(context.Background(), activity, "event-1")
	require.Error(t, err)
	assert.Empty(t, f.notifier.booths)
}
