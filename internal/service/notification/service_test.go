package notification

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/airmeet-sync/internal/model"
)

type captureBroker struct {
	channels []string
	messages []interface{}
	err      error
}

func (b *captureBroker) Publish(_ context.Context, channel string, message interface{}) error {
	if b.err != nil {
		return b.err
	}
	b.channels = append(b.channels, channel)
	b.messages = append(b.messages, message)
	return nil
}

func (b *captureBroker) Close() error { return nil }

type captureEmail struct {
	to      []string
	subject []string
	body    []string
	err     error
}

func (e *captureEmail) SendCustom(_ context.Context, to, subject, content string) error {
	if e.err != nil {
		return e.err
	}
	e.to = append(e.to, to)
	e.subject = append(e.subject, subject)
	e.body = append(e.body, content)
	return nil
}

func testConfig() model.NotificationConfig {
	return model.NotificationConfig{
		Enabled: true,
		Triggers: []model.NotificationTrigger{
			{EventType: model.EventRegistration},
			{EventType: model.EventSessionJoin, Conditions: &model.TriggerConditions{TimeThresholdMinutes: 5}},
			{EventType: model.EventBoothVisit},
			{EventType: model.EventLeadMagnetDownload},
		},
		Templates: map[string]model.NotificationTemplate{
			templateRegistration: {
				ID:    templateRegistration,
				Title: "New Registration",
				Body:  "{{attendeeName}} ({{attendeeEmail}}) registered for {{eventId}}",
			},
			templateSessionJoin: {
				ID:    templateSessionJoin,
				Title: "Session Joined",
				Body:  "{{attendeeId}} joined {{sessionId}} for {{timeSpent}} minutes",
			},
			templateBoothVisit: {
				ID:    templateBoothVisit,
				Title: "Booth Visit",
				Body:  "{{attendeeId}} visited booth {{boothId}}",
			},
			templateLeadMagnet: {
				ID:    templateLeadMagnet,
				Title: "Lead Magnet Downloaded",
				Body:  "{{attendeeId}} downloaded {{leadMagnetName}}{{#if downloadTime}} at {{downloadTime}}{{/if}}",
			},
		},
		AccountOwnerMapping: map[string]string{"event-1": "owner-1"},
		OwnerEmails:         map[string]string{"owner-1": "owner@example.com"},
	}
}

func newTestService(t *testing.T, config model.NotificationConfig, opts Options) *Service {
	t.Helper()
	logger := zerolog.Nop()
	return NewService(config, 10, opts, &logger, nil)
}

func registration() model.Registration {
	return model.Registration{
		AttendeeID:       "att-1",
		FirstName:        "Jane",
		LastName:         "Doe",
		Email:            "jane@example.com",
		RegistrationTime: "2024-01-01T10:00:00Z",
	}
}

func TestHandleRegistrationSends(t *testing.T) {
	broker := &captureBroker{}
	svc := newTestService(t, testConfig(), Options{Broker: broker, Channel: "notif"})

	err := svc.HandleRegistration(context.Background(), registration(), "event-1")
	require.NoError(t, err)

	last := svc.LastNotifications(1)
	require.Len(t, last, 1)
	n := last[0]
	assert.Equal(t, model.NotificationStatusSent, n.Status)
	assert.Equal(t, "owner-1", n.RecipientID)
	assert.Equal(t, templateRegistration, n.TemplateID)
	assert.Equal(t, model.PriorityHigh, n.Priority)
	assert.Equal(t, "Jane Doe (jane@example.com) registered for event-1", n.Rendered)
	assert.NotNil(t, n.SentAt)
	assert.True(t, strings.HasPrefix(n.ID, "notif_"))

	require.Len(t, broker.channels, 1)
	assert.Equal(t, "notif", broker.channels[0])
}

func TestHandleRegistrationDisabled(t *testing.T) {
	config := testConfig()
	config.Enabled = false
	broker := &captureBroker{}
	svc := newTestService(t, config, Options{Broker: broker})

	err := svc.HandleRegistration(context.Background(), registration(), "event-1")
	require.NoError(t, err)
	assert.Zero(t, svc.Buffered())
	assert.Empty(t, broker.messages)
}

func TestHandleRegistrationNoTrigger(t *testing.T) {
	config := testConfig()
	config.Triggers = nil
	svc := newTestService(t, config, Options{})

	err := svc.HandleRegistration(context.Background(), registration(), "event-1")
	require.NoError(t, err)
	assert.Zero(t, svc.Buffered())
}

func TestHandleRegistrationUnknownOwnerIsNoOp(t *testing.T) {
	broker := &captureBroker{}
	svc := newTestService(t, testConfig(), Options{Broker: broker})

	err := svc.HandleRegistration(context.Background(), registration(), "unmapped-event")
	require.NoError(t, err)
	assert.Zero(t, svc.Buffered())
	assert.Empty(t, broker.messages)
}

func TestHandleRegistrationEmailsHighPriority(t *testing.T) {
	emailSvc := &captureEmail{}
	svc := newTestService(t, testConfig(), Options{EmailSvc: emailSvc})

	err := svc.HandleRegistration(context.Background(), registration(), "event-1")
	require.NoError(t, err)

	require.Len(t, emailSvc.to, 1)
	assert.Equal(t, "owner@example.com", emailSvc.to[0])
	assert.Equal(t, "New Registration", emailSvc.subject[0])
	assert.Contains(t, emailSvc.body[0], "Jane Doe")
}

func TestHandleSessionActivityBelowThreshold(t *testing.T) {
	svc := newTestService(t, testConfig(), Options{})

	activity := model.SessionActivity{AttendeeID: "att-1", SessionID: "sess-1", TimeSpent: 3}
	err := svc.HandleSessionActivity(context.Background(), activity, "event-1")
	require.NoError(t, err)
	assert.Zero(t, svc.Buffered())
}

func TestHandleSessionActivityMeetsThreshold(t *testing.T) {
	emailSvc := &captureEmail{}
	svc := newTestService(t, testConfig(), Options{EmailSvc: emailSvc})

	activity := model.SessionActivity{AttendeeID: "att-1", SessionID: "sess-1", TimeSpent: 12}
	err := svc.HandleSessionActivity(context.Background(), activity, "event-1")
	require.NoError(t, err)

	last := svc.LastNotifications(1)
	require.Len(t, last, 1)
	assert.Equal(t, model.NotificationStatusSent, last[0].Status)
	assert.Equal(t, model.PriorityMedium, last[0].Priority)
	assert.Equal(t, "att-1 joined sess-1 for 12 minutes", last[0].Rendered)
	assert.Equal(t, "sess-1", last[0].Metadata.SessionID)

	// medium priority never triggers the email channel
	assert.Empty(t, emailSvc.to)
}

func TestHandleBoothActivityVisitOnly(t *testing.T) {
	svc := newTestService(t, testConfig(), Options{})

	activity := model.BoothActivity{
		AttendeeID:      "att-1",
		BoothID:         "booth-1",
		InteractionType: "visit",
		Timestamp:       "2024-01-01T12:00:00Z",
	}
	err := svc.HandleBoothActivity(context.Background(), activity, "event-1")
	require.NoError(t, err)

	last := svc.LastNotifications(5)
	require.Len(t, last, 1)
	assert.Equal(t, templateBoothVisit, last[0].TemplateID)
}

func TestHandleBoothActivityWithLeadMagnetSendsTwo(t *testing.T) {
	broker := &captureBroker{}
	svc := newTestService(t, testConfig(), Options{Broker: broker})

	activity := model.BoothActivity{
		AttendeeID:      "att-1",
		BoothID:         "booth-1",
		InteractionType: "visit",
		Timestamp:       "2024-01-01T12:00:00Z",
		LeadMagnetInfo: &model.LeadMagnetInfo{
			Type:         "whitepaper",
			Name:         "Scaling Guide",
			DownloadTime: "2024-01-01T12:05:00Z",
		},
	}
	err := svc.HandleBoothActivity(context.Background(), activity, "event-1")
	require.NoError(t, err)

	// newest first: the lead magnet notification was dispatched second
	last := svc.LastNotifications(5)
	require.Len(t, last, 2)
	assert.Equal(t, templateLeadMagnet, last[0].TemplateID)
	assert.Equal(t, model.PriorityHigh, last[0].Priority)
	assert.Equal(t, "att-1 downloaded Scaling Guide at 2024-01-01T12:05:00Z", last[0].Rendered)
	assert.Equal(t, templateBoothVisit, last[1].TemplateID)
	assert.Len(t, broker.messages, 2)
}

func TestHandleBoothActivityBoothTypeFiltered(t *testing.T) {
	config := testConfig()
	config.Triggers = []model.NotificationTrigger{
		{EventType: model.EventBoothVisit, Conditions: &model.TriggerConditions{BoothTypes: []string{"demo"}}},
	}
	svc := newTestService(t, config, Options{})

	activity := model.BoothActivity{
		AttendeeID:      "att-1",
		BoothID:         "booth-1",
		InteractionType: "visit",
	}
	err := svc.HandleBoothActivity(context.Background(), activity, "event-1")
	require.NoError(t, err)
	assert.Zero(t, svc.Buffered())
}

func TestHandleBoothActivityLeadMagnetTypeFiltered(t *testing.T) {
	config := testConfig()
	config.Triggers = []model.NotificationTrigger{
		{EventType: model.EventLeadMagnetDownload, Conditions: &model.TriggerConditions{LeadMagnetTypes: []string{"ebook"}}},
	}
	svc := newTestService(t, config, Options{})

	activity := model.BoothActivity{
		AttendeeID:      "att-1",
		BoothID:         "booth-1",
		InteractionType: "visit",
		LeadMagnetInfo:  &model.LeadMagnetInfo{Type: "whitepaper", Name: "Guide"},
	}
	err := svc.HandleBoothActivity(context.Background(), activity, "event-1")
	require.NoError(t, err)
	assert.Zero(t, svc.Buffered())
}

func TestHandleBoothActivityLeadMagnetDownloadTimeFallsBack(t *testing.T) {
	svc := newTestService(t, testConfig(), Options{})

	activity := model.BoothActivity{
		AttendeeID:      "att-1",
		BoothID:         "booth-1",
		InteractionType: "visit",
		Timestamp:       "2024-01-01T12:00:00Z",
		LeadMagnetInfo:  &model.LeadMagnetInfo{Type: "whitepaper", Name: "Guide"},
	}
	err := svc.HandleBoothActivity(context.Background(), activity, "event-1")
	require.NoError(t, err)

	last := svc.LastNotifications(1)
	require.Len(t, last, 1)
	assert.Equal(t, "2024-01-01T12:00:00Z", last[0].Variables["downloadTime"])
}

func TestDispatchBrokerFailureMarksFailed(t *testing.T) {
	broker := &captureBroker{err: fmt.Errorf("redis down")}
	svc := newTestService(t, testConfig(), Options{Broker: broker})

	err := svc.HandleRegistration(context.Background(), registration(), "event-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to send notification")

	last := svc.LastNotifications(1)
	require.Len(t, last, 1)
	assert.Equal(t, model.NotificationStatusFailed, last[0].Status)
	assert.Nil(t, last[0].SentAt)
}

func TestDispatchMissingTemplateMarksFailed(t *testing.T) {
	config := testConfig()
	delete(config.Templates, templateRegistration)
	svc := newTestService(t, config, Options{})

	err := svc.HandleRegistration(context.Background(), registration(), "event-1")
	require.Error(t, err)

	last := svc.LastNotifications(1)
	require.Len(t, last, 1)
	assert.Equal(t, model.NotificationStatusFailed, last[0].Status)
}

func TestTemplatePriorityOverridesDefault(t *testing.T) {
	config := testConfig()
	tmpl := config.Templates[templateSessionJoin]
	tmpl.Priority = model.PriorityHigh
	config.Templates[templateSessionJoin] = tmpl

	emailSvc := &captureEmail{}
	svc := newTestService(t, config, Options{EmailSvc: emailSvc})

	activity := model.SessionActivity{AttendeeID: "att-1", SessionID: "sess-1", TimeSpent: 30}
	err := svc.HandleSessionActivity(context.Background(), activity, "event-1")
	require.NoError(t, err)

	last := svc.LastNotifications(1)
	require.Len(t, last, 1)
	assert.Equal(t, model.PriorityHigh, last[0].Priority)
	require.Len(t, emailSvc.to, 1)
}

func TestNotificationIDsAreUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := newNotificationID()
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestLastNotificationsDefaultCount(t *testing.T) {
	svc := newTestService(t, testConfig(), Options{})

	for i := 0; i < 8; i++ {
		reg := registration()
		reg.Email = fmt.Sprintf("user%d@example.com", i)
		require.NoError(t, svc.HandleRegistration(context.Background(), reg, "event-1"))
	}

	assert.Len(t, svc.LastNotifications(0), 5)
	assert.Equal(t, 8, svc.Buffered())
}
