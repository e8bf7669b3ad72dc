package devrev

import (
	"context"
	"net/http"

	"github.com/jwalitptl/airmeet-sync/internal/model"
)

type activityRequest struct {
	Type      model.ActivityType     `json:"type"`
	Metadata  map[string]interface{} `json:"metadata"`
	Timestamp string                 `json:"timestamp"`
}

type tagRequest struct {
	Tags []string `json:"tags"`
}

// CreateActivity appends an activity to the contact's history. Activities are
// write-once; there is no update path.
func (c *Client) CreateActivity(ctx context.Context, activity *model.Activity) error {
	req := activityRequest{
		Type:      activity.Type,
		Metadata:  activity.Metadata,
		Timestamp: activity.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	}
	path := "/contacts/" + activity.ContactID + "/activities"
	return c.do(ctx, "create_activity", http.MethodPost, path, nil, req, nil)
}

// AddTags attaches tags to a contact. The CRM treats re-attaching an
// existing tag as a no-op, so callers can send the full derived set.
func (c *Client) AddTags(ctx context.Context, contactID string, tags []string) error {
	if len(tags) == 0 {
		return nil
	}
	path := "/contacts/" + contactID + "/tags"
	return c.do(ctx, "add_tags", http.MethodPost, path, nil, tagRequest{Tags: tags}, nil)
}
