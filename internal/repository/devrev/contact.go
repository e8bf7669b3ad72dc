package devrev

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/jwalitptl/airmeet-sync/internal/model"
	apperrors "github.com/jwalitptl/airmeet-sync/pkg/errors"
)

type contactList struct {
	Contacts []*model.Contact `json:"contacts"`
}

// FindByEmail looks up a contact by its identity key. A nil contact with a
// nil error means no contact exists for that email.
func (c *Client) FindByEmail(ctx context.Context, email string) (*model.Contact, error) {
	if cached, ok := c.contacts.Get(email); ok {
		return cached.(*model.Contact), nil
	}

	query := url.Values{}
	query.Set("email", email)

	var list contactList
	if err := c.do(ctx, "find_contact", http.MethodGet, "/contacts", query, nil, &list); err != nil {
		return nil, err
	}
	if len(list.Contacts) == 0 {
		return nil, nil
	}

	contact := list.Contacts[0]
	c.contacts.SetDefault(email, contact)
	return contact, nil
}

// Filter selects contacts by custom field values. Used to resolve activity
// webhooks that carry an attendee id instead of an email.
func (c *Client) Filter(ctx context.Context, filter model.ContactFilter) ([]*model.Contact, error) {
	var list contactList
	if err := c.do(ctx, "filter_contacts", http.MethodPost, "/contacts/filter", nil, filter, &list); err != nil {
		return nil, err
	}
	return list.Contacts, nil
}

func (c *Client) Create(ctx context.Context, contact *model.Contact) (*model.Contact, error) {
	var created model.Contact
	if err := c.do(ctx, "create_contact", http.MethodPost, "/contacts", nil, contact, &created); err != nil {
		return nil, err
	}
	c.contacts.SetDefault(created.Email, &created)
	return &created, nil
}

func (c *Client) Update(ctx context.Context, contact *model.Contact) (*model.Contact, error) {
	if contact.ID == "" {
		return nil, apperrors.Upstream("cannot update contact without id", fmt.Errorf("missing contact id"))
	}

	var updated model.Contact
	if err := c.do(ctx, "update_contact", http.MethodPatch, "/contacts/"+contact.ID, nil, contact, &updated); err != nil {
		return nil, err
	}
	c.contacts.SetDefault(updated.Email, &updated)
	return &updated, nil
}
