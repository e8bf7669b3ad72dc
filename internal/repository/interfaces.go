package repository

import (
	"context"

	"github.com/jwalitptl/airmeet-sync/internal/model"
)

// ContactRepository is the CRM-side contact surface. FindByEmail returning
// (nil, nil) means no contact exists for that email.
type ContactRepository interface {
	FindByEmail(ctx context.Context, email string) (*model.Contact, error)
	Filter(ctx context.Context, filter model.ContactFilter) ([]*model.Contact, error)
	Create(ctx context.Context, contact *model.Contact) (*model.Contact, error)
	Update(ctx context.Context, contact *model.Contact) (*model.Contact, error)
}

// ActivityRepository appends write-once activity records to a contact's
// history.
type ActivityRepository interface {
	CreateActivity(ctx context.Context, activity *model.Activity) error
}

// TagRepository attaches tags to a contact. Attaching an already-present tag
// is a no-op on the CRM side.
type TagRepository interface {
	AddTags(ctx context.Context, contactID string, tags []string) error
}
