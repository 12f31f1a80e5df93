package store

import (
	"context"

	"github.com/formpilot/formpilot/internal/models"
)

// Store defines all persistence operations the handlers need. It abstracts
// Postgres so higher layers never depend on a specific database.
type Store interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	CreateForm(ctx context.Context, form *models.Form) error
	GetFormByID(ctx context.Context, id string) (*models.Form, error)
	ListFormsByUser(ctx context.Context, userID string) ([]models.Form, error)
	UpdateForm(ctx context.Context, form *models.Form) error
	UpdateFormStatus(ctx context.Context, id, status, errMsg string) error
	DeleteForm(ctx context.Context, id string) error
	SetFavorite(ctx context.Context, id string, favorite bool) error

	CreateProfile(ctx context.Context, profile *models.AutofillProfile) error
	GetProfileByID(ctx context.Context, id string) (*models.AutofillProfile, error)
	ListProfilesByUser(ctx context.Context, userID string) ([]models.AutofillProfile, error)
	UpdateProfile(ctx context.Context, profile *models.AutofillProfile) error
	DeleteProfile(ctx context.Context, id string) error

	CreateMessage(ctx context.Context, msg *models.Message) error
	ListMessages(ctx context.Context) ([]models.Message, error)
	DeleteMessage(ctx context.Context, id, userID string) error

	Close() error
}
