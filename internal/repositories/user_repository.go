package repositories

import (
	"context"

	"github.com/vidtube/backend/internal/models"
)

// UserRepository defines the data access contract for users.
type UserRepository interface {
	Create(ctx context.Context, user models.User) error
	FindByID(ctx context.Context, id string) (models.User, error)
	// FindByIdentity matches the username or the email, ignoring case. Empty
	// arguments are not matched.
	FindByIdentity(ctx context.Context, username, email string) (models.User, error)
	FindByUsername(ctx context.Context, username string) (models.User, error)
	UpdateFields(ctx context.Context, id string, patch models.UserPatch) (models.User, error)
	DeleteByID(ctx context.Context, id string) error

	SetRefreshToken(ctx context.Context, id, token string) error
	// SwapRefreshToken replaces the stored refresh token only while it still
	// equals expected, returning ErrTokenMismatch otherwise.
	SwapRefreshToken(ctx context.Context, id, expected, next string) error
	ClearRefreshToken(ctx context.Context, id string) error
}
