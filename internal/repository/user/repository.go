package user

import (
	"context"

	"storefront-checkout/internal/domain"
)

// Repository persists and fetches storefront users.
type Repository interface {
	Create(ctx context.Context, u domain.User) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}
