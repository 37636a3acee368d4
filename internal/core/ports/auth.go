package ports

import (
	"context"

	"github.com/skyward-ops/droneops/internal/core/domain"
)

// UserRepository persists user accounts.
type UserRepository interface {
	Save(ctx context.Context, user domain.User) error
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

// AuthService validates credentials and session tokens.
type AuthService interface {
	Login(ctx context.Context, creds domain.Credentials) (string, error)
	Logout(ctx context.Context, token string) error
	ValidateToken(ctx context.Context, token string) (*domain.User, error)
	CreateUser(ctx context.Context, user domain.User, password string) error
}
