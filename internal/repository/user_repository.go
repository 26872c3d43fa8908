package repository

import (
	"context"

	"shop/internal/domain/model"
)

type UserRepository interface {
	FindByID(ctx context.Context, userID int64) (model.User, error)
	FindByEmail(ctx context.Context, email string) (model.User, error)
	Create(ctx context.Context, u model.User) (int64, error)
	UpdateLastLoginAt(ctx context.Context, userID int64) error
}
