package storage

import (
	"context"
	"errors"

	"github.com/skyward-ops/droneops/internal/core/domain"
	"gorm.io/gorm"
)

// Save creates or updates a user account.
func (a *SQLiteAdapter) Save(ctx context.Context, user domain.User) error {
	model := UserModel{
		ID:           user.ID,
		Username:     user.Username,
		PasswordHash: user.PasswordHash,
		Role:         string(user.Role),
		CreatedAt:    user.CreatedAt,
		LastLogin:    user.LastLogin,
	}
	return a.db.WithContext(ctx).Save(&model).Error
}

// GetByUsername fetches a user by username; nil when absent.
func (a *SQLiteAdapter) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	var model UserModel
	err := a.db.WithContext(ctx).Where("username = ?", username).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return userToDomain(&model), nil
}

// GetByID fetches a user by ID; nil when absent.
func (a *SQLiteAdapter) GetByID(ctx context.Context, id string) (*domain.User, error) {
	var model UserModel
	err := a.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return userToDomain(&model), nil
}
