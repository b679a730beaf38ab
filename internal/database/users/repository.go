// Package users provides database operations for user accounts.
//
// # Usage
//
//	repo := users.NewRepository(db)
//	matches, err := repo.Find(ctx, "a@b.com")
package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/mrlokans/mycv/internal/entities"
)

var (
	ErrNotFound   = errors.New("user not found")
	ErrEmailTaken = errors.New("email already taken")
)

// Attrs is a partial update. Nil fields are left untouched.
type Attrs struct {
	Email    *string
	Password *string
	Admin    *bool
}

// Repository handles all user database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new users repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Find returns users with the given email ordered by id.
// An empty email returns every user.
func (r *Repository) Find(ctx context.Context, email string) ([]entities.User, error) {
	var found []entities.User
	query := r.db.WithContext(ctx).Order("id ASC")
	if email != "" {
		query = query.Where("email = ?", email)
	}
	if err := query.Find(&found).Error; err != nil {
		return nil, fmt.Errorf("failed to find users: %w", err)
	}
	return found, nil
}

// FindOne retrieves a user by id.
func (r *Repository) FindOne(ctx context.Context, id uint) (*entities.User, error) {
	var user entities.User
	err := r.db.WithContext(ctx).First(&user, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load user %d: %w", id, err)
	}
	return &user, nil
}

// Create inserts a user. credential must already be hashed.
func (r *Repository) Create(ctx context.Context, email, credential string, admin bool) (*entities.User, error) {
	user := &entities.User{
		Email:    email,
		Password: credential,
		Admin:    admin,
	}
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	log.Ctx(ctx).Info().Uint("user_id", user.ID).Msgf("Inserted User with id %d", user.ID)
	return user, nil
}

// Update applies attrs to the user and returns the stored result.
func (r *Repository) Update(ctx context.Context, id uint, attrs Attrs) (*entities.User, error) {
	user, err := r.FindOne(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if attrs.Email != nil {
		updates["email"] = *attrs.Email
	}
	if attrs.Password != nil {
		updates["password"] = *attrs.Password
	}
	if attrs.Admin != nil {
		updates["admin"] = *attrs.Admin
	}
	if len(updates) == 0 {
		return user, nil
	}

	if err := r.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to update user %d: %w", id, err)
	}

	log.Ctx(ctx).Info().Uint("user_id", user.ID).Msgf("Updated User with id %d", user.ID)
	return r.FindOne(ctx, id)
}

// Remove deletes the user and the reports they own, returning the removed record.
func (r *Repository) Remove(ctx context.Context, id uint) (*entities.User, error) {
	user, err := r.FindOne(ctx, id)
	if err != nil {
		return nil, err
	}

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&entities.Report{}).Error; err != nil {
			return err
		}
		return tx.Delete(&entities.User{}, id).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to remove user %d: %w", id, err)
	}

	log.Ctx(ctx).Info().Uint("user_id", id).Msgf("Removed User with id %d", id)
	return user, nil
}

// Count returns the number of users.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entities.User{}).Count(&count).Error
	return count, err
}
