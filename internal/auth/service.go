package auth

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/mrlokans/mycv/internal/database/users"
	"github.com/mrlokans/mycv/internal/entities"
	"github.com/mrlokans/mycv/internal/telemetry"
)

// UserStore is the persistence the auth flow depends on.
type UserStore interface {
	Find(ctx context.Context, email string) ([]entities.User, error)
	FindOne(ctx context.Context, id uint) (*entities.User, error)
	Create(ctx context.Context, email, credential string, admin bool) (*entities.User, error)
	Update(ctx context.Context, id uint, attrs users.Attrs) (*entities.User, error)
	Remove(ctx context.Context, id uint) (*entities.User, error)
}

var _ UserStore = (*users.Repository)(nil)

// UpdateUserInput is a partial profile update. Nil fields are left untouched.
type UpdateUserInput struct {
	Email    *string
	Password *string
}

// Service orchestrates signup and signin and owns user account changes.
// It holds no state of its own beyond its collaborators.
type Service struct {
	store          UserStore
	hasher         *Hasher
	adminByDefault bool
}

// NewService creates a new authentication service.
func NewService(store UserStore, hasher *Hasher, adminByDefault bool) *Service {
	return &Service{
		store:          store,
		hasher:         hasher,
		adminByDefault: adminByDefault,
	}
}

// Signup creates an account for an unused email.
func (s *Service) Signup(ctx context.Context, email, password string) (*entities.User, error) {
	ctx, span := telemetry.StartSpan(ctx, "auth.signup", trace.WithAttributes(
		attribute.String("layer", "logic"),
	))
	defer span.End()

	user, err := s.CreateUser(ctx, email, password, s.adminByDefault)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Int64("user.id", int64(user.ID)))
	return user, nil
}

// CreateUser is Signup with an explicit admin flag.
func (s *Service) CreateUser(ctx context.Context, email, password string, admin bool) (*entities.User, error) {
	existing, err := s.store.Find(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("lookup email: %w", err)
	}
	if len(existing) > 0 {
		return nil, fmt.Errorf("signup %q: %w", email, ErrEmailInUse)
	}

	credential, err := s.hasher.NewCredential(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.store.Create(ctx, email, credential, admin)
	if err != nil {
		// a concurrent signup won between Find and Create
		if errors.Is(err, users.ErrEmailTaken) {
			return nil, fmt.Errorf("signup %q: %w", email, ErrEmailInUse)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// Signin returns the first user with email if password matches.
func (s *Service) Signin(ctx context.Context, email, password string) (*entities.User, error) {
	ctx, span := telemetry.StartSpan(ctx, "auth.signin", trace.WithAttributes(
		attribute.String("layer", "logic"),
	))
	defer span.End()

	found, err := s.store.Find(ctx, email)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("lookup email: %w", err)
	}
	if len(found) == 0 {
		span.SetAttributes(attribute.Bool("auth.success", false))
		span.AddEvent("authentication.failed")
		return nil, fmt.Errorf("signin %q: %w", email, ErrUserNotFound)
	}

	user := found[0]
	if err := s.hasher.Verify(user.Password, password); err != nil {
		span.SetAttributes(attribute.Bool("auth.success", false))
		span.AddEvent("authentication.failed")
		return nil, fmt.Errorf("signin %q: %w", email, err)
	}

	span.SetAttributes(attribute.Bool("auth.success", true), attribute.Int64("user.id", int64(user.ID)))
	return &user, nil
}

// FindUser loads a user by id.
func (s *Service) FindUser(ctx context.Context, id uint) (*entities.User, error) {
	user, err := s.store.FindOne(ctx, id)
	if err != nil {
		return nil, mapStoreError(id, err)
	}
	return user, nil
}

// FindUsers lists users with the given email, or all users when email is empty.
func (s *Service) FindUsers(ctx context.Context, email string) ([]entities.User, error) {
	return s.store.Find(ctx, email)
}

// UpdateUser applies a profile change. A new password is hashed before storage.
func (s *Service) UpdateUser(ctx context.Context, id uint, in UpdateUserInput) (*entities.User, error) {
	ctx, span := telemetry.StartSpan(ctx, "auth.update_user")
	defer span.End()

	attrs := users.Attrs{Email: in.Email}
	if in.Password != nil {
		credential, err := s.hasher.NewCredential(*in.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		attrs.Password = &credential
	}

	user, err := s.store.Update(ctx, id, attrs)
	if err != nil {
		span.RecordError(err)
		return nil, mapStoreError(id, err)
	}
	return user, nil
}

// SetAdmin grants or revokes the admin flag.
func (s *Service) SetAdmin(ctx context.Context, id uint, admin bool) (*entities.User, error) {
	user, err := s.store.Update(ctx, id, users.Attrs{Admin: &admin})
	if err != nil {
		return nil, mapStoreError(id, err)
	}
	return user, nil
}

// RemoveUser deletes a user and returns the removed record.
func (s *Service) RemoveUser(ctx context.Context, id uint) (*entities.User, error) {
	user, err := s.store.Remove(ctx, id)
	if err != nil {
		return nil, mapStoreError(id, err)
	}
	return user, nil
}

func mapStoreError(id uint, err error) error {
	switch {
	case errors.Is(err, users.ErrNotFound):
		return fmt.Errorf("user %d: %w", id, ErrNotFound)
	case errors.Is(err, users.ErrEmailTaken):
		return fmt.Errorf("user %d: %w", id, ErrEmailInUse)
	default:
		return err
	}
}
