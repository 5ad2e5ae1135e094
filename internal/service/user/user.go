package user

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/nkiryanov/nihondrill/internal/models"
	"github.com/nkiryanov/nihondrill/internal/repository"
)

var validate = validator.New()

type newUser struct {
	Name  string `validate:"required,max=256"`
	Email string `validate:"required,email,max=320"`
}

type UserService struct {
	userRepo repository.UserRepo
}

func NewService(userRepo repository.UserRepo) *UserService {
	return &UserService{
		userRepo: userRepo,
	}
}

// Upsert creates user or renames the existing one with the same email
// Email is trimmed and lower-cased, so 'Hana@Example.com ' and 'hana@example.com' are the same user
func (s *UserService) Upsert(ctx context.Context, name string, email string) (models.User, error) {
	var user models.User

	data := newUser{
		Name:  strings.TrimSpace(name),
		Email: strings.ToLower(strings.TrimSpace(email)),
	}
	if err := validate.Struct(data); err != nil {
		return user, fmt.Errorf("invalid user data. Err: %w", err)
	}

	user, err := s.userRepo.Upsert(ctx, data.Name, data.Email)
	if err != nil {
		return user, fmt.Errorf("can't save user. Err: %w", err)
	}

	return user, nil
}
