package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Morsalin012/sushi-cafe-web/internal/core/domain"
	"github.com/Morsalin012/sushi-cafe-web/internal/port"
)

type UserService struct {
	store port.UserRepository
	options
}

func NewUserService(store port.UserRepository, opts ...Option) *UserService {
	return &UserService{store: store, options: buildOptions(opts)}
}

func (s *UserService) Create(ctx context.Context, name, email, phone string, role domain.Role) (*domain.User, error) {
	if role == "" {
		role = domain.RoleCustomer
	}
	u := domain.User{
		ID:        s.newID(),
		Name:      strings.TrimSpace(name),
		Email:     domain.NormalizeEmail(email),
		Phone:     strings.TrimSpace(phone),
		Role:      role,
		CreatedAt: s.now(),
	}
	if err := u.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "user created", "user_id", u.ID)
	return &u, nil
}

func (s *UserService) Get(ctx context.Context, id string) (*domain.User, error) {
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if u == nil {
		return nil, domain.NotFound("user.Get", "user", id)
	}
	return u, nil
}
