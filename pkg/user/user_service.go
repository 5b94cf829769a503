package user

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// Provider is the read-only view other packages take on the registry.
type Provider interface {
	GetUser(ctx context.Context, id int64) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
}

type Service interface {
	Provider
	RegisterUser(ctx context.Context, u User) (User, error)
	LinkExternalAccount(ctx context.Context, id int64, email string) error
}

type ServiceImpl struct {
	repo Repo
}

func NewUserService(repo Repo) *ServiceImpl {
	return &ServiceImpl{repo: repo}
}

func (s *ServiceImpl) RegisterUser(ctx context.Context, u User) (User, error) {
	if u.Id == 0 {
		return User{}, fmt.Errorf("user id is required")
	}
	if u.DisplayName == "" {
		return User{}, fmt.Errorf("display name is required")
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return User{}, err
	}
	log.Infof("registered user %d (%s)", u.Id, u.DisplayName)
	return s.repo.Get(ctx, u.Id)
}

func (s *ServiceImpl) GetUser(ctx context.Context, id int64) (User, error) {
	return s.repo.Get(ctx, id)
}

func (s *ServiceImpl) ListUsers(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

func (s *ServiceImpl) LinkExternalAccount(ctx context.Context, id int64, email string) error {
	if email == "" {
		return fmt.Errorf("email is required")
	}
	if err := s.repo.SetExternalEmail(ctx, id, email); err != nil {
		return err
	}
	log.Infof("linked external account for user %d", id)
	return nil
}
