package user

import (
	"context"
	"sync"
)

type StubUserRepo struct {
	mu    sync.Mutex
	Users map[int64]User
}

func NewStubUserRepo() *StubUserRepo {
	return &StubUserRepo{Users: map[int64]User{}}
}

func (s *StubUserRepo) Create(ctx context.Context, u User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.Users[u.Id]; ok {
		return ErrUserExists
	}
	s.Users[u.Id] = u
	return nil
}

func (s *StubUserRepo) Get(ctx context.Context, id int64) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.Users[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}

func (s *StubUserRepo) List(ctx context.Context) ([]User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users := make([]User, 0, len(s.Users))
	for _, u := range s.Users {
		users = append(users, u)
	}
	return users, nil
}

func (s *StubUserRepo) SetExternalEmail(ctx context.Context, id int64, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.Users[id]
	if !ok {
		return ErrUserNotFound
	}
	u.ExternalEmail = email
	s.Users[id] = u
	return nil
}

func (s *StubUserRepo) SetCalendarId(ctx context.Context, id int64, calendarId string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.Users[id]
	if !ok {
		return ErrUserNotFound
	}
	if u.CalendarId != "" && u.CalendarId != calendarId {
		return ErrAlreadyProvisioned
	}
	u.CalendarId = calendarId
	s.Users[id] = u
	return nil
}

func (s *StubUserRepo) SetAclId(ctx context.Context, id int64, aclId string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.Users[id]
	if !ok {
		return ErrUserNotFound
	}
	if u.AclId != "" && u.AclId != aclId {
		return ErrAlreadyProvisioned
	}
	u.AclId = aclId
	s.Users[id] = u
	return nil
}

func (s *StubUserRepo) ClearAclId(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.Users[id]
	if !ok {
		return ErrUserNotFound
	}
	u.AclId = ""
	s.Users[id] = u
	return nil
}
