// Package auth signs back-office users in and manages their accounts.
package auth

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"nongxian/apperr"
	"nongxian/middleware"
	"nongxian/models"
	"nongxian/permissions"
	"nongxian/store"
)

// ErrInvalidCredentials covers unknown emails, wrong passwords and disabled
// accounts alike.
var ErrInvalidCredentials = errors.New("帳號或密碼錯誤")

type Session struct {
	Token       string           `json:"token"`
	ExpiresAt   time.Time        `json:"expiresAt"`
	User        models.AdminUser `json:"user"`
	Permissions []string         `json:"permissions"`
}

type Service struct {
	admins store.Repository[models.AdminUser]
	ttl    time.Duration
	now    func() time.Time
}

func NewService(admins store.Repository[models.AdminUser], ttl time.Duration) *Service {
	return &Service{admins: admins, ttl: ttl, now: time.Now}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) byEmail(ctx context.Context, email string) (models.AdminUser, error) {
	users, err := s.admins.GetWhere(ctx, "email", store.Eq, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return models.AdminUser{}, err
	}
	if len(users) == 0 {
		return models.AdminUser{}, apperr.NotFoundError("找不到使用者", nil)
	}
	return users[0], nil
}

// Login checks the password and issues a bearer token.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	user, err := s.byEmail(ctx, email)
	if apperr.Is(err, apperr.NotFound) {
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, apperr.InternalError("登入失敗", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return Session{}, ErrInvalidCredentials
	}
	if !user.IsActive {
		return Session{}, ErrInvalidCredentials
	}

	now := s.now()
	token, err := middleware.NewToken(middleware.Claims{
		UserID:      user.UID,
		Email:       user.Email,
		Role:        user.Role,
		Permissions: user.Permissions,
	}, s.ttl, now)
	if err != nil {
		return Session{}, apperr.InternalError("無法產生登入憑證", err)
	}

	if err := s.admins.Update(ctx, user.UID, map[string]any{"lastLoginAt": now}); err != nil {
		log.Printf("auth: record last login for %s: %v", user.UID, err)
	}
	user.LastLoginAt = &now
	return Session{
		Token:       token,
		ExpiresAt:   now.Add(s.ttl),
		User:        user,
		Permissions: permissions.Effective(user),
	}, nil
}

// Me returns the signed-in user with their effective permissions.
func (s *Service) Me(ctx context.Context, uid string) (models.AdminUser, []string, error) {
	user, err := s.admins.GetByID(ctx, uid)
	if err != nil {
		return models.AdminUser{}, nil, err
	}
	return user, permissions.Effective(user), nil
}
