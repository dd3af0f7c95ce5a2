package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/lessonhub/internal/domain/entity"
	repo "github.com/oksasatya/lessonhub/internal/domain/repository"
	"github.com/oksasatya/lessonhub/pkg/apperror"
	"github.com/oksasatya/lessonhub/pkg/helpers"
)

var (
	ErrInvalidCredentials = apperror.New(apperror.KindAuthentication, "invalid credentials")
	ErrEmailTaken         = apperror.New(apperror.KindConflict, "email already registered")
	ErrUserNotFound       = apperror.New(apperror.KindNotFound, "user not found")
	ErrWrongPassword      = apperror.New(apperror.KindAuthentication, "current password is incorrect")
)

type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, digest string) bool
}

type TokenIssuer interface {
	Issue(userID, email string) (string, time.Time, error)
}

// Session is a freshly issued token; it only ever leaves the server in the cookie.
type Session struct {
	Token     string
	ExpiresAt time.Time
}

type Service struct {
	Repo   repo.UserRepository
	Hasher PasswordHasher
	Tokens TokenIssuer
	Logger *logrus.Logger

	dummyOnce sync.Once
	dummy     string
}

func NewService(repo repo.UserRepository, hasher PasswordHasher, tokens TokenIssuer, logger *logrus.Logger) *Service {
	return &Service{Repo: repo, Hasher: hasher, Tokens: tokens, Logger: logger}
}

type RegisterInput struct {
	Name        string
	Email       string
	Password    string
	Institution string
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (*entity.User, Session, error) {
	hash, err := s.Hasher.Hash(in.Password)
	if err != nil {
		return nil, Session{}, passwordError("password", err)
	}
	u := &entity.User{
		Email:        in.Email,
		PasswordHash: hash,
		Name:         strings.TrimSpace(in.Name),
		Institution:  strings.TrimSpace(in.Institution),
		Role:         entity.RoleMember,
	}
	if err := s.Repo.Create(ctx, u); err != nil {
		if errors.Is(err, repo.ErrEmailTaken) {
			return nil, Session{}, ErrEmailTaken
		}
		return nil, Session{}, fmt.Errorf("create user: %w", err)
	}
	sess, err := s.issue(u)
	if err != nil {
		return nil, Session{}, err
	}
	s.Logger.WithField("user_id", u.ID).Info("user registered")
	return u, sess, nil
}

// Login answers ErrInvalidCredentials for an unknown email and for a wrong
// password alike, and spends the same hashing work on both paths.
func (s *Service) Login(ctx context.Context, email, password string) (*entity.User, Session, error) {
	u, err := s.Repo.FindByEmail(ctx, email)
	if errors.Is(err, repo.ErrNotFound) {
		s.Hasher.Verify(password, s.dummyHash())
		return nil, Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return nil, Session{}, fmt.Errorf("find user: %w", err)
	}
	if !s.Hasher.Verify(password, u.PasswordHash) {
		return nil, Session{}, ErrInvalidCredentials
	}
	sess, err := s.issue(u)
	if err != nil {
		return nil, Session{}, err
	}
	return u, sess, nil
}

func (s *Service) Profile(ctx context.Context, userID string) (*entity.User, error) {
	u, err := s.Repo.FindByID(ctx, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return u, nil
}

type UpdateProfileInput struct {
	Name        *string
	Institution *string
}

func (s *Service) UpdateProfile(ctx context.Context, userID string, in UpdateProfileInput) (*entity.User, error) {
	u, err := s.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		u.Name = strings.TrimSpace(*in.Name)
	}
	if in.Institution != nil {
		u.Institution = strings.TrimSpace(*in.Institution)
	}
	if err := s.Repo.Update(ctx, u); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	return u, nil
}

// ChangePassword replaces the stored hash after checking the current password.
// Existing sessions stay valid until they expire.
func (s *Service) ChangePassword(ctx context.Context, userID, current, next string) (*entity.User, error) {
	u, err := s.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !s.Hasher.Verify(current, u.PasswordHash) {
		return nil, ErrWrongPassword
	}
	hash, err := s.Hasher.Hash(next)
	if err != nil {
		return nil, passwordError("new_password", err)
	}
	if err := s.Repo.UpdatePassword(ctx, u.ID, hash); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("update password: %w", err)
	}
	u.PasswordHash = hash
	s.Logger.WithField("user_id", u.ID).Info("password changed")
	return u, nil
}

func (s *Service) issue(u *entity.User) (Session, error) {
	tok, exp, err := s.Tokens.Issue(u.ID, u.Email)
	if err != nil {
		return Session{}, fmt.Errorf("issue token: %w", err)
	}
	return Session{Token: tok, ExpiresAt: exp}, nil
}

func (s *Service) dummyHash() string {
	s.dummyOnce.Do(func() {
		h, err := s.Hasher.Hash("lessonhub-timing-equaliser")
		if err != nil {
			s.Logger.WithError(err).Error("dummy hash failed")
		}
		s.dummy = h
	})
	return s.dummy
}

func passwordError(field string, err error) error {
	switch {
	case errors.Is(err, helpers.ErrWeakPassword):
		return apperror.Validation("validation failed", map[string]string{
			field: fmt.Sprintf("must be at least %d characters", helpers.MinPasswordLength),
		})
	case errors.Is(err, helpers.ErrPasswordTooLong):
		return apperror.Validation("validation failed", map[string]string{
			field: fmt.Sprintf("must be at most %d bytes", helpers.MaxPasswordBytes),
		})
	}
	return fmt.Errorf("hash password: %w", err)
}
