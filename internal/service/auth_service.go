package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"gorm.io/gorm"

	"task-manager/internal/apperr"
	"task-manager/internal/auth"
	"task-manager/internal/model"
	"task-manager/internal/repository"
)

// LinkCodeTTL bounds how long a Telegram link code stays valid.
const LinkCodeTTL = 10 * time.Minute

// Session is the result of a successful register or login.
type Session struct {
	User  model.Profile
	Token string
}

// AuthService registers users and issues session tokens.
type AuthService struct {
	users  *repository.UserRepository
	hasher *auth.Hasher
	tokens *auth.Tokens
	now    func() time.Time
}

func NewAuthService(users *repository.UserRepository, hasher *auth.Hasher, tokens *auth.Tokens) *AuthService {
	return &AuthService{users: users, hasher: hasher, tokens: tokens, now: time.Now}
}

func (s *AuthService) Register(ctx context.Context, email, name, password string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	name = strings.TrimSpace(name)

	fields := map[string]string{}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		fields["email"] = "a valid email is required"
	}
	if name == "" {
		fields["name"] = "name is required"
	}
	if len(password) < auth.MinPasswordLength {
		fields["password"] = fmt.Sprintf("password must be at least %d characters", auth.MinPasswordLength)
	}
	if len(fields) > 0 {
		return nil, apperr.Validation("invalid registration").WithDetails(fields)
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, apperr.Validation("email already registered")
	} else if !repository.IsNotFound(err) {
		return nil, apperr.Database(err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "could not hash password", err)
	}

	user := model.User{Email: email, Name: name, Password: hash}
	if err := s.users.Create(ctx, &user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.Validation("email already registered")
		}
		return nil, apperr.Database(err)
	}
	return s.session(user)
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, apperr.Validation("email and password are required")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperr.Authentication("invalid email or password")
		}
		return nil, apperr.Database(err)
	}

	ok, err := s.hasher.Verify(password, user.Password)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "could not verify password", err)
	}
	if !ok {
		return nil, apperr.Authentication("invalid email or password")
	}
	return s.session(*user)
}

// Authenticate resolves a raw token to its user.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, apperr.Unauthorized("authentication required")
	}
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, apperr.Unauthorized("invalid or expired token")
	}
	return s.CurrentUser(ctx, claims.UserID)
}

func (s *AuthService) CurrentUser(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperr.Unauthorized("user no longer exists")
		}
		return nil, apperr.Database(err)
	}
	return user, nil
}

// IssueTelegramLinkCode creates a one-time code the user sends to the bot.
func (s *AuthService) IssueTelegramLinkCode(ctx context.Context, userID string) (string, time.Time, error) {
	code, err := newLinkCode()
	if err != nil {
		return "", time.Time{}, apperr.Wrap(apperr.CodeInternal, "could not create link code", err)
	}
	until := s.now().Add(LinkCodeTTL)
	if err := s.users.SetLinkCode(ctx, userID, code, until); err != nil {
		return "", time.Time{}, apperr.From(err)
	}
	return code, until, nil
}

func (s *AuthService) session(user model.User) (*Session, error) {
	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "could not issue token", err)
	}
	return &Session{User: user.Profile(), Token: token}, nil
}

const linkAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func newLinkCode() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = linkAlphabet[int(b)%len(linkAlphabet)]
	}
	return string(buf), nil
}
