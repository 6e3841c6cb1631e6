package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// AuthUseCase describes registration, authentication and the
// password-reset flow.
type AuthUseCase interface {
	Register(ctx context.Context, name, email, password string) (AuthResult, error)
	Login(ctx context.Context, email, password string) (AuthResult, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
}

type AuthResult struct {
	User  User
	Token string
}

type authService struct {
	users    UserRepository
	resets   ResetTokenRepository
	tokens   TokenGenerator
	mailer   Mailer
	resetTTL time.Duration
	log      *logrus.Logger
}

// NewAuthService returns default implementation of AuthUseCase.
func NewAuthService(users UserRepository, resets ResetTokenRepository, tokens TokenGenerator, mailer Mailer, resetTTL time.Duration, log *logrus.Logger) AuthUseCase {
	return &authService{
		users:    users,
		resets:   resets,
		tokens:   tokens,
		mailer:   mailer,
		resetTTL: resetTTL,
		log:      log,
	}
}

func (s *authService) Register(ctx context.Context, name, email, password string) (AuthResult, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if name == "" || email == "" || password == "" {
		return AuthResult{}, ErrInvalidCredentials
	}
	// Bare addr-spec only; display-name forms like "A <a@x>" are not
	// an account email.
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return AuthResult{}, ErrInvalidCredentials
	}

	// If user exists, fail fast (best-effort check; the unique index
	// on email catches the race)
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return AuthResult{}, ErrUserAlreadyExists
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return AuthResult{}, err
	}

	now := time.Now().UTC()
	user := User{
		ID:           uuid.New(),
		Name:         name,
		Email:        email,
		PasswordHash: string(passwordHash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return AuthResult{}, err
	}
	token, err := s.tokens.Generate(ctx, user)
	if err != nil {
		return AuthResult{}, err
	}
	s.log.WithField("email", user.Email).Info("user registered")
	return AuthResult{User: user, Token: token}, nil
}

func (s *authService) Login(ctx context.Context, email, password string) (AuthResult, error) {
	// Unknown email and wrong password intentionally return the same
	// error so the two cases cannot be told apart.
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return AuthResult{}, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return AuthResult{}, ErrInvalidCredentials
	}
	token, err := s.tokens.Generate(ctx, user)
	if err != nil {
		return AuthResult{}, err
	}
	s.log.WithField("email", user.Email).Info("user logged in")
	return AuthResult{User: user, Token: token}, nil
}

// RequestPasswordReset creates a one-time token and mails the reset
// link. For unknown emails it returns nil without side effects, so the
// HTTP response is identical either way. Earlier tokens for the same
// user stay valid until they expire.
func (s *authService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}

	plaintext, err := newResetValue()
	if err != nil {
		return err
	}
	tokenHash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	token := ResetToken{
		ID:        uuid.New(),
		UserID:    user.ID,
		TokenHash: string(tokenHash),
		ExpiresAt: now.Add(s.resetTTL),
		CreatedAt: now,
	}
	if err := s.resets.Create(ctx, token); err != nil {
		return err
	}

	// The token row is not rolled back on mail failure; it stays
	// unreachable until it expires.
	if err := s.mailer.SendPasswordReset(ctx, user.Email, plaintext); err != nil {
		s.log.WithField("email", user.Email).WithError(err).Error("failed to send reset email")
		return err
	}
	s.log.WithField("email", user.Email).Info("password reset requested")
	return nil
}

// ResetPassword consumes a reset token and stores the new password.
// The token hash is one-way, so the match walks every live row and
// compares with bcrypt rather than looking up by equality.
func (s *authService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if token == "" || newPassword == "" {
		return ErrInvalidToken
	}

	candidates, err := s.resets.ListActive(ctx, time.Now().UTC())
	if err != nil {
		return err
	}
	var matched *ResetToken
	for i := range candidates {
		if bcrypt.CompareHashAndPassword([]byte(candidates[i].TokenHash), []byte(token)) == nil {
			matched = &candidates[i]
			break
		}
	}
	if matched == nil {
		return ErrInvalidToken
	}

	user, err := s.users.GetByID(ctx, matched.UserID)
	if err != nil {
		return err
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, user.ID, string(passwordHash)); err != nil {
		return err
	}
	if err := s.resets.Delete(ctx, matched.ID); err != nil {
		return err
	}
	s.log.WithField("email", user.Email).Info("password reset completed")
	return nil
}

// normalizeEmail is the canonical form stored and looked up everywhere:
// trimmed and lowercased.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// newResetValue returns 32 random bytes hex-encoded.
func newResetValue() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
