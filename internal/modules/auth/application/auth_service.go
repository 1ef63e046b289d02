package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/saransh1220/filebox/internal/modules/auth/domain"
	"github.com/saransh1220/filebox/internal/modules/auth/infrastructure/jwt"
	"github.com/saransh1220/filebox/internal/shared/logging"
	"github.com/saransh1220/filebox/internal/shared/utils"
	"golang.org/x/crypto/bcrypt"
	"google.golang.org/api/idtoken"
)

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type GoogleLoginRequest struct {
	Token string `json:"token"`
}

// GoogleTokenValidator matches idtoken.Validate.
type GoogleTokenValidator func(ctx context.Context, token string, audience string) (*idtoken.Payload, error)

// AuthService is the identity provider: it owns users, issues session
// tokens and verifies them on every authenticated request.
type AuthService struct {
	repo                 domain.UserRepository
	revocations          domain.RevocationStore
	jwtSecret            string
	jwtExpiry            time.Duration
	googleClientID       string
	googleTokenValidator GoogleTokenValidator
	logger               *slog.Logger
}

type Option func(*AuthService)

// WithGoogle enables /login/google for the given OAuth client id.
func WithGoogle(clientID string, validator GoogleTokenValidator) Option {
	return func(s *AuthService) {
		s.googleClientID = clientID
		if validator != nil {
			s.googleTokenValidator = validator
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *AuthService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewAuthService(repo domain.UserRepository, revocations domain.RevocationStore, jwtSecret string, jwtExpiry time.Duration, opts ...Option) *AuthService {
	s := &AuthService{
		repo:                 repo,
		revocations:          revocations,
		jwtSecret:            jwtSecret,
		jwtExpiry:            jwtExpiry,
		googleTokenValidator: idtoken.Validate,
		logger:               slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a new user account
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*domain.User, error) {
	email := normalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return nil, domain.ErrMissingCredentials
	}
	if !utils.IsValidEmail(email) {
		return nil, domain.ErrInvalidEmail
	}
	if len(req.Password) < domain.MinPasswordLength {
		return nil, domain.ErrWeakPassword
	}

	hashedPass, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Email:        email,
		PasswordHash: string(hashedPass),
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "user registered", logging.UserID(user.ID))
	return user, nil
}

// Login checks the password and issues a session.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*domain.Session, error) {
	email := normalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return nil, domain.ErrMissingCredentials
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	// Google accounts have no password hash and cannot log in this way.
	if user.PasswordHash == "" {
		return nil, domain.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	return s.issueSession(user)
}

// GoogleLogin exchanges a Google ID token for a session, creating the user on first login.
func (s *AuthService) GoogleLogin(ctx context.Context, req GoogleLoginRequest) (*domain.Session, error) {
	if req.Token == "" {
		return nil, domain.ErrMissingCredentials
	}
	if s.googleClientID == "" {
		return nil, domain.ErrInvalidGoogleToken
	}

	payload, err := s.googleTokenValidator(ctx, req.Token, s.googleClientID)
	if err != nil {
		s.logger.WarnContext(ctx, "google token rejected", logging.Error(err))
		return nil, domain.ErrInvalidGoogleToken
	}

	email, _ := payload.Claims["email"].(string)
	email = normalizeEmail(email)
	if email == "" {
		return nil, domain.ErrInvalidGoogleToken
	}

	user, err := s.repo.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		user = &domain.User{Email: email}
		if err := s.repo.Create(ctx, user); err != nil {
			return nil, err
		}
		s.logger.InfoContext(ctx, "user registered via google", logging.UserID(user.ID))
	case err != nil:
		return nil, err
	}

	return s.issueSession(user)
}

func (s *AuthService) issueSession(user *domain.User) (*domain.Session, error) {
	token, claims, err := jwt.GenerateToken(s.jwtSecret, s.jwtExpiry, user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	return &domain.Session{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int64(s.jwtExpiry / time.Second),
		ExpiresAt:   claims.ExpiresAt.Unix(),
		User:        domain.SessionUser{ID: user.ID, Email: user.Email},
	}, nil
}

// Verify resolves a bearer token to the caller's Identity. It fails with
// ErrTokenMissing or ErrTokenInvalid; any other error is an outage.
func (s *AuthService) Verify(ctx context.Context, token string) (*domain.Identity, error) {
	if token == "" {
		return nil, domain.ErrTokenMissing
	}

	claims, err := jwt.ValidateToken(token, s.jwtSecret)
	if err != nil {
		return nil, domain.ErrTokenInvalid
	}

	revoked, err := s.revocations.IsRevoked(ctx, claims.ID)
	if err != nil {
		// fail closed, a token we cannot check is not trusted
		s.logger.ErrorContext(ctx, "revocation check failed", logging.Error(err))
		return nil, domain.ErrTokenInvalid
	}
	if revoked {
		return nil, domain.ErrTokenInvalid
	}

	user, err := s.repo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrTokenInvalid
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	return &domain.Identity{
		UserID:    user.ID,
		Email:     user.Email,
		Token:     token,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Logout revokes the presented token. Missing or already invalid tokens
// have nothing to revoke and succeed.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	claims, err := jwt.ValidateToken(token, s.jwtSecret)
	if err != nil {
		return nil
	}

	if err := s.revocations.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}

	s.logger.InfoContext(ctx, "user logged out", logging.UserID(claims.UserID))
	return nil
}
