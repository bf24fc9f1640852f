// Package service provides business logic between API handlers and data stores.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/qmsworks/qms/internal/domain"
	"github.com/qmsworks/qms/internal/models"
	"github.com/qmsworks/qms/internal/security"
)

// tokenIssuer is the iss claim of every token issued by the server.
const tokenIssuer = "qms-server"

// Access events recorded by AuthService.
const (
	AccessLoginSuccess = "login.success"
	AccessLoginFailure = "login.failure"
	AccessLoginBlocked = "login.blocked"
)

// Compile-time checks.
var (
	_ domain.AuthService     = (*AuthService)(nil)
	_ domain.Reauthenticator = (*AuthService)(nil)
)

// UserStore is the data-access interface AuthService depends on.
type UserStore interface {
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// Claims are the JWT claims carried by a session token. The subject is the user ID.
type Claims struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// AuthService authenticates users, issues bearer tokens and re-verifies
// passwords before signatures and approvals.
type AuthService struct {
	users  UserStore
	guard  *security.BruteForceGuard
	access domain.AccessRecorder
	secret []byte
	ttl    time.Duration
	log    *logrus.Logger
	now    func() time.Time
}

// NewAuthService creates an AuthService signing tokens with secret.
func NewAuthService(
	users UserStore, guard *security.BruteForceGuard, access domain.AccessRecorder,
	secret []byte, ttl time.Duration, log *logrus.Logger,
) *AuthService {
	return &AuthService{
		users:  users,
		guard:  guard,
		access: access,
		secret: secret,
		ttl:    ttl,
		log:    log,
		now:    time.Now,
	}
}

// dummyHash is compared against when the username is unknown so that failed
// logins take the same time whether or not the account exists.
var dummyHash = sync.OnceValue(func() []byte {
	h, err := bcrypt.GenerateFromPassword([]byte("qms-unknown-user"), bcrypt.DefaultCost)
	if err != nil {
		panic(fmt.Sprintf("generating dummy bcrypt hash: %v", err))
	}

	return h
})

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}

	return string(h), nil
}

// Login checks credentials and returns a signed token for the user.
func (s *AuthService) Login(
	ctx context.Context, req models.LoginRequest, meta models.ClientMeta,
) (*models.LoginResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	subject := "login:" + strings.ToLower(req.Username)
	if s.guard.IsBlocked(subject) {
		s.access.Record(AccessLoginBlocked, nil, req.Username, meta, nil)
		return nil, models.ErrTooManyAttempts
	}

	user, err := s.users.GetByUsername(ctx, req.Username)
	if err != nil && !errors.Is(err, models.ErrUserNotFound) {
		return nil, fmt.Errorf("loading user: %w", err)
	}

	hash := dummyHash()
	if user != nil {
		hash = []byte(user.PasswordHash)
	}

	if bcrypt.CompareHashAndPassword(hash, []byte(req.Password)) != nil || user == nil {
		s.access.Record(AccessLoginFailure, nil, req.Username, meta, nil)

		if s.guard.RecordFailure(subject) {
			return nil, models.ErrTooManyAttempts
		}

		return nil, models.ErrInvalidCredentials
	}

	s.guard.Reset(subject)

	token, expiresAt, err := s.issueToken(user)
	if err != nil {
		return nil, err
	}

	actor := actorFromUser(user)
	s.access.Record(AccessLoginSuccess, &actor, user.Username, meta, nil)

	return &models.LoginResponse{Token: token, ExpiresAt: expiresAt, User: *user}, nil
}

func (s *AuthService) issueToken(u *models.User) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.ttl)

	claims := Claims{
		Username: u.Username,
		Name:     u.Name,
		Email:    u.Email,
		Role:     u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   u.ID,
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing token: %w", err)
	}

	return signed, expiresAt, nil
}

// ValidateToken parses a bearer token and reloads the user it names, so
// deleted accounts and role changes take effect before the token expires.
func (s *AuthService) ValidateToken(ctx context.Context, tokenString string) (*models.Actor, error) {
	claims := &Claims{}

	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}

		return s.secret, nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, models.ErrInvalidToken
	}

	user, err := s.users.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			return nil, models.ErrInvalidToken
		}

		return nil, fmt.Errorf("loading token user: %w", err)
	}

	actor := actorFromUser(user)

	return &actor, nil
}

// CurrentUser returns the account behind userID.
func (s *AuthService) CurrentUser(ctx context.Context, userID string) (*models.User, error) {
	return s.users.GetByID(ctx, userID)
}

// Reauthenticate verifies password for the signed-in actor. Failures count
// toward a lockout separate from the login one.
func (s *AuthService) Reauthenticate(ctx context.Context, actor models.Actor, password string) error {
	subject := "reauth:" + actor.ID
	if s.guard.IsBlocked(subject) {
		return models.ErrTooManyAttempts
	}

	user, err := s.users.GetByID(ctx, actor.ID)
	if err != nil {
		return fmt.Errorf("loading signer: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		s.log.WithField("user_id", actor.ID).Warn("signature password verification failed")

		if s.guard.RecordFailure(subject) {
			return models.ErrTooManyAttempts
		}

		return models.ErrPasswordMismatch
	}

	s.guard.Reset(subject)

	return nil
}

func actorFromUser(u *models.User) models.Actor {
	return models.Actor{
		ID:       u.ID,
		Username: u.Username,
		Name:     u.Name,
		Email:    u.Email,
		Role:     u.Role,
	}
}
