package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/cli2468/Vision-sub000/internal/domain"
	"github.com/cli2468/Vision-sub000/internal/store"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidSignup      = errors.New("invalid registration")
)

const (
	issuer            = "resell-ledger"
	minPasswordLength = 8
)

// Manager checks passwords against the account store and issues the
// HS256 identity tokens a device keeps to restore its session.
type Manager struct {
	secret   []byte
	tokenTTL time.Duration
	accounts store.AccountStore
	now      func() time.Time
}

type identityClaims struct {
	jwtlib.RegisteredClaims
	Email       string `json:"email"`
	DisplayName string `json:"name,omitempty"`
}

func NewManager(secret string, tokenTTL time.Duration, accounts store.AccountStore) *Manager {
	if secret == "" {
		secret = "dev-change-me"
	}
	if tokenTTL <= 0 {
		tokenTTL = 30 * 24 * time.Hour
	}
	return &Manager{
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		accounts: accounts,
		now:      time.Now,
	}
}

func (m *Manager) Login(ctx context.Context, req domain.LoginRequest) (domain.LoginResponse, error) {
	account, err := m.accounts.FindAccountByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.LoginResponse{}, ErrInvalidCredentials
		}
		return domain.LoginResponse{}, err
	}
	if !verifyPassword(account.PasswordHash, req.Password) {
		return domain.LoginResponse{}, ErrInvalidCredentials
	}
	return m.issue(account.User())
}

func (m *Manager) Register(ctx context.Context, req domain.RegisterRequest) (domain.LoginResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return domain.LoginResponse{}, fmt.Errorf("%w: email is not valid", ErrInvalidSignup)
	}
	if len(req.Password) < minPasswordLength {
		return domain.LoginResponse{}, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidSignup, minPasswordLength)
	}

	passwordHash, err := hashPassword(req.Password)
	if err != nil {
		return domain.LoginResponse{}, fmt.Errorf("failed to hash password")
	}
	account, err := m.accounts.CreateAccount(ctx, domain.Account{
		Email:        email,
		DisplayName:  strings.TrimSpace(req.DisplayName),
		PasswordHash: passwordHash,
		CreatedAt:    m.now().UTC(),
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return domain.LoginResponse{}, ErrEmailTaken
		}
		return domain.LoginResponse{}, err
	}
	return m.issue(account.User())
}

// ParseToken returns the user a token was issued to.
func (m *Manager) ParseToken(tokenStr string) (domain.User, error) {
	claims := &identityClaims{}
	token, err := jwtlib.ParseWithClaims(tokenStr, claims, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	}, jwtlib.WithValidMethods([]string{"HS256"}), jwtlib.WithIssuer(issuer), jwtlib.WithTimeFunc(m.now))
	if err != nil || !token.Valid {
		return domain.User{}, ErrInvalidToken
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return domain.User{}, ErrInvalidToken
	}
	return domain.User{ID: sub, Email: claims.Email, DisplayName: claims.DisplayName}, nil
}

func (m *Manager) issue(user domain.User) (domain.LoginResponse, error) {
	now := m.now().UTC()
	expiresAt := now.Add(m.tokenTTL)
	claims := identityClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID,
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(expiresAt),
			Issuer:    issuer,
		},
		Email:       user.Email,
		DisplayName: user.DisplayName,
	}
	token, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return domain.LoginResponse{}, err
	}
	return domain.LoginResponse{
		Token:     token,
		User:      user,
		ExpiresAt: expiresAt.Format(time.RFC3339),
	}, nil
}

func verifyPassword(stored string, input string) bool {
	if stored == "" || strings.TrimSpace(input) == "" || !isPasswordHash(stored) {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(input)) == nil
}

func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

func isPasswordHash(value string) bool {
	return strings.HasPrefix(value, "$2a$") || strings.HasPrefix(value, "$2b$") || strings.HasPrefix(value, "$2y$")
}
