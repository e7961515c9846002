package service

import (
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"github.com/bark-labs/pushover-cli/internal/config"
	"github.com/bark-labs/pushover-cli/internal/crypto"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// AuthService handles relay authentication and JWT issuance.
type AuthService struct {
	enabled  bool
	username string
	password string
	secret   []byte
}

const (
	tokenIssuer = "pushover-relay"
	tokenTTL    = 12 * time.Hour
)

// ErrInvalidCredentials is returned on a failed login.
var ErrInvalidCredentials = errors.New("invalid username or password")

// Claims represents JWT payload.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// NewAuthService builds AuthService from config. A random signing secret is
// generated when none is configured, so tokens do not survive a restart.
func NewAuthService(cfg *config.Config) (*AuthService, error) {
	authCfg := cfg.Auth
	username := strings.TrimSpace(authCfg.Username)
	if username == "" {
		username = "admin"
	}
	secret := strings.TrimSpace(authCfg.JWTSecret)
	if secret == "" {
		generated, err := crypto.GenerateString(48)
		if err != nil {
			return nil, err
		}
		secret = generated
	}
	return &AuthService{
		enabled:  authCfg.Enabled,
		username: username,
		password: strings.TrimSpace(authCfg.Password),
		secret:   []byte(secret),
	}, nil
}

// Enabled reports whether authentication is enforced.
func (a *AuthService) Enabled() bool {
	return a != nil && a.enabled
}

// Username returns configured relay username.
func (a *AuthService) Username() string {
	if a == nil {
		return ""
	}
	return a.username
}

// Authenticate validates user credentials and returns a JWT token.
func (a *AuthService) Authenticate(username, password string) (string, error) {
	if !a.Enabled() {
		return "", nil
	}
	if a.password == "" || !a.matchUsername(username) || !a.matchPassword(password) {
		return "", ErrInvalidCredentials
	}
	now := time.Now()
	claims := Claims{
		Username: a.username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   a.username,
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", err
	}
	return signed, nil
}

// Validate parses a token and returns its claims if valid.
func (a *AuthService) Validate(token string) (*Claims, error) {
	if !a.Enabled() {
		return &Claims{Username: "anonymous"}, nil
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(tokenIssuer))
	if err != nil {
		return nil, err
	}
	if claims, ok := parsed.Claims.(*Claims); ok && parsed.Valid {
		return claims, nil
	}
	return nil, errors.New("token is invalid")
}

func (a *AuthService) matchUsername(input string) bool {
	return subtle.ConstantTimeCompare([]byte(strings.TrimSpace(input)), []byte(a.username)) == 1
}

func (a *AuthService) matchPassword(input string) bool {
	if isBcryptHash(a.password) {
		return bcrypt.CompareHashAndPassword([]byte(a.password), []byte(input)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(input), []byte(a.password)) == 1
}

func isBcryptHash(value string) bool {
	for _, prefix := range []string{"$2a$", "$2b$", "$2y$"} {
		if strings.HasPrefix(value, prefix) {
			return true
		}
	}
	return false
}
