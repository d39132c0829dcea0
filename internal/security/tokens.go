package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/eaglebank/ge-api/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken covers every verification failure: malformed, bad
// signature, expired, or signed for the other key class.
var ErrInvalidToken = errors.New("invalid token")

type KeyClass int

const (
	AccessKey KeyClass = iota
	RefreshKey
)

func (k KeyClass) String() string {
	if k == RefreshKey {
		return "refresh"
	}
	return "access"
}

// Claims is the JWT payload.
type Claims struct {
	UserID int64  `json:"userId"`
	Email  string `json:"email"`
	Use    string `json:"use"`
	jwt.RegisteredClaims
}

type TokenConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
}

// TokenIssuer signs and verifies HS256 tokens. Access and refresh tokens use
// separate secrets.
type TokenIssuer struct {
	accessKey  []byte
	refreshKey []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	issuer     string
	now        func() time.Time
}

func NewTokenIssuer(cfg TokenConfig) (*TokenIssuer, error) {
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, errors.New("access and refresh secrets are required")
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		return nil, errors.New("access and refresh secrets must differ")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("token TTLs must be positive")
	}
	return &TokenIssuer{
		accessKey:  []byte(cfg.AccessSecret),
		refreshKey: []byte(cfg.RefreshSecret),
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		issuer:     cfg.Issuer,
		now:        time.Now,
	}, nil
}

func (t *TokenIssuer) IssueAccess(p models.Principal) (string, error) {
	return t.issue(p, AccessKey)
}

func (t *TokenIssuer) IssueRefresh(p models.Principal) (string, error) {
	return t.issue(p, RefreshKey)
}

func (t *TokenIssuer) IssuePair(p models.Principal) (models.TokenPair, error) {
	access, err := t.IssueAccess(p)
	if err != nil {
		return models.TokenPair{}, err
	}
	refresh, err := t.IssueRefresh(p)
	if err != nil {
		return models.TokenPair{}, err
	}
	return models.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Verify parses token with the key for class and returns its principal.
func (t *TokenIssuer) Verify(token string, class KeyClass) (models.Principal, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	}
	if t.issuer != "" {
		opts = append(opts, jwt.WithIssuer(t.issuer))
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return t.key(class), nil
	}, opts...)
	if err != nil || !parsed.Valid {
		return models.Principal{}, ErrInvalidToken
	}
	if claims.Use != class.String() || claims.UserID <= 0 {
		return models.Principal{}, ErrInvalidToken
	}
	return models.Principal{ID: claims.UserID, Email: claims.Email}, nil
}

func (t *TokenIssuer) issue(p models.Principal, class KeyClass) (string, error) {
	ttl := t.accessTTL
	if class == RefreshKey {
		ttl = t.refreshTTL
	}
	now := t.now()
	claims := Claims{
		UserID: p.ID,
		Email:  p.Email,
		Use:    class.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    t.issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.key(class))
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", class, err)
	}
	return signed, nil
}

func (t *TokenIssuer) key(class KeyClass) []byte {
	if class == RefreshKey {
		return t.refreshKey
	}
	return t.accessKey
}
