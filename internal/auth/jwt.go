package auth

import (
	"crypto/subtle"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrMissingToken = errors.New("missing authorization token")
	ErrBadAdminKey  = errors.New("invalid admin key")
)

// Token kinds. A refresh token cannot authorize requests and an access token
// cannot be refreshed.
const (
	KindAccess  = "access"
	KindRefresh = "refresh"
)

// Claims holds the JWT payload.
type Claims struct {
	OperatorID string `json:"operator_id"`
	Kind       string `json:"kind"`
	jwt.RegisteredClaims
}

// JWTManager issues operator tokens against the admin key and validates them.
type JWTManager struct {
	secret        []byte
	adminKey      []byte
	accessExpiry  time.Duration
	refreshExpiry time.Duration
}

// NewJWTManager creates a JWTManager with the given signing secret and admin key.
func NewJWTManager(secret, adminKey string) *JWTManager {
	return &JWTManager{
		secret:        []byte(secret),
		adminKey:      []byte(adminKey),
		accessExpiry:  15 * time.Minute,
		refreshExpiry: 7 * 24 * time.Hour,
	}
}

// CheckAdminKey compares key with the configured admin key in constant time.
func (m *JWTManager) CheckAdminKey(key string) error {
	if len(m.adminKey) == 0 || subtle.ConstantTimeCompare([]byte(key), m.adminKey) != 1 {
		return ErrBadAdminKey
	}
	return nil
}

func (m *JWTManager) generate(operatorID, kind string, expiry time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		OperatorID: operatorID,
		Kind:       kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   operatorID,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// GenerateAccessToken creates a short-lived access token.
func (m *JWTManager) GenerateAccessToken(operatorID string) (string, error) {
	return m.generate(operatorID, KindAccess, m.accessExpiry)
}

// GenerateRefreshToken creates a long-lived refresh token.
func (m *JWTManager) GenerateRefreshToken(operatorID string) (string, error) {
	return m.generate(operatorID, KindRefresh, m.refreshExpiry)
}

// ValidateToken parses a JWT string and checks that it is of the wanted kind.
func (m *JWTManager) ValidateToken(tokenStr, kind string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Kind != kind {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// TokenPair holds an access and refresh token.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"` // seconds
}

// GenerateTokenPair creates both tokens for an operator.
func (m *JWTManager) GenerateTokenPair(operatorID string) (*TokenPair, error) {
	access, err := m.GenerateAccessToken(operatorID)
	if err != nil {
		return nil, err
	}
	refresh, err := m.GenerateRefreshToken(operatorID)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int(m.accessExpiry.Seconds()),
	}, nil
}
