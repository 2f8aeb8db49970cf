package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/meinhoongagan/urban-services/models"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

var ErrInvalidToken = errors.New("invalid token")

// TokenPair is returned to the client once a login is accepted.
type TokenPair struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

// TokenIssuer signs HS256 access and refresh tokens.
type TokenIssuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	Now        func() time.Time
}

func NewTokenIssuer(secret string, accessTTL, refreshTTL time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		Now:        time.Now,
	}
}

// Secret is the signing key, shared with the JWT middleware.
func (ti *TokenIssuer) Secret() []byte {
	return ti.secret
}

// Issue creates an access and refresh token for account.
func (ti *TokenIssuer) Issue(account *models.Account) (*TokenPair, error) {
	access, err := ti.sign(account, TokenTypeAccess, ti.accessTTL)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := ti.sign(account, TokenTypeRefresh, ti.refreshTTL)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}
	return &TokenPair{Token: access, RefreshToken: refresh}, nil
}

// ParseRefresh validates a refresh token and returns the account id it names.
func (ti *TokenIssuer) ParseRefresh(raw string) (uint, error) {
	parser := jwt.Parser{ValidMethods: []string{jwt.SigningMethodHS256.Alg()}}
	token, err := parser.Parse(raw, func(token *jwt.Token) (interface{}, error) {
		return ti.secret, nil
	})
	if err != nil || !token.Valid {
		return 0, ErrInvalidToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || claims["typ"] != TokenTypeRefresh {
		return 0, ErrInvalidToken
	}
	id, ok := claims["id"].(float64)
	if !ok || id <= 0 {
		return 0, ErrInvalidToken
	}
	return uint(id), nil
}

func (ti *TokenIssuer) sign(account *models.Account, typ string, ttl time.Duration) (string, error) {
	now := ti.Now()
	claims := jwt.MapClaims{
		"id":       account.ID,
		"email":    account.Email,
		"role":     string(account.Role),
		"is_staff": account.IsStaff,
		"typ":      typ,
		"iat":      now.Unix(),
		"exp":      now.Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ti.secret)
}
