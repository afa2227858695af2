package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	DefaultRefreshTokenTTL = 15 * time.Minute
	DefaultAccessTokenTTL  = 5 * time.Minute

	TokenTypeRefresh = "refresh"
	TokenTypeAccess  = "access"
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrNotAuthorized = errors.New("not authorized")
)

// Claims carried by both refresh and access tokens. The token type claim
// prevents an access token from being exchanged for new access tokens.
type Claims struct {
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// TokenIssuer mints and verifies HS256 signed JWTs. A refresh token is
// issued at login and can be exchanged for short-lived access tokens.
type TokenIssuer struct {
	signingKey []byte
	refreshTTL time.Duration
	accessTTL  time.Duration
	// injectable clock for testing
	Now func() time.Time
}

func NewTokenIssuer(signingKey string, refreshTTL, accessTTL time.Duration) *TokenIssuer {
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTokenTTL
	}
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTokenTTL
	}
	return &TokenIssuer{
		signingKey: []byte(signingKey),
		refreshTTL: refreshTTL,
		accessTTL:  accessTTL,
		Now:        time.Now,
	}
}

func (ti *TokenIssuer) RefreshTokenTTL() time.Duration {
	return ti.refreshTTL
}

func (ti *TokenIssuer) NewRefreshToken(userID, username string) (string, error) {
	return ti.newToken(userID, username, TokenTypeRefresh, ti.refreshTTL)
}

// NewAccessToken verifies the given refresh token and mints a short-lived
// access token for the same user.
func (ti *TokenIssuer) NewAccessToken(refreshToken string) (string, error) {
	claims, err := ti.Parse(refreshToken)
	if err != nil {
		return "", err
	}
	if claims.TokenType != TokenTypeRefresh {
		return "", fmt.Errorf("%w: not a refresh token", ErrInvalidToken)
	}
	return ti.newToken(claims.UserID, claims.Username, TokenTypeAccess, ti.accessTTL)
}

func (ti *TokenIssuer) newToken(userID, username, tokenType string, ttl time.Duration) (string, error) {
	now := ti.Now()
	claims := &Claims{
		UserID:    userID,
		Username:  username,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(ti.signingKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies the signature and expiry and returns the claims.
func (ti *TokenIssuer) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return ti.signingKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ParseAccessToken verifies the token and additionally requires it to be
// an access token. Used by the auth middleware.
func (ti *TokenIssuer) ParseAccessToken(tokenString string) (*Claims, error) {
	claims, err := ti.Parse(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != TokenTypeAccess {
		return nil, fmt.Errorf("%w: not an access token", ErrInvalidToken)
	}
	return claims, nil
}
