package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"shop-catalog-service/internal/domain"
)

// Predefined errors for token operations
var (
	ErrInvalidToken  = errors.New("auth: invalid or expired token")
	ErrNotRefresh    = errors.New("auth: token is not a refresh token")
	ErrNotAccess     = errors.New("auth: token is not an access token")
	ErrAdminRequired = errors.New("auth: admin privileges required")
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// Claims is the validated payload extracted from a token.
type Claims struct {
	UserID    int64
	Username  string
	IsAdmin   bool
	TokenType string
}

// TokenManager issues and validates the HS256 access/refresh token pair used
// by the admin API.
type TokenManager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewTokenManager creates a TokenManager signing with the given secret.
func NewTokenManager(secret string, accessTTL, refreshTTL time.Duration) *TokenManager {
	return &TokenManager{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// TokenPair carries the two tokens returned from a successful login.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// IssuePair signs a fresh access + refresh token pair for the user.
func (tm *TokenManager) IssuePair(user *domain.User) (*TokenPair, error) {
	access, err := tm.sign(user, tokenTypeAccess, tm.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := tm.sign(user, tokenTypeRefresh, tm.refreshTTL)
	if err != nil {
		return nil, err
	}
	return &TokenPair{Access: access, Refresh: refresh}, nil
}

func (tm *TokenManager) sign(user *domain.User, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  user.ID,
		"username": user.Username,
		"admin":    user.IsAdmin,
		"typ":      tokenType,
		"iat":      now.Unix(),
		"exp":      now.Add(ttl).Unix(),
	})
	signed, err := token.SignedString(tm.secret)
	if err != nil {
		return "", fmt.Errorf("auth: failed to sign %s token: %w", tokenType, err)
	}
	return signed, nil
}

// Parse validates the signature and expiry of a token and returns its claims.
func (tm *TokenManager) Parse(tokenString string) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return tm.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	claims := &Claims{}
	if userID, ok := mapClaims["user_id"].(float64); ok {
		claims.UserID = int64(userID)
	} else {
		return nil, ErrInvalidToken
	}
	if username, ok := mapClaims["username"].(string); ok {
		claims.Username = username
	}
	if admin, ok := mapClaims["admin"].(bool); ok {
		claims.IsAdmin = admin
	}
	if typ, ok := mapClaims["typ"].(string); ok {
		claims.TokenType = typ
	} else {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// ParseAccess validates an access token specifically; refresh tokens are
// rejected so a leaked refresh token cannot be replayed against the API.
func (tm *TokenManager) ParseAccess(tokenString string) (*Claims, error) {
	claims, err := tm.Parse(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != tokenTypeAccess {
		return nil, ErrNotAccess
	}
	return claims, nil
}

// Refresh exchanges a valid refresh token for a new access token.
func (tm *TokenManager) Refresh(refreshToken string) (string, error) {
	claims, err := tm.Parse(refreshToken)
	if err != nil {
		return "", err
	}
	if claims.TokenType != tokenTypeRefresh {
		return "", ErrNotRefresh
	}
	user := &domain.User{
		ID:       claims.UserID,
		Username: claims.Username,
		IsAdmin:  claims.IsAdmin,
	}
	return tm.sign(user, tokenTypeAccess, tm.accessTTL)
}
