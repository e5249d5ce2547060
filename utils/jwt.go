package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"tracknexy/models"
)

type Claims struct {
	UserID    uint   `json:"user_id"`
	Role      string `json:"role"`
	SessionID string `json:"session_id"`
	jwt.RegisteredClaims
}

// TokenManager signs and parses session tokens. The secret is injected at
// construction; there is no package-level config.
type TokenManager struct {
	secret []byte
}

func NewTokenManager(secret string) *TokenManager {
	return &TokenManager{secret: []byte(secret)}
}

// Generate issues an access token (15 minutes) and a refresh token (7 days)
// carrying the user's id and role. Authorization downstream trusts the
// embedded pair; role changes land on the next issuance.
func (tm *TokenManager) Generate(user *models.User) (string, string, string, error) {
	sessionID := uuid.New().String()

	accessClaims := &Claims{
		UserID:    user.ID,
		Role:      user.Role,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(15 * time.Minute)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	accessToken := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims)
	accessTokenString, err := accessToken.SignedString(tm.secret)
	if err != nil {
		return "", "", "", err
	}

	refreshClaims := &Claims{
		UserID:    user.ID,
		Role:      user.Role,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(7 * 24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	refreshToken := jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims)
	refreshTokenString, err := refreshToken.SignedString(tm.secret)
	if err != nil {
		return "", "", "", err
	}

	return accessTokenString, refreshTokenString, sessionID, nil
}

// Parse validates a token and returns its claims.
func (tm *TokenManager) Parse(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secret, nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}

// Refresh validates a refresh token and issues a fresh pair for the user.
func (tm *TokenManager) Refresh(refreshToken string, user *models.User) (string, string, error) {
	claims, err := tm.Parse(refreshToken)
	if err != nil {
		return "", "", err
	}

	if time.Until(claims.ExpiresAt.Time) <= 0 {
		return "", "", errors.New("refresh token expired")
	}
	if claims.UserID != user.ID {
		return "", "", errors.New("token does not belong to user")
	}

	access, refresh, _, err := tm.Generate(user)
	return access, refresh, err
}
