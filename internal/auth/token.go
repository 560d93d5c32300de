package auth

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"finledger/internal/core"
)

// TokenManager issues and verifies signed identity tokens. The token embeds
// the user id and role; verification only proves possession, the caller is
// still resolved against the user directory.
type TokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// Claims is what Verify extracts from a valid token.
type Claims struct {
	UserID int64
	Role   core.Role
}

// NewTokenManager creates a manager with the provided secret, issuer, and lifetime.
func NewTokenManager(secret, issuer string, ttl time.Duration) *TokenManager {
	return &TokenManager{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
	}
}

// Generate issues a signed JWT string for the provided user.
func (t *TokenManager) Generate(user core.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"iss":   t.issuer,
		"sub":   strconv.FormatInt(user.ID, 10),
		"role":  string(user.Role),
		"name":  user.Name,
		"email": user.Email,
		"iat":   now.Unix(),
		"nbf":   now.Unix(),
		"exp":   now.Add(t.ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Verify parses and validates a token string, returning the embedded claims.
// Malformed, expired, or mis-signed tokens all come back as ErrUnauthenticated.
func (t *TokenManager) Verify(tokenString string) (Claims, error) {
	parsed, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithIssuer(t.issuer), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return Claims{}, core.ErrUnauthenticated
	}

	mapClaims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, core.ErrUnauthenticated
	}
	sub, err := mapClaims.GetSubject()
	if err != nil {
		return Claims{}, core.ErrUnauthenticated
	}
	userID, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return Claims{}, core.ErrUnauthenticated
	}

	role, _ := mapClaims["role"].(string)
	return Claims{UserID: userID, Role: core.Role(role)}, nil
}
