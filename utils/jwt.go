package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/cppla/sharebox/config"
)

const (
	sessionAudience  = "session"
	downloadAudience = "download"
)

// Claims defines the session JWT claims. The token ID (jti) keys the logout blacklist.
type Claims struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// TicketClaims authorizes one gated file to be downloaded for a short time.
type TicketClaims struct {
	ShortCode string `json:"code"`
	jwt.RegisteredClaims
}

// GenerateToken issues a session JWT for the specified user identity.
func GenerateToken(userID uint, email string, duration time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Audience:  jwt.ClaimStrings{sessionAudience},
			ExpiresAt: jwt.NewNumericDate(now.Add(duration)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return sign(claims)
}

// ParseToken validates a session JWT and returns its claims.
func ParseToken(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	if err := parse(tokenStr, claims, sessionAudience); err != nil {
		return nil, err
	}
	return claims, nil
}

// GenerateDownloadTicket signs a ticket that unlocks the file with the given short code.
func GenerateDownloadTicket(shortCode string, duration time.Duration) (string, error) {
	now := time.Now()
	claims := TicketClaims{
		ShortCode: shortCode,
		RegisteredClaims: jwt.RegisteredClaims{
			Audience:  jwt.ClaimStrings{downloadAudience},
			ExpiresAt: jwt.NewNumericDate(now.Add(duration)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return sign(claims)
}

// VerifyDownloadTicket reports whether ticket is valid for shortCode.
func VerifyDownloadTicket(ticket, shortCode string) bool {
	if ticket == "" {
		return false
	}
	claims := &TicketClaims{}
	if err := parse(ticket, claims, downloadAudience); err != nil {
		return false
	}
	return claims.ShortCode == shortCode
}

func sign(claims jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(config.Get().JWTSecret))
}

func parse(tokenStr string, claims jwt.Claims, audience string) error {
	secret := []byte(config.Get().JWTSecret)
	parsed, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	}, jwt.WithAudience(audience))
	if err != nil {
		return err
	}
	if !parsed.Valid {
		return errors.New("invalid token claims")
	}
	return nil
}
