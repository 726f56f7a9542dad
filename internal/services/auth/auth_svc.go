package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// IAuthService resolves a bearer token to a user id. The token is issued by
// the back-office login flow; this service only verifies.
type IAuthService interface {
	Verify(ctx context.Context, token string) (string, error)
}

type authService struct {
	secret []byte
	issuer string
}

func NewAuthService(secret, issuer string) IAuthService {
	return &authService{secret: []byte(secret), issuer: issuer}
}

type claims struct {
	jwt.RegisteredClaims
}

func (svc *authService) Verify(_ context.Context, token string) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return svc.secret, nil
	}, jwt.WithIssuer(svc.issuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredToken
		}
		return "", ErrInvalidToken
	}

	c, ok := parsed.Claims.(*claims)
	if !ok || !parsed.Valid || c.Subject == "" {
		return "", ErrInvalidToken
	}
	return c.Subject, nil
}

// IssueToken signs a token for the given user id. The production issuer lives
// in the back-office login service; this helper exists for local runs and tests.
func IssueToken(secret, issuer, userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   userID,
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
	})
	return t.SignedString([]byte(secret))
}
