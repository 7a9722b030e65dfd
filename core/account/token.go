package account

import (
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"

	"github.com/ThumulaGamage/EduPlatform-backend/core"
)

var (
	ErrMissingToken = core.NewError(core.KindUnauthenticated, "no token provided")
	ErrInvalidToken = core.NewError(core.KindInvalidToken, "invalid or expired token")
)

// Claims are the claims carried by an access token. Subject is the account id.
type Claims struct {
	jwt.StandardClaims
	Email string `json:"email"`
	Role  string `json:"role"`
}

// TokenIssuer signs and verifies HS256 access tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	issuer string
}

func NewTokenIssuer(secret string, ttl time.Duration, issuer string) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, issuer: issuer}
}

// Issue returns a signed token asserting {id, email, role} of acc.
func (ti *TokenIssuer) Issue(acc Account) (string, error) {
	now := core.NowFunc().UTC()
	claims := Claims{
		StandardClaims: jwt.StandardClaims{
			Subject:   acc.ID,
			Issuer:    ti.issuer,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(ti.ttl).Unix(),
		},
		Email: acc.Email,
		Role:  acc.Role,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ti.secret)
}

// Verify decodes token and validates its signature and expiry.
func (ti *TokenIssuer) Verify(token string) (core.Principal, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return core.Principal{}, ErrMissingToken
	}

	claims := new(Claims)
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return ti.secret, nil
	})
	if err != nil || !parsed.Valid || claims.Subject == "" || !core.IsValidRole(claims.Role) {
		return core.Principal{}, ErrInvalidToken
	}
	return core.Principal{ID: claims.Subject, Email: claims.Email, Role: claims.Role}, nil
}

// FromAuthorizationHeader extracts the token from a "Bearer <token>" header value.
func FromAuthorizationHeader(header string) string {
	const prefix = "bearer "
	if len(header) > len(prefix) && strings.ToLower(header[:len(prefix)]) == prefix {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}
