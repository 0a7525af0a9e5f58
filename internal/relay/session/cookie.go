package session

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned when a relay cookie fails verification.
var ErrInvalidToken = errors.New("invalid session token")

// Claims binds the opaque session id to a signed, expiring token.
type Claims struct {
	jwt.RegisteredClaims
	SID string `json:"sid"`
}

// CookieCodec signs and verifies the relay's own cookie value. The cookie
// carries only the session id; the upstream secret stays in the Store.
type CookieCodec struct {
	secret []byte
}

func NewCookieCodec(secret []byte) *CookieCodec {
	return &CookieCodec{secret: secret}
}

// Issue returns a signed token for sid, valid for ttl.
func (c *CookieCodec) Issue(sid string, ttl time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
		SID: sid,
	})
	return token.SignedString(c.secret)
}

// Parse verifies tokenString and returns the session id it carries.
func (c *CookieCodec) Parse(tokenString string) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}
	if !token.Valid || claims.SID == "" {
		return "", ErrInvalidToken
	}
	return claims.SID, nil
}
