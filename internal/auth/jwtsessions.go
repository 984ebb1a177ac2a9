package auth

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// Claims represents the JWT claims used by the system.
// It embeds standard JWT claims and adds a user-specific identifier.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
}

// JWTSessions keeps the identity claim in an HS256-signed JWT stored in a cookie.
type JWTSessions struct {
	cookieName string
	secret     []byte
	ttl        time.Duration
}

func NewJWTSessions(cookieName string, secret []byte, ttl time.Duration) *JWTSessions {
	return &JWTSessions{
		cookieName: cookieName,
		secret:     secret,
		ttl:        ttl,
	}
}

func (s *JWTSessions) Save(ctx context.Context, response http.ResponseWriter, userID string) error {
	JWTString, err := s.BuildJWTString(&Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		UserID: userID,
	})
	if err != nil {
		return err
	}

	http.SetCookie(response, sessionCookie(s.cookieName, JWTString, s.ttl))

	return nil
}

// UserID returns the claim of a valid, unexpired token and "" otherwise.
func (s *JWTSessions) UserID(ctx context.Context, request *http.Request) (string, error) {
	cookie, err := request.Cookie(s.cookieName)
	if err != nil || cookie.Value == "" {
		return "", nil
	}

	userID, err := s.GetUserIDFromToken(cookie.Value)
	if err != nil {
		return "", nil
	}

	return userID, nil
}

func (s *JWTSessions) Clear(ctx context.Context, response http.ResponseWriter, request *http.Request) error {
	http.SetCookie(response, expiredCookie(s.cookieName))

	return nil
}

func (s *JWTSessions) GetUserIDFromToken(tokenString string) (string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return s.secret, nil
		},
	)
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", fmt.Errorf("invalid token")
	}

	return claims.UserID, nil
}

func (s *JWTSessions) BuildJWTString(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, *claims)

	return token.SignedString(s.secret)
}

func sessionCookie(name, value string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

func expiredCookie(name string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}
