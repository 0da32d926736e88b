package utils

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Session is the signed-in staff identity carried between requests.
type Session struct {
	ID        uuid.UUID  `json:"id"`
	Email     string     `json:"email"`
	FirstName string     `json:"firstName"`
	LastName  string     `json:"lastName"`
	Role      string     `json:"role"`
	LastLogin *time.Time `json:"lastLogin,omitempty"`
}

// DisplayName is the name recorded in audit entries.
func (s Session) DisplayName() string {
	return s.FirstName + " " + s.LastName
}

type sessionClaims struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
	LastLogin int64  `json:"last_login,omitempty"`
	jwt.RegisteredClaims
}

// GenerateSessionToken serializes the session into a signed JWT.
func GenerateSessionToken(secret string, s Session, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &sessionClaims{
		Email:     s.Email,
		FirstName: s.FirstName,
		LastName:  s.LastName,
		Role:      s.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.ID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	if s.LastLogin != nil {
		claims.LastLogin = s.LastLogin.Unix()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseSessionToken validates the token and rebuilds the session.
func ParseSessionToken(secret, tokenString string) (Session, error) {
	token, err := jwt.ParseWithClaims(tokenString, &sessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return Session{}, err
	}

	claims, ok := token.Claims.(*sessionClaims)
	if !ok || !token.Valid {
		return Session{}, jwt.ErrTokenInvalidClaims
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Session{}, err
	}

	s := Session{
		ID:        id,
		Email:     claims.Email,
		FirstName: claims.FirstName,
		LastName:  claims.LastName,
		Role:      claims.Role,
	}
	if claims.LastLogin != 0 {
		t := time.Unix(claims.LastLogin, 0).UTC()
		s.LastLogin = &t
	}
	return s, nil
}
