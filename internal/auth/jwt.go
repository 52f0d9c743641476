package auth

import (
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// StreamTokenTTL bounds how long a start-session token stays usable
const StreamTokenTTL = 2 * time.Hour

// StreamClaims are the claims in a live-session stream token
type StreamClaims struct {
	LectureID string `json:"lecture_id"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

func secret() []byte {
	if s := os.Getenv("JWT_SECRET"); s != "" {
		return []byte(s)
	}
	return []byte("pyronotes-dev-secret")
}

// GenerateStreamToken issues a token authorizing one websocket stream
// for the given lecture.
func GenerateStreamToken(lectureID string) (string, error) {
	claims := &StreamClaims{
		LectureID: lectureID,
		Role:      "stream",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(StreamTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret())
}

// ValidateStreamToken validates a stream token and returns its claims
func ValidateStreamToken(tokenString string) (*StreamClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &StreamClaims{}, func(token *jwt.Token) (interface{}, error) {
		return secret(), nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*StreamClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, jwt.ErrInvalidKey
}
