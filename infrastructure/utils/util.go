package utils

import (
	"time"

	"social-scheduler/infrastructure/logger"

	"github.com/golang-jwt/jwt"
)

func GetCurrentTime() time.Time {
	return time.Now().UTC()
}

// GenerateToken signs an HS256 bearer token; the API accepts the same tokens it issues here.
func GenerateToken(payload map[string]interface{}, secretKey string) (string, error) {
	var claims jwt.MapClaims = payload
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(secretKey))
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while generate token")
		return "", err
	}
	return tokenString, nil
}

// OwnerToken issues a token for ownerID that expires after ttl.
func OwnerToken(ownerID string, ttl time.Duration, secretKey string) (string, error) {
	now := GetCurrentTime()
	return GenerateToken(map[string]interface{}{
		"user_id": ownerID,
		"iat":     now.Unix(),
		"exp":     now.Add(ttl).Unix(),
	}, secretKey)
}
