package jwtutil

import (
	"errors"
	"fmt"
	"time"

	"menu-service/pkg/config"

	"github.com/golang-jwt/jwt/v4"
)

var conf *config.JWTConfig

// UserClaims represents the JWT claims for an authenticated user. Tokens are
// self-contained: everything the middleware needs is embedded here.
type UserClaims struct {
	Email            string `json:"email"`
	UserID           uint   `json:"user_id"`
	FirstName        string `json:"first_name,omitempty"`
	CompanyID        *uint  `json:"company_id,omitempty"`
	SubscriptionTier string `json:"subscription_tier,omitempty"`
	jwt.RegisteredClaims
}

// Initialize stores the JWT configuration used for signing and verification.
func Initialize(c *config.JWTConfig) {
	conf = c
}

// GenerateToken creates a signed HS256 token carrying the user's identity.
func GenerateToken(email string, userID uint, firstName string, companyID *uint, subscriptionTier string) (string, error) {
	if conf == nil {
		return "", errors.New("JWT configuration not provided")
	}

	claims := UserClaims{
		Email:            email,
		UserID:           userID,
		FirstName:        firstName,
		CompanyID:        companyID,
		SubscriptionTier: subscriptionTier,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Duration(conf.ExpirationHours) * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(conf.SigningKey))
}

// ValidateToken validates and parses the JWT token
func ValidateToken(tokenString string) (*UserClaims, error) {
	if conf == nil {
		return nil, errors.New("JWT configuration not provided")
	}

	token, err := jwt.ParseWithClaims(
		tokenString,
		&UserClaims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(conf.SigningKey), nil
		},
	)
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*UserClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}
