package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// ServiceIssuer is the issuer claim on tokens minted by the gateway
const ServiceIssuer = "ussd-gateway"

// ServiceClaims identify the gateway and the subscriber a backend call acts for
type ServiceClaims struct {
	Phone string `json:"phone,omitempty"`
	jwt.RegisteredClaims
}

// ServiceTokenSigner mints short-lived HS256 tokens for calls to the wallet bridge
type ServiceTokenSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewServiceTokenSigner returns a signer; ttl defaults to one minute
func NewServiceTokenSigner(secret string, ttl time.Duration) *ServiceTokenSigner {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &ServiceTokenSigner{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Sign creates a token scoped to phone
func (s *ServiceTokenSigner) Sign(phone string) (string, error) {
	if len(s.secret) == 0 {
		return "", errors.New("service token secret is not configured")
	}
	now := s.now().UTC()
	claims := ServiceClaims{
		Phone: phone,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ServiceIssuer,
			ID:        GenerateULID(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign service token: %w", err)
	}
	return signed, nil
}

// ValidateServiceToken parses a token minted by Sign
func ValidateServiceToken(tokenString, secret string) (*ServiceClaims, error) {
	claims := &ServiceClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.Issuer != ServiceIssuer {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
