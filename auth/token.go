package auth

import (
	"context"
	"fmt"
	"time"

	"listing-chat/domain"
	"listing-chat/errors"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "listing-chat"

// CustomClaims defines the structure of the data stored inside the JWT.
// UserType carries the role; legacy "student"/"landlord" values are accepted.
type CustomClaims struct {
	UserID   string `json:"userId"`
	UserType string `json:"userType"`
	jwt.RegisteredClaims
}

// GenerateToken creates a signed JWT for a specific user.
func GenerateToken(secret []byte, userID string, role domain.Role,
	authTokenDuration time.Duration) (string, error) {
	now := time.Now()
	claims := &CustomClaims{
		UserID:   userID,
		UserType: role.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(authTokenDuration)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}

	// HS256 (HMAC with SHA256)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// Verifier checks HS256 tokens signed with a shared secret.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret []byte) *Verifier {
	return &Verifier{secret: secret}
}

// ValidateToken parses and validates the signature and expiration of a JWT string.
func (v *Verifier) ValidateToken(tokenString string) (*CustomClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*CustomClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, jwt.ErrSignatureInvalid
}

// Verify resolves a credential into an identity.
// Every failure wraps errors.ErrInvalidToken.
func (v *Verifier) Verify(ctx context.Context, credential string) (domain.Identity, error) {
	if err := ctx.Err(); err != nil {
		return domain.Identity{}, err
	}

	claims, err := v.ValidateToken(credential)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%w: %w", errors.ErrInvalidToken, err)
	}
	if claims.UserID == "" {
		return domain.Identity{}, fmt.Errorf("%w: missing user id", errors.ErrInvalidToken)
	}

	role, err := domain.ParseRole(claims.UserType)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%w: %w", errors.ErrInvalidToken, err)
	}
	return domain.Identity{SubjectID: claims.UserID, Role: role}, nil
}
