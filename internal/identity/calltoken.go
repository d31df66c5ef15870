package identity

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	apperrors "github.com/louisbranch/fheworlds/internal/platform/errors"
)

// CallTokenTTL bounds how long a signed ledger call stays usable.
const CallTokenTTL = 2 * time.Minute

// clockSkew tolerates issuers whose clock runs slightly ahead.
const clockSkew = 30 * time.Second

// IssueCallToken signs a short-lived token proving control of key for calls
// to contract. The subject is the caller address, so verification needs no
// key registry.
func IssueCallToken(key *Key, contract Address, now time.Time) (string, error) {
	if key == nil {
		return "", errors.New("identity key is required")
	}
	if now.IsZero() {
		now = time.Now()
	}
	claims := jwt.RegisteredClaims{
		Subject:   key.Address().String(),
		Audience:  jwt.ClaimStrings{strings.ToLower(contract.String())},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(CallTokenTTL)),
		ID:        uuid.NewString(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(key.PrivateKey())
}

// VerifyCallToken checks token against contract and returns the caller.
func VerifyCallToken(token string, contract Address, now time.Time) (Address, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", apperrors.New(apperrors.CodeUnauthenticated, "call token is required")
	}
	if now.IsZero() {
		now = time.Now()
	}

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		caller, err := ParseAddress(claims.Subject)
		if err != nil {
			return nil, err
		}
		return caller.PublicKey()
	},
		jwt.WithValidMethods([]string{"EdDSA"}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeUnauthenticated, "call token is invalid", err)
	}

	if claims.ID == "" || claims.ExpiresAt == nil || claims.IssuedAt == nil {
		return "", apperrors.New(apperrors.CodeUnauthenticated, "call token is missing jti, iat or exp")
	}
	if !audienceContains(claims.Audience, strings.ToLower(contract.String())) {
		return "", apperrors.WithMetadata(apperrors.CodeUnauthenticated, "call token audience mismatch", map[string]string{"Field": "aud"})
	}
	now = now.UTC()
	if !claims.ExpiresAt.Time.After(now) {
		return "", apperrors.New(apperrors.CodeUnauthenticated, "call token is expired")
	}
	if claims.IssuedAt.Time.After(now.Add(clockSkew)) {
		return "", apperrors.New(apperrors.CodeUnauthenticated, "call token issued in the future")
	}
	if claims.ExpiresAt.Time.Sub(claims.IssuedAt.Time) > CallTokenTTL {
		return "", apperrors.New(apperrors.CodeUnauthenticated, "call token lifetime too long")
	}
	return ParseAddress(claims.Subject)
}

func audienceContains(aud jwt.ClaimStrings, value string) bool {
	for _, item := range aud {
		if item == value {
			return true
		}
	}
	return false
}
