// Package userdecrypt implements the user decryption authorization protocol:
// a participant signs a time-bounded grant naming an ephemeral public key and
// the contracts it may read, and the key management service answers with
// plaintexts sealed to that key.
package userdecrypt

import (
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/louisbranch/fheworlds/internal/identity"
	apperrors "github.com/louisbranch/fheworlds/internal/platform/errors"
)

const (
	// GrantType is the JWS "typ" header of a decryption grant.
	GrantType = "UserDecryptRequestVerification"
	// DefaultDurationDays is the validity window clients request by default.
	DefaultDurationDays = 10
	// MaxDurationDays is the longest window a service accepts by default.
	MaxDurationDays = 365

	domainName    = "Decryption"
	domainVersion = "1"
)

// Domain separates grants issued for different deployments. It is signed as
// the token audience, so a grant for one chain is useless on another.
type Domain struct {
	Name    string
	Version string
	ChainID uint64
}

// NewDomain returns the decryption domain for chainID.
func NewDomain(chainID uint64) Domain {
	return Domain{Name: domainName, Version: domainVersion, ChainID: chainID}
}

func (d Domain) String() string {
	return fmt.Sprintf("%s/%s/%d", d.Name, d.Version, d.ChainID)
}

// Grant is what the user authorizes.
type Grant struct {
	PublicKey         []byte
	ContractAddresses []string
	StartTimestamp    int64
	DurationDays      int
}

// Window returns the inclusive validity interval of the grant.
func (g Grant) Window() (start, end time.Time) {
	start = time.Unix(g.StartTimestamp, 0).UTC()
	return start, start.Add(time.Duration(g.DurationDays) * 24 * time.Hour)
}

// ActiveAt reports whether now falls inside the window.
func (g Grant) ActiveAt(now time.Time) bool {
	start, end := g.Window()
	return !now.Before(start) && !now.After(end)
}

// AllowsContract reports whether contract is named by the grant.
func (g Grant) AllowsContract(contract string) bool {
	return slices.ContainsFunc(g.ContractAddresses, func(c string) bool {
		return strings.EqualFold(c, contract)
	})
}

// Matches reports whether other authorizes exactly the same request.
func (g Grant) Matches(other Grant) bool {
	if g.StartTimestamp != other.StartTimestamp || g.DurationDays != other.DurationDays {
		return false
	}
	if hex.EncodeToString(g.PublicKey) != hex.EncodeToString(other.PublicKey) {
		return false
	}
	if len(g.ContractAddresses) != len(other.ContractAddresses) {
		return false
	}
	for i := range g.ContractAddresses {
		if !strings.EqualFold(g.ContractAddresses[i], other.ContractAddresses[i]) {
			return false
		}
	}
	return true
}

type grantClaims struct {
	jwt.RegisteredClaims
	PublicKey         string   `json:"public_key"`
	ContractAddresses []string `json:"contract_addresses"`
	StartTimestamp    int64    `json:"start_timestamp"`
	DurationDays      int      `json:"duration_days"`
}

// SignGrant produces the compact signature the user hands to the relayer.
func SignGrant(key *identity.Key, domain Domain, g Grant) (string, error) {
	if key == nil {
		return "", errors.New("identity key is required")
	}
	if len(g.PublicKey) == 0 || len(g.ContractAddresses) == 0 || g.DurationDays <= 0 {
		return "", errors.New("grant needs a public key, contracts and a positive duration")
	}
	contracts := make([]string, len(g.ContractAddresses))
	for i, c := range g.ContractAddresses {
		contracts[i] = strings.ToLower(c)
	}
	claims := grantClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   key.Address().String(),
			Audience: jwt.ClaimStrings{domain.String()},
			ID:       uuid.NewString(),
		},
		PublicKey:         hex.EncodeToString(g.PublicKey),
		ContractAddresses: contracts,
		StartTimestamp:    g.StartTimestamp,
		DurationDays:      g.DurationDays,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	token.Header["typ"] = GrantType
	return token.SignedString(key.PrivateKey())
}

// VerifyGrant checks that signature was produced by user for domain and
// returns the grant it carries. Every failure is
// AUTHORIZATION_SIGNATURE_INVALID; the caller checks the window.
func VerifyGrant(signature string, user identity.Address, domain Domain) (Grant, error) {
	signature = strings.TrimPrefix(strings.TrimSpace(signature), "0x")
	if signature == "" {
		return Grant{}, signatureInvalid("signature is required", nil)
	}
	pub, err := user.PublicKey()
	if err != nil {
		return Grant{}, signatureInvalid("user address is invalid", err)
	}

	var claims grantClaims
	token, err := jwt.ParseWithClaims(signature, &claims, func(*jwt.Token) (any, error) {
		return pub, nil
	},
		jwt.WithValidMethods([]string{"EdDSA"}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return Grant{}, mapJWTError(err)
	}
	if typ, _ := token.Header["typ"].(string); typ != GrantType {
		return Grant{}, signatureInvalid("grant type mismatch", nil)
	}
	if !strings.EqualFold(claims.Issuer, user.String()) {
		return Grant{}, signatureInvalid("grant issuer mismatch", nil)
	}
	if !slices.Contains([]string(claims.Audience), domain.String()) {
		return Grant{}, signatureInvalid("grant domain mismatch", nil)
	}
	publicKey, err := hex.DecodeString(claims.PublicKey)
	if err != nil || len(publicKey) == 0 {
		return Grant{}, signatureInvalid("grant public key is invalid", err)
	}
	return Grant{
		PublicKey:         publicKey,
		ContractAddresses: claims.ContractAddresses,
		StartTimestamp:    claims.StartTimestamp,
		DurationDays:      claims.DurationDays,
	}, nil
}

func mapJWTError(err error) error {
	if errors.Is(err, jwt.ErrTokenSignatureInvalid) || errors.Is(err, jwt.ErrEd25519Verification) {
		return signatureInvalid("grant signature does not verify", err)
	}
	if errors.Is(err, jwt.ErrTokenUnverifiable) {
		return signatureInvalid("grant algorithm is not accepted", err)
	}
	return signatureInvalid("grant is malformed", err)
}

func signatureInvalid(message string, cause error) error {
	return apperrors.Wrap(apperrors.CodeAuthorizationSignatureInvalid, message, cause)
}
