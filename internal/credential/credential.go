// Package credential issues and verifies the signed bearer tokens investors
// present on privileged requests. Tokens are ES256-signed so the verification
// key can be distributed without exposing signing capability.
package credential

import (
	"crypto/ecdsa"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultExpiry bounds how long an issued credential stays usable.
const DefaultExpiry = 15 * time.Minute

var (
	// ErrExpired means the credential was well-formed but past its expiry.
	ErrExpired = errors.New("credential expired")
	// ErrInvalid covers every other verification failure: bad signature,
	// wrong algorithm, or missing required claims.
	ErrInvalid = errors.New("credential invalid")
)

// Claims is the decoded credential payload. Subject carries the investor id.
type Claims struct {
	jwt.RegisteredClaims
}

// Service signs and verifies investor credentials. The private key is only
// needed for issuance; verification-only deployments pass nil.
type Service struct {
	private *ecdsa.PrivateKey
	public  *ecdsa.PublicKey
	issuer  string
	expiry  time.Duration
}

func NewService(private *ecdsa.PrivateKey, issuer string, expiry time.Duration) *Service {
	if expiry <= 0 {
		expiry = DefaultExpiry
	}
	return &Service{
		private: private,
		public:  &private.PublicKey,
		issuer:  issuer,
		expiry:  expiry,
	}
}

// NewVerifier builds a verification-only service bound to a public key.
func NewVerifier(public *ecdsa.PublicKey, issuer string) *Service {
	return &Service{public: public, issuer: issuer, expiry: DefaultExpiry}
}

// Issue signs a credential asserting the investor id as subject.
func (s *Service) Issue(investorID string) (string, error) {
	if s.private == nil {
		return "", errors.New("credential service has no signing key")
	}
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodES256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   investorID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
			ID:        uuid.NewString(),
		},
	})
	return token.SignedString(s.private)
}

// Verify checks the signature and the required claim set (sub, iat, exp).
// Absence of any required claim fails verification even when the signature
// is good.
func (s *Service) Verify(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodECDSA); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.public, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodES256.Alg()}), jwt.WithExpirationRequired())

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, ErrInvalid
	}
	if !parsed.Valid {
		return nil, ErrInvalid
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, ErrInvalid
	}
	if claims.Subject == "" || claims.IssuedAt == nil || claims.ExpiresAt == nil {
		return nil, ErrInvalid
	}
	return claims, nil
}
