package identity

import (
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"time"

	gojose "github.com/go-jose/go-jose/v4"
	gojwt "github.com/go-jose/go-jose/v4/jwt"

	"github.com/bizlink/workplace-console/internal/domain"
)

// Verifier validates RS256 identity tokens against the platform key set.
type Verifier struct {
	audience string
	issuer   string
	now      func() time.Time
}

// NewVerifier constructs a verifier expecting the application's client id as
// audience and the platform issuer string.
func NewVerifier(audience, issuer string) *Verifier {
	return &Verifier{
		audience: audience,
		issuer:   issuer,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Verify checks the token signature against the key named by its kid header
// and validates audience, issuer, and expiry. It returns the full claim set.
func (v *Verifier) Verify(keys KeySet, idToken string) (map[string]any, error) {
	parsed, err := gojwt.ParseSigned(idToken, []gojose.SignatureAlgorithm{gojose.RS256})
	if err != nil {
		return nil, fmt.Errorf("%w: parse token: %v", domain.ErrTokenInvalid, err)
	}

	var kid string
	for _, header := range parsed.Headers {
		if header.KeyID != "" {
			kid = header.KeyID
			break
		}
	}
	pemKey, ok := keys[kid]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownKey, kid)
	}

	pubKey, err := parsePublicKey(pemKey)
	if err != nil {
		return nil, fmt.Errorf("parse public key %q: %w", kid, err)
	}

	var std gojwt.Claims
	claims := map[string]any{}
	if err := parsed.Claims(pubKey, &std, &claims); err != nil {
		return nil, fmt.Errorf("%w: verify signature: %v", domain.ErrTokenInvalid, err)
	}

	if err := std.Validate(gojwt.Expected{
		Issuer:      v.issuer,
		AnyAudience: gojwt.Audience{v.audience},
		Time:        v.now(),
	}); err != nil {
		return nil, fmt.Errorf("%w: validate claims: %v", domain.ErrTokenInvalid, err)
	}

	return claims, nil
}

func parsePublicKey(pemKey string) (any, error) {
	block, _ := pem.Decode([]byte(pemKey))
	if block == nil {
		return nil, fmt.Errorf("no pem block")
	}
	switch block.Type {
	case "CERTIFICATE":
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parse certificate: %w", err)
		}
		return cert.PublicKey, nil
	default:
		key, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parse pkix key: %w", err)
		}
		return key, nil
	}
}
