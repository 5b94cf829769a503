package credential

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"sync"
	"time"

	"golang.org/x/oauth2/jws"

	"github.com/guildbot/guildbot/internal/config"
	"github.com/guildbot/guildbot/internal/utils"
)

// CredentialError means the held key is unusable or signing failed. There is
// no recovery path at runtime; callers should treat it as fatal.
type CredentialError struct {
	Op  string
	Err error
}

func (e *CredentialError) Error() string {
	return fmt.Sprintf("credential: %s: %v", e.Op, e.Err)
}

func (e *CredentialError) Unwrap() error {
	return e.Err
}

// Assertion is a signed, time-bounded service credential.
type Assertion struct {
	Token     string
	ExpiresAt time.Time
}

// Valid reports whether the assertion can still be presented at the given
// instant. A small leeway guards against clock skew against the remote.
func (a Assertion) Valid(now time.Time) bool {
	const leeway = 30 * time.Second
	return a.Token != "" && now.Add(leeway).Before(a.ExpiresAt)
}

// Sign produces an RS256-signed JWT assertion for the given identity. Pure
// and CPU-bound: no I/O, no shared state, fully determined by its arguments
// apart from the RSA signature randomness.
func Sign(key *rsa.PrivateKey, issuer, audience string, now time.Time, ttl time.Duration) (string, error) {
	header := &jws.Header{
		Algorithm: "RS256",
		Typ:       "JWT",
	}
	claims := &jws.ClaimSet{
		Iss: issuer,
		Aud: audience,
		Iat: now.Unix(),
		Exp: now.Add(ttl).Unix(),
	}
	token, err := jws.Encode(header, claims, key)
	if err != nil {
		return "", &CredentialError{Op: "sign assertion", Err: err}
	}
	return token, nil
}

// ParseKey decodes a PEM-encoded RSA private key (PKCS#8 or PKCS#1).
func ParseKey(pemBytes []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, &CredentialError{Op: "parse key", Err: fmt.Errorf("no PEM block found")}
	}

	if parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		key, ok := parsed.(*rsa.PrivateKey)
		if !ok {
			return nil, &CredentialError{Op: "parse key", Err: fmt.Errorf("not an RSA key: %T", parsed)}
		}
		return key, nil
	}

	key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, &CredentialError{Op: "parse key", Err: err}
	}
	return key, nil
}

// Issuer hands out the current assertion, re-signing when the held one is
// absent or expired. Key material is read-only after construction; Issue is
// safe for concurrent use.
type Issuer struct {
	key      *rsa.PrivateKey
	issuer   string
	audience string
	ttl      time.Duration
	clock    utils.Clock

	mu      sync.Mutex
	current Assertion
}

func NewIssuer(key *rsa.PrivateKey, issuer, audience string, ttl time.Duration, clock utils.Clock) *Issuer {
	return &Issuer{
		key:      key,
		issuer:   issuer,
		audience: audience,
		ttl:      ttl,
		clock:    clock,
	}
}

// NewIssuerFromConfig loads the private key (inline PEM first, then path)
// and builds the issuer. A malformed or missing key fails here so the
// process refuses to start without a usable credential.
func NewIssuerFromConfig(cfg config.Google, clock utils.Clock) (*Issuer, error) {
	pemBytes := []byte(cfg.PrivateKey)
	if len(pemBytes) == 0 {
		if cfg.PrivateKeyPath == "" {
			return nil, &CredentialError{Op: "load key", Err: fmt.Errorf("no private key configured")}
		}
		var err error
		pemBytes, err = os.ReadFile(cfg.PrivateKeyPath)
		if err != nil {
			return nil, &CredentialError{Op: "load key", Err: err}
		}
	}
	key, err := ParseKey(pemBytes)
	if err != nil {
		return nil, err
	}
	return NewIssuer(key, cfg.Issuer, cfg.Audience, cfg.TokenTTL, clock), nil
}

// Issue returns the held assertion, signing a new one when the held one is
// absent or no longer valid. Assertions are never kept past their expiry.
func (i *Issuer) Issue() (Assertion, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	now := i.clock.Now()
	if i.current.Valid(now) {
		return i.current, nil
	}

	token, err := Sign(i.key, i.issuer, i.audience, now, i.ttl)
	if err != nil {
		return Assertion{}, err
	}
	i.current = Assertion{Token: token, ExpiresAt: now.Add(i.ttl)}
	return i.current, nil
}

// Invalidate drops the held assertion so the next Issue signs a fresh one.
// Used after the remote rejects a token that looks valid locally.
func (i *Issuer) Invalidate() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.current = Assertion{}
}
