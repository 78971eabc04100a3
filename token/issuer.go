// Package token signs and verifies the compact tokens emitted by authcore:
// HMAC-signed session tokens and Ed25519-signed step-up tokens.
package token

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalid covers every verification failure: bad signature, wrong
// audience or issuer, expired, not yet valid, or an unexpected algorithm.
var ErrInvalid = errors.New("token invalid")

const (
	minSecretBytes   = 32
	defaultStepUpTTL = 15 * time.Minute
	maxLeeway        = 2 * time.Minute
)

// Config holds the signing material and claim constants for an [Issuer].
// Instances are configured once and treated as immutable afterwards.
type Config struct {
	Issuer   string
	Audience string

	// Secret is the shared HMAC key for session tokens. Minimum 32 bytes.
	Secret []byte

	// StepUpPrivateKey and StepUpPublicKey carry the Ed25519 key pair for
	// step-up tokens, raw or PEM-encoded. A verify-only deployment may set
	// just the public key.
	StepUpPrivateKey []byte
	StepUpPublicKey  []byte

	// StepUpTTL bounds step-up token lifetime. Defaults to 15 minutes.
	StepUpTTL time.Duration

	// Leeway tolerates clock skew during verification. At most 2 minutes.
	Leeway time.Duration
}

// Claims is the payload of every authcore token: exactly the seven
// registered claims, with jti carrying the session (or step-up token)
// identifier and sub the subject identifier.
type Claims struct {
	jwt.RegisteredClaims
}

// SubjectID returns the sub claim.
func (c *Claims) SubjectID() string { return c.Subject }

// TokenID returns the jti claim. For session tokens this is the session
// identifier and the revocation-ledger key.
func (c *Claims) TokenID() string { return c.ID }

// Issuer signs session tokens with a shared HMAC secret and step-up tokens
// with an Ed25519 private key. Safe for concurrent use.
type Issuer struct {
	cfg  Config
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
}

// NewIssuer validates cfg and returns a ready Issuer.
func NewIssuer(cfg Config) (*Issuer, error) {
	if cfg.Issuer == "" {
		return nil, errors.New("issuer must not be empty")
	}
	if cfg.Audience == "" {
		return nil, errors.New("audience must not be empty")
	}
	if len(cfg.Secret) < minSecretBytes {
		return nil, fmt.Errorf("session secret must be at least %d bytes", minSecretBytes)
	}
	if cfg.Leeway < 0 || cfg.Leeway > maxLeeway {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.StepUpTTL == 0 {
		cfg.StepUpTTL = defaultStepUpTTL
	}
	if cfg.StepUpTTL < 0 {
		return nil, errors.New("invalid step-up TTL configuration")
	}

	iss := &Issuer{cfg: cfg}

	if len(cfg.StepUpPrivateKey) > 0 {
		priv, err := parseEdPrivateKey(cfg.StepUpPrivateKey)
		if err != nil {
			return nil, err
		}
		iss.priv = priv
		iss.pub = priv.Public().(ed25519.PublicKey)
	}
	if len(cfg.StepUpPublicKey) > 0 {
		pub, err := parseEdPublicKey(cfg.StepUpPublicKey)
		if err != nil {
			return nil, err
		}
		iss.pub = pub
	}

	return iss, nil
}

// IssueSession returns a compact HS256 token whose jti is sessionID and
// whose lifetime is ttl.
func (i *Issuer) IssueSession(subjectID, sessionID string, ttl time.Duration) (string, error) {
	if subjectID == "" || sessionID == "" {
		return "", errors.New("subject and session identifiers must not be empty")
	}
	if ttl <= 0 {
		return "", errors.New("session ttl must be positive")
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, i.claims(subjectID, sessionID, ttl))
	return tok.SignedString(i.cfg.Secret)
}

// IssueStepUp returns a compact EdDSA token attesting recent second-factor
// verification. Verifiers need only the public key, so a leaked verify key
// cannot forge new elevated tokens.
func (i *Issuer) IssueStepUp(subjectID, tokenID string) (string, error) {
	if i.priv == nil {
		return "", errors.New("step-up signing requires the ed25519 private key")
	}
	if subjectID == "" || tokenID == "" {
		return "", errors.New("subject and token identifiers must not be empty")
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodEdDSA, i.claims(subjectID, tokenID, i.cfg.StepUpTTL))
	return tok.SignedString(i.priv)
}

// VerifySession verifies an HMAC-signed session token. A step-up token is
// rejected here: the algorithms are deliberately not interchangeable.
func (i *Issuer) VerifySession(tokenStr string) (*Claims, error) {
	return i.verify(tokenStr, jwt.SigningMethodHS256.Alg())
}

// VerifyStepUp verifies an Ed25519-signed step-up token using only the
// public key.
func (i *Issuer) VerifyStepUp(tokenStr string) (*Claims, error) {
	if i.pub == nil {
		return nil, errors.New("step-up verification requires the ed25519 public key")
	}
	return i.verify(tokenStr, jwt.SigningMethodEdDSA.Alg())
}

func (i *Issuer) claims(subjectID, tokenID string, ttl time.Duration) Claims {
	now := time.Now()
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.cfg.Issuer,
			Subject:   subjectID,
			Audience:  jwt.ClaimStrings{i.cfg.Audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        tokenID,
		},
	}
}

func (i *Issuer) verify(tokenStr, alg string) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{alg}),
		jwt.WithIssuer(i.cfg.Issuer),
		jwt.WithAudience(i.cfg.Audience),
		jwt.WithExpirationRequired(),
	}
	if i.cfg.Leeway > 0 {
		options = append(options, jwt.WithLeeway(i.cfg.Leeway))
	}

	parser := jwt.NewParser(options...)
	tok, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		switch t.Method.Alg() {
		case jwt.SigningMethodHS256.Alg():
			return i.cfg.Secret, nil
		case jwt.SigningMethodEdDSA.Alg():
			if i.pub == nil {
				return nil, errors.New("no ed25519 public key configured")
			}
			return i.pub, nil
		default:
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	claims, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid {
		return nil, ErrInvalid
	}
	return claims, nil
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
