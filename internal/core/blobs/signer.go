package blobs

import (
	"crypto/rand"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// DefaultURLTTL is how long a minted blob URL stays valid.
const DefaultURLTTL = 15 * time.Minute

const tokenIssuer = "memories"

// URLSigner mints and verifies time-limited blob URLs of the form
// {baseURL}/blobs/{token}. The token is an HS256 JWT whose subject is the
// blob key. Every call mints a fresh jti, so two URLs for the same key differ.
type URLSigner struct {
	key     jwk.Key
	now     func() time.Time
	baseURL string
	ttl     time.Duration
}

// NewURLSigner creates a signer from an oct JWK. A nil key gets a random
// 256-bit secret, which invalidates outstanding URLs on restart.
func NewURLSigner(baseURL string, key jwk.Key, ttl time.Duration) (*URLSigner, error) {
	if key == nil {
		var err error
		key, err = GenerateSigningKey()
		if err != nil {
			return nil, err
		}
	}
	if key.KeyType() != jwa.OctetSeq {
		return nil, fmt.Errorf("blob signing key must be an oct JWK, got %s", key.KeyType())
	}
	if ttl <= 0 {
		ttl = DefaultURLTTL
	}
	return &URLSigner{
		key:     key,
		now:     time.Now,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		ttl:     ttl,
	}, nil
}

// GenerateSigningKey creates a random oct JWK for HS256.
func GenerateSigningKey() (jwk.Key, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("failed to generate signing secret: %w", err)
	}
	key, err := jwk.FromRaw(secret)
	if err != nil {
		return nil, fmt.Errorf("failed to create JWK from secret: %w", err)
	}
	if err := key.Set(jwk.AlgorithmKey, jwa.HS256); err != nil {
		return nil, fmt.Errorf("failed to set algorithm: %w", err)
	}
	if err := key.Set(jwk.KeyIDKey, uuid.NewString()); err != nil {
		return nil, fmt.Errorf("failed to set key id: %w", err)
	}
	return key, nil
}

// ParseSigningKey parses an oct JWK from JSON.
func ParseSigningKey(data []byte) (jwk.Key, error) {
	key, err := jwk.ParseKey(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse JWK: %w", err)
	}
	return key, nil
}

// TTL returns the lifetime of minted URLs.
func (s *URLSigner) TTL() time.Duration { return s.ttl }

// Token mints a signed token for key.
func (s *URLSigner) Token(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("blob key cannot be empty")
	}
	now := s.now()
	tok, err := jwt.NewBuilder().
		Issuer(tokenIssuer).
		Subject(key).
		IssuedAt(now).
		Expiration(now.Add(s.ttl)).
		JwtID(uuid.NewString()).
		Build()
	if err != nil {
		return "", fmt.Errorf("failed to build blob token: %w", err)
	}
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, s.key))
	if err != nil {
		return "", fmt.Errorf("failed to sign blob token: %w", err)
	}
	return string(signed), nil
}

// URL mints a signed URL for key.
func (s *URLSigner) URL(key string) (string, error) {
	token, err := s.Token(key)
	if err != nil {
		return "", err
	}
	return s.baseURL + "/blobs/" + url.PathEscape(token), nil
}

// Verify checks a token's signature and expiry and returns the blob key.
func (s *URLSigner) Verify(token string) (string, error) {
	tok, err := jwt.Parse([]byte(token),
		jwt.WithKey(jwa.HS256, s.key),
		jwt.WithValidate(true),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithClock(jwt.ClockFunc(s.now)),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if tok.Subject() == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return tok.Subject(), nil
}
