package auth

import (
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// ErrInvalidToken is returned for credentials that fail verification.
var ErrInvalidToken = errors.New("auth: invalid session token")

// Claims are the session token claims issued for citamed accounts.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	Role  string `json:"role,omitempty"`
}

type JWTConfig struct {
	Issuer   string
	Audience string
	JWKSURL  string
	// SigningKey selects HS256 verification instead of JWKS.
	SigningKey []byte
	// CookieName is the session cookie read when no Authorization header is sent.
	CookieName string
	// Revocations, when set, rejects signed-out tokens.
	Revocations Revocations
}

// JWKSKey represents a single JSON Web Key from a JWKS endpoint.
type JWKSKey struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// JWKSResponse represents the response from a JWKS endpoint.
type JWKSResponse struct {
	Keys []JWKSKey `json:"keys"`
}

// JWKSCache caches JWKS keys fetched from a remote endpoint with a configurable TTL.
type JWKSCache struct {
	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey
	jwksURL   string
	ttl       time.Duration
	fetchedAt time.Time
	client    *http.Client
}

// NewJWKSCache creates a new JWKS cache that fetches keys from the given URL.
func NewJWKSCache(jwksURL string, ttl time.Duration) *JWKSCache {
	return &JWKSCache{
		keys:    make(map[string]*rsa.PublicKey),
		jwksURL: jwksURL,
		ttl:     ttl,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// GetKey returns the RSA public key for the given kid.
// It fetches keys from the JWKS endpoint if the cache is expired or if the kid is not found.
func (c *JWKSCache) GetKey(kid string) (*rsa.PublicKey, error) {
	c.mu.RLock()
	key, ok := c.keys[kid]
	expired := time.Since(c.fetchedAt) > c.ttl
	c.mu.RUnlock()

	if ok && !expired {
		return key, nil
	}

	// Cache miss or expired: fetch fresh keys
	if err := c.fetch(); err != nil {
		return nil, fmt.Errorf("fetching JWKS: %w", err)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	key, ok = c.keys[kid]
	if !ok {
		return nil, fmt.Errorf("key with kid %q not found in JWKS", kid)
	}
	return key, nil
}

// fetch retrieves the JWKS from the remote endpoint and updates the cache.
func (c *JWKSCache) fetch() error {
	resp, err := c.client.Get(c.jwksURL)
	if err != nil {
		return fmt.Errorf("GET %s: %w", c.jwksURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("JWKS endpoint returned status %d", resp.StatusCode)
	}

	var jwks JWKSResponse
	if err := json.NewDecoder(resp.Body).Decode(&jwks); err != nil {
		return fmt.Errorf("decoding JWKS response: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(jwks.Keys))
	for _, k := range jwks.Keys {
		if k.Kty != "RSA" {
			continue
		}
		pubKey, err := parseRSAPublicKey(k)
		if err != nil {
			continue // skip malformed keys
		}
		keys[k.Kid] = pubKey
	}

	c.mu.Lock()
	c.keys = keys
	c.fetchedAt = time.Now()
	c.mu.Unlock()

	return nil
}

// parseRSAPublicKey converts a JWKSKey to an *rsa.PublicKey.
func parseRSAPublicKey(k JWKSKey) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("decoding modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("decoding exponent: %w", err)
	}

	n := new(big.Int).SetBytes(nBytes)
	e := new(big.Int).SetBytes(eBytes)

	return &rsa.PublicKey{
		N: n,
		E: int(e.Int64()),
	}, nil
}

// defaultJWKSCacheTTL is the default time-to-live for cached JWKS keys.
const defaultJWKSCacheTTL = 5 * time.Minute

// jwksKeyFunc returns a jwt.Keyfunc that fetches public keys from a JWKS endpoint.
// Keys are cached in memory and automatically refreshed on cache miss or TTL expiry.
func jwksKeyFunc(jwksURL string) jwt.Keyfunc {
	cache := NewJWKSCache(jwksURL, defaultJWKSCacheTTL)
	return func(token *jwt.Token) (interface{}, error) {
		kid, ok := token.Header["kid"].(string)
		if !ok || kid == "" {
			return nil, fmt.Errorf("token has no kid header")
		}
		return cache.GetKey(kid)
	}
}

// SessionLookup resolves the user behind a request. It returns a nil user
// and no error when the request carries no credentials.
type SessionLookup interface {
	Lookup(r *http.Request) (*User, error)
}

// TokenLookup verifies session JWTs sent as a bearer token or session cookie.
type TokenLookup struct {
	cookie  string
	keyFunc jwt.Keyfunc
	opts    []jwt.ParserOption
	revoked Revocations
}

// NewTokenLookup builds a lookup verifying HS256 tokens with cfg.SigningKey,
// or RS256 tokens against the JWKS endpoint otherwise. Without a JWKS URL the
// endpoint is discovered from the issuer.
func NewTokenLookup(cfg JWTConfig) *TokenLookup {
	l := &TokenLookup{cookie: cfg.CookieName, revoked: cfg.Revocations}

	if len(cfg.SigningKey) > 0 {
		key := cfg.SigningKey
		l.keyFunc = func(*jwt.Token) (interface{}, error) { return key, nil }
		l.opts = append(l.opts, jwt.WithValidMethods([]string{"HS256"}))
	} else {
		jwksURL := cfg.JWKSURL
		if jwksURL == "" && cfg.Issuer != "" {
			if provider, err := NewOIDCProvider(cfg.Issuer); err == nil {
				jwksURL = provider.JWKSURI
			}
		}
		l.keyFunc = jwksKeyFunc(jwksURL)
		l.opts = append(l.opts, jwt.WithValidMethods([]string{"RS256"}))
	}
	if cfg.Issuer != "" {
		l.opts = append(l.opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		l.opts = append(l.opts, jwt.WithAudience(cfg.Audience))
	}
	return l
}

func (l *TokenLookup) Lookup(r *http.Request) (*User, error) {
	tokenStr, err := l.credentials(r)
	if err != nil || tokenStr == "" {
		return nil, err
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, l.keyFunc, l.opts...)
	if err != nil || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	// Revocation store errors leave the token valid.
	if l.revoked != nil && claims.ID != "" {
		if revoked, err := l.revoked.IsRevoked(r.Context(), claims.ID); err == nil && revoked {
			return nil, ErrInvalidToken
		}
	}

	u := &User{
		ID:      claims.Subject,
		Email:   claims.Email,
		Name:    claims.Name,
		Role:    NormalizeRole(claims.Role),
		TokenID: claims.ID,
	}
	if claims.ExpiresAt != nil {
		u.ExpiresAt = claims.ExpiresAt.Time
	}
	return u, nil
}

func (l *TokenLookup) credentials(r *http.Request) (string, error) {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
			return "", ErrInvalidToken
		}
		return strings.TrimSpace(parts[1]), nil
	}
	if l.cookie != "" {
		if ck, err := r.Cookie(l.cookie); err == nil {
			return ck.Value, nil
		}
	}
	return "", nil
}

// DevLookup trusts the X-Dev-User, X-Dev-Role and X-Dev-Email headers. It is
// only wired in development.
type DevLookup struct{}

func (DevLookup) Lookup(r *http.Request) (*User, error) {
	id := r.Header.Get("X-Dev-User")
	if id == "" {
		return nil, nil
	}
	return &User{
		ID:    id,
		Email: r.Header.Get("X-Dev-Email"),
		Role:  NormalizeRole(r.Header.Get("X-Dev-Role")),
	}, nil
}

// SessionMiddleware performs the request's single session lookup and stores
// the resolved Session in the request context. Invalid credentials resolve to
// an anonymous session.
func SessionMiddleware(lookup SessionLookup) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			s := &Session{State: StateLoading}
			user, err := lookup.Lookup(c.Request())
			s.State = StateResolved
			if err == nil {
				s.User = user
			}
			c.SetRequest(c.Request().WithContext(WithSession(c.Request().Context(), s)))
			return next(c)
		}
	}
}
