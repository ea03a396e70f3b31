package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ultimatemcp/platform/internal/apierr"
)

const issuer = "ultimate-mcp"

// Claims is the token payload: subject, roles, issued/expiry, and
// issuer. jwt.RegisteredClaims carries sub/iat/exp/iss; Roles is the
// one custom claim added on top.
type Claims struct {
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies HS256 tokens and enforces revocation
// via the Blacklist.
type TokenService struct {
	signingKey []byte
	blacklist  *Blacklist
}

// NewTokenService builds a TokenService. signingKey must already have
// passed config.Validate's strength check before reaching here.
func NewTokenService(signingKey string, blacklist *Blacklist) *TokenService {
	return &TokenService{signingKey: []byte(signingKey), blacklist: blacklist}
}

// Issue mints a signed token for subject with the given roles and TTL.
func (s *TokenService) Issue(subject string, roles []Role, ttl time.Duration) (string, error) {
	roleStrs := make([]string, len(roles))
	for i, r := range roles {
		roleStrs[i] = string(r)
	}

	now := time.Now()
	claims := Claims{
		Roles: roleStrs,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", apierr.Wrap(apierr.KindInternal, "failed to sign token", err)
	}
	return signed, nil
}

// Verify validates signature, issuer, expiry, and roles, then checks
// revocation. On any failure the caller receives an error and MUST NOT
// assume any role — there is no default-role fallback anywhere in this
// path.
func (s *TokenService) Verify(rawToken string) (*Claims, error) {
	claims := &Claims{}

	parsed, err := jwt.ParseWithClaims(rawToken, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.signingKey, nil
	}, jwt.WithIssuer(issuer), jwt.WithValidMethods([]string{"HS256"}))

	if err != nil || !parsed.Valid {
		return nil, apierr.New(apierr.KindUnauthenticated, "invalid or expired token")
	}
	if len(claims.Roles) == 0 {
		return nil, apierr.New(apierr.KindUnauthenticated, "token carries no roles")
	}

	hash := hashToken(rawToken)
	if s.blacklist != nil {
		if s.blacklist.IsRevoked(hash) {
			return nil, apierr.New(apierr.KindUnauthenticated, "token has been revoked")
		}
		if claims.IssuedAt != nil && s.blacklist.IsCutBefore(claims.Subject, claims.IssuedAt.Time) {
			return nil, apierr.New(apierr.KindUnauthenticated, "token predates a user-wide revocation")
		}
	}

	return claims, nil
}

// Decode parses and signature-checks rawToken without consulting the
// blacklist, so an admin can inspect (and then revoke) a token that may
// already be blacklisted or expired. Callers that want the full
// fail-closed verification path describes must use Verify.
func (s *TokenService) Decode(rawToken string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(rawToken, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.signingKey, nil
	}, jwt.WithIssuer(issuer), jwt.WithValidMethods([]string{"HS256"}), jwt.WithoutClaimsValidation())
	if err != nil || parsed == nil {
		return nil, apierr.New(apierr.KindInvalidInput, "malformed token")
	}
	return claims, nil
}

// TokenHash exposes the same hash Verify checks against the blacklist,
// so callers can revoke a token by its raw value.
func TokenHash(rawToken string) string { return hashToken(rawToken) }

// TypedRoles converts Claims.Roles to typed Role values, dropping anything
// that isn't one of the three static roles rather than failing the
// whole verification — an unrecognized role simply grants nothing.
func (c *Claims) TypedRoles() []Role {
	out := make([]Role, 0, len(c.Roles))
	for _, r := range c.Roles {
		if role, ok := ParseRole(r); ok {
			out = append(out, role)
		}
	}
	return out
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
