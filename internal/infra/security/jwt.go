package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	uuid "github.com/google/uuid"

	"github.com/spiderlily190/cad/internal/core/domain"
)

// ErrInvalidToken indicates the bearer token failed verification.
var ErrInvalidToken = errors.New("jwt: invalid token")

const defaultAccessTokenTTL = 12 * time.Hour

// RoleFlags mirrors the role switches stored on a CAD user.
type RoleFlags struct {
	Leo        bool `json:"leo,omitempty"`
	EmsFd      bool `json:"ems_fd,omitempty"`
	Dispatch   bool `json:"dispatch,omitempty"`
	Supervisor bool `json:"supervisor,omitempty"`
	Admin      bool `json:"admin,omitempty"`
}

// AccessTokenClaims carries the identity and grants of a CAD user.
type AccessTokenClaims struct {
	Username    string    `json:"username,omitempty"`
	Permissions []string  `json:"permissions,omitempty"`
	Roles       RoleFlags `json:"roles"`
	jwt.RegisteredClaims
}

// Actor converts verified claims into the request actor.
func (c *AccessTokenClaims) Actor() domain.Actor {
	permissions := make([]domain.Permission, 0, len(c.Permissions))
	for _, p := range c.Permissions {
		permissions = append(permissions, domain.Permission(p))
	}

	actor := domain.NewActor(c.Subject, permissions...)
	actor.Username = c.Username
	actor.IsLeo = c.Roles.Leo
	actor.IsEmsFd = c.Roles.EmsFd
	actor.IsDispatch = c.Roles.Dispatch
	actor.IsSupervisor = c.Roles.Supervisor
	actor.IsAdmin = c.Roles.Admin
	return actor
}

// AccessTokenOptions configures creation of access token claims.
type AccessTokenOptions struct {
	UserID      string
	Username    string
	Permissions []string
	Roles       RoleFlags
	TTL         time.Duration
	IssuedAt    time.Time
	JTI         string
}

// TokenManager signs and verifies HS256 access tokens.
type TokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager constructs a manager for the shared secret.
func NewTokenManager(secret, issuer string, ttl time.Duration) (*TokenManager, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("jwt: secret is required")
	}
	if ttl <= 0 {
		ttl = defaultAccessTokenTTL
	}
	return &TokenManager{
		secret: []byte(secret),
		issuer: strings.TrimSpace(issuer),
		ttl:    ttl,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

// WithClock overrides the manager clock for deterministic testing.
func (m *TokenManager) WithClock(clock func() time.Time) *TokenManager {
	if clock != nil {
		m.now = clock
	}
	return m
}

// NewAccessTokenClaims constructs standardized access token claims.
func (m *TokenManager) NewAccessTokenClaims(opts AccessTokenOptions) (*AccessTokenClaims, error) {
	userID := strings.TrimSpace(opts.UserID)
	if userID == "" {
		return nil, fmt.Errorf("jwt: user id is required")
	}

	now := opts.IssuedAt
	if now.IsZero() {
		now = m.now()
	}
	now = now.UTC()

	ttl := opts.TTL
	if ttl <= 0 {
		ttl = m.ttl
	}

	jti := strings.TrimSpace(opts.JTI)
	if jti == "" {
		jti = uuid.NewString()
	}

	return &AccessTokenClaims{
		Username:    strings.TrimSpace(opts.Username),
		Permissions: normalizePermissions(opts.Permissions),
		Roles:       opts.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        jti,
		},
	}, nil
}

// Sign signs the provided claims.
func (m *TokenManager) Sign(claims *AccessTokenClaims) (string, error) {
	if claims == nil {
		return "", fmt.Errorf("jwt: access token claims required")
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("jwt: sign token: %w", err)
	}
	return signed, nil
}

// Verify parses raw and checks signature, expiry and issuer.
func (m *TokenManager) Verify(raw string) (*AccessTokenClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}

	claims := &AccessTokenClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func normalizePermissions(input []string) []string {
	if len(input) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(input))
	result := make([]string, 0, len(input))
	for _, p := range input {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, exists := seen[p]; exists {
			continue
		}
		seen[p] = struct{}{}
		result = append(result, p)
	}

	if len(result) == 0 {
		return nil
	}

	return result
}
