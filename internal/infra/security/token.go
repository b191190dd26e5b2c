package security

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/spiderlily190/cad/internal/core/domain"
)

// APITokenUserID identifies actions performed with the CAD API token.
const APITokenUserID = "cad-api-token"

// GenerateSecureToken returns a base64 URL-safe random string using the specified number of random bytes.
func GenerateSecureToken(byteLength int) (string, error) {
	if byteLength <= 0 {
		return "", fmt.Errorf("length must be positive")
	}

	buf := make([]byte, byteLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// HashToken calculates a SHA-256 hash of the provided value.
func HashToken(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}

// APITokenVerifier checks the CAD-wide API token in constant time.
type APITokenVerifier struct {
	hash string
}

// NewAPITokenVerifier returns nil when token is empty, disabling API token access.
func NewAPITokenVerifier(token string) *APITokenVerifier {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	return &APITokenVerifier{hash: HashToken(token)}
}

// Verify reports whether candidate matches the configured token.
func (v *APITokenVerifier) Verify(candidate string) bool {
	if v == nil || candidate == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(HashToken(candidate)), []byte(v.hash)) == 1
}

// APITokenActor is the actor for requests authenticated with the API token.
// It holds every permission and acts CAD-wide.
func APITokenActor() domain.Actor {
	actor := domain.NewActor(APITokenUserID, domain.KnownPermissions...)
	actor.Username = "API Token"
	actor.IsLeo = true
	actor.IsEmsFd = true
	actor.IsDispatch = true
	actor.IsAPIToken = true
	return actor
}
