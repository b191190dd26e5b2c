package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/spiderlily190/cad/internal/core/domain"
	"github.com/spiderlily190/cad/internal/infra/logger"
	"github.com/spiderlily190/cad/internal/infra/security"
	"github.com/spiderlily190/cad/internal/usecase"
)

// APITokenHeader carries the CAD-wide API token.
const APITokenHeader = "snaily-cad-api-token"

// accessTokenParam lets browsers authenticate the websocket upgrade, which
// cannot carry an Authorization header.
const accessTokenParam = "access_token"

// ErrorResponse is the body of authentication and authorization failures. It
// has the same shape as handler errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Kind    string `json:"kind,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}

func newErrorResponse(c *gin.Context, kind, msg string) ErrorResponse {
	return ErrorResponse{Error: msg, Kind: kind, TraceID: GetTraceID(c)}
}

func deny(c *gin.Context, status int, kind, msg string) {
	c.AbortWithStatusJSON(status, newErrorResponse(c, kind, msg))
}

// AccessTokenVerifier parses bearer tokens into claims.
type AccessTokenVerifier interface {
	Verify(raw string) (*security.AccessTokenClaims, error)
}

// Authenticator resolves the request actor from the API token header, a
// bearer token, or the access_token query parameter of a websocket upgrade.
type Authenticator struct {
	tokens   AccessTokenVerifier
	apiToken *security.APITokenVerifier
	logger   *zap.Logger
}

// NewAuthenticator builds an Authenticator. apiToken is nil when the API token is disabled.
func NewAuthenticator(tokens AccessTokenVerifier, apiToken *security.APITokenVerifier, log *zap.Logger) *Authenticator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Authenticator{tokens: tokens, apiToken: apiToken, logger: log}
}

type credential struct {
	apiToken bool
	raw      string
}

var (
	errNoCredential    = errors.New("missing authorization header")
	errMalformedBearer = errors.New("invalid authorization format: expected 'Bearer <token>'")
)

func extractCredential(c *gin.Context) (credential, error) {
	if raw := strings.TrimSpace(c.GetHeader(APITokenHeader)); raw != "" {
		return credential{apiToken: true, raw: raw}, nil
	}

	if header := c.GetHeader("Authorization"); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		token = strings.TrimSpace(token)
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
			return credential{}, errMalformedBearer
		}
		return credential{raw: token}, nil
	}

	if isWebsocketUpgrade(c.Request) {
		if token := c.Query(accessTokenParam); token != "" {
			return credential{raw: token}, nil
		}
	}
	return credential{}, errNoCredential
}

func isWebsocketUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}

// RequireAuth aborts with 401 unless the request carries a valid credential.
func (a *Authenticator) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		cred, err := extractCredential(c)
		if err != nil {
			deny(c, http.StatusUnauthorized, "unauthorized", err.Error())
			return
		}

		if cred.apiToken {
			if !a.apiToken.Verify(cred.raw) {
				a.logger.Warn("rejected api token",
					zap.String("token", logger.MaskToken(cred.raw)),
					zap.String("client_ip", c.ClientIP()),
					zap.String("trace_id", GetTraceID(c)))
				deny(c, http.StatusUnauthorized, "unauthorized", "invalid api token")
				return
			}
			a.proceed(c, security.APITokenActor())
			return
		}

		claims, err := a.tokens.Verify(cred.raw)
		switch {
		case errors.Is(err, security.ErrInvalidToken):
			deny(c, http.StatusUnauthorized, "unauthorized", "invalid access token")
		case err != nil:
			a.logger.Error("access token verification failed", zap.Error(err))
			deny(c, http.StatusInternalServerError, "internal", "authentication failed")
		default:
			a.proceed(c, claims.Actor())
		}
	}
}

func (a *Authenticator) proceed(c *gin.Context, actor domain.Actor) {
	SetActor(c, actor)
	c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), logger.UserIDKey{}, actor.UserID))
	c.Next()
}

// RequireAccess aborts with 403 unless the actor satisfies the action's requirement.
func RequireAccess(action usecase.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := GetActor(c)
		if !ok {
			deny(c, http.StatusUnauthorized, "unauthorized", "authentication required")
			return
		}
		if err := usecase.CheckAccess(actor, action); err != nil {
			deny(c, http.StatusForbidden, "permission_denied", "insufficient permissions")
			return
		}
		c.Next()
	}
}
