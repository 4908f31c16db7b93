package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/FirplakDesarrollador/CRM-sub001/internal/infrastructure/auth"
	"github.com/FirplakDesarrollador/CRM-sub001/internal/infrastructure/logger"
	"github.com/FirplakDesarrollador/CRM-sub001/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
	// ActorHeader names the acting user when bearer tokens are not required.
	ActorHeader = "X-Actor-ID"
)

// ActorConfig holds configuration for the actor middleware.
type ActorConfig struct {
	// Verifier validates bearer tokens. Nil disables token checks.
	Verifier *auth.Verifier
	// Required rejects requests that carry no valid bearer token.
	Required bool
	// SkipPaths are paths that need no actor.
	SkipPaths []string
	Logger    *zap.Logger
}

// Actor resolves the acting user for every request: the subject of a valid
// bearer token, or the X-Actor-ID header when tokens are optional. Requests
// with neither still pass; mutating handlers reject them.
func Actor(cfg ActorConfig) gin.HandlerFunc {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *gin.Context) {
		for _, p := range cfg.SkipPaths {
			if c.Request.URL.Path == p {
				c.Next()
				return
			}
		}

		actor, err := resolveActor(c, cfg)
		if err != nil {
			log.Warn("Actor authentication failed",
				zap.Error(err),
				zap.String("path", c.Request.URL.Path),
			)
			code := dto.ErrCodeTokenInvalid
			if errors.Is(err, errMissingToken) {
				code = dto.ErrCodeUnauthorized
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponseWithRequestID(
				code,
				"Authentication required",
				GetRequestID(c),
			))
			return
		}

		if actor != "" {
			c.Set(ActorIDKey, actor)
			c.Request = c.Request.WithContext(logger.WithActorID(c.Request.Context(), actor))
		}
		c.Next()
	}
}

var errMissingToken = errors.New("missing bearer token")

func resolveActor(c *gin.Context, cfg ActorConfig) (string, error) {
	header := c.GetHeader(AuthHeaderKey)
	if header != "" && cfg.Verifier != nil {
		if !strings.HasPrefix(header, BearerPrefix) {
			return "", auth.ErrInvalidToken
		}
		claims, err := cfg.Verifier.Verify(strings.TrimPrefix(header, BearerPrefix))
		if err != nil {
			return "", err
		}
		return claims.Actor(), nil
	}
	if cfg.Required {
		return "", errMissingToken
	}
	return strings.TrimSpace(c.GetHeader(ActorHeader)), nil
}

// GetActorID returns the actor resolved by Actor, or "".
func GetActorID(c *gin.Context) string {
	return c.GetString(ActorIDKey)
}
