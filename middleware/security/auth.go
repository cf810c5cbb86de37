package security

import (
	"net/http"
	"strings"

	"TalkGate/tools/errs"
	sec "TalkGate/tools/security"

	"github.com/gin-gonic/gin"
)

// context keys; downstream handlers read the caller identity through these
const (
	CtxTokenKey  = "authorization"
	CtxUserIDKey = "authorizationUser"
)

type Options struct {
	Secret                    []byte
	HeaderToken               string // default "authorization"
	EnableAuthorizationBearer bool   // default true
}

func DefaultOptions(secret []byte) *Options {
	return &Options{
		Secret:                    secret,
		HeaderToken:               CtxTokenKey,
		EnableAuthorizationBearer: true,
	}
}

// Middleware rejects requests without a verifiable bearer token. An empty
// secret downgrades to a presence check, which keeps local development
// one-command simple.
func Middleware(opts *Options) gin.HandlerFunc {
	if opts == nil {
		opts = DefaultOptions(nil)
	}
	return func(c *gin.Context) {
		token := strings.TrimSpace(c.GetHeader(opts.HeaderToken))

		// accept Authorization: Bearer xxx
		if opts.EnableAuthorizationBearer && strings.HasPrefix(strings.ToLower(token), "bearer ") {
			token = strings.TrimSpace(token[len("bearer "):])
		}

		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errs.ErrUnauthorized)
			return
		}
		c.Set(CtxTokenKey, token)

		if len(opts.Secret) > 0 {
			claims, err := sec.Verify(sec.DefaultOptions(opts.Secret), token)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, errs.ErrUnauthorized)
				return
			}
			c.Set(CtxUserIDKey, claims.Subject())
		}

		c.Next()
	}
}
