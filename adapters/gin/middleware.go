package lifecyclegin

import (
	"crypto/subtle"

	"github.com/PaulFidika/signuplifecycle/adapters/ginutil"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// RequireAdminToken guards the admin routes with a shared bearer token.
// An empty token rejects every request.
func RequireAdminToken(token string) gin.HandlerFunc {
	if token == "" {
		log.WithField("component", "signuplifecycle").Warn("admin token not configured; admin API is disabled")
	}
	want := []byte(token)
	return func(c *gin.Context) {
		got := ginutil.BearerToken(c.GetHeader("Authorization"))
		if got == "" {
			ginutil.Unauthorized(c, "missing_token")
			return
		}
		if len(want) == 0 || subtle.ConstantTimeCompare([]byte(got), want) != 1 {
			ginutil.Unauthorized(c, "invalid_token")
			return
		}
		c.Next()
	}
}
