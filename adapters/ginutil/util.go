package ginutil

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// RateLimiter is a minimal interface used by adapters.
type RateLimiter interface {
	AllowNamed(bucket string, key string) (bool, error)
}

// Bucket names used by the admin endpoints.
const (
	RLAdminLifecycleUsers    = "lifecycle_admin_users"
	RLAdminLifecycleRun      = "lifecycle_admin_run"
	RLAdminLifecycleSettings = "lifecycle_admin_settings"
	RLAdminLifecycleEvents   = "lifecycle_admin_events"
)

// AllowNamed applies a per-IP limit using the provided bucket name.
// It fails open on limiter error.
func AllowNamed(c *gin.Context, rl RateLimiter, bucket string) bool {
	if rl == nil {
		return true
	}
	key := "lifecycle:" + bucket + ":ip:" + c.ClientIP()
	ok, err := rl.AllowNamed(bucket, key)
	if err != nil {
		return true
	}
	return ok
}

// Error helpers
func SendErr(c *gin.Context, status int, code string) {
	c.AbortWithStatusJSON(status, gin.H{"error": code})
}
func BadRequest(c *gin.Context, code string)   { SendErr(c, http.StatusBadRequest, code) }
func Unauthorized(c *gin.Context, code string) { SendErr(c, http.StatusUnauthorized, code) }
func Forbidden(c *gin.Context, code string)    { SendErr(c, http.StatusForbidden, code) }
func Conflict(c *gin.Context, code string)     { SendErr(c, http.StatusConflict, code) }
func TooMany(c *gin.Context)                   { SendErr(c, http.StatusTooManyRequests, "rate_limited") }
func ServerErr(c *gin.Context, code string)    { SendErr(c, http.StatusInternalServerError, code) }
func NotFound(c *gin.Context, code string)     { SendErr(c, http.StatusNotFound, code) }

// ServerErrWithLog logs the underlying error/context before responding with a generic server error.
func ServerErrWithLog(c *gin.Context, code string, err error, message string) {
	entry := log.WithContext(c.Request.Context()).WithFields(log.Fields{
		"code":   code,
		"path":   c.FullPath(),
		"method": c.Request.Method,
	})
	if err != nil {
		entry = entry.WithError(err)
	}
	if strings.TrimSpace(message) == "" {
		message = "signuplifecycle server error"
	}
	entry.Error(message)
	ServerErr(c, code)
}

// BearerToken extracts the token from an Authorization header ("" if absent).
func BearerToken(authorization string) string {
	if authorization == "" {
		return ""
	}
	parts := strings.SplitN(authorization, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return parts[1]
	}
	return ""
}

// Pagination reads page/page_size query params. Invalid values fall back to
// page 1 and defaultSize; sizes above maxSize are clamped.
func Pagination(c *gin.Context, defaultSize, maxSize int) (page, size int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	size, err = strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(defaultSize)))
	if err != nil || size < 1 {
		size = defaultSize
	}
	if maxSize > 0 && size > maxSize {
		size = maxSize
	}
	return page, size
}
