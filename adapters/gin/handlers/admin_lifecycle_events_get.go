package handlers

import (
	"net/http"
	"strconv"

	"github.com/PaulFidika/signuplifecycle/adapters/ginutil"
	core "github.com/PaulFidika/signuplifecycle/core"
	"github.com/gin-gonic/gin"
)

const (
	defaultEventsLimit = 50
	maxEventsLimit     = 500
)

// HandleAdminLifecycleEventsGET lists the newest lifecycle events. With no
// reader configured it answers an empty list.
func HandleAdminLifecycleEventsGET(events core.EventReader, rl ginutil.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultEventsLimit)))
		if err != nil || limit < 1 {
			ginutil.BadRequest(c, "invalid_limit")
			return
		}
		if limit > maxEventsLimit {
			limit = maxEventsLimit
		}
		if !ginutil.AllowNamed(c, rl, ginutil.RLAdminLifecycleEvents) {
			ginutil.TooMany(c)
			return
		}
		out := []core.LifecycleEvent{}
		if events != nil {
			got, err := events.Recent(c.Request.Context(), int64(limit))
			if err != nil {
				ginutil.ServerErrWithLog(c, "failed_to_list_events", err, "failed to list lifecycle events")
				return
			}
			if got != nil {
				out = got
			}
		}
		c.JSON(http.StatusOK, gin.H{"object": "list", "data": out})
	}
}
