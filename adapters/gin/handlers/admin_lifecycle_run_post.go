package handlers

import (
	"errors"
	"net/http"

	"github.com/PaulFidika/signuplifecycle/adapters/ginutil"
	core "github.com/PaulFidika/signuplifecycle/core"
	"github.com/gin-gonic/gin"
)

// HandleAdminLifecycleRunPOST runs one batch synchronously and returns its summary.
// A run whose actions did not all succeed still answers 200 with all_succeeded=false.
func HandleAdminLifecycleRunPOST(svc core.Provider, rl ginutil.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !ginutil.AllowNamed(c, rl, ginutil.RLAdminLifecycleRun) {
			ginutil.TooMany(c)
			return
		}
		res, err := svc.ProcessLifecycle(c.Request.Context())
		switch {
		case errors.Is(err, core.ErrRunInProgress):
			ginutil.Conflict(c, "run_in_progress")
			return
		case errors.Is(err, core.ErrInvalidConfig):
			ginutil.SendErr(c, http.StatusUnprocessableEntity, "invalid_config")
			return
		case err != nil:
			ginutil.ServerErrWithLog(c, "failed_to_run_lifecycle", err, "lifecycle run failed")
			return
		}
		c.JSON(http.StatusOK, res)
	}
}
