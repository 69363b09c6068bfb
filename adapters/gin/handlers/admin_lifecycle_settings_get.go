package handlers

import (
	"errors"
	"net/http"

	"github.com/PaulFidika/signuplifecycle/adapters/ginutil"
	core "github.com/PaulFidika/signuplifecycle/core"
	"github.com/gin-gonic/gin"
)

type settingsResponse struct {
	CoveredAuth             []string `json:"covered_auth"`
	DeletionPeriodDays      int      `json:"deletion_period_days"`
	SuspensionEnabled       bool     `json:"suspension_enabled"`
	SuspensionPeriodDays    int      `json:"suspension_period_days"`
	OverridesEnabled        bool     `json:"overrides_enabled"`
	OverridesConfigured     bool     `json:"overrides_configured"`
	DeletionOverrideField   int64    `json:"deletion_override_field"`
	SuspensionOverrideField int64    `json:"suspension_override_field"`
	Timezone                string   `json:"timezone"`
}

func HandleAdminLifecycleSettingsGET(svc core.Provider, rl ginutil.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !ginutil.AllowNamed(c, rl, ginutil.RLAdminLifecycleSettings) {
			ginutil.TooMany(c)
			return
		}
		cfg, err := svc.EffectiveConfig(c.Request.Context())
		if errors.Is(err, core.ErrInvalidConfig) {
			ginutil.SendErr(c, http.StatusUnprocessableEntity, "invalid_config")
			return
		}
		if err != nil {
			ginutil.ServerErrWithLog(c, "failed_to_load_config", err, "failed to load lifecycle config")
			return
		}
		covered := cfg.CoveredAuth
		if covered == nil {
			covered = []string{}
		}
		tz := "Local"
		if cfg.Location != nil {
			tz = cfg.Location.String()
		}
		c.JSON(http.StatusOK, settingsResponse{
			CoveredAuth:             covered,
			DeletionPeriodDays:      cfg.DeletionPeriodDays,
			SuspensionEnabled:       cfg.SuspensionEnabled,
			SuspensionPeriodDays:    cfg.SuspensionPeriodDays,
			OverridesEnabled:        cfg.OverridesEnabled,
			OverridesConfigured:     cfg.OverridesEnabledAndConfigured(),
			DeletionOverrideField:   cfg.DeletionOverrideField,
			SuspensionOverrideField: cfg.SuspensionOverrideField,
			Timezone:                tz,
		})
	}
}
