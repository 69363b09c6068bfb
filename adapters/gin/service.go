package lifecyclegin

import (
	"time"

	"github.com/PaulFidika/signuplifecycle/adapters/gin/handlers"
	"github.com/PaulFidika/signuplifecycle/adapters/ginutil"
	core "github.com/PaulFidika/signuplifecycle/core"
	redisstore "github.com/PaulFidika/signuplifecycle/storage/redis"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// Service mounts the lifecycle admin API on a Gin router.
type Service struct {
	svc        core.Provider
	events     core.EventReader
	rd         *redis.Client
	rl         ginutil.RateLimiter
	adminToken string
}

func NewService(svc core.Provider) *Service { return &Service{svc: svc} }

// WithEvents enables the recent-events endpoint.
func (s *Service) WithEvents(r core.EventReader) *Service          { s.events = r; return s }
func (s *Service) WithRedis(rd *redis.Client) *Service             { s.rd = rd; return s }
func (s *Service) WithRateLimiter(rl ginutil.RateLimiter) *Service { s.rl = rl; return s }
func (s *Service) WithAdminToken(token string) *Service            { s.adminToken = token; return s }

// GinRegisterAPI mounts the admin endpoints under the given router/group (e.g., /api/v1).
func (s *Service) GinRegisterAPI(api gin.IRouter) *Service {
	rl := s.ensureLimiter()

	admin := api.Group("/admin/lifecycle").Use(RequireAdminToken(s.adminToken))
	admin.GET("/users", handlers.HandleAdminLifecycleUsersGET(s.svc, rl))
	admin.POST("/run", handlers.HandleAdminLifecycleRunPOST(s.svc, rl))
	admin.GET("/settings", handlers.HandleAdminLifecycleSettingsGET(s.svc, rl))
	admin.GET("/events", handlers.HandleAdminLifecycleEventsGET(s.events, rl))
	return s
}

func (s *Service) ensureLimiter() ginutil.RateLimiter {
	if s.rl != nil {
		return s.rl
	}
	if s.rd != nil {
		s.rl = redisstore.NewLimiter(s.rd, defaultLimits())
		return s.rl
	}
	log.WithField("component", "signuplifecycle").Info("Redis client not configured; admin API is not rate limited")
	return nil
}

// defaultLimits provides rate limits for the admin endpoints.
func defaultLimits() map[string]redisstore.Limit {
	return map[string]redisstore.Limit{
		"default":                        {Limit: 120, Window: time.Minute},
		ginutil.RLAdminLifecycleUsers:    {Limit: 600, Window: time.Hour},
		ginutil.RLAdminLifecycleRun:      {Limit: 6, Window: time.Hour},
		ginutil.RLAdminLifecycleSettings: {Limit: 120, Window: time.Minute},
		ginutil.RLAdminLifecycleEvents:   {Limit: 120, Window: time.Minute},
	}
}
