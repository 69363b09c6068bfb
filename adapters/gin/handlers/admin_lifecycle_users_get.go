package handlers

import (
	"net/http"

	"github.com/PaulFidika/signuplifecycle/adapters/ginutil"
	core "github.com/PaulFidika/signuplifecycle/core"
	"github.com/gin-gonic/gin"
)

// UserListResponse is a Stripe-style list response for the lifecycle user list.
type UserListResponse struct {
	Object  string             `json:"object"`
	Columns []string           `json:"columns"`
	Data    []core.UserListRow `json:"data"`
	Total   int64              `json:"total"`
	Limit   int                `json:"limit"`
	Offset  int                `json:"offset"`
	HasMore bool               `json:"has_more"`
}

func HandleAdminLifecycleUsersGET(svc core.Provider, rl ginutil.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, size := ginutil.Pagination(c, core.DefaultUserListPageSize, core.MaxUserListPageSize)
		if !ginutil.AllowNamed(c, rl, ginutil.RLAdminLifecycleUsers) {
			ginutil.TooMany(c)
			return
		}
		table, err := svc.UserList(c.Request.Context())
		if err != nil {
			ginutil.ServerErrWithLog(c, "failed_to_load_config", err, "failed to load lifecycle config")
			return
		}
		result, err := table.Page(c.Request.Context(), page, size)
		if err != nil {
			ginutil.ServerErrWithLog(c, "failed_to_list_users", err, "failed to list lifecycle users")
			return
		}
		hasMore := int64(result.Offset)+int64(len(result.Rows)) < result.Total
		c.JSON(http.StatusOK, UserListResponse{
			Object:  "list",
			Columns: result.Columns,
			Data:    result.Rows,
			Total:   result.Total,
			Limit:   result.Limit,
			Offset:  result.Offset,
			HasMore: hasMore,
		})
	}
}
