package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	core "github.com/PaulFidika/signuplifecycle/core"
	memorystore "github.com/PaulFidika/signuplifecycle/storage/memory"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, time.June, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	users  *memorystore.Users
	events *memorystore.EventLog
	svc    *core.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	users := memorystore.NewUsers()
	users.Add(core.UserAccount{ID: 1, Username: "alice", Auth: "manual", CreatedAt: testNow.AddDate(0, 0, -101)})
	users.Add(core.UserAccount{ID: 2, Username: "root", Auth: "manual", CreatedAt: testNow.AddDate(-2, 0, 0), IsSiteAdmin: true})
	users.Add(core.UserAccount{ID: 3, Username: "bob", Auth: "oauth2", CreatedAt: testNow.AddDate(-2, 0, 0)})

	cfg := core.DefaultConfig()
	cfg.CoveredAuth = []string{"manual"}
	cfg.Location = time.UTC

	events := memorystore.NewEventLog()
	svc := core.NewService(users, core.StaticConfig(cfg)).
		WithUserLister(users).
		WithProfileFields(users).
		WithEventSink(events).
		WithClock(func() time.Time { return testNow })
	return &fixture{users: users, events: events, svc: svc}
}

func serve(t *testing.T, method, target string, h gin.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Handle(method, "/x", h)
	req := httptest.NewRequest(method, target, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type stubProvider struct {
	core.Provider
	runErr error
	cfgErr error
}

func (s stubProvider) ProcessLifecycle(ctx context.Context) (core.BatchResult, error) {
	return core.BatchResult{}, s.runErr
}

func (s stubProvider) EffectiveConfig(ctx context.Context) (core.Config, error) {
	return core.Config{}, s.cfgErr
}

func TestHandleAdminLifecycleUsersGET(t *testing.T) {
	f := newFixture(t)
	w := serve(t, http.MethodGet, "/x?page=1&page_size=10", HandleAdminLifecycleUsersGET(f.svc, nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp UserListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "list", resp.Object)
	require.EqualValues(t, 1, resp.Total)
	require.False(t, resp.HasMore)
	require.NotContains(t, resp.Columns, core.ColumnAccountOverridden)
	require.Len(t, resp.Data, 1)
	row := resp.Data[0]
	require.EqualValues(t, 1, row.ID)
	require.Equal(t, "Active", row.AccountStatus)
	require.Nil(t, row.AccountOverridden)
	require.Contains(t, row.NextStep, "Suspension coming up on")
}

func TestHandleAdminLifecycleUsersGETHugePage(t *testing.T) {
	f := newFixture(t)
	w := serve(t, http.MethodGet, "/x?page=9223372036854775807&page_size=50", HandleAdminLifecycleUsersGET(f.svc, nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp UserListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Empty(t, resp.Data)
	require.EqualValues(t, 1, resp.Total)
	require.False(t, resp.HasMore)
}

func TestHandleAdminLifecycleRunPOST(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		f := newFixture(t)
		w := serve(t, http.MethodPost, "/x", HandleAdminLifecycleRunPOST(f.svc, nil))
		require.Equal(t, http.StatusOK, w.Code)

		var res core.BatchResult
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
		require.True(t, res.AllSucceeded)
		require.Equal(t, 1, res.Suspended)
		require.Equal(t, 0, res.Deleted)

		u, ok := f.users.Get(1)
		require.True(t, ok)
		require.True(t, u.Suspended)
	})

	t.Run("in progress", func(t *testing.T) {
		w := serve(t, http.MethodPost, "/x", HandleAdminLifecycleRunPOST(stubProvider{runErr: core.ErrRunInProgress}, nil))
		require.Equal(t, http.StatusConflict, w.Code)
		require.JSONEq(t, `{"error":"run_in_progress"}`, w.Body.String())
	})

	t.Run("invalid config", func(t *testing.T) {
		err := fmt.Errorf("load lifecycle config: %w", core.ErrInvalidConfig)
		w := serve(t, http.MethodPost, "/x", HandleAdminLifecycleRunPOST(stubProvider{runErr: err}, nil))
		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("cancelled", func(t *testing.T) {
		w := serve(t, http.MethodPost, "/x", HandleAdminLifecycleRunPOST(stubProvider{runErr: context.Canceled}, nil))
		require.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestHandleAdminLifecycleSettingsGET(t *testing.T) {
	f := newFixture(t)
	w := serve(t, http.MethodGet, "/x", HandleAdminLifecycleSettingsGET(f.svc, nil))
	require.Equal(t, http.StatusOK, w.Code)

	var got map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Equal(t, []any{"manual"}, got["covered_auth"])
	require.EqualValues(t, 200, got["deletion_period_days"])
	require.EqualValues(t, 100, got["suspension_period_days"])
	require.Equal(t, true, got["suspension_enabled"])
	require.Equal(t, false, got["overrides_configured"])
	require.Equal(t, "UTC", got["timezone"])

	w = serve(t, http.MethodGet, "/x", HandleAdminLifecycleSettingsGET(stubProvider{cfgErr: core.ErrInvalidConfig}, nil))
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestHandleAdminLifecycleEventsGET(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.ProcessLifecycle(context.Background())
	require.NoError(t, err)

	w := serve(t, http.MethodGet, "/x", HandleAdminLifecycleEventsGET(f.events, nil))
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data []core.LifecycleEvent `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	require.Equal(t, core.EventUserSuspended, resp.Data[0].Kind)
	require.EqualValues(t, 1, resp.Data[0].UserID)

	w = serve(t, http.MethodGet, "/x", HandleAdminLifecycleEventsGET(nil, nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"object":"list","data":[]}`, w.Body.String())

	w = serve(t, http.MethodGet, "/x?limit=0", HandleAdminLifecycleEventsGET(f.events, nil))
	require.Equal(t, http.StatusBadRequest, w.Code)
}
