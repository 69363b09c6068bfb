package ginutil

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func newContext(t *testing.T, target string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, target, nil)
	return c, w
}

func TestPagination(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		c, _ := newContext(t, "/")
		page, size := Pagination(c, 50, 200)
		require.Equal(t, 1, page)
		require.Equal(t, 50, size)
	})

	t.Run("explicit", func(t *testing.T) {
		c, _ := newContext(t, "/?page=3&page_size=20")
		page, size := Pagination(c, 50, 200)
		require.Equal(t, 3, page)
		require.Equal(t, 20, size)
	})

	t.Run("clamped", func(t *testing.T) {
		c, _ := newContext(t, "/?page=-1&page_size=1000")
		page, size := Pagination(c, 50, 200)
		require.Equal(t, 1, page)
		require.Equal(t, 200, size)
	})

	t.Run("garbage", func(t *testing.T) {
		c, _ := newContext(t, "/?page=x&page_size=y")
		page, size := Pagination(c, 25, 200)
		require.Equal(t, 1, page)
		require.Equal(t, 25, size)
	})
}

type stubLimiter struct {
	ok  bool
	err error
}

func (s stubLimiter) AllowNamed(bucket, key string) (bool, error) { return s.ok, s.err }

func TestAllowNamed(t *testing.T) {
	c, _ := newContext(t, "/")
	require.True(t, AllowNamed(c, nil, RLAdminLifecycleRun))
	require.False(t, AllowNamed(c, stubLimiter{ok: false}, RLAdminLifecycleRun))
	require.True(t, AllowNamed(c, stubLimiter{err: errors.New("down")}, RLAdminLifecycleRun), "fails open")
}

func TestServerErrWithLog(t *testing.T) {
	c, w := newContext(t, "/")
	ServerErrWithLog(c, "boom", errors.New("db down"), "")
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.JSONEq(t, `{"error":"boom"}`, w.Body.String())
	require.True(t, c.IsAborted())
}

func TestBearerToken(t *testing.T) {
	require.Equal(t, "abc", BearerToken("Bearer abc"))
	require.Equal(t, "abc", BearerToken("bearer abc"))
	require.Equal(t, "", BearerToken("Basic abc"))
	require.Equal(t, "", BearerToken(""))
}
