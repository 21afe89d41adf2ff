package cache

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheReadWrite(t *testing.T) {
	c := NewCache(t.TempDir())

	_, found := c.Read("p1", "# hi", time.Hour)
	assert.False(t, found)

	require.NoError(t, c.Write("p1", "# hi", "<h1>hi</h1>"))
	html, found := c.Read("p1", "# hi", time.Hour)
	assert.True(t, found)
	assert.Equal(t, "<h1>hi</h1>", html)

	_, found = c.Read("p1", "# edited", time.Hour)
	assert.False(t, found, "a new source misses")

	_, found = c.Read("p1", "# hi", -time.Second)
	assert.False(t, found, "expired")
}

func TestCacheClear(t *testing.T) {
	c := NewCache(t.TempDir())
	require.NoError(t, c.Write("p1", "a", "A"))
	require.NoError(t, c.Write("p1", "b", "B"))
	require.NoError(t, c.Write("p2", "a", "A"))

	require.NoError(t, c.Clear("p1"))
	_, found := c.Read("p1", "a", time.Hour)
	assert.False(t, found)
	_, found = c.Read("p1", "b", time.Hour)
	assert.False(t, found)
	_, found = c.Read("p2", "a", time.Hour)
	assert.True(t, found)

	require.NoError(t, c.ClearOld(-time.Second))
	_, found = c.Read("p2", "a", time.Hour)
	assert.False(t, found)

	require.NoError(t, c.ClearAll())
	_, err := os.Stat(c.dir)
	assert.True(t, os.IsNotExist(err))
	assert.NoError(t, c.ClearOld(time.Hour), "missing dir is fine")
}

func TestETagMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(ETagMiddleware())
	router.GET("/api/posts", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"posts": []string{"a"}})
	})
	router.GET("/api/missing", func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "nope"})
	})

	req, _ := http.NewRequest("GET", "/api/posts", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	tag := w.Header().Get("ETag")
	assert.NotEmpty(t, tag)
	assert.JSONEq(t, `{"posts":["a"]}`, w.Body.String())

	req, _ = http.NewRequest("GET", "/api/posts", nil)
	req.Header.Set("If-None-Match", tag)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotModified, w.Code)
	assert.Empty(t, w.Body.String())

	req, _ = http.NewRequest("GET", "/api/missing", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, w.Header().Get("ETag"))
	assert.Contains(t, w.Body.String(), "nope")
}
