package site

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"unionhall/models"
)

func setupTestDB() *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		panic("failed to connect database")
	}
	db.AutoMigrate(&models.Post{}, &models.SiteSettings{})
	return db
}

func setupTestRouter(db *gorm.DB, publicDir string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewSiteModule(db, "https://union.org/", publicDir).RegisterRoutes(router)
	return router
}

func get(router *gin.Engine, path string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest("GET", path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestShareRedirect(t *testing.T) {
	db := setupTestDB()
	db.Create(&models.Post{ID: "p1", Board: models.BoardFamilyEvents, Title: "BBQ", Author: "Lee", CreatedAt: time.Now()})
	router := setupTestRouter(db, t.TempDir())

	w := get(router, "/share/p1")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/#tab=family_events&post=p1", w.Header().Get("Location"))

	w = get(router, "/share/gone")
	assert.Equal(t, "/#tab=home", w.Header().Get("Location"))
}

func TestSettingsDefaultsWhenUnset(t *testing.T) {
	db := setupTestDB()
	router := setupTestRouter(db, t.TempDir())

	w := get(router, "/api/settings")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"greeting":""`)

	db.Save(&models.SiteSettings{ID: 1, Greeting: "Welcome, comrades"})
	w = get(router, "/api/settings")
	assert.Contains(t, w.Body.String(), "Welcome, comrades")
}

func TestSitemap(t *testing.T) {
	db := setupTestDB()
	db.Create(&models.Post{ID: "p1", Board: models.BoardNoticeAll, Title: "Vote", Author: "Admin", CreatedAt: time.Now()})
	db.Create(&models.Post{ID: "p2", Board: models.BoardSignup, Title: "Hi", Author: "Kim", CreatedAt: time.Now()})
	db.Create(&models.Post{ID: "p3", Board: models.BoardFree, Title: "Carpool", Author: "Kim", CreatedAt: time.Now()})
	router := setupTestRouter(db, t.TempDir())

	w := get(router, "/sitemap.xml")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/xml")
	assert.Contains(t, w.Body.String(), "<loc>https://union.org/</loc>")
	assert.Contains(t, w.Body.String(), "<loc>https://union.org/share/p1</loc>")
	assert.NotContains(t, w.Body.String(), "p2")
	assert.NotContains(t, w.Body.String(), "p3")
}

func TestIndexServesClient(t *testing.T) {
	dir := t.TempDir()
	router := setupTestRouter(setupTestDB(), dir)
	assert.Equal(t, "unionhall API", get(router, "/").Body.String())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>client</html>"), 0644))
	assert.Contains(t, get(router, "/").Body.String(), "client")
}
