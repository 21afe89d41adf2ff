package site

import (
	"errors"
	"html"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"unionhall/models"
	"unionhall/nav"
)

type SiteModule struct {
	db        *gorm.DB
	domain    string
	publicDir string
}

func NewSiteModule(db *gorm.DB, domain, publicDir string) *SiteModule {
	return &SiteModule{db: db, domain: strings.TrimSuffix(domain, "/"), publicDir: publicDir}
}

func (s *SiteModule) RegisterRoutes(router *gin.Engine) {
	router.GET("/", s.index)
	router.GET("/share/:id", s.share)
	router.GET("/sitemap.xml", s.sitemap)
	router.GET("/api/settings", s.settings)
}

// index serves the web client. Without a build it answers with a short
// placeholder so the API stays usable on its own.
func (s *SiteModule) index(c *gin.Context) {
	page := filepath.Join(s.publicDir, "index.html")
	if _, err := os.Stat(page); err == nil {
		c.File(page)
		return
	}
	c.String(http.StatusOK, "unionhall API")
}

// share redirects a stable post link to the fragment that opens the post on
// its board. Unknown posts land on home.
func (s *SiteModule) share(c *gin.Context) {
	var post models.Post
	if err := s.db.Select("id", "board").First(&post, "id = ?", c.Param("id")).Error; err != nil {
		c.Redirect(http.StatusFound, nav.Link(nav.Default()))
		return
	}
	c.Redirect(http.StatusFound, nav.Link(nav.BoardState(post.Board, post.ID)))
}

func (s *SiteModule) settings(c *gin.Context) {
	var settings models.SiteSettings
	err := s.db.First(&settings, 1).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusOK, models.SiteSettings{})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load settings"})
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (s *SiteModule) sitemap(c *gin.Context) {
	var sitemap strings.Builder
	sitemap.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	sitemap.WriteString("\n")
	sitemap.WriteString(`<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">`)
	sitemap.WriteString("\n")

	sitemap.WriteString("  <url>\n")
	sitemap.WriteString("    <loc>" + html.EscapeString(s.domain) + "/</loc>\n")
	sitemap.WriteString("    <changefreq>daily</changefreq>\n")
	sitemap.WriteString("    <priority>1.0</priority>\n")
	sitemap.WriteString("  </url>\n")

	// signup posts are personal data and stay out of search engines, as do
	// the boards crawlers cannot read
	var posts []models.Post
	s.db.Select("id", "created_at").
		Where("board NOT IN ?", []models.BoardType{models.BoardSignup, models.BoardTrash, models.BoardFree, models.BoardResources}).
		Order("created_at DESC").
		Find(&posts)

	for _, post := range posts {
		sitemap.WriteString("  <url>\n")
		sitemap.WriteString("    <loc>" + html.EscapeString(s.domain+"/share/"+post.ID) + "</loc>\n")
		sitemap.WriteString("    <lastmod>" + post.CreatedAt.Format(time.RFC3339) + "</lastmod>\n")
		sitemap.WriteString("    <changefreq>monthly</changefreq>\n")
		sitemap.WriteString("    <priority>0.6</priority>\n")
		sitemap.WriteString("  </url>\n")
	}

	sitemap.WriteString("</urlset>\n")

	c.Header("Content-Type", "application/xml; charset=utf-8")
	c.String(http.StatusOK, sitemap.String())
}
