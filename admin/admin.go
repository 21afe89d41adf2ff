// Package admin serves the admin console API: member approval and removal,
// site settings, view statistics and cache and index maintenance.
package admin

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"unionhall/analytics"
	"unionhall/cache"
	"unionhall/common"
	emailpkg "unionhall/email"
	"unionhall/models"
)

const (
	statsDays     = 15
	topPostDays   = 30
	topPostsLimit = 10
)

// Reindexer rebuilds the post search index.
type Reindexer interface {
	Reindex() error
}

type AdminModule struct {
	db        *gorm.DB
	analytics *analytics.AnalyticsModule
	cache     *cache.Cache
	email     *emailpkg.EmailService
	index     Reindexer
}

func NewAdminModule(db *gorm.DB, analyticsModule *analytics.AnalyticsModule, renderCache *cache.Cache, email *emailpkg.EmailService, index Reindexer) *AdminModule {
	return &AdminModule{
		db:        db,
		analytics: analyticsModule,
		cache:     renderCache,
		email:     email,
		index:     index,
	}
}

func (a *AdminModule) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api", common.RequireAdmin)
	{
		api.GET("/members", a.listMembers)
		api.PUT("/members/:id", a.upsertMember)
		api.POST("/members/:id/approve", a.approveMember)
		api.DELETE("/members/:id", a.deleteMember)
		api.PUT("/settings", a.updateSettings)
		api.GET("/admin/stats", a.stats)
		api.POST("/admin/cache/clear", a.clearCache)
		api.POST("/admin/reindex", a.reindex)
	}
}

func (a *AdminModule) listMembers(c *gin.Context) {
	var members []models.Member
	if err := a.db.Order("is_approved ASC").Order("signup_at DESC").Find(&members).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load members"})
		return
	}
	c.JSON(http.StatusOK, members)
}

// upsertMember stores the member record sent by the client. Approving a
// member this way sends the same mail as approveMember.
func (a *AdminModule) upsertMember(c *gin.Context) {
	var in models.Member
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid member"})
		return
	}
	in.ID = c.Param("id")
	if in.Name == "" || !models.ValidGarage(in.Garage) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name and a known garage are required"})
		return
	}

	var existing models.Member
	err := a.db.First(&existing, "id = ?", in.ID).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load member"})
		return
	}
	found := err == nil
	if found {
		// never sent to clients
		in.LegacyPassword = existing.LegacyPassword
	}

	if err := a.db.Save(&in).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not save member"})
		return
	}

	if in.IsApproved && (!found || !existing.IsApproved) {
		a.notifyApproved(&in)
	}
	c.JSON(http.StatusOK, in)
}

func (a *AdminModule) approveMember(c *gin.Context) {
	var member models.Member
	if err := a.db.First(&member, "id = ?", c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "member not found"})
		return
	}

	if !member.IsApproved {
		if err := a.db.Model(&member).Update("is_approved", true).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not approve member"})
			return
		}
		a.notifyApproved(&member)
	}
	c.JSON(http.StatusOK, member)
}

func (a *AdminModule) notifyApproved(m *models.Member) {
	if m.Email == "" {
		return
	}
	if err := a.email.SendApproved(m.Email, m.Name); err != nil {
		log.Printf("admin: approval mail for %s: %v", m.ID, err)
	}
}

// deleteMember removes a member with its sign-in account and push
// subscriptions.
func (a *AdminModule) deleteMember(c *gin.Context) {
	id := c.Param("id")

	var deleted int64
	err := a.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Delete(&models.Member{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		deleted = result.RowsAffected
		if err := tx.Where("member_id = ?", id).Delete(&models.PushSubscription{}).Error; err != nil {
			return err
		}
		return tx.Where("member_id = ? AND is_admin = ?", id, false).Delete(&models.Account{}).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete member"})
		return
	}
	if deleted == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "member not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "member deleted"})
}

// updateSettings replaces the single settings row. The last write wins.
func (a *AdminModule) updateSettings(c *gin.Context) {
	var settings models.SiteSettings
	if err := c.ShouldBindJSON(&settings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid settings"})
		return
	}
	settings.ID = 1

	if err := a.db.Save(&settings).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not save settings"})
		return
	}
	c.JSON(http.StatusOK, settings)
}

type DayViewChart struct {
	Date       string  `json:"date"`
	Count      int64   `json:"count"`
	Percentage float64 `json:"percentage"`
}

type PostViewChart struct {
	PostID     string  `json:"post_id"`
	PostTitle  string  `json:"post_title"`
	Count      int64   `json:"count"`
	Percentage float64 `json:"percentage"`
}

type Stats struct {
	AnalyticsEnabled bool            `json:"analytics_enabled"`
	ViewsByDay       []DayViewChart  `json:"views_by_day"`
	TopPosts         []PostViewChart `json:"top_posts"`
	Members          int64           `json:"members"`
	PendingMembers   int64           `json:"pending_members"`
	Posts            int64           `json:"posts"`
}

func (a *AdminModule) stats(c *gin.Context) {
	stats := Stats{
		AnalyticsEnabled: a.analytics != nil,
		ViewsByDay:       []DayViewChart{},
		TopPosts:         []PostViewChart{},
	}
	a.db.Model(&models.Member{}).Count(&stats.Members)
	a.db.Model(&models.Member{}).Where("is_approved = ?", false).Count(&stats.PendingMembers)
	a.db.Model(&models.Post{}).Count(&stats.Posts)

	if a.analytics == nil {
		c.JSON(http.StatusOK, stats)
		return
	}

	viewsByDay := a.analytics.GetViewsByDay(statsDays)
	topPosts := a.analytics.GetTopPosts(topPostDays, topPostsLimit)

	// largest value, for bar chart normalization
	maxPerDay := int64(1)
	for _, day := range viewsByDay {
		if day.Count > maxPerDay {
			maxPerDay = day.Count
		}
	}
	maxPerPost := int64(1)
	for _, post := range topPosts {
		if post.Count > maxPerPost {
			maxPerPost = post.Count
		}
	}

	for _, day := range viewsByDay {
		stats.ViewsByDay = append(stats.ViewsByDay, DayViewChart{
			Date:       day.Date,
			Count:      day.Count,
			Percentage: float64(day.Count) / float64(maxPerDay) * 100,
		})
	}
	for _, top := range topPosts {
		title := "Deleted post"
		var post models.Post
		if err := a.db.Select("id", "title").First(&post, "id = ?", top.PostID).Error; err == nil {
			title = post.Title
		}
		stats.TopPosts = append(stats.TopPosts, PostViewChart{
			PostID:     top.PostID,
			PostTitle:  title,
			Count:      top.Count,
			Percentage: float64(top.Count) / float64(maxPerPost) * 100,
		})
	}

	c.JSON(http.StatusOK, stats)
}

func (a *AdminModule) clearCache(c *gin.Context) {
	if err := a.cache.ClearAll(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not clear cache"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "cache cleared"})
}

func (a *AdminModule) reindex(c *gin.Context) {
	if err := a.index.Reindex(); err != nil {
		log.Printf("admin: reindex: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not rebuild search index"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "search index rebuilt"})
}
