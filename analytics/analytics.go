package analytics

import (
	"crypto/sha256"
	"encoding/hex"
	"log"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ThrottleWindow is how long a visitor's repeat views of the same post are
// not counted again.
const ThrottleWindow = 30 * time.Minute

const visitorCookie = "unionhall_visitor_id"

// PostView is one counted view of a post.
type PostView struct {
	ID        uint      `gorm:"primary_key;autoIncrement"`
	PostID    string    `gorm:"not null;index"`
	VisitorID string    `gorm:"not null;index"`
	IP        string    `gorm:"not null"`
	Language  *string   // nullable
	Browser   *string   // nullable
	CreatedAt time.Time `gorm:"index"`
}

// AnalyticsModule records post views. A nil *AnalyticsModule is valid and
// means analytics is disabled: every view counts and statistics are empty.
type AnalyticsModule struct {
	db  *gorm.DB
	now func() time.Time
}

func NewAnalyticsModule(db *gorm.DB) *AnalyticsModule {
	if db == nil {
		log.Println("Analytics DB is nil, analytics will be disabled")
		return nil
	}

	if err := db.AutoMigrate(&PostView{}); err != nil {
		log.Printf("Error migrating post_views table: %v", err)
		return nil
	}

	log.Println("Analytics module initialized successfully")
	return &AnalyticsModule{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// TrackView records a view of postID and reports whether it should be
// counted. Views from the same visitor within ThrottleWindow are not.
func (a *AnalyticsModule) TrackView(c *gin.Context, postID string) bool {
	if a == nil || a.db == nil {
		return true
	}

	visitorID := a.getOrCreateVisitorID(c)
	now := a.now()

	var recent PostView
	err := a.db.Where("visitor_id = ? AND post_id = ? AND created_at > ?",
		visitorID, postID, now.Add(-ThrottleWindow)).First(&recent).Error
	if err == nil {
		return false
	}

	view := PostView{
		PostID:    postID,
		VisitorID: visitorID,
		IP:        a.getClientIP(c),
		Language:  a.extractLanguage(c),
		Browser:   a.extractBrowser(c.Request.UserAgent()),
		CreatedAt: now,
	}
	if err := a.db.Create(&view).Error; err != nil {
		log.Printf("Error saving post view: %v", err)
	}
	return true
}

// getOrCreateVisitorID reads the visitor cookie, setting one on first visit.
func (a *AnalyticsModule) getOrCreateVisitorID(c *gin.Context) string {
	if cookie, err := c.Cookie(visitorCookie); err == nil && cookie != "" {
		return cookie
	}

	data := a.now().String() + c.ClientIP() + c.Request.UserAgent()
	hash := sha256.Sum256([]byte(data))
	visitorID := hex.EncodeToString(hash[:])

	c.SetCookie(visitorCookie, visitorID, 60*60*24*365*2, "/", "", false, true)
	return visitorID
}

// getClientIP prefers proxy headers over the socket address.
func (a *AnalyticsModule) getClientIP(c *gin.Context) string {
	if ip := c.GetHeader("X-Forwarded-For"); ip != "" {
		return strings.TrimSpace(strings.Split(ip, ",")[0])
	}
	if ip := c.GetHeader("X-Real-IP"); ip != "" {
		return ip
	}
	if ip := c.GetHeader("CF-Connecting-IP"); ip != "" {
		return ip
	}
	return c.ClientIP()
}

func (a *AnalyticsModule) extractBrowser(userAgent string) *string {
	if userAgent == "" {
		return nil
	}

	ua := strings.ToLower(userAgent)
	var browser string

	// order matters: Edge and Opera also say Chrome, Chrome also says Safari
	switch {
	case strings.Contains(ua, "edg"):
		browser = "Edge"
	case strings.Contains(ua, "opr") || strings.Contains(ua, "opera"):
		browser = "Opera"
	case strings.Contains(ua, "samsungbrowser"):
		browser = "Samsung Internet"
	case strings.Contains(ua, "chrome"):
		browser = "Chrome"
	case strings.Contains(ua, "safari"):
		browser = "Safari"
	case strings.Contains(ua, "firefox"):
		browser = "Firefox"
	default:
		browser = "Other"
	}

	return &browser
}

// extractLanguage returns the first Accept-Language tag, without its q value.
func (a *AnalyticsModule) extractLanguage(c *gin.Context) *string {
	acceptLang := c.GetHeader("Accept-Language")
	if acceptLang == "" {
		return nil
	}
	lang := strings.TrimSpace(strings.Split(acceptLang, ",")[0])
	lang = strings.Split(lang, ";")[0]
	return &lang
}

type DayViews struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

type PostViews struct {
	PostID string `json:"post_id"`
	Count  int64  `json:"count"`
}

func (a *AnalyticsModule) GetPostViewCount(postID string) int64 {
	if a == nil || a.db == nil {
		return 0
	}

	var count int64
	a.db.Model(&PostView{}).Where("post_id = ?", postID).Count(&count)
	return count
}

// GetViewsByDay returns one entry per day for the last days days, oldest
// first, including days without views.
func (a *AnalyticsModule) GetViewsByDay(days int) []DayViews {
	if a == nil || a.db == nil || days <= 0 {
		return []DayViews{}
	}

	now := a.now()
	startDate := now.AddDate(0, 0, -days)

	var results []DayViews
	a.db.Model(&PostView{}).
		Select("DATE(created_at) as date, COUNT(*) as count").
		Where("created_at >= ?", startDate).
		Group("DATE(created_at)").
		Order("date ASC").
		Scan(&results)

	counts := make(map[string]int64, len(results))
	for _, r := range results {
		counts[r.Date] = r.Count
	}

	dayViews := make([]DayViews, days)
	for i := range dayViews {
		date := now.AddDate(0, 0, -(days - 1 - i)).Format("2006-01-02")
		dayViews[i] = DayViews{Date: date, Count: counts[date]}
	}
	return dayViews
}

// GetTopPosts returns the limit most viewed posts of the last days days.
func (a *AnalyticsModule) GetTopPosts(days int, limit int) []PostViews {
	if a == nil || a.db == nil {
		return []PostViews{}
	}

	startDate := a.now().AddDate(0, 0, -days)

	var results []PostViews
	a.db.Model(&PostView{}).
		Select("post_id as post_id, COUNT(*) as count").
		Where("created_at >= ?", startDate).
		Group("post_id").
		Order("count DESC").
		Limit(limit).
		Scan(&results)

	return results
}
