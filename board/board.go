// Package board serves posts: listing, detail with rendered markdown,
// upsert, delete, view counting, legacy password checks and search.
package board

import (
	"bytes"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"gorm.io/gorm"

	"unionhall/analytics"
	"unionhall/cache"
	"unionhall/common"
	"unionhall/models"
	"unionhall/push"
	"unionhall/search"
)

// RenderCacheAge is how long rendered post HTML is reused.
const RenderCacheAge = 24 * time.Hour

const searchLimit = 50

// markdown renderer; raw HTML in member posts is escaped
var md = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		extension.Linkify,
	),
)

type BoardModule struct {
	db        *gorm.DB
	analytics *analytics.AnalyticsModule
	cache     *cache.Cache
	index     *search.Index
	push      *push.Dispatcher
}

// NewBoardModule wires the post routes. analyticsModule and dispatcher may be
// nil.
func NewBoardModule(db *gorm.DB, analyticsModule *analytics.AnalyticsModule, renderCache *cache.Cache, index *search.Index, dispatcher *push.Dispatcher) *BoardModule {
	return &BoardModule{
		db:        db,
		analytics: analyticsModule,
		cache:     renderCache,
		index:     index,
		push:      dispatcher,
	}
}

func (b *BoardModule) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api")
	{
		api.GET("/posts", b.listPosts)
		api.GET("/posts/:id", b.getPost)
		api.PUT("/posts/:id", common.RequireMember, b.upsertPost)
		api.DELETE("/posts/:id", common.RequireMember, b.deletePost)
		api.POST("/posts/:id/views", b.countView)
		api.POST("/posts/:id/password", b.checkPassword)
		api.GET("/search", b.search)
	}
}

// Reindex rebuilds the search index from the database.
func (b *BoardModule) Reindex() error {
	var posts []models.Post
	if err := b.db.Find(&posts).Error; err != nil {
		return err
	}
	return b.index.Reindex(posts)
}

func ordered(db *gorm.DB) *gorm.DB {
	return db.Order("is_pinned DESC").Order("pinned_at DESC").Order("created_at DESC")
}

func (b *BoardModule) listPosts(c *gin.Context) {
	query := ordered(b.db)
	if hidden := hiddenBoards(common.CurrentRole(c)); len(hidden) > 0 {
		query = query.Where("board NOT IN ?", hidden)
	}
	if board := c.Query("board"); board != "" {
		if !models.BoardType(board).Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown board"})
			return
		}
		query = query.Where("board = ?", board)
	}

	var posts []models.Post
	if err := query.Find(&posts).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load posts"})
		return
	}

	light := make([]*models.Post, len(posts))
	for i := range posts {
		light[i] = posts[i].Light()
	}
	c.JSON(http.StatusOK, light)
}

type postDetail struct {
	*models.Post
	ContentHTML string `json:"content_html"`
}

func (b *BoardModule) getPost(c *gin.Context) {
	post, ok := b.loadPost(c)
	if !ok {
		return
	}
	if !b.allowRead(c, post) {
		return
	}
	post.Password = ""

	detail := postDetail{Post: post}
	if post.Content != nil {
		detail.ContentHTML = b.render(c, post.ID, *post.Content)
	}
	c.JSON(http.StatusOK, detail)
}

func (b *BoardModule) allowRead(c *gin.Context, post *models.Post) bool {
	if readable(common.CurrentRole(c), post.Board) {
		return true
	}
	// only guests are refused a board
	c.JSON(http.StatusForbidden, gin.H{"error": "membership approval pending", "code": common.CodeApprovalPending})
	return false
}

func (b *BoardModule) render(c *gin.Context, postID, source string) string {
	if html, found := b.cache.Read(postID, source, RenderCacheAge); found {
		c.Header("X-Cache", "HIT")
		return html
	}
	c.Header("X-Cache", "MISS")

	html := renderMarkdown(source)
	if err := b.cache.Write(postID, source, html); err != nil {
		log.Printf("board: caching post %s: %v", postID, err)
	}
	return html
}

func renderMarkdown(content string) string {
	var buf bytes.Buffer
	if err := md.Convert([]byte(content), &buf); err != nil {
		return content
	}
	return buf.String()
}

func (b *BoardModule) loadPost(c *gin.Context) (*models.Post, bool) {
	var post models.Post
	err := b.db.First(&post, "id = ?", c.Param("id")).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "post not found"})
		return nil, false
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load post"})
		return nil, false
	}
	return &post, true
}

// upsertPost stores the post sent by the client. A light post (no content)
// keeps the stored content, attachments and comments; an empty password
// keeps the stored one, since reads never return it. Members who cannot
// manage an existing post may only add or remove their own comments.
func (b *BoardModule) upsertPost(c *gin.Context) {
	var in models.Post
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid post"})
		return
	}
	in.ID = c.Param("id")
	if !in.Board.Valid() || in.Board == models.BoardTrash {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown board"})
		return
	}
	if in.Title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title is required"})
		return
	}

	role := common.CurrentRole(c)
	var existing models.Post
	err := b.db.First(&existing, "id = ?", in.ID).Error
	isNew := errors.Is(err, gorm.ErrRecordNotFound)
	if err != nil && !isNew {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load post"})
		return
	}

	if isNew {
		if in.Board.AdminAuthored() && role != models.RoleAdmin {
			c.JSON(http.StatusForbidden, gin.H{"error": "only admins can write to this board"})
			return
		}
		if in.CreatedAt.IsZero() {
			in.CreatedAt = time.Now().UTC()
		}
		if role != models.RoleAdmin {
			in.Pinned, in.PinnedAt = false, nil
			if id := callerMemberID(c); id != "" {
				in.AuthorID = &id
			}
		}
	} else {
		if role != models.RoleAdmin {
			if in.Board != existing.Board && in.Board.AdminAuthored() {
				c.JSON(http.StatusForbidden, gin.H{"error": "only admins can write to this board"})
				return
			}
			if !canManage(c, &existing) && !onlyComments(&in, &existing) {
				c.JSON(http.StatusForbidden, gin.H{"error": "not allowed to edit this post"})
				return
			}
			if in.Content != nil && !commentsPreserved(existing.Comments, in.Comments, callerMemberID(c)) {
				c.JSON(http.StatusForbidden, gin.H{"error": "not allowed to change other comments"})
				return
			}
		}
		mergeStored(&in, &existing, role)
	}

	if err := b.db.Save(&in).Error; err != nil {
		log.Printf("board: saving post %s: %v", in.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not save post"})
		return
	}

	if err := b.index.IndexPost(&in); err != nil {
		log.Printf("board: indexing post %s: %v", in.ID, err)
	}
	if isNew {
		b.push.NewPost(&in)
	}

	c.JSON(http.StatusOK, in.Light())
}

func mergeStored(in, stored *models.Post, role models.Role) {
	if in.Content == nil {
		in.Content = stored.Content
		in.Attachments = stored.Attachments
		in.Comments = stored.Comments
	}
	if in.Password == "" {
		in.Password = stored.Password
	}
	if stored.Views > in.Views {
		in.Views = stored.Views
	}
	in.CreatedAt = stored.CreatedAt
	in.Author, in.AuthorID = stored.Author, stored.AuthorID
	if role != models.RoleAdmin {
		in.Pinned, in.PinnedAt = stored.Pinned, stored.PinnedAt
	}
}

func (b *BoardModule) deletePost(c *gin.Context) {
	post, ok := b.loadPost(c)
	if !ok {
		return
	}
	if !canManage(c, post) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not allowed to delete this post"})
		return
	}
	id := post.ID

	result := b.db.Delete(&models.Post{}, "id = ?", id)
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete post"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "post not found"})
		return
	}

	if err := b.index.Delete(id); err != nil {
		log.Printf("board: unindexing post %s: %v", id, err)
	}
	if err := b.cache.Clear(id); err != nil {
		log.Printf("board: clearing cache for post %s: %v", id, err)
	}

	c.JSON(http.StatusOK, gin.H{"message": "post deleted"})
}

func (b *BoardModule) countView(c *gin.Context) {
	post, ok := b.loadPost(c)
	if !ok {
		return
	}

	counted := b.analytics.TrackView(c, post.ID)
	if counted {
		if err := b.db.Model(post).UpdateColumn("views", gorm.Expr("views + ?", 1)).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not count view"})
			return
		}
		post.Views++
	}

	c.JSON(http.StatusOK, gin.H{"views": post.Views, "counted": counted})
}

func (b *BoardModule) checkPassword(c *gin.Context) {
	var req struct {
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "password is required"})
		return
	}

	post, ok := b.loadPost(c)
	if !ok {
		return
	}

	matches := post.Password != "" && post.Password == req.Password
	c.JSON(http.StatusOK, gin.H{"ok": matches})
}

func (b *BoardModule) search(c *gin.Context) {
	results, err := b.index.Search(c.Query("q"), searchLimit)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid search"})
		return
	}
	if len(results) == 0 {
		c.JSON(http.StatusOK, []*models.Post{})
		return
	}

	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.ID
	}
	var posts []models.Post
	if err := b.db.Where("id IN ?", ids).Find(&posts).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load posts"})
		return
	}

	byID := make(map[string]*models.Post, len(posts))
	for i := range posts {
		byID[posts[i].ID] = &posts[i]
	}
	role := common.CurrentRole(c)
	out := make([]*models.Post, 0, len(posts))
	for _, id := range ids {
		if p, ok := byID[id]; ok && readable(role, p.Board) {
			out = append(out, p.Light())
		}
	}
	c.JSON(http.StatusOK, out)
}
