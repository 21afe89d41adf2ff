package push

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"unionhall/common"
	"unionhall/models"
)

type PushModule struct {
	db *gorm.DB
}

func NewPushModule(db *gorm.DB) *PushModule {
	return &PushModule{db: db}
}

func (p *PushModule) RegisterRoutes(router *gin.Engine) {
	group := router.Group("/api/push", common.RequireMember)
	{
		group.POST("/subscriptions", p.subscribe)
		group.DELETE("/subscriptions", p.unsubscribe)
	}
}

type subscriptionRequest struct {
	Token string `json:"token" binding:"required"`
}

func (p *PushModule) subscribe(c *gin.Context) {
	var req subscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token is required"})
		return
	}

	account := common.CurrentAccount(c)
	sub := models.PushSubscription{
		Token:     req.Token,
		MemberID:  account.MemberID,
		Admin:     account.IsAdmin,
		CreatedAt: time.Now(),
	}
	err := p.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "token"}},
		DoUpdates: clause.AssignmentColumns([]string{"member_id", "admin"}),
	}).Create(&sub).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not save subscription"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "subscribed"})
}

func (p *PushModule) unsubscribe(c *gin.Context) {
	var req subscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token is required"})
		return
	}

	if err := p.db.Where("token = ?", req.Token).Delete(&models.PushSubscription{}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not remove subscription"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "unsubscribed"})
}
