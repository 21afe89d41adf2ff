// Package account serves sign-up, sign-in, password reset and withdrawal.
package account

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"unionhall/common"
	"unionhall/config"
	emailpkg "unionhall/email"
	"unionhall/models"
	"unionhall/push"
)

// ResetTokenTTL is how long a password reset link stays valid.
const ResetTokenTTL = time.Hour

type AccountModule struct {
	db    *gorm.DB
	cfg   *config.Config
	email *emailpkg.EmailService
	push  *push.Dispatcher
	cost  int
	now   func() time.Time
}

func NewAccountModule(db *gorm.DB, cfg *config.Config, email *emailpkg.EmailService, dispatcher *push.Dispatcher) *AccountModule {
	return &AccountModule{
		db:    db,
		cfg:   cfg,
		email: email,
		push:  dispatcher,
		cost:  DefaultCost,
		now:   time.Now,
	}
}

func (a *AccountModule) RegisterRoutes(router *gin.Engine) {
	group := router.Group("/api/auth")
	{
		group.GET("/session", a.session)
		group.POST("/signin", a.signin)
		group.POST("/signup", a.signup)
		group.POST("/signout", a.signout)
		group.POST("/password-reset", a.requestPasswordReset)
		group.POST("/password-reset/confirm", a.confirmPasswordReset)
		group.DELETE("/account", common.RequireMember, a.withdraw)
	}
}

func (a *AccountModule) session(c *gin.Context) {
	c.JSON(http.StatusOK, common.SessionFor(common.CurrentAccount(c), common.CurrentMember(c)))
}

func (a *AccountModule) signin(c *gin.Context) {
	var creds models.Credentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}
	identifier := strings.ToLower(strings.TrimSpace(creds.Email))

	account, err := a.authenticate(identifier, creds.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "wrong email or password"})
		return
	}

	if a.cfg.IsAdminEmail(account.Email) && !account.IsAdmin {
		account.IsAdmin = true
		if err := a.db.Model(account).Update("is_admin", true).Error; err != nil {
			log.Printf("account: promoting %s to admin: %v", account.Email, err)
		}
	}

	member := a.memberOf(account)
	if common.RoleOf(account, member) == models.RoleGuest {
		c.JSON(http.StatusForbidden, gin.H{
			"error": "membership approval pending",
			"code":  common.CodeApprovalPending,
		})
		return
	}

	session := sessions.Default(c)
	session.Set(common.SessionAccountKey, account.ID)
	if err := session.Save(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not start session"})
		return
	}

	c.JSON(http.StatusOK, common.SessionFor(account, member))
}

// authenticate checks an e-mail and password against accounts, then against
// members still holding a legacy login id. A legacy match is migrated to an
// account on the spot.
func (a *AccountModule) authenticate(identifier, password string) (*models.Account, error) {
	var account models.Account
	err := a.db.Where("email = ?", identifier).First(&account).Error
	if err == nil {
		if !CheckPasswordHash(password, account.PasswordHash) {
			return nil, errors.New("password mismatch")
		}
		return &account, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var member models.Member
	if err := a.db.Where("login_id = ?", identifier).First(&member).Error; err != nil {
		return nil, err
	}
	if member.LegacyPassword == nil || *member.LegacyPassword != password {
		return nil, errors.New("password mismatch")
	}
	return a.migrateLegacy(&member, password)
}

func (a *AccountModule) migrateLegacy(member *models.Member, password string) (*models.Account, error) {
	hash, err := HashPassword(password, a.cost)
	if err != nil {
		return nil, err
	}
	email := strings.ToLower(member.Email)
	if email == "" {
		email = *member.LoginID
	}
	account := models.Account{
		Email:        email,
		PasswordHash: hash,
		MemberID:     member.ID,
		CreatedAt:    a.now(),
	}

	err = a.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&account).Error; err != nil {
			return err
		}
		return tx.Model(member).Update("legacy_password", nil).Error
	})
	if err != nil {
		return nil, err
	}
	log.Printf("account: migrated legacy login %s", *member.LoginID)
	return &account, nil
}

func (a *AccountModule) memberOf(account *models.Account) *models.Member {
	if account.MemberID == "" {
		return nil
	}
	var member models.Member
	if err := a.db.First(&member, "id = ?", account.MemberID).Error; err != nil {
		return nil
	}
	return &member
}

func (a *AccountModule) signup(c *gin.Context) {
	var req models.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "all fields are required"})
		return
	}
	if !models.ValidGarage(req.Garage) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown garage"})
		return
	}
	if _, err := time.Parse("2006-01-02", req.BirthDate); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "birth date must be YYYY-MM-DD"})
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	var existing models.Account
	if err := a.db.Where("email = ?", email).First(&existing).Error; err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
		return
	}

	passwordHash, err := HashPassword(req.Password, a.cost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create account"})
		return
	}

	member := models.Member{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(req.Name),
		BirthDate: req.BirthDate,
		Phone:     strings.TrimSpace(req.Phone),
		Email:     email,
		Garage:    req.Garage,
		SignupAt:  a.now(),
	}
	account := models.Account{
		Email:        email,
		PasswordHash: passwordHash,
		IsAdmin:      a.cfg.IsAdminEmail(email),
		MemberID:     member.ID,
		CreatedAt:    a.now(),
	}

	err = a.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&member).Error; err != nil {
			return err
		}
		return tx.Create(&account).Error
	})
	if err != nil {
		log.Printf("account: signup for %s: %v", email, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create account"})
		return
	}

	if err := a.email.SendSignupReceived(email, member.Name); err != nil {
		log.Printf("account: signup mail: %v", err)
	}
	a.push.MemberSignup(&member)

	c.JSON(http.StatusCreated, member)
}

func (a *AccountModule) signout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Save()

	c.JSON(http.StatusOK, gin.H{"message": "signed out"})
}

func (a *AccountModule) requestPasswordReset(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email is required"})
		return
	}

	// the answer is the same whether or not the account exists
	defer c.JSON(http.StatusOK, gin.H{"message": "if the account exists, a reset link was sent"})

	var account models.Account
	if err := a.db.Where("email = ?", strings.ToLower(strings.TrimSpace(req.Email))).First(&account).Error; err != nil {
		return
	}

	token, err := generateToken()
	if err != nil {
		log.Printf("account: reset token: %v", err)
		return
	}
	expires := a.now().Add(ResetTokenTTL)
	if err := a.db.Model(&account).Updates(map[string]any{
		"reset_token":      token,
		"reset_expires_at": expires,
	}).Error; err != nil {
		log.Printf("account: saving reset token: %v", err)
		return
	}

	if err := a.email.SendPasswordReset(account.Email, token); err != nil {
		log.Printf("account: reset mail: %v", err)
	}
}

func (a *AccountModule) confirmPasswordReset(c *gin.Context) {
	var req struct {
		Token    string `json:"token" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token and password are required"})
		return
	}
	if len(req.Password) < MinPasswordLength {
		c.JSON(http.StatusBadRequest, gin.H{"error": "password is too short"})
		return
	}

	var account models.Account
	err := a.db.Where("reset_token = ? AND reset_expires_at > ?", req.Token, a.now()).First(&account).Error
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid or expired token"})
		return
	}

	hash, err := HashPassword(req.Password, a.cost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not reset password"})
		return
	}
	if err := a.db.Model(&account).Updates(map[string]any{
		"password_hash":    hash,
		"reset_token":      "",
		"reset_expires_at": nil,
	}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not reset password"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "password updated"})
}

// withdraw deletes the caller's account, member record and subscriptions.
// Posts and comments stay under the author name they were written with.
func (a *AccountModule) withdraw(c *gin.Context) {
	var req struct {
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "password is required"})
		return
	}

	account := common.CurrentAccount(c)
	if !CheckPasswordHash(req.Password, account.PasswordHash) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "wrong password"})
		return
	}
	member := common.CurrentMember(c)

	err := a.db.Transaction(func(tx *gorm.DB) error {
		if account.MemberID != "" {
			if err := tx.Where("member_id = ?", account.MemberID).Delete(&models.PushSubscription{}).Error; err != nil {
				return err
			}
			if err := tx.Delete(&models.Member{}, "id = ?", account.MemberID).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&models.Account{}, account.ID).Error
	})
	if err != nil {
		log.Printf("account: withdraw %s: %v", account.Email, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete account"})
		return
	}

	if member != nil {
		a.push.MemberWithdrawal(member)
	}

	session := sessions.Default(c)
	session.Clear()
	session.Save()

	c.JSON(http.StatusOK, gin.H{"message": "account deleted"})
}
