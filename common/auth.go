package common

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"firebase.google.com/go/v4/auth"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"unionhall/models"
)

// SessionAccountKey is the cookie session key holding the signed-in account id.
const SessionAccountKey = "account_id"

// CodeApprovalPending is sent with 403 answers for members awaiting approval.
const CodeApprovalPending = "approval_pending"

const (
	accountKey = "account"
	memberKey  = "member"
)

// TokenVerifier checks a bearer ID token and returns its e-mail claim.
type TokenVerifier interface {
	VerifyEmail(ctx context.Context, idToken string) (string, error)
}

// FirebaseVerifier verifies Firebase ID tokens.
type FirebaseVerifier struct {
	client *auth.Client
}

func NewFirebaseVerifier(client *auth.Client) *FirebaseVerifier {
	return &FirebaseVerifier{client: client}
}

func (v *FirebaseVerifier) VerifyEmail(ctx context.Context, idToken string) (string, error) {
	tok, err := v.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return "", err
	}
	email, _ := tok.Claims["email"].(string)
	if email == "" {
		return "", fmt.Errorf("token for %s has no email claim", tok.UID)
	}
	return strings.ToLower(email), nil
}

// Identity resolves the caller of each request from the cookie session or,
// when a verifier is configured, from a bearer token.
type Identity struct {
	db       *gorm.DB
	verifier TokenVerifier
}

// NewIdentity returns an Identity. verifier may be nil.
func NewIdentity(db *gorm.DB, verifier TokenVerifier) *Identity {
	return &Identity{db: db, verifier: verifier}
}

// Middleware loads the caller's account and member record into the context.
// Unknown callers pass through as guests.
func (i *Identity) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		var account models.Account
		found := false

		session := sessions.Default(c)
		if id, ok := session.Get(SessionAccountKey).(int); ok {
			found = i.db.First(&account, id).Error == nil
			if !found {
				session.Delete(SessionAccountKey)
				session.Save()
			}
		}

		authz := c.GetHeader("Authorization")
		if !found && i.verifier != nil && strings.HasPrefix(authz, "Bearer ") {
			idToken := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer "))
			if email, err := i.verifier.VerifyEmail(c.Request.Context(), idToken); err == nil {
				found = i.db.Where("email = ?", email).First(&account).Error == nil
			}
		}

		if found {
			var member *models.Member
			if account.MemberID != "" {
				var m models.Member
				if err := i.db.First(&m, "id = ?", account.MemberID).Error; err == nil {
					member = &m
				}
			}
			SetCaller(c, &account, member)
		}
		c.Next()
	}
}

// SetCaller records the caller for the rest of the request.
func SetCaller(c *gin.Context, account *models.Account, member *models.Member) {
	c.Set(accountKey, account)
	if member != nil {
		c.Set(memberKey, member)
	}
}

// CurrentAccount returns the caller's account, or nil for guests.
func CurrentAccount(c *gin.Context) *models.Account {
	if v, ok := c.Get(accountKey); ok {
		return v.(*models.Account)
	}
	return nil
}

// CurrentMember returns the caller's member record, or nil.
func CurrentMember(c *gin.Context) *models.Member {
	if v, ok := c.Get(memberKey); ok {
		return v.(*models.Member)
	}
	return nil
}

// RoleOf derives a role: admins by flag, members once approved, everyone
// else guest.
func RoleOf(account *models.Account, member *models.Member) models.Role {
	switch {
	case account == nil:
		return models.RoleGuest
	case account.IsAdmin:
		return models.RoleAdmin
	case member != nil && member.IsApproved:
		return models.RoleMember
	}
	return models.RoleGuest
}

// CurrentRole is RoleOf for the caller.
func CurrentRole(c *gin.Context) models.Role {
	return RoleOf(CurrentAccount(c), CurrentMember(c))
}

// SessionFor builds the session answer for an account.
func SessionFor(account *models.Account, member *models.Member) *models.Session {
	if account == nil {
		return &models.Session{Role: models.RoleGuest}
	}
	return &models.Session{
		Email:  account.Email,
		Role:   RoleOf(account, member),
		Member: member,
	}
}

// RequireMember rejects guests: 401 when signed out, 403 with the
// approval_pending code when the member is not approved yet.
func RequireMember(c *gin.Context) {
	account := CurrentAccount(c)
	if account == nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "sign in required"})
		return
	}
	if RoleOf(account, CurrentMember(c)) == models.RoleGuest {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error": "membership approval pending",
			"code":  CodeApprovalPending,
		})
		return
	}
	c.Next()
}

func RequireAdmin(c *gin.Context) {
	account := CurrentAccount(c)
	if account == nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "sign in required"})
		return
	}
	if !account.IsAdmin {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin only"})
		return
	}
	c.Next()
}
