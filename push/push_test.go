package push

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"unionhall/common"
	"unionhall/models"
)

var errGone = errors.New("registration-token-not-registered")

type recordingSender struct {
	mu   sync.Mutex
	sent map[string]Notification
	fail map[string]error
}

func newRecordingSender() *recordingSender {
	return &recordingSender{sent: map[string]Notification{}, fail: map[string]error{}}
}

func (s *recordingSender) Send(_ context.Context, token string, n Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail[token]; err != nil {
		return err
	}
	s.sent[token] = n
	return nil
}

func (s *recordingSender) Unregistered(err error) bool { return errors.Is(err, errGone) }

func (s *recordingSender) tokens() []string {
	var out []string
	for t := range s.sent {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func setupTestDB() *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		panic("failed to connect database")
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	db.AutoMigrate(&models.PushSubscription{})
	return db
}

func seedSubscriptions(db *gorm.DB) {
	db.Create(&models.PushSubscription{Token: "tok-admin", Admin: true})
	db.Create(&models.PushSubscription{Token: "tok-lee", MemberID: "m-lee"})
	db.Create(&models.PushSubscription{Token: "tok-park", MemberID: "m-park"})
}

func TestNewPostSkipsAuthor(t *testing.T) {
	db := setupTestDB()
	seedSubscriptions(db)
	sender := newRecordingSender()
	d := NewDispatcher(db, sender, "https://union.org/")

	author := "m-lee"
	d.NewPost(&models.Post{ID: "p1", Board: models.BoardFree, Title: "Picnic", AuthorID: &author})
	d.Wait()

	assert.Equal(t, []string{"tok-admin", "tok-park"}, sender.tokens())
	n := sender.sent["tok-park"]
	assert.Equal(t, "New post in Free board", n.Title)
	assert.Equal(t, "Picnic", n.Body)
	assert.Equal(t, "https://union.org/#tab=free&post=p1", n.Link)
}

func TestSignupGoesToAdmins(t *testing.T) {
	db := setupTestDB()
	seedSubscriptions(db)
	sender := newRecordingSender()
	d := NewDispatcher(db, sender, "https://union.org")

	d.MemberSignup(&models.Member{Name: "Kim", Garage: "North Garage"})
	d.Wait()

	assert.Equal(t, []string{"tok-admin"}, sender.tokens())
	assert.Equal(t, "https://union.org/#tab=admin", sender.sent["tok-admin"].Link)
}

func TestUnregisteredTokensArePruned(t *testing.T) {
	db := setupTestDB()
	seedSubscriptions(db)
	sender := newRecordingSender()
	sender.fail["tok-lee"] = errGone
	sender.fail["tok-park"] = errors.New("quota exceeded")
	d := NewDispatcher(db, sender, "")

	d.NewPost(&models.Post{ID: "p1", Board: models.BoardNoticeAll, Title: "Vote"})
	d.Wait()

	var count int64
	db.Model(&models.PushSubscription{}).Where("token = ?", "tok-lee").Count(&count)
	assert.Equal(t, int64(0), count)
	db.Model(&models.PushSubscription{}).Where("token = ?", "tok-park").Count(&count)
	assert.Equal(t, int64(1), count, "transient failures keep the token")
}

func TestNilDispatcher(t *testing.T) {
	var d *Dispatcher
	assert.NotPanics(t, func() {
		d.NewPost(&models.Post{})
		d.MemberWithdrawal(&models.Member{})
		d.Wait()
	})
}

func TestMessageCarriesLink(t *testing.T) {
	m := message("tok", Notification{Kind: "new_post", Title: "t", Body: "b", Link: "/#tab=free"})
	assert.Equal(t, "tok", m.Token)
	assert.Equal(t, "/#tab=free", m.Data["link"])
	assert.Equal(t, "/#tab=free", m.Webpush.FCMOptions.Link)
}

func setupTestRouter(db *gorm.DB, account *models.Account, member *models.Member) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		if account != nil {
			common.SetCaller(c, account, member)
		}
	})
	NewPushModule(db).RegisterRoutes(router)
	return router
}

func TestSubscriptionRoutes(t *testing.T) {
	db := setupTestDB()
	account := &models.Account{ID: 1, Email: "lee@union.org", MemberID: "m-lee"}
	member := &models.Member{ID: "m-lee", IsApproved: true}
	router := setupTestRouter(db, account, member)

	for i := 0; i < 2; i++ {
		req, _ := http.NewRequest("POST", "/api/push/subscriptions", bytes.NewBufferString(`{"token":"tok-1"}`))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	}

	var subs []models.PushSubscription
	require.NoError(t, db.Find(&subs).Error)
	require.Len(t, subs, 1, "subscribing twice keeps one row")
	assert.Equal(t, "m-lee", subs[0].MemberID)

	req, _ := http.NewRequest("DELETE", "/api/push/subscriptions", bytes.NewBufferString(`{"token":"tok-1"}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	db.Find(&subs)
	assert.Empty(t, subs)
}

func TestSubscriptionRequiresApprovedMember(t *testing.T) {
	db := setupTestDB()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/push/subscriptions", bytes.NewBufferString(`{"token":"t"}`))
	setupTestRouter(db, nil, nil).ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	pending := &models.Account{ID: 2, Email: "new@union.org", MemberID: "m-new"}
	w = httptest.NewRecorder()
	req, _ = http.NewRequest("POST", "/api/push/subscriptions", bytes.NewBufferString(`{"token":"t"}`))
	setupTestRouter(db, pending, &models.Member{ID: "m-new"}).ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), common.CodeApprovalPending)
}
