package cli

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"unionhall/account"
	"unionhall/admin"
	"unionhall/analytics"
	"unionhall/board"
	"unionhall/cache"
	"unionhall/common"
	"unionhall/config"
	"unionhall/email"
	"unionhall/push"
	"unionhall/search"
	"unionhall/site"
)

const sessionName = "unionhall-session"

// renderedMaxAge is how long rendered post bodies stay on disk unused.
const renderedMaxAge = 7 * 24 * time.Hour

type server struct {
	router     *gin.Engine
	db         *gorm.DB
	index      *search.Index
	dispatcher *push.Dispatcher
}

// Close waits for pending notifications and closes the search index.
func (s *server) Close() {
	s.dispatcher.Wait()
	if err := s.index.Close(); err != nil {
		log.Printf("Error closing search index: %v", err)
	}
}

func newServer(ctx context.Context, cfg *config.Config) (*server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	db, err := openDatabase(cfg)
	if err != nil {
		return nil, err
	}

	firebaseApp, err := push.Init(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var verifier common.TokenVerifier
	var sender push.Sender = push.LogSender{}
	if firebaseApp != nil {
		authClient, err := firebaseApp.Auth(ctx)
		if err != nil {
			return nil, fmt.Errorf("firebase auth: %w", err)
		}
		verifier = common.NewFirebaseVerifier(authClient)

		fcm, err := push.NewFCMSender(ctx, firebaseApp)
		if err != nil {
			return nil, err
		}
		sender = fcm
	}

	index, err := search.Open(cfg.SearchIndex)
	if err != nil {
		return nil, err
	}

	renderCache := cache.NewCache(cfg.CacheDir)
	if err := renderCache.ClearOld(renderedMaxAge); err != nil {
		log.Printf("Error clearing old rendered posts: %v", err)
	}

	analyticsModule := analytics.NewAnalyticsModule(common.ConnectAnalyticsDb(cfg))
	mail := email.NewEmailService(cfg)
	dispatcher := push.NewDispatcher(db, sender, cfg.Domain)

	router := gin.Default()

	store := cookie.NewStore([]byte(cfg.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7,
		HttpOnly: true,
		Secure:   strings.HasPrefix(cfg.Domain, "https://"),
	})
	router.Use(sessions.Sessions(sessionName, store))
	router.Use(common.NewIdentity(db, verifier).Middleware())
	router.Use(common.DeepLinkMiddleware())
	router.Use(cache.ETagMiddleware())

	router.Static("/public", cfg.PublicDir)

	boardModule := board.NewBoardModule(db, analyticsModule, renderCache, index, dispatcher)
	boardModule.RegisterRoutes(router)

	account.NewAccountModule(db, cfg, mail, dispatcher).RegisterRoutes(router)
	admin.NewAdminModule(db, analyticsModule, renderCache, mail, boardModule).RegisterRoutes(router)
	site.NewSiteModule(db, cfg.Domain, cfg.PublicDir).RegisterRoutes(router)
	push.NewPushModule(db).RegisterRoutes(router)

	if err := boardModule.Reindex(); err != nil {
		log.Printf("Error building search index: %v", err)
	}

	return &server{router: router, db: db, index: index, dispatcher: dispatcher}, nil
}
