// Package app is the client's application controller. It owns the view state
// and the session and turns user actions into gate checks, view transitions,
// history entries and reconcile operations.
//
// A Controller is driven from a single goroutine and is not safe for
// concurrent use.
package app

import (
	"context"
	"log"
	"sync"

	"unionhall/history"
	"unionhall/models"
	"unionhall/nav"
	"unionhall/reconcile"
	"unionhall/viewstate"
)

// Auth is the backend's account surface.
type Auth interface {
	Session(ctx context.Context) (*models.Session, error)
	SignIn(ctx context.Context, email, password string) (*models.Session, error)
	SignUp(ctx context.Context, req models.SignupRequest) (*models.Member, error)
	SignOut(ctx context.Context) error
	RequestPasswordReset(ctx context.Context, email string) error
	Withdraw(ctx context.Context, password string) error
	Subscribe(ctx context.Context, token string) error
}

// DeviceTokens yields the push token of this device. It may fail when the
// user has not granted notification permission.
type DeviceTokens interface {
	Token(ctx context.Context) (string, error)
}

type Options struct {
	Store   *reconcile.Store
	Browser history.Browser
	Auth    Auth
	Prompt  Prompter
	Devices DeviceTokens
}

type Controller struct {
	store   *reconcile.Store
	bridge  *history.Bridge
	view    *viewstate.Store
	auth    Auth
	prompt  Prompter
	devices DeviceTokens

	session  *models.Session
	inFlight map[string]bool

	subscribeOnce sync.Once
}

func New(opts Options) *Controller {
	prompt := opts.Prompt
	if prompt == nil {
		prompt = LogPrompter{}
	}
	bridge := history.NewBridge(opts.Browser)
	return &Controller{
		store:    opts.Store,
		bridge:   bridge,
		view:     viewstate.New(bridge, opts.Store),
		auth:     opts.Auth,
		prompt:   prompt,
		devices:  opts.Devices,
		inFlight: map[string]bool{},
	}
}

func (c *Controller) View() *viewstate.Store {
	return c.view
}

func (c *Controller) Store() *reconcile.Store {
	return c.store
}

func (c *Controller) Session() *models.Session {
	return c.session
}

func (c *Controller) Role() models.Role {
	return c.view.Role()
}

// Boot loads the data, picks up an existing session, normalizes the initial
// URL and shows the state it names.
func (c *Controller) Boot(ctx context.Context, initialURL string) {
	if o := c.store.LoadAll(ctx); o.Status != reconcile.Applied {
		log.Printf("app: load: %v", o.Err)
	}
	if c.auth != nil {
		s, err := c.auth.Session(ctx)
		if err != nil {
			log.Printf("app: session: %v", err)
		} else {
			c.setSession(s)
		}
	}
	ns := nav.Decode(nav.FragmentOf(initialURL))
	c.bridge.Replace(ns)
	c.show(ctx, ns)
}

// Navigate handles popstate and hashchange. The restored state skips the
// gate.
func (c *Controller) Navigate(ctx context.Context, e history.Entry) {
	c.show(ctx, history.Resolve(e))
}

// OpenNotification follows the deep link of a tapped push notification.
func (c *Controller) OpenNotification(ctx context.Context, kind nav.NotificationKind, board models.BoardType, postID string) {
	ns := nav.NotificationState(kind, board, postID)
	c.bridge.Push(ns)
	c.show(ctx, ns)
}

func (c *Controller) show(ctx context.Context, ns nav.State) {
	c.view.Restore(ns)
	if ns.PostID != nil {
		c.store.FetchPostDetail(ctx, *ns.PostID)
	}
}

// ChangeTab is a tab click.
func (c *Controller) ChangeTab(tab models.Tab) error {
	if !c.view.ChangeTab(tab).Allow {
		return ErrBlocked
	}
	return nil
}

// OpenPost shows a post and loads its detail.
func (c *Controller) OpenPost(ctx context.Context, id string) *models.Post {
	c.view.SelectPost(&id)
	p, o := c.store.FetchPostDetail(ctx, id)
	if o.Status == reconcile.Rejected {
		c.prompt.Alert(MsgPostNotFound)
		c.view.SelectPost(nil)
		return nil
	}
	return p
}

// ClosePost returns to the list.
func (c *Controller) ClosePost() {
	c.view.SelectPost(nil)
}

// StartWriting opens the editor for a new post.
func (c *Controller) StartWriting(board models.BoardType) error {
	if !c.view.StartWriting(board).Allow {
		return ErrBlocked
	}
	return nil
}

func (c *Controller) setSession(s *models.Session) {
	c.session = s
	role := models.RoleGuest
	if s != nil && s.SignedIn() {
		role = s.Role
	}
	c.view.SetRole(role)
}

// guard marks an action as running. The returned func clears it.
func (c *Controller) guard(action string) (func(), error) {
	if c.inFlight[action] {
		return nil, ErrInFlight
	}
	c.inFlight[action] = true
	return func() { delete(c.inFlight, action) }, nil
}

// remoteFailed reports a transient failure to the user.
func (c *Controller) remoteFailed(o reconcile.Outcome) {
	if o.Status == reconcile.LocalOnly {
		c.prompt.Alert(MsgRetryLater)
	}
}

// canManage reports whether the current user may edit or delete content
// authored by authorID without a password.
func (c *Controller) canManage(authorID *string) bool {
	if c.Role() == models.RoleAdmin {
		return true
	}
	id := c.session.MemberID()
	return c.Role() == models.RoleMember && id != nil && authorID != nil && *id == *authorID
}
