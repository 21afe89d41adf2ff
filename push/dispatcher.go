package push

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"unionhall/models"
	"unionhall/nav"
)

const sendTimeout = 30 * time.Second

var boardLabels = map[models.BoardType]string{
	models.BoardIntro:        "Introductions",
	models.BoardNoticeAll:    "Notices",
	models.BoardFamilyEvents: "Family events",
	models.BoardFree:         "Free board",
	models.BoardResources:    "Resources",
	models.BoardSignup:       "Signups",
}

// Dispatcher fans notifications out to stored subscriptions in the
// background. Delivery is best effort: failures are logged, and tokens the
// sender reports as unregistered are deleted. A nil Dispatcher sends nothing.
type Dispatcher struct {
	db     *gorm.DB
	sender Sender
	domain string
	wg     sync.WaitGroup
}

func NewDispatcher(db *gorm.DB, sender Sender, domain string) *Dispatcher {
	return &Dispatcher{db: db, sender: sender, domain: strings.TrimRight(domain, "/")}
}

// NewPost tells every subscriber except the author about a new post.
func (d *Dispatcher) NewPost(p *models.Post) {
	if d == nil {
		return
	}
	n := Notification{
		Kind:  nav.NotifyNewPost,
		Title: fmt.Sprintf("New post in %s", boardLabel(p.Board)),
		Body:  p.Title,
		Link:  d.domain + nav.NotificationLink(nav.NotifyNewPost, p.Board, p.ID),
	}
	d.background(func(ctx context.Context) {
		q := d.db.Model(&models.PushSubscription{})
		if p.AuthorID != nil {
			q = q.Where("member_id <> ?", *p.AuthorID)
		}
		d.deliver(ctx, q, n)
	})
}

// MemberSignup tells admins about a new signup waiting for approval.
func (d *Dispatcher) MemberSignup(m *models.Member) {
	d.toAdmins(Notification{
		Kind:  nav.NotifySignup,
		Title: "New member signup",
		Body:  fmt.Sprintf("%s (%s) is waiting for approval", m.Name, m.Garage),
	})
}

func (d *Dispatcher) MemberWithdrawal(m *models.Member) {
	d.toAdmins(Notification{
		Kind:  nav.NotifyWithdrawal,
		Title: "Member withdrew",
		Body:  fmt.Sprintf("%s (%s) left the union site", m.Name, m.Garage),
	})
}

func (d *Dispatcher) toAdmins(n Notification) {
	if d == nil {
		return
	}
	n.Link = d.domain + nav.NotificationLink(n.Kind, "", "")
	d.background(func(ctx context.Context) {
		d.deliver(ctx, d.db.Model(&models.PushSubscription{}).Where("admin = ?", true), n)
	})
}

// Wait blocks until queued deliveries finish.
func (d *Dispatcher) Wait() {
	if d != nil {
		d.wg.Wait()
	}
}

func (d *Dispatcher) background(fn func(ctx context.Context)) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		fn(ctx)
	}()
}

func (d *Dispatcher) deliver(ctx context.Context, query *gorm.DB, n Notification) {
	var subs []models.PushSubscription
	if err := query.Find(&subs).Error; err != nil {
		log.Printf("push: loading subscriptions: %v", err)
		return
	}

	for _, sub := range subs {
		err := d.sender.Send(ctx, sub.Token, n)
		if err == nil {
			continue
		}
		if d.sender.Unregistered(err) {
			log.Printf("push: pruning unregistered token %d", sub.ID)
			d.db.Delete(&models.PushSubscription{}, sub.ID)
			continue
		}
		log.Printf("push: sending %s to subscription %d: %v", n.Kind, sub.ID, err)
	}
}

func boardLabel(b models.BoardType) string {
	if label, ok := boardLabels[b]; ok {
		return label
	}
	return string(b)
}
