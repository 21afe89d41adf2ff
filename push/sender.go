package push

import (
	"context"
	"fmt"
	"log"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"

	"unionhall/nav"
)

// Notification is one push message. Link is the site URL the notification
// opens.
type Notification struct {
	Kind  nav.NotificationKind
	Title string
	Body  string
	Link  string
}

// Sender delivers a notification to one device token.
type Sender interface {
	Send(ctx context.Context, token string, n Notification) error
	// Unregistered reports whether err means the token is gone for good.
	Unregistered(err error) bool
}

type FCMSender struct {
	client *messaging.Client
}

func NewFCMSender(ctx context.Context, app *firebase.App) (*FCMSender, error) {
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase messaging: %w", err)
	}
	return &FCMSender{client: client}, nil
}

func (s *FCMSender) Send(ctx context.Context, token string, n Notification) error {
	_, err := s.client.Send(ctx, message(token, n))
	return err
}

func (s *FCMSender) Unregistered(err error) bool {
	return messaging.IsUnregistered(err)
}

func message(token string, n Notification) *messaging.Message {
	return &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: n.Title,
			Body:  n.Body,
		},
		Data: map[string]string{
			"kind": string(n.Kind),
			"link": n.Link,
		},
		Webpush: &messaging.WebpushConfig{
			FCMOptions: &messaging.WebpushFCMOptions{Link: n.Link},
		},
	}
}

// LogSender only logs. It stands in when Firebase is not configured.
type LogSender struct{}

func (LogSender) Send(_ context.Context, token string, n Notification) error {
	log.Printf("push (not sent) to %s: %s %q -> %s", token, n.Kind, n.Title, n.Link)
	return nil
}

func (LogSender) Unregistered(error) bool { return false }
