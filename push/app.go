// Package push delivers notifications to subscribed browsers through
// Firebase Cloud Messaging and keeps the subscription list.
package push

import (
	"context"
	"fmt"
	"log"
	"sync"

	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"

	"unionhall/config"
)

var (
	initOnce sync.Once
	app      *firebase.App
	initErr  error
)

// Init creates the process-wide Firebase app the first time it is called and
// returns it on every later call. It returns nil, nil when Firebase is not
// configured.
func Init(ctx context.Context, cfg *config.Config) (*firebase.App, error) {
	initOnce.Do(func() {
		if cfg.FirebaseProjectID == "" {
			log.Println("firebase project not set - push and token sign-in are disabled")
			return
		}

		var opts []option.ClientOption
		if cfg.FirebaseCredentialsJSON != "" {
			opts = append(opts, option.WithCredentialsJSON([]byte(cfg.FirebaseCredentialsJSON)))
		} else if cfg.FirebaseCredentialsFile != "" {
			opts = append(opts, option.WithCredentialsFile(cfg.FirebaseCredentialsFile))
		}

		app, initErr = firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.FirebaseProjectID}, opts...)
		if initErr != nil {
			initErr = fmt.Errorf("firebase init: %w", initErr)
		}
	})
	return app, initErr
}
