package reconcile

import (
	"context"

	"unionhall/models"
)

// Remote is the backend the store mirrors to. Every call is fallible.
type Remote interface {
	FetchPosts(ctx context.Context) ([]*models.Post, error)
	FetchPost(ctx context.Context, id string) (*models.Post, error)
	UpsertPost(ctx context.Context, p *models.Post) error
	DeletePost(ctx context.Context, id string) error
	IncrementViews(ctx context.Context, id string) error
	CheckPostPassword(ctx context.Context, id, password string) (bool, error)

	FetchMembers(ctx context.Context) ([]*models.Member, error)
	UpsertMember(ctx context.Context, m *models.Member) error
	DeleteMember(ctx context.Context, id string) error

	FetchSettings(ctx context.Context) (*models.SiteSettings, error)
	UpsertSettings(ctx context.Context, s *models.SiteSettings) error
}
