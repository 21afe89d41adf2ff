package reconcile

import (
	"context"
	"errors"
	"sync"

	"unionhall/models"
)

var errOffline = errors.New("backend offline")

// fakeRemote is an in-memory Remote. Setting fail makes every call error.
type fakeRemote struct {
	mu       sync.Mutex
	fail     bool
	posts    map[string]*models.Post
	members  map[string]*models.Member
	settings *models.SiteSettings
	views    map[string]int
	upserts  int
	deletes  []string
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		posts:   map[string]*models.Post{},
		members: map[string]*models.Member{},
		views:   map[string]int{},
	}
}

func (f *fakeRemote) err() error {
	if f.fail {
		return errOffline
	}
	return nil
}

func (f *fakeRemote) FetchPosts(ctx context.Context) ([]*models.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.err(); err != nil {
		return nil, err
	}
	var out []*models.Post
	for _, p := range f.posts {
		out = append(out, p.Light())
	}
	return out, nil
}

func (f *fakeRemote) FetchPost(ctx context.Context, id string) (*models.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.err(); err != nil {
		return nil, err
	}
	p, ok := f.posts[id]
	if !ok {
		return nil, errors.New("not found")
	}
	cp := *p
	cp.Password = ""
	return &cp, nil
}

func (f *fakeRemote) UpsertPost(ctx context.Context, p *models.Post) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.err(); err != nil {
		return err
	}
	cp := *p
	f.posts[p.ID] = &cp
	f.upserts++
	return nil
}

func (f *fakeRemote) DeletePost(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.err(); err != nil {
		return err
	}
	delete(f.posts, id)
	f.deletes = append(f.deletes, id)
	return nil
}

func (f *fakeRemote) IncrementViews(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.err(); err != nil {
		return err
	}
	f.views[id]++
	return nil
}

func (f *fakeRemote) CheckPostPassword(ctx context.Context, id, password string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.err(); err != nil {
		return false, err
	}
	p, ok := f.posts[id]
	return ok && p.Password != "" && p.Password == password, nil
}

func (f *fakeRemote) FetchMembers(ctx context.Context) ([]*models.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.err(); err != nil {
		return nil, err
	}
	var out []*models.Member
	for _, m := range f.members {
		out = append(out, m)
	}
	return out, nil
}

func (f *fakeRemote) UpsertMember(ctx context.Context, m *models.Member) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.err(); err != nil {
		return err
	}
	cp := *m
	f.members[m.ID] = &cp
	return nil
}

func (f *fakeRemote) DeleteMember(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.err(); err != nil {
		return err
	}
	delete(f.members, id)
	return nil
}

func (f *fakeRemote) FetchSettings(ctx context.Context) (*models.SiteSettings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.err(); err != nil {
		return nil, err
	}
	if f.settings == nil {
		return &models.SiteSettings{}, nil
	}
	cp := *f.settings
	return &cp, nil
}

func (f *fakeRemote) UpsertSettings(ctx context.Context, s *models.SiteSettings) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.err(); err != nil {
		return err
	}
	cp := *s
	f.settings = &cp
	return nil
}
