// Package reconcile owns the client's posts, trash, members and settings.
//
// Reads come from memory. Every mutation computes the new collection, applies
// it in memory, persists it to the local snapshot and then writes it to the
// remote. A failed remote write is logged and reported as LocalOnly; the
// local change stays. There is no merge: the last remote write wins.
package reconcile

import (
	"context"
	"errors"
	"log"
	"sort"
	"sync"
	"time"

	"unionhall/models"
	"unionhall/snapshot"
)

var ErrNoRemote = errors.New("no remote configured")

// BackgroundTimeout bounds fire-and-forget remote calls.
var BackgroundTimeout = 10 * time.Second

type Store struct {
	local  snapshot.Store
	remote Remote

	mu       sync.RWMutex
	posts    []*models.Post
	trash    []*models.Post
	members  []*models.Member
	settings *models.SiteSettings

	bg sync.WaitGroup
}

// New returns an empty store. remote may be nil, in which case the store
// works from the snapshot alone.
func New(local snapshot.Store, remote Remote) *Store {
	if local == nil {
		local = snapshot.NewMemoryStore()
	}
	return &Store{local: local, remote: remote}
}

// HasRemote reports whether a remote is configured.
func (s *Store) HasRemote() bool {
	return s.remote != nil
}

// LoadAll fills the store. Each collection comes from the remote when one is
// configured and answers, and from the snapshot otherwise. Trash is always
// local. A collection that cannot be loaded keeps what it had. The returned
// outcome is LocalOnly when some remote fetch failed.
func (s *Store) LoadAll(ctx context.Context) Outcome {
	var remoteErr error

	posts, err := loadCollection(ctx, s, snapshot.KeyPosts, s.fetchPosts)
	remoteErr = errors.Join(remoteErr, err)
	members, err := loadCollection(ctx, s, snapshot.KeyMembers, s.fetchMembers)
	remoteErr = errors.Join(remoteErr, err)
	settings, err := loadCollection(ctx, s, snapshot.KeySettings, s.fetchSettings)
	remoteErr = errors.Join(remoteErr, err)

	var trash []*models.Post
	trashErr := s.local.Load(snapshot.KeyTrash, &trash)
	if trashErr != nil && !errors.Is(trashErr, snapshot.ErrNotFound) {
		log.Printf("reconcile: load trash: %v", trashErr)
	}

	s.mu.Lock()
	if posts != nil {
		s.posts = SortPosts(*posts)
	}
	if members != nil {
		s.members = *members
	}
	if settings != nil {
		s.settings = *settings
	}
	if trashErr == nil {
		s.trash = trash
	}
	s.mu.Unlock()

	if remoteErr != nil {
		return localOnly(remoteErr)
	}
	return applied()
}

func (s *Store) fetchPosts(ctx context.Context) ([]*models.Post, error) {
	return s.remote.FetchPosts(ctx)
}

func (s *Store) fetchMembers(ctx context.Context) ([]*models.Member, error) {
	return s.remote.FetchMembers(ctx)
}

func (s *Store) fetchSettings(ctx context.Context) (*models.SiteSettings, error) {
	return s.remote.FetchSettings(ctx)
}

// loadCollection returns nil when neither source produced a value. The error
// is the remote failure, if any.
func loadCollection[T any](ctx context.Context, s *Store, key string, fetch func(context.Context) (T, error)) (*T, error) {
	var remoteErr error
	if s.remote != nil {
		v, err := fetch(ctx)
		if err == nil {
			s.persist(key, v)
			return &v, nil
		}
		log.Printf("reconcile: fetch %s: %v", key, err)
		remoteErr = err
	}
	var v T
	if err := s.local.Load(key, &v); err != nil {
		if !errors.Is(err, snapshot.ErrNotFound) {
			log.Printf("reconcile: load %s snapshot: %v", key, err)
		}
		return nil, remoteErr
	}
	return &v, remoteErr
}

func (s *Store) persist(key string, v any) {
	if err := s.local.Save(key, v); err != nil {
		log.Printf("reconcile: save %s snapshot: %v", key, err)
	}
}

// remoteWrite runs fn against the remote and maps the result to an outcome.
func (s *Store) remoteWrite(what string, fn func(Remote) error) Outcome {
	if s.remote == nil {
		return applied()
	}
	if err := fn(s.remote); err != nil {
		log.Printf("reconcile: %s: %v", what, err)
		return localOnly(err)
	}
	return applied()
}

// Wait blocks until background remote calls have finished.
func (s *Store) Wait() {
	s.bg.Wait()
}

// SortPosts orders pinned posts first, most recently pinned first, then the
// rest newest first. It returns a new slice.
func SortPosts(posts []*models.Post) []*models.Post {
	out := append([]*models.Post(nil), posts...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Pinned != b.Pinned {
			return a.Pinned
		}
		if a.Pinned && a.PinnedAt != nil && b.PinnedAt != nil && !a.PinnedAt.Equal(*b.PinnedAt) {
			return a.PinnedAt.After(*b.PinnedAt)
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
	return out
}
