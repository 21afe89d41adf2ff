package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"unionhall/models"
	"unionhall/snapshot"
	"unionhall/thread"
)

var ErrDetailUnavailable = errors.New("post detail unavailable")

// Posts returns the live posts in display order. The slice and the posts in
// it must be treated as read-only.
func (s *Store) Posts() []*models.Post {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.posts
}

// Trash returns the soft-deleted posts, most recently deleted first.
func (s *Store) Trash() []*models.Post {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.trash
}

// Post returns the live post with the given id, or nil.
func (s *Store) Post(id string) *models.Post {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, _ := thread.Find(s.posts, id)
	return p
}

// BoardPosts returns the live posts of one board in display order.
func (s *Store) BoardPosts(board models.BoardType) []*models.Post {
	var out []*models.Post
	for _, p := range s.Posts() {
		if p.Board == board {
			out = append(out, p)
		}
	}
	return out
}

// setPosts applies a new live collection and persists it.
func (s *Store) setPosts(posts []*models.Post) {
	s.mu.Lock()
	s.posts = posts
	s.mu.Unlock()
	s.persist(snapshot.KeyPosts, posts)
}

func (s *Store) setTrash(trash []*models.Post) {
	s.mu.Lock()
	s.trash = trash
	s.mu.Unlock()
	s.persist(snapshot.KeyTrash, trash)
}

// SavePost creates or replaces a post. A post without an id gets a new one
// and the current time; p is updated with what was stored.
func (s *Store) SavePost(ctx context.Context, p *models.Post) Outcome {
	if p == nil || !p.Board.Valid() || p.Board == models.BoardTrash {
		return rejected(fmt.Errorf("invalid board %q", boardOf(p)))
	}
	cp := *p
	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	if cp.Pinned && cp.PinnedAt == nil {
		now := time.Now().UTC()
		cp.PinnedAt = &now
	}
	if !cp.Pinned {
		cp.PinnedAt = nil
	}
	*p = cp

	s.setPosts(SortPosts(thread.Replace(s.Posts(), &cp)))
	return s.remoteWrite("upsert post "+cp.ID, func(r Remote) error {
		return r.UpsertPost(ctx, &cp)
	})
}

func boardOf(p *models.Post) models.BoardType {
	if p == nil {
		return ""
	}
	return p.Board
}

// DeletePost moves a live post to the front of the trash. The remote copy is
// deleted now; the trash itself never leaves this client, so a list-view post
// is fetched in full first. When that fetch fails nothing changes.
func (s *Store) DeletePost(ctx context.Context, id string) Outcome {
	if err := s.ensureDetail(ctx, id); err != nil {
		log.Printf("reconcile: delete post %s: %v", id, err)
		return rejected(err)
	}
	rest, removed := thread.Remove(s.Posts(), id)
	if removed == nil {
		return rejected(thread.ErrPostNotFound)
	}
	trash := append([]*models.Post{removed}, s.Trash()...)
	s.setPosts(rest)
	s.setTrash(trash)
	return s.remoteWrite("delete post "+id, func(r Remote) error {
		return r.DeletePost(ctx, id)
	})
}

// PurgePost drops a post from the trash for good. It has no remote effect.
func (s *Store) PurgePost(id string) Outcome {
	rest, removed := thread.Remove(s.Trash(), id)
	if removed == nil {
		return rejected(thread.ErrPostNotFound)
	}
	s.setTrash(rest)
	return applied()
}

// RestorePost moves a post from the trash back to the live collection and
// recreates it on the remote. A trashed list-view post cannot be recreated
// without losing its body, so it is rejected when a remote is configured.
func (s *Store) RestorePost(ctx context.Context, id string) Outcome {
	trashed, _ := thread.Find(s.Trash(), id)
	if trashed == nil {
		return rejected(thread.ErrPostNotFound)
	}
	if s.remote != nil && !trashed.Detailed() {
		return rejected(ErrDetailUnavailable)
	}
	rest, removed := thread.Remove(s.Trash(), id)
	s.setTrash(rest)
	s.setPosts(SortPosts(thread.Replace(s.Posts(), removed)))
	return s.remoteWrite("restore post "+id, func(r Remote) error {
		return r.UpsertPost(ctx, removed)
	})
}

// AddComment appends a comment, or a reply to parentID.
func (s *Store) AddComment(ctx context.Context, postID, parentID string, c models.Comment) Outcome {
	return s.mutateComments(ctx, postID, "add comment", func(posts []*models.Post) ([]*models.Post, error) {
		return thread.AddComment(posts, postID, parentID, c)
	})
}

func (s *Store) EditComment(ctx context.Context, postID, commentID, parentID, content string) Outcome {
	return s.mutateComments(ctx, postID, "edit comment", func(posts []*models.Post) ([]*models.Post, error) {
		return thread.EditComment(posts, postID, commentID, parentID, content)
	})
}

func (s *Store) DeleteComment(ctx context.Context, postID, commentID, parentID string) Outcome {
	return s.mutateComments(ctx, postID, "delete comment", func(posts []*models.Post) ([]*models.Post, error) {
		return thread.DeleteComment(posts, postID, commentID, parentID)
	})
}

// mutateComments makes sure the post carries its comments before changing
// them, since the remote receives the whole post. A comment applied to a
// list-view post would be dropped by the next detail fetch, so without the
// detail nothing changes.
func (s *Store) mutateComments(ctx context.Context, postID, what string, fn func([]*models.Post) ([]*models.Post, error)) Outcome {
	if err := s.ensureDetail(ctx, postID); err != nil {
		log.Printf("reconcile: %s on %s: %v", what, postID, err)
		return rejected(err)
	}

	posts, err := fn(s.Posts())
	if err != nil {
		return rejected(err)
	}
	s.setPosts(posts)
	updated, _ := thread.Find(posts, postID)

	return s.remoteWrite(what+" on "+postID, func(r Remote) error {
		return r.UpsertPost(ctx, updated)
	})
}

// ensureDetail fetches the full post when only its list view is in memory
// and a remote holds the rest. Unknown ids are left to the caller.
func (s *Store) ensureDetail(ctx context.Context, id string) error {
	p := s.Post(id)
	if p == nil || p.Detailed() || s.remote == nil {
		return nil
	}
	if _, o := s.FetchPostDetail(ctx, id); o.Status != Applied {
		return fmt.Errorf("%w: %v", ErrDetailUnavailable, o.Err)
	}
	return nil
}

// FetchPostDetail loads the full post from the remote and swaps it into the
// live collection. Without a remote the local copy is returned as is.
func (s *Store) FetchPostDetail(ctx context.Context, id string) (*models.Post, Outcome) {
	local := s.Post(id)
	if s.remote == nil {
		if local == nil {
			return nil, rejected(thread.ErrPostNotFound)
		}
		return local, applied()
	}
	full, err := s.remote.FetchPost(ctx, id)
	if err != nil {
		log.Printf("reconcile: fetch post %s: %v", id, err)
		if local == nil {
			return nil, rejected(err)
		}
		return local, localOnly(err)
	}
	if full.Content == nil {
		empty := ""
		full.Content = &empty
	}
	if current := s.Post(id); current != nil {
		// a view recorded locally may not have reached the remote yet
		if current.Views > full.Views {
			full.Views = current.Views
		}
		if full.Password == "" {
			full.Password = current.Password
		}
	}
	s.setPosts(SortPosts(thread.Replace(s.Posts(), full)))
	return full, applied()
}

// IncrementViews bumps the view counter locally and sends the increment to
// the remote in the background. Failures are logged and ignored.
func (s *Store) IncrementViews(id string) {
	s.mu.Lock()
	p, i := thread.Find(s.posts, id)
	if i < 0 {
		s.mu.Unlock()
		return
	}
	cp := *p
	cp.Views++
	posts := append([]*models.Post(nil), s.posts...)
	posts[i] = &cp
	s.posts = posts
	s.mu.Unlock()
	s.persist(snapshot.KeyPosts, posts)

	if s.remote == nil {
		return
	}
	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), BackgroundTimeout)
		defer cancel()
		if err := s.remote.IncrementViews(ctx, id); err != nil {
			log.Printf("reconcile: increment views %s: %v", id, err)
		}
	}()
}

// CheckPostPassword verifies the legacy password of a post. A post that
// carries its password locally is checked here; otherwise the remote decides.
func (s *Store) CheckPostPassword(ctx context.Context, id, password string) (bool, Outcome) {
	p := s.Post(id)
	if p == nil {
		return false, rejected(thread.ErrPostNotFound)
	}
	if p.Password != "" {
		return p.Password == password, applied()
	}
	if s.remote == nil {
		return false, applied()
	}
	ok, err := s.remote.CheckPostPassword(ctx, id, password)
	if err != nil {
		log.Printf("reconcile: check password %s: %v", id, err)
		return false, localOnly(err)
	}
	return ok, applied()
}
