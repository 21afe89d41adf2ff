// Package thread holds the pure transformations over the post -> comment ->
// reply aggregate.
//
// Every function takes a post collection and returns a new one in which only
// the addressed post is a new pointer; all other entries are the same
// pointers as before. The input collection and the posts in it are never
// modified. Role checks belong to the caller.
package thread

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"unionhall/models"
)

// NewComment builds a comment with a fresh id and the current time.
func NewComment(author string, authorID *string, content string) models.Comment {
	return models.Comment{
		ID:        uuid.NewString(),
		Author:    author,
		AuthorID:  authorID,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
}

// Find returns the post with the given id and its index, or nil and -1.
func Find(posts []*models.Post, postID string) (*models.Post, int) {
	for i, p := range posts {
		if p != nil && p.ID == postID {
			return p, i
		}
	}
	return nil, -1
}

// FindComment returns a copy of the comment, or of the reply when parentID is
// not empty.
func FindComment(p *models.Post, commentID, parentID string) (models.Comment, bool) {
	if p == nil {
		return models.Comment{}, false
	}
	comments := p.Comments
	if parentID != "" {
		i := indexOf(comments, parentID)
		if i < 0 {
			return models.Comment{}, false
		}
		comments = comments[i].Replies
	}
	if i := indexOf(comments, commentID); i >= 0 {
		return comments[i], true
	}
	return models.Comment{}, false
}

// AddComment appends c to the post's comments, or to the replies of the
// top-level comment parentID when parentID is not empty.
func AddComment(posts []*models.Post, postID, parentID string, c models.Comment) ([]*models.Post, error) {
	if strings.TrimSpace(c.Content) == "" {
		return nil, ErrEmptyComment
	}
	if parentID != "" && len(c.Replies) > 0 {
		return nil, ErrNestedReply
	}
	return update(posts, postID, func(comments []models.Comment) ([]models.Comment, error) {
		if parentID == "" {
			return appendComment(comments, c), nil
		}
		i, err := topLevel(comments, parentID)
		if err != nil {
			return nil, err
		}
		out := cloneComments(comments)
		out[i].Replies = appendComment(comments[i].Replies, c)
		return out, nil
	})
}

// EditComment replaces the content of a comment, or of a reply when parentID
// is not empty. Position and every other field are kept.
func EditComment(posts []*models.Post, postID, commentID, parentID, content string) ([]*models.Post, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyComment
	}
	return update(posts, postID, func(comments []models.Comment) ([]models.Comment, error) {
		if parentID == "" {
			i := indexOf(comments, commentID)
			if i < 0 {
				return nil, ErrCommentNotFound
			}
			out := cloneComments(comments)
			out[i].Content = content
			return out, nil
		}
		pi, err := topLevel(comments, parentID)
		if err != nil {
			return nil, err
		}
		ri := indexOf(comments[pi].Replies, commentID)
		if ri < 0 {
			return nil, ErrCommentNotFound
		}
		out := cloneComments(comments)
		out[pi].Replies = cloneComments(comments[pi].Replies)
		out[pi].Replies[ri].Content = content
		return out, nil
	})
}

// DeleteComment removes a comment (with its replies), or a single reply when
// parentID is not empty. Survivors keep their order.
func DeleteComment(posts []*models.Post, postID, commentID, parentID string) ([]*models.Post, error) {
	return update(posts, postID, func(comments []models.Comment) ([]models.Comment, error) {
		if parentID == "" {
			i := indexOf(comments, commentID)
			if i < 0 {
				return nil, ErrCommentNotFound
			}
			return removeAt(comments, i), nil
		}
		pi, err := topLevel(comments, parentID)
		if err != nil {
			return nil, err
		}
		ri := indexOf(comments[pi].Replies, commentID)
		if ri < 0 {
			return nil, ErrCommentNotFound
		}
		out := cloneComments(comments)
		out[pi].Replies = removeAt(comments[pi].Replies, ri)
		return out, nil
	})
}

// Replace returns posts with the entry whose id matches p swapped for p, or
// p prepended when no entry matches.
func Replace(posts []*models.Post, p *models.Post) []*models.Post {
	_, i := Find(posts, p.ID)
	if i < 0 {
		out := make([]*models.Post, 0, len(posts)+1)
		out = append(out, p)
		return append(out, posts...)
	}
	out := clonePosts(posts)
	out[i] = p
	return out
}

// Remove returns posts without the entry with the given id.
func Remove(posts []*models.Post, postID string) ([]*models.Post, *models.Post) {
	p, i := Find(posts, postID)
	if i < 0 {
		return posts, nil
	}
	out := make([]*models.Post, 0, len(posts)-1)
	out = append(out, posts[:i]...)
	return append(out, posts[i+1:]...), p
}

func update(posts []*models.Post, postID string, fn func([]models.Comment) ([]models.Comment, error)) ([]*models.Post, error) {
	p, i := Find(posts, postID)
	if i < 0 {
		return nil, ErrPostNotFound
	}
	comments, err := fn(p.Comments)
	if err != nil {
		return nil, err
	}
	cp := *p
	cp.Comments = comments
	out := clonePosts(posts)
	out[i] = &cp
	return out, nil
}

// topLevel finds parentID among top-level comments. A parent that is itself a
// reply means the caller tried to nest a third level.
func topLevel(comments []models.Comment, parentID string) (int, error) {
	if i := indexOf(comments, parentID); i >= 0 {
		return i, nil
	}
	for _, c := range comments {
		if indexOf(c.Replies, parentID) >= 0 {
			return -1, ErrNestedReply
		}
	}
	return -1, ErrCommentNotFound
}

func indexOf(comments []models.Comment, id string) int {
	for i, c := range comments {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func appendComment(comments []models.Comment, c models.Comment) []models.Comment {
	out := make([]models.Comment, 0, len(comments)+1)
	out = append(out, comments...)
	return append(out, c)
}

func removeAt(comments []models.Comment, i int) []models.Comment {
	out := make([]models.Comment, 0, len(comments)-1)
	out = append(out, comments[:i]...)
	return append(out, comments[i+1:]...)
}

func cloneComments(comments []models.Comment) []models.Comment {
	return append([]models.Comment(nil), comments...)
}

func clonePosts(posts []*models.Post) []*models.Post {
	return append([]*models.Post(nil), posts...)
}
