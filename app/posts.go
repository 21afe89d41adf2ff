package app

import (
	"context"
	"errors"
	"strings"

	"unionhall/gate"
	"unionhall/models"
	"unionhall/reconcile"
	"unionhall/thread"
	"unionhall/viewstate"
)

// Draft is the editor's content.
type Draft struct {
	Title       string
	Content     string
	Attachments []models.Attachment
	Password    string
	Pinned      bool
}

// SubmitPost saves the editor's draft as a new post on the writing board, or
// over the post being edited. The saved post is opened afterwards.
func (c *Controller) SubmitPost(ctx context.Context, d Draft) (*models.Post, error) {
	st := c.view.State()
	if st.Mode != viewstate.ModeWriting {
		return nil, ErrNotAllowed
	}
	// a writing view restored from history was never gated
	if st.Editing == nil && !c.view.Check(gate.Write(st.WritingBoard)).Allow {
		return nil, ErrBlocked
	}
	if err := validateDraft(d); err != nil {
		c.prompt.Alert(err.Message)
		return nil, err
	}
	if c.Role() != models.RoleAdmin {
		d.Pinned = st.Editing != nil && st.Editing.Pinned
	}

	var p models.Post
	if st.Editing != nil {
		p = *st.Editing
	} else {
		p = models.Post{
			Board:    st.WritingBoard,
			Author:   c.session.DisplayName(),
			AuthorID: c.session.MemberID(),
		}
	}
	content := d.Content
	p.Title = strings.TrimSpace(d.Title)
	p.Content = &content
	p.Attachments = d.Attachments
	p.Pinned = d.Pinned
	if d.Password != "" {
		p.Password = d.Password
	}

	o := c.store.SavePost(ctx, &p)
	if o.Status == reconcile.Rejected {
		c.prompt.Alert(MsgNotAllowed)
		return nil, o.Err
	}
	c.remoteFailed(o)
	id := p.ID
	c.view.FinishWriting(&id)
	return c.store.Post(id), nil
}

func validateDraft(d Draft) *ValidationError {
	if strings.TrimSpace(d.Title) == "" {
		return invalid("title", "Enter a title.")
	}
	if strings.TrimSpace(d.Content) == "" && len(d.Attachments) == 0 {
		return invalid("content", "Enter some content.")
	}
	return nil
}

// authorize checks that the user may manage a post. Admins and authors pass;
// anyone else must give the post's password.
func (c *Controller) authorize(ctx context.Context, p *models.Post, password string) error {
	if c.canManage(p.AuthorID) {
		return nil
	}
	if password == "" {
		c.prompt.Alert(MsgNotAllowed)
		return ErrNotAllowed
	}
	ok, o := c.store.CheckPostPassword(ctx, p.ID, password)
	if o.Status == reconcile.LocalOnly {
		c.prompt.Alert(MsgRetryLater)
		return o.Err
	}
	if !ok {
		c.prompt.Alert(MsgPasswordMismatch)
		return ErrPasswordMismatch
	}
	return nil
}

// EditPost opens the editor on a post the user may manage.
func (c *Controller) EditPost(ctx context.Context, id, password string) error {
	p := c.store.Post(id)
	if p == nil {
		c.prompt.Alert(MsgPostNotFound)
		return thread.ErrPostNotFound
	}
	if err := c.authorize(ctx, p, password); err != nil {
		return err
	}
	if !p.Detailed() {
		p, _ = c.store.FetchPostDetail(ctx, id)
	}
	c.view.StartEditing(p)
	return nil
}

// DeletePost moves a post to the trash after the manage check and a
// confirmation.
func (c *Controller) DeletePost(ctx context.Context, id, password string) error {
	p := c.store.Post(id)
	if p == nil {
		c.prompt.Alert(MsgPostNotFound)
		return thread.ErrPostNotFound
	}
	if err := c.authorize(ctx, p, password); err != nil {
		return err
	}
	if !c.prompt.Confirm(MsgConfirmDeletePost) {
		return ErrCancelled
	}
	o := c.store.DeletePost(ctx, id)
	if o.Status == reconcile.Rejected {
		if errors.Is(o.Err, reconcile.ErrDetailUnavailable) {
			c.prompt.Alert(MsgRetryLater)
		} else {
			c.prompt.Alert(MsgPostNotFound)
		}
		return o.Err
	}
	c.remoteFailed(o)
	if sel := c.view.State().SelectedPostID; sel != nil && *sel == id {
		c.view.SelectPost(nil)
	}
	return nil
}

// Comment posts a comment, or a reply when parentID is not empty, as the
// signed-in member.
func (c *Controller) Comment(ctx context.Context, postID, parentID, content string) error {
	if !c.view.Check(gate.Action(gate.ActionComment)).Allow {
		return ErrBlocked
	}
	if strings.TrimSpace(content) == "" {
		err := invalid("content", "Enter a comment.")
		c.prompt.Alert(err.Message)
		return err
	}
	cm := thread.NewComment(c.session.DisplayName(), c.session.MemberID(), strings.TrimSpace(content))
	o := c.store.AddComment(ctx, postID, parentID, cm)
	return c.commentOutcome(o)
}

// EditComment changes a comment the user wrote, or any comment for admins.
func (c *Controller) EditComment(ctx context.Context, postID, commentID, parentID, content string) error {
	if err := c.manageComment(postID, commentID, parentID); err != nil {
		return err
	}
	if strings.TrimSpace(content) == "" {
		err := invalid("content", "Enter a comment.")
		c.prompt.Alert(err.Message)
		return err
	}
	o := c.store.EditComment(ctx, postID, commentID, parentID, strings.TrimSpace(content))
	return c.commentOutcome(o)
}

// DeleteComment removes a comment after confirmation.
func (c *Controller) DeleteComment(ctx context.Context, postID, commentID, parentID string) error {
	if err := c.manageComment(postID, commentID, parentID); err != nil {
		return err
	}
	if !c.prompt.Confirm(MsgConfirmDeleteReply) {
		return ErrCancelled
	}
	o := c.store.DeleteComment(ctx, postID, commentID, parentID)
	return c.commentOutcome(o)
}

func (c *Controller) manageComment(postID, commentID, parentID string) error {
	if !c.view.Check(gate.Action(gate.ActionComment)).Allow {
		return ErrBlocked
	}
	cm, ok := thread.FindComment(c.store.Post(postID), commentID, parentID)
	if !ok {
		c.prompt.Alert(MsgCommentNotFound)
		return thread.ErrCommentNotFound
	}
	if !c.canManage(cm.AuthorID) {
		c.prompt.Alert(MsgNotAllowed)
		return ErrNotAllowed
	}
	return nil
}

func (c *Controller) commentOutcome(o reconcile.Outcome) error {
	if o.Status == reconcile.Rejected {
		switch {
		case errors.Is(o.Err, thread.ErrPostNotFound):
			c.prompt.Alert(MsgPostNotFound)
		case errors.Is(o.Err, thread.ErrCommentNotFound):
			c.prompt.Alert(MsgCommentNotFound)
		case errors.Is(o.Err, reconcile.ErrDetailUnavailable):
			c.prompt.Alert(MsgRetryLater)
		default:
			c.prompt.Alert(MsgNotAllowed)
		}
		return o.Err
	}
	c.remoteFailed(o)
	return nil
}
