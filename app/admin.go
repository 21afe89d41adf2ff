package app

import (
	"context"
	"errors"

	"unionhall/gate"
	"unionhall/models"
	"unionhall/reconcile"
)

func (c *Controller) requireAdmin() error {
	if !c.view.Check(gate.Tab(models.TabAdmin)).Allow {
		return ErrBlocked
	}
	return nil
}

func (c *Controller) adminOutcome(o reconcile.Outcome) error {
	if o.Status == reconcile.Rejected {
		if errors.Is(o.Err, reconcile.ErrDetailUnavailable) {
			c.prompt.Alert(MsgRetryLater)
		} else {
			c.prompt.Alert(MsgNotAllowed)
		}
		return o.Err
	}
	c.remoteFailed(o)
	return nil
}

func (c *Controller) ApproveMember(ctx context.Context, id string) error {
	if err := c.requireAdmin(); err != nil {
		return err
	}
	return c.adminOutcome(c.store.ApproveMember(ctx, id))
}

func (c *Controller) RemoveMember(ctx context.Context, id string) error {
	if err := c.requireAdmin(); err != nil {
		return err
	}
	if !c.prompt.Confirm(MsgConfirmRemove) {
		return ErrCancelled
	}
	return c.adminOutcome(c.store.RemoveMember(ctx, id))
}

func (c *Controller) UpdateSettings(ctx context.Context, s models.SiteSettings) error {
	if err := c.requireAdmin(); err != nil {
		return err
	}
	return c.adminOutcome(c.store.UpdateSettings(ctx, s))
}

// RestorePost brings a post back from the trash.
func (c *Controller) RestorePost(ctx context.Context, id string) error {
	if err := c.requireAdmin(); err != nil {
		return err
	}
	return c.adminOutcome(c.store.RestorePost(ctx, id))
}

// PurgePost empties one post out of the trash.
func (c *Controller) PurgePost(id string) error {
	if err := c.requireAdmin(); err != nil {
		return err
	}
	if !c.prompt.Confirm(MsgConfirmPurge) {
		return ErrCancelled
	}
	return c.adminOutcome(c.store.PurgePost(id))
}
