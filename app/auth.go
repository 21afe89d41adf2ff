package app

import (
	"context"
	"errors"
	"log"
	"net/mail"
	"strings"

	"unionhall/gate"
	"unionhall/models"
	"unionhall/reconcile"
	"unionhall/remote"
	"unionhall/viewstate"
)

// Login signs a member in with the values of the member-login form.
func (c *Controller) Login(ctx context.Context) error {
	f := c.view.State().Fields
	s, err := c.signIn(ctx, "login", f.LoginEmail, f.LoginPassword)
	if err != nil {
		return err
	}
	c.setSession(s)
	c.view.CloseModal(viewstate.ModalMemberLogin)
	c.afterSignIn(ctx)
	return nil
}

// AdminLogin signs in with the admin-login form and insists on an admin
// account.
func (c *Controller) AdminLogin(ctx context.Context) error {
	f := c.view.State().Fields
	s, err := c.signIn(ctx, "admin-login", f.AdminEmail, f.AdminPassword)
	if err != nil {
		return err
	}
	if s.Role != models.RoleAdmin {
		c.signOutQuietly(ctx)
		c.prompt.Alert(MsgNotAdmin)
		return ErrNotAllowed
	}
	c.setSession(s)
	c.view.CloseModal(viewstate.ModalAdminLogin)
	c.afterSignIn(ctx)
	return nil
}

func (c *Controller) signIn(ctx context.Context, action, email, password string) (*models.Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		err := invalid("email", "Enter your email and password.")
		c.prompt.Alert(err.Message)
		return nil, err
	}
	done, err := c.guard(action)
	if err != nil {
		return nil, err
	}
	defer done()

	s, err := c.auth.SignIn(ctx, email, password)
	switch {
	case errors.Is(err, remote.ErrApprovalPending):
		c.view.OpenModal(viewstate.ModalApprovalPending)
		c.prompt.Alert(MsgApprovalPending)
		return nil, err
	case errors.Is(err, remote.ErrUnauthorized):
		c.prompt.Alert(MsgBadCredentials)
		return nil, err
	case err != nil:
		log.Printf("app: sign in: %v", err)
		c.prompt.Alert(MsgRetryLater)
		return nil, err
	}
	if s.Role == models.RoleGuest {
		// signed in but not approved: the member cannot use the site yet
		c.signOutQuietly(ctx)
		c.view.OpenModal(viewstate.ModalApprovalPending)
		c.prompt.Alert(MsgApprovalPending)
		return nil, remote.ErrApprovalPending
	}
	return s, nil
}

func (c *Controller) signOutQuietly(ctx context.Context) {
	if err := c.auth.SignOut(ctx); err != nil {
		log.Printf("app: sign out: %v", err)
	}
}

// afterSignIn reloads what the new role may see and subscribes this device
// to push notifications once per process.
func (c *Controller) afterSignIn(ctx context.Context) {
	if o := c.store.LoadAll(ctx); o.Status != reconcile.Applied {
		log.Printf("app: reload after sign in: %v", o.Err)
	}
	c.subscribeOnce.Do(func() {
		if c.devices == nil {
			return
		}
		token, err := c.devices.Token(ctx)
		if err != nil {
			log.Printf("app: push token: %v", err)
			return
		}
		if err := c.auth.Subscribe(ctx, token); err != nil {
			log.Printf("app: push subscribe: %v", err)
		}
	})
}

// Logout signs out and returns to the initial view. A failed remote sign out
// is logged; the local session is dropped regardless.
func (c *Controller) Logout(ctx context.Context) {
	if c.auth != nil {
		c.signOutQuietly(ctx)
	}
	c.session = nil
	c.view.Reset()
}

// Signup creates an account and member record. The backend goes first: on
// failure nothing changes locally.
func (c *Controller) Signup(ctx context.Context, req models.SignupRequest, confirm string) error {
	if err := validateSignup(req, confirm); err != nil {
		c.prompt.Alert(err.Message)
		return err
	}
	done, err := c.guard("signup")
	if err != nil {
		return err
	}
	defer done()

	m, err := c.auth.SignUp(ctx, req)
	switch {
	case errors.Is(err, remote.ErrConflict):
		c.prompt.Alert(MsgEmailTaken)
		return err
	case err != nil:
		log.Printf("app: sign up: %v", err)
		c.prompt.Alert(MsgRetryLater)
		return err
	}
	c.store.AddMember(m)
	c.prompt.Alert(MsgSignupReceived)
	c.view.ChangeTab(models.TabHome)
	return nil
}

func validateSignup(req models.SignupRequest, confirm string) *ValidationError {
	switch {
	case strings.TrimSpace(req.Name) == "":
		return invalid("name", "Enter your name.")
	case strings.TrimSpace(req.Email) == "":
		return invalid("email", "Enter your email address.")
	case strings.TrimSpace(req.BirthDate) == "":
		return invalid("birth_date", "Enter your date of birth.")
	case strings.TrimSpace(req.Phone) == "":
		return invalid("phone", "Enter your phone number.")
	case len(req.Password) < 6:
		return invalid("password", "The password must be at least 6 characters.")
	case req.Password != confirm:
		return invalid("password_confirm", "The passwords do not match.")
	case !models.ValidGarage(req.Garage):
		return invalid("garage", "Choose your garage from the list.")
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return invalid("email", "Enter a valid email address.")
	}
	return nil
}

// Withdraw deletes the member's account with the password from the
// withdrawal form, after confirmation. The backend goes first.
func (c *Controller) Withdraw(ctx context.Context) error {
	if !c.view.Check(gate.Action(gate.ActionWithdraw)).Allow {
		return ErrBlocked
	}
	password := c.view.State().Fields.WithdrawPassword
	if password == "" {
		err := invalid("password", "Enter your password to confirm.")
		c.prompt.Alert(err.Message)
		return err
	}
	if !c.prompt.Confirm(MsgConfirmWithdraw) {
		return ErrCancelled
	}
	done, err := c.guard("withdraw")
	if err != nil {
		return err
	}
	defer done()

	if err := c.auth.Withdraw(ctx, password); err != nil {
		if errors.Is(err, remote.ErrUnauthorized) {
			c.prompt.Alert(MsgPasswordMismatch)
		} else {
			log.Printf("app: withdraw: %v", err)
			c.prompt.Alert(MsgRetryLater)
		}
		return err
	}
	if id := c.session.MemberID(); id != nil {
		c.store.DropMember(*id)
	}
	c.view.CloseModal(viewstate.ModalWithdrawal)
	c.prompt.Alert(MsgWithdrawn)
	c.Logout(ctx)
	return nil
}

// ResetPassword requests a reset link for the address in the reset form.
func (c *Controller) ResetPassword(ctx context.Context) error {
	email := strings.TrimSpace(c.view.State().Fields.ResetEmail)
	if email == "" {
		err := invalid("email", "Enter your email address.")
		c.prompt.Alert(err.Message)
		return err
	}
	done, err := c.guard("password-reset")
	if err != nil {
		return err
	}
	defer done()

	if err := c.auth.RequestPasswordReset(ctx, email); err != nil {
		log.Printf("app: password reset: %v", err)
		c.prompt.Alert(MsgRetryLater)
		return err
	}
	c.view.CloseModal(viewstate.ModalPasswordReset)
	c.prompt.Alert(MsgResetSent)
	return nil
}
