package remote

import (
	"context"
	"fmt"
	"net/http"

	"unionhall/models"
)

// Session returns the current session. A signed out caller gets a guest
// session, not an error.
func (c *Client) Session(ctx context.Context) (*models.Session, error) {
	var s models.Session
	if err := c.do(ctx, http.MethodGet, "/api/auth/session", nil, &s); err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	return &s, nil
}

func (c *Client) SignIn(ctx context.Context, email, password string) (*models.Session, error) {
	var s models.Session
	body := models.Credentials{Email: email, Password: password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/signin", body, &s); err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}
	return &s, nil
}

func (c *Client) SignUp(ctx context.Context, req models.SignupRequest) (*models.Member, error) {
	var m models.Member
	if err := c.do(ctx, http.MethodPost, "/api/auth/signup", req, &m); err != nil {
		return nil, fmt.Errorf("sign up: %w", err)
	}
	return &m, nil
}

func (c *Client) SignOut(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/auth/signout", nil, nil)
}

func (c *Client) RequestPasswordReset(ctx context.Context, email string) error {
	body := map[string]string{"email": email}
	if err := c.do(ctx, http.MethodPost, "/api/auth/password-reset", body, nil); err != nil {
		return fmt.Errorf("password reset: %w", err)
	}
	return nil
}

func (c *Client) ConfirmPasswordReset(ctx context.Context, token, password string) error {
	body := map[string]string{"token": token, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/password-reset/confirm", body, nil); err != nil {
		return fmt.Errorf("confirm password reset: %w", err)
	}
	return nil
}

// Withdraw deletes the caller's account and member record.
func (c *Client) Withdraw(ctx context.Context, password string) error {
	body := map[string]string{"password": password}
	if err := c.do(ctx, http.MethodDelete, "/api/auth/account", body, nil); err != nil {
		return fmt.Errorf("withdraw: %w", err)
	}
	return nil
}

// Subscribe registers a device token for push notifications.
func (c *Client) Subscribe(ctx context.Context, token string) error {
	body := map[string]string{"token": token}
	if err := c.do(ctx, http.MethodPost, "/api/push/subscriptions", body, nil); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	return nil
}

func (c *Client) Unsubscribe(ctx context.Context, token string) error {
	body := map[string]string{"token": token}
	return c.do(ctx, http.MethodDelete, "/api/push/subscriptions", body, nil)
}
