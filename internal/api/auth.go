package api

import (
	"context"
	"net/http"
)

// Login exchanges credentials for a token pair and stores it as the
// current session.
func (c *Client) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	var pair TokenPair
	err := c.do(ctx, &call{
		method: http.MethodPost,
		path:   "/auth/login",
		body:   loginRequest{Email: email, Password: password},
		out:    &pair,
	})
	if err != nil {
		return nil, err
	}
	if err := c.tokens.SetTokens(pair.AccessToken, pair.RefreshToken); err != nil {
		return nil, err
	}
	return &pair, nil
}

// Register creates a new account. It does not log the account in.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	var user User
	err := c.do(ctx, &call{
		method: http.MethodPost,
		path:   "/auth/register",
		body:   req,
		out:    &user,
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Me returns the account that owns the current session.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var user User
	err := c.do(ctx, &call{
		method:        http.MethodGet,
		path:          "/auth/me",
		out:           &user,
		authenticated: true,
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Logout destroys the current session locally. The backend holds no
// server-side session state to invalidate.
func (c *Client) Logout() error {
	return c.tokens.Clear()
}
