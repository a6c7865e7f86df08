package api

import (
	"context"
	"net/http"
	"strings"

	"taskboard/domain"
	"taskboard/session"
)

type credentials struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
}

// Login exchanges credentials for a session. No bearer token is needed.
func (c *Client) Login(ctx context.Context, email, password string) (session.Session, error) {
	const op = "login"
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return session.Session{}, validationError(op, "email and password are required")
	}
	var resp loginResponse
	err := c.do(ctx, request{
		op:     op,
		method: http.MethodPost,
		path:   "/auth/login",
		body:   credentials{Email: email, Password: password},
		out:    &resp,
		public: true,
	})
	if err != nil {
		return session.Session{}, err
	}
	if resp.AccessToken == "" {
		return session.Session{}, &Error{Op: op, Kind: domain.ErrUnauthorized, Message: "no access token in response"}
	}
	return session.FromToken(resp.AccessToken)
}

// Register creates a user account. The caller logs in afterwards.
func (c *Client) Register(ctx context.Context, name, email, password string) error {
	const op = "register"
	email = strings.TrimSpace(email)
	if strings.TrimSpace(name) == "" || email == "" || password == "" {
		return validationError(op, "name, email and password are required")
	}
	return c.do(ctx, request{
		op:     op,
		method: http.MethodPost,
		path:   "/auth/register",
		body:   credentials{Name: strings.TrimSpace(name), Email: email, Password: password},
		public: true,
	})
}
