package api

import (
	"context"
	"net/http"

	"github.com/pkg/errors"

	"github.com/NVK2907/sms-app-sub000/core/session"
)

// Auth is the session.Authenticator of the REST backend.
type Auth struct {
	c *Client
}

var _ session.Authenticator = (*Auth)(nil)

func NewAuth(c *Client) *Auth {
	return &Auth{c: c.WithTokens(nil)}
}

type loginResp struct {
	Token string            `json:"token"`
	User  *session.Identity `json:"user"`
}

func (a *Auth) Login(ctx context.Context, creds session.Credentials) (string, *session.Identity, error) {
	var resp loginResp
	if err := a.c.do(ctx, http.MethodPost, "/auth/login", nil, creds, &resp); err != nil {
		return "", nil, err
	}
	return resp.Token, resp.User, nil
}

func (a *Auth) Register(ctx context.Context, reg session.Registration) (*session.Identity, error) {
	var usr session.Identity
	if err := a.c.do(ctx, http.MethodPost, "/auth/register", nil, reg, &usr); err != nil {
		return nil, err
	}
	return &usr, nil
}

// ValidateToken asks the backend whether token is still valid.
// 401 and 403 mean it is not (session.ErrInvalidToken); any other failure is returned as is.
func (a *Auth) ValidateToken(ctx context.Context, token string) error {
	err := a.c.WithTokens(StaticToken(token)).do(ctx, http.MethodGet, "/auth/validate", nil, nil, nil)
	if IsStatus(err, http.StatusUnauthorized, http.StatusForbidden) {
		return errors.Wrap(session.ErrInvalidToken, err.Error())
	}
	return err
}
