package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/idilsaglam/todoclient/internal/model"
)

type loginForm struct {
	Username string `schema:"username"`
	Password string `schema:"password"`
}

type registerBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login exchanges credentials for a token. It does not attach the token:
// callers decide when the new session starts.
func (c *Client) Login(ctx context.Context, email, password string) (model.Token, error) {
	var tok model.Token
	err := c.doForm(ctx, "/auth/login", loginForm{Username: email, Password: password}, &tok)
	if err != nil {
		var ae *Error
		if errors.As(err, &ae) && ae.Status >= 400 && ae.Status < 500 {
			return model.Token{}, fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
		}
		return model.Token{}, err
	}
	if tok.AccessToken == "" {
		return model.Token{}, fmt.Errorf("login: empty access_token")
	}
	return tok, nil
}

func (c *Client) Register(ctx context.Context, email, password string) (model.User, error) {
	var u model.User
	err := c.doJSON(ctx, http.MethodPost, "/auth/register", nil, registerBody{Email: email, Password: password}, &u)
	return u, err
}

// Me fetches the profile of the token's owner.
func (c *Client) Me(ctx context.Context) (model.User, error) {
	var u model.User
	err := c.doJSON(ctx, http.MethodGet, "/auth/me", nil, nil, &u)
	return u, err
}
