package apiclient

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Dosada05/mob-esports/models"
	"github.com/Dosada05/mob-esports/utils"
)

type AuthResource struct {
	c *Client
}

// Login exchanges credentials for a token. The client's own token is not
// changed; callers decide where the token lives.
func (r *AuthResource) Login(ctx context.Context, creds models.Credentials) (*models.AuthResult, error) {
	if err := validate(creds); err != nil {
		return nil, err
	}
	var out models.AuthResult
	if err := r.c.doJSON(ctx, http.MethodPost, "/auth/login", nil, creds, &out); err != nil {
		return nil, err
	}
	if out.Token == "" {
		return nil, fmt.Errorf("login response carried no token")
	}
	return &out, nil
}

func (r *AuthResource) Register(ctx context.Context, in models.RegisterInput) (*models.AuthResult, error) {
	if err := validate(in); err != nil {
		return nil, err
	}
	var out models.AuthResult
	if err := r.c.doJSON(ctx, http.MethodPost, "/auth/register", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Me returns the user the current token belongs to.
func (r *AuthResource) Me(ctx context.Context) (*models.User, error) {
	var out models.User
	if err := r.c.doJSON(ctx, http.MethodGet, "/auth/me", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func validate(v any) error {
	if err := utils.ValidateStruct(v); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return nil
}
