package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"github.com/Dosada05/mob-esports/models"
)

type PostResource struct {
	c *Client
}

func (r *PostResource) List(ctx context.Context) ([]models.Post, error) {
	var out []models.Post
	if err := r.c.doJSON(ctx, http.MethodGet, "/posts", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PostResource) Create(ctx context.Context, in models.PostInput) (*models.Post, error) {
	if err := validate(in); err != nil {
		return nil, err
	}
	var out models.Post
	if err := r.c.doJSON(ctx, http.MethodPost, "/posts", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *PostResource) Delete(ctx context.Context, id string) error {
	return r.c.doJSON(ctx, http.MethodDelete, "/posts/"+url.PathEscape(id), nil, nil, nil)
}

type TeamResource struct {
	c *Client
}

func (r *TeamResource) List(ctx context.Context) ([]models.Team, error) {
	var out []models.Team
	if err := r.c.doJSON(ctx, http.MethodGet, "/teams", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *TeamResource) Get(ctx context.Context, id string) (*models.Team, error) {
	var out models.Team
	if err := r.c.doJSON(ctx, http.MethodGet, "/teams/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *TeamResource) Create(ctx context.Context, in models.TeamInput) (*models.Team, error) {
	if err := validate(in); err != nil {
		return nil, err
	}
	var out models.Team
	if err := r.c.doJSON(ctx, http.MethodPost, "/teams", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type UserResource struct {
	c *Client
}

func (r *UserResource) List(ctx context.Context) ([]models.User, error) {
	var out []models.User
	if err := r.c.doJSON(ctx, http.MethodGet, "/users", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateRole changes a user's role. Anonymous is not assignable.
func (r *UserResource) UpdateRole(ctx context.Context, id string, role models.Role) (*models.User, error) {
	if !role.Authenticated() {
		return nil, ErrInvalidInput
	}
	body := struct {
		Role models.Role `json:"role"`
	}{Role: role}
	var out models.User
	if err := r.c.doJSON(ctx, http.MethodPatch, "/users/"+url.PathEscape(id)+"/role", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *UserResource) Delete(ctx context.Context, id string) error {
	return r.c.doJSON(ctx, http.MethodDelete, "/users/"+url.PathEscape(id), nil, nil, nil)
}

type FriendResource struct {
	c *Client
}

// SendRequest sends a friend request to userID. The recipient learns about
// it through a friend:request realtime message.
func (r *FriendResource) SendRequest(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrInvalidInput
	}
	body := struct {
		UserID string `json:"userId"`
	}{UserID: userID}
	return r.c.doJSON(ctx, http.MethodPost, "/friends/requests", nil, body, nil)
}
