// Package api is the typed client for the posts and users backend. Every
// call goes through the shared request pipeline, so interceptors, retries,
// timeouts and error normalization apply uniformly.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/tjfontaine/mobile-api-client/internal/pipeline"
)

const (
	// PostsLimit is the page size used by GetPosts.
	PostsLimit = 10
	// UsersLimit is the page size used by GetUsers.
	UsersLimit = 5

	listTimeout = 10 * time.Second
	listRetries = 2
)

// Client calls the backend endpoints.
type Client struct {
	p *pipeline.Pipeline
}

// NewClient creates a client over p.
func NewClient(p *pipeline.Pipeline) *Client {
	return &Client{p: p}
}

// Pipeline returns the underlying pipeline, for registering interceptors.
func (c *Client) Pipeline() *pipeline.Pipeline {
	return c.p
}

// GetPosts lists the first PostsLimit posts.
func (c *Client) GetPosts(ctx context.Context) ([]Post, error) {
	return pipeline.Get[[]Post](ctx, c.p, fmt.Sprintf("/posts?_limit=%d", PostsLimit),
		pipeline.Timeout(listTimeout), pipeline.Retries(listRetries))
}

// GetPost fetches one post.
func (c *Client) GetPost(ctx context.Context, id int) (Post, error) {
	return pipeline.Get[Post](ctx, c.p, postPath(id))
}

// GetUsers lists the first UsersLimit users.
func (c *Client) GetUsers(ctx context.Context) ([]User, error) {
	return pipeline.Get[[]User](ctx, c.p, fmt.Sprintf("/users?_limit=%d", UsersLimit),
		pipeline.Timeout(listTimeout), pipeline.Retries(listRetries))
}

// CreatePost creates a post and returns it with its assigned id.
func (c *Client) CreatePost(ctx context.Context, post NewPost) (Post, error) {
	return pipeline.Post[Post](ctx, c.p, "/posts", post)
}

// UpdatePost replaces a post with PUT.
func (c *Client) UpdatePost(ctx context.Context, id int, update PostUpdate) (Post, error) {
	return pipeline.Put[Post](ctx, c.p, postPath(id), update)
}

// PatchPost changes only the given fields with PATCH.
func (c *Client) PatchPost(ctx context.Context, id int, update PostUpdate) (Post, error) {
	return pipeline.Patch[Post](ctx, c.p, postPath(id), update)
}

// DeletePost deletes a post. The response body is ignored.
func (c *Client) DeletePost(ctx context.Context, id int) error {
	return c.p.Do(ctx, c.p.NewRequest(http.MethodDelete, postPath(id)), nil)
}

// Me returns the user the stored access token belongs to.
func (c *Client) Me(ctx context.Context) (User, error) {
	return pipeline.Get[User](ctx, c.p, "/me")
}

func postPath(id int) string {
	return fmt.Sprintf("/posts/%d", id)
}
