package api_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tjfontaine/mobile-api-client/internal/api"
	"github.com/tjfontaine/mobile-api-client/internal/auth"
	"github.com/tjfontaine/mobile-api-client/internal/core/domain"
	"github.com/tjfontaine/mobile-api-client/internal/credentials"
	"github.com/tjfontaine/mobile-api-client/internal/interceptors"
	"github.com/tjfontaine/mobile-api-client/internal/pipeline"
	"github.com/tjfontaine/mobile-api-client/internal/server"
	"github.com/tjfontaine/mobile-api-client/internal/storage/memory"
	"github.com/tjfontaine/mobile-api-client/internal/testutil"
)

const testToken = "token-for-user-3"

type fixture struct {
	client *api.Client
	creds  *credentials.Store
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	backend := server.New(server.Config{
		Tokens: []auth.Token{{Hash: auth.HashToken(testToken), UserID: 3}},
	}, logger)
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	creds := credentials.New(memory.New())
	p := pipeline.New(srv.URL, pipeline.WithHTTPClient(srv.Client()), pipeline.WithLogger(logger))
	p.AddRequestInterceptor(interceptors.JSONHeaders())
	p.AddRequestInterceptor(interceptors.Bearer(creds, logger))
	p.AddErrorInterceptor(interceptors.Unauthorized(creds, nil, logger))

	return fixture{client: api.NewClient(p), creds: creds}
}

func asAPIError(t *testing.T, err error) *domain.APIError {
	t.Helper()
	var apiErr *domain.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error %v is not *domain.APIError", err)
	}
	return apiErr
}

func ptr[T any](v T) *T { return &v }

func TestClient_Lists(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	posts, err := f.client.GetPosts(ctx)
	if err != nil {
		t.Fatalf("GetPosts() error = %v", err)
	}
	if len(posts) != api.PostsLimit {
		t.Errorf("len(posts) = %d, want %d", len(posts), api.PostsLimit)
	}

	users, err := f.client.GetUsers(ctx)
	if err != nil {
		t.Fatalf("GetUsers() error = %v", err)
	}
	if len(users) != api.UsersLimit {
		t.Errorf("len(users) = %d, want %d", len(users), api.UsersLimit)
	}
	if users[0].Name != "Leanne Graham" {
		t.Errorf("users[0].Name = %q", users[0].Name)
	}
}

func TestClient_CreateRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.client.CreatePost(ctx, api.NewPost{Title: "x", Body: "y", UserID: 1})
	if err != nil {
		t.Fatalf("CreatePost() error = %v", err)
	}
	if created.ID == 0 || created.Title != "x" || created.Body != "y" || created.UserID != 1 {
		t.Fatalf("CreatePost() = %+v", created)
	}

	got, err := f.client.GetPost(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetPost() error = %v", err)
	}
	if got != created {
		t.Errorf("GetPost() = %+v, want %+v", got, created)
	}
}

func TestClient_UpdatePatchDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	patched, err := f.client.PatchPost(ctx, 1, api.PostUpdate{Body: ptr("new body")})
	if err != nil {
		t.Fatalf("PatchPost() error = %v", err)
	}
	if patched.Body != "new body" || patched.Title == "" {
		t.Errorf("PatchPost() = %+v, want title kept", patched)
	}

	updated, err := f.client.UpdatePost(ctx, 1, api.PostUpdate{Title: ptr("t"), Body: ptr("b"), UserID: ptr(2)})
	if err != nil {
		t.Fatalf("UpdatePost() error = %v", err)
	}
	if updated != (api.Post{ID: 1, UserID: 2, Title: "t", Body: "b"}) {
		t.Errorf("UpdatePost() = %+v", updated)
	}

	if err := f.client.DeletePost(ctx, 1); err != nil {
		t.Fatalf("DeletePost() error = %v", err)
	}

	_, err = f.client.GetPost(ctx, 1)
	apiErr := asAPIError(t, err)
	if apiErr.Status != http.StatusNotFound || apiErr.Code != server.CodeNotFound {
		t.Errorf("GetPost(deleted) = %d %s", apiErr.Status, apiErr.Code)
	}
	if apiErr.Message != "post 1 not found" {
		t.Errorf("Message = %q", apiErr.Message)
	}
}

func TestClient_ValidationError(t *testing.T) {
	f := newFixture(t)

	_, err := f.client.CreatePost(context.Background(), api.NewPost{Body: "no title", UserID: 1})
	apiErr := asAPIError(t, err)

	if apiErr.Status != http.StatusBadRequest {
		t.Errorf("Status = %d, want 400", apiErr.Status)
	}
	if apiErr.Code != server.CodeValidation {
		t.Errorf("Code = %q, want %q", apiErr.Code, server.CodeValidation)
	}
	if apiErr.Message != "title is required" {
		t.Errorf("Message = %q", apiErr.Message)
	}
	if len(apiErr.Data) == 0 {
		t.Error("Data is empty, want raw body")
	}
}

func TestClient_Me(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_ = f.creds.SaveTokens(ctx, testToken, "")
	_ = f.creds.SaveUserInfo(ctx, credentials.UserInfo{ID: "3", Email: "Nathan@yesenia.net"})

	me, err := f.client.Me(ctx)
	if err != nil {
		t.Fatalf("Me() error = %v", err)
	}
	if me.ID != 3 || me.Username != "Samantha" {
		t.Errorf("Me() = %+v", me)
	}

	// A rejected token clears the stored credentials.
	_ = f.creds.SaveTokens(ctx, "revoked", "")
	_, err = f.client.Me(ctx)
	if apiErr := asAPIError(t, err); apiErr.Status != http.StatusUnauthorized {
		t.Fatalf("Me() status = %d, want 401", apiErr.Status)
	}
	if tok, _ := f.creds.AccessToken(ctx); tok != "" {
		t.Errorf("access token = %q after 401, want cleared", tok)
	}
	if _, ok, _ := f.creds.UserInfo(ctx); ok {
		t.Error("user info kept after 401")
	}
}

func TestClient_RecordedBackend(t *testing.T) {
	r, cleanup := testutil.NewVCRRecorder(t, "jsonplaceholder_posts")
	defer cleanup()

	p := pipeline.New("https://jsonplaceholder.typicode.com",
		pipeline.WithHTTPClient(testutil.VCRHTTPClient(r)))
	p.AddRequestInterceptor(interceptors.JSONHeaders())
	client := api.NewClient(p)
	ctx := context.Background()

	post, err := client.GetPost(ctx, 1)
	if err != nil {
		t.Fatalf("GetPost() error = %v", err)
	}
	if post.ID != 1 || post.UserID != 1 || post.Title == "" {
		t.Errorf("GetPost() = %+v", post)
	}

	created, err := client.CreatePost(ctx, api.NewPost{UserID: 1, Title: "foo", Body: "bar"})
	if err != nil {
		t.Fatalf("CreatePost() error = %v", err)
	}
	if created.ID != 101 || created.Title != "foo" {
		t.Errorf("CreatePost() = %+v", created)
	}

	if err := client.DeletePost(ctx, 1); err != nil {
		t.Fatalf("DeletePost() error = %v", err)
	}

	// An empty JSON object carries neither message nor code.
	_, err = client.GetPost(ctx, 99999)
	apiErr := asAPIError(t, err)
	if apiErr.Status != http.StatusNotFound || apiErr.Code != "HTTP_404" || apiErr.Message != "Not Found" {
		t.Errorf("GetPost(99999) = %d %q %q", apiErr.Status, apiErr.Code, apiErr.Message)
	}
	if string(apiErr.Data) != "{}" {
		t.Errorf("Data = %s, want {}", apiErr.Data)
	}
}
