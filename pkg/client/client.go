// Package client provides the public API for embedding the API client.
// This is the stable API for external consumers.
package client

import (
	"github.com/tjfontaine/mobile-api-client/internal/api"
	"github.com/tjfontaine/mobile-api-client/internal/core/domain"
	"github.com/tjfontaine/mobile-api-client/internal/errinfo"
	"github.com/tjfontaine/mobile-api-client/internal/runtime"
)

// App bundles the pipeline, typed API client, credentials and session.
// See internal/runtime.App for full documentation.
type App = runtime.App

// Option is a functional option for configuring an App.
type Option = runtime.Option

// New creates a new App with the given options.
// Example:
//
//	app, err := client.New(
//	    client.WithConfigFile("config.yaml"),
//	)
//	defer app.Close()
//	posts, err := app.API.GetPosts(ctx)
var New = runtime.New

// Configuration options
var (
	WithConfigFile  = runtime.WithConfigFile
	WithConfig      = runtime.WithConfig
	WithLogger      = runtime.WithLogger
	WithHTTPClient  = runtime.WithHTTPClient
	WithSecureStore = runtime.WithSecureStore
	WithStateStore  = runtime.WithStateStore
	WithRegistry    = runtime.WithRegistry
	WithRefresher   = runtime.WithRefresher
)

// Resource types returned by the typed client.
type (
	Post       = api.Post
	NewPost    = api.NewPost
	PostUpdate = api.PostUpdate
	User       = api.User
)

// APIError is the single error type every failed call returns.
type APIError = domain.APIError

// ErrorInfo is the user-facing rendering of an error.
type ErrorInfo = errinfo.Info

// DescribeError maps any error to a title, message and suggested action.
var DescribeError = errinfo.FromError
