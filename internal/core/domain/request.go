// Package domain holds the value types shared by the request pipeline, its
// interceptors and its callers.
package domain

import (
	"bytes"
	"net/http"
	"time"
)

// Descriptor describes a single logical request. It is built fresh for every
// call; interceptors receive a copy and return a possibly modified one.
type Descriptor struct {
	Method string
	Path   string

	// Header keys are canonicalized, so lookups are case-insensitive.
	Header http.Header

	// Body is the already serialized request body, or nil.
	Body []byte

	// Timeout bounds each attempt independently.
	Timeout time.Duration

	// Retries is the number of additional attempts after the first.
	Retries int
}

// Clone returns a deep copy of the descriptor.
func (d Descriptor) Clone() Descriptor {
	out := d
	if d.Header != nil {
		out.Header = d.Header.Clone()
	} else {
		out.Header = make(http.Header)
	}
	if d.Body != nil {
		out.Body = bytes.Clone(d.Body)
	}
	return out
}

// WithHeader returns a copy of the descriptor with key set to value.
func (d Descriptor) WithHeader(key, value string) Descriptor {
	out := d.Clone()
	out.Header.Set(key, value)
	return out
}

// RawResponse is a fully read HTTP response.
type RawResponse struct {
	StatusCode int
	// Status is the status text without the numeric code, e.g. "Not Found".
	Status   string
	Header   http.Header
	Body     []byte
	URL      string
	Duration time.Duration
}

// OK reports whether the status is in the 2xx range.
func (r *RawResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}
