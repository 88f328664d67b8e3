// Package interceptors provides the stock request, response and error
// interceptors installed on a pipeline: JSON headers, bearer credentials,
// request ids, client-side rate limiting, logging, 401 handling and metrics.
package interceptors
