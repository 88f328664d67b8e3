// Package pipeline provides the HTTP request pipeline used by every API call.
//
// A Pipeline layers per-attempt timeouts, retry with exponential backoff,
// pluggable interceptor chains and typed error normalization over a plain
// *http.Client.
//
// # Lifecycle of a call
//
//	Building -> Intercepting(request) -> Attempting(n)
//	         -> [Retrying -> Attempting(n+1)]
//	         -> Intercepting(response) -> Classifying
//	         -> Success | Intercepting(error) -> Failed
//
// Request interceptors run in registration order, each receiving the previous
// interceptor's descriptor. Every attempt is bounded by the descriptor's
// Timeout; timeouts and transport failures are retried up to Retries more
// times, waiting BackoffBase*2^i between attempts. HTTP error responses are
// never retried here.
//
// # Failures
//
// Every failure leaves the pipeline as a *domain.APIError:
//
//	TIMEOUT         status 408, attempt exceeded its budget
//	NETWORK_ERROR   no status, failure before a response
//	<body code>     non-2xx response with a structured error body
//	HTTP_<status>   non-2xx response without one
//	DECODE_ERROR    2xx response whose body did not decode
//
// Error interceptors run exactly once per failed call, after classification.
// Their own errors and panics are logged and swallowed.
package pipeline
