package pipeline

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/tjfontaine/mobile-api-client/internal/core/domain"
)

// errorBody is the structured error shape the backend may return.
// error and code are kept raw because some servers send non-string values.
type errorBody struct {
	Message string          `json:"message"`
	Error   json.RawMessage `json:"error"`
	Code    json.RawMessage `json:"code"`
}

// classifyHTTPError builds the APIError for a non-2xx response.
func classifyHTTPError(resp *domain.RawResponse) *domain.APIError {
	statusText := resp.Status
	if statusText == "" {
		statusText = http.StatusText(resp.StatusCode)
	}

	body, ok := parseErrorBody(resp.Body)
	if !ok {
		return domain.NewAPIError(statusText).
			WithStatus(resp.StatusCode).
			WithCode(domain.HTTPCode(resp.StatusCode))
	}

	msg := body.Message
	if msg == "" {
		msg = rawString(body.Error)
	}
	if msg == "" {
		msg = statusText
	}

	code := rawString(body.Code)
	if code == "" {
		code = domain.HTTPCode(resp.StatusCode)
	}

	return domain.NewAPIError(msg).
		WithStatus(resp.StatusCode).
		WithCode(code).
		WithData(json.RawMessage(bytes.Clone(resp.Body)))
}

// parseErrorBody decodes a JSON object error body. Anything else (empty,
// HTML, arrays, scalars) is reported as unparseable.
func parseErrorBody(data []byte) (errorBody, bool) {
	var body errorBody
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return body, false
	}
	if err := json.Unmarshal(trimmed, &body); err != nil {
		return body, false
	}
	return body, true
}

// rawString renders a raw JSON string or number as text.
func rawString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

// decodeBody decodes a successful response into out.
// A nil out or a 204 response skips decoding.
func decodeBody(resp *domain.RawResponse, out any) *domain.APIError {
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return domain.ErrDecode(resp.StatusCode, err)
	}
	return nil
}

// statusText strips the numeric prefix from an http.Response status line.
func statusText(resp *http.Response) string {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	return text
}
