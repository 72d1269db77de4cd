// Copyright 2026 The Relay Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package rest provides wire paths and error handling shared by the relay
// client and the key-hiding proxy.
package rest

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/relayproject/relay-go/loosejson"
	"github.com/relayproject/relay-go/relay"
)

// MakeSubmitTaskPath returns the path for submitting a new task.
func MakeSubmitTaskPath() string {
	return "/tasks"
}

// MakeGetTaskPath returns the path for polling a specific task.
func MakeGetTaskPath(taskID string) string {
	return "/tasks/" + taskID
}

// MakeUploadPath returns the path for the multipart asset upload.
func MakeUploadPath() string {
	return "/uploads"
}

// maxErrorBody bounds how much of an error response is read for diagnostics.
const maxErrorBody = 16 << 10

// diagnosticFields are probed, in order, in backend error bodies.
var diagnosticFields = []string{"detail", "error", "message"}

// ErrorDetail extracts a human-readable diagnostic from an error response
// body. A strict JSON parse is attempted first, then a loose parse; bodies
// that yield nothing usable are returned as trimmed text.
func ErrorDetail(body []byte) string {
	text := strings.TrimSpace(string(body))
	if text == "" {
		return ""
	}

	v := loosejson.Extract(text)
	if m, ok := v.(map[string]any); ok {
		for _, field := range diagnosticFields {
			if s, ok := m[field].(string); ok && s != "" {
				return s
			}
		}
	}
	if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
		return strings.TrimSpace(s)
	}
	return text
}

// ToRelayError maps a non-2xx HTTP response to a sentinel error, attaching
// whatever diagnostic the body carried. A 404 maps to
// [relay.ErrTaskNotFound]: the handle expired or never existed and polling
// it again can never succeed, unlike a transient 5xx.
func ToRelayError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	detail := ErrorDetail(body)

	var sentinel error
	switch {
	case resp.StatusCode == http.StatusNotFound:
		sentinel = relay.ErrTaskNotFound
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		sentinel = relay.ErrInvalidResponse
	default:
		sentinel = relay.ErrServerError
	}

	if detail == "" {
		return fmt.Errorf("HTTP %d: %w", resp.StatusCode, sentinel)
	}
	return fmt.Errorf("HTTP %d: %s: %w", resp.StatusCode, detail, sentinel)
}

// Problem is an RFC 7807 style error body returned by the proxy.
type Problem struct {
	Status int    `json:"status"`
	Title  string `json:"title"`
	Detail string `json:"detail,omitempty"`
}

// ToRESTError maps a client-side error to the HTTP status and problem body
// the proxy responds with.
func ToRESTError(err error) (int, Problem) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, relay.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, relay.ErrTaskNotFound):
		status = http.StatusNotFound
	case errors.Is(err, relay.ErrPollTimeout):
		status = http.StatusGatewayTimeout
	case errors.Is(err, relay.ErrInvalidResponse), errors.Is(err, relay.ErrServerError):
		status = http.StatusBadGateway
	}
	return status, Problem{
		Status: status,
		Title:  http.StatusText(status),
		Detail: err.Error(),
	}
}
