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

package rest

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/relayproject/relay-go/relay"
)

func TestErrorDetail(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"detail field", `{"detail": "task queue full"}`, "task queue full"},
		{"error field", `{"error": "model overloaded"}`, "model overloaded"},
		{"message field", `{"message": "try later"}`, "try later"},
		{"detail wins over error", `{"detail": "a", "error": "b"}`, "a"},
		{"loose parse fallback", "Something broke: {'error': 'bad gateway'}", "bad gateway"},
		{"plain text body", "upstream unavailable", "upstream unavailable"},
		{"empty body", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ErrorDetail([]byte(tt.body)); got != tt.want {
				t.Errorf("ErrorDetail(%q) = %q, want %q", tt.body, got, tt.want)
			}
		})
	}
}

func TestToRelayError(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		body         string
		wantSentinel error
		wantInMsg    string
	}{
		{"404 is task not found", http.StatusNotFound, `{"detail": "unknown task"}`, relay.ErrTaskNotFound, "unknown task"},
		{"400 is invalid request", http.StatusBadRequest, `{"error": "agent_id required"}`, relay.ErrInvalidResponse, "agent_id required"},
		{"500 is server error", http.StatusInternalServerError, "", relay.ErrServerError, "HTTP 500"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &http.Response{
				StatusCode: tt.status,
				Body:       io.NopCloser(strings.NewReader(tt.body)),
			}
			err := ToRelayError(resp)
			if !errors.Is(err, tt.wantSentinel) {
				t.Errorf("got %v, want sentinel %v", err, tt.wantSentinel)
			}
			if !strings.Contains(err.Error(), tt.wantInMsg) {
				t.Errorf("error %q does not mention %q", err.Error(), tt.wantInMsg)
			}
		})
	}
}

func TestToRESTError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"validation", relay.NewError(relay.ErrValidation, "message is required"), http.StatusBadRequest},
		{"task not found", relay.ErrTaskNotFound, http.StatusNotFound},
		{"poll timeout", relay.ErrPollTimeout, http.StatusGatewayTimeout},
		{"upstream failure", relay.ErrServerError, http.StatusBadGateway},
		{"unclassified", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, problem := ToRESTError(tt.err)
			if status != tt.wantStatus {
				t.Errorf("status = %d, want %d", status, tt.wantStatus)
			}
			if problem.Status != status || problem.Title == "" || problem.Detail == "" {
				t.Errorf("incomplete problem body: %+v", problem)
			}
		})
	}
}
