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

package relayclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/relayproject/relay-go/relay"
)

// fastPoll keeps test poll loops tight.
var fastPoll = Config{
	PollBackoff: &ExponentialBackoff{BaseDelay: time.Millisecond, Factor: 1.5, MaxDelay: 5 * time.Millisecond},
	PollTimeout: time.Second,
}

func newTestClient(t *testing.T, handler http.Handler, opts ...Option) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	opts = append([]Option{WithConfig(fastPoll)}, opts...)
	return New(server.URL, opts...)
}

func TestSubmitRejectsIncompleteContext(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))

	tests := []struct {
		name string
		cc   relay.CallContext
	}{
		{name: "missing message", cc: relay.CallContext{AgentID: "A1"}},
		{name: "missing agent id", cc: relay.CallContext{Message: "hi"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := client.Submit(context.Background(), tc.cc)
			if !errors.Is(err, relay.ErrValidation) {
				t.Fatalf("Submit() error = %v, want ErrValidation", err)
			}
		})
	}
	if got := calls.Load(); got != 0 {
		t.Errorf("validation failures reached the backend: %d requests", got)
	}
}

func TestSubmitGeneratesIdentifiers(t *testing.T) {
	var received relay.CallContext
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/tasks" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decoding submit body: %v", err)
		}
		writeJSON(w, map[string]string{"task_id": "task-1"})
	}))

	sub, err := client.Submit(context.Background(), relay.CallContext{Message: "hi", AgentID: "A1"})
	if err != nil {
		t.Fatalf("Submit() returned unexpected error: %v", err)
	}
	if sub.TaskID != "task-1" {
		t.Errorf("Submit() TaskID = %q, want %q", sub.TaskID, "task-1")
	}
	if sub.UserID == "" || sub.SessionID == "" {
		t.Errorf("Submit() did not resolve identifiers: %+v", sub)
	}
	if received.UserID != sub.UserID || received.SessionID != sub.SessionID {
		t.Errorf("wire identifiers %q/%q do not match resolved %q/%q",
			received.UserID, received.SessionID, sub.UserID, sub.SessionID)
	}
}

func TestSendCompletesAfterProcessing(t *testing.T) {
	var polls atomic.Int32
	client := newTestClient(t, taskHandler(t, func(w http.ResponseWriter) {
		if polls.Add(1) < 3 {
			writeJSON(w, map[string]any{"status": "processing"})
			return
		}
		writeJSON(w, map[string]any{
			"status":   "completed",
			"response": map[string]any{"status": "success", "result": map[string]any{"text": "Hello back"}},
		})
	}))

	got, err := client.Send(context.Background(), relay.CallContext{Message: "Hello", AgentID: "A1"})
	if err != nil {
		t.Fatalf("Send() returned unexpected error: %v", err)
	}
	want := &relay.NormalizedResponse{
		Status:  relay.StatusSuccess,
		Result:  map[string]any{"text": "Hello back"},
		Message: "Hello back",
	}
	if diff := cmp.Diff(want, got.Response); diff != "" {
		t.Errorf("Send() response mismatch (-want +got):\n%s", diff)
	}
	if got.LooseParsed {
		t.Error("Send() flagged a well-formed payload as loosely parsed")
	}
	if polls.Load() != 3 {
		t.Errorf("Send() issued %d polls, want 3", polls.Load())
	}
}

func TestWaitReportsBackendFailure(t *testing.T) {
	client := newTestClient(t, taskHandler(t, func(w http.ResponseWriter) {
		writeJSON(w, map[string]any{"status": "failed", "error": "model overloaded"})
	}))

	got, err := client.Wait(context.Background(), "task-1")
	if !errors.Is(err, relay.ErrTaskFailed) {
		t.Fatalf("Wait() error = %v, want ErrTaskFailed", err)
	}
	want := &relay.NormalizedResponse{
		Status:  relay.StatusError,
		Result:  map[string]any{},
		Message: "model overloaded",
	}
	if diff := cmp.Diff(want, got.Response); diff != "" {
		t.Errorf("Wait() failure response mismatch (-want +got):\n%s", diff)
	}
}

func TestWaitRecoversEmbeddedJSON(t *testing.T) {
	// The result payload is a string that wraps JSON in a fenced block, as
	// language models often produce.
	client := newTestClient(t, taskHandler(t, func(w http.ResponseWriter) {
		writeJSON(w, map[string]any{
			"status":   "completed",
			"response": "Here you go:\n```json\n{\"result\": {\"answer\": \"42\"}}\n```",
		})
	}))

	got, err := client.Wait(context.Background(), "task-1")
	if err != nil {
		t.Fatalf("Wait() returned unexpected error: %v", err)
	}
	if !got.LooseParsed {
		t.Error("Wait() did not flag the loosely extracted payload")
	}
	if diff := cmp.Diff(map[string]any{"answer": "42"}, got.Response.Result); diff != "" {
		t.Errorf("Wait() result mismatch (-want +got):\n%s", diff)
	}
	if got.Response.Message != "42" {
		t.Errorf("Wait() message = %q, want %q", got.Response.Message, "42")
	}
}

func TestWaitUnwrapsEnvelope(t *testing.T) {
	client := newTestClient(t, taskHandler(t, func(w http.ResponseWriter) {
		writeJSON(w, map[string]any{
			"status": "completed",
			"response": map[string]any{
				"response":       map[string]any{"status": "success", "message": "done"},
				"module_outputs": map[string]any{"report": "r.pdf"},
			},
		})
	}))

	got, err := client.Wait(context.Background(), "task-1")
	if err != nil {
		t.Fatalf("Wait() returned unexpected error: %v", err)
	}
	if got.Response.Message != "done" {
		t.Errorf("Wait() message = %q, want %q", got.Response.Message, "done")
	}
	if diff := cmp.Diff(relay.ModuleOutputs{"report": "r.pdf"}, got.ModuleOutputs); diff != "" {
		t.Errorf("Wait() module outputs mismatch (-want +got):\n%s", diff)
	}
}

func TestWaitStopsOnUnknownTask(t *testing.T) {
	var polls atomic.Int32
	client := newTestClient(t, taskHandler(t, func(w http.ResponseWriter) {
		polls.Add(1)
		w.WriteHeader(http.StatusNotFound)
		writeJSON(w, map[string]string{"detail": "task not found"})
	}))

	got, err := client.Wait(context.Background(), "gone")
	if !errors.Is(err, relay.ErrTaskNotFound) {
		t.Fatalf("Wait() error = %v, want ErrTaskNotFound", err)
	}
	if got == nil || got.Response.Status != relay.StatusError {
		t.Errorf("Wait() did not produce an error-shaped response: %+v", got)
	}
	if polls.Load() != 1 {
		t.Errorf("Wait() retried an unknown task: %d polls", polls.Load())
	}
}

func TestWaitTimesOut(t *testing.T) {
	var polls atomic.Int32
	client := newTestClient(t, taskHandler(t, func(w http.ResponseWriter) {
		polls.Add(1)
		writeJSON(w, map[string]any{"status": "processing"})
	}), WithConfig(Config{
		PollBackoff: &ExponentialBackoff{BaseDelay: 5 * time.Millisecond, Factor: 2, MaxDelay: 20 * time.Millisecond},
		PollTimeout: 30 * time.Millisecond,
	}))

	got, err := client.Wait(context.Background(), "task-1")
	if !errors.Is(err, relay.ErrPollTimeout) {
		t.Fatalf("Wait() error = %v, want ErrPollTimeout", err)
	}
	if got.Response.Message != relay.TimeoutMessage {
		t.Errorf("Wait() message = %q, want the fixed timeout text", got.Response.Message)
	}

	// No further requests may be issued once the ceiling elapsed.
	settled := polls.Load()
	time.Sleep(50 * time.Millisecond)
	if polls.Load() != settled {
		t.Errorf("Wait() kept polling after timeout: %d -> %d", settled, polls.Load())
	}
}

func TestWaitHonorsContextCancellation(t *testing.T) {
	client := newTestClient(t, taskHandler(t, func(w http.ResponseWriter) {
		writeJSON(w, map[string]any{"status": "processing"})
	}))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := client.Wait(ctx, "task-1")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Wait() error = %v, want context.Canceled", err)
	}
}

func TestWaitTreatsEmptyPayloadAsError(t *testing.T) {
	client := newTestClient(t, taskHandler(t, func(w http.ResponseWriter) {
		writeJSON(w, map[string]any{"status": "completed", "response": ""})
	}))

	got, err := client.Wait(context.Background(), "task-1")
	if err != nil {
		t.Fatalf("Wait() returned unexpected error: %v", err)
	}
	if got.Response.Status != relay.StatusError {
		t.Errorf("Wait() status = %q, want error", got.Response.Status)
	}
	if got.Response.Message != relay.EmptyResponseMessage {
		t.Errorf("Wait() message = %q, want %q", got.Response.Message, relay.EmptyResponseMessage)
	}
}

func TestAPIKeyHeaderInjection(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get(DefaultAPIKeyHeader); got != "secret" {
			t.Errorf("request carried API key %q, want %q", got, "secret")
		}
		writeJSON(w, map[string]string{"task_id": "task-1"})
	}), WithAPIKey("secret"))

	if _, err := client.Submit(context.Background(), relay.CallContext{Message: "hi", AgentID: "A1"}); err != nil {
		t.Fatalf("Submit() returned unexpected error: %v", err)
	}
}

func TestInterceptorBeforeFailureBlocksCall(t *testing.T) {
	var calls atomic.Int32
	blocked := errors.New("credentials rejected")
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}), WithCallInterceptors(&failingInterceptor{err: blocked}))

	_, err := client.Submit(context.Background(), relay.CallContext{Message: "hi", AgentID: "A1"})
	if !errors.Is(err, blocked) {
		t.Fatalf("Submit() error = %v, want the interceptor failure", err)
	}
	if calls.Load() != 0 {
		t.Errorf("blocked call still reached the backend: %d requests", calls.Load())
	}
}

type failingInterceptor struct {
	PassthroughInterceptor
	err error
}

func (f *failingInterceptor) Before(ctx context.Context, req *Request) error {
	return f.err
}

// taskHandler serves submit and poll endpoints, delegating poll responses
// to the provided function.
func taskHandler(t *testing.T, poll func(w http.ResponseWriter)) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/tasks":
			writeJSON(w, map[string]string{"task_id": "task-1"})
		case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/tasks/"):
			poll(w)
		default:
			http.NotFound(w, r)
		}
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		panic(fmt.Sprintf("encoding test response: %v", err))
	}
}
