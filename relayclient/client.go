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

// Package relayclient drives the two-phase task protocol against an agent
// backend: submit a message, receive an opaque task handle, poll with
// capped exponential backoff until the task resolves, and normalize the
// unpredictable result payload into a stable shape.
package relayclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/relayproject/relay-go/loosejson"
	"github.com/relayproject/relay-go/relay"
)

// DefaultPollTimeout is the wall-clock ceiling applied to one Wait call
// when the Config does not specify one.
const DefaultPollTimeout = 2 * time.Minute

// Config exposes options for customizing [Client] behavior.
type Config struct {
	// PollBackoff determines sleep intervals between poll attempts.
	// Defaults to capped exponential backoff with a sub-second initial delay.
	PollBackoff RetryPolicy

	// PollTimeout is the wall-clock ceiling for a single Wait call,
	// independent of the attempt count. When it elapses while the backend
	// still reports processing, Wait returns a terminal timeout failure and
	// the caller may re-submit. Defaults to [DefaultPollTimeout].
	PollTimeout time.Duration
}

// Client represents a transport-agnostic implementation of the task
// protocol. The actual call is delegated to a [Transport] implementation.
// [CallInterceptor]-s are applied before and after every protocol call.
//
// A Client holds no per-task state: multiple submit/poll sequences may run
// concurrently, each owning its own handle and backoff counter.
type Client struct {
	config       Config
	transport    Transport
	interceptors []CallInterceptor
	baseURL      string
	httpClient   *http.Client
}

// Option represents a configuration for creating a [Client].
type Option interface {
	apply(c *Client)
}

type optionFn func(c *Client)

func (f optionFn) apply(c *Client) {
	f(c)
}

// WithConfig configures the [Client] with the provided [Config].
func WithConfig(cfg Config) Option {
	return optionFn(func(c *Client) {
		c.config = cfg
	})
}

// WithHTTPClient supplies the *http.Client used by the default REST
// transport. Ignored when a custom [Transport] is provided.
func WithHTTPClient(hc *http.Client) Option {
	return optionFn(func(c *Client) {
		c.httpClient = hc
	})
}

// WithTransport replaces the default REST transport.
func WithTransport(t Transport) Option {
	return optionFn(func(c *Client) {
		c.transport = t
	})
}

// WithCallInterceptors attaches call interceptors to the created [Client].
func WithCallInterceptors(interceptors ...CallInterceptor) Option {
	return optionFn(func(c *Client) {
		c.interceptors = append(c.interceptors, interceptors...)
	})
}

// WithAPIKey attaches an [APIKeyInterceptor] carrying the static backend
// credential under the default header.
func WithAPIKey(key string) Option {
	return WithCallInterceptors(&APIKeyInterceptor{Key: key})
}

// New creates a Client for the backend at baseURL, applying the provided
// options.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{baseURL: baseURL}
	for _, o := range opts {
		o.apply(c)
	}
	if c.config.PollBackoff == nil {
		c.config.PollBackoff = defaultPollBackoff
	}
	if c.config.PollTimeout <= 0 {
		c.config.PollTimeout = DefaultPollTimeout
	}
	if c.transport == nil {
		c.transport = NewRESTTransport(baseURL, c.httpClient)
	}
	return c
}

// AddCallInterceptor allows to attach a [CallInterceptor] to the client after creation.
func (c *Client) AddCallInterceptor(ci CallInterceptor) {
	c.interceptors = append(c.interceptors, ci)
}

// BaseURL returns the backend URL the client is connected to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Destroy closes the underlying transport and releases resources.
func (c *Client) Destroy() error {
	return c.transport.Destroy()
}

// Submission is the resolved handle returned from a successful Submit. It
// echoes the user and session identifiers, including generated defaults.
type Submission struct {
	TaskID    relay.TaskID
	UserID    string
	SessionID string
}

// TaskResult is the terminal outcome of a poll loop. Response is always
// non-nil and suitable for direct display, including on failure.
type TaskResult struct {
	// Response is the normalized result.
	Response *relay.NormalizedResponse

	// ModuleOutputs carries secondary artifacts extracted from the
	// payload envelope, when present.
	ModuleOutputs relay.ModuleOutputs

	// Raw is the completed payload exactly as the backend returned it.
	Raw string

	// LooseParsed reports that the strict JSON parse of the payload failed
	// and the loose extractor had to recover a value.
	LooseParsed bool
}

// Submit validates the call context and submits it for asynchronous
// execution. Contexts missing Message or AgentID are rejected without
// contacting the backend. UserID and SessionID defaults are generated
// before submission and echoed in the returned Submission.
func (c *Client) Submit(ctx context.Context, cc relay.CallContext) (*Submission, error) {
	if cc.Message == "" {
		return nil, relay.NewError(relay.ErrValidation, "message is required")
	}
	if cc.AgentID == "" {
		return nil, relay.NewError(relay.ErrValidation, "agent_id is required")
	}
	cc = cc.WithDefaults()

	resp, err := doCall(ctx, c, "SubmitTask", &cc, c.transport.SubmitTask)
	if err != nil {
		return nil, err
	}
	return &Submission{TaskID: resp.TaskID, UserID: cc.UserID, SessionID: cc.SessionID}, nil
}

// PollOnce issues a single poll request for the handle.
func (c *Client) PollOnce(ctx context.Context, id relay.TaskID) (*relay.TaskStatus, error) {
	return doCall(ctx, c, "GetTask", id, c.transport.GetTask)
}

// Wait polls the handle until it reaches a terminal state, the wall-clock
// ceiling elapses, or ctx is canceled. Polls are strictly sequential: each
// attempt waits for the prior response before sleeping and retrying.
//
// The returned TaskResult is always non-nil. A non-nil error reports the
// failure class (ErrTaskNotFound, ErrTaskFailed, ErrPollTimeout, transport
// errors); the TaskResult still carries a displayable error-shaped
// response in that case.
func (c *Client) Wait(ctx context.Context, id relay.TaskID) (*TaskResult, error) {
	start := time.Now()

	for attempt := 0; ; attempt++ {
		status, err := c.PollOnce(ctx, id)
		if err != nil {
			return failureResult(err.Error()), err
		}

		switch {
		case status.State == relay.TaskStateFailed:
			msg := status.Error
			if msg == "" {
				msg = relay.ErrTaskFailed.Error()
			}
			res := failureResult(msg)
			res.Raw = string(status.Response)
			return res, fmt.Errorf("%s: %w", msg, relay.ErrTaskFailed)

		case status.State == relay.TaskStateProcessing:
			if time.Since(start) >= c.config.PollTimeout {
				return failureResult(relay.TimeoutMessage), fmt.Errorf("task %s: %w", id, relay.ErrPollTimeout)
			}
			delay := c.config.PollBackoff.NextDelay(attempt)
			if remaining := c.config.PollTimeout - time.Since(start); delay > remaining {
				delay = remaining
			}
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return failureResult(ctx.Err().Error()), ctx.Err()
			}

		default:
			// Any other state with a payload is treated as completion.
			return completedResult(status), nil
		}
	}
}

// Send is a convenience wrapper combining Submit and Wait.
func (c *Client) Send(ctx context.Context, cc relay.CallContext) (*TaskResult, error) {
	sub, err := c.Submit(ctx, cc)
	if err != nil {
		return failureResult(err.Error()), err
	}
	return c.Wait(ctx, sub.TaskID)
}

// Upload submits the provided files in one multipart request. Partial
// failure is reported per file in the result; the client never retries.
func (c *Client) Upload(ctx context.Context, files []File) (*relay.UploadResult, error) {
	return doCall(ctx, c, "UploadAssets", files, c.transport.UploadAssets)
}

// completedResult unwraps a completed payload: strict JSON parse first,
// envelope extraction of response/module_outputs, then loose extraction
// for string-embedded JSON, then normalization.
func completedResult(status *relay.TaskStatus) *TaskResult {
	raw := status.Response
	res := &TaskResult{Raw: string(raw)}

	if len(raw) == 0 {
		res.Response = relay.Normalize(nil)
		return res
	}

	var candidate any
	if err := json.Unmarshal(raw, &candidate); err != nil {
		candidate = loosejson.Extract(string(raw))
		res.LooseParsed = true
	}

	if m, ok := candidate.(map[string]any); ok {
		if inner, has := m["response"]; has {
			if mo, ok := m["module_outputs"].(map[string]any); ok {
				res.ModuleOutputs = relay.ModuleOutputs(mo)
			}
			candidate = inner
		}
	}

	// A string candidate may itself embed JSON (double-encoded payloads or
	// prose-wrapped structures).
	if s, ok := candidate.(string); ok {
		if inner := loosejson.Extract(s); !isString(inner) {
			if !strictParses(s) {
				res.LooseParsed = true
			}
			candidate = inner
		}
	}

	res.Response = relay.Normalize(candidate)
	return res
}

func failureResult(msg string) *TaskResult {
	return &TaskResult{
		Response: &relay.NormalizedResponse{
			Status:  relay.StatusError,
			Result:  map[string]any{},
			Message: msg,
		},
	}
}

func isString(v any) bool {
	_, ok := v.(string)
	return ok
}

func strictParses(s string) bool {
	var v any
	return json.Unmarshal([]byte(s), &v) == nil
}

// doCall routes one protocol call through the attached interceptors.
func doCall[Req any, Resp any](
	ctx context.Context, c *Client, method string, req Req,
	transportCall func(context.Context, ServiceParams, Req) (Resp, error),
) (Resp, error) {
	request := Request{
		Method:        method,
		BaseURL:       c.baseURL,
		ServiceParams: make(ServiceParams),
		Payload:       req,
	}

	var zero Resp
	for _, interceptor := range c.interceptors {
		if err := interceptor.Before(ctx, &request); err != nil {
			return zero, err
		}
	}

	resp, err := transportCall(ctx, request.ServiceParams, req)

	response := Response{
		Method:        method,
		BaseURL:       c.baseURL,
		ServiceParams: request.ServiceParams,
		Payload:       resp,
		Err:           err,
	}
	for i := len(c.interceptors) - 1; i >= 0; i-- {
		if afterErr := c.interceptors[i].After(ctx, &response); afterErr != nil {
			return zero, afterErr
		}
	}

	return resp, err
}
