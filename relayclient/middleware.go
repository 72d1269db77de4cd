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
	"slices"
	"strings"
)

// ServiceParams holds horizontally applicable parameters with
// case-insensitive keys. The REST transport serializes them as HTTP
// headers.
type ServiceParams map[string][]string

// Get performs case-insensitive lookup of the provided key. Returns nil if
// the value is not present.
func (m ServiceParams) Get(key string) []string {
	return m[strings.ToLower(key)]
}

// Append appends the provided values to the list of values associated with
// the key. Duplicate values will not be added. Key matching is
// case-insensitive.
func (m ServiceParams) Append(key string, vals ...string) {
	result := m.Get(key)
	for _, v := range vals {
		if slices.Contains(result, v) {
			continue
		}
		result = append(result, v)
	}
	m[strings.ToLower(key)] = result
}

// Set replaces the values associated with the key. Key matching is
// case-insensitive.
func (m ServiceParams) Set(key string, vals ...string) {
	m[strings.ToLower(key)] = vals
}

// Request represents a transport-agnostic request to be sent to the agent
// backend.
type Request struct {
	// Method is the name of the protocol method being invoked.
	Method string
	// BaseURL is the URL of the backend the client is connected to.
	BaseURL string
	// ServiceParams holds parameters attached to the outgoing call.
	ServiceParams ServiceParams
	// Payload is the request payload; nil for methods without parameters.
	Payload any
}

// Response represents a transport-agnostic result received from the agent
// backend.
type Response struct {
	// Method is the name of the protocol method that was invoked.
	Method string
	// BaseURL is the URL of the backend the client is connected to.
	BaseURL string
	// Err is the error outcome. It is nil for successful invocations.
	Err error
	// ServiceParams holds parameters that were attached to the call.
	ServiceParams ServiceParams
	// Payload is the response value; nil when Err is set.
	Payload any
}

// CallInterceptor can be attached to a [Client].
// If multiple interceptors are added:
//   - Before will be executed in the order of attachment sequentially.
//   - After will be executed in the reverse order sequentially.
type CallInterceptor interface {
	// Before allows to observe or modify a Request before it is sent.
	// Returning an error aborts the call without a network request.
	Before(ctx context.Context, req *Request) error

	// After allows to observe a Response.
	After(ctx context.Context, resp *Response) error
}

// PassthroughInterceptor can be embedded by [CallInterceptor] implementers
// who don't need all methods.
type PassthroughInterceptor struct{}

var _ CallInterceptor = (*PassthroughInterceptor)(nil)

// Before implements the [CallInterceptor].
func (PassthroughInterceptor) Before(ctx context.Context, req *Request) error {
	return nil
}

// After implements the [CallInterceptor].
func (PassthroughInterceptor) After(ctx context.Context, resp *Response) error {
	return nil
}

// DefaultAPIKeyHeader is the header used to carry the backend API key when
// no custom header name is configured.
const DefaultAPIKeyHeader = "x-api-key"

// APIKeyInterceptor implements [CallInterceptor]. It attaches a static API
// key to every outgoing call.
type APIKeyInterceptor struct {
	PassthroughInterceptor

	// Header is the header name carrying the key; defaults to
	// [DefaultAPIKeyHeader].
	Header string
	// Key is the credential value.
	Key string
}

var _ CallInterceptor = (*APIKeyInterceptor)(nil)

// Before implements the [CallInterceptor] interface.
func (ai *APIKeyInterceptor) Before(ctx context.Context, req *Request) error {
	if ai.Key == "" {
		return nil
	}
	header := ai.Header
	if header == "" {
		header = DefaultAPIKeyHeader
	}
	req.ServiceParams.Set(header, ai.Key)
	return nil
}
