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

package relay

import "errors"

var (
	// ErrValidation indicates the caller omitted a required field. The
	// request is rejected before any network call is made.
	ErrValidation = errors.New("missing required field")

	// ErrTaskNotFound indicates that a task with the provided ID was not
	// found, typically because the handle expired on the backend. Polling
	// must not be retried for this error.
	ErrTaskNotFound = errors.New("task not found")

	// ErrTaskFailed indicates the backend declared the task failed.
	ErrTaskFailed = errors.New("task failed")

	// ErrPollTimeout indicates the wall-clock polling ceiling elapsed while
	// the backend still reported the task as processing.
	ErrPollTimeout = errors.New("polling timed out")

	// ErrServerError is reserved for backend failures without a more
	// specific classification.
	ErrServerError = errors.New("server error")

	// ErrInvalidResponse indicates the backend returned a payload that does
	// not conform to the protocol wire shapes.
	ErrInvalidResponse = errors.New("invalid backend response")
)

// TimeoutMessage is the fixed display text carried by the error-shaped
// response a poll loop returns when its wall-clock ceiling elapses.
const TimeoutMessage = "The request timed out while waiting for the agent to respond. Please try again."

// EmptyResponseMessage is the fixed display text used when a completed task
// carried no payload at all.
const EmptyResponseMessage = "Empty response from agent"

// Error provides control over the message and details surfaced to callers.
type Error struct {
	// Err is the underlying sentinel error used for classification.
	Err error
	// Message is a human-readable description suitable for direct display.
	Message string
	// Details can contain additional structured information about the error.
	Details map[string]any
}

// Error returns the error message.
func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "internal error"
}

// Unwrap provides access to the error cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new Error wrapping the provided sentinel with a custom message.
func NewError(err error, message string) *Error {
	return &Error{Err: err, Message: message}
}

// WithDetails attaches structured data to the error.
func (e *Error) WithDetails(details map[string]any) *Error {
	e.Details = details
	return e
}
