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

// Package relay defines the core types of the agent task protocol: the
// submission context, the opaque task handle, poll statuses and the
// normalized response shape every caller receives regardless of how the
// agent backend structures its payloads.
package relay

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// TaskID is an opaque identifier issued by the backend when a message is
// submitted. It carries no semantics beyond identity and is discarded once
// the task reaches a terminal state.
type TaskID string

// TaskState defines a set of possible task states reported by the backend.
type TaskState string

const (
	// TaskStateUnspecified represents a missing TaskState value.
	TaskStateUnspecified TaskState = ""
	// TaskStateProcessing means the backend is still executing the task.
	TaskStateProcessing TaskState = "processing"
	// TaskStateCompleted means the task finished and a result payload is available.
	TaskStateCompleted TaskState = "completed"
	// TaskStateFailed means the task failed during execution.
	TaskStateFailed TaskState = "failed"
)

// Terminal returns true for states in which a task becomes immutable, i.e.
// no further polling can change the outcome.
func (ts TaskState) Terminal() bool {
	return ts == TaskStateCompleted || ts == TaskStateFailed
}

// AssetID identifies a previously uploaded asset that can be referenced by
// a subsequent task submission.
type AssetID string

// CallContext describes a single message submission. It is immutable once
// submitted; UserID and SessionID are generated when absent so that
// concurrent unrelated calls never collide.
type CallContext struct {
	// Message is the user text sent to the agent. Required.
	Message string `json:"message"`

	// AgentID identifies the agent configuration executing the task. Required.
	AgentID string `json:"agent_id"`

	// UserID identifies the calling user. Generated if empty.
	UserID string `json:"user_id,omitempty"`

	// SessionID groups related interactions. Generated if empty, scoped to AgentID.
	SessionID string `json:"session_id,omitempty"`

	// Assets is an ordered sequence of uploaded asset identifiers attached to the call.
	Assets []AssetID `json:"assets,omitempty"`
}

// WithDefaults returns a copy of the context with UserID and SessionID
// populated when they were left empty.
func (c CallContext) WithDefaults() CallContext {
	if c.UserID == "" {
		c.UserID = NewUserID()
	}
	if c.SessionID == "" {
		c.SessionID = NewSessionID(c.AgentID)
	}
	return c
}

// NewUserID generates a new random user identifier.
func NewUserID() string {
	return newUUIDString()
}

// NewSessionID generates a new random session identifier scoped to the
// provided agent.
func NewSessionID(agentID string) string {
	if agentID == "" {
		return newUUIDString()
	}
	return agentID + "-" + newUUIDString()
}

// Time-based UUID keeps generated ids roughly sortable by creation time.
func newUUIDString() string {
	return uuid.Must(uuid.NewV7()).String()
}

// SubmitResponse is the backend reply to a successful submission.
type SubmitResponse struct {
	// TaskID is the handle used to poll for completion.
	TaskID TaskID `json:"task_id"`
}

// TaskStatus is the wire shape returned by the poll endpoint.
type TaskStatus struct {
	// State is the backend-reported lifecycle state.
	State TaskState `json:"status"`

	// Response carries the raw result payload once the task completed.
	// Its shape is unpredictable across agent configurations.
	Response json.RawMessage `json:"response,omitempty"`

	// Error is the backend-provided failure text for failed tasks.
	Error string `json:"error,omitempty"`
}

// ResponseStatus is the binary outcome carried by a NormalizedResponse.
type ResponseStatus string

const (
	// StatusSuccess marks a displayable result, including partial or
	// unexpected data. The protocol is biased towards showing data.
	StatusSuccess ResponseStatus = "success"
	// StatusError marks a payload that explicitly signaled an error or was
	// empty/unparseable.
	StatusError ResponseStatus = "error"
)

// NormalizedResponse is the stable contract returned to every caller
// regardless of backend payload shape.
type NormalizedResponse struct {
	// Status is success unless the payload explicitly signaled an error or
	// was empty.
	Status ResponseStatus `json:"status"`

	// Result preserves whatever the agent returned, keyed by field name.
	Result map[string]any `json:"result"`

	// Message is an optional human-readable string derived for display.
	Message string `json:"message,omitempty"`

	// Metadata is an open mapping for agent name, timestamps and similar.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// ModuleOutputs carries secondary artifacts (e.g. generated files) returned
// alongside the primary result, keyed by the producing module name.
type ModuleOutputs map[string]any

// FileUploadStatus reports the per-file outcome of an upload request.
type FileUploadStatus struct {
	Filename string  `json:"filename"`
	Success  bool    `json:"success"`
	AssetID  AssetID `json:"asset_id,omitempty"`
	Error    string  `json:"error,omitempty"`
}

// UploadResult is the backend reply to a multipart upload. Partial failure
/// is expressed per file: SuccessfulUploads plus FailedUploads always equals
// TotalFiles.
type UploadResult struct {
	Success           bool               `json:"success"`
	AssetIDs          []AssetID          `json:"asset_ids"`
	Files             []FileUploadStatus `json:"files"`
	TotalFiles        int                `json:"total_files"`
	SuccessfulUploads int                `json:"successful_uploads"`
	FailedUploads     int                `json:"failed_uploads"`
	Message           string             `json:"message,omitempty"`
	Timestamp         time.Time          `json:"timestamp"`
}

// ErrorKind classifies a failure for out-of-band remediation.
type ErrorKind string

const (
	// ErrorKindReact marks a rendering failure reported by an embedded UI.
	ErrorKindReact ErrorKind = "react_error"
	// ErrorKindAPI marks a failure the backend itself declared.
	ErrorKindAPI ErrorKind = "api_error"
	// ErrorKindParse marks a payload that arrived but could not be cleanly
	// interpreted even though the raw bytes suggest data was present.
	ErrorKindParse ErrorKind = "parse_error"
	// ErrorKindNetwork marks a transport-level failure.
	ErrorKindNetwork ErrorKind = "network_error"
	// ErrorKindUnknown marks a failure that fits no other kind.
	ErrorKindUnknown ErrorKind = "unknown"
)

// ErrorRecord captures a classified failure at the point of detection. It
// may be forwarded to a hosting environment and is never persisted.
type ErrorRecord struct {
	Kind           ErrorKind `json:"kind"`
	Message        string    `json:"message"`
	RawResponse    string    `json:"rawResponse,omitempty"`
	Endpoint       string    `json:"endpoint,omitempty"`
	Stack          string    `json:"stack,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
	OriginatingURL string    `json:"originatingUrl,omitempty"`
	UserAgent      string    `json:"userAgent,omitempty"`
}
