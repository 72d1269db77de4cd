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
	"io"

	"github.com/relayproject/relay-go/relay"
)

// Transport defines a wire-agnostic interface for talking to the agent
// backend. Implementations translate between relay core types and the
// backend's wire format.
type Transport interface {
	// SubmitTask submits a message for asynchronous execution and returns
	// the opaque task handle.
	SubmitTask(context.Context, ServiceParams, *relay.CallContext) (*relay.SubmitResponse, error)

	// GetTask polls the current status of a task.
	GetTask(context.Context, ServiceParams, relay.TaskID) (*relay.TaskStatus, error)

	// UploadAssets submits files in one multipart request and returns the
	// per-file outcome.
	UploadAssets(context.Context, ServiceParams, []File) (*relay.UploadResult, error)

	// Destroy cleans up resources associated with the transport.
	Destroy() error
}

// File is a single upload entry.
type File struct {
	// Name is the filename reported to the backend.
	Name string
	// MediaType is the content type of the file; optional.
	MediaType string
	// Reader supplies the file bytes.
	Reader io.Reader
}
