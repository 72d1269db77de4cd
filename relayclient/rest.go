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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"

	"github.com/relayproject/relay-go/internal/rest"
	"github.com/relayproject/relay-go/log"
	"github.com/relayproject/relay-go/relay"
)

// RESTTransport implements Transport using the backend's JSON-over-HTTP API.
type RESTTransport struct {
	url        string
	httpClient *http.Client
}

var _ Transport = (*RESTTransport)(nil)

// NewRESTTransport creates a new REST Transport for the agent backend.
// By default, an HTTP client with a 30-second timeout is used.
// For production deployments, provide a client with appropriate timeout
// and connection pooling configured for your requirements.
func NewRESTTransport(url string, client *http.Client) *RESTTransport {
	t := &RESTTransport{
		url:        url,
		httpClient: client,
	}

	if t.httpClient == nil {
		t.httpClient = &http.Client{
			Timeout: 30 * time.Second,
		}
	}
	return t
}

// sendRequest prepares the HTTP request and sends it to the backend.
// It returns the HTTP response with the Body OPEN.
// The caller is responsible for closing the response body.
func (t *RESTTransport) sendRequest(ctx context.Context, method string, params ServiceParams, path string, body io.Reader, contentType string) (*http.Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, method, t.url+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	httpReq.Header.Set("Accept", "application/json")

	for k, vals := range params {
		for _, v := range vals {
			httpReq.Header.Add(k, v)
		}
	}

	httpResp, err := t.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send HTTP request: %w", err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		defer func() {
			if err := httpResp.Body.Close(); err != nil {
				log.Error(ctx, "failed to close http response body", err)
			}
		}()
		return nil, rest.ToRelayError(httpResp)
	}

	return httpResp, nil
}

// doRequest issues one JSON request and decodes the JSON response.
func (t *RESTTransport) doRequest(ctx context.Context, method string, params ServiceParams, path string, payload any, result any) error {
	var body io.Reader
	contentType := ""
	if payload != nil {
		reqBody, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewBuffer(reqBody)
		contentType = "application/json"
	}

	resp, err := t.sendRequest(ctx, method, params, path, body, contentType)
	if err != nil {
		return err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Error(ctx, "failed to close http response body", err)
		}
	}()

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w: %w", err, relay.ErrInvalidResponse)
		}
	}
	return nil
}

// SubmitTask submits a message for asynchronous execution.
func (t *RESTTransport) SubmitTask(ctx context.Context, params ServiceParams, cc *relay.CallContext) (*relay.SubmitResponse, error) {
	var result relay.SubmitResponse
	if err := t.doRequest(ctx, http.MethodPost, params, rest.MakeSubmitTaskPath(), cc, &result); err != nil {
		return nil, err
	}
	if result.TaskID == "" {
		return nil, fmt.Errorf("submission returned no task id: %w", relay.ErrInvalidResponse)
	}
	return &result, nil
}

// GetTask retrieves the current status of a task.
func (t *RESTTransport) GetTask(ctx context.Context, params ServiceParams, id relay.TaskID) (*relay.TaskStatus, error) {
	var status relay.TaskStatus
	if err := t.doRequest(ctx, http.MethodGet, params, rest.MakeGetTaskPath(string(id)), nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// UploadAssets submits the provided files in one multipart request.
func (t *RESTTransport) UploadAssets(ctx context.Context, params ServiceParams, files []File) (*relay.UploadResult, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for _, f := range files {
		part, err := writer.CreatePart(filePartHeader(f))
		if err != nil {
			return nil, fmt.Errorf("failed to create multipart section for %q: %w", f.Name, err)
		}
		if _, err := io.Copy(part, f.Reader); err != nil {
			return nil, fmt.Errorf("failed to read file %q: %w", f.Name, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	resp, err := t.sendRequest(ctx, http.MethodPost, params, rest.MakeUploadPath(), body, writer.FormDataContentType())
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Error(ctx, "failed to close http response body", err)
		}
	}()

	var result relay.UploadResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode upload response: %w: %w", err, relay.ErrInvalidResponse)
	}
	return &result, nil
}

// Destroy closes the transport and releases resources.
func (t *RESTTransport) Destroy() error {
	// The default HTTP client doesn't need explicit cleanup.
	return nil
}

func filePartHeader(f File) textproto.MIMEHeader {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename=%q`, f.Name))
	if f.MediaType != "" {
		h.Set("Content-Type", f.MediaType)
	} else {
		h.Set("Content-Type", "application/octet-stream")
	}
	return h
}
