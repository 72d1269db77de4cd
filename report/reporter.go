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

package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/relayproject/relay-go/log"
	"github.com/relayproject/relay-go/relay"
)

const (
	// MessageTypeError tags a plain error notification.
	MessageTypeError = "CHILD_APP_ERROR"
	// MessageTypeFixRequest tags a notification that asks the host to
	// attempt an automated repair.
	MessageTypeFixRequest = "FIX_ERROR_REQUEST"
)

// DefaultSource identifies this application in forwarded messages.
const DefaultSource = "relay-child-app"

// Message is the envelope forwarded to the hosting environment.
type Message struct {
	Type    string             `json:"type"`
	Source  string             `json:"source"`
	Payload *relay.ErrorRecord `json:"payload"`
	// Prompt carries remediation instructions for fix requests.
	Prompt string `json:"prompt,omitempty"`
}

// Sink receives forwarded messages. Delivery is fire-and-forget:
// implementations swallow their own failures and must not block longer
// than the context allows.
type Sink interface {
	Deliver(ctx context.Context, msg Message)
}

// Reporter fans classified errors out to registered sinks. Multiple
// consumers may register independently; none overwrites another.
// Consecutive duplicates of the same failure are suppressed so a hot poll
// loop does not flood the host.
type Reporter struct {
	mu     sync.Mutex
	sinks  []Sink
	source string
	last   string
}

// NewReporter creates a Reporter tagged with source, delivering to the
// provided sinks. An empty source falls back to [DefaultSource].
func NewReporter(source string, sinks ...Sink) *Reporter {
	if source == "" {
		source = DefaultSource
	}
	return &Reporter{source: source, sinks: sinks}
}

// Register attaches an additional sink.
func (r *Reporter) Register(s Sink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sinks = append(r.sinks, s)
}

// Report forwards the record to all sinks. It never fails; a nil record
// or a consecutive duplicate is dropped silently.
func (r *Reporter) Report(ctx context.Context, rec *relay.ErrorRecord) {
	r.deliver(ctx, rec, MessageTypeError, "")
}

// RequestFix forwards the record together with a generated remediation
// prompt, asking the host to attempt an automated repair.
func (r *Reporter) RequestFix(ctx context.Context, rec *relay.ErrorRecord) {
	if rec == nil {
		return
	}
	r.deliver(ctx, rec, MessageTypeFixRequest, RemediationPrompt(rec))
}

func (r *Reporter) deliver(ctx context.Context, rec *relay.ErrorRecord, msgType, prompt string) {
	if rec == nil {
		return
	}

	key := string(rec.Kind) + "\x00" + rec.Message + "\x00" + msgType
	r.mu.Lock()
	if key == r.last {
		r.mu.Unlock()
		return
	}
	r.last = key
	sinks := make([]Sink, len(r.sinks))
	copy(sinks, r.sinks)
	source := r.source
	r.mu.Unlock()

	msg := Message{Type: msgType, Source: source, Payload: rec, Prompt: prompt}
	for _, s := range sinks {
		s.Deliver(ctx, msg)
	}
}

// RemediationPrompt renders an error record as repair instructions for the
// hosting development environment.
func RemediationPrompt(rec *relay.ErrorRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The application hit a %s while handling an agent response.\n", rec.Kind)
	fmt.Fprintf(&b, "Error message: %s\n", rec.Message)
	if rec.Endpoint != "" {
		fmt.Fprintf(&b, "Endpoint: %s\n", rec.Endpoint)
	}
	if rec.RawResponse != "" {
		fmt.Fprintf(&b, "Raw response excerpt:\n%s\n", rec.RawResponse)
	}
	switch rec.Kind {
	case relay.ErrorKindParse:
		b.WriteString("The backend returned data, so the response-handling code is the likely defect. Fix the parsing or display path rather than re-prompting the agent.")
	case relay.ErrorKindAPI:
		b.WriteString("The backend itself reported the failure. Surface the error to the user and consider retrying the request.")
	default:
		b.WriteString("Investigate the failure and apply the smallest fix that makes the request succeed.")
	}
	return b.String()
}

// HTTPSink forwards messages to a configured trusted host endpoint as JSON
// over HTTP. Failures are logged at debug level and otherwise ignored.
type HTTPSink struct {
	// Endpoint is the absolute URL messages are posted to.
	Endpoint string
	// Client is the HTTP client used for delivery. Defaults to
	// http.DefaultClient.
	Client *http.Client
}

func (s *HTTPSink) Deliver(ctx context.Context, msg Message) {
	body, err := json.Marshal(msg)
	if err != nil {
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.Endpoint, bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		log.Debug(ctx, "error report delivery failed", "endpoint", s.Endpoint, "error", err)
		return
	}
	resp.Body.Close()
}

// ChanSink delivers messages to a channel without blocking; messages are
// dropped when the channel is full. Intended for tests and in-process
// consumers.
type ChanSink struct {
	C chan Message
}

// NewChanSink creates a ChanSink with the given buffer size.
func NewChanSink(buffer int) *ChanSink {
	return &ChanSink{C: make(chan Message, buffer)}
}

func (s *ChanSink) Deliver(ctx context.Context, msg Message) {
	select {
	case s.C <- msg:
	default:
	}
}
