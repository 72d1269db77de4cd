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

// Package report classifies finished backend calls into error records and
// forwards them to a hosting environment for out-of-band remediation. The
// distinction between api_error (the agent itself failed) and parse_error
// (the agent answered but the payload shape was odd) is what lets a host
// trigger an automated repair instead of blaming the model.
package report

import (
	"errors"
	"fmt"
	"time"

	"github.com/relayproject/relay-go/relay"
	"github.com/relayproject/relay-go/relayclient"
)

// rawStructureThreshold is the minimum raw-text length at which a loosely
// parsed payload is assumed to carry data worth flagging. Shorter payloads
// are treated as empty answers rather than parsing defects; the exact
// cutoff is approximate.
const rawStructureThreshold = 20

// maxRawPreview bounds the raw payload excerpt attached to a record.
const maxRawPreview = 2048

// Outcome describes one finished submit/poll sequence as seen by the
// classifier: the normalized response, the call's own error, and how the
// payload was parsed.
type Outcome struct {
	// Response is the normalized result, non-nil for any finished call.
	Response *relay.NormalizedResponse
	// Err is the error returned by the client, if any.
	Err error
	// Raw is the payload exactly as the backend returned it.
	Raw string
	// LooseParsed reports that strict JSON parsing of the payload failed.
	LooseParsed bool
	// Endpoint is the backend URL the call targeted.
	Endpoint string
}

// FromResult adapts a client task result into a classifier outcome.
func FromResult(res *relayclient.TaskResult, err error, endpoint string) Outcome {
	o := Outcome{Err: err, Endpoint: endpoint}
	if res != nil {
		o.Response = res.Response
		o.Raw = res.Raw
		o.LooseParsed = res.LooseParsed
	}
	return o
}

// Classify inspects an outcome and produces an error record, or nil when
// the call finished cleanly. Transport failures take precedence over
// backend-declared errors, which take precedence over parsing defects.
func Classify(outcome Outcome) *relay.ErrorRecord {
	switch {
	case isTransportFailure(outcome.Err):
		return newRecord(relay.ErrorKindNetwork, outcome.Err.Error(), outcome)

	case outcome.Response != nil && outcome.Response.Status == relay.StatusError:
		return newRecord(relay.ErrorKindAPI, outcome.Response.Message, outcome)

	case outcome.LooseParsed && len(outcome.Raw) > rawStructureThreshold:
		return newRecord(relay.ErrorKindParse,
			fmt.Sprintf("response carried %d bytes of data but strict parsing failed", len(outcome.Raw)),
			outcome)
	}
	return nil
}

// isTransportFailure reports whether err points at the network rather than
// at the task. Backend-declared failures and poll timeouts surface through
// the error-shaped response instead.
func isTransportFailure(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, relay.ErrTaskFailed) || errors.Is(err, relay.ErrPollTimeout) {
		return false
	}
	return true
}

func newRecord(kind relay.ErrorKind, message string, outcome Outcome) *relay.ErrorRecord {
	return &relay.ErrorRecord{
		Kind:        kind,
		Message:     message,
		RawResponse: truncate(outcome.Raw, maxRawPreview),
		Endpoint:    outcome.Endpoint,
		Timestamp:   time.Now().UTC(),
	}
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "…"
}
