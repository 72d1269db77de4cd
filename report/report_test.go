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
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relayproject/relay-go/relay"
)

func successResponse() *relay.NormalizedResponse {
	return &relay.NormalizedResponse{Status: relay.StatusSuccess, Result: map[string]any{"text": "ok"}, Message: "ok"}
}

func errorResponse(msg string) *relay.NormalizedResponse {
	return &relay.NormalizedResponse{Status: relay.StatusError, Result: map[string]any{}, Message: msg}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		outcome  Outcome
		wantKind relay.ErrorKind
		wantNil  bool
	}{
		{
			name:    "clean success",
			outcome: Outcome{Response: successResponse()},
			wantNil: true,
		},
		{
			name:     "transport failure",
			outcome:  Outcome{Err: errors.New("connection refused"), Response: errorResponse("connection refused")},
			wantKind: relay.ErrorKindNetwork,
		},
		{
			name: "backend declared failure",
			outcome: Outcome{
				Response: errorResponse("model overloaded"),
				Err:      fmt.Errorf("model overloaded: %w", relay.ErrTaskFailed),
			},
			wantKind: relay.ErrorKindAPI,
		},
		{
			name:     "poll timeout surfaces as backend error",
			outcome:  Outcome{Response: errorResponse(relay.TimeoutMessage), Err: relay.ErrPollTimeout},
			wantKind: relay.ErrorKindAPI,
		},
		{
			name: "loose parse with substantial data",
			outcome: Outcome{
				Response:    successResponse(),
				Raw:         `The result is {"answer": "42", "confidence": 0.93} as requested`,
				LooseParsed: true,
			},
			wantKind: relay.ErrorKindParse,
		},
		{
			name:    "loose parse of a short answer",
			outcome: Outcome{Response: successResponse(), Raw: "ok", LooseParsed: true},
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := Classify(tt.outcome)
			if tt.wantNil {
				assert.Nil(t, rec)
				return
			}
			require.NotNil(t, rec)
			assert.Equal(t, tt.wantKind, rec.Kind)
			assert.NotEmpty(t, rec.Message)
			assert.False(t, rec.Timestamp.IsZero())
		})
	}
}

func TestClassifyAttachesRawPreview(t *testing.T) {
	raw := strings.Repeat("x", maxRawPreview+100)
	rec := Classify(Outcome{Response: errorResponse("boom"), Raw: raw, Endpoint: "https://api.example.com"})
	require.NotNil(t, rec)
	assert.Equal(t, "https://api.example.com", rec.Endpoint)
	assert.Less(t, len(rec.RawResponse), len(raw))
	assert.True(t, strings.HasPrefix(rec.RawResponse, "xxx"))
}

func TestReporterFansOutToAllSinks(t *testing.T) {
	first := NewChanSink(1)
	second := NewChanSink(1)
	r := NewReporter("", first)
	r.Register(second)

	r.Report(context.Background(), &relay.ErrorRecord{Kind: relay.ErrorKindAPI, Message: "boom"})

	for _, sink := range []*ChanSink{first, second} {
		select {
		case msg := <-sink.C:
			assert.Equal(t, MessageTypeError, msg.Type)
			assert.Equal(t, DefaultSource, msg.Source)
			assert.Equal(t, "boom", msg.Payload.Message)
		default:
			t.Fatal("sink received no message")
		}
	}
}

func TestReporterSuppressesConsecutiveDuplicates(t *testing.T) {
	sink := NewChanSink(4)
	r := NewReporter("test-app", sink)
	rec := &relay.ErrorRecord{Kind: relay.ErrorKindAPI, Message: "boom"}

	r.Report(context.Background(), rec)
	r.Report(context.Background(), rec)
	r.Report(context.Background(), &relay.ErrorRecord{Kind: relay.ErrorKindAPI, Message: "other"})
	r.Report(context.Background(), rec)

	assert.Len(t, sink.C, 3)
}

func TestReporterIgnoresNilRecords(t *testing.T) {
	sink := NewChanSink(1)
	r := NewReporter("test-app", sink)
	r.Report(context.Background(), nil)
	r.RequestFix(context.Background(), nil)
	assert.Empty(t, sink.C)
}

func TestRequestFixCarriesPrompt(t *testing.T) {
	sink := NewChanSink(1)
	r := NewReporter("test-app", sink)
	r.RequestFix(context.Background(), &relay.ErrorRecord{
		Kind:        relay.ErrorKindParse,
		Message:     "strict parsing failed",
		RawResponse: `{"answer": "42"`,
	})

	msg := <-sink.C
	assert.Equal(t, MessageTypeFixRequest, msg.Type)
	assert.Contains(t, msg.Prompt, "parse_error")
	assert.Contains(t, msg.Prompt, "strict parsing failed")
	assert.Contains(t, msg.Prompt, `{"answer": "42"`)
}

func TestHTTPSinkPostsEnvelope(t *testing.T) {
	received := make(chan Message, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var msg Message
		require.NoError(t, json.NewDecoder(r.Body).Decode(&msg))
		received <- msg
	}))
	defer server.Close()

	sink := &HTTPSink{Endpoint: server.URL}
	sink.Deliver(context.Background(), Message{
		Type:    MessageTypeError,
		Source:  "test-app",
		Payload: &relay.ErrorRecord{Kind: relay.ErrorKindNetwork, Message: "connection refused"},
	})

	msg := <-received
	assert.Equal(t, MessageTypeError, msg.Type)
	assert.Equal(t, "test-app", msg.Source)
	assert.Equal(t, relay.ErrorKindNetwork, msg.Payload.Kind)
}

func TestHTTPSinkSwallowsDeliveryFailure(t *testing.T) {
	sink := &HTTPSink{Endpoint: "http://127.0.0.1:1/report"}
	assert.NotPanics(t, func() {
		sink.Deliver(context.Background(), Message{Type: MessageTypeError, Source: "test-app"})
	})
}
