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

import (
	"encoding/json"
	"fmt"
)

// payloadShape is a closed enumeration of the payload structures agents are
// known to produce. Classification is performed once and each shape maps to
// exactly one normalization arm, so the arms cannot overlap.
type payloadShape int

const (
	shapeEmpty payloadShape = iota
	shapeText
	shapeScalar
	shapeStatusAndResult
	shapeStatusOnly
	shapeResultOnly
	shapeMessageOnly
	shapeEnvelope
	shapeOpaque
)

// messageFields are probed, in order, when deriving a display message from
// a result object that did not carry one explicitly.
var messageFields = []string{"text", "message", "response", "answer", "summary", "content"}

// Normalize maps an arbitrary decoded payload into the stable
// NormalizedResponse shape. It is a total function: it never fails and it
// never discards data. Status is error only when the payload explicitly
// signals an error or is empty; everything else normalizes to success so
// that partial or unexpected data is shown rather than hidden.
func Normalize(candidate any) *NormalizedResponse {
	switch shapeOf(candidate) {
	case shapeEmpty:
		return &NormalizedResponse{
			Status:  StatusError,
			Result:  map[string]any{},
			Message: EmptyResponseMessage,
		}

	case shapeText:
		s := candidate.(string)
		return &NormalizedResponse{
			Status:  StatusSuccess,
			Result:  map[string]any{"text": s},
			Message: s,
		}

	case shapeScalar:
		return &NormalizedResponse{
			Status:  StatusSuccess,
			Result:  map[string]any{"value": candidate},
			Message: stringify(candidate),
		}

	case shapeStatusAndResult:
		m := candidate.(map[string]any)
		return &NormalizedResponse{
			Status:   statusOf(m),
			Result:   asResultMap(m["result"]),
			Message:  stringField(m, "message"),
			Metadata: mapField(m, "metadata"),
		}

	case shapeStatusOnly:
		m := candidate.(map[string]any)
		// Everything besides the reserved fields is treated as the payload.
		result := make(map[string]any, len(m))
		for k, v := range m {
			switch k {
			case "status", "message", "metadata":
			default:
				result[k] = v
			}
		}
		return &NormalizedResponse{
			Status:   statusOf(m),
			Result:   result,
			Message:  stringField(m, "message"),
			Metadata: mapField(m, "metadata"),
		}

	case shapeResultOnly:
		m := candidate.(map[string]any)
		result := asResultMap(m["result"])
		return &NormalizedResponse{
			Status:  StatusSuccess,
			Result:  result,
			Message: deriveMessage(m, result),
		}

	case shapeMessageOnly:
		m := candidate.(map[string]any)
		msg, _ := m["message"].(string)
		return &NormalizedResponse{
			Status:  StatusSuccess,
			Result:  map[string]any{"text": msg},
			Message: msg,
		}

	case shapeEnvelope:
		m := candidate.(map[string]any)
		return Normalize(m["response"])

	default: // shapeOpaque
		return &NormalizedResponse{
			Status: StatusSuccess,
			Result: candidate.(map[string]any),
		}
	}
}

// NormalizeRaw decodes raw JSON and normalizes the result. Undecodable
// input is treated as plain text.
func NormalizeRaw(raw json.RawMessage) *NormalizedResponse {
	if len(raw) == 0 {
		return Normalize(nil)
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return Normalize(string(raw))
	}
	return Normalize(v)
}

func shapeOf(candidate any) payloadShape {
	switch v := candidate.(type) {
	case nil:
		return shapeEmpty
	case string:
		if v == "" {
			return shapeEmpty
		}
		return shapeText
	case map[string]any:
		if len(v) == 0 {
			return shapeEmpty
		}
		_, hasStatus := v["status"]
		_, hasResult := v["result"]
		switch {
		case hasStatus && hasResult:
			return shapeStatusAndResult
		case hasStatus:
			return shapeStatusOnly
		case hasResult:
			return shapeResultOnly
		}
		if s, ok := v["message"].(string); ok && s != "" {
			return shapeMessageOnly
		}
		if _, ok := v["response"]; ok {
			return shapeEnvelope
		}
		return shapeOpaque
	default:
		return shapeScalar
	}
}

// statusOf forces status to error iff the field is literally "error".
func statusOf(m map[string]any) ResponseStatus {
	if s, ok := m["status"].(string); ok && s == string(StatusError) {
		return StatusError
	}
	return StatusSuccess
}

// asResultMap coerces a result field into the key-value mapping callers
// rely on. Absent or empty values default to an empty map, strings are
// wrapped as text and any other value is preserved under "value".
func asResultMap(r any) map[string]any {
	switch v := r.(type) {
	case nil:
		return map[string]any{}
	case map[string]any:
		return v
	case string:
		if v == "" {
			return map[string]any{}
		}
		return map[string]any{"text": v}
	case bool:
		if !v {
			return map[string]any{}
		}
		return map[string]any{"value": v}
	case float64:
		if v == 0 {
			return map[string]any{}
		}
		return map[string]any{"value": v}
	default:
		return map[string]any{"value": v}
	}
}

// deriveMessage resolves the display message for a result-only payload: an
// explicit message field wins, then a string-typed result, then the first
// populated well-known field inside the result.
func deriveMessage(m map[string]any, result map[string]any) string {
	if s := stringField(m, "message"); s != "" {
		return s
	}
	if s, ok := m["result"].(string); ok && s != "" {
		return s
	}
	for _, field := range messageFields {
		if s, ok := result[field].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func mapField(m map[string]any, key string) map[string]any {
	v, _ := m[key].(map[string]any)
	return v
}

// stringify renders a scalar for display the way it appears in JSON.
func stringify(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
