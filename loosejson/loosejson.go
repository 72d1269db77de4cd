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

// Package loosejson extracts a JSON value from raw agent output on a
// best-effort basis. Agent text frequently wraps the real payload in
// prose, fenced code blocks or truncated JSON; extraction tries
// progressively more forgiving strategies and never fails: when nothing
// parseable is found the raw string itself is returned so no data is lost.
package loosejson

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

var fenceRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// openFenceRe matches a fenced block whose closing fence was cut off.
var openFenceRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*)$")

// Extract recovers a JSON value from raw text. Well-formed JSON always
// succeeds. Prose-embedded values, fenced code blocks, and truncated or
// otherwise malformed JSON are recovered when possible. On total failure
// the raw string is returned unchanged.
func Extract(raw string) any {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}

	if v, ok := tryUnmarshal(trimmed); ok {
		return v
	}

	if block := fencedBlock(trimmed); block != "" {
		if v, ok := parseForgiving(block); ok {
			return v
		}
	}

	if frag := firstStructure(trimmed); frag != "" {
		if v, ok := parseForgiving(frag); ok {
			return v
		}
	}

	if v, ok := tryRepair(trimmed); ok {
		return v
	}

	return raw
}

// ExtractObject is a convenience wrapper that additionally unwraps
// double-encoded payloads: a JSON string whose content is itself JSON.
func ExtractObject(raw string) any {
	v := Extract(raw)
	if s, ok := v.(string); ok && s != raw {
		return Extract(s)
	}
	return v
}

func parseForgiving(s string) (any, bool) {
	if v, ok := tryUnmarshal(s); ok {
		return v, true
	}
	return tryRepair(s)
}

func tryUnmarshal(s string) (any, bool) {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, false
	}
	return v, true
}

// tryRepair asks the repair library to fix up malformed JSON: truncated
// structures are closed, single quotes and trailing commas are corrected.
func tryRepair(s string) (any, bool) {
	fixed, err := jsonrepair.JSONRepair(s)
	if err != nil {
		return nil, false
	}
	v, ok := tryUnmarshal(fixed)
	if !ok {
		return nil, false
	}
	// Repairing free prose yields a bare string; that is not a recovery.
	if _, isString := v.(string); isString {
		return nil, false
	}
	return v, true
}

// fencedBlock returns the contents of the first fenced code block,
// tolerating a missing closing fence on truncated output.
func fencedBlock(s string) string {
	if m := fenceRe.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := openFenceRe.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// firstStructure scans for the first balanced object or array in the text.
// If the structure never closes the remainder of the text is returned so
// that the repair pass can complete it.
func firstStructure(s string) string {
	start := strings.IndexAny(s, "{[")
	if start == -1 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return s[start:]
}
