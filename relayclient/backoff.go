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
	"math"
	"time"
)

var defaultPollBackoff = &ExponentialBackoff{
	BaseDelay: 500 * time.Millisecond,
	Factor:    1.5,
	MaxDelay:  5 * time.Second,
}

// RetryPolicy is used to configure the sleep interval between successive
// poll attempts for one task handle.
type RetryPolicy interface {
	// NextDelay returns the sleep duration after the given poll attempt.
	NextDelay(attempt int) time.Duration
}

// ExponentialBackoff is a [RetryPolicy] implementation which grows the
// delay by a constant factor per attempt, clamped at MaxDelay. Successive
// delays are non-decreasing until the cap.
type ExponentialBackoff struct {
	// BaseDelay is the interval after the first poll attempt.
	BaseDelay time.Duration
	// Factor is the per-attempt growth multiplier. Values below 1 are
	// treated as 1.
	Factor float64
	// MaxDelay caps the value returned from NextDelay.
	MaxDelay time.Duration
}

// NextDelay implements the [RetryPolicy] interface.
func (e *ExponentialBackoff) NextDelay(attempt int) time.Duration {
	factor := e.Factor
	if factor < 1 {
		factor = 1
	}
	delay := float64(e.BaseDelay) * math.Pow(factor, float64(attempt))
	if e.MaxDelay > 0 && delay > float64(e.MaxDelay) {
		delay = float64(e.MaxDelay)
	}
	return time.Duration(delay)
}
