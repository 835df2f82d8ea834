// Copyright 2026 The AgentDeck Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import "time"

// WireTime converts t to Unix nanoseconds. The zero time maps to 0.
func WireTime(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

// FromWireTime is the inverse of [WireTime].
func FromWireTime(nanos int64) time.Time {
	if nanos == 0 {
		return time.Time{}
	}
	return time.Unix(0, nanos)
}
