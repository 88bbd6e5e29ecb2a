// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package bounce

import (
	"fmt"
	"strings"
	"time"
)

// FormatRemaining renders d in whole seconds as "2 hours 1 minute 5 seconds".
// Zero units are omitted; a duration under one second renders as "0 seconds".
func FormatRemaining(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60

	var parts []string
	parts = appendUnit(parts, hours, "hour")
	parts = appendUnit(parts, minutes, "minute")
	parts = appendUnit(parts, seconds, "second")
	if len(parts) == 0 {
		return "0 seconds"
	}
	return strings.Join(parts, " ")
}

func appendUnit(parts []string, n int64, unit string) []string {
	switch {
	case n == 1:
		return append(parts, "1 "+unit)
	case n > 1:
		return append(parts, fmt.Sprintf("%d %ss", n, unit))
	default:
		return parts
	}
}

// CountdownMessage is the text sent once per tick while waiting.
func CountdownMessage(remaining time.Duration) string {
	return fmt.Sprintf("Account locked! Unlocking in %s.", FormatRemaining(remaining))
}

// LockedUntilMessage is the single message sent when countdown is disabled.
func LockedUntilMessage(unlockAt time.Time) string {
	return fmt.Sprintf("Account locked! Unlocking at %s.", unlockAt.Local().Format(time.RFC1123))
}
