// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ramp computes lockout durations from a consecutive failure count.
//
// The delay grows as
//
//	ramp_multiplier * (count - free_tries) * ln(count - free_tries) + base_delay
//
// once count exceeds free_tries. The first failure over the threshold costs
// exactly base_delay because ln(1) is zero. Callers clamp the result with
// Capped before storing or displaying it.
package ramp

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// MaxDelay is the longest lockout ever applied or displayed.
const MaxDelay = 24 * time.Hour

// ErrWithinFreeTries is returned when a delay is requested for a count that
// has not exceeded the free tries threshold.
var ErrWithinFreeTries = errors.New("failure count within free tries")

// maxSeconds is the largest whole-second count representable as a Duration.
const maxSeconds = float64(math.MaxInt64 / int64(time.Second))

// Settings holds the tunable coefficients of the delay formula.
type Settings struct {
	FreeTries        int
	BaseDelaySeconds int
	RampMultiplier   int
}

// Exceeds reports whether count is over the free tries threshold.
func (s Settings) Exceeds(count int) bool {
	return count > s.FreeTries
}

// Delay returns the raw, uncapped lockout duration for count.
func (s Settings) Delay(count int) (time.Duration, error) {
	return Delay(count, s.FreeTries, s.RampMultiplier, s.BaseDelaySeconds)
}

// CappedDelay returns Delay clamped to MaxDelay.
func (s Settings) CappedDelay(count int) (time.Duration, error) {
	d, err := s.Delay(count)
	if err != nil {
		return 0, err
	}
	return Capped(d), nil
}

// Delay computes the lockout duration for failureCount failures.
//
// Fractional seconds are truncated toward zero. Results too large for a
// time.Duration saturate at the maximum Duration; negative results (only
// possible with a negative multiplier) clamp to zero.
func Delay(failureCount, freeTries, rampMultiplier, baseDelaySeconds int) (time.Duration, error) {
	if failureCount <= freeTries {
		return 0, fmt.Errorf("%w: count %d, free tries %d", ErrWithinFreeTries, failureCount, freeTries)
	}

	over := float64(failureCount - freeTries)
	raw := float64(rampMultiplier)*over*math.Log(over) + float64(baseDelaySeconds)

	secs := math.Trunc(raw)
	switch {
	case math.IsNaN(secs) || secs <= 0:
		return 0, nil
	case secs >= maxSeconds:
		return time.Duration(math.MaxInt64), nil
	}
	return time.Duration(secs) * time.Second, nil
}

// Capped clamps d to the range [0, MaxDelay].
func Capped(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	if d > MaxDelay {
		return MaxDelay
	}
	return d
}
