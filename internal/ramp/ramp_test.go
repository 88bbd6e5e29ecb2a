// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ramp

import (
	"errors"
	"math"
	"testing"
	"time"
)

var defaults = Settings{FreeTries: 6, BaseDelaySeconds: 30, RampMultiplier: 50}

func TestDelay_KnownValues(t *testing.T) {
	tests := []struct {
		count int
		want  time.Duration
	}{
		{7, 30 * time.Second},    // 50*1*ln(1)+30
		{8, 99 * time.Second},    // 50*2*ln(2)+30 = 99.31
		{10, 307 * time.Second},  // 50*4*ln(4)+30 = 307.26
		{16, 1181 * time.Second}, // 50*10*ln(10)+30 = 1181.29
	}

	for _, tt := range tests {
		got, err := defaults.Delay(tt.count)
		if err != nil {
			t.Fatalf("Delay(%d) error: %v", tt.count, err)
		}
		if got != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.count, got, tt.want)
		}
	}
}

func TestDelay_WithinFreeTries(t *testing.T) {
	for count := 0; count <= defaults.FreeTries; count++ {
		if defaults.Exceeds(count) {
			t.Errorf("Exceeds(%d) = true, want false", count)
		}
		_, err := defaults.Delay(count)
		if !errors.Is(err, ErrWithinFreeTries) {
			t.Errorf("Delay(%d) error = %v, want ErrWithinFreeTries", count, err)
		}
	}
}

func TestDelay_MonotonicAndAtLeastBase(t *testing.T) {
	base := time.Duration(defaults.BaseDelaySeconds) * time.Second
	prev := time.Duration(-1)
	for count := defaults.FreeTries + 1; count < 500; count++ {
		d, err := defaults.Delay(count)
		if err != nil {
			t.Fatalf("Delay(%d) error: %v", count, err)
		}
		if d < base {
			t.Fatalf("Delay(%d) = %v, below base %v", count, d, base)
		}
		if d <= prev {
			t.Fatalf("Delay(%d) = %v, not greater than Delay(%d) = %v", count, d, count-1, prev)
		}
		prev = d
	}
}

func TestDelay_ZeroFreeTries(t *testing.T) {
	d, err := Delay(1, 0, 50, 30)
	if err != nil {
		t.Fatalf("Delay error: %v", err)
	}
	if d != 30*time.Second {
		t.Errorf("Delay(1, 0) = %v, want 30s", d)
	}
}

func TestDelay_Saturates(t *testing.T) {
	d, err := Delay(math.MaxInt32, 0, math.MaxInt32, 30)
	if err != nil {
		t.Fatalf("Delay error: %v", err)
	}
	if d != time.Duration(math.MaxInt64) {
		t.Errorf("Delay = %v, want saturated max duration", d)
	}
}

func TestDelay_NegativeMultiplierClampsToZero(t *testing.T) {
	d, err := Delay(20, 0, -50, 0)
	if err != nil {
		t.Fatalf("Delay error: %v", err)
	}
	if d != 0 {
		t.Errorf("Delay = %v, want 0", d)
	}
}

func TestCappedDelay(t *testing.T) {
	for _, count := range []int{100, 1000, 1 << 20, math.MaxInt32} {
		d, err := defaults.CappedDelay(count)
		if err != nil {
			t.Fatalf("CappedDelay(%d) error: %v", count, err)
		}
		if d > MaxDelay {
			t.Errorf("CappedDelay(%d) = %v, exceeds %v", count, d, MaxDelay)
		}
	}

	if got := Capped(-time.Second); got != 0 {
		t.Errorf("Capped(-1s) = %v, want 0", got)
	}
	if got := Capped(time.Minute); got != time.Minute {
		t.Errorf("Capped(1m) = %v, want 1m", got)
	}
}
