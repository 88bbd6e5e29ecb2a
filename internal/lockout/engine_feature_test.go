// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package lockout

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/cucumber/godog"

	"github.com/jeranaias/authramp/internal/ramp"
	"github.com/jeranaias/authramp/internal/tally"
)

// TestLockoutFeatures runs the lockout feature scenarios.
func TestLockoutFeatures(t *testing.T) {
	suite := godog.TestSuite{
		Name:                "lockout",
		ScenarioInitializer: initializeLockoutScenario(t),
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{filepath.Join("features", "lockout.feature")},
			Strict:   true,
			TestingT: t,
		},
	}
	if suite.Run() != 0 {
		t.Fatalf("non-zero godog status")
	}
}

func initializeLockoutScenario(t *testing.T) func(*godog.ScenarioContext) {
	return func(ctx *godog.ScenarioContext) {
		state := &lockoutScenarioState{}
		ctx.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
			state.reset(t.TempDir())
			return ctx, nil
		})

		ctx.Step(`^a lockout policy with (\d+) free tries, a (\d+) second base delay and a ramp multiplier of (\d+)$`, state.givenPolicy)
		ctx.Step(`^root is not exempt$`, state.givenRootNotExempt)
		ctx.Step(`^user "([^"]+)" has (\d+) recorded failures$`, state.givenFailures)
		ctx.Step(`^"([^"]+)" fails to authenticate$`, state.whenAction(ActionAuthFail))
		ctx.Step(`^"([^"]+)" authenticates successfully$`, state.whenAction(ActionAuthSuccess))
		ctx.Step(`^"([^"]+)" requests preauth$`, state.whenAction(ActionPreAuth))
		ctx.Step(`^the tally for "([^"]+)" has (\d+) failures$`, state.thenCount)
		ctx.Step(`^the tally for "([^"]+)" has no unlock instant$`, state.thenNoUnlock)
		ctx.Step(`^"([^"]+)" is locked for (\d+) seconds$`, state.thenLockedFor)
		ctx.Step(`^"([^"]+)" is locked$`, state.thenLocked)
		ctx.Step(`^"([^"]+)" is unlocked$`, state.thenUnlocked)
	}
}

type lockoutScenarioState struct {
	root     string
	settings Settings
	now      time.Time
	last     map[string]Decision
}

// reset clears scenario state.
func (s *lockoutScenarioState) reset(root string) {
	s.root = root
	s.settings = Settings{Ramp: ramp.Settings{FreeTries: 6, BaseDelaySeconds: 30, RampMultiplier: 50}}
	s.now = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	s.last = map[string]Decision{}
}

func (s *lockoutScenarioState) clock() time.Time {
	return s.now
}

func (s *lockoutScenarioState) store() *tally.Store {
	return tally.NewStore(s.root, tally.WithClock(s.clock))
}

func (s *lockoutScenarioState) principal(name string) Principal {
	if name == "root" {
		return Principal{Name: name, UID: 0}
	}
	return Principal{Name: name, UID: 1000}
}

func (s *lockoutScenarioState) givenPolicy(free, base, multiplier int) error {
	s.settings.Ramp = ramp.Settings{
		FreeTries:        free,
		BaseDelaySeconds: base,
		RampMultiplier:   multiplier,
	}
	return nil
}

func (s *lockoutScenarioState) givenRootNotExempt() error {
	s.settings.EvenDenyRoot = true
	return nil
}

func (s *lockoutScenarioState) givenFailures(name string, count int) error {
	return s.store().Persist(name, tally.Record{Count: count, Instant: s.now.Add(-time.Hour)})
}

func (s *lockoutScenarioState) whenAction(action Action) func(string) error {
	return func(name string) error {
		e, err := NewEngine(s.store(), s.settings, WithClock(s.clock))
		if err != nil {
			return err
		}
		d, err := e.Apply(context.Background(), s.principal(name), action)
		if err != nil {
			return err
		}
		s.last[name] = d
		return nil
	}
}

func (s *lockoutScenarioState) thenCount(name string, want int) error {
	r, err := s.store().Load(name)
	if err != nil {
		return err
	}
	if r.Count != want {
		return fmt.Errorf("tally count = %d, want %d", r.Count, want)
	}
	return nil
}

func (s *lockoutScenarioState) thenNoUnlock(name string) error {
	r, err := s.store().Load(name)
	if err != nil {
		return err
	}
	if r.UnlockInstant != nil {
		return fmt.Errorf("unexpected unlock_instant %s", r.UnlockInstant)
	}
	return nil
}

func (s *lockoutScenarioState) thenLockedFor(name string, seconds int) error {
	d, ok := s.last[name]
	if !ok {
		return fmt.Errorf("no decision recorded for %s", name)
	}
	if d.State != Locked {
		return fmt.Errorf("state = %s, want locked", d.State)
	}
	want := time.Duration(seconds) * time.Second
	if got := d.UnlockAt.Sub(s.now); got != want {
		return fmt.Errorf("locked for %s, want %s", got, want)
	}
	return nil
}

func (s *lockoutScenarioState) thenLocked(name string) error {
	d, ok := s.last[name]
	if !ok {
		return fmt.Errorf("no decision recorded for %s", name)
	}
	if d.State != Locked {
		return fmt.Errorf("state = %s, want locked", d.State)
	}
	return nil
}

func (s *lockoutScenarioState) thenUnlocked(name string) error {
	d, ok := s.last[name]
	if !ok {
		return fmt.Errorf("no decision recorded for %s", name)
	}
	if d.State != Unlocked {
		return fmt.Errorf("state = %s, want unlocked", d.State)
	}
	return nil
}
