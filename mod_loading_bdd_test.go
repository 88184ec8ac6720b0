package modloader

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"testing"

	"github.com/cucumber/godog"
)

// ModLoadingBDDTestContext holds the state of one mod loading scenario.
type ModLoadingBDDTestContext struct {
	cfg    *SessionConfig
	mods   []testMod
	report *SessionReport
	calls  []string
}

func splitNames(list string) []string {
	var out []string
	for _, part := range strings.Split(list, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (ctx *ModLoadingBDDTestContext) mod(id string) (*testMod, error) {
	for i := range ctx.mods {
		if ctx.mods[i].raw.ID == id {
			return &ctx.mods[i], nil
		}
	}
	return nil, fmt.Errorf("mod %s was not declared", id)
}

func (ctx *ModLoadingBDDTestContext) reported(id string) (ModReport, error) {
	if ctx.report == nil {
		return ModReport{}, fmt.Errorf("the session has not been loaded")
	}
	m, ok := ctx.report.Mod(id)
	if !ok {
		return ModReport{}, fmt.Errorf("mod %s is not in the report", id)
	}
	return m, nil
}

func (ctx *ModLoadingBDDTestContext) aLoadingSessionWithPhases(phases string) error {
	ctx.cfg = NewSessionConfig()
	ctx.cfg.Phases = splitNames(phases)
	ctx.mods = nil
	ctx.report = nil
	ctx.calls = nil
	return nil
}

func (ctx *ModLoadingBDDTestContext) theActivePlatformIs(platform string) error {
	ctx.cfg.ActivePlatform = platform
	return nil
}

func (ctx *ModLoadingBDDTestContext) modVersionWithCallbacksFor(id, version, phases string) error {
	ctx.mods = append(ctx.mods, modWith(id, version, splitNames(phases)...))
	return nil
}

func (ctx *ModLoadingBDDTestContext) modRequires(id, dependency string) error {
	m, err := ctx.mod(id)
	if err != nil {
		return err
	}
	*m = m.requires(dependency)
	return nil
}

func (ctx *ModLoadingBDDTestContext) modRequiresAtLeastVersion(id, dependency, minimum string) error {
	m, err := ctx.mod(id)
	if err != nil {
		return err
	}
	*m = m.requiresVersion(dependency, minimum)
	return nil
}

func (ctx *ModLoadingBDDTestContext) modLoadsAfter(id, other string) error {
	m, err := ctx.mod(id)
	if err != nil {
		return err
	}
	*m = m.after(other)
	return nil
}

func (ctx *ModLoadingBDDTestContext) modFailsAtPhase(id, phase string) error {
	m, err := ctx.mod(id)
	if err != nil {
		return err
	}
	*m = m.failing(phase, errBoom)
	return nil
}

func (ctx *ModLoadingBDDTestContext) modTargetsPlatform(id, platform string) error {
	m, err := ctx.mod(id)
	if err != nil {
		return err
	}
	*m = m.onPlatform(platform)
	return nil
}

func (ctx *ModLoadingBDDTestContext) theSessionLoads() error {
	registry, raws, log := fixture(ctx.mods...)
	coord, err := NewLoadingCoordinator(ctx.cfg, registry, nil)
	if err != nil {
		return fmt.Errorf("failed to create coordinator: %w", err)
	}
	ctx.report, err = coord.Load(context.Background(), raws)
	if err != nil {
		return fmt.Errorf("session failed: %w", err)
	}
	ctx.calls = log.snapshot()
	return nil
}

func (ctx *ModLoadingBDDTestContext) theLoadOrderShouldBe(order string) error {
	want := splitNames(order)
	if !slices.Equal(want, ctx.report.LoadOrder) {
		return fmt.Errorf("expected load order %v, got %v", want, ctx.report.LoadOrder)
	}
	return nil
}

func (ctx *ModLoadingBDDTestContext) theCallbacksShouldHaveRunInOrder(calls string) error {
	want := splitNames(calls)
	if !slices.Equal(want, ctx.calls) {
		return fmt.Errorf("expected callbacks %v, got %v", want, ctx.calls)
	}
	return nil
}

func (ctx *ModLoadingBDDTestContext) modShouldBeFullyLoaded(id string) error {
	m, err := ctx.reported(id)
	if err != nil {
		return err
	}
	if !m.FullyLoaded {
		return fmt.Errorf("mod %s is not fully loaded, state %s", id, m.State)
	}
	return nil
}

func (ctx *ModLoadingBDDTestContext) modsShouldBeFullyLoaded(n int) error {
	if got := ctx.report.LoadedCount(); got != n {
		return fmt.Errorf("expected %d mods fully loaded, got %d", n, got)
	}
	return nil
}

func (ctx *ModLoadingBDDTestContext) modShouldBeExcludedWithADiagnostic(id, kind string) error {
	m, err := ctx.reported(id)
	if err != nil {
		return err
	}
	if m.State != StateExcluded {
		return fmt.Errorf("mod %s should be excluded, state %s", id, m.State)
	}
	for _, d := range m.Diagnostics {
		if string(d.Kind) == kind {
			return nil
		}
	}
	return fmt.Errorf("mod %s has no %s diagnostic: %v", id, kind, m.Diagnostics)
}

func (ctx *ModLoadingBDDTestContext) modShouldReportAtPhase(id, result, phase string) error {
	m, err := ctx.reported(id)
	if err != nil {
		return err
	}
	for _, o := range m.Phases {
		if o.Phase == phase {
			if o.Result.String() != result {
				return fmt.Errorf("mod %s at %s: expected %s, got %s", id, phase, result, o.Result)
			}
			return nil
		}
	}
	return fmt.Errorf("mod %s has no outcome for %s", id, phase)
}

func (ctx *ModLoadingBDDTestContext) modShouldHaveNoOutcomeForPhase(id, phase string) error {
	m, err := ctx.reported(id)
	if err != nil {
		return err
	}
	for _, o := range m.Phases {
		if o.Phase == phase {
			return fmt.Errorf("mod %s should not have run %s, got %s", id, phase, o.Result)
		}
	}
	return nil
}

func TestModLoadingBDD(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: func(ctx *godog.ScenarioContext) {
			testContext := &ModLoadingBDDTestContext{}

			// Background
			ctx.Step(`^a loading session with phases "([^"]*)"$`, testContext.aLoadingSessionWithPhases)
			ctx.Step(`^the active platform is "([^"]*)"$`, testContext.theActivePlatformIs)

			// Mods
			ctx.Step(`^mod "([^"]*)" version "([^"]*)" with callbacks for "([^"]*)"$`, testContext.modVersionWithCallbacksFor)
			ctx.Step(`^mod "([^"]*)" requires "([^"]*)"$`, testContext.modRequires)
			ctx.Step(`^mod "([^"]*)" requires "([^"]*)" at least version "([^"]*)"$`, testContext.modRequiresAtLeastVersion)
			ctx.Step(`^mod "([^"]*)" loads after "([^"]*)"$`, testContext.modLoadsAfter)
			ctx.Step(`^mod "([^"]*)" fails at phase "([^"]*)"$`, testContext.modFailsAtPhase)
			ctx.Step(`^mod "([^"]*)" targets platform "([^"]*)"$`, testContext.modTargetsPlatform)

			ctx.Step(`^the session loads$`, testContext.theSessionLoads)

			// Outcomes
			ctx.Step(`^the load order should be "([^"]*)"$`, testContext.theLoadOrderShouldBe)
			ctx.Step(`^the callbacks should have run in order "([^"]*)"$`, testContext.theCallbacksShouldHaveRunInOrder)
			ctx.Step(`^mod "([^"]*)" should be fully loaded$`, testContext.modShouldBeFullyLoaded)
			ctx.Step(`^(\d+) mods should be fully loaded$`, testContext.modsShouldBeFullyLoaded)
			ctx.Step(`^mod "([^"]*)" should be excluded with a "([^"]*)" diagnostic$`, testContext.modShouldBeExcludedWithADiagnostic)
			ctx.Step(`^mod "([^"]*)" should report "([^"]*)" at phase "([^"]*)"$`, testContext.modShouldReportAtPhase)
			ctx.Step(`^mod "([^"]*)" should have no outcome for phase "([^"]*)"$`, testContext.modShouldHaveNoOutcomeForPhase)
		},
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features/mod_loading.feature"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run BDD tests")
	}
}
