package modloader

import (
	"context"
	"fmt"
	"time"
)

// PhaseInvoker runs one mod's callback for one phase and records the
// outcome on that mod. It never returns an error: every failure is
// converted into a PhaseResult.
type PhaseInvoker struct {
	platform Platform
	logger   Logger
	now      func() time.Time
}

// NewPhaseInvoker creates an invoker for the given active platform.
func NewPhaseInvoker(active Platform, logger Logger) *PhaseInvoker {
	if logger == nil {
		logger = nopLogger{}
	}
	return &PhaseInvoker{platform: active, logger: logger, now: time.Now}
}

// Invoke drives the (mod, phase) state machine:
//
//   - platform mismatch: CurrentGameNotSupported, remaining callbacks cleared
//   - no usable callback (absent, claimed twice, or cleared): NoCallbackForPhase
//   - phase already succeeded: AlreadyLoaded, callback not run again
//   - otherwise the callback runs once and its outcome maps to Success,
//     CanceledByAuthor or Failure. Cancellation and failure both clear the
//     remaining callbacks. Earlier successes are left in place.
func (p *PhaseInvoker) Invoke(ctx context.Context, m *Mod, phase string) PhaseOutcome {
	outcome := p.invoke(ctx, m, phase)
	m.record(outcome)
	return outcome
}

func (p *PhaseInvoker) invoke(ctx context.Context, m *Mod, phase string) PhaseOutcome {
	d := m.Descriptor()
	if d == nil {
		return PhaseOutcome{Phase: phase, Result: ResultFailure, Error: fmt.Sprintf("mod %s was never built", m.ID())}
	}

	if !d.Platforms().Intersects(p.platform) {
		m.cleared = true
		p.logger.Debug("Mod does not support the active platform", "mod", m.ID(), "phase", phase,
			"targets", d.Platforms().String(), "active", p.platform.String())
		return PhaseOutcome{Phase: phase, Result: ResultCurrentGameNotSupported}
	}

	if m.succeeded[phase] {
		p.logger.Debug("Phase already completed, skipping", "mod", m.ID(), "phase", phase)
		return PhaseOutcome{Phase: phase, Result: ResultAlreadyLoaded, Callback: d.CallbackName(phase)}
	}

	callable, ok := d.Callback(phase)
	if !ok || m.cleared {
		return PhaseOutcome{Phase: phase, Result: ResultNoCallbackForPhase}
	}

	name := d.CallbackName(phase)
	start := p.now()
	result, err := invokeCallable(ctx, callable)
	elapsed := p.now().Sub(start)

	out := PhaseOutcome{Phase: phase, Callback: name, Duration: elapsed}
	switch result {
	case OutcomeOk:
		out.Result = ResultSuccess
		p.logger.Info("Mod phase completed", "mod", m.ID(), "phase", phase, "callback", name, "duration", elapsed)
	case OutcomeCanceled:
		out.Result = ResultCanceledByAuthor
		out.Error = err.Error()
		m.cleared = true
		p.logger.Info("Mod canceled loading", "mod", m.ID(), "phase", phase, "callback", name, "reason", err)
	default:
		out.Result = ResultFailure
		out.Error = err.Error()
		m.cleared = true
		p.logger.Error("Mod phase failed", "mod", m.ID(), "phase", phase, "callback", name, "error", err)
	}
	return out
}
