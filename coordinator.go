// Package modloader is a mod-loading engine for games. It builds mod
// descriptors from raw declarations, orders mods by their hard
// dependencies and soft load-before/load-after hints, and drives every
// mod through a configured sequence of load phases.
//
// Failures are contained per mod: a broken mod is reported and skipped,
// and the session always completes with a full report.
//
// Basic usage:
//
//	registry := modloader.NewRegistry()
//	registry.RegisterFunc("MyMod.Patch", modloader.MustVersion("1.0"), map[string]modloader.CallableFunc{
//		"init": func(ctx context.Context) error { return nil },
//	})
//	coord, err := modloader.NewLoadingCoordinator(modloader.NewSessionConfig(), registry, logger)
//	if err != nil {
//		log.Fatal(err)
//	}
//	report, err := coord.Load(ctx, raws)
package modloader

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"
)

// Option configures a LoadingCoordinator.
type Option func(*LoadingCoordinator)

// WithObserver registers an observer when the coordinator is created.
func WithObserver(observer Observer, eventTypes ...string) Option {
	return func(c *LoadingCoordinator) {
		_ = c.RegisterObserver(observer, eventTypes...)
	}
}

// LoadingCoordinator owns the mods of one loading session and drives them
// through every configured phase, one mod at a time.
type LoadingCoordinator struct {
	cfg      *SessionConfig
	phases   []string
	platform Platform
	host     *ModDescriptor
	logger   Logger

	builder  *Builder
	resolver *Resolver
	invoker  *PhaseInvoker

	mods        []*Mod
	byID        map[string]*Mod
	loaded      bool
	loadOrder   []string
	diagnostics []Diagnostic
	seenDiag    map[string]bool
	startedAt   time.Time
	duration    time.Duration

	observers     map[string]*observerRegistration
	observerOrder []string
	observerMutex sync.RWMutex
}

// NewLoadingCoordinator validates cfg and creates a coordinator that
// resolves entry points through loader. A nil cfg uses the defaults.
// Configuration problems are the only errors that stop a session.
func NewLoadingCoordinator(cfg *SessionConfig, loader Loader, logger Logger, opts ...Option) (*LoadingCoordinator, error) {
	if cfg == nil {
		cfg = NewSessionConfig()
	}
	if err := validateSessionConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid session config: %w", err)
	}
	if loader == nil {
		return nil, ErrLoaderNil
	}
	if logger == nil {
		logger = nopLogger{}
	}

	platform, _ := cfg.Platform()
	hostVersion, _ := ParseVersion(cfg.HostVersion)

	c := &LoadingCoordinator{
		cfg:       cfg,
		phases:    cfg.PhaseList(),
		platform:  platform,
		host:      NewHostDescriptor(cfg.HostID, hostVersion),
		logger:    logger,
		builder:   NewBuilder(loader, cfg.PlatformAliases, logger),
		resolver:  NewResolver(logger),
		invoker:   NewPhaseInvoker(platform, logger),
		observers: make(map[string]*observerRegistration),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Phases returns the configured phase sequence.
func (c *LoadingCoordinator) Phases() []string {
	return slices.Clone(c.phases)
}

// Platform returns the active platform.
func (c *LoadingCoordinator) Platform() Platform {
	return c.platform
}

// Mods returns the session's mods, host first, then in discovery order.
func (c *LoadingCoordinator) Mods() []*Mod {
	return slices.Clone(c.mods)
}

// Mod returns the session record for id.
func (c *LoadingCoordinator) Mod(id string) (*Mod, bool) {
	m, ok := c.byID[id]
	return m, ok
}

// Prepare starts a new session without invoking anything: it builds every
// raw descriptor, applies platform eligibility and resolves the order for
// the first phase. Phases can then be driven one at a time with
// InvokePhase, e.g. when the host reaches each stage of its own startup.
func (c *LoadingCoordinator) Prepare(ctx context.Context, raws []RawDescriptor) *Plan {
	c.reset()
	c.startedAt = time.Now()
	c.emit(ctx, EventTypeSessionStarted, map[string]any{
		"session":  c.cfg.SessionName,
		"platform": c.platform.String(),
		"phases":   c.phases,
		"mods":     len(raws),
	})

	c.addMod(newReadyMod(0, c.host))
	for i, raw := range raws {
		c.construct(ctx, i+1, raw)
	}
	c.applyEligibility(ctx)
	c.loaded = true

	return c.resolve(ctx, c.phases[0])
}

// Load runs a complete session: Prepare followed by every configured
// phase in order. Mod failures never produce an error; they are reported.
func (c *LoadingCoordinator) Load(ctx context.Context, raws []RawDescriptor) (*SessionReport, error) {
	c.Prepare(ctx, raws)
	for _, phase := range c.phases {
		c.runPhase(ctx, phase)
	}

	c.duration = time.Since(c.startedAt)
	report := c.Report()
	c.emit(ctx, EventTypeSessionCompleted, map[string]any{
		"session":  report.Session,
		"loaded":   report.LoadedCount(),
		"failed":   report.Failed(),
		"order":    report.LoadOrder,
		"duration": report.Duration.String(),
	})
	c.logger.Info("Loading session completed", "session", report.Session,
		"loaded", report.LoadedCount(), "total", len(raws), "duration", report.Duration)
	return report, nil
}

// InvokePhase runs one configured phase again over the current session.
// Mods that already completed the phase report AlreadyLoaded.
func (c *LoadingCoordinator) InvokePhase(ctx context.Context, phase string) (*Plan, error) {
	if !c.loaded {
		return nil, ErrSessionNotLoaded
	}
	if !slices.Contains(c.phases, phase) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPhase, phase)
	}
	return c.runPhase(ctx, phase), nil
}

func (c *LoadingCoordinator) reset() {
	c.mods = nil
	c.byID = make(map[string]*Mod)
	c.loaded = false
	c.loadOrder = nil
	c.diagnostics = nil
	c.seenDiag = make(map[string]bool)
	c.duration = 0
}

func (c *LoadingCoordinator) addMod(m *Mod) {
	m.sessionPhases = c.phases
	c.mods = append(c.mods, m)
	c.index(m)
}

// index makes m the record for its id unless a built record already
// holds it. A record that failed to build gives way to a later one that
// builds.
func (c *LoadingCoordinator) index(m *Mod) {
	if m.ID() == "" {
		return
	}
	if existing, ok := c.byID[m.ID()]; ok && (existing.Descriptor() != nil || m.Descriptor() == nil) {
		return
	}
	c.byID[m.ID()] = m
}

// construct builds one raw descriptor into a session record. Failed
// records stay in the session so the report and dependents can name them.
// A second declaration of an id that already built is a DuplicateModID.
func (c *LoadingCoordinator) construct(ctx context.Context, order int, raw RawDescriptor) {
	m := newMod(order, raw)

	if existing, dup := c.byID[m.ID()]; dup && m.ID() != "" && existing.Descriptor() != nil {
		m.status = DuplicateModID
		m.buildErr = &ConstructionError{ModID: m.ID(), Status: DuplicateModID, Err: fmt.Errorf("%w: %s", ErrDuplicateModID, raw.Source)}
		c.mods = append(c.mods, m)
		c.failConstruction(ctx, m)
		return
	}

	d, status, err := c.builder.Build(ctx, raw)
	m.status = status
	c.addMod(m)
	if err != nil {
		m.buildErr = err
		c.failConstruction(ctx, m)
		return
	}

	m.descriptor = d
	m.state = StateValidated
	c.index(m)
	c.logger.Debug("Mod validated", "mod", d.ID(), "version", d.Version().String(), "source", d.Source())

	for _, phase := range d.PoisonedPhases() {
		m.addDiagnostic(Diagnostic{
			Kind:     KindPoisonedPhase,
			Severity: SeverityWarning,
			ModID:    d.ID(),
			Phase:    phase,
			Message:  fmt.Sprintf("%s: %s will not run", ErrDuplicateCallback, phase),
		})
	}
	for _, phase := range d.Phases() {
		if !slices.Contains(c.phases, phase) {
			m.addDiagnostic(Diagnostic{
				Kind:     KindUnknownPhase,
				Severity: SeverityAdvisory,
				ModID:    d.ID(),
				Phase:    phase,
				Message:  fmt.Sprintf("callback %s targets a phase this session does not run", d.CallbackName(phase)),
			})
		}
	}
	if !d.Enabled() {
		m.addDiagnostic(Diagnostic{
			Kind:     KindDisabled,
			Severity: SeverityAdvisory,
			ModID:    d.ID(),
			Message:  "mod is disabled and will not be invoked",
		})
	}

	m.state = StateReady
	c.emit(ctx, EventTypeModConstructed, map[string]any{
		"mod":     d.ID(),
		"version": d.Version().String(),
		"status":  status.String(),
		"enabled": d.Enabled(),
	})
}

func (c *LoadingCoordinator) failConstruction(ctx context.Context, m *Mod) {
	d := Diagnostic{
		Kind:     KindConstruction,
		Severity: SeverityError,
		ModID:    m.ID(),
		Message:  m.buildErr.Error(),
	}
	m.exclude(d)
	c.logger.Warn("Mod could not be built", "mod", m.ID(), "status", m.status.String(), "error", m.buildErr)
	c.emit(ctx, EventTypeModConstructed, map[string]any{
		"mod":    m.ID(),
		"status": m.status.String(),
		"error":  m.buildErr.Error(),
	})
}

// applyEligibility removes mods that do not target the active platform.
// They are reported once as CurrentGameNotSupported and never ordered.
func (c *LoadingCoordinator) applyEligibility(ctx context.Context) {
	for _, m := range c.mods {
		if !m.Ready() || m.Descriptor().Platforms().Intersects(c.platform) {
			continue
		}
		c.invoker.Invoke(ctx, m, c.phases[0])
		c.excludeMod(ctx, m, Diagnostic{
			Kind:     KindPlatformExcluded,
			Severity: SeverityWarning,
			ModID:    m.ID(),
			Message: fmt.Sprintf("%s: targets %s, running %s", ResultCurrentGameNotSupported,
				m.Descriptor().Platforms(), c.platform),
		})
	}
}

func (c *LoadingCoordinator) excludeMod(ctx context.Context, m *Mod, d Diagnostic) {
	m.exclude(d)
	c.emit(ctx, EventTypeModExcluded, map[string]any{
		"mod":     m.ID(),
		"kind":    string(d.Kind),
		"phase":   d.Phase,
		"related": d.Related,
		"reason":  d.Message,
	})
}

// runPhase resolves the order for phase and invokes every mod that can
// still run, strictly one after another.
func (c *LoadingCoordinator) runPhase(ctx context.Context, phase string) *Plan {
	c.emit(ctx, EventTypePhaseStarted, map[string]any{"phase": phase})
	c.logger.Info("Starting phase", "phase", phase)

	plan := c.resolve(ctx, phase)
	counts := make(map[string]int)
	for _, m := range plan.Order {
		if !m.Invocable() {
			continue
		}
		outcome := c.invoker.Invoke(ctx, m, phase)
		counts[outcome.Result.String()]++
		c.emit(ctx, EventTypeModInvoked, map[string]any{
			"mod":      m.ID(),
			"phase":    phase,
			"result":   outcome.Result.String(),
			"callback": outcome.Callback,
			"error":    outcome.Error,
		})
	}

	c.emit(ctx, EventTypePhaseCompleted, map[string]any{
		"phase":    phase,
		"order":    plan.IDs(),
		"results":  counts,
		"excluded": len(plan.Excluded),
	})
	return plan
}

// resolve orders the session for phase and applies the resulting
// exclusions and advisories.
func (c *LoadingCoordinator) resolve(ctx context.Context, phase string) *Plan {
	plan := c.resolver.Resolve(phase, c.mods)
	for _, ex := range plan.Excluded {
		c.excludeMod(ctx, ex.Mod, ex.Diagnostic)
	}
	for _, adv := range plan.Advisories {
		c.addSessionDiagnostic(adv)
	}
	c.loadOrder = plan.IDs()
	return plan
}

// addSessionDiagnostic records a diagnostic once per session, so hints
// dropped at every phase are reported only once.
func (c *LoadingCoordinator) addSessionDiagnostic(d Diagnostic) {
	key := d.key()
	if d.Kind == KindDroppedHint {
		key = fmt.Sprintf("%s|%s|%v|%s", d.Kind, d.ModID, d.Related, d.Message)
	}
	if c.seenDiag[key] {
		return
	}
	c.seenDiag[key] = true
	c.diagnostics = append(c.diagnostics, d)
}

// Report builds the session report from the current state.
func (c *LoadingCoordinator) Report() *SessionReport {
	report := &SessionReport{
		Session:     c.cfg.SessionName,
		Platform:    c.platform,
		Phases:      slices.Clone(c.phases),
		LoadOrder:   slices.Clone(c.loadOrder),
		Diagnostics: slices.Clone(c.diagnostics),
		StartedAt:   c.startedAt,
		Duration:    c.duration,
	}
	for _, m := range c.mods {
		report.Mods = append(report.Mods, m.report())
	}
	return report
}
