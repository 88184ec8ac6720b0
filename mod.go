package modloader

import (
	"slices"
	"strings"
)

// Mod is the per-session record of one discovered mod. The descriptor is
// immutable; everything else is lifecycle state written by the invoker
// and the coordinator.
type Mod struct {
	id          string
	displayName string
	order       int

	descriptor *ModDescriptor
	status     ConstructionStatus
	buildErr   error

	state       ModState
	excluded    bool
	cleared     bool
	succeeded   map[string]bool
	outcomes    []PhaseOutcome
	diagnostics []Diagnostic

	// sessionPhases limits FullyLoaded to the phases the owning session
	// runs. Nil outside a coordinator.
	sessionPhases []string
}

func newMod(order int, raw RawDescriptor) *Mod {
	id := strings.TrimSpace(raw.ID)
	if id == "" {
		id = NormalizeID(raw.DisplayName)
	}
	return &Mod{
		id:          id,
		displayName: raw.DisplayName,
		order:       order,
		state:       StateDiscovered,
		succeeded:   make(map[string]bool),
	}
}

// newReadyMod wraps an already built descriptor, used for the host.
func newReadyMod(order int, d *ModDescriptor) *Mod {
	return &Mod{
		id:          d.ID(),
		displayName: d.DisplayName(),
		order:       order,
		descriptor:  d,
		state:       StateReady,
		succeeded:   make(map[string]bool),
	}
}

// NewMod wraps a descriptor in a Ready session record. It lets callers
// drive the resolver and invoker directly without a coordinator.
func NewMod(d *ModDescriptor) *Mod {
	return newReadyMod(0, d)
}

func (m *Mod) ID() string                 { return m.id }
func (m *Mod) Descriptor() *ModDescriptor { return m.descriptor }
func (m *Mod) Status() ConstructionStatus { return m.status }
func (m *Mod) ConstructionErr() error     { return m.buildErr }
func (m *Mod) State() ModState            { return m.state }
func (m *Mod) Excluded() bool             { return m.excluded }
func (m *Mod) CallbacksCleared() bool     { return m.cleared }
func (m *Mod) Outcomes() []PhaseOutcome   { return slices.Clone(m.outcomes) }
func (m *Mod) Diagnostics() []Diagnostic  { return slices.Clone(m.diagnostics) }
func (m *Mod) IsHost() bool               { return m.descriptor != nil && m.descriptor.IsHost() }

// Outcome returns the most recent outcome recorded for phase.
func (m *Mod) Outcome(phase string) (PhaseOutcome, bool) {
	for i := len(m.outcomes) - 1; i >= 0; i-- {
		if m.outcomes[i].Phase == phase {
			return m.outcomes[i], true
		}
	}
	return PhaseOutcome{}, false
}

// Ready reports whether the mod was built and has not been excluded.
func (m *Mod) Ready() bool {
	return m.descriptor != nil && !m.excluded
}

// Invocable reports whether the mod can still receive phase callbacks.
func (m *Mod) Invocable() bool {
	return m.Ready() && !m.cleared && m.descriptor.Enabled() && !m.descriptor.IsHost()
}

// FullyLoaded reports whether every session phase the mod registered a
// callback for ended in success. A poisoned phase never runs, so it keeps
// the mod from being fully loaded. The host is always loaded.
func (m *Mod) FullyLoaded() bool {
	if !m.Ready() {
		return false
	}
	if m.descriptor.IsHost() {
		return true
	}
	if !m.descriptor.Enabled() {
		return false
	}
	for _, phase := range append(m.descriptor.Phases(), m.descriptor.PoisonedPhases()...) {
		if m.sessionPhases != nil && !slices.Contains(m.sessionPhases, phase) {
			continue
		}
		if !m.succeeded[phase] {
			return false
		}
	}
	return true
}

func (m *Mod) exclude(d Diagnostic) {
	m.excluded = true
	m.cleared = true
	m.state = StateExcluded
	m.diagnostics = append(m.diagnostics, d)
}

func (m *Mod) addDiagnostic(d Diagnostic) {
	m.diagnostics = append(m.diagnostics, d)
}

func (m *Mod) record(o PhaseOutcome) {
	m.outcomes = append(m.outcomes, o)
	if o.Result == ResultSuccess {
		m.succeeded[o.Phase] = true
	}
	m.state = stateFor(o.Result)
}

func (m *Mod) report() ModReport {
	r := ModReport{
		ID:          m.id,
		DisplayName: m.displayName,
		Status:      m.status,
		State:       m.state,
		FullyLoaded: m.FullyLoaded(),
		Phases:      slices.Clone(m.outcomes),
		Diagnostics: slices.Clone(m.diagnostics),
	}
	if r.Phases == nil {
		r.Phases = []PhaseOutcome{}
	}
	if d := m.descriptor; d != nil {
		r.DisplayName = d.DisplayName()
		r.Author = d.Author()
		r.Version = d.Version()
		r.Enabled = d.Enabled()
		r.Host = d.IsHost()
	}
	return r
}
