package modloader

import (
	"fmt"
	"slices"
	"strings"
)

// Exclusion names a mod the resolver removed from the session and why.
type Exclusion struct {
	Mod        *Mod
	Diagnostic Diagnostic
}

// Plan is the resolved execution order for one phase.
type Plan struct {
	Phase string
	// Order lists every mod that survived resolution, dependencies first.
	// Mods that already failed or canceled stay in the order so that their
	// dependents are still placed after them.
	Order []*Mod
	// Excluded lists mods removed by this resolution. Exclusions are
	// permanent for the session.
	Excluded []Exclusion
	// Advisories lists ordering hints that were dropped.
	Advisories []Diagnostic
}

// IDs returns the ids in Order.
func (p *Plan) IDs() []string {
	ids := make([]string, len(p.Order))
	for i, m := range p.Order {
		ids[i] = m.ID()
	}
	return ids
}

// Resolver builds per-phase orderings from hard dependencies and soft
// load-before/load-after hints. It only reads the mods it is given.
type Resolver struct {
	logger Logger
}

// NewResolver creates a Resolver.
func NewResolver(logger Logger) *Resolver {
	if logger == nil {
		logger = nopLogger{}
	}
	return &Resolver{logger: logger}
}

// Resolve orders the Ready mods of a session for phase.
//
// Hard dependencies are contracts: a dependent whose requirement is
// missing, disabled, too old or itself excluded is excluded, and every
// member of a hard dependency cycle is excluded. Soft hints are best
// effort: hints naming absent mods, or hints that would close a cycle,
// are dropped and reported as advisories.
func (r *Resolver) Resolve(phase string, mods []*Mod) *Plan {
	plan := &Plan{Phase: phase}

	all := make(map[string]*Mod, len(mods))
	var candidates []*Mod
	for _, m := range mods {
		if prev, dup := all[m.ID()]; !dup || prev.Descriptor() == nil && m.Descriptor() != nil {
			all[m.ID()] = m
		}
		if m.Ready() {
			candidates = append(candidates, m)
		}
	}
	slices.SortStableFunc(candidates, func(a, b *Mod) int { return a.order - b.order })

	excluded := make(map[string]bool)
	exclude := func(m *Mod, d Diagnostic) {
		excluded[m.ID()] = true
		plan.Excluded = append(plan.Excluded, Exclusion{Mod: m, Diagnostic: d})
		r.logger.Warn("Mod excluded from session", "mod", m.ID(), "phase", phase, "reason", d.Message)
	}
	alive := func() []*Mod {
		var out []*Mod
		for _, m := range candidates {
			if !excluded[m.ID()] {
				out = append(out, m)
			}
		}
		return out
	}

	// Cycles are found on the full candidate graph first, so a member
	// with another unmet requirement is still reported as a cycle member.
	// Removing nodes cannot create a cycle, so one pass of each suffices.
	for _, members := range buildHardGraph(candidates).Cycles() {
		for _, id := range members {
			exclude(all[id], Diagnostic{
				Kind:     KindDependencyCycle,
				Severity: SeverityError,
				ModID:    id,
				Phase:    phase,
				Related:  slices.Clone(members),
				Message:  fmt.Sprintf("%s: %s", ErrCircularDependency, strings.Join(append(slices.Clone(members), members[0]), " -> ")),
			})
		}
	}
	r.excludeUnsatisfied(phase, alive(), all, excluded, exclude)

	survivors := alive()
	graph := buildHardGraph(survivors)
	plan.Advisories = r.addSoftEdges(phase, graph, survivors)

	order, err := graph.TopologicalSort()
	if err != nil {
		// Soft edges are only added when they keep the graph acyclic and
		// hard cycles were removed above.
		r.logger.Error("Unexpected cycle after resolution", "phase", phase, "error", err)
	}
	byID := make(map[string]*Mod, len(survivors))
	for _, m := range survivors {
		byID[m.ID()] = m
	}
	for _, id := range order {
		plan.Order = append(plan.Order, byID[id])
	}

	r.logger.Debug("Resolved load order", "phase", phase, "order", plan.IDs())
	return plan
}

// excludeUnsatisfied removes dependents whose hard requirements cannot be
// met, repeating until no further mod is removed.
func (r *Resolver) excludeUnsatisfied(phase string, alive []*Mod, all map[string]*Mod, excluded map[string]bool, exclude func(*Mod, Diagnostic)) {
	for changed := true; changed; {
		changed = false
		for _, m := range alive {
			if excluded[m.ID()] {
				continue
			}
			d := m.Descriptor()
			for _, depID := range d.RequiredIDs() {
				if depID == m.ID() {
					// Self requirement is a one-node cycle.
					continue
				}
				minimum := d.requires[depID]
				reason := unsatisfiedReason(all[depID], minimum, excluded[depID])
				if reason == "" {
					continue
				}
				exclude(m, Diagnostic{
					Kind:     KindUnsatisfiedDependency,
					Severity: SeverityError,
					ModID:    m.ID(),
					Phase:    phase,
					Related:  []string{depID},
					Message:  fmt.Sprintf("%s: requires %s%s", ErrUnsatisfiedDependency, depID, reason),
				})
				changed = true
				break
			}
		}
	}
}

func unsatisfiedReason(dep *Mod, minimum VersionSpec, excludedNow bool) string {
	constraint := ""
	if !minimum.IsZero() {
		constraint = " >= " + minimum.String()
	}
	switch {
	case dep == nil:
		return constraint + " but it is not installed"
	case dep.Descriptor() == nil:
		return constraint + " but it failed to load (" + dep.Status().String() + ")"
	case excludedNow || dep.Excluded():
		return constraint + " but it was excluded from the session"
	case !dep.Descriptor().Enabled():
		return constraint + " but it is disabled"
	case !dep.Descriptor().Version().AtLeast(minimum):
		return constraint + " but found " + dep.Descriptor().Version().String()
	}
	return ""
}

// buildHardGraph adds every mod as a node in discovery order and an edge
// from each dependency to its dependent.
func buildHardGraph(mods []*Mod) *DependencyGraph {
	g := NewDependencyGraph()
	present := make(map[string]bool, len(mods))
	for _, m := range mods {
		g.AddNode(m.ID())
		present[m.ID()] = true
	}
	for _, m := range mods {
		for _, depID := range m.Descriptor().RequiredIDs() {
			if present[depID] {
				g.AddEdge(depID, m.ID())
			}
		}
	}
	return g
}

// addSoftEdges adds load-after and load-before hints that keep the graph
// acyclic and returns an advisory for each hint it dropped.
func (r *Resolver) addSoftEdges(phase string, g *DependencyGraph, mods []*Mod) []Diagnostic {
	var advisories []Diagnostic
	drop := func(m *Mod, other, relation, why string) {
		d := Diagnostic{
			Kind:     KindDroppedHint,
			Severity: SeverityAdvisory,
			ModID:    m.ID(),
			Phase:    phase,
			Related:  []string{other},
			Message:  fmt.Sprintf("ignored %s %s: %s", relation, other, why),
		}
		advisories = append(advisories, d)
		r.logger.Debug("Dropped ordering hint", "mod", m.ID(), "phase", phase, "hint", relation, "target", other, "reason", why)
	}
	try := func(m *Mod, other, relation string, from, to string) {
		switch {
		case other == m.ID():
			drop(m, other, relation, "a mod cannot be ordered relative to itself")
		case !g.HasNode(other):
			drop(m, other, relation, "mod is not part of this session")
		case g.WouldCycle(from, to):
			drop(m, other, relation, "conflicts with other ordering constraints")
		default:
			g.AddEdge(from, to)
		}
	}

	for _, m := range mods {
		d := m.Descriptor()
		for _, other := range d.LoadAfter() {
			try(m, other, "loadAfter", other, m.ID())
		}
		for _, other := range d.LoadBefore() {
			try(m, other, "loadBefore", m.ID(), other)
		}
	}
	return advisories
}
