package modloader

import (
	"fmt"
	"time"
)

// Severity ranks diagnostics for reporting.
type Severity int

const (
	SeverityAdvisory Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityAdvisory:
		return "advisory"
	case SeverityWarning:
		return "warning"
	default:
		return "error"
	}
}

// MarshalText encodes the severity by name.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// DiagnosticKind classifies a diagnostic.
type DiagnosticKind string

const (
	KindConstruction          DiagnosticKind = "construction"
	KindPlatformExcluded      DiagnosticKind = "platform-excluded"
	KindUnsatisfiedDependency DiagnosticKind = "unsatisfied-dependency"
	KindDependencyCycle       DiagnosticKind = "dependency-cycle"
	KindDroppedHint           DiagnosticKind = "dropped-hint"
	KindPoisonedPhase         DiagnosticKind = "poisoned-phase"
	KindUnknownPhase          DiagnosticKind = "unknown-phase"
	KindDisabled              DiagnosticKind = "disabled"
)

// Diagnostic is one reportable problem found during a session.
type Diagnostic struct {
	Kind     DiagnosticKind `json:"kind" yaml:"kind"`
	Severity Severity       `json:"severity" yaml:"severity"`
	ModID    string         `json:"mod,omitempty" yaml:"mod,omitempty"`
	Phase    string         `json:"phase,omitempty" yaml:"phase,omitempty"`
	// Related lists the other mods involved, e.g. cycle members or the
	// missing dependency.
	Related []string `json:"related,omitempty" yaml:"related,omitempty"`
	Message string   `json:"message" yaml:"message"`
}

func (d Diagnostic) String() string {
	if d.ModID == "" {
		return fmt.Sprintf("[%s] %s: %s", d.Severity, d.Kind, d.Message)
	}
	return fmt.Sprintf("[%s] %s %s: %s", d.Severity, d.Kind, d.ModID, d.Message)
}

// key identifies a diagnostic for de-duplication across phases.
func (d Diagnostic) key() string {
	return fmt.Sprintf("%s|%s|%s|%v|%s", d.Kind, d.ModID, d.Phase, d.Related, d.Message)
}

// PhaseOutcome records what happened to a mod at one phase.
type PhaseOutcome struct {
	Phase    string        `json:"phase" yaml:"phase"`
	Result   PhaseResult   `json:"result" yaml:"result"`
	Callback string        `json:"callback,omitempty" yaml:"callback,omitempty"`
	Error    string        `json:"error,omitempty" yaml:"error,omitempty"`
	Duration time.Duration `json:"duration" yaml:"duration"`
}

// ModReport summarizes one mod at the end of a session.
type ModReport struct {
	ID          string             `json:"id" yaml:"id"`
	DisplayName string             `json:"displayName,omitempty" yaml:"displayName,omitempty"`
	Author      string             `json:"author,omitempty" yaml:"author,omitempty"`
	Version     VersionSpec        `json:"version" yaml:"version"`
	Status      ConstructionStatus `json:"status" yaml:"status"`
	State       ModState           `json:"state" yaml:"state"`
	Enabled     bool               `json:"enabled" yaml:"enabled"`
	Host        bool               `json:"host,omitempty" yaml:"host,omitempty"`
	FullyLoaded bool               `json:"fullyLoaded" yaml:"fullyLoaded"`
	Phases      []PhaseOutcome     `json:"phases" yaml:"phases"`
	Diagnostics []Diagnostic       `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
}

// SessionReport is the result of one loading session.
type SessionReport struct {
	Session     string        `json:"session" yaml:"session"`
	Platform    Platform      `json:"platform" yaml:"platform"`
	Phases      []string      `json:"phases" yaml:"phases"`
	LoadOrder   []string      `json:"loadOrder" yaml:"loadOrder"`
	Mods        []ModReport   `json:"mods" yaml:"mods"`
	Diagnostics []Diagnostic  `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
	StartedAt   time.Time     `json:"startedAt" yaml:"startedAt"`
	Duration    time.Duration `json:"duration" yaml:"duration"`
}

// Mod returns the report for id. When several records share the id, the
// one that built wins over the ones that did not.
func (r *SessionReport) Mod(id string) (ModReport, bool) {
	var (
		found ModReport
		ok    bool
	)
	for _, m := range r.Mods {
		if m.ID != id {
			continue
		}
		if m.Status == ConstructionSuccess {
			return m, true
		}
		if !ok {
			found, ok = m, true
		}
	}
	return found, ok
}

// LoadedCount returns how many mods, host excluded, are fully loaded.
func (r *SessionReport) LoadedCount() int {
	n := 0
	for _, m := range r.Mods {
		if m.FullyLoaded && !m.Host {
			n++
		}
	}
	return n
}

// Failed returns the ids of mods that are not fully loaded.
func (r *SessionReport) Failed() []string {
	var ids []string
	for _, m := range r.Mods {
		if !m.FullyLoaded {
			ids = append(ids, m.ID)
		}
	}
	return ids
}
