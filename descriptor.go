package modloader

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// RawDescriptor is a mod declaration as handed over by discovery, before
// any validation. Field values are untrusted strings.
type RawDescriptor struct {
	ID          string
	DisplayName string
	Author      string
	Version     string
	Platform    string
	// Enabled defaults to true when nil.
	Enabled *bool
	// Dependencies lists mods required at any version.
	Dependencies []string
	// VersionDependencies maps required mod ids to minimum version strings.
	VersionDependencies map[string]string
	LoadBefore          []string
	LoadAfter           []string
	EntryPoint          EntryPoint
	// Source names where the declaration came from, e.g. a manifest path.
	Source string
}

type callbackSlot struct {
	name     string
	callable Callable
	poisoned bool
}

// ModDescriptor is the validated, immutable description of one mod.
// All collection accessors return copies.
type ModDescriptor struct {
	id          string
	displayName string
	author      string
	version     VersionSpec
	platforms   Platform
	enabled     bool
	host        bool
	source      string
	entry       EntryPoint

	requires   map[string]VersionSpec
	loadBefore map[string]struct{}
	loadAfter  map[string]struct{}
	callbacks  map[string]callbackSlot
}

// NewHostDescriptor returns the descriptor standing in for the loader
// itself. It has no dependencies or callbacks, targets every platform and
// is always considered loaded, so mods can require it like any other mod.
func NewHostDescriptor(id string, version VersionSpec) *ModDescriptor {
	return &ModDescriptor{
		id:          id,
		displayName: id,
		version:     version,
		platforms:   PlatformBoth,
		enabled:     true,
		host:        true,
		requires:    map[string]VersionSpec{},
		loadBefore:  map[string]struct{}{},
		loadAfter:   map[string]struct{}{},
		callbacks:   map[string]callbackSlot{},
	}
}

func (d *ModDescriptor) ID() string             { return d.id }
func (d *ModDescriptor) DisplayName() string    { return d.displayName }
func (d *ModDescriptor) Author() string         { return d.author }
func (d *ModDescriptor) Version() VersionSpec   { return d.version }
func (d *ModDescriptor) Platforms() Platform    { return d.platforms }
func (d *ModDescriptor) Enabled() bool          { return d.enabled }
func (d *ModDescriptor) IsHost() bool           { return d.host }
func (d *ModDescriptor) Source() string         { return d.source }
func (d *ModDescriptor) EntryPoint() EntryPoint { return d.entry }

// RequiresMod reports whether id is a hard dependency.
func (d *ModDescriptor) RequiresMod(id string) bool {
	_, ok := d.requires[id]
	return ok
}

// RequiredMods returns the hard dependencies and their minimum versions.
func (d *ModDescriptor) RequiredMods() map[string]VersionSpec {
	return maps.Clone(d.requires)
}

// RequiredIDs returns the hard dependency ids in sorted order.
func (d *ModDescriptor) RequiredIDs() []string {
	return slices.Sorted(maps.Keys(d.requires))
}

// LoadBefore returns the ids this mod prefers to precede, sorted.
func (d *ModDescriptor) LoadBefore() []string {
	return slices.Sorted(maps.Keys(d.loadBefore))
}

// LoadAfter returns the ids this mod prefers to follow, sorted.
func (d *ModDescriptor) LoadAfter() []string {
	return slices.Sorted(maps.Keys(d.loadAfter))
}

// Callback returns the callable registered for phase. ok is false when
// there is none or when the phase was claimed twice.
func (d *ModDescriptor) Callback(phase string) (c Callable, ok bool) {
	slot, exists := d.callbacks[phase]
	if !exists || slot.poisoned {
		return nil, false
	}
	return slot.callable, true
}

// CallbackName returns the name of the callback bound to phase.
func (d *ModDescriptor) CallbackName(phase string) string {
	return d.callbacks[phase].name
}

// IsPoisoned reports whether two callbacks claimed phase.
func (d *ModDescriptor) IsPoisoned(phase string) bool {
	return d.callbacks[phase].poisoned
}

// Phases returns the phases with a usable callback, sorted.
func (d *ModDescriptor) Phases() []string {
	var out []string
	for phase, slot := range d.callbacks {
		if !slot.poisoned {
			out = append(out, phase)
		}
	}
	slices.Sort(out)
	return out
}

// PoisonedPhases returns the phases that can never be invoked, sorted.
func (d *ModDescriptor) PoisonedPhases() []string {
	var out []string
	for phase, slot := range d.callbacks {
		if slot.poisoned {
			out = append(out, phase)
		}
	}
	slices.Sort(out)
	return out
}

// ConstructionError reports why a raw descriptor could not be built.
type ConstructionError struct {
	ModID  string
	Status ConstructionStatus
	Err    error
}

func (e *ConstructionError) Error() string {
	id := e.ModID
	if id == "" {
		id = "<unknown>"
	}
	return fmt.Sprintf("mod %s: %s: %v", id, e.Status, e.Err)
}

func (e *ConstructionError) Unwrap() error { return e.Err }

// NormalizeID strips every character outside [A-Za-z0-9_] from name.
func NormalizeID(name string) string {
	var b strings.Builder
	for _, r := range name {
		if r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Builder turns raw declarations into ModDescriptors.
type Builder struct {
	loader  Loader
	aliases map[string]string
	logger  Logger
}

// NewBuilder creates a Builder resolving entry points through loader.
// aliases extends the platform tags accepted by ParsePlatform.
func NewBuilder(loader Loader, aliases map[string]string, logger Logger) *Builder {
	if logger == nil {
		logger = nopLogger{}
	}
	return &Builder{loader: loader, aliases: aliases, logger: logger}
}

// Build validates raw and resolves its entry point. Checks run in a fixed
// priority order and the first violation decides the returned status:
// platform tag, core data (id and versions), artifact presence, artifact
// load, and finally the presence of at least one phase callback.
func (b *Builder) Build(ctx context.Context, raw RawDescriptor) (*ModDescriptor, ConstructionStatus, error) {
	id := strings.TrimSpace(raw.ID)
	if id == "" {
		id = NormalizeID(raw.DisplayName)
	}
	fail := func(status ConstructionStatus, err error) (*ModDescriptor, ConstructionStatus, error) {
		return nil, status, &ConstructionError{ModID: id, Status: status, Err: err}
	}

	platforms, err := ParsePlatform(raw.Platform, b.aliases)
	if err != nil {
		return fail(FailedIdentifyingGame, err)
	}

	if id == "" {
		return fail(MissingCoreData, ErrMissingModID)
	}
	version, err := ParseVersion(raw.Version)
	if err != nil {
		return fail(MissingCoreData, fmt.Errorf("version: %w", err))
	}
	requires, err := buildRequirements(raw)
	if err != nil {
		return fail(MissingCoreData, err)
	}

	if raw.EntryPoint.IsZero() {
		return fail(MissingAssemblyFile, ErrMissingEntryPoint)
	}
	if b.loader == nil {
		return fail(FailedLoadingAssemblyFile, ErrLoaderNil)
	}
	surface, err := b.loader.Load(ctx, raw.EntryPoint)
	switch {
	case err != nil && errors.Is(err, ErrArtifactMissing):
		return fail(MissingAssemblyFile, err)
	case err != nil:
		return fail(FailedLoadingAssemblyFile, err)
	case surface == nil:
		return fail(FailedLoadingAssemblyFile, fmt.Errorf("%w: %s: loader returned no surface", ErrArtifactLoadFailed, raw.EntryPoint))
	}

	callbacks := b.collectCallbacks(id, surface.Callbacks)
	if len(callbacks) == 0 {
		return fail(MissingPatchMethod, fmt.Errorf("%w: %s", ErrNoPhaseCallbacks, raw.EntryPoint))
	}

	if version.IsZero() {
		version = surface.Version
	}

	displayName := strings.TrimSpace(raw.DisplayName)
	if displayName == "" {
		displayName = id
	}
	enabled := raw.Enabled == nil || *raw.Enabled

	return &ModDescriptor{
		id:          id,
		displayName: displayName,
		author:      strings.TrimSpace(raw.Author),
		version:     version,
		platforms:   platforms,
		enabled:     enabled,
		source:      raw.Source,
		entry:       raw.EntryPoint,
		requires:    requires,
		loadBefore:  toSet(raw.LoadBefore),
		loadAfter:   toSet(raw.LoadAfter),
		callbacks:   callbacks,
	}, ConstructionSuccess, nil
}

// collectCallbacks indexes the surface by phase. A phase claimed twice is
// poisoned rather than resolved in favor of either claimant.
func (b *Builder) collectCallbacks(id string, bindings []CallbackBinding) map[string]callbackSlot {
	slots := make(map[string]callbackSlot, len(bindings))
	for _, binding := range bindings {
		phase := strings.TrimSpace(binding.Phase)
		if phase == "" || binding.Callable == nil {
			b.logger.Debug("Ignoring incomplete callback binding", "mod", id, "callback", binding.Name)
			continue
		}
		if existing, ok := slots[phase]; ok {
			if !existing.poisoned {
				b.logger.Warn("Phase claimed by more than one callback, phase disabled",
					"mod", id, "phase", phase, "first", existing.name, "second", binding.Name)
			}
			slots[phase] = callbackSlot{name: existing.name, poisoned: true}
			continue
		}
		slots[phase] = callbackSlot{name: binding.Name, callable: binding.Callable}
	}
	return slots
}

// buildRequirements merges plain and versioned dependency declarations.
// When a mod is named in both, the higher minimum wins.
func buildRequirements(raw RawDescriptor) (map[string]VersionSpec, error) {
	requires := make(map[string]VersionSpec, len(raw.Dependencies)+len(raw.VersionDependencies))
	for _, dep := range raw.Dependencies {
		dep = strings.TrimSpace(dep)
		if dep == "" {
			continue
		}
		if _, ok := requires[dep]; !ok {
			requires[dep] = VersionSpec{}
		}
	}
	for _, dep := range slices.Sorted(maps.Keys(raw.VersionDependencies)) {
		minVersion, err := ParseVersion(raw.VersionDependencies[dep])
		if err != nil {
			return nil, fmt.Errorf("dependency %s: %w", dep, err)
		}
		dep = strings.TrimSpace(dep)
		if dep == "" {
			continue
		}
		if current, ok := requires[dep]; !ok || minVersion.Compare(current) > 0 {
			requires[dep] = minVersion
		}
	}
	return requires, nil
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			set[id] = struct{}{}
		}
	}
	return set
}
