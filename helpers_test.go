package modloader

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockCallable is a phase callback whose behavior is set with testify
// expectations.
type MockCallable struct {
	mock.Mock
}

func (m *MockCallable) Invoke(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

var errBoom = errors.New("boom")

// callLog records callback invocations in order.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(call string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, call)
}

func (l *callLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

// recorder returns a callback that appends "id:phase" to the log and
// then returns err.
func (l *callLog) recorder(id, phase string, err error) CallableFunc {
	return func(context.Context) error {
		l.add(id + ":" + phase)
		return err
	}
}

// testMod describes a mod for session fixtures.
type testMod struct {
	raw RawDescriptor
	// phases maps phase to the error its callback returns. A nil entry
	// succeeds.
	phases map[string]error
}

func entryFor(id string) EntryPoint {
	return EntryPoint{Path: id + ".Patch"}
}

func modWith(id, version string, phases ...string) testMod {
	tm := testMod{
		raw: RawDescriptor{
			ID:         id,
			Version:    version,
			EntryPoint: entryFor(id),
			Source:     id + "/mod.json",
		},
		phases: make(map[string]error),
	}
	for _, p := range phases {
		tm.phases[p] = nil
	}
	return tm
}

func (tm testMod) requires(ids ...string) testMod {
	tm.raw.Dependencies = append(tm.raw.Dependencies, ids...)
	return tm
}

func (tm testMod) requiresVersion(id, minimum string) testMod {
	if tm.raw.VersionDependencies == nil {
		tm.raw.VersionDependencies = map[string]string{}
	}
	tm.raw.VersionDependencies[id] = minimum
	return tm
}

func (tm testMod) after(ids ...string) testMod {
	tm.raw.LoadAfter = append(tm.raw.LoadAfter, ids...)
	return tm
}

func (tm testMod) before(ids ...string) testMod {
	tm.raw.LoadBefore = append(tm.raw.LoadBefore, ids...)
	return tm
}

func (tm testMod) onPlatform(tag string) testMod {
	tm.raw.Platform = tag
	return tm
}

func (tm testMod) failing(phase string, err error) testMod {
	tm.phases[phase] = err
	return tm
}

func (tm testMod) disabled() testMod {
	enabled := false
	tm.raw.Enabled = &enabled
	return tm
}

// fixture registers mods in a Registry wired to a shared call log.
func fixture(mods ...testMod) (*Registry, []RawDescriptor, *callLog) {
	registry := NewRegistry()
	log := &callLog{}
	raws := make([]RawDescriptor, 0, len(mods))
	for _, tm := range mods {
		callbacks := make(map[string]CallableFunc, len(tm.phases))
		for phase, err := range tm.phases {
			callbacks[phase] = log.recorder(tm.raw.ID, phase, err)
		}
		registry.RegisterFunc(tm.raw.EntryPoint.Path, VersionSpec{}, callbacks)
		raws = append(raws, tm.raw)
	}
	return registry, raws, log
}

// buildMods builds every raw descriptor into a Ready session record.
func buildMods(t *testing.T, loader Loader, raws ...RawDescriptor) []*Mod {
	t.Helper()
	builder := NewBuilder(loader, nil, &logger{t})
	mods := make([]*Mod, 0, len(raws))
	for _, raw := range raws {
		d, status, err := builder.Build(context.Background(), raw)
		require.NoError(t, err, raw.ID)
		require.Equal(t, ConstructionSuccess, status)
		mods = append(mods, NewMod(d))
	}
	return mods
}

func modsByID(mods []*Mod) map[string]*Mod {
	out := make(map[string]*Mod, len(mods))
	for _, m := range mods {
		out[m.ID()] = m
	}
	return out
}
