package modloader

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// EntryPoint references the code a mod wants to run: a dotted
// type-and-method path plus the location of the artifact that holds it.
type EntryPoint struct {
	Path     string `json:"path" yaml:"path" toml:"path"`
	Artifact string `json:"artifact,omitempty" yaml:"artifact,omitempty" toml:"artifact,omitempty"`
}

// IsZero reports whether no entry point was declared.
func (e EntryPoint) IsZero() bool {
	return strings.TrimSpace(e.Path) == "" && strings.TrimSpace(e.Artifact) == ""
}

func (e EntryPoint) String() string {
	if e.Artifact == "" {
		return e.Path
	}
	return e.Path + "@" + e.Artifact
}

// CallbackBinding is one phase callback exposed by a loaded artifact.
type CallbackBinding struct {
	// Phase is the phase identifier the callback claims.
	Phase string
	// Name identifies the callback in logs, e.g. the method name.
	Name     string
	Callable Callable
}

// Surface is everything the loader learned about a resolved entry point.
type Surface struct {
	// Version is the artifact's own version metadata. It is used when the
	// manifest does not declare one.
	Version   VersionSpec
	Callbacks []CallbackBinding
}

// Loader resolves an entry point into a callable surface.
//
// Implementations return an error wrapping ErrArtifactMissing when the
// artifact does not exist. Any other error is treated as a load failure.
type Loader interface {
	Load(ctx context.Context, entry EntryPoint) (*Surface, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context, entry EntryPoint) (*Surface, error)

// Load calls f(ctx, entry).
func (f LoaderFunc) Load(ctx context.Context, entry EntryPoint) (*Surface, error) {
	return f(ctx, entry)
}

// Registry is an in-process Loader. Hosts register the surface of each
// compiled-in mod under its entry point path.
type Registry struct {
	mu       sync.RWMutex
	surfaces map[string]*Surface
	failures map[string]error
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		surfaces: make(map[string]*Surface),
		failures: make(map[string]error),
	}
}

// Register binds an entry point path to a surface. Registering the same
// path again replaces the previous surface.
func (r *Registry) Register(path string, surface *Surface) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.surfaces[path] = surface
	delete(r.failures, path)
}

// RegisterFunc registers a surface built from phase/function pairs.
func (r *Registry) RegisterFunc(path string, version VersionSpec, callbacks map[string]CallableFunc) {
	surface := &Surface{Version: version}
	for phase, fn := range callbacks {
		surface.Callbacks = append(surface.Callbacks, CallbackBinding{Phase: phase, Name: path + "." + phase, Callable: fn})
	}
	r.Register(path, surface)
}

// RegisterBroken marks an entry point as present but unloadable. Loading
// it returns err wrapped in ErrArtifactLoadFailed.
func (r *Registry) RegisterBroken(path string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.surfaces, path)
	r.failures[path] = err
}

// Load implements Loader.
func (r *Registry) Load(_ context.Context, entry EntryPoint) (*Surface, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if err, ok := r.failures[entry.Path]; ok {
		return nil, fmt.Errorf("%w: %s: %w", ErrArtifactLoadFailed, entry, err)
	}
	surface, ok := r.surfaces[entry.Path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrArtifactMissing, entry)
	}
	return surface, nil
}
