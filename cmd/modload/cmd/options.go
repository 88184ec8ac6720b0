package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/GoCodeAlone/modloader"
	"github.com/GoCodeAlone/modloader/feeders"
	"github.com/GoCodeAlone/modloader/manifest"
)

// EnvPrefix prefixes the environment variables read into the session config.
const EnvPrefix = "MODLOADER_"

const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

var (
	ErrUnknownFormat = errors.New("unknown output format")
	ErrModsFailed    = errors.New("some mods did not load")
)

type globalOptions struct {
	configPath string
	section    string
	platform   string
	format     string
	verbose    bool
}

func (o *globalOptions) validate() error {
	if !slices.Contains([]string{formatText, formatJSON, formatYAML}, o.format) {
		return fmt.Errorf("%w: %q", ErrUnknownFormat, o.format)
	}
	return nil
}

// sessionConfig loads the config file, if any, then the environment.
// The --platform flag wins over both.
func (o *globalOptions) sessionConfig() (*modloader.SessionConfig, error) {
	var sources []modloader.Feeder
	if o.configPath != "" {
		fileFeeder, err := feeders.NewFileFeeder(o.configPath)
		if err != nil {
			return nil, err
		}
		if o.section != "" {
			sources = append(sources, feeders.Section(fileFeeder, o.section))
		} else {
			sources = append(sources, fileFeeder)
		}
	}
	sources = append(sources, feeders.NewEnvFeeder(EnvPrefix))

	cfg, err := modloader.LoadSessionConfig(sources...)
	if err != nil {
		return nil, fmt.Errorf("load session config: %w", err)
	}
	if o.platform != "" {
		cfg.ActivePlatform = o.platform
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("load session config: %w", err)
		}
	}
	return cfg, nil
}

// logger returns a slog logger writing to w. Without --verbose only
// errors are shown.
func (o *globalOptions) logger(w io.Writer) *slog.Logger {
	level := slog.LevelError
	if o.verbose {
		level = slog.LevelDebug
	}
	if o.format == formatJSON {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// session is everything a command needs to drive a coordinator over a
// mods directory.
type session struct {
	cfg         *modloader.SessionConfig
	coordinator *modloader.LoadingCoordinator
	raws        []modloader.RawDescriptor
	dirErrors   []error
}

func (o *globalOptions) openSession(dir string, stderr io.Writer) (*session, error) {
	if err := o.validate(); err != nil {
		return nil, err
	}
	cfg, err := o.sessionConfig()
	if err != nil {
		return nil, err
	}
	manifests, dirErrors, err := manifest.LoadDir(dir)
	if err != nil {
		return nil, err
	}

	logger := o.logger(stderr)
	for _, dirErr := range dirErrors {
		logger.Warn("Skipping mod directory", "error", dirErr)
	}

	coordinator, err := modloader.NewLoadingCoordinator(cfg, newDryLoader(manifests), logger)
	if err != nil {
		return nil, err
	}
	return &session{
		cfg:         cfg,
		coordinator: coordinator,
		raws:        manifest.RawDescriptors(manifests),
		dirErrors:   dirErrors,
	}, nil
}

// newDryLoader binds a no-op callback to every phase a manifest declares.
// Entry points whose artifact file is missing stay unregistered and so
// report MissingAssemblyFile.
func newDryLoader(manifests []*manifest.Manifest) *modloader.Registry {
	registry := modloader.NewRegistry()
	for _, m := range manifests {
		entry := m.Raw.EntryPoint
		if entry.Path == "" {
			continue
		}
		if entry.Artifact != "" {
			if _, err := os.Stat(entry.Artifact); err != nil {
				continue
			}
		}
		callbacks := make(map[string]modloader.CallableFunc, len(m.Phases))
		for _, phase := range m.Phases {
			callbacks[phase] = noop
		}
		registry.RegisterFunc(entry.Path, modloader.VersionSpec{}, callbacks)
	}
	return registry
}

func noop(context.Context) error { return nil }
