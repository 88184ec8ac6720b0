package modloader

import (
	"errors"
)

// Loader errors
var (
	// Version and platform parsing errors
	ErrInvalidVersion  = errors.New("invalid version")
	ErrNegativeVersion = errors.New("version component is negative")
	ErrUnknownPlatform = errors.New("unknown platform tag")

	// Descriptor construction errors
	ErrMissingModID       = errors.New("mod id is empty")
	ErrMissingEntryPoint  = errors.New("mod entry point is empty")
	ErrArtifactMissing    = errors.New("mod artifact not found")
	ErrArtifactLoadFailed = errors.New("mod artifact failed to load")
	ErrNoPhaseCallbacks   = errors.New("mod exposes no phase callbacks")
	ErrDuplicateModID     = errors.New("mod id already registered")
	ErrDuplicateCallback  = errors.New("phase claimed by more than one callback")
	ErrLoaderNil          = errors.New("loader is nil")

	// Dependency resolution errors
	ErrCircularDependency    = errors.New("circular dependency detected")
	ErrUnsatisfiedDependency = errors.New("unsatisfied dependency")

	// Invocation errors
	ErrCanceledByAuthor = errors.New("canceled by mod author")
	ErrCallbackPanicked = errors.New("phase callback panicked")
	ErrCallableNil      = errors.New("callable is nil")

	// Session configuration errors
	ErrNoPhases          = errors.New("session has no phases configured")
	ErrDuplicatePhase    = errors.New("phase configured more than once")
	ErrEmptyPhaseName    = errors.New("phase name is empty")
	ErrInvalidActivePlat = errors.New("active platform must be a single known platform or both")
	ErrUnknownPhase      = errors.New("phase is not configured for this session")
	ErrSessionNotLoaded  = errors.New("session has not been loaded")

	// Config validation errors
	ErrConfigNil                  = errors.New("config is nil")
	ErrConfigNotPointer           = errors.New("config must be a pointer")
	ErrConfigNotStruct            = errors.New("config must be a struct")
	ErrConfigRequiredFieldMissing = errors.New("required field is missing")
	ErrConfigValidationFailed     = errors.New("config validation failed")
	ErrUnsupportedTypeForDefault  = errors.New("unsupported type for default value")
	ErrDefaultValueParseError     = errors.New("failed to parse default value")
	ErrDefaultValueOverflowsInt   = errors.New("default value overflows int")
	ErrConfigFeederError          = errors.New("config feeder error")

	// Observer errors
	ErrObserverNil = errors.New("observer is nil")
)
