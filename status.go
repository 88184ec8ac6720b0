package modloader

// ConstructionStatus is the outcome of building a ModDescriptor from raw data.
type ConstructionStatus int

const (
	ConstructionSuccess ConstructionStatus = iota
	FailedIdentifyingGame
	MissingCoreData
	MissingAssemblyFile
	FailedLoadingAssemblyFile
	MissingPatchMethod
	DuplicateModID
)

func (s ConstructionStatus) String() string {
	switch s {
	case ConstructionSuccess:
		return "Success"
	case FailedIdentifyingGame:
		return "FailedIdentifyingGame"
	case MissingCoreData:
		return "MissingCoreData"
	case MissingAssemblyFile:
		return "MissingAssemblyFile"
	case FailedLoadingAssemblyFile:
		return "FailedLoadingAssemblyFile"
	case MissingPatchMethod:
		return "MissingPatchMethod"
	case DuplicateModID:
		return "DuplicateModID"
	default:
		return "Unknown"
	}
}

// MarshalText encodes the status by name.
func (s ConstructionStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// PhaseResult is the result code of one mod at one phase.
type PhaseResult int

const (
	ResultSuccess PhaseResult = iota
	ResultAlreadyLoaded
	ResultNoCallbackForPhase
	ResultCurrentGameNotSupported
	ResultCanceledByAuthor
	ResultFailure
)

func (r PhaseResult) String() string {
	switch r {
	case ResultSuccess:
		return "Success"
	case ResultAlreadyLoaded:
		return "AlreadyLoaded"
	case ResultNoCallbackForPhase:
		return "NoCallbackForPhase"
	case ResultCurrentGameNotSupported:
		return "CurrentGameNotSupported"
	case ResultCanceledByAuthor:
		return "CanceledByAuthor"
	case ResultFailure:
		return "Failure"
	default:
		return "Unknown"
	}
}

// MarshalText encodes the result by name.
func (r PhaseResult) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// ModState is the lifecycle tag of a mod within a session.
type ModState int

const (
	StateDiscovered ModState = iota
	StateValidated
	StateReady
	StateExcluded
	StatePhaseSucceeded
	StatePhaseSkippedNoCallback
	StatePhaseAlreadyDone
	StatePhaseFailed
	StatePhaseCanceledByMod
)

func (s ModState) String() string {
	switch s {
	case StateDiscovered:
		return "Discovered"
	case StateValidated:
		return "Validated"
	case StateReady:
		return "Ready"
	case StateExcluded:
		return "Excluded"
	case StatePhaseSucceeded:
		return "PhaseSucceeded"
	case StatePhaseSkippedNoCallback:
		return "PhaseSkippedNoCallback"
	case StatePhaseAlreadyDone:
		return "PhaseAlreadyDone"
	case StatePhaseFailed:
		return "PhaseFailed"
	case StatePhaseCanceledByMod:
		return "PhaseCanceledByMod"
	default:
		return "Unknown"
	}
}

// MarshalText encodes the state by name.
func (s ModState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// stateFor maps a phase result onto the lifecycle tag it leaves behind.
func stateFor(r PhaseResult) ModState {
	switch r {
	case ResultSuccess:
		return StatePhaseSucceeded
	case ResultAlreadyLoaded:
		return StatePhaseAlreadyDone
	case ResultNoCallbackForPhase:
		return StatePhaseSkippedNoCallback
	case ResultCanceledByAuthor:
		return StatePhaseCanceledByMod
	case ResultCurrentGameNotSupported:
		return StateExcluded
	default:
		return StatePhaseFailed
	}
}
