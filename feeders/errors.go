package feeders

import "errors"

// Static error definitions for feeders
var (
	ErrUnsupportedFileType = errors.New("unsupported config file type")
	ErrEnvInvalidStructure = errors.New("expected pointer to struct")
	ErrEnvUnsupportedType  = errors.New("unsupported field type")
	ErrEnvInvalidMapEntry  = errors.New("invalid map entry, expected key=value")
	ErrEnvFieldCannotBeSet = errors.New("field cannot be set")
)
