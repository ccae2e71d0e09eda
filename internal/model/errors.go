package model

import "errors"

// Error taxonomy shared by the workflow, runner and feed packages
var (
	ErrInputMissing      = errors.New("no input source supplied")
	ErrInvalidParameter  = errors.New("invalid parameter")
	ErrExecutionTimeout  = errors.New("execution timeout")
	ErrExecutionFailure  = errors.New("execution failure")
	ErrFilesystem        = errors.New("filesystem error")
	ErrFeedFieldMissing  = errors.New("feed field missing")
	ErrNoCandidate       = errors.New("no candidate record")
	ErrInvalidFaultModel = errors.New("invalid fault model")
)
