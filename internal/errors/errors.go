// Package errors provides error handling for computegen.
//
// It re-exports github.com/cockroachdb/errors and defines the sentinels that
// classify every failure of a generation run:
//
//   - ErrConfiguration: the run cannot start (missing source root, bad config)
//   - ErrParse: one source file could not be read into descriptors
//   - ErrModel: a descriptor has no rendering rule in some target
//   - ErrIO: a filesystem operation on an output or cache path failed
//
// Errors built with the helpers below are marked with the sentinel, so
// errors.Is keeps working after further wrapping:
//
//	if errors.Is(err, errors.ErrModel) {
//	    // only this target failed
//	}
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New   = crdb.New
	Newf  = crdb.Newf
	Wrap  = crdb.Wrap
	Wrapf = crdb.Wrapf
	Mark  = crdb.Mark
)

// User-facing hints
var (
	WithHint    = crdb.WithHint
	GetAllHints = crdb.GetAllHints
)

// Error inspection
var (
	Is = crdb.Is
	As = crdb.As
)

var (
	// ErrConfiguration aborts a run before any work starts
	ErrConfiguration = New("configuration error")

	// ErrParse marks a source file whose contributions were skipped
	ErrParse = New("parse error")

	// ErrModel marks a construct that a target emitter cannot render
	ErrModel = New("model error")

	// ErrIO marks a failed filesystem operation
	ErrIO = New("io error")
)

// Configurationf creates a configuration error with a formatted message.
func Configurationf(format string, args ...interface{}) error {
	return Mark(Newf(format, args...), ErrConfiguration)
}

// Parsef creates a parse error with a formatted message.
func Parsef(format string, args ...interface{}) error {
	return Mark(Newf(format, args...), ErrParse)
}

// Modelf creates a model error with a formatted message.
func Modelf(format string, args ...interface{}) error {
	return Mark(Newf(format, args...), ErrModel)
}

// IOWrap wraps a filesystem failure of op ("writing", "reading", "removing")
// on path.
func IOWrap(err error, op, path string) error {
	if err == nil {
		return nil
	}
	return Mark(Wrapf(err, "%s %s", op, path), ErrIO)
}

// IsConfiguration reports whether err is or wraps ErrConfiguration
func IsConfiguration(err error) bool {
	return err != nil && Is(err, ErrConfiguration)
}

// IsModel reports whether err is or wraps ErrModel
func IsModel(err error) bool {
	return err != nil && Is(err, ErrModel)
}

// IsIO reports whether err is or wraps ErrIO
func IsIO(err error) bool {
	return err != nil && Is(err, ErrIO)
}
