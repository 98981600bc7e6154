// Package ctberr defines the tagged error categories that flow through the
// tiling pipeline, so the driver can classify a worker failure without
// string matching on error messages.
package ctberr

import (
	"errors"
	"fmt"
)

// Kind identifies the category of a pipeline failure.
type Kind int

const (
	// Config covers invalid flags, unknown profiles, unknown resampling
	// methods, and non-existent output directories.
	Config Kind = iota
	// Source covers raster-open failures, missing SRS, missing geotransform.
	Source
	// Transform covers coordinate-transform construction/evaluation failure.
	Transform
	// Window covers warp construction and raster read failures.
	Window
	// Encode covers catastrophic internal invariant violations in an encoder.
	Encode
	// Io covers file open/write/rename/mkdir failure and out-of-space.
	Io
	// Compress covers gzip finalize failure.
	Compress
)

func (k Kind) String() string {
	switch k {
	case Config:
		return "config"
	case Source:
		return "source"
	case Transform:
		return "transform"
	case Window:
		return "window"
	case Encode:
		return "encode"
	case Io:
		return "io"
	case Compress:
		return "compress"
	default:
		return "unknown"
	}
}

// Coord is the minimal tile-coordinate context attached to a per-tile error.
// Defined locally (rather than importing internal/grid) to keep this
// package dependency-free and usable from every layer of the pipeline.
type Coord struct {
	Zoom uint8
	X, Y uint32
}

// Error wraps an underlying error with a Kind and optional tile coordinate.
type Error struct {
	Kind  Kind
	Coord *Coord
	Err   error
}

func (e *Error) Error() string {
	if e.Coord != nil {
		return fmt.Sprintf("%s: tile %d/%d/%d: %v", e.Kind, e.Coord.Zoom, e.Coord.X, e.Coord.Y, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New wraps err with a Kind and no tile context.
func New(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: err}
}

// At wraps err with a Kind and a tile coordinate.
func At(kind Kind, coord Coord, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Coord: &coord, Err: err}
}

// As extracts the *Error wrapper from err, if present.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsKind reports whether err wraps a *Error of the given Kind.
func IsKind(err error, kind Kind) bool {
	e, ok := As(err)
	return ok && e.Kind == kind
}

// ExitCode maps an error (possibly wrapping a *Error) to a process exit
// status per the propagation policy: Config errors are usage failures (2),
// any other classified error is a worker/runtime failure (1), success is 0.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if e, ok := As(err); ok && e.Kind == Config {
		return 2
	}
	return 1
}
