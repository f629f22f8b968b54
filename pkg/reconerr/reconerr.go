// Package reconerr defines the failure taxonomy shared by every stage of the
// silhouette reconstruction pipeline.
//
// Each stage validates its own inputs and fails fast with a specific Kind.
// Nothing is retried: every stage is a deterministic function of its input,
// so the same input reproduces the same failure.
package reconerr

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Kind classifies a reconstruction failure.
type Kind int

const (
	// InvalidInput covers malformed or wrongly shaped masks and grids and
	// non-positive resolutions.
	InvalidInput Kind = iota + 1

	// EmptyReconstruction means carving produced an entirely empty (or
	// entirely full) volume. It is a notable terminal state, not a crash.
	EmptyReconstruction

	// ExtractionFailure means the iso-surface extractor could not process
	// the scalar field.
	ExtractionFailure
)

func (k Kind) String() string {
	switch k {
	case InvalidInput:
		return "InvalidInput"
	case EmptyReconstruction:
		return "EmptyReconstruction"
	case ExtractionFailure:
		return "ExtractionFailure"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Stage names a step of the reconstruction pipeline.
type Stage string

const (
	StageNotStarted     Stage = "NotStarted"
	StageMasksCollected Stage = "MasksCollected"
	StageRasterized     Stage = "Rasterized"
	StageCarved         Stage = "Carved"
	StageRegularized    Stage = "Regularized"
	StageExtracted      Stage = "Extracted"
	StageCentered       Stage = "Centered"
)

// Error is a failure tagged with the stage it happened in and its kind.
type Error struct {
	Stage Stage
	Kind  Kind
	Err   error
}

func (e *Error) Error() string {
	msg := e.Err.Error()
	var inner *Error
	if stderrors.As(e.Err, &inner) && inner.Stage == "" && inner.Kind == e.Kind {
		// A stageless inner error already printed the same kind.
		msg = strings.Replace(msg, e.Kind.String()+": ", "", 1)
	}
	if e.Stage == "" {
		return fmt.Sprintf("%s: %s", e.Kind, msg)
	}
	return fmt.Sprintf("%s during %s: %s", e.Kind, e.Stage, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an Error from a formatted message.
func New(kind Kind, format string, args ...interface{}) error {
	return &Error{Kind: kind, Err: errors.Errorf(format, args...)}
}

// Wrap tags err with a kind and context message. A nil err yields nil.
func Wrap(kind Kind, err error, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: errors.Wrap(err, message)}
}

// AtStage attaches a pipeline stage to err. Errors that already carry a
// kind keep it; anything else is classified with fallback. Context wrapped
// around err is kept.
func AtStage(stage Stage, fallback Kind, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if stderrors.As(err, &e) {
		if e.Stage == "" {
			return &Error{Stage: stage, Kind: e.Kind, Err: err}
		}
		return err
	}
	return &Error{Stage: stage, Kind: fallback, Err: err}
}

// KindOf returns the kind of err, or 0 if err carries none.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// StageOf returns the stage recorded on err, or "" if none.
func StageOf(err error) Stage {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Stage
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
