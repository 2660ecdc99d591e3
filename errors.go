package capstonesys

import (
	"errors"
	"fmt"
)

var (
	// ErrHeaderNotFound indicates no search directory contains the requested header.
	ErrHeaderNotFound = errors.New("header not found")

	// ErrLibraryNotFound indicates the native library could not be located.
	ErrLibraryNotFound = errors.New("library not found")

	// ErrNoLinkType indicates the configuration does not resolve to a link mode.
	ErrNoLinkType = errors.New("must specify link type")

	// ErrUpdateWithoutGenerate indicates the bindings update toggle was set
	// while binding generation is disabled.
	ErrUpdateWithoutGenerate = errors.New(
		`setting UPDATE_CAPSTONE_BINDINGS only makes sense when enabling feature "generate"`)

	// ErrUnsupportedPlatform indicates a build mode that the target cannot use.
	ErrUnsupportedPlatform = errors.New("not supported on target platform")
)

// Kind classifies build failures.
type Kind int

const (
	// KindConfig covers contradictory or missing feature and environment settings.
	KindConfig Kind = iota + 1
	// KindDiscovery covers headers, libraries or sources that could not be found.
	KindDiscovery
	// KindTool covers external tools that are missing or exit non-zero.
	KindTool
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "configuration error"
	case KindDiscovery:
		return "discovery error"
	case KindTool:
		return "tool error"
	default:
		return "error"
	}
}

// Error wraps a build failure with the step that produced it.
//
// None of the kinds are recoverable: the orchestrator stops at the first
// Error and the caller is expected to abort the build.
type Error struct {
	Kind Kind   // Failure class
	Op   string // Step that failed (e.g. "select link mode", "cmake")
	Err  error  // Underlying error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func configError(op string, err error) error {
	return &Error{Kind: KindConfig, Op: op, Err: err}
}

func discoveryError(op string, err error) error {
	return &Error{Kind: KindDiscovery, Op: op, Err: err}
}

func toolError(op string, err error) error {
	return &Error{Kind: KindTool, Op: op, Err: err}
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
