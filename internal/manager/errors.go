package manager

import "errors"

var (
	// ErrUnsupportedPlatform means no backend can run on this host.
	ErrUnsupportedPlatform = errors.New("unsupported platform: no usable backend")
	// ErrBackendUnavailable means a backend cannot start here; the next ranked backend is tried.
	ErrBackendUnavailable = errors.New("backend unavailable")
	// ErrModelLoad means the model could not be fetched or parsed.
	ErrModelLoad = errors.New("model load failed")
	// ErrInitializationFailed means every ranked backend failed.
	ErrInitializationFailed = errors.New("initialization failed")
	// ErrNotReady means generate was called outside the Ready phase.
	ErrNotReady = errors.New("session not ready")
	// ErrGeneration means a stream failed mid-generation. The engine stays loaded.
	ErrGeneration = errors.New("generation failed")
)

// initFailedError keeps the last backend error message intact.
type initFailedError struct{ last error }

func (e initFailedError) Error() string {
	if e.last == nil {
		return "failed to initialize any backend"
	}
	return "failed to initialize any backend: " + e.last.Error()
}

func (e initFailedError) Is(target error) bool { return target == ErrInitializationFailed }

func (e initFailedError) Unwrap() error { return e.last }

// ErrModelNotFound returns an error when a requested model id is not present in the registry.
type modelNotFoundError struct{ id string }

func (e modelNotFoundError) Error() string { return "model not found: " + e.id }

func ErrModelNotFound(id string) error { return modelNotFoundError{id: id} }

// IsModelNotFound reports whether the error indicates a missing model id.
func IsModelNotFound(err error) bool {
	var e modelNotFoundError
	return errors.As(err, &e)
}

// IsNotReady reports whether err is a rejected generate call (return 409).
func IsNotReady(err error) bool { return errors.Is(err, ErrNotReady) }

// IsInitializationFailed reports whether every backend failed to initialize.
func IsInitializationFailed(err error) bool { return errors.Is(err, ErrInitializationFailed) }

// IsUnsupportedPlatform reports whether the probe found no backend.
func IsUnsupportedPlatform(err error) bool { return errors.Is(err, ErrUnsupportedPlatform) }

// IsBackendUnavailable reports whether err is a recoverable backend start failure.
func IsBackendUnavailable(err error) bool { return errors.Is(err, ErrBackendUnavailable) }
