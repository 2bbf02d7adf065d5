package audio

import "errors"

// Error kinds shared by every engine. Callers wrap them with fmt.Errorf("...: %w", ...)
// and match with errors.Is.
var (
	// ErrConfigMismatch reports a parameter/data shape disagreement, e.g. a noise
	// profile built for a different FFT size.
	ErrConfigMismatch = errors.New("config mismatch")

	// ErrInvalidLevelCount reports a wavelet level count the input cannot support.
	ErrInvalidLevelCount = errors.New("invalid wavelet level count")

	// ErrDegenerateSignal reports a metric that is undefined for the given signal
	// (zero noise power, zero mean energy, ...).
	ErrDegenerateSignal = errors.New("degenerate signal")

	// ErrUnsupportedMethod reports an unknown denoising method name.
	ErrUnsupportedMethod = errors.New("unsupported method")

	// ErrInvalidSignal reports a signal with a non-positive sample rate or
	// non-finite samples.
	ErrInvalidSignal = errors.New("invalid signal")

	// ErrNoSuccessfulUnits is returned when every (file, method) unit of an
	// experiment failed.
	ErrNoSuccessfulUnits = errors.New("no successful units")

	// ErrUnitTimeout marks a (file, method) unit that exceeded its wall-clock bound.
	ErrUnitTimeout = errors.New("unit timed out")
)

// Kind returns the name of the error kind wrapped by err, or "internal" when
// err does not wrap one of the package's sentinels.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConfigMismatch):
		return "config_mismatch"
	case errors.Is(err, ErrInvalidLevelCount):
		return "invalid_level_count"
	case errors.Is(err, ErrDegenerateSignal):
		return "degenerate_signal"
	case errors.Is(err, ErrUnsupportedMethod):
		return "unsupported_method"
	case errors.Is(err, ErrInvalidSignal):
		return "invalid_signal"
	case errors.Is(err, ErrNoSuccessfulUnits):
		return "no_successful_units"
	case errors.Is(err, ErrUnitTimeout):
		return "unit_timeout"
	default:
		return "internal"
	}
}
