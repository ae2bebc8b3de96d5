package segmm

import "errors"

// Every failure that aborts a run wraps exactly one of these, so callers can
// tell them apart with errors.Is. Samples silently dropped by the inner join
// are not errors and never wrap any of them.
var (
	// ErrConfiguration covers invalid feature combinations, bad reference
	// headers, mutually exclusive options and missing required inputs.
	ErrConfiguration = errors.New("configuration error")

	// ErrExternalTool covers non-zero exits and unreadable output from
	// alignment or depth tools.
	ErrExternalTool = errors.New("external tool error")

	// ErrComputation covers arithmetic and record-shape failures while
	// deriving features.
	ErrComputation = errors.New("computation error")
)
