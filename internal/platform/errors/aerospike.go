package errors

// Aerospike-specific helpers for mapping client errors to project ErrorCode and retry semantics

import (
	"context"
	stderrs "errors"
	"fmt"

	as "github.com/aerospike/aerospike-client-go/v7"
	"github.com/aerospike/aerospike-client-go/v7/types"
)

// ExtractAerospikeError returns (*as.AerospikeError, true) if any error in the chain is one
func ExtractAerospikeError(err error) (*as.AerospikeError, bool) {
	var ae *as.AerospikeError
	if stderrs.As(err, &ae) && ae != nil {
		return ae, true
	}
	return nil, false
}

// ResultCode returns the Aerospike result code carried by err, ok=false when there is none
func ResultCode(err error) (types.ResultCode, bool) {
	ae, ok := ExtractAerospikeError(err)
	if !ok {
		return 0, false
	}
	return ae.ResultCode, true
}

// ResultString renders the result code and its server text, e.g. "2 (Key not found)"
// Returns "" when err carries no result code
func ResultString(err error) string {
	rc, ok := ResultCode(err)
	if !ok {
		return ""
	}
	return fmt.Sprintf("%d (%s)", int(rc), types.ResultCodeToString(rc))
}

// IsKeyNotFound reports whether the record vanished before we acted on it
func IsKeyNotFound(err error) bool {
	rc, ok := ResultCode(err)
	return ok && rc == types.KEY_NOT_FOUND_ERROR
}

// AerospikeErrorCode maps an Aerospike result code to an ErrorCode with an ok flag
// !ok means err wasn't an AerospikeError; caller may fall back to generic handling
func AerospikeErrorCode(err error) (ErrorCode, bool) {
	rc, ok := ResultCode(err)
	if !ok {
		return ErrorCodeUnknown, false
	}

	switch rc {
	case types.KEY_NOT_FOUND_ERROR, types.INVALID_NAMESPACE:
		return ErrorCodeNotFound, true

	case types.TIMEOUT, types.MAX_RETRIES_EXCEEDED:
		return ErrorCodeTimeout, true

	case types.NOT_AUTHENTICATED, types.ROLE_VIOLATION, types.INVALID_USER,
		types.INVALID_PASSWORD, types.FAIL_FORBIDDEN:
		return ErrorCodeForbidden, true

	case types.SERVER_NOT_AVAILABLE, types.INVALID_NODE_ERROR,
		types.NO_AVAILABLE_CONNECTIONS_TO_NODE, types.NETWORK_ERROR:
		return ErrorCodeConnection, true

	case types.KEY_BUSY, types.DEVICE_OVERLOAD, types.PARTITION_UNAVAILABLE:
		return ErrorCodeUnavailable, true

	case types.SCAN_ABORT:
		return ErrorCodeScan, true

	case types.PARAMETER_ERROR:
		return ErrorCodeInvalidArgument, true
	}
	return ErrorCodeUnknown, true
}

// FromAerospike wraps an aerospike error with a mapped ErrorCode and message.
// fallback is used when the result code has no specific mapping. If err is nil, returns nil
func FromAerospike(err error, fallback ErrorCode, msg string) error {
	if err == nil {
		return nil
	}
	if code, ok := AerospikeErrorCode(err); ok && code != ErrorCodeUnknown {
		return Wrap(err, code, msg)
	}
	return Wrap(err, fallback, msg)
}

// FromAerospikef is the formatted variant of FromAerospike
func FromAerospikef(err error, fallback ErrorCode, format string, a ...any) error {
	return FromAerospike(err, fallback, fmt.Sprintf(format, a...))
}

// IsAerospikeRetryable reports whether the store reported a transient condition
func IsAerospikeRetryable(err error) bool {
	if err == nil {
		return false
	}
	if stderrs.Is(err, context.Canceled) || stderrs.Is(err, context.DeadlineExceeded) {
		return false
	}
	rc, ok := ResultCode(err)
	if !ok {
		return false
	}
	switch rc {
	case types.TIMEOUT, types.KEY_BUSY, types.DEVICE_OVERLOAD,
		types.NO_AVAILABLE_CONNECTIONS_TO_NODE, types.PARTITION_UNAVAILABLE,
		types.SERVER_NOT_AVAILABLE, types.NETWORK_ERROR:
		return true
	default:
		return false
	}
}
