// Package errors provides structured error handling with coded failures.
package errors

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Input errors, raised before anything reaches the ledger.
	CodeInvalidArgument  Code = "INVALID_ARGUMENT"
	CodeValidationFailed Code = "VALIDATION_FAILED"

	// Read errors
	CodeNotFound    Code = "NOT_FOUND"
	CodeDecodeError Code = "DECODE_ERROR"

	// Ledger errors
	CodeTransactionFailed Code = "TRANSACTION_FAILED"
	CodeNetworkError      Code = "NETWORK_ERROR"

	// Process errors
	CodeConfiguration Code = "CONFIGURATION_ERROR"
)

// Retryable reports whether an operation failing with this code may succeed
// when repeated without changing its inputs.
func (c Code) Retryable() bool {
	switch c {
	case CodeNetworkError, CodeTransactionFailed, CodeUnknown:
		return true
	default:
		return false
	}
}
