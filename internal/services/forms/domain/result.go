package domain

import (
	"encoding/json"

	"github.com/louisbranch/formledger/internal/ledger"
	apperrors "github.com/louisbranch/formledger/internal/platform/errors"
)

// TxResult is the outcome of a mutation. Exactly one of TransactionID and
// Error is set.
type TxResult struct {
	Success       bool
	TransactionID string
	// Error is the user-facing failure message.
	Error string
	// Failure carries the classified error code and metadata.
	Failure *apperrors.Error
	// AbortCode is the contract abort code, zero when the failure was not
	// a contract abort.
	AbortCode     AbortCode
	ObjectChanges []ledger.ObjectChange
	Raw           json.RawMessage
	// FormID is the form the transaction targeted or created.
	FormID string
	// Form is the affected form re-read after a successful write, nil when
	// the re-read found nothing.
	Form *Form
}

// Failed builds an unsuccessful result from a domain error.
func Failed(err *apperrors.Error) TxResult {
	return TxResult{Error: err.Message, Failure: err}
}
