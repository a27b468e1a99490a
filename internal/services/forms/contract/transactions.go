package contract

import (
	"strings"

	"github.com/louisbranch/formledger/internal/ledger"
	apperrors "github.com/louisbranch/formledger/internal/platform/errors"
	"github.com/louisbranch/formledger/internal/services/forms/analytics"
)

// CreateForm creates a form and hands it to the sender in one transaction:
// create_form's result feeds transfer_form_to_creator.
func (b Binding) CreateForm(title, description string) (ledger.Transaction, error) {
	if v := analytics.ValidateCreateForm(title, description); !v.IsValid {
		return ledger.Transaction{}, invalid(v)
	}
	return ledger.Transaction{Calls: []ledger.Call{
		b.call(FnCreateForm, ledger.String(title), ledger.String(description), ledger.ObjectRef(b.RegistryID)),
		b.call(FnTransferFormToCreator, ledger.Result(0)),
	}}, nil
}

// TransferFormToCreator returns an existing form to its author.
func (b Binding) TransferFormToCreator(formID string) (ledger.Transaction, error) {
	return b.formCall(FnTransferFormToCreator, formID)
}

// AddQuestion appends a question with the given options.
func (b Binding) AddQuestion(formID, title, description string, options []string) (ledger.Transaction, error) {
	id, err := objectID("form id", formID)
	if err != nil {
		return ledger.Transaction{}, err
	}
	if v := analytics.ValidateAddQuestion(title, description, options); !v.IsValid {
		return ledger.Transaction{}, invalid(v)
	}
	return ledger.Transaction{Calls: []ledger.Call{
		b.call(FnAddQuestion, ledger.ObjectRef(id), ledger.String(title), ledger.String(description), ledger.Strings(options)),
	}}, nil
}

// ListForm makes a form public.
func (b Binding) ListForm(formID string) (ledger.Transaction, error) {
	return b.formCall(FnListForm, formID)
}

// DelistForm hides a listed form.
func (b Binding) DelistForm(formID string) (ledger.Transaction, error) {
	return b.formCall(FnDelistForm, formID)
}

// RelistForm makes a delisted form public again.
func (b Binding) RelistForm(formID string) (ledger.Transaction, error) {
	return b.formCall(FnRelistForm, formID)
}

// VoteQuestion votes for option on the question with questionID. The
// contract addresses questions by id, not position.
func (b Binding) VoteQuestion(formID, questionID string, option uint64) (ledger.Transaction, error) {
	id, err := objectID("form id", formID)
	if err != nil {
		return ledger.Transaction{}, err
	}
	qid, err := objectID("question id", questionID)
	if err != nil {
		return ledger.Transaction{}, err
	}
	return ledger.Transaction{Calls: []ledger.Call{
		b.call(FnVoteQuestion, ledger.ObjectRef(id), ledger.ID(qid), ledger.U64(option)),
	}}, nil
}

func (b Binding) formCall(function, formID string) (ledger.Transaction, error) {
	id, err := objectID("form id", formID)
	if err != nil {
		return ledger.Transaction{}, err
	}
	return ledger.Transaction{Calls: []ledger.Call{b.call(function, ledger.ObjectRef(id))}}, nil
}

func objectID(field, value string) (string, error) {
	if strings.TrimSpace(value) == "" {
		return "", apperrors.New(apperrors.CodeInvalidArgument, field+" is required")
	}
	id, err := ledger.NormalizeID(value)
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeInvalidArgument, "invalid "+field, err)
	}
	return id, nil
}

func invalid(v analytics.ValidationResult) error {
	return apperrors.WithMetadata(apperrors.CodeInvalidArgument, strings.Join(v.Errors, "; "), map[string]string{
		"violations": strings.Join(v.Errors, "\n"),
	})
}
