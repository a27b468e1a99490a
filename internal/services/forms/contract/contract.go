// Package contract binds forms operations to the deployed Move package: entry
// function names, argument encoding and type tags.
package contract

import (
	"strings"

	"github.com/louisbranch/formledger/internal/ledger"
	apperrors "github.com/louisbranch/formledger/internal/platform/errors"
	"github.com/louisbranch/formledger/internal/services/forms/domain"
)

// Module is the Move module holding every forms entry function.
const Module = "form"

// Entry functions.
const (
	FnCreateForm            = "create_form"
	FnTransferFormToCreator = "transfer_form_to_creator"
	FnAddQuestion           = "add_question"
	FnListForm              = "list_form"
	FnDelistForm            = "delist_form"
	FnRelistForm            = "relist_form"
	FnVoteQuestion          = "vote_question"
)

// Struct names.
const (
	StructForm         = "Form"
	StructQuestion     = "Question"
	StructFormRegistry = "FormRegistry"
)

// Binding addresses one deployment of the forms package.
type Binding struct {
	PackageID  string
	RegistryID string
}

// NewBinding normalizes the deployment ids. Both are required.
func NewBinding(packageID, registryID string) (Binding, error) {
	if strings.TrimSpace(packageID) == "" {
		return Binding{}, apperrors.New(apperrors.CodeConfiguration, "package id is required")
	}
	if strings.TrimSpace(registryID) == "" {
		return Binding{}, apperrors.New(apperrors.CodeConfiguration, "registry id is required")
	}
	pkg, err := ledger.NormalizeID(packageID)
	if err != nil {
		return Binding{}, apperrors.Wrap(apperrors.CodeConfiguration, "invalid package id", err)
	}
	registry, err := ledger.NormalizeID(registryID)
	if err != nil {
		return Binding{}, apperrors.Wrap(apperrors.CodeConfiguration, "invalid registry id", err)
	}
	return Binding{PackageID: pkg, RegistryID: registry}, nil
}

// TypeTag returns the fully qualified tag of a struct or event in the module.
func (b Binding) TypeTag(name string) string {
	return b.PackageID + "::" + Module + "::" + name
}

// IsType reports whether tag names the module's struct. Generic parameters
// and package id formatting are ignored.
func (b Binding) IsType(tag, name string) bool {
	if i := strings.IndexByte(tag, '<'); i >= 0 {
		tag = tag[:i]
	}
	parts := strings.Split(tag, "::")
	if len(parts) != 3 || parts[1] != Module || parts[2] != name {
		return false
	}
	return ledger.SameID(parts[0], b.PackageID)
}

// EventTypes returns the tags of the given event types, or of every forms
// event when none are given.
func (b Binding) EventTypes(types ...domain.EventType) []string {
	if len(types) == 0 {
		types = domain.EventTypes
	}
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = b.TypeTag(string(t))
	}
	return out
}

// EventType maps an event tag back to its forms event type.
func (b Binding) EventType(tag string) (domain.EventType, bool) {
	for _, t := range domain.EventTypes {
		if b.IsType(tag, string(t)) {
			return t, true
		}
	}
	return "", false
}

// EventFilter selects the given forms events, or all of them.
func (b Binding) EventFilter(types ...domain.EventType) ledger.EventFilter {
	return ledger.EventFilter{Types: b.EventTypes(types...)}
}

func (b Binding) call(function string, args ...ledger.Arg) ledger.Call {
	return ledger.Call{Package: b.PackageID, Module: Module, Function: function, Args: args}
}
