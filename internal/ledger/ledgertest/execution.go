package ledgertest

import (
	"encoding/json"
	"fmt"

	"github.com/louisbranch/formledger/internal/ledger"
)

// functions maps the forms module entry points to their index in the
// compiled module, used in abort locations.
var functions = map[string]int{
	"create_form":              0,
	"transfer_form_to_creator": 1,
	"add_question":             2,
	"list_form":                3,
	"delist_form":              4,
	"relist_form":              5,
	"vote_question":            6,
}

type execution struct {
	ledger      *Ledger
	sender      string
	digest      string
	results     []*form
	created     []*form
	transferred map[string]bool
	touched     map[string]bool
	order       []string
	events      []ledger.RawEvent
}

func (e *execution) touch(id string) {
	if e.touched[id] {
		return
	}
	e.touched[id] = true
	e.order = append(e.order, id)
}

func (e *execution) emit(name string, fields map[string]any) {
	fields["timestamp"] = e.ledger.timestamp()
	e.events = append(e.events, e.ledger.event(e.digest, len(e.events), e.sender, name, fields))
}

func (e *execution) failed(reason string) ledger.Receipt {
	raw, _ := json.Marshal(map[string]any{"digest": e.digest, "status": "failure", "error": reason})
	return ledger.Receipt{Digest: e.digest, Error: reason, Raw: raw}
}

func (e *execution) abort(command int, function string, code int) error {
	return abortError{pkg: e.ledger.packageID, function: function, code: code, command: command}
}

func (e *execution) run(command int, call ledger.Call) error {
	args := call.Args
	switch call.Function {
	case "create_form":
		if err := expect(command, args, ledger.ArgString, ledger.ArgString, ledger.ArgObject); err != nil {
			return err
		}
		if !ledger.SameID(args[2].Text, e.ledger.registryID) {
			return argumentMismatch(command, 2)
		}
		if args[0].Text == "" {
			return e.abort(command, call.Function, AbortEmptyTitle)
		}
		f := &form{
			id:          e.ledger.newID(),
			title:       args[0].Text,
			description: args[1].Text,
			author:      e.sender,
			version:     1,
		}
		e.ledger.forms[f.id] = f
		e.ledger.registry = append(e.ledger.registry, f.id)
		e.ledger.counter++
		e.touch(e.ledger.registryID)
		e.results[command] = f
		e.created = append(e.created, f)
		return nil

	case "transfer_form_to_creator":
		if len(args) != 1 {
			return argumentMismatch(command, len(args))
		}
		f, err := e.form(command, 0, args[0])
		if err != nil {
			return err
		}
		f.owner = f.author
		e.transferred[f.id] = true
		if !e.isCreated(f) {
			e.touch(f.id)
		}
		return nil

	case "add_question":
		if err := expect(command, args, ledger.ArgObject, ledger.ArgString, ledger.ArgString, ledger.ArgStrings); err != nil {
			return err
		}
		f, err := e.form(command, 0, args[0])
		if err != nil {
			return err
		}
		if !ledger.SameID(f.author, e.sender) {
			return e.abort(command, call.Function, AbortNotAuthor)
		}
		if args[1].Text == "" {
			return e.abort(command, call.Function, AbortEmptyTitle)
		}
		f.questions = append(f.questions, &question{
			id:          e.ledger.newID(),
			title:       args[1].Text,
			description: args[2].Text,
			options:     append([]string(nil), args[3].Texts...),
			votes:       make([]uint64, len(args[3].Texts)),
		})
		e.touch(f.id)
		return nil

	case "list_form", "relist_form", "delist_form":
		if err := expect(command, args, ledger.ArgObject); err != nil {
			return err
		}
		f, err := e.form(command, 0, args[0])
		if err != nil {
			return err
		}
		if !ledger.SameID(f.author, e.sender) {
			return e.abort(command, call.Function, AbortNotAuthor)
		}
		if call.Function == "delist_form" {
			if !f.active {
				return e.abort(command, call.Function, AbortFormNotActive)
			}
			f.active = false
			e.emit("FormDelisted", map[string]any{"form_id": f.id, "author": f.author})
		} else {
			if f.active {
				return e.abort(command, call.Function, AbortFormAlreadyActive)
			}
			f.active = true
			e.emit("FormListed", map[string]any{"id": f.id, "author": f.author})
		}
		e.touch(f.id)
		return nil

	case "vote_question":
		if err := expect(command, args, ledger.ArgObject, ledger.ArgID, ledger.ArgU64); err != nil {
			return err
		}
		f, err := e.form(command, 0, args[0])
		if err != nil {
			return err
		}
		if !f.active {
			return e.abort(command, call.Function, AbortFormNotActive)
		}
		var q *question
		for _, candidate := range f.questions {
			if ledger.SameID(candidate.id, args[1].Text) {
				q = candidate
				break
			}
		}
		if q == nil || args[2].Number >= uint64(len(q.options)) {
			return e.abort(command, call.Function, AbortInvalidOption)
		}
		for _, addr := range q.addresses {
			if ledger.SameID(addr, e.sender) {
				return e.abort(command, call.Function, AbortAlreadyVoted)
			}
		}
		q.votes[args[2].Number]++
		q.addresses = append(q.addresses, e.sender)
		e.emit("UserVoted", map[string]any{"id": f.id, "author": f.author, "user": e.sender})
		e.touch(f.id)
		return nil
	}
	return fmt.Errorf("function %s not found", call.Function)
}

func (e *execution) isCreated(f *form) bool {
	for _, c := range e.created {
		if c == f {
			return true
		}
	}
	return false
}

// form resolves a form argument passed by reference or as an earlier result.
func (e *execution) form(command, index int, arg ledger.Arg) (*form, error) {
	switch arg.Kind {
	case ledger.ArgResult:
		if f := e.results[arg.Index]; f != nil {
			return f, nil
		}
		return nil, argumentMismatch(command, index)
	case ledger.ArgObject:
		if f := e.ledger.lookup(arg.Text); f != nil {
			return f, nil
		}
		return nil, fmt.Errorf("object does not exist: %s (command %d)", arg.Text, command)
	default:
		return nil, argumentMismatch(command, index)
	}
}

func expect(command int, args []ledger.Arg, kinds ...ledger.ArgKind) error {
	if len(args) != len(kinds) {
		return fmt.Errorf("ArityMismatch in command %d", command)
	}
	for i, kind := range kinds {
		if args[i].Kind != kind {
			return argumentMismatch(command, i)
		}
	}
	return nil
}
