package ledgertest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/louisbranch/formledger/internal/ledger"
)

// Account is a ledger gateway bound to one signing address.
type Account struct {
	ledger *Ledger
	sender string
}

var _ ledger.Gateway = (*Account)(nil)

// Sender returns the signing address.
func (a *Account) Sender() string { return a.sender }

// GetObject returns forms, the registry, or objects stored with PutObject.
func (a *Account) GetObject(ctx context.Context, id string) (ledger.Object, bool, error) {
	if err := a.ledger.takeFailure(); err != nil {
		return ledger.Object{}, false, err
	}
	if err := ctx.Err(); err != nil {
		return ledger.Object{}, false, err
	}
	l := a.ledger
	l.mu.Lock()
	defer l.mu.Unlock()
	if obj, ok := l.raw[id]; ok {
		return obj, true, nil
	}
	if ledger.SameID(id, l.registryID) {
		return l.registryObject(), true, nil
	}
	if f := l.lookup(id); f != nil {
		return l.formObject(f), true, nil
	}
	return ledger.Object{}, false, nil
}

// QueryEvents pages through emitted events.
func (a *Account) QueryEvents(ctx context.Context, query ledger.EventQuery) (ledger.EventPage, error) {
	if err := a.ledger.takeFailure(); err != nil {
		return ledger.EventPage{}, err
	}
	if err := ctx.Err(); err != nil {
		return ledger.EventPage{}, err
	}
	return a.ledger.query(query), nil
}

// SubscribeEvents delivers matching events emitted after the call.
func (a *Account) SubscribeEvents(ctx context.Context, filter ledger.EventFilter, handler func(ledger.RawEvent)) (func(), error) {
	if handler == nil {
		return nil, fmt.Errorf("event handler is required")
	}
	if err := a.ledger.takeFailure(); err != nil {
		return nil, err
	}
	l := a.ledger
	sub := newSubscription(filter, handler)
	l.mu.Lock()
	id := l.nextSub
	l.nextSub++
	l.subs[id] = sub
	l.mu.Unlock()

	unsubscribe := func() {
		l.mu.Lock()
		delete(l.subs, id)
		l.mu.Unlock()
		sub.close()
	}
	go func() {
		select {
		case <-ctx.Done():
			unsubscribe()
		case <-sub.done:
		}
	}()
	return unsubscribe, nil
}

// Submit executes tx atomically. Aborts roll back every change made by the
// transaction and come back as failed receipts.
func (a *Account) Submit(ctx context.Context, tx ledger.Transaction) (ledger.Receipt, error) {
	if a.sender == "" {
		return ledger.Receipt{}, ledger.ErrNoSigner
	}
	if err := a.ledger.takeFailure(); err != nil {
		return ledger.Receipt{}, err
	}
	if err := ctx.Err(); err != nil {
		return ledger.Receipt{}, err
	}
	if err := tx.Validate(); err != nil {
		return ledger.Receipt{}, err
	}
	l := a.ledger
	for i, call := range tx.Calls {
		if !ledger.SameID(call.Package, l.packageID) || call.Module != moduleName {
			return ledger.Receipt{}, fmt.Errorf("call %d: package %s module %s not found", i, call.Package, call.Module)
		}
		if _, ok := functions[call.Function]; !ok {
			return ledger.Receipt{}, fmt.Errorf("call %d: function %s not found", i, call.Target())
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	for _, call := range tx.Calls {
		for _, arg := range call.Args {
			if arg.Kind == ledger.ArgObject && !ledger.SameID(arg.Text, l.registryID) && l.lookup(arg.Text) == nil {
				return ledger.Receipt{}, fmt.Errorf("object does not exist: %s", arg.Text)
			}
		}
	}

	snap := l.snapshot()
	exec := &execution{ledger: l, sender: a.sender, digest: l.nextDigest(), results: make([]*form, len(tx.Calls)), touched: map[string]bool{}, transferred: map[string]bool{}}
	for i, call := range tx.Calls {
		if err := exec.run(i, call); err != nil {
			l.restore(snap)
			return exec.failed(err.Error()), nil
		}
	}
	for i, f := range exec.results {
		if f != nil && !exec.transferred[f.id] {
			l.restore(snap)
			return exec.failed(fmt.Sprintf("UnusedValueWithoutDrop { result_idx: %d, secondary_idx: 0 } in command %d", i, i)), nil
		}
	}

	receipt := ledger.Receipt{Digest: exec.digest, Success: true}
	for _, f := range exec.created {
		receipt.ObjectChanges = append(receipt.ObjectChanges, ledger.ObjectChange{
			Kind: "created", ObjectID: f.id, ObjectType: l.TypeTag("Form"), Sender: a.sender,
			Owner: ledger.Owner{Kind: ledger.OwnerAddress, Address: f.owner}, Version: f.version,
			Digest: l.objectDigest(f.id, f.version),
		})
	}
	for _, id := range exec.order {
		if id == l.registryID {
			l.regVersion++
			receipt.ObjectChanges = append(receipt.ObjectChanges, ledger.ObjectChange{
				Kind: "mutated", ObjectID: id, ObjectType: l.TypeTag("FormRegistry"), Sender: a.sender,
				Owner: ledger.Owner{Kind: ledger.OwnerShared, InitialSharedVersion: 1}, Version: l.regVersion,
				Digest: l.objectDigest(id, l.regVersion),
			})
			continue
		}
		f := l.forms[id]
		f.version++
		receipt.ObjectChanges = append(receipt.ObjectChanges, ledger.ObjectChange{
			Kind: "mutated", ObjectID: id, ObjectType: l.TypeTag("Form"), Sender: a.sender,
			Owner: ledger.Owner{Kind: ledger.OwnerAddress, Address: f.owner}, Version: f.version,
			Digest: l.objectDigest(id, f.version),
		})
	}
	receipt.Events = exec.events
	receipt.Raw, _ = json.Marshal(map[string]any{"digest": exec.digest, "status": "success"})
	l.emit(exec.events)
	return receipt, nil
}

func (l *Ledger) lookup(id string) *form {
	if f, ok := l.forms[id]; ok {
		return f
	}
	norm, err := ledger.NormalizeID(id)
	if err != nil {
		return nil
	}
	return l.forms[norm]
}

type state struct {
	registry   []string
	counter    uint64
	regVersion uint64
	forms      map[string]*form
}

func (l *Ledger) snapshot() state {
	forms := make(map[string]*form, len(l.forms))
	for id, f := range l.forms {
		forms[id] = f.clone()
	}
	return state{
		registry:   append([]string(nil), l.registry...),
		counter:    l.counter,
		regVersion: l.regVersion,
		forms:      forms,
	}
}

// restore rolls state back. The id sequence keeps moving so digests of
// failed transactions stay unique.
func (l *Ledger) restore(s state) {
	l.registry = s.registry
	l.counter = s.counter
	l.regVersion = s.regVersion
	l.forms = s.forms
}

func (f *form) clone() *form {
	c := *f
	c.questions = make([]*question, 0, len(f.questions))
	for _, q := range f.questions {
		qc := *q
		qc.options = append([]string(nil), q.options...)
		qc.votes = append([]uint64(nil), q.votes...)
		qc.addresses = append([]string(nil), q.addresses...)
		c.questions = append(c.questions, &qc)
	}
	return &c
}

// abortError is a Move abort raised by a contract function.
type abortError struct {
	pkg      string
	function string
	code     int
	command  int
}

func (e abortError) Error() string {
	return fmt.Sprintf("MoveAbort(MoveLocation { module: ModuleId { address: %s, name: Identifier(%q) }, function: %d, instruction: 0, function_name: Some(%q) }, %d) in command %d",
		strings.TrimPrefix(e.pkg, "0x"), moduleName, functions[e.function], e.function, e.code, e.command)
}

func argumentMismatch(command, arg int) error {
	return fmt.Errorf("CommandArgumentError { arg_idx: %d, kind: TypeMismatch } in command %d", arg, command)
}
