package bcs

import "fmt"

// ObjectRef identifies an owned or immutable object at a version.
type ObjectRef struct {
	ID      Address
	Version uint64
	Digest  []byte
}

func (r ObjectRef) encode(e *Encoder) {
	e.Address(r.ID)
	e.U64(r.Version)
	e.ByteVector(r.Digest)
}

// SharedObject references a shared object by its initial version.
type SharedObject struct {
	ID                   Address
	InitialSharedVersion uint64
	Mutable              bool
}

// CallArg is a transaction input. Exactly one field is set.
type CallArg struct {
	Pure       []byte
	ImmOrOwned *ObjectRef
	Shared     *SharedObject
}

func (a CallArg) encode(e *Encoder) error {
	switch {
	case a.Pure != nil:
		e.ULEB128(0)
		e.ByteVector(a.Pure)
	case a.ImmOrOwned != nil:
		e.ULEB128(1)
		e.ULEB128(0)
		a.ImmOrOwned.encode(e)
	case a.Shared != nil:
		e.ULEB128(1)
		e.ULEB128(1)
		e.Address(a.Shared.ID)
		e.U64(a.Shared.InitialSharedVersion)
		e.Bool(a.Shared.Mutable)
	default:
		return fmt.Errorf("call arg has no value")
	}
	return nil
}

// ArgumentKind tags an Argument.
type ArgumentKind uint8

const (
	GasCoin ArgumentKind = iota
	Input
	Result
	NestedResult
)

// Argument refers to a transaction input or an earlier command output.
type Argument struct {
	Kind   ArgumentKind
	Index  uint16
	Nested uint16
}

func (a Argument) encode(e *Encoder) error {
	e.ULEB128(uint64(a.Kind))
	switch a.Kind {
	case GasCoin:
	case Input, Result:
		e.U16(a.Index)
	case NestedResult:
		e.U16(a.Index)
		e.U16(a.Nested)
	default:
		return fmt.Errorf("unknown argument kind %d", a.Kind)
	}
	return nil
}

// MoveCall invokes a Move function. Generic type arguments are not used by
// the forms package and are always encoded empty.
type MoveCall struct {
	Package   Address
	Module    string
	Function  string
	Arguments []Argument
}

func (c MoveCall) encode(e *Encoder) error {
	e.ULEB128(0) // Command::MoveCall
	e.Address(c.Package)
	e.String(c.Module)
	e.String(c.Function)
	e.ULEB128(0)
	e.ULEB128(uint64(len(c.Arguments)))
	for _, arg := range c.Arguments {
		if err := arg.encode(e); err != nil {
			return err
		}
	}
	return nil
}

// GasData pays for the transaction.
type GasData struct {
	Payment []ObjectRef
	Owner   Address
	Price   uint64
	Budget  uint64
}

// TransactionData is a V1 programmable transaction without expiration.
type TransactionData struct {
	Inputs   []CallArg
	Commands []MoveCall
	Sender   Address
	Gas      GasData
}

// Marshal returns the canonical encoding signed by the sender.
func (t TransactionData) Marshal() ([]byte, error) {
	if len(t.Commands) == 0 {
		return nil, fmt.Errorf("transaction has no commands")
	}
	if len(t.Gas.Payment) == 0 {
		return nil, fmt.Errorf("transaction has no gas payment")
	}
	var e Encoder
	e.ULEB128(0) // TransactionData::V1
	e.ULEB128(0) // TransactionKind::ProgrammableTransaction
	e.ULEB128(uint64(len(t.Inputs)))
	for i, input := range t.Inputs {
		if err := input.encode(&e); err != nil {
			return nil, fmt.Errorf("input %d: %w", i, err)
		}
	}
	e.ULEB128(uint64(len(t.Commands)))
	for i, cmd := range t.Commands {
		if err := cmd.encode(&e); err != nil {
			return nil, fmt.Errorf("command %d: %w", i, err)
		}
	}
	e.Address(t.Sender)
	e.ULEB128(uint64(len(t.Gas.Payment)))
	for _, ref := range t.Gas.Payment {
		ref.encode(&e)
	}
	e.Address(t.Gas.Owner)
	e.U64(t.Gas.Price)
	e.U64(t.Gas.Budget)
	e.ULEB128(0) // TransactionExpiration::None
	return e.Bytes(), nil
}
