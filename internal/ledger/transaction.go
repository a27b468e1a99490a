package ledger

import "fmt"

// ArgKind identifies how an argument is encoded.
type ArgKind int

const (
	ArgString ArgKind = iota + 1
	ArgStrings
	ArgID
	ArgU64
	ArgObject
	ArgResult
)

func (k ArgKind) String() string {
	switch k {
	case ArgString:
		return "string"
	case ArgStrings:
		return "vector<string>"
	case ArgID:
		return "id"
	case ArgU64:
		return "u64"
	case ArgObject:
		return "object"
	case ArgResult:
		return "result"
	default:
		return fmt.Sprintf("ArgKind(%d)", int(k))
	}
}

// Arg is a typed call argument.
type Arg struct {
	Kind   ArgKind
	Text   string
	Texts  []string
	Number uint64
	Index  int
}

// String encodes s as a pure UTF-8 string.
func String(s string) Arg { return Arg{Kind: ArgString, Text: s} }

// Strings encodes values as a vector of strings, order preserved.
func Strings(values []string) Arg {
	return Arg{Kind: ArgStrings, Texts: append([]string(nil), values...)}
}

// ID encodes an object id as a pure value, not an object reference.
func ID(id string) Arg { return Arg{Kind: ArgID, Text: id} }

// U64 encodes v as an unsigned 64-bit integer.
func U64(v uint64) Arg { return Arg{Kind: ArgU64, Number: v} }

// ObjectRef passes the object with the given id by (mutable) reference.
func ObjectRef(id string) Arg { return Arg{Kind: ArgObject, Text: id} }

// Result passes the output of an earlier call in the same transaction.
func Result(call int) Arg { return Arg{Kind: ArgResult, Index: call} }

// Call is a single Move function invocation.
type Call struct {
	Package  string
	Module   string
	Function string
	Args     []Arg
}

// Target renders the fully qualified function name.
func (c Call) Target() string {
	return c.Package + "::" + c.Module + "::" + c.Function
}

// Transaction is an ordered list of calls executed atomically.
type Transaction struct {
	Calls []Call
	// GasBudget overrides the gateway default when non-zero.
	GasBudget uint64
}

// Validate checks the structural rules shared by every gateway.
func (tx Transaction) Validate() error {
	if len(tx.Calls) == 0 {
		return fmt.Errorf("transaction has no calls")
	}
	for i, call := range tx.Calls {
		if call.Package == "" || call.Module == "" || call.Function == "" {
			return fmt.Errorf("call %d: target is incomplete", i)
		}
		for j, arg := range call.Args {
			if arg.Kind == ArgResult && (arg.Index < 0 || arg.Index >= i) {
				return fmt.Errorf("call %d arg %d: result %d is not an earlier call", i, j, arg.Index)
			}
			if (arg.Kind == ArgObject || arg.Kind == ArgID) && arg.Text == "" {
				return fmt.Errorf("call %d arg %d: %s is empty", i, j, arg.Kind)
			}
		}
	}
	return nil
}
