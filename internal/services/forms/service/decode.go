package service

import (
	"fmt"
	"strconv"

	"github.com/louisbranch/formledger/internal/ledger"
	"github.com/louisbranch/formledger/internal/services/forms/domain"
)

// decodeForm maps a Form object's fields onto the model. Move structs may be
// rendered nested as {type, fields} or flat, and u64 values as strings or
// numbers; both shapes are accepted.
func decodeForm(obj ledger.Object) (domain.Form, error) {
	r := reader{fields: obj.Fields}
	f := domain.Form{
		ID:          r.uid("id"),
		Title:       r.text("title"),
		Description: r.text("description"),
		Author:      r.address("author"),
		IsActive:    r.flag("is_active"),
	}
	for i, raw := range r.list("questions") {
		fields, ok := structFields(raw)
		if !ok {
			return domain.Form{}, fmt.Errorf("question %d is %T", i, raw)
		}
		q, err := decodeQuestion(fields)
		if err != nil {
			return domain.Form{}, fmt.Errorf("question %d: %w", i, err)
		}
		f.Questions = append(f.Questions, q)
	}
	if r.err != nil {
		return domain.Form{}, r.err
	}
	if !ledger.SameID(f.ID, obj.ID) {
		return domain.Form{}, fmt.Errorf("id field %s does not match object %s", f.ID, obj.ID)
	}
	return f, nil
}

func decodeQuestion(fields map[string]any) (domain.Question, error) {
	r := reader{fields: fields}
	q := domain.Question{
		ID:          r.uid("id"),
		Title:       r.text("title"),
		Description: r.text("description"),
		Options:     r.texts("options"),
		Votes:       r.counts("votes"),
		Voters:      r.addresses("addresses"),
	}
	if r.err != nil {
		return domain.Question{}, r.err
	}
	if len(q.Votes) != len(q.Options) {
		return domain.Question{}, fmt.Errorf("%d vote counts for %d options", len(q.Votes), len(q.Options))
	}
	return q, nil
}

func decodeRegistry(obj ledger.Object) (domain.Registry, error) {
	r := reader{fields: obj.Fields}
	reg := domain.Registry{
		ID:      obj.ID,
		FormIDs: r.addresses("forms"),
		Counter: r.count("counter"),
	}
	if r.err != nil {
		return domain.Registry{}, r.err
	}
	return reg, nil
}

// structFields returns the field map of a Move struct value.
func structFields(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	if nested, ok := m["fields"].(map[string]any); ok {
		return nested, true
	}
	return m, true
}

// reader extracts typed fields, keeping the first error.
type reader struct {
	fields map[string]any
	err    error
}

func (r *reader) value(name string) (any, bool) {
	if r.err != nil {
		return nil, false
	}
	v, ok := r.fields[name]
	if !ok {
		r.err = fmt.Errorf("missing field %q", name)
		return nil, false
	}
	return v, true
}

func (r *reader) fail(name string, v any, want string) {
	r.err = fmt.Errorf("field %q is %T, want %s", name, v, want)
}

func (r *reader) text(name string) string {
	v, ok := r.value(name)
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		r.fail(name, v, "string")
	}
	return s
}

func (r *reader) flag(name string) bool {
	v, ok := r.value(name)
	if !ok {
		return false
	}
	b, ok := v.(bool)
	if !ok {
		r.fail(name, v, "bool")
	}
	return b
}

func (r *reader) address(name string) string {
	v, ok := r.value(name)
	if !ok {
		return ""
	}
	return r.normalize(name, v)
}

// uid reads a UID, rendered as {"id": "0x.."} or as a bare string.
func (r *reader) uid(name string) string {
	v, ok := r.value(name)
	if !ok {
		return ""
	}
	if fields, isStruct := structFields(v); isStruct {
		v = fields["id"]
	}
	return r.normalize(name, v)
}

func (r *reader) normalize(name string, v any) string {
	s, ok := v.(string)
	if !ok {
		r.fail(name, v, "id")
		return ""
	}
	id, err := ledger.NormalizeID(s)
	if err != nil {
		r.err = fmt.Errorf("field %q: %w", name, err)
		return ""
	}
	return id
}

func (r *reader) list(name string) []any {
	v, ok := r.value(name)
	if !ok {
		return nil
	}
	if v == nil {
		return nil
	}
	items, ok := v.([]any)
	if !ok {
		r.fail(name, v, "list")
	}
	return items
}

func (r *reader) texts(name string) []string {
	items := r.list(name)
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			r.fail(name, item, "string element")
			return nil
		}
		out = append(out, s)
	}
	return out
}

func (r *reader) addresses(name string) []string {
	items := r.list(name)
	out := make([]string, 0, len(items))
	for _, item := range items {
		if fields, isStruct := structFields(item); isStruct {
			item = fields["id"]
		}
		id := r.normalize(name, item)
		if r.err != nil {
			return nil
		}
		out = append(out, id)
	}
	return out
}

func (r *reader) counts(name string) []uint64 {
	items := r.list(name)
	out := make([]uint64, 0, len(items))
	for _, item := range items {
		n, err := toUint(item)
		if err != nil {
			r.err = fmt.Errorf("field %q: %w", name, err)
			return nil
		}
		out = append(out, n)
	}
	return out
}

func (r *reader) count(name string) uint64 {
	v, ok := r.value(name)
	if !ok {
		return 0
	}
	n, err := toUint(v)
	if err != nil {
		r.err = fmt.Errorf("field %q: %w", name, err)
	}
	return n
}

func toUint(v any) (uint64, error) {
	switch n := v.(type) {
	case string:
		return strconv.ParseUint(n, 10, 64)
	case float64:
		if n < 0 || n != float64(uint64(n)) {
			return 0, fmt.Errorf("%v is not an unsigned integer", n)
		}
		return uint64(n), nil
	default:
		return 0, fmt.Errorf("%T is not a number", v)
	}
}
