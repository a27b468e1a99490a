package service

import (
	"strings"
	"testing"

	"github.com/louisbranch/formledger/internal/ledger"
	"github.com/louisbranch/formledger/internal/services/forms/contract"
)

const (
	contractForm     = contract.StructForm
	contractRegistry = contract.StructFormRegistry
)

const formObjectID = "0x00000000000000000000000000000000000000000000000000000000000000f1"

func question(fields map[string]any) map[string]any {
	base := map[string]any{
		"id":          map[string]any{"id": "0x11"},
		"title":       "Color",
		"description": "Pick one",
		"options":     []any{"Red", "Blue"},
		"votes":       []any{"3", float64(1)},
		"addresses":   []any{"0xa", "0xb", "0xc", "0xd"},
	}
	for k, v := range fields {
		if v == nil {
			delete(base, k)
			continue
		}
		base[k] = v
	}
	return base
}

func formObject(questions ...any) ledger.Object {
	return ledger.Object{
		ID: formObjectID,
		Fields: map[string]any{
			"id":          map[string]any{"id": "0xf1"},
			"title":       "Colors",
			"description": "Favorite colors",
			"author":      "0xA11CE",
			"is_active":   true,
			"questions":   questions,
		},
	}
}

func TestDecodeFormShapes(t *testing.T) {
	nested := map[string]any{"type": "0x1::form::Question", "fields": question(nil)}
	flat := question(map[string]any{"id": "0x12"})

	f, err := decodeForm(formObject(nested, flat))
	if err != nil {
		t.Fatalf("decodeForm: %v", err)
	}
	if f.ID != formObjectID || f.Title != "Colors" || !f.IsActive {
		t.Fatalf("form = %+v", f)
	}
	if !ledger.SameID(f.Author, "0xa11ce") || !strings.HasPrefix(f.Author, "0x0000") {
		t.Fatalf("author = %q, want normalized", f.Author)
	}
	if len(f.Questions) != 2 {
		t.Fatalf("questions = %d, want 2", len(f.Questions))
	}
	q := f.Questions[0]
	if q.Votes[0] != 3 || q.Votes[1] != 1 || len(q.Voters) != 4 || !q.HasVoted("0xC") {
		t.Fatalf("question = %+v", q)
	}
	if !ledger.SameID(f.Questions[1].ID, "0x12") {
		t.Fatalf("flat question id = %q", f.Questions[1].ID)
	}
}

func TestDecodeFormRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		obj  ledger.Object
		want string
	}{
		{"question not a struct", formObject("nope"), "question 0"},
		{"votes out of step", formObject(question(map[string]any{"votes": []any{"1"}})), "1 vote counts for 2 options"},
		{"bad vote count", formObject(question(map[string]any{"votes": []any{"x", "1"}})), "votes"},
		{"missing title", formObject(question(map[string]any{"title": nil})), "title"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeForm(tt.obj)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want %q", err, tt.want)
			}
		})
	}

	obj := formObject()
	obj.ID = "0xf2"
	if _, err := decodeForm(obj); err == nil {
		t.Fatal("expected id mismatch")
	}
}

func TestDecodeRegistry(t *testing.T) {
	reg, err := decodeRegistry(ledger.Object{
		ID:     "0xr",
		Fields: map[string]any{"forms": []any{"0x1", map[string]any{"id": "0x2"}}, "counter": float64(2)},
	})
	if err != nil {
		t.Fatalf("decodeRegistry: %v", err)
	}
	if reg.Counter != 2 || len(reg.FormIDs) != 2 || !ledger.SameID(reg.FormIDs[1], "0x2") {
		t.Fatalf("registry = %+v", reg)
	}
	if _, err := decodeRegistry(ledger.Object{Fields: map[string]any{"forms": []any{}, "counter": "-1"}}); err == nil {
		t.Fatal("expected counter error")
	}
}
