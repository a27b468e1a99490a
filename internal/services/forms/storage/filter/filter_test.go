package filter

import (
	"reflect"
	"testing"
	"time"
)

const formID = "0x000000000000000000000000000000000000000000000000000000000000f00d"

func TestParseEntryFilter_TypeEquals(t *testing.T) {
	cond, err := ParseEntryFilter(`type = "UserVoted"`)
	if err != nil {
		t.Fatalf("parse filter: %v", err)
	}
	if cond.Clause != "event_type = ?" {
		t.Fatalf("Clause = %q, want %q", cond.Clause, "event_type = ?")
	}
	if !reflect.DeepEqual(cond.Params, []any{"UserVoted"}) {
		t.Fatalf("Params = %v", cond.Params)
	}
}

func TestParseEntryFilter_Empty(t *testing.T) {
	cond, err := ParseEntryFilter(" ")
	if err != nil {
		t.Fatalf("parse filter: %v", err)
	}
	if cond.Clause != "" || cond.Params != nil {
		t.Fatalf("expected empty condition, got %+v", cond)
	}
}

func TestParseEntryFilter_NormalizesAddresses(t *testing.T) {
	cond, err := ParseEntryFilter(`type = "UserVoted" AND form_id = "0xF00D"`)
	if err != nil {
		t.Fatalf("parse filter: %v", err)
	}
	if cond.Clause != "(event_type = ? AND form_id = ?)" {
		t.Fatalf("Clause = %q", cond.Clause)
	}
	if !reflect.DeepEqual(cond.Params, []any{"UserVoted", formID}) {
		t.Fatalf("Params = %v", cond.Params)
	}

	if _, err := ParseEntryFilter(`voter = "not hex"`); err == nil {
		t.Fatal("expected error for malformed address")
	}
}

func TestParseEntryFilter_OrNot(t *testing.T) {
	cond, err := ParseEntryFilter(`type = "FormListed" OR type = "FormDelisted"`)
	if err != nil {
		t.Fatalf("parse filter: %v", err)
	}
	if cond.Clause != "(event_type = ? OR event_type = ?)" {
		t.Fatalf("Clause = %q", cond.Clause)
	}

	cond, err = ParseEntryFilter(`NOT type = "UserVoted"`)
	if err != nil {
		t.Fatalf("parse filter: %v", err)
	}
	if cond.Clause != "(NOT event_type = ?)" {
		t.Fatalf("Clause = %q", cond.Clause)
	}
}

func TestParseEntryFilter_Timestamp(t *testing.T) {
	cond, err := ParseEntryFilter(`ts >= timestamp("2025-01-01T00:00:00Z")`)
	if err != nil {
		t.Fatalf("parse filter: %v", err)
	}
	if cond.Clause != "occurred_at >= ?" {
		t.Fatalf("Clause = %q", cond.Clause)
	}
	want := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli()
	if len(cond.Params) != 1 || cond.Params[0] != want {
		t.Fatalf("Params = %v, want [%d]", cond.Params, want)
	}
}

func TestParseEntryFilter_Invalid(t *testing.T) {
	tests := []string{
		`unknown = "x"`,
		`ts = duration("1h")`,
		`ts = timestamp("not-a-time")`,
		`type = `,
	}
	for _, input := range tests {
		if _, err := ParseEntryFilter(input); err == nil {
			t.Fatalf("ParseEntryFilter(%q) expected error", input)
		}
	}
}
