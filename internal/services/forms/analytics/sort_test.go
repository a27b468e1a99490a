package analytics

import (
	"testing"

	"github.com/louisbranch/formledger/internal/services/forms/domain"
)

func ids(forms []domain.Form) []string {
	out := make([]string, len(forms))
	for i, f := range forms {
		out[i] = f.ID
	}
	return out
}

func sameIDs(got []domain.Form, want ...string) bool {
	g := ids(got)
	if len(g) != len(want) {
		return false
	}
	for i := range g {
		if g[i] != want[i] {
			return false
		}
	}
	return true
}

func TestSortForms(t *testing.T) {
	forms := []domain.Form{
		{ID: "0x02", Title: "beta", Questions: make([]domain.Question, 1)},
		{ID: "0x03", Title: "alpha", Questions: make([]domain.Question, 3)},
		{ID: "0x01", Title: "beta", Questions: make([]domain.Question, 1)},
	}

	tests := []struct {
		key  SortKey
		want []string
	}{
		{SortNewest, []string{"0x03", "0x02", "0x01"}},
		{SortOldest, []string{"0x01", "0x02", "0x03"}},
		{SortTitle, []string{"0x03", "0x02", "0x01"}},
		{SortMostQuestions, []string{"0x03", "0x02", "0x01"}},
		{SortKey("bogus"), []string{"0x02", "0x03", "0x01"}},
	}
	for _, tt := range tests {
		got := SortForms(forms, tt.key)
		if !sameIDs(got, tt.want...) {
			t.Fatalf("SortForms(%s) = %v, want %v", tt.key, ids(got), tt.want)
		}
	}
	if forms[0].ID != "0x02" {
		t.Fatal("input reordered")
	}
}

func TestSortFormsTitleIsNonDecreasing(t *testing.T) {
	forms := []domain.Form{
		{ID: "1", Title: "pear"}, {ID: "2", Title: "apple"}, {ID: "3", Title: "fig"},
		{ID: "4", Title: "apple"}, {ID: "5", Title: "kiwi"},
	}
	got := SortForms(forms, SortTitle)
	for i := 1; i < len(got); i++ {
		if got[i-1].Title > got[i].Title {
			t.Fatalf("titles out of order: %v", got)
		}
	}
	if !sameIDs(got[:2], "2", "4") {
		t.Fatalf("equal titles not stable: %v", ids(got))
	}
}

func TestSortFormsTitleMixedCase(t *testing.T) {
	forms := []domain.Form{
		{ID: "1", Title: "cherry"}, {ID: "2", Title: "apple"}, {ID: "3", Title: "Banana"},
	}
	got := SortForms(forms, SortTitle)
	for i := 1; i < len(got); i++ {
		if got[i-1].Title > got[i].Title {
			t.Fatalf("titles = %v, want non-decreasing", titles(got))
		}
	}
	if !sameIDs(got, "3", "2", "1") {
		t.Fatalf("SortForms(title) = %v, want [Banana apple cherry]", titles(got))
	}
}

func titles(forms []domain.Form) []string {
	out := make([]string, len(forms))
	for i, f := range forms {
		out[i] = f.Title
	}
	return out
}

func TestParseSortKey(t *testing.T) {
	for _, in := range []string{"newest", "OLDEST", " title ", "mostquestions"} {
		if _, err := ParseSortKey(in); err != nil {
			t.Fatalf("ParseSortKey(%q): %v", in, err)
		}
	}
	if _, err := ParseSortKey("popular"); err == nil {
		t.Fatal("expected error")
	}
}

func TestFilterForms(t *testing.T) {
	forms := []domain.Form{
		{ID: "a", Title: "Lunch Poll", Description: "food"},
		{ID: "b", Title: "Retro", Description: "Sprint review", Questions: []domain.Question{{Title: "Best LUNCH spot"}}},
		{ID: "c", Title: "Offsite", Description: "Travel"},
	}

	if got := FilterForms(forms, "  "); len(got) != len(forms) {
		t.Fatalf("blank term = %v, want all", ids(got))
	}
	if got := FilterForms(forms, "lunch"); !sameIDs(got, "a", "b") {
		t.Fatalf("FilterForms = %v, want [a b]", ids(got))
	}
	if got := SearchForms(forms, "LUNCH"); !sameIDs(got, "a") {
		t.Fatalf("SearchForms = %v, want [a]", ids(got))
	}
	if got := FilterForms(forms, "travel"); !sameIDs(got, "c") {
		t.Fatalf("FilterForms = %v, want [c]", ids(got))
	}
	if got := FilterForms(forms, "nothing"); len(got) != 0 {
		t.Fatalf("FilterForms = %v, want none", ids(got))
	}
}
