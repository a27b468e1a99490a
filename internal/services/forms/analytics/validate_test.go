package analytics

import (
	"strings"
	"testing"

	"golang.org/x/text/language"
)

func TestValidateCreateForm(t *testing.T) {
	tests := []struct {
		name        string
		title       string
		description string
		wantErrs    int
	}{
		{name: "valid", title: "Lunch", description: "Where to eat", wantErrs: 0},
		{name: "trimmed lengths", title: "  " + strings.Repeat("t", 100) + "  ", description: strings.Repeat("d", 500), wantErrs: 0},
		{name: "multibyte title", title: strings.Repeat("é", 100), description: "x", wantErrs: 0},
		{name: "blank title", title: "   ", description: "x", wantErrs: 1},
		{name: "long title", title: strings.Repeat("t", 101), description: "x", wantErrs: 1},
		{name: "missing both", wantErrs: 2},
		{name: "long description", title: "x", description: strings.Repeat("d", 501), wantErrs: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValidateCreateForm(tt.title, tt.description)
			if len(got.Errors) != tt.wantErrs {
				t.Fatalf("errors = %v, want %d", got.Errors, tt.wantErrs)
			}
			if got.IsValid != (tt.wantErrs == 0) {
				t.Fatalf("IsValid = %v with errors %v", got.IsValid, got.Errors)
			}
		})
	}
}

func TestValidateCreateFormMessages(t *testing.T) {
	got := ValidateCreateForm("", strings.Repeat("d", 501))
	want := []string{
		"Form title is required",
		"Form description must be less than 500 characters",
	}
	if strings.Join(got.Errors, "|") != strings.Join(want, "|") {
		t.Fatalf("errors = %q, want %q", got.Errors, want)
	}
}

func TestValidateAddQuestion(t *testing.T) {
	tests := []struct {
		name     string
		options  []string
		wantErrs []string
	}{
		{name: "valid", options: []string{"Yes", "No"}},
		{name: "none", options: nil, wantErrs: []string{"At least 2 options are required"}},
		{name: "one", options: []string{"Yes"}, wantErrs: []string{"At least 2 options are required"}},
		{
			name:     "too many",
			options:  []string{"1", "2", "3", "4", "5", "6", "7", "8", "9", "10", "11"},
			wantErrs: []string{"Maximum 10 options allowed"},
		},
		{
			name:     "empty option",
			options:  []string{"Yes", "  "},
			wantErrs: []string{"Option 2 cannot be empty"},
		},
		{
			name:     "long option",
			options:  []string{strings.Repeat("o", 101), "No"},
			wantErrs: []string{"Option 1 must be less than 100 characters"},
		},
		{
			name:     "duplicate after normalization",
			options:  []string{"Yes", " yes ", "No"},
			wantErrs: []string{"Options must be unique"},
		},
		{
			name:     "several rules",
			options:  []string{""},
			wantErrs: []string{"At least 2 options are required", "Option 1 cannot be empty"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValidateAddQuestion("Pick one", "Any", tt.options)
			if strings.Join(got.Errors, "|") != strings.Join(tt.wantErrs, "|") {
				t.Fatalf("errors = %q, want %q", got.Errors, tt.wantErrs)
			}
			if got.IsValid != (len(tt.wantErrs) == 0) {
				t.Fatalf("IsValid = %v", got.IsValid)
			}
		})
	}
}

func TestValidateAddQuestionTitleAndDescription(t *testing.T) {
	got := ValidateAddQuestion(strings.Repeat("q", 201), " ", []string{"a", "b"})
	want := []string{
		"Question title must be less than 200 characters",
		"Question description is required",
	}
	if strings.Join(got.Errors, "|") != strings.Join(want, "|") {
		t.Fatalf("errors = %q, want %q", got.Errors, want)
	}
	if got := ValidateAddQuestion("", "d", []string{"a", "b"}); len(got.Errors) != 1 {
		t.Fatalf("errors = %q, want one", got.Errors)
	}
}

func TestLocalizedValidation(t *testing.T) {
	l := NewLocalizer(language.MustParse("pt-BR"))
	got := l.ValidateAddQuestion("Q", "D", []string{"a"})
	if len(got.Errors) != 1 || got.Errors[0] != "São necessárias pelo menos 2 opções" {
		t.Fatalf("errors = %q", got.Errors)
	}
	if l.Tag().String() != "pt-BR" {
		t.Fatalf("tag = %s, want pt-BR", l.Tag())
	}
}
