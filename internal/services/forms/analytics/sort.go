package analytics

import (
	"fmt"
	"slices"
	"strings"

	"github.com/louisbranch/formledger/internal/services/forms/domain"
)

// SortKey selects the ordering applied by SortForms.
type SortKey string

const (
	// SortNewest and SortOldest order by object id. Ids only track creation
	// order when the ledger assigns them monotonically, which Sui does not
	// promise.
	SortNewest        SortKey = "newest"
	SortOldest        SortKey = "oldest"
	SortTitle         SortKey = "title"
	SortMostQuestions SortKey = "mostQuestions"
)

// SortKeys lists the accepted keys.
var SortKeys = []SortKey{SortNewest, SortOldest, SortTitle, SortMostQuestions}

// ParseSortKey parses a key case-insensitively.
func ParseSortKey(s string) (SortKey, error) {
	s = strings.TrimSpace(s)
	for _, key := range SortKeys {
		if strings.EqualFold(s, string(key)) {
			return key, nil
		}
	}
	return "", fmt.Errorf("unknown sort key %q", s)
}

// SortForms returns a stably sorted copy of forms. Titles compare byte-wise,
// so uppercase sorts before lowercase.
func SortForms(forms []domain.Form, key SortKey) []domain.Form {
	out := slices.Clone(forms)
	var cmp func(a, b domain.Form) int
	switch key {
	case SortNewest:
		cmp = func(a, b domain.Form) int { return strings.Compare(b.ID, a.ID) }
	case SortOldest:
		cmp = func(a, b domain.Form) int { return strings.Compare(a.ID, b.ID) }
	case SortTitle:
		cmp = func(a, b domain.Form) int { return strings.Compare(a.Title, b.Title) }
	case SortMostQuestions:
		cmp = func(a, b domain.Form) int { return len(b.Questions) - len(a.Questions) }
	default:
		return out
	}
	slices.SortStableFunc(out, cmp)
	return out
}

// FilterForms keeps forms whose title, description, or any question title
// or description contains term, ignoring case. A blank term keeps
// everything.
func FilterForms(forms []domain.Form, term string) []domain.Form {
	return filter(forms, term, true)
}

// SearchForms is FilterForms restricted to form titles and descriptions.
func SearchForms(forms []domain.Form, term string) []domain.Form {
	return filter(forms, term, false)
}

func filter(forms []domain.Form, term string, questions bool) []domain.Form {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return forms
	}
	contains := func(s string) bool {
		return strings.Contains(strings.ToLower(s), term)
	}

	var out []domain.Form
	for _, f := range forms {
		match := contains(f.Title) || contains(f.Description)
		if !match && questions {
			match = slices.ContainsFunc(f.Questions, func(q domain.Question) bool {
				return contains(q.Title) || contains(q.Description)
			})
		}
		if match {
			out = append(out, f)
		}
	}
	return out
}
