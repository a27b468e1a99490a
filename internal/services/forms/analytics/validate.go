package analytics

import (
	"strings"
	"unicode/utf8"

	"github.com/louisbranch/formledger/internal/services/forms/i18n"
)

const (
	MaxFormTitleLength       = 100
	MaxFormDescriptionLength = 500
	MaxQuestionTitleLength   = 200
	MinOptions               = 2
	MaxOptions               = 10
	MaxOptionLength          = 100
)

// ValidationResult collects every rule an input violates.
type ValidationResult struct {
	IsValid bool
	Errors  []string
}

type violations []string

func (v violations) result() ValidationResult {
	return ValidationResult{IsValid: len(v) == 0, Errors: v}
}

// ValidateCreateForm checks a new form's title and description.
func ValidateCreateForm(title, description string) ValidationResult {
	return defaultLocalizer.ValidateCreateForm(title, description)
}

// ValidateAddQuestion checks a new question and its options.
func ValidateAddQuestion(title, description string, options []string) ValidationResult {
	return defaultLocalizer.ValidateAddQuestion(title, description, options)
}

// ValidateCreateForm checks a new form's title and description.
func (l Localizer) ValidateCreateForm(title, description string) ValidationResult {
	var errs violations
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)

	if title == "" {
		errs = append(errs, l.sprintf(i18n.ValFormTitleRequired))
	}
	if utf8.RuneCountInString(title) > MaxFormTitleLength {
		errs = append(errs, l.sprintf(i18n.ValFormTitleTooLong, MaxFormTitleLength))
	}
	if description == "" {
		errs = append(errs, l.sprintf(i18n.ValFormDescriptionRequired))
	}
	if utf8.RuneCountInString(description) > MaxFormDescriptionLength {
		errs = append(errs, l.sprintf(i18n.ValFormDescriptionTooLong, MaxFormDescriptionLength))
	}
	return errs.result()
}

// ValidateAddQuestion checks a new question and its options. Options are
// compared after trimming and lowercasing.
func (l Localizer) ValidateAddQuestion(title, description string, options []string) ValidationResult {
	var errs violations
	title = strings.TrimSpace(title)

	if title == "" {
		errs = append(errs, l.sprintf(i18n.ValQuestionTitleRequired))
	}
	if utf8.RuneCountInString(title) > MaxQuestionTitleLength {
		errs = append(errs, l.sprintf(i18n.ValQuestionTitleTooLong, MaxQuestionTitleLength))
	}
	if strings.TrimSpace(description) == "" {
		errs = append(errs, l.sprintf(i18n.ValQuestionDescriptionMissing))
	}
	if len(options) < MinOptions {
		errs = append(errs, l.sprintf(i18n.ValOptionsTooFew, MinOptions))
	}
	if len(options) > MaxOptions {
		errs = append(errs, l.sprintf(i18n.ValOptionsTooMany, MaxOptions))
	}

	seen := make(map[string]struct{}, len(options))
	for i, option := range options {
		option = strings.TrimSpace(option)
		if option == "" {
			errs = append(errs, l.sprintf(i18n.ValOptionEmpty, i+1))
		}
		if utf8.RuneCountInString(option) > MaxOptionLength {
			errs = append(errs, l.sprintf(i18n.ValOptionTooLong, i+1, MaxOptionLength))
		}
		seen[strings.ToLower(option)] = struct{}{}
	}
	if len(seen) != len(options) {
		errs = append(errs, l.sprintf(i18n.ValOptionsNotUnique))
	}
	return errs.result()
}
