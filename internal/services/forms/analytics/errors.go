package analytics

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/louisbranch/formledger/internal/services/forms/domain"
	"github.com/louisbranch/formledger/internal/services/forms/i18n"
)

// Severity grades a failure for display.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// ErrorInfo is the user-facing reading of a failure.
type ErrorInfo struct {
	Message   string
	Severity  Severity
	Retryable bool
	// Action is the suggested recovery step, empty when there is none.
	Action string
	// AbortCode is set when the failure was a contract abort.
	AbortCode domain.AbortCode
}

type abortEntry struct {
	message   string
	action    string
	severity  Severity
	retryable bool
}

var abortTable = map[domain.AbortCode]abortEntry{
	domain.AbortEmptyTitle:        {i18n.ErrEmptyTitle, i18n.ActionEmptyTitle, SeverityWarning, true},
	domain.AbortNotAuthor:         {i18n.ErrNotAuthor, i18n.ActionNotAuthor, SeverityError, false},
	domain.AbortFormNotActive:     {i18n.ErrFormNotActive, i18n.ActionFormNotActive, SeverityInfo, true},
	domain.AbortFormAlreadyActive: {i18n.ErrFormAlreadyActive, i18n.ActionFormAlreadyActive, SeverityInfo, true},
	domain.AbortInvalidOption:     {i18n.ErrInvalidOption, i18n.ActionInvalidOption, SeverityWarning, true},
	domain.AbortAlreadyVoted:      {i18n.ErrAlreadyVoted, i18n.ActionAlreadyVoted, SeverityError, false},
}

type textPattern struct {
	substring string
	abortEntry
}

// Patterns are matched in order against the lowercased error text.
var textPatterns = []textPattern{
	{"insufficient gas", abortEntry{i18n.ErrInsufficientGas, i18n.ActionInsufficientGas, SeverityWarning, true}},
	{"object does not exist", abortEntry{i18n.ErrObjectMissing, "", SeverityError, false}},
	{"invalid signature", abortEntry{i18n.ErrInvalidSignature, i18n.ActionInvalidSignature, SeverityError, false}},
	{"network error", abortEntry{i18n.ErrNetwork, i18n.ActionNetwork, SeverityWarning, true}},
}

var abortPatterns = []*regexp.Regexp{
	regexp.MustCompile(`Move abort in .* Abort\((\d+)\)`),
	regexp.MustCompile(`MoveAbort\(.*,\s*(\d+)\)\s+in command`),
}

// ParseAbortCode extracts a contract abort code from ledger error text.
func ParseAbortCode(text string) (domain.AbortCode, bool) {
	for _, re := range abortPatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		code, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		return domain.AbortCode(code), true
	}
	return 0, false
}

// DescribeAbort describes a contract abort code in the default locale.
func DescribeAbort(code domain.AbortCode) ErrorInfo {
	return defaultLocalizer.DescribeAbort(code)
}

// DescribeText describes raw ledger error text in the default locale.
func DescribeText(text string) ErrorInfo {
	return defaultLocalizer.DescribeText(text)
}

// DescribeResult describes a failed mutation in the default locale.
func DescribeResult(r domain.TxResult) ErrorInfo {
	return defaultLocalizer.DescribeResult(r)
}

// DescribeAbort describes a contract abort code. Unknown codes yield the
// generic contract error, retryable, with no action.
func (l Localizer) DescribeAbort(code domain.AbortCode) ErrorInfo {
	entry, ok := abortTable[code]
	if !ok {
		return ErrorInfo{
			Message:   l.sprintf(i18n.ErrUnknownContract),
			Severity:  SeverityError,
			Retryable: true,
			AbortCode: code,
		}
	}
	info := l.render(entry)
	info.AbortCode = code
	return info
}

// DescribeText describes raw ledger error text. An embedded abort code wins
// over the text patterns. Text that matches nothing is returned unchanged.
func (l Localizer) DescribeText(text string) ErrorInfo {
	if code, ok := ParseAbortCode(text); ok {
		return l.DescribeAbort(code)
	}
	lower := strings.ToLower(text)
	for _, p := range textPatterns {
		if strings.Contains(lower, p.substring) {
			return l.render(p.abortEntry)
		}
	}
	if strings.TrimSpace(text) == "" {
		return ErrorInfo{Message: l.sprintf(i18n.ErrUnexpected), Severity: SeverityError, Retryable: true}
	}
	return ErrorInfo{Message: text, Severity: SeverityError, Retryable: true}
}

// DescribeResult describes a failed mutation. Successful results yield the
// zero ErrorInfo.
func (l Localizer) DescribeResult(r domain.TxResult) ErrorInfo {
	switch {
	case r.Success:
		return ErrorInfo{}
	case r.AbortCode != 0:
		return l.DescribeAbort(r.AbortCode)
	case r.Failure != nil && !r.Failure.Code.Retryable():
		info := l.DescribeText(r.Error)
		if info.Message == r.Error {
			info.Severity = SeverityWarning
			info.Retryable = false
		}
		return info
	default:
		return l.DescribeText(r.Error)
	}
}

func (l Localizer) render(e abortEntry) ErrorInfo {
	info := ErrorInfo{
		Message:   l.sprintf(e.message),
		Severity:  e.severity,
		Retryable: e.retryable,
	}
	if e.action != "" {
		info.Action = l.sprintf(e.action)
	}
	return info
}
