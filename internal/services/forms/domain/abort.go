package domain

// AbortCode is a numeric failure raised by the forms contract.
type AbortCode int

const (
	AbortEmptyTitle        AbortCode = 1
	AbortNotAuthor         AbortCode = 2
	AbortFormNotActive     AbortCode = 3
	AbortFormAlreadyActive AbortCode = 4
	AbortInvalidOption     AbortCode = 5
	AbortAlreadyVoted      AbortCode = 6
)

// AbortCodes lists every code the contract declares.
var AbortCodes = []AbortCode{
	AbortEmptyTitle,
	AbortNotAuthor,
	AbortFormNotActive,
	AbortFormAlreadyActive,
	AbortInvalidOption,
	AbortAlreadyVoted,
}

// Known reports whether c is one of AbortCodes.
func (c AbortCode) Known() bool {
	return c >= AbortEmptyTitle && c <= AbortAlreadyVoted
}
