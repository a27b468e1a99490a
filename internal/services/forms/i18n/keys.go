package i18n

// Contract abort messages.
const (
	ErrEmptyTitle        = "errors.contract.empty_title"
	ErrNotAuthor         = "errors.contract.not_author"
	ErrFormNotActive     = "errors.contract.form_not_active"
	ErrFormAlreadyActive = "errors.contract.form_already_active"
	ErrInvalidOption     = "errors.contract.invalid_option"
	ErrAlreadyVoted      = "errors.contract.already_voted"
	ErrUnknownContract   = "errors.contract.unknown"
)

// Ledger failure messages keyed by the text pattern that triggers them.
const (
	ErrInsufficientGas  = "errors.pattern.insufficient_gas"
	ErrObjectMissing    = "errors.pattern.object_missing"
	ErrInvalidSignature = "errors.pattern.invalid_signature"
	ErrNetwork          = "errors.pattern.network"
	ErrUnexpected       = "errors.unexpected"
)

// Suggested recovery actions.
const (
	ActionEmptyTitle        = "actions.empty_title"
	ActionNotAuthor         = "actions.not_author"
	ActionFormNotActive     = "actions.form_not_active"
	ActionFormAlreadyActive = "actions.form_already_active"
	ActionInvalidOption     = "actions.invalid_option"
	ActionAlreadyVoted      = "actions.already_voted"
	ActionInsufficientGas   = "actions.insufficient_gas"
	ActionNetwork           = "actions.network"
	ActionInvalidSignature  = "actions.invalid_signature"
)

// Validation messages.
const (
	ValFormTitleRequired          = "validation.form_title_required"
	ValFormTitleTooLong           = "validation.form_title_too_long"
	ValFormDescriptionRequired    = "validation.form_description_required"
	ValFormDescriptionTooLong     = "validation.form_description_too_long"
	ValQuestionTitleRequired      = "validation.question_title_required"
	ValQuestionTitleTooLong       = "validation.question_title_too_long"
	ValQuestionDescriptionMissing = "validation.question_description_required"
	ValOptionsTooFew              = "validation.options_too_few"
	ValOptionsTooMany             = "validation.options_too_many"
	ValOptionEmpty                = "validation.option_empty"
	ValOptionTooLong              = "validation.option_too_long"
	ValOptionsNotUnique           = "validation.options_not_unique"
)

// Display strings.
const (
	DisplayJustNow         = "display.just_now"
	DisplayMinuteAgo       = "display.minute_ago"
	DisplayMinutesAgo      = "display.minutes_ago"
	DisplayHourAgo         = "display.hour_ago"
	DisplayHoursAgo        = "display.hours_ago"
	DisplayDayAgo          = "display.day_ago"
	DisplayDaysAgo         = "display.days_ago"
	DisplayTimestampLayout = "display.timestamp_layout"
)
