// Package analytics holds the side-effect-free helpers layered over the forms
// data model: input validation, vote statistics, sorting and filtering,
// error classification and display formatting.
//
// Package-level functions render messages in the default locale. A Localizer
// renders the same results for another locale.
package analytics
