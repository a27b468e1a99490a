package domain

import (
	"strings"
	"time"
)

// EventType names a form event variant.
type EventType string

const (
	EventFormListed   EventType = "FormListed"
	EventFormDelisted EventType = "FormDelisted"
	EventUserVoted    EventType = "UserVoted"
	EventFormDeleted  EventType = "FormDeleted"
)

// EventTypes lists every variant in declaration order.
var EventTypes = []EventType{EventFormListed, EventFormDelisted, EventUserVoted, EventFormDeleted}

// ParseEventType matches name case-insensitively against the variants.
func ParseEventType(name string) (EventType, bool) {
	for _, t := range EventTypes {
		if strings.EqualFold(string(t), strings.TrimSpace(name)) {
			return t, true
		}
	}
	return "", false
}

// EventRef locates an event in the ledger history.
type EventRef struct {
	TxDigest string
	Seq      string
}

// Event is one of the four form event variants.
type Event interface {
	Type() EventType
	// CorrelationID is the id of the affected form.
	CorrelationID() string
	AuthorAddress() string
	At() time.Time
	Origin() EventRef
}

// FormListed is emitted when a form becomes active.
type FormListed struct {
	Ref       EventRef
	ID        string
	Author    string
	Timestamp uint64
}

// FormDelisted is emitted when a form becomes inactive.
type FormDelisted struct {
	Ref       EventRef
	FormID    string
	Author    string
	Timestamp uint64
}

// UserVoted is emitted for every accepted vote.
type UserVoted struct {
	Ref       EventRef
	ID        string
	Author    string
	User      string
	Timestamp uint64
}

// FormDeleted is emitted when a form is destroyed.
type FormDeleted struct {
	Ref       EventRef
	FormID    string
	Author    string
	Timestamp uint64
}

func (e FormListed) Type() EventType       { return EventFormListed }
func (e FormListed) CorrelationID() string { return e.ID }
func (e FormListed) AuthorAddress() string { return e.Author }
func (e FormListed) At() time.Time         { return millis(e.Timestamp) }
func (e FormListed) Origin() EventRef      { return e.Ref }

func (e FormDelisted) Type() EventType       { return EventFormDelisted }
func (e FormDelisted) CorrelationID() string { return e.FormID }
func (e FormDelisted) AuthorAddress() string { return e.Author }
func (e FormDelisted) At() time.Time         { return millis(e.Timestamp) }
func (e FormDelisted) Origin() EventRef      { return e.Ref }

func (e UserVoted) Type() EventType       { return EventUserVoted }
func (e UserVoted) CorrelationID() string { return e.ID }
func (e UserVoted) AuthorAddress() string { return e.Author }
func (e UserVoted) At() time.Time         { return millis(e.Timestamp) }
func (e UserVoted) Origin() EventRef      { return e.Ref }

func (e FormDeleted) Type() EventType       { return EventFormDeleted }
func (e FormDeleted) CorrelationID() string { return e.FormID }
func (e FormDeleted) AuthorAddress() string { return e.Author }
func (e FormDeleted) At() time.Time         { return millis(e.Timestamp) }
func (e FormDeleted) Origin() EventRef      { return e.Ref }

func millis(ms uint64) time.Time {
	return time.UnixMilli(int64(ms)).UTC()
}
