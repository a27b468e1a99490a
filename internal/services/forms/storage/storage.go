// Package storage defines persistence contracts for the forms activity
// journal.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/louisbranch/formledger/internal/ledger"
	"github.com/louisbranch/formledger/internal/services/forms/domain"
)

var (
	// ErrNotFound indicates a requested journal record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists indicates the event was already journaled.
	ErrAlreadyExists = errors.New("record already exists")
)

// Entry stores one observed form event.
type Entry struct {
	// Seq is assigned by the store in append order.
	Seq      int64
	TxDigest string
	EventSeq string
	Type     domain.EventType
	FormID   string
	Author   string
	// Voter is set for UserVoted entries.
	Voter      string
	OccurredAt time.Time
	RecordedAt time.Time
}

// EntryFromEvent builds the journal entry for ev.
func EntryFromEvent(ev domain.Event) Entry {
	ref := ev.Origin()
	entry := Entry{
		TxDigest:   ref.TxDigest,
		EventSeq:   ref.Seq,
		Type:       ev.Type(),
		FormID:     ev.CorrelationID(),
		Author:     ev.AuthorAddress(),
		OccurredAt: ev.At(),
	}
	if voted, ok := ev.(domain.UserVoted); ok {
		entry.Voter = voted.User
	}
	return entry
}

// Cursor returns the ledger position of the entry.
func (e Entry) Cursor() ledger.EventID {
	return ledger.EventID{TxDigest: e.TxDigest, EventSeq: e.EventSeq}
}

// EntryQuery selects one page of entries.
type EntryQuery struct {
	// Filter is an AIP-160 expression over type, form_id, author, voter,
	// tx and ts.
	Filter    string
	PageSize  int
	PageToken string
}

// EntryPage stores one page of entries in append order.
type EntryPage struct {
	Entries       []Entry
	NextPageToken string
}

// JournalStore persists observed form events.
type JournalStore interface {
	AppendEntry(ctx context.Context, entry Entry) (Entry, error)
	GetEntry(ctx context.Context, seq int64) (Entry, error)
	ListEntries(ctx context.Context, query EntryQuery) (EntryPage, error)
	// LastEntry returns the most recently appended entry.
	LastEntry(ctx context.Context) (Entry, error)
}
