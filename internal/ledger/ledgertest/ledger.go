// Package ledgertest provides an in-memory ledger that executes the forms
// package the way the deployed contract does, for tests and local runs.
package ledgertest

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/louisbranch/formledger/internal/ledger"
)

// Contract abort codes.
const (
	AbortEmptyTitle        = 1
	AbortNotAuthor         = 2
	AbortFormNotActive     = 3
	AbortFormAlreadyActive = 4
	AbortInvalidOption     = 5
	AbortAlreadyVoted      = 6
)

const moduleName = "form"

type question struct {
	id          string
	title       string
	description string
	options     []string
	votes       []uint64
	addresses   []string
}

type form struct {
	id          string
	title       string
	description string
	author      string
	owner       string
	questions   []*question
	active      bool
	version     uint64
}

// Ledger is a thread-safe in-memory ledger. Ownership of object arguments is
// not enforced, so any account may vote on any form.
type Ledger struct {
	mu         sync.Mutex
	packageID  string
	registryID string
	registry   []string
	counter    uint64
	regVersion uint64
	forms      map[string]*form
	raw        map[string]ledger.Object
	events     []ledger.RawEvent
	subs       map[int]*subscription
	nextSub    int
	seq        uint64
	now        func() time.Time
	failNext   error
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock sets the clock used for event timestamps.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// New returns an empty ledger with the forms package published and its
// registry shared.
func New(opts ...Option) *Ledger {
	l := &Ledger{
		forms: map[string]*form{},
		raw:   map[string]ledger.Object{},
		subs:  map[int]*subscription{},
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.packageID = l.newID()
	l.registryID = l.newID()
	l.regVersion = 1
	return l
}

// PackageID returns the published package id.
func (l *Ledger) PackageID() string { return l.packageID }

// RegistryID returns the shared registry object id.
func (l *Ledger) RegistryID() string { return l.registryID }

// TypeTag returns the fully qualified type of a struct in the forms module.
func (l *Ledger) TypeTag(name string) string {
	return l.packageID + "::" + moduleName + "::" + name
}

// As returns a gateway that signs as sender.
func (l *Ledger) As(sender string) *Account {
	norm, err := ledger.NormalizeID(sender)
	if err != nil {
		norm = sender
	}
	return &Account{ledger: l, sender: norm}
}

// FailNext makes the next gateway call return err without touching state.
func (l *Ledger) FailNext(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failNext = err
}

// PutObject stores an arbitrary object, returned verbatim by GetObject.
func (l *Ledger) PutObject(obj ledger.Object) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.raw[obj.ID] = obj
}

// RegisterForm appends id to the registry without creating a form, the way
// a registry entry for a deleted or foreign object looks.
func (l *Ledger) RegisterForm(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.registry = append(l.registry, id)
	l.counter++
	l.regVersion++
}

// DeleteForm removes a form and emits FormDeleted.
func (l *Ledger) DeleteForm(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	f, ok := l.forms[id]
	if !ok {
		return false
	}
	delete(l.forms, id)
	digest := l.nextDigest()
	l.emit([]ledger.RawEvent{l.event(digest, 0, f.author, "FormDeleted", map[string]any{
		"form_id": id, "author": f.author, "timestamp": l.timestamp(),
	})})
	return true
}

// Emit publishes an event of the forms module with arbitrary fields, as a
// contract upgrade or a buggy emitter would.
func (l *Ledger) Emit(sender, name string, fields map[string]any) ledger.RawEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	ev := l.event(l.nextDigest(), 0, sender, name, fields)
	l.emit([]ledger.RawEvent{ev})
	return ev
}

// emit records events and queues them for subscribers. Callers hold l.mu.
func (l *Ledger) emit(events []ledger.RawEvent) {
	l.events = append(l.events, events...)
	for _, sub := range l.subs {
		sub.push(events)
	}
}

// Events returns every emitted event in emission order.
func (l *Ledger) Events() []ledger.RawEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]ledger.RawEvent(nil), l.events...)
}

func (l *Ledger) takeFailure() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	err := l.failNext
	l.failNext = nil
	return err
}

func (l *Ledger) newID() string {
	l.seq++
	return fmt.Sprintf("0x%064x", 0xf000+l.seq)
}

func (l *Ledger) nextDigest() string {
	l.seq++
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], l.seq)
	sum := sha256.Sum256(b[:])
	return base58.Encode(sum[:])
}

func (l *Ledger) timestamp() string {
	return strconv.FormatInt(l.now().UnixMilli(), 10)
}

func (l *Ledger) event(digest string, seq int, sender, name string, fields map[string]any) ledger.RawEvent {
	return ledger.RawEvent{
		ID:          ledger.EventID{TxDigest: digest, EventSeq: strconv.Itoa(seq)},
		PackageID:   l.packageID,
		Module:      moduleName,
		Sender:      sender,
		Type:        l.TypeTag(name),
		Fields:      fields,
		TimestampMs: uint64(l.now().UnixMilli()),
	}
}

func (l *Ledger) registryObject() ledger.Object {
	return ledger.Object{
		ID:      l.registryID,
		Type:    l.TypeTag("FormRegistry"),
		Version: l.regVersion,
		Digest:  l.objectDigest(l.registryID, l.regVersion),
		Owner:   ledger.Owner{Kind: ledger.OwnerShared, InitialSharedVersion: 1},
		Fields: map[string]any{
			"id":      map[string]any{"id": l.registryID},
			"forms":   toAny(l.registry),
			"counter": strconv.FormatUint(l.counter, 10),
		},
	}
}

func (l *Ledger) formObject(f *form) ledger.Object {
	questions := make([]any, 0, len(f.questions))
	for _, q := range f.questions {
		votes := make([]any, 0, len(q.votes))
		for _, v := range q.votes {
			votes = append(votes, strconv.FormatUint(v, 10))
		}
		questions = append(questions, map[string]any{
			"type": l.TypeTag("Question"),
			"fields": map[string]any{
				"id":          map[string]any{"id": q.id},
				"title":       q.title,
				"description": q.description,
				"options":     toAny(q.options),
				"votes":       votes,
				"addresses":   toAny(q.addresses),
			},
		})
	}
	return ledger.Object{
		ID:      f.id,
		Type:    l.TypeTag("Form"),
		Version: f.version,
		Digest:  l.objectDigest(f.id, f.version),
		Owner:   ledger.Owner{Kind: ledger.OwnerAddress, Address: f.owner},
		Fields: map[string]any{
			"id":          map[string]any{"id": f.id},
			"title":       f.title,
			"description": f.description,
			"author":      f.author,
			"questions":   questions,
			"is_active":   f.active,
		},
	}
}

func (l *Ledger) objectDigest(id string, version uint64) string {
	sum := sha256.Sum256([]byte(id + "@" + strconv.FormatUint(version, 10)))
	return base58.Encode(sum[:])
}

func (l *Ledger) query(q ledger.EventQuery) ledger.EventPage {
	l.mu.Lock()
	defer l.mu.Unlock()
	matched := make([]ledger.RawEvent, 0, len(l.events))
	for _, ev := range l.events {
		if q.Filter.Matches(ev) {
			matched = append(matched, ev)
		}
	}
	if q.Descending {
		for i, j := 0, len(matched)-1; i < j; i, j = i+1, j-1 {
			matched[i], matched[j] = matched[j], matched[i]
		}
	}
	start := 0
	if q.Cursor != nil {
		for i, ev := range matched {
			if ev.ID == *q.Cursor {
				start = i + 1
				break
			}
		}
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}
	page := ledger.EventPage{Events: append([]ledger.RawEvent(nil), matched[start:end]...)}
	if end > start {
		last := matched[end-1].ID
		page.NextCursor = &last
	}
	page.HasNextPage = end < len(matched)
	return page
}

func toAny(values []string) []any {
	out := make([]any, 0, len(values))
	for _, v := range values {
		out = append(out, v)
	}
	return out
}
