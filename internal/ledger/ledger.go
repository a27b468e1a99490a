// Package ledger defines the gateway contract between the forms service and
// the external ledger: object reads, transaction submission and event feeds.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrNoSigner is returned by Submit when the gateway has no signing key.
var ErrNoSigner = errors.New("ledger: no signing key configured")

// OwnerKind describes who controls an object.
type OwnerKind string

const (
	OwnerAddress   OwnerKind = "address"
	OwnerShared    OwnerKind = "shared"
	OwnerImmutable OwnerKind = "immutable"
	OwnerObject    OwnerKind = "object"
)

// Owner is the ownership record of an object.
type Owner struct {
	Kind OwnerKind
	// Address is the owning account (or parent object) for address and
	// object owned objects.
	Address string
	// InitialSharedVersion is set for shared objects.
	InitialSharedVersion uint64
}

// Object is a decoded ledger object. Fields holds the Move struct fields as
// they come off the wire: numbers as strings, nested structs as maps.
type Object struct {
	ID      string
	Type    string
	Version uint64
	Digest  string
	Owner   Owner
	Fields  map[string]any
}

// Reader reads objects by id.
type Reader interface {
	// GetObject returns found=false when the object does not exist or has
	// been deleted. A non-nil error means the ledger could not be reached.
	GetObject(ctx context.Context, id string) (Object, bool, error)
}

// Submitter signs and executes transactions.
type Submitter interface {
	// Submit returns an error only when the transaction was not executed.
	// Executed transactions that abort come back with Receipt.Success false.
	Submit(ctx context.Context, tx Transaction) (Receipt, error)
}

// EventSource exposes the historical and live event feeds.
type EventSource interface {
	QueryEvents(ctx context.Context, query EventQuery) (EventPage, error)
	// SubscribeEvents delivers matching events to handler until the returned
	// unsubscribe func is called or ctx ends. Unsubscribe is idempotent.
	SubscribeEvents(ctx context.Context, filter EventFilter, handler func(RawEvent)) (func(), error)
}

// Gateway is the full ledger surface used by the forms service.
type Gateway interface {
	Reader
	Submitter
	EventSource
	// Sender is the address of the signing key, empty when read-only.
	Sender() string
}

// ObjectChange is one entry of a transaction's object-change log.
type ObjectChange struct {
	// Kind is created, mutated, transferred, deleted, wrapped or published.
	Kind       string
	ObjectID   string
	ObjectType string
	Sender     string
	Owner      Owner
	Version    uint64
	Digest     string
}

// Receipt is the ledger response for an executed transaction.
type Receipt struct {
	Digest        string
	Success       bool
	Error         string
	ObjectChanges []ObjectChange
	Events        []RawEvent
	Raw           json.RawMessage
}

// Created returns the ids of objects created by the transaction whose type
// satisfies match. A nil match returns every created object.
func (r Receipt) Created(match func(objectType string) bool) []string {
	var ids []string
	for _, change := range r.ObjectChanges {
		if change.Kind != "created" {
			continue
		}
		if match != nil && !match(change.ObjectType) {
			continue
		}
		ids = append(ids, change.ObjectID)
	}
	return ids
}
