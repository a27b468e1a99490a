package ledger

// EventID locates an event in the ledger history and doubles as a cursor.
type EventID struct {
	TxDigest string `json:"txDigest"`
	EventSeq string `json:"eventSeq"`
}

// RawEvent is an undecoded ledger event.
type RawEvent struct {
	ID          EventID
	PackageID   string
	Module      string
	Sender      string
	Type        string
	Fields      map[string]any
	TimestampMs uint64
}

// EventFilter selects events by type. An empty Types list selects every
// event emitted by Module of Package.
type EventFilter struct {
	Package string
	Module  string
	Types   []string
}

// Matches reports whether ev passes the filter.
func (f EventFilter) Matches(ev RawEvent) bool {
	if len(f.Types) > 0 {
		for _, t := range f.Types {
			if t == ev.Type {
				return true
			}
		}
		return false
	}
	if f.Package != "" && f.Package != ev.PackageID {
		return false
	}
	if f.Module != "" && f.Module != ev.Module {
		return false
	}
	return true
}

// EventQuery asks for one page of historical events.
type EventQuery struct {
	Filter     EventFilter
	Cursor     *EventID
	Limit      int
	Descending bool
}

// EventPage is one page of historical events.
type EventPage struct {
	Events      []RawEvent
	NextCursor  *EventID
	HasNextPage bool
}
