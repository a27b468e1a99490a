package events

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/louisbranch/formledger/internal/ledger"
	"github.com/louisbranch/formledger/internal/services/forms/contract"
	"github.com/louisbranch/formledger/internal/services/forms/domain"
)

// Decoder turns raw ledger events into form event variants.
type Decoder struct {
	binding contract.Binding
	logger  *slog.Logger
}

// NewDecoder returns a decoder for events of binding's package.
func NewDecoder(binding contract.Binding, logger *slog.Logger) Decoder {
	return Decoder{binding: binding, logger: resolveLogger(logger)}
}

// Decode returns the typed event, or false when raw is not a forms event or
// its payload is malformed. Malformed payloads are logged and dropped.
func (d Decoder) Decode(raw ledger.RawEvent) (domain.Event, bool) {
	kind, ok := d.binding.EventType(raw.Type)
	if !ok {
		return nil, false
	}
	ev, err := decodePayload(kind, raw)
	if err != nil {
		d.logger.Warn("form event dropped",
			"event", "forms_event_decode_failed",
			"type", string(kind),
			"tx", raw.ID.TxDigest,
			"seq", raw.ID.EventSeq,
			"error", err.Error(),
		)
		return nil, false
	}
	return ev, true
}

// DecodeAll decodes events in order, skipping the ones Decode rejects.
func (d Decoder) DecodeAll(raws []ledger.RawEvent) []domain.Event {
	out := make([]domain.Event, 0, len(raws))
	for _, raw := range raws {
		if ev, ok := d.Decode(raw); ok {
			out = append(out, ev)
		}
	}
	return out
}

func decodePayload(kind domain.EventType, raw ledger.RawEvent) (domain.Event, error) {
	p := payload{fields: raw.Fields}
	ref := domain.EventRef{TxDigest: raw.ID.TxDigest, Seq: raw.ID.EventSeq}
	author := p.address("author")
	ts := p.timestamp(raw.TimestampMs)

	var ev domain.Event
	switch kind {
	case domain.EventFormListed:
		ev = domain.FormListed{Ref: ref, ID: p.address("id"), Author: author, Timestamp: ts}
	case domain.EventFormDelisted:
		ev = domain.FormDelisted{Ref: ref, FormID: p.address("form_id"), Author: author, Timestamp: ts}
	case domain.EventUserVoted:
		ev = domain.UserVoted{Ref: ref, ID: p.address("id"), Author: author, User: p.address("user"), Timestamp: ts}
	case domain.EventFormDeleted:
		ev = domain.FormDeleted{Ref: ref, FormID: p.address("form_id"), Author: author, Timestamp: ts}
	default:
		return nil, fmt.Errorf("unsupported event type %s", kind)
	}
	if p.err != nil {
		return nil, p.err
	}
	return ev, nil
}

// payload reads event fields, keeping the first error.
type payload struct {
	fields map[string]any
	err    error
}

func (p *payload) address(name string) string {
	if p.err != nil {
		return ""
	}
	value, ok := p.fields[name]
	if !ok {
		p.err = fmt.Errorf("missing field %q", name)
		return ""
	}
	text, ok := value.(string)
	if !ok {
		if nested, isMap := value.(map[string]any); isMap {
			text, ok = nested["id"].(string)
		}
	}
	if !ok {
		p.err = fmt.Errorf("field %q is %T, want address", name, value)
		return ""
	}
	id, err := ledger.NormalizeID(text)
	if err != nil {
		p.err = fmt.Errorf("field %q: %w", name, err)
		return ""
	}
	return id
}

// timestamp reads the payload's millisecond timestamp, falling back to the
// event's ledger timestamp when the payload has none.
func (p *payload) timestamp(fallback uint64) uint64 {
	if p.err != nil {
		return 0
	}
	value, ok := p.fields["timestamp"]
	if !ok {
		return fallback
	}
	switch v := value.(type) {
	case string:
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			p.err = fmt.Errorf("field \"timestamp\": %w", err)
			return 0
		}
		return n
	case float64:
		if v < 0 {
			p.err = fmt.Errorf("field \"timestamp\" is negative")
			return 0
		}
		return uint64(v)
	default:
		p.err = fmt.Errorf("field \"timestamp\" is %T", value)
		return 0
	}
}

// IsEventRelatedToForm reports whether ev concerns formID.
func IsEventRelatedToForm(ev domain.Event, formID string) bool {
	if ev == nil {
		return false
	}
	return ledger.SameID(ev.CorrelationID(), formID)
}
