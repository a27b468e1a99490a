package sui

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/louisbranch/formledger/internal/ledger"
)

// objectResponse is the sui_getObject result.
type objectResponse struct {
	Data  *objectData  `json:"data"`
	Error *objectError `json:"error"`
}

type objectError struct {
	Code     string `json:"code"`
	ObjectID string `json:"object_id"`
}

type objectData struct {
	ObjectID string          `json:"objectId"`
	Version  string          `json:"version"`
	Digest   string          `json:"digest"`
	Type     string          `json:"type"`
	Owner    json.RawMessage `json:"owner"`
	Content  *moveContent    `json:"content"`
}

type moveContent struct {
	DataType string         `json:"dataType"`
	Type     string         `json:"type"`
	Fields   map[string]any `json:"fields"`
}

// parseOwner decodes the owner enum: {"AddressOwner": "0x.."},
// {"ObjectOwner": "0x.."}, {"Shared": {"initial_shared_version": n}} or
// the bare string "Immutable".
func parseOwner(raw json.RawMessage) (ledger.Owner, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return ledger.Owner{}, nil
	}
	var bare string
	if err := json.Unmarshal(raw, &bare); err == nil {
		if bare == "Immutable" {
			return ledger.Owner{Kind: ledger.OwnerImmutable}, nil
		}
		return ledger.Owner{}, fmt.Errorf("unknown owner %q", bare)
	}
	var tagged struct {
		AddressOwner *string `json:"AddressOwner"`
		ObjectOwner  *string `json:"ObjectOwner"`
		Shared       *struct {
			InitialSharedVersion json.Number `json:"initial_shared_version"`
		} `json:"Shared"`
	}
	if err := json.Unmarshal(raw, &tagged); err != nil {
		return ledger.Owner{}, fmt.Errorf("decode owner: %w", err)
	}
	switch {
	case tagged.AddressOwner != nil:
		return ledger.Owner{Kind: ledger.OwnerAddress, Address: *tagged.AddressOwner}, nil
	case tagged.ObjectOwner != nil:
		return ledger.Owner{Kind: ledger.OwnerObject, Address: *tagged.ObjectOwner}, nil
	case tagged.Shared != nil:
		version, err := parseUint(tagged.Shared.InitialSharedVersion.String())
		if err != nil {
			return ledger.Owner{}, fmt.Errorf("shared version: %w", err)
		}
		return ledger.Owner{Kind: ledger.OwnerShared, InitialSharedVersion: version}, nil
	default:
		return ledger.Owner{}, fmt.Errorf("unknown owner %s", string(raw))
	}
}

func (d objectData) toObject() (ledger.Object, error) {
	version, err := parseUint(d.Version)
	if err != nil {
		return ledger.Object{}, fmt.Errorf("object %s version: %w", d.ObjectID, err)
	}
	owner, err := parseOwner(d.Owner)
	if err != nil {
		return ledger.Object{}, fmt.Errorf("object %s: %w", d.ObjectID, err)
	}
	obj := ledger.Object{
		ID:      d.ObjectID,
		Type:    d.Type,
		Version: version,
		Digest:  d.Digest,
		Owner:   owner,
	}
	if d.Content != nil && d.Content.DataType == "moveObject" {
		if obj.Type == "" {
			obj.Type = d.Content.Type
		}
		obj.Fields = d.Content.Fields
	}
	return obj, nil
}

type eventJSON struct {
	ID                ledger.EventID `json:"id"`
	PackageID         string         `json:"packageId"`
	TransactionModule string         `json:"transactionModule"`
	Sender            string         `json:"sender"`
	Type              string         `json:"type"`
	ParsedJSON        map[string]any `json:"parsedJson"`
	TimestampMs       string         `json:"timestampMs"`
}

func (e eventJSON) toRaw() ledger.RawEvent {
	ts, _ := parseUint(e.TimestampMs)
	return ledger.RawEvent{
		ID:          e.ID,
		PackageID:   e.PackageID,
		Module:      e.TransactionModule,
		Sender:      e.Sender,
		Type:        e.Type,
		Fields:      e.ParsedJSON,
		TimestampMs: ts,
	}
}

type eventPageJSON struct {
	Data        []eventJSON     `json:"data"`
	NextCursor  *ledger.EventID `json:"nextCursor"`
	HasNextPage bool            `json:"hasNextPage"`
}

type objectChangeJSON struct {
	Type       string          `json:"type"`
	Sender     string          `json:"sender"`
	Owner      json.RawMessage `json:"owner"`
	ObjectType string          `json:"objectType"`
	ObjectID   string          `json:"objectId"`
	PackageID  string          `json:"packageId"`
	Version    string          `json:"version"`
	Digest     string          `json:"digest"`
}

type executeResponse struct {
	Digest  string `json:"digest"`
	Effects *struct {
		Status struct {
			Status string `json:"status"`
			Error  string `json:"error"`
		} `json:"status"`
	} `json:"effects"`
	Events        []eventJSON        `json:"events"`
	ObjectChanges []objectChangeJSON `json:"objectChanges"`
	Errors        []string           `json:"errors"`
}

func (r executeResponse) toReceipt(raw json.RawMessage) ledger.Receipt {
	receipt := ledger.Receipt{Digest: r.Digest, Raw: raw}
	switch {
	case r.Effects == nil:
		receipt.Error = "transaction effects missing"
		if len(r.Errors) > 0 {
			receipt.Error = strings.Join(r.Errors, "; ")
		}
	case r.Effects.Status.Status == "success":
		receipt.Success = true
	default:
		receipt.Error = r.Effects.Status.Error
		if receipt.Error == "" {
			receipt.Error = "transaction failed"
		}
	}
	for _, change := range r.ObjectChanges {
		owner, _ := parseOwner(change.Owner)
		version, _ := parseUint(change.Version)
		id := change.ObjectID
		if id == "" {
			id = change.PackageID
		}
		receipt.ObjectChanges = append(receipt.ObjectChanges, ledger.ObjectChange{
			Kind:       change.Type,
			ObjectID:   id,
			ObjectType: change.ObjectType,
			Sender:     change.Sender,
			Owner:      owner,
			Version:    version,
			Digest:     change.Digest,
		})
	}
	for _, ev := range r.Events {
		receipt.Events = append(receipt.Events, ev.toRaw())
	}
	return receipt
}

type coinPageJSON struct {
	Data []struct {
		CoinObjectID string `json:"coinObjectId"`
		Version      string `json:"version"`
		Digest       string `json:"digest"`
		Balance      string `json:"balance"`
	} `json:"data"`
	NextCursor  *string `json:"nextCursor"`
	HasNextPage bool    `json:"hasNextPage"`
}

// eventFilterJSON renders the node's filter enum for f.
func eventFilterJSON(f ledger.EventFilter) (any, error) {
	switch {
	case len(f.Types) == 1:
		return map[string]any{"MoveEventType": f.Types[0]}, nil
	case len(f.Types) > 1:
		anyOf := make([]any, 0, len(f.Types))
		for _, t := range f.Types {
			anyOf = append(anyOf, map[string]any{"MoveEventType": t})
		}
		return map[string]any{"Any": anyOf}, nil
	case f.Package != "" && f.Module != "":
		return map[string]any{"MoveModule": map[string]string{"package": f.Package, "module": f.Module}}, nil
	default:
		return nil, fmt.Errorf("event filter is empty")
	}
}

func parseUint(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	return strconv.ParseUint(s, 10, 64)
}
