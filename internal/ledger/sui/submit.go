package sui

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/louisbranch/formledger/internal/ledger"
	"github.com/louisbranch/formledger/internal/ledger/sui/bcs"
)

var executeOptions = map[string]bool{
	"showEffects":       true,
	"showEvents":        true,
	"showObjectChanges": true,
}

const (
	executeRequestType = "WaitForLocalExecution"
	maxGasCoins        = 255
	coinPageSize       = 50
)

// Submit builds, signs and executes tx as a programmable transaction.
func (c *Client) Submit(ctx context.Context, tx ledger.Transaction) (ledger.Receipt, error) {
	if c.signer == nil {
		return ledger.Receipt{}, ledger.ErrNoSigner
	}
	data, err := c.Build(ctx, tx)
	if err != nil {
		return ledger.Receipt{}, err
	}
	txBytes, err := data.Marshal()
	if err != nil {
		return ledger.Receipt{}, fmt.Errorf("encode transaction: %w", err)
	}
	sig, err := SignTransaction(c.signer, txBytes)
	if err != nil {
		return ledger.Receipt{}, err
	}

	var raw json.RawMessage
	if err := c.call(ctx, &raw, "sui_executeTransactionBlock",
		base64.StdEncoding.EncodeToString(txBytes),
		[]string{sig},
		executeOptions,
		executeRequestType,
	); err != nil {
		return ledger.Receipt{}, err
	}
	var resp executeResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return ledger.Receipt{}, fmt.Errorf("decode execute response: %w", err)
	}
	receipt := resp.toReceipt(raw)
	c.logger.Debug("transaction executed", "tx", receipt.Digest, "success", receipt.Success)
	return receipt, nil
}

// Build resolves object inputs, gas price and gas payment for tx.
func (c *Client) Build(ctx context.Context, tx ledger.Transaction) (bcs.TransactionData, error) {
	if err := tx.Validate(); err != nil {
		return bcs.TransactionData{}, err
	}
	if c.signer == nil {
		return bcs.TransactionData{}, ledger.ErrNoSigner
	}
	sender, err := bcs.ParseAddress(c.sender)
	if err != nil {
		return bcs.TransactionData{}, fmt.Errorf("sender: %w", err)
	}
	budget := tx.GasBudget
	if budget == 0 {
		budget = c.gasBudget
	}
	if budget > MaxGasBudget {
		return bcs.TransactionData{}, fmt.Errorf("gas budget %d exceeds max %d", budget, MaxGasBudget)
	}

	b := &inputBuilder{client: c, objects: map[string]uint16{}}
	data := bcs.TransactionData{Sender: sender}
	for i, call := range tx.Calls {
		pkg, err := bcs.ParseAddress(call.Package)
		if err != nil {
			return bcs.TransactionData{}, fmt.Errorf("call %d package: %w", i, err)
		}
		cmd := bcs.MoveCall{Package: pkg, Module: call.Module, Function: call.Function}
		for j, arg := range call.Args {
			argument, err := b.argument(ctx, arg)
			if err != nil {
				return bcs.TransactionData{}, fmt.Errorf("call %d arg %d: %w", i, j, err)
			}
			cmd.Arguments = append(cmd.Arguments, argument)
		}
		data.Commands = append(data.Commands, cmd)
	}
	data.Inputs = b.inputs

	price, err := c.referenceGasPrice(ctx)
	if err != nil {
		return bcs.TransactionData{}, err
	}
	payment, err := c.gasPayment(ctx, budget, b.objects)
	if err != nil {
		return bcs.TransactionData{}, err
	}
	data.Gas = bcs.GasData{Payment: payment, Owner: sender, Price: price, Budget: budget}
	return data, nil
}

type inputBuilder struct {
	client  *Client
	inputs  []bcs.CallArg
	objects map[string]uint16
}

func (b *inputBuilder) pure(value []byte) bcs.Argument {
	b.inputs = append(b.inputs, bcs.CallArg{Pure: value})
	return bcs.Argument{Kind: bcs.Input, Index: uint16(len(b.inputs) - 1)}
}

func (b *inputBuilder) argument(ctx context.Context, arg ledger.Arg) (bcs.Argument, error) {
	switch arg.Kind {
	case ledger.ArgString:
		return b.pure(bcs.PureString(arg.Text)), nil
	case ledger.ArgStrings:
		return b.pure(bcs.PureStrings(arg.Texts)), nil
	case ledger.ArgU64:
		return b.pure(bcs.PureU64(arg.Number)), nil
	case ledger.ArgID:
		addr, err := bcs.ParseAddress(arg.Text)
		if err != nil {
			return bcs.Argument{}, err
		}
		return b.pure(bcs.PureAddress(addr)), nil
	case ledger.ArgResult:
		return bcs.Argument{Kind: bcs.Result, Index: uint16(arg.Index)}, nil
	case ledger.ArgObject:
		return b.object(ctx, arg.Text)
	default:
		return bcs.Argument{}, fmt.Errorf("unsupported argument kind %s", arg.Kind)
	}
}

// object resolves an object reference once per transaction.
func (b *inputBuilder) object(ctx context.Context, id string) (bcs.Argument, error) {
	addr, err := bcs.ParseAddress(id)
	if err != nil {
		return bcs.Argument{}, err
	}
	key := addr.String()
	if idx, ok := b.objects[key]; ok {
		return bcs.Argument{Kind: bcs.Input, Index: idx}, nil
	}
	obj, found, err := b.client.GetObject(ctx, id)
	if err != nil {
		return bcs.Argument{}, err
	}
	if !found {
		return bcs.Argument{}, fmt.Errorf("object does not exist: %s", id)
	}
	var input bcs.CallArg
	if obj.Owner.Kind == ledger.OwnerShared {
		input.Shared = &bcs.SharedObject{ID: addr, InitialSharedVersion: obj.Owner.InitialSharedVersion, Mutable: true}
	} else {
		digest := base58.Decode(obj.Digest)
		if len(digest) == 0 {
			return bcs.Argument{}, fmt.Errorf("object %s has invalid digest %q", id, obj.Digest)
		}
		input.ImmOrOwned = &bcs.ObjectRef{ID: addr, Version: obj.Version, Digest: digest}
	}
	b.inputs = append(b.inputs, input)
	idx := uint16(len(b.inputs) - 1)
	b.objects[key] = idx
	return bcs.Argument{Kind: bcs.Input, Index: idx}, nil
}

func (c *Client) referenceGasPrice(ctx context.Context) (uint64, error) {
	var price string
	if err := c.call(ctx, &price, "suix_getReferenceGasPrice"); err != nil {
		return 0, err
	}
	return parseUint(price)
}

// gasPayment picks sender coins until their balance covers budget. Coins
// already used as transaction inputs are skipped.
func (c *Client) gasPayment(ctx context.Context, budget uint64, inputs map[string]uint16) ([]bcs.ObjectRef, error) {
	var (
		payment []bcs.ObjectRef
		total   uint64
		cursor  *string
	)
	for {
		var page coinPageJSON
		if err := c.call(ctx, &page, "suix_getCoins", c.sender, suiCoinType, cursor, coinPageSize); err != nil {
			return nil, err
		}
		for _, coin := range page.Data {
			addr, err := bcs.ParseAddress(coin.CoinObjectID)
			if err != nil {
				return nil, fmt.Errorf("gas coin: %w", err)
			}
			if _, used := inputs[addr.String()]; used {
				continue
			}
			version, err := parseUint(coin.Version)
			if err != nil {
				return nil, fmt.Errorf("gas coin %s version: %w", coin.CoinObjectID, err)
			}
			balance, err := parseUint(coin.Balance)
			if err != nil {
				return nil, fmt.Errorf("gas coin %s balance: %w", coin.CoinObjectID, err)
			}
			payment = append(payment, bcs.ObjectRef{ID: addr, Version: version, Digest: base58.Decode(coin.Digest)})
			total += balance
			if total >= budget || len(payment) == maxGasCoins {
				return payment, nil
			}
		}
		if !page.HasNextPage || page.NextCursor == nil {
			break
		}
		cursor = page.NextCursor
	}
	if len(payment) == 0 {
		return nil, fmt.Errorf("insufficient gas: no SUI coins owned by %s", c.sender)
	}
	return nil, fmt.Errorf("insufficient gas: balance %d below budget %d", total, budget)
}
