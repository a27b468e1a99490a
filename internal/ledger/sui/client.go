// Package sui implements the ledger gateway against a Sui full node over
// JSON-RPC, with live events over the node's websocket endpoint.
package sui

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/louisbranch/formledger/internal/ledger"
	"github.com/louisbranch/formledger/internal/platform/timeouts"
)

const (
	// DefaultGasBudget is used when neither the client nor the transaction
	// sets one.
	DefaultGasBudget uint64 = 10_000_000
	// MaxGasBudget is the largest budget the client accepts.
	MaxGasBudget uint64 = 100_000_000

	suiCoinType = "0x2::sui::SUI"
)

// DialStage describes where a dial attempt failed.
type DialStage string

const (
	// DialStageConnect indicates the RPC client could not be created.
	DialStageConnect DialStage = "connect"
	// DialStageHealth indicates the chain identifier probe failed.
	DialStageHealth DialStage = "health"
)

// DialError wraps dial and health probe failures with a stage indicator.
type DialError struct {
	Stage DialStage
	Err   error
}

// Error implements the error interface.
func (e *DialError) Error() string {
	if e == nil {
		return "sui dial error"
	}
	return fmt.Sprintf("sui %s error: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying error.
func (e *DialError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Options configures Dial.
type Options struct {
	RPCURL string
	// WSURL defaults to RPCURL with the scheme switched to ws/wss.
	WSURL string
	// Signer is optional; without it the client is read-only.
	Signer         Signer
	GasBudget      uint64
	DialTimeout    time.Duration
	RequestTimeout time.Duration
	HTTPClient     *http.Client
	Logger         *slog.Logger
}

// Client is a Sui ledger gateway.
type Client struct {
	rpc            *rpc.Client
	wsURL          string
	signer         Signer
	sender         string
	gasBudget      uint64
	dialTimeout    time.Duration
	requestTimeout time.Duration
	logger         *slog.Logger
	chainID        string
}

var _ ledger.Gateway = (*Client)(nil)

// Dial connects to the node and probes it with sui_getChainIdentifier.
func Dial(ctx context.Context, opts Options) (*Client, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	rpcURL := strings.TrimSpace(opts.RPCURL)
	if rpcURL == "" {
		return nil, &DialError{Stage: DialStageConnect, Err: fmt.Errorf("rpc url is required")}
	}
	budget := opts.GasBudget
	if budget == 0 {
		budget = DefaultGasBudget
	}
	if budget > MaxGasBudget {
		return nil, &DialError{Stage: DialStageConnect, Err: fmt.Errorf("gas budget %d exceeds max %d", budget, MaxGasBudget)}
	}
	wsURL := strings.TrimSpace(opts.WSURL)
	if wsURL == "" {
		wsURL = WebsocketURL(rpcURL)
	}

	var rpcOpts []rpc.ClientOption
	if opts.HTTPClient != nil {
		rpcOpts = append(rpcOpts, rpc.WithHTTPClient(opts.HTTPClient))
	}
	rpcClient, err := rpc.DialOptions(ctx, rpcURL, rpcOpts...)
	if err != nil {
		return nil, &DialError{Stage: DialStageConnect, Err: err}
	}

	requestTimeout := opts.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = timeouts.LedgerRequest
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	dialTimeout := opts.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = timeouts.LedgerDial
	}
	client := &Client{
		rpc:            rpcClient,
		wsURL:          wsURL,
		signer:         opts.Signer,
		gasBudget:      budget,
		dialTimeout:    dialTimeout,
		requestTimeout: requestTimeout,
		logger:         logger,
	}
	if opts.Signer != nil {
		client.sender = AddressOf(opts.Signer)
	}

	probeCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	chainID, err := client.ChainIdentifier(probeCtx)
	if err != nil {
		rpcClient.Close()
		return nil, &DialError{Stage: DialStageHealth, Err: err}
	}
	client.chainID = chainID
	logger.Debug("sui client connected", "rpc", rpcURL, "chain", chainID, "sender", client.sender)
	return client, nil
}

// Close releases the underlying RPC client.
func (c *Client) Close() {
	if c == nil || c.rpc == nil {
		return
	}
	c.rpc.Close()
}

// Sender returns the signing address, empty when read-only.
func (c *Client) Sender() string {
	return c.sender
}

// ChainID returns the identifier observed at dial time.
func (c *Client) ChainID() string {
	return c.chainID
}

// ChainIdentifier asks the node for its chain identifier.
func (c *Client) ChainIdentifier(ctx context.Context) (string, error) {
	var id string
	if err := c.call(ctx, &id, "sui_getChainIdentifier"); err != nil {
		return "", err
	}
	return id, nil
}

// Balance returns the total SUI balance, in MIST, held by owner.
func (c *Client) Balance(ctx context.Context, owner string) (uint64, error) {
	var resp struct {
		CoinType        string `json:"coinType"`
		CoinObjectCount int    `json:"coinObjectCount"`
		TotalBalance    string `json:"totalBalance"`
	}
	if err := c.call(ctx, &resp, "suix_getBalance", owner, suiCoinType); err != nil {
		return 0, err
	}
	return parseUint(resp.TotalBalance)
}

func (c *Client) call(ctx context.Context, result any, method string, args ...any) error {
	if ctx == nil {
		ctx = context.Background()
	}
	callCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()
	if err := c.rpc.CallContext(callCtx, result, method, args...); err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	return nil
}

// WebsocketURL derives the websocket endpoint from an HTTP RPC URL.
func WebsocketURL(rpcURL string) string {
	switch {
	case strings.HasPrefix(rpcURL, "https://"):
		return "wss://" + strings.TrimPrefix(rpcURL, "https://")
	case strings.HasPrefix(rpcURL, "http://"):
		return "ws://" + strings.TrimPrefix(rpcURL, "http://")
	default:
		return rpcURL
	}
}
