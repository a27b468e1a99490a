// Package timeouts defines shared timeout constants used across commands.
package timeouts

import "time"

// LedgerDial caps the wait time for the ledger health probe at startup.
const LedgerDial = 5 * time.Second

// LedgerRequest caps a single JSON-RPC round trip to the ledger node.
const LedgerRequest = 30 * time.Second

// LedgerSubmit caps transaction execution, which waits for local execution.
const LedgerSubmit = 60 * time.Second

// Shutdown limits how long a runtime waits for in-flight work during
// graceful shutdown.
const Shutdown = 5 * time.Second
