// Package timeouts defines the durations shared by FHE Worlds processes.
package timeouts

import "time"

// GRPCDial caps the wait when dialing the payroll ledger.
const GRPCDial = 2 * time.Second

// GRPCRequest caps a single ledger call. Joins run a homomorphic evaluation,
// so this is larger than a plain lookup needs.
const GRPCRequest = 30 * time.Second

// RelayerRequest caps a single HTTP round trip to the relayer.
const RelayerRequest = 30 * time.Second

// ReadHeader limits how long an HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long servers wait for in-flight requests on exit.
const Shutdown = 5 * time.Second
