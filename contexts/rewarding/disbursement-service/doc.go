// Package disbursementservice implements CAPT reward disbursement for
// detection sessions.
//
// The module scans the session store for completed, unrewarded sessions,
// computes a token reward per session, submits a mint transaction to the Sui
// ledger, and durably marks each session as rewarded. It exposes worker
// entrypoints for the disbursement cycle, stale-claim recovery, and the
// wallet-totals projection, plus read-only HTTP handlers for reconciliation.
package disbursementservice
