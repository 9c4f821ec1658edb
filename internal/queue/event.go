// Package queue defines message payloads exchanged over the message broker
// and the publisher that sends them.
package queue

// Routing keys (and queue names) for account lifecycle events.
const (
	AccountRegisteredQueue = "account.registered"
	AccountDeletedQueue    = "account.deleted"
)

// AccountEvent is published when an account is created or deleted.  It
// carries only public account fields; password material never leaves the
// service.
type AccountEvent struct {
	AccountID  uint64 `json:"account_id"`
	Name       string `json:"name,omitempty"`
	Email      string `json:"email"`
	OccurredAt string `json:"occurred_at"`
}
