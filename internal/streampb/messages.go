// Package streampb defines the wire messages for the upstream account-update
// stream (§6) and a grpc codec that lets a plain Go struct travel over a
// google.golang.org/grpc bidirectional stream without protoc-generated
// bindings.
package streampb

// CommitmentLevel mirrors the three commitment levels a subscribe request
// may specify.
type CommitmentLevel string

const (
	CommitmentProcessed CommitmentLevel = "PROCESSED"
	CommitmentConfirmed CommitmentLevel = "CONFIRMED"
	CommitmentFinalized CommitmentLevel = "FINALIZED"
)

// AccountFilter is one named filter group within a SubscribeRequest.
type AccountFilter struct {
	Owner   [][]byte `json:"owner,omitempty"`
	Account [][]byte `json:"account,omitempty"`
	Filters []string `json:"filters,omitempty"`
}

// PingRequest is written as a subscribe request with only this field
// populated, per §6.
type PingRequest struct {
	ID int64 `json:"id"`
}

// SubscribeRequest is the client-to-server message. A request with only
// Ping set is a keepalive; a request with Accounts set (additively)
// updates the active subscription.
type SubscribeRequest struct {
	Accounts   map[string]AccountFilter `json:"accounts,omitempty"`
	Commitment CommitmentLevel          `json:"commitment,omitempty"`
	Ping       *PingRequest             `json:"ping,omitempty"`
}

// AccountUpdate carries a single account's current state.
type AccountUpdate struct {
	Pubkey   []byte `json:"pubkey"`
	Owner    []byte `json:"owner"`
	Data     []byte `json:"data"`
	Lamports uint64 `json:"lamports"`
	Slot     uint64 `json:"slot"`
}

// PongResponse answers a PingRequest; it requires no action from the
// client beyond acknowledging liveness.
type PongResponse struct {
	ID int64 `json:"id"`
}

// SubscribeUpdate is the server-to-client message. Exactly one of
// Account or Pong is populated; an update with neither is ignored.
type SubscribeUpdate struct {
	Account *AccountUpdate `json:"account,omitempty"`
	Pong    *PongResponse  `json:"pong,omitempty"`
}
