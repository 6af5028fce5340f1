package sessionports

import (
	"context"
	"errors"
)

// Role identifies the author of a turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Turn represents one conversational exchange half. Immutable once created.
type Turn struct {
	Role Role
	Text string
}

// Identity is the caller identity decoded from a credential.
type Identity struct {
	ID   string
	Name string
}

// Error taxonomy surfaced to transport. Each maps to a distinct HTTP status.
var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrOracle          = errors.New("completion oracle failed")
	ErrPersistence     = errors.New("persistence failed")
)

// IdentityResolver decodes a bearer credential into an Identity without I/O.
// Absent, malformed, or forged credentials yield ErrUnauthenticated.
type IdentityResolver interface {
	Resolve(token string) (Identity, error)
}

// HistoryStore persists the append-only conversation log, one log per user.
type HistoryStore interface {
	// LoadHistory returns every stored turn for the user in append order.
	// A user with no history gets an empty slice, not an error.
	LoadHistory(ctx context.Context, userID string) ([]Turn, error)
	// AppendPair atomically appends the user turn and the model turn, in
	// that order, to the end of the user's log. Concurrent calls for the
	// same user must not interleave or lose a pair.
	AppendPair(ctx context.Context, userID string, userTurn, modelTurn Turn) error
}

// CompletionOracle produces one model turn from prior turns plus a new message.
type CompletionOracle interface {
	Complete(ctx context.Context, history []Turn, message string) (string, error)
}
