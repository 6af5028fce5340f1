package session

import (
	ports "github.com/soramar/chatd/chatd/session/ports"
)

// ContextAssembler converts a stored turn log into the oracle's input shape.
type ContextAssembler struct{}

func NewContextAssembler() *ContextAssembler { return &ContextAssembler{} }

// BuildContext replays the stored history verbatim and decides the effective
// message. On a user's very first interaction the message is prefixed with an
// introduction carrying their display name; every later message passes
// through unchanged. The introduction is not stored separately and is never
// re-sent on later turns.
func (a *ContextAssembler) BuildContext(history []ports.Turn, message, displayName string) ([]ports.Turn, string) {
	replay := make([]ports.Turn, len(history))
	copy(replay, history)

	if len(history) == 0 {
		return replay, "My name is " + displayName + ". " + message
	}
	return replay, message
}
