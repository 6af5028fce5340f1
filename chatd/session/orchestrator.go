package session

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	ports "github.com/soramar/chatd/chatd/session/ports"
)

// Orchestrator coordinates one chat request: resolve identity, load history,
// build the context window, call the oracle, and durably append the new pair.
type Orchestrator struct {
	resolver      ports.IdentityResolver
	store         ports.HistoryStore
	oracle        ports.CompletionOracle
	assembler     *ContextAssembler
	oracleTimeout time.Duration
	logger        zerolog.Logger
}

// NewOrchestrator creates an orchestrator with all dependencies injected.
func NewOrchestrator(
	resolver ports.IdentityResolver,
	store ports.HistoryStore,
	oracle ports.CompletionOracle,
	oracleTimeout time.Duration,
	logger zerolog.Logger,
) *Orchestrator {
	return &Orchestrator{
		resolver:      resolver,
		store:         store,
		oracle:        oracle,
		assembler:     NewContextAssembler(),
		oracleTimeout: oracleTimeout,
		logger:        logger,
	}
}

// Chat runs the full turn cycle and returns the model's reply text.
// The reply is returned only if the turn pair was durably recorded; an
// oracle failure leaves history untouched so the same message can be resent.
func (o *Orchestrator) Chat(ctx context.Context, token, message string) (string, error) {
	identity, err := o.resolver.Resolve(token)
	if err != nil {
		return "", err
	}

	history, err := o.store.LoadHistory(ctx, identity.ID)
	if err != nil {
		return "", fmt.Errorf("%w: load history: %w", ports.ErrPersistence, err)
	}

	replay, effective := o.assembler.BuildContext(history, message, identity.Name)

	oracleCtx, cancel := context.WithTimeout(ctx, o.oracleTimeout)
	defer cancel()

	reply, err := o.oracle.Complete(oracleCtx, replay, effective)
	if err != nil {
		o.logger.Error().Err(err).Str("user_id", identity.ID).Msg("oracle call failed")
		return "", fmt.Errorf("%w: %w", ports.ErrOracle, err)
	}

	// History durability outlives the caller: a disconnect after the oracle
	// answered must not abort the append.
	appendCtx := context.WithoutCancel(ctx)
	userTurn := ports.Turn{Role: ports.RoleUser, Text: message}
	modelTurn := ports.Turn{Role: ports.RoleModel, Text: reply}
	if err := o.store.AppendPair(appendCtx, identity.ID, userTurn, modelTurn); err != nil {
		o.logger.Error().Err(err).Str("user_id", identity.ID).Msg("append failed after oracle success")
		return "", fmt.Errorf("%w: append pair: %w", ports.ErrPersistence, err)
	}

	return reply, nil
}

// History returns the caller's stored turns in append order. A user who has
// never chatted gets an empty slice.
func (o *Orchestrator) History(ctx context.Context, token string) ([]ports.Turn, error) {
	identity, err := o.resolver.Resolve(token)
	if err != nil {
		return nil, err
	}

	turns, err := o.store.LoadHistory(ctx, identity.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: load history: %w", ports.ErrPersistence, err)
	}
	return turns, nil
}
